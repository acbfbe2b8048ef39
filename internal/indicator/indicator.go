// Package indicator shows workflow state as notifications and audio cues.
package indicator

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gen2brain/beeep"
	"github.com/rbright/segnala/internal/config"
	"github.com/rbright/segnala/internal/hypr"
	"github.com/rbright/segnala/internal/report"
)

const (
	colorRecording  = "rgb(89b4fa)"
	colorProcessing = "rgb(cba6f7)"
	colorSuccess    = "rgb(a6e3a1)"
	colorError      = "rgb(f38ba8)"

	// Hyprland icon ids: 1 info, 3 error, 5 ok.
	iconInfo  = 1
	iconError = 3
	iconOK    = 5

	persistentMS = 300000
	successMS    = 3000
)

// Notify routes workflow feedback to Hyprland or desktop notifications.
type Notify struct {
	cfg    config.IndicatorConfig
	logger *slog.Logger
	texts  texts

	desktop func(title string, message string) error
	hyprctl func(ctx context.Context, icon int, timeoutMS int, color string, text string) error
	dismiss func(ctx context.Context) error
	cue     func(cueKind) error

	soundMu sync.Mutex
}

// New creates an indicator from config.
func New(cfg config.IndicatorConfig, logger *slog.Logger) *Notify {
	return &Notify{
		cfg:    cfg,
		logger: logger,
		texts:  resolveTexts(cfg),
		desktop: func(title string, message string) error {
			return beeep.Notify(title, message, "")
		},
		hyprctl: hypr.Notify,
		dismiss: hypr.DismissNotify,
		cue:     emitCue,
	}
}

// ShowRecording signals that the microphone is open.
func (n *Notify) ShowRecording(ctx context.Context) {
	n.playCue(cueStart)
	n.show(ctx, iconInfo, persistentMS, colorRecording, n.texts.recording, "")
}

// ShowProcessing signals that the report is being extracted and sent.
func (n *Notify) ShowProcessing(ctx context.Context) {
	n.playCue(cueStop)
	n.show(ctx, iconInfo, persistentMS, colorProcessing, n.texts.processing, "")
}

// ShowSuccess shows the submitted report.
func (n *Notify) ShowSuccess(ctx context.Context, r report.ProblemReport) {
	n.playCue(cueSuccess)
	n.show(ctx, iconOK, successMS, colorSuccess, n.texts.success, r.Summary())
}

// ShowError shows a user-facing failure message.
func (n *Notify) ShowError(ctx context.Context, text string) {
	n.playCue(cueError)
	if strings.TrimSpace(text) == "" {
		text = n.texts.errorText
	}
	timeout := n.cfg.ErrorTimeoutMS
	if timeout <= 0 {
		timeout = 4000
	}
	n.show(ctx, iconError, timeout, colorError, n.texts.errorText, text)
}

// Hide dismisses the Hyprland notification. Desktop notifications expire on
// their own.
func (n *Notify) Hide(ctx context.Context) {
	if !n.cfg.Enable || n.desktopBackend() {
		return
	}
	n.run(ctx, n.dismiss)
}

func (n *Notify) show(ctx context.Context, icon int, timeoutMS int, color string, title string, body string) {
	if !n.cfg.Enable {
		return
	}
	if n.desktopBackend() {
		message := title
		if body != "" {
			message = body
		}
		if err := n.desktop(n.appName(), message); err != nil {
			n.log("desktop notification failed", err)
		}
		return
	}

	text := title
	if body != "" {
		text = title + ": " + strings.ReplaceAll(body, "\n", " | ")
	}
	n.run(ctx, func(ctx context.Context) error {
		return n.hyprctl(ctx, icon, timeoutMS, color, text)
	})
}

func (n *Notify) desktopBackend() bool {
	return !strings.EqualFold(strings.TrimSpace(n.cfg.Backend), "hypr")
}

func (n *Notify) appName() string {
	if name := strings.TrimSpace(n.cfg.AppName); name != "" {
		return name
	}
	return "segnala"
}

// run executes one hyprctl call with a bounded timeout.
func (n *Notify) run(ctx context.Context, fn func(context.Context) error) {
	runCtx, cancel := context.WithTimeout(ctx, 400*time.Millisecond)
	defer cancel()
	if err := fn(runCtx); err != nil {
		n.log("indicator dispatch failed", err)
	}
}

// playCue serializes cue playback and emits audio asynchronously.
func (n *Notify) playCue(kind cueKind) {
	if !n.cfg.SoundEnable {
		return
	}
	go func() {
		n.soundMu.Lock()
		defer n.soundMu.Unlock()
		if err := n.cue(kind); err != nil {
			n.log("indicator audio cue failed", err)
		}
	}()
}

func (n *Notify) log(message string, err error) {
	if n.logger == nil || err == nil {
		return
	}
	n.logger.Debug(message, "error", err.Error())
}
