package indicator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rbright/segnala/internal/config"
	"github.com/rbright/segnala/internal/report"
	"github.com/stretchr/testify/require"
)

type calls struct {
	mu    sync.Mutex
	lines []string
	cues  []cueKind
}

func (c *calls) add(line string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = append(c.lines, line)
}

func (c *calls) seen() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.lines...)
}

func newTestNotify(cfg config.IndicatorConfig) (*Notify, *calls) {
	rec := &calls{}
	n := New(cfg, nil)
	n.desktop = func(title string, message string) error {
		rec.add(fmt.Sprintf("desktop %s: %s", title, message))
		return nil
	}
	n.hyprctl = func(_ context.Context, icon int, timeoutMS int, color string, text string) error {
		rec.add(fmt.Sprintf("hypr %d %d %s %s", icon, timeoutMS, color, text))
		return nil
	}
	n.dismiss = func(context.Context) error {
		rec.add("hypr dismiss")
		return nil
	}
	n.cue = func(kind cueKind) error {
		rec.mu.Lock()
		defer rec.mu.Unlock()
		rec.cues = append(rec.cues, kind)
		return nil
	}
	return n, rec
}

var sampleReport = report.ProblemReport{
	Date:        "15/10/2026",
	ODL:         "ODL-55",
	Description: "Motore fermo",
	ProblemType: "Meccanico",
	Operator:    "Mario",
}

func TestDesktopBackendSendsNotifications(t *testing.T) {
	cfg := config.Default().Indicator
	cfg.SoundEnable = false

	n, rec := newTestNotify(cfg)
	n.ShowRecording(context.Background())
	n.ShowProcessing(context.Background())
	n.ShowSuccess(context.Background(), sampleReport)
	n.ShowError(context.Background(), "La chiave API non è valida o è scaduta. Inseriscine una nuova.")
	n.Hide(context.Background())

	require.Equal(t, []string{
		"desktop segnala: Registrazione in corso...",
		"desktop segnala: Elaborazione della segnalazione...",
		"desktop segnala: " + sampleReport.Summary(),
		"desktop segnala: La chiave API non è valida o è scaduta. Inseriscine una nuova.",
	}, rec.seen())
}

func TestHyprBackendDispatchesAndDismisses(t *testing.T) {
	cfg := config.Default().Indicator
	cfg.Backend = "hypr"
	cfg.SoundEnable = false
	cfg.ErrorTimeoutMS = 0

	n, rec := newTestNotify(cfg)
	n.ShowRecording(context.Background())
	n.ShowError(context.Background(), "")
	n.ShowSuccess(context.Background(), report.ProblemReport{ODL: "ODL-1"})
	n.Hide(context.Background())

	lines := rec.seen()
	require.Len(t, lines, 4)
	require.Equal(t, "hypr 1 300000 rgb(89b4fa) Registrazione in corso...", lines[0])
	require.Equal(t, "hypr 3 4000 rgb(f38ba8) Errore: Errore", lines[1])
	require.Contains(t, lines[2], "hypr 5 3000 rgb(a6e3a1) Segnalazione inviata: Data: Non specificato | ODL: ODL-1")
	require.Equal(t, "hypr dismiss", lines[3])
}

func TestDisabledIndicatorStaysSilent(t *testing.T) {
	cfg := config.Default().Indicator
	cfg.Enable = false
	cfg.SoundEnable = false

	n, rec := newTestNotify(cfg)
	n.ShowRecording(context.Background())
	n.ShowProcessing(context.Background())
	n.ShowError(context.Background(), "ignored")
	n.Hide(context.Background())

	require.Empty(t, rec.seen())
}

func TestConfiguredTextsOverrideDefaults(t *testing.T) {
	cfg := config.Default().Indicator
	cfg.TextRecording = "Recording"
	cfg.TextProcessing = " "

	got := resolveTexts(cfg)
	require.Equal(t, "Recording", got.recording)
	require.Equal(t, defaultTexts.processing, got.processing)
}

func TestCuesPlayInOrderWhenSoundEnabled(t *testing.T) {
	cfg := config.Default().Indicator
	cfg.Enable = false
	cfg.SoundEnable = true

	n, rec := newTestNotify(cfg)
	n.ShowRecording(context.Background())
	require.Eventually(t, func() bool {
		rec.mu.Lock()
		defer rec.mu.Unlock()
		return len(rec.cues) == 1
	}, time.Second, 5*time.Millisecond)

	n.ShowError(context.Background(), "x")
	require.Eventually(t, func() bool {
		rec.mu.Lock()
		defer rec.mu.Unlock()
		return len(rec.cues) == 2
	}, time.Second, 5*time.Millisecond)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.Equal(t, []cueKind{cueStart, cueError}, rec.cues)
}

func TestDispatchFailureIsOnlyLogged(t *testing.T) {
	cfg := config.Default().Indicator
	cfg.SoundEnable = false

	n, _ := newTestNotify(cfg)
	n.desktop = func(string, string) error { return errors.New("no dbus") }
	require.NotPanics(t, func() { n.ShowRecording(context.Background()) })
}
