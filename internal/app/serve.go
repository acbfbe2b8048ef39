package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"golang.org/x/text/language"

	"github.com/rbright/segnala/internal/capture"
	"github.com/rbright/segnala/internal/config"
	"github.com/rbright/segnala/internal/extract"
	"github.com/rbright/segnala/internal/indicator"
	"github.com/rbright/segnala/internal/ipc"
	"github.com/rbright/segnala/internal/output"
	"github.com/rbright/segnala/internal/pipeline"
	"github.com/rbright/segnala/internal/submit"
	"github.com/rbright/segnala/internal/workflow"
)

// commandServe owns the socket and runs the workflow until ctx ends.
func (r Runner) commandServe(ctx context.Context, cfg config.Config, logger *slog.Logger) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	listener, err := ipc.Acquire(ctx, socketPath, ipc.AcquireOptions{
		ProbeTimeout: 180 * time.Millisecond,
		Retries:      8,
		OnStale: func(context.Context) {
			logger.Warn("removed stale socket", "path", socketPath)
		},
	})
	if err != nil {
		if errors.Is(err, ipc.ErrAlreadyRunning) {
			fmt.Fprintf(r.Stderr, "error: %v (socket %s)\n", err, socketPath)
			return 1
		}
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer func() {
		_ = listener.Close()
		_ = os.Remove(socketPath)
	}()

	controller, err := buildController(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("build workflow failed", "error", err.Error())
		return 1
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	controllerDone := make(chan struct{})
	go func() {
		defer close(controllerDone)
		controller.Run(runCtx)
	}()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- ipc.Serve(runCtx, listener, controller)
	}()

	logger.Info("owner listening", "socket", socketPath)
	fmt.Fprintf(r.Stdout, "segnala listening on %s\n", socketPath)

	exitCode := 0
	select {
	case <-ctx.Done():
		cancel()
		if err := <-serveErr; err != nil {
			fmt.Fprintf(r.Stderr, "error: ipc server failed: %v\n", err)
			exitCode = 1
		}
	case err := <-serveErr:
		cancel()
		if err != nil {
			fmt.Fprintf(r.Stderr, "error: ipc server failed: %v\n", err)
			exitCode = 1
		}
	}
	<-controllerDone

	logger.Info("owner stopped", "exit_code", exitCode)
	return exitCode
}

// buildController wires the workflow collaborators from config.
func buildController(ctx context.Context, cfg config.Config, logger *slog.Logger) (*workflow.Controller, error) {
	location, err := time.LoadLocation(strings.TrimSpace(cfg.Extract.Timezone))
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", cfg.Extract.Timezone, err)
	}
	categoryLanguage, err := language.Parse(strings.TrimSpace(cfg.Extract.CategoryLanguage))
	if err != nil {
		return nil, fmt.Errorf("parse category language %q: %w", cfg.Extract.CategoryLanguage, err)
	}

	cred := extract.NewCredential(cfg.Gemini.APIKey)
	extractor := extract.NewClient(cred, extract.Options{
		Model:            cfg.Gemini.Model,
		BaseURL:          cfg.Gemini.BaseURL,
		Timeout:          time.Duration(cfg.Gemini.TimeoutMS) * time.Millisecond,
		Location:         location,
		CategoryLanguage: categoryLanguage,
		Logger:           logger,
	})
	submitter := submit.NewClient(cfg.Webhook.URL, time.Duration(cfg.Webhook.TimeoutMS)*time.Millisecond, logger)

	deps := workflow.Deps{
		Capture:   selectCapture(ctx, cfg, logger),
		Extractor: extractor,
		Submitter: submitter,
		Keys:      cred,
		Indicator: indicator.New(cfg.Indicator, logger),
		Logger:    logger,
	}
	if publisher := output.NewPublisher(cfg.Output); publisher != nil {
		deps.Output = publisher
	}

	logger.Info("workflow ready",
		"credential", cred.Source(),
		"model", cfg.Gemini.Model,
		"capture_supported", deps.Capture.Supported() == nil,
	)
	return workflow.NewController(deps), nil
}

// selectCapture decides once, at startup, whether this host can record.
func selectCapture(ctx context.Context, cfg config.Config, logger *slog.Logger) capture.Capture {
	if strings.TrimSpace(cfg.Speech.Endpoint) == "" {
		return capture.Unsupported{Reason: "speech.endpoint is empty"}
	}
	if _, err := listDevices(ctx); err != nil {
		logger.Warn("audio server unavailable; recording disabled", "error", err.Error())
		return capture.Unsupported{Reason: "audio server unavailable"}
	}
	return capture.New(pipeline.NewPlatform(cfg, logger), logger)
}
