// Package output hands submitted reports to local consumers.
package output

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/atotto/clipboard"
	"github.com/rbright/segnala/internal/config"
	"github.com/rbright/segnala/internal/report"
)

// Publisher copies the report summary to the clipboard and pipes the report
// JSON to an optional command.
type Publisher struct {
	clipboard bool
	command   []string
	write     func(string) error
}

// NewPublisher returns nil when no output is configured.
func NewPublisher(cfg config.OutputConfig) *Publisher {
	if !cfg.Clipboard && len(cfg.Command) == 0 {
		return nil
	}
	return &Publisher{
		clipboard: cfg.Clipboard,
		command:   cfg.Command,
		write:     clipboard.WriteAll,
	}
}

// Publish runs every configured output; one failing does not skip the other.
func (p *Publisher) Publish(ctx context.Context, r report.ProblemReport) error {
	var errs []error

	if p.clipboard {
		if err := p.write(r.Summary()); err != nil {
			errs = append(errs, fmt.Errorf("set clipboard: %w", err))
		}
	}

	if len(p.command) > 0 {
		payload, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("marshal report: %w", err)
		}
		cmdCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := runCommandWithInput(cmdCtx, p.command, string(payload)); err != nil {
			errs = append(errs, fmt.Errorf("output command: %w", err))
		}
	}

	return errors.Join(errs...)
}

// runCommandWithInput executes argv and writes input to its stdin.
func runCommandWithInput(ctx context.Context, argv []string, input string) error {
	if len(argv) == 0 {
		return fmt.Errorf("command argv cannot be empty")
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("open stdin for %s: %w", argv[0], err)
	}

	if err := cmd.Start(); err != nil {
		_ = stdin.Close()
		return fmt.Errorf("start command %s: %w", argv[0], err)
	}

	if input != "" {
		if _, err := stdin.Write([]byte(input)); err != nil {
			_ = stdin.Close()
			_ = cmd.Wait()
			return fmt.Errorf("write stdin for %s: %w", argv[0], err)
		}
	}
	_ = stdin.Close()

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("wait for %s: %w", argv[0], err)
	}
	return nil
}
