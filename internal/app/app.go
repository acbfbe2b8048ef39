// Package app dispatches parsed commands to local handlers or the running
// owner process.
package app

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/rbright/segnala/internal/audio"
	"github.com/rbright/segnala/internal/cli"
	"github.com/rbright/segnala/internal/config"
	"github.com/rbright/segnala/internal/doctor"
	"github.com/rbright/segnala/internal/ipc"
	"github.com/rbright/segnala/internal/logging"
	"github.com/rbright/segnala/internal/report"
	"github.com/rbright/segnala/internal/version"
)

const binaryName = "segnala"

// listDevices is replaced in tests.
var listDevices = audio.ListDevices

type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
	Stdin  io.Reader
	Logger *slog.Logger
}

func Execute(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	r := Runner{Stdout: stdout, Stderr: stderr, Stdin: stdin}
	return r.Execute(ctx, args)
}

func (r Runner) Execute(ctx context.Context, args []string) int {
	parsed, err := cli.Parse(args)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
		fmt.Fprint(r.Stderr, cli.HelpText(binaryName))
		return 2
	}

	if parsed.ShowHelp {
		fmt.Fprint(r.Stdout, cli.HelpText(binaryName))
		return 0
	}

	if parsed.Command == cli.CommandVersion {
		fmt.Fprintln(r.Stdout, version.String())
		return 0
	}

	logRuntime, err := logging.New(parsed.Verbose)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: setup logging: %v\n", err)
		return 1
	}
	defer func() { _ = logRuntime.Close() }()

	logger := r.Logger
	if logger == nil {
		logger = logRuntime.Logger
	}

	loaded, err := config.Load(parsed.ConfigPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("load config failed", "error", err.Error())
		return 1
	}
	if !parsed.Command.Forwarded() {
		for _, w := range loaded.Warnings {
			fmt.Fprintf(r.Stderr, "warning: %s\n", w.Message)
			logger.Warn("config warning", "message", w.Message)
		}
	}

	logger.Info("command start",
		"command", parsed.Command,
		"config", loaded.Path,
		"log", logRuntime.Path,
	)

	switch {
	case parsed.Command == cli.CommandServe:
		return r.commandServe(ctx, loaded.Config, logger)
	case parsed.Command == cli.CommandDoctor:
		result := doctor.Run(ctx, loaded)
		fmt.Fprintln(r.Stdout, result.String())
		if result.OK() {
			return 0
		}
		return 1
	case parsed.Command == cli.CommandDevices:
		return r.commandDevices(ctx)
	case parsed.Command.Forwarded():
		return r.forward(ctx, parsed, loaded.Config)
	default:
		fmt.Fprintf(r.Stderr, "error: unsupported command %q\n", parsed.Command)
		return 2
	}
}

func (r Runner) commandDevices(ctx context.Context) int {
	devices, err := listDevices(ctx)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if len(devices) == 0 {
		fmt.Fprintln(r.Stdout, "no audio devices found")
		return 1
	}

	for _, device := range devices {
		defaultMark := " "
		if device.Default {
			defaultMark = "*"
		}
		fmt.Fprintf(
			r.Stdout,
			"%s id=%s | description=%q | state=%s | available=%s | muted=%s\n",
			defaultMark,
			device.ID,
			device.Description,
			device.State,
			yesNo(device.Available),
			yesNo(device.Muted),
		)
	}
	return 0
}

// forward sends one command to the owner and prints its reply.
func (r Runner) forward(ctx context.Context, parsed cli.Parsed, cfg config.Config) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	value := parsed.Arg
	if parsed.Command == cli.CommandKey && value == "-" {
		value, err = readLine(r.Stdin)
		if err != nil {
			fmt.Fprintf(r.Stderr, "error: read key from stdin: %v\n", err)
			return 1
		}
	}

	resp, err := ipc.Send(ctx, socketPath, ipc.Request{Command: string(parsed.Command), Value: value}, forwardTimeout(cfg))
	if err != nil {
		if errors.Is(err, ipc.ErrNotRunning) {
			fmt.Fprintf(r.Stderr, "error: %v\n", ipc.ErrNotRunning)
			return 1
		}
		fmt.Fprintf(r.Stderr, "error: forward command %q: %v\n", parsed.Command, err)
		return 1
	}

	if parsed.JSON {
		encoded, err := json.MarshalIndent(resp, "", "  ")
		if err != nil {
			fmt.Fprintf(r.Stderr, "error: encode response: %v\n", err)
			return 1
		}
		fmt.Fprintln(r.Stdout, string(encoded))
	} else {
		printResponse(r.Stdout, resp)
	}

	if !resp.OK {
		if !parsed.JSON {
			fmt.Fprintf(r.Stderr, "error: %s\n", resp.Error)
		}
		return 1
	}
	return 0
}

// forwardTimeout leaves room for start, which dials the recognizer.
func forwardTimeout(cfg config.Config) time.Duration {
	return time.Duration(cfg.Speech.DialTimeoutMS)*time.Millisecond + 3*time.Second
}

func printResponse(w io.Writer, resp ipc.Response) {
	state := resp.State
	if state == "" {
		state = "idle"
	}
	fmt.Fprintln(w, state)
	if resp.Message != "" {
		fmt.Fprintf(w, "  %s\n", resp.Message)
	}
	if resp.Transcript != "" {
		fmt.Fprintf(w, "  trascrizione: %s\n", resp.Transcript)
	}
	if resp.Report != nil {
		printReport(w, *resp.Report)
	}
}

func printReport(w io.Writer, r report.ProblemReport) {
	for _, field := range r.Fields() {
		fmt.Fprintf(w, "  %s: %s\n", field.Label, field.Value)
	}
}

func readLine(in io.Reader) (string, error) {
	if in == nil {
		return "", errors.New("no stdin")
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return "", errors.New("empty key")
	}
	return line, nil
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
