// Package doctor runs readiness diagnostics for config, credentials, audio,
// and the speech endpoint.
package doctor

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"strings"

	"github.com/rbright/segnala/internal/audio"
	"github.com/rbright/segnala/internal/config"
	"github.com/rbright/segnala/internal/pipeline"
	"github.com/rbright/segnala/internal/speech"
)

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		fmt.Fprintf(&b, "[%s] %s: %s\n", status, check.Name, check.Message)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Run executes every check against a loaded config.
func Run(ctx context.Context, loaded config.Loaded) Report {
	cfg := loaded.Config
	checks := []Check{checkConfig(loaded)}

	checks = append(checks, checkAPIKey(cfg))
	checks = append(checks, checkWebhook(cfg))

	if cfg.Indicator.Enable {
		if strings.EqualFold(strings.TrimSpace(cfg.Indicator.Backend), "hypr") {
			checks = append(checks, checkBinary("hyprctl", "hypr indicator backend"))
		} else {
			checks = append(checks, checkEnv("DBUS_SESSION_BUS_ADDRESS", func(v string) bool {
				return strings.TrimSpace(v) != ""
			}, "session bus available for notifications", "DBUS_SESSION_BUS_ADDRESS is empty; desktop notifications will fail"))
		}
	}
	if len(cfg.Output.Command) > 0 {
		checks = append(checks, checkCommand(cfg.Output.Command, "output.command"))
	}

	checks = append(checks, checkAudioSelection(ctx, cfg))
	checks = append(checks, checkSpeechReady(ctx, cfg))

	return Report{Checks: checks}
}

func checkConfig(loaded config.Loaded) Check {
	message := fmt.Sprintf("loaded %q", loaded.Path)
	if !loaded.Exists {
		message = fmt.Sprintf("%q not found; using defaults", loaded.Path)
	}
	if n := len(loaded.Warnings); n > 0 {
		message = fmt.Sprintf("%s (%d warnings)", message, n)
	}
	return Check{Name: "config", Pass: true, Message: message}
}

func checkAPIKey(cfg config.Config) Check {
	if strings.TrimSpace(cfg.Gemini.APIKey) == "" {
		return Check{
			Name:    "gemini.api_key",
			Pass:    false,
			Message: fmt.Sprintf("not configured; set gemini.api_key or %s, or run `segnala key` after serve", config.APIKeyEnv),
		}
	}
	return Check{Name: "gemini.api_key", Pass: true, Message: "configured"}
}

func checkWebhook(cfg config.Config) Check {
	raw := strings.TrimSpace(cfg.Webhook.URL)
	if raw == "" {
		return Check{Name: "webhook.url", Pass: false, Message: "webhook.url is empty"}
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return Check{Name: "webhook.url", Pass: false, Message: fmt.Sprintf("invalid URL %q", raw)}
	}
	if u.Scheme != "https" {
		return Check{Name: "webhook.url", Pass: false, Message: "webhook must use https"}
	}
	return Check{Name: "webhook.url", Pass: true, Message: "https endpoint on " + u.Host}
}

// checkEnv validates an environment variable through a caller-supplied predicate.
func checkEnv(name string, predicate func(string) bool, okMsg, failMsg string) Check {
	if predicate(os.Getenv(name)) {
		return Check{Name: name, Pass: true, Message: okMsg}
	}
	return Check{Name: name, Pass: false, Message: failMsg}
}

// checkCommand validates that argv contains a runnable command.
func checkCommand(argv []string, name string) Check {
	if len(argv) == 0 {
		return Check{Name: name, Pass: false, Message: "command is empty"}
	}
	return checkBinary(argv[0], fmt.Sprintf("%s command is available", name))
}

// checkBinary validates that a binary exists in PATH.
func checkBinary(bin string, okMsg string) Check {
	path, err := exec.LookPath(bin)
	if err != nil {
		return Check{Name: bin, Pass: false, Message: fmt.Sprintf("binary not found in PATH: %s", bin)}
	}
	return Check{Name: bin, Pass: true, Message: fmt.Sprintf("found at %s (%s)", path, okMsg)}
}

// checkAudioSelection runs live device selection to surface fallback issues.
func checkAudioSelection(ctx context.Context, cfg config.Config) Check {
	selection, err := audio.SelectDevice(ctx, cfg.Audio.Input, cfg.Audio.Fallback)
	if err != nil {
		return Check{Name: "audio.device", Pass: false, Message: err.Error()}
	}
	message := fmt.Sprintf("selected %q", selection.Device.ID)
	if selection.Warning != "" {
		message = message + " (" + selection.Warning + ")"
	}
	return Check{Name: "audio.device", Pass: true, Message: message}
}

// checkSpeechReady dials the recognizer endpoint and waits for a usable
// connection.
func checkSpeechReady(ctx context.Context, cfg config.Config) Check {
	sc := pipeline.SpeechConfig(cfg)
	if err := speech.CheckReady(ctx, sc); err != nil {
		return Check{Name: "speech.ready", Pass: false, Message: err.Error()}
	}
	return Check{Name: "speech.ready", Pass: true, Message: "connected to " + sc.Endpoint}
}
