package output

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rbright/segnala/internal/config"
	"github.com/rbright/segnala/internal/report"
	"github.com/stretchr/testify/require"
)

var sample = report.ProblemReport{
	Date:        "15/10/2026",
	ODL:         "ODL-55",
	Description: "Motore fermo sulla linea 3",
	ProblemType: "Meccanico",
	Operator:    "Mario",
}

func TestNewPublisherNilWithoutOutputs(t *testing.T) {
	require.Nil(t, NewPublisher(config.OutputConfig{}))
	require.NotNil(t, NewPublisher(config.OutputConfig{Clipboard: true}))
}

func TestPublishCopiesSummaryToClipboard(t *testing.T) {
	p := NewPublisher(config.OutputConfig{Clipboard: true})
	var copied string
	p.write = func(text string) error {
		copied = text
		return nil
	}

	require.NoError(t, p.Publish(context.Background(), sample))
	require.Equal(t, sample.Summary(), copied)
}

func TestPublishPipesReportJSONToCommand(t *testing.T) {
	scriptPath := writeStdinCaptureScript(t)
	outputPath := filepath.Join(t.TempDir(), "report.json")

	p := NewPublisher(config.OutputConfig{Command: []string{scriptPath, outputPath}})
	require.NoError(t, p.Publish(context.Background(), sample))

	data, err := os.ReadFile(outputPath)
	require.NoError(t, err)
	var got report.ProblemReport
	require.NoError(t, json.Unmarshal(data, &got))
	require.Equal(t, sample, got)
}

func TestPublishRunsCommandWhenClipboardFails(t *testing.T) {
	scriptPath := writeStdinCaptureScript(t)
	outputPath := filepath.Join(t.TempDir(), "report.json")

	p := NewPublisher(config.OutputConfig{Clipboard: true, Command: []string{scriptPath, outputPath}})
	p.write = func(string) error { return errors.New("no display") }

	err := p.Publish(context.Background(), sample)
	require.Error(t, err)
	require.Contains(t, err.Error(), "set clipboard")

	_, statErr := os.Stat(outputPath)
	require.NoError(t, statErr)
}

func TestPublishReportsCommandFailure(t *testing.T) {
	p := NewPublisher(config.OutputConfig{Command: []string{writeFailScript(t, "sheet offline")}})

	err := p.Publish(context.Background(), sample)
	require.Error(t, err)
	require.Contains(t, err.Error(), "output command")
}

func TestRunCommandWithInputRejectsEmptyArgv(t *testing.T) {
	err := runCommandWithInput(context.Background(), nil, "payload")
	require.Error(t, err)
	require.Contains(t, err.Error(), "argv cannot be empty")
}

func writeStdinCaptureScript(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "capture-stdin.sh")
	script := "#!/usr/bin/env bash\nset -euo pipefail\ncat > \"$1\"\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func writeFailScript(t *testing.T, message string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "fail.sh")
	script := "#!/usr/bin/env bash\nset -euo pipefail\necho \"" + message + "\" >&2\nexit 1\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}
