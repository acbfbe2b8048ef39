package cli

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseDefaultsToHelp(t *testing.T) {
	parsed, err := Parse(nil)
	require.NoError(t, err)
	require.True(t, parsed.ShowHelp)
	require.Equal(t, CommandHelp, parsed.Command)
}

func TestParseCommandWithConfig(t *testing.T) {
	parsed, err := Parse([]string{"--config", "/tmp/segnala.yaml", "doctor"})
	require.NoError(t, err)
	require.Equal(t, CommandDoctor, parsed.Command)
	require.Equal(t, "/tmp/segnala.yaml", parsed.ConfigPath)
	require.False(t, parsed.ShowHelp)
}

func TestParseArgMatrix(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		wantErr     string
		wantCmd     Command
		wantArg     string
		wantHelp    bool
		wantPath    string
		wantVerbose bool
		wantJSON    bool
	}{
		{name: "help short flag", args: []string{"-h"}, wantCmd: CommandHelp, wantHelp: true},
		{name: "help long flag", args: []string{"--help"}, wantCmd: CommandHelp, wantHelp: true},
		{name: "version flag", args: []string{"--version"}, wantCmd: CommandVersion},
		{name: "config after command", args: []string{"status", "--config", "/tmp/cfg"}, wantCmd: CommandStatus, wantPath: "/tmp/cfg"},
		{name: "config equals form", args: []string{"--config=/tmp/cfg", "serve"}, wantCmd: CommandServe, wantPath: "/tmp/cfg"},
		{name: "verbose serve", args: []string{"-v", "serve"}, wantCmd: CommandServe, wantVerbose: true},
		{name: "json status", args: []string{"status", "--json"}, wantCmd: CommandStatus, wantJSON: true},
		{name: "key with value", args: []string{"key", "AIza-test"}, wantCmd: CommandKey, wantArg: "AIza-test"},
		{name: "key from stdin", args: []string{"key", "-"}, wantCmd: CommandKey, wantArg: "-"},
		{name: "key without value", args: []string{"key"}, wantErr: "requires an argument"},
		{name: "missing config path", args: []string{"--config"}, wantErr: "requires a path"},
		{name: "unknown flag", args: []string{"--bogus"}, wantErr: "unknown flag"},
		{name: "unknown command", args: []string{"bogus"}, wantErr: "unknown command"},
		{name: "cancel is not a command", args: []string{"cancel"}, wantErr: "unknown command"},
		{name: "extra args after command", args: []string{"doctor", "extra"}, wantErr: "unexpected arguments"},
		{name: "retry command", args: []string{"retry"}, wantCmd: CommandRetry},
		{name: "new command", args: []string{"new"}, wantCmd: CommandNew},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			parsed, err := Parse(tc.args)
			if tc.wantErr != "" {
				require.Error(t, err)
				require.Contains(t, err.Error(), tc.wantErr)
				return
			}

			require.NoError(t, err)
			require.Equal(t, tc.wantCmd, parsed.Command)
			require.Equal(t, tc.wantArg, parsed.Arg)
			require.Equal(t, tc.wantHelp, parsed.ShowHelp)
			require.Equal(t, tc.wantPath, parsed.ConfigPath)
			require.Equal(t, tc.wantVerbose, parsed.Verbose)
			require.Equal(t, tc.wantJSON, parsed.JSON)
		})
	}
}

func TestForwardedCommands(t *testing.T) {
	for _, cmd := range []Command{CommandToggle, CommandStart, CommandStop, CommandRetry, CommandNew, CommandStatus, CommandKey} {
		require.True(t, cmd.Forwarded(), cmd)
	}
	for _, cmd := range []Command{CommandServe, CommandDevices, CommandDoctor, CommandVersion, CommandHelp} {
		require.False(t, cmd.Forwarded(), cmd)
	}
}

func TestHelpTextListsEveryCommand(t *testing.T) {
	text := HelpText("segnala")
	for cmd := range commandArgs {
		require.Contains(t, text, "  "+string(cmd), cmd)
	}
	require.Contains(t, text, "$XDG_CONFIG_HOME/segnala/config.yaml")
}
