// Package cli parses segnala command-line arguments.
package cli

import (
	"errors"
	"fmt"
	"strings"
)

type Command string

const (
	CommandServe   Command = "serve"
	CommandToggle  Command = "toggle"
	CommandStart   Command = "start"
	CommandStop    Command = "stop"
	CommandRetry   Command = "retry"
	CommandNew     Command = "new"
	CommandStatus  Command = "status"
	CommandKey     Command = "key"
	CommandDevices Command = "devices"
	CommandDoctor  Command = "doctor"
	CommandVersion Command = "version"
	CommandHelp    Command = "help"
)

// commandArgs lists every command with the number of positional arguments
// it takes.
var commandArgs = map[Command]int{
	CommandServe:   0,
	CommandToggle:  0,
	CommandStart:   0,
	CommandStop:    0,
	CommandRetry:   0,
	CommandNew:     0,
	CommandStatus:  0,
	CommandKey:     1,
	CommandDevices: 0,
	CommandDoctor:  0,
	CommandVersion: 0,
	CommandHelp:    0,
}

// Forwarded reports whether the command is served by the running owner.
func (c Command) Forwarded() bool {
	switch c {
	case CommandToggle, CommandStart, CommandStop, CommandRetry, CommandNew, CommandStatus, CommandKey:
		return true
	default:
		return false
	}
}

type Parsed struct {
	Command    Command
	Arg        string
	ConfigPath string
	Verbose    bool
	JSON       bool
	ShowHelp   bool
}

func Parse(args []string) (Parsed, error) {
	parsed := Parsed{Command: CommandHelp, ShowHelp: true}
	var positional []string
	seenCommand := false

	for i := 0; i < len(args); i++ {
		arg := args[i]

		switch {
		case arg == "-h" || arg == "--help":
			parsed.ShowHelp = true
			parsed.Command = CommandHelp
		case arg == "--version":
			parsed.ShowHelp = false
			parsed.Command = CommandVersion
		case arg == "-v" || arg == "--verbose":
			parsed.Verbose = true
		case arg == "--json":
			parsed.JSON = true
		case arg == "--config":
			i++
			if i >= len(args) {
				return Parsed{}, errors.New("--config requires a path")
			}
			parsed.ConfigPath = args[i]
		case strings.HasPrefix(arg, "--config="):
			parsed.ConfigPath = strings.TrimPrefix(arg, "--config=")
		case arg != "-" && strings.HasPrefix(arg, "-"):
			return Parsed{}, fmt.Errorf("unknown flag: %s", arg)
		case !seenCommand:
			cmd := Command(arg)
			if _, ok := commandArgs[cmd]; !ok {
				return Parsed{}, fmt.Errorf("unknown command: %s", arg)
			}
			seenCommand = true
			parsed.Command = cmd
			parsed.ShowHelp = cmd == CommandHelp
		default:
			positional = append(positional, arg)
		}
	}

	want := commandArgs[parsed.Command]
	if len(positional) > want {
		return Parsed{}, fmt.Errorf("unexpected arguments after command %q", parsed.Command)
	}
	if len(positional) < want {
		return Parsed{}, fmt.Errorf("command %q requires an argument", parsed.Command)
	}
	if want == 1 {
		parsed.Arg = positional[0]
	}

	return parsed, nil
}

func HelpText(binaryName string) string {
	return fmt.Sprintf(`Usage:
  %[1]s [--config PATH] [--verbose] [--json] <command>

Owner:
  serve       Run the report workflow and listen for commands

Commands (sent to a running owner):
  toggle      Start recording, or stop and send the report
  start       Start recording a problem report
  stop        Stop recording and send the report
  retry       Clear an error and return to idle
  new         Clear a sent report and return to idle
  status      Print state, live transcript and last report
  key VALUE   Replace the Gemini API key for this session ("-" reads stdin)

Local:
  devices     List available input devices
  doctor      Run configuration and environment checks
  version     Print version information
  help        Show this help

Flags:
  --config PATH   Config file path (default: $XDG_CONFIG_HOME/segnala/config.yaml)
  -v, --verbose   Log at debug level
  --json          Print owner responses as JSON
  -h, --help      Show help
  --version       Show version
`, binaryName)
}
