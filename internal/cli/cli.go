// Package cli parses the storyvoice command line.
package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

type Command string

const (
	CommandRun       Command = "run"
	CommandStatus    Command = "status"
	CommandPlay      Command = "play"
	CommandAnswer    Command = "answer"
	CommandField     Command = "field"
	CommandRate      Command = "rate"
	CommandCheck     Command = "check"
	CommandRetry     Command = "retry"
	CommandNext      Command = "next"
	CommandRestart   Command = "restart"
	CommandStop      Command = "stop"
	CommandQuestions Command = "questions"
	CommandDevices   Command = "devices"
	CommandDoctor    Command = "doctor"
	CommandAssistant Command = "assistant"
	CommandVersion   Command = "version"
	CommandHelp      Command = "help"
)

// argCounts maps each command to its required positional argument span.
var argCounts = map[Command][2]int{
	CommandRun:       {0, 0},
	CommandStatus:    {0, 0},
	CommandPlay:      {0, 0},
	CommandAnswer:    {1, -1},
	CommandField:     {2, -1},
	CommandRate:      {1, 1},
	CommandCheck:     {0, 0},
	CommandRetry:     {0, 0},
	CommandNext:      {0, 0},
	CommandRestart:   {0, 0},
	CommandStop:      {0, 0},
	CommandQuestions: {0, 0},
	CommandDevices:   {0, 0},
	CommandDoctor:    {0, 0},
	CommandAssistant: {1, 1},
	CommandVersion:   {0, 0},
	CommandHelp:      {0, 0},
}

// Parsed is the fully resolved invocation.
type Parsed struct {
	Command    Command
	ConfigPath string
	Book       string
	Text       string
	Index      int
	Rating     int
	Room       string
	ShowHelp   bool
}

// Parse resolves flags, the command, and its positional arguments.
func Parse(args []string) (Parsed, error) {
	parsed := Parsed{Command: CommandHelp, ShowHelp: true}

	var command Command
	var positional []string
	haveCommand := false

	for i := 0; i < len(args); i++ {
		arg := args[i]

		switch arg {
		case "-h", "--help":
			return Parsed{Command: CommandHelp, ShowHelp: true}, nil
		case "--version":
			return Parsed{Command: CommandVersion}, nil
		case "--config":
			i++
			if i >= len(args) {
				return Parsed{}, errors.New("--config requires a path")
			}
			parsed.ConfigPath = args[i]
		case "--book":
			i++
			if i >= len(args) {
				return Parsed{}, errors.New("--book requires a name")
			}
			parsed.Book = args[i]
		default:
			if strings.HasPrefix(arg, "-") && !haveCommand {
				return Parsed{}, fmt.Errorf("unknown flag: %s", arg)
			}
			if !haveCommand {
				command = Command(arg)
				if _, ok := argCounts[command]; !ok {
					return Parsed{}, fmt.Errorf("unknown command: %s", arg)
				}
				haveCommand = true
				continue
			}
			positional = append(positional, arg)
		}
	}

	if !haveCommand {
		return parsed, nil
	}

	span := argCounts[command]
	if len(positional) < span[0] {
		return Parsed{}, fmt.Errorf("command %q requires at least %d argument(s)", command, span[0])
	}
	if span[1] >= 0 && len(positional) > span[1] {
		return Parsed{}, fmt.Errorf("unexpected arguments after command %q", command)
	}

	parsed.Command = command
	parsed.ShowHelp = command == CommandHelp

	switch command {
	case CommandAnswer:
		parsed.Text = strings.Join(positional, " ")
	case CommandField:
		index, err := strconv.Atoi(positional[0])
		if err != nil {
			return Parsed{}, fmt.Errorf("field index must be a number, got %q", positional[0])
		}
		parsed.Index = index
		parsed.Text = strings.Join(positional[1:], " ")
	case CommandRate:
		rating, err := strconv.Atoi(positional[0])
		if err != nil {
			return Parsed{}, fmt.Errorf("rating must be a number, got %q", positional[0])
		}
		parsed.Rating = rating
	case CommandAssistant:
		parsed.Room = positional[0]
	}

	return parsed, nil
}

func HelpText(binaryName string) string {
	return fmt.Sprintf(`Usage:
  %[1]s [--config PATH] [--book NAME] <command> [args]

Commands:
  run              Start the quiz session for the configured book
  status           Print the current question stage
  play             Replay the question prompt after a failed start
  answer TEXT      Set the typed answer text
  field N TEXT     Set entry N of a multi-part answer
  rate N           Set the star rating (1-5)
  check            Submit the typed answer for grading
  retry            Try the question again after an incorrect answer
  next             Move on to the next question
  restart          Restart the question after an error
  stop             Stop listening early, or stop the session when not listening
  questions        List the questions of the selected book
  devices          List available input devices
  doctor           Run configuration and environment checks
  assistant ROOM   Request voice assistant room credentials
  version          Print version information
  help             Show this help

Flags:
  --config PATH   Config file path (default: $XDG_CONFIG_HOME/storyvoice/config.conf)
  --book NAME     Book to quiz: goldilocks or peter (default from config)
  -h, --help      Show help
  --version       Show version
`, binaryName)
}
