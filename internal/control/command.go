package control

import (
	"strings"
)

// CommandKind identifies a parsed operator command.
type CommandKind string

const (
	CmdQuit    CommandKind = "quit"
	CmdList    CommandKind = "list"
	CmdStop    CommandKind = "stop"
	CmdRefresh CommandKind = "refresh"
	CmdReload  CommandKind = "reload"
	CmdHelp    CommandKind = "help"
	CmdUnknown CommandKind = "unknown"
)

// Command is one parsed operator instruction.
type Command struct {
	Kind    CommandKind
	TopicID string // CmdStop only
	Raw     string
}

// Parse turns an input line into a command. It reports false for blank
// lines, which are ignored rather than rejected.
// Verbs are case-insensitive; topic ids are kept as typed.
func Parse(line string) (Command, bool) {
	raw := strings.TrimSpace(line)
	if raw == "" {
		return Command{}, false
	}

	verb, rest, _ := strings.Cut(raw, " ")
	rest = strings.TrimSpace(rest)
	cmd := Command{Kind: CmdUnknown, Raw: raw}

	switch strings.ToLower(verb) {
	case "quit", "exit":
		if rest == "" {
			cmd.Kind = CmdQuit
		}
	case "list":
		if rest == "" {
			cmd.Kind = CmdList
		}
	case "refresh":
		if rest == "" {
			cmd.Kind = CmdRefresh
		}
	case "reload":
		if rest == "" {
			cmd.Kind = CmdReload
		}
	case "help", "?":
		cmd.Kind = CmdHelp
	case "stop":
		if rest != "" {
			cmd.Kind = CmdStop
			cmd.TopicID = rest
		}
	}
	return cmd, true
}

// HelpText describes the interactive command surface.
const HelpText = `commands:
  list             show every tracked topic
  stop <topic_id>  terminate a worker or drop a pending topic
  refresh          run the topic filter now
  reload           re-read strategy defaults for future dispatches
  help             show this text
  quit | exit      stop the scheduler (workers keep running)`
