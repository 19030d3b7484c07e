package rexec

import "strings"

// CommandKind enumerates the shapes a negotiated SSH command can take.
// Design Notes §9 ("Side-channel commands as variants") calls for a tagged
// variant produced by a pure parser instead of nested string-prefix tests
// inside dispatch; ParseCommand is that parser.
type CommandKind int

const (
	// CommandShell means no exec command was given; the configured shell
	// is spawned with no extra arguments.
	CommandShell CommandKind = iota
	// CommandExec carries an ordinary command string to run under the
	// shell template after the configured ExecFlag token (e.g. "/C").
	CommandExec
	// CommandClipGet is "@clipget": send the host clipboard text, no
	// child process.
	CommandClipGet
	// CommandClipSet is "@clipset": drain the channel and replace the
	// host clipboard text.
	CommandClipSet
	// CommandShellOpen is "@<verb>": drain the channel as a path and
	// invoke the host shell-execute facility with Verb on it.
	CommandShellOpen
)

// Command is the parsed, dispatch-ready form of the string negotiated
// during the shell/exec channel request.
type Command struct {
	Kind CommandKind
	// Text holds the raw command string for CommandExec.
	Text string
	// Verb holds the verb for CommandShellOpen (e.g. "open", "edit",
	// "explore" -- the part of "@<verb>" after the "@").
	Verb string
}

// ParseCommand converts the negotiated command string (nil for a bare
// "shell" request) into a Command. It never fails: any string that is not
// one of the recognized "@"-prefixed forms is CommandExec verbatim,
// matching original_source.exec_command's fallthrough to Popen.
func ParseCommand(negotiated *string) Command {
	if negotiated == nil {
		return Command{Kind: CommandShell}
	}
	cmd := *negotiated
	switch {
	case cmd == "@clipget":
		return Command{Kind: CommandClipGet}
	case cmd == "@clipset":
		return Command{Kind: CommandClipSet}
	case strings.HasPrefix(cmd, "@"):
		return Command{Kind: CommandShellOpen, Verb: strings.TrimPrefix(cmd, "@")}
	default:
		return Command{Kind: CommandExec, Text: cmd}
	}
}
