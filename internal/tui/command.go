package tui

import "strings"

// Command represents a parsed command.
type Command struct {
	Name string
	Args string
}

// Command names accepted in command mode. Aliases map to these.
const (
	CmdChats  = "chats"
	CmdActive = "active"
	CmdChat   = "chat"
	CmdSearch = "search"
	CmdFind   = "find"
	CmdUnread = "unread"
	CmdClose  = "close"
	CmdStatus = "status"
	CmdHelp   = "help"
	CmdQuit   = "quit"
)

var aliases = map[string]string{
	"c":      CmdChats,
	"convs":  CmdChats,
	"a":      CmdActive,
	"online": CmdActive,
	"o":      CmdChat,
	"open":   CmdChat,
	"s":      CmdSearch,
	"f":      CmdFind,
	"users":  CmdFind,
	"h":      CmdHelp,
	"q":      CmdQuit,
	"q!":     CmdQuit,
	"exit":   CmdQuit,
}

// ParseCommand parses a command string (without the leading ':').
func ParseCommand(input string) Command {
	input = strings.TrimSpace(input)
	parts := strings.SplitN(input, " ", 2)
	cmd := Command{Name: strings.ToLower(parts[0])}
	if full, ok := aliases[cmd.Name]; ok {
		cmd.Name = full
	}
	if len(parts) > 1 {
		cmd.Args = strings.TrimSpace(parts[1])
	}
	return cmd
}
