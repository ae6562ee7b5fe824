package trigger

import "strings"

// CommandKind names a chat command.
type CommandKind string

const (
	CommandHelp    CommandKind = "help"
	CommandHistory CommandKind = "history"
	CommandSearch  CommandKind = "search"
)

// Command is a parsed chat command. Query is set for CommandSearch only.
type Command struct {
	Kind  CommandKind
	Query string
}

var aliases = map[string]CommandKind{
	"help":    CommandHelp,
	"帮助":      CommandHelp,
	"history": CommandHistory,
	"历史":      CommandHistory,
	"search":  CommandSearch,
	"搜索":      CommandSearch,
}

// ParseCommand recognizes "!help", "!history" and "!search <query>", with
// "/" accepted in place of "!". A search without a query is not a command.
func ParseCommand(text string) (Command, bool) {
	text = strings.TrimSpace(text)
	if len(text) < 2 || (text[0] != '!' && text[0] != '/') {
		return Command{}, false
	}

	word, rest, _ := strings.Cut(text[1:], " ")
	kind, ok := aliases[strings.ToLower(word)]
	if !ok {
		return Command{}, false
	}
	rest = strings.TrimSpace(rest)

	switch kind {
	case CommandSearch:
		if rest == "" {
			return Command{}, false
		}
		return Command{Kind: kind, Query: rest}, true
	default:
		if rest != "" {
			return Command{}, false
		}
		return Command{Kind: kind}, true
	}
}
