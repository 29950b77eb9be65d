package irc

import (
	"strconv"
	"strings"
)

// Command is a bot command typed in a channel or query, e.g. "!seen bob".
// The concrete types below are the complete set; anything else is an UnknownCommand.
type Command interface {
	Name() string
}

// SeenCommand asks when a nick was last active.
type SeenCommand struct {
	Nick string
}

// SearchCommand runs a free text search over logged events.
type SearchCommand struct {
	Query string
}

// LastURLsCommand lists the most recently posted URLs.
type LastURLsCommand struct {
	Count int
}

// UnknownCommand is any "!word" the bot does not handle.
type UnknownCommand struct {
	Command string
	Args    string
}

func (SeenCommand) Name() string     { return "seen" }
func (SearchCommand) Name() string   { return "search" }
func (LastURLsCommand) Name() string { return "lasturls" }
func (c UnknownCommand) Name() string {
	return c.Command
}

// DefaultLastURLs is used when !lasturls has no usable count.
const DefaultLastURLs = 5

// ParseCommand parses a message text. It reports false for text that is not a command,
// and for arguments containing '|' which would be spliced into a search pipeline.
func ParseCommand(text string) (Command, bool) {
	if !strings.HasPrefix(text, "!") || len(text) < 2 {
		return nil, false
	}
	name, args, _ := strings.Cut(text[1:], " ")
	args = strings.TrimSpace(args)
	if name == "" || strings.Contains(args, "|") {
		return nil, false
	}

	switch strings.ToLower(name) {
	case "seen":
		nick, _, _ := strings.Cut(args, " ")
		return SeenCommand{Nick: nick}, true
	case "search":
		return SearchCommand{Query: args}, true
	case "lasturls":
		count := DefaultLastURLs
		if n, err := strconv.Atoi(args); err == nil && n > 0 {
			count = n
		}
		return LastURLsCommand{Count: count}, true
	default:
		return UnknownCommand{Command: name, Args: args}, true
	}
}
