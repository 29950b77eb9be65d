// Package irc turns raw IRC protocol lines into the event records logbot ships, and renders
// shipped records back into a human readable channel log.
package irc

import (
	"errors"
	"strings"
)

// ErrEmptyMessage is returned for blank lines and lines without a command.
var ErrEmptyMessage = errors.New("irc: empty message")

// Message is one parsed protocol line.
type Message struct {
	Prefix  string
	Nick    string
	User    string
	Host    string
	Command string
	Params  []string
}

// Trailing returns the last parameter, or "".
func (m Message) Trailing() string {
	if len(m.Params) == 0 {
		return ""
	}
	return m.Params[len(m.Params)-1]
}

// Param returns the i-th parameter, or "".
func (m Message) Param(i int) string {
	if i < 0 || i >= len(m.Params) {
		return ""
	}
	return m.Params[i]
}

// ParseMessage parses "[@tags] [:prefix] COMMAND [params] [:trailing]".
func ParseMessage(line string) (Message, error) {
	line = strings.TrimRight(line, "\r\n")
	line = strings.TrimLeft(line, " ")

	if strings.HasPrefix(line, "@") {
		_, rest, ok := strings.Cut(line, " ")
		if !ok {
			return Message{}, ErrEmptyMessage
		}
		line = strings.TrimLeft(rest, " ")
	}

	var msg Message
	if strings.HasPrefix(line, ":") {
		prefix, rest, ok := strings.Cut(line[1:], " ")
		if !ok {
			return Message{}, ErrEmptyMessage
		}
		msg.Prefix = prefix
		msg.Nick, msg.User, msg.Host = splitPrefix(prefix)
		line = strings.TrimLeft(rest, " ")
	}

	for line != "" {
		if strings.HasPrefix(line, ":") && msg.Command != "" {
			msg.Params = append(msg.Params, line[1:])
			break
		}
		var word string
		word, line, _ = strings.Cut(line, " ")
		line = strings.TrimLeft(line, " ")
		if word == "" {
			continue
		}
		if msg.Command == "" {
			msg.Command = strings.ToUpper(word)
			continue
		}
		msg.Params = append(msg.Params, word)
	}

	if msg.Command == "" {
		return Message{}, ErrEmptyMessage
	}
	return msg, nil
}

// splitPrefix splits "nick!user@host". A server prefix has no '!' and yields only a nick.
func splitPrefix(prefix string) (nick, user, host string) {
	nick = prefix
	if i := strings.IndexByte(nick, '@'); i >= 0 {
		host = nick[i+1:]
		nick = nick[:i]
	}
	if i := strings.IndexByte(nick, '!'); i >= 0 {
		user = nick[i+1:]
		nick = nick[:i]
	}
	return nick, user, host
}

// IsChannel reports whether target names a channel.
func IsChannel(target string) bool {
	return target != "" && strings.ContainsRune("#&+!", rune(target[0]))
}
