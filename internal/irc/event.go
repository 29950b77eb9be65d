package irc

import (
	"sort"
	"strings"
)

// Actions carried in the "action" field of event records.
const (
	ActionRegistered  = "registered"
	ActionNames       = "names"
	ActionTopic       = "topic"
	ActionJoin        = "join"
	ActionPart        = "part"
	ActionQuit        = "quit"
	ActionKick        = "kick"
	ActionKill        = "kill"
	ActionMessage     = "message"
	ActionNotice      = "notice"
	ActionNick        = "nick"
	ActionInvite      = "invite"
	ActionAddMode     = "+mode"
	ActionDelMode     = "-mode"
	ActionCTCPVersion = "ctcp_version"
	ActionCTCPPing    = "ctcp_ping"
)

const ctcpDelim = "\x01"

// Event is one loggable channel activity.
type Event struct {
	Action     string
	Server     string
	Nick       string
	PrettyNick string
	Channel    string
	Channels   []string
	To         string
	Text       string
	Topic      string
	Reason     string
	By         string
	Mode       string
	Argument   string
	OldNick    string
	NewNick    string
	Names      string
	Command    Command
}

// Record returns the structured record shipped for the event. Empty fields are omitted.
func (e Event) Record() map[string]any {
	rec := map[string]any{
		"server": e.Server,
		"action": e.Action,
	}
	put := func(key, value string) {
		if value != "" {
			rec[key] = value
		}
	}

	put("nick", e.Nick)
	put("prettynick", e.PrettyNick)
	put("channel", e.Channel)
	put("to", e.To)
	put("text", e.Text)
	put("topic", e.Topic)
	put("mode", e.Mode)
	put("argument", e.Argument)
	put("oldnick", e.OldNick)
	put("newnick", e.NewNick)
	put("names", e.Names)

	switch e.Action {
	case ActionKick:
		put("kicked_by", e.By)
		put("reason", e.Reason)
	case ActionKill:
		put("message", e.Reason)
	default:
		put("by", e.By)
		put("reason", e.Reason)
	}

	if e.Channels != nil {
		rec["channels"] = append([]string(nil), e.Channels...)
	}
	if e.Command != nil {
		rec["command"] = e.Command.Name()
	}
	return rec
}

// Tracker converts messages from one server into events and keeps the names cache current.
// It is not safe for concurrent use.
type Tracker struct {
	server string
	names  *Names
}

// NewTracker creates a tracker for the given server name.
func NewTracker(server string) *Tracker {
	return &Tracker{server: server, names: NewNames()}
}

// Names exposes the channel membership cache.
func (t *Tracker) Names() *Names {
	return t.names
}

// Handle returns the events for a message; messages that are not channel activity yield none.
func (t *Tracker) Handle(msg Message) []Event {
	ev := Event{Server: t.server, Nick: msg.Nick}

	switch msg.Command {
	case "001":
		ev.Action = ActionRegistered
		ev.Nick = msg.Param(0)

	case "353":
		// RPL_NAMREPLY: <me> <type> <channel> :<names>
		channel := msg.Param(2)
		t.names.Set(channel, strings.Fields(msg.Trailing()))
		ev.Action = ActionNames
		ev.Nick = ""
		ev.Channel = channel
		ev.Names = t.names.String(channel)

	case "TOPIC":
		ev.Action = ActionTopic
		ev.Channel = msg.Param(0)
		ev.Topic = msg.Trailing()
		ev.PrettyNick = t.names.Pretty(ev.Channel, msg.Nick)

	case "JOIN":
		ev.Action = ActionJoin
		ev.Channel = msg.Param(0)
		t.names.Add(ev.Channel, msg.Nick, "")

	case "PART":
		ev.Action = ActionPart
		ev.Channel = msg.Param(0)
		if len(msg.Params) > 1 {
			ev.Reason = msg.Trailing()
		}
		t.names.Remove(ev.Channel, msg.Nick)

	case "QUIT":
		ev.Action = ActionQuit
		ev.Reason = msg.Trailing()
		ev.Channels = t.names.RemoveEverywhere(msg.Nick)

	case "KICK":
		ev.Action = ActionKick
		ev.Channel = msg.Param(0)
		ev.Nick = msg.Param(1)
		ev.By = msg.Nick
		if len(msg.Params) > 2 {
			ev.Reason = msg.Trailing()
		}
		t.names.Remove(ev.Channel, ev.Nick)

	case "KILL":
		ev.Action = ActionKill
		ev.Nick = msg.Param(0)
		ev.By = msg.Nick
		ev.Reason = msg.Param(1)
		ev.Channels = t.names.RemoveEverywhere(ev.Nick)

	case "PRIVMSG":
		ev.Action = ActionMessage
		ev.To = msg.Param(0)
		ev.Text = msg.Param(1)
		ev.PrettyNick = t.names.Pretty(ev.To, msg.Nick)
		if action, ok := ctcpAction(ev.Text); ok {
			ev.Action = action
		}
		if cmd, ok := ParseCommand(ev.Text); ok {
			ev.Command = cmd
		}

	case "NOTICE":
		ev.Action = ActionNotice
		ev.To = msg.Param(0)
		ev.Text = msg.Param(1)
		ev.PrettyNick = t.names.Pretty(ev.To, msg.Nick)

	case "NICK":
		ev.Action = ActionNick
		ev.Nick = ""
		ev.OldNick = msg.Nick
		ev.NewNick = msg.Param(0)
		ev.Channels = t.names.Rename(msg.Nick, ev.NewNick)

	case "INVITE":
		ev.Action = ActionInvite
		ev.Nick = msg.Nick
		ev.Channel = msg.Param(1)

	case "MODE":
		return t.modeEvents(msg)

	default:
		return nil
	}

	return []Event{ev}
}

// modes that take an argument in either direction; 'k' and 'l' only when set.
const (
	argModes    = "ovhbeIqa"
	setArgModes = "kl"
)

// modeEvents splits "MODE #chan +o-v bob alice" into one event per mode character.
func (t *Tracker) modeEvents(msg Message) []Event {
	channel := msg.Param(0)
	if !IsChannel(channel) || len(msg.Params) < 2 {
		return nil
	}

	args := msg.Params[2:]
	var events []Event
	adding := true
	for _, r := range msg.Params[1] {
		switch r {
		case '+':
			adding = true
			continue
		case '-':
			adding = false
			continue
		}

		ev := Event{
			Server:  t.server,
			Action:  ActionDelMode,
			Channel: channel,
			By:      msg.Nick,
			Mode:    string(r),
		}
		if adding {
			ev.Action = ActionAddMode
		}
		if strings.ContainsRune(argModes, r) || (adding && strings.ContainsRune(setArgModes, r)) {
			if len(args) > 0 {
				ev.Argument = args[0]
				args = args[1:]
			}
		}
		t.names.ApplyMode(channel, r, adding, ev.Argument)
		events = append(events, ev)
	}
	return events
}

// ctcpAction classifies a CTCP request. Anything but VERSION and PING, /me included,
// stays a plain message.
func ctcpAction(text string) (string, bool) {
	if !strings.HasPrefix(text, ctcpDelim) {
		return "", false
	}
	body := strings.TrimSuffix(strings.TrimPrefix(text, ctcpDelim), ctcpDelim)
	cmd, _, _ := strings.Cut(body, " ")
	switch strings.ToUpper(cmd) {
	case "VERSION":
		return ActionCTCPVersion, true
	case "PING":
		return ActionCTCPPing, true
	}
	return "", false
}

// Names caches channel membership with status prefixes ('@' op, '+' voice, ...).
type Names struct {
	channels map[string]map[string]string
}

// NewNames creates an empty cache.
func NewNames() *Names {
	return &Names{channels: make(map[string]map[string]string)}
}

const statusPrefixes = "~&@%+"

var modePrefix = map[rune]string{'q': "~", 'a': "&", 'o': "@", 'h': "%", 'v': "+"}

func channelKey(channel string) string {
	return strings.ToLower(channel)
}

// Set replaces a channel's membership from a NAMES reply.
func (n *Names) Set(channel string, entries []string) {
	members := make(map[string]string, len(entries))
	for _, entry := range entries {
		nick := strings.TrimLeft(entry, statusPrefixes)
		if nick == "" {
			continue
		}
		members[nick] = entry[:len(entry)-len(nick)]
	}
	n.channels[channelKey(channel)] = members
}

// Add records a nick in a channel.
func (n *Names) Add(channel, nick, prefix string) {
	key := channelKey(channel)
	if n.channels[key] == nil {
		n.channels[key] = make(map[string]string)
	}
	n.channels[key][nick] = prefix
}

// Remove drops a nick from a channel.
func (n *Names) Remove(channel, nick string) {
	delete(n.channels[channelKey(channel)], nick)
}

// RemoveEverywhere drops a nick from every channel and returns the channels it was in.
func (n *Names) RemoveEverywhere(nick string) []string {
	var channels []string
	for ch, members := range n.channels {
		if _, ok := members[nick]; ok {
			delete(members, nick)
			channels = append(channels, ch)
		}
	}
	sort.Strings(channels)
	return channels
}

// Rename moves a nick, keeping its prefixes, and returns the channels it was in.
func (n *Names) Rename(oldNick, newNick string) []string {
	var channels []string
	for ch, members := range n.channels {
		if prefix, ok := members[oldNick]; ok {
			delete(members, oldNick)
			members[newNick] = prefix
			channels = append(channels, ch)
		}
	}
	sort.Strings(channels)
	return channels
}

// ApplyMode updates a member prefix for status modes such as +o and -v.
func (n *Names) ApplyMode(channel string, mode rune, adding bool, nick string) {
	p, ok := modePrefix[mode]
	if !ok || nick == "" {
		return
	}
	members := n.channels[channelKey(channel)]
	current, present := members[nick]
	if !present {
		return
	}
	current = strings.ReplaceAll(current, p, "")
	if adding {
		current = p + current
	}
	members[nick] = current
}

// Pretty returns the nick with its status prefix in channel, e.g. "@bob".
func (n *Names) Pretty(channel, nick string) string {
	prefix := n.channels[channelKey(channel)][nick]
	if prefix == "" {
		return nick
	}
	return prefix[:1] + nick
}

// String renders a channel's members as "@op +voice user", sorted by nick.
func (n *Names) String(channel string) string {
	members := n.channels[channelKey(channel)]
	nicks := make([]string, 0, len(members))
	for nick := range members {
		nicks = append(nicks, nick)
	}
	sort.Strings(nicks)
	for i, nick := range nicks {
		nicks[i] = n.Pretty(channel, nick)
	}
	return strings.Join(nicks, " ")
}
