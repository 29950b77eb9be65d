package irc

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// TimeField holds an RFC3339 event time as written by search backends.
	TimeField = "_time"
	// StampField holds the "Jan 02 15:04:05" stamp added when a record is shipped.
	StampField = "timestamp"

	stampLayout = "Jan 02 15:04:05"
	clockLayout = "15:04:05"
	dayLayout   = "Jan 02 2006"
	nickWidth   = 9
)

// ErrNoRecord is returned by ParseRecordLine for lines without a JSON object.
var ErrNoRecord = errors.New("irc: no record in line")

// ParseRecordLine decodes a record from either a bare JSON object or a shipped line
// ("Jan 02 15:04:05 {...}").
func ParseRecordLine(line string) (map[string]any, error) {
	i := strings.IndexByte(line, '{')
	if i < 0 {
		return nil, ErrNoRecord
	}

	var rec map[string]any
	if err := json.Unmarshal([]byte(line[i:]), &rec); err != nil {
		return nil, fmt.Errorf("decoding record: %w", err)
	}
	if _, ok := rec[TimeField]; !ok && i > 0 {
		if _, ok := rec[StampField]; !ok {
			rec[StampField] = strings.TrimSpace(line[:i])
		}
	}
	return rec, nil
}

// RecordTime returns the event time of a record. Stamps carry no year; the current year is
// assumed for them.
func RecordTime(rec map[string]any) (time.Time, bool) {
	if s, ok := rec[TimeField].(string); ok {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return t, true
		}
	}
	if s, ok := rec[StampField].(string); ok {
		return stampTime(s, time.Now().Year())
	}
	return time.Time{}, false
}

// stampTime reads a yearless stamp as a time in year. Feb 29 only exists in leap years.
func stampTime(s string, year int) (time.Time, bool) {
	t, err := time.ParseInLocation("2006 "+stampLayout, fmt.Sprintf("%d %s", year, s), time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// FormatLine renders one record as an irssi style log line ending in a newline.
// Actions without a rendering yield "".
func FormatLine(rec map[string]any) string {
	t, _ := RecordTime(rec)
	clock := t.Format(clockLayout)
	field := func(key string) string {
		if v, ok := rec[key]; ok && v != nil {
			return fmt.Sprint(v)
		}
		return ""
	}
	nick := field("nick")

	switch field("action") {
	case ActionJoin:
		return fmt.Sprintf("%s -!- %s has joined %s\n", clock, nick, field("channel"))
	case ActionPart:
		if reason := field("reason"); reason != "" {
			return fmt.Sprintf("%s -!- %s has left %s [%s]\n", clock, nick, field("channel"), reason)
		}
		return fmt.Sprintf("%s -!- %s has left %s\n", clock, nick, field("channel"))
	case ActionQuit:
		return fmt.Sprintf("%s -!- %s has quit IRC (%s)\n", clock, nick, field("reason"))
	case ActionTopic:
		return fmt.Sprintf("%s -!- %s changed the topic of %s to: %s\n", clock, nick, field("channel"), field("topic"))
	case ActionNick:
		return fmt.Sprintf("%s -!- %*s is now known as %s\n", clock, nickWidth, field("oldnick"), field("newnick"))
	case ActionMessage:
		text := field("text")
		if body, ok := strings.CutPrefix(text, ctcpDelim+"ACTION"); ok {
			body = strings.TrimPrefix(strings.TrimSuffix(body, ctcpDelim), " ")
			return fmt.Sprintf("%s * %*s %s\n", clock, nickWidth, nick, body)
		}
		if body, ok := strings.CutPrefix(text, ctcpDelim); ok {
			return fmt.Sprintf("%s -%*s- CTCP %s\n", clock, nickWidth, nick, strings.TrimSuffix(body, ctcpDelim))
		}
		return fmt.Sprintf("%s <%*s> %s\n", clock, nickWidth, nick, text)
	case ActionNotice:
		return fmt.Sprintf("%s -%*s- %s\n", clock, nickWidth, nick, field("text"))
	}
	return ""
}

// FormatLog renders records in order, inserting a "Day changed to" line whenever the date
// differs from the previous record's.
func FormatLog(records []map[string]any) string {
	var b strings.Builder
	last := ""
	for i, rec := range records {
		t, _ := RecordTime(rec)
		day := t.Format(dayLayout)
		if i > 0 && day != last {
			b.WriteString("Day changed to " + day + "\n")
		}
		b.WriteString(FormatLine(rec))
		last = day
	}
	return b.String()
}
