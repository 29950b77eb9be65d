package shipper

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GabrielNunesIT/logbot/internal/model"
)

var stamp = time.Date(2026, 1, 18, 7, 3, 9, 0, time.UTC)

func TestFormatLine_Text(t *testing.T) {
	entry := &model.LogEntry{Timestamp: stamp, Message: "Connecting to IRC"}
	assert.Equal(t, "Jan 18 07:03:09 Connecting to IRC", FormatLine(entry))
}

func TestFormatLine_TextKeepsSingleLine(t *testing.T) {
	entry := &model.LogEntry{Timestamp: stamp, Message: "one\ntwo\r\nthree"}
	assert.Equal(t, "Jan 18 07:03:09 one two three", FormatLine(entry))
}

func TestFormatLine_Record(t *testing.T) {
	entry := &model.LogEntry{
		Timestamp: stamp,
		Fields: map[string]any{
			"server": "irc.libera.chat",
			"action": "message",
			"nick":   "bob",
			"text":   "<b>hi</b> & bye",
		},
	}

	line := FormatLine(entry)
	require.True(t, strings.HasPrefix(line, "Jan 18 07:03:09 {"), line)

	var body map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "Jan 18 07:03:09 ")), &body))
	assert.Equal(t, "message", body["action"])
	assert.Equal(t, "bob", body["nick"])
	assert.Equal(t, "Jan 18 07:03:09", body["timestamp"])
	assert.Contains(t, line, "<b>hi</b> & bye", "html must not be escaped")
}

func TestFormatLine_RecordTimestampOverwritten(t *testing.T) {
	entry := &model.LogEntry{
		Timestamp: stamp,
		Fields:    map[string]any{"action": "note", TimestampField: "yesterday"},
	}

	line := FormatLine(entry)
	assert.Contains(t, line, `"timestamp":"Jan 18 07:03:09"`)
	assert.NotContains(t, line, "yesterday")
	assert.Equal(t, "yesterday", entry.Fields[TimestampField], "entry must be left untouched")
}

func TestFormatLine_RecordFallsBackToKV(t *testing.T) {
	entry := &model.LogEntry{
		Timestamp: stamp,
		Fields: map[string]any{
			"action": "join",
			"nick":   "bob",
			"reason": "gone fishing",
			"bad":    make(chan int),
		},
	}

	line := FormatLine(entry)
	assert.True(t, strings.HasPrefix(line, "Jan 18 07:03:09 action=join bad="), line)
	assert.Contains(t, line, `nick=bob`)
	assert.Contains(t, line, `reason="gone fishing"`)
	assert.Contains(t, line, `timestamp="Jan 18 07:03:09"`)
}

func TestMailbox_Order(t *testing.T) {
	m := newMailbox()
	for i := 0; i < 3; i++ {
		assert.True(t, m.post(logCmd{line: string(rune('a' + i))}))
	}

	got := m.drain()
	require.Len(t, got, 3)
	assert.Equal(t, logCmd{line: "a"}, got[0])
	assert.Equal(t, logCmd{line: "c"}, got[2])
	assert.Empty(t, m.drain())

	assert.True(t, m.post(openCmd{}))
	assert.Equal(t, []command{openCmd{}}, m.close())
	assert.False(t, m.post(openCmd{}))
	assert.Empty(t, m.close())
}
