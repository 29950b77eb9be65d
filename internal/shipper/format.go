package shipper

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/GabrielNunesIT/logbot/internal/model"
)

// TimestampLayout is the syslog style stamp prefixed to every line, e.g. "Mar 07 09:04:05".
const TimestampLayout = "Jan 02 15:04:05"

// TimestampField is the field injected into structured records.
const TimestampField = "timestamp"

// FormatLine renders an entry as a single line: "<timestamp> <text>" for text entries and
// "<timestamp> <json>" for records, which also receive a timestamp field.
// The entry itself is left untouched.
func FormatLine(entry *model.LogEntry) string {
	ts := entry.Timestamp.Format(TimestampLayout)
	if !entry.IsRecord() {
		return ts + " " + singleLine(entry.Message)
	}

	fields := make(map[string]any, len(entry.Fields)+1)
	for k, v := range entry.Fields {
		fields[k] = v
	}
	fields[TimestampField] = ts

	body, err := marshalCompact(fields)
	if err != nil {
		body = formatKV(fields)
	}
	return ts + " " + body
}

func marshalCompact(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

// formatKV renders fields as sorted key=value pairs, quoting values containing spaces.
func formatKV(fields map[string]any) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		v := singleLine(fmt.Sprintf("%v", fields[k]))
		if strings.ContainsAny(v, " \t\"") {
			v = fmt.Sprintf("%q", v)
		}
		parts = append(parts, k+"="+v)
	}
	return strings.Join(parts, " ")
}

// singleLine keeps the newline framing of the wire format intact.
func singleLine(s string) string {
	if !strings.ContainsAny(s, "\r\n") {
		return s
	}
	return strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(s)
}
