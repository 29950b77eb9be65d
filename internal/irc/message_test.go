package irc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMessage(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		want    Message
		wantErr bool
	}{
		{
			name: "privmsg with trailing",
			line: ":bob!~bob@host.example PRIVMSG #go :hello there\r\n",
			want: Message{
				Prefix:  "bob!~bob@host.example",
				Nick:    "bob",
				User:    "~bob",
				Host:    "host.example",
				Command: "PRIVMSG",
				Params:  []string{"#go", "hello there"},
			},
		},
		{
			name: "server numeric",
			line: ":irc.libera.chat 001 logbot :Welcome",
			want: Message{
				Prefix:  "irc.libera.chat",
				Nick:    "irc.libera.chat",
				Command: "001",
				Params:  []string{"logbot", "Welcome"},
			},
		},
		{
			name: "tags and lowercase command",
			line: "@time=2026-03-07T09:04:05Z :alice!a@h join #go",
			want: Message{
				Prefix:  "alice!a@h",
				Nick:    "alice",
				User:    "a",
				Host:    "h",
				Command: "JOIN",
				Params:  []string{"#go"},
			},
		},
		{
			name: "no prefix",
			line: "PING :irc.libera.chat",
			want: Message{Command: "PING", Params: []string{"irc.libera.chat"}},
		},
		{
			name: "empty trailing",
			line: ":bob!b@h PART #go :",
			want: Message{Prefix: "bob!b@h", Nick: "bob", User: "b", Host: "h", Command: "PART", Params: []string{"#go", ""}},
		},
		{name: "blank", line: "   ", wantErr: true},
		{name: "prefix only", line: ":bob!b@h", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseMessage(tt.line)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrEmptyMessage)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMessage_Accessors(t *testing.T) {
	msg := Message{Params: []string{"#go", "hi"}}
	assert.Equal(t, "hi", msg.Trailing())
	assert.Equal(t, "#go", msg.Param(0))
	assert.Equal(t, "", msg.Param(5))
	assert.Equal(t, "", Message{}.Trailing())
}

func TestIsChannel(t *testing.T) {
	assert.True(t, IsChannel("#go"))
	assert.True(t, IsChannel("&local"))
	assert.False(t, IsChannel("bob"))
	assert.False(t, IsChannel(""))
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		text string
		want Command
		ok   bool
	}{
		{text: "!seen bob", want: SeenCommand{Nick: "bob"}, ok: true},
		{text: "!SEEN bob extra", want: SeenCommand{Nick: "bob"}, ok: true},
		{text: "!search error AND timeout", want: SearchCommand{Query: "error AND timeout"}, ok: true},
		{text: "!lasturls 3", want: LastURLsCommand{Count: 3}, ok: true},
		{text: "!lasturls", want: LastURLsCommand{Count: DefaultLastURLs}, ok: true},
		{text: "!lasturls nope", want: LastURLsCommand{Count: DefaultLastURLs}, ok: true},
		{text: "!dance now", want: UnknownCommand{Command: "dance", Args: "now"}, ok: true},
		{text: "!search foo | delete", ok: false},
		{text: "hello !seen bob", ok: false},
		{text: "!", ok: false},
		{text: "! seen", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, ok := ParseCommand(tt.text)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCommand_Names(t *testing.T) {
	assert.Equal(t, "seen", SeenCommand{}.Name())
	assert.Equal(t, "search", SearchCommand{}.Name())
	assert.Equal(t, "lasturls", LastURLsCommand{}.Name())
	assert.Equal(t, "dance", UnknownCommand{Command: "dance"}.Name())
}
