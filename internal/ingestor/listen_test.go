package ingestor

import (
	"context"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/GabrielNunesIT/logbot/internal/config"
	"github.com/GabrielNunesIT/logbot/internal/logging"
	"github.com/GabrielNunesIT/logbot/internal/model"
)

// mockPacketConn is a testify mock of net.PacketConn.
type mockPacketConn struct {
	mock.Mock
}

func (m *mockPacketConn) ReadFrom(p []byte) (int, net.Addr, error) {
	args := m.Called(p)
	addr, _ := args.Get(1).(net.Addr)
	return args.Int(0), addr, args.Error(2)
}

func (m *mockPacketConn) WriteTo(p []byte, addr net.Addr) (int, error) {
	args := m.Called(p, addr)
	return args.Int(0), args.Error(1)
}

func (m *mockPacketConn) Close() error {
	return m.Called().Error(0)
}

func (m *mockPacketConn) LocalAddr() net.Addr {
	addr, _ := m.Called().Get(0).(net.Addr)
	return addr
}

func (m *mockPacketConn) SetDeadline(t time.Time) error      { return nil }
func (m *mockPacketConn) SetReadDeadline(t time.Time) error  { return nil }
func (m *mockPacketConn) SetWriteDeadline(t time.Time) error { return nil }

func TestListenIngestor_UDP(t *testing.T) {
	mockPC := &mockPacketConn{}

	blockRead := make(chan struct{})
	msgBytes := []byte("Mar 07 09:04:05 {\"action\":\"join\"}\n:bob!b@h JOIN #go\n")
	remote := &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 1234}

	// First call: return two lines in one datagram
	mockPC.On("ReadFrom", mock.Anything).Return(len(msgBytes), remote, nil).Run(func(args mock.Arguments) {
		p := args.Get(0).([]byte)
		copy(p, msgBytes)
	}).Once()

	// Then block until the test cancels
	mockPC.On("ReadFrom", mock.Anything).Run(func(args mock.Arguments) {
		select {
		case <-blockRead:
		default:
			close(blockRead)
		}
		<-time.After(50 * time.Millisecond)
	}).Return(0, nil, io.EOF)

	mockPC.On("LocalAddr").Return(&net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 6514})
	mockPC.On("Close").Return(nil)

	factory := func(network, address string) (net.PacketConn, error) {
		return mockPC, nil
	}

	cfg := config.ListenIngestorConfig{Enabled: true, Protocol: "udp", Address: "127.0.0.1:6514"}
	ingestor := NewListenIngestor(cfg, logging.Discard(), WithUDPListenerFactory(factory))
	assert.Equal(t, "listen", ingestor.Name())

	out := make(chan *model.LogEntry, 4)
	ctx, cancel := context.WithCancel(context.Background())
	startDone := make(chan error, 1)
	go func() {
		startDone <- ingestor.Start(ctx, out)
	}()

	var got []string
	for i := 0; i < 2; i++ {
		select {
		case entry := <-out:
			got = append(got, entry.Message)
			assert.Equal(t, "listen", entry.Source)
		case <-time.After(time.Second):
			cancel()
			t.Fatal("timeout waiting for log entry")
		}
	}
	assert.Equal(t, []string{`Mar 07 09:04:05 {"action":"join"}`, ":bob!b@h JOIN #go"}, got)

	select {
	case <-blockRead:
	case <-time.After(time.Second):
	}

	cancel()
	assert.ErrorIs(t, <-startDone, context.Canceled)
	mockPC.AssertCalled(t, "Close")
}

func TestListenIngestor_TCP(t *testing.T) {
	addrCh := make(chan net.Addr, 1)
	factory := func(network, address string) (net.Listener, error) {
		l, err := net.Listen(network, "127.0.0.1:0")
		if err == nil {
			addrCh <- l.Addr()
		}
		return l, err
	}

	cfg := config.ListenIngestorConfig{Enabled: true, Protocol: "tcp", Address: "ignored"}
	ingestor := NewListenIngestor(cfg, logging.Discard(), WithTCPListenerFactory(factory))

	out := make(chan *model.LogEntry, 4)
	ctx, cancel := context.WithCancel(context.Background())
	startDone := make(chan error, 1)
	go func() {
		startDone <- ingestor.Start(ctx, out)
	}()

	var addr net.Addr
	select {
	case addr = <-addrCh:
	case <-time.After(time.Second):
		t.Fatal("listener not started")
	}

	conn, err := net.Dial("tcp", addr.String())
	require.NoError(t, err)
	_, err = conn.Write([]byte("line 1\r\n\nline 2\n"))
	require.NoError(t, err)

	for _, want := range []string{"line 1", "line 2"} {
		select {
		case entry := <-out:
			assert.Equal(t, want, entry.Message)
		case <-time.After(time.Second):
			t.Fatalf("timeout waiting for %q", want)
		}
	}

	// An open client connection must not keep Start from returning.
	cancel()
	select {
	case err := <-startDone:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after cancel")
	}
	_ = conn.Close()

	_, open := <-out
	assert.False(t, open, "output channel should be closed")
}

func TestListenIngestor_Errors(t *testing.T) {
	ingestor := NewListenIngestor(config.ListenIngestorConfig{Protocol: "sctp"}, logging.Discard())
	err := ingestor.Start(context.Background(), make(chan *model.LogEntry, 1))
	assert.ErrorContains(t, err, "unsupported listen protocol")

	failing := func(network, address string) (net.Listener, error) {
		return nil, errors.New("address in use")
	}
	ingestor = NewListenIngestor(config.ListenIngestorConfig{Protocol: "tcp"}, logging.Discard(), WithTCPListenerFactory(failing))
	err = ingestor.Start(context.Background(), make(chan *model.LogEntry, 1))
	assert.ErrorContains(t, err, "listening on TCP")
}
