package ingestor

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strings"
	"sync"

	"github.com/GabrielNunesIT/logbot/internal/config"
	"github.com/GabrielNunesIT/logbot/internal/logging"
	"github.com/GabrielNunesIT/logbot/internal/model"
)

// UDPListenerFactory creates a UDP connection.
type UDPListenerFactory func(network, address string) (net.PacketConn, error)

// TCPListenerFactory creates a TCP listener.
type TCPListenerFactory func(network, address string) (net.Listener, error)

// ListenOption configures the ListenIngestor.
type ListenOption func(*ListenIngestor)

// WithUDPListenerFactory sets a custom UDP listener factory.
func WithUDPListenerFactory(f UDPListenerFactory) ListenOption {
	return func(l *ListenIngestor) {
		l.udpFactory = f
	}
}

// WithTCPListenerFactory sets a custom TCP listener factory.
func WithTCPListenerFactory(f TCPListenerFactory) ListenOption {
	return func(l *ListenIngestor) {
		l.tcpFactory = f
	}
}

// ListenIngestor receives newline framed lines over TCP or UDP. It speaks the same framing
// the shipper writes, so one logbot can relay into another.
type ListenIngestor struct {
	cfg        config.ListenIngestorConfig
	name       string
	udpFactory UDPListenerFactory
	tcpFactory TCPListenerFactory
	logger     logging.ILogger
}

// NewListenIngestor creates a new network line ingestor.
func NewListenIngestor(cfg config.ListenIngestorConfig, log logging.ILogger, opts ...ListenOption) *ListenIngestor {
	l := &ListenIngestor{
		cfg:    cfg,
		name:   "listen",
		logger: log.SubLogger("ListenIngestor"),
	}

	// Default UDP factory
	l.udpFactory = func(network, address string) (net.PacketConn, error) {
		addr, err := net.ResolveUDPAddr(network, address)
		if err != nil {
			return nil, err
		}
		return net.ListenUDP(network, addr)
	}

	// Default TCP factory
	l.tcpFactory = net.Listen

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Name returns the ingestor identifier.
func (l *ListenIngestor) Name() string {
	return l.name
}

// Start begins listening for lines.
func (l *ListenIngestor) Start(ctx context.Context, out chan<- *model.LogEntry) error {
	defer close(out)

	switch strings.ToLower(l.cfg.Protocol) {
	case "udp":
		return l.startUDP(ctx, out)
	case "tcp":
		return l.startTCP(ctx, out)
	default:
		return fmt.Errorf("unsupported listen protocol: %s", l.cfg.Protocol)
	}
}

// startUDP reads datagrams; a datagram may carry several lines.
func (l *ListenIngestor) startUDP(ctx context.Context, out chan<- *model.LogEntry) error {
	conn, err := l.udpFactory("udp", l.cfg.Address)
	if err != nil {
		return fmt.Errorf("listening on UDP: %w", err)
	}
	defer conn.Close()

	// Handle context cancellation
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	l.logger.Infof("listening on udp %s", conn.LocalAddr())

	buf := make([]byte, 65535) // Max UDP packet size
	for {
		n, _, err := conn.ReadFrom(buf)
		if err != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
				l.logger.Debugf("udp read error: %v", err)
				continue
			}
		}

		for _, line := range strings.Split(string(buf[:n]), "\n") {
			line = strings.TrimRight(line, "\r")
			if line == "" {
				continue
			}
			if !send(ctx, out, model.NewTextEntry(l.name, line)) {
				return ctx.Err()
			}
		}
	}
}

// startTCP accepts connections and reads lines from each until it closes.
func (l *ListenIngestor) startTCP(ctx context.Context, out chan<- *model.LogEntry) error {
	listener, err := l.tcpFactory("tcp", l.cfg.Address)
	if err != nil {
		return fmt.Errorf("listening on TCP: %w", err)
	}
	defer listener.Close()

	// Handle context cancellation
	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	l.logger.Infof("listening on tcp %s", listener.Addr())

	// Connection handlers must finish before out is closed.
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
				l.logger.Debugf("accept error: %v", err)
				continue
			}
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			l.handleTCPConnection(ctx, conn, out)
		}()
	}
}

// handleTCPConnection reads lines from a TCP connection.
func (l *ListenIngestor) handleTCPConnection(ctx context.Context, conn net.Conn, out chan<- *model.LogEntry) {
	defer conn.Close()

	// Unblock the scanner on shutdown.
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	remoteAddr := conn.RemoteAddr().String()
	l.logger.Debugf("connection from %s", remoteAddr)

	scanner := bufio.NewScanner(conn)

	// Increase buffer size for long lines
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}
		if !send(ctx, out, model.NewTextEntry(l.name, line)) {
			return
		}
	}

	l.logger.Debugf("connection from %s closed", remoteAddr)
}
