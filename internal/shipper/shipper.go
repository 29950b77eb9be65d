// Package shipper delivers log lines to a fixed set of line-oriented TCP collectors.
//
// A Shipper keeps one logical connection per collector, queues lines while nothing is
// reachable, reconnects on a flat delay and fans every queued line out to every connected
// collector in order. All state is owned by a single event loop goroutine; callers talk to
// it through an unbounded mailbox so Log never blocks.
package shipper

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/juju/clock"

	"github.com/GabrielNunesIT/logbot/internal/config"
	"github.com/GabrielNunesIT/logbot/internal/logging"
	"github.com/GabrielNunesIT/logbot/internal/model"
)

// ErrInvalidCollector is returned by New for a collector without host or with a bad port.
var ErrInvalidCollector = errors.New("invalid collector")

// DialFunc opens a transport connection to a collector.
type DialFunc func(ctx context.Context, network, address string) (net.Conn, error)

// Option configures a Shipper.
type Option func(*Shipper)

// WithClock sets the clock driving the reconnect timer.
func WithClock(clk clock.Clock) Option {
	return func(s *Shipper) {
		s.clock = clk
	}
}

// WithDialer sets a custom dial function.
func WithDialer(dial DialFunc) Option {
	return func(s *Shipper) {
		s.dial = dial
	}
}

// Shipper is a multi-collector log shipper. Create it with New.
type Shipper struct {
	endpoints   []Endpoint
	reconnect   time.Duration
	dialTimeout time.Duration
	maxPending  int
	gate        GatePolicy
	writeBuffer int

	clock  clock.Clock
	dial   DialFunc
	logger logging.ILogger

	inbox     *mailbox
	done      chan struct{}
	closeOnce sync.Once
	final     snapshot

	// Everything below is owned by the event loop.
	ctx       context.Context
	cancel    context.CancelFunc
	states    []State
	gens      []uint64
	links     []*link
	pending   []string
	stats     Stats
	timer     clock.Timer
	overflown bool
	closed    bool
}

// New creates a shipper for the configured collectors and starts its event loop.
// No connection is attempted until Open or Log is called.
func New(cfg config.ShipperConfig, log logging.ILogger, opts ...Option) (*Shipper, error) {
	endpoints := make([]Endpoint, 0, len(cfg.Collectors))
	for i, c := range cfg.Collectors {
		if c.Host == "" || c.Port <= 0 || c.Port > 65535 {
			return nil, fmt.Errorf("collector %d (%s:%d): %w", i, c.Host, c.Port, ErrInvalidCollector)
		}
		endpoints = append(endpoints, Endpoint{Host: c.Host, Port: c.Port})
	}

	gate, err := ParseGatePolicy(cfg.GatePolicy)
	if err != nil {
		return nil, err
	}

	s := &Shipper{
		endpoints:   endpoints,
		reconnect:   cfg.ReconnectDelay(),
		dialTimeout: cfg.DialTimeout,
		maxPending:  cfg.MaxPending,
		gate:        gate,
		writeBuffer: cfg.WriteBuffer,
		clock:       clock.WallClock,
		logger:      log.SubLogger("Shipper"),
		inbox:       newMailbox(),
		done:        make(chan struct{}),
		states:      make([]State, len(endpoints)),
		gens:        make([]uint64, len(endpoints)),
		links:       make([]*link, len(endpoints)),
	}

	dialer := &net.Dialer{}
	s.dial = dialer.DialContext

	for _, opt := range opts {
		opt(s)
	}

	s.ctx, s.cancel = context.WithCancel(context.Background())
	go s.run()

	return s, nil
}

// Endpoints returns the collector set in configuration order.
func (s *Shipper) Endpoints() []Endpoint {
	return append([]Endpoint(nil), s.endpoints...)
}

// Open starts a connection attempt for every disconnected collector.
func (s *Shipper) Open() {
	s.inbox.post(openCmd{})
}

// Log formats the entry, queues it and tries to flush. It never blocks on I/O and never
// reports delivery failures.
func (s *Shipper) Log(entry *model.LogEntry) {
	s.LogLine(FormatLine(entry))
}

// LogText is Log for a plain text line stamped now.
func (s *Shipper) LogText(text string) {
	s.Log(model.NewTextEntry("", text))
}

// LogLine queues an already formatted line.
func (s *Shipper) LogLine(line string) {
	if !s.inbox.post(logCmd{line: line}) {
		s.logger.Debugf("shipper closed, discarding line: %s", line)
	}
}

// Close tears down every connection and stops reconnecting. Queued lines are not flushed.
// Calling Close more than once is safe.
func (s *Shipper) Close() error {
	s.closeOnce.Do(func() {
		s.inbox.post(closeCmd{})
	})
	<-s.done
	return nil
}

// Pending returns a copy of the lines waiting for a connected collector.
func (s *Shipper) Pending() []string {
	return s.query().pending
}

// States returns the connection state of every collector in configuration order.
func (s *Shipper) States() []State {
	return s.query().states
}

// Stats returns the loop counters.
func (s *Shipper) Stats() Stats {
	return s.query().stats
}

type snapshot struct {
	pending []string
	states  []State
	stats   Stats
}

func (s *Shipper) query() snapshot {
	reply := make(chan snapshot, 1)
	if s.inbox.post(queryCmd{reply: reply}) {
		select {
		case snap := <-reply:
			return snap
		case <-s.done:
		}
	}
	<-s.done
	return s.final
}

// commands handled by the event loop
type (
	command      any
	openCmd      struct{}
	reopenCmd    struct{}
	closeCmd     struct{}
	logCmd       struct{ line string }
	queryCmd     struct{ reply chan snapshot }
	connectedCmd struct {
		idx  int
		gen  uint64
		conn net.Conn
	}
	dialFailedCmd struct {
		idx int
		gen uint64
		err error
	}
	droppedCmd struct {
		idx int
		gen uint64
		err error
	}
	drainedCmd struct {
		idx int
		gen uint64
	}
)

func (s *Shipper) run() {
	defer close(s.done)

	for range s.inbox.wake {
		batch := s.inbox.drain()
		for i, cmd := range batch {
			if !s.handle(cmd) {
				s.final = s.snapshot()
				s.discard(batch[i+1:])
				s.discard(s.inbox.close())
				return
			}
		}
	}
}

// discard releases resources carried by commands that will never be handled.
func (s *Shipper) discard(cmds []command) {
	for _, cmd := range cmds {
		switch c := cmd.(type) {
		case connectedCmd:
			_ = c.conn.Close()
		case queryCmd:
			c.reply <- s.final
		}
	}
}

// handle processes one command; it returns false when the loop must stop.
func (s *Shipper) handle(cmd command) bool {
	switch c := cmd.(type) {
	case openCmd:
		s.open()
	case reopenCmd:
		s.timer = nil
		s.stats.Reopens++
		s.open()
		if s.anyIn(Disconnected) {
			// Gated by an outstanding attempt; try again later.
			s.scheduleReopen()
		}
	case logCmd:
		s.enqueue(c.line)
		if !s.anyIn(Connected) {
			s.open()
		}
		s.flush()
	case connectedCmd:
		s.onConnected(c)
	case dialFailedCmd:
		s.onDialFailed(c)
	case droppedCmd:
		s.onDropped(c)
	case drainedCmd:
		if c.gen == s.gens[c.idx] && s.states[c.idx] == Connected {
			s.flush()
		}
	case queryCmd:
		c.reply <- s.snapshot()
	case closeCmd:
		s.shutdown()
		return false
	}
	return true
}

func (s *Shipper) open() {
	if s.closed {
		return
	}
	s.logger.Debugf("open called: pending=%d", len(s.pending))

	if s.gate == GateGlobal && s.anyIn(Connecting) {
		s.logger.Debug("connection attempt outstanding, skipping open")
		return
	}

	for i, st := range s.states {
		if st != Disconnected {
			continue
		}
		s.dialEndpoint(i)
	}
}

func (s *Shipper) dialEndpoint(idx int) {
	s.states[idx] = Connecting
	s.gens[idx]++
	s.stats.Dials++

	gen := s.gens[idx]
	ep := s.endpoints[idx]
	s.logger.Infof("connecting to %s", ep)

	ctx, cancel := s.ctx, context.CancelFunc(func() {})
	if s.dialTimeout > 0 {
		ctx, cancel = context.WithTimeout(s.ctx, s.dialTimeout)
	}

	go func() {
		defer cancel()
		conn, err := s.dial(ctx, "tcp", ep.Address())
		if err != nil {
			s.inbox.post(dialFailedCmd{idx: idx, gen: gen, err: err})
			return
		}
		if !s.inbox.post(connectedCmd{idx: idx, gen: gen, conn: conn}) {
			_ = conn.Close()
		}
	}()
}

func (s *Shipper) onConnected(c connectedCmd) {
	if s.closed || c.gen != s.gens[c.idx] || s.states[c.idx] != Connecting {
		_ = c.conn.Close()
		return
	}

	l := newLink(c.idx, c.gen, c.conn, s.writeBuffer)
	s.links[c.idx] = l
	s.states[c.idx] = Connected
	l.start(s.inbox)

	s.logger.Infof("connected to %s", s.endpoints[c.idx])
	s.flush()
}

func (s *Shipper) onDialFailed(c dialFailedCmd) {
	if s.closed || c.gen != s.gens[c.idx] || s.states[c.idx] != Connecting {
		return
	}
	s.states[c.idx] = Disconnected
	s.logger.Warningf("connecting to %s failed, retrying in %s: %v", s.endpoints[c.idx], s.reconnect, c.err)
	s.scheduleReopen()
}

func (s *Shipper) onDropped(c droppedCmd) {
	if s.closed || c.gen != s.gens[c.idx] || s.states[c.idx] != Connected {
		return
	}
	if l := s.links[c.idx]; l != nil {
		l.close()
		s.links[c.idx] = nil
	}
	s.states[c.idx] = Disconnected
	s.logger.Warningf("remote side disconnected, reconnecting to %s in %s: %v", s.endpoints[c.idx], s.reconnect, c.err)
	s.scheduleReopen()
}

// scheduleReopen arms a single whole-shipper reopen; drops arriving while it is armed share it.
func (s *Shipper) scheduleReopen() {
	if s.closed || s.timer != nil {
		return
	}
	s.timer = s.clock.AfterFunc(s.reconnect, func() {
		s.inbox.post(reopenCmd{})
	})
}

func (s *Shipper) enqueue(line string) {
	s.stats.Queued++
	if s.maxPending > 0 && len(s.pending) >= s.maxPending {
		s.pending[0] = ""
		s.pending = s.pending[1:]
		s.stats.Dropped++
		if !s.overflown {
			s.overflown = true
			s.logger.Warningf("pending queue full (max=%d), dropping oldest lines", s.maxPending)
		}
	}
	s.pending = append(s.pending, line)
}

// flush fans the oldest queued lines out to every connected collector. A line leaves the
// queue only once every connected collector has room for it; otherwise flushing pauses
// until the slow writer drains.
func (s *Shipper) flush() {
	for len(s.pending) > 0 && s.anyIn(Connected) {
		for i, l := range s.links {
			if s.states[i] != Connected || l == nil {
				continue
			}
			if !l.reserve() {
				s.stats.Stalls++
				s.logger.Debugf("write buffer full for %s, holding %d lines", s.endpoints[i], len(s.pending))
				return
			}
		}

		line := s.pending[0]
		s.pending[0] = ""
		s.pending = s.pending[1:]

		s.logger.Debugf("shipping: %s", line)
		payload := []byte(line + "\n")
		for i, l := range s.links {
			if s.states[i] != Connected || l == nil {
				continue
			}
			l.send(payload)
		}
		s.stats.Flushed++
	}
	if len(s.pending) == 0 {
		s.pending = nil
		s.overflown = false
	}
}

func (s *Shipper) shutdown() {
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.cancel()
	for i, l := range s.links {
		if l != nil {
			l.close()
			s.links[i] = nil
		}
		s.states[i] = Disconnected
	}
	s.logger.Infof("shipper closed: pending=%d", len(s.pending))
}

func (s *Shipper) anyIn(state State) bool {
	for _, st := range s.states {
		if st == state {
			return true
		}
	}
	return false
}

func (s *Shipper) snapshot() snapshot {
	stats := s.stats
	stats.Pending = len(s.pending)
	for _, st := range s.states {
		if st == Connected {
			stats.Connected++
		}
	}
	return snapshot{
		pending: append([]string(nil), s.pending...),
		states:  append([]State(nil), s.states...),
		stats:   stats,
	}
}
