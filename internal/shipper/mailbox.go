package shipper

import (
	"sync"
)

// mailbox is an unbounded, ordered inbox for the event loop. Posting never blocks.
type mailbox struct {
	mu     sync.Mutex
	items  []command
	closed bool
	wake   chan struct{}
}

func newMailbox() *mailbox {
	return &mailbox{wake: make(chan struct{}, 1)}
}

// post appends a command and wakes the loop. It reports false once the mailbox is closed.
func (m *mailbox) post(c command) bool {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return false
	}
	m.items = append(m.items, c)
	m.mu.Unlock()

	select {
	case m.wake <- struct{}{}:
	default:
	}
	return true
}

// drain takes every queued command in posting order.
func (m *mailbox) drain() []command {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := m.items
	m.items = nil
	return items
}

// close rejects further posts and hands back whatever was still queued.
func (m *mailbox) close() []command {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	items := m.items
	m.items = nil
	return items
}
