package shipper

import (
	"io"
	"net"
	"sync"
	"sync/atomic"
)

// link owns one live collector connection. Writes happen on its own goroutine so the
// event loop never blocks on the network; remote close is detected by a reader goroutine.
type link struct {
	idx  int
	gen  uint64
	conn net.Conn
	out  chan []byte
	stop chan struct{}
	once sync.Once

	// blocked is set by the loop when it found out full; the writer clears it and
	// posts drainedCmd after the next successful write.
	blocked atomic.Bool
}

func newLink(idx int, gen uint64, conn net.Conn, buffer int) *link {
	if buffer <= 0 {
		buffer = 1
	}
	return &link{
		idx:  idx,
		gen:  gen,
		conn: conn,
		out:  make(chan []byte, buffer),
		stop: make(chan struct{}),
	}
}

// start launches the writer and the close detector. Failures are reported to inbox.
func (l *link) start(inbox *mailbox) {
	go l.writeLoop(inbox)
	go l.watchRemote(inbox)
}

// reserve reports whether out has room for one more line. When it does not, the link is
// marked blocked so the writer wakes the loop once it has made progress.
// Only the event loop sends on out, so a true result guarantees the next send succeeds.
func (l *link) reserve() bool {
	l.blocked.Store(true)
	if len(l.out) < cap(l.out) {
		l.blocked.Store(false)
		return true
	}
	return false
}

// send queues a line; call it only after reserve returned true.
func (l *link) send(line []byte) {
	l.out <- line
}

func (l *link) writeLoop(inbox *mailbox) {
	for {
		select {
		case <-l.stop:
			return
		case line := <-l.out:
			if _, err := l.conn.Write(line); err != nil {
				inbox.post(droppedCmd{idx: l.idx, gen: l.gen, err: err})
				return
			}
			if l.blocked.CompareAndSwap(true, false) {
				inbox.post(drainedCmd{idx: l.idx, gen: l.gen})
			}
		}
	}
}

// watchRemote reads and discards anything the collector sends until EOF or error.
func (l *link) watchRemote(inbox *mailbox) {
	_, err := io.Copy(io.Discard, l.conn)
	if err == nil {
		err = io.EOF
	}
	select {
	case <-l.stop:
	default:
		inbox.post(droppedCmd{idx: l.idx, gen: l.gen, err: err})
	}
}

// close tears the connection down; safe to call more than once.
func (l *link) close() {
	l.once.Do(func() {
		close(l.stop)
		_ = l.conn.Close()
	})
}
