package testutil

import (
	"context"
	"net"
	"time"

	"github.com/elastic/go-elasticsearch/v8/esutil"
	"github.com/stretchr/testify/mock"
)

// TestingT is the subset of *testing.T the mock constructors need.
type TestingT interface {
	mock.TestingT
	Cleanup(func())
}

// WriteCloser is a mock io.WriteCloser.
type WriteCloser struct {
	mock.Mock
}

// NewWriteCloser creates a WriteCloser whose expectations are asserted on cleanup.
func NewWriteCloser(t TestingT) *WriteCloser {
	m := &WriteCloser{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *WriteCloser) Write(p []byte) (int, error) {
	args := m.Called(p)
	return args.Int(0), args.Error(1)
}

func (m *WriteCloser) Close() error {
	return m.Called().Error(0)
}

// BulkIndexer is a mock esutil.BulkIndexer.
type BulkIndexer struct {
	mock.Mock
}

// NewBulkIndexer creates a BulkIndexer whose expectations are asserted on cleanup.
func NewBulkIndexer(t TestingT) *BulkIndexer {
	m := &BulkIndexer{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *BulkIndexer) Add(ctx context.Context, item esutil.BulkIndexerItem) error {
	return m.Called(ctx, item).Error(0)
}

func (m *BulkIndexer) Close(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *BulkIndexer) Stats() esutil.BulkIndexerStats {
	stats, _ := m.Called().Get(0).(esutil.BulkIndexerStats)
	return stats
}

// Conn is a mock net.Conn.
type Conn struct {
	mock.Mock
}

// NewConn creates a Conn whose expectations are asserted on cleanup.
func NewConn(t TestingT) *Conn {
	m := &Conn{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *Conn) Read(b []byte) (int, error) {
	args := m.Called(b)
	return args.Int(0), args.Error(1)
}

func (m *Conn) Write(b []byte) (int, error) {
	args := m.Called(b)
	return args.Int(0), args.Error(1)
}

func (m *Conn) Close() error {
	return m.Called().Error(0)
}

func (m *Conn) LocalAddr() net.Addr {
	addr, _ := m.Called().Get(0).(net.Addr)
	return addr
}

func (m *Conn) RemoteAddr() net.Addr {
	addr, _ := m.Called().Get(0).(net.Addr)
	return addr
}

func (m *Conn) SetDeadline(t time.Time) error      { return nil }
func (m *Conn) SetReadDeadline(t time.Time) error  { return nil }
func (m *Conn) SetWriteDeadline(t time.Time) error { return nil }
