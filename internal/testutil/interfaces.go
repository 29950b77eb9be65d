// Package testutil holds test doubles shared by package tests.
package testutil

import (
	"io"
	"net"

	"github.com/elastic/go-elasticsearch/v8/esutil"
)

// The interfaces below are the seams the mocks in this package implement.
var (
	_ io.WriteCloser     = (*WriteCloser)(nil)
	_ net.Conn           = (*Conn)(nil)
	_ esutil.BulkIndexer = (*BulkIndexer)(nil)
)
