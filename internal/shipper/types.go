package shipper

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// Endpoint is a remote collector address. The endpoint set of a Shipper never changes.
type Endpoint struct {
	Host string
	Port int
}

// Address returns the dialable host:port form.
func (e Endpoint) Address() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

func (e Endpoint) String() string {
	return e.Address()
}

// ParseEndpoint parses "host:port".
func ParseEndpoint(s string) (Endpoint, error) {
	host, portStr, err := net.SplitHostPort(s)
	if err != nil {
		return Endpoint{}, fmt.Errorf("parsing collector %q: %w", s, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		return Endpoint{}, fmt.Errorf("parsing collector %q: invalid port %q", s, portStr)
	}
	if host == "" {
		return Endpoint{}, fmt.Errorf("parsing collector %q: empty host", s)
	}
	return Endpoint{Host: host, Port: port}, nil
}

// State is the connection state of one endpoint.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "unknown"
	}
}

// GatePolicy decides which endpoints Open may dial while an attempt is outstanding.
type GatePolicy int

const (
	// GateEndpoint skips only endpoints that are already connecting.
	GateEndpoint GatePolicy = iota
	// GateGlobal makes Open a no-op while any endpoint is connecting.
	GateGlobal
)

func (g GatePolicy) String() string {
	if g == GateGlobal {
		return "global"
	}
	return "endpoint"
}

// ParseGatePolicy maps the config value to a GatePolicy. Empty means GateEndpoint.
func ParseGatePolicy(s string) (GatePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "endpoint":
		return GateEndpoint, nil
	case "global":
		return GateGlobal, nil
	default:
		return GateEndpoint, fmt.Errorf("unknown gate policy: %s", s)
	}
}

// Stats are counters maintained by the event loop.
type Stats struct {
	// Queued counts lines accepted by Log.
	Queued uint64
	// Flushed counts lines removed from the pending queue by a flush.
	Flushed uint64
	// Dropped counts lines evicted because the pending queue was full.
	Dropped uint64
	// Stalls counts flushes paused because a connected collector had a full write buffer.
	Stalls uint64
	// Dials counts connection attempts.
	Dials uint64
	// Reopens counts scheduled reopen timers that fired.
	Reopens uint64
	// Pending is the current pending queue length.
	Pending int
	// Connected is the number of endpoints currently connected.
	Connected int
}
