package probe

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/edgewatch/edgewatch/config"
)

// Common errors. Probes never fail at check time; these surface only from
// construction.
var (
	ErrInvalidTarget = errors.New("invalid probe target")
)

// Result is the outcome of a single probe.
type Result struct {
	// Online reports whether the target answered within the timeout.
	Online bool

	// ResponseTime is the probe latency in milliseconds. Nil when the
	// target was offline.
	ResponseTime *float64
}

// Prober performs one bounded reachability check against one target.
// Network failure is expected and absorbed: a timeout, refused connection or
// unexpected HTTP status yields Online=false, never an error.
type Prober interface {
	// Check probes the target once. The per-target timeout is applied on
	// top of ctx; cancelling ctx aborts the probe early.
	Check(ctx context.Context) Result

	// Target returns the configuration the prober was built from.
	Target() config.Target
}

// New builds a prober for the target. Configuration errors (malformed host,
// port, protocol) are reported here, never at probe time. A zero target
// timeout falls back to defaultTimeout.
func New(t config.Target, defaultTimeout time.Duration) (Prober, error) {
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTarget, err)
	}
	if t.Timeout <= 0 {
		t.Timeout = defaultTimeout
	}
	if t.Timeout <= 0 {
		return nil, fmt.Errorf("%w: %s: no timeout configured", ErrInvalidTarget, t.Name)
	}

	switch t.Protocol {
	case config.ProtocolTCP:
		return newTCPProber(t), nil
	case config.ProtocolHTTP:
		return newHTTPProber(t)
	default:
		return nil, fmt.Errorf("%w: unknown protocol %q", ErrInvalidTarget, t.Protocol)
	}
}

func online(elapsed time.Duration) Result {
	ms := float64(elapsed) / float64(time.Millisecond)
	return Result{Online: true, ResponseTime: &ms}
}

func offline() Result {
	return Result{}
}
