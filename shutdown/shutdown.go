package shutdown

import (
	"context"
	"errors"
	"os"
	"time"
)

// Common errors.
var (
	// ErrAlreadyShutdown indicates shutdown was already initiated.
	ErrAlreadyShutdown = errors.New("shutdown already initiated")

	// ErrTimeout indicates the grace period expired with handlers still
	// running.
	ErrTimeout = errors.New("shutdown timeout exceeded")

	// ErrHandlerFailed indicates one or more handlers returned an error.
	ErrHandlerFailed = errors.New("one or more handlers failed")
)

// Phases order the agent's drain sequence: readiness flips first so
// health checks start failing, producers stop before the publisher, the
// publisher before the local listener, so in-flight health requests can
// complete last. Lower phases run first; handlers within a phase run
// concurrently.
const (
	PhaseQuiesce   = 0
	PhaseLoops     = 10
	PhasePublisher = 20
	PhaseListener  = 30
)

// Handler is implemented by components that need graceful shutdown. The
// context is cancelled when the grace period expires; handlers should stop
// accepting new work and finish what is in flight if time permits.
type Handler interface {
	OnShutdown(ctx context.Context) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context) error

// OnShutdown implements Handler.
func (f HandlerFunc) OnShutdown(ctx context.Context) error {
	return f(ctx)
}

// Config configures the coordinator.
type Config struct {
	// Grace bounds the whole drain. Default: 30 seconds.
	Grace time.Duration

	// OnSignal, when set, is called with the received signal before the
	// drain starts. Only fires for real signals, not Trigger.
	OnSignal func(sig os.Signal)

	// OnProgress, when set, is called as each handler completes. Used
	// for logging.
	OnProgress func(name string, phase int, d time.Duration, err error)
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Grace: 30 * time.Second,
	}
}

// registration holds one handler with its metadata.
type registration struct {
	name    string
	phase   int
	handler Handler
}
