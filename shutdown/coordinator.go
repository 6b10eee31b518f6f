package shutdown

import (
	"context"
	"os"
	"os/signal"
	"sort"
	"sync"
	"syscall"
	"time"
)

// Coordinator runs registered handlers in phase order when shutdown is
// triggered by a signal or an explicit call. Shutdown happens at most once;
// there is no restart-in-place.
type Coordinator struct {
	config Config

	mu       sync.Mutex
	handlers []registration

	once       sync.Once
	done       chan struct{}
	err        error
	signalChan chan os.Signal
}

// NewCoordinator creates a coordinator.
func NewCoordinator(config Config) *Coordinator {
	if config.Grace <= 0 {
		config.Grace = DefaultConfig().Grace
	}
	return &Coordinator{
		config:     config,
		done:       make(chan struct{}),
		signalChan: make(chan os.Signal, 1),
	}
}

// Register adds a handler for the given phase.
func (c *Coordinator) Register(name string, phase int, handler Handler) {
	c.mu.Lock()
	c.handlers = append(c.handlers, registration{name: name, phase: phase, handler: handler})
	c.mu.Unlock()
}

// RegisterFunc adds a function handler for the given phase.
func (c *Coordinator) RegisterFunc(name string, phase int, fn func(ctx context.Context) error) {
	c.Register(name, phase, HandlerFunc(fn))
}

// HandleSignals arranges for SIGTERM and SIGINT to trigger shutdown with
// the configured grace period. The watcher goroutine exits once shutdown
// has completed, whatever initiated it.
func (c *Coordinator) HandleSignals() {
	signal.Notify(c.signalChan, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		defer signal.Stop(c.signalChan)
		select {
		case sig := <-c.signalChan:
			if c.config.OnSignal != nil {
				c.config.OnSignal(sig)
			}
			_ = c.ShutdownWithGrace()
		case <-c.done:
		}
	}()
}

// Trigger initiates shutdown without a signal, with the configured grace
// period. Owners call it when their context is cancelled; the drain
// outcome is available from Err after Done closes.
func (c *Coordinator) Trigger() {
	go func() { _ = c.ShutdownWithGrace() }()
}

// ShutdownWithGrace runs Shutdown bounded by the configured grace period.
func (c *Coordinator) ShutdownWithGrace() error {
	ctx, cancel := context.WithTimeout(context.Background(), c.config.Grace)
	defer cancel()
	return c.Shutdown(ctx)
}

// Shutdown runs all handlers in phase order. Handlers in the same phase run
// concurrently; a failing handler never blocks the rest of the drain.
// Returns ErrAlreadyShutdown on later calls.
func (c *Coordinator) Shutdown(ctx context.Context) error {
	ran := false
	c.once.Do(func() {
		ran = true
		c.err = c.drain(ctx)
		close(c.done)
	})
	if !ran {
		return ErrAlreadyShutdown
	}
	return c.err
}

// Done is closed when shutdown has completed.
func (c *Coordinator) Done() <-chan struct{} {
	return c.done
}

// Err returns the shutdown outcome. Only valid after Done is closed.
func (c *Coordinator) Err() error {
	select {
	case <-c.done:
		return c.err
	default:
		return nil
	}
}

func (c *Coordinator) drain(ctx context.Context) error {
	c.mu.Lock()
	handlers := make([]registration, len(c.handlers))
	copy(handlers, c.handlers)
	c.mu.Unlock()

	sort.SliceStable(handlers, func(i, j int) bool {
		return handlers[i].phase < handlers[j].phase
	})

	var overall error
	for start := 0; start < len(handlers); {
		if ctx.Err() != nil {
			return ErrTimeout
		}

		end := start
		for end < len(handlers) && handlers[end].phase == handlers[start].phase {
			end++
		}

		if failed := c.runPhase(ctx, handlers[start:end]); failed && overall == nil {
			overall = ErrHandlerFailed
		}
		start = end
	}
	return overall
}

func (c *Coordinator) runPhase(ctx context.Context, group []registration) bool {
	var wg sync.WaitGroup
	var mu sync.Mutex
	failed := false

	for _, reg := range group {
		wg.Add(1)
		go func(reg registration) {
			defer wg.Done()

			start := time.Now()
			err := reg.handler.OnShutdown(ctx)

			if c.config.OnProgress != nil {
				c.config.OnProgress(reg.name, reg.phase, time.Since(start), err)
			}
			if err != nil {
				mu.Lock()
				failed = true
				mu.Unlock()
			}
		}(reg)
	}

	wg.Wait()
	return failed
}
