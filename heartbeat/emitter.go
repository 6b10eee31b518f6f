package heartbeat

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/edgewatch/edgewatch/metrics"
	"github.com/edgewatch/edgewatch/state"
)

// Emitter sends periodic liveness signals. It is the sole writer of
// agent-level state in the store; target state belongs to the monitor.
type Emitter struct {
	store    *state.Store
	pub      metrics.Publisher
	interval time.Duration
	log      *logrus.Entry

	running atomic.Bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewEmitter creates a heartbeat emitter.
func NewEmitter(cfg EmitterConfig) (*Emitter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultEmitterConfig().Interval
	}

	log := cfg.Logger
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	return &Emitter{
		store:    cfg.Store,
		pub:      cfg.Publisher,
		interval: interval,
		log:      log,
	}, nil
}

// Start begins emitting heartbeats at the configured interval. The first
// heartbeat is sent immediately. Returns ErrAlreadyStarted if running.
func (e *Emitter) Start(ctx context.Context) error {
	if e.running.Swap(true) {
		return ErrAlreadyStarted
	}

	if ctx == nil {
		ctx = context.Background()
	}

	e.stopCh = make(chan struct{})
	e.doneCh = make(chan struct{})

	go e.run(ctx)
	return nil
}

func (e *Emitter) run(ctx context.Context) {
	defer close(e.doneCh)

	e.emit(ctx)

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.running.Store(false)
			return
		case <-e.stopCh:
			return
		case <-ticker.C:
			e.emit(ctx)
		}
	}
}

// emit records the heartbeat locally, then hands the datums to the
// publisher. Local state is updated first so the health endpoint reflects
// liveness even when the sink is down; a dropped batch is already logged by
// the publisher and never stalls the loop.
func (e *Emitter) emit(ctx context.Context) {
	now := time.Now().UTC()
	e.store.UpdateHeartbeat(now)

	id := e.store.Identity()
	if err := e.pub.Publish(ctx, Datums(id, now)); err != nil {
		e.log.WithError(err).Debug("heartbeat publish failed")
		return
	}

	e.log.WithField("uptime_seconds", int64(now.Sub(id.Start).Seconds())).
		Info("heartbeat sent")
}

// Stop stops the emitter. Returns ErrNotStarted if not running.
func (e *Emitter) Stop() error {
	if !e.running.Swap(false) {
		return ErrNotStarted
	}
	close(e.stopCh)
	<-e.doneCh
	return nil
}
