package monitor

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/edgewatch/edgewatch/metrics"
	"github.com/edgewatch/edgewatch/probe"
	"github.com/edgewatch/edgewatch/state"
)

// Monitor probes the configured targets each cycle and is the sole writer
// of per-target state in the store.
type Monitor struct {
	store    *state.Store
	pub      metrics.Publisher
	probers  []probe.Prober
	interval time.Duration
	log      *logrus.Entry

	running atomic.Bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// New creates a target monitor.
func New(cfg Config) (*Monitor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultConfig().Interval
	}

	log := cfg.Logger
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	return &Monitor{
		store:    cfg.Store,
		pub:      cfg.Publisher,
		probers:  cfg.Probers,
		interval: interval,
		log:      log,
	}, nil
}

// Start begins the probe loop. The first cycle runs immediately. Returns
// ErrAlreadyStarted if running; a monitor with no targets starts but does
// nothing.
func (m *Monitor) Start(ctx context.Context) error {
	if m.running.Swap(true) {
		return ErrAlreadyStarted
	}

	if ctx == nil {
		ctx = context.Background()
	}

	m.stopCh = make(chan struct{})
	m.doneCh = make(chan struct{})

	go m.run(ctx)
	return nil
}

func (m *Monitor) run(ctx context.Context) {
	defer close(m.doneCh)

	if len(m.probers) == 0 {
		<-m.stopCh
		return
	}

	m.cycle(ctx)

	// Cycles run synchronously off the ticker: an overrunning cycle
	// swallows its missed ticks, so the next one starts right after
	// completion instead of overlapping.
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.running.Store(false)
			return
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.cycle(ctx)
		}
	}
}

// cycle probes every target concurrently, each bounded by its own timeout,
// then replaces the stored statuses and emits the cycle's datums. A hanging
// target only costs its own slot in the join; the others complete on their
// own clocks.
func (m *Monitor) cycle(ctx context.Context) {
	type outcome struct {
		res     probe.Result
		checked time.Time
	}

	outcomes := make([]outcome, len(m.probers))
	var wg sync.WaitGroup
	for i, p := range m.probers {
		wg.Add(1)
		go func(i int, p probe.Prober) {
			defer wg.Done()
			res := p.Check(ctx)
			outcomes[i] = outcome{res: res, checked: time.Now().UTC()}
		}(i, p)
	}
	wg.Wait()

	if ctx.Err() != nil {
		return
	}

	now := time.Now().UTC()
	online := 0
	data := make([]metrics.Datum, 0, 2*len(m.probers)+3)
	for i, p := range m.probers {
		target := p.Target()
		o := outcomes[i]
		if o.res.Online {
			online++
		}

		m.store.UpdateTarget(target.Name, state.TargetStatus{
			Online:       o.res.Online,
			ResponseTime: o.res.ResponseTime,
			LastCheck:    o.checked,
		})

		data = append(data, targetDatums(m.store.Identity(), target.Name, target.Port, o.res, now)...)
	}
	data = append(data, summaryDatums(m.store.Identity(), online, len(m.probers), now)...)

	if err := m.pub.Publish(ctx, data); err != nil {
		m.log.WithError(err).Debug("target metrics publish failed")
	}

	m.log.WithFields(logrus.Fields{
		"online": online,
		"total":  len(m.probers),
	}).Info("probe cycle complete")
}

// Stop stops the probe loop, waiting for an in-flight cycle to finish.
// Returns ErrNotStarted if not running.
func (m *Monitor) Stop() error {
	if !m.running.Swap(false) {
		return ErrNotStarted
	}
	close(m.stopCh)
	<-m.doneCh
	return nil
}
