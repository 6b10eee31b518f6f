package agent

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/edgewatch/edgewatch/config"
	"github.com/edgewatch/edgewatch/heartbeat"
	"github.com/edgewatch/edgewatch/httpapi"
	"github.com/edgewatch/edgewatch/logging"
	"github.com/edgewatch/edgewatch/metrics"
	"github.com/edgewatch/edgewatch/monitor"
	"github.com/edgewatch/edgewatch/probe"
	"github.com/edgewatch/edgewatch/state"
)

// Common errors.
var (
	ErrInvalidConfig  = errors.New("invalid configuration")
	ErrAlreadyRunning = errors.New("agent already running")
)

// Status is the agent lifecycle state. Transitions are one-directional:
// Starting → Running → Draining → Stopped. There is no restart-in-place.
type Status string

const (
	StatusStarting Status = "starting"
	StatusRunning  Status = "running"
	StatusDraining Status = "draining"
	StatusStopped  Status = "stopped"
)

// Options configures an agent.
type Options struct {
	// Config is the validated startup configuration.
	Config config.Config

	// Publisher ships metric batches. Required; main wires the
	// CloudWatch publisher, tests a memory one.
	Publisher metrics.Publisher

	// Logger is the root logger. Nil means a fresh logger at the
	// configured level.
	Logger *logrus.Logger

	// Grace bounds the drain on shutdown.
	// Default: 10 seconds
	Grace time.Duration
}

// Agent wires the heartbeat emitter, target monitor, state store and HTTP
// surface together and owns their lifecycle.
type Agent struct {
	cfg   config.Config
	log   *logrus.Logger
	grace time.Duration

	store   *state.Store
	pub     metrics.Publisher
	emitter *heartbeat.Emitter
	mon     *monitor.Monitor
	srv     *httpapi.Server // nil when the health endpoint is disabled

	status  atomic.Value // Status
	running atomic.Bool
}

// New constructs the agent. All configuration problems, including
// malformed probe targets, surface here; nothing fails for those reasons
// at runtime.
func New(opts Options) (*Agent, error) {
	if opts.Publisher == nil {
		return nil, fmt.Errorf("%w: missing publisher", ErrInvalidConfig)
	}
	if err := opts.Config.Validate(); err != nil {
		return nil, err
	}

	log := opts.Logger
	if log == nil {
		log = logging.New(opts.Config.LogLevel)
	}

	grace := opts.Grace
	if grace <= 0 {
		grace = 10 * time.Second
	}

	identity := state.Identity{
		Name:      opts.Config.ContainerName,
		RunID:     uuid.NewString(),
		Region:    opts.Config.AWSRegion,
		Namespace: opts.Config.Namespace,
		Start:     time.Now().UTC(),
	}
	store := state.NewStore(identity)

	probers := make([]probe.Prober, 0, len(opts.Config.Targets))
	for _, t := range opts.Config.Targets {
		p, err := probe.New(t, opts.Config.ProbeTimeout)
		if err != nil {
			return nil, err
		}
		probers = append(probers, p)
	}

	emitter, err := heartbeat.NewEmitter(heartbeat.EmitterConfig{
		Store:     store,
		Publisher: opts.Publisher,
		Interval:  opts.Config.HeartbeatInterval,
		Logger:    logging.Component(log, "heartbeat"),
	})
	if err != nil {
		return nil, err
	}

	mon, err := monitor.New(monitor.Config{
		Store:     store,
		Publisher: opts.Publisher,
		Probers:   probers,
		Interval:  opts.Config.ProbeInterval,
		Logger:    logging.Component(log, "monitor"),
	})
	if err != nil {
		return nil, err
	}

	a := &Agent{
		cfg:     opts.Config,
		log:     log,
		grace:   grace,
		store:   store,
		pub:     opts.Publisher,
		emitter: emitter,
		mon:     mon,
	}
	a.status.Store(StatusStarting)

	if opts.Config.EnableHealthEndpoint {
		srv, err := httpapi.NewServer(httpapi.Config{
			Store:   store,
			Port:    opts.Config.HealthPort,
			Healthy: func() bool { return a.Status() == StatusRunning },
			Logger:  logging.Component(log, "httpapi"),
		})
		if err != nil {
			return nil, err
		}
		a.srv = srv
	}

	return a, nil
}

// Status returns the current lifecycle state.
func (a *Agent) Status() Status {
	return a.status.Load().(Status)
}

// Store exposes the health store, mainly for tests.
func (a *Agent) Store() *state.Store {
	return a.store
}

// HealthAddr returns the HTTP surface's bound address, or "" when the
// endpoint is disabled or not yet started.
func (a *Agent) HealthAddr() string {
	if a.srv == nil {
		return ""
	}
	return a.srv.Addr()
}
