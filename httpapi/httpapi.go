package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/edgewatch/edgewatch/state"
)

// Common errors.
var (
	ErrInvalidConfig  = errors.New("invalid configuration")
	ErrAlreadyStarted = errors.New("server already started")
)

// Config configures the local HTTP surface.
type Config struct {
	// Store supplies the health snapshot. Handlers only read snapshots;
	// they never trigger probes or heartbeats.
	Store *state.Store

	// Port to listen on (all interfaces). Zero picks an ephemeral port,
	// which tests use.
	Port int

	// Healthy reports whether the agent's loops are running. Nil means
	// always healthy.
	Healthy func() bool

	// Logger receives request failures. Nil means the logrus standard
	// logger.
	Logger *logrus.Entry
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Store == nil {
		return fmt.Errorf("%w: missing store", ErrInvalidConfig)
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrInvalidConfig, c.Port)
	}
	return nil
}

// Server is the read-only local HTTP surface: /health renders the current
// snapshot as JSON, /metrics as Prometheus exposition. Both answer from
// already-materialized state and stay up regardless of the remote sink's
// health.
type Server struct {
	store   *state.Store
	healthy func() bool
	log     *logrus.Entry

	srv *http.Server
	ln  net.Listener
}

// NewServer creates the HTTP surface.
func NewServer(cfg Config) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	healthy := cfg.Healthy
	if healthy == nil {
		healthy = func() bool { return true }
	}

	log := cfg.Logger
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	s := &Server{
		store:   cfg.Store,
		healthy: healthy,
		log:     log,
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(&collector{store: cfg.Store})

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	s.srv = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s, nil
}

// Start binds the listener and serves in the background. A bind failure is
// reported here; later serve errors only end up in the log.
func (s *Server) Start() error {
	if s.ln != nil {
		return ErrAlreadyStarted
	}

	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("health endpoint listen: %w", err)
	}
	s.ln = ln

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.WithError(err).Error("health endpoint failed")
		}
	}()
	return nil
}

// Addr returns the bound listen address. Only valid after Start.
func (s *Server) Addr() string {
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

// Shutdown stops the listener, letting in-flight requests complete until
// ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.ln == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

// healthResponse is the /health document.
type healthResponse struct {
	Status        string                        `json:"status"`
	AgentName     string                        `json:"agent_name"`
	RunID         string                        `json:"run_id"`
	UptimeSeconds float64                       `json:"uptime_seconds"`
	LastHeartbeat *time.Time                    `json:"last_heartbeat"`
	Targets       map[string]state.TargetStatus `json:"targets"`
	OnlineCount   int                           `json:"online_count"`
	TotalTargets  int                           `json:"total_targets"`
	Timestamp     time.Time                     `json:"timestamp"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	// A defective snapshot must degrade to an empty document, not take
	// down the listener.
	defer func() {
		if p := recover(); p != nil {
			s.log.WithField("panic", p).Error("health handler recovered")
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprint(w, "{}")
		}
	}()

	snap := s.store.Snapshot()
	now := time.Now().UTC()

	status := "healthy"
	if !s.healthy() {
		status = "unhealthy"
	}

	resp := healthResponse{
		Status:        status,
		AgentName:     snap.Identity.Name,
		RunID:         snap.Identity.RunID,
		UptimeSeconds: snap.Uptime(now).Seconds(),
		Targets:       snap.Targets,
		OnlineCount:   snap.OnlineCount(),
		TotalTargets:  len(snap.Targets),
		Timestamp:     now,
	}
	if !snap.LastHeartbeat.IsZero() {
		hb := snap.LastHeartbeat
		resp.LastHeartbeat = &hb
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.log.WithError(err).Warn("health response write failed")
	}
}
