package heartbeat

import (
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/edgewatch/edgewatch/metrics"
	"github.com/edgewatch/edgewatch/state"
)

// Common errors.
var (
	ErrAlreadyStarted = errors.New("heartbeat already started")
	ErrNotStarted     = errors.New("heartbeat not started")
	ErrInvalidConfig  = errors.New("invalid configuration")
)

// Metric names emitted each heartbeat.
const (
	MetricHeartbeat = "ContainerHeartbeat"
	MetricUptime    = "ContainerUptime"
)

// EmitterConfig configures a heartbeat emitter.
type EmitterConfig struct {
	// Store receives the last-heartbeat timestamp before each emission.
	Store *state.Store

	// Publisher receives the liveness and uptime datums.
	Publisher metrics.Publisher

	// Interval between heartbeats.
	// Default: 5 minutes
	Interval time.Duration

	// Logger receives per-emission log lines. Nil means the logrus
	// standard logger.
	Logger *logrus.Entry
}

// Validate checks the configuration.
func (c *EmitterConfig) Validate() error {
	if c.Store == nil {
		return ErrInvalidConfig
	}
	if c.Publisher == nil {
		return ErrInvalidConfig
	}
	return nil
}

// DefaultEmitterConfig returns configuration with sensible defaults.
func DefaultEmitterConfig() EmitterConfig {
	return EmitterConfig{
		Interval: 5 * time.Minute,
	}
}

// Datums builds the two data points one heartbeat emits: a constant
// liveness value and the uptime in seconds, both tagged with the agent's
// name and region.
func Datums(id state.Identity, now time.Time) []metrics.Datum {
	dims := []metrics.Dimension{
		{Name: "ContainerName", Value: id.Name},
		{Name: "Region", Value: id.Region},
	}
	return []metrics.Datum{
		{
			Name:       MetricHeartbeat,
			Value:      1,
			Unit:       metrics.UnitCount,
			Dimensions: dims,
			Timestamp:  now,
		},
		{
			Name:       MetricUptime,
			Value:      now.Sub(id.Start).Seconds(),
			Unit:       metrics.UnitSeconds,
			Dimensions: dims,
			Timestamp:  now,
		},
	}
}
