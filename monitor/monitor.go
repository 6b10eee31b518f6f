package monitor

import (
	"errors"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/edgewatch/edgewatch/metrics"
	"github.com/edgewatch/edgewatch/probe"
	"github.com/edgewatch/edgewatch/state"
)

// Common errors.
var (
	ErrAlreadyStarted = errors.New("monitor already started")
	ErrNotStarted     = errors.New("monitor not started")
	ErrInvalidConfig  = errors.New("invalid configuration")
)

// Metric names emitted each probe cycle.
const (
	MetricTargetStatus       = "TargetStatus"
	MetricTargetResponseTime = "TargetResponseTime"
	MetricTotalOnline        = "TotalOnline"
	MetricTotalOffline       = "TotalOffline"
	MetricTotalDevices       = "TotalDevices"
)

// Config configures a target monitor.
type Config struct {
	// Store receives per-target status updates.
	Store *state.Store

	// Publisher receives per-target and summary datums after each cycle.
	Publisher metrics.Publisher

	// Probers is the fixed set of targets to check. Built once at
	// startup; an empty set is valid and disables the monitor loop.
	Probers []probe.Prober

	// Interval between probe cycles. If a cycle overruns the interval,
	// the next one starts after completion; cycles never overlap.
	// Default: 5 minutes
	Interval time.Duration

	// Logger receives per-cycle log lines. Nil means the logrus
	// standard logger.
	Logger *logrus.Entry
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Store == nil {
		return ErrInvalidConfig
	}
	if c.Publisher == nil {
		return ErrInvalidConfig
	}
	return nil
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Interval: 5 * time.Minute,
	}
}

// targetDatums builds the status datum, and the response-time datum when the
// target is online, for one probe outcome.
func targetDatums(id state.Identity, name string, port int, res probe.Result, now time.Time) []metrics.Datum {
	dims := []metrics.Dimension{
		{Name: "ContainerName", Value: id.Name},
		{Name: "TargetIP", Value: name},
		{Name: "TargetPort", Value: strconv.Itoa(port)},
	}

	value := 0.0
	if res.Online {
		value = 1
	}
	data := []metrics.Datum{{
		Name:       MetricTargetStatus,
		Value:      value,
		Unit:       metrics.UnitCount,
		Dimensions: dims,
		Timestamp:  now,
	}}

	if res.Online && res.ResponseTime != nil {
		data = append(data, metrics.Datum{
			Name:       MetricTargetResponseTime,
			Value:      *res.ResponseTime,
			Unit:       metrics.UnitMilliseconds,
			Dimensions: dims,
			Timestamp:  now,
		})
	}
	return data
}

// summaryDatums builds the per-cycle totals the fleet-level alarms watch.
func summaryDatums(id state.Identity, online, total int, now time.Time) []metrics.Datum {
	dims := []metrics.Dimension{
		{Name: "ContainerName", Value: id.Name},
	}
	mk := func(name string, value int) metrics.Datum {
		return metrics.Datum{
			Name:       name,
			Value:      float64(value),
			Unit:       metrics.UnitCount,
			Dimensions: dims,
			Timestamp:  now,
		}
	}
	return []metrics.Datum{
		mk(MetricTotalOnline, online),
		mk(MetricTotalOffline, total-online),
		mk(MetricTotalDevices, total),
	}
}
