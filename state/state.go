package state

import (
	"time"
)

// Identity describes this agent instance. It is fixed at startup and
// read-only thereafter.
type Identity struct {
	// Name is the container/agent name used in metric dimensions.
	Name string

	// RunID uniquely identifies this process run.
	RunID string

	// Region is the CloudWatch region, included as a metric dimension.
	Region string

	// Namespace is the CloudWatch namespace metrics are published under.
	Namespace string

	// Start is the process start time. Uptime is always recomputed from
	// it, never cached.
	Start time.Time
}

// TargetStatus is the most recent probe outcome for one target. Values are
// replaced whole each cycle; readers never see a partial update.
type TargetStatus struct {
	// Online reports whether the last probe succeeded.
	Online bool `json:"online"`

	// ResponseTime is the last probe latency in milliseconds.
	// Nil when the target was offline.
	ResponseTime *float64 `json:"response_time_ms"`

	// LastCheck is when the probe completed.
	LastCheck time.Time `json:"last_check"`
}

// Snapshot is a point-in-time, immutable copy of agent and target health.
// It is derived on demand and safe to use without further synchronization.
type Snapshot struct {
	Identity Identity

	// LastHeartbeat is zero until the first heartbeat is emitted.
	LastHeartbeat time.Time

	// Targets maps target name to its latest status. A configured target
	// that has not completed its first probe is absent from the map.
	Targets map[string]TargetStatus

	// TakenAt is when the snapshot was produced.
	TakenAt time.Time
}

// OnlineCount returns how many targets in the snapshot are online.
func (s *Snapshot) OnlineCount() int {
	n := 0
	for _, ts := range s.Targets {
		if ts.Online {
			n++
		}
	}
	return n
}

// Uptime returns the agent uptime at time now.
func (s *Snapshot) Uptime(now time.Time) time.Duration {
	return now.Sub(s.Identity.Start)
}
