package httpapi

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/edgewatch/edgewatch/state"
)

// Exposition descriptors. Agent-level series carry the container name;
// target series add the target label.
var (
	heartbeatDesc = prometheus.NewDesc(
		"container_heartbeat",
		"Constant liveness signal; present while the agent is up.",
		[]string{"container_name"}, nil,
	)
	uptimeDesc = prometheus.NewDesc(
		"container_uptime_seconds",
		"Agent uptime in seconds.",
		[]string{"container_name"}, nil,
	)
	targetStatusDesc = prometheus.NewDesc(
		"target_status",
		"Target reachability from the last probe: 1 online, 0 offline.",
		[]string{"container_name", "target"}, nil,
	)
	targetResponseTimeDesc = prometheus.NewDesc(
		"target_response_time_ms",
		"Last probe latency in milliseconds; absent while offline.",
		[]string{"container_name", "target"}, nil,
	)
)

// collector renders the current snapshot on scrape. It holds no metric
// state of its own, so a scrape can never observe a half-applied cycle.
type collector struct {
	store *state.Store
}

func (c *collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- heartbeatDesc
	ch <- uptimeDesc
	ch <- targetStatusDesc
	ch <- targetResponseTimeDesc
}

func (c *collector) Collect(ch chan<- prometheus.Metric) {
	snap := c.store.Snapshot()
	name := snap.Identity.Name

	ch <- prometheus.MustNewConstMetric(heartbeatDesc, prometheus.GaugeValue, 1, name)
	ch <- prometheus.MustNewConstMetric(uptimeDesc, prometheus.GaugeValue,
		snap.Uptime(time.Now()).Seconds(), name)

	for target, ts := range snap.Targets {
		status := 0.0
		if ts.Online {
			status = 1
		}
		ch <- prometheus.MustNewConstMetric(targetStatusDesc, prometheus.GaugeValue, status, name, target)

		if ts.Online && ts.ResponseTime != nil {
			ch <- prometheus.MustNewConstMetric(targetResponseTimeDesc, prometheus.GaugeValue,
				*ts.ResponseTime, name, target)
		}
	}
}

var _ prometheus.Collector = (*collector)(nil)
