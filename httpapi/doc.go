// Package httpapi serves the agent's local read-only health surface.
//
// Two endpoints render the state store's current snapshot:
//
//   - GET /health: structured JSON with status, agent identity, uptime,
//     last heartbeat and the per-target status map.
//   - GET /metrics: Prometheus text exposition of the same values
//     (container_heartbeat, container_uptime_seconds, target_status,
//     target_response_time_ms).
//
// Handlers never touch the network beyond the local listener: they read a
// snapshot and render it, so the surface keeps answering while probes hang
// or the metrics sink is down. The surface is optional; when disabled in
// configuration no listener is started at all.
package httpapi
