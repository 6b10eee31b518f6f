// Package agent wires configuration, probing, heartbeats, metrics and
// the HTTP surface into a single long-running process.
//
// # Overview
//
// An Agent owns the full lifecycle: it builds the state store and probers
// from a validated config, starts the heartbeat emitter and target
// monitor, optionally serves /health and /metrics, and drains everything
// in order when asked to stop. Lifecycle states move one way, from
// StatusStarting through StatusRunning and StatusDraining to
// StatusStopped.
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//		// configuration errors are fatal at startup
//	}
//	a, err := agent.New(agent.Options{Config: cfg, Publisher: pub})
//	if err != nil {
//		// so are malformed targets
//	}
//	err = a.Run(ctx) // blocks until ctx cancel or SIGTERM/SIGINT
//
// Run handles SIGTERM and SIGINT itself; callers that want programmatic
// shutdown cancel the context they passed in.
package agent
