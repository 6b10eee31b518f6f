// Package heartbeat emits the agent's own liveness signal.
//
// # Overview
//
// On a fixed cadence the emitter records the heartbeat time in the shared
// state store, then publishes two data points: a constant liveness value
// (ContainerHeartbeat) and the current uptime (ContainerUptime), both
// dimensioned with the agent name and region. The remote sink's alarm
// engine turns missing heartbeats into pages; the agent itself carries no
// alerting logic.
//
// The heartbeat is independent of target probing: a slow probe cycle never
// delays an emission, and a failing metrics sink never stops the clock;
// dropped batches are absorbed by the publisher.
//
// # Usage
//
//	emitter, _ := heartbeat.NewEmitter(heartbeat.EmitterConfig{
//	    Store:     store,
//	    Publisher: pub,
//	    Interval:  5 * time.Minute,
//	})
//	emitter.Start(ctx)
//	defer emitter.Stop()
package heartbeat
