// Package state holds the agent's shared health state.
//
// The Store is the only mutable state shared across the agent's concurrent
// loops. The target monitor and heartbeat emitter are its writers; the HTTP
// surface is its reader. Mutations are atomic full-value replacements and
// Snapshot returns a deep copy consistent at a single instant, so readers
// never observe a torn update.
//
// # Usage
//
//	store := state.NewStore(state.Identity{
//	    Name:  "edge-1",
//	    Start: time.Now(),
//	})
//
//	store.UpdateTarget("db-1", state.TargetStatus{Online: true, ...})
//	store.UpdateHeartbeat(time.Now())
//
//	snap := store.Snapshot()
//	fmt.Println(snap.OnlineCount(), snap.Uptime(time.Now()))
package state
