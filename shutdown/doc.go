// Package shutdown coordinates the agent's graceful drain.
//
// Components register handlers against ordered phases: readiness flips
// first, then the heartbeat and probe loops stop, then the metric
// publisher's in-flight work is abandoned, then the HTTP listener closes
// after in-flight requests finish. A drain starts from a SIGTERM/SIGINT
// once HandleSignals is installed, or from Trigger.
// The whole drain is bounded by a grace period; handlers receive a context
// that is cancelled when it expires. Shutdown runs at most once; a stopped
// agent is restarted as a new process, never in place.
//
// # Usage
//
//	coord := shutdown.NewCoordinator(shutdown.Config{Grace: 10 * time.Second})
//	coord.RegisterFunc("heartbeat", shutdown.PhaseLoops, func(ctx context.Context) error {
//	    return emitter.Stop()
//	})
//	coord.HandleSignals()
//	<-coord.Done()
package shutdown
