package agent

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/edgewatch/edgewatch/heartbeat"
	"github.com/edgewatch/edgewatch/logging"
	"github.com/edgewatch/edgewatch/monitor"
	"github.com/edgewatch/edgewatch/shutdown"
)

// Run starts the agent and blocks until the context is cancelled or a
// SIGTERM/SIGINT arrives, then drains within the grace period. A clean
// drain returns nil; a partial one returns the drain error. Either way
// the agent ends in StatusStopped.
func (a *Agent) Run(ctx context.Context) error {
	if !a.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	loopCtx, cancelLoops := context.WithCancel(context.Background())
	defer cancelLoops()

	drainLog := logging.Component(a.log, "shutdown")
	coord := shutdown.NewCoordinator(shutdown.Config{
		Grace: a.grace,
		OnSignal: func(sig os.Signal) {
			a.log.WithField("signal", sig.String()).Info("shutdown signal received")
		},
		OnProgress: func(name string, phase int, d time.Duration, err error) {
			entry := drainLog.WithFields(logrus.Fields{"handler": name, "elapsed": d})
			if err != nil {
				entry.WithError(err).Warn("shutdown handler failed")
				return
			}
			entry.Debug("shutdown handler done")
		},
	})

	if a.srv != nil {
		if err := a.srv.Start(); err != nil {
			a.running.Store(false)
			return err
		}
		a.log.WithField("addr", a.srv.Addr()).Info("health endpoint listening")
	}
	if err := a.emitter.Start(loopCtx); err != nil {
		a.stopListener()
		a.running.Store(false)
		return err
	}
	if err := a.mon.Start(loopCtx); err != nil {
		a.stopListener()
		_ = a.emitter.Stop()
		a.running.Store(false)
		return err
	}

	coord.RegisterFunc("readiness", shutdown.PhaseQuiesce, func(context.Context) error {
		a.status.Store(StatusDraining)
		return nil
	})
	coord.RegisterFunc("heartbeat", shutdown.PhaseLoops, func(ctx context.Context) error {
		return stopBounded(ctx, a.emitter.Stop, cancelLoops, heartbeat.ErrNotStarted)
	})
	coord.RegisterFunc("monitor", shutdown.PhaseLoops, func(ctx context.Context) error {
		return stopBounded(ctx, a.mon.Stop, cancelLoops, monitor.ErrNotStarted)
	})
	coord.RegisterFunc("publisher", shutdown.PhasePublisher, func(ctx context.Context) error {
		cancelLoops()
		return nil
	})
	if a.srv != nil {
		coord.RegisterFunc("listener", shutdown.PhaseListener, a.srv.Shutdown)
	}

	a.status.Store(StatusRunning)
	a.log.WithFields(logrus.Fields{
		"container": a.cfg.ContainerName,
		"targets":   len(a.cfg.Targets),
	}).Info("agent running")

	coord.HandleSignals()
	go func() {
		select {
		case <-ctx.Done():
			a.log.Info("context cancelled, shutting down")
			coord.Trigger()
		case <-coord.Done():
		}
	}()

	<-coord.Done()
	err := coord.Err()
	a.status.Store(StatusStopped)
	a.running.Store(false)

	if err != nil {
		a.log.WithError(err).Warn("drain incomplete")
		return err
	}
	a.log.Info("agent stopped")
	return nil
}

func (a *Agent) stopListener() {
	if a.srv == nil {
		return
	}
	_ = a.srv.Shutdown(context.Background())
}

// stopBounded runs stop, which waits for an in-flight cycle, but gives up
// when the drain context expires, cancelling the loop context so the cycle
// aborts its network calls and stop can return.
func stopBounded(ctx context.Context, stop func() error, cancel context.CancelFunc, notStarted error) error {
	done := make(chan error, 1)
	go func() { done <- stop() }()
	select {
	case err := <-done:
		return ignore(err, notStarted)
	case <-ctx.Done():
		cancel()
		return ignore(<-done, notStarted)
	}
}

// ignore maps the given sentinel to nil; a loop that already exited on
// context cancellation is a clean stop, not an error.
func ignore(err, sentinel error) error {
	if errors.Is(err, sentinel) {
		return nil
	}
	return err
}
