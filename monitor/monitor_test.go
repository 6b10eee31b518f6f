package monitor

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/edgewatch/edgewatch/config"
	"github.com/edgewatch/edgewatch/metrics"
	"github.com/edgewatch/edgewatch/probe"
	"github.com/edgewatch/edgewatch/state"
)

// stubProber returns a fixed result, optionally holding until its timeout.
type stubProber struct {
	target config.Target
	result probe.Result
	hang   bool
}

func (s *stubProber) Check(ctx context.Context) probe.Result {
	if s.hang {
		ctx, cancel := context.WithTimeout(ctx, s.target.Timeout)
		defer cancel()
		<-ctx.Done()
		return probe.Result{}
	}
	return s.result
}

func (s *stubProber) Target() config.Target {
	return s.target
}

func onlineProber(name string, rt float64) *stubProber {
	return &stubProber{
		target: config.Target{Name: name, Host: name, Port: 80, Protocol: config.ProtocolTCP, Timeout: time.Second},
		result: probe.Result{Online: true, ResponseTime: &rt},
	}
}

func offlineProber(name string) *stubProber {
	return &stubProber{
		target: config.Target{Name: name, Host: name, Port: 80, Protocol: config.ProtocolTCP, Timeout: time.Second},
	}
}

func hangingProber(name string, timeout time.Duration) *stubProber {
	return &stubProber{
		target: config.Target{Name: name, Host: name, Port: 80, Protocol: config.ProtocolTCP, Timeout: timeout},
		hang:   true,
	}
}

func testStore() *state.Store {
	return state.NewStore(state.Identity{
		Name:   "edge-1",
		Region: "us-east-1",
		Start:  time.Now(),
	})
}

func quietLogger() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return logrus.NewEntry(log)
}

func newTestMonitor(t *testing.T, store *state.Store, pub metrics.Publisher, probers []probe.Prober, interval time.Duration) *Monitor {
	t.Helper()
	mon, err := New(Config{
		Store:     store,
		Publisher: pub,
		Probers:   probers,
		Interval:  interval,
		Logger:    quietLogger(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return mon
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.After(timeout)
	for !cond() {
		select {
		case <-deadline:
			t.Fatal(msg)
		case <-time.After(2 * time.Millisecond):
		}
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid", Config{Store: testStore(), Publisher: metrics.NewMemoryPublisher()}, false},
		{"missing store", Config{Publisher: metrics.NewMemoryPublisher()}, true},
		{"missing publisher", Config{Store: testStore()}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestMonitor_FirstCycleCoversAllTargets(t *testing.T) {
	store := testStore()
	pub := metrics.NewMemoryPublisher()
	probers := []probe.Prober{
		onlineProber("a", 10),
		offlineProber("b"),
		onlineProber("c", 20),
	}

	mon := newTestMonitor(t, store, pub, probers, time.Hour)
	if err := mon.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer mon.Stop()

	waitFor(t, time.Second, func() bool {
		return len(store.Snapshot().Targets) == 3
	}, "first cycle did not populate all targets")

	snap := store.Snapshot()
	for _, name := range []string{"a", "b", "c"} {
		if _, ok := snap.Targets[name]; !ok {
			t.Errorf("target %q missing from store", name)
		}
	}
	if snap.OnlineCount() != 2 {
		t.Errorf("online = %d, want 2", snap.OnlineCount())
	}

	if ts := snap.Targets["b"]; ts.Online || ts.ResponseTime != nil {
		t.Errorf("offline target b = %+v", ts)
	}
	if ts := snap.Targets["a"]; !ts.Online || ts.ResponseTime == nil || *ts.ResponseTime != 10 {
		t.Errorf("online target a = %+v", ts)
	}
}

func TestMonitor_HangingTargetDoesNotDelayOthers(t *testing.T) {
	store := testStore()
	pub := metrics.NewMemoryPublisher()
	probers := []probe.Prober{
		hangingProber("slow", 500*time.Millisecond),
		onlineProber("fast", 5),
	}

	mon := newTestMonitor(t, store, pub, probers, time.Hour)
	start := time.Now()
	if err := mon.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer mon.Stop()

	waitFor(t, 2*time.Second, func() bool {
		_, ok := store.Snapshot().Targets["fast"]
		return ok
	}, "fast target not updated")

	// The fast target lands only when the cycle joins, so the bound is
	// the slow target's own timeout, not an unbounded hang.
	if elapsed := time.Since(start); elapsed > 1500*time.Millisecond {
		t.Errorf("fast target delayed %v beyond the slow target's timeout", elapsed)
	}

	snap := store.Snapshot()
	if ts := snap.Targets["slow"]; ts.Online {
		t.Error("hanging target reported online")
	}
	if ts := snap.Targets["fast"]; !ts.Online {
		t.Error("fast target reported offline")
	}
}

func TestMonitor_EmitsCycleDatums(t *testing.T) {
	store := testStore()
	pub := metrics.NewMemoryPublisher()
	probers := []probe.Prober{
		onlineProber("db-1", 45.2),
		offlineProber("db-2"),
	}

	mon := newTestMonitor(t, store, pub, probers, time.Hour)
	if err := mon.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer mon.Stop()

	waitFor(t, time.Second, func() bool {
		return len(pub.Batches()) > 0
	}, "no metric batch published")

	byName := map[string][]metrics.Datum{}
	for _, d := range pub.All() {
		byName[d.Name] = append(byName[d.Name], d)
	}

	// Two status datums, one response time (only the online target).
	if got := len(byName[MetricTargetStatus]); got != 2 {
		t.Errorf("TargetStatus datums = %d, want 2", got)
	}
	rts := byName[MetricTargetResponseTime]
	if len(rts) != 1 {
		t.Fatalf("TargetResponseTime datums = %d, want 1", len(rts))
	}
	if rts[0].Value != 45.2 || rts[0].Unit != metrics.UnitMilliseconds {
		t.Errorf("response time datum = %+v", rts[0])
	}

	checkSummary := func(name string, want float64) {
		ds := byName[name]
		if len(ds) != 1 {
			t.Fatalf("%s datums = %d, want 1", name, len(ds))
		}
		if ds[0].Value != want {
			t.Errorf("%s = %v, want %v", name, ds[0].Value, want)
		}
	}
	checkSummary(MetricTotalOnline, 1)
	checkSummary(MetricTotalOffline, 1)
	checkSummary(MetricTotalDevices, 2)

	// Per-target dimensions carry the agent name and target identity.
	status := byName[MetricTargetStatus][0]
	if len(status.Dimensions) != 3 {
		t.Fatalf("status dimensions = %+v", status.Dimensions)
	}
	if status.Dimensions[0].Name != "ContainerName" || status.Dimensions[0].Value != "edge-1" {
		t.Errorf("ContainerName dimension = %+v", status.Dimensions[0])
	}
}

func TestMonitor_SurvivesPublishFailure(t *testing.T) {
	store := testStore()
	pub := metrics.NewMemoryPublisher()
	pub.SetError(context.DeadlineExceeded)

	mon := newTestMonitor(t, store, pub, []probe.Prober{onlineProber("a", 1)}, 10*time.Millisecond)
	if err := mon.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer mon.Stop()

	// State keeps updating even though every publish fails.
	waitFor(t, time.Second, func() bool {
		ts, ok := store.Snapshot().Targets["a"]
		return ok && ts.Online
	}, "state not updated during publish failures")
}

func TestMonitor_StartStop(t *testing.T) {
	mon := newTestMonitor(t, testStore(), metrics.NewMemoryPublisher(), nil, time.Hour)

	if err := mon.Stop(); err != ErrNotStarted {
		t.Errorf("Stop before Start = %v, want ErrNotStarted", err)
	}
	if err := mon.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := mon.Start(context.Background()); err != ErrAlreadyStarted {
		t.Errorf("second Start = %v, want ErrAlreadyStarted", err)
	}
	if err := mon.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}
