package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/edgewatch/edgewatch/config"
	"github.com/edgewatch/edgewatch/heartbeat"
	"github.com/edgewatch/edgewatch/metrics"
	"github.com/edgewatch/edgewatch/monitor"
)

func testConfig() config.Config {
	return config.Config{
		ContainerName:     "edge-test",
		AWSRegion:         "us-east-1",
		Namespace:         "ContainerMonitoring/Heartbeat",
		HeartbeatInterval: 20 * time.Millisecond,
		ProbeInterval:     20 * time.Millisecond,
		ProbeTimeout:      200 * time.Millisecond,
		LogLevel:          "error",
	}
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// listenTCP opens a local listener for probes to hit.
func listenTCP(t *testing.T) net.Listener {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()
	return ln
}

// freePort grabs a port the kernel considers free right now.
func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()
	return port
}

func waitFor(t *testing.T, d time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestNew_Validation(t *testing.T) {
	pub := metrics.NewMemoryPublisher()

	if _, err := New(Options{Config: testConfig()}); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("missing publisher: got %v, want ErrInvalidConfig", err)
	}

	bad := testConfig()
	bad.Namespace = ""
	if _, err := New(Options{Config: bad, Publisher: pub}); !errors.Is(err, config.ErrInvalidConfig) {
		t.Errorf("empty namespace: got %v, want config.ErrInvalidConfig", err)
	}

	badTarget := testConfig()
	badTarget.Targets = []config.Target{{Name: "broken", Host: "", Port: 80, Protocol: config.ProtocolTCP}}
	if _, err := New(Options{Config: badTarget, Publisher: pub}); err == nil {
		t.Error("malformed target: expected error at construction")
	}
}

func TestAgent_RunAndDrain(t *testing.T) {
	ln := listenTCP(t)
	addr := ln.Addr().(*net.TCPAddr)

	cfg := testConfig()
	cfg.Targets = []config.Target{{
		Name:     "local",
		Host:     "127.0.0.1",
		Port:     addr.Port,
		Protocol: config.ProtocolTCP,
	}}

	pub := metrics.NewMemoryPublisher()
	a, err := New(Options{Config: cfg, Publisher: pub, Logger: quietLogger(), Grace: time.Second})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := a.Status(); got != StatusStarting {
		t.Errorf("status before Run = %q, want %q", got, StatusStarting)
	}

	ctx, cancel := context.WithCancel(context.Background())
	runErr := make(chan error, 1)
	go func() { runErr <- a.Run(ctx) }()

	waitFor(t, time.Second, func() bool { return a.Status() == StatusRunning })
	waitFor(t, time.Second, func() bool {
		snap := a.Store().Snapshot()
		st, ok := snap.Targets["local"]
		return !snap.LastHeartbeat.IsZero() && ok && st.Online
	})

	cancel()
	select {
	case err := <-runErr:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if got := a.Status(); got != StatusStopped {
		t.Errorf("status after drain = %q, want %q", got, StatusStopped)
	}

	names := make(map[string]bool)
	for _, d := range pub.All() {
		names[d.Name] = true
	}
	for _, want := range []string{heartbeat.MetricHeartbeat, heartbeat.MetricUptime, monitor.MetricTargetStatus, monitor.MetricTotalOnline} {
		if !names[want] {
			t.Errorf("published metrics missing %q", want)
		}
	}
}

func TestAgent_SignalShutdown(t *testing.T) {
	a, err := New(Options{Config: testConfig(), Publisher: metrics.NewMemoryPublisher(), Logger: quietLogger()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	runErr := make(chan error, 1)
	go func() { runErr <- a.Run(context.Background()) }()
	waitFor(t, time.Second, func() bool { return a.Status() == StatusRunning })

	if err := syscall.Kill(os.Getpid(), syscall.SIGTERM); err != nil {
		t.Fatalf("kill: %v", err)
	}

	select {
	case err := <-runErr:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after SIGTERM")
	}
	if got := a.Status(); got != StatusStopped {
		t.Errorf("status after signal = %q, want %q", got, StatusStopped)
	}
}

func TestAgent_RunTwiceConcurrently(t *testing.T) {
	a, err := New(Options{Config: testConfig(), Publisher: metrics.NewMemoryPublisher(), Logger: quietLogger()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runErr := make(chan error, 1)
	go func() { runErr <- a.Run(ctx) }()
	waitFor(t, time.Second, func() bool { return a.Status() == StatusRunning })

	if err := a.Run(ctx); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("second Run: got %v, want ErrAlreadyRunning", err)
	}

	cancel()
	if err := <-runErr; err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestAgent_HealthEndpoint(t *testing.T) {
	cfg := testConfig()
	cfg.EnableHealthEndpoint = true
	cfg.HealthPort = freePort(t)

	a, err := New(Options{Config: cfg, Publisher: metrics.NewMemoryPublisher(), Logger: quietLogger()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if a.HealthAddr() != "" {
		t.Error("HealthAddr should be empty before Run")
	}

	ctx, cancel := context.WithCancel(context.Background())
	runErr := make(chan error, 1)
	go func() { runErr <- a.Run(ctx) }()
	waitFor(t, time.Second, func() bool { return a.Status() == StatusRunning })

	if a.HealthAddr() == "" {
		t.Fatal("HealthAddr empty while running")
	}
	resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/health", cfg.HealthPort))
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("/health status = %d, want 200", resp.StatusCode)
	}
	if !strings.Contains(string(body), `"status":"healthy"`) {
		t.Errorf("/health body = %s, want healthy status", body)
	}

	cancel()
	if err := <-runErr; err != nil {
		t.Fatalf("Run: %v", err)
	}

	if _, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/health", cfg.HealthPort)); err == nil {
		t.Error("listener should be closed after drain")
	}
}

func TestAgent_NoHealthEndpoint(t *testing.T) {
	a, err := New(Options{Config: testConfig(), Publisher: metrics.NewMemoryPublisher(), Logger: quietLogger()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if a.HealthAddr() != "" {
		t.Errorf("HealthAddr = %q, want empty when endpoint disabled", a.HealthAddr())
	}
}
