package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

// Common errors.
var (
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrInvalidTarget = errors.New("invalid target")
)

// Protocol selects how a target is probed.
type Protocol string

const (
	// ProtocolTCP probes with a plain TCP connect.
	ProtocolTCP Protocol = "tcp"

	// ProtocolHTTP probes with an HTTP GET request.
	ProtocolHTTP Protocol = "http"
)

// Target describes one endpoint to probe for reachability and latency.
// Targets are fixed for the lifetime of the agent; there is no hot reload.
type Target struct {
	// Name identifies the target in state, logs and metric dimensions.
	// Defaults to "host:port" when loaded from MONITOR_TARGETS.
	Name string

	// Host is an IP address or hostname.
	Host string

	// Port is the TCP port to connect to.
	Port int

	// Protocol is tcp or http. Default: tcp.
	Protocol Protocol

	// Timeout bounds a single probe. Zero means the global probe timeout.
	Timeout time.Duration

	// ExpectedStatus, for HTTP targets, is the exact status code that
	// counts as online. Zero means any 2xx response counts.
	ExpectedStatus int
}

// Validate checks a single target.
func (t *Target) Validate() error {
	if t.Host == "" {
		return fmt.Errorf("%w: missing host", ErrInvalidTarget)
	}
	if t.Port < 1 || t.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrInvalidTarget, t.Port)
	}
	switch t.Protocol {
	case ProtocolTCP, ProtocolHTTP:
	default:
		return fmt.Errorf("%w: unknown protocol %q", ErrInvalidTarget, t.Protocol)
	}
	if t.Timeout < 0 {
		return fmt.Errorf("%w: negative timeout", ErrInvalidTarget)
	}
	if t.ExpectedStatus != 0 && (t.ExpectedStatus < 100 || t.ExpectedStatus > 599) {
		return fmt.Errorf("%w: expected status %d out of range", ErrInvalidTarget, t.ExpectedStatus)
	}
	return nil
}

// Address returns the host:port dial address.
func (t *Target) Address() string {
	return net.JoinHostPort(t.Host, strconv.Itoa(t.Port))
}

// Config holds everything the agent reads at startup. It is immutable once
// loaded; runtime components receive it by value.
type Config struct {
	// ContainerName identifies this agent instance in metric dimensions
	// and the health endpoint. Default: os.Hostname().
	ContainerName string

	// AWSRegion is the CloudWatch region. Credentials are resolved by the
	// SDK's default chain and never validated here.
	AWSRegion string

	// Namespace is the CloudWatch namespace metrics are published under.
	Namespace string

	// HeartbeatInterval is the liveness emission cadence.
	HeartbeatInterval time.Duration

	// ProbeInterval is the target probe cadence. Defaults to the
	// heartbeat interval when unset.
	ProbeInterval time.Duration

	// ProbeTimeout bounds each probe unless the target overrides it.
	ProbeTimeout time.Duration

	// Targets is the set of endpoints to monitor. May be empty, in which
	// case only heartbeats are emitted.
	Targets []Target

	// EnableHealthEndpoint starts the local HTTP surface when true.
	EnableHealthEndpoint bool

	// HealthPort is the HTTP surface listen port.
	HealthPort int

	// LogLevel is a logrus level name (debug, info, warn, error).
	LogLevel string
}

// DefaultConfig returns configuration with the agent's defaults. The
// container name falls back to the hostname, matching container deployments
// where no explicit name is injected.
func DefaultConfig() Config {
	name, err := os.Hostname()
	if err != nil || name == "" {
		name = "unknown"
	}
	return Config{
		ContainerName:     name,
		AWSRegion:         "us-east-1",
		Namespace:         "ContainerMonitoring/Heartbeat",
		HeartbeatInterval: 300 * time.Second,
		ProbeTimeout:      5 * time.Second,
		HealthPort:        8080,
		LogLevel:          "info",
	}
}

// Validate checks the configuration. Any error here is startup-fatal.
func (c *Config) Validate() error {
	if c.ContainerName == "" {
		return fmt.Errorf("%w: missing container name", ErrInvalidConfig)
	}
	if c.Namespace == "" {
		return fmt.Errorf("%w: missing CloudWatch namespace", ErrInvalidConfig)
	}
	if c.HeartbeatInterval <= 0 {
		return fmt.Errorf("%w: heartbeat interval must be positive", ErrInvalidConfig)
	}
	if c.ProbeInterval <= 0 {
		return fmt.Errorf("%w: probe interval must be positive", ErrInvalidConfig)
	}
	if c.ProbeTimeout <= 0 {
		return fmt.Errorf("%w: probe timeout must be positive", ErrInvalidConfig)
	}
	if c.EnableHealthEndpoint && (c.HealthPort < 1 || c.HealthPort > 65535) {
		return fmt.Errorf("%w: health port %d out of range", ErrInvalidConfig, c.HealthPort)
	}
	seen := make(map[string]bool, len(c.Targets))
	for i := range c.Targets {
		t := &c.Targets[i]
		if err := t.Validate(); err != nil {
			return fmt.Errorf("target %q: %w", t.Name, err)
		}
		if seen[t.Name] {
			return fmt.Errorf("%w: duplicate target name %q", ErrInvalidTarget, t.Name)
		}
		seen[t.Name] = true
	}
	return nil
}

// Load reads configuration from the process environment, plus the optional
// TOML targets file named by TARGETS_FILE.
func Load() (Config, error) {
	return FromEnv(os.LookupEnv)
}

// FromEnv builds configuration from the given environment lookup. Split out
// from Load so tests can inject an environment.
func FromEnv(lookup func(string) (string, bool)) (Config, error) {
	cfg := DefaultConfig()

	get := func(key string) string {
		v, _ := lookup(key)
		return strings.TrimSpace(v)
	}

	if v := get("CONTAINER_NAME"); v != "" {
		cfg.ContainerName = v
	}
	if v := get("AWS_REGION"); v != "" {
		cfg.AWSRegion = v
	}
	if v := get("CLOUDWATCH_NAMESPACE"); v != "" {
		cfg.Namespace = v
	}
	if v := get("LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}

	var err error
	if cfg.HeartbeatInterval, err = secondsVar(get, "HEARTBEAT_INTERVAL", cfg.HeartbeatInterval); err != nil {
		return Config{}, err
	}
	if cfg.ProbeInterval, err = secondsVar(get, "PROBE_INTERVAL", cfg.HeartbeatInterval); err != nil {
		return Config{}, err
	}
	if cfg.ProbeTimeout, err = secondsVar(get, "TARGET_TIMEOUT", cfg.ProbeTimeout); err != nil {
		return Config{}, err
	}

	defaultPort := 80
	if v := get("TARGET_PORT"); v != "" {
		if defaultPort, err = strconv.Atoi(v); err != nil {
			return Config{}, fmt.Errorf("%w: TARGET_PORT %q: %v", ErrInvalidConfig, v, err)
		}
	}

	if v := get("ENABLE_HEALTH_ENDPOINT"); v != "" {
		cfg.EnableHealthEndpoint = strings.EqualFold(v, "true")
	}
	if v := get("HEALTH_PORT"); v != "" {
		if cfg.HealthPort, err = strconv.Atoi(v); err != nil {
			return Config{}, fmt.Errorf("%w: HEALTH_PORT %q: %v", ErrInvalidConfig, v, err)
		}
	}

	targets, err := ParseTargetList(get("MONITOR_TARGETS"), defaultPort)
	if err != nil {
		return Config{}, err
	}
	if path := get("TARGETS_FILE"); path != "" {
		fileTargets, err := LoadTargetsFile(path)
		if err != nil {
			return Config{}, err
		}
		targets = append(targets, fileTargets...)
	}
	cfg.Targets = targets

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ParseTargetList parses the MONITOR_TARGETS comma list. Entries are
// "host" or "host:port"; bare hosts get defaultPort. The entry as written
// becomes the target name.
func ParseTargetList(list string, defaultPort int) ([]Target, error) {
	if list == "" {
		return nil, nil
	}
	var targets []Target
	for _, entry := range strings.Split(list, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		host, port := entry, defaultPort
		if h, p, err := net.SplitHostPort(entry); err == nil {
			host = h
			if port, err = strconv.Atoi(p); err != nil {
				return nil, fmt.Errorf("%w: %q: bad port", ErrInvalidTarget, entry)
			}
		} else if strings.Count(entry, ":") == 1 {
			// host:port that SplitHostPort rejected, e.g. empty port
			return nil, fmt.Errorf("%w: %q", ErrInvalidTarget, entry)
		}
		targets = append(targets, Target{
			Name:     entry,
			Host:     host,
			Port:     port,
			Protocol: ProtocolTCP,
		})
	}
	return targets, nil
}

func secondsVar(get func(string) string, key string, def time.Duration) (time.Duration, error) {
	v := get(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q: %v", ErrInvalidConfig, key, v, err)
	}
	return time.Duration(n) * time.Second, nil
}
