package config

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
)

// targetsFile is the on-disk shape of a TOML targets file:
//
//	[[target]]
//	name = "db-1"
//	host = "10.0.0.5"
//	port = 5432
//	protocol = "tcp"
//	timeout_seconds = 3
//
//	[[target]]
//	name = "api"
//	host = "10.0.0.6"
//	port = 8443
//	protocol = "http"
//	expected_status = 200
type targetsFile struct {
	Targets []targetEntry `toml:"target"`
}

type targetEntry struct {
	Name           string `toml:"name"`
	Host           string `toml:"host"`
	Port           int    `toml:"port"`
	Protocol       string `toml:"protocol"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	ExpectedStatus int    `toml:"expected_status"`
}

// LoadTargetsFile reads targets from a TOML file. The file supports
// per-target protocol, timeout and HTTP status expectations that the
// MONITOR_TARGETS comma list cannot express.
func LoadTargetsFile(path string) ([]Target, error) {
	var f targetsFile
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return nil, fmt.Errorf("%w: targets file %s: %v", ErrInvalidConfig, path, err)
	}

	targets := make([]Target, 0, len(f.Targets))
	for _, e := range f.Targets {
		t := Target{
			Name:           e.Name,
			Host:           e.Host,
			Port:           e.Port,
			Protocol:       Protocol(e.Protocol),
			Timeout:        time.Duration(e.TimeoutSeconds) * time.Second,
			ExpectedStatus: e.ExpectedStatus,
		}
		if t.Protocol == "" {
			t.Protocol = ProtocolTCP
		}
		if t.Name == "" {
			t.Name = t.Address()
		}
		targets = append(targets, t)
	}
	return targets, nil
}
