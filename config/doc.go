// Package config loads and validates the agent's startup configuration.
//
// Configuration is read once from the process environment and is immutable
// for the agent's lifetime. Targets may come from the MONITOR_TARGETS comma
// list ("host" or "host:port" entries, TCP probes) or from a TOML file named
// by TARGETS_FILE when per-target protocol, timeout or HTTP status
// expectations are needed.
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    // invalid configuration is startup-fatal
//	    log.Fatal(err)
//	}
//
// Validation is fail-fast: a malformed target or non-positive interval is
// reported from Load and never surfaces at runtime.
package config
