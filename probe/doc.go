// Package probe performs bounded-timeout reachability checks.
//
// A Prober is built once per configured target and checks it with either a
// plain TCP connect or an HTTP GET. Probes have no shared state and absorb
// all network failure: timeouts, refused connections and unexpected HTTP
// statuses come back as Online=false with no response time. Only malformed
// target configuration is an error, and only at construction.
//
// # Usage
//
//	p, err := probe.New(target, 5*time.Second)
//	if err != nil {
//	    // bad host/port/protocol, startup-fatal
//	}
//	res := p.Check(ctx)
//	if res.Online {
//	    fmt.Printf("%s: %.1fms\n", target.Name, *res.ResponseTime)
//	}
package probe
