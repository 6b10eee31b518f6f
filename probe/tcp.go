package probe

import (
	"context"
	"net"
	"time"

	"github.com/edgewatch/edgewatch/config"
)

// tcpProber checks reachability with a single TCP connect.
type tcpProber struct {
	target  config.Target
	address string

	// dial is swapped by tests to simulate hangs without real routing.
	dial func(ctx context.Context, network, address string) (net.Conn, error)
}

func newTCPProber(t config.Target) *tcpProber {
	var d net.Dialer
	return &tcpProber{
		target:  t,
		address: t.Address(),
		dial:    d.DialContext,
	}
}

func (p *tcpProber) Check(ctx context.Context) Result {
	ctx, cancel := context.WithTimeout(ctx, p.target.Timeout)
	defer cancel()

	start := time.Now()
	conn, err := p.dial(ctx, "tcp", p.address)
	if err != nil {
		return offline()
	}
	conn.Close()
	return online(time.Since(start))
}

func (p *tcpProber) Target() config.Target {
	return p.target
}
