package probe

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/edgewatch/edgewatch/config"
)

// httpProber checks reachability with a single GET request. Online means the
// response status matched the target's expectation: the exact ExpectedStatus
// when set, otherwise any 2xx. A reachable target answering outside that
// range counts as offline.
type httpProber struct {
	target config.Target
	url    string
	client *http.Client
}

func newHTTPProber(t config.Target) (*httpProber, error) {
	u := fmt.Sprintf("http://%s/", t.Address())
	if _, err := url.Parse(u); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidTarget, t.Name, err)
	}
	return &httpProber{
		target: t,
		url:    u,
		client: &http.Client{
			// Redirects would hide the target's own answer.
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}, nil
}

func (p *httpProber) Check(ctx context.Context) Result {
	ctx, cancel := context.WithTimeout(ctx, p.target.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return offline()
	}

	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		return offline()
	}
	resp.Body.Close()

	if !p.accept(resp.StatusCode) {
		return offline()
	}
	return online(time.Since(start))
}

func (p *httpProber) accept(status int) bool {
	if p.target.ExpectedStatus != 0 {
		return status == p.target.ExpectedStatus
	}
	return status >= 200 && status < 300
}

func (p *httpProber) Target() config.Target {
	return p.target
}
