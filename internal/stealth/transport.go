package stealth

import (
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// StealthTransport paces and disguises every page fetch of a scan. Stages run
// in this order, each one optional:
//
//	fingerprint, robots.txt gate, rate limit, crawl/human delay, proxy
//
// A zero StealthTransport behaves like http.DefaultTransport.
type StealthTransport struct {
	Base        http.RoundTripper
	Robots      *RobotsChecker
	Fingerprint *FingerprintPool
	Proxy       *ProxyRotator
	Delay       *HumanDelay
	RateLimiter *rate.Limiter
}

func (t *StealthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	req = req.Clone(ctx)

	if t.Fingerprint != nil {
		fp := t.Fingerprint.Next()
		req.Header.Set("User-Agent", fp.UserAgent)
		for key, vals := range fp.Headers {
			if _, set := req.Header[key]; !set {
				req.Header[key] = vals
			}
		}
	}
	ua := req.Header.Get("User-Agent")

	if allowed, err := t.Robots.IsAllowed(ctx, ua, req.URL.String()); err == nil && !allowed {
		return nil, fmt.Errorf("blocked by robots.txt: %s", req.URL.Path)
	}

	if t.RateLimiter != nil {
		if err := t.RateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	if d := t.Robots.CrawlDelay(ctx, ua, req.URL.String()); d > 0 {
		timer := time.NewTimer(d)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("crawl delay: %w", ctx.Err())
		}
	}
	if err := t.Delay.Wait(ctx); err != nil {
		return nil, fmt.Errorf("delay: %w", err)
	}

	next := t.Base
	if t.Proxy != nil {
		next = t.Proxy.Next().Transport()
	}
	if next == nil {
		next = http.DefaultTransport
	}
	return next.RoundTrip(req)
}
