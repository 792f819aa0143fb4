package stealth

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
)

// RobotsChecker answers robots.txt questions per origin. Rules are cached for
// an hour; an origin whose robots.txt cannot be fetched is cached as allow-all
// for the same period so a broken server is not asked once per campaign id.
type RobotsChecker struct {
	client  *http.Client
	enabled bool
	ttl     time.Duration

	mu     sync.Mutex
	origin map[string]*robotsRules
}

type robotsRules struct {
	data    *robotstxt.RobotsData // nil allows everything
	fetched time.Time
}

func NewRobotsChecker(client *http.Client, enabled bool) *RobotsChecker {
	return &RobotsChecker{
		client:  client,
		enabled: enabled,
		ttl:     time.Hour,
		origin:  make(map[string]*robotsRules),
	}
}

// IsAllowed reports whether userAgent may fetch rawURL. A nil or disabled
// checker allows everything.
func (r *RobotsChecker) IsAllowed(ctx context.Context, userAgent, rawURL string) (bool, error) {
	group, u, err := r.group(ctx, userAgent, rawURL)
	if err != nil || group == nil {
		return err == nil, err
	}
	return group.Test(u.Path), nil
}

// CrawlDelay is the Crawl-delay the origin of rawURL asks of userAgent, or 0.
func (r *RobotsChecker) CrawlDelay(ctx context.Context, userAgent, rawURL string) time.Duration {
	group, _, err := r.group(ctx, userAgent, rawURL)
	if err != nil || group == nil {
		return 0
	}
	return group.CrawlDelay
}

func (r *RobotsChecker) group(ctx context.Context, userAgent, rawURL string) (*robotstxt.Group, *url.URL, error) {
	if r == nil || !r.enabled {
		return nil, nil, nil
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, nil, err
	}
	rules := r.rules(ctx, u.Scheme+"://"+u.Host)
	if rules.data == nil {
		return nil, u, nil
	}
	return rules.data.FindGroup(userAgent), u, nil
}

// rules holds the lock across the fetch so concurrent workers starting on a
// new origin wait for one download instead of racing.
func (r *RobotsChecker) rules(ctx context.Context, origin string) *robotsRules {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cached, ok := r.origin[origin]; ok && time.Since(cached.fetched) < r.ttl {
		return cached
	}
	data, _ := r.fetch(ctx, origin)
	rules := &robotsRules{data: data, fetched: time.Now()}
	r.origin[origin] = rules
	return rules
}

func (r *RobotsChecker) fetch(ctx context.Context, origin string) (*robotstxt.RobotsData, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, origin+"/robots.txt", nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch robots.txt: %w", err)
	}
	defer resp.Body.Close()

	data, err := robotstxt.FromResponse(resp)
	if err != nil {
		return nil, fmt.Errorf("parse robots.txt: %w", err)
	}
	return data, nil
}
