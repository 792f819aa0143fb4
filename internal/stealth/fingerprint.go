package stealth

import (
	"net/http"
	"sync"
)

// Fingerprint is a browser identity: a user agent plus the client hints and
// fetch metadata that browser sends with a top-level navigation.
type Fingerprint struct {
	Name      string
	UserAgent string
	Headers   http.Header
}

// FingerprintPool hands out fingerprints round-robin. It is safe for
// concurrent use by the scan workers.
type FingerprintPool struct {
	mu    sync.Mutex
	items []Fingerprint
	next  int
}

// NewFingerprintPool returns a pool of desktop browsers common on Korean
// shopping sites. An empty set falls back to that default.
func NewFingerprintPool(set ...Fingerprint) *FingerprintPool {
	if len(set) == 0 {
		set = koreanDesktopBrowsers()
	}
	return &FingerprintPool{items: set}
}

// Next returns the next fingerprint in round-robin order.
func (p *FingerprintPool) Next() Fingerprint {
	p.mu.Lock()
	defer p.mu.Unlock()
	f := p.items[p.next]
	p.next = (p.next + 1) % len(p.items)
	return f
}

func koreanDesktopBrowsers() []Fingerprint {
	const webkit = "AppleWebKit/537.36 (KHTML, like Gecko)"
	return []Fingerprint{
		{
			Name:      "chrome-windows",
			UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " + webkit + " Chrome/133.0.0.0 Safari/537.36",
			Headers:   chromiumHints(`"Chromium";v="133", "Not(A:Brand";v="99", "Google Chrome";v="133"`, "Windows"),
		},
		{
			Name:      "whale-windows",
			UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " + webkit + " Chrome/132.0.0.0 Whale/4.30.291.11 Safari/537.36",
			Headers:   chromiumHints(`"Chromium";v="132", "Not(A:Brand";v="99", "Whale";v="4"`, "Windows"),
		},
		{
			Name:      "edge-windows",
			UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " + webkit + " Chrome/133.0.0.0 Safari/537.36 Edg/133.0.0.0",
			Headers:   chromiumHints(`"Chromium";v="133", "Not(A:Brand";v="99", "Microsoft Edge";v="133"`, "Windows"),
		},
		{
			Name:      "chrome-macos",
			UserAgent: "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) " + webkit + " Chrome/133.0.0.0 Safari/537.36",
			Headers:   chromiumHints(`"Chromium";v="133", "Not(A:Brand";v="99", "Google Chrome";v="133"`, "macOS"),
		},
		{
			Name:      "firefox-windows",
			UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:135.0) Gecko/20100101 Firefox/135.0",
			Headers:   navigationHeaders(),
		},
	}
}

// navigationHeaders are sent by every modern browser on a same-site page load.
func navigationHeaders() http.Header {
	h := http.Header{}
	h.Set("Sec-Fetch-Dest", "document")
	h.Set("Sec-Fetch-Mode", "navigate")
	h.Set("Sec-Fetch-Site", "same-origin")
	h.Set("Sec-Fetch-User", "?1")
	return h
}

func chromiumHints(brands, platform string) http.Header {
	h := navigationHeaders()
	h.Set("Sec-Ch-Ua", brands)
	h.Set("Sec-Ch-Ua-Mobile", "?0")
	h.Set("Sec-Ch-Ua-Platform", `"`+platform+`"`)
	return h
}
