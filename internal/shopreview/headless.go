package shopreview

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/lukman83/campaign-scout/internal/models"
)

// HeadlessClient fetches pages through a headless Chromium so pages that
// render their fields with JavaScript still extract. It satisfies the same
// contract as Client. One browser is shared by all fetches until Close.
//
// Every fetch renders in its own incognito context, so concurrent fetches
// with different credentials never see each other's cookies.
type HeadlessClient struct {
	baseURL    string
	cookieName string
	timeout    time.Duration

	mu       sync.Mutex
	launcher *launcher.Launcher
	browser  *rod.Browser
}

func NewHeadlessClient(baseURL, cookieName string, timeout time.Duration) *HeadlessClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if cookieName == "" {
		cookieName = models.DefaultCookieKey
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HeadlessClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		cookieName: cookieName,
		timeout:    timeout,
	}
}

func (h *HeadlessClient) LandingURL() string { return h.baseURL }

func (h *HeadlessClient) DetailURL(id int) string {
	return fmt.Sprintf("%s/campaign_detail?csq=%d", h.baseURL, id)
}

func (h *HeadlessClient) FetchDetail(ctx context.Context, id int, cred models.Credential) ([]byte, error) {
	return h.render(ctx, h.DetailURL(id), cred)
}

func (h *HeadlessClient) FetchLanding(ctx context.Context, cred models.Credential) ([]byte, error) {
	return h.render(ctx, h.LandingURL(), cred)
}

// Close shuts the browser down. The client may be reused afterwards; the
// next fetch launches a new browser.
func (h *HeadlessClient) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	var err error
	if h.browser != nil {
		err = h.browser.Close()
		h.browser = nil
	}
	if h.launcher != nil {
		h.launcher.Cleanup()
		h.launcher = nil
	}
	return err
}

func (h *HeadlessClient) connect() (*rod.Browser, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.browser != nil {
		return h.browser, nil
	}

	l := launcher.New().Headless(true).Logger(io.Discard).Set("ignore-certificate-errors")
	if bin := os.Getenv("ROD_BROWSER_BIN"); bin != "" {
		l = l.Bin(bin)
	}
	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("connect browser: %w", err)
	}

	h.launcher = l
	h.browser = browser
	return browser, nil
}

func (h *HeadlessClient) render(ctx context.Context, pageURL string, cred models.Credential) ([]byte, error) {
	browser, err := h.connect()
	if err != nil {
		return nil, &FetchError{URL: pageURL, Err: err}
	}

	incognito, err := browser.Incognito()
	if err != nil {
		return nil, &FetchError{URL: pageURL, Err: fmt.Errorf("open browser context: %w", err)}
	}
	defer incognito.Close()

	page, err := incognito.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, &FetchError{URL: pageURL, Err: fmt.Errorf("open page: %w", err)}
	}
	defer page.Close()

	timed := page.Context(ctx).Timeout(h.timeout)
	err = timed.SetCookies([]*proto.NetworkCookieParam{{
		Name:  h.cookieName,
		Value: string(cred),
		URL:   pageURL,
		Path:  "/",
	}})
	if err != nil {
		return nil, &FetchError{URL: pageURL, Err: fmt.Errorf("set cookie: %w", err)}
	}

	if err := timed.Navigate(pageURL); err != nil {
		return nil, &FetchError{URL: pageURL, Err: fmt.Errorf("navigate: %w", err)}
	}
	if err := timed.WaitLoad(); err != nil {
		return nil, &FetchError{URL: pageURL, Err: fmt.Errorf("wait load: %w", err)}
	}

	content, err := timed.HTML()
	if err != nil {
		return nil, &FetchError{URL: pageURL, Err: fmt.Errorf("get page HTML: %w", err)}
	}
	return []byte(content), nil
}
