package shopreview

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/lukman83/campaign-scout/internal/httputil"
	"github.com/lukman83/campaign-scout/internal/models"
)

// DefaultBaseURL is the user-facing root of the review site.
const DefaultBaseURL = "https://dbg.shopreview.co.kr/usr"

// ErrAuthRedirect means the page answered with the login redirect script:
// the session credential is missing, invalid or expired.
var ErrAuthRedirect = errors.New("session rejected: login redirect")

// FetchError is a transport-level failure for a single page.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Client fetches campaign pages over plain HTTP.
type Client struct {
	http       *http.Client
	baseURL    string
	cookieName string
}

// NewClient creates a client. The credential is never stored on the client;
// it is passed explicitly to every fetch.
func NewClient(httpClient *http.Client, baseURL, cookieName string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if cookieName == "" {
		cookieName = models.DefaultCookieKey
	}
	return &Client{
		http:       httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		cookieName: cookieName,
	}
}

func (c *Client) LandingURL() string { return c.baseURL }

func (c *Client) DetailURL(id int) string {
	return fmt.Sprintf("%s/campaign_detail?csq=%d", c.baseURL, id)
}

// FetchDetail returns the raw markup of one campaign detail page.
func (c *Client) FetchDetail(ctx context.Context, id int, cred models.Credential) ([]byte, error) {
	return c.get(ctx, c.DetailURL(id), cred)
}

// FetchLanding returns the raw markup of the landing page listing the
// currently advertised campaigns.
func (c *Client) FetchLanding(ctx context.Context, cred models.Credential) ([]byte, error) {
	return c.get(ctx, c.LandingURL(), cred)
}

func (c *Client) get(ctx context.Context, pageURL string, cred models.Credential) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, &FetchError{URL: pageURL, Err: err}
	}
	httputil.ApplyHeaders(req, httputil.BrowserHeaders())
	req.AddCookie(cred.Cookie(c.cookieName))

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &FetchError{URL: pageURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{URL: pageURL, StatusCode: resp.StatusCode}
	}

	body, err := httputil.ReadBody(resp)
	if err != nil {
		return nil, &FetchError{URL: pageURL, Err: fmt.Errorf("read body: %w", err)}
	}
	return body, nil
}
