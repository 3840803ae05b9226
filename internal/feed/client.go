package feed

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/chromedp/chromedp"
	"github.com/klauspost/compress/zstd"

	"github.com/Melekhin/betdesk/internal/pkg/config"
)

const defaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/142.0.0.0 Safari/537.36"

// chromeMu serializes Chrome usage so only one instance runs at a time.
var chromeMu sync.Mutex

// Client fetches board and per-match detail responses from the vendor.
// The vendor rotates domains; when a mirror URL is configured the real base
// URL is resolved from it and cached, with periodic re-resolution.
type Client struct {
	baseURL   string
	mirrorURL string
	userAgent string
	headers   map[string]string
	version   string

	httpClient *http.Client

	resolvedMu      sync.RWMutex
	resolvedURL     string
	lastResolveTime time.Time
	resolveInterval time.Duration
	resolveTimeout  time.Duration
}

// NewClient builds a Client from config. No network calls happen here; mirror
// resolution is lazy on the first request.
func NewClient(cfg *config.FeedConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DisableCompression = true // we send Accept-Encoding and decode ourselves
	transport.Proxy = http.ProxyFromEnvironment

	return &Client{
		baseURL:         cfg.BaseURL,
		mirrorURL:       cfg.MirrorURL,
		userAgent:       ua,
		headers:         cfg.Headers,
		version:         cfg.Version,
		httpClient:      &http.Client{Timeout: timeout, Transport: transport},
		resolveInterval: 2 * time.Hour,
		resolveTimeout:  timeout,
	}
}

// FetchBoard fetches the match board for one (sport, bucket) stream.
func (c *Client) FetchBoard(ctx context.Context, sport, bucket string) (*BoardResponse, error) {
	u, err := url.Parse(c.resolvedBaseURL())
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}
	u.Path = "/service-api/board"
	u.RawQuery = fmt.Sprintf("sport=%s&bucket=%s&ver=%s", url.QueryEscape(sport), url.QueryEscape(bucket), url.QueryEscape(c.version))

	body, err := c.doRequest(ctx, u.String())
	if err != nil {
		return nil, err
	}

	var resp BoardResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal board response: %w", err)
	}
	if resp.Code != 0 {
		return nil, fmt.Errorf("API error: %s (code: %d)", resp.Message, resp.Code)
	}

	return &resp, nil
}

// FetchDetail fetches the full market set for one match.
func (c *Client) FetchDetail(ctx context.Context, sport, gid string) (*RawMatch, error) {
	u, err := url.Parse(c.resolvedBaseURL())
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}
	u.Path = "/service-api/detail"
	u.RawQuery = fmt.Sprintf("sport=%s&gid=%s&ver=%s", url.QueryEscape(sport), url.QueryEscape(gid), url.QueryEscape(c.version))

	body, err := c.doRequest(ctx, u.String())
	if err != nil {
		return nil, err
	}

	var resp DetailResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal detail response: %w", err)
	}
	if resp.Code != 0 {
		return nil, fmt.Errorf("API error: %s (code: %d)", resp.Message, resp.Code)
	}

	return &resp.Game, nil
}

func (c *Client) doRequest(ctx context.Context, urlStr string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("Accept-Encoding", "gzip, deflate, br, zstd")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Connection", "keep-alive")
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if shouldReResolve(err, 0) {
			c.clearResolvedURL()
		}
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		preview := string(b)
		if len(preview) > 200 {
			preview = preview[:200] + "..."
		}
		slog.Warn("Board request failed", "url", urlStr, "status", resp.StatusCode, "body_preview", preview)
		if shouldReResolve(nil, resp.StatusCode) {
			c.clearResolvedURL()
		}
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	return readBodyDecode(resp)
}

// readBodyDecode decompresses the body based on Content-Encoding.
func readBodyDecode(resp *http.Response) ([]byte, error) {
	enc := strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding")))
	switch {
	case strings.Contains(enc, "br"):
		return io.ReadAll(brotli.NewReader(resp.Body))
	case strings.Contains(enc, "zstd"):
		r, err := zstd.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("zstd reader: %w", err)
		}
		defer r.Close()
		return io.ReadAll(r)
	case strings.Contains(enc, "gzip"):
		r, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("gzip reader: %w", err)
		}
		defer r.Close()
		return io.ReadAll(r)
	default:
		return io.ReadAll(resp.Body)
	}
}

// shouldReResolve reports whether the failure looks like a rotated domain
// rather than a transient error.
func shouldReResolve(err error, statusCode int) bool {
	if err != nil {
		errStr := err.Error()
		if strings.Contains(errStr, "connection refused") ||
			strings.Contains(errStr, "no such host") ||
			strings.Contains(errStr, "timeout") ||
			strings.Contains(errStr, "network is unreachable") {
			return true
		}
	}
	return statusCode == 502 || statusCode == 503
}

// resolvedBaseURL returns the cached resolved URL, resolving the mirror when
// the cache is empty or stale. Falls back to the configured base URL.
func (c *Client) resolvedBaseURL() string {
	if c.mirrorURL == "" {
		return c.baseURL
	}

	c.resolvedMu.RLock()
	resolved := c.resolvedURL
	fresh := resolved != "" && time.Since(c.lastResolveTime) < c.resolveInterval
	c.resolvedMu.RUnlock()
	if fresh {
		return resolved
	}

	base, err := ResolveMirrorToBaseURL(c.mirrorURL, c.resolveTimeout)
	if err != nil {
		if resolved != "" {
			slog.Warn("Mirror re-resolve failed, keeping cached URL", "mirror_url", c.mirrorURL, "error", err, "cached_url", resolved)
			return resolved
		}
		slog.Warn("Mirror resolve failed, using configured base URL", "mirror_url", c.mirrorURL, "error", err, "base_url", c.baseURL)
		return c.baseURL
	}

	c.resolvedMu.Lock()
	c.resolvedURL = base
	c.lastResolveTime = time.Now()
	c.resolvedMu.Unlock()

	slog.Info("Mirror resolved", "mirror_url", c.mirrorURL, "resolved_base", base)
	return base
}

func (c *Client) clearResolvedURL() {
	c.resolvedMu.Lock()
	defer c.resolvedMu.Unlock()
	if c.resolvedURL != "" {
		slog.Debug("Clearing cached URL to force re-resolution", "url", c.resolvedURL)
		c.resolvedURL = ""
	}
}

// ResolveMirrorToBaseURL resolves a mirror page to the actual vendor base URL
// (scheme://host). Tries plain HTTP redirects first, then JavaScript
// execution in a headless browser.
func ResolveMirrorToBaseURL(mirrorURL string, timeout time.Duration) (string, error) {
	resolved, err := resolveMirror(mirrorURL, timeout)
	if err != nil {
		return "", err
	}
	return normalizeResolvedBaseURL(resolved), nil
}

func resolveMirror(mirrorURL string, timeout time.Duration) (string, error) {
	client := &http.Client{
		Timeout: timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return nil
		},
	}

	req, err := http.NewRequest(http.MethodGet, mirrorURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", defaultUserAgent)

	resp, err := client.Do(req)
	if err != nil {
		slog.Info("HTTP mirror request failed, trying JavaScript resolution", "error", err)
		return resolveMirrorWithJS(mirrorURL, timeout)
	}
	defer resp.Body.Close()

	finalURL := resp.Request.URL.String()
	if finalURL != mirrorURL {
		slog.Info("Resolved mirror", "from", mirrorURL, "to", finalURL, "method", "HTTP redirect")
		return finalURL, nil
	}

	// An HTML body that stayed on the mirror domain usually means a
	// JavaScript redirect.
	if strings.Contains(resp.Header.Get("Content-Type"), "text/html") {
		body, err := io.ReadAll(resp.Body)
		if err == nil && (strings.Contains(string(body), "window.location") ||
			strings.Contains(string(body), "location.href")) {
			return resolveMirrorWithJS(mirrorURL, timeout)
		}
	}

	return resolveMirrorWithJS(mirrorURL, timeout)
}

func resolveMirrorWithJS(mirrorURL string, timeout time.Duration) (string, error) {
	chromeMu.Lock()
	defer chromeMu.Unlock()

	chromeDir, err := os.MkdirTemp("", "betdesk_chrome_")
	if err != nil {
		return "", fmt.Errorf("create chrome temp dir: %w", err)
	}
	defer os.RemoveAll(chromeDir)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.UserDataDir(chromeDir),
		chromedp.UserAgent(defaultUserAgent),
	)

	allocCtx, cancel := chromedp.NewExecAllocator(ctx, opts...)
	defer cancel()

	ctx, cancel = chromedp.NewContext(allocCtx)
	defer cancel()

	var finalURL string
	err = chromedp.Run(ctx,
		chromedp.Navigate(mirrorURL),
		chromedp.Sleep(3*time.Second),
		chromedp.Location(&finalURL),
	)
	if err != nil {
		return "", fmt.Errorf("chromedp navigation: %w", err)
	}

	if finalURL == "" || finalURL == mirrorURL {
		err = chromedp.Run(ctx,
			chromedp.Sleep(5*time.Second),
			chromedp.Location(&finalURL),
		)
		if err != nil {
			return "", fmt.Errorf("chromedp wait: %w", err)
		}
	}

	if finalURL == "" {
		return "", fmt.Errorf("mirror did not redirect: %s", mirrorURL)
	}

	slog.Debug("Resolved mirror", "from", mirrorURL, "to", finalURL, "method", "JavaScript redirect")
	return finalURL, nil
}

// normalizeResolvedBaseURL returns scheme://host from a full redirect URL,
// dropping path, query and default ports.
func normalizeResolvedBaseURL(resolved string) string {
	u, err := url.Parse(resolved)
	if err != nil {
		return resolved
	}
	host := u.Hostname()
	port := u.Port()
	if port != "" && port != "80" && port != "443" {
		host = net.JoinHostPort(u.Hostname(), port)
	}
	return u.Scheme + "://" + host
}
