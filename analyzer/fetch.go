package analyzer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/net/html/charset"
)

// ErrPageUnreachable is the single failure a caller sees when the page
// cannot be retrieved through the relay.
var ErrPageUnreachable = errors.New("page unreachable")

// DefaultRelayURL is the CORS relay pages are fetched through. The
// URL-encoded target is appended to it.
const DefaultRelayURL = "https://corsproxy.io/?"

const userAgent = "SEOCheck/1.0"

// Fetcher retrieves raw HTML through an HTTP relay
type Fetcher struct {
	client   *http.Client
	relayURL string
	maxBytes int64
}

// NewFetcher creates a fetcher bounded by timeout and maxBytes
func NewFetcher(relayURL string, timeout time.Duration, maxBytes int64) *Fetcher {
	if relayURL == "" {
		relayURL = DefaultRelayURL
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	return &Fetcher{
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(transport),
		},
		relayURL: relayURL,
		maxBytes: maxBytes,
	}
}

// Fetch returns the target page decoded to UTF-8. Every failure wraps
// ErrPageUnreachable.
func (f *Fetcher) Fetch(ctx context.Context, target string) ([]byte, error) {
	u, err := url.Parse(target)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: invalid url %q", ErrPageUnreachable, target)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.relayURL+url.QueryEscape(u.String()), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageUnreachable, err)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: relay returned status %d", ErrPageUnreachable, resp.StatusCode)
	}

	var body io.Reader = resp.Body
	if f.maxBytes > 0 {
		// one byte past the cap tells an oversized page from one that fits
		body = io.LimitReader(resp.Body, f.maxBytes+1)
	}

	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageUnreachable, err)
	}
	if f.maxBytes > 0 && int64(len(raw)) > f.maxBytes {
		return nil, fmt.Errorf("%w: page exceeds %d bytes", ErrPageUnreachable, f.maxBytes)
	}

	// Scoring reads UTF-8, so pages served in legacy encodings are decoded first
	decoded, err := charset.NewReader(bytes.NewReader(raw), resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageUnreachable, err)
	}

	data, err := io.ReadAll(decoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageUnreachable, err)
	}

	return data, nil
}
