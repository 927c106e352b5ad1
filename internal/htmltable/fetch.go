package htmltable

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
	maxBody          = 32 << 20
)

// DefaultBackoffs are the waits before each fetch attempt.
var DefaultBackoffs = []time.Duration{0, 500 * time.Millisecond, 1 * time.Second, 2 * time.Second}

// StatusError reports a non-success HTTP response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("bad status %d: %s", e.Code, e.Body)
}

// Page is a fetched document and the URL it was finally served from.
type Page struct {
	HTML string
	URL  *url.URL
}

// Fetcher downloads pages with a bounded retry on network errors, 5xx and 429.
type Fetcher struct {
	Client    *http.Client
	Backoffs  []time.Duration
	UserAgent string
	Log       zerolog.Logger
}

// NewClient returns an HTTP client with keepalives and dial timeouts.
func NewClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 60 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}

// NewFetcher returns a Fetcher with the default backoffs.
func NewFetcher(timeout time.Duration, log zerolog.Logger) *Fetcher {
	return &Fetcher{
		Client:    NewClient(timeout),
		Backoffs:  DefaultBackoffs,
		UserAgent: defaultUserAgent,
		Log:       log,
	}
}

// Fetch GETs rawURL.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (Page, error) {
	backoffs := f.Backoffs
	if len(backoffs) == 0 {
		backoffs = []time.Duration{0}
	}
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}

	var lastErr error
	for i, d := range backoffs {
		if d > 0 {
			select {
			case <-time.After(d):
			case <-ctx.Done():
				return Page{}, ctx.Err()
			}
		}
		page, retry, err := f.once(ctx, client, rawURL)
		if err == nil {
			return page, nil
		}
		if !retry || ctx.Err() != nil {
			return Page{}, err
		}
		lastErr = err
		if i < len(backoffs)-1 {
			f.Log.Warn().Err(err).Str("url", rawURL).Int("attempt", i+1).Msg("fetch failed, retrying")
		}
	}
	return Page{}, fmt.Errorf("fetch %s: %w", rawURL, lastErr)
}

func (f *Fetcher) once(ctx context.Context, client *http.Client, rawURL string) (Page, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Page{}, false, err
	}
	ua := f.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	req.Header.Set("User-Agent", ua)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := client.Do(req)
	if err != nil {
		// network errors are retried
		return Page{}, !errors.Is(err, context.Canceled), err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return Page{}, true, &StatusError{Code: resp.StatusCode, Body: resp.Status}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return Page{}, false, &StatusError{Code: resp.StatusCode, Body: string(b)}
	}

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return Page{}, true, err
	}
	return Page{HTML: string(b), URL: resp.Request.URL}, false, nil
}

// FetchGrid fetches rawURL and parses the table matched by selector.
func (f *Fetcher) FetchGrid(ctx context.Context, rawURL, selector string) (Grid, error) {
	page, err := f.Fetch(ctx, rawURL)
	if err != nil {
		return Grid{}, err
	}
	return ParseHTML(page.HTML, selector)
}
