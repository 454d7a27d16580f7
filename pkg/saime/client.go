// Package saime queries the SAIME civil registry for the identity form of a
// document.
package saime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

const (
	DefaultEndpoint  = "https://controlfronterizo.saime.gob.ve/index.php?r=dregistro/dregistro/cedula"
	DefaultOrigin    = "http://controlfronterizo.saime.gob.ve"
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
		"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	maxRedirects = 10
	maxBodySize  = 2 << 20
)

// Options configures a Client. Zero values fall back to the defaults.
type Options struct {
	Endpoint  string
	Origin    string
	UserAgent string
	Timeout   time.Duration

	// RequestsPerSecond paces outbound requests; zero or less disables it.
	RequestsPerSecond float64
	Burst             int

	Transport http.RoundTripper
}

// Client posts the registry form and returns the raw HTML answer.
type Client struct {
	http      *http.Client
	endpoint  string
	origin    string
	userAgent string
	timeout   time.Duration
	limiter   *rate.Limiter
	group     singleflight.Group
}

// New creates a Client.
func New(opts Options) *Client {
	if opts.Endpoint == "" {
		opts.Endpoint = DefaultEndpoint
	}
	if opts.Origin == "" {
		opts.Origin = DefaultOrigin
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Transport == nil {
		opts.Transport = http.DefaultTransport
	}

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	if opts.Burst <= 0 {
		opts.Burst = 1
	}

	return &Client{
		http: &http.Client{
			Timeout:   opts.Timeout,
			Transport: otelhttp.NewTransport(opts.Transport),
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("stopped after %d redirects", maxRedirects)
				}
				return nil
			},
		},
		endpoint:  opts.Endpoint,
		origin:    opts.Origin,
		userAgent: opts.UserAgent,
		timeout:   opts.Timeout,
		limiter:   rate.NewLimiter(limit, opts.Burst),
	}
}

// Fetch returns the registry page for a document. docType is trimmed and
// upper-cased. Concurrent calls for the same document share one request,
// which runs detached from any single caller and is bounded by the client
// timeout; each caller stops waiting when its own ctx is done.
func (c *Client) Fetch(ctx context.Context, document int64, docType string) (string, error) {
	docType = strings.ToUpper(strings.TrimSpace(docType))
	number := strconv.FormatInt(document, 10)

	ch := c.group.DoChan(docType+number, func() (any, error) {
		shared, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()
		return c.fetch(shared, number, docType)
	})

	select {
	case <-ctx.Done():
		category := ErrorInternal
		if isTimeout(ctx.Err()) {
			category = ErrorTimeout
		}
		return "", &FetchError{Category: category, Message: "stopped waiting for registry", Underlying: ctx.Err()}
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		if res.Shared {
			slog.Debug("Shared upstream request", "type", docType)
		}
		return res.Val.(string), nil
	}
}

func (c *Client) fetch(ctx context.Context, number, docType string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", &FetchError{Category: ErrorTimeout, Message: "waiting for request slot", Underlying: err}
	}

	form := url.Values{}
	form.Set("Dregistro[letra]", docType)
	form.Set("Dregistro[num_cedula]", number)
	form.Set("yt0", "CONSULTAR")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", &FetchError{Category: ErrorInternal, Message: "failed to build request", Underlying: err}
	}
	req.Header.Set("Referer", c.origin)
	req.Header.Set("Origin", c.origin)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "es-ES,es;q=0.9,en;q=0.8")
	req.Header.Set("Upgrade-Insecure-Requests", "1")

	resp, err := c.http.Do(req)
	if err != nil {
		if isTimeout(err) {
			return "", &FetchError{Category: ErrorTimeout, Message: "registry did not answer in time", Underlying: err}
		}
		return "", &FetchError{Category: ErrorOutage, Message: "failed to reach registry", Underlying: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", &FetchError{Category: ErrorRateLimited, StatusCode: resp.StatusCode, Message: "registry is throttling requests"}
	case resp.StatusCode >= 500:
		return "", &FetchError{Category: ErrorOutage, StatusCode: resp.StatusCode, Message: "registry failed"}
	case resp.StatusCode != http.StatusOK:
		return "", &FetchError{Category: ErrorBadStatus, StatusCode: resp.StatusCode, Message: "unexpected status code"}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		if isTimeout(err) {
			return "", &FetchError{Category: ErrorTimeout, Message: "registry answer timed out", Underlying: err}
		}
		return "", &FetchError{Category: ErrorInternal, Message: "failed to read response", Underlying: err}
	}

	return string(body), nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
