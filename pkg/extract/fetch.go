package extract

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/tributary-data/tributary/pkg/errors"
)

// Fetcher is the shared HTTP layer for the network-backed extractors.
// Every request goes out with an explicit User-Agent and a politeness
// delay, and retryable failures (connection, timeout, throttling) are
// retried under the configured policy.
type Fetcher struct {
	client    *http.Client
	userAgent string
	delay     time.Duration
	retry     *RetryPolicy
}

// NewFetcher creates a Fetcher with the given timeout, inter-request
// delay, User-Agent, and retry policy.
func NewFetcher(timeout, delay time.Duration, userAgent string, retry *RetryPolicy) *Fetcher {
	return &Fetcher{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
		delay:     delay,
		retry:     retry,
	}
}

// Get fetches a URL and returns the response body, retrying on
// retryable failures. Used directly for artifact downloads (book cover
// images) in addition to backing the HTML extractors.
func (f *Fetcher) Get(ctx context.Context, url string) ([]byte, error) {
	return f.getBytes(ctx, url)
}

// getBytes fetches a URL and returns the response body, retrying on
// retryable failures.
func (f *Fetcher) getBytes(ctx context.Context, url string) ([]byte, error) {
	var body []byte
	err := f.retry.ExecuteWithCondition(ctx, func() error {
		var err error
		body, err = f.getOnce(ctx, url)
		return err
	}, errors.IsRetryable)
	return body, err
}

// getDocument fetches a URL and parses the body as HTML.
func (f *Fetcher) getDocument(ctx context.Context, url string) (*goquery.Document, error) {
	body, err := f.getBytes(ctx, url)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to parse HTML").WithDetail("url", url)
	}
	return doc, nil
}

func (f *Fetcher) getOnce(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeInternal, "failed to create request").WithDetail("url", url)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "HTTP request failed").WithDetail("url", url)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := statusError(resp.StatusCode, url); err != nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to read response body").WithDetail("url", url)
	}

	// Politeness delay between requests to the same host.
	if f.delay > 0 {
		timer := time.NewTimer(f.delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	return body, nil
}

// statusError maps a non-success HTTP status to a typed error so the
// retry condition can distinguish transient from permanent failures.
func statusError(code int, url string) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusTooManyRequests:
		return errors.New(errors.ErrorTypeRateLimit, "request throttled").WithDetail("url", url).WithDetail("status", code)
	case code == http.StatusNotFound:
		return errors.New(errors.ErrorTypeNotFound, "resource not found").WithDetail("url", url)
	case code >= 500:
		return errors.Newf(errors.ErrorTypeConnection, "server error %d", code).WithDetail("url", url)
	default:
		return errors.Newf(errors.ErrorTypeData, "unexpected status %d", code).WithDetail("url", url)
	}
}
