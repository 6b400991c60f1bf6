package quote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rickgao/stockfeed/internal/rng"
)

// Remote fetches quotes from an upstream REST endpoint:
//
//	GET {baseURL}/stocks/{symbol}
//
// Server errors and 429s are retried with jittered exponential backoff; other
// upstream failures are returned as *Error with the upstream status.
type Remote struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
	src        rng.Source

	maxRetries   int
	retryBackoff time.Duration
}

// RemoteOption configures a Remote.
type RemoteOption func(*Remote)

// NewRemote creates a Remote source.
func NewRemote(baseURL, apiKey string, opts ...RemoteOption) *Remote {
	r := &Remote{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger:       slog.Default(),
		src:          rng.New(0),
		maxRetries:   2,
		retryBackoff: 200 * time.Millisecond,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) RemoteOption {
	return func(r *Remote) {
		r.httpClient.Timeout = d
	}
}

// WithRetries sets the retry configuration.
func WithRetries(max int, backoff time.Duration) RemoteOption {
	return func(r *Remote) {
		r.maxRetries = max
		r.retryBackoff = backoff
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) RemoteOption {
	return func(r *Remote) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) RemoteOption {
	return func(r *Remote) {
		r.httpClient = hc
	}
}

// Quote fetches the current quote for symbol.
func (r *Remote) Quote(ctx context.Context, symbol string) (Quote, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	body, err := r.doWithRetry(ctx, "/stocks/"+url.PathEscape(symbol))
	if err != nil {
		var qe *Error
		if errors.As(err, &qe) && qe.StatusCode == http.StatusNotFound && qe.Message == "" {
			qe.Message = "Stock not found: " + symbol
		}
		return Quote{}, err
	}

	var q Quote
	if err := json.Unmarshal(body, &q); err != nil {
		return Quote{}, fmt.Errorf("unmarshal quote: %w", err)
	}
	return q, nil
}

func retryable(status int) bool {
	return status >= 500 || status == http.StatusTooManyRequests
}

// doRequest performs one GET request.
func (r *Remote) doRequest(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if r.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.apiKey)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, &Error{
			StatusCode: resp.StatusCode,
			Message:    upstreamMessage(body),
		}
	}

	return body, nil
}

// doWithRetry performs a request with exponential backoff retry.
func (r *Remote) doWithRetry(ctx context.Context, path string) ([]byte, error) {
	var lastErr error
	backoff := r.retryBackoff

	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		if attempt > 0 {
			// Add jitter: backoff * (0.5 to 1.5)
			jitter := backoff/2 + rng.DurationBetween(r.src, 0, backoff)
			r.logger.Debug("retrying request",
				"attempt", attempt,
				"backoff", jitter,
				"path", path,
			)

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(jitter):
			}

			backoff *= 2
		}

		body, err := r.doRequest(ctx, path)
		if err == nil {
			return body, nil
		}

		lastErr = err

		var qe *Error
		if !errors.As(err, &qe) || !retryable(qe.StatusCode) {
			return nil, err
		}
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

// upstreamMessage extracts an error message from a JSON error body.
func upstreamMessage(body []byte) string {
	var e struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &e) != nil {
		return ""
	}
	if e.Error != "" {
		return e.Error
	}
	return e.Message
}
