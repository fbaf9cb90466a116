// Package feed fetches raw departure payloads from the upstream real-time
// API and decodes each supported payload format into predictions.
package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/soundch3z/homeassistant-aseag-next-bus/internal/logging"
)

// MaxBodySize caps how much of an upstream response is read.
const MaxBodySize = 5 * 1024 * 1024

// UserAgent is sent with every upstream request; the ASEAG broker rejects
// some default client agents.
const UserAgent = "curl/7.64.1"

var (
	ErrUnexpectedStatus = errors.New("unexpected response status")
	ErrBodyTooLarge     = errors.New("response body exceeds size limit")
)

// Client performs single-attempt GET requests against the upstream API.
type Client struct {
	httpClient *http.Client
	headers    map[string]string
}

// NewClient returns a Client whose requests are bounded by timeout. TLS
// certificates are verified.
func NewClient(timeout time.Duration) *Client {
	var transport *http.Transport
	if t, ok := http.DefaultTransport.(*http.Transport); ok {
		transport = t.Clone()
	} else {
		transport = &http.Transport{}
	}
	transport.MaxIdleConns = 4
	transport.MaxIdleConnsPerHost = 2
	transport.IdleConnTimeout = 90 * time.Second
	transport.TLSHandshakeTimeout = timeout

	return &Client{
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		headers: map[string]string{"User-Agent": UserAgent},
	}
}

// Get fetches url once and returns the response body.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", url, err)
	}
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}

	defer logging.SafeCloseWithLogging(resp.Body,
		logging.FromContext(ctx).With(slog.String("component", "feed_client")),
		"http_response_body")

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s returned %s", ErrUnexpectedStatus, url, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if int64(len(body)) > MaxBodySize {
		return nil, fmt.Errorf("%w of %d bytes", ErrBodyTooLarge, MaxBodySize)
	}
	return body, nil
}
