// Package fetch is the one HTTP path provider clients share: every call
// goes through the process-wide gateway, and provider throttling is
// translated into gateway.RateLimitedError so the gateway's bounded
// backoff-and-retry applies uniformly.
package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/tokenscout/tokenscout/internal/gateway"
)

// DefaultTimeout bounds a single provider call. The upstream system let
// calls run forever; the timeout is a deliberate hardening change.
const DefaultTimeout = 30 * time.Second

// NewHTTPClient returns the http.Client provider packages should use.
func NewHTTPClient() *http.Client {
	return &http.Client{Timeout: DefaultTimeout}
}

// GetJSON performs a gateway-limited GET against url, applying the given
// headers, and decodes the response body into out.
func GetJSON(ctx context.Context, gw *gateway.Gateway, hc *http.Client, url string, header http.Header, out any) error {
	return gw.Execute(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return fmt.Errorf("fetch: build request: %w", err)
		}
		for k, vals := range header {
			for _, v := range vals {
				req.Header.Add(k, v)
			}
		}
		req.Header.Set("Accept", "application/json")

		resp, err := hc.Do(req)
		if err != nil {
			return fmt.Errorf("fetch: %s: %w", url, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests {
			return &gateway.RateLimitedError{RetryAfter: retryAfter(resp)}
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return fmt.Errorf("fetch: %s: unexpected status %d: %s", url, resp.StatusCode, body)
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("fetch: %s: decode response: %w", url, err)
		}
		return nil
	})
}

// retryAfter reads the Retry-After header as whole seconds. Zero means
// the provider sent no usable hint.
func retryAfter(resp *http.Response) time.Duration {
	v := resp.Header.Get("Retry-After")
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
