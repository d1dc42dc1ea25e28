// Package fred fetches observations from the Federal Reserve Bank of
// St. Louis (FRED) API for the fixed set of series configured in
// undertow. It wraps internal/httpclient with FRED's auth, rate limiting,
// and response shape.
package fred

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"golang.org/x/time/rate"

	"github.com/derickschaefer/undertow/internal/httpclient"
)

const defaultBaseURL = "https://api.stlouisfed.org/fred/"

// Client is the FRED API HTTP client.
type Client struct {
	baseURL string
	apiKey  string
	http    *httpclient.Client
	limiter *rate.Limiter
	debug   bool
}

// New creates a Client with the given API key, base URL, rate limit
// (requests/sec), and debug flag. Each attempt uses
// httpclient.DefaultTimeout.
func New(apiKey, baseURL string, ratePerSec float64, debug bool) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	burst := int(ratePerSec)
	if burst < 1 {
		burst = 1
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    httpclient.New("fred", httpclient.DefaultTimeout),
		limiter: rate.NewLimiter(rate.Limit(ratePerSec), burst),
		debug:   debug,
	}
}

// get performs a rate-limited GET against a FRED endpoint and decodes the
// JSON response into out.
func (c *Client) get(ctx context.Context, endpoint string, params url.Values, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	params.Set("api_key", c.apiKey)
	params.Set("file_type", "json")
	reqURL := c.baseURL + endpoint + "?" + params.Encode()

	if c.debug {
		safe := strings.Replace(reqURL, c.apiKey, "REDACTED", 1)
		slog.Debug("fred request", "url", safe)
	}

	body, err := c.http.Get(ctx, reqURL, map[string]string{
		"Accept":     "application/json",
		"User-Agent": "undertow/1.0",
	})
	if err != nil {
		return err
	}

	if c.debug {
		slog.Debug("fred response", "bytes", len(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
