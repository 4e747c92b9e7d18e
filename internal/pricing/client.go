// SPDX-License-Identifier: MIT

package pricing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/stayware/rategate/internal/metrics"
)

// maxErrorBody caps how much of an upstream error reply is kept around.
const maxErrorBody = 2048

// Client talks to the upstream pricing oracle. The oracle is rate-limited,
// so every call waits on a client-side limiter before going out.
type Client struct {
	url     string
	token   string
	http    *http.Client
	limiter *rate.Limiter
	logger  zerolog.Logger
}

// NewClient creates an oracle client. rps/burst throttle outbound calls to
// what the oracle tolerates.
func NewClient(url, token string, rps float64, burst int, logger zerolog.Logger) *Client {
	if rps <= 0 {
		rps = 10
	}
	if burst <= 0 {
		burst = 1
	}
	return &Client{
		url:     strings.TrimRight(url, "/"),
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		logger:  logger,
	}
}

// Quote POSTs the attribute records to the oracle and decodes the priced
// reply. Non-2xx replies come back as *StatusError.
func (c *Client) Quote(ctx context.Context, attrs []Attributes) ([]Rate, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("upstream rate limit wait: %w", err)
	}

	body, err := json.Marshal(attrs)
	if err != nil {
		return nil, fmt.Errorf("encode pricing request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build pricing request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	res, err := c.http.Do(req)
	if err != nil {
		metrics.RecordUpstreamRequest("error", time.Since(start))
		return nil, fmt.Errorf("pricing request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		metrics.RecordUpstreamRequest("status_error", time.Since(start))
		b, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
		c.logger.Warn().
			Int("status", res.StatusCode).
			Msg("upstream pricing call failed")
		return nil, &StatusError{Code: res.StatusCode, Body: string(b)}
	}

	var rates []Rate
	if err := json.NewDecoder(res.Body).Decode(&rates); err != nil {
		metrics.RecordUpstreamRequest("decode_error", time.Since(start))
		return nil, fmt.Errorf("decode pricing response: %w", err)
	}

	metrics.RecordUpstreamRequest("ok", time.Since(start))
	return rates, nil
}
