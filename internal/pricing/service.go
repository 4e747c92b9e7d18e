// SPDX-License-Identifier: MIT

package pricing

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/stayware/rategate/internal/coalesce"
	"github.com/stayware/rategate/internal/fingerprint"
)

// Oracle is the narrow upstream surface the service needs; *Client
// implements it, tests stub it.
type Oracle interface {
	Quote(ctx context.Context, attrs []Attributes) ([]Rate, error)
}

// Service is the pricing adapter: fingerprint the query, fetch through the
// coalescing cache, decode the cached document.
type Service struct {
	cache  *coalesce.Cache
	oracle Oracle
	logger zerolog.Logger
}

// NewService wires the adapter.
func NewService(cache *coalesce.Cache, oracle Oracle, logger zerolog.Logger) *Service {
	return &Service{
		cache:  cache,
		oracle: oracle,
		logger: logger,
	}
}

// FetchPricing returns rates for the given attributes. Empty input yields
// an empty result without touching the cache or the oracle.
func (s *Service) FetchPricing(ctx context.Context, attrs []Attributes) ([]Rate, error) {
	key, ok := fingerprint.Key(records(attrs))
	if !ok {
		return []Rate{}, nil
	}

	payload, err := s.cache.Fetch(ctx, key, func(ctx context.Context) ([]byte, error) {
		rates, err := s.oracle.Quote(ctx, attrs)
		if err != nil {
			return nil, err
		}
		doc, err := json.Marshal(rates)
		if err != nil {
			return nil, fmt.Errorf("encode rates: %w", err)
		}
		return doc, nil
	})
	if err != nil {
		return nil, err
	}

	var rates []Rate
	if err := json.Unmarshal(payload, &rates); err != nil {
		// readFresh already validated the JSON; reaching this means the
		// document shape changed underneath us.
		return nil, fmt.Errorf("decode cached rates for %s: %w", key, err)
	}
	return rates, nil
}
