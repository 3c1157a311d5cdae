package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/tokenscout/tokenscout/internal/domain"
)

// ListingsProvider fetches current token listings from one market-data API.
type ListingsProvider interface {
	Listings(ctx context.Context) ([]domain.Token, error)
}

// ListingService handles token discovery. It queries every configured
// market-data provider, tolerates individual provider failures, merges
// the results, and caches per-provider responses so overlapping scans do
// not refetch within the TTL.
type ListingService struct {
	providers map[string]ListingsProvider
	cache     domain.MarketCache
	logger    *slog.Logger
}

// NewListingService creates a ListingService. The map key is the provider
// name used for cache scoping and logging.
func NewListingService(
	providers map[string]ListingsProvider,
	cache domain.MarketCache,
	logger *slog.Logger,
) *ListingService {
	return &ListingService{
		providers: providers,
		cache:     cache,
		logger:    logger,
	}
}

// Candidates returns the merged listings from all providers. A provider
// failure is logged and its slot skipped; the call errors only when every
// provider failed and nothing usable came back.
func (s *ListingService) Candidates(ctx context.Context) ([]domain.Token, error) {
	if len(s.providers) == 0 {
		return nil, fmt.Errorf("listing_service: no providers configured")
	}

	var (
		mu      sync.Mutex
		results = make(map[string][]domain.Token, len(s.providers))
		g, gctx = errgroup.WithContext(ctx)
	)
	for name, provider := range s.providers {
		g.Go(func() error {
			tokens, err := s.fetchOne(gctx, name, provider)
			if err != nil {
				s.logger.WarnContext(gctx, "listing_service: provider fetch failed",
					slog.String("provider", name),
					slog.String("error", err.Error()),
				)
				return nil
			}
			mu.Lock()
			results[name] = tokens
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	merged := mergeListings(results)
	if len(merged) == 0 {
		return nil, fmt.Errorf("listing_service: all providers failed")
	}

	s.logger.InfoContext(ctx, "listing_service: candidates fetched",
		slog.Int("providers", len(results)),
		slog.Int("tokens", len(merged)),
	)
	return merged, nil
}

// fetchOne serves a provider's listings from cache when fresh, falling
// back to the live API and back-filling the cache on success.
func (s *ListingService) fetchOne(ctx context.Context, name string, provider ListingsProvider) ([]domain.Token, error) {
	if s.cache != nil {
		if cached, err := s.cache.GetListings(ctx, name); err == nil && len(cached) > 0 {
			return cached, nil
		}
	}

	tokens, err := provider.Listings(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil && len(tokens) > 0 {
		if cacheErr := s.cache.SetListings(ctx, name, tokens); cacheErr != nil {
			s.logger.WarnContext(ctx, "listing_service: cache set failed",
				slog.String("provider", name),
				slog.String("error", cacheErr.Error()),
			)
		}
	}
	return tokens, nil
}

// mergeListings flattens per-provider results, deduplicating by contract
// address when present and by (chain, symbol) otherwise. The first
// provider to report a token wins; map iteration order makes ties
// arbitrary but the fields are near-identical across providers.
func mergeListings(results map[string][]domain.Token) []domain.Token {
	seen := make(map[string]bool)
	var merged []domain.Token
	for _, tokens := range results {
		for _, token := range tokens {
			key := strings.ToLower(token.Address)
			if key == "" {
				key = string(token.Chain) + ":" + strings.ToUpper(token.Symbol)
			}
			if seen[key] {
				continue
			}
			seen[key] = true
			merged = append(merged, token)
		}
	}
	return merged
}
