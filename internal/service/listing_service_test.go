package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tokenscout/tokenscout/internal/domain"
)

type fakeListings struct {
	tokens []domain.Token
	err    error
	calls  int
}

func (f *fakeListings) Listings(context.Context) ([]domain.Token, error) {
	f.calls++
	return f.tokens, f.err
}

type fakeMarketCache struct {
	mu       sync.Mutex
	listings map[string][]domain.Token
}

func newFakeMarketCache() *fakeMarketCache {
	return &fakeMarketCache{listings: make(map[string][]domain.Token)}
}

func (f *fakeMarketCache) SetListings(_ context.Context, source string, tokens []domain.Token) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listings[source] = tokens
	return nil
}

func (f *fakeMarketCache) GetListings(_ context.Context, source string) ([]domain.Token, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tokens, ok := f.listings[source]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return tokens, nil
}

func (f *fakeMarketCache) Invalidate(_ context.Context, source string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.listings, source)
	return nil
}

func TestListingServiceMergesProviders(t *testing.T) {
	a := &fakeListings{tokens: []domain.Token{
		{Symbol: "PEPE", Chain: domain.ChainEth, Address: "0xAAA", Source: "alpha"},
	}}
	b := &fakeListings{tokens: []domain.Token{
		{Symbol: "CAKE", Chain: domain.ChainBsc, Address: "0xBBB", Source: "beta"},
	}}
	svc := NewListingService(map[string]ListingsProvider{"alpha": a, "beta": b}, nil, slog.New(slog.DiscardHandler))

	tokens, err := svc.Candidates(context.Background())
	require.NoError(t, err)
	assert.Len(t, tokens, 2)
}

func TestListingServiceDeduplicatesByAddress(t *testing.T) {
	a := &fakeListings{tokens: []domain.Token{
		{Symbol: "PEPE", Chain: domain.ChainEth, Address: "0xAAA", Source: "alpha"},
	}}
	b := &fakeListings{tokens: []domain.Token{
		{Symbol: "PEPE", Chain: domain.ChainEth, Address: "0xaaa", Source: "beta"},
		{Symbol: "WIF", Chain: domain.ChainSol, Source: "beta"},
	}}
	svc := NewListingService(map[string]ListingsProvider{"alpha": a, "beta": b}, nil, slog.New(slog.DiscardHandler))

	tokens, err := svc.Candidates(context.Background())
	require.NoError(t, err)
	assert.Len(t, tokens, 2)
}

func TestListingServiceToleratesProviderFailure(t *testing.T) {
	a := &fakeListings{err: errors.New("rate limited")}
	b := &fakeListings{tokens: []domain.Token{
		{Symbol: "CAKE", Chain: domain.ChainBsc, Address: "0xBBB", Source: "beta"},
	}}
	svc := NewListingService(map[string]ListingsProvider{"alpha": a, "beta": b}, nil, slog.New(slog.DiscardHandler))

	tokens, err := svc.Candidates(context.Background())
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	assert.Equal(t, "CAKE", tokens[0].Symbol)
}

func TestListingServiceAllProvidersFailed(t *testing.T) {
	a := &fakeListings{err: errors.New("down")}
	svc := NewListingService(map[string]ListingsProvider{"alpha": a}, nil, slog.New(slog.DiscardHandler))

	_, err := svc.Candidates(context.Background())
	require.Error(t, err)
}

func TestListingServiceNoProviders(t *testing.T) {
	svc := NewListingService(nil, nil, slog.New(slog.DiscardHandler))
	_, err := svc.Candidates(context.Background())
	require.Error(t, err)
}

func TestListingServiceServesFromCache(t *testing.T) {
	cache := newFakeMarketCache()
	provider := &fakeListings{tokens: []domain.Token{
		{Symbol: "PEPE", Chain: domain.ChainEth, Address: "0xAAA", Source: "alpha"},
	}}
	svc := NewListingService(map[string]ListingsProvider{"alpha": provider}, cache, slog.New(slog.DiscardHandler))

	_, err := svc.Candidates(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, provider.calls)

	// Second pass inside the TTL hits the cache, not the API.
	_, err = svc.Candidates(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, provider.calls)
}
