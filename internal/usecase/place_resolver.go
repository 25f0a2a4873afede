package usecase

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/pricecart/backend/internal/domain"
)

// placeStrategy is one tier of the store discovery chain
type placeStrategy struct {
	name    string
	timeout time.Duration
	resolve func(ctx context.Context) ([]domain.Store, error)
}

// PlaceResolverConfig holds configuration for the place resolver
type PlaceResolverConfig struct {
	RadiusMeters    int
	PrimaryTimeout  time.Duration
	FallbackTimeout time.Duration
}

// PlaceResolver discovers nearby stores through an ordered chain of
// strategies: the primary place-search provider first, then a generative
// fallback. Each tier has its own timeout; an empty result, timeout, or error
// moves on to the next tier. Pure lookup, no side effects.
type PlaceResolver struct {
	placeClient domain.PlaceClient
	genClient   domain.GenerativeClient
	config      PlaceResolverConfig
}

// NewPlaceResolver creates a new place resolver. Either client may be nil,
// which simply removes that tier from the chain.
func NewPlaceResolver(placeClient domain.PlaceClient, genClient domain.GenerativeClient, config PlaceResolverConfig) *PlaceResolver {
	if config.RadiusMeters <= 0 {
		config.RadiusMeters = 8000
	}
	if config.PrimaryTimeout <= 0 {
		config.PrimaryTimeout = 10 * time.Second
	}
	if config.FallbackTimeout <= 0 {
		config.FallbackTimeout = 20 * time.Second
	}

	return &PlaceResolver{
		placeClient: placeClient,
		genClient:   genClient,
		config:      config,
	}
}

// Resolve returns nearby store candidates for the given address/zip,
// deduplicated and with the user's own address excluded. Returns
// ErrNoStoresFound when every tier comes back empty.
func (r *PlaceResolver) Resolve(ctx context.Context, address, zipCode string) ([]domain.Store, error) {
	for _, strategy := range r.strategies(address, zipCode) {
		tierCtx, cancel := context.WithTimeout(ctx, strategy.timeout)
		stores, err := strategy.resolve(tierCtx)
		cancel()

		if err != nil {
			log.Printf("[PLACES] %s tier failed: %v", strategy.name, err)
			continue
		}

		stores = cleanStores(stores, address)
		if len(stores) == 0 {
			log.Printf("[PLACES] %s tier returned no usable stores", strategy.name)
			continue
		}

		log.Printf("[PLACES] resolved %d stores via %s tier", len(stores), strategy.name)
		return stores, nil
	}

	return nil, domain.ErrNoStoresFound
}

// strategies builds the ordered tier list for one lookup
func (r *PlaceResolver) strategies(address, zipCode string) []placeStrategy {
	var chain []placeStrategy

	if r.placeClient != nil {
		chain = append(chain, placeStrategy{
			name:    "primary",
			timeout: r.config.PrimaryTimeout,
			resolve: func(ctx context.Context) ([]domain.Store, error) {
				return r.placeClient.SearchNearby(ctx, address, zipCode, r.config.RadiusMeters)
			},
		})
	}

	if r.genClient != nil {
		chain = append(chain, placeStrategy{
			name:    "generative",
			timeout: r.config.FallbackTimeout,
			resolve: func(ctx context.Context) ([]domain.Store, error) {
				return r.genClient.ListNearbyStores(ctx, address, zipCode)
			},
		})
	}

	return chain
}

// cleanStores deduplicates candidates by name (case-insensitive) and drops
// any candidate whose address textually contains the user's own address, so
// the user's home never shows up as a store.
func cleanStores(stores []domain.Store, userAddress string) []domain.Store {
	seen := make(map[string]bool, len(stores))
	normalizedUser := normalizeAddress(userAddress)

	cleaned := make([]domain.Store, 0, len(stores))
	for _, store := range stores {
		name := strings.TrimSpace(store.Name)
		if name == "" {
			continue
		}

		key := strings.ToLower(name)
		if seen[key] {
			continue
		}

		if normalizedUser != "" && strings.Contains(normalizeAddress(store.Address), normalizedUser) {
			continue
		}

		seen[key] = true
		store.Name = name
		cleaned = append(cleaned, store)
	}

	return cleaned
}

// normalizeAddress lowercases and collapses whitespace for address comparison
func normalizeAddress(address string) string {
	return strings.Join(strings.Fields(strings.ToLower(address)), " ")
}
