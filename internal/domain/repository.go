package domain

import (
	"context"
	"time"
)

// CacheRepository defines the interface for caching operations. Entries are
// JSON documents keyed by a deterministic hash; Get returns ErrCacheMiss for
// absent or expired keys.
type CacheRepository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// PurgeExpired removes expired entries eagerly and reports how many were deleted.
	PurgeExpired(ctx context.Context) (int, error)
}

// PlaceClient defines the interface for the primary place-search provider
type PlaceClient interface {
	SearchNearby(ctx context.Context, address, zipCode string, radiusMeters int) ([]Store, error)
}

// ShoppingClient defines the interface for the external shopping-data provider
type ShoppingClient interface {
	SearchListings(ctx context.Context, item, location string) ([]CandidateListing, error)
}

// MatcherClient defines the interface for the semantic matcher subservice
type MatcherClient interface {
	MatchProducts(ctx context.Context, req *MatchRequest) (*MatchResponse, error)
	Health(ctx context.Context) error
}

// GenerativeClient defines the interface for the generative-text provider used
// by the fallback tiers
type GenerativeClient interface {
	ListNearbyStores(ctx context.Context, address, zipCode string) ([]Store, error)
	EstimateStorePrices(ctx context.Context, store string, items []string, location string) (*StoreEstimate, error)
}

// AnalyticsSink defines the interface for the asynchronous persistence sink
type AnalyticsSink interface {
	RecordSearch(ctx context.Context, rec *SearchRecord) error
	PruneOlderThan(ctx context.Context, age time.Duration) (int, error)
	Ping(ctx context.Context) error
}
