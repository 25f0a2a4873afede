package domain

import "time"

// SearchQuery is an incoming price comparison request. Immutable once issued;
// the cache key is derived from its normalized form.
type SearchQuery struct {
	Items     []string `json:"items" binding:"required"`
	Address   string   `json:"address"`
	ZipCode   string   `json:"zipCode"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	// NearbyStores, when supplied by the caller, skips store discovery.
	NearbyStores []string `json:"nearbyStores,omitempty"`
}

// Store is one retailer candidate near the requested location
type Store struct {
	Name     string  `json:"name"`
	Address  string  `json:"address"`
	Distance string  `json:"distance,omitempty"`
	Rating   float64 `json:"rating,omitempty"`
}

// ItemPrice is one priced item inside a store's result
type ItemPrice struct {
	Name         string  `json:"name"`
	Price        float64 `json:"price"`
	ConfidenceOK bool    `json:"confidenceOk"`
	IsEstimated  bool    `json:"isEstimated"`
}

// StorePriceResult is the per-store view of a comparison. Always rebuilt from
// match results during aggregation; TotalPrice is recomputed from Items and
// never trusted from upstream.
type StorePriceResult struct {
	Store      Store       `json:"store"`
	Items      []ItemPrice `json:"items"`
	TotalPrice float64     `json:"totalPrice"`
	Savings    float64     `json:"savings"`
	IsBestDeal bool        `json:"isBestDeal"`
}

// PriceComparison is the externally visible aggregation result. Stores are
// sorted ascending by TotalPrice; exactly the first store carries IsBestDeal
// when at least one store exists.
type PriceComparison struct {
	Location      string             `json:"location"`
	Items         []string           `json:"items"`
	Stores        []StorePriceResult `json:"stores"`
	MajorStores   []string           `json:"majorStores"`
	LocalStores   []string           `json:"localStores"`
	CheapestStore string             `json:"cheapestStore"`
	TotalSavings  float64            `json:"totalSavings"`
}

// CacheEntry wraps a comparison for the TTL cache
type CacheEntry struct {
	Key          string          `json:"key"`
	Result       PriceComparison `json:"result"`
	CreatedAt    time.Time       `json:"createdAt"`
	NearbyStores []Store         `json:"nearbyStores,omitempty"`
}

// SearchRecord is the analytics snapshot written after each pipeline run.
// Writes are fire-and-forget and never block the response path.
type SearchRecord struct {
	Address       string    `json:"address"`
	ZipCode       string    `json:"zipCode"`
	Items         []string  `json:"items"`
	StoreCount    int       `json:"storeCount"`
	CheapestStore string    `json:"cheapestStore"`
	TotalSavings  float64   `json:"totalSavings"`
	FromCache     bool      `json:"fromCache"`
	DurationMS    int64     `json:"durationMs"`
	CreatedAt     time.Time `json:"createdAt"`
}
