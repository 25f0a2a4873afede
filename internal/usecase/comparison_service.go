package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pricecart/backend/internal/domain"
)

// ComparisonServiceConfig holds configuration for the comparison pipeline
type ComparisonServiceConfig struct {
	CacheTTL           time.Duration
	ItemSearchDelay    time.Duration
	EnableDebugLogging bool
}

// ComparisonService runs the full price aggregation pipeline:
// cache lookup -> store discovery -> per-item listing search -> match
// resolution -> estimate fallback -> aggregation -> async persistence.
// Partial upstream failures degrade quality (more estimated prices), never
// availability.
type ComparisonService struct {
	cache            domain.CacheRepository
	shoppingClient   domain.ShoppingClient
	placeResolver    *PlaceResolver
	matchResolver    *MatchResolver
	estimateResolver *EstimateResolver
	aggregator       *Aggregator
	analytics        domain.AnalyticsSink

	cacheTTL        time.Duration
	itemSearchDelay time.Duration
	debug           bool
}

// NewComparisonService creates the pipeline with its dependencies
func NewComparisonService(
	cache domain.CacheRepository,
	shoppingClient domain.ShoppingClient,
	placeResolver *PlaceResolver,
	matchResolver *MatchResolver,
	estimateResolver *EstimateResolver,
	analytics domain.AnalyticsSink,
	config ComparisonServiceConfig,
) *ComparisonService {
	cacheTTL := config.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 24 * time.Hour
	}
	itemDelay := config.ItemSearchDelay
	if itemDelay <= 0 {
		itemDelay = 750 * time.Millisecond
	}

	return &ComparisonService{
		cache:            cache,
		shoppingClient:   shoppingClient,
		placeResolver:    placeResolver,
		matchResolver:    matchResolver,
		estimateResolver: estimateResolver,
		aggregator:       NewAggregator(),
		analytics:        analytics,
		cacheTTL:         cacheTTL,
		itemSearchDelay:  itemDelay,
		debug:            config.EnableDebugLogging,
	}
}

// ComparisonResult pairs the comparison with pipeline metadata
type ComparisonResult struct {
	Comparison *domain.PriceComparison
	FromCache  bool
}

// ComparePrices resolves a shopping list plus a location into a ranked price
// comparison across nearby retailers
func (s *ComparisonService) ComparePrices(ctx context.Context, query *domain.SearchQuery) (*ComparisonResult, error) {
	if err := validateQuery(query); err != nil {
		return nil, err
	}

	started := time.Now()
	cacheKey := GenerateCacheKey(query)

	// Cache hit short-circuits the whole pipeline
	if entry := s.getCachedEntry(ctx, cacheKey); entry != nil {
		if s.debug {
			log.Printf("[PIPELINE] cache hit for key %s", cacheKey[:12])
		}
		s.recordAsync(query, &entry.Result, true, time.Since(started))
		return &ComparisonResult{Comparison: &entry.Result, FromCache: true}, nil
	}

	location := formatLocation(query)

	// Store discovery, skipped when the caller brought their own list
	nearbyStores, err := s.resolveStores(ctx, query)
	if err != nil {
		if errors.Is(err, domain.ErrNoStoresFound) {
			// Empty comparison, not an error
			empty := &domain.PriceComparison{Location: location, Items: query.Items, Stores: []domain.StorePriceResult{}}
			return &ComparisonResult{Comparison: empty}, nil
		}
		return nil, err
	}

	storeNames := make([]string, len(nearbyStores))
	for i, store := range nearbyStores {
		storeNames[i] = store.Name
	}

	// Sequential per-item search keeps the provider's rate limits happy; a
	// failed item never aborts the rest
	listingsByItem := s.searchListings(ctx, query.Items, location)

	// Match resolution runs parallel across items: each item writes only its
	// own slot
	itemMatches := make([]*ItemMatches, len(query.Items))
	var wg sync.WaitGroup
	for i, item := range query.Items {
		wg.Add(1)
		go func(slot int, itemName string) {
			defer wg.Done()
			itemMatches[slot] = s.matchResolver.ResolveItem(ctx, itemName, listingsByItem[slot], storeNames)
		}(i, item)
	}
	wg.Wait()

	var allMatches []domain.MatchResult
	itemsNeedingEstimate := make(map[string][]string) // store -> items
	for _, matches := range itemMatches {
		allMatches = append(allMatches, matches.Results...)
		for _, store := range matches.StoresNeedingEstimate {
			itemsNeedingEstimate[store] = append(itemsNeedingEstimate[store], matches.Item)
		}
	}

	// Estimate fallback for (store, item) slots with no candidate listings
	estimates := s.estimateResolver.EstimateForStores(ctx, itemsNeedingEstimate, location)

	comparison := s.aggregator.Aggregate(location, query.Items, nearbyStores, allMatches, estimates)

	if s.debug {
		log.Printf("[PIPELINE] aggregated %d stores (%d matches, %d estimates) in %s",
			len(comparison.Stores), len(allMatches), len(estimates), time.Since(started))
	}

	// Cache write and analytics record run detached from the response path
	s.cacheAsync(cacheKey, comparison, nearbyStores)
	s.recordAsync(query, comparison, false, time.Since(started))

	return &ComparisonResult{Comparison: comparison}, nil
}

// PurgeExpiredCache removes expired cache entries and aged analytics rows,
// returning the number of deleted cache entries
func (s *ComparisonService) PurgeExpiredCache(ctx context.Context, analyticsRetention time.Duration) (int, error) {
	deleted, err := s.cache.PurgeExpired(ctx)
	if err != nil {
		return 0, err
	}

	if s.analytics != nil && analyticsRetention > 0 {
		if pruned, err := s.analytics.PruneOlderThan(ctx, analyticsRetention); err != nil {
			log.Printf("[PIPELINE] analytics prune failed: %v", err)
		} else if pruned > 0 {
			log.Printf("[PIPELINE] pruned %d aged analytics rows", pruned)
		}
	}

	return deleted, nil
}

// ComponentHealth reports the reachability of each optional dependency
type ComponentHealth struct {
	Matcher   string `json:"matcher"`
	Analytics string `json:"analytics"`
}

// Health probes the matcher subservice and the analytics datastore. Both are
// optional dependencies, so an unreachable component is reported, not fatal.
func (s *ComparisonService) Health(ctx context.Context) ComponentHealth {
	health := ComponentHealth{Matcher: "disabled", Analytics: "disabled"}

	if s.matchResolver != nil && s.matchResolver.matcherClient != nil {
		if err := s.matchResolver.matcherClient.Health(ctx); err != nil {
			health.Matcher = "unreachable"
		} else {
			health.Matcher = "ok"
		}
	}

	if s.analytics != nil {
		if err := s.analytics.Ping(ctx); err != nil {
			health.Analytics = "unreachable"
		} else {
			health.Analytics = "ok"
		}
	}

	return health
}

// validateQuery rejects requests the pipeline cannot act on
func validateQuery(query *domain.SearchQuery) error {
	if query == nil {
		return domain.ErrInvalidRequest
	}
	if len(query.Items) == 0 {
		return fmt.Errorf("%w: items are required", domain.ErrInvalidRequest)
	}
	for _, item := range query.Items {
		if strings.TrimSpace(item) == "" {
			return fmt.Errorf("%w: empty item name", domain.ErrInvalidRequest)
		}
	}
	if strings.TrimSpace(query.Address) == "" && strings.TrimSpace(query.ZipCode) == "" {
		return fmt.Errorf("%w: address or zip code is required", domain.ErrInvalidRequest)
	}
	return nil
}

// resolveStores discovers nearby stores, honoring a caller-supplied list
func (s *ComparisonService) resolveStores(ctx context.Context, query *domain.SearchQuery) ([]domain.Store, error) {
	if len(query.NearbyStores) > 0 {
		stores := make([]domain.Store, 0, len(query.NearbyStores))
		seen := make(map[string]bool)
		for _, name := range query.NearbyStores {
			name = strings.TrimSpace(name)
			if name == "" || seen[strings.ToLower(name)] {
				continue
			}
			seen[strings.ToLower(name)] = true
			stores = append(stores, domain.Store{Name: name})
		}
		if len(stores) > 0 {
			return stores, nil
		}
	}

	return s.placeResolver.Resolve(ctx, query.Address, query.ZipCode)
}

// searchListings runs the sequential per-item provider search. Index i of
// the returned slice holds item i's listings; failures yield empty slices.
func (s *ComparisonService) searchListings(ctx context.Context, items []string, location string) [][]domain.CandidateListing {
	results := make([][]domain.CandidateListing, len(items))

	for i, item := range items {
		if i > 0 {
			time.Sleep(s.itemSearchDelay)
		}

		listings, err := s.shoppingClient.SearchListings(ctx, item, location)
		if err != nil {
			log.Printf("[PIPELINE] listing search failed for %q: %v", item, err)
			results[i] = nil
			continue
		}
		results[i] = listings
	}

	return results
}

// getCachedEntry returns a valid cache entry or nil
func (s *ComparisonService) getCachedEntry(ctx context.Context, key string) *domain.CacheEntry {
	data, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, domain.ErrCacheMiss) {
			log.Printf("[PIPELINE] cache read failed: %v", err)
		}
		return nil
	}

	var entry domain.CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		log.Printf("[PIPELINE] corrupt cache entry dropped: %v", err)
		s.cache.Delete(ctx, key)
		return nil
	}

	// Defense in depth: the backend enforces TTL, but an entry written with a
	// longer TTL by an older build must still read as a miss after 24h
	if time.Since(entry.CreatedAt) > s.cacheTTL {
		s.cache.Delete(ctx, key)
		return nil
	}

	return &entry
}

// cacheAsync persists the comparison without blocking the response path
func (s *ComparisonService) cacheAsync(key string, comparison *domain.PriceComparison, nearbyStores []domain.Store) {
	entry := domain.CacheEntry{
		Key:          key,
		Result:       *comparison,
		CreatedAt:    time.Now(),
		NearbyStores: nearbyStores,
	}

	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("[PIPELINE] cache write panic recovered: %v", r)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.cache.Set(ctx, key, entry, s.cacheTTL); err != nil {
			log.Printf("[PIPELINE] cache write failed: %v", err)
		}
	}()
}

// recordAsync ships the analytics snapshot on a detached goroutine with its
// own error boundary; the caller never waits on it
func (s *ComparisonService) recordAsync(query *domain.SearchQuery, comparison *domain.PriceComparison, fromCache bool, took time.Duration) {
	if s.analytics == nil {
		return
	}

	rec := &domain.SearchRecord{
		Address:       query.Address,
		ZipCode:       query.ZipCode,
		Items:         append([]string(nil), query.Items...),
		StoreCount:    len(comparison.Stores),
		CheapestStore: comparison.CheapestStore,
		TotalSavings:  comparison.TotalSavings,
		FromCache:     fromCache,
		DurationMS:    took.Milliseconds(),
		CreatedAt:     time.Now(),
	}

	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("[PIPELINE] analytics write panic recovered: %v", r)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.analytics.RecordSearch(ctx, rec); err != nil {
			log.Printf("[PIPELINE] analytics write failed: %v", err)
		}
	}()
}

// GenerateCacheKey derives the deterministic cache key of a query: items are
// lower-cased and order-independent, the address is lower-cased, the zip is
// trimmed, and coordinates are rounded to ~110m so GPS jitter from the same
// spot shares an entry.
func GenerateCacheKey(query *domain.SearchQuery) string {
	items := make([]string, len(query.Items))
	for i, item := range query.Items {
		items[i] = strings.ToLower(strings.TrimSpace(item))
	}
	sort.Strings(items)

	var sb strings.Builder
	sb.WriteString(strings.Join(items, "|"))
	sb.WriteString("#")
	sb.WriteString(strings.ToLower(strings.TrimSpace(query.Address)))
	sb.WriteString("#")
	sb.WriteString(strings.TrimSpace(query.ZipCode))
	if query.Latitude != nil && query.Longitude != nil {
		sb.WriteString(fmt.Sprintf("#%.3f,%.3f", roundCoord(*query.Latitude), roundCoord(*query.Longitude)))
	}

	sum := sha256.Sum256([]byte(sb.String()))
	return hex.EncodeToString(sum[:])
}

// roundCoord rounds a coordinate to 3 decimal places
func roundCoord(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// formatLocation builds the human-readable location string used for provider
// queries and in the comparison payload
func formatLocation(query *domain.SearchQuery) string {
	address := strings.TrimSpace(query.Address)
	zip := strings.TrimSpace(query.ZipCode)
	switch {
	case address != "" && zip != "":
		return address + " " + zip
	case address != "":
		return address
	default:
		return zip
	}
}
