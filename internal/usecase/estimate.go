package usecase

import (
	"context"
	"hash/fnv"
	"log"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/pricecart/backend/internal/domain"
)

// Store tier multipliers for synthetic pricing
const (
	discountTierMultiplier = 0.85
	midTierMultiplier      = 1.0
	premiumTierMultiplier  = 1.35

	syntheticBaseMin = 1.50
	syntheticBaseMax = 8.00
)

// discountChains and premiumChains drive tier classification for synthetic
// prices; everything else is mid-tier
var discountChains = []string{"aldi", "walmart", "winco", "lidl", "dollar", "food 4 less", "grocery outlet"}
var premiumChains = []string{"whole foods", "central market", "sprouts", "fresh market", "earth fare", "erewhon", "gelson"}

// EstimateResolverConfig holds configuration for the estimate resolver
type EstimateResolverConfig struct {
	Timeout            time.Duration
	EnableDebugLogging bool
}

// EstimateResolver produces per-store price estimates for stores that had no
// confident listing match. The generative provider is tried first; malformed
// or failed output falls through to a deterministic synthetic generator, so
// the pipeline always gets a number, never an error. Every price produced
// here is flagged as estimated.
type EstimateResolver struct {
	genClient          domain.GenerativeClient
	timeout            time.Duration
	enableDebugLogging bool
}

// NewEstimateResolver creates a new estimate resolver. genClient may be nil,
// in which case only the synthetic generator runs.
func NewEstimateResolver(genClient domain.GenerativeClient, config EstimateResolverConfig) *EstimateResolver {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}

	return &EstimateResolver{
		genClient:          genClient,
		timeout:            timeout,
		enableDebugLogging: config.EnableDebugLogging,
	}
}

// EstimateForStores produces one StoreEstimate per store. Each store is an
// independent outbound call, so stores run in parallel.
func (r *EstimateResolver) EstimateForStores(ctx context.Context, itemsByStore map[string][]string, location string) []domain.StoreEstimate {
	stores := make([]string, 0, len(itemsByStore))
	for store := range itemsByStore {
		if len(itemsByStore[store]) > 0 {
			stores = append(stores, store)
		}
	}
	if len(stores) == 0 {
		return nil
	}

	estimates := make([]domain.StoreEstimate, len(stores))
	var wg sync.WaitGroup
	for i, store := range stores {
		wg.Add(1)
		go func(slot int, storeName string) {
			defer wg.Done()
			estimates[slot] = r.estimateStore(ctx, storeName, itemsByStore[storeName], location)
		}(i, store)
	}
	wg.Wait()

	return estimates
}

// estimateStore produces the estimate for a single store
func (r *EstimateResolver) estimateStore(ctx context.Context, store string, items []string, location string) domain.StoreEstimate {
	if r.genClient != nil {
		callCtx, cancel := context.WithTimeout(ctx, r.timeout)
		estimate, err := r.genClient.EstimateStorePrices(callCtx, store, items, location)
		cancel()

		if err == nil {
			if fixed, ok := reconcileEstimate(estimate, store, items); ok {
				if r.enableDebugLogging {
					log.Printf("[ESTIMATE] generative estimate for %s: %d items, total %.2f", store, len(fixed.Items), fixed.TotalPrice)
				}
				return *fixed
			}
			log.Printf("[ESTIMATE] generative estimate for %s missing items, using synthetic prices", store)
		} else {
			log.Printf("[ESTIMATE] generative estimate failed for %s: %v", store, err)
		}
	}

	return syntheticEstimate(store, items)
}

// reconcileEstimate validates a generative estimate against the requested
// items. Prices for items the model skipped are filled synthetically; the
// total is always recomputed.
func reconcileEstimate(estimate *domain.StoreEstimate, store string, items []string) (*domain.StoreEstimate, bool) {
	if estimate == nil || len(estimate.Items) == 0 {
		return nil, false
	}

	priced := make(map[string]float64, len(estimate.Items))
	for _, entry := range estimate.Items {
		if entry.Price > 0 {
			priced[strings.ToLower(strings.TrimSpace(entry.Item))] = entry.Price
		}
	}
	if len(priced) == 0 {
		return nil, false
	}

	out := &domain.StoreEstimate{
		Store:    estimate.Store,
		Address:  estimate.Address,
		Distance: estimate.Distance,
	}
	if out.Store == "" {
		out.Store = store
	}

	total := 0.0
	for _, item := range items {
		price, ok := priced[strings.ToLower(strings.TrimSpace(item))]
		if !ok {
			price = syntheticPrice(store, item)
		}
		out.Items = append(out.Items, domain.EstimatedItem{Item: item, Price: price})
		total += price
	}
	out.TotalPrice = roundCents(total)

	return out, true
}

// syntheticEstimate builds a fully fabricated estimate for one store
func syntheticEstimate(store string, items []string) domain.StoreEstimate {
	estimate := domain.StoreEstimate{Store: store}

	total := 0.0
	for _, item := range items {
		price := syntheticPrice(store, item)
		estimate.Items = append(estimate.Items, domain.EstimatedItem{Item: item, Price: price})
		total += price
	}
	estimate.TotalPrice = roundCents(total)

	return estimate
}

// syntheticPrice derives a deterministic, plausible price for (store, item):
// the item name hashes into a base band, the store tier scales it, and a
// small per-store jitter keeps identical items from pricing identically
// everywhere.
func syntheticPrice(store, item string) float64 {
	base := syntheticBaseMin + hashFraction(strings.ToLower(item))*(syntheticBaseMax-syntheticBaseMin)

	// jitter in [-0.08, +0.08] keyed off the (store, item) pair
	jitter := (hashFraction(strings.ToLower(store)+"|"+strings.ToLower(item)) - 0.5) * 0.16

	price := base * storeTierMultiplier(store) * (1 + jitter)
	return roundCents(price)
}

// storeTierMultiplier classifies a store into discount/mid/premium
func storeTierMultiplier(store string) float64 {
	name := strings.ToLower(store)
	for _, chain := range discountChains {
		if strings.Contains(name, chain) {
			return discountTierMultiplier
		}
	}
	for _, chain := range premiumChains {
		if strings.Contains(name, chain) {
			return premiumTierMultiplier
		}
	}
	return midTierMultiplier
}

// hashFraction maps a string onto [0,1) deterministically
func hashFraction(s string) float64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return float64(h.Sum64()%10000) / 10000.0
}

// roundCents rounds to two decimal places
func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
