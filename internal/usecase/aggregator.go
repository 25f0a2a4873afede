package usecase

import (
	"sort"
	"strings"

	"github.com/pricecart/backend/internal/domain"
)

// Aggregator merges per-item, per-store match results and fallback estimates
// into the final ranked comparison. Pure computation, single-threaded.
type Aggregator struct{}

// NewAggregator creates a new aggregation engine
func NewAggregator() *Aggregator {
	return &Aggregator{}
}

// Aggregate builds a PriceComparison from all match results and estimates of
// one query. Totals are recomputed from item prices, stores are sorted
// ascending by total, savings are measured against the priciest store, and
// stores with zero priced items are dropped entirely.
func (a *Aggregator) Aggregate(location string, items []string, nearbyStores []domain.Store, matches []domain.MatchResult, estimates []domain.StoreEstimate) *domain.PriceComparison {
	storeInfo := make(map[string]domain.Store, len(nearbyStores))
	for _, store := range nearbyStores {
		storeInfo[strings.ToLower(store.Name)] = store
	}

	// Group prices by store, keeping each query item at most once per store.
	// Match results win over estimates for the same (store, item) slot.
	type storeBucket struct {
		name  string
		items map[string]domain.ItemPrice
	}
	buckets := make(map[string]*storeBucket)
	bucket := func(storeName string) *storeBucket {
		key := strings.ToLower(storeName)
		b, ok := buckets[key]
		if !ok {
			b = &storeBucket{name: storeName, items: make(map[string]domain.ItemPrice)}
			buckets[key] = b
		}
		return b
	}

	for _, match := range matches {
		if match.Selected == nil || match.Selected.Price <= 0 {
			continue
		}
		b := bucket(match.StoreName)
		if _, exists := b.items[strings.ToLower(match.Item)]; exists {
			continue
		}
		b.items[strings.ToLower(match.Item)] = domain.ItemPrice{
			Name:         match.Item,
			Price:        match.Selected.Price,
			ConfidenceOK: match.ConfidenceOK,
			IsEstimated:  false,
		}
	}

	for _, estimate := range estimates {
		b := bucket(estimate.Store)
		for _, entry := range estimate.Items {
			if entry.Price <= 0 {
				continue
			}
			if _, exists := b.items[strings.ToLower(entry.Item)]; exists {
				continue
			}
			b.items[strings.ToLower(entry.Item)] = domain.ItemPrice{
				Name:         entry.Item,
				Price:        entry.Price,
				ConfidenceOK: false,
				IsEstimated:  true,
			}
		}
	}

	// Build per-store results; a store with zero priced items contributes no
	// price signal and is dropped
	results := make([]domain.StorePriceResult, 0, len(buckets))
	for key, b := range buckets {
		if len(b.items) == 0 {
			continue
		}

		store := domain.Store{Name: b.name}
		if info, ok := storeInfo[key]; ok {
			store = info
		}

		result := domain.StorePriceResult{Store: store}
		// Item order follows the original query
		for _, item := range items {
			if price, ok := b.items[strings.ToLower(item)]; ok {
				result.Items = append(result.Items, price)
				result.TotalPrice += price.Price
			}
		}
		if len(result.Items) == 0 {
			continue
		}
		result.TotalPrice = roundCents(result.TotalPrice)
		results = append(results, result)
	}

	// Ascending by total price; names break ties so output is stable
	sort.Slice(results, func(i, j int) bool {
		if results[i].TotalPrice != results[j].TotalPrice {
			return results[i].TotalPrice < results[j].TotalPrice
		}
		return results[i].Store.Name < results[j].Store.Name
	})

	comparison := &domain.PriceComparison{
		Location: location,
		Items:    items,
		Stores:   results,
	}

	if len(results) > 0 {
		worst := results[len(results)-1].TotalPrice
		for i := range results {
			results[i].Savings = roundCents(worst - results[i].TotalPrice)
			results[i].IsBestDeal = i == 0
		}
		comparison.CheapestStore = results[0].Store.Name
		comparison.TotalSavings = results[0].Savings
	}

	for _, result := range results {
		if isMajorChain(result.Store.Name) {
			comparison.MajorStores = append(comparison.MajorStores, result.Store.Name)
		} else {
			comparison.LocalStores = append(comparison.LocalStores, result.Store.Name)
		}
	}

	return comparison
}
