package usecase

import (
	"context"
	"log"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/pricecart/backend/internal/domain"
)

// Package-level compiled regex pattern for performance
var punctuationRegex = regexp.MustCompile(`[^\w\s]`)

// Heuristic scoring bonuses used when the matcher subservice is unreachable
const (
	substringBonus  = 0.20 // query contained in title (or vice versa)
	lowPriceBonus   = 0.05 // cheapest candidate in the store's pool
	scoreTieEpsilon = 1e-9
)

// stopWords are tokens that carry no matching signal in product titles
var stopWords = map[string]bool{
	"a": true, "an": true, "the": true, "and": true, "or": true,
	"of": true, "in": true, "on": true, "at": true, "to": true,
	"for": true, "with": true, "by": true, "from": true, "is": true,
	// size/quantity units
	"oz": true, "fl": true, "lb": true, "lbs": true, "ml": true,
	"gallon": true, "gal": true, "quart": true, "pint": true, "liter": true,
	"gram": true, "grams": true, "kg": true, "ounce": true, "ounces": true,
	// packaging terms
	"pack": true, "count": true, "ct": true, "pk": true,
	"box": true, "bag": true, "bottle": true, "can": true,
	"carton": true, "container": true, "jar": true, "tub": true,
	// marketing noise
	"size": true, "value": true, "family": true, "each": true, "per": true,
}

// MatchResolverConfig holds configuration for the match resolver
type MatchResolverConfig struct {
	ConfidenceThreshold float64
	TieDelta            float64
	Weights             map[string]float64
	EnableDebugLogging  bool
}

// MatchResolver decides, per requested item and per target store, which raw
// listing (if any) represents the item. Scoring is delegated to the matcher
// subservice; a local heuristic takes over when that service is unreachable.
type MatchResolver struct {
	matcherClient       domain.MatcherClient
	confidenceThreshold float64
	tieDelta            float64
	weights             map[string]float64
	enableDebugLogging  bool
}

// NewMatchResolver creates a new match resolver with the given configuration
func NewMatchResolver(matcherClient domain.MatcherClient, config MatchResolverConfig) *MatchResolver {
	threshold := config.ConfidenceThreshold
	if threshold <= 0 {
		threshold = 0.55
	}
	tieDelta := config.TieDelta
	if tieDelta <= 0 {
		tieDelta = 0.05
	}

	return &MatchResolver{
		matcherClient:       matcherClient,
		confidenceThreshold: threshold,
		tieDelta:            tieDelta,
		weights:             config.Weights,
		enableDebugLogging:  config.EnableDebugLogging,
	}
}

// ItemMatches is the outcome of resolving one item across all target stores
type ItemMatches struct {
	Item string
	// Results holds one MatchResult per store that had candidate listings
	Results []domain.MatchResult
	// StoresNeedingEstimate are target stores with no candidate listings at all
	StoresNeedingEstimate []string
}

// ResolveItem matches one item's query against the pooled candidate listings
// for every target store
func (r *MatchResolver) ResolveItem(ctx context.Context, item string, listings []domain.CandidateListing, targetStores []string) *ItemMatches {
	grouped := groupListingsByStore(listings)

	out := &ItemMatches{Item: item}
	for _, target := range targetStores {
		storeListings := findStoreListings(grouped, target)
		if len(storeListings) == 0 {
			out.StoresNeedingEstimate = append(out.StoresNeedingEstimate, target)
			continue
		}

		result := r.resolveStore(ctx, item, target, storeListings)
		out.Results = append(out.Results, result)
	}

	return out
}

// resolveStore picks the best candidate for one (item, store) pair
func (r *MatchResolver) resolveStore(ctx context.Context, item, storeName string, listings []domain.CandidateListing) domain.MatchResult {
	if r.matcherClient != nil {
		resp, err := r.matcherClient.MatchProducts(ctx, &domain.MatchRequest{
			Query:         item,
			Candidates:    listings,
			Weights:       r.weights,
			ConfThreshold: r.confidenceThreshold,
			TieDelta:      r.tieDelta,
		})
		if err == nil && resp.Selected != nil {
			reason := domain.MatchReasonFuzzy
			if resp.ExactMatch {
				reason = domain.MatchReasonExact
			}
			if r.enableDebugLogging {
				log.Printf("[MATCH] %q @ %s -> %q score=%.3f ok=%v", item, storeName, resp.Selected.Title, resp.Score, resp.ConfidenceOK)
			}
			return domain.MatchResult{
				Item:         item,
				StoreName:    storeName,
				Selected:     resp.Selected,
				Score:        resp.Score,
				ConfidenceOK: resp.ConfidenceOK,
				Reason:       reason,
				ExactMatch:   resp.ExactMatch,
			}
		}
		if err != nil {
			log.Printf("[MATCH] subservice unavailable for %q @ %s, using heuristic: %v", item, storeName, err)
		}
	}

	return r.heuristicMatch(item, storeName, listings)
}

// heuristicMatch is the local fallback scorer: token overlap with a substring
// containment bonus and a smaller bonus for the cheapest candidate. Ties go
// to the listing priced closest to the store's median, which dampens
// single-outlier mis-picks.
func (r *MatchResolver) heuristicMatch(item, storeName string, listings []domain.CandidateListing) domain.MatchResult {
	queryTokens := tokenize(item)
	queryLower := strings.ToLower(item)
	cheapest := cheapestPrice(listings)
	median := medianPrice(listings)

	var best []int // indices sharing the top score
	bestScore := -1.0
	scores := make([]float64, len(listings))

	for i, listing := range listings {
		score := tokenOverlapScore(queryTokens, tokenize(listing.Title))

		titleLower := strings.ToLower(listing.Title)
		if len(queryLower) > 3 && (strings.Contains(titleLower, queryLower) || strings.Contains(queryLower, titleLower)) {
			score += substringBonus
		}
		if listing.Price > 0 && listing.Price == cheapest {
			score += lowPriceBonus
		}

		scores[i] = score
		switch {
		case score > bestScore+scoreTieEpsilon:
			bestScore = score
			best = []int{i}
		case math.Abs(score-bestScore) <= scoreTieEpsilon:
			best = append(best, i)
		}
	}

	if len(best) == 0 {
		return domain.MatchResult{
			Item:      item,
			StoreName: storeName,
			Reason:    domain.MatchReasonNone,
		}
	}

	// Tie-break: price closest to the store's median
	chosen := best[0]
	if len(best) > 1 {
		bestDist := math.Inf(1)
		for _, idx := range best {
			dist := math.Abs(listings[idx].Price - median)
			if dist < bestDist {
				bestDist = dist
				chosen = idx
			}
		}
	}

	selected := listings[chosen]
	if r.enableDebugLogging {
		log.Printf("[MATCH] heuristic %q @ %s -> %q score=%.3f", item, storeName, selected.Title, scores[chosen])
	}

	return domain.MatchResult{
		Item:         item,
		StoreName:    storeName,
		Selected:     &selected,
		Score:        scores[chosen],
		ConfidenceOK: true,
		Reason:       domain.MatchReasonFallback,
		ExactMatch:   false,
	}
}

// groupListingsByStore buckets pooled listings by their source store
func groupListingsByStore(listings []domain.CandidateListing) map[string][]domain.CandidateListing {
	grouped := make(map[string][]domain.CandidateListing)
	for _, listing := range listings {
		if listing.SourceStore == "" {
			continue
		}
		grouped[listing.SourceStore] = append(grouped[listing.SourceStore], listing)
	}
	return grouped
}

// findStoreListings returns the listing group whose source store refers to
// the requested nearby store. Groups are checked in sorted order so the
// mapping is deterministic.
func findStoreListings(grouped map[string][]domain.CandidateListing, nearbyStore string) []domain.CandidateListing {
	sources := make([]string, 0, len(grouped))
	for source := range grouped {
		sources = append(sources, source)
	}
	sort.Strings(sources)

	for _, source := range sources {
		if matchStoreNames(source, nearbyStore) {
			return grouped[source]
		}
	}
	return nil
}

// tokenize splits a string into normalized lowercase tokens, dropping
// punctuation, stop words, and pure numbers
func tokenize(s string) []string {
	cleaned := punctuationRegex.ReplaceAllString(strings.ToLower(s), " ")

	var tokens []string
	for _, word := range strings.Fields(cleaned) {
		if len(word) <= 1 {
			continue
		}
		if stopWords[word] {
			continue
		}
		if isNumeric(word) {
			continue
		}
		tokens = append(tokens, word)
	}
	return tokens
}

// isNumeric checks if a string contains only digits
func isNumeric(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return len(s) > 0
}

// tokenOverlapScore is the fraction of query tokens present in the title
func tokenOverlapScore(queryTokens, titleTokens []string) float64 {
	if len(queryTokens) == 0 {
		return 0
	}

	titleSet := make(map[string]bool, len(titleTokens))
	for _, token := range titleTokens {
		titleSet[token] = true
	}

	matched := 0
	for _, token := range queryTokens {
		if titleSet[token] {
			matched++
		}
	}
	return float64(matched) / float64(len(queryTokens))
}

// cheapestPrice returns the lowest positive price in the pool
func cheapestPrice(listings []domain.CandidateListing) float64 {
	cheapest := math.Inf(1)
	for _, listing := range listings {
		if listing.Price > 0 && listing.Price < cheapest {
			cheapest = listing.Price
		}
	}
	if math.IsInf(cheapest, 1) {
		return 0
	}
	return cheapest
}

// medianPrice returns the median of positive prices in the pool
func medianPrice(listings []domain.CandidateListing) float64 {
	prices := make([]float64, 0, len(listings))
	for _, listing := range listings {
		if listing.Price > 0 {
			prices = append(prices, listing.Price)
		}
	}
	if len(prices) == 0 {
		return 0
	}

	sort.Float64s(prices)
	mid := len(prices) / 2
	if len(prices)%2 == 0 {
		return (prices[mid-1] + prices[mid]) / 2
	}
	return prices[mid]
}
