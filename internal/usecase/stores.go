package usecase

import "strings"

// majorChains are well-known grocery chains. Used two ways: relaxed
// single-word store-name matching is allowed only for these, and the
// aggregator buckets stores into major vs local with this list.
var majorChains = []string{
	"walmart", "wal-mart", "wal mart",
	"kroger", "kroger marketplace",
	"h-e-b", "heb", "h.e.b",
	"tom thumb",
	"target",
	"aldi",
	"costco",
	"albertsons",
	"publix",
	"whole foods", "whole foods market",
	"trader joe", "trader joes",
	"safeway",
	"wegmans",
	"meijer",
	"hy-vee",
	"shoprite",
	"stop & shop",
	"giant",
	"harris teeter",
	"food lion",
	"ralphs",
	"fred meyer",
	"king soopers",
	"smiths",
	"frys",
	"qfc",
	"marianos",
	"jewel-osco",
	"acme",
	"shaws",
	"star market",
	"vons",
	"pavilions",
	"randalls",
	"market street",
	"central market",
	"sprouts",
	"fresh market",
	"earth fare",
}

// isMajorChain reports whether the store name belongs to a well-known chain
func isMajorChain(storeName string) bool {
	name := strings.ToLower(strings.TrimSpace(storeName))
	for _, chain := range majorChains {
		if strings.Contains(name, chain) {
			return true
		}
	}
	return false
}

// matchStoreNames decides whether a listing source store refers to the same
// retailer as a requested nearby store. Exact case-insensitive match works
// for everyone; single-word overlap (e.g. "Walmart" vs "Walmart Neighborhood
// Market") is honored only for major chains, so small stores with generic
// words in their names don't cross-match.
func matchStoreNames(sourceStore, nearbyStore string) bool {
	source := strings.ToLower(strings.TrimSpace(sourceStore))
	nearby := strings.ToLower(strings.TrimSpace(nearbyStore))

	if source == "" || nearby == "" {
		return false
	}
	if source == nearby {
		return true
	}

	if !isMajorChain(source) && !isMajorChain(nearby) {
		return false
	}

	sourceWords := storeNameWords(source)
	nearbyWords := storeNameWords(nearby)
	for word := range sourceWords {
		if nearbyWords[word] {
			return true
		}
	}
	return false
}

// storeNameWords splits a store name into significant words (single letters skipped)
func storeNameWords(name string) map[string]bool {
	words := make(map[string]bool)
	for _, word := range strings.Fields(name) {
		if len(word) > 1 {
			words[word] = true
		}
	}
	return words
}
