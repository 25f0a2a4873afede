package shopping

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/pricecart/backend/internal/domain"
)

// searchPayload is the raw provider response shape
type searchPayload struct {
	ShoppingResults []rawListing `json:"shoppingResults"`
}

// rawListing is one raw product record as returned by the provider
type rawListing struct {
	Position       int     `json:"position"`
	Title          string  `json:"title"`
	Price          string  `json:"price"`
	ExtractedPrice float64 `json:"extractedPrice"`
	Source         string  `json:"source"`
	Link           string  `json:"link"`
	Rating         float64 `json:"rating"`
	Thumbnail      string  `json:"thumbnail"`
}

var priceDigitsRegex = regexp.MustCompile(`[\d.]+`)

// mapToListings converts the raw provider payload to domain CandidateListings.
// Records without a usable title or price are dropped.
func mapToListings(payload *searchPayload) []domain.CandidateListing {
	listings := make([]domain.CandidateListing, 0, len(payload.ShoppingResults))

	for _, raw := range payload.ShoppingResults {
		title := strings.TrimSpace(raw.Title)
		if title == "" {
			continue
		}

		price := raw.ExtractedPrice
		if price <= 0 {
			price = parsePriceString(raw.Price)
		}
		if price <= 0 {
			continue
		}

		listings = append(listings, domain.CandidateListing{
			Title:       title,
			Price:       price,
			SourceStore: strings.TrimSpace(raw.Source),
			ProductURL:  raw.Link,
			Rating:      raw.Rating,
			ImageURL:    raw.Thumbnail,
		})
	}

	return listings
}

// parsePriceString extracts a numeric price from display strings like "$2.57"
func parsePriceString(s string) float64 {
	match := priceDigitsRegex.FindString(s)
	if match == "" {
		return 0
	}
	price, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0
	}
	return price
}
