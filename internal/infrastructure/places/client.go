package places

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/pricecart/backend/internal/domain"
)

// Client handles communication with the place-search provider
type Client struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
	debug      bool
}

// NewClient creates a new place-search API client
func NewClient(apiKey, baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		apiKey:     apiKey,
		baseURL:    baseURL,
	}
}

// SetDebug enables verbose request/response logging
func (c *Client) SetDebug(debug bool) {
	c.debug = debug
}

// textSearchRequest is the provider's text-search request body
type textSearchRequest struct {
	TextQuery      string `json:"textQuery"`
	MaxResultCount int    `json:"maxResultCount"`
}

// textSearchResponse is the provider's text-search response body
type textSearchResponse struct {
	Places []struct {
		DisplayName struct {
			Text string `json:"text"`
		} `json:"displayName"`
		FormattedAddress string  `json:"formattedAddress"`
		Rating           float64 `json:"rating"`
	} `json:"places"`
}

// SearchNearby queries the provider for grocery stores near the given address
func (c *Client) SearchNearby(ctx context.Context, address, zipCode string, radiusMeters int) ([]domain.Store, error) {
	query := buildPlaceQuery(address, zipCode)
	if c.debug {
		log.Printf("[PLACES] SearchNearby query: %q radius: %dm", query, radiusMeters)
	}

	reqBody, err := json.Marshal(textSearchRequest{
		TextQuery:      query,
		MaxResultCount: 20,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	reqURL := fmt.Sprintf("%s/places:searchText", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, "POST", reqURL, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-Api-Key", c.apiKey)
	req.Header.Set("X-Goog-FieldMask", "places.displayName,places.formattedAddress,places.rating")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: status %d, body: %s", domain.ErrUpstreamUnavailable, resp.StatusCode, string(body))
	}

	var payload textSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	stores := make([]domain.Store, 0, len(payload.Places))
	for _, place := range payload.Places {
		name := strings.TrimSpace(place.DisplayName.Text)
		if name == "" {
			continue
		}
		stores = append(stores, domain.Store{
			Name:    name,
			Address: strings.TrimSpace(place.FormattedAddress),
			Rating:  place.Rating,
		})
	}

	if c.debug {
		log.Printf("[PLACES] Found %d stores for query: %q", len(stores), query)
	}
	return stores, nil
}

// buildPlaceQuery builds the provider text query for nearby grocery retailers
func buildPlaceQuery(address, zipCode string) string {
	location := strings.TrimSpace(address)
	if zip := strings.TrimSpace(zipCode); zip != "" {
		if location != "" {
			location = location + " " + zip
		} else {
			location = zip
		}
	}
	return fmt.Sprintf("grocery stores near %s", location)
}
