package matcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pricecart/backend/internal/domain"
)

// Client talks to the semantic matcher subservice. The subservice's scoring
// model (token-set, embeddings, partial, brand blend) is opaque; only the
// request/response contract below is depended on.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a new matcher subservice client
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
	}
}

// wireCandidate is a candidate listing in the subservice's wire format
type wireCandidate struct {
	Title          string  `json:"title"`
	ExtractedPrice float64 `json:"extractedPrice"`
	Source         string  `json:"source"`
	Link           string  `json:"link,omitempty"`
	Rating         float64 `json:"rating,omitempty"`
	Thumbnail      string  `json:"thumbnail,omitempty"`
}

// wireRequest is the subservice's match request body
type wireRequest struct {
	Query          string             `json:"query"`
	HasdataResults []wireCandidate    `json:"hasdata_results"`
	Weights        map[string]float64 `json:"weights,omitempty"`
	ConfThreshold  float64            `json:"conf_threshold"`
	TieDelta       float64            `json:"tie_delta"`
}

// wireResponse is the subservice's match response body
type wireResponse struct {
	SelectedProduct *wireCandidate `json:"selected_product"`
	Score           float64        `json:"score"`
	ConfidenceOK    bool           `json:"confidence_ok"`
	Reason          string         `json:"reason"`
	ExactMatch      bool           `json:"exact_match"`
	AllCandidates   []struct {
		Candidate wireCandidate `json:"candidate"`
		Score     float64       `json:"score"`
	} `json:"all_candidates"`
}

func toWire(listing domain.CandidateListing) wireCandidate {
	return wireCandidate{
		Title:          listing.Title,
		ExtractedPrice: listing.Price,
		Source:         listing.SourceStore,
		Link:           listing.ProductURL,
		Rating:         listing.Rating,
		Thumbnail:      listing.ImageURL,
	}
}

func fromWire(candidate *wireCandidate) *domain.CandidateListing {
	if candidate == nil {
		return nil
	}
	return &domain.CandidateListing{
		Title:       candidate.Title,
		Price:       candidate.ExtractedPrice,
		SourceStore: candidate.Source,
		ProductURL:  candidate.Link,
		Rating:      candidate.Rating,
		ImageURL:    candidate.Thumbnail,
	}
}

// MatchProducts asks the subservice for the best candidate for one query
func (c *Client) MatchProducts(ctx context.Context, req *domain.MatchRequest) (*domain.MatchResponse, error) {
	wireReq := wireRequest{
		Query:         req.Query,
		Weights:       req.Weights,
		ConfThreshold: req.ConfThreshold,
		TieDelta:      req.TieDelta,
	}
	wireReq.HasdataResults = make([]wireCandidate, 0, len(req.Candidates))
	for _, candidate := range req.Candidates {
		wireReq.HasdataResults = append(wireReq.HasdataResults, toWire(candidate))
	}

	body, err := json.Marshal(wireReq)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	reqURL := fmt.Sprintf("%s/match-products", c.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, "POST", reqURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: status %d, body: %s", domain.ErrUpstreamUnavailable, resp.StatusCode, string(respBody))
	}

	var wireResp wireResponse
	if err := json.NewDecoder(resp.Body).Decode(&wireResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	result := &domain.MatchResponse{
		Selected:     fromWire(wireResp.SelectedProduct),
		Score:        wireResp.Score,
		ConfidenceOK: wireResp.ConfidenceOK,
		Reason:       wireResp.Reason,
		ExactMatch:   wireResp.ExactMatch,
	}
	for _, entry := range wireResp.AllCandidates {
		if mapped := fromWire(&entry.Candidate); mapped != nil {
			result.AllCandidates = append(result.AllCandidates, *mapped)
		}
	}

	return result, nil
}

// Health checks whether the subservice is reachable
func (c *Client) Health(ctx context.Context) error {
	reqURL := fmt.Sprintf("%s/health", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", domain.ErrUpstreamUnavailable, resp.StatusCode)
	}
	return nil
}
