package genai

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/pricecart/backend/internal/domain"
)

// Client wraps the generative-text provider for the fallback tiers: nearby
// store enumeration when place search fails, and price estimation when no
// confident listing match exists.
type Client struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	debug   bool
}

// Config holds generative provider settings
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// NewClient creates a new generative provider client
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("generative provider API key is required")
	}

	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}

	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}

	return &Client{
		client:  openai.NewClientWithConfig(config),
		model:   model,
		timeout: timeout,
	}, nil
}

// SetDebug enables verbose prompt/response logging
func (c *Client) SetDebug(debug bool) {
	c.debug = debug
}

var codeFenceOpenRegex = regexp.MustCompile("^\\s*```[a-zA-Z]*\\s*")
var codeFenceCloseRegex = regexp.MustCompile("\\s*```\\s*$")

// stripMarkdownFences removes triple-backtick fences some models wrap JSON in
func stripMarkdownFences(text string) string {
	text = strings.TrimSpace(text)
	text = codeFenceOpenRegex.ReplaceAllString(text, "")
	text = codeFenceCloseRegex.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// complete runs one chat completion with the configured timeout and returns
// the raw content with markdown fences stripped
func (c *Client) complete(ctx context.Context, system, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if c.debug {
		log.Printf("[GENAI] prompt: %s", prompt)
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty completion", domain.ErrUpstreamUnavailable)
	}

	content := stripMarkdownFences(resp.Choices[0].Message.Content)
	if c.debug {
		log.Printf("[GENAI] response: %s", content)
	}
	return content, nil
}

// storeListPayload is the expected store enumeration shape
type storeListPayload struct {
	Stores []struct {
		Name    string `json:"name"`
		Address string `json:"address"`
	} `json:"stores"`
}

// ListNearbyStores asks the model for plausible grocery retailers near the
// given locale. Used only when the primary place provider fails.
func (c *Client) ListNearbyStores(ctx context.Context, address, zipCode string) ([]domain.Store, error) {
	locale := strings.TrimSpace(strings.TrimSpace(address) + " " + strings.TrimSpace(zipCode))

	system := "You list real grocery retailers for US locales. Return JSON with key \"stores\": an array of {\"name\", \"address\"} objects. Only include chains and markets that plausibly operate near the locale."
	prompt := fmt.Sprintf("List up to 8 grocery stores a shopper could visit near: %s", locale)

	content, err := c.complete(ctx, system, prompt)
	if err != nil {
		return nil, err
	}

	var payload storeListPayload
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return nil, fmt.Errorf("malformed store list: %w", err)
	}

	stores := make([]domain.Store, 0, len(payload.Stores))
	for _, s := range payload.Stores {
		name := strings.TrimSpace(s.Name)
		if name == "" {
			continue
		}
		stores = append(stores, domain.Store{
			Name:    name,
			Address: strings.TrimSpace(s.Address),
		})
	}
	return stores, nil
}

// EstimateStorePrices asks the model for realistic per-item prices at one
// store. The prompt anchors prices to market bands per store tier so outputs
// stay plausible; malformed responses are an error so the caller can fall
// through to the synthetic generator.
func (c *Client) EstimateStorePrices(ctx context.Context, store string, items []string, location string) (*domain.StoreEstimate, error) {
	system := "You estimate US grocery prices. Return JSON: {\"store\", \"address\", \"distance\", \"items\": [{\"item\", \"price\"}], \"totalPrice\"}. " +
		"Prices must be realistic market prices in USD: discount chains (Aldi, Walmart, Winco) at the low end, " +
		"mid-tier chains (Kroger, Target, Safeway) near average, premium chains (Whole Foods, Central Market) 20-40% above average. " +
		"Every requested item must appear exactly once."
	prompt := fmt.Sprintf("Estimate current prices at %q near %s for these items: %s",
		store, location, strings.Join(items, ", "))

	content, err := c.complete(ctx, system, prompt)
	if err != nil {
		return nil, err
	}

	var estimate domain.StoreEstimate
	if err := json.Unmarshal([]byte(content), &estimate); err != nil {
		return nil, fmt.Errorf("malformed estimate: %w", err)
	}
	if len(estimate.Items) == 0 {
		return nil, fmt.Errorf("malformed estimate: no items")
	}
	for _, item := range estimate.Items {
		if item.Price <= 0 {
			return nil, fmt.Errorf("malformed estimate: non-positive price for %q", item.Item)
		}
	}
	if estimate.Store == "" {
		estimate.Store = store
	}

	return &estimate, nil
}
