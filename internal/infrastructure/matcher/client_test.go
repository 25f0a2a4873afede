package matcher

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pricecart/backend/internal/domain"
)

func TestMatchProducts_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/match-products", r.URL.Path)

		var req wireRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "whole milk 1 gallon", req.Query)
		assert.Equal(t, 0.55, req.ConfThreshold)
		require.Len(t, req.HasdataResults, 2)
		assert.Equal(t, 2.57, req.HasdataResults[0].ExtractedPrice)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"selected_product": {"title": "Great Value Whole Milk 1 gal", "extractedPrice": 2.57, "source": "Walmart"},
			"score": 0.91,
			"confidence_ok": true,
			"reason": "top_single",
			"exact_match": true,
			"all_candidates": [
				{"candidate": {"title": "Great Value Whole Milk 1 gal", "extractedPrice": 2.57, "source": "Walmart"}, "score": 0.91}
			]
		}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second)
	resp, err := client.MatchProducts(context.Background(), &domain.MatchRequest{
		Query: "whole milk 1 gallon",
		Candidates: []domain.CandidateListing{
			{Title: "Great Value Whole Milk 1 gal", Price: 2.57, SourceStore: "Walmart"},
			{Title: "Walmart 2% Milk 1 gal", Price: 2.42, SourceStore: "Walmart"},
		},
		ConfThreshold: 0.55,
		TieDelta:      0.05,
	})

	require.NoError(t, err)
	require.NotNil(t, resp.Selected)
	assert.Equal(t, "Great Value Whole Milk 1 gal", resp.Selected.Title)
	assert.Equal(t, 2.57, resp.Selected.Price)
	assert.Equal(t, "Walmart", resp.Selected.SourceStore)
	assert.Equal(t, 0.91, resp.Score)
	assert.True(t, resp.ConfidenceOK)
	assert.True(t, resp.ExactMatch)
	assert.Equal(t, "top_single", resp.Reason)
	assert.Len(t, resp.AllCandidates, 1)
}

func TestMatchProducts_NoSelection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"selected_product": null, "score": 0, "confidence_ok": false, "reason": "no_candidates"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second)
	resp, err := client.MatchProducts(context.Background(), &domain.MatchRequest{Query: "milk"})

	require.NoError(t, err)
	assert.Nil(t, resp.Selected)
	assert.False(t, resp.ConfidenceOK)
}

func TestMatchProducts_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second)
	_, err := client.MatchProducts(context.Background(), &domain.MatchRequest{Query: "milk"})

	assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
}

func TestMatchProducts_Unreachable(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", 500*time.Millisecond)
	_, err := client.MatchProducts(context.Background(), &domain.MatchRequest{Query: "milk"})

	assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
}

func TestHealth(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/health", r.URL.Path)
			w.Write([]byte(`{"status": "healthy"}`))
		}))
		defer server.Close()

		client := NewClient(server.URL, 5*time.Second)
		assert.NoError(t, client.Health(context.Background()))
	})

	t.Run("unhealthy status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		client := NewClient(server.URL, 5*time.Second)
		assert.Error(t, client.Health(context.Background()))
	})

	t.Run("unreachable", func(t *testing.T) {
		client := NewClient("http://127.0.0.1:1", 500*time.Millisecond)
		assert.Error(t, client.Health(context.Background()))
	})
}
