package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pricecart/backend/internal/domain"
	"github.com/pricecart/backend/internal/usecase"
)

// ComparisonUsecase is the slice of the pipeline the handlers need
type ComparisonUsecase interface {
	ComparePrices(ctx context.Context, query *domain.SearchQuery) (*usecase.ComparisonResult, error)
	PurgeExpiredCache(ctx context.Context, analyticsRetention time.Duration) (int, error)
	Health(ctx context.Context) usecase.ComponentHealth
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	comparison         ComparisonUsecase
	pipelineTimeout    time.Duration
	analyticsRetention time.Duration
}

// NewHandler creates a new HTTP handler
func NewHandler(comparison ComparisonUsecase, pipelineTimeout, analyticsRetention time.Duration) *Handler {
	if pipelineTimeout <= 0 {
		pipelineTimeout = 120 * time.Second
	}
	return &Handler{
		comparison:         comparison,
		pipelineTimeout:    pipelineTimeout,
		analyticsRetention: analyticsRetention,
	}
}

// storeView is the per-store block of the search response
type storeView struct {
	Address    string             `json:"address,omitempty"`
	Distance   string             `json:"distance,omitempty"`
	Rating     float64            `json:"rating,omitempty"`
	Products   []domain.ItemPrice `json:"products"`
	TotalPrice float64            `json:"totalPrice"`
	Savings    float64            `json:"savings"`
	IsBestDeal bool               `json:"isBestDeal"`
}

// searchResponse is the envelope returned by SearchPrices
type searchResponse struct {
	Success          bool                    `json:"success"`
	Location         string                  `json:"location"`
	Items            []string                `json:"items"`
	Stores           map[string]storeView    `json:"stores"`
	Comparison       *domain.PriceComparison `json:"comparison"`
	CheapestStore    string                  `json:"cheapest_store"`
	TotalSavings     float64                 `json:"total_savings"`
	FromCache        bool                    `json:"from_cache"`
	ProcessingTimeMS int64                   `json:"processing_time_ms"`
}

// HealthCheck reports the health of the API and its optional dependencies
func (h *Handler) HealthCheck(c *gin.Context) {
	health := h.comparison.Health(c.Request.Context())

	status := "healthy"
	if health.Matcher == "unreachable" || health.Analytics == "unreachable" {
		status = "degraded"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  status,
		"service": "pricecart-backend",
		"version": "1.0.0",
		"components": gin.H{
			"matcher":   health.Matcher,
			"analytics": health.Analytics,
		},
	})
}

// SearchPrices handles price comparison requests
func (h *Handler) SearchPrices(c *gin.Context) {
	started := time.Now()

	var query domain.SearchQuery
	if err := c.ShouldBindJSON(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "invalid request body: " + err.Error(),
		})
		return
	}

	// The pipeline outlives the client connection: a closed socket must not
	// abort in-flight upstream calls mid-run. Only the overall budget bounds it.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), h.pipelineTimeout)
	defer cancel()

	result, err := h.comparison.ComparePrices(ctx, &query)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidRequest) {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error":   err.Error(),
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "price comparison failed: " + err.Error(),
		})
		return
	}

	comparison := result.Comparison
	stores := make(map[string]storeView, len(comparison.Stores))
	for _, store := range comparison.Stores {
		stores[store.Store.Name] = storeView{
			Address:    store.Store.Address,
			Distance:   store.Store.Distance,
			Rating:     store.Store.Rating,
			Products:   store.Items,
			TotalPrice: store.TotalPrice,
			Savings:    store.Savings,
			IsBestDeal: store.IsBestDeal,
		}
	}

	c.JSON(http.StatusOK, searchResponse{
		Success:          true,
		Location:         comparison.Location,
		Items:            comparison.Items,
		Stores:           stores,
		Comparison:       comparison,
		CheapestStore:    comparison.CheapestStore,
		TotalSavings:     comparison.TotalSavings,
		FromCache:        result.FromCache,
		ProcessingTimeMS: time.Since(started).Milliseconds(),
	})
}

// CleanCache purges expired cache entries and aged analytics rows
func (h *Handler) CleanCache(c *gin.Context) {
	deleted, err := h.comparison.PurgeExpiredCache(c.Request.Context(), h.analyticsRetention)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "cache purge failed: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"deleted": deleted,
	})
}
