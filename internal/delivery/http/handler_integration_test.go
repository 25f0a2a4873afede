package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pricecart/backend/config"
	"github.com/pricecart/backend/internal/domain"
	"github.com/pricecart/backend/internal/usecase"
)

// TestMain sets up test environment before running tests
func TestMain(m *testing.M) {
	// Set Gin to test mode once for all tests
	gin.SetMode(gin.TestMode)

	os.Exit(m.Run())
}

// fakeComparison is a canned implementation of ComparisonUsecase
type fakeComparison struct {
	result    *usecase.ComparisonResult
	err       error
	purged    int
	purgeErr  error
	health    usecase.ComponentHealth
	lastQuery *domain.SearchQuery
}

func (f *fakeComparison) ComparePrices(ctx context.Context, query *domain.SearchQuery) (*usecase.ComparisonResult, error) {
	f.lastQuery = query
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeComparison) PurgeExpiredCache(ctx context.Context, retention time.Duration) (int, error) {
	if f.purgeErr != nil {
		return 0, f.purgeErr
	}
	return f.purged, nil
}

func (f *fakeComparison) Health(ctx context.Context) usecase.ComponentHealth {
	return f.health
}

func comparisonFixture() *usecase.ComparisonResult {
	return &usecase.ComparisonResult{
		Comparison: &domain.PriceComparison{
			Location: "123 Main St 75001",
			Items:    []string{"milk"},
			Stores: []domain.StorePriceResult{
				{
					Store:      domain.Store{Name: "Store A", Address: "1 Elm St"},
					Items:      []domain.ItemPrice{{Name: "milk", Price: 2.50, ConfidenceOK: true}},
					TotalPrice: 2.50,
					Savings:    0.60,
					IsBestDeal: true,
				},
				{
					Store:      domain.Store{Name: "Store B"},
					Items:      []domain.ItemPrice{{Name: "milk", Price: 3.10, ConfidenceOK: true}},
					TotalPrice: 3.10,
				},
			},
			MajorStores:   []string{},
			LocalStores:   []string{"Store A", "Store B"},
			CheapestStore: "Store A",
			TotalSavings:  0.60,
		},
	}
}

// setupTestRouter creates a test router around the given fake pipeline
func setupTestRouter(fake *fakeComparison) *gin.Engine {
	cfg := &config.Config{
		Server: config.ServerConfig{
			Port:           "8080",
			Environment:    "test",
			AllowedOrigins: []string{"http://localhost:3000", "https://pricecart-*"},
		},
	}

	handler := NewHandler(fake, 5*time.Second, 30*24*time.Hour)
	return SetupRouter(cfg, handler)
}

func postJSON(router *gin.Engine, path, payload string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", path, strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealthCheckEndpoint(t *testing.T) {
	t.Run("returns healthy when all components respond", func(t *testing.T) {
		router := setupTestRouter(&fakeComparison{
			health: usecase.ComponentHealth{Matcher: "ok", Analytics: "ok"},
		})

		req := httptest.NewRequest("GET", "/health", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusOK)
		}

		var response map[string]interface{}
		if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
			t.Fatalf("Failed to unmarshal response: %v", err)
		}
		if response["status"] != "healthy" {
			t.Errorf("status = %v, want healthy", response["status"])
		}
		if response["service"] != "pricecart-backend" {
			t.Errorf("service = %v, want pricecart-backend", response["service"])
		}
	})

	t.Run("reports degraded when a component is unreachable", func(t *testing.T) {
		router := setupTestRouter(&fakeComparison{
			health: usecase.ComponentHealth{Matcher: "unreachable", Analytics: "ok"},
		})

		req := httptest.NewRequest("GET", "/health", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		var response map[string]interface{}
		if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
			t.Fatalf("Failed to unmarshal response: %v", err)
		}
		if response["status"] != "degraded" {
			t.Errorf("status = %v, want degraded", response["status"])
		}
	})
}

func TestSearchPricesEndpoint(t *testing.T) {
	t.Run("returns the full comparison envelope", func(t *testing.T) {
		fake := &fakeComparison{result: comparisonFixture()}
		router := setupTestRouter(fake)

		w := postJSON(router, "/api/v1/prices/search", `{"items":["milk"],"address":"123 Main St","zipCode":"75001"}`)

		if w.Code != http.StatusOK {
			t.Fatalf("Status = %d, want %d, body %s", w.Code, http.StatusOK, w.Body.String())
		}

		var response map[string]interface{}
		if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
			t.Fatalf("Failed to unmarshal response: %v", err)
		}
		if response["success"] != true {
			t.Error("expected success=true")
		}
		if response["cheapest_store"] != "Store A" {
			t.Errorf("cheapest_store = %v, want Store A", response["cheapest_store"])
		}
		if response["total_savings"] != 0.60 {
			t.Errorf("total_savings = %v, want 0.60", response["total_savings"])
		}
		if _, ok := response["processing_time_ms"]; !ok {
			t.Error("expected processing_time_ms field")
		}

		stores, ok := response["stores"].(map[string]interface{})
		if !ok {
			t.Fatalf("stores is not a map: %v", response["stores"])
		}
		if len(stores) != 2 {
			t.Errorf("got %d stores, want 2", len(stores))
		}
		storeA, ok := stores["Store A"].(map[string]interface{})
		if !ok {
			t.Fatal("missing Store A entry")
		}
		if storeA["isBestDeal"] != true {
			t.Error("Store A should be the best deal")
		}
		products, ok := storeA["products"].([]interface{})
		if !ok || len(products) != 1 {
			t.Errorf("Store A products = %v, want one entry", storeA["products"])
		}
	})

	t.Run("legacy alias serves the same handler", func(t *testing.T) {
		fake := &fakeComparison{result: comparisonFixture()}
		router := setupTestRouter(fake)

		w := postJSON(router, "/search", `{"items":["milk"],"address":"123 Main St"}`)

		if w.Code != http.StatusOK {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusOK)
		}
		if fake.lastQuery == nil || len(fake.lastQuery.Items) != 1 {
			t.Errorf("query not forwarded: %+v", fake.lastQuery)
		}
	})

	t.Run("returns 400 for invalid JSON", func(t *testing.T) {
		router := setupTestRouter(&fakeComparison{result: comparisonFixture()})

		w := postJSON(router, "/api/v1/prices/search", `{invalid json}`)

		if w.Code != http.StatusBadRequest {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusBadRequest)
		}
	})

	t.Run("returns 400 for missing items", func(t *testing.T) {
		router := setupTestRouter(&fakeComparison{result: comparisonFixture()})

		w := postJSON(router, "/api/v1/prices/search", `{"address":"123 Main St"}`)

		if w.Code != http.StatusBadRequest {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusBadRequest)
		}

		var response map[string]interface{}
		if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
			t.Fatalf("Failed to unmarshal response: %v", err)
		}
		if response["success"] != false {
			t.Error("expected success=false")
		}
	})

	t.Run("returns 400 when the pipeline rejects the request", func(t *testing.T) {
		fake := &fakeComparison{err: domain.ErrInvalidRequest}
		router := setupTestRouter(fake)

		w := postJSON(router, "/api/v1/prices/search", `{"items":["milk"]}`)

		if w.Code != http.StatusBadRequest {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusBadRequest)
		}
	})

	t.Run("returns 500 only on total pipeline failure", func(t *testing.T) {
		fake := &fakeComparison{err: errors.New("everything is down")}
		router := setupTestRouter(fake)

		w := postJSON(router, "/api/v1/prices/search", `{"items":["milk"],"address":"123 Main St"}`)

		if w.Code != http.StatusInternalServerError {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusInternalServerError)
		}

		var response map[string]interface{}
		if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
			t.Fatalf("Failed to unmarshal response: %v", err)
		}
		if response["success"] != false {
			t.Error("expected success=false")
		}
	})

	t.Run("rejects non-POST methods", func(t *testing.T) {
		router := setupTestRouter(&fakeComparison{result: comparisonFixture()})

		for _, method := range []string{"GET", "PUT", "DELETE", "PATCH"} {
			req := httptest.NewRequest(method, "/api/v1/prices/search", nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != http.StatusNotFound {
				t.Errorf("Method %s: Status = %d, want %d", method, w.Code, http.StatusNotFound)
			}
		}
	})
}

func TestCleanCacheEndpoint(t *testing.T) {
	t.Run("returns the purge count", func(t *testing.T) {
		router := setupTestRouter(&fakeComparison{purged: 7})

		w := postJSON(router, "/analytics/clean-cache", "")

		if w.Code != http.StatusOK {
			t.Fatalf("Status = %d, want %d", w.Code, http.StatusOK)
		}

		var response map[string]interface{}
		if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
			t.Fatalf("Failed to unmarshal response: %v", err)
		}
		if response["deleted"] != float64(7) {
			t.Errorf("deleted = %v, want 7", response["deleted"])
		}
	})

	t.Run("returns 500 when the purge fails", func(t *testing.T) {
		router := setupTestRouter(&fakeComparison{purgeErr: errors.New("backend down")})

		w := postJSON(router, "/analytics/clean-cache", "")

		if w.Code != http.StatusInternalServerError {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusInternalServerError)
		}
	})
}

// TestCORSIntegration tests CORS headers work end-to-end with full router
func TestCORSIntegration(t *testing.T) {
	t.Run("health endpoint has CORS for allowed origin", func(t *testing.T) {
		router := setupTestRouter(&fakeComparison{})

		req := httptest.NewRequest("GET", "/health", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
			t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, "http://localhost:3000")
		}
	})

	t.Run("wildcard subdomain origins are honored", func(t *testing.T) {
		router := setupTestRouter(&fakeComparison{result: comparisonFixture()})

		req := httptest.NewRequest("POST", "/search", strings.NewReader(`{"items":["milk"],"address":"x"}`))
		req.Header.Set("Origin", "https://pricecart-web.vercel.app")
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if got := w.Header().Get("Access-Control-Allow-Origin"); got == "" {
			t.Error("expected CORS headers for wildcard origin")
		}
	})
}

// TestRecoveryMiddleware tests panic recovery
func TestRecoveryMiddleware(t *testing.T) {
	t.Run("recovers from panic without crashing server", func(t *testing.T) {
		router := setupTestRouter(&fakeComparison{})

		router.GET("/panic", func(c *gin.Context) {
			panic("test panic")
		})

		req := httptest.NewRequest("GET", "/panic", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusInternalServerError {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusInternalServerError)
		}
	})
}
