package main

import (
	"fmt"
	"log"
	"os"

	"github.com/pricecart/backend/config"
	httpDelivery "github.com/pricecart/backend/internal/delivery/http"
	"github.com/pricecart/backend/internal/domain"
	"github.com/pricecart/backend/internal/infrastructure/analytics"
	"github.com/pricecart/backend/internal/infrastructure/cache"
	"github.com/pricecart/backend/internal/infrastructure/genai"
	"github.com/pricecart/backend/internal/infrastructure/matcher"
	"github.com/pricecart/backend/internal/infrastructure/places"
	"github.com/pricecart/backend/internal/infrastructure/shopping"
	"github.com/pricecart/backend/internal/usecase"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("Starting PriceCart Backend v1.0.0")
	log.Printf("Environment: %s", cfg.Server.Environment)
	log.Printf("Port: %s", cfg.Server.Port)
	log.Printf("Cache Type: %s (TTL %s)", cfg.Cache.Type, cfg.Cache.TTL)

	// Cache backend
	var cacheRepo domain.CacheRepository
	if cfg.Cache.Type == "redis" {
		redisCache, err := cache.NewRedisCache(cfg.Cache.RedisURL)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		cacheRepo = redisCache
		log.Printf("Redis cache connected")
	} else {
		cacheRepo = cache.NewMemoryCache()
	}

	// Outbound clients. Place search and the generative provider are
	// optional; the pipeline degrades without them.
	shoppingClient := shopping.NewClient(cfg.Shopping.APIKey, cfg.Shopping.BaseURL, cfg.Shopping.RequestsPerMinute)

	var placeClient domain.PlaceClient
	if cfg.Places.APIKey != "" {
		placeClient = places.NewClient(cfg.Places.APIKey, cfg.Places.BaseURL, cfg.Places.Timeout)
		log.Printf("Place search configured: %s", cfg.Places.BaseURL)
	} else {
		log.Printf("WARNING: place search API key not set, store discovery relies on the generative fallback")
	}

	var matcherClient domain.MatcherClient
	if cfg.Matcher.BaseURL != "" {
		matcherClient = matcher.NewClient(cfg.Matcher.BaseURL, cfg.Matcher.Timeout)
		log.Printf("Matcher subservice: %s", cfg.Matcher.BaseURL)
	} else {
		log.Printf("Matcher subservice disabled, using local heuristic matching")
	}

	var genClient domain.GenerativeClient
	if cfg.GenAI.APIKey != "" {
		client, err := genai.NewClient(genai.Config{
			APIKey:  cfg.GenAI.APIKey,
			BaseURL: cfg.GenAI.BaseURL,
			Model:   cfg.GenAI.Model,
			Timeout: cfg.GenAI.Timeout,
		})
		if err != nil {
			log.Fatalf("Failed to configure generative client: %v", err)
		}
		genClient = client
		log.Printf("Generative fallback configured: model=%s", cfg.GenAI.Model)
	} else {
		log.Printf("WARNING: generative API key not set, price estimates are synthetic only")
	}

	// Analytics datastore
	var sink domain.AnalyticsSink
	analyticsStore, err := analytics.NewStore(cfg.Analytics.DBPath)
	if err != nil {
		log.Printf("WARNING: analytics datastore unavailable: %v", err)
	} else {
		sink = analyticsStore
		defer analyticsStore.Close()
		log.Printf("Analytics datastore: %s", cfg.Analytics.DBPath)
	}

	// Usecase layer
	placeResolver := usecase.NewPlaceResolver(placeClient, genClient, usecase.PlaceResolverConfig{
		RadiusMeters:   cfg.Places.RadiusMeters,
		PrimaryTimeout: cfg.Places.Timeout,
	})

	matchResolver := usecase.NewMatchResolver(matcherClient, usecase.MatchResolverConfig{
		ConfidenceThreshold: cfg.Matcher.ConfidenceThreshold,
		TieDelta:            cfg.Matcher.TieDelta,
		EnableDebugLogging:  cfg.Pipeline.EnableDebugLogging,
	})

	estimateResolver := usecase.NewEstimateResolver(genClient, usecase.EstimateResolverConfig{
		Timeout:            cfg.GenAI.Timeout,
		EnableDebugLogging: cfg.Pipeline.EnableDebugLogging,
	})

	comparisonService := usecase.NewComparisonService(
		cacheRepo,
		shoppingClient,
		placeResolver,
		matchResolver,
		estimateResolver,
		sink,
		usecase.ComparisonServiceConfig{
			CacheTTL:           cfg.Cache.TTL,
			ItemSearchDelay:    cfg.Shopping.ItemDelay,
			EnableDebugLogging: cfg.Pipeline.EnableDebugLogging,
		},
	)

	// HTTP layer
	handler := httpDelivery.NewHandler(comparisonService, cfg.Pipeline.OverallTimeout, cfg.Analytics.Retention)
	router := httpDelivery.SetupRouter(cfg, handler)

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Printf("Server listening on %s", addr)

	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func init() {
	// Set log flags for better debugging
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.SetOutput(os.Stdout)
}
