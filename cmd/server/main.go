package main

import (
	"fmt"
	"log"
	"os"

	"github.com/pricelens/backend/config"
	httpDelivery "github.com/pricelens/backend/internal/delivery/http"
	"github.com/pricelens/backend/internal/infrastructure/store"
	"github.com/pricelens/backend/internal/metrics"
	"github.com/pricelens/backend/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("Starting PriceLens Backend v1.0.0")
	log.Printf("Environment: %s", cfg.Server.Environment)
	log.Printf("Port: %s", cfg.Server.Port)
	log.Printf("Store: %s", cfg.Store.Path)

	db, err := store.Open(cfg.Store.Path)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer db.Close()

	reg := metrics.NewRegistry()

	// Usecase layer
	importService := usecase.NewImportService(db, usecase.ImportConfig{
		MaxWarningSamples:  cfg.Import.MaxWarningSamples,
		DefaultCurrency:    cfg.Import.DefaultCurrency,
		EnableDebugLogging: cfg.Server.Environment == "development",
	})

	matcherService := usecase.NewMatcherService(db, db, db, usecase.MatchConfig{
		AutoThreshold:      cfg.Matching.AutoThreshold,
		ReviewThreshold:    cfg.Matching.ReviewThreshold,
		Workers:            cfg.Matching.Workers,
		EnableDebugLogging: cfg.Matching.EnableDebugLogging,
	})

	recommendationService := usecase.NewRecommendationService(db, db, db, db, usecase.PricingConfig{
		MinMarginFraction:  cfg.Pricing.MinMarginFraction,
		Workers:            cfg.Pricing.Workers,
		EnableDebugLogging: cfg.Pricing.EnableDebugLogging,
	})

	lifecycleService := usecase.NewLifecycleService(db, db, db)

	log.Printf("Matching: auto=%.2f review=%.2f workers=%d",
		cfg.Matching.AutoThreshold, cfg.Matching.ReviewThreshold, cfg.Matching.Workers)
	log.Printf("Pricing: min margin fraction=%.2f", cfg.Pricing.MinMarginFraction)

	handler := httpDelivery.NewHandler(importService, matcherService, recommendationService, lifecycleService, reg)
	router := httpDelivery.SetupRouter(cfg, handler, reg)

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Printf("Server listening on %s", addr)

	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func init() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.SetOutput(os.Stdout)
}
