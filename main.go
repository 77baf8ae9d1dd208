package main

import (
	"context"
	"errors"
	"log"
	"time"

	api "jobtrail-backend/cmd/api"
	"jobtrail-backend/internal/application/delivery"
	"jobtrail-backend/internal/application/domain"
	"jobtrail-backend/internal/application/repository"
	"jobtrail-backend/internal/application/usecase"
	"jobtrail-backend/pkg/config"
	"jobtrail-backend/pkg/database"
	"jobtrail-backend/pkg/openai"
	"jobtrail-backend/pkg/outlook"
)

// Fetch failures are retried with a fixed delay; everything else fails the
// whole run and waits for the next tick.
const (
	fetchRetryAttempts = 3
	fetchRetryDelay    = 60 * time.Second
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database
	db, err := database.NewPostgresConnection(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Auto-migrate database schemas
	if err := db.AutoMigrate(&domain.AppliedCompany{}, &domain.AppliedCompanyEmbedding{}); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	// Initialize repositories (dependency injection)
	companyRepo := repository.NewCompanyRepository(db)
	embeddingRepo := repository.NewEmbeddingRepository(db)

	// Mail provider: cached OAuth credential + Graph fetcher
	tokenStore := outlook.NewTokenStore(
		outlook.NewFileCredentialCache(cfg.TokenFile),
		cfg.MSClientID, cfg.MSTenantID, cfg.MSScopes,
	)
	mailService := outlook.NewService(tokenStore, cfg.GraphAPIURL)

	// LLM + embedding provider
	openaiService := openai.NewService(cfg.OpenAIAPIKey, cfg.CompletionModel, cfg.EmbeddingModel)

	// Initialize use cases (dependency injection)
	ingestUsecase := usecase.NewIngestUsecase(
		mailService, openaiService, openaiService,
		companyRepo, embeddingRepo,
		cfg.FetchWindow, cfg.InputTokenLimit,
	)
	queryUsecase := usecase.NewQueryUsecase(openaiService, openaiService, companyRepo, embeddingRepo)

	// Periodic ingestion loop (disabled when INGEST_INTERVAL is unset)
	if cfg.IngestInterval > 0 {
		go runIngestLoop(ingestUsecase, cfg.IngestInterval)
	}

	// Initialize HTTP handler and start server
	handler := delivery.NewHandler(ingestUsecase, queryUsecase, companyRepo)
	server := api.NewServer(handler)

	log.Printf("Server starting on port %s", cfg.Port)
	if err := server.Run(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}

// runIngestLoop triggers an ingestion pass on a fixed interval, retrying
// fetch-stage failures up to fetchRetryAttempts with a fixed delay.
func runIngestLoop(ingest *usecase.IngestUsecase, interval time.Duration) {
	log.Printf("[Scheduler] Ingestion loop started (interval: %s)", interval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	runOnce(ingest)
	for range ticker.C {
		runOnce(ingest)
	}
}

func runOnce(ingest *usecase.IngestUsecase) {
	for attempt := 1; attempt <= fetchRetryAttempts; attempt++ {
		summary, err := ingest.Run(context.Background())
		if err == nil {
			log.Printf("[Scheduler] Ingestion pass complete: fetched=%d inserted=%d embedded=%d",
				summary.Fetched, summary.Inserted, summary.Embedded)
			return
		}
		if !errors.Is(err, domain.ErrFetch) || attempt == fetchRetryAttempts {
			log.Printf("[Scheduler] Ingestion pass failed: %v", err)
			return
		}
		log.Printf("[Scheduler] Fetch failed (attempt %d/%d), retrying in %s: %v",
			attempt, fetchRetryAttempts, fetchRetryDelay, err)
		time.Sleep(fetchRetryDelay)
	}
}
