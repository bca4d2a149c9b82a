package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"

	"alfredoptarigan/jd-matcher/internal/config"
	"alfredoptarigan/jd-matcher/internal/logger"
	"alfredoptarigan/jd-matcher/internal/models"
	"alfredoptarigan/jd-matcher/internal/repositories"
	"alfredoptarigan/jd-matcher/internal/services"
)

// Rebuilds the resume search index from the database. Run it after
// enabling Qdrant on an existing deployment or when index requests
// were dropped.
func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.Server.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if cfg.Qdrant.URL == "" {
		log.Fatal("QDRANT_URL is not set")
	}

	ctx := context.Background()

	db, err := config.InitDatabase(cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize database", "error", err)
	}
	store := repositories.NewStore(db)

	geminiService, err := services.NewGeminiService(ctx, services.GeminiOptions{
		APIKey:     cfg.Gemini.APIKey,
		Model:      cfg.Gemini.Model,
		EmbedModel: cfg.Gemini.EmbedModel,
		Timeout:    cfg.Gemini.ScoringTimeout,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize Gemini", "error", err)
	}

	index, err := services.NewQdrantResumeIndex(cfg.Qdrant.URL, cfg.Qdrant.APIKey, cfg.Qdrant.Collection, geminiService, log)
	if err != nil {
		log.Fatal("Failed to initialize Qdrant", "error", err)
	}
	if err := index.InitCollection(ctx); err != nil {
		log.Fatal("Failed to initialize collection", "error", err)
	}

	candidates, err := store.Candidates().FindAll(ctx)
	if err != nil {
		log.Fatal("Failed to load candidates", "error", err)
	}

	byJob := make(map[uuid.UUID][]models.Candidate)
	var order []uuid.UUID
	for _, c := range candidates {
		if _, ok := byJob[c.JobID]; !ok {
			order = append(order, c.JobID)
		}
		byJob[c.JobID] = append(byJob[c.JobID], c)
	}

	successCount := 0
	failCount := 0
	for i, jobID := range order {
		if err := index.IndexCandidates(ctx, jobID, byJob[jobID]); err != nil {
			log.Error("Failed to index job", "job_id", jobID, "error", err)
			failCount++
			continue
		}
		successCount++
		log.Info("Indexed job", "job_id", jobID, "candidates", len(byJob[jobID]), "progress", fmt.Sprintf("%d/%d", i+1, len(order)))
	}

	log.Info("Reindex summary", "jobs_indexed", successCount, "jobs_failed", failCount, "candidates", len(candidates))
	if failCount > 0 {
		os.Exit(1)
	}
}
