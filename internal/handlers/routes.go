package handlers

import (
	"github.com/gofiber/fiber/v2"

	"alfredoptarigan/jd-matcher/internal/logger"
	"alfredoptarigan/jd-matcher/internal/services"
)

// RegisterRoutes mounts the job and analysis endpoints on router.
func RegisterRoutes(router fiber.Router, analysisService services.AnalysisService, uploads *UploadValidator, log *logger.Logger) {
	jobHandler := NewJobHandler(analysisService, uploads, log)
	analysisHandler := NewAnalysisHandler(analysisService, uploads, log)

	jobs := router.Group("/jobs")
	jobs.Get("/", jobHandler.HandleListJobs)
	jobs.Post("/", jobHandler.HandleCreateJob)
	jobs.Get("/:id", jobHandler.HandleGetJob)
	jobs.Get("/:id/candidates", jobHandler.HandleListCandidates)
	jobs.Post("/:id/candidates", jobHandler.HandleAddCandidate)
	jobs.Post("/:id/candidates/many", jobHandler.HandleAddCandidates)
	// search must be registered before :cid
	jobs.Get("/:id/candidates/search", jobHandler.HandleSearchCandidates)
	jobs.Get("/:id/candidates/:cid", jobHandler.HandleGetCandidate)

	analyses := router.Group("/analyses")
	analyses.Get("/", analysisHandler.HandleListAnalyses)
	analyses.Post("/", analysisHandler.HandleCreateAnalysis)
	analyses.Get("/:id", analysisHandler.HandleGetAnalysis)
	analyses.Put("/:id", analysisHandler.HandleUpdateAnalysis)
	analyses.Delete("/:id", analysisHandler.HandleDeleteAnalysis)
	analyses.Get("/:id/export", analysisHandler.HandleExportAnalysis)
}
