package handlers

import (
	"github.com/gofiber/fiber/v2"

	"alfredoptarigan/jd-matcher/internal/logger"
	"alfredoptarigan/jd-matcher/internal/models"
	"alfredoptarigan/jd-matcher/internal/services"
)

type JobHandler struct {
	analysisService services.AnalysisService
	uploads         *UploadValidator
	log             *logger.Logger
}

func NewJobHandler(analysisService services.AnalysisService, uploads *UploadValidator, log *logger.Logger) *JobHandler {
	return &JobHandler{
		analysisService: analysisService,
		uploads:         uploads,
		log:             log,
	}
}

// HandleListJobs handles GET /jobs
func (h *JobHandler) HandleListJobs(c *fiber.Ctx) error {
	jobs, err := h.analysisService.ListJobs(c.UserContext())
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(jobs)
}

// HandleGetJob handles GET /jobs/:id
func (h *JobHandler) HandleGetJob(c *fiber.Ctx) error {
	jobID, err := parseID(c, "id")
	if err != nil {
		return respondError(c, h.log, err)
	}

	job, err := h.analysisService.GetJob(c.UserContext(), jobID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(job)
}

// HandleCreateJob handles POST /jobs
func (h *JobHandler) HandleCreateJob(c *fiber.Ctx) error {
	var req models.CreateJobRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, h.log, uploadError("invalid request payload"))
	}
	if err := validateStruct(&req); err != nil {
		return respondError(c, h.log, err)
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return respondError(c, h.log, uploadError("file is required"))
	}
	jd, err := h.uploads.Read("file", fh)
	if err != nil {
		return respondError(c, h.log, err)
	}

	job, err := h.analysisService.CreateJob(c.UserContext(), req.Title, jd)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(job)
}

// HandleListCandidates handles GET /jobs/:id/candidates
func (h *JobHandler) HandleListCandidates(c *fiber.Ctx) error {
	jobID, err := parseID(c, "id")
	if err != nil {
		return respondError(c, h.log, err)
	}

	candidates, err := h.analysisService.ListCandidates(c.UserContext(), jobID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(candidates)
}

// HandleAddCandidate handles POST /jobs/:id/candidates
func (h *JobHandler) HandleAddCandidate(c *fiber.Ctx) error {
	jobID, err := parseID(c, "id")
	if err != nil {
		return respondError(c, h.log, err)
	}

	var req models.AddCandidateRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, h.log, uploadError("invalid request payload"))
	}
	if err := validateStruct(&req); err != nil {
		return respondError(c, h.log, err)
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return respondError(c, h.log, uploadError("file is required"))
	}
	resume, err := h.uploads.Read("file", fh)
	if err != nil {
		return respondError(c, h.log, err)
	}

	candidate, err := h.analysisService.AddCandidate(c.UserContext(), jobID, services.NamedUpload{
		UploadedFile: resume,
		DisplayName:  req.Name,
	})
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(candidate)
}

// HandleAddCandidates handles POST /jobs/:id/candidates/many
func (h *JobHandler) HandleAddCandidates(c *fiber.Ctx) error {
	jobID, err := parseID(c, "id")
	if err != nil {
		return respondError(c, h.log, err)
	}

	form, err := c.MultipartForm()
	if err != nil {
		return respondError(c, h.log, uploadError("failed to parse multipart form"))
	}
	files := formFiles(form, "files")
	if len(files) == 0 {
		return respondError(c, h.log, uploadError("files is required"))
	}
	resumes, err := h.uploads.ReadAll("files", files)
	if err != nil {
		return respondError(c, h.log, err)
	}

	candidates, err := h.analysisService.AddCandidates(c.UserContext(), jobID, resumes)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":    "Candidates uploaded successfully",
		"candidates": candidates,
	})
}

// HandleGetCandidate handles GET /jobs/:id/candidates/:cid
func (h *JobHandler) HandleGetCandidate(c *fiber.Ctx) error {
	jobID, err := parseID(c, "id")
	if err != nil {
		return respondError(c, h.log, err)
	}
	candidateID, err := parseID(c, "cid")
	if err != nil {
		return respondError(c, h.log, err)
	}

	candidate, err := h.analysisService.GetCandidate(c.UserContext(), jobID, candidateID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(candidate)
}

// HandleSearchCandidates handles GET /jobs/:id/candidates/search?q=&limit=
func (h *JobHandler) HandleSearchCandidates(c *fiber.Ctx) error {
	jobID, err := parseID(c, "id")
	if err != nil {
		return respondError(c, h.log, err)
	}

	hits, err := h.analysisService.SearchCandidates(c.UserContext(), jobID, c.Query("q"), c.QueryInt("limit", 0))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(hits)
}
