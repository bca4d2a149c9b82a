package handlers

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"

	"alfredoptarigan/jd-matcher/internal/logger"
	"alfredoptarigan/jd-matcher/internal/models"
	"alfredoptarigan/jd-matcher/internal/services"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type AnalysisHandler struct {
	analysisService services.AnalysisService
	uploads         *UploadValidator
	log             *logger.Logger
}

func NewAnalysisHandler(analysisService services.AnalysisService, uploads *UploadValidator, log *logger.Logger) *AnalysisHandler {
	return &AnalysisHandler{
		analysisService: analysisService,
		uploads:         uploads,
		log:             log,
	}
}

// HandleListAnalyses handles GET /analyses
func (h *AnalysisHandler) HandleListAnalyses(c *fiber.Ctx) error {
	analyses, err := h.analysisService.ListAnalyses(c.UserContext())
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(analyses)
}

// HandleCreateAnalysis handles POST /analyses. Every file is validated
// before anything is stored.
func (h *AnalysisHandler) HandleCreateAnalysis(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		return respondError(c, h.log, uploadError("failed to parse multipart form"))
	}

	title, _ := formValue(form, "title")
	req := models.CreateAnalysisRequest{Title: strings.TrimSpace(title)}
	if err := validateStruct(&req); err != nil {
		return respondError(c, h.log, err)
	}

	jdFiles := formFiles(form, "jd")
	if len(jdFiles) == 0 {
		return respondError(c, h.log, uploadError("jd is required"))
	}
	jd, err := h.uploads.Read("jd", jdFiles[0])
	if err != nil {
		return respondError(c, h.log, err)
	}

	candidateFiles := formFiles(form, "candidates")
	if len(candidateFiles) == 0 {
		return respondError(c, h.log, uploadError("candidates is required"))
	}
	resumes, err := h.uploads.ReadAll("candidates", candidateFiles)
	if err != nil {
		return respondError(c, h.log, err)
	}

	result, err := h.analysisService.CreateJobWithAnalysis(c.UserContext(), req.Title, jd, resumes)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(result)
}

// HandleGetAnalysis handles GET /analyses/:id
func (h *AnalysisHandler) HandleGetAnalysis(c *fiber.Ctx) error {
	analysisID, err := parseID(c, "id")
	if err != nil {
		return respondError(c, h.log, err)
	}

	detail, err := h.analysisService.GetAnalysisDetail(c.UserContext(), analysisID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(detail)
}

// HandleUpdateAnalysis handles PUT /analyses/:id with a multipart body
// (title and/or jd) or a JSON body carrying only a title.
func (h *AnalysisHandler) HandleUpdateAnalysis(c *fiber.Ctx) error {
	analysisID, err := parseID(c, "id")
	if err != nil {
		return respondError(c, h.log, err)
	}

	var (
		req models.UpdateAnalysisRequest
		jd  *services.UploadedFile
	)

	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		form, err := c.MultipartForm()
		if err != nil {
			return respondError(c, h.log, uploadError("failed to parse multipart form"))
		}
		if title, ok := formValue(form, "title"); ok {
			title = strings.TrimSpace(title)
			req.Title = &title
		}
		if files := formFiles(form, "jd"); len(files) > 0 {
			file, err := h.uploads.Read("jd", files[0])
			if err != nil {
				return respondError(c, h.log, err)
			}
			jd = &file
		}
	} else if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return respondError(c, h.log, uploadError("invalid request payload"))
		}
		if req.Title != nil {
			title := strings.TrimSpace(*req.Title)
			req.Title = &title
		}
	}

	if err := validateStruct(&req); err != nil {
		return respondError(c, h.log, err)
	}

	detail, err := h.analysisService.Reanalyze(c.UserContext(), analysisID, req.Title, jd)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(detail)
}

// HandleDeleteAnalysis handles DELETE /analyses/:id
func (h *AnalysisHandler) HandleDeleteAnalysis(c *fiber.Ctx) error {
	analysisID, err := parseID(c, "id")
	if err != nil {
		return respondError(c, h.log, err)
	}

	if err := h.analysisService.DeleteAnalysis(c.UserContext(), analysisID); err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(fiber.Map{
		"message": "Analysis deleted successfully",
	})
}

// HandleExportAnalysis handles GET /analyses/:id/export
func (h *AnalysisHandler) HandleExportAnalysis(c *fiber.Ctx) error {
	analysisID, err := parseID(c, "id")
	if err != nil {
		return respondError(c, h.log, err)
	}

	data, filename, err := h.analysisService.ExportAnalysis(c.UserContext(), analysisID)
	if err != nil {
		return respondError(c, h.log, err)
	}

	c.Set(fiber.HeaderContentType, xlsxContentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Send(data)
}
