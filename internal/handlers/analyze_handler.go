package handlers

import (
	"mime/multipart"

	"github.com/gofiber/fiber/v2"

	"alfredoptarigan/cv-analyzer/internal/models"
	"alfredoptarigan/cv-analyzer/internal/services"
)

const (
	fieldJobDescription = "jobDescription"
	fieldCV             = "cv"
)

type AnalyzeHandler struct {
	normalizer services.DocumentNormalizer
	analyzer   services.AnalyzerService
}

func NewAnalyzeHandler(
	normalizer services.DocumentNormalizer,
	analyzer services.AnalyzerService,
) *AnalyzeHandler {
	return &AnalyzeHandler{
		normalizer: normalizer,
		analyzer:   analyzer,
	}
}

// HandleAnalyze handles POST /analyze
func (h *AnalyzeHandler) HandleAnalyze(c *fiber.Ctx) error {
	var jobFile, cvFile *multipart.FileHeader

	// A body that is not multipart simply has no files.
	if form, err := c.MultipartForm(); err == nil {
		jobFile = firstFile(form, fieldJobDescription)
		cvFile = firstFile(form, fieldCV)
	}

	documents, err := h.normalizer.FromUploads(jobFile, cvFile)
	if err != nil {
		status, envelope := RESTEnvelope(nil, err)
		return c.Status(status).JSON(envelope)
	}

	result, err := h.analyzer.Analyze(c.UserContext(), services.AnalysisRequest{
		RequestID: requestID(c),
		Transport: models.TransportREST,
		Documents: documents,
	})

	status, envelope := RESTEnvelope(result, err)
	return c.Status(status).JSON(envelope)
}

func firstFile(form *multipart.Form, field string) *multipart.FileHeader {
	if form == nil {
		return nil
	}
	if files, exists := form.File[field]; exists && len(files) > 0 {
		return files[0]
	}
	return nil
}
