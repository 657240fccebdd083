package handlers

import (
	"github.com/gofiber/fiber/v2"

	"alfredoptarigan/cv-analyzer/internal/models"
	"alfredoptarigan/cv-analyzer/internal/services"
)

const (
	MissingDocumentsMessage = "Both jobDescription and cv files are required."
	unknownErrorMessage     = "Unknown error"
)

// RESTEnvelope maps a pipeline outcome to the multipart endpoint's status and body.
func RESTEnvelope(result models.AnalysisResult, err error) (int, models.ResultEnvelope) {
	if err == nil {
		return fiber.StatusOK, models.ResultEnvelope{Result: result}
	}

	if services.IsKind(err, services.KindMissingDocument) {
		return fiber.StatusBadRequest, models.ResultEnvelope{Error: MissingDocumentsMessage}
	}

	return fiber.StatusInternalServerError, models.ResultEnvelope{Error: errorMessage(err)}
}

// RPCEnvelope maps a pipeline outcome to the analyzeCV procedure output. Failures are data,
// not transport errors.
func RPCEnvelope(result models.AnalysisResult, err error) models.ResultEnvelope {
	if err != nil {
		return models.ResultEnvelope{Error: errorMessage(err)}
	}
	return models.ResultEnvelope{Result: result}
}

func errorMessage(err error) string {
	if msg := err.Error(); msg != "" {
		return msg
	}
	return unknownErrorMessage
}
