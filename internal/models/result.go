package models

import (
	"encoding/json"

	"google.golang.org/genai"
)

// AnalysisPrompt is serialized verbatim as the upstream request body.
type AnalysisPrompt struct {
	Contents []*genai.Content `json:"contents"`
}

// AnalysisResult is the upstream payload, passed through untouched.
type AnalysisResult = json.RawMessage

type ResultEnvelope struct {
	Result AnalysisResult `json:"result,omitempty"`
	Error  string         `json:"error,omitempty"`
}

// AnalyzeCVInput is the analyzeCV procedure input. Both fields carry base64 encoded PDFs.
type AnalyzeCVInput struct {
	JobDescription *string `json:"jobDescription" validate:"required"`
	CV             *string `json:"cv" validate:"required"`
}

type HealthResponse struct {
	Status string `json:"status"`
}
