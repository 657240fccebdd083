package services

import (
	"fmt"
	"strings"

	"google.golang.org/genai"

	"alfredoptarigan/cv-analyzer/internal/models"
)

const alignmentTemplate = `You are an expert recruiter. Analyze the following job description and CV. Identify the candidate's strengths and weaknesses, and evaluate how well they align with the job description.

Job Description:
%s

CV:
%s`

type PromptBuilder struct{}

func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{}
}

// BuildAlignmentPrompt interpolates both texts into the recruiter template as a single
// user turn. The texts are neither trimmed nor truncated.
func (pb *PromptBuilder) BuildAlignmentPrompt(jobText, cvText string) models.AnalysisPrompt {
	return models.AnalysisPrompt{
		Contents: []*genai.Content{{
			Role: genai.RoleUser,
			Parts: []*genai.Part{{
				Text: fmt.Sprintf(alignmentTemplate, jobText, cvText),
			}},
		}},
	}
}

// PromptText flattens the text parts of prompt.
func PromptText(prompt models.AnalysisPrompt) string {
	var builder strings.Builder
	for _, content := range prompt.Contents {
		if content == nil {
			continue
		}
		for _, part := range content.Parts {
			if part == nil {
				continue
			}
			builder.WriteString(part.Text)
		}
	}
	return builder.String()
}
