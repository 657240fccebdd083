package services

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildAlignmentPromptDeterministic(t *testing.T) {
	builder := NewPromptBuilder()

	first, err := json.Marshal(builder.BuildAlignmentPrompt("Go developer", "Jane Doe"))
	require.NoError(t, err)
	second, err := json.Marshal(NewPromptBuilder().BuildAlignmentPrompt("Go developer", "Jane Doe"))
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second))
}

func TestBuildAlignmentPromptShape(t *testing.T) {
	prompt := NewPromptBuilder().BuildAlignmentPrompt("Needs 100% Go", "  Jane Doe\n")

	raw, err := json.Marshal(prompt)
	require.NoError(t, err)

	var body struct {
		Contents []struct {
			Role  string `json:"role"`
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"contents"`
	}
	require.NoError(t, json.Unmarshal(raw, &body))

	require.Len(t, body.Contents, 1)
	assert.Equal(t, "user", body.Contents[0].Role)
	require.Len(t, body.Contents[0].Parts, 1)

	text := body.Contents[0].Parts[0].Text
	assert.True(t, strings.HasPrefix(text, "You are an expert recruiter."))
	assert.Contains(t, text, "strengths and weaknesses")
	assert.Contains(t, text, "Job Description:\nNeeds 100% Go\n\nCV:\n  Jane Doe\n")
	assert.Equal(t, text, PromptText(prompt))
}
