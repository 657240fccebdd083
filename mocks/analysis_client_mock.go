package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"alfredoptarigan/cv-analyzer/internal/models"
)

type MockAnalysisClient struct {
	mock.Mock
}

func (m *MockAnalysisClient) Analyze(ctx context.Context, prompt models.AnalysisPrompt) (models.AnalysisResult, error) {
	args := m.Called(ctx, prompt)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(models.AnalysisResult), args.Error(1)
}

type MockAuditRecorder struct {
	mock.Mock
}

func (m *MockAuditRecorder) Record(ctx context.Context, audit *models.AnalysisAudit) error {
	args := m.Called(ctx, audit)
	return args.Error(0)
}
