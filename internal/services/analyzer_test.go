package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"alfredoptarigan/cv-analyzer/internal/models"
	"alfredoptarigan/cv-analyzer/internal/testutil"
	"alfredoptarigan/cv-analyzer/mocks"
)

func validPair() *DocumentPair {
	return &DocumentPair{
		Job: models.EncodedDocument{Role: models.RoleJob, Data: testutil.BuildPDFBase64("Backend Engineer", "Go, PostgreSQL")},
		CV:  models.EncodedDocument{Role: models.RoleCV, Data: testutil.BuildPDFBase64("Jane Doe", "Go developer")},
	}
}

func TestAnalyzerSuccess(t *testing.T) {
	payload := json.RawMessage(`{"candidates":[{"content":{"parts":[{"text":"ok"}]}}]}`)

	client := new(mocks.MockAnalysisClient)
	client.On("Analyze", mock.Anything, mock.MatchedBy(func(p models.AnalysisPrompt) bool {
		text := PromptText(p)
		for _, want := range []string{"Backend Engineer", "Go, PostgreSQL", "Jane Doe", "Go developer"} {
			if !strings.Contains(text, want) {
				return false
			}
		}
		return true
	})).Return(payload, nil).Once()

	audit := new(mocks.MockAuditRecorder)
	audit.On("Record", mock.Anything, mock.MatchedBy(func(a *models.AnalysisAudit) bool {
		return a.Outcome == models.OutcomeOK && a.RequestID == "req-1" && a.Transport == models.TransportRPC &&
			a.JobBytes > 0 && a.CVBytes > 0 && a.PromptChars > 0 && a.ErrorMessage == nil
	})).Return(nil).Once()

	analyzer := NewAnalyzerService(NewPDFParserService(), client, audit, time.Second, zap.NewNop())

	result, err := analyzer.Analyze(context.Background(), AnalysisRequest{
		RequestID: "req-1",
		Transport: models.TransportRPC,
		Documents: validPair(),
	})

	require.NoError(t, err)
	assert.JSONEq(t, string(payload), string(result))
	client.AssertExpectations(t)
	audit.AssertExpectations(t)
}

func TestAnalyzerExtractionErrorSkipsUpstream(t *testing.T) {
	client := new(mocks.MockAnalysisClient)

	pair := validPair()
	pair.CV.Data = base64.StdEncoding.EncodeToString([]byte("this is a plain text CV"))

	analyzer := NewAnalyzerService(NewPDFParserService(), client, nil, time.Second, zap.NewNop())
	_, err := analyzer.Analyze(context.Background(), AnalysisRequest{Transport: models.TransportREST, Documents: pair})

	var perr *PipelineError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, KindExtraction, perr.Kind)
	assert.Equal(t, models.RoleCV, perr.Role)
	client.AssertNotCalled(t, "Analyze", mock.Anything, mock.Anything)
}

func TestAnalyzerUpstreamErrorIsAudited(t *testing.T) {
	client := new(mocks.MockAnalysisClient)
	client.On("Analyze", mock.Anything, mock.Anything).Return(nil, upstreamError(502, "upstream request failed with status 502: bad gateway", nil))

	audit := new(mocks.MockAuditRecorder)
	audit.On("Record", mock.Anything, mock.MatchedBy(func(a *models.AnalysisAudit) bool {
		return a.Outcome == string(KindUpstream) && a.ErrorMessage != nil
	})).Return(errors.New("db down"))

	analyzer := NewAnalyzerService(NewPDFParserService(), client, audit, time.Second, zap.NewNop())
	_, err := analyzer.Analyze(context.Background(), AnalysisRequest{Transport: models.TransportREST, Documents: validPair()})

	assert.True(t, IsKind(err, KindUpstream))
	audit.AssertExpectations(t)
}

func TestAnalyzerRequestDeadline(t *testing.T) {
	client := new(mocks.MockAnalysisClient)
	client.On("Analyze", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return(nil, upstreamError(0, "upstream request failed", context.DeadlineExceeded))

	analyzer := NewAnalyzerService(NewPDFParserService(), client, nil, 200*time.Millisecond, zap.NewNop())
	_, err := analyzer.Analyze(context.Background(), AnalysisRequest{Transport: models.TransportRPC, Documents: validPair()})

	assert.True(t, IsKind(err, KindUpstreamTimeout), "got %v", err)
}

type recordingExtractor struct {
	mu      sync.Mutex
	active  int
	maxSeen int
	release chan struct{}
}

func (r *recordingExtractor) Extract(ctx context.Context, doc models.EncodedDocument) (models.ExtractedText, error) {
	r.mu.Lock()
	r.active++
	if r.active > r.maxSeen {
		r.maxSeen = r.active
	}
	if r.active == 2 {
		close(r.release)
	}
	r.mu.Unlock()

	select {
	case <-r.release:
	case <-ctx.Done():
		return models.ExtractedText{}, ctx.Err()
	}

	return models.ExtractedText{Role: doc.Role, Text: string(doc.Role) + " text"}, nil
}

func TestAnalyzerExtractsConcurrently(t *testing.T) {
	extractor := &recordingExtractor{release: make(chan struct{})}

	client := new(mocks.MockAnalysisClient)
	client.On("Analyze", mock.Anything, mock.Anything).Return(json.RawMessage(`{}`), nil)

	analyzer := NewAnalyzerService(extractor, client, nil, time.Second, zap.NewNop())
	_, err := analyzer.Analyze(context.Background(), AnalysisRequest{Transport: models.TransportREST, Documents: validPair()})

	require.NoError(t, err)
	assert.Equal(t, 2, extractor.maxSeen)
}

func TestAnalyzerNilDocuments(t *testing.T) {
	analyzer := NewAnalyzerService(NewPDFParserService(), new(mocks.MockAnalysisClient), nil, time.Second, zap.NewNop())

	_, err := analyzer.Analyze(context.Background(), AnalysisRequest{Transport: models.TransportREST})

	assert.True(t, IsKind(err, KindMissingDocument))
}

// slowExtractor blocks without watching its context, like the PDF parser mid-page.
type slowExtractor struct {
	delay time.Duration
}

func (s slowExtractor) Extract(_ context.Context, doc models.EncodedDocument) (models.ExtractedText, error) {
	time.Sleep(s.delay)
	return models.ExtractedText{Role: doc.Role, Text: "late text"}, nil
}

func TestAnalyzerDeadlineDuringExtraction(t *testing.T) {
	client := new(mocks.MockAnalysisClient)

	analyzer := NewAnalyzerService(slowExtractor{delay: 800 * time.Millisecond}, client, nil, 100*time.Millisecond, zap.NewNop())

	start := time.Now()
	_, err := analyzer.Analyze(context.Background(), AnalysisRequest{Transport: models.TransportREST, Documents: validPair()})
	elapsed := time.Since(start)

	assert.Less(t, elapsed, 500*time.Millisecond)
	assert.True(t, IsKind(err, KindUpstreamTimeout), "got %v", err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "document extraction")
	client.AssertNotCalled(t, "Analyze", mock.Anything, mock.Anything)
}

// blockingExtractor waits for its context, the way PDFParserService behaves.
type blockingExtractor struct{}

func (blockingExtractor) Extract(ctx context.Context, _ models.EncodedDocument) (models.ExtractedText, error) {
	<-ctx.Done()
	return models.ExtractedText{}, ctx.Err()
}

func TestAnalyzerTimeoutKindIsConsistent(t *testing.T) {
	client := new(mocks.MockAnalysisClient)
	client.On("Analyze", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return(nil, upstreamError(0, "upstream request failed", context.DeadlineExceeded))

	extracting := NewAnalyzerService(blockingExtractor{}, client, nil, 50*time.Millisecond, zap.NewNop())
	_, extractErr := extracting.Analyze(context.Background(), AnalysisRequest{Transport: models.TransportRPC, Documents: validPair()})

	calling := NewAnalyzerService(NewPDFParserService(), client, nil, 200*time.Millisecond, zap.NewNop())
	_, upstreamErr := calling.Analyze(context.Background(), AnalysisRequest{Transport: models.TransportRPC, Documents: validPair()})

	assert.Equal(t, KindUpstreamTimeout, KindOf(extractErr))
	assert.Equal(t, KindUpstreamTimeout, KindOf(upstreamErr))
	client.AssertNumberOfCalls(t, "Analyze", 1)
}

func TestAnalyzerCallerCancelDuringExtraction(t *testing.T) {
	client := new(mocks.MockAnalysisClient)
	analyzer := NewAnalyzerService(blockingExtractor{}, client, nil, time.Second, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	_, err := analyzer.Analyze(ctx, AnalysisRequest{Transport: models.TransportREST, Documents: validPair()})

	assert.Equal(t, KindInternal, KindOf(err))
	assert.ErrorIs(t, err, context.Canceled)
	client.AssertNotCalled(t, "Analyze", mock.Anything, mock.Anything)
}
