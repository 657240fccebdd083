package services

import (
	"context"
	"errors"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"alfredoptarigan/cv-analyzer/internal/models"
)

// AuditRecorder stores request metadata. Implementations must not fail the request.
type AuditRecorder interface {
	Record(ctx context.Context, audit *models.AnalysisAudit) error
}

type AnalysisRequest struct {
	RequestID string
	Transport models.Transport
	Documents *DocumentPair
}

type AnalyzerService interface {
	Analyze(ctx context.Context, req AnalysisRequest) (models.AnalysisResult, error)
}

type analyzerService struct {
	extractor      TextExtractor
	promptBuilder  *PromptBuilder
	client         AnalysisClient
	audit          AuditRecorder
	requestTimeout time.Duration
	logger         *zap.Logger
}

// NewAnalyzerService wires the pipeline. audit may be nil.
func NewAnalyzerService(
	extractor TextExtractor,
	client AnalysisClient,
	audit AuditRecorder,
	requestTimeout time.Duration,
	log *zap.Logger,
) AnalyzerService {
	return &analyzerService{
		extractor:      extractor,
		promptBuilder:  NewPromptBuilder(),
		client:         client,
		audit:          audit,
		requestTimeout: requestTimeout,
		logger:         log,
	}
}

// Analyze implements AnalyzerService: extract both documents concurrently, build the prompt
// and make a single upstream call, all within the request deadline.
func (a *analyzerService) Analyze(ctx context.Context, req AnalysisRequest) (models.AnalysisResult, error) {
	start := time.Now()
	log := a.logger.With(
		zap.String("request_id", req.RequestID),
		zap.String("transport", string(req.Transport)),
	)

	audit := &models.AnalysisAudit{
		RequestID: req.RequestID,
		Transport: req.Transport,
	}

	result, err := a.run(ctx, req, audit, log)

	audit.DurationMs = time.Since(start).Milliseconds()
	if err != nil {
		log.Warn("analysis failed", zap.String("kind", string(KindOf(err))), zap.Error(err))
	} else {
		log.Info("analysis completed", zap.Int64("duration_ms", audit.DurationMs))
	}
	a.record(audit, err, log)

	return result, err
}

func (a *analyzerService) run(ctx context.Context, req AnalysisRequest, audit *models.AnalysisAudit, log *zap.Logger) (models.AnalysisResult, error) {
	if req.Documents == nil {
		return nil, missingDocument(models.RoleJob)
	}
	audit.JobBytes = len(req.Documents.Job.Data)
	audit.CVBytes = len(req.Documents.CV.Data)

	if a.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.requestTimeout)
		defer cancel()
	}

	jobText, cvText, err := a.extractBoth(ctx, req.Documents)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, interrupted("document extraction", err)
	}

	log.Debug("documents extracted",
		zap.Int("job_text_length", utf8.RuneCountInString(jobText.Text)),
		zap.Int("cv_text_length", utf8.RuneCountInString(cvText.Text)),
	)

	prompt := a.promptBuilder.BuildAlignmentPrompt(jobText.Text, cvText.Text)
	audit.PromptChars = utf8.RuneCountInString(PromptText(prompt))

	result, err := a.client.Analyze(ctx, prompt)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) && !IsKind(err, KindUpstreamTimeout) {
			return nil, upstreamTimeout(err)
		}
		return nil, err
	}

	return result, nil
}

func (a *analyzerService) extractBoth(ctx context.Context, docs *DocumentPair) (models.ExtractedText, models.ExtractedText, error) {
	var jobText, cvText models.ExtractedText

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		jobText, err = a.extractor.Extract(gctx, docs.Job)
		return err
	})
	g.Go(func() error {
		var err error
		cvText, err = a.extractor.Extract(gctx, docs.CV)
		return err
	})

	// An extractor that ignores its context must not hold the request past the deadline.
	// The results are only read once Wait has returned.
	done := make(chan error, 1)
	go func() {
		done <- g.Wait()
	}()

	var err error
	select {
	case <-ctx.Done():
		return models.ExtractedText{}, models.ExtractedText{}, interrupted("document extraction", ctx.Err())
	case err = <-done:
	}

	if err != nil {
		var perr *PipelineError
		if !errors.As(err, &perr) {
			// Only context errors reach here; the sibling was cancelled or the deadline hit.
			if ctxErr := ctx.Err(); ctxErr != nil {
				return jobText, cvText, interrupted("document extraction", ctxErr)
			}
			return jobText, cvText, internalError("document extraction interrupted", err)
		}
		return jobText, cvText, err
	}

	return jobText, cvText, nil
}

// interrupted maps a context error to the pipeline taxonomy. A deadline is a timeout,
// anything else (the caller went away) is internal.
func interrupted(stage string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return deadlineExceeded(stage, err)
	}
	return internalError(stage+" interrupted", err)
}

func (a *analyzerService) record(audit *models.AnalysisAudit, err error, log *zap.Logger) {
	if a.audit == nil {
		return
	}

	audit.ID = uuid.New()
	audit.CreatedAt = time.Now().UTC()
	audit.Outcome = models.OutcomeOK
	if err != nil {
		audit.Outcome = string(KindOf(err))
		msg := err.Error()
		audit.ErrorMessage = &msg
	}

	// The request context may already be cancelled; the audit row is still wanted.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if recErr := a.audit.Record(ctx, audit); recErr != nil {
		log.Warn("failed to record analysis audit", zap.Error(recErr))
	}
}
