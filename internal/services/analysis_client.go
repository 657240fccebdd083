package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"alfredoptarigan/cv-analyzer/internal/config"
	"alfredoptarigan/cv-analyzer/internal/logger"
	"alfredoptarigan/cv-analyzer/internal/models"
)

const maxErrorBodyLength = 512

// AnalysisClient sends a prompt to the generative model and returns its raw answer.
type AnalysisClient interface {
	Analyze(ctx context.Context, prompt models.AnalysisPrompt) (models.AnalysisResult, error)
}

type httpAnalysisClient struct {
	cfg        *config.UpstreamConfig
	httpClient *http.Client
	logger     *zap.Logger
}

// NewHTTPAnalysisClient returns a client posting to cfg.Endpoint. cfg is read on every call
// and must not be mutated after startup.
func NewHTTPAnalysisClient(cfg *config.UpstreamConfig, log *zap.Logger) AnalysisClient {
	return &httpAnalysisClient{
		cfg:        cfg,
		httpClient: &http.Client{},
		logger:     log,
	}
}

// Analyze implements AnalysisClient. It makes exactly one attempt.
func (c *httpAnalysisClient) Analyze(ctx context.Context, prompt models.AnalysisPrompt) (models.AnalysisResult, error) {
	token := strings.TrimSpace(c.cfg.AuthToken)
	if token == "" {
		return nil, authConfigError("missing upstream auth token")
	}

	body, err := json.Marshal(prompt)
	if err != nil {
		return nil, internalError("failed to encode upstream request", err)
	}

	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, internalError("failed to create upstream request", err)
	}
	req.Header.Set("Authorization", token)
	req.Header.Set("Content-Type", "application/json")

	c.logger.Debug("upstream request",
		zap.String("endpoint", c.cfg.Endpoint),
		zap.Int("body_length", len(body)),
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(ctx, err) {
			return nil, upstreamTimeout(err)
		}
		return nil, upstreamError(0, "upstream request failed", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		if isTimeout(ctx, err) {
			return nil, upstreamTimeout(err)
		}
		return nil, upstreamError(resp.StatusCode, "failed to read upstream response", err)
	}

	c.logger.Debug("upstream response",
		zap.Int("status", resp.StatusCode),
		zap.Int("response_length", utf8.RuneCount(raw)),
		zap.String("response_preview", logger.TruncateForLog(string(raw), 200)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, upstreamError(
			resp.StatusCode,
			fmt.Sprintf("upstream request failed with status %d: %s", resp.StatusCode, logger.TruncateForLog(string(raw), maxErrorBodyLength)),
			nil,
		)
	}

	return passThrough(raw)
}

// passThrough keeps JSON bodies verbatim and wraps anything else as a JSON string.
func passThrough(raw []byte) (models.AnalysisResult, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && json.Valid(trimmed) {
		return models.AnalysisResult(trimmed), nil
	}

	encoded, err := json.Marshal(string(raw))
	if err != nil {
		return nil, internalError("failed to encode upstream response", err)
	}
	return encoded, nil
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
