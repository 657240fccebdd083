package services

import (
	"errors"
	"fmt"

	"alfredoptarigan/cv-analyzer/internal/models"
)

type ErrorKind string

const (
	KindMissingDocument ErrorKind = "MissingDocument"
	KindExtraction      ErrorKind = "ExtractionError"
	KindAuthConfig      ErrorKind = "AuthConfigError"
	KindUpstream        ErrorKind = "UpstreamError"
	KindUpstreamTimeout ErrorKind = "UpstreamTimeout"
	KindInternal        ErrorKind = "InternalError"
)

// PipelineError is the only error type the analysis pipeline returns. None of its kinds
// are retried.
type PipelineError struct {
	Kind ErrorKind
	// Role is set for MissingDocument and ExtractionError.
	Role models.Role
	// StatusCode is the upstream HTTP status for UpstreamError, zero otherwise.
	StatusCode int
	Message    string
	Err        error
}

func (e *PipelineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// KindOf classifies err. Anything outside the taxonomy is an InternalError.
func KindOf(err error) ErrorKind {
	var perr *PipelineError
	if errors.As(err, &perr) {
		return perr.Kind
	}
	return KindInternal
}

func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}

func missingDocument(role models.Role) error {
	return &PipelineError{
		Kind:    KindMissingDocument,
		Role:    role,
		Message: fmt.Sprintf("%s document is required", role.FieldName()),
	}
}

func extractionError(role models.Role, err error) error {
	return &PipelineError{
		Kind:    KindExtraction,
		Role:    role,
		Message: fmt.Sprintf("failed to extract text from %s document", role.FieldName()),
		Err:     err,
	}
}

func authConfigError(message string) error {
	return &PipelineError{Kind: KindAuthConfig, Message: message}
}

func upstreamError(status int, message string, err error) error {
	return &PipelineError{Kind: KindUpstream, StatusCode: status, Message: message, Err: err}
}

func upstreamTimeout(err error) error {
	return &PipelineError{Kind: KindUpstreamTimeout, Message: "upstream request timed out", Err: err}
}

// deadlineExceeded reports the request deadline expiring before the upstream call finished.
// It shares the UpstreamTimeout kind so callers see one timeout outcome whatever the stage.
func deadlineExceeded(stage string, err error) error {
	return &PipelineError{
		Kind:    KindUpstreamTimeout,
		Message: fmt.Sprintf("request deadline exceeded during %s", stage),
		Err:     err,
	}
}

func internalError(message string, err error) error {
	return &PipelineError{Kind: KindInternal, Message: message, Err: err}
}
