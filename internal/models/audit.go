package models

import (
	"time"

	"github.com/google/uuid"
)

type Transport string

const (
	TransportREST Transport = "rest"
	TransportRPC  Transport = "trpc"
)

const OutcomeOK = "ok"

// AnalysisAudit records how a single analysis request went. It never holds document
// contents, prompts or upstream results.
type AnalysisAudit struct {
	ID           uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	RequestID    string    `gorm:"type:text" json:"request_id"`
	Transport    Transport `gorm:"type:text;not null" json:"transport"`
	Outcome      string    `gorm:"type:text;not null" json:"outcome"`
	ErrorMessage *string   `gorm:"type:text" json:"error_message,omitempty"`
	JobBytes     int       `gorm:"not null" json:"job_bytes"`
	CVBytes      int       `gorm:"not null" json:"cv_bytes"`
	PromptChars  int       `gorm:"not null" json:"prompt_chars"`
	DurationMs   int64     `gorm:"not null" json:"duration_ms"`
	CreatedAt    time.Time `gorm:"type:timestamp" json:"created_at"`
}

func (AnalysisAudit) TableName() string {
	return "analysis_audits"
}
