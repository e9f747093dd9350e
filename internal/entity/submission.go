package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/gustavoludtke/vagasbot/constants"
)

// Submission is the journal row for one image that went through the workflow.
type Submission struct {
	ID            uuid.UUID                 `json:"id"`
	Session       string                    `json:"session"`
	EventID       string                    `json:"event_id"`
	Sender        string                    `json:"sender"`
	ContentHash   string                    `json:"content_hash"`
	State         constants.SubmissionState `json:"state"`
	VagaID        *int64                    `json:"vaga_id,omitempty"`
	OCRText       string                    `json:"ocr_text,omitempty"`
	ExtractedJSON json.RawMessage           `json:"extracted_json,omitempty"`
	ErrorCode     string                    `json:"error_code,omitempty"`
	ErrorMessage  string                    `json:"error_message,omitempty"`
	CreatedAt     time.Time                 `json:"created_at"`
	UpdatedAt     time.Time                 `json:"updated_at"`
}

// SubmissionOutcome is what the workflow learned about a submission once it settled.
type SubmissionOutcome struct {
	State        constants.SubmissionState
	VagaID       *int64
	Job          *ExtractedJob
	ErrorCode    string
	ErrorMessage string
}

// Decision is the journal row for one moderator decision.
type Decision struct {
	ID        uuid.UUID                 `json:"id"`
	VagaID    int64                     `json:"vaga_id"`
	Approved  bool                      `json:"approved"`
	Outcome   constants.DecisionOutcome `json:"outcome"`
	Message   string                    `json:"message"`
	Sender    string                    `json:"sender"`
	Session   string                    `json:"session"`
	CreatedAt time.Time                 `json:"created_at"`
}
