package requests

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/chemtrack/labstock-backend/internal/allocation"
	"github.com/chemtrack/labstock-backend/pkg/db/models"
	"github.com/chemtrack/labstock-backend/pkg/enums"
)

// LineInput is one requested chemical quantity on a new experiment.
type LineInput struct {
	ChemicalID uuid.UUID
	Quantity   decimal.Decimal
}

// ExperimentInput is one scheduled session on a new request, with the
// chemical lines it needs.
type ExperimentInput struct {
	Name        string
	ScheduledOn time.Time
	Session     enums.LabSession
	Lines       []LineInput
}

// CreateInput carries everything a faculty member submits for a request.
type CreateInput struct {
	LabID       string
	RequesterID uuid.UUID
	Experiments []ExperimentInput
}

// Decision is the action an admin takes on a pending request.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// DecideInput carries an approval or rejection of a pending request.
type DecideInput struct {
	RequestID uuid.UUID
	Action    Decision
	ActorID   uuid.UUID
	ActorRole enums.ActorRole
	Note      *string
}

// AllocateLineInput retries one line against a chosen location.
type AllocateLineInput struct {
	RequestID uuid.UUID
	LineID    uuid.UUID
	Location  string
	ActorID   uuid.UUID
	ActorRole enums.ActorRole
}

// LineOutcome pairs a line with the outcome of its allocation attempt.
type LineOutcome struct {
	LineID  uuid.UUID           `json:"line_id"`
	Outcome *allocation.Outcome `json:"outcome"`
}

// DecideResult is the decided request plus per-line allocation outcomes.
type DecideResult struct {
	Request  *models.Request `json:"request"`
	Outcomes []LineOutcome   `json:"outcomes,omitempty"`
}

// ListFilters narrows the dashboard request feed.
type ListFilters struct {
	LabID  string
	Status enums.RequestStatus
}

// RequestList is a cursor page of requests.
type RequestList struct {
	Items      []models.Request `json:"items"`
	NextCursor *string          `json:"next_cursor,omitempty"`
}
