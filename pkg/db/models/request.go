package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/chemtrack/labstock-backend/pkg/enums"
)

// Request is a lab's ask for chemicals, grouping one or more scheduled
// experiments. Each experiment owns its chemical lines.
type Request struct {
	ID           uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	LabID        string              `gorm:"column:lab_id;not null;index:requests_lab_idx"`
	RequesterID  uuid.UUID           `gorm:"column:requester_id;type:uuid;not null"`
	Status       enums.RequestStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	DecidedBy    *uuid.UUID          `gorm:"column:decided_by;type:uuid"`
	DecidedAt    *time.Time          `gorm:"column:decided_at"`
	DecisionNote *string             `gorm:"column:decision_note"`
	CompletedAt  *time.Time          `gorm:"column:completed_at"`
	Experiments  []Experiment        `gorm:"foreignKey:RequestID;constraint:OnDelete:CASCADE"`
	CreatedAt    time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
