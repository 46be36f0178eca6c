package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/chemtrack/labstock-backend/pkg/enums"
)

// Experiment is one scheduled session a request draws stock for. A
// request carries one or more of these, each with its own chemical lines.
type Experiment struct {
	ID          uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	RequestID   uuid.UUID        `gorm:"column:request_id;type:uuid;not null;index:experiments_request_idx"`
	Name        string           `gorm:"column:name;not null"`
	ScheduledOn time.Time        `gorm:"column:scheduled_on;type:date;not null"`
	Session     enums.LabSession `gorm:"column:session;type:text;not null"`
	Lines       []RequestLine    `gorm:"foreignKey:ExperimentID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
