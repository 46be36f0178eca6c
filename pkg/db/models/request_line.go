package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/chemtrack/labstock-backend/pkg/types"
)

// RequestLine is one requested chemical quantity on an experiment. It
// also carries the owning request id so allocation and status checks
// can read every line of a request in one query.
type RequestLine struct {
	ID           uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	RequestID    uuid.UUID               `gorm:"column:request_id;type:uuid;not null;index:request_lines_request_idx"`
	ExperimentID uuid.UUID               `gorm:"column:experiment_id;type:uuid;not null;index:request_lines_experiment_idx"`
	ChemicalID   uuid.UUID               `gorm:"column:chemical_id;type:uuid;not null"`
	RequestedQty decimal.Decimal         `gorm:"column:requested_qty;type:numeric(14,3);not null"`
	AllocatedQty decimal.Decimal         `gorm:"column:allocated_qty;type:numeric(14,3);not null;default:0"`
	IsAllocated  bool                    `gorm:"column:is_allocated;not null;default:false"`
	Allocations  types.AllocationHistory `gorm:"column:allocations;type:jsonb;serializer:json"`
	Chemical     *Chemical               `gorm:"foreignKey:ChemicalID"`
	CreatedAt    time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}
