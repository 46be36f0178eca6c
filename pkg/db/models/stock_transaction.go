package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/chemtrack/labstock-backend/pkg/enums"
)

// StockTransaction is an append-only movement against a stock pair.
// Positive deltas credit the pair, negative deltas debit it.
type StockTransaction struct {
	ID          uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Location    string                  `gorm:"column:location;not null;index:stock_transactions_pair_idx,priority:1"`
	ChemicalID  uuid.UUID               `gorm:"column:chemical_id;type:uuid;not null;index:stock_transactions_pair_idx,priority:2"`
	Delta       decimal.Decimal         `gorm:"column:delta;type:numeric(14,3);not null"`
	Reason      enums.TransactionReason `gorm:"column:reason;type:text;not null"`
	ReferenceID *uuid.UUID              `gorm:"column:reference_id;type:uuid"`
	ActorID     *uuid.UUID              `gorm:"column:actor_id;type:uuid"`
	Note        *string                 `gorm:"column:note"`
	CreatedAt   time.Time               `gorm:"column:created_at;autoCreateTime"`
}
