package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StockEntry caches the current balance per (location, chemical) pair.
// The quantity must always equal the sum of the pair's transactions.
type StockEntry struct {
	Location   string          `gorm:"column:location;primaryKey"`
	ChemicalID uuid.UUID       `gorm:"column:chemical_id;type:uuid;primaryKey"`
	Quantity   decimal.Decimal `gorm:"column:quantity;type:numeric(14,3);not null;default:0"`
	Version    int64           `gorm:"column:version;not null;default:0"`
	Halted     bool            `gorm:"column:halted;not null;default:false"`
	ExpiresAt  *time.Time      `gorm:"column:expires_at"`
	UpdatedAt  time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
