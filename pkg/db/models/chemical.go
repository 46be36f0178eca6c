package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/chemtrack/labstock-backend/pkg/enums"
)

// Chemical is a catalog entry shared by every location.
type Chemical struct {
	ID           uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name         string                `gorm:"column:name;not null;uniqueIndex:chemicals_name_key"`
	Unit         string                `gorm:"column:unit;not null"`
	Category     enums.ProductCategory `gorm:"column:category;type:text;not null;default:'chemical'"`
	MinThreshold *decimal.Decimal      `gorm:"column:min_threshold;type:numeric(14,3)"`
	CreatedAt    time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
