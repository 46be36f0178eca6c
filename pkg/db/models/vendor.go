package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Vendor is a supplier the department buys chemicals from.
type Vendor struct {
	ID         uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name       string         `gorm:"column:name;not null;uniqueIndex:vendors_name_key"`
	Email      *string        `gorm:"column:email"`
	Phone      *string        `gorm:"column:phone"`
	Categories pq.StringArray `gorm:"column:categories;type:text[]"`
	CreatedAt  time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
