package catalog

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/chemtrack/labstock-backend/pkg/enums"
)

// UpsertInput carries the fields a chemical can be created or edited with.
type UpsertInput struct {
	Name         string
	Unit         string
	Category     enums.ProductCategory
	MinThreshold *decimal.Decimal
	Actor        enums.ActorRole
}

// AvailableChemical is a catalog row joined with the stock available at
// one location, used by the request form's suggestions.
type AvailableChemical struct {
	ID        uuid.UUID             `json:"id"`
	Name      string                `json:"name"`
	Unit      string                `json:"unit"`
	Category  enums.ProductCategory `json:"category"`
	Available decimal.Decimal       `json:"available"`
}
