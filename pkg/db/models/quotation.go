package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/chemtrack/labstock-backend/pkg/enums"
)

// Quotation is a priced vendor offer that may later convert into an invoice.
type Quotation struct {
	ID                 uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	VendorID           uuid.UUID             `gorm:"column:vendor_id;type:uuid;not null"`
	Status             enums.QuotationStatus `gorm:"column:status;type:text;not null;default:'draft'"`
	CreatedBy          uuid.UUID             `gorm:"column:created_by;type:uuid;not null"`
	ConvertedInvoiceID *uuid.UUID            `gorm:"column:converted_invoice_id;type:uuid"`
	Vendor             *Vendor               `gorm:"foreignKey:VendorID"`
	Lines              []QuotationLine       `gorm:"foreignKey:QuotationID;constraint:OnDelete:CASCADE"`
	CreatedAt          time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

// QuotationLine is one quoted chemical price on a quotation.
type QuotationLine struct {
	ID           uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	QuotationID  uuid.UUID       `gorm:"column:quotation_id;type:uuid;not null;index:quotation_lines_quotation_idx"`
	ChemicalID   uuid.UUID       `gorm:"column:chemical_id;type:uuid;not null"`
	Quantity     decimal.Decimal `gorm:"column:quantity;type:numeric(14,3);not null"`
	PricePerUnit decimal.Decimal `gorm:"column:price_per_unit;type:numeric(14,2);not null"`
	Chemical     *Chemical       `gorm:"foreignKey:ChemicalID"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
}
