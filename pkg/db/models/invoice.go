package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Invoice records a vendor delivery received into central stock.
type Invoice struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	VendorID      uuid.UUID       `gorm:"column:vendor_id;type:uuid;not null;uniqueIndex:invoices_vendor_number_key,priority:1"`
	InvoiceNumber string          `gorm:"column:invoice_number;not null;uniqueIndex:invoices_vendor_number_key,priority:2"`
	InvoiceDate   time.Time       `gorm:"column:invoice_date;type:date;not null"`
	TotalPrice    decimal.Decimal `gorm:"column:total_price;type:numeric(14,2);not null"`
	ReceivedBy    uuid.UUID       `gorm:"column:received_by;type:uuid;not null"`
	Vendor        *Vendor         `gorm:"foreignKey:VendorID"`
	Lines         []InvoiceLine   `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
}

// InvoiceLine is one received chemical quantity on an invoice.
type InvoiceLine struct {
	ID           uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	InvoiceID    uuid.UUID       `gorm:"column:invoice_id;type:uuid;not null;index:invoice_lines_invoice_idx"`
	ChemicalID   uuid.UUID       `gorm:"column:chemical_id;type:uuid;not null"`
	Quantity     decimal.Decimal `gorm:"column:quantity;type:numeric(14,3);not null"`
	PricePerUnit decimal.Decimal `gorm:"column:price_per_unit;type:numeric(14,2);not null"`
	TotalPrice   decimal.Decimal `gorm:"column:total_price;type:numeric(14,2);not null"`
	ExpiresAt    *time.Time      `gorm:"column:expires_at;type:date"`
	Chemical     *Chemical       `gorm:"foreignKey:ChemicalID"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
}
