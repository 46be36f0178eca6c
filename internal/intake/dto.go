package intake

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/chemtrack/labstock-backend/pkg/db/models"
	"github.com/chemtrack/labstock-backend/pkg/enums"
)

// InvoiceLineInput is one received chemical quantity on an incoming invoice.
type InvoiceLineInput struct {
	ChemicalID   uuid.UUID
	Quantity     decimal.Decimal
	PricePerUnit decimal.Decimal
	ExpiresAt    *time.Time
}

// ReceiveInvoiceInput describes a vendor delivery to post into stock.
type ReceiveInvoiceInput struct {
	VendorID      uuid.UUID
	InvoiceNumber string
	InvoiceDate   time.Time
	Location      string
	ReceivedBy    uuid.UUID
	ActorRole     enums.ActorRole
	Lines         []InvoiceLineInput
}

// VendorInput carries the mutable vendor fields.
type VendorInput struct {
	Name       string
	Email      *string
	Phone      *string
	Categories []string
	ActorRole  enums.ActorRole
}

// QuotationLineInput is one quoted chemical price.
type QuotationLineInput struct {
	ChemicalID   uuid.UUID
	Quantity     decimal.Decimal
	PricePerUnit decimal.Decimal
}

// CreateQuotationInput opens a draft quotation against a vendor.
type CreateQuotationInput struct {
	VendorID  uuid.UUID
	CreatedBy uuid.UUID
	ActorRole enums.ActorRole
	Lines     []QuotationLineInput
}

// ConvertQuotationInput turns an approved quotation into a received invoice.
type ConvertQuotationInput struct {
	QuotationID   uuid.UUID
	InvoiceNumber string
	InvoiceDate   time.Time
	Location      string
	ReceivedBy    uuid.UUID
	ActorRole     enums.ActorRole
}

// AdjustInput is a manual signed correction against a stock pair.
type AdjustInput struct {
	Location   string
	ChemicalID uuid.UUID
	Delta      decimal.Decimal
	Note       *string
	ActorID    uuid.UUID
	ActorRole  enums.ActorRole
}

// InvoiceList is one page of invoices plus the cursor for the next.
type InvoiceList struct {
	Items      []models.Invoice
	NextCursor *string
}

// QuotationList is one page of quotations plus the cursor for the next.
type QuotationList struct {
	Items      []models.Quotation
	NextCursor *string
}
