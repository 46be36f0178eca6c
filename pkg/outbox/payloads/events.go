package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/chemtrack/labstock-backend/pkg/enums"
)

// RequestCreatedEvent signals a new lab request entering the pipeline.
type RequestCreatedEvent struct {
	RequestID       uuid.UUID `json:"request_id"`
	LabID           string    `json:"lab_id"`
	ExperimentCount int       `json:"experiment_count"`
	LineCount       int       `json:"line_count"`
}

// RequestDecidedEvent is emitted when an admin approves or rejects a request.
type RequestDecidedEvent struct {
	RequestID uuid.UUID           `json:"request_id"`
	LabID     string              `json:"lab_id"`
	Status    enums.RequestStatus `json:"status"`
	DecidedBy uuid.UUID           `json:"decided_by"`
	Note      string              `json:"note,omitempty"`
}

// RequestFulfilledEvent surfaces the moment every line is fully allocated.
type RequestFulfilledEvent struct {
	RequestID uuid.UUID `json:"request_id"`
	LabID     string    `json:"lab_id"`
}

// RequestCompletedEvent closes out a fulfilled request after the experiment ran.
type RequestCompletedEvent struct {
	RequestID   uuid.UUID `json:"request_id"`
	LabID       string    `json:"lab_id"`
	CompletedAt time.Time `json:"completed_at"`
}

// StockReceivedEvent is emitted per invoice received into central stock.
type StockReceivedEvent struct {
	InvoiceID     uuid.UUID `json:"invoice_id"`
	VendorID      uuid.UUID `json:"vendor_id"`
	InvoiceNumber string    `json:"invoice_number"`
	LineCount     int       `json:"line_count"`
}

// StockAdjustedEvent records a manual correction on a stock pair.
type StockAdjustedEvent struct {
	Location   string          `json:"location"`
	ChemicalID uuid.UUID       `json:"chemical_id"`
	Delta      decimal.Decimal `json:"delta"`
	Note       string          `json:"note,omitempty"`
}

// StockLowEvent warns that a chemical dipped under its configured threshold.
type StockLowEvent struct {
	Location   string          `json:"location"`
	ChemicalID uuid.UUID       `json:"chemical_id"`
	Balance    decimal.Decimal `json:"balance"`
	Threshold  decimal.Decimal `json:"threshold"`
}

// StockInconsistentEvent reports a cached balance drifting from the ledger.
type StockInconsistentEvent struct {
	Location   string          `json:"location"`
	ChemicalID uuid.UUID       `json:"chemical_id"`
	Cached     decimal.Decimal `json:"cached"`
	Derived    decimal.Decimal `json:"derived"`
}

// QuotationConvertedEvent links an approved quotation to the invoice it became.
type QuotationConvertedEvent struct {
	QuotationID uuid.UUID `json:"quotation_id"`
	InvoiceID   uuid.UUID `json:"invoice_id"`
	VendorID    uuid.UUID `json:"vendor_id"`
}
