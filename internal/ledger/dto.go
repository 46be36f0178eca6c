package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/chemtrack/labstock-backend/pkg/db/models"
	"github.com/chemtrack/labstock-backend/pkg/enums"
)

// MovementInput captures the data one credit or debit requires.
type MovementInput struct {
	Location   string
	ChemicalID uuid.UUID
	Quantity   decimal.Decimal
	Reason     enums.TransactionReason
	RequestID  *uuid.UUID
	ActorID    *uuid.UUID
	Note       *string
	ExpiresAt  *time.Time
}

// ReconcileOutcome reports the result of replaying the log for a pair.
type ReconcileOutcome struct {
	Location   string          `json:"location"`
	ChemicalID uuid.UUID       `json:"chemical_id"`
	Cached     decimal.Decimal `json:"cached"`
	Derived    decimal.Decimal `json:"derived"`
	Consistent bool            `json:"consistent"`
	Repaired   bool            `json:"repaired"`
}

// TransactionList is a cursor page of ledger transactions.
type TransactionList struct {
	Items      []models.StockTransaction `json:"items"`
	NextCursor *string                   `json:"next_cursor,omitempty"`
}
