package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AllocationRecord captures one grant against a request line.
type AllocationRecord struct {
	TransactionID uuid.UUID       `json:"transaction_id"`
	Location      string          `json:"location"`
	Quantity      decimal.Decimal `json:"quantity"`
	AllocatedAt   time.Time       `json:"allocated_at"`
}

// AllocationHistory is the per-line grant log marshaled as JSONB.
type AllocationHistory []AllocationRecord

// Value serializes the history to JSON.
func (h AllocationHistory) Value() (driver.Value, error) {
	if h == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(h)
}

// Scan decodes JSONB into the history slice.
func (h *AllocationHistory) Scan(value interface{}) error {
	if value == nil {
		*h = nil
		return nil
	}
	raw, err := asJSON(value)
	if err != nil {
		return err
	}
	var decoded AllocationHistory
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return err
	}
	*h = decoded
	return nil
}

// Total sums the granted quantities across the history.
func (h AllocationHistory) Total() decimal.Decimal {
	total := decimal.Zero
	for _, rec := range h {
		total = total.Add(rec.Quantity)
	}
	return total
}

func asJSON(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	default:
		return nil, fmt.Errorf("unsupported scan type %T", value)
	}
}
