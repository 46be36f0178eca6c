package enums

import "fmt"

// TransactionReason maps to the transaction_reason enum in Postgres.
type TransactionReason string

const (
	TransactionReasonInvoiceReceipt TransactionReason = "invoice_receipt"
	TransactionReasonAllocation     TransactionReason = "allocation"
	TransactionReasonAdjustment     TransactionReason = "adjustment"
	TransactionReasonTransfer       TransactionReason = "transfer"
)

var validTransactionReasons = []TransactionReason{
	TransactionReasonInvoiceReceipt,
	TransactionReasonAllocation,
	TransactionReasonAdjustment,
	TransactionReasonTransfer,
}

func (r TransactionReason) String() string {
	return string(r)
}

// IsValid reports whether the value matches the canonical reason enum.
func (r TransactionReason) IsValid() bool {
	for _, candidate := range validTransactionReasons {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseTransactionReason converts raw input into TransactionReason.
func ParseTransactionReason(value string) (TransactionReason, error) {
	for _, candidate := range validTransactionReasons {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid transaction reason %q", value)
}
