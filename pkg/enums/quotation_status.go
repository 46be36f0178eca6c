package enums

import "fmt"

// QuotationStatus tracks a vendor quotation through its lifecycle.
type QuotationStatus string

const (
	QuotationStatusDraft     QuotationStatus = "draft"
	QuotationStatusApproved  QuotationStatus = "approved"
	QuotationStatusConverted QuotationStatus = "converted"
)

var validQuotationStatuses = []QuotationStatus{
	QuotationStatusDraft,
	QuotationStatusApproved,
	QuotationStatusConverted,
}

func (s QuotationStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known QuotationStatus.
func (s QuotationStatus) IsValid() bool {
	for _, v := range validQuotationStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// ParseQuotationStatus converts raw input into a QuotationStatus.
func ParseQuotationStatus(value string) (QuotationStatus, error) {
	status := QuotationStatus(value)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid quotation status %q", value)
	}
	return status, nil
}
