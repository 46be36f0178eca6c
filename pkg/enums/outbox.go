package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateRequest   OutboxAggregateType = "request"
	AggregateStockPair OutboxAggregateType = "stock_pair"
	AggregateInvoice   OutboxAggregateType = "invoice"
	AggregateQuotation OutboxAggregateType = "quotation"
)

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	switch a {
	case AggregateRequest, AggregateStockPair, AggregateInvoice, AggregateQuotation:
		return true
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	if parsed := OutboxAggregateType(value); parsed.IsValid() {
		return parsed, nil
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventRequestCreated     OutboxEventType = "request_created"
	EventRequestDecided     OutboxEventType = "request_decided"
	EventRequestFulfilled   OutboxEventType = "request_fulfilled"
	EventRequestCompleted   OutboxEventType = "request_completed"
	EventStockReceived      OutboxEventType = "stock_received"
	EventStockAdjusted      OutboxEventType = "stock_adjusted"
	EventStockLow           OutboxEventType = "stock_low"
	EventStockInconsistent  OutboxEventType = "stock_inconsistent"
	EventQuotationConverted OutboxEventType = "quotation_converted"
)

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	switch e {
	case EventRequestCreated, EventRequestDecided, EventRequestFulfilled,
		EventRequestCompleted, EventStockReceived, EventStockAdjusted,
		EventStockLow, EventStockInconsistent, EventQuotationConverted:
		return true
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	if parsed := OutboxEventType(value); parsed.IsValid() {
		return parsed, nil
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
