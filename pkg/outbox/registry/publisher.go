package registry

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/chemtrack/labstock-backend/pkg/config"
	"github.com/chemtrack/labstock-backend/pkg/db/models"
	"github.com/chemtrack/labstock-backend/pkg/enums"
	"github.com/chemtrack/labstock-backend/pkg/outbox"
	"github.com/chemtrack/labstock-backend/pkg/outbox/payloads"
	"github.com/google/uuid"
)

// EventDescriptor links an event type to its aggregate/topic/payload schema.
type EventDescriptor struct {
	EventType      enums.OutboxEventType
	AggregateType  enums.OutboxAggregateType
	Topic          string
	PayloadFactory func() interface{}
}

// ResolvedEvent is the result of decoding an outbox row.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    interface{}
}

// EventRegistry maps each supported event type to its descriptor.
type EventRegistry struct {
	entries map[enums.OutboxEventType]EventDescriptor
}

// NonRetryableError signals the dispatcher should stop retrying a row.
type NonRetryableError struct {
	Err error
}

func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

func (e NonRetryableError) Unwrap() error {
	return e.Err
}

// NewNonRetryableError wraps an error to signal no retries.
func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}

type eventBinding struct {
	aggregate enums.OutboxAggregateType
	factory   func() interface{}
}

// eventBindings is the full set of events this service emits. Every
// entry publishes to the shared events topic.
var eventBindings = map[enums.OutboxEventType]eventBinding{
	enums.EventRequestCreated:     {enums.AggregateRequest, func() interface{} { return &payloads.RequestCreatedEvent{} }},
	enums.EventRequestDecided:     {enums.AggregateRequest, func() interface{} { return &payloads.RequestDecidedEvent{} }},
	enums.EventRequestFulfilled:   {enums.AggregateRequest, func() interface{} { return &payloads.RequestFulfilledEvent{} }},
	enums.EventRequestCompleted:   {enums.AggregateRequest, func() interface{} { return &payloads.RequestCompletedEvent{} }},
	enums.EventStockReceived:      {enums.AggregateInvoice, func() interface{} { return &payloads.StockReceivedEvent{} }},
	enums.EventStockAdjusted:      {enums.AggregateStockPair, func() interface{} { return &payloads.StockAdjustedEvent{} }},
	enums.EventStockLow:           {enums.AggregateStockPair, func() interface{} { return &payloads.StockLowEvent{} }},
	enums.EventStockInconsistent:  {enums.AggregateStockPair, func() interface{} { return &payloads.StockInconsistentEvent{} }},
	enums.EventQuotationConverted: {enums.AggregateQuotation, func() interface{} { return &payloads.QuotationConvertedEvent{} }},
}

// NewEventRegistry builds the registry with the configured topic names.
func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	if cfg.EventsTopic == "" {
		return nil, fmt.Errorf("events topic is required")
	}

	entries := make(map[enums.OutboxEventType]EventDescriptor, len(eventBindings))
	for eventType, binding := range eventBindings {
		entries[eventType] = EventDescriptor{
			EventType:      eventType,
			AggregateType:  binding.aggregate,
			Topic:          cfg.EventsTopic,
			PayloadFactory: binding.factory,
		}
	}
	return &EventRegistry{entries: entries}, nil
}

// Resolve validates the row and decodes its typed payload.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	desc, ok := r.entries[event.EventType]
	if !ok {
		return nil, NewNonRetryableError(fmt.Errorf("unsupported event type %s", event.EventType))
	}
	if desc.AggregateType != event.AggregateType {
		return nil, NewNonRetryableError(fmt.Errorf("aggregate mismatch: expected %s got %s", desc.AggregateType, event.AggregateType))
	}
	if event.AggregateID == uuid.Nil {
		return nil, NewNonRetryableError(fmt.Errorf("missing aggregate_id"))
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(event.Payload, &envelope); err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("decode envelope: %w", err))
	}

	data := bytes.TrimSpace(envelope.Data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, NewNonRetryableError(fmt.Errorf("payload missing for %s", event.EventType))
	}

	payload := desc.PayloadFactory()
	if err := json.Unmarshal(envelope.Data, payload); err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("decode %s payload: %w", event.EventType, err))
	}

	return &ResolvedEvent{
		Descriptor: desc,
		Envelope:   envelope,
		Payload:    payload,
	}, nil
}
