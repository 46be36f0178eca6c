package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/chemtrack/labstock-backend/pkg/config"
	"github.com/chemtrack/labstock-backend/pkg/db/models"
	"github.com/chemtrack/labstock-backend/pkg/enums"
	"github.com/chemtrack/labstock-backend/pkg/logger"
	"github.com/chemtrack/labstock-backend/pkg/outbox"
	"github.com/chemtrack/labstock-backend/pkg/outbox/payloads"
	"github.com/chemtrack/labstock-backend/pkg/outbox/registry"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type stubRepo struct {
	events    []models.OutboxEvent
	published []uuid.UUID
	failed    []uuid.UUID
}

func (s *stubRepo) FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error) {
	return s.events, nil
}

func (s *stubRepo) MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error {
	s.published = append(s.published, id)
	return nil
}

func (s *stubRepo) MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error {
	s.failed = append(s.failed, id)
	return nil
}

func (s *stubRepo) MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error {
	s.failed = append(s.failed, id)
	return nil
}

type stubDB struct{}

func (stubDB) Ping(context.Context) error { return nil }

func (stubDB) WithTx(_ context.Context, fn func(*gorm.DB) error) error {
	return fn(nil)
}

type stubPubSubClient struct{}

func (stubPubSubClient) Ping(context.Context) error            { return nil }
func (stubPubSubClient) EventsPublisher() *gcppubsub.Publisher { return nil }
func (stubPubSubClient) Publisher(string) *gcppubsub.Publisher { return nil }

type stubPublisher struct {
	results []publishResult
}

func (s *stubPublisher) Publish(context.Context, *gcppubsub.Message) publishResult {
	if len(s.results) == 0 {
		return nil
	}
	next := s.results[0]
	s.results = s.results[1:]
	return next
}

type stubPublishResult struct {
	err error
}

func (s stubPublishResult) Get(context.Context) (string, error) {
	return "", s.err
}

type stubRegistry struct {
	resolved *registry.ResolvedEvent
	err      error
}

func (s *stubRegistry) Resolve(event models.OutboxEvent) (*registry.ResolvedEvent, error) {
	if s.resolved == nil {
		return nil, s.err
	}
	resolved := *s.resolved
	resolved.Descriptor.AggregateType = event.AggregateType
	resolved.Envelope.EventID = event.ID.String()
	resolved.Envelope.OccurredAt = time.Now()
	return &resolved, s.err
}

type stubDLQRepo struct {
	entries []models.OutboxDLQ
}

func (s *stubDLQRepo) InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error {
	s.entries = append(s.entries, entry)
	return nil
}

func buildTestService(t *testing.T, repo outboxRepository, pub publisher, reg registryResolver, dlq dlqRepository, outboxCfg *config.OutboxConfig) *Service {
	t.Helper()
	cfg := &config.Config{
		Outbox: config.OutboxConfig{
			BatchSize:      2,
			PollIntervalMS: 100,
			MaxAttempts:    5,
		},
	}
	if outboxCfg != nil {
		cfg.Outbox = *outboxCfg
	}
	service, err := NewService(ServiceParams{
		Config:           cfg,
		Logger:           logger.New(logger.Options{ServiceName: "outbox-publisher-test", Output: io.Discard}),
		DB:               stubDB{},
		PubSub:           stubPubSubClient{},
		Repository:       repo,
		Registry:         reg,
		PublisherFactory: func(string) publisher { return pub },
		DLQRepository:    dlq,
	})
	if err != nil {
		t.Fatalf("failed to construct service: %v", err)
	}
	return service
}

func enveloped(tb testing.TB, eventID string) json.RawMessage {
	tb.Helper()
	payload, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    eventID,
		OccurredAt: time.Now(),
		Data:       json.RawMessage(`{}`),
	})
	if err != nil {
		tb.Fatalf("marshal envelope: %v", err)
	}
	return payload
}

func requestCreatedEvent(tb testing.TB, label string) models.OutboxEvent {
	tb.Helper()
	return models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventRequestCreated,
		AggregateType: enums.AggregateRequest,
		AggregateID:   uuid.New(),
		Payload:       enveloped(tb, label),
	}
}

func TestProcessBatchContinuesAfterPublishFailure(t *testing.T) {
	repo := &stubRepo{
		events: []models.OutboxEvent{
			requestCreatedEvent(t, "event-one"),
			requestCreatedEvent(t, "event-two"),
		},
	}
	pub := &stubPublisher{
		results: []publishResult{
			stubPublishResult{err: errors.New("transient")},
			stubPublishResult{},
		},
	}
	reg := &stubRegistry{resolved: &registry.ResolvedEvent{
		Descriptor: registry.EventDescriptor{
			Topic:         "labstock-events",
			AggregateType: enums.AggregateRequest,
		},
		Envelope: outbox.PayloadEnvelope{
			EventID:    uuid.NewString(),
			OccurredAt: time.Now(),
		},
		Payload: &payloads.RequestCreatedEvent{},
	}}
	service := buildTestService(t, repo, pub, reg, &stubDLQRepo{}, nil)

	processed, err := service.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if !processed {
		t.Fatalf("expected batch to report processed")
	}
	if len(repo.failed) != 1 || repo.failed[0] != repo.events[0].ID {
		t.Fatalf("failed rows %v, want only %s", repo.failed, repo.events[0].ID)
	}
	if len(repo.published) != 1 || repo.published[0] != repo.events[1].ID {
		t.Fatalf("published rows %v, want only %s", repo.published, repo.events[1].ID)
	}
}

func TestProcessBatchDeadLettersNonRetryable(t *testing.T) {
	event := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventStockReceived,
		AggregateType: enums.AggregateInvoice,
		AggregateID:   uuid.New(),
		Payload:       enveloped(t, "nonretryable"),
	}
	repo := &stubRepo{events: []models.OutboxEvent{event}}
	reg := &stubRegistry{err: registry.NewNonRetryableError(errors.New("invalid payload"))}
	dlq := &stubDLQRepo{}
	service := buildTestService(t, repo, &stubPublisher{}, reg, dlq, nil)

	processed, err := service.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if !processed {
		t.Fatalf("expected batch to report processed")
	}
	if len(dlq.entries) != 1 {
		t.Fatalf("expected one dlq entry, got %d", len(dlq.entries))
	}
	entry := dlq.entries[0]
	if entry.EventID != event.ID {
		t.Fatalf("dlq event_id mismatch: %s", entry.EventID)
	}
	if entry.Payload == nil || !bytes.Equal(entry.Payload, event.Payload) {
		t.Fatalf("dlq payload mismatch")
	}
	if entry.ErrorReason != enums.OutboxDLQReasonNonRetryable {
		t.Fatalf("unexpected error reason: %s", entry.ErrorReason)
	}
}

func TestProcessBatchDeadLettersAfterMaxAttempts(t *testing.T) {
	event := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventStockAdjusted,
		AggregateType: enums.AggregateStockPair,
		AggregateID:   uuid.New(),
		Payload:       enveloped(t, "max-attempts"),
		AttemptCount:  1,
	}
	repo := &stubRepo{events: []models.OutboxEvent{event}}
	pub := &stubPublisher{
		results: []publishResult{
			stubPublishResult{err: errors.New("transient")},
		},
	}
	reg := &stubRegistry{resolved: &registry.ResolvedEvent{
		Descriptor: registry.EventDescriptor{
			Topic:         "labstock-events",
			AggregateType: enums.AggregateStockPair,
		},
		Envelope: outbox.PayloadEnvelope{
			EventID:    event.ID.String(),
			OccurredAt: time.Now(),
		},
		Payload: &payloads.StockAdjustedEvent{},
	}}
	dlq := &stubDLQRepo{}
	service := buildTestService(t, repo, pub, reg, dlq, &config.OutboxConfig{
		BatchSize:      1,
		PollIntervalMS: 100,
		MaxAttempts:    2,
	})

	processed, err := service.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if !processed {
		t.Fatalf("expected batch to report processed")
	}
	if len(dlq.entries) != 1 {
		t.Fatalf("expected one dlq entry, got %d", len(dlq.entries))
	}
	entry := dlq.entries[0]
	if entry.EventID != event.ID {
		t.Fatalf("dlq event_id mismatch: %s", entry.EventID)
	}
	if entry.ErrorReason != enums.OutboxDLQReasonMaxAttempts {
		t.Fatalf("unexpected error reason: %s", entry.ErrorReason)
	}
}
