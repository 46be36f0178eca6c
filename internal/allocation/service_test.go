package allocation

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/chemtrack/labstock-backend/internal/ledger"
	"github.com/chemtrack/labstock-backend/pkg/db/models"
	pkgerrors "github.com/chemtrack/labstock-backend/pkg/errors"
)

type stubAllocationRepo struct {
	lines map[uuid.UUID]*models.RequestLine
}

func newStubAllocationRepo() *stubAllocationRepo {
	return &stubAllocationRepo{lines: make(map[uuid.UUID]*models.RequestLine)}
}

func (s *stubAllocationRepo) WithTx(tx *gorm.DB) Repository {
	return s
}

func (s *stubAllocationRepo) FindRequest(ctx context.Context, requestID uuid.UUID) (*models.Request, error) {
	return &models.Request{ID: requestID}, nil
}

func (s *stubAllocationRepo) LockLine(ctx context.Context, lineID uuid.UUID) (*models.RequestLine, error) {
	line, ok := s.lines[lineID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *line
	return &copied, nil
}

func (s *stubAllocationRepo) UpdateLine(ctx context.Context, line *models.RequestLine) error {
	stored, ok := s.lines[line.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	stored.AllocatedQty = line.AllocatedQty
	stored.IsAllocated = line.IsAllocated
	stored.Allocations = line.Allocations
	return nil
}

type stubStockLedger struct {
	balances      map[string]decimal.Decimal
	debits        []ledger.MovementInput
	conflictsLeft int
}

func newStubStockLedger() *stubStockLedger {
	return &stubStockLedger{balances: make(map[string]decimal.Decimal)}
}

func stockKey(location string, chemicalID uuid.UUID) string {
	return fmt.Sprintf("%s|%s", location, chemicalID)
}

func (s *stubStockLedger) Balance(ctx context.Context, location string, chemicalID uuid.UUID) (decimal.Decimal, error) {
	return s.balances[stockKey(location, chemicalID)], nil
}

func (s *stubStockLedger) DebitTx(ctx context.Context, tx *gorm.DB, input ledger.MovementInput) (*models.StockTransaction, error) {
	if s.conflictsLeft > 0 {
		s.conflictsLeft--
		return nil, pkgerrors.New(pkgerrors.CodeConcurrencyConflict, "stock entry changed concurrently")
	}
	key := stockKey(input.Location, input.ChemicalID)
	balance := s.balances[key]
	if input.Quantity.GreaterThan(balance) {
		return nil, pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock")
	}
	s.balances[key] = balance.Sub(input.Quantity)
	s.debits = append(s.debits, input)
	return &models.StockTransaction{ID: uuid.New(), Delta: input.Quantity.Neg()}, nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

func newResolver(t *testing.T, repo Repository, stock stockLedger) Service {
	t.Helper()
	svc, err := NewService(repo, stubTxRunner{}, stock, nil)
	if err != nil {
		t.Fatalf("service constructor failed: %v", err)
	}
	return svc
}

func seedLine(repo *stubAllocationRepo, requestID uuid.UUID, requested string) *models.RequestLine {
	line := &models.RequestLine{
		ID:           uuid.New(),
		RequestID:    requestID,
		ChemicalID:   uuid.New(),
		RequestedQty: decimal.RequireFromString(requested),
		AllocatedQty: decimal.Zero,
	}
	repo.lines[line.ID] = line
	return line
}

func TestAllocatePartialThenComplete(t *testing.T) {
	repo := newStubAllocationRepo()
	stock := newStubStockLedger()
	svc := newResolver(t, repo, stock)
	requestID := uuid.New()
	line := seedLine(repo, requestID, "15")
	stock.balances[stockKey("central", line.ChemicalID)] = decimal.NewFromInt(10)
	ctx := context.Background()

	outcome, err := svc.Allocate(ctx, requestID, line.ID, "central")
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if !outcome.Granted.Equal(decimal.NewFromInt(10)) || !outcome.Remaining.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
	stored := repo.lines[line.ID]
	if !stored.AllocatedQty.Equal(decimal.NewFromInt(10)) || stored.IsAllocated {
		t.Fatalf("unexpected line state %+v", stored)
	}
	if len(stored.Allocations) != 1 || !stored.Allocations[0].Quantity.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("unexpected allocation history %+v", stored.Allocations)
	}
	if !stock.balances[stockKey("central", line.ChemicalID)].IsZero() {
		t.Fatalf("unexpected remaining balance")
	}

	// Replenish and retry the same line for the remainder.
	stock.balances[stockKey("central", line.ChemicalID)] = decimal.NewFromInt(20)
	outcome, err = svc.Allocate(ctx, requestID, line.ID, "central")
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if !outcome.Granted.Equal(decimal.NewFromInt(5)) || !outcome.Remaining.IsZero() {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
	stored = repo.lines[line.ID]
	if !stored.IsAllocated || !stored.AllocatedQty.Equal(decimal.NewFromInt(15)) {
		t.Fatalf("line not fully allocated: %+v", stored)
	}
	if !stock.balances[stockKey("central", line.ChemicalID)].Equal(decimal.NewFromInt(15)) {
		t.Fatalf("unexpected balance after completion")
	}
}

func TestAllocateFullyAllocatedLineIsNoop(t *testing.T) {
	repo := newStubAllocationRepo()
	stock := newStubStockLedger()
	svc := newResolver(t, repo, stock)
	requestID := uuid.New()
	line := seedLine(repo, requestID, "10")
	line.AllocatedQty = decimal.NewFromInt(10)
	line.IsAllocated = true
	stock.balances[stockKey("central", line.ChemicalID)] = decimal.NewFromInt(50)

	outcome, err := svc.Allocate(context.Background(), requestID, line.ID, "central")
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if !outcome.Granted.IsZero() || !outcome.Remaining.IsZero() {
		t.Fatalf("expected noop outcome got %+v", outcome)
	}
	if len(stock.debits) != 0 {
		t.Fatal("noop allocation must not debit")
	}
	if !stock.balances[stockKey("central", line.ChemicalID)].Equal(decimal.NewFromInt(50)) {
		t.Fatal("balance changed on noop")
	}
}

func TestAllocateExhaustedLocationGrantsZero(t *testing.T) {
	repo := newStubAllocationRepo()
	stock := newStubStockLedger()
	svc := newResolver(t, repo, stock)
	requestID := uuid.New()
	line := seedLine(repo, requestID, "8")

	outcome, err := svc.Allocate(context.Background(), requestID, line.ID, "LAB04")
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if !outcome.Granted.IsZero() || !outcome.Remaining.Equal(decimal.NewFromInt(8)) {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
	if len(stock.debits) != 0 {
		t.Fatal("empty location must not debit")
	}
	if repo.lines[line.ID].AllocatedQty.IsPositive() {
		t.Fatal("line changed despite zero grant")
	}
}

func TestAllocateRetriesVersionConflict(t *testing.T) {
	repo := newStubAllocationRepo()
	stock := newStubStockLedger()
	svc := newResolver(t, repo, stock)
	requestID := uuid.New()
	line := seedLine(repo, requestID, "10")
	stock.balances[stockKey("central", line.ChemicalID)] = decimal.NewFromInt(10)
	stock.conflictsLeft = 2

	outcome, err := svc.Allocate(context.Background(), requestID, line.ID, "central")
	if err != nil {
		t.Fatalf("expected retried success got %v", err)
	}
	if !outcome.Granted.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
}

func TestAllocateSurfacesExhaustedRetries(t *testing.T) {
	repo := newStubAllocationRepo()
	stock := newStubStockLedger()
	svc := newResolver(t, repo, stock)
	requestID := uuid.New()
	line := seedLine(repo, requestID, "10")
	stock.balances[stockKey("central", line.ChemicalID)] = decimal.NewFromInt(10)
	stock.conflictsLeft = 100

	_, err := svc.Allocate(context.Background(), requestID, line.ID, "central")
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConcurrencyConflict {
		t.Fatalf("expected concurrency conflict got %v", err)
	}
	if repo.lines[line.ID].AllocatedQty.IsPositive() {
		t.Fatal("line changed despite failed allocation")
	}
}

func TestConcurrentDepletionNeverOverGrants(t *testing.T) {
	repo := newStubAllocationRepo()
	stock := newStubStockLedger()
	svc := newResolver(t, repo, stock)
	requestID := uuid.New()
	line := seedLine(repo, requestID, "10")
	stock.balances[stockKey("central", line.ChemicalID)] = decimal.NewFromInt(10)
	ctx := context.Background()

	first, err := svc.Allocate(ctx, requestID, line.ID, "central")
	if err != nil {
		t.Fatalf("first allocate failed: %v", err)
	}
	second, err := svc.Allocate(ctx, requestID, line.ID, "central")
	if err != nil {
		t.Fatalf("second allocate failed: %v", err)
	}

	total := first.Granted.Add(second.Granted)
	if !total.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("total granted %s exceeds stock", total)
	}
	if !second.Granted.IsZero() || !second.Remaining.IsZero() {
		t.Fatalf("unexpected second outcome %+v", second)
	}
}

func TestAllocateLineFromOtherRequestRejected(t *testing.T) {
	repo := newStubAllocationRepo()
	stock := newStubStockLedger()
	svc := newResolver(t, repo, stock)
	line := seedLine(repo, uuid.New(), "5")

	_, err := svc.Allocate(context.Background(), uuid.New(), line.ID, "central")
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error got %v", err)
	}
}
