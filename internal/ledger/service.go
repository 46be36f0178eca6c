package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/chemtrack/labstock-backend/pkg/db/models"
	"github.com/chemtrack/labstock-backend/pkg/enums"
	pkgerrors "github.com/chemtrack/labstock-backend/pkg/errors"
	"github.com/chemtrack/labstock-backend/pkg/metrics"
	"github.com/chemtrack/labstock-backend/pkg/outbox"
	"github.com/chemtrack/labstock-backend/pkg/outbox/payloads"
	"github.com/chemtrack/labstock-backend/pkg/pagination"
)

// LocationCentral is the central store's location key. Every other
// location is a configured lab id.
const LocationCentral = "central"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service is the only mutation path for stock quantities. Every credit
// and debit appends exactly one transaction and moves the cached entry
// in the same database transaction.
type Service interface {
	Credit(ctx context.Context, input MovementInput) (*models.StockTransaction, error)
	Debit(ctx context.Context, input MovementInput) (*models.StockTransaction, error)
	CreditTx(ctx context.Context, tx *gorm.DB, input MovementInput) (*models.StockTransaction, error)
	DebitTx(ctx context.Context, tx *gorm.DB, input MovementInput) (*models.StockTransaction, error)
	Balance(ctx context.Context, location string, chemicalID uuid.UUID) (decimal.Decimal, error)
	Reconcile(ctx context.Context, location string, chemicalID uuid.UUID) (*ReconcileOutcome, error)
	ListTransactions(ctx context.Context, location string, chemicalID uuid.UUID, params pagination.Params) (*TransactionList, error)
}

type service struct {
	repo    Repository
	tx      txRunner
	outbox  outboxPublisher
	metrics *metrics.EngineMetrics
}

// NewService wires a ledger service with the provided dependencies.
func NewService(repo Repository, tx txRunner, outboxPub outboxPublisher, engine *metrics.EngineMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxPub == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{repo: repo, tx: tx, outbox: outboxPub, metrics: engine}, nil
}

func (s *service) Credit(ctx context.Context, input MovementInput) (*models.StockTransaction, error) {
	var txn *models.StockTransaction
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		created, err := s.CreditTx(ctx, tx, input)
		if err != nil {
			return err
		}
		txn = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return txn, nil
}

func (s *service) Debit(ctx context.Context, input MovementInput) (*models.StockTransaction, error) {
	var txn *models.StockTransaction
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		created, err := s.DebitTx(ctx, tx, input)
		if err != nil {
			return err
		}
		txn = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return txn, nil
}

func (s *service) CreditTx(ctx context.Context, tx *gorm.DB, input MovementInput) (*models.StockTransaction, error) {
	return s.applyMovement(ctx, tx, input, false)
}

func (s *service) DebitTx(ctx context.Context, tx *gorm.DB, input MovementInput) (*models.StockTransaction, error) {
	return s.applyMovement(ctx, tx, input, true)
}

func (s *service) applyMovement(ctx context.Context, tx *gorm.DB, input MovementInput, debit bool) (*models.StockTransaction, error) {
	if err := validateMovement(input); err != nil {
		return nil, err
	}
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction required for stock movement")
	}

	repo := s.repo.WithTx(tx)
	entry, err := repo.LockEntry(ctx, input.Location, input.ChemicalID)
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load stock entry")
		}
		if debit {
			return nil, insufficientStock(input, decimal.Zero)
		}
		entry = &models.StockEntry{
			Location:   input.Location,
			ChemicalID: input.ChemicalID,
			Quantity:   decimal.Zero,
		}
		if err := repo.CreateEntry(ctx, entry); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create stock entry")
		}
	}

	if debit {
		if entry.Halted {
			return nil, pkgerrors.New(pkgerrors.CodeConsistency, "stock pair halted pending reconciliation").
				WithDetails(map[string]any{
					"location":    input.Location,
					"chemical_id": input.ChemicalID.String(),
				})
		}
		if input.Quantity.GreaterThan(entry.Quantity) {
			return nil, insufficientStock(input, entry.Quantity)
		}
	}

	previous := entry.Quantity
	delta := input.Quantity
	if debit {
		delta = delta.Neg()
	}
	entry.Quantity = previous.Add(delta)
	if input.ExpiresAt != nil {
		if entry.ExpiresAt == nil || input.ExpiresAt.Before(*entry.ExpiresAt) {
			expires := *input.ExpiresAt
			entry.ExpiresAt = &expires
		}
	}

	if err := repo.UpdateEntry(ctx, entry, entry.Version); err != nil {
		if err == ErrVersionConflict {
			return nil, pkgerrors.New(pkgerrors.CodeConcurrencyConflict, "stock entry changed concurrently").
				WithDetails(map[string]any{
					"location":    input.Location,
					"chemical_id": input.ChemicalID.String(),
				})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update stock entry")
	}

	txn := &models.StockTransaction{
		Location:    input.Location,
		ChemicalID:  input.ChemicalID,
		Delta:       delta,
		Reason:      input.Reason,
		ReferenceID: input.RequestID,
		ActorID:     input.ActorID,
		Note:        input.Note,
	}
	if err := repo.CreateTransaction(ctx, txn); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append stock transaction")
	}
	s.metrics.IncTransaction(input.Reason.String())

	if debit && input.Reason == enums.TransactionReasonAllocation {
		if err := s.signalLowStock(ctx, tx, repo, entry, previous); err != nil {
			return nil, err
		}
	}

	return txn, nil
}

// signalLowStock emits a low-stock event when an allocation crosses the
// chemical's threshold from above.
func (s *service) signalLowStock(ctx context.Context, tx *gorm.DB, repo Repository, entry *models.StockEntry, previous decimal.Decimal) error {
	chemical, err := repo.FindChemical(ctx, entry.ChemicalID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load chemical threshold")
	}
	if chemical.MinThreshold == nil {
		return nil
	}
	threshold := *chemical.MinThreshold
	if previous.LessThan(threshold) || entry.Quantity.GreaterThanOrEqual(threshold) {
		return nil
	}
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventStockLow,
		AggregateType: enums.AggregateStockPair,
		AggregateID:   entry.ChemicalID,
		Version:       1,
		Data: payloads.StockLowEvent{
			Location:   entry.Location,
			ChemicalID: entry.ChemicalID,
			Balance:    entry.Quantity,
			Threshold:  threshold,
		},
	})
}

func (s *service) Balance(ctx context.Context, location string, chemicalID uuid.UUID) (decimal.Decimal, error) {
	if location == "" {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "location required")
	}
	if chemicalID == uuid.Nil {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "chemical id required")
	}
	entry, err := s.repo.FindEntry(ctx, location, chemicalID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return decimal.Zero, nil
		}
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load stock entry")
	}
	return entry.Quantity, nil
}

// Reconcile replays the transaction log for a pair and compares it
// against the cached balance. The first divergence halts the pair;
// reconciling a halted pair repairs the cache from the log.
func (s *service) Reconcile(ctx context.Context, location string, chemicalID uuid.UUID) (*ReconcileOutcome, error) {
	if location == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "location required")
	}
	if chemicalID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "chemical id required")
	}

	var outcome *ReconcileOutcome
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		entry, err := repo.LockEntry(ctx, location, chemicalID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "stock entry not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load stock entry")
		}
		derived, err := repo.SumDeltas(ctx, location, chemicalID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "replay transaction log")
		}

		if entry.Quantity.Equal(derived) {
			repaired := entry.Halted
			if entry.Halted {
				entry.Halted = false
				if err := repo.UpdateEntry(ctx, entry, entry.Version); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear halt flag")
				}
			}
			outcome = &ReconcileOutcome{
				Location:   location,
				ChemicalID: chemicalID,
				Cached:     entry.Quantity,
				Derived:    derived,
				Consistent: true,
				Repaired:   repaired,
			}
			return nil
		}

		if !entry.Halted {
			cached := entry.Quantity
			entry.Halted = true
			if err := repo.UpdateEntry(ctx, entry, entry.Version); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "halt stock pair")
			}
			s.metrics.IncConsistencyFailure()
			emitErr := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventStockInconsistent,
				AggregateType: enums.AggregateStockPair,
				AggregateID:   chemicalID,
				Version:       1,
				Data: payloads.StockInconsistentEvent{
					Location:   location,
					ChemicalID: chemicalID,
					Cached:     cached,
					Derived:    derived,
				},
			})
			if emitErr != nil {
				return emitErr
			}
			return pkgerrors.New(pkgerrors.CodeConsistency, "cached balance diverged from ledger").
				WithDetails(map[string]any{
					"location":    location,
					"chemical_id": chemicalID.String(),
					"cached":      cached.String(),
					"derived":     derived.String(),
				})
		}

		// Halted pair: repair the cache from the replayed sum.
		entry.Quantity = derived
		entry.Halted = false
		if err := repo.UpdateEntry(ctx, entry, entry.Version); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "repair cached balance")
		}
		outcome = &ReconcileOutcome{
			Location:   location,
			ChemicalID: chemicalID,
			Cached:     derived,
			Derived:    derived,
			Consistent: true,
			Repaired:   true,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return outcome, nil
}

func (s *service) ListTransactions(ctx context.Context, location string, chemicalID uuid.UUID, params pagination.Params) (*TransactionList, error) {
	if location == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "location required")
	}
	if chemicalID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "chemical id required")
	}

	rows, err := s.repo.ListTransactions(ctx, location, chemicalID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list transactions")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	list := &TransactionList{Items: rows}
	if len(rows) > limit {
		list.Items = rows[:limit]
		last := list.Items[len(list.Items)-1]
		cursor := pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
		list.NextCursor = &cursor
	}
	return list, nil
}

func validateMovement(input MovementInput) error {
	if input.Location == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "location required")
	}
	if input.ChemicalID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "chemical id required")
	}
	if !input.Quantity.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive").
			WithDetails(map[string]any{"quantity": input.Quantity.String()})
	}
	if !input.Reason.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid transaction reason %q", input.Reason))
	}
	return nil
}

func insufficientStock(input MovementInput, available decimal.Decimal) error {
	return pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock").
		WithDetails(map[string]any{
			"location":    input.Location,
			"chemical_id": input.ChemicalID.String(),
			"requested":   input.Quantity.String(),
			"available":   available.String(),
		})
}
