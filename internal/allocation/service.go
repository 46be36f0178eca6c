package allocation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/chemtrack/labstock-backend/internal/ledger"
	"github.com/chemtrack/labstock-backend/pkg/db/models"
	"github.com/chemtrack/labstock-backend/pkg/enums"
	pkgerrors "github.com/chemtrack/labstock-backend/pkg/errors"
	"github.com/chemtrack/labstock-backend/pkg/metrics"
	"github.com/chemtrack/labstock-backend/pkg/types"
)

const (
	maxRetries = 3
	retryBase  = 25 * time.Millisecond
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type stockLedger interface {
	DebitTx(ctx context.Context, tx *gorm.DB, input ledger.MovementInput) (*models.StockTransaction, error)
	Balance(ctx context.Context, location string, chemicalID uuid.UUID) (decimal.Decimal, error)
}

// Outcome reports how much a single allocation attempt granted and how
// much of the line's need is still unmet.
type Outcome struct {
	Granted   decimal.Decimal `json:"granted"`
	Remaining decimal.Decimal `json:"remaining"`
}

// Service resolves a request line against one stock location. The
// ledger debit and the line update commit as one transaction; a version
// conflict on the stock row is retried a bounded number of times.
type Service interface {
	Allocate(ctx context.Context, requestID, lineID uuid.UUID, location string) (*Outcome, error)
}

type service struct {
	repo    Repository
	tx      txRunner
	ledger  stockLedger
	metrics *metrics.EngineMetrics
}

// NewService wires an allocation resolver with the provided dependencies.
func NewService(repo Repository, tx txRunner, stock stockLedger, engine *metrics.EngineMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("allocation repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if stock == nil {
		return nil, fmt.Errorf("stock ledger required")
	}
	return &service{repo: repo, tx: tx, ledger: stock, metrics: engine}, nil
}

func (s *service) Allocate(ctx context.Context, requestID, lineID uuid.UUID, location string) (*Outcome, error) {
	if requestID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "request id required")
	}
	if lineID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "line id required")
	}
	if location == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "location required")
	}

	start := time.Now()
	var outcome *Outcome
	backoff := retry.WithMaxRetries(maxRetries, retry.NewExponential(retryBase))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt, err := s.attempt(ctx, requestID, lineID, location)
		if err != nil {
			if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeConcurrencyConflict {
				s.metrics.IncRetry()
				return retry.RetryableError(err)
			}
			return err
		}
		outcome = attempt
		return nil
	})
	if err != nil {
		s.metrics.ObserveAllocation("error", time.Since(start))
		return nil, err
	}

	s.metrics.ObserveAllocation(outcomeLabel(outcome), time.Since(start))
	return outcome, nil
}

func (s *service) attempt(ctx context.Context, requestID, lineID uuid.UUID, location string) (*Outcome, error) {
	var outcome *Outcome
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		line, err := repo.LockLine(ctx, lineID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "request line not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load request line")
		}
		if line.RequestID != requestID {
			return pkgerrors.New(pkgerrors.CodeValidation, "line does not belong to request")
		}

		needed := line.RequestedQty.Sub(line.AllocatedQty)
		if !needed.IsPositive() {
			// Fully allocated already: repeat calls stay no-ops.
			outcome = &Outcome{Granted: decimal.Zero, Remaining: decimal.Zero}
			return nil
		}

		balance, err := s.ledger.Balance(ctx, location, line.ChemicalID)
		if err != nil {
			return err
		}
		grantable := decimal.Min(needed, balance)
		if !grantable.IsPositive() {
			outcome = &Outcome{Granted: decimal.Zero, Remaining: needed}
			return nil
		}

		txn, err := s.ledger.DebitTx(ctx, tx, ledger.MovementInput{
			Location:   location,
			ChemicalID: line.ChemicalID,
			Quantity:   grantable,
			Reason:     enums.TransactionReasonAllocation,
			RequestID:  &requestID,
		})
		if err != nil {
			if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeInsufficientStock {
				// Concurrent depletion: leave the line unchanged.
				outcome = &Outcome{Granted: decimal.Zero, Remaining: needed}
				return nil
			}
			return err
		}

		line.AllocatedQty = line.AllocatedQty.Add(grantable)
		line.IsAllocated = line.AllocatedQty.Equal(line.RequestedQty)
		line.Allocations = append(line.Allocations, types.AllocationRecord{
			TransactionID: txn.ID,
			Location:      location,
			Quantity:      grantable,
			AllocatedAt:   time.Now(),
		})
		if err := repo.UpdateLine(ctx, line); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update request line")
		}

		outcome = &Outcome{Granted: grantable, Remaining: needed.Sub(grantable)}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return outcome, nil
}

func outcomeLabel(outcome *Outcome) string {
	switch {
	case outcome == nil:
		return "unknown"
	case outcome.Granted.IsPositive() && outcome.Remaining.IsZero():
		return "granted"
	case outcome.Granted.IsPositive():
		return "partial"
	case outcome.Remaining.IsPositive():
		return "exhausted"
	default:
		return "noop"
	}
}
