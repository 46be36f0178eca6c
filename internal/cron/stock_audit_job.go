package cron

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/chemtrack/labstock-backend/internal/ledger"
	"github.com/chemtrack/labstock-backend/pkg/db/models"
	"github.com/chemtrack/labstock-backend/pkg/logger"
)

type stockEntryLister interface {
	ListEntries(ctx context.Context) ([]models.StockEntry, error)
}

type stockReconciler interface {
	Reconcile(ctx context.Context, location string, chemicalID uuid.UUID) (*ledger.ReconcileOutcome, error)
}

type StockAuditJobParams struct {
	Logger     *logger.Logger
	Repo       stockEntryLister
	Reconciler stockReconciler
}

// NewStockAuditJob builds the nightly consistency sweep. Each cached balance
// is replayed against its transaction log; mismatched pairs get halted and
// reported by the reconciler itself.
func NewStockAuditJob(params StockAuditJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("stock repository required")
	}
	if params.Reconciler == nil {
		return nil, fmt.Errorf("reconciler required")
	}
	return &stockAuditJob{
		logg:       params.Logger,
		repo:       params.Repo,
		reconciler: params.Reconciler,
	}, nil
}

type stockAuditJob struct {
	logg       *logger.Logger
	repo       stockEntryLister
	reconciler stockReconciler
}

func (j *stockAuditJob) Name() string { return "stock-audit" }

func (j *stockAuditJob) Run(ctx context.Context) error {
	entries, err := j.repo.ListEntries(ctx)
	if err != nil {
		return fmt.Errorf("list stock entries: %w", err)
	}

	var audited, inconsistent, repaired, failed int
	for _, entry := range entries {
		outcome, err := j.reconciler.Reconcile(ctx, entry.Location, entry.ChemicalID)
		if err != nil {
			failed++
			pairCtx := j.logg.WithFields(ctx, map[string]any{
				"location":    entry.Location,
				"chemical_id": entry.ChemicalID.String(),
			})
			j.logg.Error(pairCtx, "stock audit reconcile failed", err)
			continue
		}
		audited++
		if !outcome.Consistent {
			inconsistent++
		}
		if outcome.Repaired {
			repaired++
		}
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"audited":      audited,
		"inconsistent": inconsistent,
		"repaired":     repaired,
		"failed":       failed,
	})
	if inconsistent > 0 || failed > 0 {
		j.logg.Warn(logCtx, "stock audit found problems")
		return nil
	}
	j.logg.Info(logCtx, "stock audit complete")
	return nil
}
