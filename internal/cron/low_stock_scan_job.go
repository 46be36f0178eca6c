package cron

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/chemtrack/labstock-backend/internal/ledger"
	"github.com/chemtrack/labstock-backend/pkg/enums"
	"github.com/chemtrack/labstock-backend/pkg/logger"
	"github.com/chemtrack/labstock-backend/pkg/outbox"
	"github.com/chemtrack/labstock-backend/pkg/outbox/payloads"
)

type lowStockRepo interface {
	ListBelowThreshold(ctx context.Context) ([]ledger.LowStockRow, error)
}

type lowStockEmitter interface {
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type LowStockScanJobParams struct {
	Logger  *logger.Logger
	DB      txRunner
	Repo    lowStockRepo
	Emitter lowStockEmitter
}

// NewLowStockScanJob builds the periodic replenishment sweep. Movements
// already raise low-stock events inline; the sweep catches pairs whose
// thresholds were raised after the last movement.
func NewLowStockScanJob(params LowStockScanJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("stock repository required")
	}
	if params.Emitter == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	return &lowStockScanJob{
		logg:    params.Logger,
		db:      params.DB,
		repo:    params.Repo,
		emitter: params.Emitter,
	}, nil
}

type lowStockScanJob struct {
	logg    *logger.Logger
	db      txRunner
	repo    lowStockRepo
	emitter lowStockEmitter
}

func (j *lowStockScanJob) Name() string { return "low-stock-scan" }

func (j *lowStockScanJob) Run(ctx context.Context) error {
	rows, err := j.repo.ListBelowThreshold(ctx)
	if err != nil {
		return fmt.Errorf("list low stock pairs: %w", err)
	}
	if len(rows) == 0 {
		j.logg.Info(ctx, "no stock pairs below threshold")
		return nil
	}

	err = j.db.WithTx(ctx, func(tx *gorm.DB) error {
		for _, row := range rows {
			event := outbox.DomainEvent{
				EventType:     enums.EventStockLow,
				AggregateType: enums.AggregateStockPair,
				AggregateID:   row.ChemicalID,
				Version:       1,
				Data: payloads.StockLowEvent{
					Location:   row.Location,
					ChemicalID: row.ChemicalID,
					Balance:    row.Balance,
					Threshold:  row.Threshold,
				},
			}
			if err := j.emitter.EmitIfNotExists(ctx, tx, event); err != nil {
				return fmt.Errorf("emit low stock for %s/%s: %w", row.Location, row.ChemicalID, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("low stock scan: %w", err)
	}

	logCtx := j.logg.WithField(ctx, "pairs_below_threshold", len(rows))
	j.logg.Info(logCtx, "low stock scan complete")
	return nil
}
