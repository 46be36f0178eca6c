package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/chemtrack/labstock-backend/pkg/db/models"
	"github.com/chemtrack/labstock-backend/pkg/enums"
	pkgerrors "github.com/chemtrack/labstock-backend/pkg/errors"
)

const searchLimit = 20

// Service exposes catalog reads and admin-gated mutations. Quantity
// state never lives here; the ledger owns it.
type Service interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Chemical, error)
	ListByCategory(ctx context.Context, category string) ([]models.Chemical, error)
	Upsert(ctx context.Context, input UpsertInput) (*models.Chemical, error)
	SetThreshold(ctx context.Context, id uuid.UUID, threshold decimal.Decimal, actor enums.ActorRole) error
	SearchAvailable(ctx context.Context, location, query string) ([]AvailableChemical, error)
	Delete(ctx context.Context, id uuid.UUID, actor enums.ActorRole) error
}

type service struct {
	repo Repository
}

// NewService wires a catalog service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Chemical, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "chemical id required")
	}
	chemical, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "chemical not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load chemical")
	}
	return chemical, nil
}

func (s *service) ListByCategory(ctx context.Context, category string) ([]models.Chemical, error) {
	if category != "" {
		if _, err := enums.ParseProductCategory(category); err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, err.Error())
		}
	}
	chemicals, err := s.repo.ListByCategory(ctx, category)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list chemicals")
	}
	return chemicals, nil
}

func (s *service) Upsert(ctx context.Context, input UpsertInput) (*models.Chemical, error) {
	if !input.Actor.CanDecide() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "catalog changes require an admin role")
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name required")
	}
	if strings.TrimSpace(input.Unit) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit required")
	}
	if !input.Category.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid category %q", input.Category))
	}
	if input.MinThreshold != nil && input.MinThreshold.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "threshold cannot be negative")
	}

	chemical := &models.Chemical{
		Name:         name,
		Unit:         strings.TrimSpace(input.Unit),
		Category:     input.Category,
		MinThreshold: input.MinThreshold,
	}
	if err := s.repo.Upsert(ctx, chemical); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upsert chemical")
	}
	if chemical.ID == uuid.Nil {
		// Conflict path leaves the generated id unset; reload by name.
		stored, err := s.repo.FindByName(ctx, name)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload chemical")
		}
		return stored, nil
	}
	return chemical, nil
}

func (s *service) SetThreshold(ctx context.Context, id uuid.UUID, threshold decimal.Decimal, actor enums.ActorRole) error {
	if !actor.CanDecide() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "threshold changes require an admin role")
	}
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "chemical id required")
	}
	if threshold.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "threshold cannot be negative")
	}
	if err := s.repo.UpdateThreshold(ctx, id, &threshold); err != nil {
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeNotFound, "chemical not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update threshold")
	}
	return nil
}

func (s *service) SearchAvailable(ctx context.Context, location, query string) ([]AvailableChemical, error) {
	if strings.TrimSpace(location) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "location required")
	}
	rows, err := s.repo.SearchAvailable(ctx, location, strings.TrimSpace(query), searchLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "search available chemicals")
	}
	return rows, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID, actor enums.ActorRole) error {
	if !actor.CanDecide() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "catalog changes require an admin role")
	}
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "chemical id required")
	}
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeNotFound, "chemical not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load chemical")
	}

	openLines, err := s.repo.CountOpenRequestLines(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count open request lines")
	}
	if openLines > 0 {
		return pkgerrors.New(pkgerrors.CodeConflict, "chemical is referenced by open requests").
			WithDetails(map[string]any{"open_lines": openLines})
	}

	stock, err := s.repo.SumStock(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum remaining stock")
	}
	if !stock.IsZero() {
		return pkgerrors.New(pkgerrors.CodeConflict, "chemical still has stock on hand").
			WithDetails(map[string]any{"on_hand": stock.String()})
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete chemical")
	}
	return nil
}
