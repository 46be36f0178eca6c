package catalog

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/chemtrack/labstock-backend/pkg/db/models"
	"github.com/chemtrack/labstock-backend/pkg/enums"
	pkgerrors "github.com/chemtrack/labstock-backend/pkg/errors"
)

type stubCatalogRepo struct {
	byID      map[uuid.UUID]*models.Chemical
	openLines int64
	stock     decimal.Decimal
	deleted   []uuid.UUID
	available []AvailableChemical
}

func newStubCatalogRepo() *stubCatalogRepo {
	return &stubCatalogRepo{byID: make(map[uuid.UUID]*models.Chemical)}
}

func (s *stubCatalogRepo) WithTx(tx *gorm.DB) Repository {
	return s
}

func (s *stubCatalogRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Chemical, error) {
	chemical, ok := s.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return chemical, nil
}

func (s *stubCatalogRepo) FindByName(ctx context.Context, name string) (*models.Chemical, error) {
	for _, chemical := range s.byID {
		if chemical.Name == name {
			return chemical, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubCatalogRepo) ListByCategory(ctx context.Context, category string) ([]models.Chemical, error) {
	var out []models.Chemical
	for _, chemical := range s.byID {
		if category == "" || string(chemical.Category) == category {
			out = append(out, *chemical)
		}
	}
	return out, nil
}

func (s *stubCatalogRepo) Upsert(ctx context.Context, chemical *models.Chemical) error {
	for _, stored := range s.byID {
		if stored.Name == chemical.Name {
			stored.Unit = chemical.Unit
			stored.Category = chemical.Category
			stored.MinThreshold = chemical.MinThreshold
			return nil
		}
	}
	chemical.ID = uuid.New()
	copied := *chemical
	s.byID[chemical.ID] = &copied
	return nil
}

func (s *stubCatalogRepo) UpdateThreshold(ctx context.Context, id uuid.UUID, threshold *decimal.Decimal) error {
	chemical, ok := s.byID[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	chemical.MinThreshold = threshold
	return nil
}

func (s *stubCatalogRepo) Delete(ctx context.Context, id uuid.UUID) error {
	delete(s.byID, id)
	s.deleted = append(s.deleted, id)
	return nil
}

func (s *stubCatalogRepo) CountOpenRequestLines(ctx context.Context, chemicalID uuid.UUID) (int64, error) {
	return s.openLines, nil
}

func (s *stubCatalogRepo) SumStock(ctx context.Context, chemicalID uuid.UUID) (decimal.Decimal, error) {
	return s.stock, nil
}

func (s *stubCatalogRepo) SearchAvailable(ctx context.Context, location, query string, limit int) ([]AvailableChemical, error) {
	var out []AvailableChemical
	for _, row := range s.available {
		if strings.HasPrefix(strings.ToLower(row.Name), strings.ToLower(query)) {
			out = append(out, row)
		}
	}
	return out, nil
}

func TestUpsertRequiresAdminRole(t *testing.T) {
	repo := newStubCatalogRepo()
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("service constructor failed: %v", err)
	}

	_, err = svc.Upsert(context.Background(), UpsertInput{
		Name:     "Ethanol",
		Unit:     "ml",
		Category: enums.ProductCategoryChemical,
		Actor:    enums.ActorRoleFaculty,
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden got %v", err)
	}

	chemical, err := svc.Upsert(context.Background(), UpsertInput{
		Name:     "Ethanol",
		Unit:     "ml",
		Category: enums.ProductCategoryChemical,
		Actor:    enums.ActorRoleCentralLabAdmin,
	})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if chemical.ID == uuid.Nil {
		t.Fatal("expected generated id")
	}
}

func TestUpsertValidation(t *testing.T) {
	repo := newStubCatalogRepo()
	svc, _ := NewService(repo)

	cases := []UpsertInput{
		{Name: "", Unit: "ml", Category: enums.ProductCategoryChemical, Actor: enums.ActorRoleAdmin},
		{Name: "Ethanol", Unit: "", Category: enums.ProductCategoryChemical, Actor: enums.ActorRoleAdmin},
		{Name: "Ethanol", Unit: "ml", Category: "liquid", Actor: enums.ActorRoleAdmin},
	}
	for _, input := range cases {
		_, err := svc.Upsert(context.Background(), input)
		typed := pkgerrors.As(err)
		if typed == nil || typed.Code() != pkgerrors.CodeValidation {
			t.Fatalf("expected validation error for %+v got %v", input, err)
		}
	}
}

func TestSetThreshold(t *testing.T) {
	repo := newStubCatalogRepo()
	svc, _ := NewService(repo)
	id := uuid.New()
	repo.byID[id] = &models.Chemical{ID: id, Name: "NaCl", Unit: "g", Category: enums.ProductCategoryChemical}

	if err := svc.SetThreshold(context.Background(), id, decimal.NewFromInt(5), enums.ActorRoleAdmin); err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if repo.byID[id].MinThreshold == nil || !repo.byID[id].MinThreshold.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("threshold not stored: %v", repo.byID[id].MinThreshold)
	}

	err := svc.SetThreshold(context.Background(), id, decimal.NewFromInt(-1), enums.ActorRoleAdmin)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error got %v", err)
	}

	err = svc.SetThreshold(context.Background(), uuid.New(), decimal.NewFromInt(1), enums.ActorRoleAdmin)
	typed = pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found got %v", err)
	}
}

func TestDeleteBlockedByOpenRequestsOrStock(t *testing.T) {
	repo := newStubCatalogRepo()
	svc, _ := NewService(repo)
	id := uuid.New()
	repo.byID[id] = &models.Chemical{ID: id, Name: "HCl", Unit: "ml", Category: enums.ProductCategoryChemical}

	repo.openLines = 2
	err := svc.Delete(context.Background(), id, enums.ActorRoleAdmin)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict for open requests got %v", err)
	}

	repo.openLines = 0
	repo.stock = decimal.NewFromInt(3)
	err = svc.Delete(context.Background(), id, enums.ActorRoleAdmin)
	typed = pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict for remaining stock got %v", err)
	}

	repo.stock = decimal.Zero
	if err := svc.Delete(context.Background(), id, enums.ActorRoleAdmin); err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if len(repo.deleted) != 1 || repo.deleted[0] != id {
		t.Fatalf("chemical not deleted")
	}
}

func TestSearchAvailable(t *testing.T) {
	repo := newStubCatalogRepo()
	svc, _ := NewService(repo)
	repo.available = []AvailableChemical{
		{ID: uuid.New(), Name: "H2SO4", Unit: "ml", Category: enums.ProductCategoryChemical, Available: decimal.NewFromInt(10)},
		{ID: uuid.New(), Name: "H2O2", Unit: "ml", Category: enums.ProductCategoryChemical, Available: decimal.NewFromInt(4)},
		{ID: uuid.New(), Name: "NaOH", Unit: "g", Category: enums.ProductCategoryChemical, Available: decimal.NewFromInt(2)},
	}

	rows, err := svc.SearchAvailable(context.Background(), "central", "H2")
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected two matches got %d", len(rows))
	}

	_, err = svc.SearchAvailable(context.Background(), " ", "H2")
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error got %v", err)
	}
}
