package requests

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/chemtrack/labstock-backend/internal/allocation"
	"github.com/chemtrack/labstock-backend/internal/ledger"
	"github.com/chemtrack/labstock-backend/pkg/db/models"
	"github.com/chemtrack/labstock-backend/pkg/enums"
	pkgerrors "github.com/chemtrack/labstock-backend/pkg/errors"
	"github.com/chemtrack/labstock-backend/pkg/outbox"
	"github.com/chemtrack/labstock-backend/pkg/pagination"
	"github.com/chemtrack/labstock-backend/pkg/types"
)

type stubRequestsRepo struct {
	requests    map[uuid.UUID]*models.Request
	lines       map[uuid.UUID][]*models.RequestLine
	experiments map[uuid.UUID][]models.Experiment
}

func newStubRequestsRepo() *stubRequestsRepo {
	return &stubRequestsRepo{
		requests:    make(map[uuid.UUID]*models.Request),
		lines:       make(map[uuid.UUID][]*models.RequestLine),
		experiments: make(map[uuid.UUID][]models.Experiment),
	}
}

func (s *stubRequestsRepo) WithTx(tx *gorm.DB) Repository {
	return s
}

func (s *stubRequestsRepo) CreateExperiment(ctx context.Context, experiment *models.Experiment) error {
	if experiment.ID == uuid.Nil {
		experiment.ID = uuid.New()
	}
	s.experiments[experiment.RequestID] = append(s.experiments[experiment.RequestID], *experiment)
	return nil
}

func (s *stubRequestsRepo) CreateRequest(ctx context.Context, request *models.Request) error {
	if request.ID == uuid.Nil {
		request.ID = uuid.New()
	}
	request.CreatedAt = time.Now()
	copied := *request
	s.requests[request.ID] = &copied
	return nil
}

func (s *stubRequestsRepo) CreateLines(ctx context.Context, lines []models.RequestLine) error {
	for i := range lines {
		line := lines[i]
		if line.ID == uuid.Nil {
			line.ID = uuid.New()
		}
		s.lines[line.RequestID] = append(s.lines[line.RequestID], &line)
	}
	return nil
}

func (s *stubRequestsRepo) assembleExperiments(requestID uuid.UUID) []models.Experiment {
	var out []models.Experiment
	for _, experiment := range s.experiments[requestID] {
		copied := experiment
		copied.Lines = nil
		for _, line := range s.lines[requestID] {
			if line.ExperimentID == experiment.ID {
				copied.Lines = append(copied.Lines, *line)
			}
		}
		out = append(out, copied)
	}
	return out
}

func (s *stubRequestsRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Request, error) {
	request, ok := s.requests[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *request
	copied.Experiments = s.assembleExperiments(id)
	return &copied, nil
}

func (s *stubRequestsRepo) FindLines(ctx context.Context, requestID uuid.UUID) ([]models.RequestLine, error) {
	var out []models.RequestLine
	for _, line := range s.lines[requestID] {
		out = append(out, *line)
	}
	return out, nil
}

func (s *stubRequestsRepo) UpdateRequest(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	request, ok := s.requests[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for key, value := range updates {
		switch key {
		case "status":
			if v, ok := value.(enums.RequestStatus); ok {
				request.Status = v
			}
		case "decided_by":
			if v, ok := value.(uuid.UUID); ok {
				request.DecidedBy = &v
			}
		case "decided_at":
			if v, ok := value.(time.Time); ok {
				request.DecidedAt = &v
			}
		case "decision_note":
			if v, ok := value.(*string); ok {
				request.DecisionNote = v
			}
		case "completed_at":
			if v, ok := value.(time.Time); ok {
				request.CompletedAt = &v
			}
		}
	}
	return nil
}

func (s *stubRequestsRepo) List(ctx context.Context, filters ListFilters, params pagination.Params) ([]models.Request, error) {
	var out []models.Request
	for id, request := range s.requests {
		if filters.LabID != "" && request.LabID != filters.LabID {
			continue
		}
		if filters.Status != "" && request.Status != filters.Status {
			continue
		}
		copied := *request
		copied.Experiments = s.assembleExperiments(id)
		out = append(out, copied)
	}
	return out, nil
}

type stubCatalog struct {
	known map[uuid.UUID]*models.Chemical
}

func (s *stubCatalog) Get(ctx context.Context, id uuid.UUID) (*models.Chemical, error) {
	chemical, ok := s.known[id]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "chemical not found")
	}
	return chemical, nil
}

// stubAllocator mimics the resolver against in-memory balances so
// approve-time allocation paths behave like the real thing.
type stubAllocator struct {
	repo     *stubRequestsRepo
	balances map[string]decimal.Decimal
	calls    []string
}

func balanceKey(location string, chemicalID uuid.UUID) string {
	return fmt.Sprintf("%s|%s", location, chemicalID)
}

func (s *stubAllocator) Allocate(ctx context.Context, requestID, lineID uuid.UUID, location string) (*allocation.Outcome, error) {
	s.calls = append(s.calls, location)
	for _, line := range s.repo.lines[requestID] {
		if line.ID != lineID {
			continue
		}
		needed := line.RequestedQty.Sub(line.AllocatedQty)
		if !needed.IsPositive() {
			return &allocation.Outcome{Granted: decimal.Zero, Remaining: decimal.Zero}, nil
		}
		balance := s.balances[balanceKey(location, line.ChemicalID)]
		grant := decimal.Min(needed, balance)
		if !grant.IsPositive() {
			return &allocation.Outcome{Granted: decimal.Zero, Remaining: needed}, nil
		}
		s.balances[balanceKey(location, line.ChemicalID)] = balance.Sub(grant)
		line.AllocatedQty = line.AllocatedQty.Add(grant)
		line.IsAllocated = line.AllocatedQty.Equal(line.RequestedQty)
		line.Allocations = append(line.Allocations, types.AllocationRecord{
			TransactionID: uuid.New(),
			Location:      location,
			Quantity:      grant,
			AllocatedAt:   time.Now(),
		})
		return &allocation.Outcome{Granted: grant, Remaining: needed.Sub(grant)}, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "request line not found")
}

type stubCreditor struct {
	credits []ledger.MovementInput
}

func (s *stubCreditor) CreditTx(ctx context.Context, tx *gorm.DB, input ledger.MovementInput) (*models.StockTransaction, error) {
	s.credits = append(s.credits, input)
	return &models.StockTransaction{ID: uuid.New(), Delta: input.Quantity}, nil
}

type stubOutbox struct {
	events []outbox.DomainEvent
}

func (s *stubOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	s.events = append(s.events, event)
	return nil
}

func (s *stubOutbox) EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	for _, existing := range s.events {
		if existing.EventType == event.EventType && existing.AggregateID == event.AggregateID {
			return nil
		}
	}
	return s.Emit(ctx, tx, event)
}

func (s *stubOutbox) has(eventType enums.OutboxEventType) bool {
	for _, event := range s.events {
		if event.EventType == eventType {
			return true
		}
	}
	return false
}

type stubLabs []string

func (s stubLabs) Contains(labID string) bool {
	for _, id := range s {
		if id == labID {
			return true
		}
	}
	return false
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

type fixture struct {
	repo      *stubRequestsRepo
	catalog   *stubCatalog
	allocator *stubAllocator
	creditor  *stubCreditor
	outbox    *stubOutbox
	svc       Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := newStubRequestsRepo()
	catalog := &stubCatalog{known: make(map[uuid.UUID]*models.Chemical)}
	allocator := &stubAllocator{repo: repo, balances: make(map[string]decimal.Decimal)}
	creditor := &stubCreditor{}
	out := &stubOutbox{}
	svc, err := NewService(repo, stubTxRunner{}, catalog, allocator, creditor, out, stubLabs{"LAB01", "LAB02", "LAB03"})
	if err != nil {
		t.Fatalf("service constructor failed: %v", err)
	}
	return &fixture{repo: repo, catalog: catalog, allocator: allocator, creditor: creditor, outbox: out, svc: svc}
}

func (f *fixture) addChemical() uuid.UUID {
	id := uuid.New()
	f.catalog.known[id] = &models.Chemical{ID: id, Name: "Chem " + id.String()[:8], Unit: "ml", Category: enums.ProductCategoryChemical}
	return id
}

func validCreateInput(chemID uuid.UUID) CreateInput {
	return CreateInput{
		LabID:       "LAB01",
		RequesterID: uuid.New(),
		Experiments: []ExperimentInput{
			{
				Name:        "Titration",
				ScheduledOn: time.Now().AddDate(0, 0, 7),
				Session:     enums.LabSessionMorning,
				Lines: []LineInput{
					{ChemicalID: chemID, Quantity: decimal.NewFromInt(10)},
				},
			},
		},
	}
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	chemID := f.addChemical()
	ctx := context.Background()

	unknownLab := validCreateInput(chemID)
	unknownLab.LabID = "LAB99"
	if _, err := f.svc.Create(ctx, unknownLab); pkgerrors.As(err) == nil || pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for unknown lab got %v", err)
	}

	zeroQty := validCreateInput(chemID)
	zeroQty.Experiments[0].Lines[0].Quantity = decimal.Zero
	if _, err := f.svc.Create(ctx, zeroQty); pkgerrors.As(err) == nil || pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for zero quantity got %v", err)
	}

	unknownChem := validCreateInput(uuid.New())
	if _, err := f.svc.Create(ctx, unknownChem); pkgerrors.As(err) == nil || pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for unknown chemical got %v", err)
	}

	noLines := validCreateInput(chemID)
	noLines.Experiments[0].Lines = nil
	if _, err := f.svc.Create(ctx, noLines); pkgerrors.As(err) == nil || pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for empty lines got %v", err)
	}

	noExperiments := validCreateInput(chemID)
	noExperiments.Experiments = nil
	if _, err := f.svc.Create(ctx, noExperiments); pkgerrors.As(err) == nil || pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for empty experiments got %v", err)
	}
}

func TestCreatePendingRequestWithEvent(t *testing.T) {
	f := newFixture(t)
	chemID := f.addChemical()

	request, err := f.svc.Create(context.Background(), validCreateInput(chemID))
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if request.Status != enums.RequestStatusPending {
		t.Fatalf("expected pending got %s", request.Status)
	}
	if len(request.Experiments) != 1 {
		t.Fatalf("expected one experiment got %d", len(request.Experiments))
	}
	lines := request.Experiments[0].Lines
	if len(lines) != 1 || !lines[0].RequestedQty.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("unexpected lines %+v", lines)
	}
	if !f.outbox.has(enums.EventRequestCreated) {
		t.Fatal("expected request created event")
	}
}

func TestCreateAcceptsMultipleExperiments(t *testing.T) {
	f := newFixture(t)
	acidID := f.addChemical()
	baseID := f.addChemical()

	input := CreateInput{
		LabID:       "LAB02",
		RequesterID: uuid.New(),
		Experiments: []ExperimentInput{
			{
				Name:        "Acid-base titration",
				ScheduledOn: time.Now().AddDate(0, 0, 3),
				Session:     enums.LabSessionMorning,
				Lines: []LineInput{
					{ChemicalID: acidID, Quantity: decimal.NewFromInt(5)},
					{ChemicalID: baseID, Quantity: decimal.NewFromInt(8)},
				},
			},
			{
				Name:        "Buffer preparation",
				ScheduledOn: time.Now().AddDate(0, 0, 4),
				Session:     enums.LabSessionAfternoon,
				Lines: []LineInput{
					{ChemicalID: baseID, Quantity: decimal.NewFromInt(2)},
				},
			},
		},
	}

	request, err := f.svc.Create(context.Background(), input)
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if len(request.Experiments) != 2 {
		t.Fatalf("expected two experiments got %d", len(request.Experiments))
	}
	for _, experiment := range request.Experiments {
		if experiment.RequestID != request.ID {
			t.Fatalf("experiment not owned by request: %+v", experiment)
		}
		for _, line := range experiment.Lines {
			if line.ExperimentID != experiment.ID || line.RequestID != request.ID {
				t.Fatalf("line not owned by its experiment: %+v", line)
			}
		}
	}
	if got := len(request.Experiments[0].Lines) + len(request.Experiments[1].Lines); got != 3 {
		t.Fatalf("expected three lines across experiments got %d", got)
	}
	if len(f.repo.lines[request.ID]) != 3 {
		t.Fatalf("expected three stored lines got %d", len(f.repo.lines[request.ID]))
	}
}

func TestDecideRequiresAdminRole(t *testing.T) {
	f := newFixture(t)
	chemID := f.addChemical()
	request, _ := f.svc.Create(context.Background(), validCreateInput(chemID))

	_, err := f.svc.Decide(context.Background(), DecideInput{
		RequestID: request.ID,
		Action:    DecisionApprove,
		ActorID:   uuid.New(),
		ActorRole: enums.ActorRoleLabAssistant,
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden got %v", err)
	}
}

func TestApproveAllocatesLabThenCentral(t *testing.T) {
	f := newFixture(t)
	chemID := f.addChemical()
	request, _ := f.svc.Create(context.Background(), validCreateInput(chemID))
	f.allocator.balances[balanceKey("LAB01", chemID)] = decimal.NewFromInt(4)
	f.allocator.balances[balanceKey(ledger.LocationCentral, chemID)] = decimal.NewFromInt(20)

	result, err := f.svc.Decide(context.Background(), DecideInput{
		RequestID: request.ID,
		Action:    DecisionApprove,
		ActorID:   uuid.New(),
		ActorRole: enums.ActorRoleCentralLabAdmin,
	})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if len(result.Outcomes) != 1 {
		t.Fatalf("expected one line outcome got %d", len(result.Outcomes))
	}
	outcome := result.Outcomes[0].Outcome
	if !outcome.Granted.Equal(decimal.NewFromInt(10)) || !outcome.Remaining.IsZero() {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
	if result.Request.Status != enums.RequestStatusFulfilled {
		t.Fatalf("expected fulfilled got %s", result.Request.Status)
	}
	if f.allocator.calls[0] != "LAB01" || f.allocator.calls[1] != ledger.LocationCentral {
		t.Fatalf("unexpected allocation order %v", f.allocator.calls)
	}
	if !f.outbox.has(enums.EventRequestDecided) || !f.outbox.has(enums.EventRequestFulfilled) {
		t.Fatalf("missing decision events: %+v", f.outbox.events)
	}
}

func TestApproveWithScarceStockEndsPartiallyFulfilled(t *testing.T) {
	f := newFixture(t)
	chemID := f.addChemical()
	request, _ := f.svc.Create(context.Background(), validCreateInput(chemID))
	f.allocator.balances[balanceKey(ledger.LocationCentral, chemID)] = decimal.NewFromInt(6)

	result, err := f.svc.Decide(context.Background(), DecideInput{
		RequestID: request.ID,
		Action:    DecisionApprove,
		ActorID:   uuid.New(),
		ActorRole: enums.ActorRoleAdmin,
	})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	outcome := result.Outcomes[0].Outcome
	if !outcome.Granted.Equal(decimal.NewFromInt(6)) || !outcome.Remaining.Equal(decimal.NewFromInt(4)) {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
	if result.Request.Status != enums.RequestStatusPartiallyFulfilled {
		t.Fatalf("expected partially fulfilled got %s", result.Request.Status)
	}
}

func TestApproveWithNoStockStaysApproved(t *testing.T) {
	f := newFixture(t)
	chemID := f.addChemical()
	request, _ := f.svc.Create(context.Background(), validCreateInput(chemID))

	result, err := f.svc.Decide(context.Background(), DecideInput{
		RequestID: request.ID,
		Action:    DecisionApprove,
		ActorID:   uuid.New(),
		ActorRole: enums.ActorRoleAdmin,
	})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if result.Request.Status != enums.RequestStatusApproved {
		t.Fatalf("expected approved got %s", result.Request.Status)
	}
}

func TestRejectIssuesCompensatingCredits(t *testing.T) {
	f := newFixture(t)
	chemID := f.addChemical()
	request, _ := f.svc.Create(context.Background(), validCreateInput(chemID))

	// Simulate a line that had already drawn stock before the rejection.
	line := f.repo.lines[request.ID][0]
	line.AllocatedQty = decimal.NewFromInt(7)
	line.Allocations = types.AllocationHistory{
		{TransactionID: uuid.New(), Location: "LAB01", Quantity: decimal.NewFromInt(3), AllocatedAt: time.Now()},
		{TransactionID: uuid.New(), Location: ledger.LocationCentral, Quantity: decimal.NewFromInt(4), AllocatedAt: time.Now()},
	}

	result, err := f.svc.Decide(context.Background(), DecideInput{
		RequestID: request.ID,
		Action:    DecisionReject,
		ActorID:   uuid.New(),
		ActorRole: enums.ActorRoleCentralLabAdmin,
	})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if result.Request.Status != enums.RequestStatusRejected {
		t.Fatalf("expected rejected got %s", result.Request.Status)
	}
	if len(f.creditor.credits) != 2 {
		t.Fatalf("expected two compensating credits got %d", len(f.creditor.credits))
	}
	for _, credit := range f.creditor.credits {
		if credit.Reason != enums.TransactionReasonAdjustment {
			t.Fatalf("expected adjustment reason got %s", credit.Reason)
		}
	}
	if !f.creditor.credits[0].Quantity.Equal(decimal.NewFromInt(3)) || f.creditor.credits[0].Location != "LAB01" {
		t.Fatalf("unexpected first credit %+v", f.creditor.credits[0])
	}
}

func TestDecideTwiceConflictsUnlessSameTarget(t *testing.T) {
	f := newFixture(t)
	chemID := f.addChemical()
	request, _ := f.svc.Create(context.Background(), validCreateInput(chemID))
	ctx := context.Background()
	admin := uuid.New()

	if _, err := f.svc.Decide(ctx, DecideInput{RequestID: request.ID, Action: DecisionReject, ActorID: admin, ActorRole: enums.ActorRoleAdmin}); err != nil {
		t.Fatalf("first decide failed: %v", err)
	}

	// Same target again is a no-op.
	if _, err := f.svc.Decide(ctx, DecideInput{RequestID: request.ID, Action: DecisionReject, ActorID: admin, ActorRole: enums.ActorRoleAdmin}); err != nil {
		t.Fatalf("repeat decide should be a no-op, got %v", err)
	}

	_, err := f.svc.Decide(ctx, DecideInput{RequestID: request.ID, Action: DecisionApprove, ActorID: admin, ActorRole: enums.ActorRoleAdmin})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict got %v", err)
	}
}

func TestCompleteOnlyFromFulfilled(t *testing.T) {
	f := newFixture(t)
	chemID := f.addChemical()
	request, _ := f.svc.Create(context.Background(), validCreateInput(chemID))
	ctx := context.Background()
	admin := uuid.New()

	_, err := f.svc.Complete(ctx, request.ID, admin, enums.ActorRoleAdmin)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict got %v", err)
	}

	f.allocator.balances[balanceKey(ledger.LocationCentral, chemID)] = decimal.NewFromInt(10)
	if _, err := f.svc.Decide(ctx, DecideInput{RequestID: request.ID, Action: DecisionApprove, ActorID: admin, ActorRole: enums.ActorRoleAdmin}); err != nil {
		t.Fatalf("approve failed: %v", err)
	}

	completed, err := f.svc.Complete(ctx, request.ID, admin, enums.ActorRoleAdmin)
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if completed.Status != enums.RequestStatusCompleted || completed.CompletedAt == nil {
		t.Fatalf("unexpected completed request %+v", completed)
	}
	if !f.outbox.has(enums.EventRequestCompleted) {
		t.Fatal("expected completed event")
	}

	// Completing again is a no-op.
	if _, err := f.svc.Complete(ctx, request.ID, admin, enums.ActorRoleAdmin); err != nil {
		t.Fatalf("repeat complete should be a no-op, got %v", err)
	}
}

func TestAllocateLineAfterReplenishmentFulfills(t *testing.T) {
	f := newFixture(t)
	chemID := f.addChemical()
	request, _ := f.svc.Create(context.Background(), validCreateInput(chemID))
	ctx := context.Background()
	admin := uuid.New()

	f.allocator.balances[balanceKey(ledger.LocationCentral, chemID)] = decimal.NewFromInt(4)
	if _, err := f.svc.Decide(ctx, DecideInput{RequestID: request.ID, Action: DecisionApprove, ActorID: admin, ActorRole: enums.ActorRoleAdmin}); err != nil {
		t.Fatalf("approve failed: %v", err)
	}

	lineID := f.repo.lines[request.ID][0].ID

	_, err := f.svc.AllocateLine(ctx, AllocateLineInput{
		RequestID: request.ID,
		LineID:    lineID,
		Location:  ledger.LocationCentral,
		ActorID:   uuid.New(),
		ActorRole: enums.ActorRoleFaculty,
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden for faculty got %v", err)
	}

	_, err = f.svc.AllocateLine(ctx, AllocateLineInput{
		RequestID: request.ID,
		LineID:    lineID,
		Location:  "LAB02",
		ActorID:   uuid.New(),
		ActorRole: enums.ActorRoleLabAssistant,
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for foreign location got %v", err)
	}

	// Stock arrives, a lab assistant retries the line.
	f.allocator.balances[balanceKey(ledger.LocationCentral, chemID)] = decimal.NewFromInt(20)
	outcome, err := f.svc.AllocateLine(ctx, AllocateLineInput{
		RequestID: request.ID,
		LineID:    lineID,
		Location:  ledger.LocationCentral,
		ActorID:   uuid.New(),
		ActorRole: enums.ActorRoleLabAssistant,
	})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if !outcome.Granted.Equal(decimal.NewFromInt(6)) || !outcome.Remaining.IsZero() {
		t.Fatalf("unexpected outcome %+v", outcome)
	}

	request2, _ := f.svc.Get(ctx, request.ID)
	if request2.Status != enums.RequestStatusFulfilled {
		t.Fatalf("expected fulfilled got %s", request2.Status)
	}
}

func TestDeriveStatus(t *testing.T) {
	qty := func(v int64) decimal.Decimal { return decimal.NewFromInt(v) }
	cases := []struct {
		name  string
		lines []models.RequestLine
		want  enums.RequestStatus
	}{
		{
			name: "all zero",
			lines: []models.RequestLine{
				{RequestedQty: qty(5)},
				{RequestedQty: qty(3)},
			},
			want: enums.RequestStatusApproved,
		},
		{
			name: "one partial",
			lines: []models.RequestLine{
				{RequestedQty: qty(5), AllocatedQty: qty(2)},
				{RequestedQty: qty(3)},
			},
			want: enums.RequestStatusPartiallyFulfilled,
		},
		{
			name: "uneven lines",
			lines: []models.RequestLine{
				{RequestedQty: qty(5), AllocatedQty: qty(5), IsAllocated: true},
				{RequestedQty: qty(3)},
			},
			want: enums.RequestStatusPartiallyFulfilled,
		},
		{
			name: "all full",
			lines: []models.RequestLine{
				{RequestedQty: qty(5), AllocatedQty: qty(5), IsAllocated: true},
				{RequestedQty: qty(3), AllocatedQty: qty(3), IsAllocated: true},
			},
			want: enums.RequestStatusFulfilled,
		},
	}
	for _, tc := range cases {
		if got := deriveStatus(tc.lines); got != tc.want {
			t.Fatalf("%s: expected %s got %s", tc.name, tc.want, got)
		}
	}
}
