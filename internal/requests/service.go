package requests

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/chemtrack/labstock-backend/internal/allocation"
	"github.com/chemtrack/labstock-backend/internal/ledger"
	"github.com/chemtrack/labstock-backend/pkg/db/models"
	"github.com/chemtrack/labstock-backend/pkg/enums"
	pkgerrors "github.com/chemtrack/labstock-backend/pkg/errors"
	"github.com/chemtrack/labstock-backend/pkg/outbox"
	"github.com/chemtrack/labstock-backend/pkg/outbox/payloads"
	"github.com/chemtrack/labstock-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type chemicalResolver interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Chemical, error)
}

type lineAllocator interface {
	Allocate(ctx context.Context, requestID, lineID uuid.UUID, location string) (*allocation.Outcome, error)
}

type stockCreditor interface {
	CreditTx(ctx context.Context, tx *gorm.DB, input ledger.MovementInput) (*models.StockTransaction, error)
}

type labSet interface {
	Contains(labID string) bool
}

// Service drives the request state machine. Status is always derived
// from the line aggregate after a line mutation, never cached stale.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Request, error)
	Get(ctx context.Context, requestID uuid.UUID) (*models.Request, error)
	List(ctx context.Context, filters ListFilters, params pagination.Params) (*RequestList, error)
	Decide(ctx context.Context, input DecideInput) (*DecideResult, error)
	Complete(ctx context.Context, requestID, actorID uuid.UUID, role enums.ActorRole) (*models.Request, error)
	AllocateLine(ctx context.Context, input AllocateLineInput) (*allocation.Outcome, error)
}

type service struct {
	repo      Repository
	tx        txRunner
	catalog   chemicalResolver
	allocator lineAllocator
	ledger    stockCreditor
	outbox    outboxPublisher
	labs      labSet
}

// NewService builds a request service with the required dependencies.
func NewService(repo Repository, tx txRunner, catalog chemicalResolver, allocator lineAllocator, stock stockCreditor, outboxPub outboxPublisher, labs labSet) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("requests repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("catalog resolver required")
	}
	if allocator == nil {
		return nil, fmt.Errorf("line allocator required")
	}
	if stock == nil {
		return nil, fmt.Errorf("stock ledger required")
	}
	if outboxPub == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if labs == nil {
		return nil, fmt.Errorf("lab set required")
	}
	return &service{
		repo:      repo,
		tx:        tx,
		catalog:   catalog,
		allocator: allocator,
		ledger:    stock,
		outbox:    outboxPub,
		labs:      labs,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Request, error) {
	if !s.labs.Contains(input.LabID) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown lab id %q", input.LabID)).
			WithDetails(map[string]any{"field": "labId"})
	}
	if input.RequesterID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "requester identity missing")
	}
	if len(input.Experiments) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one experiment required")
	}
	for i, experiment := range input.Experiments {
		if err := s.validateExperiment(ctx, i, experiment); err != nil {
			return nil, err
		}
	}

	var requestID uuid.UUID
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		request := &models.Request{
			LabID:       input.LabID,
			RequesterID: input.RequesterID,
			Status:      enums.RequestStatusPending,
		}
		if err := repo.CreateRequest(ctx, request); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create request")
		}
		requestID = request.ID

		lineCount := 0
		for _, in := range input.Experiments {
			experiment := &models.Experiment{
				RequestID:   request.ID,
				Name:        strings.TrimSpace(in.Name),
				ScheduledOn: in.ScheduledOn,
				Session:     in.Session,
			}
			if err := repo.CreateExperiment(ctx, experiment); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create experiment")
			}

			lines := make([]models.RequestLine, 0, len(in.Lines))
			for _, line := range in.Lines {
				lines = append(lines, models.RequestLine{
					RequestID:    request.ID,
					ExperimentID: experiment.ID,
					ChemicalID:   line.ChemicalID,
					RequestedQty: line.Quantity,
				})
			}
			if err := repo.CreateLines(ctx, lines); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create request lines")
			}
			lineCount += len(lines)
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventRequestCreated,
			AggregateType: enums.AggregateRequest,
			AggregateID:   request.ID,
			Version:       1,
			Actor:         buildActor(input.RequesterID, input.LabID, enums.ActorRoleFaculty),
			Data: payloads.RequestCreatedEvent{
				RequestID:       request.ID,
				LabID:           input.LabID,
				ExperimentCount: len(input.Experiments),
				LineCount:       lineCount,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, requestID)
}

func (s *service) validateExperiment(ctx context.Context, idx int, input ExperimentInput) error {
	if strings.TrimSpace(input.Name) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "experiment name required").
			WithDetails(map[string]any{"experiment": idx, "field": "experimentName"})
	}
	if input.ScheduledOn.IsZero() {
		return pkgerrors.New(pkgerrors.CodeValidation, "experiment date required").
			WithDetails(map[string]any{"experiment": idx, "field": "date"})
	}
	if !input.Session.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid session %q", input.Session)).
			WithDetails(map[string]any{"experiment": idx, "field": "session"})
	}
	if len(input.Lines) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "at least one chemical line required").
			WithDetails(map[string]any{"experiment": idx})
	}
	for i, line := range input.Lines {
		if line.ChemicalID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "chemical id required").
				WithDetails(map[string]any{"experiment": idx, "line": i})
		}
		if !line.Quantity.IsPositive() {
			return pkgerrors.New(pkgerrors.CodeValidation, "requested quantity must be positive").
				WithDetails(map[string]any{"experiment": idx, "line": i, "quantity": line.Quantity.String()})
		}
		if _, err := s.catalog.Get(ctx, line.ChemicalID); err != nil {
			if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeNotFound {
				return pkgerrors.New(pkgerrors.CodeValidation, "unknown chemical").
					WithDetails(map[string]any{"experiment": idx, "line": i, "chemical_id": line.ChemicalID.String()})
			}
			return err
		}
	}
	return nil
}

func (s *service) Get(ctx context.Context, requestID uuid.UUID) (*models.Request, error) {
	if requestID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "request id required")
	}
	request, err := s.repo.FindByID(ctx, requestID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "request not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load request")
	}
	return request, nil
}

func (s *service) List(ctx context.Context, filters ListFilters, params pagination.Params) (*RequestList, error) {
	if filters.Status != "" && !filters.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid status %q", filters.Status))
	}
	if filters.LabID != "" && !s.labs.Contains(filters.LabID) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown lab id %q", filters.LabID))
	}

	rows, err := s.repo.List(ctx, filters, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list requests")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	list := &RequestList{Items: rows}
	if len(rows) > limit {
		list.Items = rows[:limit]
		last := list.Items[len(list.Items)-1]
		cursor := pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
		list.NextCursor = &cursor
	}
	return list, nil
}

func (s *service) Decide(ctx context.Context, input DecideInput) (*DecideResult, error) {
	if input.RequestID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "request id required")
	}
	if input.ActorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor identity missing")
	}
	if !input.ActorRole.CanDecide() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "decisions require an admin role")
	}
	if input.Action != DecisionApprove && input.Action != DecisionReject {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "action must be approve or reject")
	}

	target := enums.RequestStatusApproved
	if input.Action == DecisionReject {
		target = enums.RequestStatusRejected
	}

	var labID string
	decided := false
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		request, err := repo.FindByID(ctx, input.RequestID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "request not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load request")
		}
		labID = request.LabID
		if request.Status == target {
			return nil
		}
		if request.Status != enums.RequestStatusPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "request already decided").
				WithDetails(map[string]any{"status": request.Status})
		}

		now := time.Now()
		updates := map[string]any{
			"status":     target,
			"decided_by": input.ActorID,
			"decided_at": now,
		}
		if input.Note != nil {
			updates["decision_note"] = input.Note
		}
		if err := repo.UpdateRequest(ctx, request.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update request")
		}
		decided = true

		if target == enums.RequestStatusRejected {
			if err := s.reverseAllocations(ctx, tx, request, input.ActorID); err != nil {
				return err
			}
		}

		note := ""
		if input.Note != nil {
			note = *input.Note
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventRequestDecided,
			AggregateType: enums.AggregateRequest,
			AggregateID:   request.ID,
			Version:       1,
			Actor:         buildActor(input.ActorID, request.LabID, input.ActorRole),
			Data: payloads.RequestDecidedEvent{
				RequestID: request.ID,
				LabID:     request.LabID,
				Status:    target,
				DecidedBy: input.ActorID,
				Note:      note,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	result := &DecideResult{}
	if decided && target == enums.RequestStatusApproved {
		outcomes, err := s.allocateAll(ctx, input.RequestID, labID)
		if err != nil {
			return nil, err
		}
		result.Outcomes = outcomes
		if err := s.recomputeStatus(ctx, input.RequestID, labID); err != nil {
			return nil, err
		}
	}

	request, err := s.Get(ctx, input.RequestID)
	if err != nil {
		return nil, err
	}
	result.Request = request
	return result, nil
}

// reverseAllocations issues compensating credits for every grant a
// rejected request's lines had already consumed.
func (s *service) reverseAllocations(ctx context.Context, tx *gorm.DB, request *models.Request, actorID uuid.UUID) error {
	note := "rejection reversal"
	for _, experiment := range request.Experiments {
		for _, line := range experiment.Lines {
			if !line.AllocatedQty.IsPositive() {
				continue
			}
			for _, record := range line.Allocations {
				if !record.Quantity.IsPositive() {
					continue
				}
				requestID := request.ID
				actor := actorID
				_, err := s.ledger.CreditTx(ctx, tx, ledger.MovementInput{
					Location:   record.Location,
					ChemicalID: line.ChemicalID,
					Quantity:   record.Quantity,
					Reason:     enums.TransactionReasonAdjustment,
					RequestID:  &requestID,
					ActorID:    &actor,
					Note:       &note,
				})
				if err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// allocateAll resolves each line at decision time: lab stock first,
// central as fallback for whatever remains.
func (s *service) allocateAll(ctx context.Context, requestID uuid.UUID, labID string) ([]LineOutcome, error) {
	lines, err := s.repo.FindLines(ctx, requestID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load request lines")
	}

	outcomes := make([]LineOutcome, 0, len(lines))
	for _, line := range lines {
		outcome, err := s.allocateWithFallback(ctx, requestID, line.ID, labID)
		if err != nil {
			return nil, err
		}
		outcomes = append(outcomes, LineOutcome{LineID: line.ID, Outcome: outcome})
	}
	return outcomes, nil
}

func (s *service) allocateWithFallback(ctx context.Context, requestID, lineID uuid.UUID, labID string) (*allocation.Outcome, error) {
	fromLab, err := s.allocator.Allocate(ctx, requestID, lineID, labID)
	if err != nil {
		return nil, err
	}
	if fromLab.Remaining.IsZero() {
		return fromLab, nil
	}
	fromCentral, err := s.allocator.Allocate(ctx, requestID, lineID, ledger.LocationCentral)
	if err != nil {
		return nil, err
	}
	return &allocation.Outcome{
		Granted:   fromLab.Granted.Add(fromCentral.Granted),
		Remaining: fromCentral.Remaining,
	}, nil
}

func (s *service) Complete(ctx context.Context, requestID, actorID uuid.UUID, role enums.ActorRole) (*models.Request, error) {
	if requestID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "request id required")
	}
	if actorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor identity missing")
	}
	if !role.CanDecide() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "completion requires an admin role")
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		request, err := repo.FindByID(ctx, requestID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "request not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load request")
		}
		if request.Status == enums.RequestStatusCompleted {
			return nil
		}
		if request.Status != enums.RequestStatusFulfilled {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "only fulfilled requests can be completed").
				WithDetails(map[string]any{"status": request.Status})
		}

		now := time.Now()
		updates := map[string]any{
			"status":       enums.RequestStatusCompleted,
			"completed_at": now,
		}
		if err := repo.UpdateRequest(ctx, requestID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update request")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventRequestCompleted,
			AggregateType: enums.AggregateRequest,
			AggregateID:   requestID,
			Version:       1,
			Actor:         buildActor(actorID, request.LabID, role),
			Data: payloads.RequestCompletedEvent{
				RequestID:   requestID,
				LabID:       request.LabID,
				CompletedAt: now,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, requestID)
}

func (s *service) AllocateLine(ctx context.Context, input AllocateLineInput) (*allocation.Outcome, error) {
	if input.RequestID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "request id required")
	}
	if input.LineID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "line id required")
	}
	if input.ActorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor identity missing")
	}
	if input.ActorRole == enums.ActorRoleFaculty {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "faculty cannot allocate stock")
	}

	request, err := s.Get(ctx, input.RequestID)
	if err != nil {
		return nil, err
	}
	if request.Status != enums.RequestStatusApproved && request.Status != enums.RequestStatusPartiallyFulfilled {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "request is not open for allocation").
			WithDetails(map[string]any{"status": request.Status})
	}
	if input.Location != request.LabID && input.Location != ledger.LocationCentral {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "location must be the request's lab or central").
			WithDetails(map[string]any{"location": input.Location})
	}

	outcome, err := s.allocator.Allocate(ctx, input.RequestID, input.LineID, input.Location)
	if err != nil {
		return nil, err
	}
	if err := s.recomputeStatus(ctx, input.RequestID, request.LabID); err != nil {
		return nil, err
	}
	return outcome, nil
}

// recomputeStatus derives the request status from the line aggregate
// and emits the fulfilled event on the transition into fulfilled.
func (s *service) recomputeStatus(ctx context.Context, requestID uuid.UUID, labID string) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		request, err := repo.FindByID(ctx, requestID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load request")
		}
		if request.Status != enums.RequestStatusApproved && request.Status != enums.RequestStatusPartiallyFulfilled {
			return nil
		}

		lines, err := repo.FindLines(ctx, requestID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load request lines")
		}
		derived := deriveStatus(lines)
		if derived == request.Status {
			return nil
		}
		if err := repo.UpdateRequest(ctx, requestID, map[string]any{"status": derived}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update request status")
		}
		if derived != enums.RequestStatusFulfilled {
			return nil
		}
		return s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventRequestFulfilled,
			AggregateType: enums.AggregateRequest,
			AggregateID:   requestID,
			Version:       1,
			Data: payloads.RequestFulfilledEvent{
				RequestID: requestID,
				LabID:     labID,
			},
		})
	})
}

func deriveStatus(lines []models.RequestLine) enums.RequestStatus {
	if len(lines) == 0 {
		return enums.RequestStatusApproved
	}
	allFull := true
	anyProgress := false
	for _, line := range lines {
		if line.AllocatedQty.IsPositive() {
			anyProgress = true
		}
		if !line.IsAllocated {
			allFull = false
		}
	}
	switch {
	case allFull:
		return enums.RequestStatusFulfilled
	case anyProgress:
		return enums.RequestStatusPartiallyFulfilled
	default:
		return enums.RequestStatusApproved
	}
}

func buildActor(userID uuid.UUID, labID string, role enums.ActorRole) *outbox.ActorRef {
	ref := &outbox.ActorRef{UserID: userID, Role: role.String()}
	if labID != "" {
		lab := labID
		ref.LabID = &lab
	}
	return ref
}
