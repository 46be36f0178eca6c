package intake

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

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
}

type chemicalResolver interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Chemical, error)
}

type stockLedger interface {
	CreditTx(ctx context.Context, tx *gorm.DB, input ledger.MovementInput) (*models.StockTransaction, error)
	DebitTx(ctx context.Context, tx *gorm.DB, input ledger.MovementInput) (*models.StockTransaction, error)
}

// Service handles replenishment: vendor invoices, quotations and
// manual corrections. Every received line lands in the stock ledger.
type Service interface {
	ReceiveInvoice(ctx context.Context, input ReceiveInvoiceInput) (*models.Invoice, error)
	GetInvoice(ctx context.Context, id uuid.UUID) (*models.Invoice, error)
	ListInvoices(ctx context.Context, vendorID uuid.UUID, params pagination.Params) (*InvoiceList, error)

	CreateVendor(ctx context.Context, input VendorInput) (*models.Vendor, error)
	UpdateVendor(ctx context.Context, id uuid.UUID, input VendorInput) (*models.Vendor, error)
	GetVendor(ctx context.Context, id uuid.UUID) (*models.Vendor, error)
	ListVendors(ctx context.Context) ([]models.Vendor, error)

	CreateQuotation(ctx context.Context, input CreateQuotationInput) (*models.Quotation, error)
	ApproveQuotation(ctx context.Context, id, actorID uuid.UUID, role enums.ActorRole) (*models.Quotation, error)
	ConvertQuotation(ctx context.Context, input ConvertQuotationInput) (*models.Invoice, error)
	GetQuotation(ctx context.Context, id uuid.UUID) (*models.Quotation, error)
	ListQuotations(ctx context.Context, status enums.QuotationStatus, params pagination.Params) (*QuotationList, error)

	Adjust(ctx context.Context, input AdjustInput) (*models.StockTransaction, error)
}

type service struct {
	repo    Repository
	tx      txRunner
	catalog chemicalResolver
	ledger  stockLedger
	outbox  outboxPublisher
}

// NewService builds an intake service with the required dependencies.
func NewService(repo Repository, tx txRunner, catalog chemicalResolver, stock stockLedger, outboxPub outboxPublisher) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("intake repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("catalog resolver required")
	}
	if stock == nil {
		return nil, fmt.Errorf("stock ledger required")
	}
	if outboxPub == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		repo:    repo,
		tx:      tx,
		catalog: catalog,
		ledger:  stock,
		outbox:  outboxPub,
	}, nil
}

func (s *service) ReceiveInvoice(ctx context.Context, input ReceiveInvoiceInput) (*models.Invoice, error) {
	if !input.ActorRole.CanReceiveStock() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "receiving stock requires an admin role")
	}
	if input.ReceivedBy == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "receiver identity missing")
	}
	if err := s.validateInvoiceInput(ctx, &input); err != nil {
		return nil, err
	}

	if _, err := s.repo.FindInvoiceByNumber(ctx, input.VendorID, input.InvoiceNumber); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "invoice number already received for this vendor").
			WithDetails(map[string]any{"invoice_number": input.InvoiceNumber})
	} else if err != gorm.ErrRecordNotFound {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check invoice number")
	}

	var invoiceID uuid.UUID
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		id, err := s.postInvoice(ctx, tx, input)
		if err != nil {
			return err
		}
		invoiceID = id
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetInvoice(ctx, invoiceID)
}

// validateInvoiceInput collects every line problem before any stock
// movement happens, so a bad invoice never half-posts.
func (s *service) validateInvoiceInput(ctx context.Context, input *ReceiveInvoiceInput) error {
	if input.VendorID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "vendor id required")
	}
	if _, err := s.repo.FindVendor(ctx, input.VendorID); err != nil {
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeValidation, "unknown vendor").
				WithDetails(map[string]any{"vendor_id": input.VendorID.String()})
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vendor")
	}
	if strings.TrimSpace(input.InvoiceNumber) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "invoice number required")
	}
	if input.InvoiceDate.IsZero() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invoice date required")
	}
	if input.Location == "" {
		input.Location = ledger.LocationCentral
	}
	if len(input.Lines) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "at least one invoice line required")
	}

	var errs error
	for i, line := range input.Lines {
		if line.ChemicalID == uuid.Nil {
			errs = multierr.Append(errs, fmt.Errorf("line %d: chemical id required", i))
			continue
		}
		if _, err := s.catalog.Get(ctx, line.ChemicalID); err != nil {
			if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeNotFound {
				errs = multierr.Append(errs, fmt.Errorf("line %d: unknown chemical %s", i, line.ChemicalID))
				continue
			}
			return err
		}
		if !line.Quantity.IsPositive() {
			errs = multierr.Append(errs, fmt.Errorf("line %d: quantity must be positive", i))
		}
		if line.PricePerUnit.IsNegative() {
			errs = multierr.Append(errs, fmt.Errorf("line %d: price cannot be negative", i))
		}
	}
	if errs != nil {
		problems := multierr.Errors(errs)
		details := make([]string, len(problems))
		for i, problem := range problems {
			details[i] = problem.Error()
		}
		return pkgerrors.Wrap(pkgerrors.CodeValidation, errs, "invalid invoice lines").
			WithDetails(map[string]any{"lines": details})
	}
	return nil
}

// postInvoice writes the invoice rows and credits each line into stock
// inside the caller's transaction.
func (s *service) postInvoice(ctx context.Context, tx *gorm.DB, input ReceiveInvoiceInput) (uuid.UUID, error) {
	repo := s.repo.WithTx(tx)

	total := decimal.Zero
	for _, line := range input.Lines {
		total = total.Add(line.Quantity.Mul(line.PricePerUnit))
	}

	invoice := &models.Invoice{
		VendorID:      input.VendorID,
		InvoiceNumber: strings.TrimSpace(input.InvoiceNumber),
		InvoiceDate:   input.InvoiceDate,
		TotalPrice:    total,
		ReceivedBy:    input.ReceivedBy,
	}
	if err := repo.CreateInvoice(ctx, invoice); err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create invoice")
	}

	lines := make([]models.InvoiceLine, 0, len(input.Lines))
	for _, line := range input.Lines {
		lines = append(lines, models.InvoiceLine{
			InvoiceID:    invoice.ID,
			ChemicalID:   line.ChemicalID,
			Quantity:     line.Quantity,
			PricePerUnit: line.PricePerUnit,
			TotalPrice:   line.Quantity.Mul(line.PricePerUnit),
			ExpiresAt:    line.ExpiresAt,
		})
	}
	if err := repo.CreateInvoiceLines(ctx, lines); err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create invoice lines")
	}

	note := fmt.Sprintf("invoice %s", invoice.InvoiceNumber)
	receiver := input.ReceivedBy
	for _, line := range input.Lines {
		_, err := s.ledger.CreditTx(ctx, tx, ledger.MovementInput{
			Location:   input.Location,
			ChemicalID: line.ChemicalID,
			Quantity:   line.Quantity,
			Reason:     enums.TransactionReasonInvoiceReceipt,
			ActorID:    &receiver,
			Note:       &note,
			ExpiresAt:  line.ExpiresAt,
		})
		if err != nil {
			return uuid.Nil, err
		}
	}

	err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventStockReceived,
		AggregateType: enums.AggregateInvoice,
		AggregateID:   invoice.ID,
		Version:       1,
		Actor:         &outbox.ActorRef{UserID: input.ReceivedBy, Role: input.ActorRole.String()},
		Data: payloads.StockReceivedEvent{
			InvoiceID:     invoice.ID,
			VendorID:      invoice.VendorID,
			InvoiceNumber: invoice.InvoiceNumber,
			LineCount:     len(lines),
		},
	})
	if err != nil {
		return uuid.Nil, err
	}
	return invoice.ID, nil
}

func (s *service) GetInvoice(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invoice id required")
	}
	invoice, err := s.repo.FindInvoice(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "invoice not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load invoice")
	}
	return invoice, nil
}

func (s *service) ListInvoices(ctx context.Context, vendorID uuid.UUID, params pagination.Params) (*InvoiceList, error) {
	rows, err := s.repo.ListInvoices(ctx, vendorID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list invoices")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	list := &InvoiceList{Items: rows}
	if len(rows) > limit {
		list.Items = rows[:limit]
		last := list.Items[len(list.Items)-1]
		cursor := pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
		list.NextCursor = &cursor
	}
	return list, nil
}

func (s *service) CreateVendor(ctx context.Context, input VendorInput) (*models.Vendor, error) {
	if err := validateVendorInput(input); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(input.Name)
	if _, err := s.repo.FindVendorByName(ctx, name); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "vendor name already exists").
			WithDetails(map[string]any{"name": name})
	} else if err != gorm.ErrRecordNotFound {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check vendor name")
	}

	vendor := &models.Vendor{
		Name:       name,
		Email:      input.Email,
		Phone:      input.Phone,
		Categories: pq.StringArray(input.Categories),
	}
	if err := s.repo.CreateVendor(ctx, vendor); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create vendor")
	}
	return vendor, nil
}

func (s *service) UpdateVendor(ctx context.Context, id uuid.UUID, input VendorInput) (*models.Vendor, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor id required")
	}
	if err := validateVendorInput(input); err != nil {
		return nil, err
	}

	updates := map[string]any{
		"name":       strings.TrimSpace(input.Name),
		"categories": pq.StringArray(input.Categories),
		"email":      input.Email,
		"phone":      input.Phone,
	}
	if err := s.repo.UpdateVendor(ctx, id, updates); err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "vendor not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update vendor")
	}
	return s.GetVendor(ctx, id)
}

func validateVendorInput(input VendorInput) error {
	if !input.ActorRole.CanReceiveStock() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "vendor management requires an admin role")
	}
	if strings.TrimSpace(input.Name) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "vendor name required")
	}
	return nil
}

func (s *service) GetVendor(ctx context.Context, id uuid.UUID) (*models.Vendor, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor id required")
	}
	vendor, err := s.repo.FindVendor(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "vendor not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vendor")
	}
	return vendor, nil
}

func (s *service) ListVendors(ctx context.Context) ([]models.Vendor, error) {
	vendors, err := s.repo.ListVendors(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list vendors")
	}
	return vendors, nil
}

func (s *service) CreateQuotation(ctx context.Context, input CreateQuotationInput) (*models.Quotation, error) {
	if !input.ActorRole.CanReceiveStock() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "quotations require an admin role")
	}
	if input.CreatedBy == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "creator identity missing")
	}
	if input.VendorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor id required")
	}
	if _, err := s.GetVendor(ctx, input.VendorID); err != nil {
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown vendor")
		}
		return nil, err
	}
	if len(input.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one quotation line required")
	}

	var errs error
	for i, line := range input.Lines {
		if line.ChemicalID == uuid.Nil {
			errs = multierr.Append(errs, fmt.Errorf("line %d: chemical id required", i))
			continue
		}
		if _, err := s.catalog.Get(ctx, line.ChemicalID); err != nil {
			if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeNotFound {
				errs = multierr.Append(errs, fmt.Errorf("line %d: unknown chemical %s", i, line.ChemicalID))
				continue
			}
			return nil, err
		}
		if !line.Quantity.IsPositive() {
			errs = multierr.Append(errs, fmt.Errorf("line %d: quantity must be positive", i))
		}
		if line.PricePerUnit.IsNegative() {
			errs = multierr.Append(errs, fmt.Errorf("line %d: price cannot be negative", i))
		}
	}
	if errs != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, errs, "invalid quotation lines")
	}

	var quotationID uuid.UUID
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		quotation := &models.Quotation{
			VendorID:  input.VendorID,
			Status:    enums.QuotationStatusDraft,
			CreatedBy: input.CreatedBy,
		}
		if err := repo.CreateQuotation(ctx, quotation); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create quotation")
		}
		quotationID = quotation.ID

		lines := make([]models.QuotationLine, 0, len(input.Lines))
		for _, line := range input.Lines {
			lines = append(lines, models.QuotationLine{
				QuotationID:  quotation.ID,
				ChemicalID:   line.ChemicalID,
				Quantity:     line.Quantity,
				PricePerUnit: line.PricePerUnit,
			})
		}
		if err := repo.CreateQuotationLines(ctx, lines); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create quotation lines")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetQuotation(ctx, quotationID)
}

func (s *service) ApproveQuotation(ctx context.Context, id, actorID uuid.UUID, role enums.ActorRole) (*models.Quotation, error) {
	if !role.CanReceiveStock() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "quotation approval requires an admin role")
	}
	if actorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor identity missing")
	}

	quotation, err := s.GetQuotation(ctx, id)
	if err != nil {
		return nil, err
	}
	switch quotation.Status {
	case enums.QuotationStatusApproved:
		return quotation, nil
	case enums.QuotationStatusDraft:
	default:
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "only draft quotations can be approved").
			WithDetails(map[string]any{"status": quotation.Status})
	}

	updates := map[string]any{"status": enums.QuotationStatusApproved}
	if err := s.repo.UpdateQuotation(ctx, id, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update quotation")
	}
	return s.GetQuotation(ctx, id)
}

// ConvertQuotation posts an approved quotation as a received invoice,
// crediting its lines into stock and linking the quotation to the
// invoice it became. Converting twice returns the existing invoice.
func (s *service) ConvertQuotation(ctx context.Context, input ConvertQuotationInput) (*models.Invoice, error) {
	if !input.ActorRole.CanReceiveStock() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "quotation conversion requires an admin role")
	}
	if input.ReceivedBy == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "receiver identity missing")
	}

	quotation, err := s.GetQuotation(ctx, input.QuotationID)
	if err != nil {
		return nil, err
	}
	if quotation.Status == enums.QuotationStatusConverted {
		if quotation.ConvertedInvoiceID == nil {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "quotation converted without an invoice link")
		}
		return s.GetInvoice(ctx, *quotation.ConvertedInvoiceID)
	}
	if quotation.Status != enums.QuotationStatusApproved {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "only approved quotations can be converted").
			WithDetails(map[string]any{"status": quotation.Status})
	}

	receive := ReceiveInvoiceInput{
		VendorID:      quotation.VendorID,
		InvoiceNumber: input.InvoiceNumber,
		InvoiceDate:   input.InvoiceDate,
		Location:      input.Location,
		ReceivedBy:    input.ReceivedBy,
		ActorRole:     input.ActorRole,
		Lines:         make([]InvoiceLineInput, 0, len(quotation.Lines)),
	}
	for _, line := range quotation.Lines {
		receive.Lines = append(receive.Lines, InvoiceLineInput{
			ChemicalID:   line.ChemicalID,
			Quantity:     line.Quantity,
			PricePerUnit: line.PricePerUnit,
		})
	}
	if err := s.validateInvoiceInput(ctx, &receive); err != nil {
		return nil, err
	}
	if _, err := s.repo.FindInvoiceByNumber(ctx, receive.VendorID, receive.InvoiceNumber); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "invoice number already received for this vendor").
			WithDetails(map[string]any{"invoice_number": receive.InvoiceNumber})
	} else if err != gorm.ErrRecordNotFound {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check invoice number")
	}

	var invoiceID uuid.UUID
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		id, err := s.postInvoice(ctx, tx, receive)
		if err != nil {
			return err
		}
		invoiceID = id

		repo := s.repo.WithTx(tx)
		updates := map[string]any{
			"status":               enums.QuotationStatusConverted,
			"converted_invoice_id": id,
		}
		if err := repo.UpdateQuotation(ctx, quotation.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update quotation")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventQuotationConverted,
			AggregateType: enums.AggregateQuotation,
			AggregateID:   quotation.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: input.ReceivedBy, Role: input.ActorRole.String()},
			Data: payloads.QuotationConvertedEvent{
				QuotationID: quotation.ID,
				InvoiceID:   id,
				VendorID:    quotation.VendorID,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return s.GetInvoice(ctx, invoiceID)
}

func (s *service) GetQuotation(ctx context.Context, id uuid.UUID) (*models.Quotation, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quotation id required")
	}
	quotation, err := s.repo.FindQuotation(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "quotation not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load quotation")
	}
	return quotation, nil
}

func (s *service) ListQuotations(ctx context.Context, status enums.QuotationStatus, params pagination.Params) (*QuotationList, error) {
	if status != "" && !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid status %q", status))
	}
	rows, err := s.repo.ListQuotations(ctx, status, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list quotations")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	list := &QuotationList{Items: rows}
	if len(rows) > limit {
		list.Items = rows[:limit]
		last := list.Items[len(list.Items)-1]
		cursor := pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
		list.NextCursor = &cursor
	}
	return list, nil
}

// Adjust posts a manual signed correction. Positive deltas credit the
// pair, negative deltas debit it under the usual balance checks.
func (s *service) Adjust(ctx context.Context, input AdjustInput) (*models.StockTransaction, error) {
	if !input.ActorRole.CanReceiveStock() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "manual adjustments require an admin role")
	}
	if input.ActorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor identity missing")
	}
	if input.Delta.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "adjustment delta cannot be zero")
	}

	actor := input.ActorID
	movement := ledger.MovementInput{
		Location:   input.Location,
		ChemicalID: input.ChemicalID,
		Quantity:   input.Delta.Abs(),
		Reason:     enums.TransactionReasonAdjustment,
		ActorID:    &actor,
		Note:       input.Note,
	}

	var txn *models.StockTransaction
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		if input.Delta.IsPositive() {
			txn, err = s.ledger.CreditTx(ctx, tx, movement)
		} else {
			txn, err = s.ledger.DebitTx(ctx, tx, movement)
		}
		if err != nil {
			return err
		}

		note := ""
		if input.Note != nil {
			note = *input.Note
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventStockAdjusted,
			AggregateType: enums.AggregateStockPair,
			AggregateID:   input.ChemicalID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: input.ActorID, Role: input.ActorRole.String()},
			Data: payloads.StockAdjustedEvent{
				Location:   input.Location,
				ChemicalID: input.ChemicalID,
				Delta:      input.Delta,
				Note:       note,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return txn, nil
}
