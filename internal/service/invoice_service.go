package service

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sisb-tech/backoffice-billing-api/internal/models"
	appErrors "github.com/sisb-tech/backoffice-billing-api/pkg/errors"
	"github.com/sisb-tech/backoffice-billing-api/pkg/export"
	"github.com/sisb-tech/backoffice-billing-api/pkg/jobs"
)

const invoiceNotifyJobType = "invoice.notify"

type invoiceRepository interface {
	CreateBatch(ctx context.Context, invoices []models.InvoiceRecord) error
	List(ctx context.Context, filter models.InvoiceFilter) ([]models.InvoiceRecord, int, error)
	FindByID(ctx context.Context, id string) (*models.InvoiceRecord, error)
	ListByBatch(ctx context.Context, batchID string) ([]models.InvoiceRecord, error)
}

type studentReader interface {
	FindByIDs(ctx context.Context, ids []string) ([]models.Student, error)
}

// JobQueue is the background dispatch surface used for notifications.
type JobQueue interface {
	Enqueue(job jobs.Job) error
}

// GenerateInvoicesRequest issues one invoice per listed student from a
// finalized selection.
type GenerateInvoicesRequest struct {
	SessionID       string    `json:"session_id" validate:"required"`
	StudentIDs      []string  `json:"student_ids"`
	PaymentDeadline time.Time `json:"payment_deadline"`
	Currency        string    `json:"currency"`
}

// InvoiceNotifyPayload is the background job payload for parent notification.
type InvoiceNotifyPayload struct {
	InvoiceID   string `json:"invoice_id"`
	StudentID   string `json:"student_id"`
	ParentEmail string `json:"parent_email"`
}

// InvoiceService assembles, persists and exports invoice batches.
type InvoiceService struct {
	repo       invoiceRepository
	students   studentReader
	selections *SelectionService
	queue      JobQueue
	csv        *export.CSVExporter
	pdf        *export.PDFExporter
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewInvoiceService constructs service.
func NewInvoiceService(
	repo invoiceRepository,
	students studentReader,
	selections *SelectionService,
	queue JobQueue,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
) *InvoiceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InvoiceService{
		repo:       repo,
		students:   students,
		selections: selections,
		queue:      queue,
		csv:        export.NewCSVExporter(),
		pdf:        export.NewPDFExporter(),
		metrics:    metrics,
		validator:  validate,
		logger:     logger,
	}
}

// BuildInvoices produces one identical invoice record per student from a
// finalized selection. Every precondition is checked up front and all failed
// ones are reported together; no partial batch is ever produced. Input
// student order is preserved and duplicates are not collapsed.
func BuildInvoices(selection *models.Selection, studentIDs []string, deadline time.Time, batchID, currency string, now time.Time) ([]models.InvoiceRecord, error) {
	var violations []string
	if selection == nil || selection.FinalizedAt.IsZero() {
		violations = append(violations, "selection must be finalized")
	} else if len(selection.Items) == 0 {
		violations = append(violations, "selection must not be empty")
	}
	if len(studentIDs) == 0 {
		violations = append(violations, "students must not be empty")
	}
	if beforeToday(deadline, now) {
		violations = append(violations, "payment deadline must be today or later")
	}
	if len(violations) > 0 {
		return nil, appErrors.WithDetails(appErrors.ErrInvalidInvoiceRequest, map[string]interface{}{
			"violations": violations,
		})
	}

	perStudent := selection.PerStudentTotal()
	invoices := make([]models.InvoiceRecord, 0, len(studentIDs))
	for _, studentID := range studentIDs {
		invoiceID := uuid.NewString()
		items := make([]models.InvoiceItem, len(selection.Items))
		for i, snap := range selection.Items {
			items[i] = models.InvoiceItem{
				ID:        uuid.NewString(),
				InvoiceID: invoiceID,
				FeeItemID: snap.FeeItemID,
				Name:      snap.Name,
				Category:  snap.Category,
				Amount:    snap.Amount,
			}
		}
		invoices = append(invoices, models.InvoiceRecord{
			ID:              invoiceID,
			BatchID:         batchID,
			StudentID:       studentID,
			Grade:           selection.Grade,
			PerStudentTotal: perStudent,
			Currency:        currency,
			PaymentDeadline: deadline,
			CreatedAt:       now.UTC(),
			Items:           items,
		})
	}
	return invoices, nil
}

// beforeToday compares civil dates in now's zone; a deadline carrying a
// different UTC offset must not flip across the today boundary.
func beforeToday(deadline, now time.Time) bool {
	y1, m1, d1 := deadline.In(now.Location()).Date()
	y2, m2, d2 := now.Date()
	a := time.Date(y1, m1, d1, 0, 0, 0, 0, time.UTC)
	b := time.Date(y2, m2, d2, 0, 0, 0, 0, time.UTC)
	return a.Before(b)
}

// Generate builds and persists an invoice batch from a finalized session, then
// queues a parent notification per record. The batch write is transactional.
func (s *InvoiceService) Generate(ctx context.Context, req GenerateInvoicesRequest) (*models.InvoiceBatch, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid invoice request")
	}

	selection, err := s.selections.Finalized(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}

	currency := req.Currency
	if currency == "" {
		currency = "THB"
	}
	batchID := uuid.NewString()
	now := time.Now()
	invoices, err := BuildInvoices(selection, req.StudentIDs, req.PaymentDeadline, batchID, currency, now)
	if err != nil {
		return nil, err
	}

	if err := s.repo.CreateBatch(ctx, invoices); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist invoice batch")
	}
	s.metrics.RecordInvoicesGenerated(len(invoices))
	s.logger.Info("invoice batch generated",
		zap.String("batch_id", batchID),
		zap.String("grade", selection.Grade),
		zap.Int("students", len(invoices)),
		zap.Int64("grand_total", selection.PerStudentTotal()*int64(len(invoices))))

	s.enqueueNotifications(ctx, invoices)

	return &models.InvoiceBatch{
		ID:              batchID,
		Grade:           selection.Grade,
		StudentCount:    len(invoices),
		PerStudentTotal: selection.PerStudentTotal(),
		GrandTotal:      selection.PerStudentTotal() * int64(len(invoices)),
		PaymentDeadline: req.PaymentDeadline,
		CreatedAt:       now.UTC(),
		Invoices:        invoices,
	}, nil
}

func (s *InvoiceService) enqueueNotifications(ctx context.Context, invoices []models.InvoiceRecord) {
	if s.queue == nil {
		return
	}

	ids := make([]string, 0, len(invoices))
	for _, inv := range invoices {
		ids = append(ids, inv.StudentID)
	}
	emails := map[string]string{}
	if s.students != nil {
		students, err := s.students.FindByIDs(ctx, ids)
		if err != nil {
			s.logger.Warn("failed to load students for notifications", zap.Error(err))
		}
		for _, st := range students {
			emails[st.ID] = st.ParentEmail
		}
	}

	for _, inv := range invoices {
		job := jobs.Job{
			ID:   uuid.NewString(),
			Type: invoiceNotifyJobType,
			Payload: InvoiceNotifyPayload{
				InvoiceID:   inv.ID,
				StudentID:   inv.StudentID,
				ParentEmail: emails[inv.StudentID],
			},
		}
		if err := s.queue.Enqueue(job); err != nil {
			s.logger.Warn("failed to enqueue invoice notification",
				zap.String("invoice_id", inv.ID), zap.Error(err))
		}
	}
}

// HandleNotifyJob dispatches a single parent notification. Email delivery is
// handed to the external notification collaborator; here the handoff is
// recorded so operators can trace a batch end to end.
func (s *InvoiceService) HandleNotifyJob(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(InvoiceNotifyPayload)
	if !ok {
		return fmt.Errorf("unexpected payload for %s job %s", job.Type, job.ID)
	}
	if payload.ParentEmail == "" {
		s.logger.Warn("invoice notification skipped, no parent email",
			zap.String("invoice_id", payload.InvoiceID),
			zap.String("student_id", payload.StudentID))
		return nil
	}
	s.logger.Info("invoice notification dispatched",
		zap.String("invoice_id", payload.InvoiceID),
		zap.String("student_id", payload.StudentID),
		zap.String("parent_email", payload.ParentEmail))
	return nil
}

// List returns invoices matching the filter with pagination info.
func (s *InvoiceService) List(ctx context.Context, filter models.InvoiceFilter) ([]models.InvoiceRecord, *models.Pagination, error) {
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	invoices, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list invoices")
	}
	return invoices, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Invoice returns one invoice with its line items.
func (s *InvoiceService) Invoice(ctx context.Context, id string) (*models.InvoiceRecord, error) {
	invoice, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "invoice not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load invoice")
	}
	return invoice, nil
}

// ExportBatch renders a batch as CSV or PDF with a trailing grand-total row.
func (s *InvoiceService) ExportBatch(ctx context.Context, batchID, format string) ([]byte, string, string, error) {
	invoices, err := s.repo.ListByBatch(ctx, batchID)
	if err != nil {
		return nil, "", "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load invoice batch")
	}
	if len(invoices) == 0 {
		return nil, "", "", appErrors.Clone(appErrors.ErrNotFound, "invoice batch not found")
	}

	dataset := export.Dataset{
		Headers: []string{"Invoice", "Student", "Grade", "Deadline", "Total"},
	}
	var grandTotal int64
	for _, inv := range invoices {
		grandTotal += inv.PerStudentTotal
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Invoice":  inv.ID,
			"Student":  inv.StudentID,
			"Grade":    inv.Grade,
			"Deadline": inv.PaymentDeadline.Format("2006-01-02"),
			"Total":    strconv.FormatInt(inv.PerStudentTotal, 10),
		})
	}
	dataset.Summary = []map[string]string{{
		"Invoice": "GRAND TOTAL",
		"Student": strconv.Itoa(len(invoices)) + " students",
		"Total":   strconv.FormatInt(grandTotal, 10),
	}}

	switch format {
	case "pdf":
		payload, err := s.pdf.Render(dataset, "Invoice Batch "+batchID)
		if err != nil {
			return nil, "", "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf export")
		}
		return payload, "application/pdf", fmt.Sprintf("invoice-batch-%s.pdf", batchID), nil
	case "", "csv":
		payload, err := s.csv.Render(dataset)
		if err != nil {
			return nil, "", "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv export")
		}
		return payload, "text/csv", fmt.Sprintf("invoice-batch-%s.csv", batchID), nil
	default:
		return nil, "", "", appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}
}
