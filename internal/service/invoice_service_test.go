package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sisb-tech/backoffice-billing-api/internal/models"
	appErrors "github.com/sisb-tech/backoffice-billing-api/pkg/errors"
	"github.com/sisb-tech/backoffice-billing-api/pkg/jobs"
)

type mockInvoiceRepo struct {
	batches [][]models.InvoiceRecord
	failure error
}

func (m *mockInvoiceRepo) CreateBatch(ctx context.Context, invoices []models.InvoiceRecord) error {
	if m.failure != nil {
		return m.failure
	}
	m.batches = append(m.batches, invoices)
	return nil
}

func (m *mockInvoiceRepo) List(ctx context.Context, filter models.InvoiceFilter) ([]models.InvoiceRecord, int, error) {
	var all []models.InvoiceRecord
	for _, b := range m.batches {
		all = append(all, b...)
	}
	return all, len(all), nil
}

func (m *mockInvoiceRepo) FindByID(ctx context.Context, id string) (*models.InvoiceRecord, error) {
	for _, b := range m.batches {
		for _, inv := range b {
			if inv.ID == id {
				return &inv, nil
			}
		}
	}
	return nil, errors.New("not found")
}

func (m *mockInvoiceRepo) ListByBatch(ctx context.Context, batchID string) ([]models.InvoiceRecord, error) {
	for _, b := range m.batches {
		if len(b) > 0 && b[0].BatchID == batchID {
			return b, nil
		}
	}
	return nil, nil
}

type mockStudentReader struct {
	students []models.Student
}

func (m *mockStudentReader) FindByIDs(ctx context.Context, ids []string) ([]models.Student, error) {
	return m.students, nil
}

type recordingQueue struct {
	jobs []jobs.Job
}

func (q *recordingQueue) Enqueue(job jobs.Job) error {
	q.jobs = append(q.jobs, job)
	return nil
}

func finalizedSelection(total2Items bool) *models.Selection {
	items := []models.SelectionItemSnapshot{
		{FeeItemID: "tuition-1", Name: "Tuition", Category: models.CategoryTuition, Amount: 3000},
	}
	if total2Items {
		items = append(items, models.SelectionItemSnapshot{
			FeeItemID: "eca-1", Name: "Robotics", Category: models.CategoryECA, Amount: 2000,
		})
	}
	return &models.Selection{
		SessionID:   "sess-1",
		Grade:       "Y7",
		PaymentMode: models.PaymentModeNone,
		Items:       items,
		FinalizedAt: time.Now().UTC(),
	}
}

func TestBuildInvoicesPerStudentTotals(t *testing.T) {
	deadline := time.Now().AddDate(0, 0, 14)
	students := []string{"s1", "s2", "s3"}

	invoices, err := BuildInvoices(finalizedSelection(true), students, deadline, "batch-1", "THB", time.Now())
	require.NoError(t, err)
	require.Len(t, invoices, 3)

	var grand int64
	for i, inv := range invoices {
		assert.Equal(t, students[i], inv.StudentID, "output order follows input order")
		assert.Equal(t, int64(5000), inv.PerStudentTotal)
		assert.Equal(t, "Y7", inv.Grade)
		assert.Len(t, inv.Items, 2)
		grand += inv.PerStudentTotal
	}
	assert.Equal(t, int64(15000), grand)
}

func TestBuildInvoicesKeepsDuplicateStudents(t *testing.T) {
	deadline := time.Now().AddDate(0, 0, 1)

	invoices, err := BuildInvoices(finalizedSelection(false), []string{"s1", "s1"}, deadline, "batch-1", "THB", time.Now())
	require.NoError(t, err)
	require.Len(t, invoices, 2)
	assert.NotEqual(t, invoices[0].ID, invoices[1].ID)
}

func TestBuildInvoicesEmptyStudents(t *testing.T) {
	deadline := time.Now().AddDate(0, 0, 1)

	invoices, err := BuildInvoices(finalizedSelection(true), nil, deadline, "batch-1", "THB", time.Now())
	assertCode(t, err, "INVALID_INVOICE_REQUEST")
	assert.Empty(t, invoices)
}

func TestBuildInvoicesCollectsEveryViolation(t *testing.T) {
	past := time.Now().AddDate(0, 0, -2)

	_, err := BuildInvoices(nil, nil, past, "batch-1", "THB", time.Now())
	assertCode(t, err, "INVALID_INVOICE_REQUEST")

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	violations, ok := appErr.Details["violations"].([]string)
	require.True(t, ok)
	assert.Len(t, violations, 3)
}

func TestBuildInvoicesDeadlineTodayIsAccepted(t *testing.T) {
	now := time.Date(2026, 8, 31, 15, 0, 0, 0, time.UTC)
	today := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)

	invoices, err := BuildInvoices(finalizedSelection(false), []string{"s1"}, today, "batch-1", "THB", now)
	require.NoError(t, err)
	assert.Len(t, invoices, 1)
}

func TestBuildInvoicesDeadlineNormalizedToServerZone(t *testing.T) {
	now := time.Date(2026, 8, 31, 1, 0, 0, 0, time.UTC)

	// Aug 31 in UTC+14 is still Aug 30 on the server clock
	ahead := time.FixedZone("UTC+14", 14*3600)
	deadline := time.Date(2026, 8, 31, 2, 0, 0, 0, ahead)
	_, err := BuildInvoices(finalizedSelection(false), []string{"s1"}, deadline, "batch-1", "THB", now)
	assertCode(t, err, "INVALID_INVOICE_REQUEST")

	// Aug 30 evening in UTC-10 is already Aug 31 on the server clock
	behind := time.FixedZone("UTC-10", -10*3600)
	late := time.Date(2026, 8, 30, 20, 0, 0, 0, behind)
	invoices, err := BuildInvoices(finalizedSelection(false), []string{"s1"}, late, "batch-1", "THB", now)
	require.NoError(t, err)
	assert.Len(t, invoices, 1)
}

func newInvoiceFixture(t *testing.T) (*InvoiceService, *SelectionService, *mockInvoiceRepo, *recordingQueue, string) {
	t.Helper()
	catalogRepo := &mockCatalogRepo{items: map[string]models.FeeItem{
		"tuition-1": feeItem("tuition-1", models.CategoryTuition, 3000),
		"eca-1":     feeItem("eca-1", models.CategoryECA, 2000),
	}}
	selections := NewSelectionService(newTestCatalog(catalogRepo), nil, time.Hour, zap.NewNop())
	t.Cleanup(selections.Close)

	ctx := context.Background()
	view, err := selections.StartSession(ctx, "Y7")
	require.NoError(t, err)
	_, err = selections.ToggleItem(ctx, view.SessionID, "tuition-1")
	require.NoError(t, err)
	_, err = selections.ToggleItem(ctx, view.SessionID, "eca-1")
	require.NoError(t, err)
	_, err = selections.Finalize(ctx, view.SessionID)
	require.NoError(t, err)

	repo := &mockInvoiceRepo{}
	queue := &recordingQueue{}
	students := &mockStudentReader{students: []models.Student{
		{ID: "s1", ParentEmail: "p1@example.com"},
		{ID: "s2", ParentEmail: "p2@example.com"},
	}}
	svc := NewInvoiceService(repo, students, selections, queue, nil, nil, zap.NewNop())
	return svc, selections, repo, queue, view.SessionID
}

func TestGeneratePersistsBatchAndQueuesNotifications(t *testing.T) {
	svc, _, repo, queue, sessionID := newInvoiceFixture(t)

	batch, err := svc.Generate(context.Background(), GenerateInvoicesRequest{
		SessionID:       sessionID,
		StudentIDs:      []string{"s1", "s2"},
		PaymentDeadline: time.Now().AddDate(0, 0, 7),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, batch.StudentCount)
	assert.Equal(t, int64(5000), batch.PerStudentTotal)
	assert.Equal(t, int64(10000), batch.GrandTotal)
	assert.Equal(t, "THB", batch.Invoices[0].Currency)

	require.Len(t, repo.batches, 1)
	assert.Len(t, repo.batches[0], 2)

	require.Len(t, queue.jobs, 2)
	payload, ok := queue.jobs[0].Payload.(InvoiceNotifyPayload)
	require.True(t, ok)
	assert.Equal(t, "p1@example.com", payload.ParentEmail)
}

func TestGenerateUnknownSession(t *testing.T) {
	svc, _, repo, _, _ := newInvoiceFixture(t)

	_, err := svc.Generate(context.Background(), GenerateInvoicesRequest{
		SessionID:       "ghost",
		StudentIDs:      []string{"s1"},
		PaymentDeadline: time.Now().AddDate(0, 0, 7),
	})
	assertCode(t, err, "NOT_FOUND")
	assert.Empty(t, repo.batches, "no batch may be written for an unknown session")
}

func TestGenerateEmptyStudentsProducesNoRecords(t *testing.T) {
	svc, _, repo, queue, sessionID := newInvoiceFixture(t)

	_, err := svc.Generate(context.Background(), GenerateInvoicesRequest{
		SessionID:       sessionID,
		PaymentDeadline: time.Now().AddDate(0, 0, 7),
	})
	assertCode(t, err, "INVALID_INVOICE_REQUEST")
	assert.Empty(t, repo.batches)
	assert.Empty(t, queue.jobs)
}
