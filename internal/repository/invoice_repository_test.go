package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sisb-tech/backoffice-billing-api/internal/models"
)

func sampleInvoice(id, studentID string) models.InvoiceRecord {
	return models.InvoiceRecord{
		ID:              id,
		BatchID:         "batch-1",
		StudentID:       studentID,
		Grade:           "Y7",
		PerStudentTotal: 5000,
		Currency:        "THB",
		PaymentDeadline: time.Now().AddDate(0, 0, 14),
		CreatedAt:       time.Now(),
		Items: []models.InvoiceItem{
			{ID: id + "-li1", InvoiceID: id, FeeItemID: "tuition-1", Name: "Tuition", Category: models.CategoryTuition, Amount: 5000},
		},
	}
}

func TestInvoiceRepositoryCreateBatch(t *testing.T) {
	db, mock, cleanup := newCatalogMock(t)
	defer cleanup()
	repo := NewInvoiceRepository(db)

	mock.ExpectBegin()
	for i := 0; i < 2; i++ {
		mock.ExpectExec("INSERT INTO invoices").
			WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec("INSERT INTO invoice_items").
			WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))
	}
	mock.ExpectCommit()

	err := repo.CreateBatch(context.Background(), []models.InvoiceRecord{
		sampleInvoice("inv-1", "s1"),
		sampleInvoice("inv-2", "s2"),
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInvoiceRepositoryCreateBatchRollsBack(t *testing.T) {
	db, mock, cleanup := newCatalogMock(t)
	defer cleanup()
	repo := NewInvoiceRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO invoices").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnError(errors.New("constraint violation"))
	mock.ExpectRollback()

	err := repo.CreateBatch(context.Background(), []models.InvoiceRecord{sampleInvoice("inv-1", "s1")})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInvoiceRepositoryCreateBatchEmptyIsNoOp(t *testing.T) {
	db, mock, cleanup := newCatalogMock(t)
	defer cleanup()
	repo := NewInvoiceRepository(db)

	require.NoError(t, repo.CreateBatch(context.Background(), nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInvoiceRepositoryListFiltersByBatch(t *testing.T) {
	db, mock, cleanup := newCatalogMock(t)
	defer cleanup()
	repo := NewInvoiceRepository(db)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM invoices WHERE 1=1 AND batch_id`).
		WithArgs("batch-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	rows := sqlmock.NewRows([]string{"id", "batch_id", "student_id", "grade", "per_student_total", "currency", "payment_deadline", "created_at"}).
		AddRow("inv-1", "batch-1", "s1", "Y7", int64(5000), "THB", time.Now(), time.Now())
	mock.ExpectQuery("SELECT (.+) FROM invoices WHERE 1=1 AND batch_id (.+) LIMIT").
		WithArgs("batch-1", 20, 0).
		WillReturnRows(rows)

	invoices, total, err := repo.List(context.Background(), models.InvoiceFilter{BatchID: "batch-1", Page: 1, PageSize: 20})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, invoices, 1)
	assert.Equal(t, int64(5000), invoices[0].PerStudentTotal)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInvoiceRepositoryListByBatchLoadsItems(t *testing.T) {
	db, mock, cleanup := newCatalogMock(t)
	defer cleanup()
	repo := NewInvoiceRepository(db)

	rows := sqlmock.NewRows([]string{"id", "batch_id", "student_id", "grade", "per_student_total", "currency", "payment_deadline", "created_at"}).
		AddRow("inv-1", "batch-1", "s1", "Y7", int64(5000), "THB", time.Now(), time.Now())
	mock.ExpectQuery("SELECT (.+) FROM invoices WHERE batch_id").
		WithArgs("batch-1").
		WillReturnRows(rows)
	itemRows := sqlmock.NewRows([]string{"id", "invoice_id", "fee_item_id", "name", "category", "amount"}).
		AddRow("li-1", "inv-1", "tuition-1", "Tuition", "TUITION", int64(5000))
	mock.ExpectQuery("SELECT (.+) FROM invoice_items WHERE invoice_id").
		WithArgs("inv-1").
		WillReturnRows(itemRows)

	invoices, err := repo.ListByBatch(context.Background(), "batch-1")
	require.NoError(t, err)
	require.Len(t, invoices, 1)
	require.Len(t, invoices[0].Items, 1)
	assert.Equal(t, models.CategoryTuition, invoices[0].Items[0].Category)
	assert.NoError(t, mock.ExpectationsWereMet())
}
