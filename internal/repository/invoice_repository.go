package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/sisb-tech/backoffice-billing-api/internal/models"
)

// InvoiceRepository persists generated invoice batches. Records are written
// once and never updated.
type InvoiceRepository struct {
	db *sqlx.DB
}

// NewInvoiceRepository creates a new repository instance.
func NewInvoiceRepository(db *sqlx.DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

// CreateBatch writes every invoice of a batch with its items in one
// transaction; either the whole batch lands or none of it does.
func (r *InvoiceRepository) CreateBatch(ctx context.Context, invoices []models.InvoiceRecord) error {
	if len(invoices) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	const insertInvoice = `INSERT INTO invoices (id, batch_id, student_id, grade, per_student_total, currency, payment_deadline, created_at)
        VALUES (:id, :batch_id, :student_id, :grade, :per_student_total, :currency, :payment_deadline, :created_at)`
	const insertItem = `INSERT INTO invoice_items (id, invoice_id, fee_item_id, name, category, amount)
        VALUES (:id, :invoice_id, :fee_item_id, :name, :category, :amount)`
	for i := range invoices {
		if _, err := tx.NamedExecContext(ctx, insertInvoice, invoices[i]); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("insert invoice: %w", err)
		}
		for j := range invoices[i].Items {
			if _, err := tx.NamedExecContext(ctx, insertItem, invoices[i].Items[j]); err != nil {
				tx.Rollback() //nolint:errcheck
				return fmt.Errorf("insert invoice item: %w", err)
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit invoice batch: %w", err)
	}
	return nil
}

// List returns invoices matching the filter, newest first.
func (r *InvoiceRepository) List(ctx context.Context, filter models.InvoiceFilter) ([]models.InvoiceRecord, int, error) {
	where := " WHERE 1=1"
	args := []interface{}{}
	if filter.BatchID != "" {
		where += fmt.Sprintf(" AND batch_id = $%d", len(args)+1)
		args = append(args, filter.BatchID)
	}
	if filter.StudentID != "" {
		where += fmt.Sprintf(" AND student_id = $%d", len(args)+1)
		args = append(args, filter.StudentID)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM invoices"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count invoices: %w", err)
	}

	query := `SELECT id, batch_id, student_id, grade, per_student_total, currency, payment_deadline, created_at
        FROM invoices` + where + " ORDER BY created_at DESC, id"
	if filter.PageSize > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
		args = append(args, filter.PageSize, (page-1)*filter.PageSize)
	}

	var invoices []models.InvoiceRecord
	if err := r.db.SelectContext(ctx, &invoices, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list invoices: %w", err)
	}
	return invoices, total, nil
}

// FindByID returns an invoice with its line items.
func (r *InvoiceRepository) FindByID(ctx context.Context, id string) (*models.InvoiceRecord, error) {
	const query = `SELECT id, batch_id, student_id, grade, per_student_total, currency, payment_deadline, created_at
        FROM invoices WHERE id = $1`
	var invoice models.InvoiceRecord
	if err := r.db.GetContext(ctx, &invoice, query, id); err != nil {
		return nil, err
	}
	items, err := r.loadItems(ctx, id)
	if err != nil {
		return nil, err
	}
	invoice.Items = items
	return &invoice, nil
}

// ListByBatch returns every invoice of a batch with items, in insertion order.
func (r *InvoiceRepository) ListByBatch(ctx context.Context, batchID string) ([]models.InvoiceRecord, error) {
	const query = `SELECT id, batch_id, student_id, grade, per_student_total, currency, payment_deadline, created_at
        FROM invoices WHERE batch_id = $1 ORDER BY created_at, id`
	var invoices []models.InvoiceRecord
	if err := r.db.SelectContext(ctx, &invoices, query, batchID); err != nil {
		return nil, fmt.Errorf("list batch invoices: %w", err)
	}
	for i := range invoices {
		items, err := r.loadItems(ctx, invoices[i].ID)
		if err != nil {
			return nil, err
		}
		invoices[i].Items = items
	}
	return invoices, nil
}

func (r *InvoiceRepository) loadItems(ctx context.Context, invoiceID string) ([]models.InvoiceItem, error) {
	const query = `SELECT id, invoice_id, fee_item_id, name, category, amount FROM invoice_items WHERE invoice_id = $1 ORDER BY id`
	var items []models.InvoiceItem
	if err := r.db.SelectContext(ctx, &items, query, invoiceID); err != nil {
		return nil, fmt.Errorf("load invoice items: %w", err)
	}
	return items, nil
}
