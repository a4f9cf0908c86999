package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/sisb-tech/backoffice-billing-api/internal/models"
)

// CatalogRepository manages fee item and template persistence.
type CatalogRepository struct {
	db *sqlx.DB
}

// NewCatalogRepository creates a new repository instance.
func NewCatalogRepository(db *sqlx.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// ListItems returns catalog items matching the provided filters.
func (r *CatalogRepository) ListItems(ctx context.Context, filter models.FeeItemFilter) ([]models.FeeItem, error) {
	query := `SELECT id, name, description, base_amount, category, eligible_grades, active, created_at, updated_at
        FROM fee_items WHERE 1=1`
	args := []interface{}{}
	if !filter.IncludeInactive {
		query += " AND active = true"
	}
	if filter.Grade != "" {
		query += fmt.Sprintf(" AND $%d = ANY(eligible_grades)", len(args)+1)
		args = append(args, filter.Grade)
	}
	if filter.Category != "" {
		query += fmt.Sprintf(" AND category = $%d", len(args)+1)
		args = append(args, filter.Category)
	}
	query += " ORDER BY name"

	var items []models.FeeItem
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("list fee items: %w", err)
	}
	return items, nil
}

// FindItem returns a fee item by ID.
func (r *CatalogRepository) FindItem(ctx context.Context, id string) (*models.FeeItem, error) {
	const query = `SELECT id, name, description, base_amount, category, eligible_grades, active, created_at, updated_at
        FROM fee_items WHERE id = $1`
	var item models.FeeItem
	if err := r.db.GetContext(ctx, &item, query, id); err != nil {
		return nil, err
	}
	return &item, nil
}

// FindItemsByIDs returns the fee items for the given ids, unordered.
func (r *CatalogRepository) FindItemsByIDs(ctx context.Context, ids []string) ([]models.FeeItem, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	const query = `SELECT id, name, description, base_amount, category, eligible_grades, active, created_at, updated_at
        FROM fee_items WHERE id = ANY($1)`
	var items []models.FeeItem
	if err := r.db.SelectContext(ctx, &items, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("find fee items: %w", err)
	}
	return items, nil
}

// CreateItem inserts a catalog item.
func (r *CatalogRepository) CreateItem(ctx context.Context, item *models.FeeItem) error {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	item.CreatedAt = now
	item.UpdatedAt = now
	const query = `INSERT INTO fee_items (id, name, description, base_amount, category, eligible_grades, active, created_at, updated_at)
        VALUES (:id, :name, :description, :base_amount, :category, :eligible_grades, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, item); err != nil {
		return fmt.Errorf("insert fee item: %w", err)
	}
	return nil
}

// UpdateItem rewrites an item's mutable fields. Invoices already generated
// keep their snapshot amounts.
func (r *CatalogRepository) UpdateItem(ctx context.Context, item *models.FeeItem) error {
	item.UpdatedAt = time.Now().UTC()
	const query = `UPDATE fee_items SET name = :name, description = :description, base_amount = :base_amount,
        category = :category, eligible_grades = :eligible_grades, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, item); err != nil {
		return fmt.Errorf("update fee item: %w", err)
	}
	return nil
}

// RetireItem deactivates a catalog item; published items are never deleted.
func (r *CatalogRepository) RetireItem(ctx context.Context, id string) error {
	const query = `UPDATE fee_items SET active = false, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("retire fee item: %w", err)
	}
	return nil
}

// ListTemplates returns active templates eligible for the grade.
func (r *CatalogRepository) ListTemplates(ctx context.Context, grade string) ([]models.FeeTemplate, error) {
	query := `SELECT id, name, description, eligible_grades, active, created_at, updated_at
        FROM fee_templates WHERE active = true`
	args := []interface{}{}
	if grade != "" {
		query += " AND $1 = ANY(eligible_grades)"
		args = append(args, grade)
	}
	query += " ORDER BY name"

	var templates []models.FeeTemplate
	if err := r.db.SelectContext(ctx, &templates, query, args...); err != nil {
		return nil, fmt.Errorf("list fee templates: %w", err)
	}
	for i := range templates {
		ids, err := r.loadTemplateItemIDs(ctx, templates[i].ID)
		if err != nil {
			return nil, err
		}
		templates[i].ItemIDs = ids
	}
	return templates, nil
}

// FindTemplate returns a template with its ordered item ids.
func (r *CatalogRepository) FindTemplate(ctx context.Context, id string) (*models.FeeTemplate, error) {
	const query = `SELECT id, name, description, eligible_grades, active, created_at, updated_at
        FROM fee_templates WHERE id = $1`
	var template models.FeeTemplate
	if err := r.db.GetContext(ctx, &template, query, id); err != nil {
		return nil, err
	}
	ids, err := r.loadTemplateItemIDs(ctx, id)
	if err != nil {
		return nil, err
	}
	template.ItemIDs = ids
	return &template, nil
}

// CreateTemplate inserts a template with its item references.
func (r *CatalogRepository) CreateTemplate(ctx context.Context, template *models.FeeTemplate) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	if template.ID == "" {
		template.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	template.CreatedAt = now
	template.UpdatedAt = now
	const insertTemplate = `INSERT INTO fee_templates (id, name, description, eligible_grades, active, created_at, updated_at)
        VALUES (:id, :name, :description, :eligible_grades, :active, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, insertTemplate, template); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("insert fee template: %w", err)
	}
	const insertItem = `INSERT INTO fee_template_items (template_id, fee_item_id, position) VALUES ($1, $2, $3)`
	for i, itemID := range template.ItemIDs {
		if _, err := tx.ExecContext(ctx, insertItem, template.ID, itemID, i); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("insert fee template item: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit fee template: %w", err)
	}
	return nil
}

// RetireTemplate deactivates a template.
func (r *CatalogRepository) RetireTemplate(ctx context.Context, id string) error {
	const query = `UPDATE fee_templates SET active = false, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("retire fee template: %w", err)
	}
	return nil
}

func (r *CatalogRepository) loadTemplateItemIDs(ctx context.Context, templateID string) ([]string, error) {
	const query = `SELECT fee_item_id FROM fee_template_items WHERE template_id = $1 ORDER BY position`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, templateID); err != nil {
		return nil, fmt.Errorf("load fee template items: %w", err)
	}
	return ids, nil
}
