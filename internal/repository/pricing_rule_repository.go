package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/sisb-tech/backoffice-billing-api/internal/models"
)

// PricingRuleRepository manages versioned pricing rule persistence.
type PricingRuleRepository struct {
	db *sqlx.DB
}

// NewPricingRuleRepository creates a new repository instance.
func NewPricingRuleRepository(db *sqlx.DB) *PricingRuleRepository {
	return &PricingRuleRepository{db: db}
}

const pricingRuleColumns = `id, period_id, name, regular_price, early_bird_discount_pct, late_registration_fee,
        sibling_discount_pct, group_discount_pct, external_surcharge, currency, version, active, created_at, updated_at`

// List returns rules, optionally scoped to a registration period. Inactive
// versions are included so admins can audit the history.
func (r *PricingRuleRepository) List(ctx context.Context, periodID string) ([]models.PricingRule, error) {
	query := `SELECT ` + pricingRuleColumns + ` FROM pricing_rules WHERE 1=1`
	args := []interface{}{}
	if periodID != "" {
		query += " AND period_id = $1"
		args = append(args, periodID)
	}
	query += " ORDER BY period_id, version DESC"

	var rules []models.PricingRule
	if err := r.db.SelectContext(ctx, &rules, query, args...); err != nil {
		return nil, fmt.Errorf("list pricing rules: %w", err)
	}
	return rules, nil
}

// FindByID returns a rule version by ID.
func (r *PricingRuleRepository) FindByID(ctx context.Context, id string) (*models.PricingRule, error) {
	query := `SELECT ` + pricingRuleColumns + ` FROM pricing_rules WHERE id = $1`
	var rule models.PricingRule
	if err := r.db.GetContext(ctx, &rule, query, id); err != nil {
		return nil, err
	}
	return &rule, nil
}

// FindActiveByPeriod returns the current active rule for a period.
func (r *PricingRuleRepository) FindActiveByPeriod(ctx context.Context, periodID string) (*models.PricingRule, error) {
	query := `SELECT ` + pricingRuleColumns + ` FROM pricing_rules
        WHERE period_id = $1 AND active = true ORDER BY version DESC LIMIT 1`
	var rule models.PricingRule
	if err := r.db.GetContext(ctx, &rule, query, periodID); err != nil {
		return nil, err
	}
	return &rule, nil
}

// Create inserts the first version of a rule for a period.
func (r *PricingRuleRepository) Create(ctx context.Context, rule *models.PricingRule) error {
	if rule.ID == "" {
		rule.ID = uuid.NewString()
	}
	if rule.Version == 0 {
		rule.Version = 1
	}
	now := time.Now().UTC()
	rule.CreatedAt = now
	rule.UpdatedAt = now
	const query = `INSERT INTO pricing_rules (id, period_id, name, regular_price, early_bird_discount_pct, late_registration_fee,
        sibling_discount_pct, group_discount_pct, external_surcharge, currency, version, active, created_at, updated_at)
        VALUES (:id, :period_id, :name, :regular_price, :early_bird_discount_pct, :late_registration_fee,
        :sibling_discount_pct, :group_discount_pct, :external_surcharge, :currency, :version, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, rule); err != nil {
		return fmt.Errorf("insert pricing rule: %w", err)
	}
	return nil
}

// CreateVersion deactivates the previous version and inserts the next one in
// a single transaction. Already-issued invoices keep the old version's row.
func (r *PricingRuleRepository) CreateVersion(ctx context.Context, rule *models.PricingRule) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	const deactivate = `UPDATE pricing_rules SET active = false, updated_at = $2 WHERE period_id = $1 AND active = true`
	if _, err := tx.ExecContext(ctx, deactivate, rule.PeriodID, time.Now().UTC()); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("deactivate pricing rule: %w", err)
	}

	rule.ID = uuid.NewString()
	now := time.Now().UTC()
	rule.CreatedAt = now
	rule.UpdatedAt = now
	rule.Active = true
	const insert = `INSERT INTO pricing_rules (id, period_id, name, regular_price, early_bird_discount_pct, late_registration_fee,
        sibling_discount_pct, group_discount_pct, external_surcharge, currency, version, active, created_at, updated_at)
        VALUES (:id, :period_id, :name, :regular_price, :early_bird_discount_pct, :late_registration_fee,
        :sibling_discount_pct, :group_discount_pct, :external_surcharge, :currency, :version, :active, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, insert, rule); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("insert pricing rule version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit pricing rule version: %w", err)
	}
	return nil
}
