package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sisb-tech/backoffice-billing-api/internal/models"
)

func pricingRuleRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "period_id", "name", "regular_price", "early_bird_discount_pct", "late_registration_fee",
		"sibling_discount_pct", "group_discount_pct", "external_surcharge", "currency", "version", "active",
		"created_at", "updated_at",
	})
}

func TestPricingRuleRepositoryFindActiveByPeriod(t *testing.T) {
	db, mock, cleanup := newCatalogMock(t)
	defer cleanup()
	repo := NewPricingRuleRepository(db)

	rows := pricingRuleRows().
		AddRow("r2", "2026-T1", "Term 1 2026", int64(1000), 15.0, int64(300), 10.0, 20.0, int64(200), "THB", 2, true, time.Now(), time.Now())
	mock.ExpectQuery("SELECT (.+) FROM pricing_rules\\s+WHERE period_id = (.+) AND active = true").
		WithArgs("2026-T1").
		WillReturnRows(rows)

	rule, err := repo.FindActiveByPeriod(context.Background(), "2026-T1")
	require.NoError(t, err)
	assert.Equal(t, "r2", rule.ID)
	assert.Equal(t, 2, rule.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPricingRuleRepositoryFindActiveByPeriodMissing(t *testing.T) {
	db, mock, cleanup := newCatalogMock(t)
	defer cleanup()
	repo := NewPricingRuleRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM pricing_rules").
		WithArgs("2099-T9").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindActiveByPeriod(context.Background(), "2099-T9")
	assert.True(t, errors.Is(err, sql.ErrNoRows))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPricingRuleRepositoryCreateAssignsDefaults(t *testing.T) {
	db, mock, cleanup := newCatalogMock(t)
	defer cleanup()
	repo := NewPricingRuleRepository(db)

	mock.ExpectExec("INSERT INTO pricing_rules").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	rule := &models.PricingRule{PeriodID: "2026-T1", Name: "Term 1 2026", RegularPrice: 1000, Currency: "THB", Active: true}
	require.NoError(t, repo.Create(context.Background(), rule))
	assert.NotEmpty(t, rule.ID)
	assert.Equal(t, 1, rule.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPricingRuleRepositoryCreateVersionDeactivatesPrevious(t *testing.T) {
	db, mock, cleanup := newCatalogMock(t)
	defer cleanup()
	repo := NewPricingRuleRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE pricing_rules SET active = false").
		WithArgs("2026-T1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO pricing_rules").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	rule := &models.PricingRule{PeriodID: "2026-T1", Name: "Term 1 2026", RegularPrice: 1200, Currency: "THB", Version: 3}
	require.NoError(t, repo.CreateVersion(context.Background(), rule))
	assert.True(t, rule.Active)
	assert.NotEmpty(t, rule.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
