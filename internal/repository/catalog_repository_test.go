package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sisb-tech/backoffice-billing-api/internal/models"
)

func newCatalogMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func feeItemRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "name", "description", "base_amount", "category", "eligible_grades", "active", "created_at", "updated_at"})
}

func TestCatalogRepositoryListItems(t *testing.T) {
	db, mock, cleanup := newCatalogMock(t)
	defer cleanup()
	repo := NewCatalogRepository(db)

	rows := feeItemRows().
		AddRow("item-1", "Tuition Y7", "", int64(50000), "TUITION", "{Y7,Y8}", true, time.Now(), time.Now())
	mock.ExpectQuery("SELECT (.+) FROM fee_items WHERE 1=1 AND active = true").
		WithArgs("Y7", models.CategoryTuition).
		WillReturnRows(rows)

	items, err := repo.ListItems(context.Background(), models.FeeItemFilter{Grade: "Y7", Category: models.CategoryTuition})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "item-1", items[0].ID)
	assert.Equal(t, []string{"Y7", "Y8"}, []string(items[0].EligibleGrades))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCatalogRepositoryCreateItem(t *testing.T) {
	db, mock, cleanup := newCatalogMock(t)
	defer cleanup()
	repo := NewCatalogRepository(db)

	mock.ExpectExec("INSERT INTO fee_items").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	item := &models.FeeItem{Name: "Swimming", BaseAmount: 4500, Category: models.CategoryECA, EligibleGrades: []string{"Y7"}, Active: true}
	require.NoError(t, repo.CreateItem(context.Background(), item))
	assert.NotEmpty(t, item.ID, "id assigned on insert")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCatalogRepositoryUpdateItem(t *testing.T) {
	db, mock, cleanup := newCatalogMock(t)
	defer cleanup()
	repo := NewCatalogRepository(db)

	mock.ExpectExec("UPDATE fee_items SET name").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	item := &models.FeeItem{ID: "item-1", Name: "Swimming", BaseAmount: 5500, Category: models.CategoryECA, EligibleGrades: []string{"Y7"}}
	require.NoError(t, repo.UpdateItem(context.Background(), item))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCatalogRepositoryRetireItem(t *testing.T) {
	db, mock, cleanup := newCatalogMock(t)
	defer cleanup()
	repo := NewCatalogRepository(db)

	mock.ExpectExec("UPDATE fee_items SET active = false").
		WithArgs("item-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.RetireItem(context.Background(), "item-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCatalogRepositoryFindTemplateKeepsItemOrder(t *testing.T) {
	db, mock, cleanup := newCatalogMock(t)
	defer cleanup()
	repo := NewCatalogRepository(db)

	templateRows := sqlmock.NewRows([]string{"id", "name", "description", "eligible_grades", "active", "created_at", "updated_at"}).
		AddRow("tpl-1", "Y7 Bundle", "", "{Y7}", true, time.Now(), time.Now())
	mock.ExpectQuery("SELECT (.+) FROM fee_templates WHERE id").
		WithArgs("tpl-1").
		WillReturnRows(templateRows)
	mock.ExpectQuery("SELECT fee_item_id FROM fee_template_items").
		WithArgs("tpl-1").
		WillReturnRows(sqlmock.NewRows([]string{"fee_item_id"}).AddRow("item-b").AddRow("item-a"))

	template, err := repo.FindTemplate(context.Background(), "tpl-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"item-b", "item-a"}, template.ItemIDs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCatalogRepositoryCreateTemplate(t *testing.T) {
	db, mock, cleanup := newCatalogMock(t)
	defer cleanup()
	repo := NewCatalogRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO fee_templates").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO fee_template_items").
		WithArgs(sqlmock.AnyArg(), "item-a", 0).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO fee_template_items").
		WithArgs(sqlmock.AnyArg(), "item-b", 1).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	template := &models.FeeTemplate{Name: "Y7 Bundle", EligibleGrades: []string{"Y7"}, Active: true, ItemIDs: []string{"item-a", "item-b"}}
	require.NoError(t, repo.CreateTemplate(context.Background(), template))
	assert.NoError(t, mock.ExpectationsWereMet())
}
