package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sisb-tech/backoffice-billing-api/internal/models"
)

type mockCatalogRepo struct {
	items     map[string]models.FeeItem
	templates map[string]models.FeeTemplate
	retired   []string
}

func (m *mockCatalogRepo) ListItems(ctx context.Context, filter models.FeeItemFilter) ([]models.FeeItem, error) {
	var out []models.FeeItem
	for _, item := range m.items {
		if !item.Active && !filter.IncludeInactive {
			continue
		}
		if filter.Category != "" && item.Category != filter.Category {
			continue
		}
		if filter.Grade != "" && !item.EligibleFor(filter.Grade) {
			continue
		}
		out = append(out, item)
	}
	return out, nil
}

func (m *mockCatalogRepo) FindItem(ctx context.Context, id string) (*models.FeeItem, error) {
	if item, ok := m.items[id]; ok {
		return &item, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockCatalogRepo) FindItemsByIDs(ctx context.Context, ids []string) ([]models.FeeItem, error) {
	var out []models.FeeItem
	for _, id := range ids {
		if item, ok := m.items[id]; ok {
			out = append(out, item)
		}
	}
	return out, nil
}

func (m *mockCatalogRepo) CreateItem(ctx context.Context, item *models.FeeItem) error {
	if m.items == nil {
		m.items = make(map[string]models.FeeItem)
	}
	if item.ID == "" {
		item.ID = "generated"
	}
	m.items[item.ID] = *item
	return nil
}

func (m *mockCatalogRepo) UpdateItem(ctx context.Context, item *models.FeeItem) error {
	if _, ok := m.items[item.ID]; !ok {
		return sql.ErrNoRows
	}
	m.items[item.ID] = *item
	return nil
}

func (m *mockCatalogRepo) RetireItem(ctx context.Context, id string) error {
	m.retired = append(m.retired, id)
	if item, ok := m.items[id]; ok {
		item.Active = false
		m.items[id] = item
	}
	return nil
}

func (m *mockCatalogRepo) ListTemplates(ctx context.Context, grade string) ([]models.FeeTemplate, error) {
	var out []models.FeeTemplate
	for _, tpl := range m.templates {
		if tpl.Active && tpl.EligibleFor(grade) {
			out = append(out, tpl)
		}
	}
	return out, nil
}

func (m *mockCatalogRepo) FindTemplate(ctx context.Context, id string) (*models.FeeTemplate, error) {
	if tpl, ok := m.templates[id]; ok {
		return &tpl, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockCatalogRepo) CreateTemplate(ctx context.Context, template *models.FeeTemplate) error {
	if m.templates == nil {
		m.templates = make(map[string]models.FeeTemplate)
	}
	if template.ID == "" {
		template.ID = "generated"
	}
	m.templates[template.ID] = *template
	return nil
}

func (m *mockCatalogRepo) RetireTemplate(ctx context.Context, id string) error {
	m.retired = append(m.retired, id)
	if tpl, ok := m.templates[id]; ok {
		tpl.Active = false
		m.templates[id] = tpl
	}
	return nil
}

func newTestCatalog(repo *mockCatalogRepo) *CatalogService {
	cache := NewCacheService(nil, nil, 0, zap.NewNop(), false)
	return NewCatalogService(repo, cache, nil, zap.NewNop())
}

func TestItemsForFiltersGradeAndCategory(t *testing.T) {
	repo := &mockCatalogRepo{items: map[string]models.FeeItem{
		"a": feeItem("a", models.CategoryTuition, 50000, "Y7", "Y8"),
		"b": feeItem("b", models.CategoryECA, 4000, "Y7"),
		"c": feeItem("c", models.CategoryTuition, 60000, "Y9"),
	}}
	svc := newTestCatalog(repo)

	items, err := svc.ItemsFor(context.Background(), "Y7", models.CategoryTuition)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "a", items[0].ID)
	assert.Equal(t, models.CategoryTuition, items[0].Category)
	assert.True(t, items[0].EligibleFor("Y7"))
}

func TestItemsForRejectsUnknownCategory(t *testing.T) {
	svc := newTestCatalog(&mockCatalogRepo{})

	_, err := svc.ItemsFor(context.Background(), "Y7", models.FeeCategory("SNACKS"))
	assertCode(t, err, "VALIDATION_ERROR")
}

func TestResolvePreservesTemplateItemOrder(t *testing.T) {
	repo := &mockCatalogRepo{
		items: map[string]models.FeeItem{
			"a": feeItem("a", models.CategoryTuition, 50000),
			"b": feeItem("b", models.CategoryECA, 4000),
		},
		templates: map[string]models.FeeTemplate{
			"tpl": {ID: "tpl", Name: "Bundle", EligibleGrades: []string{"Y7"}, Active: true, ItemIDs: []string{"b", "a"}},
		},
	}
	svc := newTestCatalog(repo)

	template, items, err := svc.Resolve(context.Background(), "tpl")
	require.NoError(t, err)
	assert.Equal(t, "tpl", template.ID)
	require.Len(t, items, 2)
	assert.Equal(t, "b", items[0].ID)
	assert.Equal(t, "a", items[1].ID)
}

func TestResolveDanglingItemIsIntegrityError(t *testing.T) {
	repo := &mockCatalogRepo{
		items: map[string]models.FeeItem{
			"a": feeItem("a", models.CategoryTuition, 50000),
		},
		templates: map[string]models.FeeTemplate{
			"tpl": {ID: "tpl", EligibleGrades: []string{"Y7"}, Active: true, ItemIDs: []string{"a", "ghost"}},
		},
	}
	svc := newTestCatalog(repo)

	_, _, err := svc.Resolve(context.Background(), "tpl")
	assertCode(t, err, "NOT_FOUND")
}

func TestResolveUnknownTemplate(t *testing.T) {
	svc := newTestCatalog(&mockCatalogRepo{})

	_, _, err := svc.Resolve(context.Background(), "missing")
	assertCode(t, err, "NOT_FOUND")
}

func TestCreateTemplateChecksGradeCoverage(t *testing.T) {
	repo := &mockCatalogRepo{items: map[string]models.FeeItem{
		"a": feeItem("a", models.CategoryTuition, 50000, "Y7"),
	}}
	svc := newTestCatalog(repo)

	_, err := svc.CreateTemplate(context.Background(), CreateFeeTemplateRequest{
		Name:           "Bundle",
		ItemIDs:        []string{"a"},
		EligibleGrades: []string{"Y7", "Y8"},
	})
	assertCode(t, err, "VALIDATION_ERROR")
}

func TestUpdateItemRewritesFields(t *testing.T) {
	repo := &mockCatalogRepo{items: map[string]models.FeeItem{
		"a": feeItem("a", models.CategoryECA, 4000, "Y7"),
	}}
	svc := newTestCatalog(repo)

	item, err := svc.UpdateItem(context.Background(), "a", CreateFeeItemRequest{
		Name:           "Swimming (advanced)",
		BaseAmount:     5500,
		Category:       models.CategoryECA,
		EligibleGrades: []string{"Y7", "Y8"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(5500), item.BaseAmount)
	assert.Equal(t, int64(5500), repo.items["a"].BaseAmount)

	_, err = svc.UpdateItem(context.Background(), "ghost", CreateFeeItemRequest{
		Name:           "Missing",
		BaseAmount:     100,
		Category:       models.CategoryECA,
		EligibleGrades: []string{"Y7"},
	})
	assertCode(t, err, "NOT_FOUND")
}

func TestCreateItemValidation(t *testing.T) {
	svc := newTestCatalog(&mockCatalogRepo{})

	_, err := svc.CreateItem(context.Background(), CreateFeeItemRequest{
		Name:     "Missing amount",
		Category: models.CategoryTuition,
	})
	assertCode(t, err, "VALIDATION_ERROR")

	item, err := svc.CreateItem(context.Background(), CreateFeeItemRequest{
		Name:           "Swimming",
		BaseAmount:     4500,
		Category:       models.CategoryECA,
		EligibleGrades: []string{"Y7"},
	})
	require.NoError(t, err)
	assert.True(t, item.Active)
}
