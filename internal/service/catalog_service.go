package service

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/sisb-tech/backoffice-billing-api/internal/models"
	appErrors "github.com/sisb-tech/backoffice-billing-api/pkg/errors"
)

type catalogRepository interface {
	ListItems(ctx context.Context, filter models.FeeItemFilter) ([]models.FeeItem, error)
	FindItem(ctx context.Context, id string) (*models.FeeItem, error)
	FindItemsByIDs(ctx context.Context, ids []string) ([]models.FeeItem, error)
	CreateItem(ctx context.Context, item *models.FeeItem) error
	UpdateItem(ctx context.Context, item *models.FeeItem) error
	RetireItem(ctx context.Context, id string) error
	ListTemplates(ctx context.Context, grade string) ([]models.FeeTemplate, error)
	FindTemplate(ctx context.Context, id string) (*models.FeeTemplate, error)
	CreateTemplate(ctx context.Context, template *models.FeeTemplate) error
	RetireTemplate(ctx context.Context, id string) error
}

// CreateFeeItemRequest handles fee item creation payload.
type CreateFeeItemRequest struct {
	Name           string             `json:"name" validate:"required"`
	Description    *string            `json:"description"`
	BaseAmount     int64              `json:"base_amount" validate:"required,gt=0"`
	Category       models.FeeCategory `json:"category" validate:"required"`
	EligibleGrades []string           `json:"eligible_grades" validate:"required,min=1,dive,required"`
}

// CreateFeeTemplateRequest handles template creation payload.
type CreateFeeTemplateRequest struct {
	Name           string   `json:"name" validate:"required"`
	Description    *string  `json:"description"`
	ItemIDs        []string `json:"item_ids" validate:"required,min=1,dive,required"`
	EligibleGrades []string `json:"eligible_grades" validate:"required,min=1,dive,required"`
}

// CatalogService reads and maintains the fee catalog. Browse reads are served
// through the cache; admin writes invalidate it.
type CatalogService struct {
	repo      catalogRepository
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCatalogService constructs service.
func NewCatalogService(repo catalogRepository, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *CatalogService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{repo: repo, cache: cache, validator: validate, logger: logger}
}

// ItemsFor returns active items eligible for the grade within a category. An
// empty result is valid; callers render an empty state.
func (s *CatalogService) ItemsFor(ctx context.Context, grade string, category models.FeeCategory) ([]models.FeeItem, error) {
	if grade == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "grade is required")
	}
	if !category.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown fee category")
	}

	cacheKey := fmt.Sprintf("catalog:items:%s:%s", grade, category)
	var cached []models.FeeItem
	if hit, _ := s.cache.Get(ctx, cacheKey, &cached); hit {
		return cached, nil
	}

	items, err := s.repo.ListItems(ctx, models.FeeItemFilter{Grade: grade, Category: category})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list fee items")
	}
	if err := s.cache.Set(ctx, cacheKey, items, 0); err != nil {
		s.logger.Warn("failed to cache fee items", zap.Error(err))
	}
	return items, nil
}

// Item returns a single fee item.
func (s *CatalogService) Item(ctx context.Context, id string) (*models.FeeItem, error) {
	item, err := s.repo.FindItem(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "fee item not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load fee item")
	}
	return item, nil
}

// TemplatesFor returns active templates eligible for the grade.
func (s *CatalogService) TemplatesFor(ctx context.Context, grade string) ([]models.FeeTemplate, error) {
	if grade == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "grade is required")
	}

	cacheKey := fmt.Sprintf("catalog:templates:%s", grade)
	var cached []models.FeeTemplate
	if hit, _ := s.cache.Get(ctx, cacheKey, &cached); hit {
		return cached, nil
	}

	templates, err := s.repo.ListTemplates(ctx, grade)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list fee templates")
	}
	if err := s.cache.Set(ctx, cacheKey, templates, 0); err != nil {
		s.logger.Warn("failed to cache fee templates", zap.Error(err))
	}
	return templates, nil
}

// Resolve expands a template into its constituent items, preserving the
// template's item order. A missing template or a dangling item reference is a
// catalog integrity error: it propagates as NOT_FOUND and is never retried.
func (s *CatalogService) Resolve(ctx context.Context, templateID string) (*models.FeeTemplate, []models.FeeItem, error) {
	template, err := s.repo.FindTemplate(ctx, templateID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "fee template not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load fee template")
	}

	found, err := s.repo.FindItemsByIDs(ctx, template.ItemIDs)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve fee template")
	}
	byID := make(map[string]models.FeeItem, len(found))
	for _, item := range found {
		if item.Active {
			byID[item.ID] = item
		}
	}

	items := make([]models.FeeItem, 0, len(template.ItemIDs))
	var missing []string
	for _, id := range template.ItemIDs {
		item, ok := byID[id]
		if !ok {
			missing = append(missing, id)
			continue
		}
		items = append(items, item)
	}
	if len(missing) > 0 {
		s.logger.Error("fee template references missing items",
			zap.String("template_id", templateID), zap.Strings("item_ids", missing))
		return nil, nil, appErrors.WithDetails(
			appErrors.Clone(appErrors.ErrNotFound, "fee template references missing items"),
			map[string]interface{}{"template_id": templateID, "item_ids": missing},
		)
	}
	return template, items, nil
}

// CreateItem publishes a new catalog item.
func (s *CatalogService) CreateItem(ctx context.Context, req CreateFeeItemRequest) (*models.FeeItem, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid fee item payload")
	}
	if !req.Category.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown fee category")
	}
	item := &models.FeeItem{
		Name:           req.Name,
		Description:    req.Description,
		BaseAmount:     req.BaseAmount,
		Category:       req.Category,
		EligibleGrades: req.EligibleGrades,
		Active:         true,
	}
	if err := s.repo.CreateItem(ctx, item); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create fee item")
	}
	s.invalidateCatalogCache(ctx)
	return item, nil
}

// UpdateItem rewrites an existing item's mutable fields. Selections already
// finalized keep their snapshot amounts.
func (s *CatalogService) UpdateItem(ctx context.Context, id string, req CreateFeeItemRequest) (*models.FeeItem, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid fee item payload")
	}
	if !req.Category.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown fee category")
	}
	item, err := s.Item(ctx, id)
	if err != nil {
		return nil, err
	}
	item.Name = req.Name
	item.Description = req.Description
	item.BaseAmount = req.BaseAmount
	item.Category = req.Category
	item.EligibleGrades = req.EligibleGrades
	if err := s.repo.UpdateItem(ctx, item); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update fee item")
	}
	s.invalidateCatalogCache(ctx)
	return item, nil
}

// RetireItem deactivates a catalog item.
func (s *CatalogService) RetireItem(ctx context.Context, id string) error {
	if _, err := s.Item(ctx, id); err != nil {
		return err
	}
	if err := s.repo.RetireItem(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to retire fee item")
	}
	s.invalidateCatalogCache(ctx)
	return nil
}

// CreateTemplate publishes a template after checking every referenced item
// exists and covers the template's grades.
func (s *CatalogService) CreateTemplate(ctx context.Context, req CreateFeeTemplateRequest) (*models.FeeTemplate, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid fee template payload")
	}

	items, err := s.repo.FindItemsByIDs(ctx, req.ItemIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load template items")
	}
	byID := make(map[string]models.FeeItem, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}
	for _, id := range req.ItemIDs {
		item, ok := byID[id]
		if !ok || !item.Active {
			return nil, appErrors.WithDetails(
				appErrors.Clone(appErrors.ErrValidation, "template references unknown or inactive items"),
				map[string]interface{}{"item_ids": []string{id}},
			)
		}
		for _, grade := range req.EligibleGrades {
			if !item.EligibleFor(grade) {
				return nil, appErrors.WithDetails(
					appErrors.Clone(appErrors.ErrValidation, "template item does not cover every template grade"),
					map[string]interface{}{"item_id": id, "grade": grade},
				)
			}
		}
	}

	template := &models.FeeTemplate{
		Name:           req.Name,
		Description:    req.Description,
		EligibleGrades: req.EligibleGrades,
		Active:         true,
		ItemIDs:        req.ItemIDs,
	}
	if err := s.repo.CreateTemplate(ctx, template); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create fee template")
	}
	s.invalidateCatalogCache(ctx)
	return template, nil
}

// RetireTemplate deactivates a template.
func (s *CatalogService) RetireTemplate(ctx context.Context, id string) error {
	if _, err := s.repo.FindTemplate(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "fee template not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load fee template")
	}
	if err := s.repo.RetireTemplate(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to retire fee template")
	}
	s.invalidateCatalogCache(ctx)
	return nil
}

func (s *CatalogService) invalidateCatalogCache(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, "catalog:*"); err != nil {
		s.logger.Warn("failed to invalidate catalog cache", zap.Error(err))
	}
}
