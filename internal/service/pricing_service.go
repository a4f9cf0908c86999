package service

import (
	"context"
	"database/sql"
	"math"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/sisb-tech/backoffice-billing-api/internal/models"
	appErrors "github.com/sisb-tech/backoffice-billing-api/pkg/errors"
)

type pricingRuleRepository interface {
	List(ctx context.Context, periodID string) ([]models.PricingRule, error)
	FindByID(ctx context.Context, id string) (*models.PricingRule, error)
	FindActiveByPeriod(ctx context.Context, periodID string) (*models.PricingRule, error)
	Create(ctx context.Context, rule *models.PricingRule) error
	CreateVersion(ctx context.Context, rule *models.PricingRule) error
}

// CreatePricingRuleRequest carries a new rule for a registration period.
type CreatePricingRuleRequest struct {
	PeriodID             string  `json:"period_id" validate:"required"`
	Name                 string  `json:"name" validate:"required"`
	RegularPrice         int64   `json:"regular_price" validate:"required,gt=0"`
	EarlyBirdDiscountPct float64 `json:"early_bird_discount_pct" validate:"gte=0,lte=100"`
	LateRegistrationFee  int64   `json:"late_registration_fee" validate:"gte=0"`
	SiblingDiscountPct   float64 `json:"sibling_discount_pct" validate:"gte=0,lte=100"`
	GroupDiscountPct     float64 `json:"group_discount_pct" validate:"gte=0,lte=100"`
	ExternalSurcharge    int64   `json:"external_surcharge" validate:"gte=0"`
	Currency             string  `json:"currency" validate:"required,len=3"`
}

// QuoteRequest asks for a price under a rule. The rule is addressed either
// directly by id or as the active rule of a period. BaseAmount defaults to the
// rule's regular price when omitted.
type QuoteRequest struct {
	RuleID     string                `json:"rule_id"`
	PeriodID   string                `json:"period_id"`
	BaseAmount int64                 `json:"base_amount" validate:"gte=0"`
	Context    models.PricingContext `json:"context"`
}

// PricingService manages versioned pricing rules and computes quotes.
type PricingService struct {
	repo      pricingRuleRepository
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewPricingService constructs service.
func NewPricingService(repo pricingRuleRepository, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *PricingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PricingService{repo: repo, metrics: metrics, validator: validate, logger: logger}
}

// CalculatePrice applies a pricing rule to a base amount. It is a pure
// function over its inputs.
//
// The adjustment order is fixed: early-bird discount or late fee (the two
// windows are mutually exclusive), then sibling and group discounts composed
// multiplicatively, then the external surcharge. The surcharge is never
// discounted. Rounding happens once at the end, half up to a whole amount. A
// negative result is clamped to zero and flagged on the quote.
func CalculatePrice(baseAmount int64, rule models.PricingRule, pctx models.PricingContext) models.PriceQuote {
	amount := float64(baseAmount)

	if pctx.IsEarlyBird {
		amount *= 1 - rule.EarlyBirdDiscountPct/100
	} else if pctx.IsLate {
		amount += float64(rule.LateRegistrationFee)
	}
	if pctx.SiblingCount >= 1 {
		amount *= 1 - rule.SiblingDiscountPct/100
	}
	if pctx.FamilyGroupSize >= 3 {
		amount *= 1 - rule.GroupDiscountPct/100
	}
	if pctx.IsExternalStudent {
		amount += float64(rule.ExternalSurcharge)
	}

	final := int64(math.Floor(amount + 0.5))
	clamped := false
	if final < 0 {
		final = 0
		clamped = true
	}
	return models.PriceQuote{
		BaseAmount:  baseAmount,
		FinalAmount: final,
		Currency:    rule.Currency,
		Clamped:     clamped,
	}
}

// Quote resolves the rule and runs the calculator.
func (s *PricingService) Quote(ctx context.Context, req QuoteRequest) (*models.PriceQuote, error) {
	if req.RuleID == "" && req.PeriodID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "rule_id or period_id is required")
	}
	if req.BaseAmount < 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "base_amount must not be negative")
	}

	var rule *models.PricingRule
	var err error
	if req.RuleID != "" {
		rule, err = s.repo.FindByID(ctx, req.RuleID)
	} else {
		rule, err = s.repo.FindActiveByPeriod(ctx, req.PeriodID)
	}
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "pricing rule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load pricing rule")
	}

	base := req.BaseAmount
	if base == 0 {
		base = rule.RegularPrice
	}
	quote := CalculatePrice(base, *rule, req.Context)
	if quote.Clamped {
		s.logger.Warn("negative price clamped to zero",
			zap.String("rule_id", rule.ID),
			zap.String("period_id", rule.PeriodID),
			zap.Int64("base_amount", base))
	}
	s.metrics.RecordPriceQuote()
	return &quote, nil
}

// Rules lists the rule versions for a period, or every rule when periodID is
// empty.
func (s *PricingService) Rules(ctx context.Context, periodID string) ([]models.PricingRule, error) {
	rules, err := s.repo.List(ctx, periodID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list pricing rules")
	}
	return rules, nil
}

// Rule returns one rule version.
func (s *PricingService) Rule(ctx context.Context, id string) (*models.PricingRule, error) {
	rule, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "pricing rule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load pricing rule")
	}
	return rule, nil
}

// CreateRule publishes version 1 of a rule for a period.
func (s *PricingService) CreateRule(ctx context.Context, req CreatePricingRuleRequest) (*models.PricingRule, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid pricing rule payload")
	}
	rule := s.ruleFromRequest(req)
	if err := s.repo.Create(ctx, rule); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create pricing rule")
	}
	return rule, nil
}

// UpdateRule issues a new version for the rule's period and deactivates the
// previous one. Issued invoices keep the version they were priced with.
func (s *PricingService) UpdateRule(ctx context.Context, id string, req CreatePricingRuleRequest) (*models.PricingRule, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid pricing rule payload")
	}
	current, err := s.Rule(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.PeriodID != req.PeriodID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "pricing rule period cannot change across versions")
	}

	rule := s.ruleFromRequest(req)
	rule.Version = current.Version + 1
	if err := s.repo.CreateVersion(ctx, rule); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to version pricing rule")
	}
	return rule, nil
}

func (s *PricingService) ruleFromRequest(req CreatePricingRuleRequest) *models.PricingRule {
	return &models.PricingRule{
		PeriodID:             req.PeriodID,
		Name:                 req.Name,
		RegularPrice:         req.RegularPrice,
		EarlyBirdDiscountPct: req.EarlyBirdDiscountPct,
		LateRegistrationFee:  req.LateRegistrationFee,
		SiblingDiscountPct:   req.SiblingDiscountPct,
		GroupDiscountPct:     req.GroupDiscountPct,
		ExternalSurcharge:    req.ExternalSurcharge,
		Currency:             req.Currency,
		Version:              1,
		Active:               true,
	}
}
