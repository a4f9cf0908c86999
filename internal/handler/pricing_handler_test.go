package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sisb-tech/backoffice-billing-api/internal/models"
	"github.com/sisb-tech/backoffice-billing-api/internal/service"
	appErrors "github.com/sisb-tech/backoffice-billing-api/pkg/errors"
)

type pricingRepoStub struct {
	rules    map[string]models.PricingRule
	byPeriod map[string]models.PricingRule
}

func (s *pricingRepoStub) List(ctx context.Context, periodID string) ([]models.PricingRule, error) {
	var out []models.PricingRule
	for _, r := range s.rules {
		if periodID == "" || r.PeriodID == periodID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *pricingRepoStub) FindByID(ctx context.Context, id string) (*models.PricingRule, error) {
	if r, ok := s.rules[id]; ok {
		return &r, nil
	}
	return nil, sql.ErrNoRows
}

func (s *pricingRepoStub) FindActiveByPeriod(ctx context.Context, periodID string) (*models.PricingRule, error) {
	if r, ok := s.byPeriod[periodID]; ok {
		return &r, nil
	}
	return nil, sql.ErrNoRows
}

func (s *pricingRepoStub) Create(ctx context.Context, rule *models.PricingRule) error        { return nil }
func (s *pricingRepoStub) CreateVersion(ctx context.Context, rule *models.PricingRule) error { return nil }

func newPricingFixture() *PricingHandler {
	repo := &pricingRepoStub{
		rules: map[string]models.PricingRule{
			"r1": {ID: "r1", PeriodID: "2026-T1", Name: "Term 1 2026", RegularPrice: 1000, EarlyBirdDiscountPct: 15, LateRegistrationFee: 300, Currency: "THB", Version: 1, Active: true},
		},
		byPeriod: map[string]models.PricingRule{
			"2026-T1": {ID: "r1", PeriodID: "2026-T1", Name: "Term 1 2026", RegularPrice: 1000, EarlyBirdDiscountPct: 15, LateRegistrationFee: 300, Currency: "THB", Version: 1, Active: true},
		},
	}
	return NewPricingHandler(service.NewPricingService(repo, nil, nil, zap.NewNop()))
}

func TestPricingHandlerQuote(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := newPricingFixture()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	body, _ := json.Marshal(service.QuoteRequest{
		RuleID:  "r1",
		Context: models.PricingContext{IsEarlyBird: true},
	})
	req, _ := http.NewRequest(http.MethodPost, "/pricing/quote", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	h.Quote(c)
	require.Equal(t, http.StatusOK, w.Code)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	var quote models.PriceQuote
	require.NoError(t, json.Unmarshal(env.Data, &quote))
	assert.Equal(t, int64(850), quote.FinalAmount)
	assert.Equal(t, "THB", quote.Currency)
}

func TestPricingHandlerQuoteInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := newPricingFixture()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/pricing/quote", bytes.NewReader([]byte(`not-json`)))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	h.Quote(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPricingHandlerQuoteUnknownRule(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := newPricingFixture()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	body, _ := json.Marshal(service.QuoteRequest{RuleID: "missing"})
	req, _ := http.NewRequest(http.MethodPost, "/pricing/quote", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	h.Quote(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPricingHandlerCreateRuleRejectsBadPercent(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := newPricingFixture()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	body, _ := json.Marshal(service.CreatePricingRuleRequest{
		PeriodID:             "2026-T1",
		Name:                 "Broken",
		RegularPrice:         1000,
		EarlyBirdDiscountPct: 150,
		Currency:             "THB",
	})
	req, _ := http.NewRequest(http.MethodPost, "/pricing-rules", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	h.CreateRule(c)
	require.Equal(t, appErrors.ErrValidation.Status, w.Code)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	require.NotNil(t, env.Error)
	assert.Equal(t, appErrors.ErrValidation.Code, env.Error.Code)
}

func TestPricingHandlerListRulesByPeriod(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := newPricingFixture()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/pricing-rules?period=2026-T1", nil)
	c.Request = req

	h.ListRules(c)
	require.Equal(t, http.StatusOK, w.Code)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	var rules []models.PricingRule
	require.NoError(t, json.Unmarshal(env.Data, &rules))
	require.Len(t, rules, 1)
	assert.Equal(t, "r1", rules[0].ID)
}
