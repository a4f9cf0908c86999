package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sisb-tech/backoffice-billing-api/internal/service"
	appErrors "github.com/sisb-tech/backoffice-billing-api/pkg/errors"
	"github.com/sisb-tech/backoffice-billing-api/pkg/response"
)

// PricingHandler exposes pricing rules and quote computation over HTTP.
type PricingHandler struct {
	service *service.PricingService
}

// NewPricingHandler creates a new handler.
func NewPricingHandler(svc *service.PricingService) *PricingHandler {
	return &PricingHandler{service: svc}
}

// ListRules godoc
// @Summary List pricing rules
// @Description List rule versions, optionally scoped to a registration period
// @Tags Pricing
// @Produce json
// @Param period query string false "Registration period ID"
// @Success 200 {object} response.Envelope
// @Router /pricing-rules [get]
func (h *PricingHandler) ListRules(c *gin.Context) {
	rules, err := h.service.Rules(c.Request.Context(), c.Query("period"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rules, nil)
}

// GetRule godoc
// @Summary Get pricing rule
// @Tags Pricing
// @Produce json
// @Param id path string true "Rule ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /pricing-rules/{id} [get]
func (h *PricingHandler) GetRule(c *gin.Context) {
	rule, err := h.service.Rule(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rule, nil)
}

// CreateRule godoc
// @Summary Create pricing rule
// @Description Publish version 1 of a rule for a registration period
// @Tags Pricing
// @Accept json
// @Produce json
// @Param payload body service.CreatePricingRuleRequest true "Pricing rule payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /pricing-rules [post]
func (h *PricingHandler) CreateRule(c *gin.Context) {
	var req service.CreatePricingRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid pricing rule payload"))
		return
	}

	rule, err := h.service.CreateRule(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, rule)
}

// UpdateRule godoc
// @Summary Update pricing rule
// @Description Issue a new rule version; issued invoices keep the old figures
// @Tags Pricing
// @Accept json
// @Produce json
// @Param id path string true "Rule ID"
// @Param payload body service.CreatePricingRuleRequest true "Pricing rule payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /pricing-rules/{id} [put]
func (h *PricingHandler) UpdateRule(c *gin.Context) {
	var req service.CreatePricingRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid pricing rule payload"))
		return
	}

	rule, err := h.service.UpdateRule(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rule, nil)
}

// Quote godoc
// @Summary Compute price quote
// @Description Run the tiered pricing calculator for one student context
// @Tags Pricing
// @Accept json
// @Produce json
// @Param payload body service.QuoteRequest true "Quote payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /pricing/quote [post]
func (h *PricingHandler) Quote(c *gin.Context) {
	var req service.QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid quote payload"))
		return
	}

	quote, err := h.service.Quote(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, quote, nil)
}
