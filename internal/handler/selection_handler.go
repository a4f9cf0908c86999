package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sisb-tech/backoffice-billing-api/internal/models"
	"github.com/sisb-tech/backoffice-billing-api/internal/service"
	appErrors "github.com/sisb-tech/backoffice-billing-api/pkg/errors"
	"github.com/sisb-tech/backoffice-billing-api/pkg/response"
)

// SelectionHandler exposes selection session operations over HTTP.
type SelectionHandler struct {
	service *service.SelectionService
}

// NewSelectionHandler creates a new handler.
func NewSelectionHandler(svc *service.SelectionService) *SelectionHandler {
	return &SelectionHandler{service: svc}
}

// Start godoc
// @Summary Start selection session
// @Description Open a composing session for one grade
// @Tags Selections
// @Accept json
// @Produce json
// @Param payload body object true "Grade payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /selections [post]
func (h *SelectionHandler) Start(c *gin.Context) {
	var payload struct {
		Grade string `json:"grade" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "grade is required"))
		return
	}

	view, err := h.service.StartSession(c.Request.Context(), payload.Grade)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, view)
}

// Get godoc
// @Summary Get selection session
// @Tags Selections
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /selections/{id} [get]
func (h *SelectionHandler) Get(c *gin.Context) {
	view, err := h.service.Session(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// SelectCategory godoc
// @Summary Select category
// @Description Switch the category panel and list its eligible items
// @Tags Selections
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param payload body object true "Category payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /selections/{id}/category [post]
func (h *SelectionHandler) SelectCategory(c *gin.Context) {
	var payload struct {
		Category models.FeeCategory `json:"category" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "category is required"))
		return
	}

	view, items, err := h.service.SelectCategory(c.Request.Context(), c.Param("id"), payload.Category)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"selection": view, "items": items}, nil)
}

// ToggleItem godoc
// @Summary Toggle fee item
// @Description Add or remove one item from the selection
// @Tags Selections
// @Produce json
// @Param id path string true "Session ID"
// @Param itemId path string true "Fee item ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /selections/{id}/items/{itemId}/toggle [post]
func (h *SelectionHandler) ToggleItem(c *gin.Context) {
	view, err := h.service.ToggleItem(c.Request.Context(), c.Param("id"), c.Param("itemId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// ApplyTemplate godoc
// @Summary Apply fee template
// @Description Union the template's items into the selection
// @Tags Selections
// @Produce json
// @Param id path string true "Session ID"
// @Param templateId path string true "Template ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /selections/{id}/templates/{templateId}/apply [post]
func (h *SelectionHandler) ApplyTemplate(c *gin.Context) {
	view, err := h.service.ApplyTemplate(c.Request.Context(), c.Param("id"), c.Param("templateId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// ClearTemplate godoc
// @Summary Clear fee template
// @Description Remove items whose only provenance is the template
// @Tags Selections
// @Produce json
// @Param id path string true "Session ID"
// @Param templateId path string true "Template ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /selections/{id}/templates/{templateId} [delete]
func (h *SelectionHandler) ClearTemplate(c *gin.Context) {
	view, err := h.service.ClearTemplate(c.Request.Context(), c.Param("id"), c.Param("templateId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// SetPaymentMode godoc
// @Summary Set payment mode
// @Description Activate or clear a tuition payment mode
// @Tags Selections
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param payload body object true "Payment mode payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /selections/{id}/payment-mode [post]
func (h *SelectionHandler) SetPaymentMode(c *gin.Context) {
	var payload struct {
		Mode models.PaymentMode `json:"mode" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "mode is required"))
		return
	}

	view, err := h.service.SetPaymentMode(c.Request.Context(), c.Param("id"), payload.Mode)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// Finalize godoc
// @Summary Finalize selection
// @Description Freeze the selection into an immutable snapshot
// @Tags Selections
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /selections/{id}/finalize [post]
func (h *SelectionHandler) Finalize(c *gin.Context) {
	selection, err := h.service.Finalize(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, selection, nil)
}
