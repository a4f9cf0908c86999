package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sisb-tech/backoffice-billing-api/internal/models"
	"github.com/sisb-tech/backoffice-billing-api/internal/service"
	appErrors "github.com/sisb-tech/backoffice-billing-api/pkg/errors"
	"github.com/sisb-tech/backoffice-billing-api/pkg/response"
)

// CatalogHandler exposes the fee catalog over HTTP.
type CatalogHandler struct {
	service *service.CatalogService
}

// NewCatalogHandler creates a new handler.
func NewCatalogHandler(svc *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{service: svc}
}

// ListItems godoc
// @Summary List fee items
// @Description List active fee items for a grade and category
// @Tags Catalog
// @Produce json
// @Param grade query string true "Grade"
// @Param category query string true "Fee category"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /fee-items [get]
func (h *CatalogHandler) ListItems(c *gin.Context) {
	grade := c.Query("grade")
	category := models.FeeCategory(c.Query("category"))

	items, err := h.service.ItemsFor(c.Request.Context(), grade, category)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// GetItem godoc
// @Summary Get fee item
// @Tags Catalog
// @Produce json
// @Param id path string true "Fee item ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /fee-items/{id} [get]
func (h *CatalogHandler) GetItem(c *gin.Context) {
	item, err := h.service.Item(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// CreateItem godoc
// @Summary Create fee item
// @Description Publish a new catalog fee item
// @Tags Catalog
// @Accept json
// @Produce json
// @Param payload body service.CreateFeeItemRequest true "Fee item payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /fee-items [post]
func (h *CatalogHandler) CreateItem(c *gin.Context) {
	var req service.CreateFeeItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid fee item payload"))
		return
	}

	item, err := h.service.CreateItem(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// UpdateItem godoc
// @Summary Update fee item
// @Description Rewrite a catalog fee item; issued invoices keep their snapshots
// @Tags Catalog
// @Accept json
// @Produce json
// @Param id path string true "Fee item ID"
// @Param payload body service.CreateFeeItemRequest true "Fee item payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /fee-items/{id} [put]
func (h *CatalogHandler) UpdateItem(c *gin.Context) {
	var req service.CreateFeeItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid fee item payload"))
		return
	}

	item, err := h.service.UpdateItem(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// RetireItem godoc
// @Summary Retire fee item
// @Description Deactivate a catalog fee item
// @Tags Catalog
// @Param id path string true "Fee item ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /fee-items/{id} [delete]
func (h *CatalogHandler) RetireItem(c *gin.Context) {
	if err := h.service.RetireItem(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListTemplates godoc
// @Summary List fee templates
// @Description List active templates for a grade
// @Tags Catalog
// @Produce json
// @Param grade query string true "Grade"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /fee-templates [get]
func (h *CatalogHandler) ListTemplates(c *gin.Context) {
	templates, err := h.service.TemplatesFor(c.Request.Context(), c.Query("grade"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, templates, nil)
}

// ResolveTemplate godoc
// @Summary Resolve fee template
// @Description Expand a template into its constituent fee items
// @Tags Catalog
// @Produce json
// @Param id path string true "Template ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /fee-templates/{id}/items [get]
func (h *CatalogHandler) ResolveTemplate(c *gin.Context) {
	template, items, err := h.service.Resolve(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"template": template, "items": items}, nil)
}

// CreateTemplate godoc
// @Summary Create fee template
// @Description Publish a template bundling existing fee items
// @Tags Catalog
// @Accept json
// @Produce json
// @Param payload body service.CreateFeeTemplateRequest true "Template payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /fee-templates [post]
func (h *CatalogHandler) CreateTemplate(c *gin.Context) {
	var req service.CreateFeeTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid fee template payload"))
		return
	}

	template, err := h.service.CreateTemplate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, template)
}

// RetireTemplate godoc
// @Summary Retire fee template
// @Tags Catalog
// @Param id path string true "Template ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /fee-templates/{id} [delete]
func (h *CatalogHandler) RetireTemplate(c *gin.Context) {
	if err := h.service.RetireTemplate(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
