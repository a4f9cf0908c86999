package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/sisb-tech/backoffice-billing-api/internal/models"
	"github.com/sisb-tech/backoffice-billing-api/internal/service"
	appErrors "github.com/sisb-tech/backoffice-billing-api/pkg/errors"
	"github.com/sisb-tech/backoffice-billing-api/pkg/response"
)

// InvoiceHandler exposes invoice generation, listing and export over HTTP.
type InvoiceHandler struct {
	service *service.InvoiceService
}

// NewInvoiceHandler creates a new handler.
func NewInvoiceHandler(svc *service.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{service: svc}
}

// Generate godoc
// @Summary Generate invoice batch
// @Description Issue one invoice per student from a finalized selection
// @Tags Invoices
// @Accept json
// @Produce json
// @Param payload body service.GenerateInvoicesRequest true "Invoice batch payload"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /invoices [post]
func (h *InvoiceHandler) Generate(c *gin.Context) {
	var req service.GenerateInvoicesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid invoice payload"))
		return
	}

	batch, err := h.service.Generate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, batch)
}

// List godoc
// @Summary List invoices
// @Tags Invoices
// @Produce json
// @Param batch query string false "Batch ID"
// @Param student query string false "Student ID"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /invoices [get]
func (h *InvoiceHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	filter := models.InvoiceFilter{
		BatchID:   c.Query("batch"),
		StudentID: c.Query("student"),
		Page:      page,
		PageSize:  pageSize,
	}

	invoices, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, invoices, pagination)
}

// Get godoc
// @Summary Get invoice
// @Tags Invoices
// @Produce json
// @Param id path string true "Invoice ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /invoices/{id} [get]
func (h *InvoiceHandler) Get(c *gin.Context) {
	invoice, err := h.service.Invoice(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, invoice, nil)
}

// Export godoc
// @Summary Export invoice batch
// @Description Download a batch as CSV or PDF with a grand-total row
// @Tags Invoices
// @Produce octet-stream
// @Param batch query string true "Batch ID"
// @Param format query string false "csv or pdf"
// @Success 200 {file} binary
// @Failure 404 {object} response.Envelope
// @Router /invoices/export [get]
func (h *InvoiceHandler) Export(c *gin.Context) {
	batchID := c.Query("batch")
	if batchID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "batch is required"))
		return
	}

	payload, contentType, filename, err := h.service.ExportBatch(c.Request.Context(), batchID, c.DefaultQuery("format", "csv"))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, contentType, payload)
}
