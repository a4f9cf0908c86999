package service

import (
	"time"

	"github.com/sisb-tech/backoffice-billing-api/internal/models"
	appErrors "github.com/sisb-tech/backoffice-billing-api/pkg/errors"
)

// SelectionEngine holds the fee-item composition state for one
// invoice-creation session. It enforces grade eligibility, category
// exclusivity under an active payment mode, and template/manual provenance.
//
// An engine belongs to exactly one session and is not safe for concurrent
// use; the owning session store serializes access.
type SelectionEngine struct {
	sessionID      string
	grade          string
	activeCategory models.FeeCategory
	paymentMode    models.PaymentMode
	state          models.SelectionState
	items          []models.SelectedItem
}

// NewSelectionEngine starts a composing session for a grade.
func NewSelectionEngine(sessionID, grade string) *SelectionEngine {
	return &SelectionEngine{
		sessionID:   sessionID,
		grade:       grade,
		paymentMode: models.PaymentModeNone,
		state:       models.SelectionComposing,
	}
}

// SessionID returns the owning session id.
func (e *SelectionEngine) SessionID() string {
	return e.sessionID
}

// Grade returns the grade this selection is composed for.
func (e *SelectionEngine) Grade() string {
	return e.grade
}

// SelectCategory switches the category being browsed. While a payment mode is
// active only the tuition category may be entered; the transition is rejected
// so the caller can surface the reason, never silently ignored.
func (e *SelectionEngine) SelectCategory(category models.FeeCategory) error {
	if e.state == models.SelectionFinalized {
		return appErrors.ErrFinalized
	}
	if !category.Valid() {
		return appErrors.Clone(appErrors.ErrValidation, "unknown fee category")
	}
	if e.paymentMode != models.PaymentModeNone && category != models.CategoryTuition {
		return appErrors.WithDetails(appErrors.ErrCategoryLocked, map[string]interface{}{
			"payment_mode": e.paymentMode,
			"category":     category,
		})
	}
	e.activeCategory = category
	return nil
}

// ToggleItem adds the item as a manual choice, or removes it when already
// selected regardless of provenance. Removing the last tuition item resets
// the payment mode.
func (e *SelectionEngine) ToggleItem(item models.FeeItem) error {
	if e.state == models.SelectionFinalized {
		return appErrors.ErrFinalized
	}

	if idx := e.indexOf(item.ID); idx >= 0 {
		e.items = append(e.items[:idx], e.items[idx+1:]...)
		e.resetPaymentModeIfNoTuition()
		return nil
	}

	if !item.EligibleFor(e.grade) {
		return appErrors.WithDetails(appErrors.ErrGradeMismatch, map[string]interface{}{
			"item_id": item.ID,
			"grade":   e.grade,
		})
	}
	if e.paymentMode != models.PaymentModeNone && item.Category != models.CategoryTuition {
		return appErrors.WithDetails(appErrors.ErrCategoryLocked, map[string]interface{}{
			"item_id":      item.ID,
			"payment_mode": e.paymentMode,
		})
	}

	e.items = append(e.items, models.SelectedItem{Item: item, Manual: true})
	return nil
}

// ApplyTemplate unions the template's resolved items into the selection.
// Items already present keep their existing provenance and gain the template
// as an additional source; nothing is ever dropped by applying a template,
// and previously applied templates stay in place. The apply is atomic: if
// any resolved item violates grade eligibility or the active payment mode,
// no item is added.
func (e *SelectionEngine) ApplyTemplate(template models.FeeTemplate, items []models.FeeItem) error {
	if e.state == models.SelectionFinalized {
		return appErrors.ErrFinalized
	}

	var mismatched, locked []string
	for _, item := range items {
		if !item.EligibleFor(e.grade) {
			mismatched = append(mismatched, item.ID)
			continue
		}
		if e.paymentMode != models.PaymentModeNone && item.Category != models.CategoryTuition && e.indexOf(item.ID) < 0 {
			locked = append(locked, item.ID)
		}
	}
	if len(mismatched) > 0 {
		return appErrors.WithDetails(appErrors.ErrGradeMismatch, map[string]interface{}{
			"template_id": template.ID,
			"item_ids":    mismatched,
			"grade":       e.grade,
		})
	}
	if len(locked) > 0 {
		return appErrors.WithDetails(appErrors.ErrCategoryLocked, map[string]interface{}{
			"template_id":  template.ID,
			"item_ids":     locked,
			"payment_mode": e.paymentMode,
		})
	}

	for _, item := range items {
		if idx := e.indexOf(item.ID); idx >= 0 {
			if !e.items[idx].FromTemplate(template.ID) {
				e.items[idx].TemplateIDs = append(e.items[idx].TemplateIDs, template.ID)
			}
			continue
		}
		e.items = append(e.items, models.SelectedItem{Item: item, TemplateIDs: []string{template.ID}})
	}
	return nil
}

// ClearTemplate removes only the items whose sole remaining provenance is the
// given template. Items that were also toggled manually, or that another
// template contributed, stay selected. Clearing a template that was never
// applied is a no-op.
func (e *SelectionEngine) ClearTemplate(templateID string) error {
	if e.state == models.SelectionFinalized {
		return appErrors.ErrFinalized
	}

	kept := e.items[:0]
	for _, entry := range e.items {
		if entry.FromTemplate(templateID) {
			remaining := make([]string, 0, len(entry.TemplateIDs)-1)
			for _, id := range entry.TemplateIDs {
				if id != templateID {
					remaining = append(remaining, id)
				}
			}
			entry.TemplateIDs = remaining
			if !entry.Manual && len(entry.TemplateIDs) == 0 {
				continue
			}
		}
		kept = append(kept, entry)
	}
	e.items = kept
	e.resetPaymentModeIfNoTuition()
	return nil
}

// SetPaymentMode activates a tuition payment mode. A non-NONE mode requires
// at least one tuition item and a selection free of other categories; when
// non-tuition items are present the transition fails listing the offenders,
// leaving the caller to decide whether to drop them. Setting NONE always
// succeeds.
func (e *SelectionEngine) SetPaymentMode(mode models.PaymentMode) error {
	if e.state == models.SelectionFinalized {
		return appErrors.ErrFinalized
	}
	if !mode.Valid() {
		return appErrors.Clone(appErrors.ErrValidation, "unknown payment mode")
	}
	if mode == models.PaymentModeNone {
		e.paymentMode = mode
		return nil
	}

	if !e.hasTuition() {
		return appErrors.ErrNoTuitionSelected
	}
	var offending []string
	for _, entry := range e.items {
		if entry.Item.Category != models.CategoryTuition {
			offending = append(offending, entry.Item.ID)
		}
	}
	if len(offending) > 0 {
		return appErrors.WithDetails(appErrors.ErrMixedCategoryConflict, map[string]interface{}{
			"item_ids": offending,
		})
	}

	e.paymentMode = mode
	return nil
}

// Finalize freezes the selection into an immutable snapshot with amounts
// captured at this moment. The session is terminal afterwards.
func (e *SelectionEngine) Finalize(now time.Time) (*models.Selection, error) {
	if e.state == models.SelectionFinalized {
		return nil, appErrors.ErrFinalized
	}
	if len(e.items) == 0 {
		return nil, appErrors.ErrEmptySelection
	}

	snapshots := make([]models.SelectionItemSnapshot, len(e.items))
	for i, entry := range e.items {
		snapshots[i] = models.SelectionItemSnapshot{
			FeeItemID: entry.Item.ID,
			Name:      entry.Item.Name,
			Category:  entry.Item.Category,
			Amount:    entry.Item.BaseAmount,
		}
	}

	e.state = models.SelectionFinalized
	return &models.Selection{
		SessionID:   e.sessionID,
		Grade:       e.grade,
		PaymentMode: e.paymentMode,
		Items:       snapshots,
		FinalizedAt: now.UTC(),
	}, nil
}

// View returns the API representation of the current state.
func (e *SelectionEngine) View() models.SelectionView {
	items := make([]models.SelectedItem, len(e.items))
	copy(items, e.items)
	var total int64
	for _, entry := range e.items {
		total += entry.Item.BaseAmount
	}
	return models.SelectionView{
		SessionID:      e.sessionID,
		Grade:          e.grade,
		ActiveCategory: e.activeCategory,
		PaymentMode:    e.paymentMode,
		State:          e.state,
		Items:          items,
		TotalAmount:    total,
	}
}

func (e *SelectionEngine) indexOf(itemID string) int {
	for i, entry := range e.items {
		if entry.Item.ID == itemID {
			return i
		}
	}
	return -1
}

func (e *SelectionEngine) hasTuition() bool {
	for _, entry := range e.items {
		if entry.Item.Category == models.CategoryTuition {
			return true
		}
	}
	return false
}

func (e *SelectionEngine) resetPaymentModeIfNoTuition() {
	if !e.hasTuition() {
		e.paymentMode = models.PaymentModeNone
	}
}
