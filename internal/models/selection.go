package models

import "time"

// SelectionState tracks the lifecycle of an invoice-creation session.
type SelectionState string

const (
	SelectionComposing SelectionState = "COMPOSING"
	SelectionFinalized SelectionState = "FINALIZED"
)

// SelectedItem is a catalog item chosen into a selection, tagged with how it
// got there. An item added both manually and through templates keeps every
// provenance; it is only dropped once all of them are gone.
type SelectedItem struct {
	Item        FeeItem  `json:"item"`
	Manual      bool     `json:"manual"`
	TemplateIDs []string `json:"template_ids,omitempty"`
}

// FromTemplate reports whether the given template contributed this item.
func (s SelectedItem) FromTemplate(templateID string) bool {
	for _, id := range s.TemplateIDs {
		if id == templateID {
			return true
		}
	}
	return false
}

// SelectionItemSnapshot freezes a chosen item with its amount at finalize
// time; invoices are built from snapshots, never live catalog rows.
type SelectionItemSnapshot struct {
	FeeItemID string      `json:"fee_item_id"`
	Name      string      `json:"name"`
	Category  FeeCategory `json:"category"`
	Amount    int64       `json:"amount"`
}

// Selection is the immutable result of finalizing a session.
type Selection struct {
	SessionID   string                  `json:"session_id"`
	Grade       string                  `json:"grade"`
	PaymentMode PaymentMode             `json:"payment_mode"`
	Items       []SelectionItemSnapshot `json:"items"`
	FinalizedAt time.Time               `json:"finalized_at"`
}

// PerStudentTotal sums the snapshot amounts.
func (s Selection) PerStudentTotal() int64 {
	var total int64
	for _, item := range s.Items {
		total += item.Amount
	}
	return total
}

// SelectionView is the API representation of an in-progress session.
type SelectionView struct {
	SessionID      string         `json:"session_id"`
	Grade          string         `json:"grade"`
	ActiveCategory FeeCategory    `json:"active_category,omitempty"`
	PaymentMode    PaymentMode    `json:"payment_mode"`
	State          SelectionState `json:"state"`
	Items          []SelectedItem `json:"items"`
	TotalAmount    int64          `json:"total_amount"`
}
