package models

import "time"

// InvoiceItem is a line on an invoice, copied from the selection snapshot at
// issuance time.
type InvoiceItem struct {
	ID        string      `db:"id" json:"id"`
	InvoiceID string      `db:"invoice_id" json:"invoice_id"`
	FeeItemID string      `db:"fee_item_id" json:"fee_item_id"`
	Name      string      `db:"name" json:"name"`
	Category  FeeCategory `db:"category" json:"category"`
	Amount    int64       `db:"amount" json:"amount"`
}

// InvoiceRecord is an immutable per-student invoice. Cancellation and credit
// notes are separate documents handled outside this service.
type InvoiceRecord struct {
	ID              string        `db:"id" json:"id"`
	BatchID         string        `db:"batch_id" json:"batch_id"`
	StudentID       string        `db:"student_id" json:"student_id"`
	Grade           string        `db:"grade" json:"grade"`
	PerStudentTotal int64         `db:"per_student_total" json:"per_student_total"`
	Currency        string        `db:"currency" json:"currency"`
	PaymentDeadline time.Time     `db:"payment_deadline" json:"payment_deadline"`
	CreatedAt       time.Time     `db:"created_at" json:"created_at"`
	Items           []InvoiceItem `json:"items,omitempty"`
}

// InvoiceBatch groups the invoices generated from one finalized selection.
type InvoiceBatch struct {
	ID              string          `json:"id"`
	Grade           string          `json:"grade"`
	StudentCount    int             `json:"student_count"`
	PerStudentTotal int64           `json:"per_student_total"`
	GrandTotal      int64           `json:"grand_total"`
	PaymentDeadline time.Time       `json:"payment_deadline"`
	CreatedAt       time.Time       `json:"created_at"`
	Invoices        []InvoiceRecord `json:"invoices,omitempty"`
}

// InvoiceFilter scopes invoice listing queries.
type InvoiceFilter struct {
	BatchID   string
	StudentID string
	Page      int
	PageSize  int
}
