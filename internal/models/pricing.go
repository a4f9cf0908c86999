package models

import "time"

// PricingRule configures seasonal-registration pricing for a registration
// period. Rules are versioned: edits create a new version, issued invoices
// keep the figures they were priced with.
type PricingRule struct {
	ID                   string    `db:"id" json:"id"`
	PeriodID             string    `db:"period_id" json:"period_id"`
	Name                 string    `db:"name" json:"name"`
	RegularPrice         int64     `db:"regular_price" json:"regular_price"`
	EarlyBirdDiscountPct float64   `db:"early_bird_discount_pct" json:"early_bird_discount_pct"`
	LateRegistrationFee  int64     `db:"late_registration_fee" json:"late_registration_fee"`
	SiblingDiscountPct   float64   `db:"sibling_discount_pct" json:"sibling_discount_pct"`
	GroupDiscountPct     float64   `db:"group_discount_pct" json:"group_discount_pct"`
	ExternalSurcharge    int64     `db:"external_surcharge" json:"external_surcharge"`
	Currency             string    `db:"currency" json:"currency"`
	Version              int       `db:"version" json:"version"`
	Active               bool      `db:"active" json:"active"`
	CreatedAt            time.Time `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time `db:"updated_at" json:"updated_at"`
}

// PricingContext captures the enrollment facts a quote depends on.
type PricingContext struct {
	IsEarlyBird       bool `json:"is_early_bird"`
	IsLate            bool `json:"is_late"`
	SiblingCount      int  `json:"sibling_count"`
	FamilyGroupSize   int  `json:"family_group_size"`
	IsExternalStudent bool `json:"is_external_student"`
}

// PriceQuote is the result of running the pricing calculator. Clamped is set
// when the computed amount fell below zero and was replaced with zero; the
// anomaly is logged so the rule's admin can correct the discounts.
type PriceQuote struct {
	BaseAmount  int64  `json:"base_amount"`
	FinalAmount int64  `json:"final_amount"`
	Currency    string `json:"currency"`
	Clamped     bool   `json:"clamped"`
}
