package models

import (
	"time"

	"github.com/lib/pq"
)

// FeeCategory groups catalog items; a selection may only mix categories while
// no payment mode is active.
type FeeCategory string

const (
	CategoryTuition FeeCategory = "TUITION"
	CategoryECA     FeeCategory = "ECA"
	CategoryTrip    FeeCategory = "TRIP_ACTIVITY"
)

// Valid reports whether the category is one of the known values.
func (c FeeCategory) Valid() bool {
	switch c {
	case CategoryTuition, CategoryECA, CategoryTrip:
		return true
	}
	return false
}

// PaymentMode constrains a selection once tuition is chosen.
type PaymentMode string

const (
	PaymentModeNone   PaymentMode = "NONE"
	PaymentModeYearly PaymentMode = "YEARLY"
	PaymentModeTermly PaymentMode = "TERMLY"
)

// Valid reports whether the payment mode is one of the known values.
func (m PaymentMode) Valid() bool {
	switch m {
	case PaymentModeNone, PaymentModeYearly, PaymentModeTermly:
		return true
	}
	return false
}

// FeeItem is an immutable catalog entry. Amounts are whole THB.
type FeeItem struct {
	ID             string         `db:"id" json:"id"`
	Name           string         `db:"name" json:"name"`
	Description    *string        `db:"description" json:"description,omitempty"`
	BaseAmount     int64          `db:"base_amount" json:"base_amount"`
	Category       FeeCategory    `db:"category" json:"category"`
	EligibleGrades pq.StringArray `db:"eligible_grades" json:"eligible_grades"`
	Active         bool           `db:"active" json:"active"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`
}

// EligibleFor reports whether the item may be billed to the given grade.
func (f FeeItem) EligibleFor(grade string) bool {
	for _, g := range f.EligibleGrades {
		if g == grade {
			return true
		}
	}
	return false
}

// FeeTemplate is a named alias for an ordered set of fee items; it is not an
// independently priceable entity.
type FeeTemplate struct {
	ID             string         `db:"id" json:"id"`
	Name           string         `db:"name" json:"name"`
	Description    *string        `db:"description" json:"description,omitempty"`
	EligibleGrades pq.StringArray `db:"eligible_grades" json:"eligible_grades"`
	Active         bool           `db:"active" json:"active"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`
	ItemIDs        []string       `json:"item_ids,omitempty"`
}

// EligibleFor reports whether the template applies to the given grade.
func (t FeeTemplate) EligibleFor(grade string) bool {
	for _, g := range t.EligibleGrades {
		if g == grade {
			return true
		}
	}
	return false
}

// FeeItemFilter scopes catalog item queries.
type FeeItemFilter struct {
	Grade           string
	Category        FeeCategory
	IncludeInactive bool
}
