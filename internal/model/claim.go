// Package model defines the core domain types for claim batching.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Specialty is a medical specialty a claim or insurer can be associated with.
type Specialty string

// Accepted specialties for claim intake.
const (
	SpecialtyCardiology  Specialty = "Cardiology"
	SpecialtyOrthopedics Specialty = "Orthopedics"
	SpecialtyDermatology Specialty = "Dermatology"
	SpecialtyPediatrics  Specialty = "Pediatrics"
	SpecialtyNeurology   Specialty = "Neurology"

	// SpecialtyOncology appears on insurer policies but is not accepted on
	// claim intake.
	SpecialtyOncology Specialty = "Oncology"
)

// ValidSpecialty reports whether s is one of the accepted intake specialties.
func ValidSpecialty(s Specialty) bool {
	switch s {
	case SpecialtyCardiology, SpecialtyOrthopedics, SpecialtyDermatology,
		SpecialtyPediatrics, SpecialtyNeurology:
		return true
	}
	return false
}

// LineItem is a single billed item on a claim.
type LineItem struct {
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
}

// Claim represents one submitted medical claim.
type Claim struct {
	EncounterDate      time.Time
	CreatedAt          time.Time
	BatchDate          *time.Time
	ID                 string
	InsurerCode        string
	ProviderName       string
	BatchID            string
	Specialty          Specialty
	Items              []LineItem
	PriorityLevel      int
	TotalAmount        decimal.Decimal
	BaseProcessingCost decimal.Decimal
	IsProcessed        bool
}

// ItemsTotal sums unit price times quantity over all line items.
func (c *Claim) ItemsTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}

// PreferredDate returns the date the insurer batches this claim by:
// the submission timestamp or the encounter date.
func (c *Claim) PreferredDate(pref DatePreference) time.Time {
	if pref == PreferEncounterDate {
		return c.EncounterDate
	}
	return c.CreatedAt
}
