package model

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestItemsTotal(t *testing.T) {
	claim := &Claim{
		Items: []LineItem{
			{Name: "Consultation", UnitPrice: decimal.RequireFromString("150.50"), Quantity: 1},
			{Name: "X-Ray", UnitPrice: decimal.RequireFromString("75.25"), Quantity: 2},
		},
	}

	assert.True(t, claim.ItemsTotal().Equal(decimal.RequireFromString("301.00")),
		"got %s", claim.ItemsTotal())
}

func TestItemsTotal_Empty(t *testing.T) {
	claim := &Claim{}
	assert.True(t, claim.ItemsTotal().IsZero())
}

func TestPreferredDate(t *testing.T) {
	encounter := time.Date(2026, 5, 20, 0, 0, 0, 0, time.UTC)
	created := time.Date(2026, 5, 28, 14, 30, 0, 0, time.UTC)
	claim := &Claim{EncounterDate: encounter, CreatedAt: created}

	assert.Equal(t, created, claim.PreferredDate(PreferSubmissionDate))
	assert.Equal(t, encounter, claim.PreferredDate(PreferEncounterDate))
}

func TestBatchID(t *testing.T) {
	date := time.Date(2024, 7, 18, 11, 0, 0, 0, time.UTC)
	assert.Equal(t, "City Hospital Jul 18 2024", BatchID("City Hospital", date))

	// Single-digit days are not zero padded.
	date = time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "City Hospital Jun 1 2026", BatchID("City Hospital", date))
}

func TestValidSpecialty(t *testing.T) {
	assert.True(t, ValidSpecialty(SpecialtyCardiology))
	assert.True(t, ValidSpecialty(SpecialtyDermatology))
	// Oncology exists on insurer policies but is rejected at claim intake.
	assert.False(t, ValidSpecialty(SpecialtyOncology))
	assert.False(t, ValidSpecialty(Specialty("Telepathy")))
}
