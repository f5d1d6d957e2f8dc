package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearhealth/claimflow/internal/common"
	"github.com/clearhealth/claimflow/internal/model"
)

func TestBody(t *testing.T) {
	batchDate := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	claim := &model.Claim{
		ID:           "claim-1",
		InsurerCode:  "INS-A",
		ProviderName: "City Hospital",
		BatchID:      "City Hospital Jun 1 2026",
		BatchDate:    &batchDate,
	}

	got := body(claim)
	assert.Contains(t, got, "Claim ID: claim-1")
	assert.Contains(t, got, "Batch ID: City Hospital Jun 1 2026")
	assert.Contains(t, got, "Batch Date: 2026-06-01")
	assert.Contains(t, got, "Provider: City Hospital")
	assert.Contains(t, got, "Insurer: INS-A")
}

func TestBody_UnbatchedClaim(t *testing.T) {
	// A run can complete without placing its trigger claim; the mail still
	// goes out and simply carries empty batch fields.
	got := body(&model.Claim{ID: "claim-2", InsurerCode: "INS-B", ProviderName: "County Clinic"})
	assert.Contains(t, got, "Claim ID: claim-2")
	assert.Contains(t, got, "Batch ID: \n")
	assert.Contains(t, got, "Batch Date: \n")
}

func TestNewSMTPNotifier_RequiresConfig(t *testing.T) {
	_, err := NewSMTPNotifier(Config{Port: 587, From: "noreply@claimflow.example"})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrMissingConfig)

	_, err = NewSMTPNotifier(Config{Host: "smtp.example.com", Port: 587})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrMissingConfig)
}
