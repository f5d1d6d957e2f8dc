package storage

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearhealth/claimflow/internal/common"
	"github.com/clearhealth/claimflow/internal/model"
)

func makeInsurer(code string) *model.Insurer {
	return &model.Insurer{
		Name:                    "Acme Health",
		Code:                    code,
		Email:                   "claims@acme.example",
		DatePreference:          model.PreferSubmissionDate,
		Specialty:               model.SpecialtyCardiology,
		DailyProcessingCapacity: decimal.RequireFromString("1000"),
		MinBatchSize:            2,
		MaxBatchSize:            10,
	}
}

func TestSaveInsurer_Roundtrip(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.SaveInsurer(ctx, makeInsurer("INS-A")))

	got, err := store.GetInsurerByCode(ctx, "INS-A")
	require.NoError(t, err)
	assert.Equal(t, "Acme Health", got.Name)
	assert.Equal(t, "claims@acme.example", got.Email)
	assert.Equal(t, model.PreferSubmissionDate, got.DatePreference)
	assert.Equal(t, model.SpecialtyCardiology, got.Specialty)
	assert.True(t, got.DailyProcessingCapacity.Equal(decimal.RequireFromString("1000")))
	assert.Equal(t, 2, got.MinBatchSize)
	assert.Equal(t, 10, got.MaxBatchSize)
}

func TestSaveInsurer_UpsertsOnCode(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.SaveInsurer(ctx, makeInsurer("INS-A")))

	updated := makeInsurer("INS-A")
	updated.Name = "Acme Health East"
	updated.DailyProcessingCapacity = decimal.RequireFromString("2500")
	require.NoError(t, store.SaveInsurer(ctx, updated))

	got, err := store.GetInsurerByCode(ctx, "INS-A")
	require.NoError(t, err)
	assert.Equal(t, "Acme Health East", got.Name)
	assert.True(t, got.DailyProcessingCapacity.Equal(decimal.RequireFromString("2500")))

	insurers, err := store.ListInsurers(ctx)
	require.NoError(t, err)
	assert.Len(t, insurers, 1)
}

func TestSaveInsurer_EmptyEmail(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	insurer := makeInsurer("INS-A")
	insurer.Email = ""
	require.NoError(t, store.SaveInsurer(ctx, insurer))

	got, err := store.GetInsurerByCode(ctx, "INS-A")
	require.NoError(t, err)
	assert.Empty(t, got.Email)
}

func TestGetInsurerByCode_NotFound(t *testing.T) {
	store := newTestStorage(t)

	_, err := store.GetInsurerByCode(context.Background(), "INS-Z")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrInsurerNotFound)
}

func TestListInsurers_OrderedByCode(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.SaveInsurer(ctx, makeInsurer("INS-B")))
	require.NoError(t, store.SaveInsurer(ctx, makeInsurer("INS-A")))

	insurers, err := store.ListInsurers(ctx)
	require.NoError(t, err)
	require.Len(t, insurers, 2)
	assert.Equal(t, "INS-A", insurers[0].Code)
	assert.Equal(t, "INS-B", insurers[1].Code)
}

func TestSeedDefaultInsurers(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.SeedDefaultInsurers(ctx))

	insurers, err := store.ListInsurers(ctx)
	require.NoError(t, err)
	assert.Len(t, insurers, len(DefaultInsurers()))

	// Seeding is an upsert, so a second run changes nothing.
	require.NoError(t, store.SeedDefaultInsurers(ctx))
	again, err := store.ListInsurers(ctx)
	require.NoError(t, err)
	assert.Equal(t, insurers, again)
}
