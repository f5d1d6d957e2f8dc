package costing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/clearhealth/claimflow/internal/model"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestBaseProcessingCost(t *testing.T) {
	calc := NewCalculator(DefaultParams())

	tests := []struct {
		name      string
		amount    string
		specialty model.Specialty
		insurer   model.Specialty
		priority  int
		want      string
	}{
		{
			name:      "priority scales the cost linearly",
			amount:    "1000",
			specialty: model.SpecialtyDermatology,
			insurer:   model.SpecialtyCardiology,
			priority:  3,
			want:      "60",
		},
		{
			name:      "specialty match takes five percent off",
			amount:    "1000",
			specialty: model.SpecialtyCardiology,
			insurer:   model.SpecialtyCardiology,
			priority:  3,
			want:      "57",
		},
		{
			name:      "result is rounded to two fractional digits",
			amount:    "123.45",
			specialty: model.SpecialtyNeurology,
			insurer:   model.SpecialtyCardiology,
			priority:  1,
			want:      "2.47",
		},
		{
			name:      "zero amount costs nothing",
			amount:    "0",
			specialty: model.SpecialtyNeurology,
			insurer:   model.SpecialtyNeurology,
			priority:  5,
			want:      "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claim := &model.Claim{
				TotalAmount:   dec(tt.amount),
				Specialty:     tt.specialty,
				PriorityLevel: tt.priority,
			}
			insurer := &model.Insurer{Specialty: tt.insurer}

			got := calc.BaseProcessingCost(claim, insurer)
			assert.True(t, got.Equal(dec(tt.want)), "got %s, want %s", got, tt.want)
		})
	}
}

func TestTotalProcessingCost(t *testing.T) {
	calc := NewCalculator(DefaultParams())
	claim := &model.Claim{BaseProcessingCost: dec("100")}

	// Day one carries the base percentage alone.
	assert.True(t, calc.TotalProcessingCost(claim, 1).Equal(dec("20")))

	// Day thirty carries base plus max.
	assert.True(t, calc.TotalProcessingCost(claim, 30).Equal(dec("50")))

	// The factor grows monotonically between those points.
	prev := decimal.Zero
	for day := 1; day <= 30; day++ {
		cost := calc.TotalProcessingCost(claim, day)
		assert.True(t, cost.GreaterThan(prev), "day %d cost %s not above day %d", day, cost, day-1)
		prev = cost
	}

	// Day 31 exceeds the intended envelope; the literal formula is kept.
	assert.True(t, calc.TotalProcessingCost(claim, 31).GreaterThan(dec("50")))
}

func TestTotalProcessingCost_PercentagesRoundToOneDigit(t *testing.T) {
	// A base percentage of 25 is rounded to 0.3 before use, not kept as
	// 0.25. The formula rounds each percentage to one fractional digit.
	calc := NewCalculator(Params{
		BasePercentage:              25,
		MaxPercentage:               30,
		PriorityFactor:              0.02,
		SpecialtyDiscountPercentage: 5,
	})
	claim := &model.Claim{BaseProcessingCost: dec("100")}

	assert.True(t, calc.TotalProcessingCost(claim, 1).Equal(dec("30")))
}

func TestDefaultParams(t *testing.T) {
	params := DefaultParams()
	assert.Equal(t, 20.0, params.BasePercentage)
	assert.Equal(t, 30.0, params.MaxPercentage)
	assert.Equal(t, 0.02, params.PriorityFactor)
	assert.Equal(t, 5.0, params.SpecialtyDiscountPercentage)
}
