// Package costing computes claim processing costs. Both operations are pure
// functions of their inputs plus four externally supplied parameters.
package costing

import (
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/clearhealth/claimflow/internal/model"
)

// Params are the tunable knobs of the cost model. All four are overridable
// per deployment through config; see FromConfig.
type Params struct {
	BasePercentage              float64
	MaxPercentage               float64
	PriorityFactor              float64
	SpecialtyDiscountPercentage float64
}

// DefaultParams returns the stock cost model parameters.
func DefaultParams() Params {
	return Params{
		BasePercentage:              20,
		MaxPercentage:               30,
		PriorityFactor:              0.02,
		SpecialtyDiscountPercentage: 5,
	}
}

// FromConfig loads cost parameters from viper, falling back to the defaults
// for any knob the deployment does not override.
func FromConfig() Params {
	viper.SetDefault("claims.processing_cost.base_percentage", 20)
	viper.SetDefault("claims.processing_cost.max_percentage", 30)
	viper.SetDefault("claims.processing_cost.priority_factor", 0.02)
	viper.SetDefault("claims.processing_cost.specialty_discount_percentage", 5)

	return Params{
		BasePercentage:              viper.GetFloat64("claims.processing_cost.base_percentage"),
		MaxPercentage:               viper.GetFloat64("claims.processing_cost.max_percentage"),
		PriorityFactor:              viper.GetFloat64("claims.processing_cost.priority_factor"),
		SpecialtyDiscountPercentage: viper.GetFloat64("claims.processing_cost.specialty_discount_percentage"),
	}
}

// Calculator computes base and day-scaled processing costs for claims.
type Calculator struct {
	params Params
}

// NewCalculator creates a calculator with the given parameters.
func NewCalculator(params Params) *Calculator {
	return &Calculator{params: params}
}

// BaseProcessingCost computes the day-independent cost of processing a claim,
// rounded to two fractional digits. The claim's priority level scales the
// cost linearly, and a discount applies when the claim falls inside the
// insurer's own specialty.
func (c *Calculator) BaseProcessingCost(claim *model.Claim, insurer *model.Insurer) decimal.Decimal {
	priorityWeight := decimal.NewFromInt(int64(claim.PriorityLevel)).
		Mul(decimal.NewFromFloat(c.params.PriorityFactor))
	cost := claim.TotalAmount.Mul(priorityWeight)

	if claim.Specialty == insurer.Specialty {
		discount := decimal.NewFromFloat(c.params.SpecialtyDiscountPercentage).
			Div(decimal.NewFromInt(100)).
			Mul(cost)
		cost = cost.Sub(discount)
	}

	return cost.Round(2)
}

// TotalProcessingCost scales a claim's already-computed base cost by a
// day-of-month factor. Day 1 carries the base percentage alone; the factor
// grows linearly so that day 30 carries base plus max. The literal formula
// is kept as-is: days 30 and 31 push the factor past that envelope.
func (c *Calculator) TotalProcessingCost(claim *model.Claim, dayOfMonth int) decimal.Decimal {
	base := decimal.NewFromFloat(c.params.BasePercentage).
		Div(decimal.NewFromInt(100)).
		Round(1)
	max := decimal.NewFromFloat(c.params.MaxPercentage).
		Div(decimal.NewFromInt(100)).
		Round(1)

	timeFactor := base.Add(
		max.Mul(decimal.NewFromInt(int64(dayOfMonth - 1))).
			Div(decimal.NewFromInt(29)))

	// No rounding here; rounding happens only in the base cost step.
	return claim.BaseProcessingCost.Mul(timeFactor)
}
