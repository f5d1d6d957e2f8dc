// Package intake accepts submitted claims: it validates the payload,
// persists the claim, stamps its base processing cost, and enqueues the
// asynchronous batching job.
package intake

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/clearhealth/claimflow/internal/common"
	"github.com/clearhealth/claimflow/internal/costing"
	"github.com/clearhealth/claimflow/internal/model"
	"github.com/clearhealth/claimflow/internal/service"
)

const encounterDateLayout = "2006-01-02"

// ClaimSubmission is the wire payload for a new claim.
type ClaimSubmission struct {
	InsurerCode   string           `json:"insurer_code"`
	ProviderName  string           `json:"provider_name"`
	EncounterDate string           `json:"encounter_date"`
	Specialty     string           `json:"specialty"`
	PriorityLevel int              `json:"priority_level"`
	TotalAmount   decimal.Decimal  `json:"total_amount"`
	Items         []ItemSubmission `json:"items"`
}

// ItemSubmission is one billed line item in a submission.
type ItemSubmission struct {
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
}

// Service handles claim submission.
type Service struct {
	storage    service.Storage
	calc       *costing.Calculator
	dispatcher service.Dispatcher
	now        func() time.Time
}

// NewService creates an intake service.
func NewService(storage service.Storage, calc *costing.Calculator, dispatcher service.Dispatcher) *Service {
	return &Service{
		storage:    storage,
		calc:       calc,
		dispatcher: dispatcher,
		now:        time.Now,
	}
}

// Submit validates and persists one claim, then enqueues its batching job.
// Validation failures come back as common.ValidationErrors; nothing is
// persisted in that case.
func (s *Service) Submit(ctx context.Context, sub *ClaimSubmission) (*model.Claim, error) {
	verrs, encounterDate := validate(sub)

	var insurer *model.Insurer
	if sub.InsurerCode != "" {
		var err error
		insurer, err = s.storage.GetInsurerByCode(ctx, sub.InsurerCode)
		if err != nil {
			if !errors.Is(err, common.ErrInsurerNotFound) {
				return nil, fmt.Errorf("failed to look up insurer: %w", err)
			}
			verrs.Add("insurer_code", fmt.Sprintf("unknown insurer code %q", sub.InsurerCode))
		}
	}

	if verrs.HasErrors() {
		return nil, verrs
	}

	claim := &model.Claim{
		ID:            uuid.NewString(),
		InsurerCode:   sub.InsurerCode,
		ProviderName:  sub.ProviderName,
		EncounterDate: encounterDate,
		Specialty:     model.Specialty(sub.Specialty),
		PriorityLevel: sub.PriorityLevel,
		TotalAmount:   sub.TotalAmount,
		CreatedAt:     s.now(),
	}
	for _, item := range sub.Items {
		claim.Items = append(claim.Items, model.LineItem{
			Name:      item.Name,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
		})
	}

	if err := s.storage.SaveClaim(ctx, claim); err != nil {
		return nil, fmt.Errorf("failed to persist claim: %w", err)
	}

	// Base cost is computed once, here, and read forever after.
	claim.BaseProcessingCost = s.calc.BaseProcessingCost(claim, insurer)
	if err := s.storage.UpdateBaseProcessingCost(ctx, claim.ID, claim.BaseProcessingCost); err != nil {
		return nil, fmt.Errorf("failed to stamp base processing cost: %w", err)
	}

	job := service.BatchJob{
		Group: service.ClaimGroup{
			InsurerCode:  claim.InsurerCode,
			ProviderName: claim.ProviderName,
		},
		TriggerClaimID: claim.ID,
	}
	if err := s.dispatcher.Enqueue(job); err != nil {
		// The claim is saved; a rebatch pass will pick it up.
		common.LogError(err, "Failed to enqueue batching job", common.Fields{
			"claim_id": claim.ID,
		})
	} else {
		slog.Debug("Enqueued batching job",
			"claim_id", claim.ID,
			"insurer_code", claim.InsurerCode,
			"provider", claim.ProviderName)
	}

	return claim, nil
}

// validate applies the intake constraints and parses the encounter date.
func validate(sub *ClaimSubmission) (common.ValidationErrors, time.Time) {
	verrs := make(common.ValidationErrors)
	var encounterDate time.Time

	if sub.InsurerCode == "" {
		verrs.Add("insurer_code", "insurer code is required")
	}
	if sub.ProviderName == "" {
		verrs.Add("provider_name", "provider name is required")
	}

	if sub.EncounterDate == "" {
		verrs.Add("encounter_date", "encounter date is required")
	} else {
		var err error
		encounterDate, err = time.Parse(encounterDateLayout, sub.EncounterDate)
		if err != nil {
			verrs.Add("encounter_date", "encounter date must be formatted YYYY-MM-DD")
		}
	}

	if !model.ValidSpecialty(model.Specialty(sub.Specialty)) {
		verrs.Add("specialty", "specialty must be one of Cardiology, Orthopedics, Dermatology, Pediatrics, Neurology")
	}
	if sub.PriorityLevel < 1 || sub.PriorityLevel > 5 {
		verrs.Add("priority_level", "priority level must be between 1 and 5")
	}
	if sub.TotalAmount.IsNegative() {
		verrs.Add("total_amount", "total amount must not be negative")
	}

	if len(sub.Items) == 0 {
		verrs.Add("items", "at least one line item is required")
	}
	itemsTotal := decimal.Zero
	for i, item := range sub.Items {
		if item.Name == "" {
			verrs.Add(fmt.Sprintf("items.%d.name", i), "item name is required")
		}
		if item.UnitPrice.IsNegative() {
			verrs.Add(fmt.Sprintf("items.%d.unit_price", i), "unit price must not be negative")
		}
		if item.Quantity < 1 {
			verrs.Add(fmt.Sprintf("items.%d.quantity", i), "quantity must be at least 1")
		}
		itemsTotal = itemsTotal.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}

	if len(sub.Items) > 0 && !itemsTotal.Equal(sub.TotalAmount) {
		verrs.Add("total_amount", "the sum of item amounts is not equal to the total claim amount")
	}

	return verrs, encounterDate
}
