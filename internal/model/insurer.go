package model

import "github.com/shopspring/decimal"

// DatePreference selects which claim date an insurer batches by.
type DatePreference string

// Supported date preferences.
const (
	PreferSubmissionDate DatePreference = "submission_date"
	PreferEncounterDate  DatePreference = "encounter_date"
)

// Insurer holds the batching policy for one insurer. Insurers are
// configuration data: the batching flow reads them but never writes.
type Insurer struct {
	Name                    string
	Code                    string
	Email                   string
	DatePreference          DatePreference
	Specialty               Specialty
	DailyProcessingCapacity decimal.Decimal
	MinBatchSize            int
	MaxBatchSize            int
}
