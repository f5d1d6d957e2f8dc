package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// batchIDDateLayout renders dates inside batch identifiers, e.g. "Jul 18 2024".
const batchIDDateLayout = "Jan 2 2006"

// BatchID renders the deterministic batch identifier for a provider and date.
func BatchID(providerName string, date time.Time) string {
	return fmt.Sprintf("%s %s", providerName, date.Format(batchIDDateLayout))
}

// DayBatch accumulates the claims assigned to one provider and processing
// date during a single engine run. It is never persisted as its own row;
// commit stamps its identity onto the member claims.
type DayBatch struct {
	Date      time.Time
	ID        string
	ClaimIDs  []string
	TotalCost decimal.Decimal
}

// ClaimCount returns the number of claims currently in the batch.
func (b *DayBatch) ClaimCount() int {
	return len(b.ClaimIDs)
}
