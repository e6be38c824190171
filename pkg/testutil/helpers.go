// Package testutil provides common utility functions for testing.
package testutil

import (
	"github.com/iwvelando/mortgage-forecast/pkg/amortization"
)

// FindPeriod finds the record for a 1-based schedule year.
// Returns a pointer to the record if found, nil otherwise.
func FindPeriod(records []amortization.PeriodRecord, year int) *amortization.PeriodRecord {
	for i := range records {
		if records[i].Year == year {
			return &records[i]
		}
	}
	return nil
}
