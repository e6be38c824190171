package config

import (
	"fmt"

	"github.com/iwvelando/mortgage-forecast/pkg/amortization"
	"github.com/iwvelando/mortgage-forecast/pkg/constants"
	"github.com/iwvelando/mortgage-forecast/pkg/mathutil"
)

// ValidateConfiguration performs general validation of the configuration and
// returns warnings for plans that compute but probably do not say what the
// author meant. Invalid plans are reported by Inputs instead.
func (conf *Configuration) ValidateConfiguration() []string {
	warnings := conf.planWarnings()

	loan, expenses, events, err := conf.Inputs()
	if err != nil {
		return warnings
	}
	records, err := amortization.ComputeSchedule(loan, expenses, events)
	if err != nil {
		return warnings
	}
	return append(warnings, balanceWarnings(records)...)
}

// ScheduleWarnings returns the same warnings as ValidateConfiguration, reading
// balances from records already computed for this plan.
func (conf *Configuration) ScheduleWarnings(records []amortization.PeriodRecord) []string {
	return append(conf.planWarnings(), balanceWarnings(records)...)
}

func (conf *Configuration) planWarnings() []string {
	var warnings []string

	if conf.Loan.Rate == 0 && conf.Loan.Principal > 0 {
		warnings = append(warnings, "Loan has a 0% initial rate - payments will amortize principal only")
	}

	// Same-year events are applied in the order listed; mixing types in one
	// year makes the result order dependent.
	types := make(map[int]map[string]bool)
	for _, event := range conf.Events {
		if types[event.Year] == nil {
			types[event.Year] = make(map[string]bool)
		}
		types[event.Year][event.Type] = true
	}
	for year := 1; year <= conf.Loan.Term; year++ {
		if types[year][constants.EventTypeRate] && types[year][constants.EventTypeLumpSum] {
			warnings = append(warnings, fmt.Sprintf("Year %d has both rate changes and lump sums - they are applied in the order listed", year))
		}
	}

	return warnings
}

func balanceWarnings(records []amortization.PeriodRecord) []string {
	for _, record := range records {
		if mathutil.IsNegative(record.PrincipalBalance) {
			return []string{fmt.Sprintf("Lump sums exceed the remaining principal in year %d (balance %.2f)",
				record.Year, record.PrincipalBalance)}
		}
	}
	return nil
}
