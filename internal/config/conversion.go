// Package config defines conversion utilities for configuration objects.
package config

import (
	"fmt"

	"github.com/iwvelando/mortgage-forecast/pkg/amortization"
	"github.com/iwvelando/mortgage-forecast/pkg/constants"
	"github.com/iwvelando/mortgage-forecast/pkg/validation"
)

// ToLoanTerms converts the configured loan into engine terms.
func (loan Loan) ToLoanTerms() amortization.LoanTerms {
	return amortization.LoanTerms{
		Principal:         loan.Principal,
		AnnualRatePercent: loan.Rate,
		TermYears:         loan.Term,
		StartYear:         loan.StartYear,
	}
}

// ToExpenseProfile converts the configured expenses into an engine profile.
func (expenses Expenses) ToExpenseProfile() amortization.ExpenseProfile {
	return amortization.ExpenseProfile{
		AnnualPropertyTax: expenses.PropertyTax,
		AnnualInsurance:   expenses.Insurance,
	}
}

// ToEvent converts one configured event into its engine variant.
func (event EventConfig) ToEvent() (amortization.Event, error) {
	if err := validation.ValidateEventType(event.Type); err != nil {
		return nil, err
	}

	switch event.Type {
	case constants.EventTypeRate:
		return amortization.RateChange{Year: event.Year, NewRatePercent: event.Rate}, nil
	default:
		return amortization.LumpSumPayment{Year: event.Year, Amount: event.Amount}, nil
	}
}

// FromEvent converts an engine event back into its configuration form.
func FromEvent(e amortization.Event) EventConfig {
	switch ev := e.(type) {
	case amortization.RateChange:
		return EventConfig{Type: constants.EventTypeRate, Year: ev.Year, Rate: ev.NewRatePercent}
	case amortization.LumpSumPayment:
		return EventConfig{Type: constants.EventTypeLumpSum, Year: ev.Year, Amount: ev.Amount}
	}
	return EventConfig{}
}

// Inputs converts the configuration into engine inputs, rejecting events that
// the engine would refuse, e.g. zero or negative lump sums.
func (conf *Configuration) Inputs() (amortization.LoanTerms, amortization.ExpenseProfile, []amortization.Event, error) {
	loan := conf.Loan.ToLoanTerms()
	expenses := conf.Expenses.ToExpenseProfile()

	events := make([]amortization.Event, 0, len(conf.Events))
	for i, eventConf := range conf.Events {
		event, err := eventConf.ToEvent()
		if err != nil {
			return loan, expenses, nil, fmt.Errorf("event %d: %w", i, err)
		}
		if err := amortization.ValidateEvent(event, loan.TermYears); err != nil {
			return loan, expenses, nil, fmt.Errorf("event %d: %w", i, err)
		}
		events = append(events, event)
	}

	if err := amortization.Validate(loan, expenses, events); err != nil {
		return loan, expenses, nil, err
	}

	return loan, expenses, events, nil
}
