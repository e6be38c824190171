// Package amortization computes year-by-year mortgage schedules for a loan
// subject to rate changes and lump-sum principal payments.
package amortization

import (
	"errors"
	"fmt"
	"math"

	"github.com/iwvelando/mortgage-forecast/pkg/constants"
)

var (
	// ErrInvalidTerm is returned when a loan term is shorter than one year.
	ErrInvalidTerm = errors.New("loan term must be at least one year")
	// ErrInvalidPrincipal is returned when the starting principal is not positive.
	ErrInvalidPrincipal = errors.New("loan principal must be positive")
	// ErrInvalidRate is returned for negative interest rates.
	ErrInvalidRate = errors.New("interest rate must not be negative")
	// ErrInvalidExpense is returned for negative property tax or insurance.
	ErrInvalidExpense = errors.New("annual expenses must not be negative")
	// ErrInvalidEvent is returned for events outside the term or with
	// non-positive lump sums.
	ErrInvalidEvent = errors.New("invalid schedule event")
)

// LoanTerms describes the loan as originated. StartYear only labels output.
type LoanTerms struct {
	Principal         float64
	AnnualRatePercent float64
	TermYears         int
	StartYear         int
}

// ExpenseProfile holds the annual non-loan costs folded into the monthly total.
type ExpenseProfile struct {
	AnnualPropertyTax float64
	AnnualInsurance   float64
}

// MonthlyPropertyTax returns the property tax spread evenly over twelve months.
func (e ExpenseProfile) MonthlyPropertyTax() float64 {
	return e.AnnualPropertyTax / constants.MonthsPerYear
}

// MonthlyInsurance returns the insurance premium spread evenly over twelve months.
func (e ExpenseProfile) MonthlyInsurance() float64 {
	return e.AnnualInsurance / constants.MonthsPerYear
}

// PeriodRecord is one year of the schedule. PrincipalBalance, RatePercent and
// MonthlyPayment reflect every event applied at the start of that year.
type PeriodRecord struct {
	Year               int     `json:"year"`
	PrincipalBalance   float64 `json:"principalBalance"`
	RatePercent        float64 `json:"ratePercent"`
	MonthlyPayment     float64 `json:"monthlyPayment"`
	MonthlyPropertyTax float64 `json:"monthlyPropertyTax"`
	MonthlyInsurance   float64 `json:"monthlyInsurance"`
	TotalMonthlyCost   float64 `json:"totalMonthlyCost"`
}

// State is the accumulator threaded from one year to the next.
type State struct {
	Principal      float64
	RatePercent    float64
	MonthlyPayment float64
}

// MonthlyPayment calculates the fixed monthly payment that amortizes principal
// over remainingYears at annualRatePercent.
func MonthlyPayment(principal, annualRatePercent float64, remainingYears int) float64 {
	if remainingYears <= 0 {
		return 0
	}

	numPayments := float64(remainingYears * constants.MonthsPerYear)
	monthlyRate := annualRatePercent / constants.PercentageMultiplier / constants.MonthsPerYear
	if monthlyRate == 0 {
		return principal / numPayments
	}

	power := math.Pow(1+monthlyRate, numPayments)
	return principal * monthlyRate * power / (power - 1)
}

// InitialState returns the state entering year 1.
func InitialState(loan LoanTerms) State {
	return State{
		Principal:      loan.Principal,
		RatePercent:    loan.AnnualRatePercent,
		MonthlyPayment: MonthlyPayment(loan.Principal, loan.AnnualRatePercent, loan.TermYears),
	}
}

// ApplyEvent applies e to s and re-derives the payment over remainingYears.
func ApplyEvent(s State, e Event, remainingYears int) State {
	switch ev := e.(type) {
	case RateChange:
		s.RatePercent = ev.NewRatePercent
	case LumpSumPayment:
		s.Principal -= ev.Amount
	default:
		panic(fmt.Sprintf("amortization: unhandled event type %T", e))
	}
	s.MonthlyPayment = MonthlyPayment(s.Principal, s.RatePercent, remainingYears)
	return s
}

// Advance amortizes one year of payments at a simple annual interest rate and
// returns the state entering the following year.
func Advance(s State) State {
	yearlyInterest := s.Principal * (s.RatePercent / constants.PercentageMultiplier)
	yearlyPrincipalPaid := s.MonthlyPayment*constants.MonthsPerYear - yearlyInterest
	s.Principal -= yearlyPrincipalPaid
	return s
}

// Record builds the PeriodRecord for year from the post-event state.
func Record(year int, s State, expenses ExpenseProfile) PeriodRecord {
	tax := expenses.MonthlyPropertyTax()
	insurance := expenses.MonthlyInsurance()
	return PeriodRecord{
		Year:               year,
		PrincipalBalance:   s.Principal,
		RatePercent:        s.RatePercent,
		MonthlyPayment:     s.MonthlyPayment,
		MonthlyPropertyTax: tax,
		MonthlyInsurance:   insurance,
		TotalMonthlyCost:   s.MonthlyPayment + tax + insurance,
	}
}

// Validate checks the loan, expenses and events before a schedule is computed.
func Validate(loan LoanTerms, expenses ExpenseProfile, events []Event) error {
	if loan.TermYears < 1 {
		return fmt.Errorf("term of %d years: %w", loan.TermYears, ErrInvalidTerm)
	}
	if loan.Principal <= 0 {
		return fmt.Errorf("principal of %.2f: %w", loan.Principal, ErrInvalidPrincipal)
	}
	if loan.AnnualRatePercent < 0 {
		return fmt.Errorf("initial rate of %.4f%%: %w", loan.AnnualRatePercent, ErrInvalidRate)
	}
	if expenses.AnnualPropertyTax < 0 || expenses.AnnualInsurance < 0 {
		return fmt.Errorf("property tax %.2f, insurance %.2f: %w",
			expenses.AnnualPropertyTax, expenses.AnnualInsurance, ErrInvalidExpense)
	}
	for i, e := range events {
		if err := ValidateEvent(e, loan.TermYears); err != nil {
			return fmt.Errorf("event %d: %w", i, err)
		}
	}
	return nil
}

// ComputeSchedule returns one PeriodRecord per year of the loan term. Events
// are applied in year order, preserving the caller's order within a year, and
// the payment is recomputed after each one over the remaining original term.
// The events slice is not modified.
func ComputeSchedule(loan LoanTerms, expenses ExpenseProfile, events []Event) ([]PeriodRecord, error) {
	if err := Validate(loan, expenses, events); err != nil {
		return nil, err
	}

	sorted := sortedByYear(events)
	records := make([]PeriodRecord, 0, loan.TermYears)
	state := InitialState(loan)
	next := 0

	for year := 1; year <= loan.TermYears; year++ {
		remainingYears := loan.TermYears - year + 1
		for ; next < len(sorted) && sorted[next].EventYear() == year; next++ {
			state = ApplyEvent(state, sorted[next], remainingYears)
		}
		records = append(records, Record(year, state, expenses))
		state = Advance(state)
	}

	return records, nil
}

// CalendarYear maps a 1-based schedule year to the calendar year it falls in.
func CalendarYear(loan LoanTerms, year int) int {
	return loan.StartYear + year - 1
}
