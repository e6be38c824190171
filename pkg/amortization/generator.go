package amortization

import (
	"fmt"

	"github.com/iwvelando/mortgage-forecast/pkg/constants"
	"go.uber.org/zap"
)

// Schedule bundles the computed records with the inputs and derived totals.
type Schedule struct {
	Loan     LoanTerms
	Expenses ExpenseProfile
	Records  []PeriodRecord
	Notes    map[int][]string
	Summary  Summary
}

// Summary holds lifetime totals for a schedule.
type Summary struct {
	TotalMortgagePaid float64 `json:"totalMortgagePaid"`
	TotalInterest     float64 `json:"totalInterest"`
	TotalLumpSums     float64 `json:"totalLumpSums"`
	TotalExpenses     float64 `json:"totalExpenses"`
	EndingBalance     float64 `json:"endingBalance"`
	RateChanges       int     `json:"rateChanges"`
	LumpSums          int     `json:"lumpSums"`
}

// Generator wraps ComputeSchedule with logging and post-processing.
type Generator struct {
	logger *zap.Logger
}

// NewGenerator creates a new generator instance.
func NewGenerator(logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{logger: logger}
}

// Generate computes the schedule along with per-year notes and a summary.
func (g *Generator) Generate(loan LoanTerms, expenses ExpenseProfile, events []Event) (*Schedule, error) {
	records, err := ComputeSchedule(loan, expenses, events)
	if err != nil {
		return nil, err
	}

	for _, e := range sortedByYear(events) {
		g.logger.Debug(fmt.Sprintf("year %d (%d): %s", e.EventYear(), CalendarYear(loan, e.EventYear()), e.Describe()),
			zap.String("op", "amortization.Generate"),
		)
	}

	schedule := &Schedule{
		Loan:     loan,
		Expenses: expenses,
		Records:  records,
		Notes:    Notes(events),
		Summary:  Summarize(records, events),
	}

	g.logger.Debug("schedule computed",
		zap.String("op", "amortization.Generate"),
		zap.Int("years", len(records)),
		zap.Int("events", len(events)),
		zap.Float64("endingBalance", schedule.Summary.EndingBalance),
	)

	return schedule, nil
}

// Notes groups event descriptions by the year they apply to, in the order
// they are applied.
func Notes(events []Event) map[int][]string {
	notes := make(map[int][]string)
	for _, e := range sortedByYear(events) {
		notes[e.EventYear()] = append(notes[e.EventYear()], e.Describe())
	}
	return notes
}

// Summarize totals a computed schedule. EndingBalance is the principal left
// after the final year is amortized.
func Summarize(records []PeriodRecord, events []Event) Summary {
	var summary Summary
	for _, record := range records {
		summary.TotalMortgagePaid += record.MonthlyPayment * constants.MonthsPerYear
		summary.TotalInterest += record.PrincipalBalance * (record.RatePercent / constants.PercentageMultiplier)
		summary.TotalExpenses += (record.MonthlyPropertyTax + record.MonthlyInsurance) * constants.MonthsPerYear
	}

	if len(records) > 0 {
		last := records[len(records)-1]
		summary.EndingBalance = Advance(State{
			Principal:      last.PrincipalBalance,
			RatePercent:    last.RatePercent,
			MonthlyPayment: last.MonthlyPayment,
		}).Principal
	}

	for _, e := range events {
		switch ev := e.(type) {
		case RateChange:
			summary.RateChanges++
		case LumpSumPayment:
			summary.LumpSums++
			summary.TotalLumpSums += ev.Amount
		}
	}

	return summary
}
