// Package output provides utilities for formatting and displaying schedules.
package output

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/iwvelando/mortgage-forecast/pkg/amortization"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// WritePretty writes a human-readable rather than machine-readable table for
// schedule to w.
func WritePretty(w io.Writer, schedule *amortization.Schedule) {
	if schedule == nil {
		return
	}

	p := message.NewPrinter(language.English)
	loan := schedule.Loan
	_, _ = p.Fprintf(w, "--- Schedule for $%.2f at %.3f%% over %d years ---\n",
		loan.Principal, loan.AnnualRatePercent, loan.TermYears)
	_, _ = fmt.Fprintf(w, "Year | Calendar | Principal | Rate | Payment | Tax | Insurance | Total | Notes\n")
	_, _ = fmt.Fprintf(w, "____ | ________ | _________ | ____ | _______ | ___ | _________ | _____ | _____\n")
	for _, record := range schedule.Records {
		_, _ = p.Fprintf(w, "%4d | %s | $%.2f | %.3f%% | $%.2f | $%.2f | $%.2f | $%.2f | %s\n",
			record.Year,
			strconv.Itoa(amortization.CalendarYear(loan, record.Year)),
			record.PrincipalBalance,
			record.RatePercent,
			record.MonthlyPayment,
			record.MonthlyPropertyTax,
			record.MonthlyInsurance,
			record.TotalMonthlyCost,
			strings.Join(schedule.Notes[record.Year], ","),
		)
	}

	summary := schedule.Summary
	_, _ = fmt.Fprintf(w, "\n")
	_, _ = p.Fprintf(w, "Total mortgage payments: $%.2f\n", summary.TotalMortgagePaid)
	_, _ = p.Fprintf(w, "Total interest: $%.2f\n", summary.TotalInterest)
	if summary.LumpSums > 0 {
		_, _ = p.Fprintf(w, "Lump sums (%d): $%.2f\n", summary.LumpSums, summary.TotalLumpSums)
	}
	if summary.RateChanges > 0 {
		_, _ = p.Fprintf(w, "Rate changes: %d\n", summary.RateChanges)
	}
	_, _ = p.Fprintf(w, "Property tax and insurance: $%.2f\n", summary.TotalExpenses)
	_, _ = p.Fprintf(w, "Balance after final year: $%.2f\n", summary.EndingBalance)
}

// CsvString returns the CSV rendering of schedule.
func CsvString(schedule *amortization.Schedule) string {
	var buf bytes.Buffer
	WriteCsv(&buf, schedule)
	return buf.String()
}

// WriteCsv writes schedule to w as quoted CSV, one row per year.
func WriteCsv(w io.Writer, schedule *amortization.Schedule) {
	_, _ = fmt.Fprintf(w, `"year","calendar year","principal balance","rate","monthly payment","monthly property tax","monthly insurance","total monthly cost","notes"`)
	_, _ = fmt.Fprintf(w, "\n")
	if schedule == nil {
		return
	}
	for _, record := range schedule.Records {
		_, _ = fmt.Fprintf(w, `"%d","%d","%.2f","%.3f","%.2f","%.2f","%.2f","%.2f","%s"`,
			record.Year,
			amortization.CalendarYear(schedule.Loan, record.Year),
			record.PrincipalBalance,
			record.RatePercent,
			record.MonthlyPayment,
			record.MonthlyPropertyTax,
			record.MonthlyInsurance,
			record.TotalMonthlyCost,
			strings.Join(schedule.Notes[record.Year], ","),
		)
		_, _ = fmt.Fprintf(w, "\n")
	}
}
