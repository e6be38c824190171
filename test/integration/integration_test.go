package integration

import (
	"bytes"
	"strings"
	"testing"

	"github.com/iwvelando/mortgage-forecast/internal/config"
	"github.com/iwvelando/mortgage-forecast/internal/schedule"
	"github.com/iwvelando/mortgage-forecast/pkg/amortization"
	"github.com/iwvelando/mortgage-forecast/pkg/mathutil"
	"github.com/iwvelando/mortgage-forecast/pkg/output"
	"github.com/iwvelando/mortgage-forecast/pkg/testutil"
	"go.uber.org/zap"
)

const exampleConfig = "../../config.yaml.example"

func loadExampleSchedule(t *testing.T) *amortization.Schedule {
	t.Helper()

	conf, err := config.LoadConfiguration(exampleConfig)
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}

	result, err := schedule.GetSchedule(zap.NewNop(), *conf)
	if err != nil {
		t.Fatalf("GetSchedule() error = %v", err)
	}
	return result
}

// TestExampleBaseline checks the example plan against values captured from a
// known good run.
func TestExampleBaseline(t *testing.T) {
	result := loadExampleSchedule(t)

	if len(result.Records) != 30 {
		t.Fatalf("Expected 30 records, got %d", len(result.Records))
	}

	baseline := []struct {
		year      int
		principal float64
		rate      float64
		payment   float64
	}{
		{1, 1300000.00, 4.75, 6781.42},
		{2, 1280373.02, 4.25, 6406.67},
		{4, 1234489.83, 4.25, 6406.67},
		{5, 1160075.56, 4.25, 6149.29},
		{9, 1055698.97, 4.25, 6149.29},
		{10, 926774.65, 5.5, 6209.11},
		{30, 106087.19, 5.5, 6209.11},
	}

	for _, expected := range baseline {
		record := testutil.FindPeriod(result.Records, expected.year)
		if record == nil {
			t.Errorf("Missing year %d", expected.year)
			continue
		}
		if !mathutil.WithinTolerance(record.PrincipalBalance, expected.principal, 0.01) {
			t.Errorf("Year %d: principal %.2f, expected %.2f", expected.year, record.PrincipalBalance, expected.principal)
		}
		if record.RatePercent != expected.rate {
			t.Errorf("Year %d: rate %.3f, expected %.3f", expected.year, record.RatePercent, expected.rate)
		}
		if !mathutil.WithinTolerance(record.MonthlyPayment, expected.payment, 0.01) {
			t.Errorf("Year %d: payment %.2f, expected %.2f", expected.year, record.MonthlyPayment, expected.payment)
		}
		if !mathutil.WithinTolerance(record.TotalMonthlyCost, record.MonthlyPayment+1500, 1e-6) {
			t.Errorf("Year %d: total cost %.2f does not include 1500 of monthly expenses", expected.year, record.TotalMonthlyCost)
		}
	}

	summary := result.Summary
	if summary.RateChanges != 2 || summary.LumpSums != 2 {
		t.Errorf("Expected 2 rate changes and 2 lump sums, got %+v", summary)
	}
	if !mathutil.WithinTolerance(summary.TotalLumpSums, 150000, 1e-6) {
		t.Errorf("Expected 150000 in lump sums, got %.2f", summary.TotalLumpSums)
	}
	if !mathutil.WithinTolerance(summary.TotalExpenses, 30*18000, 1e-6) {
		t.Errorf("Expected %.2f in expenses, got %.2f", float64(30*18000), summary.TotalExpenses)
	}
	if !mathutil.WithinTolerance(summary.EndingBalance, 37412.61, 0.01) {
		t.Errorf("Expected ending balance 37412.61, got %.2f", summary.EndingBalance)
	}
}

// TestExampleBalanceMonotonic checks that the balance only ever falls when no
// event raises it.
func TestExampleBalanceMonotonic(t *testing.T) {
	result := loadExampleSchedule(t)

	for i := 1; i < len(result.Records); i++ {
		prev := result.Records[i-1]
		curr := result.Records[i]
		if curr.PrincipalBalance >= prev.PrincipalBalance {
			t.Errorf("Year %d balance %.2f did not fall from year %d balance %.2f",
				curr.Year, curr.PrincipalBalance, prev.Year, prev.PrincipalBalance)
		}
	}
}

func TestExampleNotes(t *testing.T) {
	result := loadExampleSchedule(t)

	expected := map[int][]string{
		2:  {"Rate changed to 4.25%"},
		5:  {"Principal reduced by 50000.00"},
		10: {"Rate changed to 5.50%", "Principal reduced by 100000.00"},
	}
	if len(result.Notes) != len(expected) {
		t.Fatalf("Expected notes for %d years, got %v", len(expected), result.Notes)
	}
	for year, notes := range expected {
		got := result.Notes[year]
		if strings.Join(got, "|") != strings.Join(notes, "|") {
			t.Errorf("Year %d notes %v, expected %v", year, got, notes)
		}
	}
}

func TestExampleCSVOutput(t *testing.T) {
	result := loadExampleSchedule(t)

	var buf bytes.Buffer
	output.WriteCsv(&buf, result)
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")

	if len(lines) != 31 {
		t.Fatalf("Expected header plus 30 rows, got %d lines", len(lines))
	}
	if lines[1] != `"1","2024","1300000.00","4.750","6781.42","1250.00","250.00","8281.42",""` {
		t.Errorf("Unexpected first row %s", lines[1])
	}
	if !strings.HasPrefix(lines[30], `"30","2053",`) {
		t.Errorf("Unexpected final row %s", lines[30])
	}
	if !strings.HasSuffix(lines[10], `"Rate changed to 5.50%,Principal reduced by 100000.00"`) {
		t.Errorf("Year 10 row missing notes: %s", lines[10])
	}
}

func TestExamplePrettyOutput(t *testing.T) {
	result := loadExampleSchedule(t)

	var buf bytes.Buffer
	output.WritePretty(&buf, result)
	text := buf.String()

	for _, fragment := range []string{
		"--- Schedule for $1,300,000.00 at 4.750% over 30 years ---",
		"| 2024 | $1,300,000.00 | 4.750% | $6,781.42 |",
		"Lump sums (2): $150,000.00",
		"Rate changes: 2",
		"Balance after final year: $37,412.61",
	} {
		if !strings.Contains(text, fragment) {
			t.Errorf("Pretty output missing %q", fragment)
		}
	}
}

func TestExampleWarnings(t *testing.T) {
	conf, err := config.LoadConfiguration(exampleConfig)
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}

	warnings := conf.ValidateConfiguration()
	if len(warnings) != 1 || !strings.Contains(warnings[0], "Year 10") {
		t.Errorf("Expected only the year 10 mixed event warning, got %v", warnings)
	}
}
