package amortization

import (
	"fmt"
	"sort"
)

// Event is a mid-life change to a loan keyed to a 1-based year of the term.
// The set of implementations is closed: RateChange and LumpSumPayment.
type Event interface {
	EventYear() int
	Describe() string
	isEvent()
}

// RateChange sets the annual rate in effect from the start of Year onward.
type RateChange struct {
	Year           int
	NewRatePercent float64
}

// LumpSumPayment subtracts Amount from the principal at the start of Year.
type LumpSumPayment struct {
	Year   int
	Amount float64
}

// EventYear returns the year the rate change takes effect.
func (e RateChange) EventYear() int { return e.Year }

// Describe returns a human readable summary of the rate change.
func (e RateChange) Describe() string {
	return fmt.Sprintf("Rate changed to %.2f%%", e.NewRatePercent)
}

func (RateChange) isEvent() {}

// EventYear returns the year the lump sum is applied.
func (e LumpSumPayment) EventYear() int { return e.Year }

// Describe returns a human readable summary of the lump sum.
func (e LumpSumPayment) Describe() string {
	return fmt.Sprintf("Principal reduced by %.2f", e.Amount)
}

func (LumpSumPayment) isEvent() {}

// ValidateEvent checks a single event against a loan term of termYears. Only
// RateChange and LumpSumPayment values are accepted; pointers to them are not.
func ValidateEvent(e Event, termYears int) error {
	switch ev := e.(type) {
	case nil:
		return fmt.Errorf("nil event: %w", ErrInvalidEvent)
	case RateChange:
		if err := validateEventYear(ev.Year, termYears); err != nil {
			return err
		}
		if ev.NewRatePercent < 0 {
			return fmt.Errorf("year %d rate change to %.4f%%: %w", ev.Year, ev.NewRatePercent, ErrInvalidRate)
		}
	case LumpSumPayment:
		if err := validateEventYear(ev.Year, termYears); err != nil {
			return err
		}
		if ev.Amount <= 0 {
			return fmt.Errorf("year %d lump sum of %.2f must be positive: %w", ev.Year, ev.Amount, ErrInvalidEvent)
		}
	default:
		return fmt.Errorf("unsupported event type %T: %w", e, ErrInvalidEvent)
	}
	return nil
}

func validateEventYear(year, termYears int) error {
	if year < 1 || year > termYears {
		return fmt.Errorf("event year %d outside of term 1..%d: %w", year, termYears, ErrInvalidEvent)
	}
	return nil
}

// sortedByYear returns a copy of events stably sorted by year; events sharing
// a year keep the caller's relative order.
func sortedByYear(events []Event) []Event {
	sorted := make([]Event, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].EventYear() < sorted[j].EventYear()
	})
	return sorted
}
