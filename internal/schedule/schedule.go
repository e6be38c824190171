// Package schedule connects a loaded plan configuration to the amortization
// engine.
package schedule

import (
	"fmt"

	"github.com/iwvelando/mortgage-forecast/internal/config"
	"github.com/iwvelando/mortgage-forecast/pkg/amortization"
	"go.uber.org/zap"
)

// GetSchedule converts the configured plan and computes its schedule.
func GetSchedule(logger *zap.Logger, conf config.Configuration) (*amortization.Schedule, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	loan, expenses, events, err := conf.Inputs()
	if err != nil {
		return nil, fmt.Errorf("invalid plan: %w", err)
	}

	logger.Debug(fmt.Sprintf("computing %d-year schedule for %.2f at %.3f%% with %d events",
		loan.TermYears, loan.Principal, loan.AnnualRatePercent, len(events)),
		zap.String("op", "schedule.GetSchedule"),
	)

	return amortization.NewGenerator(logger).Generate(loan, expenses, events)
}
