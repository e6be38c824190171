package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/iwvelando/mortgage-forecast/internal/config"
	"github.com/iwvelando/mortgage-forecast/internal/logging"
	"github.com/iwvelando/mortgage-forecast/internal/schedule"
	"github.com/iwvelando/mortgage-forecast/pkg/constants"
	"github.com/iwvelando/mortgage-forecast/pkg/output"
	"github.com/iwvelando/mortgage-forecast/pkg/validation"
	"go.uber.org/zap"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

// run executes the command line tool and returns its exit status. The
// schedule goes to stdout; logs go wherever the plan's logging settings say.
func run(args []string, stdout io.Writer) int {
	flags := flag.NewFlagSet("mortgage-forecast", flag.ContinueOnError)
	configLocation := flags.String("config", constants.DefaultConfigFile, "path to configuration file")
	outputFormatFlag := flags.String("output-format", "", "type of output override: pretty, csv")
	logLevel := flags.String("log-level", "", "log level override (debug, info, warn, error)")
	if err := flags.Parse(args); err != nil {
		return 2
	}

	conf, err := config.LoadConfiguration(*configLocation)
	if err != nil {
		_, _ = fmt.Fprintf(stdout, "{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to load configuration at %s\", \"error\": \"%v\"}\n", *configLocation, err)
		return 1
	}

	logger, err := logging.NewLogger(conf.Logging, *logLevel)
	if err != nil {
		_, _ = fmt.Fprintf(stdout, "{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to initialize logger\", \"error\": \"%v\"}\n", err)
		return 1
	}
	defer func() {
		_ = logger.Sync()
	}()

	// CLI override takes precedence over config
	outputFormat := conf.Output.Format
	if *outputFormatFlag != "" {
		outputFormat = *outputFormatFlag
	}
	if outputFormat == "" {
		outputFormat = constants.OutputFormatPretty
	}

	if err := validation.ValidateOutputFormat(outputFormat); err != nil {
		logger.Error(err.Error(),
			zap.String("op", "main"),
		)
		return 1
	}

	result, err := schedule.GetSchedule(logger, *conf)
	if err != nil {
		logger.Error("failed to compute schedule",
			zap.String("op", "main"),
			zap.Error(err),
		)
		return 1
	}

	for _, warning := range conf.ScheduleWarnings(result.Records) {
		logger.Warn("Configuration warning: "+warning,
			zap.String("op", "main"),
		)
	}

	switch outputFormat {
	case constants.OutputFormatPretty:
		output.WritePretty(stdout, result)
	case constants.OutputFormatCSV:
		output.WriteCsv(stdout, result)
	}
	return 0
}
