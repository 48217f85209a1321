package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/iwvelando/solarfarm-site/internal/config"
	"github.com/iwvelando/solarfarm-site/internal/logging"
	"github.com/iwvelando/solarfarm-site/pkg/constants"
	"github.com/iwvelando/solarfarm-site/pkg/finance"
	"github.com/iwvelando/solarfarm-site/pkg/output"
	"github.com/iwvelando/solarfarm-site/pkg/validation"
	"go.uber.org/zap"
)

type options struct {
	capacity     string
	rate         float64
	opCost       float64
	investment   string
	location     string
	outputFormat string
}

func main() {
	var opts options
	configLocation := flag.String("config", constants.DefaultConfigFile, "path to configuration file (defaults apply when missing)")
	flag.StringVar(&opts.capacity, "capacity", string(finance.Capacity1MW), "farm size: 1MW, 5MW or 10MW")
	flag.Float64Var(&opts.rate, "rate", 0.20, "electricity rate in EUR/kWh")
	flag.Float64Var(&opts.opCost, "opcost", 10, "operating costs as percent of revenue")
	flag.StringVar(&opts.investment, "investment", "", "investment override in EUR (class default when empty)")
	flag.StringVar(&opts.location, "location", "", "optional location label")
	flag.StringVar(&opts.outputFormat, "output-format", "", "type of output override: pretty, csv, json")
	logLevel := flag.String("log-level", "", "log level override (debug, info, warn, error)")
	flag.Parse()

	conf := config.Default()
	if config.Exists(*configLocation) {
		loaded, err := config.LoadConfiguration(*configLocation)
		if err != nil {
			fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to load configuration at %s\", \"error\": \"%v\"}\n", *configLocation, err)
			os.Exit(1)
		}
		conf = loaded
	}

	logger, err := logging.New(conf.Logging, *logLevel)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to initialize logger\", \"error\": \"%v\"}\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	// CLI override takes precedence over config
	if opts.outputFormat == "" {
		opts.outputFormat = conf.Output.Format
	}
	if opts.outputFormat == "" {
		opts.outputFormat = constants.OutputFormatPretty
	}

	if err := run(os.Stdout, conf, opts); err != nil {
		var fields validation.Errors
		if errors.As(err, &fields) {
			for _, fe := range fields {
				logger.Error("invalid parameter",
					zap.String("op", "main"),
					zap.String("field", fe.Field),
					zap.String("message", fe.Message),
				)
			}
		}
		logger.Fatal("projection failed",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}
}

// run projects opts and writes the result in the requested format. Degenerate
// projections are still printed and reported as an error afterwards.
func run(w io.Writer, conf *config.Configuration, opts options) error {
	if err := validation.ValidateOutputFormat(opts.outputFormat); err != nil {
		return err
	}

	assumptions, err := conf.Market.Assumptions()
	if err != nil {
		return err
	}
	engine, err := finance.NewEngine(assumptions)
	if err != nil {
		return err
	}

	params := finance.InputParams{
		CapacityClass:        opts.capacity,
		ElectricityRate:      opts.rate,
		OperatingCostPercent: opts.opCost,
		Location:             opts.location,
	}
	if trimmed := strings.TrimSpace(opts.investment); trimmed != "" {
		amount, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return fmt.Errorf("invalid investment %q: %w", opts.investment, err)
		}
		params.InvestmentOverride = &amount
	}

	in, err := engine.NewInput(params)
	if err != nil {
		return err
	}
	result, projErr := engine.Project(in)
	if projErr != nil && !errors.Is(projErr, finance.ErrDegenerateProjection) {
		return projErr
	}

	switch opts.outputFormat {
	case constants.OutputFormatCSV:
		err = output.CsvFormat(w, result)
	case constants.OutputFormatJSON:
		err = output.JSONFormat(w, result)
	default:
		err = output.PrettyFormat(w, result)
	}
	if err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return projErr
}
