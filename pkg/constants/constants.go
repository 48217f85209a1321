// Package constants provides shared constants for the solarfarm-site application.
package constants

// DateTimeLayout is the month layout used for break-even dates and report output.
const DateTimeLayout = "2006-01"

// Financial constants
const (
	// MonthsPerYear is the number of months in a year
	MonthsPerYear = 12

	// DecimalPrecision is the precision for currency rounding (2 decimal places)
	DecimalPrecision = 100

	// PercentageMultiplier is used for percentage conversions
	PercentageMultiplier = 100.0

	// KWhPerMWh converts MWh figures into kWh for per-kWh tariffs
	KWhPerMWh = 1000.0
)

// Projection defaults
const (
	// DefaultCapacityFactor is the share of nameplate capacity realized on average
	DefaultCapacityFactor = 0.22

	// HoursPerYear is the number of hours in a non-leap year
	HoursPerYear = 8760.0

	// DefaultDiscountRate is the discount rate used for NPV
	DefaultDiscountRate = 0.08

	// DefaultAnnualDegradation is the compounding yearly production loss
	DefaultAnnualDegradation = 0.005

	// DefaultHorizonYears is the project horizon for NPV and IRR
	DefaultHorizonYears = 25

	// DefaultIRRCapPercent is the upper clamp for reported IRR
	DefaultIRRCapPercent = 35.0

	// MinElectricityRate and MaxElectricityRate bound the tariff in EUR/kWh
	MinElectricityRate = 0.05
	MaxElectricityRate = 0.50

	// MinOperatingCostPercent and MaxOperatingCostPercent bound operating costs as % of revenue
	MinOperatingCostPercent = 5.0
	MaxOperatingCostPercent = 25.0

	// MaxLocationLength is the longest accepted free-text location label
	MaxLocationLength = 120
)

// Output format constants
const (
	// OutputFormatPretty is the human-readable output format
	OutputFormatPretty = "pretty"

	// OutputFormatCSV is the CSV output format
	OutputFormatCSV = "csv"

	// OutputFormatJSON is the JSON output format
	OutputFormatJSON = "json"
)

// Configuration file constants
const (
	// DefaultConfigFile is the default site configuration file name
	DefaultConfigFile = "config.yaml"

	// DefaultServerConfigFile is the default server configuration file name
	DefaultServerConfigFile = "server-config.yaml"

	// EnvPrefix is the prefix for environment overrides of the site configuration
	EnvPrefix = "SOLAR"
)

// Server configuration defaults
const (
	// DefaultServerAddress is the default HTTP listen address
	DefaultServerAddress = ":8080"

	// DefaultMaxBodySizeBytes is the default maximum JSON request body size (64 KB)
	DefaultMaxBodySizeBytes int64 = 64 * 1024

	// DefaultReadTimeoutSeconds and DefaultWriteTimeoutSeconds bound a single request
	DefaultReadTimeoutSeconds  = 15
	DefaultWriteTimeoutSeconds = 15

	// DefaultShutdownTimeoutSeconds is the grace period for in-flight requests
	DefaultShutdownTimeoutSeconds = 10
)

// Rate limiting and retention defaults
const (
	// DefaultRateLimitRequests is the number of POST requests allowed per window and client
	DefaultRateLimitRequests = 20

	// DefaultRateLimitWindowSeconds is the fixed window length
	DefaultRateLimitWindowSeconds = 60

	// DefaultRetentionDays is how long calculation logs are kept
	DefaultRetentionDays = 180

	// DefaultRetentionSchedule is the cron spec for the purge job
	DefaultRetentionSchedule = "@daily"

	// DefaultNotifyChannel is the redis channel site events are published on
	DefaultNotifyChannel = "site:events"
)
