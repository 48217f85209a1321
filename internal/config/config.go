// Package config defines the site configuration and loads it from YAML with
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/iwvelando/solarfarm-site/internal/assessment"
	"github.com/iwvelando/solarfarm-site/pkg/constants"
	"github.com/iwvelando/solarfarm-site/pkg/finance"
	"github.com/iwvelando/solarfarm-site/pkg/validation"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Configuration holds all configuration for the site.
type Configuration struct {
	Market     MarketConfig
	Assessment AssessmentConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	RateLimit  RateLimitConfig
	Retention  RetentionConfig
	Logging    LoggingConfig `yaml:"logging,omitempty"`
	Output     OutputConfig  `yaml:"output,omitempty"`
}

// LoggingConfig holds logging configuration options
type LoggingConfig struct {
	Level      string `yaml:"level,omitempty"`      // debug, info, warn, error
	Format     string `yaml:"format,omitempty"`     // json, console
	OutputFile string `yaml:"outputFile,omitempty"` // optional file output
}

// OutputConfig holds output format configuration options
type OutputConfig struct {
	Format string `yaml:"format,omitempty"` // pretty, csv, json
}

// MarketConfig holds the projection assumptions.
type MarketConfig struct {
	CapacityFactor          float64
	HoursPerYear            float64
	DiscountRate            float64
	AnnualDegradation       float64
	HorizonYears            int
	IRRCapPercent           float64
	IRRMethod               string
	DefaultInvestment       map[string]float64
	MinElectricityRate      float64
	MaxElectricityRate      float64
	MinOperatingCostPercent float64
	MaxOperatingCostPercent float64
}

// AssessmentConfig holds the land estimator coefficients.
type AssessmentConfig struct {
	HectaresPerMW       float64
	LeaseRatePerHectare float64
	GridCostPerKm       float64
	ReferenceIrradiance float64
	GridScoreRangeKm    float64
	OptimalIrradiance   float64
	TerrainShare        map[string]float64
}

// DatabaseConfig selects PostgreSQL persistence. An empty DSN keeps records in memory.
type DatabaseConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	ConnectTimeout time.Duration
	PingTimeout    time.Duration
}

// RedisConfig selects redis for rate limiting and notifications. An empty
// address keeps both in process.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Channel  string
}

// RateLimitConfig bounds POST requests per client.
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
	Burst    int
}

// RetentionConfig controls purging of calculation logs.
type RetentionConfig struct {
	CalculationDays int
	Schedule        string
}

func setDefaults(v *viper.Viper) {
	market := finance.DefaultAssumptions()
	v.SetDefault("market.capacityFactor", market.CapacityFactor)
	v.SetDefault("market.hoursPerYear", market.HoursPerYear)
	v.SetDefault("market.discountRate", market.DiscountRate)
	v.SetDefault("market.annualDegradation", market.AnnualDegradation)
	v.SetDefault("market.horizonYears", market.HorizonYears)
	v.SetDefault("market.irrCapPercent", market.IRRCapPercent)
	v.SetDefault("market.irrMethod", string(market.IRRMethod))
	investments := make(map[string]interface{}, len(market.DefaultInvestment))
	for class, amount := range market.DefaultInvestment {
		investments[string(class)] = amount
	}
	v.SetDefault("market.defaultInvestment", investments)
	v.SetDefault("market.minElectricityRate", market.Bounds.MinElectricityRate)
	v.SetDefault("market.maxElectricityRate", market.Bounds.MaxElectricityRate)
	v.SetDefault("market.minOperatingCostPercent", market.Bounds.MinOperatingCostPercent)
	v.SetDefault("market.maxOperatingCostPercent", market.Bounds.MaxOperatingCostPercent)

	coeff := assessment.DefaultCoefficients()
	v.SetDefault("assessment.hectaresPerMW", coeff.HectaresPerMW)
	v.SetDefault("assessment.leaseRatePerHectare", coeff.LeaseRatePerHectare)
	v.SetDefault("assessment.gridCostPerKm", coeff.GridCostPerKm)
	v.SetDefault("assessment.referenceIrradiance", coeff.ReferenceIrradiance)
	v.SetDefault("assessment.gridScoreRangeKm", coeff.GridScoreRangeKm)
	v.SetDefault("assessment.optimalIrradiance", coeff.OptimalIrradiance)
	shares := make(map[string]interface{}, len(coeff.TerrainShare))
	for terrain, share := range coeff.TerrainShare {
		shares[string(terrain)] = share
	}
	v.SetDefault("assessment.terrainShare", shares)

	v.SetDefault("database.dsn", "")
	v.SetDefault("database.maxConns", 10)
	v.SetDefault("database.minConns", 2)
	v.SetDefault("database.connectTimeout", 5*time.Second)
	v.SetDefault("database.pingTimeout", 3*time.Second)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.channel", constants.DefaultNotifyChannel)

	v.SetDefault("rateLimit.requests", constants.DefaultRateLimitRequests)
	v.SetDefault("rateLimit.window", time.Duration(constants.DefaultRateLimitWindowSeconds)*time.Second)
	v.SetDefault("rateLimit.burst", 0)

	v.SetDefault("retention.calculationDays", constants.DefaultRetentionDays)
	v.SetDefault("retention.schedule", constants.DefaultRetentionSchedule)

	v.SetDefault("logging.level", "")
	v.SetDefault("logging.format", "")
	v.SetDefault("logging.outputFile", "")
	v.SetDefault("output.format", "")
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetConfigType("yml")
	return v
}

// LoadConfiguration loads a .env file next to configPath when present, then
// the YAML configuration at configPath. SOLAR_* environment variables override
// file values, e.g. SOLAR_DATABASE_DSN for database.dsn.
func LoadConfiguration(configPath string) (*Configuration, error) {
	if err := loadDotEnv(filepath.Join(filepath.Dir(configPath), ".env")); err != nil {
		return nil, err
	}

	v := newViper()
	v.SetConfigFile(configPath)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file, %s", err)
	}
	return decode(v)
}

// LoadConfigurationFromReader reads YAML configuration from r.
func LoadConfigurationFromReader(r io.Reader) (*Configuration, error) {
	v := newViper()
	if err := v.ReadConfig(r); err != nil {
		return nil, fmt.Errorf("error reading config, %s", err)
	}
	return decode(v)
}

// Default returns the configuration used when no file is given.
func Default() *Configuration {
	conf, err := decode(newViper())
	if err != nil {
		panic(fmt.Sprintf("default configuration does not decode: %v", err))
	}
	return conf
}

func decode(v *viper.Viper) (*Configuration, error) {
	var configuration Configuration
	if err := v.Unmarshal(&configuration); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %s", err)
	}
	return &configuration, nil
}

func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// Assumptions converts the market section into engine assumptions.
func (m MarketConfig) Assumptions() (finance.Assumptions, error) {
	investments := make(map[finance.CapacityClass]float64, len(m.DefaultInvestment))
	for key, amount := range m.DefaultInvestment {
		class, err := finance.ParseCapacityClass(key)
		if err != nil {
			return finance.Assumptions{}, fmt.Errorf("market.defaultInvestment: %w", err)
		}
		investments[class] = amount
	}

	a := finance.Assumptions{
		CapacityFactor:    m.CapacityFactor,
		HoursPerYear:      m.HoursPerYear,
		DiscountRate:      m.DiscountRate,
		AnnualDegradation: m.AnnualDegradation,
		HorizonYears:      m.HorizonYears,
		IRRCapPercent:     m.IRRCapPercent,
		IRRMethod:         finance.IRRMethod(strings.ToLower(strings.TrimSpace(m.IRRMethod))),
		DefaultInvestment: investments,
		Bounds: finance.InputBounds{
			MinElectricityRate:      m.MinElectricityRate,
			MaxElectricityRate:      m.MaxElectricityRate,
			MinOperatingCostPercent: m.MinOperatingCostPercent,
			MaxOperatingCostPercent: m.MaxOperatingCostPercent,
		},
	}
	if err := a.Validate(); err != nil {
		return finance.Assumptions{}, fmt.Errorf("market: %w", err)
	}
	return a, nil
}

// Coefficients converts the assessment section into estimator coefficients.
func (a AssessmentConfig) Coefficients() (assessment.Coefficients, error) {
	shares := make(map[assessment.Terrain]float64, len(a.TerrainShare))
	for key, share := range a.TerrainShare {
		shares[assessment.Terrain(strings.ToLower(key))] = share
	}
	c := assessment.Coefficients{
		HectaresPerMW:       a.HectaresPerMW,
		LeaseRatePerHectare: a.LeaseRatePerHectare,
		GridCostPerKm:       a.GridCostPerKm,
		ReferenceIrradiance: a.ReferenceIrradiance,
		GridScoreRangeKm:    a.GridScoreRangeKm,
		OptimalIrradiance:   a.OptimalIrradiance,
		TerrainShare:        shares,
	}
	if err := c.Validate(); err != nil {
		return assessment.Coefficients{}, fmt.Errorf("assessment: %w", err)
	}
	return c, nil
}

// ValidateConfiguration performs general validation of the configuration and returns warnings
func (c *Configuration) ValidateConfiguration() []string {
	var warnings []string

	if _, err := c.Market.Assumptions(); err != nil {
		warnings = append(warnings, err.Error())
	}
	if _, err := c.Assessment.Coefficients(); err != nil {
		warnings = append(warnings, err.Error())
	}
	if c.Output.Format != "" {
		if err := validation.ValidateOutputFormat(c.Output.Format); err != nil {
			warnings = append(warnings, err.Error())
		}
	}
	if c.Database.DSN == "" {
		warnings = append(warnings, "database.dsn is empty; leads and calculation logs are kept in memory only")
	}
	if c.RateLimit.Requests < 1 || c.RateLimit.Window <= 0 {
		warnings = append(warnings, fmt.Sprintf("rateLimit must allow at least one request per positive window, got %d per %s", c.RateLimit.Requests, c.RateLimit.Window))
	}
	if c.RateLimit.Window > 0 && c.RateLimit.Window%time.Second != 0 {
		warnings = append(warnings, fmt.Sprintf("rateLimit.window %s is rounded down to whole seconds by the redis limiter", c.RateLimit.Window))
	}
	if c.Retention.CalculationDays < 1 {
		warnings = append(warnings, fmt.Sprintf("retention.calculationDays must be at least 1, got %d", c.Retention.CalculationDays))
	}
	return warnings
}

// Exists reports whether path names a readable file.
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
