package contract

import (
	"errors"
	"fmt"
	"math"
	"runtime"
	"strings"
	"time"

	"github.com/huangsam/radar/schema"
)

// Default values for configuration.
const (
	DefaultHorizonDays   = 30
	DefaultRiskThreshold = 0.5
	DefaultResultLimit   = 25
	MaxResultLimit       = 1000
	DefaultPrecision     = 2
	DefaultLogLevel      = "info"
	CutoffAuto           = "auto"
)

// DefaultWorkers is the default number of concurrent workers to use.
var DefaultWorkers = runtime.GOMAXPROCS(0)

// DateTimeFormat is the default date time representation.
var DateTimeFormat = time.RFC3339

// ErrAccountsRequired is returned when no registry snapshot is configured.
var ErrAccountsRequired = errors.New("accounts file is required")

// ProfileConfig holds profiling settings.
type ProfileConfig struct {
	Enabled bool
	Prefix  string
}

// Config holds the runtime configuration for a forecast.
// This struct remains the "final, validated" config.
type Config struct {
	AccountsPath    string
	TouchpointsPath string
	Cutoff          time.Time // Zero means resolve from the latest touchpoint
	HorizonDays     int
	WindowDays      int
	MinObs          int

	MaxEngagementScore  float64
	ChurnThreshold      float64
	DecayRatePerDay     float64
	NormalizationFactor float64 // 0 = auto-calibrate
	ResetOnTouchpoint   bool
	RiskThreshold       float64

	AccountFilter schema.AccountFilter
	OutDir        string
	Summary       bool

	ResultLimit int
	Workers     int
	Precision   int
	Output      schema.OutputMode
	OutputFile  string
	Width       int // Terminal width override (0 = auto-detect)

	CacheBackend   schema.DatabaseBackend
	CacheDBConnect string // Please use env var as this is plaintext

	HistoryBackend   schema.DatabaseBackend
	HistoryDBConnect string // Please use env var as this is plaintext

	UseEmojis bool // Enable emojis in output headers
	UseColors bool // Enable colored labels in table output
}

// ConfigRawInput holds the raw inputs from all sources (flags, env, config file).
// Viper unmarshals into this struct.
type ConfigRawInput struct {
	// --- Fields from rootCmd.PersistentFlags() ---
	OutputFile       string `mapstructure:"output-file"`
	Limit            int    `mapstructure:"limit"`
	Workers          int    `mapstructure:"workers"`
	Precision        int    `mapstructure:"precision"`
	Output           string `mapstructure:"output"`
	Width            int    `mapstructure:"width"`
	CacheBackend     string `mapstructure:"cache-backend"`
	CacheDBConnect   string `mapstructure:"cache-db-connect"`
	HistoryBackend   string `mapstructure:"history-backend"`
	HistoryDBConnect string `mapstructure:"history-db-connect"`
	Emoji            string `mapstructure:"emoji"`
	Color            string `mapstructure:"color"`
	LogLevel         string `mapstructure:"log-level"`

	// --- Fields from forecastCmd.Flags() ---
	Accounts            string  `mapstructure:"accounts"`
	Touchpoints         string  `mapstructure:"touchpoints"`
	Cutoff              string  `mapstructure:"cutoff"`
	Horizon             int     `mapstructure:"horizon"`
	WindowDays          int     `mapstructure:"window-days"`
	MinObs              int     `mapstructure:"min-obs"`
	DecayRate           float64 `mapstructure:"decay-rate"`
	ChurnThreshold      float64 `mapstructure:"churn-threshold"`
	RiskThreshold       float64 `mapstructure:"risk-threshold"`
	MaxEngagement       float64 `mapstructure:"max-engagement"`
	NormalizationFactor float64 `mapstructure:"normalization-factor"`
	ResetOnTouchpoint   bool    `mapstructure:"reset-on-touchpoint"`
	AccountIDs          string  `mapstructure:"account-ids"`
	OutDir              string  `mapstructure:"out-dir"`
	Summary             bool    `mapstructure:"summary"`

	// AccountIDsSet is set manually when --account-ids was supplied, so no tag
	AccountIDsSet bool
}

// Clone returns a deep copy of the Config struct.
func (c *Config) Clone() *Config {
	clone := *c
	if c.AccountFilter.IsAll() {
		clone.AccountFilter = schema.AllAccounts()
	} else {
		clone.AccountFilter = schema.ExplicitAccounts(c.AccountFilter.IDs()...)
	}
	return &clone
}

// NormalizationFactorOverride returns the explicit factor, or nil for auto-calibration.
func (c *Config) NormalizationFactorOverride() *float64 {
	if !(c.NormalizationFactor > 0) || math.IsInf(c.NormalizationFactor, 0) {
		return nil
	}
	v := c.NormalizationFactor
	return &v
}

// ProcessAndValidate performs all complex parsing and validation on the raw inputs
// and updates the final Config struct.
func ProcessAndValidate(cfg *Config, input *ConfigRawInput) error {
	if err := validateSimpleInputs(cfg, input); err != nil {
		return err
	}
	if err := processModelInputs(cfg, input); err != nil {
		return err
	}
	if err := processForecastInputs(cfg, input); err != nil {
		return err
	}
	return nil
}

// ValidateDatabaseConnectionString validates the format of database connection strings
// for MySQL and PostgreSQL backends.
func ValidateDatabaseConnectionString(backend schema.DatabaseBackend, connStr string) error {
	switch backend {
	case schema.SQLiteBackend, schema.NoneBackend:
		return nil
	case schema.MySQLBackend:
		if connStr == "" {
			return fmt.Errorf("a connection string is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "@tcp(") {
			return fmt.Errorf("MySQL connection string must contain '@tcp(' for host:port specification")
		}
		if !strings.Contains(connStr, "/") {
			return fmt.Errorf("MySQL connection string must contain '/' followed by database name")
		}
	case schema.PostgreSQLBackend:
		if connStr == "" {
			return fmt.Errorf("a connection string is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "host=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'host=' parameter")
		}
		if !strings.Contains(connStr, "dbname=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'dbname=' parameter")
		}
	}
	return nil
}

// validateBackendConfigs validates cache and history backend configurations.
func validateBackendConfigs(cfg *Config, input *ConfigRawInput) error {
	// --- Cache Backend Validation ---
	cfg.CacheBackend = schema.DatabaseBackend(strings.ToLower(input.CacheBackend))
	if _, ok := schema.ValidDatabaseBackends[cfg.CacheBackend]; !ok {
		return fmt.Errorf("invalid cache backend '%s'. must be sqlite, mysql, postgresql, none", input.CacheBackend)
	}
	cfg.CacheDBConnect = input.CacheDBConnect
	if err := ValidateDatabaseConnectionString(cfg.CacheBackend, cfg.CacheDBConnect); err != nil {
		return err
	}

	// --- History Backend Validation ---
	cfg.HistoryBackend = schema.DatabaseBackend(strings.ToLower(input.HistoryBackend))
	if cfg.HistoryBackend == "" {
		return nil
	}
	if _, ok := schema.ValidDatabaseBackends[cfg.HistoryBackend]; !ok {
		return fmt.Errorf("invalid history backend '%s'. must be sqlite, mysql, postgresql, none", input.HistoryBackend)
	}
	cfg.HistoryDBConnect = input.HistoryDBConnect
	if err := ValidateDatabaseConnectionString(cfg.HistoryBackend, cfg.HistoryDBConnect); err != nil {
		return err
	}

	// Cache and history must not share one SQLite file
	if cfg.CacheBackend == schema.SQLiteBackend && cfg.HistoryBackend == schema.SQLiteBackend {
		cacheDBPath := cfg.CacheDBConnect
		if cacheDBPath == "" {
			cacheDBPath = GetCacheDBFilePath()
		}
		historyDBPath := cfg.HistoryDBConnect
		if historyDBPath == "" {
			historyDBPath = GetHistoryDBFilePath()
		}
		if cacheDBPath == historyDBPath {
			return fmt.Errorf("cache and history storage must use different SQLite database files. Both resolve to %q", cacheDBPath)
		}
	}
	return nil
}

// validateSimpleInputs processes and validates the output and storage fields.
func validateSimpleInputs(cfg *Config, input *ConfigRawInput) error {
	cfg.OutputFile = input.OutputFile
	cfg.Width = input.Width

	emojis, err := ParseBoolString(input.Emoji)
	if err != nil {
		return fmt.Errorf("invalid --emoji value: %w", err)
	}
	cfg.UseEmojis = emojis

	colors, err := ParseBoolString(input.Color)
	if err != nil {
		return fmt.Errorf("invalid --color value: %w", err)
	}
	cfg.UseColors = colors

	if input.Limit <= 0 || input.Limit > MaxResultLimit {
		return fmt.Errorf("limit must be greater than 0 and cannot exceed %d (received %d)", MaxResultLimit, input.Limit)
	}
	cfg.ResultLimit = input.Limit

	if input.Workers <= 0 {
		return fmt.Errorf("workers must be greater than 0 (received %d)", input.Workers)
	}
	cfg.Workers = input.Workers

	if input.Precision < 1 || input.Precision > 4 {
		return fmt.Errorf("precision must be between 1 and 4 (received %d)", input.Precision)
	}
	cfg.Precision = input.Precision

	cfg.Output = schema.OutputMode(strings.ToLower(input.Output))
	if _, ok := schema.ValidOutputModes[cfg.Output]; !ok {
		return fmt.Errorf("invalid output format '%s'. must be text, csv, json, parquet", input.Output)
	}
	if cfg.Output == schema.ParquetOut && cfg.OutputFile == "" {
		return fmt.Errorf("parquet output requires --output-file")
	}

	if err := SetLogLevel(input.LogLevel); err != nil {
		return err
	}

	return validateBackendConfigs(cfg, input)
}

// processModelInputs validates the estimator and simulator parameters.
func processModelInputs(cfg *Config, input *ConfigRawInput) error {
	// Range checks below are false for NaN, so non-finite values are rejected first
	for _, f := range []struct {
		flag  string
		value float64
	}{
		{"decay-rate", input.DecayRate},
		{"churn-threshold", input.ChurnThreshold},
		{"risk-threshold", input.RiskThreshold},
		{"max-engagement", input.MaxEngagement},
		{"normalization-factor", input.NormalizationFactor},
	} {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return fmt.Errorf("%s must be a finite number (received %g)", f.flag, f.value)
		}
	}

	if input.Horizon < schema.MinHorizonDays || input.Horizon > schema.MaxHorizonDays {
		return fmt.Errorf("horizon must be between %d and %d days (received %d)", schema.MinHorizonDays, schema.MaxHorizonDays, input.Horizon)
	}
	cfg.HorizonDays = input.Horizon

	if input.WindowDays < 1 {
		return fmt.Errorf("window-days must be at least 1 (received %d)", input.WindowDays)
	}
	cfg.WindowDays = input.WindowDays

	if input.MinObs < 1 {
		return fmt.Errorf("min-obs must be at least 1 (received %d)", input.MinObs)
	}
	cfg.MinObs = input.MinObs

	if input.DecayRate < 0 || input.DecayRate >= 1 {
		return fmt.Errorf("decay-rate must be in [0, 1) (received %g)", input.DecayRate)
	}
	cfg.DecayRatePerDay = input.DecayRate

	if input.ChurnThreshold <= 0 {
		return fmt.Errorf("churn-threshold must be greater than 0 (received %g)", input.ChurnThreshold)
	}
	cfg.ChurnThreshold = input.ChurnThreshold

	if input.RiskThreshold < 0 || input.RiskThreshold > 1 {
		return fmt.Errorf("risk-threshold must be between 0 and 1 (received %g)", input.RiskThreshold)
	}
	cfg.RiskThreshold = input.RiskThreshold

	if input.MaxEngagement <= 0 {
		return fmt.Errorf("max-engagement must be greater than 0 (received %g)", input.MaxEngagement)
	}
	cfg.MaxEngagementScore = input.MaxEngagement

	if input.NormalizationFactor < 0 {
		return fmt.Errorf("normalization-factor must be 0 (auto) or positive (received %g)", input.NormalizationFactor)
	}
	cfg.NormalizationFactor = input.NormalizationFactor
	cfg.ResetOnTouchpoint = input.ResetOnTouchpoint
	return nil
}

// processForecastInputs resolves input paths, the cutoff and the account filter.
func processForecastInputs(cfg *Config, input *ConfigRawInput) error {
	cfg.AccountsPath = strings.TrimSpace(input.Accounts)
	cfg.TouchpointsPath = strings.TrimSpace(input.Touchpoints)
	cfg.OutDir = strings.TrimSpace(input.OutDir)
	cfg.Summary = input.Summary

	cutoff, err := ParseCutoff(input.Cutoff)
	if err != nil {
		return err
	}
	cfg.Cutoff = cutoff

	if input.AccountIDsSet {
		cfg.AccountFilter = ParseAccountIDs(input.AccountIDs)
	} else {
		cfg.AccountFilter = schema.AllAccounts()
	}
	return nil
}

// ParseCutoff parses a cutoff value. Empty and "auto" return the zero time.
func ParseCutoff(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, CutoffAuto) {
		return time.Time{}, nil
	}
	t, err := schema.ParseDate(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid cutoff %q. Expected YYYY-MM-DD or 'auto': %w", s, err)
	}
	return t, nil
}

// ParseAccountIDs turns a comma-separated list into an explicit filter.
// An empty list yields an explicit empty filter, not "all accounts".
func ParseAccountIDs(s string) schema.AccountFilter {
	var ids []string
	for part := range strings.SplitSeq(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			ids = append(ids, trimmed)
		}
	}
	return schema.ExplicitAccounts(ids...)
}

// ProcessProfilingConfig handles the profiling flag and sets up profiling configuration.
func ProcessProfilingConfig(profile *ProfileConfig, profilePrefix string) error {
	if profilePrefix != "" {
		profile.Enabled = true
		profile.Prefix = profilePrefix
	}
	return nil
}
