package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment overrides applied after the file is read
const (
	envDatabaseDSN = "CNGOPS_DB_DSN"
	envRedisAddr   = "CNGOPS_REDIS_ADDR"
	envLogLevel    = "LOG_LEVEL"
)

// Config holds the application configuration
type Config struct {
	Database        DatabaseConfig   `yaml:"database,omitempty"`
	Correction      CorrectionConfig `yaml:"correction,omitempty"`
	Billing         BillingConfig    `yaml:"billing,omitempty"`
	Server          ServerConfig     `yaml:"server,omitempty"`
	Redis           RedisConfig      `yaml:"redis,omitempty"`
	MQTT            MQTTConfig       `yaml:"mqtt,omitempty"`
	LogLevel        string           `yaml:"log_level,omitempty"`
	TrackerCacheTTL time.Duration    `yaml:"tracker_cache_ttl,omitempty"` // Fallback: 10m
}

// DatabaseConfig selects the backing store
type DatabaseConfig struct {
	Driver string `yaml:"driver,omitempty"` // "sqlite" (default) or "postgres"
	DSN    string `yaml:"dsn,omitempty"`    // File path for sqlite, connection URL for postgres
}

// CorrectionConfig holds the gas-law correction constants
type CorrectionConfig struct {
	AtmosphericPressure   float64 `yaml:"atmospheric_pressure,omitempty"`   // bar, fallback 1.01325
	CompressibilityFactor float64 `yaml:"compressibility_factor,omitempty"` // fallback 0.0002
	ReferenceTemperature  float64 `yaml:"reference_temperature,omitempty"`  // fallback 300
	KelvinOffset          float64 `yaml:"kelvin_offset,omitempty"`          // fallback 273
}

// BillingConfig holds invoice constants
type BillingConfig struct {
	TaxRate  float64           `yaml:"tax_rate,omitempty"`  // fallback 0.11
	DueDays  int               `yaml:"due_days,omitempty"`  // fallback 7
	DayNames map[string]string `yaml:"day_names,omitempty"` // English weekday -> local name
	Signer   string            `yaml:"signer,omitempty"`
	Bank     []string          `yaml:"bank,omitempty"` // Payment instruction lines
}

// ServerConfig holds the HTTP API settings
type ServerConfig struct {
	Addr string `yaml:"addr,omitempty"` // e.g., ":8050"
}

// RedisConfig enables the shared tracker cache when Addr is set
type RedisConfig struct {
	Addr     string `yaml:"addr,omitempty"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db,omitempty"`
}

// MQTTConfig holds broker settings for tracker publishing
type MQTTConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Broker      string `yaml:"broker"` // host:port
	Username    string `yaml:"username,omitempty"`
	Password    string `yaml:"password,omitempty"`
	TopicPrefix string `yaml:"topic_prefix,omitempty"` // fallback "cngops"
	ClientID    string `yaml:"client_id,omitempty"`
}

// Load reads the config file
func Load(configPath string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	case os.IsNotExist(err):
		// Run on defaults when no file is present
	default:
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg.applyEnv()
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v, ok := os.LookupEnv(envDatabaseDSN); ok && v != "" {
		c.Database.DSN = v
	}
	if v, ok := os.LookupEnv(envRedisAddr); ok {
		c.Redis.Addr = v
	}
	if v, ok := os.LookupEnv(envLogLevel); ok && v != "" {
		c.LogLevel = v
	}
}

// Save writes the config to file
func Save(configPath string, cfg *Config) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// DefaultConfigPath returns the default config file path (local directory)
func DefaultConfigPath() string {
	return "config.yaml"
}

// GetDriver returns the database driver name, defaulting to sqlite
func (c *Config) GetDriver() string {
	if c.Database.Driver == "" {
		return "sqlite"
	}
	return c.Database.Driver
}

// GetDSN returns the configured DSN, or the local sqlite file for the default driver
func (c *Config) GetDSN() string {
	if c.Database.DSN != "" {
		return c.Database.DSN
	}
	if c.GetDriver() == "sqlite" {
		return "data.db"
	}
	return ""
}

// GetAtmosphericPressure returns P_ATM in bar
func (c *Config) GetAtmosphericPressure() float64 {
	if c.Correction.AtmosphericPressure <= 0 {
		return 1.01325
	}
	return c.Correction.AtmosphericPressure
}

// GetCompressibilityFactor returns the compressibility correction factor
func (c *Config) GetCompressibilityFactor() float64 {
	if c.Correction.CompressibilityFactor <= 0 {
		return 0.0002
	}
	return c.Correction.CompressibilityFactor
}

// GetReferenceTemperature returns the reference absolute temperature
func (c *Config) GetReferenceTemperature() float64 {
	if c.Correction.ReferenceTemperature <= 0 {
		return 300
	}
	return c.Correction.ReferenceTemperature
}

// GetKelvinOffset returns the Celsius-to-Kelvin offset
func (c *Config) GetKelvinOffset() float64 {
	if c.Correction.KelvinOffset <= 0 {
		return 273
	}
	return c.Correction.KelvinOffset
}

// GetTaxRate returns the VAT rate applied to invoices
func (c *Config) GetTaxRate() float64 {
	if c.Billing.TaxRate <= 0 {
		return 0.11
	}
	return c.Billing.TaxRate
}

// GetDueDays returns the number of days between invoice date and due date
func (c *Config) GetDueDays() int {
	if c.Billing.DueDays <= 0 {
		return 7
	}
	return c.Billing.DueDays
}

// GetDayNames returns the weekday translation table, Indonesian unless overridden.
// A partial override is completed from the defaults.
func (c *Config) GetDayNames() map[string]string {
	names := map[string]string{
		"Monday":    "Senin",
		"Tuesday":   "Selasa",
		"Wednesday": "Rabu",
		"Thursday":  "Kamis",
		"Friday":    "Jumat",
		"Saturday":  "Sabtu",
		"Sunday":    "Minggu",
	}
	for en, local := range c.Billing.DayNames {
		if _, ok := names[en]; ok && local != "" {
			names[en] = local
		}
	}
	return names
}

// GetSigner returns the name printed above the invoice signature line
func (c *Config) GetSigner() string {
	if c.Billing.Signer == "" {
		return "Alice Alisceon"
	}
	return c.Billing.Signer
}

// GetBankLines returns the payment instruction lines printed on invoices
func (c *Config) GetBankLines() []string {
	if len(c.Billing.Bank) == 0 {
		return []string{
			"Bank Utama KC Hulu Hilir A/C",
			"(IDR) 123 456 7891",
			"A/N: PT ENERGI MULTIGUNA",
		}
	}
	return c.Billing.Bank
}

// GetListenAddr returns the HTTP listen address
func (c *Config) GetListenAddr() string {
	if c.Server.Addr == "" {
		return ":8050"
	}
	return c.Server.Addr
}

// GetTopicPrefix returns the MQTT topic prefix
func (c *Config) GetTopicPrefix() string {
	if c.MQTT.TopicPrefix == "" {
		return "cngops"
	}
	return c.MQTT.TopicPrefix
}

// GetTrackerCacheTTL returns how long a computed tracker series stays cached
func (c *Config) GetTrackerCacheTTL() time.Duration {
	if c.TrackerCacheTTL <= 0 {
		return 10 * time.Minute
	}
	return c.TrackerCacheTTL
}
