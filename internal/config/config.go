package config

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"report-generator/internal/keyring"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// DefaultConfigFile is read when no explicit path is given and the file exists.
const DefaultConfigFile = "reportgen.yaml"

// ErrMissingCredentials is returned when the Airtable API key or base ID is absent.
var ErrMissingCredentials = errors.New("missing Airtable configuration: set AIRTABLE_API_KEY and AIRTABLE_BASE_ID")

// Config holds all application configuration. It is built once by LoadConfig
// and passed by value; nothing mutates it afterwards.
type Config struct {
	Airtable    AirtableConfig    `yaml:"airtable"`
	Server      ServerConfig      `yaml:"server"`
	Form        FormConfig        `yaml:"form"`
	Automation  AutomationConfig  `yaml:"automation"`
	Idempotency IdempotencyConfig `yaml:"idempotency"`
	MongoDB     MongoDBConfig     `yaml:"mongodb"`
	Redis       RedisConfig       `yaml:"redis"`
	InfluxDB    InfluxDBConfig    `yaml:"influxdb"`
	Log         LogConfig         `yaml:"log"`
}

// AirtableConfig holds the remote base address, credential and schema IDs
type AirtableConfig struct {
	APIKey         string               `yaml:"-"` // never read from files
	BaseID         string               `yaml:"base_id"`
	APIURL         string               `yaml:"api_url"`
	ProxyURL       string               `yaml:"proxy_url"` // relay address used by clients
	RateLimit      float64              `yaml:"rate_limit"`
	RateBurst      int                  `yaml:"rate_burst"`
	UseKeyring     bool                 `yaml:"use_keyring"`
	Tables         TablesConfig         `yaml:"tables"`
	ReportFields   FieldMap             `yaml:"report_fields"`
	CategoryFields CategoryFieldsConfig `yaml:"category_fields"`
}

// TablesConfig holds the table IDs of the base
type TablesConfig struct {
	Reports           string `yaml:"reports"`
	UXCategories      string `yaml:"ux_categories"`
	AcademyCategories string `yaml:"academy_categories"`
	Transcripts       string `yaml:"transcripts"`
}

// FieldMap holds the field IDs (or names) of the Reports table
type FieldMap struct {
	ReportTitle           string `yaml:"report_title"`
	DataSource            string `yaml:"data_source"`
	DateRangeStart        string `yaml:"date_range_start"`
	DateRangeEnd          string `yaml:"date_range_end"`
	CategoryFilter        string `yaml:"category_filter"`
	AcademyCategoryFilter string `yaml:"academy_category_filter"`
	ReportTemplate        string `yaml:"report_template"`
	OutputFormat          string `yaml:"output_format"`
	ReportPriority        string `yaml:"report_priority"`
	AdvancedFilters       string `yaml:"advanced_filters"`
	ReportRecipients      string `yaml:"report_recipients"`
	MultiSourceEnabled    string `yaml:"multi_source_enabled"`
	ReportStatus          string `yaml:"report_status"`
	ConfigValidation      string `yaml:"config_validation"`
	AutomationEnabled     string `yaml:"automation_enabled"`
	GeneratedDate         string `yaml:"generated_date"`
}

// CategoryFieldsConfig names the fields read from category records
type CategoryFieldsConfig struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// ServerConfig holds relay server configuration
type ServerConfig struct {
	Port string `yaml:"port"`
	Host string `yaml:"host"`
}

// FormConfig holds the enumerated form options and rule bounds
type FormConfig struct {
	DataSources      []string       `yaml:"data_sources"`
	Templates        []string       `yaml:"templates"`
	OutputFormats    []string       `yaml:"output_formats"`
	Priorities       []string       `yaml:"priorities"`
	DefaultPriority  string         `yaml:"default_priority"`
	TitleMinLength   int            `yaml:"title_min_length"`
	TitleMaxLength   int            `yaml:"title_max_length"`
	DefaultRangeDays int            `yaml:"default_range_days"`
	CategoryLimit    int            `yaml:"category_limit"`
	MessageTTL       time.Duration  `yaml:"message_ttl"`
	FilterPresets    []FilterPreset `yaml:"filter_presets"`
}

// FilterPreset is a named advanced-filter document offered by the form
type FilterPreset struct {
	Name   string `yaml:"name"`
	Filter string `yaml:"filter"` // JSON
}

// AutomationConfig holds the optional webhook settings
type AutomationConfig struct {
	WebhookURL string        `yaml:"webhook_url"`
	Enabled    bool          `yaml:"enabled"`
	Timeout    time.Duration `yaml:"timeout"`
}

// IdempotencyConfig selects the relay's duplicate-submission ledger
type IdempotencyConfig struct {
	Backend string        `yaml:"backend"` // memory, mongo, redis or none
	TTL     time.Duration `yaml:"ttl"`
}

// MongoDBConfig holds MongoDB connection details
type MongoDBConfig struct {
	URI        string `yaml:"uri"`
	Username   string `yaml:"-"`
	Password   string `yaml:"-"`
	Host       string `yaml:"host"`
	Port       string `yaml:"port"`
	Database   string `yaml:"database"`
	Collection string `yaml:"collection"`
	AuthSource string `yaml:"auth_source"`
}

// RedisConfig holds Redis connection details
type RedisConfig struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"-"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"key_prefix"`
}

// InfluxDBConfig holds InfluxDB connection details for relay telemetry
type InfluxDBConfig struct {
	URL    string `yaml:"url"`
	Token  string `yaml:"-"`
	Org    string `yaml:"org"`
	Bucket string `yaml:"bucket"`
}

// LogConfig holds logger settings
type LogConfig struct {
	Debug bool   `yaml:"debug"`
	Dir   string `yaml:"dir"`
}

// HasCredentials reports whether both the API key and base ID are set
func (a AirtableConfig) HasCredentials() bool {
	return a.APIKey != "" && a.BaseID != ""
}

// LoadConfig loads configuration in one pass: embedded defaults, then the
// YAML file at path (or DefaultConfigFile when path is empty), then .env,
// then environment variables.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(defaultsYAML, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse default config: %w", err)
	}

	if path == "" {
		path = getEnv("REPORTGEN_CONFIG", "")
	}
	explicit := path != ""
	if !explicit {
		path = DefaultConfigFile
	}
	if err := mergeFile(&cfg, path, explicit); err != nil {
		return Config{}, err
	}

	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	applyEnv(&cfg)

	if cfg.Airtable.APIKey == "" && cfg.Airtable.UseKeyring {
		if key, err := keyring.GetAPIKey(); err == nil {
			cfg.Airtable.APIKey = key
		}
	}

	if err := ValidateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func mergeFile(cfg *Config, path string, explicit bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return nil
		}
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	a := &cfg.Airtable
	a.APIKey = getEnv("AIRTABLE_API_KEY", a.APIKey)
	a.BaseID = getEnv("AIRTABLE_BASE_ID", a.BaseID)
	a.APIURL = getEnv("AIRTABLE_API_URL", a.APIURL)
	a.ProxyURL = getEnv("REPORTGEN_PROXY_URL", a.ProxyURL)
	a.RateLimit = getEnvFloat("AIRTABLE_RATE_LIMIT", a.RateLimit)
	a.RateBurst = getEnvInt("AIRTABLE_RATE_BURST", a.RateBurst)
	a.UseKeyring = getEnvBool("AIRTABLE_USE_KEYRING", a.UseKeyring)

	cfg.Server.Port = getEnv("PORT", cfg.Server.Port)
	cfg.Server.Host = getEnv("HOST", cfg.Server.Host)

	cfg.Automation.WebhookURL = getEnv("N8N_WEBHOOK_URL", cfg.Automation.WebhookURL)
	cfg.Automation.Enabled = getEnvBool("N8N_ENABLED", cfg.Automation.Enabled)

	cfg.Idempotency.Backend = strings.ToLower(getEnv("IDEMPOTENCY_BACKEND", cfg.Idempotency.Backend))
	cfg.Idempotency.TTL = getEnvDuration("IDEMPOTENCY_TTL", cfg.Idempotency.TTL)

	m := &cfg.MongoDB
	m.URI = getEnv("MONGODB_URI", m.URI)
	m.Username = getEnv("MONGODB_USERNAME", m.Username)
	m.Password = getEnv("MONGODB_PASSWORD", m.Password)
	m.Host = getEnv("MONGODB_HOST", m.Host)
	m.Port = getEnv("MONGODB_PORT", m.Port)
	m.Database = getEnv("MONGODB_DATABASE", m.Database)
	m.Collection = getEnv("MONGODB_COLLECTION", m.Collection)
	m.AuthSource = getEnv("MONGODB_AUTH_SOURCE", m.AuthSource)

	r := &cfg.Redis
	r.Addr = getEnv("REDIS_ADDR", r.Addr)
	r.Password = getEnv("REDIS_PASSWORD", r.Password)
	r.DB = getEnvInt("REDIS_DB", r.DB)
	r.KeyPrefix = getEnv("REDIS_KEY_PREFIX", r.KeyPrefix)

	i := &cfg.InfluxDB
	i.URL = getEnv("INFLUXDB2_URL", i.URL)
	i.Token = getEnv("INFLUXDB2_TOKEN", i.Token)
	i.Org = getEnv("INFLUXDB2_ORG", i.Org)
	i.Bucket = getEnv("INFLUXDB2_BUCKET", i.Bucket)

	cfg.Log.Debug = getEnvBool("LOG_DEBUG", cfg.Log.Debug)
	cfg.Log.Dir = getEnv("LOG_DIR", cfg.Log.Dir)
}

// ValidateConfig checks structural settings. A missing Airtable credential is
// not an error here: the relay reports it per request.
func ValidateConfig(cfg Config) error {
	if _, err := strconv.Atoi(cfg.Server.Port); err != nil {
		return fmt.Errorf("PORT must be numeric, got %q", cfg.Server.Port)
	}
	if cfg.Airtable.APIURL == "" {
		return fmt.Errorf("AIRTABLE_API_URL is required")
	}
	if cfg.Airtable.RateLimit <= 0 {
		return fmt.Errorf("AIRTABLE_RATE_LIMIT must be positive")
	}
	if cfg.Form.TitleMinLength <= 0 || cfg.Form.TitleMaxLength < cfg.Form.TitleMinLength {
		return fmt.Errorf("invalid title length bounds %d..%d", cfg.Form.TitleMinLength, cfg.Form.TitleMaxLength)
	}
	if len(cfg.Form.DataSources) == 0 || len(cfg.Form.Templates) == 0 || len(cfg.Form.OutputFormats) == 0 {
		return fmt.Errorf("form options must list data sources, templates and output formats")
	}
	for _, preset := range cfg.Form.FilterPresets {
		if preset.Name == "" {
			return fmt.Errorf("filter preset without a name")
		}
		if !json.Valid([]byte(preset.Filter)) {
			return fmt.Errorf("filter preset %q is not valid JSON", preset.Name)
		}
	}

	switch cfg.Idempotency.Backend {
	case "", "none", "memory":
	case "mongo":
		if cfg.MongoDB.URI == "" && cfg.MongoDB.Host == "" {
			return fmt.Errorf("MONGODB_URI or MONGODB_HOST is required for the mongo idempotency backend")
		}
	case "redis":
		if cfg.Redis.Addr == "" {
			return fmt.Errorf("REDIS_ADDR is required for the redis idempotency backend")
		}
	default:
		return fmt.Errorf("unknown IDEMPOTENCY_BACKEND %q", cfg.Idempotency.Backend)
	}

	if cfg.InfluxDB.URL != "" {
		if cfg.InfluxDB.Token == "" {
			return fmt.Errorf("INFLUXDB2_TOKEN is required when INFLUXDB2_URL is set")
		}
		if cfg.InfluxDB.Org == "" || cfg.InfluxDB.Bucket == "" {
			return fmt.Errorf("INFLUXDB2_ORG and INFLUXDB2_BUCKET are required when INFLUXDB2_URL is set")
		}
	}

	if cfg.Automation.Timeout <= 0 {
		return fmt.Errorf("automation timeout must be positive, got %s", cfg.Automation.Timeout)
	}
	if cfg.Automation.Enabled && cfg.Automation.WebhookURL == "" {
		return fmt.Errorf("N8N_WEBHOOK_URL is required when automation is enabled")
	}
	return nil
}

// Helper functions for environment variable access
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
