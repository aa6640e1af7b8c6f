package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Security  SecurityConfig  `yaml:"security" envconfig:"SECURITY"`
	License   LicenseConfig   `yaml:"license" envconfig:"LICENSE"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Paths     PathsConfig     `yaml:"paths" envconfig:"PATHS"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" default:"3000"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"15s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES" default:"1048576"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	// SigningSecret is the shared secret behind every issued token. Leaking it
	// forges arbitrary admin and activation tokens.
	SigningSecret string `yaml:"signing_secret" envconfig:"SIGNING_SECRET"`

	// AdminPassword is compared by exact match on login. AdminPasswordHash, when
	// set, takes precedence and is compared with bcrypt instead.
	AdminPassword     string `yaml:"admin_password" envconfig:"ADMIN_PASSWORD"`
	AdminPasswordHash string `yaml:"admin_password_hash" envconfig:"ADMIN_PASSWORD_HASH"`

	// AdminAuthEnabled gates administrative operations behind a verified admin
	// token. Disabling it is an explicit test-environment escape hatch.
	AdminAuthEnabled bool `yaml:"admin_auth_enabled" envconfig:"ADMIN_AUTH_ENABLED" default:"true"`

	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS" default:"http://localhost:3000"`
	EnableCORS     bool            `yaml:"enable_cors" envconfig:"ENABLE_CORS" default:"true"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED" default:"true"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" default:"20"`
	Burst   int     `yaml:"burst" envconfig:"BURST" default:"10"`
}

// LicenseConfig contains license issuance and token configuration
type LicenseConfig struct {
	SerialPrefix       string        `yaml:"serial_prefix" envconfig:"SERIAL_PREFIX" default:"MORO"`
	AdminTokenTTL      time.Duration `yaml:"admin_token_ttl" envconfig:"ADMIN_TOKEN_TTL" default:"12h"`
	ActivationTokenTTL time.Duration `yaml:"activation_token_ttl" envconfig:"ACTIVATION_TOKEN_TTL" default:"720h"`
	MaxBatchQuantity   int           `yaml:"max_batch_quantity" envconfig:"MAX_BATCH_QUANTITY" default:"100"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Format   string `yaml:"format" envconfig:"FORMAT" default:"json"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"stdout"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/license-server.log"`
}

// PathsConfig contains file system paths configuration
type PathsConfig struct {
	DataDir     string `yaml:"data_dir" envconfig:"DATA_DIR" default:"data"`
	LicenseFile string `yaml:"license_file" envconfig:"LICENSE_FILE" default:"licenses.json"`
	LogsDir     string `yaml:"logs_dir" envconfig:"LOGS_DIR" default:"logs"`
}

// TelemetryConfig contains observability configuration
type TelemetryConfig struct {
	EnableTracing bool    `yaml:"enable_tracing" envconfig:"ENABLE_TRACING" default:"false"`
	EnableMetrics bool    `yaml:"enable_metrics" envconfig:"ENABLE_METRICS" default:"true"`
	SampleRatio   float64 `yaml:"sample_ratio" envconfig:"SAMPLE_RATIO" default:"1.0"`
}

// Load loads configuration from environment variables and config file
func Load() (*Config, error) {
	var cfg Config

	// Load from environment variables first
	if err := envconfig.Process("KEYMINT", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	// Load from config file if exists
	configFile := getConfigFilePath()
	if configFile != "" {
		fileConfig, err := loadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
		cfg = mergeConfigs(*fileConfig, cfg)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadFromFile loads configuration from YAML file
func loadFromFile(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// mergeConfigs merges file config with env config (env takes precedence)
func mergeConfigs(fileConfig, envConfig Config) Config {
	if envConfig.Server.Port == 0 {
		envConfig.Server.Port = fileConfig.Server.Port
	}
	if envConfig.Security.SigningSecret == "" {
		envConfig.Security.SigningSecret = fileConfig.Security.SigningSecret
	}
	if envConfig.Security.AdminPassword == "" {
		envConfig.Security.AdminPassword = fileConfig.Security.AdminPassword
	}
	if envConfig.Security.AdminPasswordHash == "" {
		envConfig.Security.AdminPasswordHash = fileConfig.Security.AdminPasswordHash
	}
	if envConfig.License.SerialPrefix == "" {
		envConfig.License.SerialPrefix = fileConfig.License.SerialPrefix
	}
	if envConfig.Paths.DataDir == "" {
		envConfig.Paths.DataDir = fileConfig.Paths.DataDir
	}
	if envConfig.Paths.LicenseFile == "" {
		envConfig.Paths.LicenseFile = fileConfig.Paths.LicenseFile
	}

	return envConfig
}

// LicenseFilePath returns the resolved path of the license store file
func (c *Config) LicenseFilePath() string {
	if filepath.IsAbs(c.Paths.LicenseFile) {
		return c.Paths.LicenseFile
	}
	return filepath.Join(c.Paths.DataDir, c.Paths.LicenseFile)
}

// EnsureDirectories creates the data and logs directories if missing
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogsDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// validate validates the configuration
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Security.SigningSecret == "" {
		return fmt.Errorf("signing secret must be configured")
	}

	if c.Security.AdminAuthEnabled && c.Security.AdminPassword == "" && c.Security.AdminPasswordHash == "" {
		return fmt.Errorf("admin password must be configured when admin auth is enabled")
	}

	if len(c.Security.AllowedOrigins) == 0 {
		return fmt.Errorf("at least one allowed origin must be specified")
	}

	if c.License.SerialPrefix == "" {
		return fmt.Errorf("serial prefix must not be empty")
	}

	if c.License.MaxBatchQuantity <= 0 {
		return fmt.Errorf("max batch quantity must be positive")
	}

	if c.License.AdminTokenTTL <= 0 || c.License.ActivationTokenTTL <= 0 {
		return fmt.Errorf("token TTLs must be positive")
	}

	return nil
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	locations := []string{
		"config.yaml",
		"configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return "" // No config file found, use env vars only
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            3000,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			MaxHeaderBytes:  1 << 20, // 1MB
			ShutdownTimeout: 30 * time.Second,
		},
		Security: SecurityConfig{
			AdminAuthEnabled: true,
			AllowedOrigins:   []string{"http://localhost:3000"},
			EnableCORS:       true,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     20,
				Burst:   10,
			},
		},
		License: LicenseConfig{
			SerialPrefix:       "MORO",
			AdminTokenTTL:      12 * time.Hour,
			ActivationTokenTTL: 30 * 24 * time.Hour,
			MaxBatchQuantity:   100,
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "stdout",
			FilePath: "logs/license-server.log",
		},
		Paths: PathsConfig{
			DataDir:     "data",
			LicenseFile: "licenses.json",
			LogsDir:     "logs",
		},
		Telemetry: TelemetryConfig{
			EnableTracing: false,
			EnableMetrics: true,
			SampleRatio:   1.0,
		},
	}
}
