package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for the graph loader
type Config struct {
	// Target graph server
	Graph GraphConfig `yaml:"graph" json:"graph"`

	// Load job settings
	Load LoadConfig `yaml:"load" json:"load"`

	// Rate limiting for server writes
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Retry behavior for failed batch submissions
	Retry RetryConfig `yaml:"retry" json:"retry"`

	// Notification preferences
	Notifications NotificationConfig `yaml:"notifications" json:"notifications"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// GraphConfig holds the connection settings for the target graph server
type GraphConfig struct {
	Name     string        `yaml:"name" json:"name"`
	Host     string        `yaml:"host" json:"host"`
	Port     int           `yaml:"port" json:"port"`
	Username string        `yaml:"username" json:"username"`
	Token    string        `yaml:"token" json:"token"`
	Timeout  time.Duration `yaml:"timeout" json:"timeout"`
}

// graphConfigYAML mirrors GraphConfig with the timeout as a duration string,
// so config files can say "60s" instead of nanoseconds.
type graphConfigYAML struct {
	Name     string `yaml:"name"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Token    string `yaml:"token"`
	Timeout  string `yaml:"timeout"`
}

// UnmarshalYAML decodes the graph section, parsing the timeout as a Go
// duration string. Fields absent from the document keep their current values.
func (g *GraphConfig) UnmarshalYAML(value *yaml.Node) error {
	aux := graphConfigYAML{
		Name:     g.Name,
		Host:     g.Host,
		Port:     g.Port,
		Username: g.Username,
		Token:    g.Token,
		Timeout:  g.Timeout.String(),
	}
	if err := value.Decode(&aux); err != nil {
		return err
	}

	g.Name = aux.Name
	g.Host = aux.Host
	g.Port = aux.Port
	g.Username = aux.Username
	g.Token = aux.Token

	if aux.Timeout != "" {
		d, err := time.ParseDuration(aux.Timeout)
		if err != nil {
			return fmt.Errorf("invalid graph timeout %q: %w", aux.Timeout, err)
		}
		g.Timeout = d
	}

	return nil
}

// MarshalYAML encodes the timeout as a duration string.
func (g GraphConfig) MarshalYAML() (interface{}, error) {
	return graphConfigYAML{
		Name:     g.Name,
		Host:     g.Host,
		Port:     g.Port,
		Username: g.Username,
		Token:    g.Token,
		Timeout:  g.Timeout.String(),
	}, nil
}

// LoadConfig holds the settings of a single load job
type LoadConfig struct {
	Mapping         string `yaml:"mapping" json:"mapping"`
	WorkDir         string `yaml:"work_dir" json:"work_dir"`
	Incremental     bool   `yaml:"incremental" json:"incremental"`
	RetryFailures   bool   `yaml:"retry_failures" json:"retry_failures"`
	Concurrency     int    `yaml:"concurrency" json:"concurrency"`
	BatchSize       int    `yaml:"batch_size" json:"batch_size"`
	MaxParseErrors  int    `yaml:"max_parse_errors" json:"max_parse_errors"`
	MaxInsertErrors int    `yaml:"max_insert_errors" json:"max_insert_errors"`
	DryRun          bool   `yaml:"dry_run" json:"dry_run"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute" json:"requests_per_minute"`
	BurstSize         int `yaml:"burst_size" json:"burst_size"`
}

// RetryConfig holds retry configuration for batch submissions
type RetryConfig struct {
	MaxAttempts  int           `yaml:"max_attempts" json:"max_attempts"`
	InitialDelay time.Duration `yaml:"initial_delay" json:"initial_delay"`
	MaxDelay     time.Duration `yaml:"max_delay" json:"max_delay"`
	Multiplier   float64       `yaml:"multiplier" json:"multiplier"`
	Jitter       bool          `yaml:"jitter" json:"jitter"`
}

// retryConfigYAML mirrors RetryConfig with delays as duration strings.
type retryConfigYAML struct {
	MaxAttempts  int     `yaml:"max_attempts"`
	InitialDelay string  `yaml:"initial_delay"`
	MaxDelay     string  `yaml:"max_delay"`
	Multiplier   float64 `yaml:"multiplier"`
	Jitter       bool    `yaml:"jitter"`
}

// UnmarshalYAML decodes the retry section, parsing delays as Go duration
// strings. Fields absent from the document keep their current values.
func (r *RetryConfig) UnmarshalYAML(value *yaml.Node) error {
	aux := retryConfigYAML{
		MaxAttempts:  r.MaxAttempts,
		InitialDelay: r.InitialDelay.String(),
		MaxDelay:     r.MaxDelay.String(),
		Multiplier:   r.Multiplier,
		Jitter:       r.Jitter,
	}
	if err := value.Decode(&aux); err != nil {
		return err
	}

	r.MaxAttempts = aux.MaxAttempts
	r.Multiplier = aux.Multiplier
	r.Jitter = aux.Jitter

	if aux.InitialDelay != "" {
		d, err := time.ParseDuration(aux.InitialDelay)
		if err != nil {
			return fmt.Errorf("invalid retry initial delay %q: %w", aux.InitialDelay, err)
		}
		r.InitialDelay = d
	}
	if aux.MaxDelay != "" {
		d, err := time.ParseDuration(aux.MaxDelay)
		if err != nil {
			return fmt.Errorf("invalid retry max delay %q: %w", aux.MaxDelay, err)
		}
		r.MaxDelay = d
	}

	return nil
}

// MarshalYAML encodes delays as duration strings.
func (r RetryConfig) MarshalYAML() (interface{}, error) {
	return retryConfigYAML{
		MaxAttempts:  r.MaxAttempts,
		InitialDelay: r.InitialDelay.String(),
		MaxDelay:     r.MaxDelay.String(),
		Multiplier:   r.Multiplier,
		Jitter:       r.Jitter,
	}, nil
}

// NotificationConfig holds notification preferences
type NotificationConfig struct {
	Enabled          bool   `yaml:"enabled" json:"enabled"`
	OnComplete       bool   `yaml:"on_complete" json:"on_complete"`
	OnError          bool   `yaml:"on_error" json:"on_error"`
	NotificationType string `yaml:"notification_type" json:"notification_type"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Graph: GraphConfig{
			Host:    "localhost",
			Port:    8080,
			Timeout: 60 * time.Second,
		},
		Load: LoadConfig{
			Concurrency:     4,
			BatchSize:       500,
			MaxParseErrors:  32,
			MaxInsertErrors: 500,
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 600,
			BurstSize:         20,
		},
		Retry: RetryConfig{
			MaxAttempts:  3,
			InitialDelay: 1 * time.Second,
			MaxDelay:     30 * time.Second,
			Multiplier:   2.0,
			Jitter:       true,
		},
		Notifications: NotificationConfig{
			Enabled:          true,
			OnComplete:       true,
			OnError:          true,
			NotificationType: "terminal",
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	if graph := os.Getenv("GRAPHLOAD_GRAPH"); graph != "" {
		c.Graph.Name = graph
	}
	if host := os.Getenv("GRAPHLOAD_HOST"); host != "" {
		c.Graph.Host = host
	}
	if port := os.Getenv("GRAPHLOAD_PORT"); port != "" {
		var val int
		fmt.Sscanf(port, "%d", &val)
		if val > 0 {
			c.Graph.Port = val
		}
	}
	if username := os.Getenv("GRAPHLOAD_USERNAME"); username != "" {
		c.Graph.Username = username
	}
	if token := os.Getenv("GRAPHLOAD_TOKEN"); token != "" {
		c.Graph.Token = token
	}

	if workDir := os.Getenv("GRAPHLOAD_WORK_DIR"); workDir != "" {
		c.Load.WorkDir = workDir
	}
	if concurrency := os.Getenv("GRAPHLOAD_CONCURRENCY"); concurrency != "" {
		var val int
		fmt.Sscanf(concurrency, "%d", &val)
		if val > 0 {
			c.Load.Concurrency = val
		}
	}
	if batchSize := os.Getenv("GRAPHLOAD_BATCH_SIZE"); batchSize != "" {
		var val int
		fmt.Sscanf(batchSize, "%d", &val)
		if val > 0 {
			c.Load.BatchSize = val
		}
	}

	if rpm := os.Getenv("GRAPHLOAD_REQUESTS_PER_MINUTE"); rpm != "" {
		var val int
		fmt.Sscanf(rpm, "%d", &val)
		if val > 0 {
			c.RateLimit.RequestsPerMinute = val
		}
	}

	if notifEnabled := os.Getenv("GRAPHLOAD_NOTIFICATIONS_ENABLED"); notifEnabled != "" {
		c.Notifications.Enabled = strings.ToLower(notifEnabled) == "true"
	}

	if logLevel := os.Getenv("GRAPHLOAD_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}

	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	// Check in order of precedence
	locations := []string{
		".graphload.yaml",
		".graphload.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "graphload", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".config", "graphload", "config.yml"),
		filepath.Join(os.Getenv("HOME"), ".graphload.yaml"),
		filepath.Join(os.Getenv("HOME"), ".graphload.yml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var result *multierror.Error

	// Validate the mapping descriptor reference
	if c.Load.Mapping == "" {
		result = multierror.Append(result, fmt.Errorf("mapping file is required"))
	} else {
		ext := strings.ToLower(filepath.Ext(c.Load.Mapping))
		if ext != ".yaml" && ext != ".yml" {
			result = multierror.Append(result, fmt.Errorf("mapping file must end with .yaml or .yml"))
		}
		if info, err := os.Stat(c.Load.Mapping); err != nil || info.IsDir() {
			result = multierror.Append(result, fmt.Errorf("mapping file is not readable: %s", c.Load.Mapping))
		}
	}

	// Validate graph server settings
	if c.Graph.Host == "" {
		result = multierror.Append(result, fmt.Errorf("graph server host is required"))
	}
	if c.Graph.Port <= 0 || c.Graph.Port > 65535 {
		result = multierror.Append(result, fmt.Errorf("graph server port must be in range 1-65535"))
	}
	if c.Graph.Timeout <= 0 {
		result = multierror.Append(result, fmt.Errorf("graph server timeout must be positive"))
	}

	// Validate load settings
	if c.Load.Concurrency <= 0 {
		result = multierror.Append(result, fmt.Errorf("concurrency must be positive"))
	}
	if c.Load.Concurrency > 32 {
		result = multierror.Append(result, fmt.Errorf("concurrency should not exceed 32"))
	}
	if c.Load.BatchSize <= 0 {
		result = multierror.Append(result, fmt.Errorf("batch size must be positive"))
	}
	if c.Load.MaxParseErrors < 0 {
		result = multierror.Append(result, fmt.Errorf("max parse errors cannot be negative"))
	}
	if c.Load.MaxInsertErrors < 0 {
		result = multierror.Append(result, fmt.Errorf("max insert errors cannot be negative"))
	}
	if c.Load.RetryFailures && !c.Load.Incremental {
		result = multierror.Append(result, fmt.Errorf("retry-failures requires incremental mode"))
	}

	// Validate rate limiting
	if c.RateLimit.RequestsPerMinute <= 0 {
		result = multierror.Append(result, fmt.Errorf("requests per minute must be positive"))
	}
	if c.RateLimit.BurstSize <= 0 {
		result = multierror.Append(result, fmt.Errorf("burst size must be positive"))
	}

	// Validate retry settings
	if c.Retry.MaxAttempts <= 0 {
		result = multierror.Append(result, fmt.Errorf("retry max attempts must be positive"))
	}
	if c.Retry.Multiplier < 1.0 {
		result = multierror.Append(result, fmt.Errorf("retry multiplier must be at least 1.0"))
	}

	// Validate logging
	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		result = multierror.Append(result, fmt.Errorf("invalid log level"))
	}

	// Validate notification type
	validNotifTypes := map[string]bool{
		"terminal": true, "desktop": true, "none": true,
	}
	if !validNotifTypes[strings.ToLower(c.Notifications.NotificationType)] {
		result = multierror.Append(result, fmt.Errorf("invalid notification type"))
	}

	return result.ErrorOrNil()
}

// JobDir returns the working directory of this job's checkpoint and failure
// state. One distinct mapping file maps to one distinct directory unless
// work_dir pins it explicitly.
func (c *Config) JobDir() string {
	if c.Load.WorkDir != "" {
		return c.Load.WorkDir
	}
	base := filepath.Base(c.Load.Mapping)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(filepath.Dir(c.Load.Mapping), base)
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Create directory if it doesn't exist
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if mapping, ok := flags["mapping"].(string); ok && mapping != "" {
		c.Load.Mapping = mapping
	}
	if graph, ok := flags["graph"].(string); ok && graph != "" {
		c.Graph.Name = graph
	}
	if host, ok := flags["host"].(string); ok && host != "" {
		c.Graph.Host = host
	}
	if port, ok := flags["port"].(int); ok && port > 0 {
		c.Graph.Port = port
	}
	if username, ok := flags["username"].(string); ok && username != "" {
		c.Graph.Username = username
	}
	if token, ok := flags["token"].(string); ok && token != "" {
		c.Graph.Token = token
	}
	if workDir, ok := flags["work-dir"].(string); ok && workDir != "" {
		c.Load.WorkDir = workDir
	}
	if incremental, ok := flags["incremental"].(bool); ok {
		c.Load.Incremental = incremental
	}
	if retryFailures, ok := flags["retry-failures"].(bool); ok {
		c.Load.RetryFailures = retryFailures
	}
	if concurrency, ok := flags["concurrency"].(int); ok && concurrency > 0 {
		c.Load.Concurrency = concurrency
	}
	if batchSize, ok := flags["batch-size"].(int); ok && batchSize > 0 {
		c.Load.BatchSize = batchSize
	}
	if maxParse, ok := flags["max-parse-errors"].(int); ok && maxParse >= 0 {
		c.Load.MaxParseErrors = maxParse
	}
	if maxInsert, ok := flags["max-insert-errors"].(int); ok && maxInsert >= 0 {
		c.Load.MaxInsertErrors = maxInsert
	}
	if dryRun, ok := flags["dry-run"].(bool); ok {
		c.Load.DryRun = dryRun
	}
	if rpm, ok := flags["requests-per-minute"].(int); ok && rpm > 0 {
		c.RateLimit.RequestsPerMinute = rpm
	}
	if maxAttempts, ok := flags["max-attempts"].(int); ok && maxAttempts > 0 {
		c.Retry.MaxAttempts = maxAttempts
	}
	if enabled, ok := flags["notifications-enabled"].(bool); ok {
		c.Notifications.Enabled = enabled
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".env"))
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".graphload.env"))

	// Start with defaults
	config := DefaultConfig()

	// Load from config file
	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	// Override with environment variables (includes values from .env)
	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Override with command line flags
	config.MergeCommandLineFlags(flags)

	// Validate final configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
