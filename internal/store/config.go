package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

const (
	FormatAuto = "auto"
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

var (
	ErrMissingPath = errors.New("watch.path must be set")
	ErrBadInterval = errors.New("refresh.interval_seconds must be positive")
)

type Config struct {
	Watch struct {
		Path       string   `yaml:"path"`
		Format     string   `yaml:"format"`
		Delimiter  string   `yaml:"delimiter"`
		Sheet      string   `yaml:"sheet"`
		NullTokens []string `yaml:"null_tokens"`
	} `yaml:"watch"`
	Refresh struct {
		IntervalSeconds int `yaml:"interval_seconds"`
	} `yaml:"refresh"`
	Server struct {
		Addr        string   `yaml:"addr"`
		APIPrefix   string   `yaml:"api_prefix"`
		CORSOrigins []string `yaml:"cors_origins"`
		GinMode     string   `yaml:"gin_mode"`
	} `yaml:"server"`
	WebSocket struct {
		Enabled *bool  `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"websocket"`
	Journal struct {
		Enabled       *bool  `yaml:"enabled"`
		Dir           string `yaml:"dir"`
		RetentionDays int    `yaml:"retention_days"`
	} `yaml:"journal"`
	Kafka struct {
		Brokers []string `yaml:"brokers"`
		Topic   string   `yaml:"topic"`
	} `yaml:"kafka"`
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Watch.Path) == "" {
		return ErrMissingPath
	}
	switch c.Watch.Format {
	case FormatAuto, FormatCSV, FormatXLSX:
	default:
		return fmt.Errorf("invalid watch.format '%s': must be 'auto', 'csv' or 'xlsx'", c.Watch.Format)
	}
	if utf8.RuneCountInString(c.Watch.Delimiter) != 1 {
		return fmt.Errorf("watch.delimiter must be a single character, got %q", c.Watch.Delimiter)
	}
	if d := c.Delimiter(); d == '"' || d == '\r' || d == '\n' || d == utf8.RuneError {
		return fmt.Errorf("watch.delimiter %q cannot be used", c.Watch.Delimiter)
	}
	if c.Refresh.IntervalSeconds <= 0 {
		return ErrBadInterval
	}
	if !strings.HasPrefix(c.Server.APIPrefix, "/") {
		return fmt.Errorf("server.api_prefix must start with '/', got '%s'", c.Server.APIPrefix)
	}
	if c.Journal.RetentionDays < 0 {
		return fmt.Errorf("journal.retention_days cannot be negative, got %d", c.Journal.RetentionDays)
	}
	return nil
}

// Delimiter returns the configured field separator as a rune.
func (c *Config) Delimiter() rune {
	r, _ := utf8.DecodeRuneInString(c.Watch.Delimiter)
	return r
}

// ResolvedFormat maps "auto" to a concrete format using the file extension.
func (c *Config) ResolvedFormat() string {
	if c.Watch.Format != FormatAuto {
		return c.Watch.Format
	}
	switch strings.ToLower(filepath.Ext(c.Watch.Path)) {
	case ".xlsx", ".xlsm":
		return FormatXLSX
	default:
		return FormatCSV
	}
}

func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.Refresh.IntervalSeconds) * time.Second
}

func (c *Config) WebSocketEnabled() bool {
	return c.WebSocket.Enabled == nil || *c.WebSocket.Enabled
}

func (c *Config) JournalEnabled() bool {
	return c.Journal.Enabled == nil || *c.Journal.Enabled
}

func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseConfig(b)
}

// ParseConfig decodes YAML, applies defaults and environment overrides, and
// validates the result.
func ParseConfig(b []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	if v := os.Getenv("TRADES_FILE"); v != "" {
		c.Watch.Path = v
	}
	if c.Watch.Format == "" {
		c.Watch.Format = FormatAuto
	}
	if c.Watch.Delimiter == "" {
		c.Watch.Delimiter = ","
	}
	if c.Watch.NullTokens == nil {
		c.Watch.NullTokens = []string{"########"}
	}
	if c.Refresh.IntervalSeconds == 0 {
		c.Refresh.IntervalSeconds = 60
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8000"
	}
	if c.Server.APIPrefix == "" {
		c.Server.APIPrefix = "/api"
	}
	c.Server.APIPrefix = strings.TrimSuffix(c.Server.APIPrefix, "/")
	if c.Server.APIPrefix == "" {
		c.Server.APIPrefix = "/"
	}
	if len(c.Server.CORSOrigins) == 0 {
		c.Server.CORSOrigins = []string{"*"}
	}
	if c.Server.GinMode == "" {
		c.Server.GinMode = "release"
	}
	if c.WebSocket.Path == "" {
		c.WebSocket.Path = "/ws/trades"
	}
	if c.Journal.Dir == "" {
		c.Journal.Dir = filepath.Join("logs", "reloads")
	}
	if c.Kafka.Topic == "" {
		c.Kafka.Topic = "trade-snapshots"
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &c, nil
}
