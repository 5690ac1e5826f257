// Package policy loads dashboard configuration and resolves endpoint descriptors.
package policy

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jaakkos/statusboard/internal/domain"
)

// Host profiles. Both describe the same interface, deployed in different places.
const (
	ProfileExternal = "external"
	ProfileInternal = "internal"
)

const externalHost = "aw-project3855-w2025.eastus2.cloudapp.azure.com"

// GlobalStateDir returns the default state directory (~/.config/statusboard).
func GlobalStateDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.TempDir()
	}
	return filepath.Join(home, ".config", "statusboard")
}

// HostsConfig overrides the hosts picked by the profile. Empty means "use the profile".
type HostsConfig struct {
	Stats    string `yaml:"stats"`
	Analyzer string `yaml:"analyzer"`
}

// PortsConfig holds the fixed service ports.
type PortsConfig struct {
	Stats    int `yaml:"stats"`
	Analyzer int `yaml:"analyzer"`
}

// IntervalConfig bounds the randomized poll interval, in milliseconds. Half-open: [MinMs, MaxMs).
type IntervalConfig struct {
	MinMs int `yaml:"min_ms"`
	MaxMs int `yaml:"max_ms"`
}

// ConsoleConfig controls the terminal display.
type ConsoleConfig struct {
	Mode string `yaml:"mode"` // auto (default), on, off
}

// JournalConfig controls the optional SQLite update journal.
type JournalConfig struct {
	Enabled      bool   `yaml:"enabled"`
	Path         string `yaml:"path"`
	RetentionMax int    `yaml:"retention_max"` // newest rows kept per element; 0 keeps everything
}

// WatchdogConfig controls stale-panel reporting.
type WatchdogConfig struct {
	StaleAfterSeconds int `yaml:"stale_after_seconds"` // 0 disables the watchdog
}

// MCPConfig controls the read-only MCP endpoint at /mcp.
type MCPConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Config holds dashboard configuration
type Config struct {
	Profile               string         `yaml:"profile"`
	Hosts                 HostsConfig    `yaml:"hosts"`
	Ports                 PortsConfig    `yaml:"ports"`
	Interval              IntervalConfig `yaml:"interval"`
	RequestTimeoutSeconds int            `yaml:"request_timeout_seconds"`
	TimeLayout            string         `yaml:"time_layout"`
	HTTPPort              int            `yaml:"http_port"`
	LogFile               string         `yaml:"log_file"`
	Console               ConsoleConfig  `yaml:"console"`
	Journal               JournalConfig  `yaml:"journal"`
	Watchdog              WatchdogConfig `yaml:"watchdog"`
	MCP                   MCPConfig      `yaml:"mcp"`
}

// DefaultConfig returns the external profile polling every 2-4 seconds.
func DefaultConfig() *Config {
	return &Config{
		Profile:    ProfileExternal,
		Ports:      PortsConfig{Stats: 8110, Analyzer: 8100},
		Interval:   IntervalConfig{MinMs: 2000, MaxMs: 4000},
		TimeLayout: "3:04:05 PM",
		HTTPPort:   8080,
		Console:    ConsoleConfig{Mode: "auto"},
		Journal:    JournalConfig{RetentionMax: 5000},
		Watchdog:   WatchdogConfig{StaleAfterSeconds: 30},
		MCP:        MCPConfig{Enabled: true},
	}
}

// LoadConfig loads configuration from a YAML file on top of DefaultConfig.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges that would otherwise produce a broken poller.
func (c *Config) Validate() error {
	switch c.Profile {
	case ProfileExternal, ProfileInternal:
	default:
		return fmt.Errorf("config: unknown profile %q (want %s or %s)", c.Profile, ProfileExternal, ProfileInternal)
	}
	if !validPort(c.Ports.Stats) || !validPort(c.Ports.Analyzer) {
		return fmt.Errorf("config: ports must be in 1..65535 (stats=%d analyzer=%d)", c.Ports.Stats, c.Ports.Analyzer)
	}
	if c.Interval.MinMs <= 0 || c.Interval.MaxMs <= c.Interval.MinMs {
		return fmt.Errorf("config: interval requires 0 < min_ms < max_ms (got %d, %d)", c.Interval.MinMs, c.Interval.MaxMs)
	}
	if c.RequestTimeoutSeconds < 0 {
		return fmt.Errorf("config: request_timeout_seconds must be >= 0")
	}
	if c.Journal.RetentionMax < 0 {
		return fmt.Errorf("config: journal.retention_max must be >= 0")
	}
	if c.Watchdog.StaleAfterSeconds < 0 {
		return fmt.Errorf("config: watchdog.stale_after_seconds must be >= 0")
	}
	if c.HTTPPort < 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("config: http_port must be in 0..65535")
	}
	switch strings.ToLower(c.Console.Mode) {
	case "", "auto", "on", "off":
	default:
		return fmt.Errorf("config: console.mode must be auto, on or off")
	}
	return nil
}

func validPort(p int) bool { return p > 0 && p <= 65535 }

// Policy exposes resolved configuration values.
type Policy struct {
	config    *Config
	endpoints []domain.Endpoint
}

// New resolves the endpoint descriptors once. They do not change for the
// lifetime of the Policy.
func New(cfg *Config) *Policy {
	return &Policy{config: cfg, endpoints: resolveEndpoints(cfg)}
}

func resolveEndpoints(cfg *Config) []domain.Endpoint {
	statsHost, analyzerHost := externalHost, externalHost
	if cfg.Profile == ProfileInternal {
		statsHost, analyzerHost = "processing", "analyzer"
	}
	if cfg.Hosts.Stats != "" {
		statsHost = cfg.Hosts.Stats
	}
	if cfg.Hosts.Analyzer != "" {
		analyzerHost = cfg.Hosts.Analyzer
	}
	return []domain.Endpoint{
		{
			Name:    domain.EndpointStats,
			URL:     fmt.Sprintf("http://%s:%d/stats", statsHost, cfg.Ports.Stats),
			Element: domain.ElementStats,
			Stamp:   true,
		},
		{
			Name:    domain.EndpointAnalyzer,
			URL:     fmt.Sprintf("http://%s:%d/analyzer", analyzerHost, cfg.Ports.Analyzer),
			Element: domain.ElementAnalyzer,
		},
		{
			Name:    domain.EndpointRandomEvent,
			URL:     fmt.Sprintf("http://%s:%d/random-event", analyzerHost, cfg.Ports.Analyzer),
			Element: domain.ElementRandomEvent,
		},
	}
}

// Endpoints returns a copy of the three endpoint descriptors.
func (p *Policy) Endpoints() []domain.Endpoint {
	out := make([]domain.Endpoint, len(p.endpoints))
	copy(out, p.endpoints)
	return out
}

// IntervalBounds returns the half-open poll interval range.
func (p *Policy) IntervalBounds() (time.Duration, time.Duration) {
	return time.Duration(p.config.Interval.MinMs) * time.Millisecond,
		time.Duration(p.config.Interval.MaxMs) * time.Millisecond
}

// RequestTimeout returns the per-request timeout; zero means none.
func (p *Policy) RequestTimeout() time.Duration {
	return time.Duration(p.config.RequestTimeoutSeconds) * time.Second
}

// TimeLayout returns the layout used for the last-updated stamp.
func (p *Policy) TimeLayout() string {
	if p.config.TimeLayout == "" {
		return "3:04:05 PM"
	}
	return p.config.TimeLayout
}

// HTTPPort returns the dashboard listener port (0 = auto-assign).
func (p *Policy) HTTPPort() int {
	return p.config.HTTPPort
}

// ConsoleMode returns auto, on or off.
func (p *Policy) ConsoleMode() string {
	m := strings.ToLower(p.config.Console.Mode)
	if m == "" {
		return "auto"
	}
	return m
}

// LogFile returns the configured log file path.
// If unset, defaults to ~/.config/statusboard/statusboard.log.
// Set to "none" or "off" to disable file logging entirely.
func (p *Policy) LogFile() string {
	if p.config.LogFile == "" {
		return filepath.Join(GlobalStateDir(), "statusboard.log")
	}
	return p.config.LogFile
}

// JournalEnabled reports whether rendered updates are recorded.
func (p *Policy) JournalEnabled() bool {
	return p.config.Journal.Enabled
}

// JournalPath returns the journal database path.
func (p *Policy) JournalPath() string {
	if p.config.Journal.Path == "" {
		return filepath.Join(GlobalStateDir(), "journal.sqlite")
	}
	return p.config.Journal.Path
}

// JournalRetentionMax returns how many rows per element the journal keeps.
func (p *Policy) JournalRetentionMax() int {
	return p.config.Journal.RetentionMax
}

// SignalFilePath returns the notify signal file, kept next to the journal.
// Followers watch it instead of the SQLite WAL.
func (p *Policy) SignalFilePath() string {
	return filepath.Join(filepath.Dir(p.JournalPath()), ".statusboard-notify")
}

// StaleAfter returns how long a panel may go without a write before the
// watchdog reports it; zero disables the watchdog.
func (p *Policy) StaleAfter() time.Duration {
	return time.Duration(p.config.Watchdog.StaleAfterSeconds) * time.Second
}

// MCPEnabled reports whether /mcp is served.
func (p *Policy) MCPEnabled() bool {
	return p.config.MCP.Enabled
}
