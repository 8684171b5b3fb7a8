package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/evcraddock/slidenotes/internal/client"
	"github.com/evcraddock/slidenotes/internal/syncengine"
)

const defaultDeck = "default"

// CLIConfig holds CLI configuration persisted to disk.
type CLIConfig struct {
	ServerURL          string           `yaml:"server_url,omitempty"`
	APIKey             string           `yaml:"api_key,omitempty"`
	Deck               string           `yaml:"deck,omitempty"`
	Author             string           `yaml:"author,omitempty"`
	DefaultSlide       string           `yaml:"default_slide,omitempty"`
	Endpoints          client.Endpoints `yaml:"endpoints,omitempty"`
	PlaceholderAuthors []string         `yaml:"placeholder_authors,omitempty"`
	RequireBackend     bool             `yaml:"require_backend,omitempty"`
	Sync               SyncConfig       `yaml:"sync,omitempty"`
	LogFile            string           `yaml:"log_file,omitempty"`
	Dev                bool             `yaml:"dev,omitempty"`
}

// SyncConfig tunes the sync engine. Zero values keep the defaults; the
// pointer fields are applied whenever they are set, zero included.
type SyncConfig struct {
	PollInterval    time.Duration `yaml:"poll_interval,omitempty"`
	ErrorAfter      int           `yaml:"error_after,omitempty"`
	FallbackAfter   int           `yaml:"fallback_after,omitempty"`
	PositionEpsilon *float64      `yaml:"position_epsilon,omitempty"`
	SkipUnchanged   *bool         `yaml:"skip_unchanged,omitempty"`
	SkipPollWindow  time.Duration `yaml:"skip_poll_window,omitempty"`
	PersistDebounce time.Duration `yaml:"persist_debounce,omitempty"`
}

// configPath returns the path to the CLI config file.
func configPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("finding home directory: %w", err)
	}
	return filepath.Join(home, ".config", "sn", "config.yaml"), nil
}

// loadConfig reads the CLI config from disk.
// Returns a zero-value config if the file doesn't exist.
func loadConfig() (CLIConfig, error) {
	path, err := configPath()
	if err != nil {
		return CLIConfig{}, err
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return CLIConfig{}, nil
	}
	if err != nil {
		return CLIConfig{}, fmt.Errorf("reading config: %w", err)
	}

	var cfg CLIConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return CLIConfig{}, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// saveConfig writes the CLI config to disk.
func saveConfig(cfg CLIConfig) error {
	path, err := configPath()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// settings is the effective configuration: file, then SN_* environment
// variables, then flags.
type settings struct {
	ServerURL          string
	APIKey             string
	Deck               string
	Endpoints          client.Endpoints
	PlaceholderAuthors []string
	Engine             syncengine.Config
	LogFile            string
	DevMode            bool
}

// loadSettings resolves the effective configuration.
func loadSettings() (settings, error) {
	cfg, err := loadConfig()
	if err != nil {
		return settings{}, err
	}

	s := settings{
		ServerURL:          cfg.ServerURL,
		APIKey:             cfg.APIKey,
		Deck:               cfg.Deck,
		Endpoints:          cfg.Endpoints,
		PlaceholderAuthors: cfg.PlaceholderAuthors,
		LogFile:            cfg.LogFile,
		DevMode:            cfg.Dev,
	}

	e := syncengine.DefaultConfig()
	if cfg.Sync.PollInterval > 0 {
		e.PollInterval = cfg.Sync.PollInterval
	}
	if cfg.Sync.ErrorAfter > 0 {
		e.ErrorAfter = cfg.Sync.ErrorAfter
	}
	if cfg.Sync.FallbackAfter > 0 {
		e.FallbackAfter = cfg.Sync.FallbackAfter
	}
	if eps := cfg.Sync.PositionEpsilon; eps != nil && *eps >= 0 {
		e.PositionEpsilon = *eps
	}
	if cfg.Sync.SkipUnchanged != nil {
		e.SkipUnchangedSnapshots = *cfg.Sync.SkipUnchanged
	}
	if cfg.Sync.SkipPollWindow > 0 {
		e.SkipPollWindow = cfg.Sync.SkipPollWindow
	}
	e.PersistDebounce = cfg.Sync.PersistDebounce
	e.RequireBackend = cfg.RequireBackend
	e.Author = cfg.Author
	e.DefaultSlideID = cfg.DefaultSlide

	if v := os.Getenv("SN_SERVER_URL"); v != "" {
		s.ServerURL = v
	}
	if v := os.Getenv("SN_API_KEY"); v != "" {
		s.APIKey = v
	}
	if v := os.Getenv("SN_DECK"); v != "" {
		s.Deck = v
	}
	if v := os.Getenv("SN_AUTHOR"); v != "" {
		e.Author = v
	}
	if v := os.Getenv("SN_LOG_FILE"); v != "" {
		s.LogFile = v
	}
	if v := os.Getenv("SN_REQUIRE_BACKEND"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return settings{}, fmt.Errorf("parsing SN_REQUIRE_BACKEND: %w", err)
		}
		e.RequireBackend = b
	}
	if v := os.Getenv("SN_DEV"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return settings{}, fmt.Errorf("parsing SN_DEV: %w", err)
		}
		s.DevMode = b
	}

	if flagDeck != "" {
		s.Deck = flagDeck
	}
	if s.Deck == "" {
		s.Deck = defaultDeck
	}
	if e.Author == "" {
		e.Author = os.Getenv("USER")
	}
	if e.Author == "" {
		e.Author = "anonymous"
	}

	s.Engine = e
	return s, nil
}

// endpoints returns the configured backend endpoints. Explicit endpoints
// win over the server URL. The zero value means no backend.
func (s settings) endpoints() client.Endpoints {
	if s.Endpoints != (client.Endpoints{}) {
		return s.Endpoints
	}
	if s.ServerURL != "" {
		return client.ForServer(s.ServerURL, s.Deck)
	}
	return client.Endpoints{}
}
