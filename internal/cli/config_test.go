package cli

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/evcraddock/slidenotes/internal/client"
	"github.com/evcraddock/slidenotes/internal/syncengine"
)

// isolateConfig points HOME at a temp dir and clears SN_* overrides.
func isolateConfig(t *testing.T) string {
	t.Helper()
	tmp := t.TempDir()
	t.Setenv("HOME", tmp)
	for _, key := range []string{"SN_SERVER_URL", "SN_API_KEY", "SN_DECK", "SN_AUTHOR", "SN_LOG_FILE", "SN_REQUIRE_BACKEND", "SN_DEV"} {
		t.Setenv(key, "")
	}
	flagDeck = ""
	return tmp
}

func TestConfigSaveAndLoad(t *testing.T) {
	tmp := isolateConfig(t)

	cfg := CLIConfig{
		ServerURL: "http://myhost:9090",
		APIKey:    "sn_testapikey123",
		Deck:      "q3-review",
	}

	if err := saveConfig(cfg); err != nil {
		t.Fatalf("save: %v", err)
	}

	path := filepath.Join(tmp, ".config", "sn", "config.yaml")
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config file not found: %v", err)
	}

	loaded, err := loadConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.ServerURL != cfg.ServerURL {
		t.Errorf("server_url = %q, want %q", loaded.ServerURL, cfg.ServerURL)
	}
	if loaded.APIKey != cfg.APIKey {
		t.Errorf("api_key = %q, want %q", loaded.APIKey, cfg.APIKey)
	}
	if loaded.Deck != cfg.Deck {
		t.Errorf("deck = %q, want %q", loaded.Deck, cfg.Deck)
	}
}

func TestConfigLoadMissing(t *testing.T) {
	isolateConfig(t)

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("load missing: %v", err)
	}
	if cfg.ServerURL != "" || cfg.APIKey != "" {
		t.Error("expected zero-value config for missing file")
	}
}

func TestConfigLoadMalformed(t *testing.T) {
	tmp := isolateConfig(t)

	path := filepath.Join(tmp, ".config", "sn", "config.yaml")
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("sync: [not, a, map"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, err := loadConfig(); err == nil {
		t.Fatal("expected error for malformed config")
	}
}

func TestSettingsDefaults(t *testing.T) {
	isolateConfig(t)
	t.Setenv("USER", "dana")

	s, err := loadSettings()
	if err != nil {
		t.Fatalf("settings: %v", err)
	}
	if s.Deck != defaultDeck {
		t.Errorf("deck = %q, want %q", s.Deck, defaultDeck)
	}
	if s.Engine.Author != "dana" {
		t.Errorf("author = %q, want dana", s.Engine.Author)
	}
	if s.Engine.PollInterval != time.Second || s.Engine.ErrorAfter != 3 || s.Engine.FallbackAfter != 10 {
		t.Errorf("engine defaults = %+v", s.Engine)
	}
	if !s.Engine.SkipUnchangedSnapshots {
		t.Error("expected unchanged snapshots to be skipped by default")
	}
	if s.endpoints() != (client.Endpoints{}) {
		t.Errorf("endpoints = %+v, want none", s.endpoints())
	}
}

func TestSettingsFromFile(t *testing.T) {
	tmp := isolateConfig(t)

	yaml := `server_url: http://backend:8080
api_key: k1
deck: launch
author: Ana
default_slide: s0
require_backend: true
placeholder_authors: [Service Account]
sync:
  poll_interval: 2s
  error_after: 5
  fallback_after: 20
  position_epsilon: 0.5
  skip_unchanged: false
  skip_poll_window: 10s
  persist_debounce: 300ms
`
	path := filepath.Join(tmp, ".config", "sn", "config.yaml")
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	s, err := loadSettings()
	if err != nil {
		t.Fatalf("settings: %v", err)
	}

	e := s.Engine
	if e.PollInterval != 2*time.Second || e.ErrorAfter != 5 || e.FallbackAfter != 20 {
		t.Errorf("thresholds = %v/%d/%d", e.PollInterval, e.ErrorAfter, e.FallbackAfter)
	}
	if e.PositionEpsilon != 0.5 || e.SkipUnchangedSnapshots {
		t.Errorf("merge settings = %v/%v", e.PositionEpsilon, e.SkipUnchangedSnapshots)
	}
	if e.SkipPollWindow != 10*time.Second || e.PersistDebounce != 300*time.Millisecond {
		t.Errorf("windows = %v/%v", e.SkipPollWindow, e.PersistDebounce)
	}
	if !e.RequireBackend || e.Author != "Ana" || e.DefaultSlideID != "s0" {
		t.Errorf("engine = %+v", e)
	}
	if len(s.PlaceholderAuthors) != 1 || s.PlaceholderAuthors[0] != "Service Account" {
		t.Errorf("placeholders = %v", s.PlaceholderAuthors)
	}

	want := "http://backend:8080/api/decks/launch/comments/read"
	if got := s.endpoints().Read; got != want {
		t.Errorf("read endpoint = %q, want %q", got, want)
	}
}

func TestSettingsZeroPositionEpsilon(t *testing.T) {
	tmp := isolateConfig(t)

	path := filepath.Join(tmp, ".config", "sn", "config.yaml")
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("sync:\n  position_epsilon: 0\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	s, err := loadSettings()
	if err != nil {
		t.Fatalf("settings: %v", err)
	}
	if s.Engine.PositionEpsilon != 0 {
		t.Errorf("position epsilon = %v, want 0", s.Engine.PositionEpsilon)
	}
	if syncengine.DefaultConfig().PositionEpsilon == 0 {
		t.Fatal("default epsilon is already zero; the override is not observable")
	}
}

func TestSettingsEnvOverrides(t *testing.T) {
	isolateConfig(t)
	if err := saveConfig(CLIConfig{ServerURL: "http://file:1", APIKey: "file-key", Deck: "file-deck"}); err != nil {
		t.Fatalf("save: %v", err)
	}

	t.Setenv("SN_SERVER_URL", "http://env:2")
	t.Setenv("SN_API_KEY", "env-key")
	t.Setenv("SN_DECK", "env-deck")
	t.Setenv("SN_AUTHOR", "Env Author")
	t.Setenv("SN_REQUIRE_BACKEND", "true")

	s, err := loadSettings()
	if err != nil {
		t.Fatalf("settings: %v", err)
	}
	if s.ServerURL != "http://env:2" || s.APIKey != "env-key" || s.Deck != "env-deck" {
		t.Errorf("settings = %+v", s)
	}
	if s.Engine.Author != "Env Author" || !s.Engine.RequireBackend {
		t.Errorf("engine = %+v", s.Engine)
	}

	flagDeck = "flag-deck"
	t.Cleanup(func() { flagDeck = "" })
	s, err = loadSettings()
	if err != nil {
		t.Fatalf("settings: %v", err)
	}
	if s.Deck != "flag-deck" {
		t.Errorf("deck = %q, want flag-deck", s.Deck)
	}
}

func TestSettingsInvalidBool(t *testing.T) {
	isolateConfig(t)
	t.Setenv("SN_REQUIRE_BACKEND", "maybe")

	if _, err := loadSettings(); err == nil {
		t.Fatal("expected error for invalid SN_REQUIRE_BACKEND")
	}
}

func TestEndpointsExplicitWin(t *testing.T) {
	s := settings{
		ServerURL: "http://ignored",
		Deck:      "d",
		Endpoints: client.Endpoints{Read: "r", Create: "c", Update: "u", Delete: "x"},
	}
	if got := s.endpoints(); got.Read != "r" || got.Delete != "x" {
		t.Errorf("endpoints = %+v", got)
	}
}

func TestStoreNewKey(t *testing.T) {
	isolateConfig(t)

	key, err := storeNewKey(9000)
	if err != nil {
		t.Fatalf("store key: %v", err)
	}

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIKey != key || cfg.ServerURL != "http://localhost:9000" {
		t.Errorf("config = %+v", cfg)
	}
}
