package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNewDefaultConfig(t *testing.T) {
	config := NewDefaultConfig()

	if config.Server.Port != 8085 {
		t.Errorf("Port = %d, want 8085", config.Server.Port)
	}
	if config.Provider.Kind != "eodhd" {
		t.Errorf("Provider.Kind = %q, want eodhd", config.Provider.Kind)
	}
	if config.Provider.Timeout.Duration() != 30*time.Second {
		t.Errorf("Provider.Timeout = %v, want 30s", config.Provider.Timeout)
	}
	if config.Cache.FundamentalsTTL.Duration() != 90*24*time.Hour {
		t.Errorf("FundamentalsTTL = %v, want 90 days", config.Cache.FundamentalsTTL)
	}
	if config.Screener.Stage1Cap != 75 {
		t.Errorf("Stage1Cap = %d, want 75", config.Screener.Stage1Cap)
	}
}

func TestLoadFromFiles_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "funnel.toml")
	content := `
environment = "production"

[server]
port = 9090

[provider]
kind = "eodhd"
api_key = "abc123"
timeout = "10s"

[cache]
technicals_ttl = "6h"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	config, err := LoadFromFiles(path)
	if err != nil {
		t.Fatalf("LoadFromFiles() error = %v", err)
	}

	if config.Server.Port != 9090 {
		t.Errorf("Port = %d, want 9090", config.Server.Port)
	}
	if config.Provider.APIKey != "abc123" {
		t.Errorf("APIKey = %q, want abc123", config.Provider.APIKey)
	}
	if config.Provider.Timeout.Duration() != 10*time.Second {
		t.Errorf("Timeout = %v, want 10s", config.Provider.Timeout)
	}
	if config.Cache.TechnicalsTTL.Duration() != 6*time.Hour {
		t.Errorf("TechnicalsTTL = %v, want 6h", config.Cache.TechnicalsTTL)
	}
	// Untouched values keep their defaults.
	if config.Cache.OwnershipTTL.Duration() != 7*24*time.Hour {
		t.Errorf("OwnershipTTL = %v, want default 7 days", config.Cache.OwnershipTTL)
	}
	if !config.IsProduction() {
		t.Error("IsProduction() = false, want true")
	}
}

func TestLoadFromFiles_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "funnel.toml")
	if err := os.WriteFile(path, []byte("[server]\nport = 9090\n"), 0644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("FUNNEL_SERVER_PORT", "7070")
	t.Setenv("FUNNEL_PROVIDER_API_KEY", "from-env")

	config, err := LoadFromFiles(path)
	if err != nil {
		t.Fatalf("LoadFromFiles() error = %v", err)
	}
	if config.Server.Port != 7070 {
		t.Errorf("Port = %d, want env override 7070", config.Server.Port)
	}
	if config.Provider.APIKey != "from-env" {
		t.Errorf("APIKey = %q, want from-env", config.Provider.APIKey)
	}
}

func TestLoadFromFiles_MissingFileIsAnError(t *testing.T) {
	if _, err := LoadFromFiles("/nonexistent/funnel.toml"); err == nil {
		t.Fatal("LoadFromFiles() error = nil, want read error")
	}
}

func TestDurationDecoding(t *testing.T) {
	tests := []struct {
		input   string
		want    time.Duration
		wantErr bool
	}{
		{"30s", 30 * time.Second, false},
		{"500ms", 500 * time.Millisecond, false},
		{"2160h", 2160 * time.Hour, false},
		{"banana", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		var d Duration
		err := d.UnmarshalText([]byte(tt.input))
		if tt.wantErr {
			if err == nil {
				t.Errorf("UnmarshalText(%q) error = nil, want parse error", tt.input)
			}
			continue
		}
		if err != nil {
			t.Errorf("UnmarshalText(%q) error = %v", tt.input, err)
			continue
		}
		if d.Duration() != tt.want {
			t.Errorf("UnmarshalText(%q) = %v, want %v", tt.input, d.Duration(), tt.want)
		}
	}
}

func TestLoadFromFiles_RejectsMalformedDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "funnel.toml")
	if err := os.WriteFile(path, []byte("[provider]\ntimeout = \"not-a-duration\"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadFromFiles(path); err == nil {
		t.Fatal("LoadFromFiles() error = nil, want duration parse error")
	}
}

func TestApplyGuards_ReplacesZeroTimeouts(t *testing.T) {
	config := &Config{}
	applyGuards(config)

	if config.Provider.Timeout.Duration() != 30*time.Second {
		t.Errorf("Timeout = %v, want guarded 30s", config.Provider.Timeout)
	}
	if config.Provider.RateLimit != 10 {
		t.Errorf("RateLimit = %d, want guarded 10", config.Provider.RateLimit)
	}
	if config.Screener.Stage1Cap != 75 {
		t.Errorf("Stage1Cap = %d, want guarded 75", config.Screener.Stage1Cap)
	}
}

func TestCacheConfigTTL(t *testing.T) {
	cache := CacheConfig{
		FundamentalsTTL: Duration(90 * 24 * time.Hour),
		TechnicalsTTL:   Duration(24 * time.Hour),
	}

	if got := cache.TTL("fundamentals"); got != 90*24*time.Hour {
		t.Errorf("TTL(fundamentals) = %v", got)
	}
	// Unknown groups get the shortest cadence.
	if got := cache.TTL("bogus"); got != 24*time.Hour {
		t.Errorf("TTL(bogus) = %v, want technicals TTL", got)
	}
}
