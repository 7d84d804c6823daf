package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr bool
		check   func(*testing.T, *Config)
	}{
		{
			name: "default values",
			env:  map[string]string{},
			check: func(t *testing.T, cfg *Config) {
				if cfg.Port != "8080" {
					t.Errorf("expected port 8080, got %s", cfg.Port)
				}
				if cfg.LogLevel != "info" {
					t.Errorf("expected log level info, got %s", cfg.LogLevel)
				}
				if cfg.CacheTTL != 5*time.Minute {
					t.Errorf("expected CacheTTL 5m, got %v", cfg.CacheTTL)
				}
				if cfg.SheetTimeout != 30*time.Second {
					t.Errorf("expected SheetTimeout 30s, got %v", cfg.SheetTimeout)
				}
				if cfg.FetchInterval != 24*time.Hour {
					t.Errorf("expected FetchInterval 24h, got %v", cfg.FetchInterval)
				}
			},
		},
		{
			name: "custom values",
			env: map[string]string{
				"PORT":                   "9000",
				"LOG_LEVEL":              "debug",
				"CACHE_TTL_SECONDS":      "60",
				"FETCH_INTERVAL_MINUTES": "30",
				"SHEET_TIMEOUT_SECONDS":  "10",
				"ALLOWED_ORIGINS":        "http://a.example, http://b.example",
			},
			check: func(t *testing.T, cfg *Config) {
				if cfg.Port != "9000" {
					t.Errorf("expected port 9000, got %s", cfg.Port)
				}
				if cfg.CacheTTL != time.Minute {
					t.Errorf("expected CacheTTL 1m, got %v", cfg.CacheTTL)
				}
				if cfg.FetchInterval != 30*time.Minute {
					t.Errorf("expected FetchInterval 30m, got %v", cfg.FetchInterval)
				}
				if cfg.SheetTimeout != 10*time.Second {
					t.Errorf("expected SheetTimeout 10s, got %v", cfg.SheetTimeout)
				}
				if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "http://b.example" {
					t.Errorf("expected trimmed origins, got %v", cfg.AllowedOrigins)
				}
			},
		},
		{
			name: "invalid cache ttl",
			env: map[string]string{
				"CACHE_TTL_SECONDS": "not-a-number",
			},
			wantErr: true,
		},
		{
			name: "invalid fetch interval",
			env: map[string]string{
				"FETCH_INTERVAL_MINUTES": "daily",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for key, value := range tt.env {
				os.Setenv(key, value)
			}
			defer func() {
				for key := range tt.env {
					os.Unsetenv(key)
				}
			}()

			cfg, err := Load()
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func TestGetEnv(t *testing.T) {
	os.Setenv("REPBOARD_TEST_KEY", "value")
	defer os.Unsetenv("REPBOARD_TEST_KEY")

	if got := getEnv("REPBOARD_TEST_KEY", "fallback"); got != "value" {
		t.Errorf("expected value, got %s", got)
	}
	if got := getEnv("REPBOARD_TEST_MISSING", "fallback"); got != "fallback" {
		t.Errorf("expected fallback, got %s", got)
	}
}
