package config

import (
	"testing"
	"time"
)

func TestDefaultMatching(t *testing.T) {
	m := DefaultMatching()

	if m.MatchThreshold != 0.5 {
		t.Errorf("expected match threshold 0.5, got %v", m.MatchThreshold)
	}
	if m.Conflict.StrictThreshold != 0.38 {
		t.Errorf("expected strict threshold 0.38, got %v", m.Conflict.StrictThreshold)
	}
	if m.Conflict.SupportThreshold != 0.42 {
		t.Errorf("expected support threshold 0.42, got %v", m.Conflict.SupportThreshold)
	}
	if m.Conflict.MinSupportHits != 0 {
		t.Errorf("expected automatic support hits (0), got %d", m.Conflict.MinSupportHits)
	}
}

func TestMatchingConfig_ConflictPolicy(t *testing.T) {
	tests := []struct {
		name        string
		configured  int
		sampleCount int
		want        int
	}{
		{"auto with one sample", 0, 1, 2},
		{"auto with six samples", 0, 6, 2},
		{"auto with nine samples", 0, 9, 3},
		{"auto with many samples", 0, 30, 3},
		{"explicit value wins", 5, 9, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := DefaultMatching()
			m.Conflict.MinSupportHits = tt.configured

			policy := m.ConflictPolicy(tt.sampleCount)
			if policy.MinSupportHits != tt.want {
				t.Errorf("ConflictPolicy(%d).MinSupportHits = %d, want %d", tt.sampleCount, policy.MinSupportHits, tt.want)
			}
			if policy.StrictThreshold != m.Conflict.StrictThreshold {
				t.Errorf("strict threshold changed: %v", policy.StrictThreshold)
			}
		})
	}
}

func TestEnvInt(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  int
	}{
		{"unset", "", 7},
		{"valid", "42", 42},
		{"zero", "0", 7},
		{"negative", "-3", 7},
		{"garbage", "abc", 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_ENV_INT", tt.value)
			if got := envInt("TEST_ENV_INT", 7); got != tt.want {
				t.Errorf("envInt() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestEnvFloat(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  float64
	}{
		{"unset", "", 0.5},
		{"valid", "0.45", 0.45},
		{"zero", "0", 0.5},
		{"garbage", "half", 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_ENV_FLOAT", tt.value)
			if got := envFloat("TEST_ENV_FLOAT", 0.5); got != tt.want {
				t.Errorf("envFloat() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{
		"DATABASE_URL", "DESCRIPTOR_URL", "DESCRIPTOR_TIMEOUT_SECONDS", "WEB_HOST", "WEB_PORT",
		"KIOSK_RATE_LIMIT", "LOG_LEVEL", "LOG_FORMAT", "MATCH_THRESHOLD", "CONFLICT_MIN_SUPPORT_HITS",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()

	if cfg.Web.Port != 8080 || cfg.Web.Host != "0.0.0.0" {
		t.Errorf("unexpected web defaults: %+v", cfg.Web)
	}
	if cfg.Descriptor.Timeout != 30*time.Second {
		t.Errorf("expected 30s descriptor timeout, got %v", cfg.Descriptor.Timeout)
	}
	if cfg.Database.MaxOpenConns != 25 || cfg.Database.MaxIdleConns != 5 {
		t.Errorf("unexpected pool defaults: %+v", cfg.Database)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "json" {
		t.Errorf("unexpected log defaults: %+v", cfg.Log)
	}
	if cfg.Matching.MatchThreshold != 0.5 {
		t.Errorf("expected default match threshold, got %v", cfg.Matching.MatchThreshold)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/attendance")
	t.Setenv("WEB_PORT", "9090")
	t.Setenv("KIOSK_RATE_LIMIT", "10")
	t.Setenv("MATCH_THRESHOLD", "0.45")
	t.Setenv("CONFLICT_STRICT_THRESHOLD", "0.35")
	t.Setenv("CONFLICT_MIN_SUPPORT_HITS", "4")
	t.Setenv("DESCRIPTOR_TIMEOUT_SECONDS", "5")

	cfg := Load()

	if cfg.Database.URL != "postgres://u:p@db:5432/attendance" {
		t.Errorf("unexpected database URL %q", cfg.Database.URL)
	}
	if cfg.Web.Port != 9090 || cfg.Web.KioskRateLimit != 10 {
		t.Errorf("unexpected web config: %+v", cfg.Web)
	}
	if cfg.Matching.MatchThreshold != 0.45 {
		t.Errorf("expected match threshold 0.45, got %v", cfg.Matching.MatchThreshold)
	}
	if cfg.Matching.Conflict.StrictThreshold != 0.35 {
		t.Errorf("expected strict threshold 0.35, got %v", cfg.Matching.Conflict.StrictThreshold)
	}
	if got := cfg.Matching.ConflictPolicy(9).MinSupportHits; got != 4 {
		t.Errorf("expected explicit support hits 4, got %d", got)
	}
	if cfg.Descriptor.Timeout != 5*time.Second {
		t.Errorf("expected 5s timeout, got %v", cfg.Descriptor.Timeout)
	}
}
