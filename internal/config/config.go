package config

import (
	_ "embed"
	"os"
	"strconv"
	"time"

	"github.com/kozaktomas/staff-attendance/internal/constants"
	"github.com/kozaktomas/staff-attendance/internal/facematch"
	"gopkg.in/yaml.v3"
)

//go:embed policy.yaml
var policyYAML []byte

type Config struct {
	Database   DatabaseConfig
	Legacy     LegacyConfig
	Descriptor DescriptorConfig
	Web        WebConfig
	Log        LogConfig
	Matching   MatchingConfig
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

type LegacyConfig struct {
	MySQLDSN string // DSN of the legacy attendance database (e.g., user:pass@tcp(mysql:3306)/absensi)
}

type DescriptorConfig struct {
	URL          string        // defaults to http://localhost:8000
	Timeout      time.Duration // defaults to 30s
	MaxImageSize int           // frames are downscaled to this size before upload
}

type WebConfig struct {
	Host           string
	Port           int
	AllowedOrigins string // comma-separated CORS origins
	KioskRateLimit int    // requests per minute per client IP on kiosk endpoints
}

type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json or console
}

// MatchingConfig holds the face matching thresholds.
type MatchingConfig struct {
	MatchThreshold float64                  `yaml:"match_threshold"`
	Conflict       facematch.ConflictPolicy `yaml:"conflict"`
}

// ConflictPolicy returns the enrollment conflict policy for sampleCount samples.
// A non-positive MinSupportHits scales with the sample count.
func (m MatchingConfig) ConflictPolicy(sampleCount int) facematch.ConflictPolicy {
	policy := m.Conflict
	if policy.MinSupportHits <= 0 {
		policy.MinSupportHits = facematch.MinSupportHitsFor(sampleCount)
	}
	return policy
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable and parses it as a positive float.
// Returns the default value if the env var is unset, empty, or invalid.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

// envString returns the environment variable or the default when unset or empty.
func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

// DefaultMatching returns the matching policy embedded in policy.yaml.
func DefaultMatching() MatchingConfig {
	var m MatchingConfig
	if err := yaml.Unmarshal(policyYAML, &m); err != nil {
		// Embedded file, so this only fails on a broken build
		panic("failed to unmarshal embedded policy.yaml: " + err.Error())
	}
	return m
}

func Load() *Config {
	matching := DefaultMatching()
	matching.MatchThreshold = envFloat("MATCH_THRESHOLD", matching.MatchThreshold)
	matching.Conflict.StrictThreshold = envFloat("CONFLICT_STRICT_THRESHOLD", matching.Conflict.StrictThreshold)
	matching.Conflict.SupportThreshold = envFloat("CONFLICT_SUPPORT_THRESHOLD", matching.Conflict.SupportThreshold)
	matching.Conflict.MinSupportHits = envInt("CONFLICT_MIN_SUPPORT_HITS", matching.Conflict.MinSupportHits)

	return &Config{
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Legacy: LegacyConfig{
			MySQLDSN: os.Getenv("LEGACY_MYSQL_DSN"),
		},
		Descriptor: DescriptorConfig{
			URL:          os.Getenv("DESCRIPTOR_URL"),
			Timeout:      time.Duration(envInt("DESCRIPTOR_TIMEOUT_SECONDS", 30)) * time.Second,
			MaxImageSize: envInt("DESCRIPTOR_MAX_IMAGE_SIZE", constants.MaxImageSize),
		},
		Web: WebConfig{
			Host:           envString("WEB_HOST", "0.0.0.0"),
			Port:           envInt("WEB_PORT", 8080),
			AllowedOrigins: os.Getenv("WEB_ALLOWED_ORIGINS"),
			KioskRateLimit: envInt("KIOSK_RATE_LIMIT", 60),
		},
		Log: LogConfig{
			Level:  envString("LOG_LEVEL", "info"),
			Format: envString("LOG_FORMAT", "json"),
		},
		Matching: matching,
	}
}
