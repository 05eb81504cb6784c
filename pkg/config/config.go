package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// ClassifierProvider defines which backend produces decoy replies
type ClassifierProvider string

const (
	ProviderHoneypot ClassifierProvider = "honeypot" // Hosted honeypot backend (default)
	ProviderOpenAI   ClassifierProvider = "openai"   // Any OpenAI-compatible chat endpoint
)

// Settings is the per-request settings snapshot supplied by the UI
// collaborator. The pipeline treats it as read-only and never caches it
// across requests.
type Settings struct {
	Enabled  bool   // Analysis on/off (default: true)
	AutoMode bool   // Autonomous decoy engagement (default: false)
	APIURL   string // Classifier base URL (default: local endpoint)
	APIKey   string // x-api-key value for the classifier backend
	Persona  string // Decoy persona forwarded to the classifier (default: "default")
}

// Config holds global settings for the sentinel analysis service.
// All settings can be configured via environment variables or programmatically.
type Config struct {
	// === Defaults for the settings surface ===
	// Requests that omit a settings snapshot fall back to these.
	Defaults Settings

	// === Classifier backend ===
	Provider    ClassifierProvider // "honeypot" or "openai"
	OpenAIModel string             // Model for the OpenAI-compatible provider

	// === Verdict cache ===
	CacheCapacity int           // Max entries in the in-memory store (default: 2048)
	SafeTTL       time.Duration // Retention for safe verdicts (default: 2m)
	ElevatedTTL   time.Duration // Retention for review/warning/engaged verdicts (default: 30m)
	RedisAddr     string        // Optional Redis address; empty = in-memory store

	// === Auto-reply scheduling ===
	ReplyDelayMin time.Duration // Lower bound of the human-plausible delay (default: 2s)
	ReplyDelayMax time.Duration // Upper bound (default: 6s)
	InjectWebhook string        // Optional webhook receiving inject commands; empty = poll queue
	InjectBuffer  int           // Pending command queue size for polling collaborators (default: 64)

	// === Pattern rules ===
	RuleFile string // Optional YAML file with extra keyword/pattern rules
}

// NewDefaultConfig creates a Config with sensible defaults.
// All settings can be overridden via environment variables.
func NewDefaultConfig() *Config {
	return &Config{
		Defaults: Settings{
			Enabled:  GetEnvBool("SENTINEL_ENABLED", true),
			AutoMode: GetEnvBool("SENTINEL_AUTO_MODE", false),
			APIURL:   GetEnv("SENTINEL_API_URL", "http://localhost:3000"),
			APIKey:   GetEnv("SENTINEL_API_KEY", ""),
			Persona:  GetEnv("SENTINEL_PERSONA", "default"),
		},

		Provider:    detectProvider(),
		OpenAIModel: GetEnv("SENTINEL_OPENAI_MODEL", "gpt-4o-mini"),

		CacheCapacity: clampInt(GetEnvInt("SENTINEL_CACHE_CAPACITY", 2048), 16, 1<<20),
		SafeTTL:       GetEnvDuration("SENTINEL_CACHE_SAFE_TTL", 2*time.Minute),
		ElevatedTTL:   GetEnvDuration("SENTINEL_CACHE_ELEVATED_TTL", 30*time.Minute),
		RedisAddr:     GetEnv("SENTINEL_REDIS_ADDR", ""),

		ReplyDelayMin: GetEnvDuration("SENTINEL_REPLY_DELAY_MIN", 2*time.Second),
		ReplyDelayMax: GetEnvDuration("SENTINEL_REPLY_DELAY_MAX", 6*time.Second),
		InjectWebhook: GetEnv("SENTINEL_INJECT_WEBHOOK", ""),
		InjectBuffer:  clampInt(GetEnvInt("SENTINEL_INJECT_BUFFER", 64), 1, 4096),

		RuleFile: GetEnv("SENTINEL_RULE_FILE", ""),
	}
}

// detectProvider picks the classifier backend. Explicit setting wins;
// otherwise an OpenAI key implies the OpenAI-compatible provider.
func detectProvider() ClassifierProvider {
	if p := os.Getenv("SENTINEL_CLASSIFIER_PROVIDER"); p != "" {
		return ClassifierProvider(strings.ToLower(p))
	}
	if os.Getenv("OPENAI_API_KEY") != "" {
		return ProviderOpenAI
	}
	return ProviderHoneypot
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if c.ReplyDelayMin < 0 || c.ReplyDelayMax < c.ReplyDelayMin {
		return fmt.Errorf("invalid reply delay window [%v, %v]", c.ReplyDelayMin, c.ReplyDelayMax)
	}
	if c.CacheCapacity <= 0 {
		return fmt.Errorf("cache capacity must be positive, got %d", c.CacheCapacity)
	}
	if c.SafeTTL <= 0 || c.ElevatedTTL <= 0 {
		return fmt.Errorf("cache TTLs must be positive (safe=%v elevated=%v)", c.SafeTTL, c.ElevatedTTL)
	}
	switch c.Provider {
	case ProviderHoneypot, ProviderOpenAI:
	default:
		return fmt.Errorf("unknown classifier provider %q", c.Provider)
	}
	return nil
}

// clampInt ensures a value is within bounds
func clampInt(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}

// Helper functions for environment variable parsing
// These are exported for use by other packages.

// GetEnv returns the value of an environment variable or a default value.
func GetEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

// GetEnvBool returns the boolean value of an environment variable or a default value.
func GetEnvBool(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return defaultValue
}

// GetEnvInt returns the integer value of an environment variable or a default value.
func GetEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return defaultValue
}

// GetEnvDuration returns the duration value of an environment variable or a default value.
func GetEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err == nil {
			return d
		}
	}
	return defaultValue
}
