// Package config loads the immutable process configuration for the gateway.
// Values come from an optional YAML file overridden by environment variables.
// Most knobs keep legacy aliases from earlier deployments; each is resolved
// through an ordered key chain, first non-empty value wins.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is built once at startup and passed into constructors. Nothing in
// the gateway reads the environment after Load returns.
type Config struct {
	Server     ServerConfig
	Log        LogConfig
	Supabase   SupabaseConfig
	Checkout   CheckoutConfig
	Generation GenerationConfig
	Callback   CallbackConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port        string   `yaml:"port"`
	CORSOrigins []string `yaml:"cors_origins"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// SupabaseConfig holds the identity-provider and data-store credentials.
type SupabaseConfig struct {
	URL            string
	AnonKey        string
	ServiceRoleKey string
	// JWTSecret enables local access-token verification; when empty the
	// verifier falls back to the auth REST API for every request.
	JWTSecret string
}

// Validate checks the keys the gateway cannot run without.
func (c SupabaseConfig) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("missing SUPABASE_URL")
	}
	if c.AnonKey == "" {
		return fmt.Errorf("missing SUPABASE_ANON_KEY")
	}
	if c.ServiceRoleKey == "" {
		return fmt.Errorf("missing SUPABASE_SERVICE_ROLE_KEY")
	}
	return nil
}

// CheckoutConfig holds the checkout flow settings.
type CheckoutConfig struct {
	WebhookURL     string
	Secret         string
	Timeout        time.Duration
	ExpiresMinutes int
}

// GenerationConfig holds the content-generation flow settings.
type GenerationConfig struct {
	// SingleURL serves both modes and overrides the mode-specific URLs.
	SingleURL     string
	WithLyricsURL string
	NoLyricsURL   string
	// Legacy aliases kept so older deployments keep working.
	LegacyWithLyricsURL string
	LegacyNoLyricsURL   string
	LegacySingleURL     string
	Secret              string
	Timeout             time.Duration
}

// ResolveWebhookURL picks the outbound target for a generation request.
// Priority: single URL, mode-specific URL, legacy mode-specific alias,
// legacy single URL. Returns "" when nothing is configured.
func (c GenerationConfig) ResolveWebhookURL(withLyrics bool) string {
	if strings.TrimSpace(c.SingleURL) != "" {
		return c.SingleURL
	}
	if withLyrics {
		return firstNonEmpty(c.WithLyricsURL, c.LegacyWithLyricsURL, c.LegacySingleURL)
	}
	return firstNonEmpty(c.NoLyricsURL, c.LegacyNoLyricsURL, c.LegacySingleURL)
}

// CallbackConfig holds the inbound purchase-update settings.
type CallbackConfig struct {
	Secret string
}

// fileConfig is the YAML shape of the optional config file.
type fileConfig struct {
	Server ServerConfig `yaml:"server"`
	Log    LogConfig    `yaml:"log"`
}

// Load builds the configuration from the optional YAML file named by
// GATEWAY_CONFIG and the process environment.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{Port: "8787", CORSOrigins: []string{"*"}},
		Log:    LogConfig{Level: "info", Format: "json"},
	}

	if path := os.Getenv("GATEWAY_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		var fc fileConfig
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
		if fc.Server.Port != "" {
			cfg.Server.Port = fc.Server.Port
		}
		if len(fc.Server.CORSOrigins) > 0 {
			cfg.Server.CORSOrigins = fc.Server.CORSOrigins
		}
		if fc.Log.Level != "" {
			cfg.Log.Level = fc.Log.Level
		}
		if fc.Log.Format != "" {
			cfg.Log.Format = fc.Log.Format
		}
	}

	if port := pickEnv("PORT", "API_PORT"); port != "" {
		cfg.Server.Port = port
	}
	if level := pickEnv("LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
	if format := pickEnv("LOG_FORMAT"); format != "" {
		cfg.Log.Format = format
	}

	cfg.Supabase = SupabaseConfig{
		URL:            pickEnv("SUPABASE_URL", "VITE_SUPABASE_URL", "NEXT_PUBLIC_SUPABASE_URL"),
		AnonKey:        pickEnv("SUPABASE_ANON_KEY", "VITE_SUPABASE_ANON_KEY", "NEXT_PUBLIC_SUPABASE_ANON_KEY"),
		ServiceRoleKey: pickEnv("SUPABASE_SERVICE_ROLE_KEY"),
		JWTSecret:      pickEnv("SUPABASE_JWT_SECRET"),
	}

	cfg.Checkout = CheckoutConfig{
		WebhookURL:     pickEnv("N8N_MARKETPLACE_CHECKOUT_URL", "N8N_BILLING_CHECKOUT_URL"),
		Secret:         pickEnv("N8N_MARKETPLACE_CHECKOUT_SECRET", "N8N_BILLING_CHECKOUT_SECRET"),
		Timeout:        millisEnv(15*time.Second, "N8N_MARKETPLACE_CHECKOUT_TIMEOUT_MS"),
		ExpiresMinutes: intEnv(60, "STRIPE_CHECKOUT_EXPIRES_MINUTES"),
	}

	cfg.Generation = GenerationConfig{
		SingleURL:           pickEnv("N8N_CREATIONS_WEBHOOK_URL"),
		WithLyricsURL:       pickEnv("N8N_CREATIONS_WEBHOOK_WITH_LYRICS_URL"),
		NoLyricsURL:         pickEnv("N8N_CREATIONS_WEBHOOK_NO_LYRICS_URL"),
		LegacyWithLyricsURL: pickEnv("N8N_WEBHOOK_WITH_LYRICS_URL", "N8N_WEBHOOK_LYRICS_URL"),
		LegacyNoLyricsURL:   pickEnv("N8N_WEBHOOK_NO_LYRICS_URL", "N8N_WEBHOOK_INSPIRATION_URL"),
		LegacySingleURL:     pickEnv("N8N_WEBHOOK_URL"),
		Secret:              pickEnv("N8N_CREATIONS_WEBHOOK_SECRET"),
		Timeout:             millisEnv(15*time.Second, "N8N_CREATIONS_WEBHOOK_TIMEOUT_MS"),
	}

	cfg.Callback = CallbackConfig{
		Secret: pickEnv("N8N_MARKETPLACE_PURCHASE_UPDATE_SECRET", "N8N_BILLING_INBOUND_SECRET"),
	}

	return cfg, nil
}

// pickEnv returns the first non-empty value among the given keys.
func pickEnv(keys ...string) string {
	for _, key := range keys {
		if val := strings.TrimSpace(os.Getenv(key)); val != "" {
			return val
		}
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// millisEnv reads a millisecond duration, keeping def on absence or garbage.
func millisEnv(def time.Duration, keys ...string) time.Duration {
	raw := pickEnv(keys...)
	if raw == "" {
		return def
	}
	ms, err := strconv.Atoi(raw)
	if err != nil || ms <= 0 {
		return def
	}
	return time.Duration(ms) * time.Millisecond
}

func intEnv(def int, keys ...string) int {
	raw := pickEnv(keys...)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
