// Package config loads server settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Defaults and bounds for the insight engine knobs.
const (
	DefaultHorizon        = 3
	MinHorizon            = 1
	MaxHorizon            = 24
	DefaultLookbackMonths = 24
	MinLookbackMonths     = 3
	MaxLookbackMonths     = 60
)

type Config struct {
	// HTTP server
	Port           string
	Env            string
	AllowedOrigins []string

	// Collaborators
	UseMemoryStore     bool
	SkipAuth           bool
	GoogleCloudProject string
	CredentialsFile    string

	// Logging
	LogLevel  string
	LogFormat string

	// Engine
	ForecastHorizon          int
	LookbackMonths           int
	FreeTierTransactionLimit int
}

// Load reads .env (if present) and then the process environment. Values
// already set in the environment win over .env.
func Load() *Config {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv builds a Config from the current environment only.
func FromEnv() *Config {
	env := getEnv("ENV", "local")
	return &Config{
		Port:           getEnv("PORT", "8111"),
		Env:            env,
		AllowedOrigins: getEnvList("ALLOWED_ORIGINS", []string{"http://localhost:1234", "http://127.0.0.1:1234"}),

		UseMemoryStore:     getEnvBool("USE_MEMORY_STORE", false) || env == "local",
		SkipAuth:           getEnvBool("SKIP_AUTH", false),
		GoogleCloudProject: getEnv("GOOGLE_CLOUD_PROJECT", ""),
		CredentialsFile:    getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", defaultFormat(env)),

		ForecastHorizon:          getEnvInt("FORECAST_HORIZON", DefaultHorizon),
		LookbackMonths:           getEnvInt("LOOKBACK_MONTHS", DefaultLookbackMonths),
		FreeTierTransactionLimit: getEnvInt("FREE_TIER_TRANSACTION_LIMIT", 100),
	}
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if !c.UseMemoryStore && c.GoogleCloudProject == "" {
		errs = append(errs, "GOOGLE_CLOUD_PROJECT is required when not using the memory store")
	}

	if c.SkipAuth && !c.IsLocal() {
		errs = append(errs, fmt.Sprintf("SKIP_AUTH is only allowed locally, not in env '%s' with Firestore", c.Env))
	}

	switch strings.ToLower(c.LogFormat) {
	case "console", "json":
	default:
		errs = append(errs, fmt.Sprintf("invalid log format '%s': must be console or json", c.LogFormat))
	}

	if c.ForecastHorizon < MinHorizon || c.ForecastHorizon > MaxHorizon {
		errs = append(errs, fmt.Sprintf("invalid forecast horizon %d: must be between %d and %d", c.ForecastHorizon, MinHorizon, MaxHorizon))
	}
	if c.LookbackMonths < MinLookbackMonths || c.LookbackMonths > MaxLookbackMonths {
		errs = append(errs, fmt.Sprintf("invalid lookback %d: must be between %d and %d months", c.LookbackMonths, MinLookbackMonths, MaxLookbackMonths))
	}
	if c.FreeTierTransactionLimit < 1 {
		errs = append(errs, fmt.Sprintf("invalid free tier transaction limit %d: must be at least 1", c.FreeTierTransactionLimit))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

// IsLocal reports whether the server runs against local collaborators.
func (c *Config) IsLocal() bool {
	return c.Env == "local" || c.UseMemoryStore
}

func defaultFormat(env string) string {
	if env == "local" {
		return "console"
	}
	return "json"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, v := range strings.Split(value, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
