// Package config loads and validates the server configuration from
// environment variables.
//
// WHY A DEDICATED PACKAGE?
// Configuration comes from the environment, is parsed once at startup, and is
// passed around as a plain struct. Handlers and services never call os.Getenv
// themselves; they receive exactly the values they need through the
// composition root.
//
// FAIL-CLOSED SECRETS:
// The JWT signing secret has no safe default. An unset or short secret means
// every session token in the wild could be forged, so Load refuses to return
// a config at all rather than limping along with a guessable value.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config contains server configuration parameters.
type Config struct {
	// Port the HTTP server listens on.
	Port int `env:"PORT" envDefault:"8080"`

	// Env: "production" | "development" | "test". Drives the Secure flag on
	// the session cookie — production cookies are HTTPS-only.
	Env string `env:"APP_ENV" envDefault:"development"`

	// JWTSecret signs session tokens. Required, at least 16 characters.
	// Generate with: openssl rand -hex 32
	JWTSecret string `env:"JWT_SECRET"`

	// SheetID identifies the spreadsheet acting as the data store. When empty
	// the server runs in demo mode with two hardcoded accounts.
	SheetID string `env:"SHEET_ID"`

	// GoogleCredentialsFile points at the service-account JSON used to reach
	// the spreadsheet. Required whenever SheetID is set.
	GoogleCredentialsFile string `env:"GOOGLE_CREDENTIALS_FILE"`

	// DemoAuth forces hardcoded demo credentials even when store
	// configuration is present. Useful for local frontend work.
	DemoAuth bool `env:"DEMO_AUTH" envDefault:"false"`

	// Login rate limiting knobs: at most LoginRateMax POSTs to the login
	// endpoint per client address within LoginRateWindow.
	LoginRateMax    int           `env:"LOGIN_RATE_MAX" envDefault:"10"`
	LoginRateWindow time.Duration `env:"LOGIN_RATE_WINDOW" envDefault:"5m"`

	// StoreTimeout bounds every call to the external store. The store API has
	// no timeout of its own; an unreachable spreadsheet must surface as a
	// store error, not a hung request.
	StoreTimeout time.Duration `env:"STORE_TIMEOUT" envDefault:"10s"`
}

// Load parses the environment and validates the result.
func Load() (*Config, error) {
	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("config: parsing environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate enforces the invariants Load promises. Exported so tests can
// exercise it with hand-built configs.
func (c *Config) Validate() error {
	// The secret is required in every mode — demo mode still issues real
	// signed tokens, so a missing secret is never acceptable.
	if len(c.JWTSecret) < 16 {
		return errors.New("config: JWT_SECRET must be set to at least 16 characters (no default is provided on purpose)")
	}
	if c.SheetID != "" && c.GoogleCredentialsFile == "" {
		return errors.New("config: GOOGLE_CREDENTIALS_FILE is required when SHEET_ID is set")
	}
	if c.LoginRateMax <= 0 {
		return errors.New("config: LOGIN_RATE_MAX must be positive")
	}
	if c.LoginRateWindow <= 0 {
		return errors.New("config: LOGIN_RATE_WINDOW must be positive")
	}
	if c.StoreTimeout <= 0 {
		return errors.New("config: STORE_TIMEOUT must be positive")
	}
	return nil
}

// DemoMode reports whether credential checks run against the hardcoded demo
// accounts instead of the store: either forced via DEMO_AUTH, or implied by
// the absence of store configuration.
func (c *Config) DemoMode() bool {
	return c.DemoAuth || c.SheetID == ""
}

// Production reports whether the server runs behind HTTPS and should mark the
// session cookie Secure.
func (c *Config) Production() bool {
	return c.Env == "production"
}
