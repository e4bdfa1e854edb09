// Package api assembles the HTTP server of the console panel: the HTML
// pages, the JSON API under /api/v1 and the Prometheus endpoint share one
// Echo instance and one middleware stack.
package api

import (
	"fmt"
	"time"

	"github.com/tphakala/console-panel/internal/conf"
	"github.com/tphakala/console-panel/internal/errors"
)

// Default constants for the HTTP server.
const (
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 10 * time.Second
	DefaultMetricsPath     = "/metrics"
)

// Config holds the HTTP server configuration.
type Config struct {
	// Server binding
	Host string // empty binds all interfaces
	Port string

	// Timeouts
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Maximum request body size, e.g. "1M"
	BodyLimit string

	// Sessions and login throttling
	SessionSecret  string
	SecureCookies  bool
	SessionMaxAge  int
	LoginRateLimit float64
	LoginBurst     int

	// Prometheus endpoint
	MetricsEnabled bool
	MetricsPath    string

	// Select-list cache lifetime of the HTML pages
	LookupTTL time.Duration

	Debug bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Port:            "8080",
		ReadTimeout:     DefaultReadTimeout,
		WriteTimeout:    DefaultWriteTimeout,
		IdleTimeout:     DefaultIdleTimeout,
		ShutdownTimeout: DefaultShutdownTimeout,
		BodyLimit:       "2M",
		SessionMaxAge:   7 * 24 * 3600,
		LoginRateLimit:  10,
		LoginBurst:      5,
		MetricsEnabled:  true,
		MetricsPath:     DefaultMetricsPath,
		LookupTTL:       time.Minute,
	}
}

// ConfigFromSettings creates a Config from the application settings.
// Zero values in settings keep the defaults.
func ConfigFromSettings(settings *conf.Settings) *Config {
	cfg := DefaultConfig()

	cfg.Port = settings.WebServer.Port
	cfg.Debug = settings.WebServer.Debug || settings.Debug
	if settings.WebServer.ReadTimeout > 0 {
		cfg.ReadTimeout = settings.WebServer.ReadTimeout
	}
	if settings.WebServer.WriteTimeout > 0 {
		cfg.WriteTimeout = settings.WebServer.WriteTimeout
	}
	if settings.WebServer.ShutdownTimeout > 0 {
		cfg.ShutdownTimeout = settings.WebServer.ShutdownTimeout
	}

	sec := settings.Security
	cfg.SessionSecret = sec.SessionSecret
	cfg.SecureCookies = sec.SecureCookies
	if sec.SessionMaxAge > 0 {
		cfg.SessionMaxAge = sec.SessionMaxAge
	}
	if sec.LoginRateLimit > 0 {
		cfg.LoginRateLimit = sec.LoginRateLimit
	}
	if sec.LoginBurst > 0 {
		cfg.LoginBurst = sec.LoginBurst
	}

	cfg.MetricsEnabled = settings.Metrics.Enabled
	if settings.Metrics.Path != "" {
		cfg.MetricsPath = settings.Metrics.Path
	}
	if settings.Cache.LookupTTL > 0 {
		cfg.LookupTTL = settings.Cache.LookupTTL
	}
	return cfg
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	switch {
	case c.Port == "":
		return configError("port is required")
	case c.ReadTimeout <= 0:
		return configError("read timeout must be positive")
	case c.WriteTimeout <= 0:
		return configError("write timeout must be positive")
	case len(c.SessionSecret) < 32:
		return configError("session secret must be at least 32 characters")
	case c.MetricsEnabled && (c.MetricsPath == "" || c.MetricsPath[0] != '/'):
		return configError("metrics path must start with /")
	}
	return nil
}

func configError(message string) error {
	return errors.Newf("invalid server configuration: %s", message).
		Component("api").
		Category(errors.CategoryConfiguration).
		Build()
}

// Address returns the full address string for the server to listen on.
func (c *Config) Address() string {
	if c.Host == "" {
		return ":" + c.Port
	}
	return c.Host + ":" + c.Port
}

// String returns a human-readable representation of the config.
func (c *Config) String() string {
	metrics := "disabled"
	if c.MetricsEnabled {
		metrics = c.MetricsPath
	}
	return fmt.Sprintf("Server Config: address=%s, metrics=%s, secure_cookies=%v, debug=%v",
		c.Address(), metrics, c.SecureCookies, c.Debug)
}
