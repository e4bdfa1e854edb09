// env.go - Environment variable configuration and validation for console-panel
package conf

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// envPrefix is prepended to every bound environment variable
const envPrefix = "CONSOLE_PANEL_"

// envBinding holds metadata for environment variable bindings (internal use)
type envBinding struct {
	ConfigKey string             // Viper config key
	EnvVar    string             // Environment variable name
	Validate  func(string) error // Optional validation function
}

// getEnvBindings returns all environment variable bindings with validation
func getEnvBindings() []envBinding {
	return []envBinding{
		{"debug", envPrefix + "DEBUG", validateEnvBool},
		{"webserver.port", envPrefix + "PORT", validateEnvPort},

		// Database
		{"database.type", envPrefix + "DB_TYPE", validateEnvDatabaseType},
		{"database.sqlite.path", envPrefix + "DB_PATH", validateEnvPath},
		{"database.mysql.host", envPrefix + "MYSQL_HOST", validateEnvHost},
		{"database.mysql.port", envPrefix + "MYSQL_PORT", validateEnvPort},
		{"database.mysql.username", envPrefix + "MYSQL_USER", nil},
		{"database.mysql.password", envPrefix + "MYSQL_PASSWORD", nil},
		{"database.mysql.database", envPrefix + "MYSQL_DATABASE", validateEnvHost},

		{"security.session_secret", envPrefix + "SESSION_SECRET", validateEnvSecret},
		{"logging.default_level", envPrefix + "LOG_LEVEL", validateEnvLogLevel},
		{"metrics.enabled", envPrefix + "METRICS", validateEnvBool},

		{"mqtt.enabled", envPrefix + "MQTT", validateEnvBool},
		{"mqtt.broker", envPrefix + "MQTT_BROKER", nil},
		{"mqtt.username", envPrefix + "MQTT_USER", nil},
		{"mqtt.password", envPrefix + "MQTT_PASSWORD", nil},
		{"telemetry.enabled", envPrefix + "TELEMETRY", validateEnvBool},
		{"telemetry.dsn", envPrefix + "SENTRY_DSN", nil},
	}
}

// bindEnvVars sets up environment variable bindings with validation (internal)
func bindEnvVars() error {
	bindings := getEnvBindings()
	var warnings []string

	for _, binding := range bindings {
		if err := viper.BindEnv(binding.ConfigKey, binding.EnvVar); err != nil {
			warnings = append(warnings, fmt.Sprintf("Failed to bind %s: %v", binding.EnvVar, err))
			continue
		}

		if binding.Validate != nil {
			if envValue, ok := os.LookupEnv(binding.EnvVar); ok {
				if err := binding.Validate(envValue); err != nil {
					// secrets are never echoed back
					shown := envValue
					if binding.ConfigKey == "security.session_secret" || binding.ConfigKey == "database.mysql.password" {
						shown = "***"
					}
					warnings = append(warnings, fmt.Sprintf("Invalid %s value '%s': %v", binding.EnvVar, shown, err))
				}
			}
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(warnings, "\n  - "))
	}

	return nil
}

// Environment variable validation functions

// validateEnvBool validates boolean environment variables
func validateEnvBool(value string) error {
	_, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("invalid boolean value '%s': must be true/false, 1/0, t/f, TRUE/FALSE, T/F", value)
	}
	return nil
}

func validateEnvPort(value string) error {
	port, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid port: %w", err)
	}
	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", port)
	}
	return nil
}

func validateEnvDatabaseType(value string) error {
	valid := []string{DatabaseSQLite, DatabaseMySQL}
	if slices.Contains(valid, value) {
		return nil
	}
	return fmt.Errorf("must be one of: %s", strings.Join(valid, ", "))
}

func validateEnvHost(value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("must not be empty")
	}
	if strings.ContainsAny(value, " /\\@") {
		return fmt.Errorf("contains invalid characters: %s", value)
	}
	return nil
}

func validateEnvSecret(value string) error {
	if len(value) < minSessionSecretLength {
		return fmt.Errorf("must be at least %d characters, got %d", minSessionSecretLength, len(value))
	}
	return nil
}

func validateEnvLogLevel(value string) error {
	valid := []string{"trace", "debug", "info", "warn", "error"}
	if slices.Contains(valid, strings.ToLower(value)) {
		return nil
	}
	return fmt.Errorf("must be one of: %s", strings.Join(valid, ", "))
}

// validateEnvPath accepts relative and absolute paths but rejects traversal
func validateEnvPath(value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("path must not be empty")
	}
	for part := range strings.SplitSeq(filepath.ToSlash(value), "/") {
		if part == ".." {
			return fmt.Errorf("path traversal detected: %s", value)
		}
	}
	return nil
}

// configureEnvironmentVariables sets up environment variable support for Viper
func configureEnvironmentVariables() error {
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	return bindEnvVars()
}
