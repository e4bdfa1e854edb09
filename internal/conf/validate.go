// conf/validate.go

package conf

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"
)

// minSessionSecretLength is the shortest accepted session signing key
const minSessionSecretLength = 32

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	if err := validateWebServerSettings(&settings.WebServer); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateDatabaseSettings(&settings.Database); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateSecuritySettings(&settings.Security); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateMetricsSettings(&settings.Metrics); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateMQTTSettings(&settings.MQTT); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateTelemetrySettings(&settings.Telemetry); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateWebServerSettings(settings *WebServerSettings) error {
	port, err := strconv.Atoi(settings.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("webserver.port must be a number between 1 and 65535, got %q", settings.Port)
	}
	if settings.ReadTimeout < 0 || settings.WriteTimeout < 0 || settings.ShutdownTimeout < 0 {
		return errors.New("webserver timeouts must not be negative")
	}
	return nil
}

func validateDatabaseSettings(settings *DatabaseSettings) error {
	switch settings.Type {
	case DatabaseSQLite:
		if strings.TrimSpace(settings.SQLite.Path) == "" {
			return errors.New("database.sqlite.path is required when database.type is sqlite")
		}
	case DatabaseMySQL:
		var missing []string
		if settings.MySQL.Host == "" {
			missing = append(missing, "host")
		}
		if settings.MySQL.Port == "" {
			missing = append(missing, "port")
		}
		if settings.MySQL.Username == "" {
			missing = append(missing, "username")
		}
		if settings.MySQL.Database == "" {
			missing = append(missing, "database")
		}
		if len(missing) > 0 {
			return fmt.Errorf("database.mysql is missing: %s", strings.Join(missing, ", "))
		}
		if settings.MySQL.MaxIdleConns > settings.MySQL.MaxOpenConns && settings.MySQL.MaxOpenConns > 0 {
			return errors.New("database.mysql.max_idle_conns must not exceed max_open_conns")
		}
	default:
		return fmt.Errorf("database.type must be %q or %q, got %q", DatabaseSQLite, DatabaseMySQL, settings.Type)
	}
	return nil
}

func validateSecuritySettings(settings *SecuritySettings) error {
	if len(settings.SessionSecret) < minSessionSecretLength {
		return fmt.Errorf("security.session_secret must be at least %d characters", minSessionSecretLength)
	}
	if settings.SessionMaxAge <= 0 {
		return errors.New("security.session_max_age must be positive")
	}
	if settings.LoginRateLimit <= 0 || settings.LoginBurst <= 0 {
		return errors.New("security.login_rate_limit and security.login_burst must be positive")
	}
	return nil
}

func validateMetricsSettings(settings *MetricsSettings) error {
	if settings.Enabled && !strings.HasPrefix(settings.Path, "/") {
		return fmt.Errorf("metrics.path must start with '/', got %q", settings.Path)
	}
	return nil
}

// mqttSchemes are the broker URL schemes paho accepts
var mqttSchemes = []string{"tcp", "mqtt", "ssl", "tls", "mqtts", "ws", "wss"}

func validateMQTTSettings(settings *MQTTSettings) error {
	if !settings.Enabled {
		return nil
	}
	u, err := url.Parse(settings.Broker)
	if err != nil || u.Host == "" {
		return fmt.Errorf("mqtt.broker must be a URL like tcp://host:1883, got %q", settings.Broker)
	}
	if !slices.Contains(mqttSchemes, u.Scheme) {
		return fmt.Errorf("mqtt.broker scheme must be one of %s, got %q", strings.Join(mqttSchemes, ", "), u.Scheme)
	}
	if settings.QoS > 2 {
		return fmt.Errorf("mqtt.qos must be 0, 1 or 2, got %d", settings.QoS)
	}
	if strings.ContainsAny(settings.TopicPrefix, "#+") {
		return fmt.Errorf("mqtt.topic_prefix must not contain wildcards, got %q", settings.TopicPrefix)
	}
	return nil
}

func validateTelemetrySettings(settings *TelemetrySettings) error {
	if settings.SampleRate < 0 || settings.SampleRate > 1 {
		return fmt.Errorf("telemetry.sample_rate must be between 0 and 1, got %g", settings.SampleRate)
	}
	if !settings.Enabled {
		return nil
	}
	if settings.DSN == "" {
		return errors.New("telemetry.dsn is required when telemetry is enabled")
	}
	if u, err := url.Parse(settings.DSN); err != nil || u.Host == "" || u.User == nil {
		return errors.New("telemetry.dsn is not a valid Sentry DSN")
	}
	return nil
}
