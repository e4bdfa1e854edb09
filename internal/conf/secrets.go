package conf

import (
	"fmt"
	"os"

	"github.com/tphakala/console-panel/internal/secrets"
)

// secretField is a credential that may reference the environment with
// ${VAR} or be read from the file named by fileEnv
type secretField struct {
	key     string
	fileEnv string
	value   *string
}

func secretFields(s *Settings) []secretField {
	return []secretField{
		{"security.session_secret", envPrefix + "SESSION_SECRET_FILE", &s.Security.SessionSecret},
		{"database.mysql.password", envPrefix + "MYSQL_PASSWORD_FILE", &s.Database.MySQL.Password},
		{"mqtt.password", envPrefix + "MQTT_PASSWORD_FILE", &s.MQTT.Password},
		{"telemetry.dsn", envPrefix + "SENTRY_DSN_FILE", &s.Telemetry.DSN},
	}
}

// resolveSecrets replaces every credential with its resolved value. Findings
// that do not stop startup are appended to s.Warnings.
func resolveSecrets(s *Settings) error {
	warn := func(msg, path string) {
		s.Warnings = append(s.Warnings, fmt.Sprintf("%s: %s", msg, path))
	}
	for _, f := range secretFields(s) {
		v, err := secrets.Resolve(os.Getenv(f.fileEnv), *f.value, warn)
		if err != nil {
			return fmt.Errorf("%s: %w", f.key, err)
		}
		*f.value = v
	}
	return nil
}
