package conf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_ResolvesSecrets(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	secretFile := filepath.Join(dir, "session_secret")
	require.NoError(t, os.WriteFile(secretFile, []byte("abcdefghijklmnopqrstuvwxyz0123456789\n"), 0o600))

	path := filepath.Join(dir, "config.yaml")
	content := `
security:
  session_secret: "ignored-because-a-file-is-given-0123456789"
mqtt:
  password: "${PANEL_TEST_MQTT_PASSWORD}"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("CONSOLE_PANEL_SESSION_SECRET_FILE", secretFile)
	t.Setenv("PANEL_TEST_MQTT_PASSWORD", "broker-pw")

	settings, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "abcdefghijklmnopqrstuvwxyz0123456789", settings.Security.SessionSecret)
	assert.Equal(t, "broker-pw", settings.MQTT.Password)
	assert.Empty(t, settings.Warnings)
}

func TestResolveSecrets_MissingVariable(t *testing.T) {
	s := &Settings{}
	s.Database.MySQL.Password = "${PANEL_TEST_UNSET_VARIABLE}"

	err := resolveSecrets(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database.mysql.password")
}

func TestResolveSecrets_WarnsAboutReadableFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "dsn")
	require.NoError(t, os.WriteFile(p, []byte("https://key@sentry.example.com/1"), 0o600))
	require.NoError(t, os.Chmod(p, 0o644))
	t.Setenv("CONSOLE_PANEL_SENTRY_DSN_FILE", p)

	s := &Settings{}
	require.NoError(t, resolveSecrets(s))
	assert.Equal(t, "https://key@sentry.example.com/1", s.Telemetry.DSN)
	require.Len(t, s.Warnings, 1)
	assert.Contains(t, s.Warnings[0], p)
}
