package conf

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestRenderDefaultConfig_InjectsSecret(t *testing.T) {
	t.Parallel()

	secret := GenerateRandomSecret()
	require.Len(t, secret, 43)

	data, err := renderDefaultConfig(secret)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# console-panel configuration")

	var parsed struct {
		Security struct {
			SessionSecret string `yaml:"session_secret"`
		} `yaml:"security"`
		Database struct {
			Type string `yaml:"type"`
		} `yaml:"database"`
	}
	require.NoError(t, yaml.Unmarshal(data, &parsed))
	assert.Equal(t, secret, parsed.Security.SessionSecret)
	assert.Equal(t, DatabaseSQLite, parsed.Database.Type)
}

func TestGenerateRandomSecret_Unique(t *testing.T) {
	t.Parallel()
	assert.NotEqual(t, GenerateRandomSecret(), GenerateRandomSecret())
}

func TestLookupYAMLPath(t *testing.T) {
	t.Parallel()

	var doc yaml.Node
	require.NoError(t, yaml.Unmarshal([]byte("a:\n  b: 1\nc: x\n"), &doc))

	node := lookupYAMLPath(&doc, "a", "b")
	require.NotNil(t, node)
	assert.Equal(t, "1", node.Value)

	assert.Nil(t, lookupYAMLPath(&doc, "a", "missing"))
	assert.Nil(t, lookupYAMLPath(&doc, "c", "deeper"))
}

func TestLoad_ExplicitFile(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
webserver:
  port: "9000"
database:
  type: sqlite
  sqlite:
    path: ` + filepath.Join(dir, "panel.db") + `
security:
  session_secret: "abcdefghijklmnopqrstuvwxyz0123456789"
cache:
  lookup_ttl: 5s
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	settings, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9000", settings.WebServer.Port)
	assert.Equal(t, path, settings.ConfigFile)
	assert.Equal(t, 5*time.Second, settings.Cache.LookupTTL)
	// defaults fill what the file omits
	assert.Equal(t, 10*time.Second, settings.WebServer.ShutdownTimeout)
	assert.True(t, settings.Database.SeedFrequencies)
	assert.Equal(t, "/metrics", settings.Metrics.Path)
	assert.False(t, settings.MQTT.Enabled)
	assert.Equal(t, byte(1), settings.MQTT.QoS)
	assert.Equal(t, "console-panel", settings.MQTT.TopicPrefix)
	assert.False(t, settings.Telemetry.Enabled)
	assert.InDelta(t, 1.0, settings.Telemetry.SampleRate, 0)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "security:\n  session_secret: \"abcdefghijklmnopqrstuvwxyz0123456789\"\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("CONSOLE_PANEL_PORT", "7070")

	settings, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "7070", settings.WebServer.Port)
}

func TestLoad_InvalidSettings(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("security:\n  session_secret: short\n"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session_secret")
}

func TestCreateDefaultConfig(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, createDefaultConfig(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	assert.Len(t, viper.GetString("security.session_secret"), 43)
}

func TestDSNSummary(t *testing.T) {
	t.Parallel()

	sqlite := DatabaseSettings{Type: DatabaseSQLite, SQLite: SQLiteSettings{Path: "panel.db"}}
	assert.Equal(t, "sqlite://panel.db", sqlite.DSNSummary())

	mysql := DatabaseSettings{Type: DatabaseMySQL, MySQL: MySQLSettings{
		Host: "db", Port: "3306", Username: "u", Password: "p", Database: "console_panel",
	}}
	assert.Equal(t, "mysql://db:3306/console_panel", mysql.DSNSummary())
	assert.NotContains(t, mysql.DSNSummary(), "p@")
}
