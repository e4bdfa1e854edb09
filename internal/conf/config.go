// config.go: settings struct and the functions that load it from config.yaml, environment and flags.
package conf

import (
	"bytes"
	"crypto/rand"
	"embed"
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/tphakala/console-panel/internal/logger"
)

//go:embed config.yaml
var configFiles embed.FS

// Database backends
const (
	DatabaseSQLite = "sqlite"
	DatabaseMySQL  = "mysql"
)

// WebServerSettings contains settings for the HTTP server
type WebServerSettings struct {
	Port            string        // listen port
	Debug           bool          // verbose request logging
	ReadTimeout     time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// SQLiteSettings contains settings for the SQLite backend
type SQLiteSettings struct {
	Path string // database file, created on first start
}

// MySQLSettings contains settings for the MySQL backend
type MySQLSettings struct {
	Host            string
	Port            string
	Username        string
	Password        string
	Database        string
	MaxOpenConns    int           `mapstructure:"max_open_conns" yaml:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" yaml:"conn_max_lifetime"`
}

// DatabaseSettings selects and configures the storage backend
type DatabaseSettings struct {
	Type               string         // sqlite or mysql
	SQLite             SQLiteSettings `mapstructure:"sqlite" yaml:"sqlite"`
	MySQL              MySQLSettings  `mapstructure:"mysql" yaml:"mysql"`
	SlowQueryThreshold time.Duration  `mapstructure:"slow_query_threshold" yaml:"slow_query_threshold"`
	SeedFrequencies    bool           `mapstructure:"seed_frequencies" yaml:"seed_frequencies"` // insert common sample rates on start
}

// SecuritySettings contains session and login settings
type SecuritySettings struct {
	SessionSecret  string  `mapstructure:"session_secret" yaml:"session_secret"`
	SecureCookies  bool    `mapstructure:"secure_cookies" yaml:"secure_cookies"`
	SessionMaxAge  int     `mapstructure:"session_max_age" yaml:"session_max_age"` // seconds
	LoginRateLimit float64 `mapstructure:"login_rate_limit" yaml:"login_rate_limit"` // attempts per minute per client
	LoginBurst     int     `mapstructure:"login_burst" yaml:"login_burst"`
}

// MetricsSettings controls the Prometheus endpoint
type MetricsSettings struct {
	Enabled bool
	Path    string
}

// CacheSettings controls in-memory caching of select-list lookups
type CacheSettings struct {
	LookupTTL time.Duration `mapstructure:"lookup_ttl" yaml:"lookup_ttl"`
}

// MQTTSettings configures publishing of configuration events to a broker
type MQTTSettings struct {
	Enabled     bool
	Broker      string // tcp://host:1883, ssl://host:8883 or ws://host:port
	ClientID    string `mapstructure:"client_id" yaml:"client_id"`
	Username    string
	Password    string
	TopicPrefix string `mapstructure:"topic_prefix" yaml:"topic_prefix"`
	QoS         byte   `mapstructure:"qos" yaml:"qos"`
	Retain      bool
}

// TelemetrySettings configures opt-in error reporting to Sentry
type TelemetrySettings struct {
	Enabled     bool
	DSN         string  `mapstructure:"dsn" yaml:"dsn"`
	Environment string
	SampleRate  float64 `mapstructure:"sample_rate" yaml:"sample_rate"`
}

// Settings contains all configuration options for the application
type Settings struct {
	Debug bool

	WebServer WebServerSettings    `mapstructure:"webserver" yaml:"webserver"`
	Database  DatabaseSettings     `mapstructure:"database" yaml:"database"`
	Security  SecuritySettings     `mapstructure:"security" yaml:"security"`
	Metrics   MetricsSettings      `mapstructure:"metrics" yaml:"metrics"`
	Cache     CacheSettings        `mapstructure:"cache" yaml:"cache"`
	MQTT      MQTTSettings         `mapstructure:"mqtt" yaml:"mqtt"`
	Telemetry TelemetrySettings    `mapstructure:"telemetry" yaml:"telemetry"`
	Logging   logger.LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// ConfigFile is the file the settings were read from
	ConfigFile string `mapstructure:"-" yaml:"-"`

	// Warnings are configuration findings that do not prevent startup
	Warnings []string `mapstructure:"-" yaml:"-"`
}

// settingsMutex serializes Load, which works on the global viper instance
var settingsMutex sync.Mutex

// Load reads settings from configFile, or from the default locations when
// configFile is empty, and validates them. A missing config file in the
// default locations is created from the embedded defaults.
func Load(configFile string) (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	if err := initViper(configFile); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	settings := &Settings{}
	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}
	settings.ConfigFile = viper.ConfigFileUsed()

	if err := resolveSecrets(settings); err != nil {
		return nil, fmt.Errorf("error resolving secrets: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	return settings, nil
}

// initViper registers defaults and environment bindings and reads the config file
func initViper(configFile string) error {
	setDefaultConfig()

	if err := configureEnvironmentVariables(); err != nil {
		return err
	}

	if configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("error reading config file %s: %w", configFile, err)
		}
		return nil
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			return createDefaultConfig(filepath.Join(configPaths[0], "config.yaml"))
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	return nil
}

// createDefaultConfig writes the embedded default config with a freshly
// generated session secret to configPath and reads it back
func createDefaultConfig(configPath string) error {
	defaultConfig, err := renderDefaultConfig(GenerateRandomSecret())
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o750); err != nil {
		return fmt.Errorf("error creating directories for config file: %w", err)
	}

	if err := os.WriteFile(configPath, defaultConfig, 0o600); err != nil {
		return fmt.Errorf("error writing default config file: %w", err)
	}

	fmt.Println("Created default config file at:", configPath)

	viper.SetConfigFile(configPath)
	return viper.ReadInConfig()
}

// renderDefaultConfig returns the embedded config.yaml with security.session_secret
// set to secret. Comments in the template are preserved.
func renderDefaultConfig(secret string) ([]byte, error) {
	data, err := fs.ReadFile(configFiles, "config.yaml")
	if err != nil {
		return nil, fmt.Errorf("error reading embedded config: %w", err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("error parsing embedded config: %w", err)
	}

	if secretNode := lookupYAMLPath(&doc, "security", "session_secret"); secretNode != nil {
		secretNode.Value = secret
		secretNode.Tag = "!!str"
		secretNode.Style = yaml.DoubleQuotedStyle
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return nil, fmt.Errorf("error encoding default config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("error encoding default config: %w", err)
	}
	return buf.Bytes(), nil
}

// lookupYAMLPath walks mapping nodes by key and returns the value node, or nil
func lookupYAMLPath(node *yaml.Node, keys ...string) *yaml.Node {
	if node.Kind == yaml.DocumentNode && len(node.Content) > 0 {
		node = node.Content[0]
	}
	for _, key := range keys {
		if node.Kind != yaml.MappingNode {
			return nil
		}
		var next *yaml.Node
		for i := 0; i+1 < len(node.Content); i += 2 {
			if node.Content[i].Value == key {
				next = node.Content[i+1]
				break
			}
		}
		if next == nil {
			return nil
		}
		node = next
	}
	return node
}

// GenerateRandomSecret returns 32 random bytes as URL-safe base64 (43 characters)
func GenerateRandomSecret() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(b)
}

// DSNSummary describes the configured database without credentials, for logs
func (s *DatabaseSettings) DSNSummary() string {
	switch s.Type {
	case DatabaseMySQL:
		return fmt.Sprintf("mysql://%s:%s/%s", s.MySQL.Host, s.MySQL.Port, s.MySQL.Database)
	default:
		return "sqlite://" + s.SQLite.Path
	}
}
