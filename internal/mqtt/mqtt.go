// Package mqtt publishes configuration events to an MQTT broker.
package mqtt

import (
	"context"
	"time"

	"github.com/tphakala/console-panel/internal/conf"
)

// Client defines the interface for MQTT client operations.
type Client interface {
	// Connect attempts to connect to the MQTT broker.
	Connect(ctx context.Context) error

	// Publish sends payload to topic and waits for the broker to acknowledge
	// it according to the configured QoS.
	Publish(ctx context.Context, topic string, payload []byte) error

	// IsConnected returns true if the client is currently connected to the MQTT broker.
	IsConnected() bool

	// Disconnect closes the connection to the MQTT broker.
	Disconnect()
}

// Config holds the configuration for the MQTT client.
type Config struct {
	Broker            string
	ClientID          string
	Username          string
	Password          string
	TopicPrefix       string
	QoS               byte
	Retain            bool
	ReconnectCooldown time.Duration
	ConnectTimeout    time.Duration
	PublishTimeout    time.Duration
	DisconnectTimeout time.Duration
}

// DefaultConfig returns a Config with reasonable default values
func DefaultConfig() Config {
	return Config{
		TopicPrefix:       "console-panel",
		QoS:               1,
		ReconnectCooldown: 5 * time.Second,
		ConnectTimeout:    30 * time.Second,
		PublishTimeout:    10 * time.Second,
		DisconnectTimeout: 250 * time.Millisecond,
	}
}

// ConfigFromSettings returns DefaultConfig overlaid with the broker settings
func ConfigFromSettings(settings *conf.MQTTSettings) Config {
	cfg := DefaultConfig()
	cfg.Broker = settings.Broker
	cfg.ClientID = settings.ClientID
	cfg.Username = settings.Username
	cfg.Password = settings.Password
	cfg.QoS = settings.QoS
	cfg.Retain = settings.Retain
	if settings.TopicPrefix != "" {
		cfg.TopicPrefix = settings.TopicPrefix
	}
	return cfg
}
