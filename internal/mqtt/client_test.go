package mqtt

import (
	"context"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/console-panel/internal/conf"
	"github.com/tphakala/console-panel/internal/errors"
)

func TestNewClientRejectsInvalidBroker(t *testing.T) {
	t.Parallel()

	for _, broker := range []string{"", "localhost", "://bad"} {
		_, err := NewClient(Config{Broker: broker}, nil, nil)
		require.Error(t, err, broker)
		assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration), broker)
	}
}

func TestPublishWhileDisconnected(t *testing.T) {
	t.Parallel()
	c, err := NewClient(DefaultConfig(), nil, nil)
	require.Error(t, err, "default config has no broker")
	assert.Nil(t, c)

	cfg := DefaultConfig()
	cfg.Broker = "tcp://127.0.0.1:1883"
	c, err = NewClient(cfg, nil, nil)
	require.NoError(t, err)

	assert.False(t, c.IsConnected())
	require.ErrorIs(t, c.Publish(t.Context(), "console-panel/test", []byte("{}")), ErrNotConnected)
	c.Disconnect()
}

func TestConnectUnresolvableHost(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()
	cfg.Broker = "tcp://unresolvable.invalid:1883"
	cfg.ReconnectCooldown = time.Minute
	c, err := NewClient(cfg, nil, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
	defer cancel()
	require.Error(t, c.Connect(ctx))

	err = c.Connect(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too recent")
	assert.True(t, errors.IsCategory(err, errors.CategoryMQTTConnection))
}

// brokerStub is a connected paho client whose publishes complete with err
type brokerStub struct {
	paho.Client
	err error
}

func (brokerStub) IsConnected() bool { return true }

func (b brokerStub) Publish(string, byte, bool, any) paho.Token {
	return doneToken{err: b.err}
}

type doneToken struct {
	err error
}

func (doneToken) Wait() bool { return true }

func (doneToken) WaitTimeout(time.Duration) bool { return true }

func (t doneToken) Error() error { return t.err }

func (doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

func TestPublishFailureCategory(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()
	cfg.Broker = "tcp://127.0.0.1:1883"
	c, err := NewClient(cfg, nil, nil)
	require.NoError(t, err)
	c.(*client).internalClient = brokerStub{err: errors.NewStd("not authorized")}

	err = c.Publish(t.Context(), "console-panel/configurations/saved", []byte("{}"))
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryMQTTPublish))
	assert.Equal(t, errors.CategoryMQTTPublish, errors.Classify(err))
}

func TestConfigFromSettings(t *testing.T) {
	t.Parallel()
	cfg := ConfigFromSettings(&conf.MQTTSettings{
		Broker:   "ssl://broker:8883",
		ClientID: "desk-1",
		QoS:      2,
		Retain:   true,
	})
	assert.Equal(t, "ssl://broker:8883", cfg.Broker)
	assert.Equal(t, "desk-1", cfg.ClientID)
	assert.Equal(t, byte(2), cfg.QoS)
	assert.True(t, cfg.Retain)
	assert.Equal(t, "console-panel", cfg.TopicPrefix, "empty prefix keeps the default")
	assert.Equal(t, 10*time.Second, cfg.PublishTimeout)
}
