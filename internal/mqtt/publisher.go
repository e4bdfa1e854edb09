package mqtt

import (
	"context"
	"encoding/json"
	"time"

	"github.com/tphakala/console-panel/internal/datastore/entities"
	"github.com/tphakala/console-panel/internal/datastore/repository"
	"github.com/tphakala/console-panel/internal/errors"
	"github.com/tphakala/console-panel/internal/logger"
	"github.com/tphakala/console-panel/internal/observability/metrics"
)

// Configuration event names, also the last topic segment
const (
	EventSaved   = "saved"
	EventApplied = "applied"
	EventDeleted = "deleted"
)

// Events receives notifications about saved sessions. Implementations must
// be safe for concurrent use.
type Events interface {
	Saved(ctx context.Context, cfg *entities.Configuration) error
	Applied(ctx context.Context, cfg *entities.Configuration, result *repository.ApplyResult) error
	Deleted(ctx context.Context, id uint) error
}

// NopEvents discards every event. Used when MQTT is disabled.
type NopEvents struct{}

func (NopEvents) Saved(context.Context, *entities.Configuration) error { return nil }

func (NopEvents) Applied(context.Context, *entities.Configuration, *repository.ApplyResult) error {
	return nil
}

func (NopEvents) Deleted(context.Context, uint) error { return nil }

// ConfigurationEvent is the JSON payload published for every event.
type ConfigurationEvent struct {
	Event           string    `json:"event"`
	ConfigurationID uint      `json:"configuration_id"`
	Name            string    `json:"name,omitempty"`
	UserID          uint      `json:"user_id,omitempty"`
	InterfaceID     uint      `json:"interface_id,omitempty"`
	FrequencyID     *uint     `json:"frequency_id,omitempty"`
	Channels        int       `json:"channels"`
	Inputs          int       `json:"inputs"`
	SavedAt         time.Time `json:"saved_at,omitzero"`
	Timestamp       time.Time `json:"timestamp"`

	// set for applied events only
	FrequencyApplied *bool `json:"frequency_applied,omitempty"`
}

// Publisher turns configuration changes into MQTT messages under
// <prefix>/configurations/<event>.
type Publisher struct {
	client  Client
	prefix  string
	metrics *metrics.MQTTMetrics
	log     logger.Logger
	now     func() time.Time
}

// NewPublisher returns a Publisher sending through client. metrics may be nil.
func NewPublisher(client Client, prefix string, m *metrics.MQTTMetrics, log logger.Logger) *Publisher {
	if log == nil {
		log = logger.NewSlogLogger(nil, logger.LogLevelInfo)
	}
	return &Publisher{
		client:  client,
		prefix:  prefix,
		metrics: m,
		log:     log.Module("mqtt"),
		now:     time.Now,
	}
}

// Topic returns the topic for event
func (p *Publisher) Topic(event string) string {
	if p.prefix == "" {
		return "configurations/" + event
	}
	return p.prefix + "/configurations/" + event
}

// Saved publishes a snapshot or a newly created configuration
func (p *Publisher) Saved(ctx context.Context, cfg *entities.Configuration) error {
	return p.publish(ctx, p.eventFor(EventSaved, cfg))
}

// Applied publishes the result of restoring cfg
func (p *Publisher) Applied(ctx context.Context, cfg *entities.Configuration, result *repository.ApplyResult) error {
	ev := p.eventFor(EventApplied, cfg)
	if result != nil {
		ev.Channels = result.Channels
		ev.Inputs = result.Inputs
		ev.FrequencyApplied = &result.Frequency
	}
	return p.publish(ctx, ev)
}

// Deleted publishes the removal of configuration id
func (p *Publisher) Deleted(ctx context.Context, id uint) error {
	return p.publish(ctx, ConfigurationEvent{Event: EventDeleted, ConfigurationID: id, Timestamp: p.now().UTC()})
}

func (p *Publisher) eventFor(event string, cfg *entities.Configuration) ConfigurationEvent {
	return ConfigurationEvent{
		Event:           event,
		ConfigurationID: cfg.ID,
		Name:            cfg.Name,
		UserID:          cfg.UserID,
		InterfaceID:     cfg.InterfaceID,
		FrequencyID:     cfg.FrequencyID,
		Channels:        len(cfg.Channels),
		Inputs:          len(cfg.Inputs),
		SavedAt:         cfg.SavedAt,
		Timestamp:       p.now().UTC(),
	}
}

func (p *Publisher) publish(ctx context.Context, ev ConfigurationEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return errors.New(err).
			Component("mqtt").
			Category(errors.CategoryGeneric).
			Context("event", ev.Event).
			Build()
	}

	start := time.Now()
	err = p.client.Publish(ctx, p.Topic(ev.Event), payload)
	if p.metrics != nil {
		p.metrics.RecordPublish(ev.Event, len(payload), time.Since(start), err)
	}
	if err != nil {
		p.log.Warn("configuration event not published",
			logger.String("event", ev.Event),
			logger.Uint("configuration_id", ev.ConfigurationID),
			logger.Error(err))
		return err
	}
	return nil
}
