// Package telemetry reports internal errors to Sentry when the operator opts in.
//
// Only errors that point at a fault in the panel itself are sent: anything
// with high or critical priority, and database, file and system resource
// failures. Validation, not-found, referential, conflict and login errors
// are the user's business and never leave the machine. Messages are
// scrubbed of e-mail addresses, credentials and IP addresses before sending.
package telemetry

import (
	"fmt"
	"runtime"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/tphakala/console-panel/internal/conf"
	"github.com/tphakala/console-panel/internal/errors"
	"github.com/tphakala/console-panel/internal/logger"
)

// Reporter sends selected errors to Sentry through its own hub.
type Reporter struct {
	hub *sentry.Hub
	log logger.Logger
}

// Option customizes the Sentry client
type Option func(*sentry.ClientOptions)

// WithTransport replaces the HTTP transport, used by tests
func WithTransport(t sentry.Transport) Option {
	return func(o *sentry.ClientOptions) { o.Transport = t }
}

// NewReporter creates a Reporter for settings. It does not check
// settings.Enabled; callers decide whether to create one.
func NewReporter(settings *conf.TelemetrySettings, release string, log logger.Logger, opts ...Option) (*Reporter, error) {
	if log == nil {
		log = logger.NewSlogLogger(nil, logger.LogLevelInfo)
	}

	options := sentry.ClientOptions{
		Dsn:              settings.DSN,
		SampleRate:       settings.SampleRate,
		Environment:      settings.Environment,
		Release:          "console-panel@" + release,
		AttachStacktrace: false,
		ServerName:       "", // hostname stays local
		BeforeSend:       beforeSend,
	}
	for _, opt := range opts {
		opt(&options)
	}

	client, err := sentry.NewClient(options)
	if err != nil {
		return nil, errors.New(fmt.Errorf("sentry initialization failed: %w", err)).
			Component("telemetry").
			Category(errors.CategoryConfiguration).
			Build()
	}

	scope := sentry.NewScope()
	scope.SetTag("os", runtime.GOOS)
	scope.SetTag("arch", runtime.GOARCH)
	scope.SetContext("application", map[string]any{
		"name":       "console-panel",
		"version":    release,
		"go_version": runtime.Version(),
	})

	r := &Reporter{hub: sentry.NewHub(client, scope), log: log.Module("telemetry")}
	r.log.Info("error telemetry enabled",
		logger.String("environment", settings.Environment),
		logger.Float64("sample_rate", settings.SampleRate))
	return r, nil
}

// ShouldReport tells whether ee describes a fault worth sending
func ShouldReport(ee *errors.EnhancedError) bool {
	switch ee.GetPriority() {
	case errors.PriorityHigh, errors.PriorityCritical:
		return true
	}
	switch errors.ErrorCategory(ee.GetCategory()) {
	case errors.CategoryDatabase, errors.CategoryFileIO, errors.CategorySystem:
		return true
	}
	return false
}

// Hook returns an error hook for errors.AddErrorHook
func (r *Reporter) Hook() errors.ErrorHook {
	return func(ee *errors.EnhancedError) {
		if ShouldReport(ee) {
			r.Capture(ee)
		}
	}
}

// Capture sends ee unconditionally
func (r *Reporter) Capture(ee *errors.EnhancedError) {
	r.hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("component", ee.GetComponent())
		scope.SetTag("category", ee.GetCategory())
		scope.SetLevel(levelFor(ee.GetPriority()))
		scope.SetFingerprint([]string{ee.GetComponent(), ee.GetCategory(), fmt.Sprintf("%T", ee.Err)})

		event := sentry.NewEvent()
		event.Level = levelFor(ee.GetPriority())
		event.Message = ScrubMessage(ee.Error())
		event.Timestamp = ee.GetTimestamp()
		event.Extra = map[string]any{
			"component":  ee.GetComponent(),
			"error_type": fmt.Sprintf("%T", ee.Err),
		}
		r.hub.CaptureEvent(event)
	})
}

// Flush waits up to timeout for queued events to be sent
func (r *Reporter) Flush(timeout time.Duration) bool {
	return r.hub.Flush(timeout)
}

func levelFor(priority string) sentry.Level {
	switch priority {
	case errors.PriorityCritical:
		return sentry.LevelFatal
	case errors.PriorityHigh:
		return sentry.LevelError
	case errors.PriorityLow:
		return sentry.LevelInfo
	default:
		return sentry.LevelWarning
	}
}

// beforeSend strips everything that could identify the machine or a user
func beforeSend(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
	event.User = sentry.User{}
	event.ServerName = ""

	if event.Contexts != nil {
		delete(event.Contexts, "device")
		delete(event.Contexts, "os")
		delete(event.Contexts, "runtime")
	}

	for k := range event.Extra {
		if k != "error_type" && k != "component" {
			delete(event.Extra, k)
		}
	}

	if event.Tags != nil {
		delete(event.Tags, "server_name")
		delete(event.Tags, "hostname")
	}

	event.Message = ScrubMessage(event.Message)
	for i := range event.Exception {
		event.Exception[i].Value = ScrubMessage(event.Exception[i].Value)
	}
	return event
}
