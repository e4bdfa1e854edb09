// Package serve implements the command that runs the web panel.
package serve

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/tphakala/console-panel/internal/api"
	"github.com/tphakala/console-panel/internal/buildinfo"
	"github.com/tphakala/console-panel/internal/conf"
	"github.com/tphakala/console-panel/internal/datastore"
	"github.com/tphakala/console-panel/internal/errors"
	"github.com/tphakala/console-panel/internal/logger"
	"github.com/tphakala/console-panel/internal/mqtt"
	"github.com/tphakala/console-panel/internal/observability"
	"github.com/tphakala/console-panel/internal/telemetry"
)

const telemetryFlushTimeout = 2 * time.Second

// Command creates the serve command
func Command(settings *conf.Settings, build *buildinfo.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the web panel",
		Long:  "Serve the HTML pages, the JSON API and the metrics endpoint until interrupted.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return Run(ctx, settings, build)
		},
	}
}

// Run starts the panel and blocks until ctx is cancelled or the server fails.
func Run(ctx context.Context, settings *conf.Settings, build *buildinfo.Context) error {
	central, err := logger.NewCentralLogger(loggingConfig(settings))
	if err != nil {
		return err
	}
	defer func() { _ = central.Close() }()

	log := central.Module("main")
	log.Info("starting console panel",
		logger.String("build", build.String()),
		logger.String("config", settings.ConfigFile))
	for _, w := range settings.Warnings {
		log.Warn("configuration warning", logger.String("detail", w))
	}

	m, err := observability.NewMetrics()
	if err != nil {
		return err
	}
	errors.AddErrorHook(m.Errors.Hook())

	if settings.Telemetry.Enabled {
		reporter, err := telemetry.NewReporter(&settings.Telemetry, build.GetVersion(), central.Module("telemetry"))
		if err != nil {
			log.Warn("error telemetry disabled", logger.Error(err))
		} else {
			errors.AddErrorHook(reporter.Hook())
			defer reporter.Flush(telemetryFlushTimeout)
		}
	}

	store, err := datastore.Open(ctx, &settings.Database, central.Module("datastore"),
		datastore.WithQueryObserver(m.Datastore),
		datastore.WithTableObserver(m.Datastore))
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Warn("failed to close database", logger.Error(err))
		}
	}()

	if sqlDB, err := store.SQLDB(); err == nil {
		if err := m.RegisterDBStats(sqlDB, settings.Database.Type); err != nil {
			log.Warn("database pool metrics unavailable", logger.Error(err))
		}
	}
	warnWithoutUsers(ctx, store, log)

	var (
		events mqtt.Events = mqtt.NopEvents{}
		client mqtt.Client
	)
	if settings.MQTT.Enabled {
		cfg := mqtt.ConfigFromSettings(&settings.MQTT)
		client, err = mqtt.NewClient(cfg, m.MQTT, central.Module("mqtt"))
		if err != nil {
			return err
		}
		defer client.Disconnect()
		events = mqtt.NewPublisher(client, cfg.TopicPrefix, m.MQTT, central.Module("mqtt"))
	}

	srv, err := api.New(settings,
		api.WithDataStore(store),
		api.WithMetrics(m),
		api.WithEvents(events),
		api.WithLogger(central.Module("http")),
		api.WithVersion(build.GetVersion()))
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx)
	})
	if client != nil {
		g.Go(func() error {
			// Events raised while disconnected are dropped with a warning
			if err := client.Connect(gctx); err != nil {
				log.Warn("MQTT broker unavailable",
					logger.String("broker", settings.MQTT.Broker),
					logger.Error(err))
			}
			return nil
		})
	}

	err = g.Wait()
	log.Info("console panel stopped")
	return err
}

// loggingConfig returns the logging settings with the debug flag applied
func loggingConfig(settings *conf.Settings) *logger.LoggingConfig {
	cfg := settings.Logging
	if settings.Debug {
		cfg.DefaultLevel = "debug"
	}
	return &cfg
}

func warnWithoutUsers(ctx context.Context, store *datastore.Store, log logger.Logger) {
	n, err := store.Users.Count(ctx)
	if err != nil {
		log.Warn("failed to count users", logger.Error(err))
		return
	}
	if n == 0 {
		log.Warn("no user accounts exist, create one with: console-panel user add --email <email> --role admin")
	}
}
