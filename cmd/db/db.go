// Package db implements the database maintenance commands.
package db

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tphakala/console-panel/internal/conf"
	"github.com/tphakala/console-panel/internal/datastore"
	"github.com/tphakala/console-panel/internal/datastore/transfer"
	"github.com/tphakala/console-panel/internal/logger"
)

// Command creates the db command and its subcommands
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database maintenance",
	}
	cmd.AddCommand(copyCommand(settings))
	return cmd
}

type copyOptions struct {
	from       string
	mysql      conf.MySQLSettings
	batchSize  int
	clean      bool
	skipVerify bool
	verbose    bool
}

func copyCommand(settings *conf.Settings) *cobra.Command {
	var opts copyOptions

	cmd := &cobra.Command{
		Use:   "copy",
		Short: "Copy the SQLite database into MySQL",
		Long: `Copy every table of the SQLite database into the MySQL database, keeping
primary keys. Rows already present in MySQL are skipped, so the copy can be
repeated. Connection settings default to the database section of the
configuration; flags override them.`,
		Example: "  console-panel db copy --mysql-host db.local --mysql-user panel --mysql-database panel",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCopy(cmd, settings, &opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.from, "from", "", "Source SQLite file (default: database.sqlite.path)")
	f.StringVar(&opts.mysql.Host, "mysql-host", "", "Target MySQL host")
	f.StringVar(&opts.mysql.Port, "mysql-port", "", "Target MySQL port")
	f.StringVar(&opts.mysql.Username, "mysql-user", "", "Target MySQL username")
	f.StringVar(&opts.mysql.Password, "mysql-password", "", "Target MySQL password")
	f.StringVar(&opts.mysql.Database, "mysql-database", "", "Target MySQL database")
	f.IntVar(&opts.batchSize, "batch-size", transfer.DefaultBatchSize, "Rows per insert")
	f.BoolVar(&opts.clean, "clean", false, "Delete all rows of the target before copying")
	f.BoolVar(&opts.skipVerify, "skip-verify", false, "Skip the comparison after copying")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "Log every table")

	return cmd
}

// databases returns the source and target settings for a copy
func (o *copyOptions) databases(settings *conf.Settings) (source, target conf.DatabaseSettings) {
	source = conf.DatabaseSettings{Type: conf.DatabaseSQLite, SQLite: settings.Database.SQLite}
	if o.from != "" {
		source.SQLite.Path = o.from
	}

	target = conf.DatabaseSettings{Type: conf.DatabaseMySQL, MySQL: settings.Database.MySQL}
	m := &target.MySQL
	for _, override := range []struct{ flag, dst *string }{
		{&o.mysql.Host, &m.Host},
		{&o.mysql.Port, &m.Port},
		{&o.mysql.Username, &m.Username},
		{&o.mysql.Password, &m.Password},
		{&o.mysql.Database, &m.Database},
	} {
		if *override.flag != "" {
			*override.dst = *override.flag
		}
	}
	if m.Port == "" {
		m.Port = "3306"
	}
	return source, target
}

func runCopy(cmd *cobra.Command, settings *conf.Settings, opts *copyOptions) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	level := logger.LogLevelError
	if opts.verbose {
		level = logger.LogLevelInfo
	}
	log := logger.NewSlogLogger(cmd.ErrOrStderr(), level)

	srcSettings, dstSettings := opts.databases(settings)
	if _, err := os.Stat(srcSettings.SQLite.Path); err != nil {
		return fmt.Errorf("source database: %w", err)
	}
	if dstSettings.MySQL.Host == "" || dstSettings.MySQL.Database == "" {
		return fmt.Errorf("target MySQL host and database are required")
	}

	source, err := datastore.Open(ctx, &srcSettings, log)
	if err != nil {
		return err
	}
	defer func() { _ = source.Close() }()

	target, err := datastore.Open(ctx, &dstSettings, log)
	if err != nil {
		return err
	}
	defer func() { _ = target.Close() }()

	_, _ = fmt.Fprintf(out, "Source: %s\nTarget: %s\n", srcSettings.DSNSummary(), dstSettings.DSNSummary())

	stats, err := transfer.Copy(ctx, source, target, transfer.Options{
		BatchSize: opts.batchSize,
		Clean:     opts.clean,
		Log:       log,
	})
	if err != nil {
		return err
	}
	stats.Print(out)

	if opts.skipVerify {
		return nil
	}
	counts, err := transfer.Verify(ctx, source, target, transfer.DefaultSamples)
	_, _ = fmt.Fprintln(out, "\nVerification:")
	for _, c := range counts {
		mark := "ok"
		if !c.Match() {
			mark = "MISMATCH"
		}
		_, _ = fmt.Fprintf(out, "%-25s %10d %10d  %s\n", c.Name, c.Source, c.Target, mark)
	}
	return err
}
