package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tphakala/console-panel/cmd/db"
	"github.com/tphakala/console-panel/cmd/serve"
	"github.com/tphakala/console-panel/cmd/user"
	"github.com/tphakala/console-panel/internal/buildinfo"
	"github.com/tphakala/console-panel/internal/conf"
)

// RootCommand creates and returns the root command. Running it without a
// subcommand starts the server.
func RootCommand(settings *conf.Settings, build *buildinfo.Context) *cobra.Command {
	var configFile string

	rootCmd := &cobra.Command{
		Use:           "console-panel",
		Short:         "Mixing console configuration panel",
		Long:          "Web front-end for the users, devices, interfaces, channels and saved configurations of an audio mixing console.",
		Version:       build.GetVersion(),
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	// Set up the global flags for the root command.
	if err := setupFlags(rootCmd, &configFile); err != nil {
		panic(err) // flag names are static
	}

	serveCmd := serve.Command(settings, build)
	userCmd := user.Command(settings)
	dbCmd := db.Command(settings)
	versionCmd := versionCommand(build)

	rootCmd.AddCommand(serveCmd, userCmd, dbCmd, versionCmd)
	rootCmd.RunE = serveCmd.RunE

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		// The version command needs no configuration
		if cmd.Name() == versionCmd.Name() {
			return nil
		}
		return initialize(settings, configFile)
	}

	return rootCmd
}

// initialize loads the configuration. Flags bound in setupFlags take
// precedence over the environment and the config file.
func initialize(settings *conf.Settings, configFile string) error {
	loaded, err := conf.Load(configFile)
	if err != nil {
		return err
	}
	*settings = *loaded
	return nil
}

// setupFlags defines the persistent flags and binds the overriding ones to
// their configuration keys
func setupFlags(rootCmd *cobra.Command, configFile *string) error {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(configFile, "config", "c", "", "Path to config.yaml (default: search the standard locations)")
	flags.BoolP("debug", "d", false, "Enable debug output")
	flags.StringP("port", "p", "", "HTTP listen port")
	flags.String("db", "", "Path to the SQLite database file")

	bindings := map[string]string{
		"debug":                "debug",
		"webserver.port":       "port",
		"database.sqlite.path": "db",
	}
	for key, flag := range bindings {
		if err := viper.BindPFlag(key, flags.Lookup(flag)); err != nil {
			return fmt.Errorf("error binding flag %s: %w", flag, err)
		}
	}
	return nil
}

func versionCommand(build *buildinfo.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Println(build.String())
		},
	}
}
