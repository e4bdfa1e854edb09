package main

import (
	"os"

	"github.com/tphakala/console-panel/cmd"
	"github.com/tphakala/console-panel/internal/buildinfo"
	"github.com/tphakala/console-panel/internal/conf"
)

// Set with -ldflags "-X main.version=... -X main.buildDate=..."
var (
	version   = "dev"
	buildDate string
)

func main() {
	settings := &conf.Settings{}
	build := buildinfo.NewContext(version, buildDate)

	if err := cmd.RootCommand(settings, build).Execute(); err != nil {
		os.Exit(1)
	}
}
