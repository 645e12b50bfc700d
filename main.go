package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fleetops/geocheckin/cmd"
	"github.com/fleetops/geocheckin/internal/buildinfo"
)

// Set at build time with -ldflags "-X main.version=... -X main.buildDate=..."
var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	root := cmd.RootCommand(&buildinfo.Info{Version: version, BuildDate: buildDate})
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
