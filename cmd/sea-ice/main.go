// Command sea-ice renders the Arctic sea ice surface temperature heatmap.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/banshee-data/climate.report/internal/fsutil"
	"github.com/banshee-data/climate.report/internal/pipeline"
	"github.com/banshee-data/climate.report/internal/runner"
	"github.com/banshee-data/climate.report/internal/version"
)

var flags = runner.RegisterFlags(flag.CommandLine)

func main() {
	flag.Parse()

	if flags.Version {
		fmt.Println(version.String("sea-ice"))
		return
	}

	settings, err := flags.Resolve()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := runner.Run(ctx, fsutil.OSFileSystem{}, settings, pipeline.SeaIce); err != nil {
		log.Fatalf("sea-ice: %v", err)
	}
}
