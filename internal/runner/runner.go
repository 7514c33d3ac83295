// Package runner holds the flag handling and run loop shared by the chart
// commands: load config, build one figure, write it and optionally serve it.
package runner

import (
	"context"
	"flag"
	"fmt"

	"github.com/banshee-data/climate.report/internal/config"
	"github.com/banshee-data/climate.report/internal/fsutil"
	"github.com/banshee-data/climate.report/internal/monitoring"
	"github.com/banshee-data/climate.report/internal/pipeline"
	"github.com/banshee-data/climate.report/internal/security"
	"github.com/banshee-data/climate.report/internal/viewer"
)

// Builder is one of the pipeline entry points.
type Builder func(pipeline.Env) (*pipeline.Result, error)

// Flags are the command line options common to every chart command.
type Flags struct {
	Config  string
	Data    string
	Out     string
	Listen  string
	PNG     bool
	Version bool
}

// RegisterFlags defines the shared flags on fs.
func RegisterFlags(fs *flag.FlagSet) *Flags {
	f := &Flags{}
	fs.StringVar(&f.Config, "config", "", "Path to a JSON config file (defaults built in)")
	fs.StringVar(&f.Data, "data", "", "Directory relative input paths are resolved against")
	fs.StringVar(&f.Out, "out", "", "Output directory (overrides output_dir)")
	fs.StringVar(&f.Listen, "listen", "", "Serve the figure on this address after writing it, e.g. :8080")
	fs.BoolVar(&f.PNG, "png", false, "Also write a static PNG of the initial view")
	fs.BoolVar(&f.Version, "version", false, "Print version and exit")
	return f
}

// Settings is the resolved configuration of one run.
type Settings struct {
	Config *config.ClimateConfig
	OutDir string
	Listen string
}

// Resolve loads the config file and applies the flag overrides.
func (f *Flags) Resolve() (*Settings, error) {
	cfg, err := config.LoadOrDefault(f.Config)
	if err != nil {
		return nil, err
	}
	if f.Data != "" {
		if err := security.ValidateRelativeInputs(f.Data,
			cfg.GetRegionsFile(), cfg.GetCountriesFile(), cfg.GetBoundariesFile(), cfg.GetImageryDir(),
		); err != nil {
			return nil, fmt.Errorf("data paths: %w", err)
		}
	}
	cfg = cfg.WithDataDir(f.Data)
	if f.PNG {
		png := true
		cfg.WritePNG = &png
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	s := &Settings{Config: cfg, OutDir: cfg.GetOutputDir(), Listen: cfg.GetListenAddr()}
	if f.Out != "" {
		s.OutDir = f.Out
	}
	if f.Listen != "" {
		s.Listen = f.Listen
	}
	return s, nil
}

// Run builds the figure, writes it under the output directory and, when a
// listen address is set, serves it until ctx is cancelled.
func Run(ctx context.Context, fsys fsutil.FileSystem, s *Settings, build Builder) error {
	res, err := build(pipeline.Env{FS: fsys, Config: s.Config})
	if err != nil {
		return err
	}
	written, err := pipeline.Publish(fsys, s.OutDir, res)
	if err != nil {
		return err
	}
	monitoring.Logf("wrote %s", written.HTML)
	for _, p := range []string{written.PNG, written.CSV} {
		if p != "" {
			monitoring.Logf("wrote %s", p)
		}
	}

	if s.Listen == "" {
		return nil
	}
	srv, err := viewer.NewServer(res.Figure)
	if err != nil {
		return err
	}
	if err := srv.Run(ctx, s.Listen); err != nil {
		return err
	}
	monitoring.Logf("Graceful shutdown complete")
	return nil
}
