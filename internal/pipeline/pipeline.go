// Package pipeline runs the three chart pipelines end to end: load the
// dataset, transform it into chart-ready values, build the figure and
// write it out.
package pipeline

import (
	"fmt"
	"path/filepath"

	"github.com/go-gota/gota/dataframe"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/climate.report/internal/chart"
	"github.com/banshee-data/climate.report/internal/config"
	"github.com/banshee-data/climate.report/internal/fsutil"
	"github.com/banshee-data/climate.report/internal/monitoring"
)

// Static export size.
const (
	PNGWidth  = 10 * vg.Inch
	PNGHeight = 6 * vg.Inch
)

// Env carries what every pipeline needs: where to read, how to configure
// the figures and how the page is assembled.
type Env struct {
	FS     fsutil.FileSystem
	Config *config.ClimateConfig
	Chart  chart.Options
}

func (e Env) chartOptions() chart.Options {
	o := e.Chart
	if o.AssetsHost == "" {
		o.AssetsHost = e.Config.GetAssetsHost()
	}
	return o
}

// Result is a built figure and its optional companions.
type Result struct {
	Figure *chart.Figure
	// Plot is the static export of the initial view. It is nil unless PNG
	// output is enabled.
	Plot *plot.Plot
	// Table is the chart-ready data, written as CSV when set.
	Table *dataframe.DataFrame
}

// Written lists the files Publish created.
type Written struct {
	HTML string
	PNG  string
	CSV  string
}

// Publish writes the figure page and any static export or table into dir.
func Publish(fsys fsutil.FileSystem, dir string, res *Result) (*Written, error) {
	defer monitoring.Stage("write " + res.Figure.Name)()

	out := &Written{}
	path, err := chart.WriteHTML(fsys, dir, res.Figure)
	if err != nil {
		return nil, err
	}
	out.HTML = path

	if res.Plot != nil {
		path, err := chart.WritePNG(fsys, dir, res.Figure.Name, res.Plot, PNGWidth, PNGHeight)
		if err != nil {
			return nil, err
		}
		out.PNG = path
	}

	if res.Table != nil {
		path, err := writeCSV(fsys, dir, res.Figure.Name, *res.Table)
		if err != nil {
			return nil, err
		}
		out.CSV = path
	}
	return out, nil
}

func writeCSV(fsys fsutil.FileSystem, dir, name string, df dataframe.DataFrame) (string, error) {
	if err := fsys.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(dir, name+".csv")
	f, err := fsys.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}
	if err := df.WriteCSV(f); err != nil {
		f.Close()
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", path, err)
	}
	return path, nil
}
