package pipeline

import (
	"fmt"

	"github.com/banshee-data/climate.report/internal/chart"
	"github.com/banshee-data/climate.report/internal/monitoring"
	"github.com/banshee-data/climate.report/internal/raster"
	"github.com/banshee-data/climate.report/internal/units"
)

// SeaIce builds the sea ice surface temperature heatmap from the yearly
// tiles under the imagery directory.
func SeaIce(env Env) (*Result, error) {
	cfg := env.Config
	unit := cfg.GetDisplayUnit()

	done := monitoring.Stage("load sea ice tiles")
	frames, err := raster.LoadFrames(env.FS, cfg.GetImageryDir(), raster.Options{
		Threshold: cfg.GetSentinelThreshold(),
		Scale:     cfg.GetRawScale(),
		Unit:      unit,
	})
	done()
	if err != nil {
		return nil, fmt.Errorf("sea ice: %w", err)
	}

	rows, cols := frames.Dims()
	res := cfg.GetResolutionKm()
	xAxis := raster.ComputeAxis(cols, res)
	yAxis := raster.ComputeAxis(rows, res)
	monitoring.Logf("sea ice: %d frames of %dx%d cells", len(frames.Frames), rows, cols)

	hmCfg := chart.HeatMapConfig{
		DefaultYear: cfg.GetDefaultFrameYear(),
		Midpoint:    units.ConvertTemperature(cfg.GetSurfaceMidpoint(), unit),
		UnitSymbol:  units.Symbol(unit),
	}
	fig, err := chart.NewSeaIceHeatMap(frames, xAxis, yAxis, hmCfg, env.chartOptions())
	if err != nil {
		return nil, err
	}

	out := &Result{Figure: fig}
	if cfg.GetWritePNG() {
		all := make([][]float64, 0, len(frames.Frames))
		for _, f := range frames.Frames {
			all = append(all, f.Grid.RawMatrix().Data)
		}
		frame := frames.Default(hmCfg.DefaultYear)
		title := fmt.Sprintf("%s %d", chart.HeatMapTitle, frame.Year)
		if out.Plot, err = chart.HeatMapPlot(title, frame.Grid, xAxis, yAxis, chart.SymmetricRange(hmCfg.Midpoint, all...)); err != nil {
			return nil, err
		}
	}
	return out, nil
}
