package chart

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/climate.report/internal/monitoring"
	"github.com/banshee-data/climate.report/internal/raster"
)

// Labels of the sea ice heatmap.
const (
	HeatMapTitle        = "Arctic Sea Ice Surface Temperature (September 1)"
	HeatMapAxisTitle    = "Distance from North Pole (km)"
	HeatMapSliderPrefix = "September 1, "
)

// ErrAxisLength is returned when an axis does not match the grid shape.
var ErrAxisLength = errors.New("chart: axis length does not match grid")

// HeatMapConfig controls the sea ice figure.
type HeatMapConfig struct {
	DefaultYear int
	// Midpoint is the temperature drawn white, in UnitSymbol units.
	Midpoint   float64
	UnitSymbol string
}

// ColorbarTitle returns the colour scale caption for the unit.
func (c HeatMapConfig) ColorbarTitle() string {
	return fmt.Sprintf("Temperature (%s)", c.unit())
}

func (c HeatMapConfig) unit() string {
	if c.UnitSymbol == "" {
		return "K"
	}
	return c.UnitSymbol
}

// NewSeaIceHeatMap builds the surface temperature heatmap with a slider
// over every frame year. xAxis labels the grid columns and yAxis the rows,
// both in kilometres from the pole. The colour extent is shared by all
// frames and centred on the midpoint.
func NewSeaIceHeatMap(frames *raster.FrameSet, xAxis, yAxis []float64, cfg HeatMapConfig, o Options) (*Figure, error) {
	if frames == nil || len(frames.Frames) == 0 {
		return nil, raster.ErrNoFrames
	}
	rows, cols := frames.Dims()
	if len(xAxis) != cols || len(yAxis) != rows {
		return nil, fmt.Errorf("%w: grid %dx%d, axes %d and %d", ErrAxisLength, rows, cols, len(yAxis), len(xAxis))
	}

	active := IndexOf(yearKeys(frames.Years()), strconv.Itoa(cfg.DefaultYear))
	if active < 0 {
		monitoring.Logf("chart: no frame for %d, starting at %d", cfg.DefaultYear, frames.Frames[0].Year)
		active = 0
	}

	grids := make([][]float64, len(frames.Frames))
	steps := make([]Step, len(frames.Frames))
	var initial []opts.HeatMapData
	for i, f := range frames.Frames {
		grids[i] = f.Grid.RawMatrix().Data
		data := heatMapData(f.Grid)
		key := strconv.Itoa(f.Year)
		steps[i] = Step{
			Key:   key,
			Label: key,
			Patch: map[string]any{
				"series": []any{map[string]any{"name": key, "data": data}},
			},
		}
		if i == active {
			initial = data
		}
	}
	r := SymmetricRange(cfg.Midpoint, grids...)

	xLabels, yLabels := axisLabels(xAxis), axisLabels(yAxis)
	init := o.initialization(HeatMapTitle, "860px", "860px")
	tooltip := fmt.Sprintf(
		"function(p){var d=window[%q].extra;return 'X: '+d.x[p.value[0]]+' <br>Y: '+d.y[p.value[1]]+' <br>Temp (%s): '+p.value[2];}",
		init.ChartID+"_data", cfg.unit())

	hm := charts.NewHeatMap()
	hm.SetGlobalOptions(
		charts.WithInitializationOpts(init),
		charts.WithTitleOpts(opts.Title{Title: HeatMapTitle, Left: "center", Top: "bottom"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "item", Formatter: opts.FuncOpts(tooltip)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}),
		charts.WithGridOpts(opts.Grid{Left: "90", Right: "120", Top: "90", Bottom: "70"}),
		charts.WithXAxisOpts(opts.XAxis{
			Type:         "category",
			Data:         xLabels,
			Position:     "top",
			Name:         HeatMapAxisTitle,
			NameLocation: "middle",
			NameGap:      35,
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Type:         "category",
			Data:         yLabels,
			Inverse:      opts.Bool(true),
			Name:         HeatMapAxisTitle,
			NameLocation: "middle",
			NameGap:      60,
		}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Type:       "continuous",
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        float32(r.Min),
			Max:        float32(r.Max),
			Text:       []string{cfg.ColorbarTitle()},
			Orient:     "vertical",
			Right:      "10",
			Top:        "middle",
			InRange:    &opts.VisualMapInRange{Color: DivergingRedBlue},
		}),
	)
	hm.AddSeries(steps[active].Key, initial)

	js, err := controlScript(init.ChartID, []Control{{
		Kind:   Slider,
		Label:  "Year",
		Prefix: HeatMapSliderPrefix,
		Steps:  steps,
		Active: active,
	}}, map[string]any{"x": xLabels, "y": yLabels})
	if err != nil {
		return nil, err
	}
	hm.AddJSFuncs(js)

	return &Figure{Name: "sea-ice-surface-temperature", Title: HeatMapTitle, Chart: hm}, nil
}

// heatMapData lists [col, row, value] for every finite cell. Masked cells
// are left out so they render transparent.
func heatMapData(grid *mat.Dense) []opts.HeatMapData {
	rows, cols := grid.Dims()
	data := make([]opts.HeatMapData, 0, rows*cols)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			v := grid.At(r, c)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			data = append(data, opts.HeatMapData{Value: [3]any{c, r, math.Round(v*100) / 100}})
		}
	}
	return data
}

func axisLabels(axis []float64) []string {
	out := make([]string, len(axis))
	for i, v := range axis {
		out[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	return out
}

func yearKeys(years []int) []string {
	out := make([]string, len(years))
	for i, y := range years {
		out[i] = strconv.Itoa(y)
	}
	return out
}
