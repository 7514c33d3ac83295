package chart

import (
	"errors"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/climate.report/internal/faostat"
	"github.com/banshee-data/climate.report/internal/monitoring"
)

// Labels of the regional bar chart.
const (
	BarTitle         = "Temperature Change Over Time (Compared to 1951-1980 Baseline)"
	BarXAxisTitle    = "Year"
	BarYAxisTitle    = "Temperature Change from Baseline (C)"
	BarColorbarTitle = "Temp. Change (C)"
	BarControlLabel  = "World Region:"
	BarTooltip       = "Year: {b} <br>Temp Change (C): {c}"
)

// ErrNoEntities is returned when a table has no entity to plot.
var ErrNoEntities = errors.New("chart: no entities")

// BarConfig selects the initial entity and the colour scale midpoint.
type BarConfig struct {
	DefaultEntity string
	Midpoint      float64
}

// NewRegionBar builds the bar chart of temperature change per year with a
// dropdown over every entity of the wide table. The colour scale of each
// entity is centred on the midpoint and spans that entity's values.
func NewRegionBar(table *faostat.WideTable, cfg BarConfig, o Options) (*Figure, error) {
	if table == nil || len(table.Entities) == 0 {
		return nil, ErrNoEntities
	}

	active := IndexOf(table.Entities, cfg.DefaultEntity)
	if active < 0 {
		monitoring.Logf("chart: default entity %q not in table, using %q", cfg.DefaultEntity, table.Entities[0])
		active = 0
	}

	steps := make([]Step, len(table.Entities))
	var initial []opts.BarData
	var initialRange Range
	for i, entity := range table.Entities {
		values, err := table.Column(entity)
		if err != nil {
			return nil, err
		}
		data := barData(values)
		r := SymmetricRange(cfg.Midpoint, values)
		steps[i] = Step{
			Key:   entity,
			Label: entity,
			Patch: map[string]any{
				"series":    []any{map[string]any{"name": entity, "data": data}},
				"visualMap": []any{map[string]any{"min": r.Min, "max": r.Max}},
			},
		}
		if i == active {
			initial, initialRange = data, r
		}
	}

	init := o.initialization(BarTitle, "100%", "640px")
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(init),
		charts.WithTitleOpts(opts.Title{Title: BarTitle, Left: "center"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "item", Formatter: BarTooltip}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "category", Name: BarXAxisTitle, NameLocation: "middle", NameGap: 30}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Name: BarYAxisTitle, NameLocation: "middle", NameGap: 45}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Type:       "continuous",
			Show:       opts.Bool(true),
			Calculable: opts.Bool(false),
			Min:        float32(initialRange.Min),
			Max:        float32(initialRange.Max),
			Text:       []string{BarColorbarTitle},
			Orient:     "vertical",
			Right:      "10",
			Top:        "middle",
			InRange:    &opts.VisualMapInRange{Color: DivergingRedBlue},
		}),
	)
	bar.SetXAxis(table.Years).
		AddSeries(table.Entities[active], initial)

	js, err := controlScript(init.ChartID, []Control{{
		Kind:   Dropdown,
		Label:  BarControlLabel,
		Steps:  steps,
		Active: active,
	}}, nil)
	if err != nil {
		return nil, err
	}
	bar.AddJSFuncs(js)

	return &Figure{Name: "temperature-change-regions", Title: BarTitle, Chart: bar}, nil
}

func barData(values []float64) []opts.BarData {
	data := make([]opts.BarData, len(values))
	for i, v := range values {
		data[i] = opts.BarData{Value: valueOrMissing(v)}
	}
	return data
}

