package chart

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/climate.report/internal/faostat"
	"github.com/banshee-data/climate.report/internal/geo"
	"github.com/banshee-data/climate.report/internal/monitoring"
)

// Labels of the country choropleth.
const (
	MapTitle          = "Temperature Change by Country (from 1951-1980 Baseline)"
	MapColorbarTitle  = "Temp. Change (C)"
	MapSliderPrefix   = "Year: "
	MapProjectionText = "Map Projection"
	MapTooltip        = "Country: {b} <br>Temp Change (C): {c}"
)

// ErrNoProjections is returned when no outline set is supplied.
var ErrNoProjections = errors.New("chart: no map projections")

// MapConfig controls the choropleth.
type MapConfig struct {
	DefaultYear string
	Midpoint    float64
}

// NewCountryMap builds the choropleth of temperature change per country.
// A slider steps through every year column and a dropdown switches between
// the projected outline sets; the first set is shown initially. Countries
// are joined to outlines by their ISO alpha-3 code. The colour extent is
// shared by all years and centred on the midpoint.
func NewCountryMap(table *faostat.CountryTable, maps []geo.ProjectedMap, cfg MapConfig, o Options) (*Figure, error) {
	if table == nil || len(table.Codes) == 0 || len(table.Years) == 0 {
		return nil, faostat.ErrEmptyTable
	}
	if len(maps) == 0 {
		return nil, ErrNoProjections
	}

	active := IndexOf(table.Years, cfg.DefaultYear)
	if active < 0 {
		monitoring.Logf("chart: year %q not in table, starting at %q", cfg.DefaultYear, table.Years[0])
		active = 0
	}

	r := SymmetricRange(cfg.Midpoint, table.Values.RawMatrix().Data)

	years := make([]Step, len(table.Years))
	var initial []opts.MapData
	for i, y := range table.Years {
		values, err := table.Year(y)
		if err != nil {
			return nil, err
		}
		data := mapData(table.Codes, values)
		years[i] = Step{
			Key:   y,
			Label: y,
			Patch: map[string]any{
				"series": []any{map[string]any{"data": data}},
			},
		}
		if i == active {
			initial = data
		}
	}

	projections := make([]Step, len(maps))
	for i, m := range maps {
		projections[i] = Step{
			Key:   m.MapName,
			Label: m.Projection,
			Patch: map[string]any{
				"series": []any{map[string]any{"map": m.MapName}},
			},
		}
	}

	init := o.initialization(MapTitle, "100%", "720px")
	m := charts.NewMap()
	m.SetGlobalOptions(
		charts.WithInitializationOpts(init),
		charts.WithTitleOpts(opts.Title{Title: MapTitle, Left: "center"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "item", Formatter: MapTooltip}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Type:       "continuous",
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        float32(r.Min),
			Max:        float32(r.Max),
			Text:       []string{MapColorbarTitle},
			Orient:     "vertical",
			Right:      "10",
			Top:        "middle",
			InRange:    &opts.VisualMapInRange{Color: DivergingRedBlue},
		}),
	)
	for _, pm := range maps {
		header, err := registerMapScript(pm)
		if err != nil {
			return nil, err
		}
		m.AddCustomizedHeaders(header)
	}
	m.RegisterMapType(maps[0].MapName)
	m.AddSeries(MapColorbarTitle, initial,
		charts.WithSeriesOpts(func(s *charts.SingleSeries) {
			s.Roam = opts.Bool(true)
		}),
	)

	js, err := controlScript(init.ChartID, []Control{
		{Kind: Slider, Label: "Year", Prefix: MapSliderPrefix, Steps: years, Active: active},
		{Kind: Dropdown, Label: MapProjectionText, Steps: projections, Active: 0},
	}, nil)
	if err != nil {
		return nil, err
	}
	// Outlines are already projected, so the map must not be stretched.
	m.AddJSFuncs("%MY_ECHARTS%.setOption({series:[{aspectScale:1}]});", js)

	return &Figure{Name: "temperature-change-countries", Title: MapTitle, Chart: m}, nil
}

// mapData pairs codes with values, leaving out missing values so those
// countries render uncoloured.
func mapData(codes []string, values []float64) []opts.MapData {
	data := make([]opts.MapData, 0, len(codes))
	for i, code := range codes {
		v := values[i]
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		data = append(data, opts.MapData{Name: code, Value: v})
	}
	return data
}

func registerMapScript(pm geo.ProjectedMap) (string, error) {
	name, err := json.Marshal(pm.MapName)
	if err != nil {
		return "", fmt.Errorf("marshal map name: %w", err)
	}
	return fmt.Sprintf("<script>echarts.registerMap(%s, %s);</script>", name, pm.GeoJSON), nil
}
