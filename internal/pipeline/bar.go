package pipeline

import (
	"fmt"

	"github.com/banshee-data/climate.report/internal/chart"
	"github.com/banshee-data/climate.report/internal/faostat"
	"github.com/banshee-data/climate.report/internal/monitoring"
)

// RegionBars builds the regional temperature-change bar chart. The table
// is filtered to the annual temperature-change rows, the year prefix is
// stripped and the result is reshaped to one column per region.
func RegionBars(env Env) (*Result, error) {
	cfg := env.Config

	done := monitoring.Stage("load regions")
	df, err := faostat.LoadTable(env.FS, cfg.GetRegionsFile(), cfg.GetTableEncoding())
	done()
	if err != nil {
		return nil, err
	}

	done = monitoring.Stage("reshape regions")
	df, err = faostat.FilterAnnualTemperatureChange(df, cfg.GetElementCode(), cfg.GetMonthsCode())
	if err != nil {
		return nil, err
	}
	df, err = faostat.StripYearPrefix(df, cfg.GetYearPrefix())
	if err != nil {
		return nil, err
	}
	table, err := faostat.ReshapeWide(df, faostat.ColArea)
	done()
	if err != nil {
		return nil, fmt.Errorf("regions: %w", err)
	}
	monitoring.Logf("regions: %d regions over %d years", len(table.Entities), len(table.Years))

	barCfg := chart.BarConfig{
		DefaultEntity: cfg.GetDefaultRegion(),
		Midpoint:      cfg.GetChangeMidpoint(),
	}
	fig, err := chart.NewRegionBar(table, barCfg, env.chartOptions())
	if err != nil {
		return nil, err
	}

	wide := table.DataFrame()
	res := &Result{Figure: fig, Table: &wide}
	if cfg.GetWritePNG() {
		entity := barCfg.DefaultEntity
		if !table.HasEntity(entity) {
			entity = table.Entities[0]
		}
		values, err := table.Column(entity)
		if err != nil {
			return nil, err
		}
		if res.Plot, err = chart.BarPlot(entity, table.Years, values, barCfg.Midpoint); err != nil {
			return nil, err
		}
	}
	return res, nil
}
