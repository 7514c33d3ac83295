package pipeline

import (
	"fmt"

	"github.com/banshee-data/climate.report/internal/chart"
	"github.com/banshee-data/climate.report/internal/faostat"
	"github.com/banshee-data/climate.report/internal/geo"
	"github.com/banshee-data/climate.report/internal/monitoring"
)

// MapPrefix prefixes the names the projected outlines are registered under.
const MapPrefix = "climate-"

// CountryMap builds the per-country choropleth. Country names are joined
// to ISO alpha-3 codes through the boundary file; rows without a code are
// dropped before the table is built.
func CountryMap(env Env) (*Result, error) {
	cfg := env.Config

	done := monitoring.Stage("load boundaries")
	fc, err := geo.LoadBoundaries(env.FS, cfg.GetBoundariesFile())
	done()
	if err != nil {
		return nil, err
	}
	ids := geo.BuildIdentifierMap(fc)

	done = monitoring.Stage("load countries")
	df, err := faostat.LoadTable(env.FS, cfg.GetCountriesFile(), cfg.GetTableEncoding())
	done()
	if err != nil {
		return nil, err
	}

	done = monitoring.Stage("clean countries")
	df, unmapped, err := faostat.JoinIdentifiers(df, ids)
	if err != nil {
		return nil, err
	}
	df, err = faostat.FilterAnnualTemperatureChange(df, cfg.GetElementCode(), cfg.GetMonthsCode())
	if err != nil {
		return nil, err
	}
	df, err = faostat.DropUnmapped(df)
	if err != nil {
		return nil, err
	}
	df, err = faostat.DropColumns(df, faostat.MetadataColumns...)
	if err != nil {
		return nil, err
	}
	df, err = faostat.StripYearPrefix(df, cfg.GetYearPrefix())
	if err != nil {
		return nil, err
	}
	table, err := faostat.BuildCountryTable(df, faostat.ColCountryID, faostat.ColArea)
	done()
	if err != nil {
		return nil, fmt.Errorf("countries: %w", err)
	}
	monitoring.Logf("countries: %d mapped, %d source rows without identifier", len(table.Codes), unmapped)

	done = monitoring.Stage("project outlines")
	maps, err := geo.BuildProjectedMaps(fc, MapPrefix, geo.Projections...)
	done()
	if err != nil {
		return nil, err
	}

	mapCfg := chart.MapConfig{
		DefaultYear: cfg.GetDefaultMapYear(),
		Midpoint:    cfg.GetChangeMidpoint(),
	}
	fig, err := chart.NewCountryMap(table, maps, mapCfg, env.chartOptions())
	if err != nil {
		return nil, err
	}

	res := &Result{Figure: fig}
	if cfg.GetWritePNG() {
		year := mapCfg.DefaultYear
		column, err := table.Year(year)
		if err != nil {
			year = table.Years[0]
			column, _ = table.Year(year)
		}
		values := make(map[string]float64, len(table.Codes))
		for i, code := range table.Codes {
			values[code] = column[i]
		}
		outlines := geo.Project(geo.MapFeatures(fc), geo.Projections[0])
		r := chart.SymmetricRange(mapCfg.Midpoint, table.Values.RawMatrix().Data)
		title := fmt.Sprintf("%s, %s", chart.MapTitle, year)
		if res.Plot, err = chart.MapPlot(title, outlines, values, r); err != nil {
			return nil, err
		}
	}
	return res, nil
}
