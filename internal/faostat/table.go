// Package faostat loads and reshapes FAOSTAT temperature-change tables.
//
// The source files hold one row per (area, months, element) with one value
// column per year ("Y1961", "Y1962", ...). Every function in this package
// returns a new DataFrame or value; inputs are never modified.
package faostat

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"golang.org/x/text/encoding/charmap"

	"github.com/banshee-data/climate.report/internal/fsutil"
)

// Column names used by the FAOSTAT temperature-change exports.
const (
	ColAreaCode    = "Area Code"
	ColArea        = "Area"
	ColMonthsCode  = "Months Code"
	ColMonths      = "Months"
	ColElementCode = "Element Code"
	ColElement     = "Element"
	ColUnit        = "Unit"
	ColCountryID   = "Country_ID"
	ColYear        = "Year"
)

// Encodings accepted by LoadTable.
const (
	EncodingWindows1252 = "windows-1252"
	EncodingUTF8        = "utf-8"
)

// MetadataColumns are the descriptive columns dropped before mapping.
var MetadataColumns = []string{ColAreaCode, ColMonthsCode, ColMonths, ColElementCode, ColElement, ColUnit}

var (
	// ErrEmptyTable is returned when a reshape has no rows or no year columns.
	ErrEmptyTable = errors.New("faostat: empty table")
	// ErrMissingColumn is returned when a required column is absent.
	ErrMissingColumn = errors.New("faostat: missing column")
)

var columnTypes = map[string]series.Type{
	ColAreaCode:    series.Int,
	ColArea:        series.String,
	ColMonthsCode:  series.Int,
	ColMonths:      series.String,
	ColElementCode: series.Int,
	ColElement:     series.String,
	ColUnit:        series.String,
}

// LoadTable reads a FAOSTAT CSV export into a DataFrame. Code columns are
// ints, label columns strings and every other column a float, so empty year
// cells load as NaN.
func LoadTable(fsys fsutil.FileSystem, path, encoding string) (dataframe.DataFrame, error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("read table %s: %w", path, err)
	}
	df, err := ReadTable(bytes.NewReader(data), encoding)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("load table %s: %w", path, err)
	}
	return df, nil
}

// ReadTable parses a FAOSTAT CSV export from r.
func ReadTable(r io.Reader, encoding string) (dataframe.DataFrame, error) {
	switch encoding {
	case EncodingWindows1252, "cp1252", "":
		r = charmap.Windows1252.NewDecoder().Reader(r)
	case EncodingUTF8:
	default:
		return dataframe.DataFrame{}, fmt.Errorf("unsupported encoding %q", encoding)
	}

	df := dataframe.ReadCSV(r,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.Float),
		dataframe.WithTypes(columnTypes),
		dataframe.WithLazyQuotes(true),
		dataframe.NaNValues([]string{"", "NA", "NaN"}),
	)
	if df.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("parse csv: %w", df.Err)
	}
	return df, nil
}

// FilterAnnualTemperatureChange keeps rows whose element code and months
// code both match. Any row failing either condition is dropped.
func FilterAnnualTemperatureChange(df dataframe.DataFrame, elementCode, monthsCode int) (dataframe.DataFrame, error) {
	if err := requireColumns(df, ColElementCode, ColMonthsCode); err != nil {
		return dataframe.DataFrame{}, err
	}
	out := df.FilterAggregation(dataframe.And,
		dataframe.F{Colname: ColElementCode, Comparator: series.Eq, Comparando: elementCode},
		dataframe.F{Colname: ColMonthsCode, Comparator: series.Eq, Comparando: monthsCode},
	)
	if out.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("filter element=%d months=%d: %w", elementCode, monthsCode, out.Err)
	}
	return out, nil
}

// DropColumns removes the named columns. Names that are not present are
// ignored so the same list can be applied to either export.
func DropColumns(df dataframe.DataFrame, names ...string) (dataframe.DataFrame, error) {
	present := make([]string, 0, len(names))
	have := columnSet(df)
	for _, n := range names {
		if have[n] {
			present = append(present, n)
		}
	}
	if len(present) == 0 {
		return df, nil
	}
	out := df.Drop(present)
	if out.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("drop columns %v: %w", present, out.Err)
	}
	return out, nil
}

// YearColumns returns, in table order, the columns named prefix followed by
// a four digit year.
func YearColumns(df dataframe.DataFrame, prefix string) []string {
	pat := yearPattern(prefix)
	var years []string
	for _, name := range df.Names() {
		if pat.MatchString(name) {
			years = append(years, name)
		}
	}
	return years
}

// StripYearPrefix renames every year column from prefix+YYYY to YYYY.
// Other columns keep their names.
func StripYearPrefix(df dataframe.DataFrame, prefix string) (dataframe.DataFrame, error) {
	out := df
	for _, name := range YearColumns(df, prefix) {
		out = out.Rename(strings.TrimPrefix(name, prefix), name)
		if out.Err != nil {
			return dataframe.DataFrame{}, fmt.Errorf("rename %s: %w", name, out.Err)
		}
	}
	return out, nil
}

func yearPattern(prefix string) *regexp.Regexp {
	return regexp.MustCompile(`^` + regexp.QuoteMeta(prefix) + `\d{4}$`)
}

func columnSet(df dataframe.DataFrame) map[string]bool {
	names := df.Names()
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}

func requireColumns(df dataframe.DataFrame, names ...string) error {
	have := columnSet(df)
	for _, n := range names {
		if !have[n] {
			return fmt.Errorf("%w: %q", ErrMissingColumn, n)
		}
	}
	return nil
}
