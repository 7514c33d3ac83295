package faostat

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"gonum.org/v1/gonum/mat"
)

// ErrUnknownYear is returned when a country table has no column for a year.
var ErrUnknownYear = errors.New("faostat: unknown year")

// JoinIdentifiers adds a Country_ID column holding ids[area] for every row.
// Areas without an identifier get a missing value; DropUnmapped removes them.
// The returned count is the number of unmapped rows.
func JoinIdentifiers(df dataframe.DataFrame, ids map[string]string) (dataframe.DataFrame, int, error) {
	if err := requireColumns(df, ColArea); err != nil {
		return dataframe.DataFrame{}, 0, err
	}
	areas := df.Col(ColArea).Records()
	codes := make([]string, len(areas))
	unmapped := 0
	for i, area := range areas {
		code, ok := ids[area]
		if !ok || code == "" {
			// gota reads "NaN" as a missing string element.
			code = "NaN"
			unmapped++
		}
		codes[i] = code
	}
	out := df.Mutate(series.New(codes, series.String, ColCountryID))
	if out.Err != nil {
		return dataframe.DataFrame{}, 0, fmt.Errorf("add %s: %w", ColCountryID, out.Err)
	}
	return out, unmapped, nil
}

// DropUnmapped keeps only rows with a Country_ID.
func DropUnmapped(df dataframe.DataFrame) (dataframe.DataFrame, error) {
	if err := requireColumns(df, ColCountryID); err != nil {
		return dataframe.DataFrame{}, err
	}
	out := df.Filter(dataframe.F{
		Colname:    ColCountryID,
		Comparator: series.CompFunc,
		Comparando: func(el series.Element) bool { return !el.IsNA() },
	})
	if out.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("drop unmapped: %w", out.Err)
	}
	return out, nil
}

// CountryTable is the choropleth dataset: one row per mapped country and
// one column per year. Literal tables look years up in Years.
type CountryTable struct {
	Codes  []string
	Names  []string
	Years  []string
	Values *mat.Dense

	yearIdx map[string]int
}

// BuildCountryTable collects the identifier, display name and every year
// column of a cleaned country DataFrame.
func BuildCountryTable(df dataframe.DataFrame, idColumn, nameColumn string) (*CountryTable, error) {
	if err := requireColumns(df, idColumn, nameColumn); err != nil {
		return nil, err
	}
	years := YearColumns(df, "")
	if df.Nrow() == 0 || len(years) == 0 {
		return nil, ErrEmptyTable
	}

	t := &CountryTable{
		Codes:   df.Col(idColumn).Records(),
		Names:   df.Col(nameColumn).Records(),
		Years:   years,
		Values:  mat.NewDense(df.Nrow(), len(years), nil),
		yearIdx: make(map[string]int, len(years)),
	}
	for c, y := range years {
		t.yearIdx[y] = c
		t.Values.SetCol(c, df.Col(y).Float())
	}
	return t, nil
}

// Year returns a copy of every country's value for year, in row order.
func (t *CountryTable) Year(year string) ([]float64, error) {
	c, ok := position(t.yearIdx, t.Years, year)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownYear, year)
	}
	return mat.Col(nil, c, t.Values), nil
}

// Value returns the cell for code and year. Unknown keys yield NaN.
func (t *CountryTable) Value(code, year string) float64 {
	c, ok := position(t.yearIdx, t.Years, year)
	if !ok {
		return math.NaN()
	}
	for r, cc := range t.Codes {
		if cc == code {
			return t.Values.At(r, c)
		}
	}
	return math.NaN()
}
