package faostat

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"gonum.org/v1/gonum/mat"
)

// ErrUnknownEntity is returned when a wide table has no column for an entity.
var ErrUnknownEntity = errors.New("faostat: unknown entity")

// Observation is one (entity, year) value of the long form table.
// Value is NaN when the source cell was empty.
type Observation struct {
	Entity string
	Year   string
	Value  float64
}

// Melt reshapes df from wide (one column per year) to long form: one
// Observation per entity and year column. Observations are ordered year by
// year, each year listing entities in row order.
func Melt(df dataframe.DataFrame, idColumn string, years []string) ([]Observation, error) {
	if err := requireColumns(df, append([]string{idColumn}, years...)...); err != nil {
		return nil, err
	}
	ids := df.Col(idColumn).Records()
	obs := make([]Observation, 0, len(ids)*len(years))
	for _, year := range years {
		values := df.Col(year).Float()
		for i, id := range ids {
			obs = append(obs, Observation{Entity: id, Year: year, Value: values[i]})
		}
	}
	return obs, nil
}

// WideTable holds one row per year and one column per entity.
// Entities and Years keep first-appearance order; missing cells are NaN.
// A table built as a literal is valid: lookups fall back to the key slices.
type WideTable struct {
	Years    []string
	Entities []string
	Values   *mat.Dense

	yearIdx   map[string]int
	entityIdx map[string]int
}

// Pivot reshapes observations into a WideTable with years as rows and
// entities as columns. Repeated (entity, year) pairs are averaged over their
// non-NaN values.
func Pivot(obs []Observation) (*WideTable, error) {
	w := &WideTable{
		yearIdx:   make(map[string]int),
		entityIdx: make(map[string]int),
	}
	for _, o := range obs {
		if _, ok := w.yearIdx[o.Year]; !ok {
			w.yearIdx[o.Year] = len(w.Years)
			w.Years = append(w.Years, o.Year)
		}
		if _, ok := w.entityIdx[o.Entity]; !ok {
			w.entityIdx[o.Entity] = len(w.Entities)
			w.Entities = append(w.Entities, o.Entity)
		}
	}
	if len(w.Years) == 0 || len(w.Entities) == 0 {
		return nil, ErrEmptyTable
	}

	rows, cols := len(w.Years), len(w.Entities)
	sums := mat.NewDense(rows, cols, nil)
	counts := mat.NewDense(rows, cols, nil)
	for _, o := range obs {
		if math.IsNaN(o.Value) {
			continue
		}
		r, c := w.yearIdx[o.Year], w.entityIdx[o.Entity]
		sums.Set(r, c, sums.At(r, c)+o.Value)
		counts.Set(r, c, counts.At(r, c)+1)
	}

	w.Values = mat.NewDense(rows, cols, nil)
	w.Values.Apply(func(r, c int, _ float64) float64 {
		n := counts.At(r, c)
		if n == 0 {
			return math.NaN()
		}
		return sums.At(r, c) / n
	}, w.Values)
	return w, nil
}

// Value returns the cell for year and entity. ok is false when either key
// is absent from the table.
func (w *WideTable) Value(year, entity string) (v float64, ok bool) {
	r, okY := position(w.yearIdx, w.Years, year)
	c, okE := position(w.entityIdx, w.Entities, entity)
	if !okY || !okE {
		return math.NaN(), false
	}
	return w.Values.At(r, c), true
}

// Column returns a copy of the entity's values in year order.
func (w *WideTable) Column(entity string) ([]float64, error) {
	c, ok := position(w.entityIdx, w.Entities, entity)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEntity, entity)
	}
	return mat.Col(nil, c, w.Values), nil
}

// HasEntity reports whether entity is a column of the table.
func (w *WideTable) HasEntity(entity string) bool {
	_, ok := position(w.entityIdx, w.Entities, entity)
	return ok
}

// DataFrame returns the table as a DataFrame with the year reinserted as
// the leading "Year" column followed by one float column per entity.
func (w *WideTable) DataFrame() dataframe.DataFrame {
	cols := make([]series.Series, 0, len(w.Entities)+1)
	cols = append(cols, series.New(w.Years, series.String, ColYear))
	for c, e := range w.Entities {
		cols = append(cols, series.New(mat.Col(nil, c, w.Values), series.Float, e))
	}
	return dataframe.New(cols...)
}

// ReshapeWide runs the melt and pivot round trip for the bar chart: the
// cleaned table is melted on idColumn over every year column and pivoted
// back with years as rows.
func ReshapeWide(df dataframe.DataFrame, idColumn string) (*WideTable, error) {
	years := YearColumns(df, "")
	if len(years) == 0 {
		return nil, fmt.Errorf("%w: no year columns", ErrEmptyTable)
	}
	obs, err := Melt(df, idColumn, years)
	if err != nil {
		return nil, fmt.Errorf("melt: %w", err)
	}
	w, err := Pivot(obs)
	if err != nil {
		return nil, fmt.Errorf("pivot: %w", err)
	}
	return w, nil
}

// position finds key through idx when it was built, else by scanning keys.
func position(idx map[string]int, keys []string, key string) (int, bool) {
	if idx != nil {
		i, ok := idx[key]
		return i, ok
	}
	for i, k := range keys {
		if k == key {
			return i, true
		}
	}
	return 0, false
}
