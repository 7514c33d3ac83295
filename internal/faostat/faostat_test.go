package faostat

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/climate.report/internal/fsutil"
)

const regionsCSV = `"Area Code","Area","Months Code","Months","Element Code","Element","Unit","Y1961","Y1962","Y1963"
5000,"World",7020,"Meteorological year",7271,"Temperature change","°C",0.2,0.5,
5000,"World",7020,"Meteorological year",6078,"Standard Deviation","°C",0.3,0.3,0.3
5000,"World",7001,"January",7271,"Temperature change","°C",1.1,1.2,1.3
5100,"Africa",7020,"Meteorological year",7271,"Temperature change","°C",-0.1,0,0.4
107,"Côte d'Ivoire",7020,"Meteorological year",7271,"Temperature change","°C",0.05,-0.25,0.7
`

func cp1252(t *testing.T, s string) []byte {
	t.Helper()
	out, err := charmap.Windows1252.NewEncoder().String(s)
	require.NoError(t, err)
	return []byte(out)
}

func loadFixture(t *testing.T) (fsutil.FileSystem, string) {
	t.Helper()
	mfs := fsutil.NewMemoryFileSystem()
	path := "/data/Temp_Change_Regions.csv"
	require.NoError(t, mfs.WriteFile(path, cp1252(t, regionsCSV), 0644))
	return mfs, path
}

func cleanedRegions(t *testing.T) *WideTable {
	t.Helper()
	mfs, path := loadFixture(t)
	df, err := LoadTable(mfs, path, EncodingWindows1252)
	require.NoError(t, err)
	df, err = FilterAnnualTemperatureChange(df, 7271, 7020)
	require.NoError(t, err)
	df, err = StripYearPrefix(df, "Y")
	require.NoError(t, err)
	w, err := ReshapeWide(df, ColArea)
	require.NoError(t, err)
	return w
}

func TestLoadTable_DecodesWindows1252(t *testing.T) {
	mfs, path := loadFixture(t)

	df, err := LoadTable(mfs, path, EncodingWindows1252)
	require.NoError(t, err)

	assert.Equal(t, 5, df.Nrow())
	areas := df.Col(ColArea).Records()
	assert.Contains(t, areas, "Côte d'Ivoire")
	assert.Equal(t, "°C", df.Col(ColUnit).Records()[0])
}

func TestLoadTable_EmptyCellIsNaN(t *testing.T) {
	mfs, path := loadFixture(t)

	df, err := LoadTable(mfs, path, EncodingWindows1252)
	require.NoError(t, err)

	y1963 := df.Col("Y1963").Float()
	assert.True(t, math.IsNaN(y1963[0]), "empty World Y1963 should load as NaN, got %v", y1963[0])
}

func TestLoadTable_Errors(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()

	_, err := LoadTable(mfs, "/missing.csv", EncodingWindows1252)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "/missing.csv")

	_, err = ReadTable(strings.NewReader(regionsCSV), "ebcdic")
	assert.Error(t, err)

	_, err = ReadTable(strings.NewReader(`"Area"`+"\n"), EncodingUTF8)
	assert.Error(t, err, "header-only table should fail to load")
}

func TestReadTable_UTF8(t *testing.T) {
	df, err := ReadTable(strings.NewReader(regionsCSV), EncodingUTF8)
	require.NoError(t, err)
	assert.Contains(t, df.Col(ColArea).Records(), "Côte d'Ivoire")
}

func TestFilterAnnualTemperatureChange(t *testing.T) {
	mfs, path := loadFixture(t)
	df, err := LoadTable(mfs, path, EncodingWindows1252)
	require.NoError(t, err)

	got, err := FilterAnnualTemperatureChange(df, 7271, 7020)
	require.NoError(t, err)

	require.Equal(t, 3, got.Nrow())
	elements, err := got.Col(ColElementCode).Int()
	require.NoError(t, err)
	months, err := got.Col(ColMonthsCode).Int()
	require.NoError(t, err)
	for i := range elements {
		assert.Equal(t, 7271, elements[i], "row %d element code", i)
		assert.Equal(t, 7020, months[i], "row %d months code", i)
	}

	// The input frame is untouched.
	assert.Equal(t, 5, df.Nrow())
}

func TestFilterAnnualTemperatureChange_NoMatches(t *testing.T) {
	mfs, path := loadFixture(t)
	df, err := LoadTable(mfs, path, EncodingWindows1252)
	require.NoError(t, err)

	got, err := FilterAnnualTemperatureChange(df, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Nrow())
}

func TestFilterAnnualTemperatureChange_MissingColumn(t *testing.T) {
	df, err := ReadTable(strings.NewReader("Area,Y1961\nWorld,0.1\n"), EncodingUTF8)
	require.NoError(t, err)

	_, err = FilterAnnualTemperatureChange(df, 7271, 7020)
	assert.True(t, errors.Is(err, ErrMissingColumn), "got %v", err)
}

func TestStripYearPrefix(t *testing.T) {
	mfs, path := loadFixture(t)
	df, err := LoadTable(mfs, path, EncodingWindows1252)
	require.NoError(t, err)

	got, err := StripYearPrefix(df, "Y")
	require.NoError(t, err)

	want := []string{ColAreaCode, ColArea, ColMonthsCode, ColMonths, ColElementCode, ColElement, ColUnit, "1961", "1962", "1963"}
	if diff := cmp.Diff(got.Names(), want); diff != "" {
		t.Errorf("column names mismatch (-got +want):\n%s", diff)
	}
	if diff := cmp.Diff(YearColumns(got, ""), []string{"1961", "1962", "1963"}); diff != "" {
		t.Errorf("year columns mismatch (-got +want):\n%s", diff)
	}
}

func TestYearColumns_IgnoresFlagColumns(t *testing.T) {
	df, err := ReadTable(strings.NewReader("Area,Y1961,Y1961F,Year,Y19620\nWorld,0.1,E,x,1\n"), EncodingUTF8)
	require.NoError(t, err)

	assert.Equal(t, []string{"Y1961"}, YearColumns(df, "Y"))
}

func TestDropColumns(t *testing.T) {
	mfs, path := loadFixture(t)
	df, err := LoadTable(mfs, path, EncodingWindows1252)
	require.NoError(t, err)

	got, err := DropColumns(df, append(MetadataColumns, "Not There")...)
	require.NoError(t, err)
	assert.Equal(t, []string{ColArea, "Y1961", "Y1962", "Y1963"}, got.Names())

	same, err := DropColumns(df, "Not There")
	require.NoError(t, err)
	assert.Equal(t, df.Names(), same.Names())
}

func TestMelt(t *testing.T) {
	df, err := ReadTable(strings.NewReader("Area,1961,1962\nWorld,0.2,0.5\nAfrica,-0.1,\n"), EncodingUTF8)
	require.NoError(t, err)

	got, err := Melt(df, ColArea, []string{"1961", "1962"})
	require.NoError(t, err)

	want := []Observation{
		{Entity: "World", Year: "1961", Value: 0.2},
		{Entity: "Africa", Year: "1961", Value: -0.1},
		{Entity: "World", Year: "1962", Value: 0.5},
		{Entity: "Africa", Year: "1962", Value: math.NaN()},
	}
	if diff := cmp.Diff(got, want, cmpopts.EquateNaNs()); diff != "" {
		t.Errorf("Melt mismatch (-got +want):\n%s", diff)
	}

	_, err = Melt(df, ColArea, []string{"1999"})
	assert.True(t, errors.Is(err, ErrMissingColumn))
}

func TestPivot_InsertionOrderAndAverages(t *testing.T) {
	obs := []Observation{
		{Entity: "World", Year: "1962", Value: 0.5},
		{Entity: "Africa", Year: "1962", Value: 1.0},
		{Entity: "Africa", Year: "1962", Value: 2.0},
		{Entity: "Africa", Year: "1962", Value: math.NaN()},
		{Entity: "World", Year: "1961", Value: math.NaN()},
	}

	w, err := Pivot(obs)
	require.NoError(t, err)

	assert.Equal(t, []string{"1962", "1961"}, w.Years)
	assert.Equal(t, []string{"World", "Africa"}, w.Entities)

	v, ok := w.Value("1962", "Africa")
	assert.True(t, ok)
	assert.InDelta(t, 1.5, v, 1e-12)

	v, ok = w.Value("1961", "Africa")
	assert.True(t, ok)
	assert.True(t, math.IsNaN(v), "absent pair should be NaN")

	_, ok = w.Value("1961", "Europe")
	assert.False(t, ok)
}

func TestPivot_Empty(t *testing.T) {
	_, err := Pivot(nil)
	assert.True(t, errors.Is(err, ErrEmptyTable))
}

func TestReshapeWide_RoundTripIsLossless(t *testing.T) {
	mfs, path := loadFixture(t)
	df, err := LoadTable(mfs, path, EncodingWindows1252)
	require.NoError(t, err)
	df, err = FilterAnnualTemperatureChange(df, 7271, 7020)
	require.NoError(t, err)
	df, err = StripYearPrefix(df, "Y")
	require.NoError(t, err)

	w, err := ReshapeWide(df, ColArea)
	require.NoError(t, err)

	areas := df.Col(ColArea).Records()
	assert.Equal(t, areas, w.Entities, "entity columns keep source order")
	for _, year := range YearColumns(df, "") {
		values := df.Col(year).Float()
		for i, area := range areas {
			got, ok := w.Value(year, area)
			require.True(t, ok, "missing cell %s/%s", year, area)
			if math.IsNaN(values[i]) {
				assert.True(t, math.IsNaN(got), "%s/%s should stay NaN", year, area)
				continue
			}
			assert.Equal(t, values[i], got, "%s/%s", year, area)
		}
	}
}

func TestReshapeWide_WorldSample(t *testing.T) {
	w := cleanedRegions(t)

	v, ok := w.Value("1962", "World")
	require.True(t, ok)
	assert.Equal(t, 0.5, v)
}

func TestReshapeWide_NoYears(t *testing.T) {
	df, err := ReadTable(strings.NewReader("Area,Unit\nWorld,C\n"), EncodingUTF8)
	require.NoError(t, err)

	_, err = ReshapeWide(df, ColArea)
	assert.True(t, errors.Is(err, ErrEmptyTable))
}

func TestWideTable_ColumnAndDataFrame(t *testing.T) {
	w := cleanedRegions(t)

	col, err := w.Column("Africa")
	require.NoError(t, err)
	assert.Equal(t, []float64{-0.1, 0, 0.4}, col)

	_, err = w.Column("Atlantis")
	assert.True(t, errors.Is(err, ErrUnknownEntity))
	assert.True(t, w.HasEntity("World"))
	assert.False(t, w.HasEntity("Atlantis"))

	df := w.DataFrame()
	require.NoError(t, df.Err)
	assert.Equal(t, []string{ColYear, "World", "Africa", "Côte d'Ivoire"}, df.Names())
	assert.Equal(t, []string{"1961", "1962", "1963"}, df.Col(ColYear).Records())
	assert.Equal(t, 0.5, df.Col("World").Float()[1])
}

func TestJoinIdentifiersAndDropUnmapped(t *testing.T) {
	mfs, path := loadFixture(t)
	df, err := LoadTable(mfs, path, EncodingWindows1252)
	require.NoError(t, err)
	df, err = FilterAnnualTemperatureChange(df, 7271, 7020)
	require.NoError(t, err)

	ids := map[string]string{
		"Côte d'Ivoire": "CIV",
		"France":        "FRA",
	}
	joined, unmapped, err := JoinIdentifiers(df, ids)
	require.NoError(t, err)
	assert.Equal(t, 2, unmapped, "World and Africa have no boundary")

	mapped, err := DropUnmapped(joined)
	require.NoError(t, err)

	require.Equal(t, 1, mapped.Nrow())
	assert.Equal(t, []string{"CIV"}, mapped.Col(ColCountryID).Records())
	assert.Equal(t, []string{"Côte d'Ivoire"}, mapped.Col(ColArea).Records())
	for _, na := range mapped.Col(ColCountryID).IsNaN() {
		assert.False(t, na, "every remaining row has an identifier")
	}
}

func TestBuildCountryTable(t *testing.T) {
	mfs, path := loadFixture(t)
	df, err := LoadTable(mfs, path, EncodingWindows1252)
	require.NoError(t, err)
	df, err = FilterAnnualTemperatureChange(df, 7271, 7020)
	require.NoError(t, err)
	df, _, err = JoinIdentifiers(df, map[string]string{"Côte d'Ivoire": "CIV", "Africa": "AFR"})
	require.NoError(t, err)
	df, err = DropUnmapped(df)
	require.NoError(t, err)
	df, err = DropColumns(df, MetadataColumns...)
	require.NoError(t, err)
	df, err = StripYearPrefix(df, "Y")
	require.NoError(t, err)

	tbl, err := BuildCountryTable(df, ColCountryID, ColArea)
	require.NoError(t, err)

	assert.Equal(t, []string{"AFR", "CIV"}, tbl.Codes)
	assert.Equal(t, []string{"Africa", "Côte d'Ivoire"}, tbl.Names)
	assert.Equal(t, []string{"1961", "1962", "1963"}, tbl.Years)

	y1962, err := tbl.Year("1962")
	require.NoError(t, err)
	assert.Equal(t, []float64{0, -0.25}, y1962)

	assert.Equal(t, 0.7, tbl.Value("CIV", "1963"))
	assert.True(t, math.IsNaN(tbl.Value("FRA", "1963")))
	assert.True(t, math.IsNaN(tbl.Value("CIV", "2050")))

	_, err = tbl.Year("2050")
	assert.True(t, errors.Is(err, ErrUnknownYear))
}

func TestBuildCountryTable_Empty(t *testing.T) {
	df, err := ReadTable(strings.NewReader("Country_ID,Area,1961\nNaN,Nowhere,1\n"), EncodingUTF8)
	require.NoError(t, err)
	df, err = DropUnmapped(df)
	require.NoError(t, err)

	_, err = BuildCountryTable(df, ColCountryID, ColArea)
	assert.True(t, errors.Is(err, ErrEmptyTable))
}

func TestCountryTable_Literal(t *testing.T) {
	tbl := &CountryTable{
		Codes:  []string{"FRA", "CIV"},
		Names:  []string{"France", "Côte d'Ivoire"},
		Years:  []string{"1962", "1963"},
		Values: mat.NewDense(2, 2, []float64{0.5, -2, math.NaN(), 1}),
	}

	y1962, err := tbl.Year("1962")
	require.NoError(t, err)
	if diff := cmp.Diff([]float64{0.5, math.NaN()}, y1962, cmpopts.EquateNaNs()); diff != "" {
		t.Errorf("Year(1962) mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 1.0, tbl.Value("CIV", "1963"))

	_, err = tbl.Year("2050")
	assert.True(t, errors.Is(err, ErrUnknownYear))
	assert.True(t, math.IsNaN(tbl.Value("FRA", "2050")))
}

func TestWideTable_Literal(t *testing.T) {
	w := &WideTable{
		Years:    []string{"1961", "1962"},
		Entities: []string{"World", "Africa"},
		Values:   mat.NewDense(2, 2, []float64{0.2, -0.1, 0.5, 0}),
	}

	assert.True(t, w.HasEntity("Africa"))
	assert.False(t, w.HasEntity("Europe"))

	col, err := w.Column("World")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.2, 0.5}, col)

	v, ok := w.Value("1962", "Africa")
	assert.True(t, ok)
	assert.Equal(t, 0.0, v)

	_, ok = w.Value("1963", "World")
	assert.False(t, ok)

	_, err = w.Column("Europe")
	assert.True(t, errors.Is(err, ErrUnknownEntity))
}
