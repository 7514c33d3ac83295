package pipeline

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/tiff"
	"golang.org/x/text/encoding/charmap"

	"github.com/banshee-data/climate.report/internal/chart"
	"github.com/banshee-data/climate.report/internal/config"
	"github.com/banshee-data/climate.report/internal/fsutil"
	"github.com/banshee-data/climate.report/internal/monitoring"
	"github.com/banshee-data/climate.report/internal/raster"
	"github.com/banshee-data/climate.report/internal/testutil"
	"github.com/banshee-data/climate.report/internal/units"
)

func TestMain(m *testing.M) {
	monitoring.SetLogger(nil)
	m.Run()
}

const header = `"Area Code","Area","Months Code","Months","Element Code","Element","Unit","Y1961","Y1962","Y1963"` + "\n"

const regionsCSV = header +
	`5000,"World",7020,"Meteorological year",7271,"Temperature change","°C",0.2,0.5,` + "\n" +
	`5000,"World",7020,"Meteorological year",6078,"Standard Deviation","°C",0.3,0.3,0.3` + "\n" +
	`5100,"Africa",7020,"Meteorological year",7271,"Temperature change","°C",-0.1,0,0.4` + "\n"

const countriesCSV = header +
	`68,"France",7020,"Meteorological year",7271,"Temperature change","°C",0.1,0.5,-0.2` + "\n" +
	`68,"France",7001,"January",7271,"Temperature change","°C",2,2,2` + "\n" +
	`107,"Côte d'Ivoire",7020,"Meteorological year",7271,"Temperature change","°C",0.05,-0.25,0.7` + "\n" +
	`299,"Northern Cyprus",7020,"Meteorological year",7271,"Temperature change","°C",-1.5,,0.3` + "\n"

const boundariesGeoJSON = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "properties": {"ADMIN": "France", "ISO_A3": "FRA"},
     "geometry": {"type": "Polygon", "coordinates": [[[0,40],[10,40],[10,50],[0,50],[0,40]]]}},
    {"type": "Feature", "properties": {"ADMIN": "Ivory Coast", "ISO_A3": "CIV"},
     "geometry": {"type": "Polygon", "coordinates": [[[-8,4],[-3,4],[-3,10],[-8,10],[-8,4]]]}},
    {"type": "Feature", "properties": {"ADMIN": "Northern Cyprus", "ISO_A3": "-99"},
     "geometry": {"type": "Polygon", "coordinates": [[[33,35],[34,35],[34,36],[33,36],[33,35]]]}}
  ]
}`

func cp1252(t *testing.T, s string) []byte {
	t.Helper()
	out, err := charmap.Windows1252.NewEncoder().String(s)
	require.NoError(t, err)
	return []byte(out)
}

func tile(t *testing.T, rows [][]uint16) []byte {
	t.Helper()
	img := image.NewGray16(image.Rect(0, 0, len(rows[0]), len(rows)))
	for y, row := range rows {
		for x, v := range row {
			img.SetGray16(x, y, color.Gray16{Y: v})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, tiff.Encode(&buf, img, nil))
	return buf.Bytes()
}

func fixture(t *testing.T) *fsutil.MemoryFileSystem {
	t.Helper()
	return testutil.MemFS(t, map[string][]byte{
		"/data/Temp_Change_Regions.csv":   cp1252(t, regionsCSV),
		"/data/Temp_Change_Countries.csv": cp1252(t, countriesCSV),
		"/data/countries.geojson":         []byte(boundariesGeoJSON),
		"/data/modis/IST/2002.tif":        tile(t, [][]uint16{{26500, 27300}, {0, 28100}}),
		"/data/modis/IST/2003.tif":        tile(t, [][]uint16{{27000, 27400}, {27200, 4000}}),
		"/data/modis/IST/readme.txt":      []byte("tiles"),
	})
}

func testEnv(t *testing.T, writePNG bool) (Env, *fsutil.MemoryFileSystem) {
	t.Helper()
	mfs := fixture(t)
	cfg := config.EmptyClimateConfig()
	cfg.WritePNG = &writePNG
	return Env{
		FS:     mfs,
		Config: cfg.WithDataDir("/data"),
		Chart:  chart.Options{ChartID: "climatepipeline"},
	}, mfs
}

func readFile(t *testing.T, fsys fsutil.FileSystem, path string) string {
	t.Helper()
	data, err := fsys.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestRegionBars(t *testing.T) {
	env, mfs := testEnv(t, false)

	res, err := RegionBars(env)
	require.NoError(t, err)
	assert.Equal(t, "temperature-change-regions", res.Figure.Name)
	assert.Nil(t, res.Plot)
	require.NotNil(t, res.Table)
	assert.Equal(t, []string{"Year", "World", "Africa"}, res.Table.Names())
	assert.Equal(t, 3, res.Table.Nrow())

	written, err := Publish(mfs, "/out", res)
	require.NoError(t, err)
	assert.Equal(t, "/out/temperature-change-regions.html", written.HTML)
	assert.Empty(t, written.PNG)

	page := readFile(t, mfs, written.HTML)
	assert.Contains(t, page, chart.BarTitle)
	assert.Contains(t, page, "Africa")

	csv := readFile(t, mfs, written.CSV)
	assert.True(t, strings.HasPrefix(csv, "Year,World,Africa\n"), "csv header: %q", csv)
	assert.Contains(t, csv, "1961,")
}

func TestRegionBars_PNG(t *testing.T) {
	env, mfs := testEnv(t, true)

	res, err := RegionBars(env)
	require.NoError(t, err)
	require.NotNil(t, res.Plot)

	written, err := Publish(mfs, "/out", res)
	require.NoError(t, err)
	assert.Equal(t, "/out/temperature-change-regions.png", written.PNG)
	assert.True(t, strings.HasPrefix(readFile(t, mfs, written.PNG), "\x89PNG"))
}

func TestRegionBars_MissingFile(t *testing.T) {
	env, _ := testEnv(t, false)
	env.FS = fsutil.NewMemoryFileSystem()

	_, err := RegionBars(env)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Temp_Change_Regions.csv")
}

func TestSeaIce(t *testing.T) {
	env, mfs := testEnv(t, true)

	res, err := SeaIce(env)
	require.NoError(t, err)
	assert.Equal(t, "sea-ice-surface-temperature", res.Figure.Name)
	require.NotNil(t, res.Plot)

	written, err := Publish(mfs, "/out", res)
	require.NoError(t, err)
	page := readFile(t, mfs, written.HTML)
	assert.Contains(t, page, chart.HeatMapSliderPrefix)
	assert.Contains(t, page, "Temperature (K)")
	assert.True(t, strings.HasPrefix(readFile(t, mfs, written.PNG), "\x89PNG"))
	assert.Empty(t, written.CSV)
}

func TestSeaIce_Celsius(t *testing.T) {
	env, _ := testEnv(t, false)
	unit := units.Celsius
	env.Config.DisplayUnit = &unit

	res, err := SeaIce(env)
	require.NoError(t, err)
	page, err := res.Figure.HTML()
	require.NoError(t, err)
	assert.Contains(t, string(page), "Temperature (C)")
}

func TestSeaIce_NoTiles(t *testing.T) {
	env, _ := testEnv(t, false)
	dir := "/data/empty"
	env.Config.ImageryDir = &dir
	require.NoError(t, env.FS.MkdirAll(dir, 0755))

	_, err := SeaIce(env)
	assert.True(t, errors.Is(err, raster.ErrNoFrames), "got %v", err)
}

func TestCountryMap(t *testing.T) {
	env, mfs := testEnv(t, true)

	res, err := CountryMap(env)
	require.NoError(t, err)
	assert.Equal(t, "temperature-change-countries", res.Figure.Name)
	require.NotNil(t, res.Plot)

	option, err := res.Figure.Option()
	require.NoError(t, err)
	// Côte d'Ivoire has no boundary under that name and is dropped.
	assert.Contains(t, string(option), `"FRA"`)
	assert.NotContains(t, string(option), "CIV")

	written, err := Publish(mfs, "/out", res)
	require.NoError(t, err)
	page := readFile(t, mfs, written.HTML)
	assert.Contains(t, page, `echarts.registerMap("climate-equirectangular"`)
	assert.Contains(t, page, `echarts.registerMap("climate-robinson"`)
	assert.Contains(t, page, chart.MapProjectionText)
	// Boundaries without a real ISO code still join by name.
	assert.Contains(t, page, `"name":"-99","value":-1.5`)
	assert.True(t, strings.HasPrefix(readFile(t, mfs, written.PNG), "\x89PNG"))
}

func TestCountryMap_UnknownDefaultYear(t *testing.T) {
	env, _ := testEnv(t, true)
	year := "1850"
	env.Config.DefaultMapYear = &year

	res, err := CountryMap(env)
	require.NoError(t, err)
	assert.NotNil(t, res.Plot)
}

func TestCountryMap_MissingBoundaries(t *testing.T) {
	env, _ := testEnv(t, false)
	path := "/data/none.geojson"
	env.Config.BoundariesFile = &path

	_, err := CountryMap(env)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "none.geojson")
}

func TestEnvChartOptions(t *testing.T) {
	host := "http://localhost/assets/"
	cfg := config.EmptyClimateConfig()
	cfg.AssetsHost = &host

	assert.Equal(t, host, Env{Config: cfg}.chartOptions().AssetsHost)
	assert.Equal(t, "x", Env{Config: cfg, Chart: chart.Options{AssetsHost: "x"}}.chartOptions().AssetsHost)
}
