package chart

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"path/filepath"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/climate.report/internal/fsutil"
)

// Static exports of the initial view of each figure, drawn with gonum/plot.

var missingFill = color.RGBA{R: 0xdd, G: 0xdd, B: 0xdd, A: 0xff}

// BarPlot draws one entity's yearly values as bars coloured on the
// diverging scale. Missing years are left blank.
func BarPlot(entity string, years []string, values []float64, midpoint float64) (*plot.Plot, error) {
	if len(years) != len(values) {
		return nil, fmt.Errorf("bar plot: %d years, %d values", len(years), len(values))
	}
	r := SymmetricRange(midpoint, values)
	cm := r.ColorMap()

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s: %s", BarTitle, entity)
	p.X.Label.Text = BarXAxisTitle
	p.Y.Label.Text = BarYAxisTitle
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		b, err := plotter.NewBarChart(plotter.Values{v}, vg.Points(6))
		if err != nil {
			return nil, fmt.Errorf("bar %s: %w", years[i], err)
		}
		b.XMin = float64(i)
		b.Color = r.ColorOf(cm, v)
		b.LineStyle.Width = 0
		p.Add(b)
	}
	p.NominalX(sparseLabels(years, 10)...)
	return p, nil
}

// sparseLabels blanks all but every nth label so long year axes stay legible.
func sparseLabels(labels []string, n int) []string {
	out := make([]string, len(labels))
	for i, l := range labels {
		if i%n == 0 {
			out[i] = l
		}
	}
	return out
}

type gridXYZ struct {
	grid *mat.Dense
	x, y []float64
}

func (g gridXYZ) Dims() (c, r int) {
	r, c = g.grid.Dims()
	return c, r
}
func (g gridXYZ) Z(c, r int) float64 { return g.grid.At(r, c) }
func (g gridXYZ) X(c int) float64    { return g.x[c] }
func (g gridXYZ) Y(r int) float64    { return g.y[r] }

// HeatMapPlot draws one frame with row zero at the top, coloured over r.
func HeatMapPlot(title string, grid *mat.Dense, xAxis, yAxis []float64, r Range) (*plot.Plot, error) {
	rows, cols := grid.Dims()
	if len(xAxis) != cols || len(yAxis) != rows {
		return nil, fmt.Errorf("%w: grid %dx%d, axes %d and %d", ErrAxisLength, rows, cols, len(yAxis), len(xAxis))
	}
	if rows < 2 || cols < 2 {
		return nil, fmt.Errorf("heatmap plot: grid %dx%d is too small", rows, cols)
	}

	hm := plotter.NewHeatMap(gridXYZ{grid: grid, x: xAxis, y: yAxis}, r.ColorMap().Palette(255))
	hm.Min, hm.Max = r.Min, r.Max
	hm.NaN = color.Transparent
	hm.Rasterized = true

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = HeatMapAxisTitle
	p.Y.Label.Text = HeatMapAxisTitle
	p.Y.Scale = plot.InvertedScale{Normalizer: plot.LinearScale{}}
	p.Add(hm)
	return p, nil
}

// MapPlot fills each outline with the colour of its value in values, keyed
// by the feature's "name" property. Outlines without a value are grey.
func MapPlot(title string, fc *geojson.FeatureCollection, values map[string]float64, r Range) (*plot.Plot, error) {
	if fc == nil || len(fc.Features) == 0 {
		return nil, errors.New("map plot: no outlines")
	}
	cm := r.ColorMap()

	p := plot.New()
	p.Title.Text = title
	p.HideAxes()
	for _, f := range fc.Features {
		var c color.Color = missingFill
		if name, ok := f.Properties["name"].(string); ok {
			if v, ok := values[name]; ok && !math.IsNaN(v) {
				c = r.ColorOf(cm, v)
			}
		}
		for _, poly := range polygons(f.Geometry) {
			pg, err := plotter.NewPolygon(rings(poly)...)
			if err != nil {
				return nil, fmt.Errorf("outline: %w", err)
			}
			pg.Color = c
			pg.LineStyle.Width = vg.Points(0.25)
			pg.LineStyle.Color = color.White
			p.Add(pg)
		}
	}
	return p, nil
}

func polygons(g orb.Geometry) []orb.Polygon {
	switch g := g.(type) {
	case orb.Polygon:
		return []orb.Polygon{g}
	case orb.MultiPolygon:
		return g
	default:
		return nil
	}
}

func rings(poly orb.Polygon) []plotter.XYer {
	out := make([]plotter.XYer, 0, len(poly))
	for _, ring := range poly {
		xys := make(plotter.XYs, len(ring))
		for i, pt := range ring {
			xys[i] = plotter.XY{X: pt[0], Y: pt[1]}
		}
		out = append(out, xys)
	}
	return out
}

// WritePNG draws p at the given size into dir/<name>.png.
func WritePNG(fsys fsutil.FileSystem, dir, name string, p *plot.Plot, width, height vg.Length) (string, error) {
	wt, err := p.WriterTo(width, height, "png")
	if err != nil {
		return "", fmt.Errorf("draw %s: %w", name, err)
	}
	if err := fsys.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(dir, name+".png")
	f, err := fsys.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}
	if _, err := wt.WriteTo(f); err != nil {
		f.Close()
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", path, err)
	}
	return path, nil
}
