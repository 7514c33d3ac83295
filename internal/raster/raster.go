// Package raster loads yearly sea ice surface temperature tiles and turns
// raw sensor counts into physical temperatures.
package raster

import (
	"errors"
	"fmt"
	"image"
	"io/fs"
	"math"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/image/tiff"
	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/climate.report/internal/fsutil"
	"github.com/banshee-data/climate.report/internal/monitoring"
	"github.com/banshee-data/climate.report/internal/units"
)

var (
	// ErrNoFrames is returned when a tile directory holds no usable tiles.
	ErrNoFrames = errors.New("raster: no frames")
	// ErrUnknownYear is returned when a frame set has no tile for a year.
	ErrUnknownYear = errors.New("raster: unknown year")
	// ErrShapeMismatch is returned when tiles of one set differ in size.
	ErrShapeMismatch = errors.New("raster: frame shapes differ")
)

// Frame is one year's grid. Masked cells are NaN.
type Frame struct {
	Year int
	Grid *mat.Dense
}

// FrameSet holds frames ordered by year. All frames share one shape.
type FrameSet struct {
	Frames []Frame
}

// Options control how raw tiles become temperatures.
type Options struct {
	// Threshold is the raw value at or below which a cell is masked.
	Threshold float64
	// Scale converts raw counts to kelvin.
	Scale float64
	// Unit is the display unit the kelvin values are converted to.
	Unit string
}

// LoadFrames walks dir for "<year>.tif" tiles, decodes band 1 of each and
// applies MaskAndScale. Files with other extensions or non-numeric stems
// are skipped. A year found twice keeps the last tile in walk order.
func LoadFrames(fsys fsutil.FileSystem, dir string, opt Options) (*FrameSet, error) {
	byYear := make(map[int]*mat.Dense)
	err := fsys.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".tif") {
			return nil
		}
		stem := strings.TrimSuffix(d.Name(), filepath.Ext(d.Name()))
		year, convErr := strconv.Atoi(stem)
		if convErr != nil {
			monitoring.Logf("raster: skipping %s: stem is not a year", path)
			return nil
		}
		raw, err := readTile(fsys, path)
		if err != nil {
			return err
		}
		if _, dup := byYear[year]; dup {
			monitoring.Logf("raster: %s replaces an earlier tile for %d", path, year)
		}
		byYear[year] = convert(MaskAndScale(raw, opt.Threshold, opt.Scale), opt.Unit)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load tiles from %s: %w", dir, err)
	}
	if len(byYear) == 0 {
		return nil, fmt.Errorf("%s: %w", dir, ErrNoFrames)
	}
	return NewFrameSet(byYear)
}

// NewFrameSet orders grids by year and checks they share one shape.
func NewFrameSet(byYear map[int]*mat.Dense) (*FrameSet, error) {
	years := make([]int, 0, len(byYear))
	for y := range byYear {
		years = append(years, y)
	}
	sort.Ints(years)

	fsSet := &FrameSet{Frames: make([]Frame, 0, len(years))}
	for _, y := range years {
		fsSet.Frames = append(fsSet.Frames, Frame{Year: y, Grid: byYear[y]})
	}
	if len(fsSet.Frames) == 0 {
		return nil, ErrNoFrames
	}
	r0, c0 := fsSet.Frames[0].Grid.Dims()
	for _, f := range fsSet.Frames[1:] {
		if r, c := f.Grid.Dims(); r != r0 || c != c0 {
			return nil, fmt.Errorf("%w: %d is %dx%d, %d is %dx%d", ErrShapeMismatch,
				fsSet.Frames[0].Year, r0, c0, f.Year, r, c)
		}
	}
	return fsSet, nil
}

// Years returns the frame years in ascending order.
func (s *FrameSet) Years() []int {
	years := make([]int, len(s.Frames))
	for i, f := range s.Frames {
		years[i] = f.Year
	}
	return years
}

// Get returns the frame for year.
func (s *FrameSet) Get(year int) (Frame, error) {
	i := sort.Search(len(s.Frames), func(i int) bool { return s.Frames[i].Year >= year })
	if i < len(s.Frames) && s.Frames[i].Year == year {
		return s.Frames[i], nil
	}
	return Frame{}, fmt.Errorf("%w: %d", ErrUnknownYear, year)
}

// Default returns the frame for year, or the earliest frame when year has
// no tile.
func (s *FrameSet) Default(year int) Frame {
	if f, err := s.Get(year); err == nil {
		return f
	}
	return s.Frames[0]
}

// Dims returns the shared grid shape.
func (s *FrameSet) Dims() (rows, cols int) {
	return s.Frames[0].Grid.Dims()
}

// MaskAndScale returns a new grid where raw values at or below threshold
// are NaN and the rest are multiplied by scale. Masking happens before
// scaling, so the threshold is in raw units.
func MaskAndScale(raw mat.Matrix, threshold, scale float64) *mat.Dense {
	r, c := raw.Dims()
	out := mat.NewDense(r, c, nil)
	out.Apply(func(_, _ int, v float64) float64 {
		if math.IsNaN(v) || v <= threshold {
			return math.NaN()
		}
		return v * scale
	}, raw)
	return out
}

// ComputeAxis returns length coordinates spaced by resolution with index
// length/2 at zero: resolution * (i - length/2).
func ComputeAxis(length int, resolution float64) []float64 {
	offset := length / 2
	axis := make([]float64, length)
	for i := range axis {
		axis[i] = resolution * float64(i-offset)
	}
	return axis
}

func convert(grid *mat.Dense, unit string) *mat.Dense {
	if unit == "" || unit == units.Kelvin {
		return grid
	}
	grid.Apply(func(_, _ int, v float64) float64 {
		return units.ConvertTemperature(v, unit)
	}, grid)
	return grid
}

func readTile(fsys fsutil.FileSystem, path string) (*mat.Dense, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open tile: %w", err)
	}
	defer f.Close()

	img, err := tiff.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode tile %s: %w", path, err)
	}
	grid, err := Band(img)
	if err != nil {
		return nil, fmt.Errorf("read band %s: %w", path, err)
	}
	return grid, nil
}

// Band returns the first band of img as a rows x cols grid of raw values.
func Band(img image.Image) (*mat.Dense, error) {
	b := img.Bounds()
	rows, cols := b.Dy(), b.Dx()
	if rows == 0 || cols == 0 {
		return nil, fmt.Errorf("empty image %v", b)
	}
	grid := mat.NewDense(rows, cols, nil)
	switch im := img.(type) {
	case *image.Gray16:
		for y := 0; y < rows; y++ {
			for x := 0; x < cols; x++ {
				grid.Set(y, x, float64(im.Gray16At(b.Min.X+x, b.Min.Y+y).Y))
			}
		}
	case *image.Gray:
		for y := 0; y < rows; y++ {
			for x := 0; x < cols; x++ {
				grid.Set(y, x, float64(im.GrayAt(b.Min.X+x, b.Min.Y+y).Y))
			}
		}
	default:
		// Multi-channel images: the first channel at 16 bits.
		for y := 0; y < rows; y++ {
			for x := 0; x < cols; x++ {
				r, _, _, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
				grid.Set(y, x, float64(r))
			}
		}
	}
	return grid, nil
}
