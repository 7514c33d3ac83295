// Package chart builds the three interactive climate figures with
// go-echarts and renders them to standalone HTML documents.
package chart

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"

	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/climate.report/internal/fsutil"
)

// DefaultAssetsHost serves echarts.min.js and friends.
const DefaultAssetsHost = "https://go-echarts.github.io/go-echarts-assets/assets/"

// Options are the page-level settings shared by every figure.
type Options struct {
	AssetsHost string
	Width      string
	Height     string
	// ChartID overrides the generated element id. Tests use it to get
	// stable output.
	ChartID string
}

func (o Options) initialization(pageTitle, width, height string) opts.Initialization {
	if o.Width != "" {
		width = o.Width
	}
	if o.Height != "" {
		height = o.Height
	}
	host := o.AssetsHost
	if host == "" {
		host = DefaultAssetsHost
	}
	id := o.ChartID
	if id == "" {
		id = NewChartID()
	}
	return opts.Initialization{
		PageTitle:  pageTitle,
		Width:      width,
		Height:     height,
		AssetsHost: host,
		ChartID:    id,
	}
}

// Renderable is satisfied by every go-echarts chart.
type Renderable interface {
	Render(w io.Writer) error
	Validate()
	JSON() map[string]interface{}
}

// Figure is a built chart plus the metadata the viewer and exporters need.
type Figure struct {
	Name  string
	Title string
	Chart Renderable
}

// HTML renders the figure as a complete HTML document.
func (f *Figure) HTML() ([]byte, error) {
	var buf bytes.Buffer
	if err := f.Chart.Render(&buf); err != nil {
		return nil, fmt.Errorf("render %s: %w", f.Name, err)
	}
	return buf.Bytes(), nil
}

// Option returns the initial echarts option as JSON.
func (f *Figure) Option() (json.RawMessage, error) {
	f.Chart.Validate()
	data, err := json.Marshal(f.Chart.JSON())
	if err != nil {
		return nil, fmt.Errorf("marshal %s option: %w", f.Name, err)
	}
	return data, nil
}

// WriteHTML renders the figure into dir/<name>.html and returns the path.
func WriteHTML(fsys fsutil.FileSystem, dir string, f *Figure) (string, error) {
	page, err := f.HTML()
	if err != nil {
		return "", err
	}
	if err := fsys.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(dir, f.Name+".html")
	if err := fsys.WriteFile(path, page, 0644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}
