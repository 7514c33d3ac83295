// Package geo loads country boundaries and prepares them for the
// choropleth: the display-name to ISO code mapping and the projected
// outlines registered with the chart.
package geo

import (
	"errors"
	"fmt"

	"github.com/paulmach/orb/geojson"

	"github.com/banshee-data/climate.report/internal/fsutil"
	"github.com/banshee-data/climate.report/internal/monitoring"
)

// Property keys read from the Natural Earth country boundaries.
const (
	PropAdmin = "ADMIN"
	PropISOA3 = "ISO_A3"
)

// ErrNoFeatures is returned when a boundary file holds no features.
var ErrNoFeatures = errors.New("geo: no features")

// IdentifierMap maps an entity display name to its ISO 3166-1 alpha-3 code.
type IdentifierMap map[string]string

// LoadBoundaries reads a GeoJSON FeatureCollection.
func LoadBoundaries(fsys fsutil.FileSystem, path string) (*geojson.FeatureCollection, error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read boundaries %s: %w", path, err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parse boundaries %s: %w", path, err)
	}
	if len(fc.Features) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrNoFeatures)
	}
	return fc, nil
}

// BuildIdentifierMap maps each feature's ADMIN name to its ISO_A3 code.
// Features missing either property are skipped. A later feature with the
// same name replaces an earlier one.
func BuildIdentifierMap(fc *geojson.FeatureCollection) IdentifierMap {
	ids := make(IdentifierMap, len(fc.Features))
	skipped := 0
	for _, f := range fc.Features {
		name, okName := f.Properties[PropAdmin].(string)
		code, okCode := f.Properties[PropISOA3].(string)
		if !okName || !okCode || name == "" || code == "" {
			skipped++
			continue
		}
		ids[name] = code
	}
	if skipped > 0 {
		monitoring.Logf("geo: skipped %d features without %s/%s", skipped, PropAdmin, PropISOA3)
	}
	return ids
}

// Names returns the set of display names with an identifier.
func (m IdentifierMap) Names() map[string]bool {
	out := make(map[string]bool, len(m))
	for name := range m {
		out[name] = true
	}
	return out
}
