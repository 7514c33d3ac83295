package geo

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/project"
)

// Projection is a named planar projection of lon/lat degrees. Outputs are
// scaled so one unit matches one degree of longitude at the equator, which
// lets the chart draw them with a 1:1 aspect.
type Projection struct {
	Name string
	Fn   orb.Projection
}

// Equirectangular is the plate carrée projection: x = lon, y = lat.
var Equirectangular = Projection{
	Name: "Equirectangular",
	Fn:   func(p orb.Point) orb.Point { return p },
}

// Robinson is the Robinson pseudo-cylindrical projection.
var Robinson = Projection{
	Name: "Robinson",
	Fn:   robinson,
}

// Projections lists the projections offered by the map, default first.
var Projections = []Projection{Equirectangular, Robinson}

// Robinson's table of parallel length (X) and distance from the equator
// (Y), tabulated every 5 degrees of latitude from 0 to 90.
var (
	robinsonX = [...]float64{
		1.0000, 0.9986, 0.9954, 0.9900, 0.9822, 0.9730, 0.9600, 0.9427, 0.9216, 0.8962,
		0.8679, 0.8350, 0.7986, 0.7597, 0.7186, 0.6732, 0.6213, 0.5722, 0.5322,
	}
	robinsonY = [...]float64{
		0.0000, 0.0620, 0.1240, 0.1860, 0.2480, 0.3100, 0.3720, 0.4340, 0.4958, 0.5571,
		0.6176, 0.6769, 0.7346, 0.7903, 0.8435, 0.8936, 0.9394, 0.9761, 1.0000,
	}
)

// robinsonYScale converts the tabulated Y into longitude-degree units:
// 1.3523/0.8487 is the ratio of the standard y and x multipliers and
// 180/pi turns the radian x scale into degrees.
const robinsonYScale = 1.3523 / 0.8487 * 180 / math.Pi

func robinson(p orb.Point) orb.Point {
	lon, lat := p[0], p[1]
	absLat := math.Min(math.Abs(lat), 90)

	i := int(absLat / 5)
	if i >= len(robinsonX)-1 {
		i = len(robinsonX) - 2
	}
	f := (absLat - float64(i)*5) / 5
	px := robinsonX[i] + f*(robinsonX[i+1]-robinsonX[i])
	py := robinsonY[i] + f*(robinsonY[i+1]-robinsonY[i])

	y := py * robinsonYScale
	if lat < 0 {
		y = -y
	}
	return orb.Point{px * lon, y}
}

// Project returns a copy of fc with every geometry projected by proj.
// The input collection is not modified.
func Project(fc *geojson.FeatureCollection, proj Projection) *geojson.FeatureCollection {
	out := geojson.NewFeatureCollection()
	for _, f := range fc.Features {
		if f.Geometry == nil {
			continue
		}
		g := project.Geometry(orb.Clone(f.Geometry), proj.Fn)
		nf := geojson.NewFeature(g)
		nf.Properties = f.Properties.Clone()
		out.Append(nf)
	}
	return out
}

// MapFeatures returns a copy of fc keeping only features with an ISO_A3
// code, each carrying a "name" property set to that code. The chart joins
// data items to outlines on this property.
func MapFeatures(fc *geojson.FeatureCollection) *geojson.FeatureCollection {
	out := geojson.NewFeatureCollection()
	for _, f := range fc.Features {
		code, ok := f.Properties[PropISOA3].(string)
		if !ok || code == "" || f.Geometry == nil {
			continue
		}
		nf := geojson.NewFeature(f.Geometry)
		nf.Properties["name"] = code
		if admin, ok := f.Properties[PropAdmin].(string); ok {
			nf.Properties["admin"] = admin
		}
		out.Append(nf)
	}
	return out
}

// ProjectedMap is one projection of the boundary outlines, ready to
// register with the chart under MapName.
type ProjectedMap struct {
	Projection string
	MapName    string
	GeoJSON    json.RawMessage
}

// BuildProjectedMaps projects the map features once per projection.
// Map names are prefix plus the lower-cased projection name.
func BuildProjectedMaps(fc *geojson.FeatureCollection, prefix string, projections ...Projection) ([]ProjectedMap, error) {
	base := MapFeatures(fc)
	if len(base.Features) == 0 {
		return nil, ErrNoFeatures
	}
	maps := make([]ProjectedMap, 0, len(projections))
	for _, p := range projections {
		data, err := json.Marshal(Project(base, p))
		if err != nil {
			return nil, fmt.Errorf("marshal %s outlines: %w", p.Name, err)
		}
		maps = append(maps, ProjectedMap{
			Projection: p.Name,
			MapName:    prefix + strings.ToLower(p.Name),
			GeoJSON:    data,
		})
	}
	return maps, nil
}
