package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/banshee-data/climate.report/internal/units"
)

// DefaultConfigPath is the path to the canonical defaults file.
const DefaultConfigPath = "config/climate.defaults.json"

// ClimateConfig holds the dataset locations, filter codes and chart
// parameters shared by the three chart commands. Every field is optional;
// the Get* methods fall back to the FAOSTAT/MODIS defaults.
type ClimateConfig struct {
	// Tabular inputs
	RegionsFile    *string `json:"regions_file,omitempty"`
	CountriesFile  *string `json:"countries_file,omitempty"`
	BoundariesFile *string `json:"boundaries_file,omitempty"`
	TableEncoding  *string `json:"table_encoding,omitempty"` // "windows-1252" or "utf-8"

	// FAOSTAT filter codes
	ElementCode *int    `json:"element_code,omitempty"`
	MonthsCode  *int    `json:"months_code,omitempty"`
	YearPrefix  *string `json:"year_prefix,omitempty"`

	// Chart defaults
	DefaultRegion  *string  `json:"default_region,omitempty"`
	DefaultMapYear *string  `json:"default_map_year,omitempty"`
	ChangeMidpoint *float64 `json:"change_midpoint,omitempty"`

	// Sea ice imagery
	ImageryDir        *string  `json:"imagery_dir,omitempty"`
	SentinelThreshold *float64 `json:"sentinel_threshold,omitempty"`
	RawScale          *float64 `json:"raw_scale,omitempty"`
	ResolutionKm      *float64 `json:"resolution_km,omitempty"`
	DefaultFrameYear  *int     `json:"default_frame_year,omitempty"`
	SurfaceMidpoint   *float64 `json:"surface_midpoint,omitempty"` // kelvin
	DisplayUnit       *string  `json:"display_unit,omitempty"`

	// Output
	OutputDir  *string `json:"output_dir,omitempty"`
	ListenAddr *string `json:"listen_addr,omitempty"`
	AssetsHost *string `json:"assets_host,omitempty"`
	WritePNG   *bool   `json:"write_png,omitempty"`
}

func ptrString(v string) *string { return &v }

// EmptyClimateConfig returns a ClimateConfig with all fields unset.
func EmptyClimateConfig() *ClimateConfig {
	return &ClimateConfig{}
}

// LoadClimateConfig loads a ClimateConfig from a JSON file.
// The file must have a .json extension and be under 1MB. Omitted fields
// keep their defaults, so partial configs are safe.
func LoadClimateConfig(path string) (*ClimateConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyClimateConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault loads path when it is non-empty, otherwise returns an
// empty config whose getters yield the built-in defaults.
func LoadOrDefault(path string) (*ClimateConfig, error) {
	if path == "" {
		return EmptyClimateConfig(), nil
	}
	return LoadClimateConfig(path)
}

// MustLoadDefaultConfig loads the canonical defaults from DefaultConfigPath,
// searching the current directory and its parents. Panics if the file
// cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *ClimateConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadClimateConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *ClimateConfig) Validate() error {
	if c.SentinelThreshold != nil && *c.SentinelThreshold < 0 {
		return fmt.Errorf("sentinel_threshold must be non-negative, got %f", *c.SentinelThreshold)
	}
	if c.RawScale != nil && *c.RawScale <= 0 {
		return fmt.Errorf("raw_scale must be positive, got %f", *c.RawScale)
	}
	if c.ResolutionKm != nil && *c.ResolutionKm <= 0 {
		return fmt.Errorf("resolution_km must be positive, got %f", *c.ResolutionKm)
	}
	if c.DisplayUnit != nil && !units.IsValidTemperature(*c.DisplayUnit) {
		return fmt.Errorf("display_unit must be one of %s, got %q", units.GetValidTemperatureUnitsString(), *c.DisplayUnit)
	}
	if c.TableEncoding != nil {
		switch *c.TableEncoding {
		case "windows-1252", "utf-8":
		default:
			return fmt.Errorf("table_encoding must be windows-1252 or utf-8, got %q", *c.TableEncoding)
		}
	}
	if c.YearPrefix != nil && *c.YearPrefix == "" {
		return fmt.Errorf("year_prefix must not be empty")
	}
	return nil
}

// GetRegionsFile returns the regional temperature-change table path.
func (c *ClimateConfig) GetRegionsFile() string {
	if c.RegionsFile == nil {
		return "Temp_Change_Regions.csv"
	}
	return *c.RegionsFile
}

// GetCountriesFile returns the per-country temperature-change table path.
func (c *ClimateConfig) GetCountriesFile() string {
	if c.CountriesFile == nil {
		return "Temp_Change_Countries.csv"
	}
	return *c.CountriesFile
}

// GetBoundariesFile returns the country boundary GeoJSON path.
func (c *ClimateConfig) GetBoundariesFile() string {
	if c.BoundariesFile == nil {
		return "countries.geojson"
	}
	return *c.BoundariesFile
}

// GetTableEncoding returns the text encoding of the tabular inputs.
func (c *ClimateConfig) GetTableEncoding() string {
	if c.TableEncoding == nil {
		return "windows-1252"
	}
	return *c.TableEncoding
}

// GetElementCode returns the FAOSTAT element code for temperature change.
func (c *ClimateConfig) GetElementCode() int {
	if c.ElementCode == nil {
		return 7271
	}
	return *c.ElementCode
}

// GetMonthsCode returns the FAOSTAT months code for the whole-year aggregate.
func (c *ClimateConfig) GetMonthsCode() int {
	if c.MonthsCode == nil {
		return 7020
	}
	return *c.MonthsCode
}

// GetYearPrefix returns the prefix carried by year column names.
func (c *ClimateConfig) GetYearPrefix() string {
	if c.YearPrefix == nil {
		return "Y"
	}
	return *c.YearPrefix
}

// GetDefaultRegion returns the region shown when the bar chart opens.
func (c *ClimateConfig) GetDefaultRegion() string {
	if c.DefaultRegion == nil {
		return "World"
	}
	return *c.DefaultRegion
}

// GetDefaultMapYear returns the year shown when the map opens.
func (c *ClimateConfig) GetDefaultMapYear() string {
	if c.DefaultMapYear == nil {
		return "1962"
	}
	return *c.DefaultMapYear
}

// GetChangeMidpoint returns the colour-scale midpoint for temperature change.
func (c *ClimateConfig) GetChangeMidpoint() float64 {
	if c.ChangeMidpoint == nil {
		return 0
	}
	return *c.ChangeMidpoint
}

// GetImageryDir returns the root of the yearly sea ice tile tree.
func (c *ClimateConfig) GetImageryDir() string {
	if c.ImageryDir == nil {
		return filepath.Join("modis", "IST")
	}
	return *c.ImageryDir
}

// GetSentinelThreshold returns the raw value at or below which pixels are masked.
func (c *ClimateConfig) GetSentinelThreshold() float64 {
	if c.SentinelThreshold == nil {
		return 5000
	}
	return *c.SentinelThreshold
}

// GetRawScale returns the factor converting raw sensor units to kelvin.
func (c *ClimateConfig) GetRawScale() float64 {
	if c.RawScale == nil {
		return 0.01
	}
	return *c.RawScale
}

// GetResolutionKm returns the tile pixel size in kilometres.
func (c *ClimateConfig) GetResolutionKm() float64 {
	if c.ResolutionKm == nil {
		return 20
	}
	return *c.ResolutionKm
}

// GetDefaultFrameYear returns the year shown when the sea ice chart opens.
func (c *ClimateConfig) GetDefaultFrameYear() int {
	if c.DefaultFrameYear == nil {
		return 2002
	}
	return *c.DefaultFrameYear
}

// GetSurfaceMidpoint returns the colour-scale midpoint for surface
// temperature, in kelvin.
func (c *ClimateConfig) GetSurfaceMidpoint() float64 {
	if c.SurfaceMidpoint == nil {
		return 273
	}
	return *c.SurfaceMidpoint
}

// GetDisplayUnit returns the unit sea ice temperatures are shown in.
func (c *ClimateConfig) GetDisplayUnit() string {
	if c.DisplayUnit == nil {
		return units.Kelvin
	}
	return *c.DisplayUnit
}

// GetOutputDir returns the directory rendered charts are written to.
func (c *ClimateConfig) GetOutputDir() string {
	if c.OutputDir == nil {
		return "out"
	}
	return *c.OutputDir
}

// GetListenAddr returns the viewer listen address. Empty disables serving.
func (c *ClimateConfig) GetListenAddr() string {
	if c.ListenAddr == nil {
		return ""
	}
	return *c.ListenAddr
}

// GetAssetsHost returns the host serving echarts.min.js.
func (c *ClimateConfig) GetAssetsHost() string {
	if c.AssetsHost == nil || *c.AssetsHost == "" {
		return "https://go-echarts.github.io/go-echarts-assets/assets/"
	}
	return *c.AssetsHost
}

// GetWritePNG reports whether a static PNG is written next to the HTML chart.
func (c *ClimateConfig) GetWritePNG() bool {
	if c.WritePNG == nil {
		return false
	}
	return *c.WritePNG
}

// WithDataDir returns a copy of c whose relative input paths are resolved
// against dir. Absolute paths are left alone.
func (c *ClimateConfig) WithDataDir(dir string) *ClimateConfig {
	out := *c
	if dir == "" {
		return &out
	}
	join := func(p string) *string {
		if filepath.IsAbs(p) {
			return ptrString(p)
		}
		return ptrString(filepath.Join(dir, p))
	}
	out.RegionsFile = join(c.GetRegionsFile())
	out.CountriesFile = join(c.GetCountriesFile())
	out.BoundariesFile = join(c.GetBoundariesFile())
	out.ImageryDir = join(c.GetImageryDir())
	return &out
}
