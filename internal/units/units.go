// Package units provides shared constants and conversions for temperature units
package units

// Unit constants
const (
	Kelvin     = "kelvin"
	Celsius    = "celsius"
	Fahrenheit = "fahrenheit"
)

// ValidTemperatureUnits contains all valid unit values
var ValidTemperatureUnits = []string{Kelvin, Celsius, Fahrenheit}

// IsValidTemperature checks if the given unit is in the list of valid units
func IsValidTemperature(unit string) bool {
	for _, validUnit := range ValidTemperatureUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// GetValidTemperatureUnitsString returns a comma-separated string of valid units for error messages
func GetValidTemperatureUnitsString() string {
	return "kelvin, celsius, fahrenheit"
}

// Symbol returns the short label used in axis and legend titles.
func Symbol(unit string) string {
	switch unit {
	case Celsius:
		return "C"
	case Fahrenheit:
		return "F"
	default:
		return "K"
	}
}

// ConvertTemperature converts a temperature in kelvin to the target unit.
// Sea ice tiles are scaled to kelvin; NaN passes through unchanged.
func ConvertTemperature(kelvin float64, targetUnit string) float64 {
	switch targetUnit {
	case Celsius:
		return kelvin - 273.15
	case Fahrenheit:
		return (kelvin-273.15)*9/5 + 32
	default:
		return kelvin
	}
}
