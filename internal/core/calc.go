package core

import "math"

// IntensityTable holds default carbon intensities per category, in kg CO2e
// per canonical unit. Used only when an event carries no explicit intensity.
type IntensityTable map[Category]float64

// DefaultIntensities returns the built-in intensity defaults: kg CO2e per
// therm, gallon, traveler-mile, kWh and food dollar respectively.
func DefaultIntensities() IntensityTable {
	return IntensityTable{
		NaturalGas:  5.291,
		Gasoline:    9.46,
		AirTravel:   0.0002,
		Electricity: 0.0004,
		Food:        0.0006,
	}
}

// CalcInput carries everything the calculator needs for one event. Quantity
// must already be in the category's canonical unit.
type CalcInput struct {
	Category  Category
	Quantity  float64
	Intensity *float64 // nil means use the category default
	// Air travel only.
	Travelers    int
	DirectEntry  bool
	DirectCO2eKg float64
}

// Calculate produces the kg CO2e value for one event.
//
// Standard mode multiplies the canonical quantity by the intensity. Air
// travel additionally multiplies by the traveler count, and in direct-entry
// mode uses a known per-trip-per-traveler figure instead, ignoring quantity
// and intensity entirely. The result is never negative and never NaN;
// missing or non-numeric required inputs fail with ErrInvalidInput rather
// than being coerced to zero.
func Calculate(defaults IntensityTable, in CalcInput) (float64, error) {
	if !in.Category.Valid() {
		return 0, ErrUnknownCategory
	}

	if in.DirectEntry {
		if in.Category != AirTravel {
			return 0, ErrInvalidInput
		}
		if !validNonNegative(in.DirectCO2eKg) || in.Travelers < 1 {
			return 0, ErrInvalidInput
		}
		return in.DirectCO2eKg * float64(in.Travelers), nil
	}

	if !validNonNegative(in.Quantity) {
		return 0, ErrInvalidInput
	}

	intensity, err := resolveIntensity(defaults, in)
	if err != nil {
		return 0, err
	}

	co2e := in.Quantity * intensity
	if in.Category == AirTravel {
		if in.Travelers < 1 {
			return 0, ErrInvalidInput
		}
		co2e *= float64(in.Travelers)
	}
	return co2e, nil
}

func resolveIntensity(defaults IntensityTable, in CalcInput) (float64, error) {
	if in.Intensity != nil {
		if !validNonNegative(*in.Intensity) {
			return 0, ErrInvalidInput
		}
		return *in.Intensity, nil
	}
	intensity, ok := defaults[in.Category]
	if !ok {
		return 0, ErrInvalidInput
	}
	return intensity, nil
}

func validNonNegative(v float64) bool {
	return v >= 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}
