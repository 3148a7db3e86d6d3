package core

import (
	"errors"
	"math"
	"time"
)

const (
	Electricity Category = "electricity"
	NaturalGas  Category = "natural_gas"
	Gasoline    Category = "gasoline"
	AirTravel   Category = "air_travel"
	Food        Category = "food"
)

const (
	UnitKWh    Unit = "kwh"
	UnitTherm  Unit = "therm"
	UnitCCF    Unit = "ccf"
	UnitMCF    Unit = "mcf"
	UnitGallon Unit = "gallon"
	UnitMile   Unit = "mile"
	UnitKm     Unit = "km"
	UnitDollar Unit = "dollar"
)

type (
	// Category identifies one consumption stream of a household.
	Category string

	// Unit is a category-scoped source unit tag.
	Unit string

	Date struct {
		time.Time
	}

	// Event is a single logged consumption entry. CO2eKg is always derived
	// from the other fields and recomputed on any edit of quantity, unit or
	// intensity.
	Event struct {
		ID          int64
		HouseholdID int64
		Category    Category
		PeriodStart Date
		PeriodEnd   Date
		Quantity    float64 // raw amount in Unit
		Unit        Unit
		// CarbonIntensity overrides the category default when set,
		// expressed in kg CO2e per canonical unit.
		CarbonIntensity *float64
		CO2eKg          float64
		// Air travel only.
		Travelers    int
		DirectEntry  bool
		DirectCO2eKg float64
		Description  string
	}

	// HouseholdSummary is the derived trailing-12-month average per category.
	// It is written only by the averager, never edited directly.
	HouseholdSummary struct {
		HouseholdID      int64
		Category         Category
		AvgMonthlyCO2eKg float64
		UpdatedAt        time.Time
	}
)

var (
	ErrUnsupportedUnit  = errors.New("unsupported unit conversion")
	ErrInvalidInput     = errors.New("missing or invalid input")
	ErrUnknownCategory  = errors.New("unknown category")
	ErrInvalidPeriod    = errors.New("period end before period start")
	ErrInvalidHousehold = errors.New("invalid household id")
	ErrNotFound         = errors.New("not found")
)

// canonicalUnits maps each category to the single unit all raw inputs are
// converted into before calculation.
var canonicalUnits = map[Category]Unit{
	Electricity: UnitKWh,
	NaturalGas:  UnitTherm,
	Gasoline:    UnitGallon,
	AirTravel:   UnitMile,
	Food:        UnitDollar,
}

// acceptedUnits enumerates the source units each category may be logged in.
var acceptedUnits = map[Category][]Unit{
	Electricity: {UnitKWh},
	NaturalGas:  {UnitTherm, UnitCCF, UnitMCF},
	Gasoline:    {UnitGallon},
	AirTravel:   {UnitMile, UnitKm},
	Food:        {UnitDollar},
}

// rangeDated reports whether a category is billed over a period rather than
// on a single day.
var rangeDated = map[Category]bool{
	Electricity: true,
	NaturalGas:  true,
}

// CanonicalUnit returns the canonical unit for a category.
func CanonicalUnit(c Category) (Unit, error) {
	u, ok := canonicalUnits[c]
	if !ok {
		return "", ErrUnknownCategory
	}
	return u, nil
}

// Accepts reports whether the category may be logged in the given unit.
func (c Category) Accepts(u Unit) bool {
	for _, a := range acceptedUnits[c] {
		if a == u {
			return true
		}
	}
	return false
}

// RangeDated reports whether the category uses billing-period date ranges.
func (c Category) RangeDated() bool {
	return rangeDated[c]
}

func (c Category) Valid() bool {
	_, ok := canonicalUnits[c]
	return ok
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	return nil
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

func (e Event) Validate() error {
	if e.HouseholdID <= 0 {
		return ErrInvalidHousehold
	}
	if !e.Category.Valid() {
		return ErrUnknownCategory
	}
	if err := e.PeriodStart.Validate(); err != nil {
		return err
	}
	if err := e.PeriodEnd.Validate(); err != nil {
		return err
	}
	if e.PeriodEnd.Before(e.PeriodStart.Time) {
		return ErrInvalidPeriod
	}
	if !e.Category.Accepts(e.Unit) {
		return ErrUnsupportedUnit
	}
	if e.Quantity < 0 || math.IsNaN(e.Quantity) || math.IsInf(e.Quantity, 0) {
		return ErrInvalidInput
	}
	if e.CarbonIntensity != nil && (*e.CarbonIntensity < 0 || math.IsNaN(*e.CarbonIntensity)) {
		return ErrInvalidInput
	}
	if e.CO2eKg < 0 || math.IsNaN(e.CO2eKg) {
		return ErrInvalidInput
	}
	if e.Category == AirTravel && e.Travelers < 1 {
		return ErrInvalidInput
	}
	return nil
}
