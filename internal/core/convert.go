// Package core provides the pure computation engine: unit conversion,
// emission calculation and month bucketing. Nothing here touches storage.
package core

import "math"

// FactorKey identifies a conversion factor. Factors are category-scoped: a
// ccf->therm factor registered for natural gas is never consulted for any
// other category.
type FactorKey struct {
	Category Category
	From     Unit
	To       Unit
}

// FactorSource resolves conversion factors for a (category, from, to) triple.
// Implementations must return ErrUnsupportedUnit for unknown pairs instead of
// assuming a 1:1 factor.
type FactorSource interface {
	Factor(category Category, from, to Unit) (float64, error)
}

// FactorTable is an in-memory FactorSource.
type FactorTable map[FactorKey]float64

func (t FactorTable) Factor(category Category, from, to Unit) (float64, error) {
	if f, ok := t[FactorKey{Category: category, From: from, To: to}]; ok {
		return f, nil
	}
	return 0, ErrUnsupportedUnit
}

// DefaultFactors returns the compiled-in conversion table. Both directions
// are present so conversions out of the canonical unit round-trip.
func DefaultFactors() FactorTable {
	t := FactorTable{
		{NaturalGas, UnitCCF, UnitTherm}: 0.96,
		{NaturalGas, UnitMCF, UnitTherm}: 9.6,
		{AirTravel, UnitKm, UnitMile}:    0.621371,
	}
	inv := FactorTable{}
	for k, f := range t {
		inv[FactorKey{Category: k.Category, From: k.To, To: k.From}] = 1 / f
	}
	for k, f := range inv {
		t[k] = f
	}
	return t
}

// Convert normalizes amount from the given source unit into the category's
// canonical unit. An amount already in the canonical unit passes through
// unchanged. Unknown unit pairs report ErrUnsupportedUnit; the caller decides
// whether to surface the error or fall back to treating the amount as
// canonical.
func Convert(factors FactorSource, category Category, amount float64, from Unit) (float64, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return 0, ErrInvalidInput
	}
	canonical, err := CanonicalUnit(category)
	if err != nil {
		return 0, err
	}
	if from == canonical {
		return amount, nil
	}
	factor, err := factors.Factor(category, from, canonical)
	if err != nil {
		return 0, err
	}
	return amount * factor, nil
}

// DeriveFromCost derives a raw quantity from money spent and a unit price,
// the gasoline-style "dollars and price per gallon" entry path. Both inputs
// must be positive.
func DeriveFromCost(spent, perUnit float64) (float64, error) {
	if math.IsNaN(spent) || math.IsNaN(perUnit) || math.IsInf(spent, 0) || math.IsInf(perUnit, 0) {
		return 0, ErrInvalidInput
	}
	if spent <= 0 || perUnit <= 0 {
		return 0, ErrInvalidInput
	}
	return spent / perUnit, nil
}
