package core

import (
	"errors"
	"math"
	"testing"
)

func TestConvertCanonicalPassthrough(t *testing.T) {
	got, err := Convert(DefaultFactors(), Electricity, 123.5, UnitKWh)
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if got != 123.5 {
		t.Fatalf("expected passthrough 123.5, got %v", got)
	}
}

func TestConvertCCFToTherms(t *testing.T) {
	got, err := Convert(DefaultFactors(), NaturalGas, 100, UnitCCF)
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if got != 96 {
		t.Fatalf("expected 96 therms, got %v", got)
	}
}

func TestConvertUnsupportedUnit(t *testing.T) {
	cases := []struct {
		category Category
		from     Unit
	}{
		{Gasoline, UnitTherm},  // therms never apply to gasoline
		{Electricity, UnitCCF}, // ccf factor is scoped to natural gas
		{NaturalGas, UnitMile},
	}
	for i, tc := range cases {
		_, err := Convert(DefaultFactors(), tc.category, 1, tc.from)
		if !errors.Is(err, ErrUnsupportedUnit) {
			t.Fatalf("case %d expected ErrUnsupportedUnit, got %v", i, err)
		}
	}
}

func TestConvertRoundTrip(t *testing.T) {
	factors := DefaultFactors()
	cases := []struct {
		category Category
		from     Unit
		amount   float64
	}{
		{NaturalGas, UnitCCF, 137.25},
		{NaturalGas, UnitMCF, 4.2},
		{AirTravel, UnitKm, 830},
	}
	for i, tc := range cases {
		canonical, err := Convert(factors, tc.category, tc.amount, tc.from)
		if err != nil {
			t.Fatalf("case %d forward: %v", i, err)
		}
		to, err := CanonicalUnit(tc.category)
		if err != nil {
			t.Fatalf("case %d canonical unit: %v", i, err)
		}
		inverse, err := factors.Factor(tc.category, to, tc.from)
		if err != nil {
			t.Fatalf("case %d inverse factor: %v", i, err)
		}
		back := canonical * inverse
		if math.Abs(back-tc.amount) > 1e-9 {
			t.Fatalf("case %d round trip %v != %v", i, back, tc.amount)
		}
	}
}

func TestConvertRejectsNonFinite(t *testing.T) {
	for i, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		if _, err := Convert(DefaultFactors(), Electricity, v, UnitKWh); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("case %d expected ErrInvalidInput, got %v", i, err)
		}
	}
}

func TestDeriveFromCost(t *testing.T) {
	got, err := DeriveFromCost(30, 3.75)
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if got != 8 {
		t.Fatalf("expected 8 gallons, got %v", got)
	}

	bads := []struct{ spent, perUnit float64 }{
		{0, 3.75},
		{30, 0},
		{-30, 3.75},
		{30, -1},
		{math.NaN(), 3.75},
	}
	for i, tc := range bads {
		if _, err := DeriveFromCost(tc.spent, tc.perUnit); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("case %d expected ErrInvalidInput, got %v", i, err)
		}
	}
}
