package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"footprint/internal/core"
	"footprint/internal/store/memory"
)

func fixedClock() func() time.Time {
	return func() time.Time {
		return time.Date(2025, 8, 15, 10, 0, 0, 0, time.UTC)
	}
}

func seedEvent(t *testing.T, s *memory.Store, householdID int64, d core.Date, kg float64) {
	t.Helper()
	_, err := s.InsertEvent(context.Background(), core.Event{
		HouseholdID: householdID,
		Category:    core.Electricity,
		PeriodStart: d,
		PeriodEnd:   d,
		Quantity:    1,
		Unit:        core.UnitKWh,
		CO2eKg:      kg,
	})
	if err != nil {
		t.Fatalf("seed event: %v", err)
	}
}

func TestRecomputeAverageFixedDenominator(t *testing.T) {
	s := memory.New()
	a := NewAverager(s, s).WithClock(fixedClock())

	// Events in only 3 of the 12 window months, 300 kg total.
	seedEvent(t, s, 1, core.NewDate(2025, 2, 10), 100)
	seedEvent(t, s, 1, core.NewDate(2025, 5, 10), 120)
	seedEvent(t, s, 1, core.NewDate(2025, 7, 10), 80)

	avg, err := a.RecomputeAverage(context.Background(), 1, core.Electricity)
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	// 300 / 12, not 300 / 3: quiet months count as zero.
	if avg != 25 {
		t.Fatalf("expected 25, got %v", avg)
	}

	stored, err := s.GetSummary(context.Background(), 1, core.Electricity)
	if err != nil {
		t.Fatalf("get summary: %v", err)
	}
	if stored.AvgMonthlyCO2eKg != 25 {
		t.Fatalf("expected stored 25, got %v", stored.AvgMonthlyCO2eKg)
	}
}

func TestRecomputeAverageIdempotent(t *testing.T) {
	s := memory.New()
	a := NewAverager(s, s).WithClock(fixedClock())
	seedEvent(t, s, 1, core.NewDate(2025, 3, 1), 60)

	first, err := a.RecomputeAverage(context.Background(), 1, core.Electricity)
	if err != nil {
		t.Fatalf("first recompute: %v", err)
	}
	second, err := a.RecomputeAverage(context.Background(), 1, core.Electricity)
	if err != nil {
		t.Fatalf("second recompute: %v", err)
	}
	if first != second {
		t.Fatalf("expected identical averages, got %v then %v", first, second)
	}
	stored, err := s.GetSummary(context.Background(), 1, core.Electricity)
	if err != nil {
		t.Fatalf("get summary: %v", err)
	}
	if stored.AvgMonthlyCO2eKg != second {
		t.Fatalf("stored %v != returned %v", stored.AvgMonthlyCO2eKg, second)
	}
}

func TestRecomputeAverageIgnoresEventsOutsideWindow(t *testing.T) {
	s := memory.New()
	a := NewAverager(s, s).WithClock(fixedClock())

	// Window is 2024-09 .. 2025-08; this one is older.
	seedEvent(t, s, 1, core.NewDate(2024, 8, 20), 999)
	seedEvent(t, s, 1, core.NewDate(2025, 1, 5), 120)

	avg, err := a.RecomputeAverage(context.Background(), 1, core.Electricity)
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if avg != 10 {
		t.Fatalf("expected 120/12=10, got %v", avg)
	}
}

func TestRecomputeAverageEmptyWindowIsNoOp(t *testing.T) {
	s := memory.New()
	a := NewAverager(s, s).WithClock(fixedClock())

	// Nothing stored yet: returns zero without writing.
	avg, err := a.RecomputeAverage(context.Background(), 1, core.Electricity)
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if avg != 0 {
		t.Fatalf("expected 0, got %v", avg)
	}
	if _, err := s.GetSummary(context.Background(), 1, core.Electricity); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected no summary written, got %v", err)
	}

	// With a stored value, an empty window leaves it untouched.
	if err := s.UpsertSummary(context.Background(), core.HouseholdSummary{
		HouseholdID:      1,
		Category:         core.Electricity,
		AvgMonthlyCO2eKg: 42,
	}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	avg, err = a.RecomputeAverage(context.Background(), 1, core.Electricity)
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if avg != 42 {
		t.Fatalf("expected preserved 42, got %v", avg)
	}
}

func TestRecomputeAverageValidation(t *testing.T) {
	s := memory.New()
	a := NewAverager(s, s)
	if _, err := a.RecomputeAverage(context.Background(), 0, core.Electricity); !errors.Is(err, core.ErrInvalidHousehold) {
		t.Fatalf("expected ErrInvalidHousehold, got %v", err)
	}
	if _, err := a.RecomputeAverage(context.Background(), 1, core.Category("plastics")); !errors.Is(err, core.ErrUnknownCategory) {
		t.Fatalf("expected ErrUnknownCategory, got %v", err)
	}
}

func TestRecomputeAverageMajorityMonthBucketing(t *testing.T) {
	s := memory.New()
	a := NewAverager(s, s).WithClock(fixedClock())

	// Billing period Aug 28 .. Sep 8 2024: majority month is September,
	// the first month of the window, so it counts.
	_, err := s.InsertEvent(context.Background(), core.Event{
		HouseholdID: 1,
		Category:    core.NaturalGas,
		PeriodStart: core.NewDate(2024, 8, 28),
		PeriodEnd:   core.NewDate(2024, 9, 8),
		Quantity:    96,
		Unit:        core.UnitTherm,
		CO2eKg:      120,
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	avg, err := a.RecomputeAverage(context.Background(), 1, core.NaturalGas)
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if avg != 10 {
		t.Fatalf("expected 120/12=10, got %v", avg)
	}
}
