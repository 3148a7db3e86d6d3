package storage

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"
	"time"

	"footprint/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "footprint.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func testEvent() core.Event {
	return core.Event{
		HouseholdID: 1,
		Category:    core.NaturalGas,
		PeriodStart: core.NewDate(2025, 7, 1),
		PeriodEnd:   core.NewDate(2025, 7, 31),
		Quantity:    100,
		Unit:        core.UnitCCF,
		CO2eKg:      507.936,
		Description: "july bill",
	}
}

func TestInsertAndGetEvent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	id, err := repo.InsertEvent(ctx, testEvent())
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if id == 0 {
		t.Fatalf("expected non-zero id")
	}

	got, err := repo.GetEvent(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.HouseholdID != 1 || got.Category != core.NaturalGas {
		t.Fatalf("unexpected event %+v", got)
	}
	if got.PeriodStart != core.NewDate(2025, 7, 1) || got.PeriodEnd != core.NewDate(2025, 7, 31) {
		t.Fatalf("period mismatch: %v .. %v", got.PeriodStart, got.PeriodEnd)
	}
	if got.Quantity != 100 || got.Unit != core.UnitCCF {
		t.Fatalf("raw input mismatch: %v %v", got.Quantity, got.Unit)
	}
	if got.CarbonIntensity != nil {
		t.Fatalf("expected nil intensity, got %v", *got.CarbonIntensity)
	}
}

func TestGetEventNotFound(t *testing.T) {
	repo := newTestRepo(t)
	if _, err := repo.GetEvent(context.Background(), 42); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateEvent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	id, err := repo.InsertEvent(ctx, testEvent())
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	updated := testEvent()
	updated.ID = id
	updated.Quantity = 120
	updated.CO2eKg = 609.5232
	intensity := 5.291
	updated.CarbonIntensity = &intensity
	if err := repo.UpdateEvent(ctx, updated); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := repo.GetEvent(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Quantity != 120 {
		t.Fatalf("expected 120, got %v", got.Quantity)
	}
	if got.CarbonIntensity == nil || *got.CarbonIntensity != 5.291 {
		t.Fatalf("intensity not persisted: %+v", got.CarbonIntensity)
	}

	missing := testEvent()
	missing.ID = 9999
	if err := repo.UpdateEvent(ctx, missing); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteEvent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	id, err := repo.InsertEvent(ctx, testEvent())
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := repo.DeleteEvent(ctx, id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.GetEvent(ctx, id); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := repo.DeleteEvent(ctx, id); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestListEventsOverlap(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	// Spans the range boundary: must be included.
	spanning := testEvent()
	spanning.PeriodStart = core.NewDate(2025, 6, 25)
	spanning.PeriodEnd = core.NewDate(2025, 7, 5)
	if _, err := repo.InsertEvent(ctx, spanning); err != nil {
		t.Fatalf("insert spanning: %v", err)
	}

	// Entirely before the range: excluded.
	before := testEvent()
	before.PeriodStart = core.NewDate(2025, 5, 1)
	before.PeriodEnd = core.NewDate(2025, 5, 31)
	if _, err := repo.InsertEvent(ctx, before); err != nil {
		t.Fatalf("insert before: %v", err)
	}

	// Different household: excluded.
	other := testEvent()
	other.HouseholdID = 2
	if _, err := repo.InsertEvent(ctx, other); err != nil {
		t.Fatalf("insert other household: %v", err)
	}

	events, err := repo.ListEvents(ctx, 1, core.NaturalGas,
		core.NewDate(2025, 7, 1), core.NewDate(2025, 7, 31))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].PeriodStart != core.NewDate(2025, 6, 25) {
		t.Fatalf("unexpected event %+v", events[0])
	}
}

func TestSummaryUpsert(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if _, err := repo.GetSummary(ctx, 1, core.Gasoline); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	s := core.HouseholdSummary{
		HouseholdID:      1,
		Category:         core.Gasoline,
		AvgMonthlyCO2eKg: 25,
		UpdatedAt:        time.Date(2025, 8, 15, 10, 0, 0, 0, time.UTC),
	}
	if err := repo.UpsertSummary(ctx, s); err != nil {
		t.Fatalf("insert summary: %v", err)
	}

	s.AvgMonthlyCO2eKg = 30
	if err := repo.UpsertSummary(ctx, s); err != nil {
		t.Fatalf("update summary: %v", err)
	}

	got, err := repo.GetSummary(ctx, 1, core.Gasoline)
	if err != nil {
		t.Fatalf("get summary: %v", err)
	}
	if got.AvgMonthlyCO2eKg != 30 {
		t.Fatalf("expected 30, got %v", got.AvgMonthlyCO2eKg)
	}
}

func TestListActivePairs(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if _, err := repo.InsertEvent(ctx, testEvent()); err != nil {
		t.Fatalf("insert: %v", err)
	}
	old := testEvent()
	old.HouseholdID = 2
	old.PeriodStart = core.NewDate(2024, 1, 1)
	old.PeriodEnd = core.NewDate(2024, 1, 31)
	if _, err := repo.InsertEvent(ctx, old); err != nil {
		t.Fatalf("insert old: %v", err)
	}

	pairs, err := repo.ListActivePairs(ctx, core.NewDate(2025, 1, 1))
	if err != nil {
		t.Fatalf("list pairs: %v", err)
	}
	if len(pairs) != 1 {
		t.Fatalf("expected 1 pair, got %d", len(pairs))
	}
	if pairs[0].HouseholdID != 1 || pairs[0].Category != core.NaturalGas {
		t.Fatalf("unexpected pair %+v", pairs[0])
	}
}

func TestFactorLookup(t *testing.T) {
	repo := newTestRepo(t)

	f, err := repo.Factor(core.NaturalGas, core.UnitCCF, core.UnitTherm)
	if err != nil {
		t.Fatalf("factor: %v", err)
	}
	if math.Abs(f-0.96) > 1e-12 {
		t.Fatalf("expected 0.96, got %v", f)
	}

	// Unknown pair falls through to the compiled-in defaults, which also
	// do not carry it.
	if _, err := repo.Factor(core.Gasoline, core.UnitTherm, core.UnitGallon); !errors.Is(err, core.ErrUnsupportedUnit) {
		t.Fatalf("expected ErrUnsupportedUnit, got %v", err)
	}
}
