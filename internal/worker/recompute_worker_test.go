package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"footprint/internal/amqp"
	"footprint/internal/core"
	"footprint/internal/services"
	"footprint/internal/store/memory"
)

type captureExporter struct {
	mu       sync.Mutex
	exported []core.HouseholdSummary
	fail     bool
}

func (c *captureExporter) ExportSummary(_ context.Context, s core.HouseholdSummary) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.New("sink unavailable")
	}
	c.exported = append(c.exported, s)
	return nil
}

func seed(t *testing.T, s *memory.Store, householdID int64, category core.Category, d core.Date, kg float64) {
	t.Helper()
	e := core.Event{
		HouseholdID: householdID,
		Category:    category,
		PeriodStart: d,
		PeriodEnd:   d,
		Quantity:    1,
		Unit:        core.UnitGallon,
		CO2eKg:      kg,
	}
	if category == core.Electricity {
		e.Unit = core.UnitKWh
	}
	if _, err := s.InsertEvent(context.Background(), e); err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func pinnedNow() time.Time {
	return time.Date(2025, 8, 15, 10, 0, 0, 0, time.UTC)
}

func pinnedAverager(s *memory.Store) *services.Averager {
	return services.NewAverager(s, s).WithClock(pinnedNow)
}

func TestHandleRecomputeMessage(t *testing.T) {
	s := memory.New()
	exp := &captureExporter{}
	w := NewRecomputeWorker(pinnedAverager(s), s, s, exp)

	seed(t, s, 1, core.Gasoline, core.NewDate(2025, 6, 1), 120)

	err := w.HandleRecomputeMessage(context.Background(), amqp.NewRecomputeMessage(1, core.Gasoline))
	if err != nil {
		t.Fatalf("handle: %v", err)
	}

	got, err := s.GetSummary(context.Background(), 1, core.Gasoline)
	if err != nil {
		t.Fatalf("get summary: %v", err)
	}
	if got.AvgMonthlyCO2eKg != 10 {
		t.Fatalf("expected 10, got %v", got.AvgMonthlyCO2eKg)
	}
	if len(exp.exported) != 1 || exp.exported[0].AvgMonthlyCO2eKg != 10 {
		t.Fatalf("expected exported summary, got %+v", exp.exported)
	}
}

func TestExportFailureDoesNotFailRecompute(t *testing.T) {
	s := memory.New()
	exp := &captureExporter{fail: true}
	w := NewRecomputeWorker(pinnedAverager(s), s, s, exp)

	seed(t, s, 1, core.Gasoline, core.NewDate(2025, 6, 1), 60)

	if err := w.HandleRecomputeMessage(context.Background(), amqp.NewRecomputeMessage(1, core.Gasoline)); err != nil {
		t.Fatalf("expected ok despite export failure, got %v", err)
	}
	if _, err := s.GetSummary(context.Background(), 1, core.Gasoline); err != nil {
		t.Fatalf("summary must still be stored: %v", err)
	}
}

func TestSweepActive(t *testing.T) {
	s := memory.New()
	w := NewRecomputeWorker(pinnedAverager(s), s, s, nil).WithClock(pinnedNow)

	seed(t, s, 1, core.Gasoline, core.NewDate(2025, 5, 1), 120)
	seed(t, s, 2, core.Electricity, core.NewDate(2025, 7, 1), 24)

	if err := w.SweepActive(context.Background()); err != nil {
		t.Fatalf("sweep: %v", err)
	}

	one, err := s.GetSummary(context.Background(), 1, core.Gasoline)
	if err != nil {
		t.Fatalf("summary 1: %v", err)
	}
	if one.AvgMonthlyCO2eKg != 10 {
		t.Fatalf("expected 10, got %v", one.AvgMonthlyCO2eKg)
	}
	two, err := s.GetSummary(context.Background(), 2, core.Electricity)
	if err != nil {
		t.Fatalf("summary 2: %v", err)
	}
	if two.AvgMonthlyCO2eKg != 2 {
		t.Fatalf("expected 2, got %v", two.AvgMonthlyCO2eKg)
	}
}
