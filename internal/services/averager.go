package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"footprint/internal/core"
	"footprint/internal/store"
)

// Averager recomputes and persists a household's trailing-12-month average
// for one category. The operation is idempotent and re-entrant: recomputing
// with unchanged events stores the same value, so it is safe to trigger after
// every event mutation and from the worker's periodic sweep.
type Averager struct {
	events    store.EventStore
	summaries store.SummaryStore
	now       func() time.Time
}

func NewAverager(events store.EventStore, summaries store.SummaryStore) *Averager {
	return &Averager{
		events:    events,
		summaries: summaries,
		now:       time.Now,
	}
}

// WithClock overrides the time source. Used by tests to pin the window.
func (a *Averager) WithClock(now func() time.Time) *Averager {
	a.now = now
	return a
}

// RecomputeAverage averages the monthly CO2e sums over the fixed 12-calendar-
// month window ending at the current month, counting months without events as
// zero, and upserts the result into the household summary.
//
// A window with no events at all is a no-op: the stored average is left
// untouched and returned as-is (zero when none exists). Store failures
// propagate without a partial update.
func (a *Averager) RecomputeAverage(ctx context.Context, householdID int64, category core.Category) (float64, error) {
	if householdID <= 0 {
		return 0, core.ErrInvalidHousehold
	}
	if !category.Valid() {
		return 0, core.ErrUnknownCategory
	}

	from, to := core.TrailingWindow(a.now())
	first, last := core.WindowBounds(from, to)

	events, err := a.events.ListEvents(ctx, householdID, category, first, last)
	if err != nil {
		return 0, fmt.Errorf("list window events: %w", err)
	}

	if len(events) == 0 {
		existing, err := a.summaries.GetSummary(ctx, householdID, category)
		if errors.Is(err, core.ErrNotFound) {
			return 0, nil
		}
		if err != nil {
			return 0, fmt.Errorf("get existing summary: %w", err)
		}
		slog.DebugContext(ctx, "No events in trailing window, keeping stored average",
			"household_id", householdID,
			"category", category,
			"avg_monthly_co2e_kg", existing.AvgMonthlyCO2eKg)
		return existing.AvgMonthlyCO2eKg, nil
	}

	totals := core.AggregateRange(events, from, to)
	var sum float64
	for _, t := range totals {
		sum += t.CO2eKg
	}
	// Fixed 12-month denominator: quiet months pull the average down.
	average := sum / float64(len(totals))

	summary := core.HouseholdSummary{
		HouseholdID:      householdID,
		Category:         category,
		AvgMonthlyCO2eKg: average,
		UpdatedAt:        a.now(),
	}
	if err := a.summaries.UpsertSummary(ctx, summary); err != nil {
		return 0, fmt.Errorf("upsert summary: %w", err)
	}

	slog.InfoContext(ctx, "Trailing average recomputed",
		"household_id", householdID,
		"category", category,
		"window_from", from.String(),
		"window_to", to.String(),
		"events", len(events),
		"avg_monthly_co2e_kg", average)

	return average, nil
}
