// Package worker runs trailing-average recomputes off the event write path.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"footprint/internal/amqp"
	"footprint/internal/core"
	"footprint/internal/services"
	"footprint/internal/store"
)

// RecomputeWorker consumes recompute messages and refreshes household
// summaries. An optional exporter pushes each refreshed summary to an
// external sink (Google Sheets).
type RecomputeWorker struct {
	averager  *services.Averager
	summaries store.SummaryStore
	activity  store.ActivityLister
	exporter  store.SummaryExporter
	now       func() time.Time
}

func NewRecomputeWorker(averager *services.Averager, summaries store.SummaryStore, activity store.ActivityLister, exporter store.SummaryExporter) *RecomputeWorker {
	return &RecomputeWorker{
		averager:  averager,
		summaries: summaries,
		activity:  activity,
		exporter:  exporter,
		now:       time.Now,
	}
}

// WithClock overrides the time source. Used by tests to pin the window.
func (w *RecomputeWorker) WithClock(now func() time.Time) *RecomputeWorker {
	w.now = now
	return w
}

// HandleRecomputeMessage processes a single recompute request from AMQP.
// Re-delivery is safe: the recompute is idempotent.
func (w *RecomputeWorker) HandleRecomputeMessage(ctx context.Context, msg *amqp.RecomputeMessage) error {
	slog.InfoContext(ctx, "Processing recompute message",
		"household_id", msg.HouseholdID,
		"category", msg.Category)

	if _, err := w.averager.RecomputeAverage(ctx, msg.HouseholdID, msg.Category); err != nil {
		return fmt.Errorf("recompute average: %w", err)
	}

	w.exportSummary(ctx, msg.HouseholdID, msg.Category)
	return nil
}

// SweepActive recomputes every stream with events in the trailing window.
// Run on startup and periodically, so a message lost between an event write
// and its recompute self-heals.
func (w *RecomputeWorker) SweepActive(ctx context.Context) error {
	from, to := core.TrailingWindow(w.now())
	first, _ := core.WindowBounds(from, to)

	pairs, err := w.activity.ListActivePairs(ctx, first)
	if err != nil {
		return fmt.Errorf("list active streams: %w", err)
	}

	var failed int
	for _, p := range pairs {
		if _, err := w.averager.RecomputeAverage(ctx, p.HouseholdID, p.Category); err != nil {
			failed++
			slog.WarnContext(ctx, "Sweep recompute failed",
				"household_id", p.HouseholdID,
				"category", p.Category,
				"error", err)
			continue
		}
		w.exportSummary(ctx, p.HouseholdID, p.Category)
	}

	slog.InfoContext(ctx, "Sweep completed",
		"streams", len(pairs),
		"failed", failed)

	if failed > 0 {
		return fmt.Errorf("sweep: %d of %d recomputes failed", failed, len(pairs))
	}
	return nil
}

// exportSummary ships the stored summary to the external sink. Export
// failures never fail the recompute; the next refresh re-exports.
func (w *RecomputeWorker) exportSummary(ctx context.Context, householdID int64, category core.Category) {
	if w.exporter == nil {
		return
	}
	summary, err := w.summaries.GetSummary(ctx, householdID, category)
	if errors.Is(err, core.ErrNotFound) {
		return
	}
	if err != nil {
		slog.WarnContext(ctx, "Failed to load summary for export",
			"household_id", householdID,
			"category", category,
			"error", err)
		return
	}
	if err := w.exporter.ExportSummary(ctx, summary); err != nil {
		slog.WarnContext(ctx, "Failed to export summary",
			"household_id", householdID,
			"category", category,
			"error", err)
	}
}
