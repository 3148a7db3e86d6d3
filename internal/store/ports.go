package store

import (
	"context"

	"footprint/internal/core"
)

// Ports for outbound adapters. Implementations report a missing row with
// core.ErrNotFound so callers can tell "no rows" from real failures.
type (
	EventStore interface {
		InsertEvent(ctx context.Context, e core.Event) (int64, error)
		UpdateEvent(ctx context.Context, e core.Event) error
		DeleteEvent(ctx context.Context, id int64) error
		GetEvent(ctx context.Context, id int64) (core.Event, error)
		// ListEvents returns events for a household and category whose
		// period overlaps [from, to], ordered by period start.
		ListEvents(ctx context.Context, householdID int64, category core.Category, from, to core.Date) ([]core.Event, error)
	}

	SummaryStore interface {
		GetSummary(ctx context.Context, householdID int64, category core.Category) (core.HouseholdSummary, error)
		// UpsertSummary updates the summary row if present, inserts it
		// otherwise.
		UpsertSummary(ctx context.Context, s core.HouseholdSummary) error
	}

	// ActivityLister reports which household/category pairs had events
	// recently, for the worker's self-healing sweep.
	ActivityLister interface {
		ListActivePairs(ctx context.Context, since core.Date) ([]HouseholdCategory, error)
	}

	// SummaryExporter pushes a refreshed summary to an external sink.
	SummaryExporter interface {
		ExportSummary(ctx context.Context, s core.HouseholdSummary) error
	}
)

// HouseholdCategory identifies one household consumption stream.
type HouseholdCategory struct {
	HouseholdID int64
	Category    core.Category
}
