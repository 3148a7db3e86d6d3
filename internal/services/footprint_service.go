package services

import (
	"context"
	"fmt"
	"log/slog"

	"footprint/internal/core"
	"footprint/internal/store"
)

// RecomputePublisher hands the trailing-average recompute off to a queue.
// Nil-safe at call sites: without a publisher the service recomputes inline.
type RecomputePublisher interface {
	PublishRecompute(ctx context.Context, householdID int64, category core.Category) error
}

// EventInput is the raw form payload for creating or editing an event,
// before unit conversion and CO2e calculation.
type EventInput struct {
	HouseholdID int64
	Category    core.Category
	PeriodStart core.Date
	PeriodEnd   core.Date // zero value means single-day event at PeriodStart

	Quantity *float64
	Unit     core.Unit

	// Gasoline-style derivation when Quantity is absent.
	DollarsSpent *float64
	PricePerUnit *float64

	CarbonIntensity *float64

	// Air travel only.
	Travelers    int
	DirectEntry  bool
	DirectCO2eKg float64

	Description string
}

// FootprintService orchestrates the event lifecycle: normalize raw input,
// compute CO2e, persist, then trigger the trailing-average recompute. The
// recompute is eventually consistent: a failure after a committed event write
// is reported as a non-fatal warning and self-heals on the next write.
type FootprintService struct {
	events      store.EventStore
	factors     core.FactorSource
	intensities core.IntensityTable
	averager    *Averager
	publisher   RecomputePublisher
}

func NewFootprintService(events store.EventStore, factors core.FactorSource, intensities core.IntensityTable, averager *Averager, publisher RecomputePublisher) *FootprintService {
	return &FootprintService{
		events:      events,
		factors:     factors,
		intensities: intensities,
		averager:    averager,
		publisher:   publisher,
	}
}

// CreateEvent converts, calculates and stores a new consumption event, then
// triggers the trailing-average recompute for its household and category.
func (s *FootprintService) CreateEvent(ctx context.Context, in EventInput) (core.Event, error) {
	event, err := s.buildEvent(in)
	if err != nil {
		return core.Event{}, err
	}

	id, err := s.events.InsertEvent(ctx, event)
	if err != nil {
		return core.Event{}, fmt.Errorf("insert event: %w", err)
	}
	event.ID = id

	slog.InfoContext(ctx, "Event created",
		"id", event.ID,
		"household_id", event.HouseholdID,
		"category", event.Category,
		"co2e_kg", event.CO2eKg)

	s.triggerRecompute(ctx, event.HouseholdID, event.Category)
	return event, nil
}

// UpdateEvent replaces an existing event's raw inputs and recomputes CO2eKg
// before the row is written, so the stored value is never stale relative to
// quantity, unit or intensity.
func (s *FootprintService) UpdateEvent(ctx context.Context, id int64, in EventInput) (core.Event, error) {
	existing, err := s.events.GetEvent(ctx, id)
	if err != nil {
		return core.Event{}, fmt.Errorf("get event: %w", err)
	}
	if in.HouseholdID == 0 {
		in.HouseholdID = existing.HouseholdID
	}
	if in.HouseholdID != existing.HouseholdID {
		return core.Event{}, core.ErrInvalidHousehold
	}

	event, err := s.buildEvent(in)
	if err != nil {
		return core.Event{}, err
	}
	event.ID = id

	if err := s.events.UpdateEvent(ctx, event); err != nil {
		return core.Event{}, fmt.Errorf("update event: %w", err)
	}

	slog.InfoContext(ctx, "Event updated",
		"id", event.ID,
		"household_id", event.HouseholdID,
		"category", event.Category,
		"co2e_kg", event.CO2eKg)

	s.triggerRecompute(ctx, event.HouseholdID, event.Category)
	// A moved event also affects the category it left.
	if existing.Category != event.Category {
		s.triggerRecompute(ctx, existing.HouseholdID, existing.Category)
	}
	return event, nil
}

// DeleteEvent removes an event and triggers the recompute for the stream it
// belonged to.
func (s *FootprintService) DeleteEvent(ctx context.Context, id int64) error {
	existing, err := s.events.GetEvent(ctx, id)
	if err != nil {
		return fmt.Errorf("get event: %w", err)
	}
	if err := s.events.DeleteEvent(ctx, id); err != nil {
		return fmt.Errorf("delete event: %w", err)
	}

	slog.InfoContext(ctx, "Event deleted",
		"id", id,
		"household_id", existing.HouseholdID,
		"category", existing.Category)

	s.triggerRecompute(ctx, existing.HouseholdID, existing.Category)
	return nil
}

// MonthSeries returns month-bucketed CO2e totals for a household category
// across [from, to], including zero-valued months.
func (s *FootprintService) MonthSeries(ctx context.Context, householdID int64, category core.Category, from, to core.MonthKey) ([]core.MonthTotal, error) {
	if to.Before(from) {
		return nil, core.ErrInvalidInput
	}
	first, last := core.WindowBounds(from, to)
	events, err := s.events.ListEvents(ctx, householdID, category, first, last)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return core.AggregateRange(events, from, to), nil
}

// buildEvent normalizes raw input into a stored event: resolve the raw
// quantity (deriving from cost when absent), convert to the canonical unit
// and calculate CO2e.
func (s *FootprintService) buildEvent(in EventInput) (core.Event, error) {
	if !in.Category.Valid() {
		return core.Event{}, core.ErrUnknownCategory
	}

	start := in.PeriodStart
	end := in.PeriodEnd
	if end.IsZero() {
		end = start
	}
	if !in.Category.RangeDated() && !end.Equal(start.Time) {
		return core.Event{}, core.ErrInvalidPeriod
	}

	unit := in.Unit
	if unit == "" {
		canonical, err := core.CanonicalUnit(in.Category)
		if err != nil {
			return core.Event{}, err
		}
		unit = canonical
	}

	var quantity float64
	switch {
	case in.Quantity != nil:
		quantity = *in.Quantity
	case in.DollarsSpent != nil && in.PricePerUnit != nil:
		derived, err := core.DeriveFromCost(*in.DollarsSpent, *in.PricePerUnit)
		if err != nil {
			return core.Event{}, err
		}
		quantity = derived
	case in.DirectEntry:
		// direct entry needs no quantity
	default:
		return core.Event{}, core.ErrInvalidInput
	}

	canonicalQty, err := core.Convert(s.factors, in.Category, quantity, unit)
	if err != nil {
		return core.Event{}, err
	}

	co2e, err := core.Calculate(s.intensities, core.CalcInput{
		Category:     in.Category,
		Quantity:     canonicalQty,
		Intensity:    in.CarbonIntensity,
		Travelers:    in.Travelers,
		DirectEntry:  in.DirectEntry,
		DirectCO2eKg: in.DirectCO2eKg,
	})
	if err != nil {
		return core.Event{}, err
	}

	event := core.Event{
		HouseholdID:     in.HouseholdID,
		Category:        in.Category,
		PeriodStart:     start,
		PeriodEnd:       end,
		Quantity:        quantity,
		Unit:            unit,
		CarbonIntensity: in.CarbonIntensity,
		CO2eKg:          co2e,
		Travelers:       in.Travelers,
		DirectEntry:     in.DirectEntry,
		DirectCO2eKg:    in.DirectCO2eKg,
		Description:     in.Description,
	}
	if err := event.Validate(); err != nil {
		return core.Event{}, err
	}
	return event, nil
}

// triggerRecompute hands the recompute to the queue when a publisher is
// wired, otherwise runs it inline. Either way a failure here is non-fatal:
// the event write is already committed and is not rolled back, and the stale
// aggregate heals on the next mutation.
func (s *FootprintService) triggerRecompute(ctx context.Context, householdID int64, category core.Category) {
	if s.publisher != nil {
		if err := s.publisher.PublishRecompute(ctx, householdID, category); err != nil {
			slog.WarnContext(ctx, "Failed to publish recompute message",
				"household_id", householdID,
				"category", category,
				"error", err)
		}
		return
	}

	if s.averager == nil {
		return
	}
	if _, err := s.averager.RecomputeAverage(ctx, householdID, category); err != nil {
		slog.WarnContext(ctx, "Trailing average recompute failed, aggregate is stale until next write",
			"household_id", householdID,
			"category", category,
			"error", err)
	}
}
