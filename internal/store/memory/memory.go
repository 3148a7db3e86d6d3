// Package memory provides an in-memory store backend, used as the default
// when no SQLite path is configured and by package tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"footprint/internal/core"
	"footprint/internal/store"
)

type Store struct {
	mu        sync.Mutex
	nextID    int64
	events    map[int64]core.Event
	summaries map[store.HouseholdCategory]core.HouseholdSummary
	factors   core.FactorTable
}

func New() *Store {
	return &Store{
		nextID:    1,
		events:    make(map[int64]core.Event),
		summaries: make(map[store.HouseholdCategory]core.HouseholdSummary),
		factors:   core.DefaultFactors(),
	}
}

func (s *Store) InsertEvent(_ context.Context, e core.Event) (int64, error) {
	if err := e.Validate(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e.ID = s.nextID
	s.nextID++
	s.events[e.ID] = e
	return e.ID, nil
}

func (s *Store) UpdateEvent(_ context.Context, e core.Event) error {
	if err := e.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[e.ID]; !ok {
		return core.ErrNotFound
	}
	s.events[e.ID] = e
	return nil
}

func (s *Store) DeleteEvent(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[id]; !ok {
		return core.ErrNotFound
	}
	delete(s.events, id)
	return nil
}

func (s *Store) GetEvent(_ context.Context, id int64) (core.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[id]
	if !ok {
		return core.Event{}, core.ErrNotFound
	}
	return e, nil
}

func (s *Store) ListEvents(_ context.Context, householdID int64, category core.Category, from, to core.Date) ([]core.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Event
	for _, e := range s.events {
		if e.HouseholdID != householdID || e.Category != category {
			continue
		}
		// period overlaps [from, to]
		if e.PeriodEnd.Before(from.Time) || e.PeriodStart.After(to.Time) {
			continue
		}
		out = append(out, e)
	}
	sortByPeriodStart(out)
	return out, nil
}

func (s *Store) GetSummary(_ context.Context, householdID int64, category core.Category) (core.HouseholdSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sum, ok := s.summaries[store.HouseholdCategory{HouseholdID: householdID, Category: category}]
	if !ok {
		return core.HouseholdSummary{}, core.ErrNotFound
	}
	return sum, nil
}

func (s *Store) UpsertSummary(_ context.Context, sum core.HouseholdSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summaries[store.HouseholdCategory{HouseholdID: sum.HouseholdID, Category: sum.Category}] = sum
	return nil
}

func (s *Store) ListActivePairs(_ context.Context, since core.Date) ([]store.HouseholdCategory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := map[store.HouseholdCategory]struct{}{}
	var out []store.HouseholdCategory
	for _, e := range s.events {
		if e.PeriodEnd.Before(since.Time) {
			continue
		}
		k := store.HouseholdCategory{HouseholdID: e.HouseholdID, Category: e.Category}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out, nil
}

func (s *Store) Factor(category core.Category, from, to core.Unit) (float64, error) {
	return s.factors.Factor(category, from, to)
}

func sortByPeriodStart(events []core.Event) {
	sort.Slice(events, func(i, j int) bool {
		if !events[i].PeriodStart.Equal(events[j].PeriodStart.Time) {
			return events[i].PeriodStart.Before(events[j].PeriodStart.Time)
		}
		return events[i].ID < events[j].ID
	})
}

var _ interface {
	store.EventStore
	store.SummaryStore
	store.ActivityLister
	core.FactorSource
} = (*Store)(nil)
