// Package storage persists events, conversion factors and household
// summaries in SQLite.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"footprint/internal/core"
	"footprint/internal/store"

	_ "modernc.org/sqlite"
)

const dateLayout = "2006-01-02"

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// InsertEvent implements store.EventStore.
func (r *SQLiteRepository) InsertEvent(ctx context.Context, e core.Event) (int64, error) {
	if err := e.Validate(); err != nil {
		return 0, err
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO events (
			household_id, category, period_start, period_end,
			quantity, unit, carbon_intensity, co2e_kg,
			travelers, direct_entry, direct_co2e_kg, description
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.HouseholdID, string(e.Category),
		e.PeriodStart.Format(dateLayout), e.PeriodEnd.Format(dateLayout),
		e.Quantity, string(e.Unit), nullableFloat(e.CarbonIntensity), e.CO2eKg,
		e.Travelers, boolToInt(e.DirectEntry), e.DirectCO2eKg, e.Description,
	)
	if err != nil {
		return 0, fmt.Errorf("insert event: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}

	slog.InfoContext(ctx, "Event saved to SQLite",
		"id", id,
		"household_id", e.HouseholdID,
		"category", e.Category,
		"co2e_kg", e.CO2eKg)

	return id, nil
}

// UpdateEvent implements store.EventStore.
func (r *SQLiteRepository) UpdateEvent(ctx context.Context, e core.Event) error {
	if err := e.Validate(); err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE events SET
			household_id = ?, category = ?, period_start = ?, period_end = ?,
			quantity = ?, unit = ?, carbon_intensity = ?, co2e_kg = ?,
			travelers = ?, direct_entry = ?, direct_co2e_kg = ?, description = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		e.HouseholdID, string(e.Category),
		e.PeriodStart.Format(dateLayout), e.PeriodEnd.Format(dateLayout),
		e.Quantity, string(e.Unit), nullableFloat(e.CarbonIntensity), e.CO2eKg,
		e.Travelers, boolToInt(e.DirectEntry), e.DirectCO2eKg, e.Description,
		e.ID,
	)
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	return requireRow(res)
}

// DeleteEvent implements store.EventStore.
func (r *SQLiteRepository) DeleteEvent(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	return requireRow(res)
}

// GetEvent implements store.EventStore.
func (r *SQLiteRepository) GetEvent(ctx context.Context, id int64) (core.Event, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, household_id, category, period_start, period_end,
		       quantity, unit, carbon_intensity, co2e_kg,
		       travelers, direct_entry, direct_co2e_kg, description
		FROM events WHERE id = ?`, id)
	e, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Event{}, core.ErrNotFound
	}
	if err != nil {
		return core.Event{}, fmt.Errorf("get event: %w", err)
	}
	return e, nil
}

// ListEvents implements store.EventStore. The overlap condition keeps
// billing periods that merely touch the range, so the majority-month rule
// decides their bucket downstream.
func (r *SQLiteRepository) ListEvents(ctx context.Context, householdID int64, category core.Category, from, to core.Date) ([]core.Event, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, household_id, category, period_start, period_end,
		       quantity, unit, carbon_intensity, co2e_kg,
		       travelers, direct_entry, direct_co2e_kg, description
		FROM events
		WHERE household_id = ? AND category = ?
		  AND period_end >= ? AND period_start <= ?
		ORDER BY period_start, id`,
		householdID, string(category),
		from.Format(dateLayout), to.Format(dateLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []core.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

// GetSummary implements store.SummaryStore.
func (r *SQLiteRepository) GetSummary(ctx context.Context, householdID int64, category core.Category) (core.HouseholdSummary, error) {
	var s core.HouseholdSummary
	var cat string
	err := r.db.QueryRowContext(ctx, `
		SELECT household_id, category, avg_monthly_co2e_kg, updated_at
		FROM household_summary
		WHERE household_id = ? AND category = ?`,
		householdID, string(category),
	).Scan(&s.HouseholdID, &cat, &s.AvgMonthlyCO2eKg, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.HouseholdSummary{}, core.ErrNotFound
	}
	if err != nil {
		return core.HouseholdSummary{}, fmt.Errorf("get summary: %w", err)
	}
	s.Category = core.Category(cat)
	return s, nil
}

// UpsertSummary implements store.SummaryStore.
func (r *SQLiteRepository) UpsertSummary(ctx context.Context, s core.HouseholdSummary) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO household_summary (household_id, category, avg_monthly_co2e_kg, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (household_id, category)
		DO UPDATE SET avg_monthly_co2e_kg = excluded.avg_monthly_co2e_kg,
		              updated_at = excluded.updated_at`,
		s.HouseholdID, string(s.Category), s.AvgMonthlyCO2eKg, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert summary: %w", err)
	}

	slog.InfoContext(ctx, "Household summary upserted",
		"household_id", s.HouseholdID,
		"category", s.Category,
		"avg_monthly_co2e_kg", s.AvgMonthlyCO2eKg)

	return nil
}

// ListActivePairs implements store.ActivityLister.
func (r *SQLiteRepository) ListActivePairs(ctx context.Context, since core.Date) ([]store.HouseholdCategory, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT household_id, category
		FROM events
		WHERE period_end >= ?
		ORDER BY household_id, category`,
		since.Format(dateLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("list active pairs: %w", err)
	}
	defer rows.Close()

	var pairs []store.HouseholdCategory
	for rows.Next() {
		var p store.HouseholdCategory
		var cat string
		if err := rows.Scan(&p.HouseholdID, &cat); err != nil {
			return nil, fmt.Errorf("scan pair: %w", err)
		}
		p.Category = core.Category(cat)
		pairs = append(pairs, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pairs: %w", err)
	}
	return pairs, nil
}

// Factor implements core.FactorSource, preferring stored rows and falling
// back to the compiled-in defaults for pairs the table does not carry.
func (r *SQLiteRepository) Factor(category core.Category, from, to core.Unit) (float64, error) {
	var factor float64
	err := r.db.QueryRow(`
		SELECT factor FROM conversion_factors
		WHERE category = ? AND from_unit = ? AND to_unit = ?`,
		string(category), string(from), string(to),
	).Scan(&factor)
	if errors.Is(err, sql.ErrNoRows) {
		return core.DefaultFactors().Factor(category, from, to)
	}
	if err != nil {
		return 0, fmt.Errorf("lookup conversion factor: %w", err)
	}
	return factor, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (core.Event, error) {
	var (
		e            core.Event
		category     string
		unit         string
		startStr     string
		endStr       string
		intensity    sql.NullFloat64
		directEntry  int
	)
	err := row.Scan(
		&e.ID, &e.HouseholdID, &category, &startStr, &endStr,
		&e.Quantity, &unit, &intensity, &e.CO2eKg,
		&e.Travelers, &directEntry, &e.DirectCO2eKg, &e.Description,
	)
	if err != nil {
		return core.Event{}, err
	}
	e.Category = core.Category(category)
	e.Unit = core.Unit(unit)
	e.DirectEntry = directEntry != 0
	if intensity.Valid {
		v := intensity.Float64
		e.CarbonIntensity = &v
	}
	start, err := time.Parse(dateLayout, startStr)
	if err != nil {
		return core.Event{}, fmt.Errorf("parse period_start %q: %w", startStr, err)
	}
	end, err := time.Parse(dateLayout, endStr)
	if err != nil {
		return core.Event{}, fmt.Errorf("parse period_end %q: %w", endStr, err)
	}
	e.PeriodStart = core.Date{Time: start}
	e.PeriodEnd = core.Date{Time: end}
	return e, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func nullableFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

var _ interface {
	store.EventStore
	store.SummaryStore
	store.ActivityLister
	core.FactorSource
} = (*SQLiteRepository)(nil)
