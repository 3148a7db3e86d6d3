package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"footprint/internal/core"
	"footprint/internal/receipt"
	"footprint/internal/services"
)

const dateLayout = "2006-01-02"
const monthLayout = "2006-01"

// eventRequest is the JSON payload for creating or updating an event.
// Optional numeric fields are pointers so absent and zero stay distinct.
type eventRequest struct {
	HouseholdID     int64    `json:"household_id"`
	Category        string   `json:"category"`
	PeriodStart     string   `json:"period_start"`
	PeriodEnd       string   `json:"period_end,omitempty"`
	Quantity        *float64 `json:"quantity,omitempty"`
	Unit            string   `json:"unit,omitempty"`
	DollarsSpent    *float64 `json:"dollars_spent,omitempty"`
	PricePerUnit    *float64 `json:"price_per_unit,omitempty"`
	CarbonIntensity *float64 `json:"carbon_intensity,omitempty"`
	Travelers       int      `json:"travelers,omitempty"`
	DirectEntry     bool     `json:"direct_entry,omitempty"`
	DirectCO2eKg    float64  `json:"direct_co2e_kg,omitempty"`
	Description     string   `json:"description,omitempty"`
}

type eventResponse struct {
	ID              int64    `json:"id"`
	HouseholdID     int64    `json:"household_id"`
	Category        string   `json:"category"`
	PeriodStart     string   `json:"period_start"`
	PeriodEnd       string   `json:"period_end"`
	Quantity        float64  `json:"quantity"`
	Unit            string   `json:"unit"`
	CarbonIntensity *float64 `json:"carbon_intensity,omitempty"`
	CO2eKg          float64  `json:"co2e_kg"`
	Travelers       int      `json:"travelers,omitempty"`
	DirectEntry     bool     `json:"direct_entry,omitempty"`
	Description     string   `json:"description,omitempty"`
}

type monthTotalResponse struct {
	Month  string  `json:"month"`
	CO2eKg float64 `json:"co2e_kg"`
}

type summaryResponse struct {
	HouseholdID      int64   `json:"household_id"`
	Category         string  `json:"category"`
	AvgMonthlyCO2eKg float64 `json:"avg_monthly_co2e_kg"`
	UpdatedAt        string  `json:"updated_at"`
}

type receiptRequest struct {
	Text string `json:"text"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (r eventRequest) toInput() (services.EventInput, error) {
	start, err := parseDate(r.PeriodStart)
	if err != nil {
		return services.EventInput{}, fmt.Errorf("period_start: %w", core.ErrInvalidInput)
	}

	var end core.Date
	if r.PeriodEnd != "" {
		end, err = parseDate(r.PeriodEnd)
		if err != nil {
			return services.EventInput{}, fmt.Errorf("period_end: %w", core.ErrInvalidInput)
		}
	}

	return services.EventInput{
		HouseholdID:     r.HouseholdID,
		Category:        core.Category(r.Category),
		PeriodStart:     start,
		PeriodEnd:       end,
		Quantity:        r.Quantity,
		Unit:            core.Unit(r.Unit),
		DollarsSpent:    r.DollarsSpent,
		PricePerUnit:    r.PricePerUnit,
		CarbonIntensity: r.CarbonIntensity,
		Travelers:       r.Travelers,
		DirectEntry:     r.DirectEntry,
		DirectCO2eKg:    r.DirectCO2eKg,
		Description:     r.Description,
	}, nil
}

func toEventResponse(e core.Event) eventResponse {
	return eventResponse{
		ID:              e.ID,
		HouseholdID:     e.HouseholdID,
		Category:        string(e.Category),
		PeriodStart:     e.PeriodStart.Format(dateLayout),
		PeriodEnd:       e.PeriodEnd.Format(dateLayout),
		Quantity:        e.Quantity,
		Unit:            string(e.Unit),
		CarbonIntensity: e.CarbonIntensity,
		CO2eKg:          e.CO2eKg,
		Travelers:       e.Travelers,
		DirectEntry:     e.DirectEntry,
		Description:     e.Description,
	}
}

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	in, err := req.toInput()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	event, err := s.svc.CreateEvent(r.Context(), in)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.seriesCache.Purge()
	writeJSON(w, http.StatusCreated, toEventResponse(event))
}

func (s *Server) handleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid event id")
		return
	}

	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	in, err := req.toInput()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	event, err := s.svc.UpdateEvent(r.Context(), id, in)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.seriesCache.Purge()
	writeJSON(w, http.StatusOK, toEventResponse(event))
}

func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid event id")
		return
	}

	if err := s.svc.DeleteEvent(r.Context(), id); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.seriesCache.Purge()
	w.WriteHeader(http.StatusNoContent)
}

// handleMonthSeries returns month-bucketed totals for one household category.
// from and to are YYYY-MM query params; omitted they default to the trailing
// 12-month window.
func (s *Server) handleMonthSeries(w http.ResponseWriter, r *http.Request) {
	householdID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid household id")
		return
	}

	category := core.Category(r.URL.Query().Get("category"))
	if !category.Valid() {
		writeError(w, http.StatusBadRequest, "unknown category")
		return
	}

	from, to := core.TrailingWindow(time.Now())
	if v := r.URL.Query().Get("from"); v != "" {
		if from, err = parseMonth(v); err != nil {
			writeError(w, http.StatusBadRequest, "from must be YYYY-MM")
			return
		}
	}
	if v := r.URL.Query().Get("to"); v != "" {
		if to, err = parseMonth(v); err != nil {
			writeError(w, http.StatusBadRequest, "to must be YYYY-MM")
			return
		}
	}
	if to.Before(from) {
		writeError(w, http.StatusBadRequest, "to is before from")
		return
	}

	cacheKey := fmt.Sprintf("%d|%s|%s|%s", householdID, category, from, to)
	if cached, ok := s.seriesCache.Get(cacheKey); ok {
		writeSeries(w, cached)
		return
	}

	totals, err := s.svc.MonthSeries(r.Context(), householdID, category, from, to)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.seriesCache.Set(cacheKey, totals)
	writeSeries(w, totals)
}

// handleSummary returns the stored trailing-12-month averages. A category
// query param narrows to one stream; without it every category with a stored
// summary is returned.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	householdID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid household id")
		return
	}

	categories := []core.Category{core.Electricity, core.NaturalGas, core.Gasoline, core.AirTravel, core.Food}
	if v := r.URL.Query().Get("category"); v != "" {
		c := core.Category(v)
		if !c.Valid() {
			writeError(w, http.StatusBadRequest, "unknown category")
			return
		}
		categories = []core.Category{c}
	}

	out := make([]summaryResponse, 0, len(categories))
	for _, c := range categories {
		summary, err := s.summaries.GetSummary(r.Context(), householdID, c)
		if errors.Is(err, core.ErrNotFound) {
			continue
		}
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		out = append(out, summaryResponse{
			HouseholdID:      summary.HouseholdID,
			Category:         string(summary.Category),
			AvgMonthlyCO2eKg: summary.AvgMonthlyCO2eKg,
			UpdatedAt:        summary.UpdatedAt.UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleParseReceipt(w http.ResponseWriter, r *http.Request) {
	var req receiptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Text == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	items := receipt.Parse(req.Text)
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func writeSeries(w http.ResponseWriter, totals []core.MonthTotal) {
	out := make([]monthTotalResponse, 0, len(totals))
	for _, t := range totals {
		out = append(out, monthTotalResponse{Month: t.Month.String(), CO2eKg: t.CO2eKg})
	}
	writeJSON(w, http.StatusOK, out)
}

// writeServiceError maps domain errors onto HTTP status codes.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, core.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, core.ErrInvalidInput),
		errors.Is(err, core.ErrUnknownCategory),
		errors.Is(err, core.ErrUnsupportedUnit),
		errors.Is(err, core.ErrInvalidPeriod),
		errors.Is(err, core.ErrInvalidHousehold):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		slog.ErrorContext(r.Context(), "Request failed", "method", r.Method, "url", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func parseDate(s string) (core.Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return core.Date{}, err
	}
	return core.Date{Time: t}, nil
}

func parseMonth(s string) (core.MonthKey, error) {
	t, err := time.Parse(monthLayout, s)
	if err != nil {
		return core.MonthKey{}, err
	}
	return core.MonthKey{Year: t.Year(), Month: int(t.Month())}, nil
}
