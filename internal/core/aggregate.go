package core

import (
	"fmt"
	"sort"
	"time"
)

// MonthKey identifies one calendar month.
type MonthKey struct {
	Year  int
	Month int // 1-12
}

// MonthTotal is the summed CO2e for one calendar month.
type MonthTotal struct {
	Month  MonthKey
	CO2eKg float64
}

func (k MonthKey) String() string {
	return fmt.Sprintf("%04d-%02d", k.Year, k.Month)
}

// Next returns the following calendar month.
func (k MonthKey) Next() MonthKey {
	if k.Month == 12 {
		return MonthKey{Year: k.Year + 1, Month: 1}
	}
	return MonthKey{Year: k.Year, Month: k.Month + 1}
}

// Before reports whether k is chronologically earlier than other.
func (k MonthKey) Before(other MonthKey) bool {
	if k.Year != other.Year {
		return k.Year < other.Year
	}
	return k.Month < other.Month
}

// MonthOf returns the calendar month containing a date.
func MonthOf(d Date) MonthKey {
	return MonthKey{Year: d.Year(), Month: d.Month()}
}

// MajorityMonth assigns a date range to the calendar month containing the
// greater number of its days. Ties resolve to the later month; a range that
// starts and ends in the same month uses that month directly.
func MajorityMonth(start, end Date) MonthKey {
	first := MonthOf(start)
	last := MonthOf(end)
	if first == last {
		return first
	}

	best := first
	bestDays := 0
	for m := first; !last.Before(m); m = m.Next() {
		days := daysInMonthWithin(m, start, end)
		// >= so equal counts move to the later month
		if days >= bestDays {
			best = m
			bestDays = days
		}
	}
	return best
}

// daysInMonthWithin counts the days of [start, end] (inclusive) that fall in
// calendar month m.
func daysInMonthWithin(m MonthKey, start, end Date) int {
	monthFirst := time.Date(m.Year, time.Month(m.Month), 1, 0, 0, 0, 0, time.UTC)
	monthLast := monthFirst.AddDate(0, 1, -1)

	lo := start.Time
	if monthFirst.After(lo) {
		lo = monthFirst
	}
	hi := end.Time
	if monthLast.Before(hi) {
		hi = monthLast
	}
	if hi.Before(lo) {
		return 0
	}
	return int(hi.Sub(lo).Hours()/24) + 1
}

// BucketMonth returns the month an event belongs to, applying the
// majority-month rule for range-dated events.
func BucketMonth(e Event) MonthKey {
	return MajorityMonth(e.PeriodStart, e.PeriodEnd)
}

// AggregateByMonth buckets events into calendar months and sums CO2e per
// month, returning the totals ordered chronologically ascending. Only months
// that actually contain events are emitted; use AggregateRange to zero-fill
// a visualization range.
func AggregateByMonth(events []Event) []MonthTotal {
	sums := make(map[MonthKey]float64)
	for _, e := range events {
		sums[BucketMonth(e)] += e.CO2eKg
	}

	totals := make([]MonthTotal, 0, len(sums))
	for k, v := range sums {
		totals = append(totals, MonthTotal{Month: k, CO2eKg: v})
	}
	sort.Slice(totals, func(i, j int) bool {
		return totals[i].Month.Before(totals[j].Month)
	})
	return totals
}

// MonthRange enumerates every month from from to to inclusive.
func MonthRange(from, to MonthKey) []MonthKey {
	if to.Before(from) {
		return nil
	}
	var months []MonthKey
	for m := from; !to.Before(m); m = m.Next() {
		months = append(months, m)
	}
	return months
}

// AggregateRange buckets events across a fixed month range, emitting a
// zero-valued total for every month without events. Events bucketing outside
// the range are dropped.
func AggregateRange(events []Event, from, to MonthKey) []MonthTotal {
	months := MonthRange(from, to)
	index := make(map[MonthKey]int, len(months))
	totals := make([]MonthTotal, len(months))
	for i, m := range months {
		index[m] = i
		totals[i] = MonthTotal{Month: m}
	}
	for _, e := range events {
		if i, ok := index[BucketMonth(e)]; ok {
			totals[i].CO2eKg += e.CO2eKg
		}
	}
	return totals
}

// TrailingWindow returns the fixed 12-calendar-month window ending at the
// month containing now, inclusive.
func TrailingWindow(now time.Time) (from, to MonthKey) {
	to = MonthKey{Year: now.Year(), Month: int(now.Month())}
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -11, 0)
	from = MonthKey{Year: start.Year(), Month: int(start.Month())}
	return from, to
}

// WindowBounds returns the first and last day covered by a month range, for
// store date-range queries.
func WindowBounds(from, to MonthKey) (Date, Date) {
	first := NewDate(from.Year, from.Month, 1)
	lastMonthFirst := time.Date(to.Year, time.Month(to.Month), 1, 0, 0, 0, 0, time.UTC)
	last := Date{Time: lastMonthFirst.AddDate(0, 1, -1)}
	return first, last
}
