// Package analytics rolls stored transactions up into the KPIs shown on the
// dashboard, fed to the weekly report prompt and handed to the chat model.
package analytics

import (
	"errors"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/tavernbuddy/tavernbuddy-backend/pkg/db/models"
)

// ErrNoData is returned when the primary window holds no transactions.
var ErrNoData = errors.New("analytics: no transactions in window")

const unknownStaff = "Unknown"

// Window is a half-open range [Start, End) of local calendar dates.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// DateWindow builds a window covering the calendar days from first through
// last inclusive.
func DateWindow(first, last time.Time) Window {
	return Window{Start: dateOf(first), End: dateOf(last).AddDate(0, 0, 1)}
}

// Days is the number of calendar days the window spans.
func (w Window) Days() int {
	return int(math.Round(w.End.Sub(w.Start).Hours() / 24))
}

// LastDay is the final date inside the window.
func (w Window) LastDay() time.Time {
	return w.End.AddDate(0, 0, -1)
}

// Options caps the ranked lists. Zero means unlimited.
type Options struct {
	TopItems int
	TopStaff int
}

type ItemStat struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Revenue  int64  `json:"revenue"`
	Quantity int    `json:"quantity"`
}

type StaffStat struct {
	Name           string `json:"name"`
	Transactions   int    `json:"transactions"`
	TotalRevenue   int64  `json:"total_revenue"`
	AvgTransaction int64  `json:"avg_transaction"`

	avg float64
}

type DayRevenue struct {
	Date         time.Time `json:"date"`
	Label        string    `json:"label"`
	Revenue      int64     `json:"revenue"`
	Transactions int       `json:"transactions"`
}

type HourRevenue struct {
	Hour         int   `json:"hour"`
	Revenue      int64 `json:"revenue"`
	Transactions int   `json:"transactions"`
}

// Metrics is one rollup. Money fields are cents; averages are rounded to the
// nearest cent.
type Metrics struct {
	Window                   Window        `json:"window"`
	Revenue                  int64         `json:"revenue"`
	// RevenueChange is the percent change against comparison revenue rescaled
	// to the primary window's length: a 28-day comparison against a 7-day
	// window counts a quarter of its revenue. Equal windows are not rescaled.
	RevenueChange            float64       `json:"revenue_change"`
	Transactions             int           `json:"transactions"`
	AvgTransaction           int64         `json:"avg_transaction"`
	// ComparisonAvgTransaction and AvgTransactionChange are per-transaction
	// figures, so they use the comparison window unscaled.
	ComparisonAvgTransaction int64         `json:"comparison_avg_transaction"`
	AvgTransactionChange     float64       `json:"avg_transaction_change"`
	TopItems                 []ItemStat    `json:"top_items"`
	TopStaff                 []StaffStat   `json:"top_staff"`
	RevenueByDay             []DayRevenue  `json:"revenue_by_day"`
	RevenueByHour            []HourRevenue `json:"revenue_by_hour"`
	Sample                   bool          `json:"sample"`
}

// Totals summarizes the comparison window.
type Totals struct {
	Revenue int64
	Count   int64
}

// Dataset is everything Compute needs. Transactions must already be ordered;
// that order decides ties in the ranked lists.
type Dataset struct {
	Window       Window
	Comparison   Window
	Transactions []models.Transaction
	Items        []models.TransactionItem
	StaffNames   map[uuid.UUID]string
	Previous     Totals
}

// Compute aggregates a dataset. It returns ErrNoData when there are no
// transactions in the primary window.
func Compute(ds Dataset, opts Options) (Metrics, error) {
	if len(ds.Transactions) == 0 {
		return Metrics{}, ErrNoData
	}

	m := Metrics{Window: ds.Window, Transactions: len(ds.Transactions)}
	for _, t := range ds.Transactions {
		m.Revenue += t.TotalAmount
	}
	avg := float64(m.Revenue) / float64(m.Transactions)
	m.AvgTransaction = roundCents(avg)

	prevRevenue := float64(ds.Previous.Revenue)
	if d, p := ds.Window.Days(), ds.Comparison.Days(); d > 0 && p > 0 && d != p {
		prevRevenue = prevRevenue * float64(d) / float64(p)
	}
	m.RevenueChange = PercentChange(float64(m.Revenue), prevRevenue)

	var prevAvg float64
	if ds.Previous.Count > 0 {
		prevAvg = float64(ds.Previous.Revenue) / float64(ds.Previous.Count)
	}
	m.ComparisonAvgTransaction = roundCents(prevAvg)
	m.AvgTransactionChange = PercentChange(avg, prevAvg)

	m.TopItems = topItems(ds.Transactions, ds.Items, opts.TopItems)
	m.TopStaff = topStaff(ds.Transactions, ds.StaffNames, opts.TopStaff)
	m.RevenueByDay = revenueByDay(ds.Transactions)
	m.RevenueByHour = revenueByHour(ds.Transactions)
	return m, nil
}

// PercentChange is (current-previous)/previous*100, with 0 when both are zero
// and +100 when only previous is zero.
func PercentChange(current, previous float64) float64 {
	switch {
	case previous == 0 && current == 0:
		return 0
	case previous == 0:
		return 100
	}
	return (current - previous) / previous * 100
}

func topItems(txns []models.Transaction, items []models.TransactionItem, limit int) []ItemStat {
	byTxn := make(map[uuid.UUID][]models.TransactionItem, len(txns))
	for _, it := range items {
		byTxn[it.TransactionID] = append(byTxn[it.TransactionID], it)
	}

	index := map[string]int{}
	out := []ItemStat{}
	for _, t := range txns {
		for _, it := range byTxn[t.ID] {
			i, ok := index[it.ItemName]
			if !ok {
				i = len(out)
				index[it.ItemName] = i
				out = append(out, ItemStat{Name: it.ItemName, Category: it.Category})
			}
			out[i].Revenue += it.GrossAmount
			out[i].Quantity += it.Quantity
		}
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Revenue > out[b].Revenue })
	return capped(out, limit)
}

func topStaff(txns []models.Transaction, names map[uuid.UUID]string, limit int) []StaffStat {
	index := map[uuid.UUID]int{}
	out := []StaffStat{}
	for _, t := range txns {
		if t.StaffID == nil {
			continue
		}
		i, ok := index[*t.StaffID]
		if !ok {
			name := names[*t.StaffID]
			if name == "" {
				name = unknownStaff
			}
			i = len(out)
			index[*t.StaffID] = i
			out = append(out, StaffStat{Name: name})
		}
		out[i].Transactions++
		out[i].TotalRevenue += t.TotalAmount
	}
	for i := range out {
		out[i].avg = float64(out[i].TotalRevenue) / float64(out[i].Transactions)
		out[i].AvgTransaction = roundCents(out[i].avg)
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].avg > out[b].avg })
	return capped(out, limit)
}

func revenueByDay(txns []models.Transaction) []DayRevenue {
	index := map[string]int{}
	out := []DayRevenue{}
	for _, t := range txns {
		day := dateOf(t.Date)
		key := day.Format(time.DateOnly)
		i, ok := index[key]
		if !ok {
			i = len(out)
			index[key] = i
			out = append(out, DayRevenue{Date: day, Label: day.Format("Mon Jan 2")})
		}
		out[i].Revenue += t.TotalAmount
		out[i].Transactions++
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Date.Before(out[b].Date) })
	return out
}

func revenueByHour(txns []models.Transaction) []HourRevenue {
	index := map[int]int{}
	out := []HourRevenue{}
	for _, t := range txns {
		i, ok := index[t.Hour]
		if !ok {
			i = len(out)
			index[t.Hour] = i
			out = append(out, HourRevenue{Hour: t.Hour})
		}
		out[i].Revenue += t.TotalAmount
		out[i].Transactions++
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Hour < out[b].Hour })
	return out
}

func capped[T any](s []T, limit int) []T {
	if limit > 0 && len(s) > limit {
		return s[:limit]
	}
	return s
}

func roundCents(v float64) int64 {
	return int64(math.Round(v))
}

// dateOf drops the clock, keeping the calendar date as UTC midnight.
func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
