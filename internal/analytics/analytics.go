// Package analytics computes aggregate rollups over an already-filtered,
// in-memory set of expenses. Keeping the aggregation a pure step over fetched
// rows keeps it testable without a live database; output ordering is fully
// specified so repeated invocations over the same set are byte-identical.
package analytics

import (
	"math"
	"sort"

	"expensio/internal/core"
)

const (
	// MonthlyWindow bounds the monthly rollup to the most recent months present.
	MonthlyWindow = 12

	// TopExpenseCount bounds the highest-amount expense list.
	TopExpenseCount = 10
)

type CategoryRollup struct {
	Category    core.Category
	Count       int
	TotalAmount core.Money
	// Percentage of the overall total amount, rounded to two decimals.
	// Zero when the overall total is zero.
	Percentage float64
}

type StatusRollup struct {
	Status      core.Status
	Count       int
	TotalAmount core.Money
}

type MonthRollup struct {
	Month       string // "YYYY-MM", UTC
	Count       int
	TotalAmount core.Money
}

// Summary is the full analytics envelope over one filtered expense set.
type Summary struct {
	TotalExpenses int
	TotalAmount   core.Money
	ByCategory    []CategoryRollup
	ByStatus      []StatusRollup
	ByMonth       []MonthRollup
	TopExpenses   []core.Expense
}

// Summarize computes all rollups over the given set.
//
// The set is expected to be role-scoped and date-filtered already; no status
// filter applies at this layer. Records whose date cannot be bucketed into a
// calendar month are excluded from the monthly rollup only, never from totals.
func Summarize(expenses []core.Expense) Summary {
	s := Summary{TotalExpenses: len(expenses)}
	for _, e := range expenses {
		s.TotalAmount.Cents += e.Amount.Cents
	}
	s.ByCategory = categoryRollups(expenses, s.TotalAmount.Cents)
	s.ByStatus = statusRollups(expenses)
	s.ByMonth = monthRollups(expenses)
	s.TopExpenses = topExpenses(expenses)
	return s
}

func categoryRollups(expenses []core.Expense, totalCents int64) []CategoryRollup {
	byCat := make(map[core.Category]*CategoryRollup)
	for _, e := range expenses {
		r, ok := byCat[e.Category]
		if !ok {
			r = &CategoryRollup{Category: e.Category}
			byCat[e.Category] = r
		}
		r.Count++
		r.TotalAmount.Cents += e.Amount.Cents
	}

	out := make([]CategoryRollup, 0, len(byCat))
	for _, r := range byCat {
		if totalCents > 0 {
			r.Percentage = round2(float64(r.TotalAmount.Cents) / float64(totalCents) * 100)
		}
		out = append(out, *r)
	}
	// Largest share first; category name breaks ties.
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalAmount.Cents != out[j].TotalAmount.Cents {
			return out[i].TotalAmount.Cents > out[j].TotalAmount.Cents
		}
		return out[i].Category < out[j].Category
	})
	return out
}

func statusRollups(expenses []core.Expense) []StatusRollup {
	byStatus := make(map[core.Status]*StatusRollup)
	for _, e := range expenses {
		r, ok := byStatus[e.Status]
		if !ok {
			r = &StatusRollup{Status: e.Status}
			byStatus[e.Status] = r
		}
		r.Count++
		r.TotalAmount.Cents += e.Amount.Cents
	}

	out := make([]StatusRollup, 0, len(byStatus))
	for _, r := range byStatus {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Status < out[j].Status })
	return out
}

func monthRollups(expenses []core.Expense) []MonthRollup {
	byMonth := make(map[string]*MonthRollup)
	for _, e := range expenses {
		if e.Date.IsZero() {
			// Unbucketable date: degrade by dropping the record from the
			// monthly rollup only.
			continue
		}
		key := e.Date.UTC().Format("2006-01")
		r, ok := byMonth[key]
		if !ok {
			r = &MonthRollup{Month: key}
			byMonth[key] = r
		}
		r.Count++
		r.TotalAmount.Cents += e.Amount.Cents
	}

	out := make([]MonthRollup, 0, len(byMonth))
	for _, r := range byMonth {
		out = append(out, *r)
	}
	// Most recent month first; the "YYYY-MM" key sorts lexicographically.
	sort.Slice(out, func(i, j int) bool { return out[i].Month > out[j].Month })
	if len(out) > MonthlyWindow {
		out = out[:MonthlyWindow]
	}
	return out
}

func topExpenses(expenses []core.Expense) []core.Expense {
	top := make([]core.Expense, len(expenses))
	copy(top, expenses)
	sort.Slice(top, func(i, j int) bool {
		if top[i].Amount.Cents != top[j].Amount.Cents {
			return top[i].Amount.Cents > top[j].Amount.Cents
		}
		return top[i].ID < top[j].ID
	})
	if len(top) > TopExpenseCount {
		top = top[:TopExpenseCount]
	}
	return top
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
