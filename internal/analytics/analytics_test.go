package analytics

import (
	"testing"
	"time"

	"expensio/internal/core"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func exp(id int64, cents int64, cat core.Category, status core.Status, date time.Time) core.Expense {
	return core.Expense{
		ID:       id,
		Amount:   core.Money{Cents: cents},
		Category: cat,
		Status:   status,
		Date:     date,
	}
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil)
	if s.TotalExpenses != 0 || s.TotalAmount.Cents != 0 {
		t.Fatalf("expected zero totals, got %+v", s)
	}
	if len(s.ByCategory) != 0 || len(s.ByStatus) != 0 || len(s.ByMonth) != 0 || len(s.TopExpenses) != 0 {
		t.Fatalf("expected empty rollups, got %+v", s)
	}
}

func TestSummarizeRollups(t *testing.T) {
	june := day(2025, 6, 10)
	expenses := []core.Expense{
		exp(1, 5000, core.CategoryFood, core.StatusApproved, june),
		exp(2, 10000, core.CategoryFood, core.StatusPending, june),
		exp(3, 7500, core.CategoryTransport, core.StatusPending, june),
	}

	s := Summarize(expenses)

	if s.TotalExpenses != 3 {
		t.Fatalf("expected 3 expenses, got %d", s.TotalExpenses)
	}
	if s.TotalAmount.Cents != 22500 {
		t.Fatalf("expected total 22500 cents, got %d", s.TotalAmount.Cents)
	}

	if len(s.ByCategory) != 2 {
		t.Fatalf("expected 2 category rollups, got %d", len(s.ByCategory))
	}
	food := s.ByCategory[0]
	if food.Category != core.CategoryFood || food.Count != 2 || food.TotalAmount.Cents != 15000 {
		t.Fatalf("unexpected first category rollup: %+v", food)
	}
	if food.Percentage != 66.67 {
		t.Fatalf("expected 66.67%%, got %v", food.Percentage)
	}
	transport := s.ByCategory[1]
	if transport.Category != core.CategoryTransport || transport.Count != 1 || transport.TotalAmount.Cents != 7500 {
		t.Fatalf("unexpected second category rollup: %+v", transport)
	}
	if transport.Percentage != 33.33 {
		t.Fatalf("expected 33.33%%, got %v", transport.Percentage)
	}

	if len(s.ByStatus) != 2 {
		t.Fatalf("expected 2 status rollups, got %d", len(s.ByStatus))
	}
	if s.ByStatus[0].Status != core.StatusApproved || s.ByStatus[0].Count != 1 || s.ByStatus[0].TotalAmount.Cents != 5000 {
		t.Fatalf("unexpected first status rollup: %+v", s.ByStatus[0])
	}
	if s.ByStatus[1].Status != core.StatusPending || s.ByStatus[1].Count != 2 || s.ByStatus[1].TotalAmount.Cents != 17500 {
		t.Fatalf("unexpected second status rollup: %+v", s.ByStatus[1])
	}
}

func TestSummarizeCategoryTieBreak(t *testing.T) {
	d := day(2025, 1, 1)
	s := Summarize([]core.Expense{
		exp(1, 100, core.CategoryTravel, core.StatusPending, d),
		exp(2, 100, core.CategoryFood, core.StatusPending, d),
	})
	if s.ByCategory[0].Category != core.CategoryFood || s.ByCategory[1].Category != core.CategoryTravel {
		t.Fatalf("equal amounts must sort by category name, got %+v", s.ByCategory)
	}
}

func TestSummarizeMonthly(t *testing.T) {
	var expenses []core.Expense
	// 14 consecutive months, oldest first.
	for i := 0; i < 14; i++ {
		expenses = append(expenses, exp(int64(i+1), 1000, core.CategoryFood, core.StatusPending,
			day(2024, time.Month(1), 15).AddDate(0, i, 0)))
	}
	s := Summarize(expenses)

	if len(s.ByMonth) != MonthlyWindow {
		t.Fatalf("expected %d months, got %d", MonthlyWindow, len(s.ByMonth))
	}
	if s.ByMonth[0].Month != "2025-02" {
		t.Fatalf("expected most recent month first, got %q", s.ByMonth[0].Month)
	}
	if s.ByMonth[len(s.ByMonth)-1].Month != "2024-03" {
		t.Fatalf("expected oldest retained month 2024-03, got %q", s.ByMonth[len(s.ByMonth)-1].Month)
	}
	for i := 1; i < len(s.ByMonth); i++ {
		if s.ByMonth[i].Month >= s.ByMonth[i-1].Month {
			t.Fatalf("months must be strictly descending: %q before %q", s.ByMonth[i-1].Month, s.ByMonth[i].Month)
		}
	}

	// Truncating the window must not shrink the overall totals.
	if s.TotalExpenses != 14 || s.TotalAmount.Cents != 14000 {
		t.Fatalf("window truncation leaked into totals: %+v", s)
	}
}

func TestSummarizeZeroDateExcludedFromMonthlyOnly(t *testing.T) {
	s := Summarize([]core.Expense{
		exp(1, 1000, core.CategoryFood, core.StatusPending, day(2025, 6, 1)),
		exp(2, 2000, core.CategoryFood, core.StatusPending, time.Time{}),
	})
	if len(s.ByMonth) != 1 || s.ByMonth[0].Count != 1 {
		t.Fatalf("zero-date record must be excluded from monthly rollup: %+v", s.ByMonth)
	}
	if s.TotalExpenses != 2 || s.TotalAmount.Cents != 3000 {
		t.Fatalf("zero-date record must still count toward totals: %+v", s)
	}
	if s.ByCategory[0].Count != 2 {
		t.Fatalf("zero-date record must still count toward category rollups: %+v", s.ByCategory)
	}
}

func TestSummarizeTopExpenses(t *testing.T) {
	var expenses []core.Expense
	for i := 1; i <= 12; i++ {
		expenses = append(expenses, exp(int64(i), int64(i*100), core.CategoryOther, core.StatusPending, day(2025, 6, 1)))
	}
	// A tie with the highest amount: lower id wins the tiebreak.
	expenses = append(expenses, exp(99, 1200, core.CategoryOther, core.StatusPending, day(2025, 6, 1)))

	s := Summarize(expenses)
	if len(s.TopExpenses) != TopExpenseCount {
		t.Fatalf("expected %d top expenses, got %d", TopExpenseCount, len(s.TopExpenses))
	}
	if s.TopExpenses[0].ID != 12 || s.TopExpenses[1].ID != 99 {
		t.Fatalf("tied amounts must order by id: got %d then %d", s.TopExpenses[0].ID, s.TopExpenses[1].ID)
	}
	for i := 1; i < len(s.TopExpenses); i++ {
		if s.TopExpenses[i].Amount.Cents > s.TopExpenses[i-1].Amount.Cents {
			t.Fatal("top expenses must be sorted by amount descending")
		}
	}
}

func TestSummarizeZeroTotalPercentage(t *testing.T) {
	// All-zero amounts cannot occur through validation, but the aggregation
	// must still not divide by zero.
	s := Summarize([]core.Expense{
		{ID: 1, Category: core.CategoryFood, Status: core.StatusPending, Date: day(2025, 6, 1)},
	})
	if s.ByCategory[0].Percentage != 0 {
		t.Fatalf("expected 0%% on zero total, got %v", s.ByCategory[0].Percentage)
	}
}

func TestSummarizeDeterministic(t *testing.T) {
	d := day(2025, 6, 1)
	set := []core.Expense{
		exp(1, 500, core.CategoryFood, core.StatusApproved, d),
		exp(2, 500, core.CategoryTravel, core.StatusPending, d),
		exp(3, 900, core.CategoryOther, core.StatusRejected, d),
	}
	first := Summarize(set)
	for i := 0; i < 10; i++ {
		again := Summarize(set)
		for j := range first.ByCategory {
			if again.ByCategory[j] != first.ByCategory[j] {
				t.Fatalf("category ordering unstable at run %d", i)
			}
		}
		for j := range first.ByStatus {
			if again.ByStatus[j] != first.ByStatus[j] {
				t.Fatalf("status ordering unstable at run %d", i)
			}
		}
	}
}
