package core

import (
	"errors"
	"strings"
	"testing"
	"time"
)

var testNow = time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)

func validInput() ExpenseInput {
	return ExpenseInput{
		Amount:      Money{Cents: 7500},
		Category:    CategoryTransport,
		Description: "Taxi to the airport",
		Date:        time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC),
	}
}

func fieldMessages(t *testing.T, err error) map[string]string {
	t.Helper()
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	out := make(map[string]string, len(ve.Fields))
	for _, f := range ve.Fields {
		out[f.Field] = f.Message
	}
	return out
}

func TestExpenseInputValidate(t *testing.T) {
	if err := validInput().Validate(DefaultAmountCeilingCents, testNow); err != nil {
		t.Fatalf("valid input rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*ExpenseInput)
		field  string
	}{
		{"zero amount", func(in *ExpenseInput) { in.Amount = Money{} }, "amount"},
		{"negative amount", func(in *ExpenseInput) { in.Amount = Money{Cents: -100} }, "amount"},
		{"amount over ceiling", func(in *ExpenseInput) { in.Amount = Money{Cents: DefaultAmountCeilingCents + 1} }, "amount"},
		{"unknown category", func(in *ExpenseInput) { in.Category = "GROCERIES" }, "category"},
		{"description too long", func(in *ExpenseInput) { in.Description = strings.Repeat("x", MaxDescriptionLen+1) }, "description"},
		{"description too long multibyte", func(in *ExpenseInput) { in.Description = strings.Repeat("ξ", MaxDescriptionLen+1) }, "description"},
		{"missing date", func(in *ExpenseInput) { in.Date = time.Time{} }, "date"},
		{"future date", func(in *ExpenseInput) { in.Date = testNow.AddDate(0, 0, 1) }, "date"},
		{"bad receipt url", func(in *ExpenseInput) { in.ReceiptURL = "ftp://example.com/r.pdf" }, "receiptUrl"},
		{"receipt url without host", func(in *ExpenseInput) { in.ReceiptURL = "https://" }, "receiptUrl"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := validInput()
			tc.mutate(&in)
			err := in.Validate(DefaultAmountCeilingCents, testNow)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if _, ok := fieldMessages(t, err)[tc.field]; !ok {
				t.Fatalf("expected failure on field %q, got %v", tc.field, err)
			}
		})
	}
}

func TestExpenseInputValidateSameDayAllowed(t *testing.T) {
	in := validInput()
	// Later clock time on the same calendar day is not "future".
	in.Date = time.Date(2025, 6, 15, 23, 0, 0, 0, time.UTC)
	if err := in.Validate(DefaultAmountCeilingCents, testNow); err != nil {
		t.Fatalf("same-day date rejected: %v", err)
	}
}

func TestExpenseInputValidateDescriptionCountsRunes(t *testing.T) {
	in := validInput()
	// Length limits are character counts; this is twice the limit in bytes
	// but exactly at it in runes.
	in.Description = strings.Repeat("ξ", MaxDescriptionLen)
	if err := in.Validate(DefaultAmountCeilingCents, testNow); err != nil {
		t.Fatalf("max-length multibyte description rejected: %v", err)
	}
}

func TestExpenseInputValidateCollectsAllFailures(t *testing.T) {
	in := ExpenseInput{Category: "NOPE"}
	err := in.Validate(DefaultAmountCeilingCents, testNow)
	fields := fieldMessages(t, err)
	for _, want := range []string{"amount", "category", "date"} {
		if _, ok := fields[want]; !ok {
			t.Fatalf("expected failure on %q, got %v", want, err)
		}
	}
}

func TestExpensePatchValidate(t *testing.T) {
	if err := (ExpensePatch{}).Validate(DefaultAmountCeilingCents, testNow); err != nil {
		t.Fatalf("empty patch rejected: %v", err)
	}
	if !(ExpensePatch{}).Empty() {
		t.Fatal("empty patch not reported as empty")
	}

	bad := Money{Cents: -5}
	err := (ExpensePatch{Amount: &bad}).Validate(DefaultAmountCeilingCents, testNow)
	if err == nil {
		t.Fatal("expected validation error for negative amount")
	}

	desc := "updated description"
	p := ExpensePatch{Description: &desc}
	if p.Empty() {
		t.Fatal("patch with description reported as empty")
	}
	if err := p.Validate(DefaultAmountCeilingCents, testNow); err != nil {
		t.Fatalf("valid patch rejected: %v", err)
	}
}

func TestValidateRejectionReason(t *testing.T) {
	cases := []struct {
		name   string
		reason string
		ok     bool
	}{
		{"valid", "Missing itemized receipt", true},
		{"exactly min length", "1234567890", true},
		{"empty", "", false},
		{"whitespace only", "   ", false},
		{"too short", "too vague", false},
		{"too short after trim", "  12345678  ", false},
		{"too long", strings.Repeat("x", MaxRejectionReasonLen+1), false},
		{"min length multibyte", strings.Repeat("п", MinRejectionReasonLen), true},
		{"short multibyte despite enough bytes", strings.Repeat("п", MinRejectionReasonLen/2), false},
		{"too long multibyte", strings.Repeat("п", MaxRejectionReasonLen+1), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateRejectionReason(tc.reason)
			if tc.ok && err != nil {
				t.Fatalf("expected ok, got %v", err)
			}
			if !tc.ok && err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestStatusTerminal(t *testing.T) {
	if StatusPending.Terminal() {
		t.Fatal("PENDING must not be terminal")
	}
	if !StatusApproved.Terminal() || !StatusRejected.Terminal() {
		t.Fatal("APPROVED and REJECTED must be terminal")
	}
}

func TestCategoryValid(t *testing.T) {
	for _, c := range Categories {
		if !c.Valid() {
			t.Fatalf("declared category %q reported invalid", c)
		}
	}
	if Category("SNACKS").Valid() {
		t.Fatal("unknown category reported valid")
	}
	if Category("food").Valid() {
		t.Fatal("category matching is case sensitive")
	}
}

func TestDateOnly(t *testing.T) {
	in := time.Date(2025, 3, 7, 18, 45, 12, 999, time.FixedZone("CET", 3600))
	got := DateOnly(in)
	want := time.Date(2025, 3, 7, 17, 0, 0, 0, time.UTC)
	// 18:45 CET is 17:45 UTC, so the UTC calendar day is still the 7th.
	if got.Year() != want.Year() || got.Month() != want.Month() || got.Day() != want.Day() {
		t.Fatalf("expected 2025-03-07, got %v", got)
	}
	if got.Hour() != 0 || got.Minute() != 0 || got.Second() != 0 || got.Nanosecond() != 0 {
		t.Fatalf("expected midnight UTC, got %v", got)
	}
}
