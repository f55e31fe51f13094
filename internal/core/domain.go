package core

import (
	"net/url"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	RoleEmployee Role = "EMPLOYEE"
	RoleAdmin    Role = "ADMIN"
)

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
)

const (
	CategoryFood           Category = "FOOD"
	CategoryTransport      Category = "TRANSPORT"
	CategoryAccommodation  Category = "ACCOMMODATION"
	CategoryOfficeSupplies Category = "OFFICE_SUPPLIES"
	CategorySoftware       Category = "SOFTWARE"
	CategoryTraining       Category = "TRAINING"
	CategoryMarketing      Category = "MARKETING"
	CategoryTravel         Category = "TRAVEL"
	CategoryEntertainment  Category = "ENTERTAINMENT"
	CategoryUtilities      Category = "UTILITIES"
	CategoryOther          Category = "OTHER"
)

const (
	// DefaultAmountCeilingCents caps a single expense at 50,000.00.
	DefaultAmountCeilingCents int64 = 5_000_000

	MaxDescriptionLen     = 500
	MinRejectionReasonLen = 10
	MaxRejectionReasonLen = 500
)

type (
	Role     string
	Status   string
	Category string

	Money struct {
		Cents int64
	}

	// Actor is the authenticated identity performing an operation.
	// It is resolved by the auth boundary before any domain call runs.
	Actor struct {
		ID    int64
		Role  Role
		Email string
	}

	User struct {
		ID           int64
		Email        string
		Name         string
		PasswordHash string
		Role         Role
		CreatedAt    time.Time
		UpdatedAt    time.Time
	}

	// UserSummary is the owner projection attached to expense read models.
	UserSummary struct {
		ID    int64
		Name  string
		Email string
	}

	Expense struct {
		ID              int64
		UserID          int64
		Amount          Money
		Category        Category
		Description     string
		Date            time.Time // calendar date, midnight UTC
		ReceiptURL      string
		Status          Status
		RejectionReason string
		CreatedAt       time.Time
		UpdatedAt       time.Time
		Owner           *UserSummary
	}

	// ExpenseInput is the validated payload for creating an expense.
	ExpenseInput struct {
		Amount      Money
		Category    Category
		Description string
		Date        time.Time
		ReceiptURL  string
	}

	// ExpensePatch carries the fields of a partial update; nil means "leave as is".
	ExpensePatch struct {
		Amount      *Money
		Category    *Category
		Description *string
		Date        *time.Time
		ReceiptURL  *string
	}
)

// Categories lists the closed category set in declaration order.
var Categories = []Category{
	CategoryFood, CategoryTransport, CategoryAccommodation, CategoryOfficeSupplies,
	CategorySoftware, CategoryTraining, CategoryMarketing, CategoryTravel,
	CategoryEntertainment, CategoryUtilities, CategoryOther,
}

func (r Role) Valid() bool {
	return r == RoleEmployee || r == RoleAdmin
}

func (s Status) Valid() bool {
	return s == StatusPending || s == StatusApproved || s == StatusRejected
}

// Terminal reports whether no further status transitions are permitted.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// DateOnly truncates t to midnight UTC.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func validateAmount(ve *ValidationError, m Money, ceiling int64) {
	if m.Cents <= 0 {
		ve.Add("amount", "amount must be greater than zero")
		return
	}
	if ceiling > 0 && m.Cents > ceiling {
		ve.Add("amount", "amount exceeds the allowed maximum")
	}
}

func validateCategory(ve *ValidationError, c Category) {
	if !c.Valid() {
		ve.Add("category", "unknown category")
	}
}

func validateDescription(ve *ValidationError, d string) {
	// Limits are in characters, not bytes; multibyte text counts per rune.
	if utf8.RuneCountInString(d) > MaxDescriptionLen {
		ve.Add("description", "description too long (max 500 characters)")
	}
}

func validateDate(ve *ValidationError, d time.Time, now time.Time) {
	if d.IsZero() {
		ve.Add("date", "date is required")
		return
	}
	if DateOnly(d).After(DateOnly(now)) {
		ve.Add("date", "date must not be in the future")
	}
}

func validateReceiptURL(ve *ValidationError, raw string) {
	if raw == "" {
		return
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		ve.Add("receiptUrl", "receipt URL must be a valid http(s) URL")
	}
}

// Validate checks all creation constraints against the given ceiling and clock.
func (in ExpenseInput) Validate(ceilingCents int64, now time.Time) error {
	ve := &ValidationError{}
	validateAmount(ve, in.Amount, ceilingCents)
	validateCategory(ve, in.Category)
	validateDescription(ve, in.Description)
	validateDate(ve, in.Date, now)
	validateReceiptURL(ve, in.ReceiptURL)
	return ve.Err()
}

// Empty reports whether the patch carries no fields at all.
func (p ExpensePatch) Empty() bool {
	return p.Amount == nil && p.Category == nil && p.Description == nil &&
		p.Date == nil && p.ReceiptURL == nil
}

// Validate checks the supplied fields only, with the same rules as creation.
func (p ExpensePatch) Validate(ceilingCents int64, now time.Time) error {
	ve := &ValidationError{}
	if p.Amount != nil {
		validateAmount(ve, *p.Amount, ceilingCents)
	}
	if p.Category != nil {
		validateCategory(ve, *p.Category)
	}
	if p.Description != nil {
		validateDescription(ve, *p.Description)
	}
	if p.Date != nil {
		validateDate(ve, *p.Date, now)
	}
	if p.ReceiptURL != nil {
		validateReceiptURL(ve, *p.ReceiptURL)
	}
	return ve.Err()
}

// ValidateRejectionReason enforces the 10-500 character requirement for rejections.
func ValidateRejectionReason(reason string) error {
	ve := &ValidationError{}
	trimmed := strings.TrimSpace(reason)
	runes := utf8.RuneCountInString(trimmed)
	if trimmed == "" {
		ve.Add("rejectionReason", "rejection reason is required")
	} else if runes < MinRejectionReasonLen {
		ve.Add("rejectionReason", "rejection reason too short (min 10 characters)")
	} else if runes > MaxRejectionReasonLen {
		ve.Add("rejectionReason", "rejection reason too long (max 500 characters)")
	}
	return ve.Err()
}

// Summary returns the owner projection for this user.
func (u User) Summary() *UserSummary {
	return &UserSummary{ID: u.ID, Name: u.Name, Email: u.Email}
}
