// Package query translates optional caller-supplied filter parameters into a
// normalized store query, applying role-based scoping and pagination defaults.
package query

import (
	"time"

	"expensio/internal/core"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// Params are the raw, optional filter inputs as received from a caller.
// Nil pointers and zero page/limit mean "unspecified".
type Params struct {
	Status   *core.Status
	Category *core.Category
	OwnerID  *int64
	DateFrom *time.Time
	DateTo   *time.Time
	Page     int
	Limit    int
}

// Filter is the normalized store query after scoping and validation.
type Filter struct {
	Status   *core.Status
	Category *core.Category
	OwnerID  *int64
	DateFrom *time.Time
	DateTo   *time.Time

	// Limit == 0 means unbounded (used by analytics, which consumes the
	// whole scoped set).
	Limit  int
	Offset int

	page int
}

// Pagination is the page metadata computed over a total row count.
type Pagination struct {
	Page       int
	Limit      int
	Total      int
	TotalPages int
	HasNext    bool
	HasPrev    bool
}

// Build normalizes params into a filter for the given actor.
//
// Role scoping is a security boundary, not a convenience default: an EMPLOYEE
// actor's filter is always forced to their own id, regardless of any supplied
// ownerId. Admins may scope to any owner, or to all users by omitting it.
func Build(actor core.Actor, p Params) (Filter, error) {
	ve := &core.ValidationError{}

	f := Filter{
		Status:   p.Status,
		Category: p.Category,
		OwnerID:  p.OwnerID,
		DateFrom: p.DateFrom,
		DateTo:   p.DateTo,
	}

	if actor.Role != core.RoleAdmin {
		owner := actor.ID
		f.OwnerID = &owner
	}

	if p.Status != nil && !p.Status.Valid() {
		ve.Add("status", "unknown status")
	}
	if p.Category != nil && !p.Category.Valid() {
		ve.Add("category", "unknown category")
	}
	if p.DateFrom != nil && p.DateTo != nil && p.DateFrom.After(*p.DateTo) {
		ve.Add("dateFrom", "dateFrom must not be after dateTo")
	}

	page := p.Page
	if page == 0 {
		page = DefaultPage
	}
	if page < 1 {
		ve.Add("page", "page must be at least 1")
	}

	limit := p.Limit
	if limit == 0 {
		limit = DefaultLimit
	}
	if limit < 1 || limit > MaxLimit {
		ve.Add("limit", "limit must be between 1 and 100")
	}

	if err := ve.Err(); err != nil {
		return Filter{}, err
	}

	f.page = page
	f.Limit = limit
	f.Offset = (page - 1) * limit
	return f, nil
}

// Unpaged strips pagination from the filter so the whole scoped set is read.
func (f Filter) Unpaged() Filter {
	f.Limit = 0
	f.Offset = 0
	f.page = 0
	return f
}

// Paginate computes page metadata for the filter against a total row count.
func (f Filter) Paginate(total int) Pagination {
	page := f.page
	if page == 0 {
		page = DefaultPage
	}
	limit := f.Limit
	if limit == 0 {
		limit = DefaultLimit
	}
	totalPages := (total + limit - 1) / limit
	return Pagination{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
	}
}
