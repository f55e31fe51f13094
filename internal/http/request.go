package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"expensio/internal/core"
	"expensio/internal/query"
)

const maxBodyBytes = 1 << 20 // 1 MiB

const dateLayout = "2006-01-02"

// decodeJSON reads a bounded JSON body into dst. Malformed bodies surface as
// validation failures rather than opaque 400s.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return core.NewValidationError("body", "request body is required")
		}
		return core.NewValidationError("body", "request body is not valid JSON")
	}
	return nil
}

type createExpenseRequest struct {
	Amount      json.Number `json:"amount"`
	Category    string      `json:"category"`
	Description string      `json:"description"`
	Date        string      `json:"date"`
	ReceiptURL  string      `json:"receiptUrl"`
}

func (req createExpenseRequest) toInput() (core.ExpenseInput, error) {
	input := core.ExpenseInput{
		Category:    core.Category(strings.TrimSpace(req.Category)),
		Description: strings.TrimSpace(req.Description),
		ReceiptURL:  strings.TrimSpace(req.ReceiptURL),
	}

	if s := strings.TrimSpace(req.Amount.String()); s != "" {
		cents, err := core.ParseDecimalToCents(s)
		if err != nil {
			return core.ExpenseInput{}, err
		}
		input.Amount = core.Money{Cents: cents}
	}

	if s := strings.TrimSpace(req.Date); s != "" {
		d, err := time.ParseInLocation(dateLayout, s, time.UTC)
		if err != nil {
			return core.ExpenseInput{}, core.NewValidationError("date", "date must be in YYYY-MM-DD format")
		}
		input.Date = d
	}

	return input, nil
}

type updateExpenseRequest struct {
	Amount      *json.Number `json:"amount"`
	Category    *string      `json:"category"`
	Description *string      `json:"description"`
	Date        *string      `json:"date"`
	ReceiptURL  *string      `json:"receiptUrl"`
}

func (req updateExpenseRequest) toPatch() (core.ExpensePatch, error) {
	var patch core.ExpensePatch

	if req.Amount != nil {
		cents, err := core.ParseDecimalToCents(req.Amount.String())
		if err != nil {
			return core.ExpensePatch{}, err
		}
		patch.Amount = &core.Money{Cents: cents}
	}
	if req.Category != nil {
		c := core.Category(strings.TrimSpace(*req.Category))
		patch.Category = &c
	}
	if req.Description != nil {
		d := strings.TrimSpace(*req.Description)
		patch.Description = &d
	}
	if req.Date != nil {
		d, err := time.ParseInLocation(dateLayout, strings.TrimSpace(*req.Date), time.UTC)
		if err != nil {
			return core.ExpensePatch{}, core.NewValidationError("date", "date must be in YYYY-MM-DD format")
		}
		patch.Date = &d
	}
	if req.ReceiptURL != nil {
		u := strings.TrimSpace(*req.ReceiptURL)
		patch.ReceiptURL = &u
	}

	return patch, nil
}

type transitionRequest struct {
	Status          string `json:"status"`
	RejectionReason string `json:"rejectionReason"`
}

type registerRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// parseID reads the {id} path segment.
func parseID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, core.NewValidationError("id", "id must be a positive integer")
	}
	return id, nil
}

// parseListParams reads the optional filter query string. Unknown status or
// category values are passed through; the filter builder rejects them with a
// field-level error.
func parseListParams(r *http.Request) (query.Params, error) {
	q := r.URL.Query()
	var p query.Params

	if v := strings.TrimSpace(q.Get("status")); v != "" {
		s := core.Status(v)
		p.Status = &s
	}
	if v := strings.TrimSpace(q.Get("category")); v != "" {
		c := core.Category(v)
		p.Category = &c
	}
	if v := strings.TrimSpace(q.Get("ownerId")); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			return query.Params{}, core.NewValidationError("ownerId", "ownerId must be a positive integer")
		}
		p.OwnerID = &id
	}
	if v := strings.TrimSpace(q.Get("dateFrom")); v != "" {
		d, err := time.ParseInLocation(dateLayout, v, time.UTC)
		if err != nil {
			return query.Params{}, core.NewValidationError("dateFrom", "dateFrom must be in YYYY-MM-DD format")
		}
		p.DateFrom = &d
	}
	if v := strings.TrimSpace(q.Get("dateTo")); v != "" {
		d, err := time.ParseInLocation(dateLayout, v, time.UTC)
		if err != nil {
			return query.Params{}, core.NewValidationError("dateTo", "dateTo must be in YYYY-MM-DD format")
		}
		p.DateTo = &d
	}
	if v := strings.TrimSpace(q.Get("page")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return query.Params{}, core.NewValidationError("page", "page must be an integer")
		}
		p.Page = n
	}
	if v := strings.TrimSpace(q.Get("limit")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return query.Params{}, core.NewValidationError("limit", "limit must be an integer")
		}
		p.Limit = n
	}

	return p, nil
}
