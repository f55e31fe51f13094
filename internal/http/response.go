package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"expensio/internal/analytics"
	"expensio/internal/core"
	"expensio/internal/log"
	"expensio/internal/query"
)

// dataResponse is the success envelope.
type dataResponse struct {
	Data       any            `json:"data"`
	Pagination *paginationDTO `json:"pagination,omitempty"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string     `json:"code"`
	Message string     `json:"message"`
	Fields  []fieldDTO `json:"fields,omitempty"`
}

type fieldDTO struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type paginationDTO struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	Total      int  `json:"total"`
	TotalPages int  `json:"totalPages"`
	HasNext    bool `json:"hasNext"`
	HasPrev    bool `json:"hasPrev"`
}

type userDTO struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	Role      string `json:"role"`
	CreatedAt string `json:"createdAt,omitempty"`
}

type ownerDTO struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type expenseDTO struct {
	ID              int64     `json:"id"`
	UserID          int64     `json:"userId"`
	Amount          string    `json:"amount"`
	Category        string    `json:"category"`
	Description     string    `json:"description"`
	Date            string    `json:"date"`
	ReceiptURL      string    `json:"receiptUrl,omitempty"`
	Status          string    `json:"status"`
	RejectionReason string    `json:"rejectionReason,omitempty"`
	CreatedAt       string    `json:"createdAt"`
	UpdatedAt       string    `json:"updatedAt"`
	Owner           *ownerDTO `json:"owner,omitempty"`
}

type categoryRollupDTO struct {
	Category    string  `json:"category"`
	Count       int     `json:"count"`
	TotalAmount string  `json:"totalAmount"`
	Percentage  float64 `json:"percentage"`
}

type statusRollupDTO struct {
	Status      string `json:"status"`
	Count       int    `json:"count"`
	TotalAmount string `json:"totalAmount"`
}

type monthRollupDTO struct {
	Month       string `json:"month"`
	Count       int    `json:"count"`
	TotalAmount string `json:"totalAmount"`
}

type summaryDTO struct {
	TotalExpenses int                 `json:"totalExpenses"`
	TotalAmount   string              `json:"totalAmount"`
	ByCategory    []categoryRollupDTO `json:"byCategory"`
	ByStatus      []statusRollupDTO   `json:"byStatus"`
	ByMonth       []monthRollupDTO    `json:"byMonth"`
	TopExpenses   []expenseDTO        `json:"topExpenses"`
}

func toUserDTO(u core.User) userDTO {
	dto := userDTO{
		ID:    u.ID,
		Email: u.Email,
		Name:  u.Name,
		Role:  string(u.Role),
	}
	if !u.CreatedAt.IsZero() {
		dto.CreatedAt = u.CreatedAt.UTC().Format(time.RFC3339)
	}
	return dto
}

func toExpenseDTO(e core.Expense) expenseDTO {
	dto := expenseDTO{
		ID:              e.ID,
		UserID:          e.UserID,
		Amount:          e.Amount.Decimal(),
		Category:        string(e.Category),
		Description:     e.Description,
		Date:            e.Date.Format("2006-01-02"),
		ReceiptURL:      e.ReceiptURL,
		Status:          string(e.Status),
		RejectionReason: e.RejectionReason,
		CreatedAt:       e.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:       e.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if e.Owner != nil {
		dto.Owner = &ownerDTO{ID: e.Owner.ID, Name: e.Owner.Name, Email: e.Owner.Email}
	}
	return dto
}

func toExpenseDTOs(expenses []core.Expense) []expenseDTO {
	dtos := make([]expenseDTO, len(expenses))
	for i, e := range expenses {
		dtos[i] = toExpenseDTO(e)
	}
	return dtos
}

func toSummaryDTO(s analytics.Summary) summaryDTO {
	dto := summaryDTO{
		TotalExpenses: s.TotalExpenses,
		TotalAmount:   s.TotalAmount.Decimal(),
		ByCategory:    make([]categoryRollupDTO, len(s.ByCategory)),
		ByStatus:      make([]statusRollupDTO, len(s.ByStatus)),
		ByMonth:       make([]monthRollupDTO, len(s.ByMonth)),
		TopExpenses:   toExpenseDTOs(s.TopExpenses),
	}
	for i, r := range s.ByCategory {
		dto.ByCategory[i] = categoryRollupDTO{
			Category:    string(r.Category),
			Count:       r.Count,
			TotalAmount: r.TotalAmount.Decimal(),
			Percentage:  r.Percentage,
		}
	}
	for i, r := range s.ByStatus {
		dto.ByStatus[i] = statusRollupDTO{
			Status:      string(r.Status),
			Count:       r.Count,
			TotalAmount: r.TotalAmount.Decimal(),
		}
	}
	for i, r := range s.ByMonth {
		dto.ByMonth[i] = monthRollupDTO{
			Month:       r.Month,
			Count:       r.Count,
			TotalAmount: r.TotalAmount.Decimal(),
		}
	}
	return dto
}

func toPaginationDTO(p query.Pagination) *paginationDTO {
	return &paginationDTO{
		Page:       p.Page,
		Limit:      p.Limit,
		Total:      p.Total,
		TotalPages: p.TotalPages,
		HasNext:    p.HasNext,
		HasPrev:    p.HasPrev,
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, dataResponse{Data: data})
}

func writePage(w http.ResponseWriter, data any, p query.Pagination) {
	writeJSON(w, http.StatusOK, dataResponse{Data: data, Pagination: toPaginationDTO(p)})
}

// writeError maps domain failures onto HTTP statuses. Unclassified errors are
// logged and reported as an opaque 500 so internals never leak to clients.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *core.ValidationError
	switch {
	case errors.As(err, &ve):
		fields := make([]fieldDTO, len(ve.Fields))
		for i, f := range ve.Fields {
			fields[i] = fieldDTO{Field: f.Field, Message: f.Message}
		}
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: errorBody{
			Code:    "VALIDATION_ERROR",
			Message: "validation failed",
			Fields:  fields,
		}})
	case errors.Is(err, core.ErrUnauthenticated):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: errorBody{
			Code:    "UNAUTHENTICATED",
			Message: "authentication required",
		}})
	case errors.Is(err, core.ErrForbidden):
		writeJSON(w, http.StatusForbidden, errorResponse{Error: errorBody{
			Code:    "FORBIDDEN",
			Message: "you do not have access to this resource",
		}})
	case errors.Is(err, core.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: errorBody{
			Code:    "NOT_FOUND",
			Message: "expense not found",
		}})
	case errors.Is(err, core.ErrInvalidState):
		writeJSON(w, http.StatusConflict, errorResponse{Error: errorBody{
			Code:    "INVALID_STATE",
			Message: err.Error(),
		}})
	default:
		slog.ErrorContext(r.Context(), "Request failed",
			log.FieldMethod, r.Method, log.FieldPath, r.URL.Path, log.FieldError, err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: errorBody{
			Code:    "INTERNAL_ERROR",
			Message: "internal server error",
		}})
	}
}
