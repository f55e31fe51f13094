package http

import (
	"net/http"

	"expensio/internal/core"
)

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req createExpenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	input, err := req.toInput()
	if err != nil {
		writeError(w, r, err)
		return
	}

	expense, err := s.expenses.Create(r.Context(), actorFrom(r), input)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateAnalytics()
	writeData(w, http.StatusCreated, toExpenseDTO(expense))
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	params, err := parseListParams(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	expenses, page, err := s.expenses.List(r.Context(), actorFrom(r), params)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writePage(w, toExpenseDTOs(expenses), page)
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	expense, err := s.expenses.Get(r.Context(), actorFrom(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeData(w, http.StatusOK, toExpenseDTO(expense))
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req updateExpenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	patch, err := req.toPatch()
	if err != nil {
		writeError(w, r, err)
		return
	}

	expense, err := s.expenses.Update(r.Context(), actorFrom(r), id, patch)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateAnalytics()
	writeData(w, http.StatusOK, toExpenseDTO(expense))
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.expenses.Delete(r.Context(), actorFrom(r), id); err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateAnalytics()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTransitionExpense(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req transitionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	expense, err := s.expenses.Transition(r.Context(), actorFrom(r), id,
		core.Status(req.Status), req.RejectionReason)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateAnalytics()
	writeData(w, http.StatusOK, toExpenseDTO(expense))
}
