package http

import (
	"fmt"
	"net/http"

	"spendwise/internal/core"
	"spendwise/internal/middleware/auth"
)

const budgetNotFound = "Budget not found"

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	var req budgetRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err, budgetNotFound)
		return
	}
	in, err := req.toInput()
	if err != nil {
		s.fail(w, r, err, budgetNotFound)
		return
	}

	b, err := s.deps.Budgets.Create(r.Context(), auth.Owner(r.Context()), in)
	if err != nil {
		s.fail(w, r, err, budgetNotFound)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(toBudgetJSON(b)).Write(w)
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	bs, err := s.deps.Budgets.List(r.Context(), auth.Owner(r.Context()))
	if err != nil {
		s.fail(w, r, err, budgetNotFound)
		return
	}
	NewJSONResponse().Body(toBudgetsJSON(bs)).Write(w)
}

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	b, err := s.deps.Budgets.Get(r.Context(), auth.Owner(r.Context()), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err, budgetNotFound)
		return
	}
	NewJSONResponse().Body(toBudgetJSON(b)).Write(w)
}

func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request) {
	var req budgetPatchRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err, budgetNotFound)
		return
	}
	patch, err := req.toPatch()
	if err != nil {
		s.fail(w, r, err, budgetNotFound)
		return
	}

	b, err := s.deps.Budgets.Update(r.Context(), auth.Owner(r.Context()), r.PathValue("id"), patch)
	if err != nil {
		s.fail(w, r, err, budgetNotFound)
		return
	}
	NewJSONResponse().Body(toBudgetJSON(b)).Write(w)
}

// handleCorrectSpent overwrites the accumulator. It is the only way to
// change spent from outside reconciliation.
func (s *Server) handleCorrectSpent(w http.ResponseWriter, r *http.Request) {
	var req spentRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err, budgetNotFound)
		return
	}
	if req.Spent == nil {
		s.fail(w, r, fmt.Errorf("%w: spent is required", core.ErrValidation), budgetNotFound)
		return
	}

	b, err := s.deps.Budgets.CorrectSpent(r.Context(), auth.Owner(r.Context()), r.PathValue("id"), *req.Spent)
	if err != nil {
		s.fail(w, r, err, budgetNotFound)
		return
	}
	NewJSONResponse().Body(toBudgetJSON(b)).Write(w)
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Budgets.Delete(r.Context(), auth.Owner(r.Context()), r.PathValue("id")); err != nil {
		s.fail(w, r, err, budgetNotFound)
		return
	}
	NewJSONResponse().Message("Budget removed").Write(w)
}

func (s *Server) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	alerts, err := s.deps.Budgets.Alerts(r.Context(), auth.Owner(r.Context()))
	if err != nil {
		s.fail(w, r, err, budgetNotFound)
		return
	}
	NewJSONResponse().Body(toAlertsJSON(alerts)).Write(w)
}
