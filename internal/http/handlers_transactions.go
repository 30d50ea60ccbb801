package http

import (
	"net/http"

	"spendwise/internal/middleware/auth"
)

const transactionNotFound = "Transaction not found"

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err, transactionNotFound)
		return
	}
	in, err := req.toInput()
	if err != nil {
		s.fail(w, r, err, transactionNotFound)
		return
	}

	t, err := s.deps.Transactions.Create(r.Context(), auth.Owner(r.Context()), in)
	if err != nil {
		s.fail(w, r, err, transactionNotFound)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(toTransactionJSON(t)).Write(w)
}

func (s *Server) handleImportSMS(w http.ResponseWriter, r *http.Request) {
	var req smsRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err, transactionNotFound)
		return
	}

	t, err := s.deps.Transactions.ImportSMS(r.Context(), auth.Owner(r.Context()), req.SMSText)
	if err != nil {
		s.fail(w, r, err, transactionNotFound)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(importResponse{
		Message:     "Transaction imported successfully",
		Transaction: toTransactionJSON(t),
	}).Write(w)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	filter, err := ParseTransactionFilter(r.URL.Query())
	if err != nil {
		s.fail(w, r, err, transactionNotFound)
		return
	}

	ts, err := s.deps.Transactions.List(r.Context(), auth.Owner(r.Context()), filter)
	if err != nil {
		s.fail(w, r, err, transactionNotFound)
		return
	}
	NewJSONResponse().Body(toTransactionsJSON(ts)).Write(w)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	t, err := s.deps.Transactions.Get(r.Context(), auth.Owner(r.Context()), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err, transactionNotFound)
		return
	}
	NewJSONResponse().Body(toTransactionJSON(t)).Write(w)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionPatchRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err, transactionNotFound)
		return
	}
	patch, err := req.toPatch()
	if err != nil {
		s.fail(w, r, err, transactionNotFound)
		return
	}

	t, err := s.deps.Transactions.Update(r.Context(), auth.Owner(r.Context()), r.PathValue("id"), patch)
	if err != nil {
		s.fail(w, r, err, transactionNotFound)
		return
	}
	NewJSONResponse().Body(toTransactionJSON(t)).Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Transactions.Delete(r.Context(), auth.Owner(r.Context()), r.PathValue("id")); err != nil {
		s.fail(w, r, err, transactionNotFound)
		return
	}
	NewJSONResponse().Message("Transaction removed").Write(w)
}
