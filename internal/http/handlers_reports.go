package http

import (
	"net/http"

	"spendwise/internal/middleware/auth"
)

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	window, err := ParseWindow(r.URL.Query())
	if err != nil {
		s.fail(w, r, err, "")
		return
	}

	summary, err := s.deps.Reports.Summary(r.Context(), auth.Owner(r.Context()), window)
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	NewJSONResponse().Body(toSummaryJSON(summary)).Write(w)
}

func (s *Server) handleTransactionReport(w http.ResponseWriter, r *http.Request) {
	filter, err := ParseTransactionFilter(r.URL.Query())
	if err != nil {
		s.fail(w, r, err, "")
		return
	}

	ts, err := s.deps.Reports.Transactions(r.Context(), auth.Owner(r.Context()), filter)
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	NewJSONResponse().Body(toTransactionsJSON(ts)).Write(w)
}
