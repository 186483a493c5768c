package http

import (
	"net/http"

	"kharcha/internal/core"
	"kharcha/internal/forecast"
)

// handleDashboard aggregates the user's spending: overall total, per-category
// totals, monthly totals and next month's forecast.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request, userID int64) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	history, err := s.storage.History(r.Context(), userID)
	if err != nil {
		s.logger.Error("failed to load history", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load dashboard")
		return
	}

	categoryTotals, err := s.storage.CategoryTotals(r.Context(), userID)
	if err != nil {
		s.logger.Error("failed to load category totals", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load dashboard")
		return
	}
	if categoryTotals == nil {
		categoryTotals = []core.CategoryAmount{}
	}

	var total float64
	for _, rec := range history {
		total += rec.Amount
	}

	monthly := forecast.MonthlyTotals(history)
	if monthly == nil {
		monthly = []core.MonthlyTotal{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"total":           total,
		"by_category":     categoryTotals,
		"monthly_totals":  monthly,
		"forecast":        forecast.NextMonth(history),
		"expense_records": len(history),
	})
}
