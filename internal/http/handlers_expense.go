package http

import (
	"errors"
	"net/http"
	"strings"

	"kharcha/internal/amqp"
	"kharcha/internal/core"
	"kharcha/internal/parse"
	"kharcha/internal/storage"
)

func (s *Server) handleExpenses(w http.ResponseWriter, r *http.Request, userID int64) {
	switch r.Method {
	case http.MethodGet:
		s.listExpenses(w, r, userID)
	case http.MethodPost:
		s.createExpense(w, r, userID)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) listExpenses(w http.ResponseWriter, r *http.Request, userID int64) {
	expenses, err := s.storage.ListExpenses(r.Context(), userID)
	if err != nil {
		s.logger.Error("failed to list expenses", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list expenses")
		return
	}
	if expenses == nil {
		expenses = []core.Expense{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"expenses": expenses})
}

// createExpense adds an expense from form fields. The category is detected
// from the description unless a valid manual category is supplied.
func (s *Server) createExpense(w http.ResponseWriter, r *http.Request, userID int64) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form data")
		return
	}

	description := strings.TrimSpace(r.FormValue("description"))
	amount, err := parseFormAmount(r.FormValue("amount"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid amount")
		return
	}
	date, err := parseFormDate(r.FormValue("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date, use YYYY-MM-DD")
		return
	}

	category := core.Category(strings.TrimSpace(r.FormValue("category")))
	if !category.Known() {
		category = s.detector.Detect(description)
	}

	expense := core.Expense{
		UserID:      userID,
		Description: description,
		Category:    category,
		Amount:      amount,
		Date:        date,
	}
	id, err := s.storage.CreateExpense(r.Context(), expense)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.publishEvent(r.Context(), amqp.NewRetrainEvent(id))
	s.publishEvent(r.Context(), amqp.NewExportEvent(id))

	expense.ID = id
	writeJSON(w, http.StatusCreated, expense)
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request, userID int64) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form data")
		return
	}

	id, err := parseFormID(r.FormValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid expense id")
		return
	}
	description := strings.TrimSpace(r.FormValue("description"))
	amount, err := parseFormAmount(r.FormValue("amount"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid amount")
		return
	}
	if description == "" || amount <= 0 {
		writeError(w, http.StatusBadRequest, "description and a positive amount are required")
		return
	}

	if err := s.storage.UpdateExpense(r.Context(), id, userID, description, amount); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "expense not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to update expense")
		return
	}

	s.publishEvent(r.Context(), amqp.NewRetrainEvent(id))
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "status": "updated"})
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request, userID int64) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form data")
		return
	}

	id, err := parseFormID(r.FormValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid expense id")
		return
	}

	if err := s.storage.DeleteExpense(r.Context(), id, userID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "expense not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete expense")
		return
	}

	s.publishEvent(r.Context(), amqp.NewRetrainEvent(id))
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "status": "deleted"})
}

// handleChat turns a free-text message like "spent 200 on pizza" into an
// expense.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request, userID int64) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form data")
		return
	}

	message := r.FormValue("message")
	cmd, ok := parse.Message(message)
	if !ok {
		writeError(w, http.StatusUnprocessableEntity, "could not understand message, try 'add 200 pizza'")
		return
	}

	category := s.detector.Detect(cmd.Description)
	expense := core.Expense{
		UserID:      userID,
		Description: cmd.Description,
		Category:    category,
		Amount:      cmd.Amount,
	}
	id, err := s.storage.CreateExpense(r.Context(), expense)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.publishEvent(r.Context(), amqp.NewRetrainEvent(id))
	s.publishEvent(r.Context(), amqp.NewExportEvent(id))

	expense.ID = id
	writeJSON(w, http.StatusCreated, expense)
}
