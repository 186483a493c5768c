package http

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"kharcha/internal/amqp"
	"kharcha/internal/core"
	"kharcha/internal/extract"
)

// maxUploadSize bounds receipt and screenshot uploads.
const maxUploadSize = 10 << 20 // 10 MiB

// scannedReceiptDescription labels expenses created from receipt images.
const scannedReceiptDescription = "Scanned Receipt"

// uploadText returns the text to run extraction on: the "text" form field
// when present (pre-extracted, or tests), otherwise OCR over the uploaded
// image file.
func (s *Server) uploadText(r *http.Request) (string, error) {
	if text := r.FormValue("text"); strings.TrimSpace(text) != "" {
		return text, nil
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		return "", fmt.Errorf("missing image file and text field")
	}
	defer file.Close()

	if s.extractor == nil {
		return "", fmt.Errorf("OCR is not available, submit extracted text instead")
	}

	path, err := saveUpload(file, header)
	if err != nil {
		return "", err
	}
	defer os.Remove(path)

	return s.extractor.ExtractText(path)
}

func saveUpload(file multipart.File, header *multipart.FileHeader) (string, error) {
	ext := filepath.Ext(header.Filename)
	if ext == "" {
		ext = ".png"
	}
	tmp, err := os.CreateTemp("", "upload-*"+ext)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer tmp.Close()

	if _, err := io.Copy(tmp, file); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("save upload: %w", err)
	}
	return tmp.Name(), nil
}

// handleReceiptUpload scans a receipt image for its total and records it as
// an expense.
func (s *Server) handleReceiptUpload(w http.ResponseWriter, r *http.Request, userID int64) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if err := r.ParseMultipartForm(maxUploadSize); err != nil && err != http.ErrNotMultipart {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	text, err := s.uploadText(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	amount := extract.ReceiptAmount(text)
	if amount == 0 {
		writeError(w, http.StatusUnprocessableEntity, "no plausible total found on the receipt")
		return
	}

	expense := core.Expense{
		UserID:      userID,
		Description: scannedReceiptDescription,
		Category:    s.detector.Detect("receipt"),
		Amount:      amount,
	}
	id, err := s.storage.CreateExpense(r.Context(), expense)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.publishEvent(r.Context(), amqp.NewExportEvent(id))

	expense.ID = id
	writeJSON(w, http.StatusCreated, expense)
}

// handleScreenshotUpload parses a payment screenshot into counterparty,
// direction and amount. Outgoing payments are also recorded as expenses.
func (s *Server) handleScreenshotUpload(w http.ResponseWriter, r *http.Request, userID int64) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if err := r.ParseMultipartForm(maxUploadSize); err != nil && err != http.ErrNotMultipart {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	text, err := s.uploadText(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	details := extract.PaymentDetails(text)

	response := map[string]any{
		"counterparty": details.Counterparty,
		"description":  details.Description,
		"amount":       details.Amount,
		"direction":    string(details.Direction),
	}

	if details.Direction != core.Send || details.Amount == 0 {
		writeJSON(w, http.StatusOK, response)
		return
	}

	description := details.Description
	if details.Counterparty != extract.UnknownCounterparty {
		description = "Payment to " + details.Counterparty
	}

	expense := core.Expense{
		UserID:      userID,
		Description: description,
		Category:    s.detector.Detect(description),
		Amount:      details.Amount,
	}
	id, err := s.storage.CreateExpense(r.Context(), expense)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.publishEvent(r.Context(), amqp.NewExportEvent(id))

	response["expense_id"] = id
	writeJSON(w, http.StatusCreated, response)
}
