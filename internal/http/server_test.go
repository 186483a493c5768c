package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"kharcha/internal/classify"
	"kharcha/internal/log"
	"kharcha/internal/storage"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	dir := t.TempDir()

	repo, err := storage.NewSQLiteRepository(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error = %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	store := classify.NewStore(filepath.Join(dir, "model"))
	logger := log.New(slog.LevelError)
	detector := classify.NewDetector(store, logger)

	return NewServer(":0", repo, detector, nil, nil, time.Hour, logger)
}

func doForm(t *testing.T, s *Server, method, path string, form url.Values, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var body string
	if form != nil {
		body = form.Encode()
	}
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rec.Body.String())
	}
	return out
}

func signup(t *testing.T, s *Server) *http.Cookie {
	t.Helper()
	rec := doForm(t, s, http.MethodPost, "/api/signup", url.Values{
		"name":     {"Asha"},
		"email":    {"asha@example.com"},
		"password": {"correct-horse"},
	}, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("signup status = %d, body %q", rec.Code, rec.Body.String())
	}
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookieName {
			return c
		}
	}
	t.Fatal("signup did not set a session cookie")
	return nil
}

func TestHealthz(t *testing.T) {
	s := testServer(t)
	rec := doForm(t, s, http.MethodGet, "/healthz", nil, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("healthz status = %d, want 200", rec.Code)
	}
}

func TestAuthFlow(t *testing.T) {
	s := testServer(t)
	cookie := signup(t, s)

	t.Run("duplicate signup rejected", func(t *testing.T) {
		rec := doForm(t, s, http.MethodPost, "/api/signup", url.Values{
			"name":     {"Asha"},
			"email":    {"asha@example.com"},
			"password": {"correct-horse"},
		}, nil)
		if rec.Code != http.StatusConflict {
			t.Errorf("duplicate signup status = %d, want 409", rec.Code)
		}
	})

	t.Run("login with wrong password", func(t *testing.T) {
		rec := doForm(t, s, http.MethodPost, "/api/login", url.Values{
			"email":    {"asha@example.com"},
			"password": {"wrong"},
		}, nil)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("bad login status = %d, want 401", rec.Code)
		}
	})

	t.Run("login succeeds", func(t *testing.T) {
		rec := doForm(t, s, http.MethodPost, "/api/login", url.Values{
			"email":    {"asha@example.com"},
			"password": {"correct-horse"},
		}, nil)
		if rec.Code != http.StatusOK {
			t.Errorf("login status = %d, body %q", rec.Code, rec.Body.String())
		}
	})

	t.Run("expenses require auth", func(t *testing.T) {
		rec := doForm(t, s, http.MethodGet, "/api/expenses", nil, nil)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("unauthenticated status = %d, want 401", rec.Code)
		}
	})

	t.Run("logout revokes session", func(t *testing.T) {
		rec := doForm(t, s, http.MethodPost, "/api/logout", nil, cookie)
		if rec.Code != http.StatusOK {
			t.Fatalf("logout status = %d", rec.Code)
		}
		rec = doForm(t, s, http.MethodGet, "/api/expenses", nil, cookie)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status after logout = %d, want 401", rec.Code)
		}
	})
}

func TestCreateExpenseDetectsCategory(t *testing.T) {
	s := testServer(t)
	cookie := signup(t, s)

	rec := doForm(t, s, http.MethodPost, "/api/expenses", url.Values{
		"description": {"uber to airport"},
		"amount":      {"350"},
	}, cookie)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %q", rec.Code, rec.Body.String())
	}

	got := decodeJSON(t, rec)
	if got["category"] != "Travel" {
		t.Errorf("category = %v, want Travel", got["category"])
	}
}

func TestCreateExpenseManualCategory(t *testing.T) {
	s := testServer(t)
	cookie := signup(t, s)

	rec := doForm(t, s, http.MethodPost, "/api/expenses", url.Values{
		"description": {"uber to airport"},
		"amount":      {"350"},
		"category":    {"Bills"},
	}, cookie)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %q", rec.Code, rec.Body.String())
	}

	got := decodeJSON(t, rec)
	if got["category"] != "Bills" {
		t.Errorf("category = %v, want Bills", got["category"])
	}
}

func TestCreateExpenseInvalidAmount(t *testing.T) {
	s := testServer(t)
	cookie := signup(t, s)

	rec := doForm(t, s, http.MethodPost, "/api/expenses", url.Values{
		"description": {"pizza"},
		"amount":      {"not-a-number"},
	}, cookie)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestUpdateAndDeleteExpense(t *testing.T) {
	s := testServer(t)
	cookie := signup(t, s)

	rec := doForm(t, s, http.MethodPost, "/api/expenses", url.Values{
		"description": {"pizza"},
		"amount":      {"200"},
	}, cookie)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d", rec.Code)
	}
	created := decodeJSON(t, rec)
	id := created["id"].(float64)

	rec = doForm(t, s, http.MethodPost, "/api/expenses/update", url.Values{
		"id":          {jsonNumber(id)},
		"description": {"pizza night"},
		"amount":      {"250"},
	}, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d, body %q", rec.Code, rec.Body.String())
	}

	rec = doForm(t, s, http.MethodPost, "/api/expenses/delete", url.Values{
		"id": {jsonNumber(id)},
	}, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}

	rec = doForm(t, s, http.MethodPost, "/api/expenses/delete", url.Values{
		"id": {jsonNumber(id)},
	}, cookie)
	if rec.Code != http.StatusNotFound {
		t.Errorf("double delete status = %d, want 404", rec.Code)
	}
}

func jsonNumber(f float64) string {
	return strconv.FormatInt(int64(f), 10)
}

func TestChatAdd(t *testing.T) {
	s := testServer(t)
	cookie := signup(t, s)

	rec := doForm(t, s, http.MethodPost, "/api/chat", url.Values{
		"message": {"spent 45.50 on coffee"},
	}, cookie)
	if rec.Code != http.StatusCreated {
		t.Fatalf("chat status = %d, body %q", rec.Code, rec.Body.String())
	}

	got := decodeJSON(t, rec)
	if got["amount"] != 45.5 {
		t.Errorf("amount = %v, want 45.5", got["amount"])
	}
	if got["description"] != "coffee" {
		t.Errorf("description = %v, want coffee", got["description"])
	}
	if got["category"] != "Food" {
		t.Errorf("category = %v, want Food", got["category"])
	}
}

func TestChatUnparseable(t *testing.T) {
	s := testServer(t)
	cookie := signup(t, s)

	rec := doForm(t, s, http.MethodPost, "/api/chat", url.Values{
		"message": {"hello world"},
	}, cookie)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", rec.Code)
	}
}

func TestReceiptUploadTextField(t *testing.T) {
	s := testServer(t)
	cookie := signup(t, s)

	rec := doForm(t, s, http.MethodPost, "/api/upload/receipt", url.Values{
		"text": {"Qty 500\nGrand Total 120.50"},
	}, cookie)
	if rec.Code != http.StatusCreated {
		t.Fatalf("receipt status = %d, body %q", rec.Code, rec.Body.String())
	}

	got := decodeJSON(t, rec)
	if got["amount"] != 120.5 {
		t.Errorf("amount = %v, want 120.5", got["amount"])
	}
	if got["description"] != scannedReceiptDescription {
		t.Errorf("description = %v, want %q", got["description"], scannedReceiptDescription)
	}
}

func TestReceiptUploadNoTotal(t *testing.T) {
	s := testServer(t)
	cookie := signup(t, s)

	rec := doForm(t, s, http.MethodPost, "/api/upload/receipt", url.Values{
		"text": {"thank you for shopping"},
	}, cookie)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", rec.Code)
	}
}

func TestScreenshotUploadOutgoing(t *testing.T) {
	s := testServer(t)
	cookie := signup(t, s)

	rec := doForm(t, s, http.MethodPost, "/api/upload/screenshot", url.Values{
		"text": {"Paid to Aman Kumar\n₹500"},
	}, cookie)
	if rec.Code != http.StatusCreated {
		t.Fatalf("screenshot status = %d, body %q", rec.Code, rec.Body.String())
	}

	got := decodeJSON(t, rec)
	if got["counterparty"] != "Aman Kumar" {
		t.Errorf("counterparty = %v, want Aman Kumar", got["counterparty"])
	}
	if got["amount"] != 500.0 {
		t.Errorf("amount = %v, want 500", got["amount"])
	}
	if got["direction"] != "Send" {
		t.Errorf("direction = %v, want Send", got["direction"])
	}
	if _, ok := got["expense_id"]; !ok {
		t.Error("outgoing payment should create an expense")
	}
}

func TestScreenshotUploadIncoming(t *testing.T) {
	s := testServer(t)
	cookie := signup(t, s)

	rec := doForm(t, s, http.MethodPost, "/api/upload/screenshot", url.Values{
		"text": {"Received from Aman Kumar\n₹500"},
	}, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("screenshot status = %d, body %q", rec.Code, rec.Body.String())
	}

	got := decodeJSON(t, rec)
	if got["direction"] != "Received" {
		t.Errorf("direction = %v, want Received", got["direction"])
	}
	if _, ok := got["expense_id"]; ok {
		t.Error("incoming payment should not create an expense")
	}
}

func TestDashboard(t *testing.T) {
	s := testServer(t)
	cookie := signup(t, s)

	for _, form := range []url.Values{
		{"description": {"pizza"}, "amount": {"200"}, "date": {"2024-01-15"}},
		{"description": {"uber ride"}, "amount": {"100"}, "date": {"2024-02-15"}},
	} {
		rec := doForm(t, s, http.MethodPost, "/api/expenses", form, cookie)
		if rec.Code != http.StatusCreated {
			t.Fatalf("seed expense status = %d", rec.Code)
		}
	}

	rec := doForm(t, s, http.MethodGet, "/api/dashboard", nil, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("dashboard status = %d, body %q", rec.Code, rec.Body.String())
	}

	got := decodeJSON(t, rec)
	if got["total"] != 300.0 {
		t.Errorf("total = %v, want 300", got["total"])
	}
	monthly, ok := got["monthly_totals"].([]any)
	if !ok || len(monthly) != 2 {
		t.Errorf("monthly_totals = %v, want 2 entries", got["monthly_totals"])
	}
	// Linear trend over 200 then 100 extrapolates to 0.
	if got["forecast"] != 0.0 {
		t.Errorf("forecast = %v, want 0", got["forecast"])
	}
}
