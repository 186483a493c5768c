package core

import (
	"errors"
	"strings"
	"time"
)

// Direction tells whether a peer-to-peer payment moved money out of or into
// the user's account.
type Direction string

const (
	Send     Direction = "Send"
	Received Direction = "Received"
)

// Category is one label out of the closed category set.
type Category string

const (
	Food     Category = "Food"
	Travel   Category = "Travel"
	Shopping Category = "Shopping"
	Bills    Category = "Bills"
	Others   Category = "Others"
)

// Categories is the closed set of labels the classifier may emit. Order is
// not significant here; the rule table in internal/classify has its own order.
var Categories = []Category{Food, Travel, Shopping, Bills, Others}

// Known reports whether c belongs to the closed category set.
func (c Category) Known() bool {
	for _, k := range Categories {
		if c == k {
			return true
		}
	}
	return false
}

type (
	// ParsedCommand is the result of parsing one line of chat-style input,
	// e.g. "spent 45.50 on coffee".
	ParsedCommand struct {
		Amount      float64
		Description string
	}

	// PaymentDetails is what can be recovered from a payment screenshot's
	// OCR text. Fields fall back to safe defaults when nothing matches.
	PaymentDetails struct {
		Counterparty string
		Description  string
		Amount       float64
		Direction    Direction
	}

	// Expense is one recorded spend for one user.
	Expense struct {
		ID          int64     `json:"id"`
		UserID      int64     `json:"user_id"`
		Description string    `json:"description"`
		Category    Category  `json:"category"`
		Amount      float64   `json:"amount"`
		Date        time.Time `json:"date"`
		CreatedAt   time.Time `json:"created_at"`
	}

	// ExpenseRecord is the minimal (date, amount) pair the forecaster needs.
	ExpenseRecord struct {
		Date   time.Time
		Amount float64
	}

	// MonthlyTotal is the sum of all expense amounts in one calendar month,
	// keyed as "YYYY-MM".
	MonthlyTotal struct {
		Month string  `json:"month"`
		Total float64 `json:"total"`
	}

	// TrainingExample feeds the classifier's statistical fallback.
	TrainingExample struct {
		Description string
		Category    Category
	}

	// CategoryAmount is an amount aggregated under one category label.
	CategoryAmount struct {
		Category Category `json:"category"`
		Total    float64  `json:"total"`
	}

	// User is an account that owns expenses.
	User struct {
		ID           int64
		Name         string
		Email        string
		PasswordHash string
	}
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyDescription = errors.New("empty description")
	ErrEmptyCategory    = errors.New("empty category")
)

// Validate checks an expense before it is persisted or exported.
func (e Expense) Validate() error {
	if e.Amount <= 0 {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(e.Description) == "" {
		return ErrEmptyDescription
	}
	if len(e.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	if strings.TrimSpace(string(e.Category)) == "" {
		return ErrEmptyCategory
	}
	return nil
}

// MonthKey formats t as the "YYYY-MM" key used for monthly grouping.
func MonthKey(t time.Time) string {
	return t.Format("2006-01")
}
