// Package storage persists users and expenses in SQLite.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"kharcha/internal/core"

	_ "modernc.org/sqlite"
)

const dateLayout = "2006-01-02"

// Export states for the sheets sync worker.
const (
	SyncPending = "pending"
	SyncDone    = "synced"
	SyncError   = "error"
)

var ErrNotFound = errors.New("not found")

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// CreateUser stores a new account. Email uniqueness is enforced by schema.
func (r *SQLiteRepository) CreateUser(ctx context.Context, name, email, passwordHash string) (core.User, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (name, email, password_hash) VALUES (?, ?, ?)`,
		name, email, passwordHash)
	if err != nil {
		return core.User{}, fmt.Errorf("create user: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return core.User{}, fmt.Errorf("user insert id: %w", err)
	}
	return core.User{ID: id, Name: name, Email: email, PasswordHash: passwordHash}, nil
}

// GetUserByEmail returns ErrNotFound when no such account exists.
func (r *SQLiteRepository) GetUserByEmail(ctx context.Context, email string) (core.User, error) {
	var u core.User
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, email, password_hash FROM users WHERE email = ?`, email).
		Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, ErrNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

// CreateExpense persists an expense and returns its ID. New rows start in
// the pending export state.
func (r *SQLiteRepository) CreateExpense(ctx context.Context, e core.Expense) (int64, error) {
	if err := e.Validate(); err != nil {
		return 0, fmt.Errorf("validate expense: %w", err)
	}

	date := e.Date
	if date.IsZero() {
		date = time.Now().UTC()
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO expenses (user_id, description, category, amount, expense_date, sync_status)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.UserID, e.Description, string(e.Category), e.Amount, date.Format(dateLayout), SyncPending)
	if err != nil {
		return 0, fmt.Errorf("create expense: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("expense insert id: %w", err)
	}
	return id, nil
}

// UpdateExpense rewrites description and amount of the user's own expense.
func (r *SQLiteRepository) UpdateExpense(ctx context.Context, id, userID int64, description string, amount float64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE expenses SET description = ?, amount = ? WHERE id = ? AND user_id = ?`,
		description, amount, id, userID)
	if err != nil {
		return fmt.Errorf("update expense: %w", err)
	}
	return requireRow(res)
}

// DeleteExpense removes the user's own expense.
func (r *SQLiteRepository) DeleteExpense(ctx context.Context, id, userID int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM expenses WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListExpenses returns a user's expenses, most recent first.
func (r *SQLiteRepository) ListExpenses(ctx context.Context, userID int64) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, description, category, amount, expense_date, created_at
		 FROM expenses WHERE user_id = ? ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	return scanExpenses(rows)
}

// History returns a user's (date, amount) records ordered by date, the
// forecaster's input shape.
func (r *SQLiteRepository) History(ctx context.Context, userID int64) ([]core.ExpenseRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT expense_date, amount FROM expenses WHERE user_id = ? ORDER BY expense_date ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("expense history: %w", err)
	}
	defer rows.Close()

	var history []core.ExpenseRecord
	for rows.Next() {
		var dateStr string
		var rec core.ExpenseRecord
		if err := rows.Scan(&dateStr, &rec.Amount); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		rec.Date, err = parseDate(dateStr)
		if err != nil {
			return nil, err
		}
		history = append(history, rec)
	}
	return history, rows.Err()
}

// TrainingData returns every (description, category) pair on record, across
// all users; the classifier's fallback is trained on the full corpus.
func (r *SQLiteRepository) TrainingData(ctx context.Context) ([]core.TrainingExample, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT description, category FROM expenses`)
	if err != nil {
		return nil, fmt.Errorf("training data: %w", err)
	}
	defer rows.Close()

	var examples []core.TrainingExample
	for rows.Next() {
		var ex core.TrainingExample
		var category string
		if err := rows.Scan(&ex.Description, &category); err != nil {
			return nil, fmt.Errorf("scan training row: %w", err)
		}
		ex.Category = core.Category(category)
		examples = append(examples, ex)
	}
	return examples, rows.Err()
}

// CategoryTotals sums a user's spend per category.
func (r *SQLiteRepository) CategoryTotals(ctx context.Context, userID int64) ([]core.CategoryAmount, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT category, SUM(amount) FROM expenses WHERE user_id = ? GROUP BY category ORDER BY category`, userID)
	if err != nil {
		return nil, fmt.Errorf("category totals: %w", err)
	}
	defer rows.Close()

	var totals []core.CategoryAmount
	for rows.Next() {
		var ca core.CategoryAmount
		var category string
		if err := rows.Scan(&category, &ca.Total); err != nil {
			return nil, fmt.Errorf("scan category total: %w", err)
		}
		ca.Category = core.Category(category)
		totals = append(totals, ca)
	}
	return totals, rows.Err()
}

// PendingExport returns up to limit expenses awaiting sheets export.
func (r *SQLiteRepository) PendingExport(ctx context.Context, limit int) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, description, category, amount, expense_date, created_at
		 FROM expenses WHERE sync_status = ? ORDER BY id ASC LIMIT ?`, SyncPending, limit)
	if err != nil {
		return nil, fmt.Errorf("pending export: %w", err)
	}
	defer rows.Close()

	return scanExpenses(rows)
}

// MarkExported flags an expense as successfully written to the sheet.
func (r *SQLiteRepository) MarkExported(ctx context.Context, id int64) error {
	return r.setSyncStatus(ctx, id, SyncDone)
}

// MarkExportError flags an expense whose export failed; it will not be
// retried until manually reset.
func (r *SQLiteRepository) MarkExportError(ctx context.Context, id int64) error {
	return r.setSyncStatus(ctx, id, SyncError)
}

func (r *SQLiteRepository) setSyncStatus(ctx context.Context, id int64, status string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE expenses SET sync_status = ? WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("set sync status: %w", err)
	}
	return requireRow(res)
}

func scanExpenses(rows *sql.Rows) ([]core.Expense, error) {
	var expenses []core.Expense
	for rows.Next() {
		var e core.Expense
		var category, dateStr, createdStr string
		if err := rows.Scan(&e.ID, &e.UserID, &e.Description, &category, &e.Amount, &dateStr, &createdStr); err != nil {
			return nil, fmt.Errorf("scan expense row: %w", err)
		}
		e.Category = core.Category(category)

		var err error
		e.Date, err = parseDate(dateStr)
		if err != nil {
			return nil, err
		}
		if t, err := time.Parse("2006-01-02 15:04:05", createdStr); err == nil {
			e.CreatedAt = t
		}
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse expense date %q: %w", s, err)
	}
	return t, nil
}
