// Package worker runs the background jobs behind the web process: classifier
// retraining and spreadsheet export.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"kharcha/internal/amqp"
	"kharcha/internal/classify"
	"kharcha/internal/core"
	"kharcha/internal/sheets"
	"kharcha/internal/storage"
)

type Worker struct {
	storage   *storage.SQLiteRepository
	detector  *classify.Detector
	sheets    sheets.ExpenseWriter
	batchSize int
}

// NewWorker wires a worker. sheets may be nil when no spreadsheet is
// configured; export events are then skipped.
func NewWorker(storage *storage.SQLiteRepository, detector *classify.Detector, sheets sheets.ExpenseWriter, batchSize int) *Worker {
	return &Worker{
		storage:   storage,
		detector:  detector,
		sheets:    sheets,
		batchSize: batchSize,
	}
}

// HandleEvent processes a single model event from AMQP.
func (w *Worker) HandleEvent(ctx context.Context, msg *amqp.ModelEvent) error {
	slog.InfoContext(ctx, "Processing model event",
		"kind", msg.Kind,
		"expense_id", msg.ExpenseID)

	switch msg.Kind {
	case amqp.EventRetrain:
		return w.Retrain(ctx)
	case amqp.EventExport:
		return w.ExportPending(ctx)
	default:
		// Unknown kinds are dropped, not requeued.
		slog.WarnContext(ctx, "Unknown event kind, dropping", "kind", msg.Kind)
		return nil
	}
}

// Retrain rebuilds the classifier fallback model from the full expense
// history. Too little history is not an error; the rule tier still works.
func (w *Worker) Retrain(ctx context.Context) error {
	examples, err := w.storage.TrainingData(ctx)
	if err != nil {
		return fmt.Errorf("load training data: %w", err)
	}

	if err := w.detector.Train(examples); err != nil {
		if errors.Is(err, classify.ErrNotEnoughHistory) {
			slog.InfoContext(ctx, "Not enough history to train, skipping",
				"examples", len(examples),
				"required", classify.MinTrainingExamples)
			return nil
		}
		return fmt.Errorf("train classifier: %w", err)
	}

	slog.InfoContext(ctx, "Classifier model rebuilt", "examples", len(examples))
	return nil
}

// ExportPending pushes up to one batch of pending expenses to the sheet.
// Rows that fail to append are marked errored and not retried.
func (w *Worker) ExportPending(ctx context.Context) error {
	if w.sheets == nil {
		slog.InfoContext(ctx, "No sheet writer configured, skipping export")
		return nil
	}

	pending, err := w.storage.PendingExport(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending expenses: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Exporting pending expenses", "count", len(pending))

	for _, expense := range pending {
		if err := w.exportExpense(ctx, expense); err != nil {
			slog.ErrorContext(ctx, "Failed to export expense",
				"id", expense.ID, "error", err)
			continue
		}
	}
	return nil
}

func (w *Worker) exportExpense(ctx context.Context, expense core.Expense) error {
	ref, err := w.sheets.Append(ctx, expense)
	if err != nil {
		if markErr := w.storage.MarkExportError(ctx, expense.ID); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark export error",
				"id", expense.ID, "error", markErr)
		}
		return fmt.Errorf("append to sheets: %w", err)
	}

	if err := w.storage.MarkExported(ctx, expense.ID); err != nil {
		// The append itself succeeded; log and move on.
		slog.ErrorContext(ctx, "Failed to mark as exported",
			"id", expense.ID, "error", err)
		return nil
	}

	slog.InfoContext(ctx, "Exported expense",
		"id", expense.ID,
		"sheets_ref", ref,
		"description", expense.Description)
	return nil
}

// RunPeriodic retrains and exports on a fixed interval until ctx is
// cancelled. It backstops lost AMQP messages.
func (w *Worker) RunPeriodic(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.Retrain(ctx); err != nil {
				slog.ErrorContext(ctx, "Periodic retrain failed", "error", err)
			}
			if err := w.ExportPending(ctx); err != nil {
				slog.ErrorContext(ctx, "Periodic export failed", "error", err)
			}
		}
	}
}
