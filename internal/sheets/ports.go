package sheets

import (
	"context"

	"kharcha/internal/core"
)

// ExpenseWriter is the outbound port for the export worker.
type ExpenseWriter interface {
	Append(ctx context.Context, e core.Expense) (rowRef string, err error)
}
