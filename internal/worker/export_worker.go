// Package worker exports approved expenses to the external ledger. Events
// arrive over AMQP; a periodic reconcile pass covers messages lost while the
// worker was down.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"expensio/internal/amqp"
	"expensio/internal/core"
	"expensio/internal/log"
)

// ExpenseReader is the storage surface the worker needs.
type ExpenseReader interface {
	GetExpense(ctx context.Context, id int64) (core.Expense, error)
	ListUnexported(ctx context.Context, limit int) ([]core.Expense, error)
	MarkExported(ctx context.Context, id int64) error
}

// LedgerWriter appends one approved expense to the external ledger.
type LedgerWriter interface {
	Append(ctx context.Context, e core.Expense) error
}

// ExportWorker moves approved expenses from storage into the ledger.
type ExportWorker struct {
	storage   ExpenseReader
	ledger    LedgerWriter
	batchSize int
}

func NewExportWorker(storage ExpenseReader, ledger LedgerWriter, batchSize int) *ExportWorker {
	if batchSize <= 0 {
		batchSize = 10
	}
	return &ExportWorker{
		storage:   storage,
		ledger:    ledger,
		batchSize: batchSize,
	}
}

// HandleEvent processes one expense lifecycle event from AMQP. Only approval
// events trigger an export; everything else is acknowledged and dropped.
func (w *ExportWorker) HandleEvent(ctx context.Context, msg *amqp.ExpenseEventMessage) error {
	slog.InfoContext(ctx, "Processing expense event",
		log.FieldEventType, msg.Type,
		log.FieldExpenseID, msg.ExpenseID)

	if msg.Type != amqp.EventExpenseApproved {
		return nil
	}

	expense, err := w.storage.GetExpense(ctx, msg.ExpenseID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			// Deleted between approval and delivery; nothing to export.
			slog.WarnContext(ctx, "Approved expense no longer exists, skipping",
				log.FieldExpenseID, msg.ExpenseID)
			return nil
		}
		return fmt.Errorf("get expense from storage: %w", err)
	}

	return w.export(ctx, expense)
}

// ProcessUnexported exports any approved expenses the event stream missed.
// This is the backup mechanism for lost AMQP messages.
func (w *ExportWorker) ProcessUnexported(ctx context.Context) error {
	pending, err := w.storage.ListUnexported(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("list unexported expenses: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing unexported expenses", "count", len(pending))

	for _, e := range pending {
		if err := w.export(ctx, e); err != nil {
			slog.ErrorContext(ctx, "Failed to export expense",
				log.FieldExpenseID, e.ID, log.FieldError, err)
			continue
		}
	}
	return nil
}

// StartupCheck runs a larger reconcile pass when the worker boots, recovering
// from downtime.
func (w *ExportWorker) StartupCheck(ctx context.Context) error {
	pending, err := w.storage.ListUnexported(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("list unexported expenses for startup check: %w", err)
	}
	if len(pending) == 0 {
		slog.InfoContext(ctx, "No unexported expenses found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found unexported expenses on startup, processing...",
		"count", len(pending))

	exported := 0
	failed := 0
	for _, e := range pending {
		if err := w.export(ctx, e); err != nil {
			slog.ErrorContext(ctx, "Failed to export expense during startup",
				log.FieldExpenseID, e.ID, log.FieldError, err)
			failed++
			continue
		}
		exported++
	}

	slog.InfoContext(ctx, "Startup export completed",
		"total", len(pending),
		"exported", exported,
		"errors", failed)
	return nil
}

func (w *ExportWorker) export(ctx context.Context, e core.Expense) error {
	if err := w.ledger.Append(ctx, e); err != nil {
		return fmt.Errorf("append to ledger: %w", err)
	}
	if err := w.storage.MarkExported(ctx, e.ID); err != nil {
		// The append went through; leave the flag for the reconcile pass.
		slog.ErrorContext(ctx, "Failed to mark expense as exported",
			log.FieldExpenseID, e.ID, log.FieldError, err)
		return nil
	}

	slog.InfoContext(ctx, "Successfully exported expense",
		log.FieldExpenseID, e.ID,
		log.FieldAmountCents, e.Amount.Cents)
	return nil
}
