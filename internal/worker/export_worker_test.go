package worker

import (
	"context"
	"errors"
	"testing"

	"expensio/internal/amqp"
	"expensio/internal/core"
)

type fakeReader struct {
	expenses map[int64]core.Expense
	exported map[int64]bool
}

func newFakeReader(expenses ...core.Expense) *fakeReader {
	f := &fakeReader{
		expenses: make(map[int64]core.Expense),
		exported: make(map[int64]bool),
	}
	for _, e := range expenses {
		f.expenses[e.ID] = e
	}
	return f
}

func (f *fakeReader) GetExpense(ctx context.Context, id int64) (core.Expense, error) {
	e, ok := f.expenses[id]
	if !ok {
		return core.Expense{}, core.ErrNotFound
	}
	return e, nil
}

func (f *fakeReader) ListUnexported(ctx context.Context, limit int) ([]core.Expense, error) {
	var out []core.Expense
	for _, e := range f.expenses {
		if e.Status == core.StatusApproved && !f.exported[e.ID] {
			out = append(out, e)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeReader) MarkExported(ctx context.Context, id int64) error {
	f.exported[id] = true
	return nil
}

type fakeLedger struct {
	appended []int64
	fail     bool
}

func (f *fakeLedger) Append(ctx context.Context, e core.Expense) error {
	if f.fail {
		return errors.New("sheets unavailable")
	}
	f.appended = append(f.appended, e.ID)
	return nil
}

func approvedExpense(id int64) core.Expense {
	return core.Expense{
		ID:       id,
		UserID:   1,
		Amount:   core.Money{Cents: 5000},
		Category: core.CategoryFood,
		Status:   core.StatusApproved,
	}
}

func TestHandleEventExportsApproval(t *testing.T) {
	store := newFakeReader(approvedExpense(7))
	ledger := &fakeLedger{}
	w := NewExportWorker(store, ledger, 10)

	msg := &amqp.ExpenseEventMessage{Type: amqp.EventExpenseApproved, ExpenseID: 7}
	if err := w.HandleEvent(context.Background(), msg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ledger.appended) != 1 || ledger.appended[0] != 7 {
		t.Fatalf("expected expense 7 appended, got %v", ledger.appended)
	}
	if !store.exported[7] {
		t.Fatal("expense not marked exported")
	}
}

func TestHandleEventIgnoresOtherTypes(t *testing.T) {
	store := newFakeReader(approvedExpense(7))
	ledger := &fakeLedger{}
	w := NewExportWorker(store, ledger, 10)

	for _, typ := range []string{amqp.EventExpenseCreated, amqp.EventExpenseRejected, amqp.EventExpenseDeleted} {
		msg := &amqp.ExpenseEventMessage{Type: typ, ExpenseID: 7}
		if err := w.HandleEvent(context.Background(), msg); err != nil {
			t.Fatalf("%s: unexpected error: %v", typ, err)
		}
	}
	if len(ledger.appended) != 0 {
		t.Fatalf("non-approval events must not export, got %v", ledger.appended)
	}
}

func TestHandleEventMissingExpense(t *testing.T) {
	w := NewExportWorker(newFakeReader(), &fakeLedger{}, 10)

	// Deleted before delivery: acknowledged without error, no requeue loop.
	msg := &amqp.ExpenseEventMessage{Type: amqp.EventExpenseApproved, ExpenseID: 404}
	if err := w.HandleEvent(context.Background(), msg); err != nil {
		t.Fatalf("missing expense must not error: %v", err)
	}
}

func TestHandleEventLedgerFailure(t *testing.T) {
	store := newFakeReader(approvedExpense(7))
	w := NewExportWorker(store, &fakeLedger{fail: true}, 10)

	msg := &amqp.ExpenseEventMessage{Type: amqp.EventExpenseApproved, ExpenseID: 7}
	if err := w.HandleEvent(context.Background(), msg); err == nil {
		t.Fatal("ledger failure must surface so the message is retried")
	}
	if store.exported[7] {
		t.Fatal("failed export must not be marked exported")
	}
}

func TestProcessUnexported(t *testing.T) {
	store := newFakeReader(approvedExpense(1), approvedExpense(2))
	ledger := &fakeLedger{}
	w := NewExportWorker(store, ledger, 10)

	if err := w.ProcessUnexported(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ledger.appended) != 2 {
		t.Fatalf("expected both expenses exported, got %v", ledger.appended)
	}

	// A second pass finds nothing left to do.
	ledger.appended = nil
	if err := w.ProcessUnexported(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ledger.appended) != 0 {
		t.Fatalf("already-exported rows must be skipped, got %v", ledger.appended)
	}
}

func TestStartupCheckContinuesPastFailures(t *testing.T) {
	store := newFakeReader(approvedExpense(1))
	w := NewExportWorker(store, &fakeLedger{fail: true}, 10)

	if err := w.StartupCheck(context.Background()); err != nil {
		t.Fatalf("startup check must tolerate per-row failures: %v", err)
	}
	if store.exported[1] {
		t.Fatal("failed row must stay unexported")
	}
}
