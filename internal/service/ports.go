package service

import (
	"context"

	"expensio/internal/core"
	"expensio/internal/query"
)

// ExpenseStore is the persistence contract the lifecycle manager depends on.
// Implementations must apply TransitionStatus as a single atomic update
// conditioned on the prior status being PENDING.
type ExpenseStore interface {
	CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error)
	GetExpense(ctx context.Context, id int64) (core.Expense, error)
	UpdateExpense(ctx context.Context, id int64, p core.ExpensePatch) (core.Expense, error)
	DeleteExpense(ctx context.Context, id int64) error
	TransitionStatus(ctx context.Context, id int64, target core.Status, reason string) (core.Expense, error)
	ListExpenses(ctx context.Context, f query.Filter) ([]core.Expense, error)
	CountExpenses(ctx context.Context, f query.Filter) (int, error)
}

// UserStore is the persistence contract for user accounts.
type UserStore interface {
	CreateUser(ctx context.Context, u core.User) (core.User, error)
	GetUser(ctx context.Context, id int64) (core.User, error)
	GetUserByEmail(ctx context.Context, email string) (core.User, error)
}

// EventPublisher emits lifecycle events after successful mutations.
// Publishing is best-effort; failures never fail the originating request.
type EventPublisher interface {
	PublishExpenseEvent(ctx context.Context, eventType string, expenseID, version int64) error
}
