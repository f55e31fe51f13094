// Package service implements the expense lifecycle: creation, edits and
// deletion while pending, and the terminal approve/reject transitions. All
// authorization decisions are delegated to the policy package; persistence and
// eventing are injected at construction time.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"expensio/internal/amqp"
	"expensio/internal/analytics"
	"expensio/internal/core"
	"expensio/internal/log"
	"expensio/internal/policy"
	"expensio/internal/query"
)

// ExpenseService orchestrates expense operations across storage, policy and
// the event pipeline.
type ExpenseService struct {
	store        ExpenseStore
	policy       policy.Policy
	events       EventPublisher
	ceilingCents int64

	// now is the clock used for date validation; overridable in tests.
	now func() time.Time
}

func NewExpenseService(store ExpenseStore, pol policy.Policy, events EventPublisher, ceilingCents int64) *ExpenseService {
	if ceilingCents <= 0 {
		ceilingCents = core.DefaultAmountCeilingCents
	}
	return &ExpenseService{
		store:        store,
		policy:       pol,
		events:       events,
		ceilingCents: ceilingCents,
		now:          time.Now,
	}
}

// Create validates the input and persists a new PENDING expense owned by the actor.
func (s *ExpenseService) Create(ctx context.Context, actor core.Actor, input core.ExpenseInput) (core.Expense, error) {
	if actor.ID == 0 {
		return core.Expense{}, core.ErrUnauthenticated
	}
	if err := input.Validate(s.ceilingCents, s.now()); err != nil {
		return core.Expense{}, err
	}

	e := core.Expense{
		UserID:      actor.ID,
		Amount:      input.Amount,
		Category:    input.Category,
		Description: input.Description,
		Date:        core.DateOnly(input.Date),
		ReceiptURL:  input.ReceiptURL,
		Status:      core.StatusPending,
	}

	stored, err := s.store.CreateExpense(ctx, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}

	s.publishEvent(ctx, amqp.EventExpenseCreated, stored.ID)
	return stored, nil
}

// Get loads a single expense, applying the view policy.
func (s *ExpenseService) Get(ctx context.Context, actor core.Actor, id int64) (core.Expense, error) {
	if actor.ID == 0 {
		return core.Expense{}, core.ErrUnauthenticated
	}

	e, err := s.store.GetExpense(ctx, id)
	if err != nil {
		return core.Expense{}, err
	}
	if !s.policy.CanViewExpense(actor, e) {
		return core.Expense{}, core.ErrForbidden
	}
	return e, nil
}

// List returns the actor-scoped expense page for the given filter parameters.
func (s *ExpenseService) List(ctx context.Context, actor core.Actor, params query.Params) ([]core.Expense, query.Pagination, error) {
	if actor.ID == 0 {
		return nil, query.Pagination{}, core.ErrUnauthenticated
	}

	f, err := query.Build(actor, params)
	if err != nil {
		return nil, query.Pagination{}, err
	}

	expenses, err := s.store.ListExpenses(ctx, f)
	if err != nil {
		return nil, query.Pagination{}, fmt.Errorf("list expenses: %w", err)
	}
	total, err := s.store.CountExpenses(ctx, f)
	if err != nil {
		return nil, query.Pagination{}, fmt.Errorf("count expenses: %w", err)
	}

	return expenses, f.Paginate(total), nil
}

// Update applies a partial edit to a PENDING expense owned by the actor.
func (s *ExpenseService) Update(ctx context.Context, actor core.Actor, id int64, patch core.ExpensePatch) (core.Expense, error) {
	if actor.ID == 0 {
		return core.Expense{}, core.ErrUnauthenticated
	}

	e, err := s.store.GetExpense(ctx, id)
	if err != nil {
		return core.Expense{}, err
	}
	if !s.policy.CanMutateExpense(actor, e) {
		return core.Expense{}, core.ErrForbidden
	}
	if e.Status != core.StatusPending {
		return core.Expense{}, fmt.Errorf("%w: only pending expenses can be updated", core.ErrInvalidState)
	}
	if patch.Empty() {
		return e, nil
	}
	if err := patch.Validate(s.ceilingCents, s.now()); err != nil {
		return core.Expense{}, err
	}
	if patch.Date != nil {
		d := core.DateOnly(*patch.Date)
		patch.Date = &d
	}

	updated, err := s.store.UpdateExpense(ctx, id, patch)
	if err != nil {
		return core.Expense{}, err
	}
	return updated, nil
}

// Delete removes a PENDING expense owned by the actor.
func (s *ExpenseService) Delete(ctx context.Context, actor core.Actor, id int64) error {
	if actor.ID == 0 {
		return core.ErrUnauthenticated
	}

	e, err := s.store.GetExpense(ctx, id)
	if err != nil {
		return err
	}
	if !s.policy.CanMutateExpense(actor, e) {
		return core.ErrForbidden
	}
	if e.Status != core.StatusPending {
		return fmt.Errorf("%w: only pending expenses can be deleted", core.ErrInvalidState)
	}

	if err := s.store.DeleteExpense(ctx, id); err != nil {
		return err
	}

	s.publishEvent(ctx, amqp.EventExpenseDeleted, id)
	return nil
}

// Transition moves a PENDING expense to APPROVED or REJECTED.
//
// A second transition attempt on an already-processed expense always fails
// with ErrInvalidState, never silently succeeds: the storage layer applies
// the write conditioned on the prior status, so concurrent admins cannot
// both win.
func (s *ExpenseService) Transition(ctx context.Context, actor core.Actor, id int64, target core.Status, rejectionReason string) (core.Expense, error) {
	if actor.ID == 0 {
		return core.Expense{}, core.ErrUnauthenticated
	}
	if actor.Role != core.RoleAdmin {
		return core.Expense{}, core.ErrForbidden
	}

	e, err := s.store.GetExpense(ctx, id)
	if err != nil {
		return core.Expense{}, err
	}
	if !s.policy.CanTransitionStatus(actor, e) {
		return core.Expense{}, core.ErrForbidden
	}
	if e.Status != core.StatusPending {
		return core.Expense{}, fmt.Errorf("%w: expense has already been processed", core.ErrInvalidState)
	}

	var reason string
	switch target {
	case core.StatusRejected:
		if err := core.ValidateRejectionReason(rejectionReason); err != nil {
			return core.Expense{}, err
		}
		reason = strings.TrimSpace(rejectionReason)
	case core.StatusApproved:
		// Any supplied reason is discarded on approval.
		reason = ""
	default:
		return core.Expense{}, core.NewValidationError("status", "target status must be APPROVED or REJECTED")
	}

	updated, err := s.store.TransitionStatus(ctx, id, target, reason)
	if err != nil {
		return core.Expense{}, err
	}

	event := amqp.EventExpenseApproved
	if target == core.StatusRejected {
		event = amqp.EventExpenseRejected
	}
	s.publishEvent(ctx, event, id)

	return updated, nil
}

// Analytics computes the rollup summary over the actor-scoped, date-filtered
// set. No status filter applies here; analytics spans all statuses in scope.
func (s *ExpenseService) Analytics(ctx context.Context, actor core.Actor, params query.Params) (analytics.Summary, error) {
	if actor.ID == 0 {
		return analytics.Summary{}, core.ErrUnauthenticated
	}
	if !s.policy.CanViewAnalytics(actor) {
		return analytics.Summary{}, core.ErrForbidden
	}

	params.Status = nil
	params.Category = nil
	params.Page = 0
	params.Limit = 0
	f, err := query.Build(actor, params)
	if err != nil {
		return analytics.Summary{}, err
	}

	expenses, err := s.store.ListExpenses(ctx, f.Unpaged())
	if err != nil {
		return analytics.Summary{}, fmt.Errorf("list expenses for analytics: %w", err)
	}

	return analytics.Summarize(expenses), nil
}

func (s *ExpenseService) publishEvent(ctx context.Context, eventType string, expenseID int64) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishExpenseEvent(ctx, eventType, expenseID, 1); err != nil {
		// Don't fail the request; the reconcile pass picks up missed exports.
		slog.ErrorContext(ctx, "Failed to publish expense event",
			log.FieldEventType, eventType,
			log.FieldExpenseID, expenseID,
			log.FieldError, err)
	}
}
