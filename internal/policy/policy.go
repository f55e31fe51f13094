// Package policy is the single source of truth for authorization decisions.
// Every predicate is a pure function over the actor role, actor id and the
// resource owner; no storage or transport concerns leak in here.
package policy

import "expensio/internal/core"

// Policy decides whether an (actor, action, resource) triple is permitted.
type Policy struct {
	// AllowSelfApproval controls whether an admin may approve or reject an
	// expense they submitted themselves. The default mirrors the historical
	// behavior of the system, which never forbade it.
	AllowSelfApproval bool
}

// Default returns the policy with self-approval permitted.
func Default() Policy {
	return Policy{AllowSelfApproval: true}
}

// CanViewExpense permits owners to see their own expenses and admins to see any.
func (p Policy) CanViewExpense(actor core.Actor, e core.Expense) bool {
	if actor.Role == core.RoleAdmin {
		return true
	}
	return e.UserID == actor.ID
}

// CanMutateExpense permits update/delete to the owning user only.
// Lifecycle state (PENDING) is checked by the lifecycle manager, not here.
func (p Policy) CanMutateExpense(actor core.Actor, e core.Expense) bool {
	return e.UserID == actor.ID
}

// CanTransitionStatus permits approve/reject to admins only. Ownership is
// irrelevant unless self-approval has been disabled.
func (p Policy) CanTransitionStatus(actor core.Actor, e core.Expense) bool {
	if actor.Role != core.RoleAdmin {
		return false
	}
	if !p.AllowSelfApproval && e.UserID == actor.ID {
		return false
	}
	return true
}

// CanViewAnalytics permits any authenticated actor; employees are scoped to
// their own data by the filter builder, admins see across all users.
func (p Policy) CanViewAnalytics(actor core.Actor) bool {
	return actor.ID != 0
}
