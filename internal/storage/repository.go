// Package storage persists users and expenses in SQLite. It is the single
// source of truth across requests; status transitions are applied as atomic
// conditional updates so concurrent writers cannot double-process an expense.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"expensio/internal/core"
	"expensio/internal/query"

	_ "modernc.org/sqlite"
)

const (
	timeLayout = time.RFC3339
	dateLayout = "2006-01-02"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Run migrations
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

// CreateUser inserts a new user row and returns it with its assigned id.
func (r *SQLiteRepository) CreateUser(ctx context.Context, u core.User) (core.User, error) {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (email, name, password_hash, role, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		u.Email, u.Name, u.PasswordHash, string(u.Role),
		now.Format(timeLayout), now.Format(timeLayout))
	if err != nil {
		return core.User{}, fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.User{}, fmt.Errorf("user insert id: %w", err)
	}
	u.ID = id
	u.CreatedAt = now
	u.UpdatedAt = now

	slog.InfoContext(ctx, "User created", "user_id", id, "email", u.Email, "role", u.Role)
	return u, nil
}

func (r *SQLiteRepository) GetUser(ctx context.Context, id int64) (core.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, email, name, password_hash, role, created_at, updated_at
		 FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (r *SQLiteRepository) GetUserByEmail(ctx context.Context, email string) (core.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, email, name, password_hash, role, created_at, updated_at
		 FROM users WHERE email = ?`, email)
	return scanUser(row)
}

// CreateExpense inserts a new expense row and returns it with its assigned id.
func (r *SQLiteRepository) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO expenses
		 (user_id, amount_cents, category, description, expense_date, receipt_url,
		  status, rejection_reason, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.UserID, e.Amount.Cents, string(e.Category), e.Description,
		e.Date.UTC().Format(dateLayout), e.ReceiptURL,
		string(e.Status), e.RejectionReason,
		now.Format(timeLayout), now.Format(timeLayout))
	if err != nil {
		return core.Expense{}, fmt.Errorf("insert expense: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Expense{}, fmt.Errorf("expense insert id: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved",
		"expense_id", id,
		"user_id", e.UserID,
		"amount_cents", e.Amount.Cents,
		"category", e.Category)

	return r.GetExpense(ctx, id)
}

const selectExpense = `
	SELECT e.id, e.user_id, e.amount_cents, e.category, e.description,
	       e.expense_date, e.receipt_url, e.status, e.rejection_reason,
	       e.created_at, e.updated_at,
	       u.id, u.name, u.email
	FROM expenses e
	JOIN users u ON u.id = e.user_id`

// GetExpense loads a single expense with its owner summary.
func (r *SQLiteRepository) GetExpense(ctx context.Context, id int64) (core.Expense, error) {
	row := r.db.QueryRowContext(ctx, selectExpense+` WHERE e.id = ?`, id)
	e, err := scanExpense(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Expense{}, core.ErrNotFound
		}
		return core.Expense{}, fmt.Errorf("get expense: %w", err)
	}
	return e, nil
}

// UpdateExpense applies the supplied patch fields to a PENDING expense.
// The WHERE clause re-checks the status so a concurrent transition cannot be
// overwritten; a zero-row update distinguishes missing from already-processed.
func (r *SQLiteRepository) UpdateExpense(ctx context.Context, id int64, p core.ExpensePatch) (core.Expense, error) {
	sets := []string{"updated_at = ?"}
	args := []any{time.Now().UTC().Format(timeLayout)}

	if p.Amount != nil {
		sets = append(sets, "amount_cents = ?")
		args = append(args, p.Amount.Cents)
	}
	if p.Category != nil {
		sets = append(sets, "category = ?")
		args = append(args, string(*p.Category))
	}
	if p.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *p.Description)
	}
	if p.Date != nil {
		sets = append(sets, "expense_date = ?")
		args = append(args, p.Date.UTC().Format(dateLayout))
	}
	if p.ReceiptURL != nil {
		sets = append(sets, "receipt_url = ?")
		args = append(args, *p.ReceiptURL)
	}
	args = append(args, id, string(core.StatusPending))

	res, err := r.db.ExecContext(ctx,
		`UPDATE expenses SET `+strings.Join(sets, ", ")+` WHERE id = ? AND status = ?`,
		args...)
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return core.Expense{}, fmt.Errorf("update expense rows: %w", err)
	} else if n == 0 {
		return core.Expense{}, r.missingOrProcessed(ctx, id)
	}

	return r.GetExpense(ctx, id)
}

// DeleteExpense removes a PENDING expense row.
func (r *SQLiteRepository) DeleteExpense(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM expenses WHERE id = ? AND status = ?`,
		id, string(core.StatusPending))
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("delete expense rows: %w", err)
	} else if n == 0 {
		return r.missingOrProcessed(ctx, id)
	}

	slog.InfoContext(ctx, "Expense deleted", "expense_id", id)
	return nil
}

// TransitionStatus moves a PENDING expense to a terminal status.
//
// The read-check and write happen in one conditional UPDATE so that of two
// concurrent transition attempts at most one succeeds; the loser observes the
// completed update and gets ErrInvalidState.
func (r *SQLiteRepository) TransitionStatus(ctx context.Context, id int64, target core.Status, reason string) (core.Expense, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE expenses SET status = ?, rejection_reason = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		string(target), reason, time.Now().UTC().Format(timeLayout),
		id, string(core.StatusPending))
	if err != nil {
		return core.Expense{}, fmt.Errorf("transition expense: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return core.Expense{}, fmt.Errorf("transition expense rows: %w", err)
	} else if n == 0 {
		return core.Expense{}, r.missingOrProcessed(ctx, id)
	}

	slog.InfoContext(ctx, "Expense status transitioned", "expense_id", id, "status", target)
	return r.GetExpense(ctx, id)
}

// missingOrProcessed classifies a zero-row conditional write.
func (r *SQLiteRepository) missingOrProcessed(ctx context.Context, id int64) error {
	var status string
	err := r.db.QueryRowContext(ctx, `SELECT status FROM expenses WHERE id = ?`, id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return core.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("check expense status: %w", err)
	}
	return fmt.Errorf("%w: expense has already been processed", core.ErrInvalidState)
}

// ListExpenses returns the filtered expenses, newest-created first with id as
// the stable tiebreak. A zero filter limit reads the whole scoped set.
func (r *SQLiteRepository) ListExpenses(ctx context.Context, f query.Filter) ([]core.Expense, error) {
	where, args := filterClause(f)
	q := selectExpense + where + ` ORDER BY e.created_at DESC, e.id DESC`
	if f.Limit > 0 {
		q += ` LIMIT ? OFFSET ?`
		args = append(args, f.Limit, f.Offset)
	}

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var out []core.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expenses: %w", err)
	}
	return out, nil
}

// CountExpenses returns the total row count for the filter, ignoring pagination.
func (r *SQLiteRepository) CountExpenses(ctx context.Context, f query.Filter) (int, error) {
	where, args := filterClause(f)
	var total int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM expenses e`+where, args...).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("count expenses: %w", err)
	}
	return total, nil
}

// ListUnexported returns approved expenses not yet appended to the ledger.
func (r *SQLiteRepository) ListUnexported(ctx context.Context, limit int) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx,
		selectExpense+` WHERE e.status = ? AND e.exported = 0 ORDER BY e.id ASC LIMIT ?`,
		string(core.StatusApproved), limit)
	if err != nil {
		return nil, fmt.Errorf("list unexported expenses: %w", err)
	}
	defer rows.Close()

	var out []core.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate unexported expenses: %w", err)
	}
	return out, nil
}

// MarkExported records that an approved expense reached the ledger.
func (r *SQLiteRepository) MarkExported(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE expenses SET exported = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark expense exported: %w", err)
	}
	slog.InfoContext(ctx, "Expense marked as exported", "expense_id", id)
	return nil
}

func filterClause(f query.Filter) (string, []any) {
	var conds []string
	var args []any

	if f.OwnerID != nil {
		conds = append(conds, "e.user_id = ?")
		args = append(args, *f.OwnerID)
	}
	if f.Status != nil {
		conds = append(conds, "e.status = ?")
		args = append(args, string(*f.Status))
	}
	if f.Category != nil {
		conds = append(conds, "e.category = ?")
		args = append(args, string(*f.Category))
	}
	if f.DateFrom != nil {
		conds = append(conds, "e.expense_date >= ?")
		args = append(args, f.DateFrom.UTC().Format(dateLayout))
	}
	if f.DateTo != nil {
		conds = append(conds, "e.expense_date <= ?")
		args = append(args, f.DateTo.UTC().Format(dateLayout))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (core.User, error) {
	var u core.User
	var role, createdAt, updatedAt string
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &role, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.User{}, core.ErrNotFound
		}
		return core.User{}, fmt.Errorf("scan user: %w", err)
	}
	u.Role = core.Role(role)
	u.CreatedAt = parseTime(createdAt)
	u.UpdatedAt = parseTime(updatedAt)
	return u, nil
}

func scanExpense(row rowScanner) (core.Expense, error) {
	var e core.Expense
	var category, status, date, createdAt, updatedAt string
	var owner core.UserSummary
	err := row.Scan(
		&e.ID, &e.UserID, &e.Amount.Cents, &category, &e.Description,
		&date, &e.ReceiptURL, &status, &e.RejectionReason,
		&createdAt, &updatedAt,
		&owner.ID, &owner.Name, &owner.Email)
	if err != nil {
		return core.Expense{}, err
	}
	e.Category = core.Category(category)
	e.Status = core.Status(status)
	e.Date = parseDate(date)
	e.CreatedAt = parseTime(createdAt)
	e.UpdatedAt = parseTime(updatedAt)
	e.Owner = &owner
	return e, nil
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func parseDate(s string) time.Time {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		// A malformed date degrades to the zero time; analytics drops such
		// rows from the monthly rollup without failing the whole query.
		return time.Time{}
	}
	return t
}
