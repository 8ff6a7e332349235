package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"paypulse/internal/core"
	"paypulse/internal/ledger"
)

// sqlTx is one user's ledger inside a database transaction. Every statement
// is scoped by user_id.
type sqlTx struct {
	tx       *sql.Tx
	dialect  Dialect
	userID   string
	readOnly bool
}

var _ ledger.Tx = (*sqlTx)(nil)

func (t *sqlTx) UserID() string { return t.userID }

func (t *sqlTx) exec(ctx context.Context, q string, args ...any) (sql.Result, error) {
	return t.tx.ExecContext(ctx, t.dialect.rebind(q), args...)
}

func (t *sqlTx) query(ctx context.Context, q string, args ...any) (*sql.Rows, error) {
	return t.tx.QueryContext(ctx, t.dialect.rebind(q), args...)
}

func (t *sqlTx) queryRow(ctx context.Context, q string, args ...any) *sql.Row {
	return t.tx.QueryRowContext(ctx, t.dialect.rebind(q), args...)
}

func (t *sqlTx) writable() error {
	if t.readOnly {
		return ledger.ErrReadOnly
	}
	return nil
}

func (t *sqlTx) Version(ctx context.Context) (int64, error) {
	var v int64
	err := t.queryRow(ctx, `SELECT version FROM ledgers WHERE user_id = ?`, t.userID).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read version: %w", err)
	}
	return v, nil
}

// Settings

func (t *sqlTx) Settings(ctx context.Context) (core.Settings, error) {
	var s core.Settings
	err := t.queryRow(ctx, `SELECT base_currency, pin_hash FROM ledgers WHERE user_id = ?`, t.userID).
		Scan(&s.BaseCurrency, &s.PinHash)
	if errors.Is(err, sql.ErrNoRows) {
		return core.DefaultSettings(), nil
	}
	if err != nil {
		return core.Settings{}, fmt.Errorf("read settings: %w", err)
	}
	return s, nil
}

func (t *sqlTx) SaveSettings(ctx context.Context, s core.Settings) error {
	if err := t.writable(); err != nil {
		return err
	}
	_, err := t.exec(ctx, `UPDATE ledgers SET base_currency = ?, pin_hash = ? WHERE user_id = ?`,
		s.BaseCurrency, s.PinHash, t.userID)
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

// Categories

const categoryColumns = `id, name, color_hex, icon_name, links_to_savings_goals, created_at`

func scanCategory(sc interface{ Scan(...any) error }) (core.Category, error) {
	var c core.Category
	err := sc.Scan(&c.ID, &c.Name, &c.ColorHex, &c.IconName, &c.LinksToSavingsGoals, timestamp{&c.CreatedAt})
	return c, err
}

func (t *sqlTx) Categories(ctx context.Context) ([]core.Category, error) {
	rows, err := t.query(ctx, `SELECT `+categoryColumns+` FROM categories WHERE user_id = ? ORDER BY lower(name)`, t.userID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	out := []core.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	ledger.SortCategories(out)
	return out, nil
}

func (t *sqlTx) Category(ctx context.Context, id string) (core.Category, error) {
	c, err := scanCategory(t.queryRow(ctx, `SELECT `+categoryColumns+` FROM categories WHERE user_id = ? AND id = ?`, t.userID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, core.NotFound("category %s not found", id)
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("get category: %w", err)
	}
	return c, nil
}

func (t *sqlTx) CreateCategory(ctx context.Context, c core.Category) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, err := t.Category(ctx, c.ID); err == nil {
		return core.Conflict("category %s already exists", c.ID)
	} else if !errors.Is(err, core.ErrNotFound) {
		return err
	}
	if err := t.checkCategoryName(ctx, c); err != nil {
		return err
	}
	_, err := t.exec(ctx, `INSERT INTO categories (user_id, `+categoryColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.userID, c.ID, c.Name, c.ColorHex, c.IconName, c.LinksToSavingsGoals, t.dialect.timeArg(c.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert category: %w", err)
	}
	return nil
}

func (t *sqlTx) UpdateCategory(ctx context.Context, c core.Category) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, err := t.Category(ctx, c.ID); err != nil {
		return err
	}
	if err := t.checkCategoryName(ctx, c); err != nil {
		return err
	}
	_, err := t.exec(ctx, `UPDATE categories SET name = ?, color_hex = ?, icon_name = ?, links_to_savings_goals = ?
		WHERE user_id = ? AND id = ?`,
		c.Name, c.ColorHex, c.IconName, c.LinksToSavingsGoals, t.userID, c.ID)
	if err != nil {
		return fmt.Errorf("update category: %w", err)
	}
	return nil
}

func (t *sqlTx) checkCategoryName(ctx context.Context, c core.Category) error {
	all, err := t.Categories(ctx)
	if err != nil {
		return err
	}
	return ledger.CheckCategoryName(all, c)
}

func (t *sqlTx) DeleteCategory(ctx context.Context, id string) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, err := t.Category(ctx, id); err != nil {
		return err
	}
	usage, err := t.CategoryUsage(ctx, id)
	if err != nil {
		return err
	}
	if usage.InUse() {
		return core.Conflict("category %s is still referenced", id)
	}
	if _, err := t.exec(ctx, `DELETE FROM categories WHERE user_id = ? AND id = ?`, t.userID, id); err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return nil
}

func (t *sqlTx) CategoryUsage(ctx context.Context, id string) (ledger.Usage, error) {
	var u ledger.Usage
	err := t.queryRow(ctx, `SELECT
		(SELECT COUNT(*) FROM expenses WHERE user_id = ? AND category_id = ?),
		(SELECT COUNT(*) FROM budgets WHERE user_id = ? AND category_id = ?)`,
		t.userID, id, t.userID, id).Scan(&u.Expenses, &u.Budgets)
	if err != nil {
		return ledger.Usage{}, fmt.Errorf("category usage: %w", err)
	}
	return u, nil
}

func (t *sqlTx) ReassignCategory(ctx context.Context, from, to string) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, err := t.Category(ctx, to); err != nil {
		return err
	}
	for _, table := range []string{"expenses", "budgets"} {
		if _, err := t.exec(ctx, `UPDATE `+table+` SET category_id = ? WHERE user_id = ? AND category_id = ?`, to, t.userID, from); err != nil {
			return fmt.Errorf("reassign %s: %w", table, err)
		}
	}
	return nil
}

// Expenses

const expenseColumns = `id, amount, expense_date, merchant, note, category_id, savings_goal_id, created_at`

func scanExpense(sc interface{ Scan(...any) error }) (core.Expense, error) {
	var (
		e    core.Expense
		goal sql.NullString
	)
	err := sc.Scan(&e.ID, &e.Amount, &e.ExpenseDate, &e.Merchant, &e.Note, &e.CategoryID, &goal, timestamp{&e.CreatedAt})
	e.SavingsGoalID = goal.String
	return e, err
}

func (t *sqlTx) Expenses(ctx context.Context, f ledger.ExpenseFilter) ([]core.Expense, error) {
	var (
		where = []string{"user_id = ?"}
		args  = []any{t.userID}
	)
	if !f.From.IsZero() {
		where = append(where, "expense_date >= ?")
		args = append(args, f.From)
	}
	if !f.To.IsZero() {
		where = append(where, "expense_date <= ?")
		args = append(args, f.To)
	}
	if f.CategoryID != "" {
		where = append(where, "category_id = ?")
		args = append(args, f.CategoryID)
	}
	if f.SavingsGoalID != "" {
		where = append(where, "savings_goal_id = ?")
		args = append(args, f.SavingsGoalID)
	}
	q := `SELECT ` + expenseColumns + ` FROM expenses WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY expense_date DESC, created_at DESC, id DESC`
	if f.Limit > 0 {
		q += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := t.query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	out := []core.Expense{}
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (t *sqlTx) Expense(ctx context.Context, id string) (core.Expense, error) {
	e, err := scanExpense(t.queryRow(ctx, `SELECT `+expenseColumns+` FROM expenses WHERE user_id = ? AND id = ?`, t.userID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, core.NotFound("expense %s not found", id)
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense: %w", err)
	}
	return e, nil
}

func (t *sqlTx) CreateExpense(ctx context.Context, e core.Expense) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, err := t.Expense(ctx, e.ID); err == nil {
		return core.Conflict("expense %s already exists", e.ID)
	} else if !errors.Is(err, core.ErrNotFound) {
		return err
	}
	if err := t.checkExpenseRefs(ctx, e); err != nil {
		return err
	}
	_, err := t.exec(ctx, `INSERT INTO expenses (user_id, `+expenseColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.userID, e.ID, e.Amount, e.ExpenseDate, e.Merchant, e.Note, e.CategoryID, nullString(e.SavingsGoalID),
		t.dialect.timeArg(e.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert expense: %w", err)
	}
	return nil
}

func (t *sqlTx) UpdateExpense(ctx context.Context, e core.Expense) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, err := t.Expense(ctx, e.ID); err != nil {
		return err
	}
	if err := t.checkExpenseRefs(ctx, e); err != nil {
		return err
	}
	_, err := t.exec(ctx, `UPDATE expenses SET amount = ?, expense_date = ?, merchant = ?, note = ?,
		category_id = ?, savings_goal_id = ? WHERE user_id = ? AND id = ?`,
		e.Amount, e.ExpenseDate, e.Merchant, e.Note, e.CategoryID, nullString(e.SavingsGoalID), t.userID, e.ID)
	if err != nil {
		return fmt.Errorf("update expense: %w", err)
	}
	return nil
}

func (t *sqlTx) checkExpenseRefs(ctx context.Context, e core.Expense) error {
	if _, err := t.Category(ctx, e.CategoryID); err != nil {
		return err
	}
	if e.HasGoal() {
		if _, err := t.Goal(ctx, e.SavingsGoalID); err != nil {
			return err
		}
	}
	return nil
}

func (t *sqlTx) DeleteExpense(ctx context.Context, id string) error {
	if err := t.writable(); err != nil {
		return err
	}
	res, err := t.exec(ctx, `DELETE FROM expenses WHERE user_id = ? AND id = ?`, t.userID, id)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	return notFoundIfNone(res, "expense %s not found", id)
}

func (t *sqlTx) DetachGoal(ctx context.Context, goalID string) (int, error) {
	if err := t.writable(); err != nil {
		return 0, err
	}
	res, err := t.exec(ctx, `UPDATE expenses SET savings_goal_id = NULL WHERE user_id = ? AND savings_goal_id = ?`, t.userID, goalID)
	if err != nil {
		return 0, fmt.Errorf("detach goal: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// Budgets

const budgetColumns = `id, name, total_amount, start_date, end_date, recurring_monthly, category_id, created_at`

func scanBudget(sc interface{ Scan(...any) error }) (core.Budget, error) {
	var b core.Budget
	err := sc.Scan(&b.ID, &b.Name, &b.TotalAmount, &b.StartDate, &b.EndDate, &b.RecurringMonthly, &b.CategoryID, timestamp{&b.CreatedAt})
	return b, err
}

func (t *sqlTx) Budgets(ctx context.Context) ([]core.Budget, error) {
	rows, err := t.query(ctx, `SELECT `+budgetColumns+` FROM budgets WHERE user_id = ? ORDER BY start_date DESC, created_at DESC`, t.userID)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	out := []core.Budget{}
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (t *sqlTx) Budget(ctx context.Context, id string) (core.Budget, error) {
	b, err := scanBudget(t.queryRow(ctx, `SELECT `+budgetColumns+` FROM budgets WHERE user_id = ? AND id = ?`, t.userID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Budget{}, core.NotFound("budget %s not found", id)
	}
	if err != nil {
		return core.Budget{}, fmt.Errorf("get budget: %w", err)
	}
	return b, nil
}

func (t *sqlTx) CreateBudget(ctx context.Context, b core.Budget) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, err := t.Budget(ctx, b.ID); err == nil {
		return core.Conflict("budget %s already exists", b.ID)
	} else if !errors.Is(err, core.ErrNotFound) {
		return err
	}
	if err := t.checkBudget(ctx, b); err != nil {
		return err
	}
	_, err := t.exec(ctx, `INSERT INTO budgets (user_id, `+budgetColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.userID, b.ID, b.Name, b.TotalAmount, b.StartDate, b.EndDate, b.RecurringMonthly, b.CategoryID,
		t.dialect.timeArg(b.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert budget: %w", err)
	}
	return nil
}

func (t *sqlTx) UpdateBudget(ctx context.Context, b core.Budget) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, err := t.Budget(ctx, b.ID); err != nil {
		return err
	}
	if err := t.checkBudget(ctx, b); err != nil {
		return err
	}
	_, err := t.exec(ctx, `UPDATE budgets SET name = ?, total_amount = ?, start_date = ?, end_date = ?,
		recurring_monthly = ?, category_id = ? WHERE user_id = ? AND id = ?`,
		b.Name, b.TotalAmount, b.StartDate, b.EndDate, b.RecurringMonthly, b.CategoryID, t.userID, b.ID)
	if err != nil {
		return fmt.Errorf("update budget: %w", err)
	}
	return nil
}

func (t *sqlTx) checkBudget(ctx context.Context, b core.Budget) error {
	if _, err := t.Category(ctx, b.CategoryID); err != nil {
		return err
	}
	all, err := t.Budgets(ctx)
	if err != nil {
		return err
	}
	return ledger.CheckBudgetOverlap(all, b)
}

func (t *sqlTx) DeleteBudget(ctx context.Context, id string) error {
	if err := t.writable(); err != nil {
		return err
	}
	res, err := t.exec(ctx, `DELETE FROM budgets WHERE user_id = ? AND id = ?`, t.userID, id)
	if err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	return notFoundIfNone(res, "budget %s not found", id)
}

// Goals

const goalColumns = `id, name, label, target_amount, saved_amount, target_date, created_at`

func scanGoal(sc interface{ Scan(...any) error }) (core.SavingsGoal, error) {
	var (
		g      core.SavingsGoal
		target sql.Null[core.Date]
	)
	err := sc.Scan(&g.ID, &g.Name, &g.Label, &g.TargetAmount, &g.SavedAmount, &target, timestamp{&g.CreatedAt})
	if target.Valid {
		d := target.V
		g.TargetDate = &d
	}
	return g, err
}

func (t *sqlTx) Goals(ctx context.Context) ([]core.SavingsGoal, error) {
	rows, err := t.query(ctx, `SELECT `+goalColumns+` FROM savings_goals WHERE user_id = ? ORDER BY created_at DESC`, t.userID)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	defer rows.Close()

	out := []core.SavingsGoal{}
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (t *sqlTx) Goal(ctx context.Context, id string) (core.SavingsGoal, error) {
	g, err := scanGoal(t.queryRow(ctx, `SELECT `+goalColumns+` FROM savings_goals WHERE user_id = ? AND id = ?`, t.userID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.SavingsGoal{}, core.NotFound("savings goal %s not found", id)
	}
	if err != nil {
		return core.SavingsGoal{}, fmt.Errorf("get goal: %w", err)
	}
	return g, nil
}

func (t *sqlTx) CreateGoal(ctx context.Context, g core.SavingsGoal) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, err := t.Goal(ctx, g.ID); err == nil {
		return core.Conflict("savings goal %s already exists", g.ID)
	} else if !errors.Is(err, core.ErrNotFound) {
		return err
	}
	_, err := t.exec(ctx, `INSERT INTO savings_goals (user_id, `+goalColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.userID, g.ID, g.Name, g.Label, g.TargetAmount, g.SavedAmount, g.TargetDate, t.dialect.timeArg(g.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert goal: %w", err)
	}
	return nil
}

func (t *sqlTx) UpdateGoal(ctx context.Context, g core.SavingsGoal) error {
	if err := t.writable(); err != nil {
		return err
	}
	res, err := t.exec(ctx, `UPDATE savings_goals SET name = ?, label = ?, target_amount = ?, saved_amount = ?,
		target_date = ? WHERE user_id = ? AND id = ?`,
		g.Name, g.Label, g.TargetAmount, g.SavedAmount, g.TargetDate, t.userID, g.ID)
	if err != nil {
		return fmt.Errorf("update goal: %w", err)
	}
	return notFoundIfNone(res, "savings goal %s not found", g.ID)
}

func (t *sqlTx) DeleteGoal(ctx context.Context, id string) error {
	if err := t.writable(); err != nil {
		return err
	}
	res, err := t.exec(ctx, `DELETE FROM savings_goals WHERE user_id = ? AND id = ?`, t.userID, id)
	if err != nil {
		return fmt.Errorf("delete goal: %w", err)
	}
	return notFoundIfNone(res, "savings goal %s not found", id)
}

func notFoundIfNone(res sql.Result, format string, args ...any) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return core.NotFound(format, args...)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// timestamp scans TIMESTAMPTZ values and the fixed-width text used on SQLite.
type timestamp struct{ t *time.Time }

func (ts timestamp) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		*ts.t = v.UTC()
		return nil
	case string:
		return ts.parse(v)
	case []byte:
		return ts.parse(string(v))
	case nil:
		*ts.t = time.Time{}
		return nil
	}
	return fmt.Errorf("cannot scan %T into timestamp", src)
}

func (ts timestamp) parse(s string) error {
	v, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	*ts.t = v.UTC()
	return nil
}
