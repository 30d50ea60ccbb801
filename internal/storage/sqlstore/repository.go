// Package sqlstore implements storage.Store on database/sql. SQLite and
// MySQL share one query set; dates are stored as UTC unix seconds and money
// as integer cents.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"spendwise/internal/core"
	"spendwise/internal/storage"
)

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Repository struct {
	db      *sql.DB
	q       querier
	dialect Dialect
	inTx    bool
}

var (
	_ storage.Store  = (*Repository)(nil)
	_ storage.Pinger = (*Repository)(nil)
)

// NewSQLiteRepository opens (creating if needed) the database file at
// dbPath and applies migrations.
func NewSQLiteRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	return open(SQLite, dbPath)
}

// NewMySQLRepository connects to dsn and applies migrations.
func NewMySQLRepository(dsn string) (*Repository, error) {
	return open(MySQL, dsn)
}

func open(d Dialect, dsn string) (*Repository, error) {
	db, err := sql.Open(d.DriverName, d.dsn(dsn))
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", d.Name, err)
	}
	d.configure(db)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(d, dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db, q: db, dialect: d}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// WithinTx runs fn inside a database transaction. A nested call joins the
// running transaction.
func (r *Repository) WithinTx(ctx context.Context, fn func(storage.Store) error) error {
	if r.inTx {
		return fn(r)
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(&Repository{db: r.db, q: tx, dialect: r.dialect, inTx: true}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			slog.ErrorContext(ctx, "Rollback failed", "error", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func unix(t time.Time) int64 { return t.UTC().Unix() }

func fromUnix(v int64) time.Time { return time.Unix(v, 0).UTC() }

func notFound(kind, id string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", kind, id, core.ErrNotFound)
	}
	return fmt.Errorf("get %s %s: %w", kind, id, err)
}

func expectOne(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s %s rows affected: %w", kind, id, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, core.ErrNotFound)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

// Transactions

const transactionColumns = `id, owner_id, txn_type, amount_cents, category, description, date_unix, source, created_at_unix, updated_at_unix`

func scanTransaction(s scanner) (core.Transaction, error) {
	var (
		t                          core.Transaction
		typ, source                string
		date, createdAt, updatedAt int64
	)
	if err := s.Scan(&t.ID, &t.OwnerID, &typ, &t.Amount.Cents, &t.Category, &t.Description, &date, &source, &createdAt, &updatedAt); err != nil {
		return core.Transaction{}, err
	}
	t.Type = core.TransactionType(typ)
	t.Source = core.Source(source)
	t.Date = fromUnix(date)
	t.CreatedAt = fromUnix(createdAt)
	t.UpdatedAt = fromUnix(updatedAt)
	return t, nil
}

func (r *Repository) CreateTransaction(ctx context.Context, t core.Transaction) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO transactions (`+transactionColumns+`, category_key) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.OwnerID, string(t.Type), t.Amount.Cents, t.Category, t.Description,
		unix(t.Date), string(t.Source), unix(t.CreatedAt), unix(t.UpdatedAt), core.CategoryKey(t.Category))
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	slog.DebugContext(ctx, "Transaction saved",
		"backend", r.dialect.Name,
		"id", t.ID,
		"amount_cents", t.Amount.Cents,
		"category", t.Category)
	return nil
}

func (r *Repository) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	t, err := scanTransaction(row)
	if err != nil {
		return core.Transaction{}, notFound("transaction", id, err)
	}
	return t, nil
}

func (r *Repository) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE transactions SET txn_type = ?, amount_cents = ?, category = ?, category_key = ?, description = ?, date_unix = ?, source = ?, updated_at_unix = ? WHERE id = ?`,
		string(t.Type), t.Amount.Cents, t.Category, core.CategoryKey(t.Category), t.Description,
		unix(t.Date), string(t.Source), unix(t.UpdatedAt), t.ID)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	return expectOne(res, "transaction", t.ID)
}

func (r *Repository) DeleteTransaction(ctx context.Context, id string) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return expectOne(res, "transaction", id)
}

func (r *Repository) ListTransactions(ctx context.Context, owner string, filter core.TransactionFilter) ([]core.Transaction, error) {
	where := []string{"owner_id = ?"}
	args := []any{owner}
	if filter.Type != "" {
		where = append(where, "txn_type = ?")
		args = append(args, string(filter.Type))
	}
	if filter.Category != "" {
		where = append(where, "category_key = ?")
		args = append(args, core.CategoryKey(filter.Category))
	}
	if filter.Window.Start != nil {
		where = append(where, "date_unix >= ?")
		args = append(args, unix(*filter.Window.Start))
	}
	if filter.Window.End != nil {
		where = append(where, "date_unix <= ?")
		args = append(args, unix(*filter.Window.End))
	}

	rows, err := r.q.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE `+strings.Join(where, " AND ")+` ORDER BY date_unix DESC, seq DESC`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Budgets

const budgetColumns = `id, owner_id, category, amount_cents, spent_cents, budget_period, start_unix, end_unix, color, note, created_at_unix, updated_at_unix`

func scanBudget(s scanner) (core.Budget, error) {
	var (
		b                           core.Budget
		period                      string
		start, createdAt, updatedAt int64
		end                         sql.NullInt64
	)
	if err := s.Scan(&b.ID, &b.OwnerID, &b.Category, &b.Amount.Cents, &b.Spent.Cents, &period,
		&start, &end, &b.Color, &b.Note, &createdAt, &updatedAt); err != nil {
		return core.Budget{}, err
	}
	b.Period = core.Period(period)
	b.StartDate = fromUnix(start)
	if end.Valid {
		e := fromUnix(end.Int64)
		b.EndDate = &e
	}
	b.CreatedAt = fromUnix(createdAt)
	b.UpdatedAt = fromUnix(updatedAt)
	return b, nil
}

func endUnix(b core.Budget) sql.NullInt64 {
	if b.EndDate == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: unix(*b.EndDate), Valid: true}
}

func (r *Repository) queryBudgets(ctx context.Context, query string, args ...any) ([]core.Budget, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query budgets: %w", err)
	}
	defer rows.Close()

	var out []core.Budget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *Repository) CreateBudget(ctx context.Context, b core.Budget) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO budgets (`+budgetColumns+`, category_key) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.OwnerID, b.Category, b.Amount.Cents, b.Spent.Cents, string(b.Period),
		unix(b.StartDate), endUnix(b), b.Color, b.Note, unix(b.CreatedAt), unix(b.UpdatedAt),
		core.CategoryKey(b.Category))
	if err != nil {
		return fmt.Errorf("insert budget: %w", err)
	}
	slog.DebugContext(ctx, "Budget saved",
		"backend", r.dialect.Name,
		"id", b.ID,
		"category", b.Category,
		"amount_cents", b.Amount.Cents)
	return nil
}

func (r *Repository) GetBudget(ctx context.Context, id string) (core.Budget, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+budgetColumns+` FROM budgets WHERE id = ?`, id)
	b, err := scanBudget(row)
	if err != nil {
		return core.Budget{}, notFound("budget", id, err)
	}
	return b, nil
}

// UpdateBudget overwrites the descriptive fields; spent_cents is only
// changed by ApplyExpense and SetSpent.
func (r *Repository) UpdateBudget(ctx context.Context, b core.Budget) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE budgets SET category = ?, category_key = ?, amount_cents = ?, budget_period = ?, start_unix = ?, end_unix = ?, color = ?, note = ?, updated_at_unix = ? WHERE id = ?`,
		b.Category, core.CategoryKey(b.Category), b.Amount.Cents, string(b.Period),
		unix(b.StartDate), endUnix(b), b.Color, b.Note, unix(b.UpdatedAt), b.ID)
	if err != nil {
		return fmt.Errorf("update budget: %w", err)
	}
	return expectOne(res, "budget", b.ID)
}

func (r *Repository) DeleteBudget(ctx context.Context, id string) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM budgets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	return expectOne(res, "budget", id)
}

func (r *Repository) ListBudgets(ctx context.Context, owner string) ([]core.Budget, error) {
	return r.queryBudgets(ctx, `SELECT `+budgetColumns+` FROM budgets WHERE owner_id = ? ORDER BY seq DESC`, owner)
}

func (r *Repository) FindBudgetCandidates(ctx context.Context, owner, categoryKey string, date time.Time) ([]core.Budget, error) {
	at := unix(date)
	return r.queryBudgets(ctx,
		`SELECT `+budgetColumns+` FROM budgets
		 WHERE owner_id = ? AND category_key = ? AND start_unix <= ? AND (end_unix IS NULL OR end_unix >= ?)
		 ORDER BY seq ASC`,
		owner, categoryKey, at, at)
}

// ApplyExpense increments spent_cents in a single statement so concurrent
// callers never lose an update. The WHERE guard refuses an increment that
// would overflow.
func (r *Repository) ApplyExpense(ctx context.Context, id string, amount core.Money) (core.Budget, error) {
	var out core.Budget
	err := r.WithinTx(ctx, func(s storage.Store) error {
		tx := s.(*Repository)
		res, err := tx.q.ExecContext(ctx,
			`UPDATE budgets SET spent_cents = spent_cents + ? WHERE id = ? AND spent_cents <= ?`,
			amount.Cents, id, int64(math.MaxInt64)-amount.Cents)
		if err != nil {
			return fmt.Errorf("apply expense: %w", err)
		}
		if err := expectOne(res, "budget", id); err != nil {
			// Either the budget is gone or the guard refused the increment.
			if _, getErr := tx.GetBudget(ctx, id); getErr != nil {
				return getErr
			}
			return fmt.Errorf("budget %s: %w", id, core.ErrSpentOverflow)
		}
		out, err = tx.GetBudget(ctx, id)
		return err
	})
	return out, err
}

func (r *Repository) SetSpent(ctx context.Context, id string, spent core.Money, at time.Time) (core.Budget, error) {
	var out core.Budget
	err := r.WithinTx(ctx, func(s storage.Store) error {
		tx := s.(*Repository)
		res, err := tx.q.ExecContext(ctx, `UPDATE budgets SET spent_cents = ?, updated_at_unix = ? WHERE id = ?`, spent.Cents, unix(at), id)
		if err != nil {
			return fmt.Errorf("set spent: %w", err)
		}
		if err := expectOne(res, "budget", id); err != nil {
			return err
		}
		out, err = tx.GetBudget(ctx, id)
		return err
	})
	return out, err
}

// Alerts

// CreateBudgetAlert is idempotent on the alert ID so redelivered events do
// not duplicate alerts.
func (r *Repository) CreateBudgetAlert(ctx context.Context, a core.BudgetAlert) error {
	_, err := r.q.ExecContext(ctx,
		r.dialect.insertIgnore+` INTO budget_alerts (id, owner_id, budget_id, transaction_id, category, budgeted_cents, spent_cents, created_at_unix) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.OwnerID, a.BudgetID, a.TransactionID, a.Category, a.Budgeted.Cents, a.Spent.Cents, unix(a.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert budget alert: %w", err)
	}
	return nil
}

func (r *Repository) ListBudgetAlerts(ctx context.Context, owner string) ([]core.BudgetAlert, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT id, owner_id, budget_id, transaction_id, category, budgeted_cents, spent_cents, created_at_unix
		 FROM budget_alerts WHERE owner_id = ? ORDER BY seq DESC`, owner)
	if err != nil {
		return nil, fmt.Errorf("list budget alerts: %w", err)
	}
	defer rows.Close()

	var out []core.BudgetAlert
	for rows.Next() {
		var (
			a         core.BudgetAlert
			createdAt int64
		)
		if err := rows.Scan(&a.ID, &a.OwnerID, &a.BudgetID, &a.TransactionID, &a.Category,
			&a.Budgeted.Cents, &a.Spent.Cents, &createdAt); err != nil {
			return nil, fmt.Errorf("scan budget alert: %w", err)
		}
		a.CreatedAt = fromUnix(createdAt)
		out = append(out, a)
	}
	return out, rows.Err()
}
