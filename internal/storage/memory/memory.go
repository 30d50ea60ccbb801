// Package memory is an in-process implementation of storage.Store. It is
// the default backend for local runs and the store used by service tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"spendwise/internal/core"
	"spendwise/internal/storage"
)

type record[T any] struct {
	seq int64
	val T
}

type state struct {
	mu   sync.Mutex // guards the maps below
	work sync.Mutex // serializes units of work

	seq    int64
	txns   map[string]record[core.Transaction]
	byID   map[string]record[core.Budget]
	alerts []record[core.BudgetAlert]
}

// Store keeps everything in maps. Copies returned by the store never alias
// its internal state.
type Store struct {
	st   *state
	inTx bool
}

var (
	_ storage.Store  = (*Store)(nil)
	_ storage.Pinger = (*Store)(nil)
)

func New() *Store {
	return &Store{st: &state{
		txns: map[string]record[core.Transaction]{},
		byID: map[string]record[core.Budget]{},
	}}
}

func (s *Store) Ping(context.Context) error { return nil }

// WithinTx runs fn against a view of the store. Units of work are
// serialized; when fn fails every change it made is rolled back.
func (s *Store) WithinTx(ctx context.Context, fn func(storage.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.st.work.Lock()
	defer s.st.work.Unlock()

	snap := s.st.snapshot()
	if err := fn(&Store{st: s.st, inTx: true}); err != nil {
		s.st.restore(snap)
		return err
	}
	return nil
}

// write wraps a single mutation. Outside a unit of work it waits for any
// running one so a rollback cannot discard it.
func (s *Store) write(fn func(st *state) error) error {
	if !s.inTx {
		s.st.work.Lock()
		defer s.st.work.Unlock()
	}
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	return fn(s.st)
}

func (s *Store) read(fn func(st *state)) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	fn(s.st)
}

type snapshot struct {
	seq    int64
	txns   map[string]record[core.Transaction]
	byID   map[string]record[core.Budget]
	alerts []record[core.BudgetAlert]
}

func (st *state) snapshot() snapshot {
	st.mu.Lock()
	defer st.mu.Unlock()
	snap := snapshot{
		seq:    st.seq,
		txns:   make(map[string]record[core.Transaction], len(st.txns)),
		byID:   make(map[string]record[core.Budget], len(st.byID)),
		alerts: append([]record[core.BudgetAlert](nil), st.alerts...),
	}
	for k, v := range st.txns {
		snap.txns[k] = v
	}
	for k, v := range st.byID {
		snap.byID[k] = v
	}
	return snap
}

func (st *state) restore(snap snapshot) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.seq = snap.seq
	st.txns = snap.txns
	st.byID = snap.byID
	st.alerts = snap.alerts
}

func (st *state) next() int64 {
	st.seq++
	return st.seq
}

// Transactions

func (s *Store) CreateTransaction(ctx context.Context, t core.Transaction) error {
	return s.write(func(st *state) error {
		if _, ok := st.txns[t.ID]; ok {
			return fmt.Errorf("transaction %s already exists", t.ID)
		}
		st.txns[t.ID] = record[core.Transaction]{seq: st.next(), val: t}
		return nil
	})
}

func (s *Store) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	var (
		rec record[core.Transaction]
		ok  bool
	)
	s.read(func(st *state) { rec, ok = st.txns[id] })
	if !ok {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	return rec.val, nil
}

func (s *Store) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	return s.write(func(st *state) error {
		rec, ok := st.txns[t.ID]
		if !ok {
			return fmt.Errorf("transaction %s: %w", t.ID, core.ErrNotFound)
		}
		rec.val = t
		st.txns[t.ID] = rec
		return nil
	})
}

func (s *Store) DeleteTransaction(ctx context.Context, id string) error {
	return s.write(func(st *state) error {
		if _, ok := st.txns[id]; !ok {
			return fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
		}
		delete(st.txns, id)
		return nil
	})
}

func (s *Store) ListTransactions(ctx context.Context, owner string, filter core.TransactionFilter) ([]core.Transaction, error) {
	var recs []record[core.Transaction]
	s.read(func(st *state) {
		for _, rec := range st.txns {
			if rec.val.OwnerID == owner && filter.Matches(rec.val) {
				recs = append(recs, rec)
			}
		}
	})
	sort.Slice(recs, func(i, j int) bool {
		if !recs[i].val.Date.Equal(recs[j].val.Date) {
			return recs[i].val.Date.After(recs[j].val.Date)
		}
		return recs[i].seq > recs[j].seq
	})
	out := make([]core.Transaction, len(recs))
	for i, rec := range recs {
		out[i] = rec.val
	}
	return out, nil
}

// Budgets

func (s *Store) CreateBudget(ctx context.Context, b core.Budget) error {
	return s.write(func(st *state) error {
		if _, ok := st.byID[b.ID]; ok {
			return fmt.Errorf("budget %s already exists", b.ID)
		}
		st.byID[b.ID] = record[core.Budget]{seq: st.next(), val: cloneBudget(b)}
		return nil
	})
}

func (s *Store) GetBudget(ctx context.Context, id string) (core.Budget, error) {
	var (
		rec record[core.Budget]
		ok  bool
	)
	s.read(func(st *state) { rec, ok = st.byID[id] })
	if !ok {
		return core.Budget{}, fmt.Errorf("budget %s: %w", id, core.ErrNotFound)
	}
	return cloneBudget(rec.val), nil
}

// UpdateBudget overwrites the descriptive fields. Spent is owned by
// ApplyExpense and SetSpent and is left untouched.
func (s *Store) UpdateBudget(ctx context.Context, b core.Budget) error {
	return s.write(func(st *state) error {
		rec, ok := st.byID[b.ID]
		if !ok {
			return fmt.Errorf("budget %s: %w", b.ID, core.ErrNotFound)
		}
		spent := rec.val.Spent
		rec.val = cloneBudget(b)
		rec.val.Spent = spent
		st.byID[b.ID] = rec
		return nil
	})
}

func (s *Store) DeleteBudget(ctx context.Context, id string) error {
	return s.write(func(st *state) error {
		if _, ok := st.byID[id]; !ok {
			return fmt.Errorf("budget %s: %w", id, core.ErrNotFound)
		}
		delete(st.byID, id)
		return nil
	})
}

func (s *Store) ListBudgets(ctx context.Context, owner string) ([]core.Budget, error) {
	recs := s.budgets(func(b core.Budget) bool { return b.OwnerID == owner })
	sort.Slice(recs, func(i, j int) bool { return recs[i].seq > recs[j].seq })
	return budgetValues(recs), nil
}

func (s *Store) FindBudgetCandidates(ctx context.Context, owner, categoryKey string, date time.Time) ([]core.Budget, error) {
	recs := s.budgets(func(b core.Budget) bool {
		return b.OwnerID == owner && core.CategoryKey(b.Category) == categoryKey && b.Covers(date)
	})
	sort.Slice(recs, func(i, j int) bool { return recs[i].seq < recs[j].seq })
	return budgetValues(recs), nil
}

func (s *Store) ApplyExpense(ctx context.Context, id string, amount core.Money) (core.Budget, error) {
	var out core.Budget
	err := s.write(func(st *state) error {
		rec, ok := st.byID[id]
		if !ok {
			return fmt.Errorf("budget %s: %w", id, core.ErrNotFound)
		}
		if err := rec.val.ApplyExpense(amount); err != nil {
			return fmt.Errorf("budget %s: %w", id, err)
		}
		st.byID[id] = rec
		out = cloneBudget(rec.val)
		return nil
	})
	return out, err
}

func (s *Store) SetSpent(ctx context.Context, id string, spent core.Money, at time.Time) (core.Budget, error) {
	var out core.Budget
	err := s.write(func(st *state) error {
		rec, ok := st.byID[id]
		if !ok {
			return fmt.Errorf("budget %s: %w", id, core.ErrNotFound)
		}
		rec.val.Spent = spent
		rec.val.UpdatedAt = core.Normalize(at)
		st.byID[id] = rec
		out = cloneBudget(rec.val)
		return nil
	})
	return out, err
}

func (s *Store) budgets(keep func(core.Budget) bool) []record[core.Budget] {
	var recs []record[core.Budget]
	s.read(func(st *state) {
		for _, rec := range st.byID {
			if keep(rec.val) {
				recs = append(recs, rec)
			}
		}
	})
	return recs
}

func budgetValues(recs []record[core.Budget]) []core.Budget {
	out := make([]core.Budget, len(recs))
	for i, rec := range recs {
		out[i] = cloneBudget(rec.val)
	}
	return out
}

func cloneBudget(b core.Budget) core.Budget {
	if b.EndDate != nil {
		end := *b.EndDate
		b.EndDate = &end
	}
	return b
}

// Alerts

// CreateBudgetAlert ignores an alert whose ID is already stored.
func (s *Store) CreateBudgetAlert(ctx context.Context, a core.BudgetAlert) error {
	return s.write(func(st *state) error {
		for _, rec := range st.alerts {
			if rec.val.ID == a.ID {
				return nil
			}
		}
		st.alerts = append(st.alerts, record[core.BudgetAlert]{seq: st.next(), val: a})
		return nil
	})
}

func (s *Store) ListBudgetAlerts(ctx context.Context, owner string) ([]core.BudgetAlert, error) {
	var out []core.BudgetAlert
	s.read(func(st *state) {
		for i := len(st.alerts) - 1; i >= 0; i-- {
			if st.alerts[i].val.OwnerID == owner {
				out = append(out, st.alerts[i].val)
			}
		}
	})
	return out, nil
}
