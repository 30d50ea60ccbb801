package services

import (
	"context"
	"fmt"
	"strings"

	"spendwise/internal/amqp"
	"spendwise/internal/core"
	"spendwise/internal/reconcile"
	"spendwise/internal/smsparse"
	"spendwise/internal/storage"
)

// ErrEmptySMS is returned by ImportSMS when no text was supplied.
var ErrEmptySMS = fmt.Errorf("%w: SMS text is required", core.ErrValidation)

// TransactionService records transactions and keeps budgets reconciled.
type TransactionService struct {
	store  storage.Store
	engine *reconcile.Engine
	parser *smsparse.Parser
	opts   options
}

func NewTransactionService(store storage.Store, engine *reconcile.Engine, opts ...Option) *TransactionService {
	return &TransactionService{
		store:  store,
		engine: engine,
		parser: smsparse.New(),
		opts:   buildOptions(opts),
	}
}

// Create validates in, stores the transaction and charges it to its budget
// in one unit of work, then announces it. Either both the transaction and
// the budget change are stored or neither is.
func (s *TransactionService) Create(ctx context.Context, owner string, in core.TransactionInput) (core.Transaction, error) {
	if err := requireOwner(owner); err != nil {
		return core.Transaction{}, err
	}
	if err := in.Validate(); err != nil {
		return core.Transaction{}, err
	}

	txn := core.NewTransaction(s.opts.newID(), owner, in, s.opts.now())

	sctx, cancel := s.opts.withTimeout(ctx)
	defer cancel()

	var charged *core.Budget
	err := s.store.WithinTx(sctx, func(tx storage.Store) error {
		if err := tx.CreateTransaction(sctx, txn); err != nil {
			return fmt.Errorf("save transaction: %w", err)
		}
		b, err := s.engine.Reconcile(sctx, tx, txn)
		if err != nil {
			return fmt.Errorf("reconcile transaction: %w", err)
		}
		charged = b
		return nil
	})
	if err != nil {
		return core.Transaction{}, err
	}

	s.opts.logger.LogTransactionRecorded(ctx, owner, txn.ID, string(txn.Type), string(txn.Source), txn.Category, txn.Amount.Cents)
	if charged != nil {
		s.opts.logger.LogReconciled(ctx, txn.ID, charged.ID, charged.Amount.Cents, charged.Spent.Cents)
	}

	s.opts.publish(ctx, amqp.NewTransactionRecorded(txn, charged))
	if charged != nil && charged.Overspent() {
		s.opts.publish(ctx, amqp.NewBudgetOverspent(txn, *charged))
	}

	return txn, nil
}

// ImportSMS parses a bank notification and records it as an SMS-sourced
// transaction dated now. Unrecognised text yields smsparse.ErrUnparseable and
// nothing is stored.
func (s *TransactionService) ImportSMS(ctx context.Context, owner, text string) (core.Transaction, error) {
	if err := requireOwner(owner); err != nil {
		return core.Transaction{}, err
	}
	if strings.TrimSpace(text) == "" {
		return core.Transaction{}, ErrEmptySMS
	}

	in, err := s.parser.Parse(text)
	if err != nil {
		return core.Transaction{}, err
	}
	in.Source = core.SourceSMS

	return s.Create(ctx, owner, in)
}

// Get returns one transaction of owner.
func (s *TransactionService) Get(ctx context.Context, owner, id string) (core.Transaction, error) {
	if err := requireOwner(owner); err != nil {
		return core.Transaction{}, err
	}
	sctx, cancel := s.opts.withTimeout(ctx)
	defer cancel()
	return ownedTransaction(sctx, s.store, owner, id)
}

// List returns owner's transactions matching filter, most recent first.
func (s *TransactionService) List(ctx context.Context, owner string, filter core.TransactionFilter) ([]core.Transaction, error) {
	if err := requireOwner(owner); err != nil {
		return nil, err
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	sctx, cancel := s.opts.withTimeout(ctx)
	defer cancel()
	txns, err := s.store.ListTransactions(sctx, owner, filter)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txns, nil
}

// Update overwrites the patched fields of a transaction owned by owner.
// Budgets are not touched: amounts already charged stay charged.
func (s *TransactionService) Update(ctx context.Context, owner, id string, patch core.TransactionPatch) (core.Transaction, error) {
	if err := requireOwner(owner); err != nil {
		return core.Transaction{}, err
	}
	if err := patch.Validate(); err != nil {
		return core.Transaction{}, err
	}

	sctx, cancel := s.opts.withTimeout(ctx)
	defer cancel()

	var updated core.Transaction
	err := s.store.WithinTx(sctx, func(tx storage.Store) error {
		t, err := ownedTransaction(sctx, tx, owner, id)
		if err != nil {
			return err
		}
		patch.Apply(&t, s.opts.now())
		if err := tx.UpdateTransaction(sctx, t); err != nil {
			return fmt.Errorf("update transaction: %w", err)
		}
		updated = t
		return nil
	})
	if err != nil {
		return core.Transaction{}, err
	}
	return updated, nil
}

// Delete removes a transaction owned by owner. Budgets are not touched.
func (s *TransactionService) Delete(ctx context.Context, owner, id string) error {
	if err := requireOwner(owner); err != nil {
		return err
	}

	sctx, cancel := s.opts.withTimeout(ctx)
	defer cancel()

	return s.store.WithinTx(sctx, func(tx storage.Store) error {
		if _, err := ownedTransaction(sctx, tx, owner, id); err != nil {
			return err
		}
		if err := tx.DeleteTransaction(sctx, id); err != nil {
			return fmt.Errorf("delete transaction: %w", err)
		}
		return nil
	})
}
