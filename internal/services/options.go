package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"spendwise/internal/amqp"
	"spendwise/internal/core"
	"spendwise/internal/log"
	"spendwise/internal/storage"
)

// EventPublisher delivers ledger events after a write has committed. A nil
// publisher disables events.
type EventPublisher interface {
	Publish(ctx context.Context, e *amqp.LedgerEvent) error
}

type options struct {
	now       func() time.Time
	newID     func() string
	timeout   time.Duration
	publisher EventPublisher
	logger    *log.StructuredLogger
}

// Option configures a service.
type Option func(*options)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithIDGenerator overrides UUID generation.
func WithIDGenerator(newID func() string) Option {
	return func(o *options) { o.newID = newID }
}

// WithStoreTimeout bounds every storage call. Zero disables the bound.
func WithStoreTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithPublisher sets where committed writes are announced.
func WithPublisher(p EventPublisher) Option {
	return func(o *options) { o.publisher = p }
}

func WithLogger(l *log.Logger) Option {
	return func(o *options) { o.logger = log.NewStructuredLogger(l) }
}

func buildOptions(opts []Option) options {
	o := options{
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = log.NewStructuredLogger(log.New(log.Config{Handler: slog.Default().Handler(), Component: log.ComponentApp}))
	}
	return o
}

func (o options) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, o.timeout)
}

func (o options) publish(ctx context.Context, e *amqp.LedgerEvent) {
	if o.publisher == nil {
		slog.DebugContext(ctx, "Event publisher not configured, skipping event", "kind", e.Kind)
		return
	}
	if err := o.publisher.Publish(ctx, e); err != nil {
		// The write is already committed; the event is best-effort.
		o.logger.LogError(ctx, "Failed to publish ledger event", err, log.ComponentAMQP, log.OpPublish,
			log.NewFields().WithOwner(e.OwnerID))
	}
}

func requireOwner(owner string) error {
	if owner == "" {
		return core.ErrEmptyOwner
	}
	return nil
}

// ownedTransaction loads id and checks it belongs to owner.
func ownedTransaction(ctx context.Context, s storage.TransactionStore, owner, id string) (core.Transaction, error) {
	t, err := s.GetTransaction(ctx, id)
	if err != nil {
		return core.Transaction{}, err
	}
	if t.OwnerID != owner {
		return core.Transaction{}, core.ErrForbidden
	}
	return t, nil
}

// ownedBudget loads id and checks it belongs to owner.
func ownedBudget(ctx context.Context, s storage.BudgetStore, owner, id string) (core.Budget, error) {
	b, err := s.GetBudget(ctx, id)
	if err != nil {
		return core.Budget{}, err
	}
	if b.OwnerID != owner {
		return core.Budget{}, core.ErrForbidden
	}
	return b, nil
}
