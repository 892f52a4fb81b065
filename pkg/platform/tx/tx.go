// Package tx implements a context-carried unit of work over database/sql.
//
// The first RunInTx call on a context owns the unit: it begins the physical
// transaction and is the only caller allowed to commit or roll it back.
// Nested RunInTx calls enlist in the existing unit. A failure at any depth
// marks the whole unit rollback-only.
package tx

import (
	"context"
	"database/sql"
	"errors"
	"sync/atomic"
	"time"

	dErrors "tranquility/pkg/domain-errors"
)

const defaultTimeout = 5 * time.Second

// ErrRolledBack is returned by the owner when an enlisted participant failed
// but the error did not propagate back to the owner.
var ErrRolledBack = errors.New("transaction marked rollback-only")

type ctxKey struct{}

var unitKey = ctxKey{}

// Unit is one physical transaction shared by every enlisted participant.
type Unit struct {
	tx           *sql.Tx
	rollbackOnly atomic.Bool
}

// Tx returns the underlying transaction.
func (u *Unit) Tx() *sql.Tx {
	return u.tx
}

// SetRollbackOnly dooms the unit; the owner will roll back instead of committing.
func (u *Unit) SetRollbackOnly() {
	u.rollbackOnly.Store(true)
}

// RollbackOnly reports whether the unit is doomed.
func (u *Unit) RollbackOnly() bool {
	return u.rollbackOnly.Load()
}

// WithUnit stores a unit of work in context for downstream store usage.
func WithUnit(ctx context.Context, u *Unit) context.Context {
	if u == nil {
		return ctx
	}
	return context.WithValue(ctx, unitKey, u)
}

// UnitFrom extracts the active unit of work from context if present.
func UnitFrom(ctx context.Context) (*Unit, bool) {
	u, ok := ctx.Value(unitKey).(*Unit)
	return u, ok
}

// From extracts a SQL transaction from context if present.
func From(ctx context.Context) (*sql.Tx, bool) {
	u, ok := UnitFrom(ctx)
	if !ok {
		return nil, false
	}
	return u.tx, true
}

// Beginner is satisfied by *sql.DB.
type Beginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// Option configures a Manager.
type Option func(*Manager)

// WithTimeout bounds transactions started on contexts without a deadline.
func WithTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.timeout = d
		}
	}
}

// WithRollbackHook registers a callback invoked whenever an owned unit rolls back.
func WithRollbackHook(fn func()) Option {
	return func(m *Manager) {
		m.onRollback = fn
	}
}

// Manager starts and finishes units of work.
type Manager struct {
	db         Beginner
	timeout    time.Duration
	onRollback func()
}

// NewManager creates a Manager bound to db.
func NewManager(db Beginner, opts ...Option) *Manager {
	m := &Manager{db: db, timeout: defaultTimeout}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// RunInTx runs fn inside a unit of work. If ctx already carries a unit, fn
// enlists in it and any error dooms the outer unit.
func (m *Manager) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if u, ok := UnitFrom(ctx); ok {
		if err := fn(ctx); err != nil {
			u.SetRollbackOnly()
			return err
		}
		return nil
	}

	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	sqlTx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodePersistence, "begin transaction")
	}
	u := &Unit{tx: sqlTx}

	if err := fn(WithUnit(ctx, u)); err != nil {
		m.rollback(u)
		return err
	}
	if u.RollbackOnly() {
		m.rollback(u)
		return ErrRolledBack
	}
	if err := sqlTx.Commit(); err != nil {
		return dErrors.Wrap(err, dErrors.CodePersistence, "commit transaction")
	}
	return nil
}

func (m *Manager) rollback(u *Unit) {
	_ = u.tx.Rollback()
	if m.onRollback != nil {
		m.onRollback()
	}
}
