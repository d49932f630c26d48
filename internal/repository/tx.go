package repository

import (
    "context"
    "database/sql"
    "time"
)

// querier is the subset of *sql.DB and *sql.Tx the repositories use.
type querier interface {
    ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
    QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
    QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type txKey struct{}

// conn returns the transaction bound to ctx by TxManager.WithTx, or db
// when the call is not part of a transaction.
func conn(ctx context.Context, db *sql.DB) querier {
    if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
        return tx
    }
    return db
}

// TxManager runs units of work in a single MySQL transaction.  The
// transaction travels in the context so every repository method called
// with that context joins it.
type TxManager struct {
    db       *sql.DB
    attempts int
    backoff  time.Duration
}

// NewTxManager returns a TxManager that replays a unit of work up to three
// times when MySQL picks it as a deadlock victim.
func NewTxManager(db *sql.DB) *TxManager {
    return &TxManager{db: db, attempts: 3, backoff: 20 * time.Millisecond}
}

// DB exposes the underlying sql.DB.
func (m *TxManager) DB() *sql.DB { return m.db }

// WithTx runs fn inside a REPEATABLE READ transaction.  If ctx already
// carries a transaction fn joins it.  fn must be safe to run more than
// once: on deadlock or lock wait timeout the transaction is rolled back
// and fn replayed.
func (m *TxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
    if _, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
        return fn(ctx)
    }
    var err error
    for attempt := 1; attempt <= m.attempts; attempt++ {
        err = m.runOnce(ctx, fn)
        if err == nil || !isRetryable(err) {
            return err
        }
        select {
        case <-ctx.Done():
            return ctx.Err()
        case <-time.After(time.Duration(attempt) * m.backoff):
        }
    }
    return err
}

func (m *TxManager) runOnce(ctx context.Context, fn func(ctx context.Context) error) error {
    tx, err := m.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead})
    if err != nil {
        return err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()
    if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
        return err
    }
    if err := tx.Commit(); err != nil {
        return err
    }
    committed = true
    return nil
}

// placeholders returns "?,?,?" for n arguments and the ids as []any.
func placeholders(ids []uint64) (string, []any) {
    args := make([]any, 0, len(ids))
    buf := make([]byte, 0, len(ids)*2)
    for i, id := range ids {
        if i > 0 {
            buf = append(buf, ',')
        }
        buf = append(buf, '?')
        args = append(args, id)
    }
    return string(buf), args
}
