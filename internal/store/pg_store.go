package store

import (
	"context"
	"errors"
	"fmt"

	apperrors "github.com/abgdnv/restaurant/internal/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// dbtx is satisfied by both *pgxpool.Pool and pgx.Tx.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var _ Store = (*PgStore)(nil)

// PgStore implements Store on PostgreSQL. Orders keep their lines in a JSONB column.
type PgStore struct {
	pool *pgxpool.Pool
	db   dbtx
	inTx bool
}

// NewPgStore creates a new instance of Store using a PostgreSQL connection pool.
func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool, db: pool}
}

func (p *PgStore) Customers() CustomerStore { return pgCustomers{p.db} }
func (p *PgStore) Products() ProductStore   { return pgProducts{p.db} }
func (p *PgStore) Orders() OrderStore       { return pgOrders{p.db} }

func (p *PgStore) Ping(ctx context.Context) error {
	if err := p.pool.Ping(ctx); err != nil {
		return apperrors.Unavailable("ping", err)
	}
	return nil
}

func (p *PgStore) InTx(ctx context.Context, fn func(tx Store) error) error {
	if p.inTx {
		return fn(p)
	}
	return p.withTransaction(ctx, func(tx pgx.Tx) error {
		return fn(&PgStore{pool: p.pool, db: tx, inTx: true})
	})
}

func (p *PgStore) withTransaction(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return apperrors.Unavailable("begin", fmt.Errorf("%w: %w", apperrors.ErrTransactionBegin, err))
	}

	err = fn(tx)
	if err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			return apperrors.Unavailable("rollback", fmt.Errorf("%w: %w", apperrors.ErrTransactionRollback, rbErr))
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return apperrors.Unavailable("commit", fmt.Errorf("%w: %w", apperrors.ErrTransactionCommit, err))
	}

	return nil
}
