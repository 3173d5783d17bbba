package postgresrepo

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/pizza-go/internal/repository"
)

type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

type Store struct {
	pool *pgxpool.Pool
}

var _ repository.Store = (*Store)(nil)

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{
		pool: pool,
	}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// RunTx runs fn inside a serializable read-write transaction.
func (s *Store) RunTx(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	return s.RunTxWithOpts(ctx, nil, func(ctx context.Context, tx DB) error {
		return fn(ctx, &txRepos{db: tx, pool: s.pool})
	})
}

func (s *Store) RunTxWithOpts(
	ctx context.Context,
	opts *pgx.TxOptions,
	fn func(ctx context.Context, tx DB) error,
) error {
	const op = "postgresrepo.Store.RunTx"

	txOpts := pgx.TxOptions{
		IsoLevel:   pgx.Serializable,
		AccessMode: pgx.ReadWrite,
	}

	if opts != nil {
		txOpts.IsoLevel = opts.IsoLevel
		txOpts.AccessMode = opts.AccessMode
		txOpts.DeferrableMode = opts.DeferrableMode
	}

	tx, err := s.pool.BeginTx(ctx, txOpts)
	if err != nil {
		return wrapDBErr(op, err)
	}

	defer tx.Rollback(ctx)

	if err := fn(ctx, tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return wrapDBErr(op+": commit", err)
	}

	return nil
}

func (s *Store) Items() repository.ItemRepository     { return &ItemRepo{pool: s.pool} }
func (s *Store) Tickets() repository.TicketRepository { return &TicketRepo{pool: s.pool} }
func (s *Store) Orders() repository.OrderRepository   { return &OrderRepo{pool: s.pool} }

type txRepos struct {
	pool *pgxpool.Pool
	db   DB
}

func (t *txRepos) Items() repository.ItemRepository {
	return (&ItemRepo{pool: t.pool}).With(t.db)
}

func (t *txRepos) Tickets() repository.TicketRepository {
	return (&TicketRepo{pool: t.pool}).With(t.db)
}

func (t *txRepos) Orders() repository.OrderRepository {
	return (&OrderRepo{pool: t.pool}).With(t.db)
}
