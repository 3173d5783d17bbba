package postgresrepo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/pizza-go/internal/domain"
	"github.com/kirinyoku/pizza-go/internal/repository"
)

type ItemRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *ItemRepo) With(db DB) *ItemRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *ItemRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

const itemColumns = `id, name, price, type, dietary, ingredients, size, max_count, enabled, created_at`

func scanItem(row pgx.Row) (domain.Item, error) {
	var it domain.Item
	err := row.Scan(
		&it.ID,
		&it.Name,
		&it.Price,
		&it.Type,
		&it.Dietary,
		&it.Ingredients,
		&it.Size,
		&it.Max,
		&it.Enabled,
		&it.CreatedAt,
	)
	return it, err
}

// Create inserts a catalog item.
//
// Returns:
//   - error: repository.ErrConflict if an item with the same name exists.
func (r *ItemRepo) Create(ctx context.Context, it *domain.Item) error {
	const op = "postgresrepo.ItemRepo.Create"

	db := r.handle()

	if it.Ingredients == nil {
		it.Ingredients = []string{}
	}

	err := db.QueryRow(ctx,
		`INSERT INTO items(id, name, price, type, dietary, ingredients, size, max_count, enabled)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING created_at`,
		it.ID, it.Name, it.Price, it.Type, it.Dietary, it.Ingredients, it.Size, it.Max, it.Enabled,
	).Scan(&it.CreatedAt)
	if err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

func (r *ItemRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Item, error) {
	const op = "postgresrepo.ItemRepo.Get"

	it, err := scanItem(r.handle().QueryRow(ctx,
		`SELECT `+itemColumns+` FROM items WHERE id = $1`, id,
	))
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &it, nil
}

// GetByIDs fetches the items with the given ids. Unknown ids are skipped, so
// callers compare the result length with the number of distinct ids.
func (r *ItemRepo) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Item, error) {
	const op = "postgresrepo.ItemRepo.GetByIDs"

	return r.list(ctx, op,
		`SELECT `+itemColumns+` FROM items WHERE id = ANY($1::uuid[]) ORDER BY name`,
		uuidStrings(ids),
	)
}

func (r *ItemRepo) List(ctx context.Context, onlyEnabled bool) ([]domain.Item, error) {
	const op = "postgresrepo.ItemRepo.List"

	if onlyEnabled {
		return r.list(ctx, op, `SELECT `+itemColumns+` FROM items WHERE enabled ORDER BY type, name`)
	}

	return r.list(ctx, op, `SELECT `+itemColumns+` FROM items ORDER BY type, name`)
}

func (r *ItemRepo) SetEnabled(ctx context.Context, id uuid.UUID, enabled bool) error {
	const op = "postgresrepo.ItemRepo.SetEnabled"

	tag, err := r.handle().Exec(ctx, `UPDATE items SET enabled = $2 WHERE id = $1`, id, enabled)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, repository.ErrNotFound)
	}

	return nil
}

func (r *ItemRepo) list(ctx context.Context, op, sql string, args ...any) ([]domain.Item, error) {
	rows, err := r.handle().Query(ctx, sql, args...)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	var out []domain.Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, wrapDBErr(op, err)
		}

		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}
