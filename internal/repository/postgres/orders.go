package postgresrepo

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/pizza-go/internal/domain"
	"github.com/kirinyoku/pizza-go/internal/repository"
	"github.com/shopspring/decimal"
)

type OrderRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *OrderRepo) With(db DB) *OrderRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *OrderRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

const orderColumns = `id, name, comment, items, order_date, timeslot, total_price, is_paid, status, finished_at, updated_at`

func scanOrder(row pgx.Row) (domain.Order, error) {
	var (
		o      domain.Order
		items  []byte
		status string
	)

	if err := row.Scan(
		&o.ID,
		&o.Name,
		&o.Comment,
		&items,
		&o.OrderDate,
		&o.Timeslot,
		&o.TotalPrice,
		&o.IsPaid,
		&status,
		&o.FinishedAt,
		&o.UpdatedAt,
	); err != nil {
		return o, err
	}

	o.Status = domain.OrderStatus(status)

	if err := json.Unmarshal(items, &o.Items); err != nil {
		return o, fmt.Errorf("decode order items: %w", err)
	}

	return o, nil
}

func (r *OrderRepo) Create(ctx context.Context, o *domain.Order) error {
	const op = "postgresrepo.OrderRepo.Create"

	items, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	err = r.handle().QueryRow(ctx,
		`INSERT INTO orders(id, name, comment, items, order_date, timeslot, total_price, is_paid, status, finished_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING updated_at`,
		o.ID, o.Name, o.Comment, items, o.OrderDate, o.Timeslot, o.TotalPrice, o.IsPaid, string(o.Status), o.FinishedAt,
	).Scan(&o.UpdatedAt)
	if err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

func (r *OrderRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	const op = "postgresrepo.OrderRepo.Get"

	o, err := scanOrder(r.handle().QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`, id,
	))
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &o, nil
}

func (r *OrderRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	const op = "postgresrepo.OrderRepo.GetForUpdate"

	o, err := scanOrder(r.handle().QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id,
	))
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &o, nil
}

func (r *OrderRepo) List(ctx context.Context) ([]domain.Order, error) {
	const op = "postgresrepo.OrderRepo.List"

	rows, err := r.handle().Query(ctx,
		`SELECT `+orderColumns+` FROM orders ORDER BY order_date ASC, id`,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	var out []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, wrapDBErr(op, err)
		}

		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

func (r *OrderRepo) Update(ctx context.Context, o *domain.Order) error {
	const op = "postgresrepo.OrderRepo.Update"

	items, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	err = r.handle().QueryRow(ctx,
		`UPDATE orders
		 SET name = $2, comment = $3, items = $4, timeslot = $5, total_price = $6,
		     is_paid = $7, status = $8, finished_at = $9, updated_at = now()
		 WHERE id = $1
		 RETURNING updated_at`,
		o.ID, o.Name, o.Comment, items, o.Timeslot, o.TotalPrice, o.IsPaid, string(o.Status), o.FinishedAt,
	).Scan(&o.UpdatedAt)
	if err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

// LockSlot takes a transaction-scoped advisory lock keyed by the slot.
func (r *OrderRepo) LockSlot(ctx context.Context, timeslot string) error {
	const op = "postgresrepo.OrderRepo.LockSlot"

	if _, err := r.handle().Exec(ctx,
		`SELECT pg_advisory_xact_lock(hashtext('slot:' || $1))`, timeslot,
	); err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

func (r *OrderRepo) BookedSize(ctx context.Context, timeslot string) (decimal.Decimal, error) {
	const op = "postgresrepo.OrderRepo.BookedSize"

	var total decimal.Decimal
	err := r.handle().QueryRow(ctx,
		`SELECT COALESCE(SUM((line->>'size')::numeric), 0)
		 FROM orders o, jsonb_array_elements(o.items) AS line
		 WHERE o.timeslot = $1 AND o.status <> 'cancelled'`,
		timeslot,
	).Scan(&total)
	if err != nil {
		return decimal.Zero, wrapDBErr(op, err)
	}

	return total, nil
}

func (r *OrderRepo) BookedSizes(ctx context.Context) (map[string]decimal.Decimal, error) {
	const op = "postgresrepo.OrderRepo.BookedSizes"

	rows, err := r.handle().Query(ctx,
		`SELECT o.timeslot, COALESCE(SUM((line->>'size')::numeric), 0)
		 FROM orders o, jsonb_array_elements(o.items) AS line
		 WHERE o.status <> 'cancelled'
		 GROUP BY o.timeslot`,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	out := make(map[string]decimal.Decimal)
	for rows.Next() {
		var (
			slot  string
			total decimal.Decimal
		)
		if err := rows.Scan(&slot, &total); err != nil {
			return nil, wrapDBErr(op, err)
		}
		out[slot] = total
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

func (r *OrderRepo) DeleteAll(ctx context.Context) (int64, error) {
	const op = "postgresrepo.OrderRepo.DeleteAll"

	tag, err := r.handle().Exec(ctx, `DELETE FROM orders`)
	if err != nil {
		return 0, wrapDBErr(op, err)
	}

	return tag.RowsAffected(), nil
}

var _ repository.OrderRepository = (*OrderRepo)(nil)
