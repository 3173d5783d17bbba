package postgresrepo

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/pizza-go/internal/domain"
	"github.com/kirinyoku/pizza-go/internal/repository"
)

type TicketRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *TicketRepo) With(db DB) *TicketRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *TicketRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

const ticketColumns = `t.id, t.item_id, t.status, t.order_id, COALESCE(t.timeslot, ''), t.created_at, t.updated_at`

func scanTicket(row pgx.Row) (domain.ItemTicket, error) {
	var (
		t      domain.ItemTicket
		status string
	)

	err := row.Scan(
		&t.ID,
		&t.ItemID,
		&status,
		&t.OrderID,
		&t.Timeslot,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	t.Status = domain.TicketStatus(status)

	return t, err
}

func (r *TicketRepo) Create(ctx context.Context, t *domain.ItemTicket) error {
	const op = "postgresrepo.TicketRepo.Create"

	err := r.handle().QueryRow(ctx,
		`INSERT INTO tickets(id, item_id, status, order_id, timeslot)
		 VALUES ($1, $2, $3, $4, NULLIF($5, ''))
		 RETURNING created_at, updated_at`,
		t.ID, t.ItemID, string(t.Status), t.OrderID, t.Timeslot,
	).Scan(&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

func (r *TicketRepo) Get(ctx context.Context, id uuid.UUID) (*domain.ItemTicket, error) {
	const op = "postgresrepo.TicketRepo.Get"

	t, err := scanTicket(r.handle().QueryRow(ctx,
		`SELECT `+ticketColumns+` FROM tickets t WHERE t.id = $1`, id,
	))
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &t, nil
}

// List returns tickets matching f, earliest timeslot first.
func (r *TicketRepo) List(ctx context.Context, f repository.TicketFilter) ([]domain.ItemTicket, error) {
	const op = "postgresrepo.TicketRepo.List"

	var (
		where []string
		args  []any
	)

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.ItemID != nil {
		where = append(where, "t.item_id = "+arg(*f.ItemID))
	}

	if f.OrderID != nil {
		where = append(where, "t.order_id = "+arg(*f.OrderID))
	}

	if f.Unassigned {
		where = append(where, "t.order_id IS NULL")
	}

	if f.Timeslot != "" {
		where = append(where, "t.timeslot = "+arg(f.Timeslot))
	}

	if len(f.Statuses) > 0 {
		statuses := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			statuses[i] = string(s)
		}
		where = append(where, "t.status = ANY("+arg(statuses)+"::text[])")
	}

	var sb strings.Builder
	sb.WriteString(`SELECT ` + ticketColumns + ` FROM tickets t`)

	if len(where) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(where, " AND "))
	}

	sb.WriteString(" ORDER BY t.timeslot ASC NULLS LAST, t.created_at ASC, t.seq ASC")

	if f.Limit > 0 {
		sb.WriteString(" LIMIT " + arg(f.Limit))
	}

	if f.Lock {
		sb.WriteString(" FOR UPDATE SKIP LOCKED")
	}

	rows, err := r.handle().Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	var out []domain.ItemTicket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, wrapDBErr(op, err)
		}

		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

func (r *TicketRepo) Update(ctx context.Context, t *domain.ItemTicket) error {
	const op = "postgresrepo.TicketRepo.Update"

	err := r.handle().QueryRow(ctx,
		`UPDATE tickets
		 SET status = $2, order_id = $3, timeslot = NULLIF($4, ''), updated_at = now()
		 WHERE id = $1
		 RETURNING updated_at`,
		t.ID, string(t.Status), t.OrderID, t.Timeslot,
	).Scan(&t.UpdatedAt)
	if err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

func (r *TicketRepo) Transition(
	ctx context.Context,
	ids []uuid.UUID,
	from, to domain.TicketStatus,
) (int64, error) {
	const op = "postgresrepo.TicketRepo.Transition"

	if len(ids) == 0 {
		return 0, nil
	}

	tag, err := r.handle().Exec(ctx,
		`UPDATE tickets
		 SET status = $3, updated_at = now()
		 WHERE id = ANY($1::uuid[]) AND status = $2`,
		uuidStrings(ids), string(from), string(to),
	)
	if err != nil {
		return 0, wrapDBErr(op, err)
	}

	return tag.RowsAffected(), nil
}

// Claim only touches rows whose read-time state still holds, so two
// deliveries racing for the same free ticket cannot both win it.
func (r *TicketRepo) Claim(ctx context.Context, orderID uuid.UUID, ids []uuid.UUID) (int64, error) {
	const op = "postgresrepo.TicketRepo.Claim"

	if len(ids) == 0 {
		return 0, nil
	}

	tag, err := r.handle().Exec(ctx,
		`UPDATE tickets
		 SET status = 'COMPLETED', order_id = $1, updated_at = now()
		 WHERE id = ANY($2::uuid[])
		   AND (
		     (status = 'READY' AND (order_id IS NULL OR order_id = $1))
		     OR (status = 'COMPLETED' AND order_id = $1)
		   )`,
		orderID, uuidStrings(ids),
	)
	if err != nil {
		return 0, wrapDBErr(op, err)
	}

	return tag.RowsAffected(), nil
}

func (r *TicketRepo) Unassign(ctx context.Context, orderID uuid.UUID, except []uuid.UUID) (int64, error) {
	const op = "postgresrepo.TicketRepo.Unassign"

	tag, err := r.handle().Exec(ctx,
		`UPDATE tickets
		 SET order_id = NULL, updated_at = now()
		 WHERE order_id = $1 AND NOT (id = ANY($2::uuid[]))`,
		orderID, uuidStrings(except),
	)
	if err != nil {
		return 0, wrapDBErr(op, err)
	}

	return tag.RowsAffected(), nil
}

func (r *TicketRepo) SetStatusByOrder(
	ctx context.Context,
	orderID uuid.UUID,
	status domain.TicketStatus,
) (int64, error) {
	const op = "postgresrepo.TicketRepo.SetStatusByOrder"

	tag, err := r.handle().Exec(ctx,
		`UPDATE tickets SET status = $2, updated_at = now() WHERE order_id = $1`,
		orderID, string(status),
	)
	if err != nil {
		return 0, wrapDBErr(op, err)
	}

	return tag.RowsAffected(), nil
}

func (r *TicketRepo) CountByOrderNotInStatus(
	ctx context.Context,
	orderID uuid.UUID,
	status domain.TicketStatus,
) (int64, error) {
	const op = "postgresrepo.TicketRepo.CountByOrderNotInStatus"

	var n int64
	err := r.handle().QueryRow(ctx,
		`SELECT count(*) FROM tickets WHERE order_id = $1 AND status <> $2`,
		orderID, string(status),
	).Scan(&n)
	if err != nil {
		return 0, wrapDBErr(op, err)
	}

	return n, nil
}

func (r *TicketRepo) DeleteAll(ctx context.Context) (int64, error) {
	const op = "postgresrepo.TicketRepo.DeleteAll"

	tag, err := r.handle().Exec(ctx, `DELETE FROM tickets`)
	if err != nil {
		return 0, wrapDBErr(op, err)
	}

	return tag.RowsAffected(), nil
}
