package postgresrepo

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// IsRetryable reports serialization failures and deadlocks, after which the
// whole transaction can be replayed.
func IsRetryable(err error) bool {
	var pgErr *pgconn.PgError

	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01":
			return true
		}
	}

	return false
}
