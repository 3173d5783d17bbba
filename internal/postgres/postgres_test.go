package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDSN(t *testing.T) {
	got := DSN("pizza", "p@ss word", "db", 5432, "pizza", "disable")
	assert.Equal(t, "postgres://pizza:p%40ss%20word@db:5432/pizza?sslmode=disable", got)
}

func TestMigrateURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "postgres://u:p@h:5432/db", want: "pgx5://u:p@h:5432/db"},
		{in: "postgresql://u:p@h/db", want: "pgx5://u:p@h/db"},
		{in: "pgx5://u@h/db", want: "pgx5://u@h/db"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, migrateURL(tt.in))
		})
	}
}

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := migrations.ReadDir("migrations")
	assert.NoError(t, err)
	assert.Len(t, entries, 2)
}
