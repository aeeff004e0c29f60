package postgres

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestHandlePostgresError(t *testing.T) {
	r := &Repository{}
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "unique violation", err: &pgconn.PgError{Code: "23505", ConstraintName: "authority_pkey"}, want: "authority already exists"},
		{name: "serialization", err: &pgconn.PgError{Code: "40001"}, want: "concurrent update in update item"},
		{name: "missing table", err: &pgconn.PgError{Code: "42P01"}, want: "migration required"},
		{name: "other", err: errors.New("conn closed"), want: "database error in update item"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := r.handlePostgresError("update item", tt.err)
			assert.Contains(t, err.Error(), tt.want)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}
