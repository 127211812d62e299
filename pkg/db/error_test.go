package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestIsDuplicateKeyErr(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "gorm translated", err: fmt.Errorf("insert: %w", gorm.ErrDuplicatedKey), want: true},
		{name: "postgres unique", err: fmt.Errorf("insert order: %w", &pgconn.PgError{Code: "23505", ConstraintName: "idx_orders_slug"}), want: true},
		{name: "postgres fk", err: &pgconn.PgError{Code: "23503"}, want: false},
		{name: "mysql duplicate", err: &mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'ACME1'"}, want: true},
		{name: "mysql other", err: &mysql.MySQLError{Number: 1452}, want: false},
		{name: "sqlite", err: errors.New("constraint failed: UNIQUE constraint failed: orders.slug (2067)"), want: true},
		{name: "sqlite primary key", err: errors.New("constraint failed: PRIMARY KEY constraint failed: users.id (1555)"), want: true},
		{name: "other", err: errors.New("connection refused"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsDuplicateKeyErr(tt.err))
		})
	}
}
