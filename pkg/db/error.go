package db

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const (
	pgUniqueViolation    = "23505"
	mysqlDuplicateEntry  = 1062
	sqliteUniqueFailed   = "UNIQUE constraint failed"
	sqlitePrimaryKeyFail = "PRIMARY KEY constraint failed"
)

// IsDuplicateKeyErr reports whether err is a unique index violation on any
// of the supported dialects.
func IsDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlDuplicateEntry
	}

	// the pure-go sqlite driver only exposes its result code in the message
	msg := err.Error()
	return strings.Contains(msg, sqliteUniqueFailed) || strings.Contains(msg, sqlitePrimaryKeyFail)
}
