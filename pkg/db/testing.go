package db

import (
	"fmt"
	"sync/atomic"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var testDBSeq atomic.Int64

// NewTest opens an isolated in-memory sqlite database with foreign keys on.
func NewTest() (*gorm.DB, error) {
	dsn := fmt.Sprintf("file:orderdesk_test_%d?mode=memory&cache=shared&_pragma=foreign_keys(1)", testDBSeq.Add(1))
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Discard,
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, err
	}
	// a single connection keeps the shared-cache database free of table locks
	sqlDB.SetMaxOpenConns(1)

	return conn, nil
}
