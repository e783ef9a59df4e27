package storage

import (
	"context"
	"database/sql"
	"time"
)

// DB exposes the internal *sql.DB for test helpers in storage_test.
func (s *Store) DB() *sql.DB {
	return s.db
}

// FailExec makes every subsequent exec return err.
func (s *Store) FailExec(err error) {
	s.hooks.exec = func(context.Context, execer, string, ...any) (sql.Result, error) {
		return nil, err
	}
}

// FailQuery makes every subsequent query return err.
func (s *Store) FailQuery(err error) {
	s.hooks.query = func(context.Context, queryer, string, ...any) (*sql.Rows, error) {
		return nil, err
	}
}

// SetTimeNow freezes the store clock and returns a restore func.
func SetTimeNow(t time.Time) func() {
	prev := timeNow
	timeNow = func() time.Time { return t }
	return func() { timeNow = prev }
}
