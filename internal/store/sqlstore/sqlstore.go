// Package sqlstore implements store.Repository on database/sql through sqlx.
// It runs against PostgreSQL (pgx driver) in production and against an
// embedded SQLite database (modernc driver) for development and tests.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"grocermate/backend/internal/store"
)

const (
	DriverPostgres = "pgx"
	DriverSQLite   = "sqlite"
)

func init() {
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

type Store struct {
	db      *sqlx.DB
	dialect dialect
}

var _ store.Repository = (*Store)(nil)

// Open connects to the database and makes sure the schema exists.
func Open(ctx context.Context, driver string, dsn string) (*Store, error) {
	d, err := dialectFor(driver)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, err
	}

	if driver == DriverSQLite {
		// One connection serializes writers and keeps :memory: databases alive.
		db.SetMaxOpenConns(1)
		db.SetConnMaxLifetime(0)
	} else {
		db.SetMaxIdleConns(8)
		db.SetMaxOpenConns(30)
		db.SetConnMaxLifetime(30 * time.Minute)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &Store{db: db, dialect: d}
	if err := s.bootstrap(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap schema: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Driver() string {
	return s.dialect.driver
}

// InTx runs fn inside one database transaction. A non-nil error from fn, a
// panic, or a failed commit rolls everything back.
func (s *Store) InTx(ctx context.Context, fn func(tx store.Tx) error) (err error) {
	sqlTx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return classify("begin transaction", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = sqlTx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := sqlTx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				log.Printf("[store] WARN: rollback failed: %v", rbErr)
			}
		}
	}()

	if err = fn(&txStore{tx: sqlTx, dialect: s.dialect}); err != nil {
		return err
	}
	if err = sqlTx.Commit(); err != nil {
		return classify("commit transaction", err)
	}
	return nil
}

// queryer is satisfied by both *sqlx.DB and *sqlx.Tx.
type queryer interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
}

// classify maps driver errors onto the store taxonomy by error code.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if isStoreError(err) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505", "40001", "40P01":
			return &store.ConflictError{Op: op, Err: err}
		case "23503":
			return store.Invalid("reference", "record is referenced by or refers to missing data")
		case "23514":
			return store.Invalid("quantity", "constraint violated")
		}
		return &store.PersistenceError{Op: op, Err: err}
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		switch code {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return &store.ConflictError{Op: op, Err: err}
		case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
			return store.Invalid("reference", "record is referenced by or refers to missing data")
		case sqlite3.SQLITE_CONSTRAINT_CHECK:
			return store.Invalid("quantity", "constraint violated")
		}
		switch code & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return &store.ConflictError{Op: op, Err: err}
		}
		return &store.PersistenceError{Op: op, Err: err}
	}

	return &store.PersistenceError{Op: op, Err: err}
}

func isStoreError(err error) bool {
	return errors.Is(err, store.ErrValidation) ||
		errors.Is(err, store.ErrNotFound) ||
		errors.Is(err, store.ErrConflict) ||
		errors.Is(err, store.ErrPersistence) ||
		errors.Is(err, store.ErrInsufficientStock)
}

// getOne wraps GetContext so a missing row becomes a NotFoundError.
func getOne(ctx context.Context, q queryer, dest any, entity string, key any, query string, args ...any) error {
	if err := q.GetContext(ctx, dest, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.NotFound(entity, key)
		}
		return classify("get "+entity, err)
	}
	return nil
}

func execAffected(ctx context.Context, q queryer, op string, query string, args ...any) (int64, error) {
	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, classify(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, classify(op, err)
	}
	return n, nil
}

func insertReturningID(ctx context.Context, q queryer, op string, query string, args ...any) (int64, error) {
	var id int64
	if err := q.QueryRowxContext(ctx, query, args...).Scan(&id); err != nil {
		return 0, classify(op, err)
	}
	return id, nil
}

func nowUTC() time.Time {
	return time.Now().UTC()
}

func nullIfEmpty(val string) any {
	if val == "" {
		return nil
	}
	return val
}

func nullTime(val *time.Time) any {
	if val == nil {
		return nil
	}
	return val.UTC()
}

func nullInt(val *int64) any {
	if val == nil || *val == 0 {
		return nil
	}
	return *val
}
