// Package store is the relational facade of the catalog: generic
// query/exec helpers rebound per driver, typed repositories, and the
// exclusive file swap used by restores.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sync"

	"github.com/jmoiron/sqlx"

	coredatabase "github.com/m3rciful/catalogbot/core/database"
	"github.com/m3rciful/catalogbot/core/logger"
)

// ErrNotFound reports a missing row.
var ErrNotFound = errors.New("store: not found")

// Opener reconnects the store after a file swap.
type Opener func(coredatabase.Config) (*sqlx.DB, error)

// Store wraps the database handle. Statements are written with "?"
// placeholders; the handle rebinds them for the active driver.
//
// Every statement runs under a read lock; Swap takes the write lock, so a
// file substitution never interleaves with queries.
type Store struct {
	mu   sync.RWMutex
	db   *sqlx.DB
	cfg  coredatabase.Config
	open Opener
}

// MigratingOpener applies the migrations in fsys before connecting, so a
// restored file from an older release is brought up to the current schema.
func MigratingOpener(fsys fs.FS) Opener {
	return func(cfg coredatabase.Config) (*sqlx.DB, error) {
		if err := coredatabase.RunMigrations(cfg, fsys); err != nil {
			return nil, err
		}
		return coredatabase.Connect(cfg)
	}
}

// New wraps an open database. open may be nil when the store is never swapped.
func New(db *sqlx.DB, cfg coredatabase.Config, open Opener) *Store {
	if open == nil {
		open = coredatabase.Connect
	}
	return &Store{db: db, cfg: cfg, open: open}
}

// Driver returns the configured driver name.
func (s *Store) Driver() string { return s.cfg.Driver }

// Path returns the sqlite file path, or "" for other drivers.
func (s *Store) Path() string {
	if s.cfg.Driver != coredatabase.DriverSQLite {
		return ""
	}
	return s.cfg.Path
}

// Close releases the database handle.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// Conn executes statements against either the database or a transaction.
type Conn struct {
	x sqlx.ExtContext
}

// Query scans all rows into dest, a pointer to a slice.
func (c Conn) Query(ctx context.Context, dest any, query string, args ...any) error {
	return sqlx.SelectContext(ctx, c.x, dest, c.x.Rebind(query), args...)
}

// Get scans one row into dest; a missing row yields ErrNotFound.
func (c Conn) Get(ctx context.Context, dest any, query string, args ...any) error {
	err := sqlx.GetContext(ctx, c.x, dest, c.x.Rebind(query), args...)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// Exec runs a statement and returns the number of affected rows.
func (c Conn) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := c.x.ExecContext(ctx, c.x.Rebind(query), args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Insert runs an INSERT and returns the generated id. The statement must not
// carry its own RETURNING clause.
func (c Conn) Insert(ctx context.Context, query string, args ...any) (int64, error) {
	var id int64
	if err := c.x.QueryRowxContext(ctx, c.x.Rebind(query+" RETURNING id"), args...).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// In expands slice arguments of an IN (?) clause before rebinding.
func (c Conn) In(ctx context.Context, query string, args ...any) (int64, error) {
	q, expanded, err := sqlx.In(query, args...)
	if err != nil {
		return 0, err
	}
	return c.Exec(ctx, q, expanded...)
}

func (s *Store) with(fn func(Conn) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return errors.New("store: closed")
	}
	return fn(Conn{x: s.db})
}

// Query scans all rows into dest, a pointer to a slice.
func (s *Store) Query(ctx context.Context, dest any, query string, args ...any) error {
	return s.with(func(c Conn) error { return c.Query(ctx, dest, query, args...) })
}

// Get scans one row into dest; a missing row yields ErrNotFound.
func (s *Store) Get(ctx context.Context, dest any, query string, args ...any) error {
	return s.with(func(c Conn) error { return c.Get(ctx, dest, query, args...) })
}

// Exec runs a statement and returns the number of affected rows.
func (s *Store) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	var n int64
	err := s.with(func(c Conn) error {
		var err error
		n, err = c.Exec(ctx, query, args...)
		return err
	})
	return n, err
}

// Insert runs an INSERT and returns the generated id.
func (s *Store) Insert(ctx context.Context, query string, args ...any) (int64, error) {
	var id int64
	err := s.with(func(c Conn) error {
		var err error
		id, err = c.Insert(ctx, query, args...)
		return err
	})
	return id, err
}

// InTx runs fn in one transaction, committing on nil and rolling back
// otherwise. fn must use only the Conn it is given: calling back into the
// Store from inside fn can deadlock against a pending Swap.
func (s *Store) InTx(ctx context.Context, fn func(Conn) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return errors.New("store: closed")
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := fn(Conn{x: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Raw runs fn with the underlying handle under the read lock, for
// driver-specific statements such as VACUUM INTO.
func (s *Store) Raw(fn func(*sqlx.DB) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return errors.New("store: closed")
	}
	return fn(s.db)
}

// Swap closes the database, lets replace substitute the file at Path, and
// reopens it, all under the exclusive lock. When replace fails the original
// file is reopened.
func (s *Store) Swap(ctx context.Context, replace func(path string) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			logger.DB.WarnContext(ctx, "close before swap failed",
				slog.String("event", "db.swap"),
				slog.String("err", err.Error()),
			)
		}
		s.db = nil
	}

	replaceErr := replace(s.cfg.Path)

	db, err := s.open(s.cfg)
	if err != nil {
		return errors.Join(replaceErr, fmt.Errorf("reopen after swap: %w", err))
	}
	s.db = db
	if replaceErr != nil {
		return replaceErr
	}
	logger.DB.InfoContext(ctx, "store swapped",
		slog.String("event", "db.swap"),
		slog.String("path", s.cfg.Path),
	)
	return nil
}

func flag(b bool) int {
	if b {
		return 1
	}
	return 0
}
