// Package store is the durable key/value layer behind the local post
// overlay and the persisted admin flag. Values are plain strings; callers
// that need structure serialize JSON into them.
package store

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"
)

const schemaVersion = 1

const schemaSQL = `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS kv (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

type Store struct {
	db          *sql.DB
	busyTimeout time.Duration
}

func Open(path string) (*Store, error) {
	return OpenWithTimeout(path, 5*time.Second)
}

func OpenWithTimeout(path string, busyTimeout time.Duration) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	s := &Store{db: db, busyTimeout: busyTimeout}
	if err := s.init(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return err
	}
	version, err := s.currentVersion(ctx)
	if err != nil {
		return err
	}
	if version != schemaVersion {
		return s.setVersion(ctx, schemaVersion)
	}
	return nil
}

func (s *Store) currentVersion(ctx context.Context) (int, error) {
	var v int
	err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return v, nil
}

func (s *Store) setVersion(ctx context.Context, v int) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM schema_version"); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, "INSERT INTO schema_version(version) VALUES(?)", v)
	return err
}

// Get returns the stored value for key. Absence and read failures both
// report ok=false: the callers treat a broken store the same as an empty
// one and degrade to defaults.
func (s *Store) Get(key string) (string, bool) {
	var value string
	err := s.retryRow(func() error {
		return s.db.QueryRow("SELECT value FROM kv WHERE key=?", key).Scan(&value)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return "", false
	}
	if err != nil {
		slog.Warn("store get failed", "key", key, "err", err)
		return "", false
	}
	return value, true
}

func (s *Store) Set(key, value string) error {
	return s.retryExec("INSERT INTO kv(key, value) VALUES(?, ?) ON CONFLICT(key) DO UPDATE SET value=excluded.value", key, value)
}

func (s *Store) Delete(key string) error {
	return s.retryExec("DELETE FROM kv WHERE key=?", key)
}

func (s *Store) retryExec(query string, args ...any) error {
	return s.retry(func() error {
		_, err := s.db.Exec(query, args...)
		return err
	})
}

func (s *Store) retryRow(scan func() error) error {
	return s.retry(scan)
}

func (s *Store) retry(op func() error) error {
	start := time.Now()
	for attempt := 0; ; attempt++ {
		err := op()
		if err == nil || !isSQLiteBusy(err) {
			return err
		}
		if s.busyTimeout <= 0 || time.Since(start) >= s.busyTimeout {
			slog.Debug("store retry gave up", "attempts", attempt+1, "err", err)
			return err
		}
		time.Sleep(retryDelay(attempt))
	}
}

func retryDelay(attempt int) time.Duration {
	return time.Duration(attempt+1) * 40 * time.Millisecond
}

func isSQLiteBusy(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.Code == sqlite3.ErrBusy || se.Code == sqlite3.ErrLocked
	}
	return false
}
