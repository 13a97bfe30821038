// Package sqlite provides a SQLite-backed battle archive using the pure-Go
// modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/cory-johannsen/gridtactics/internal/storage"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Store persists battle records in SQLite.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens the SQLite archive at path, creating it if needed, and applies
// the embedded schema.
//
// Precondition: path must be non-empty.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applySchema(sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

func applySchema(sqlDB *sql.DB) error {
	names, err := fs.Glob(migrationFS, "migrations/*.sql")
	if err != nil {
		return err
	}
	sort.Strings(names)
	for _, name := range names {
		body, err := migrationFS.ReadFile(name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if _, err := sqlDB.Exec(string(body)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
	}
	return nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Record inserts one battle record.
func (s *Store) Record(ctx context.Context, rec storage.BattleRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := rec.Validate(); err != nil {
		return err
	}
	log, err := json.Marshal(entriesOrEmpty(rec.Log))
	if err != nil {
		return fmt.Errorf("encode battle log: %w", err)
	}
	_, err = s.sqlDB.ExecContext(ctx,
		`INSERT INTO battles (id, scenario, winner, turns, ticks, log, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Scenario, rec.Winner, rec.Turns, rec.Ticks, string(log), toMillis(rec.FinishedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("record battle: %w", err)
	}
	return nil
}

// Get returns the battle with id.
func (s *Store) Get(ctx context.Context, id string) (storage.BattleRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.BattleRecord{}, err
	}
	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT id, scenario, winner, turns, ticks, log, finished_at
		 FROM battles WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.BattleRecord{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.BattleRecord{}, fmt.Errorf("get battle: %w", err)
	}
	return rec, nil
}

// Recent returns up to limit battles, most recently finished first.
func (s *Store) Recent(ctx context.Context, limit int) ([]storage.BattleRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT id, scenario, winner, turns, ticks, log, finished_at
		 FROM battles ORDER BY finished_at DESC, id ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list battles: %w", err)
	}
	defer rows.Close()

	var out []storage.BattleRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan battle: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate battles: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (storage.BattleRecord, error) {
	var (
		rec      storage.BattleRecord
		log      string
		finished int64
	)
	if err := row.Scan(&rec.ID, &rec.Scenario, &rec.Winner, &rec.Turns, &rec.Ticks, &log, &finished); err != nil {
		return storage.BattleRecord{}, err
	}
	if err := json.Unmarshal([]byte(log), &rec.Log); err != nil {
		return storage.BattleRecord{}, fmt.Errorf("decode battle log: %w", err)
	}
	rec.FinishedAt = fromMillis(finished)
	return rec, nil
}

func entriesOrEmpty(log []storage.Entry) []storage.Entry {
	if log == nil {
		return []storage.Entry{}
	}
	return log
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

var _ storage.Recorder = (*Store)(nil)
