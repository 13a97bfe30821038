package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/gridtactics/internal/storage"
)

// uniqueViolation is the PostgreSQL SQLSTATE for a unique constraint failure.
const uniqueViolation = "23505"

// BattleRepository archives finished battles.
type BattleRepository struct {
	db *pgxpool.Pool
}

// NewBattleRepository creates a BattleRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewBattleRepository(db *pgxpool.Pool) *BattleRepository {
	return &BattleRepository{db: db}
}

// Record inserts rec.
//
// Precondition: rec.ID must be a UUID.
// Postcondition: Returns storage.ErrAlreadyExists if the ID is taken.
func (r *BattleRepository) Record(ctx context.Context, rec storage.BattleRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	log := rec.Log
	if log == nil {
		log = []storage.Entry{}
	}
	body, err := json.Marshal(log)
	if err != nil {
		return fmt.Errorf("encoding battle log: %w", err)
	}
	_, err = r.db.Exec(ctx,
		`INSERT INTO battles (id, scenario, winner, turns, ticks, log, finished_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rec.ID, rec.Scenario, rec.Winner, rec.Turns, rec.Ticks, body, rec.FinishedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("inserting battle: %w", err)
	}
	return nil
}

// Get retrieves a battle by ID.
//
// Postcondition: Returns storage.ErrNotFound if no battle has that ID.
func (r *BattleRepository) Get(ctx context.Context, id string) (storage.BattleRecord, error) {
	row := r.db.QueryRow(ctx,
		`SELECT id::text, scenario, winner, turns, ticks, log, finished_at
		 FROM battles WHERE id = $1`, id)
	rec, err := scanBattle(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return storage.BattleRecord{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.BattleRecord{}, fmt.Errorf("querying battle: %w", err)
	}
	return rec, nil
}

// Recent lists up to limit battles, most recently finished first.
func (r *BattleRepository) Recent(ctx context.Context, limit int) ([]storage.BattleRecord, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := r.db.Query(ctx,
		`SELECT id::text, scenario, winner, turns, ticks, log, finished_at
		 FROM battles ORDER BY finished_at DESC, id LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing battles: %w", err)
	}
	defer rows.Close()

	var out []storage.BattleRecord
	for rows.Next() {
		rec, err := scanBattle(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning battle: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating battles: %w", err)
	}
	return out, nil
}

// Close is a no-op; the pool is owned and closed by its creator.
func (r *BattleRepository) Close() error { return nil }

func scanBattle(row pgx.Row) (storage.BattleRecord, error) {
	var (
		rec  storage.BattleRecord
		body []byte
	)
	if err := row.Scan(&rec.ID, &rec.Scenario, &rec.Winner, &rec.Turns, &rec.Ticks, &body, &rec.FinishedAt); err != nil {
		return storage.BattleRecord{}, err
	}
	if err := json.Unmarshal(body, &rec.Log); err != nil {
		return storage.BattleRecord{}, fmt.Errorf("decoding battle log: %w", err)
	}
	rec.FinishedAt = rec.FinishedAt.UTC()
	return rec, nil
}

var _ storage.Recorder = (*BattleRepository)(nil)
