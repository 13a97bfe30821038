// Package storage defines the battle archive: an append-mostly log of
// finished battles. Battles themselves are never saved or resumed.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotFound is returned when a battle record lookup yields no results.
var ErrNotFound = errors.New("battle record not found")

// ErrAlreadyExists is returned when a battle ID is recorded twice.
var ErrAlreadyExists = errors.New("battle record already exists")

// Entry is one line of a battle's turn log.
type Entry struct {
	Turn   int    `json:"turn"`
	Unit   string `json:"unit"`
	Team   string `json:"team"`
	Action string `json:"action"`
	Target string `json:"target,omitempty"`
	// Amount is damage dealt or HP restored, when the action has one.
	Amount int `json:"amount,omitempty"`
}

// BattleRecord summarises one finished battle.
type BattleRecord struct {
	ID       string
	Scenario string
	// Winner is the surviving team, or empty for a draw.
	Winner     string
	Turns      int
	Ticks      int
	Log        []Entry
	FinishedAt time.Time
}

// Validate checks the fields every backend requires.
func (r BattleRecord) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return fmt.Errorf("battle id is required")
	}
	if strings.TrimSpace(r.Scenario) == "" {
		return fmt.Errorf("scenario is required")
	}
	if r.Turns < 0 || r.Ticks < 0 {
		return fmt.Errorf("turns and ticks must be >= 0")
	}
	if r.FinishedAt.IsZero() {
		return fmt.Errorf("finished_at is required")
	}
	return nil
}

// Recorder persists finished battles.
type Recorder interface {
	// Record appends rec; a duplicate ID returns ErrAlreadyExists.
	Record(ctx context.Context, rec BattleRecord) error
	// Get returns the record with id or ErrNotFound.
	Get(ctx context.Context, id string) (BattleRecord, error)
	// Recent returns up to limit records, most recently finished first.
	Recent(ctx context.Context, limit int) ([]BattleRecord, error)
	Close() error
}

// Discard is the Recorder for the "none" archive backend.
type Discard struct{}

func (Discard) Record(ctx context.Context, rec BattleRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return rec.Validate()
}

func (Discard) Get(context.Context, string) (BattleRecord, error) {
	return BattleRecord{}, ErrNotFound
}

func (Discard) Recent(context.Context, int) ([]BattleRecord, error) { return nil, nil }

func (Discard) Close() error { return nil }

var _ Recorder = Discard{}
