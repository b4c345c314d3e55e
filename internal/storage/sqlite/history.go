// Package sqlite stores finished battle outcomes in an embedded SQLite
// database.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cory-johannsen/gotchi/internal/game/battle"
)

//go:embed schema.sql
var schema string

// Entry is one recorded battle as seen from a single creature.
type Entry struct {
	SessionID  string
	Opponent   string
	Won        bool
	Draw       bool
	Experience int
	NewLevel   int
	Turns      int
	EndedAt    time.Time
}

// HistoryStore records battle outcomes. It implements battle.HistoryRecorder.
type HistoryStore struct {
	db *sql.DB
}

var _ battle.HistoryRecorder = (*HistoryStore)(nil)

func toMillis(t time.Time) int64   { return t.UTC().UnixMilli() }
func fromMillis(v int64) time.Time { return time.UnixMilli(v).UTC() }

// Open opens or creates the history database at path and applies the schema.
//
// Precondition: path must be non-empty; ":memory:" is accepted.
// Postcondition: Returns a ready store or a non-nil error; the caller must Close it.
func Open(path string) (*HistoryStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("history path is required")
	}
	dsn := ":memory:"
	if path != ":memory:" {
		dsn = filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if path == ":memory:" {
		// an in-memory database lives on a single connection
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply history schema: %w", err)
	}
	return &HistoryStore{db: db}, nil
}

// Close closes the database handle.
func (s *HistoryStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record stores o. Recording the same session twice replaces the earlier row.
func (s *HistoryStore) Record(ctx context.Context, o *battle.Outcome) error {
	if o == nil || o.SessionID == "" {
		return errors.New("outcome session id is required")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin history tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO battles (session_id, draw, turns, ended_at) VALUES (?, ?, ?, ?)`,
		o.SessionID, o.Draw, o.Turns, toMillis(o.EndedAt),
	); err != nil {
		return fmt.Errorf("insert battle: %w", err)
	}
	for side, a := range map[string]battle.Award{"winner": o.Winner, "loser": o.Loser} {
		if _, err := tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO battle_awards (
			  session_id, side, user_id, creature_id, name, cpu,
			  experience, total_experience, old_level, new_level, evolve
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			o.SessionID, side, a.UserID, a.CreatureID, a.Name, a.CPU,
			a.Experience, a.TotalExperience, a.OldLevel, a.NewLevel, a.Evolve,
		); err != nil {
			return fmt.Errorf("insert %s award: %w", side, err)
		}
	}
	return tx.Commit()
}

// History returns the battles creatureID took part in, newest first.
//
// Precondition: creatureID > 0; CPU opponents are never listed.
func (s *HistoryStore) History(ctx context.Context, creatureID int64, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT b.session_id, b.draw, b.turns, b.ended_at,
		       me.side, me.experience, me.new_level, other.name
		FROM battle_awards me
		JOIN battles b ON b.session_id = me.session_id
		JOIN battle_awards other ON other.session_id = me.session_id AND other.side <> me.side
		WHERE me.creature_id = ? AND me.cpu = 0
		ORDER BY b.ended_at DESC, b.session_id
		LIMIT ?`,
		creatureID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e     Entry
			side  string
			ended int64
		)
		if err := rows.Scan(&e.SessionID, &e.Draw, &e.Turns, &ended,
			&side, &e.Experience, &e.NewLevel, &e.Opponent); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		e.EndedAt = fromMillis(ended)
		e.Won = side == "winner" && !e.Draw
		out = append(out, e)
	}
	return out, rows.Err()
}
