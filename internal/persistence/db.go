// Package persistence provides SQLite-based storage for the engine clock,
// counters, ledger, factions, events, offline summaries and save slots.
package persistence

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/idle-engine/internal/economy"
	"github.com/talgya/idle-engine/internal/engine"
	"github.com/talgya/idle-engine/internal/social"
)

// ErrNoState is returned by LoadEngineState before the first save.
var ErrNoState = errors.New("no saved engine state")

// DB wraps a SQLite connection for engine persistence.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// A single writer keeps SQLite from returning SQLITE_BUSY under WAL.
	conn.SetMaxOpenConns(1)

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS engine_state (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		last_update INTEGER NOT NULL,
		playtime_total INTEGER NOT NULL,
		playtime_since_reset INTEGER NOT NULL,
		playtime_since_major_reset INTEGER NOT NULL,
		cycles INTEGER NOT NULL,
		speed REAL NOT NULL,
		ledger_json TEXT NOT NULL,
		saved_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS counters (
		name TEXT PRIMARY KEY,
		remaining INTEGER NOT NULL,
		armed INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS factions (
		name TEXT PRIMARY KEY,
		position INTEGER NOT NULL,
		favor REAL NOT NULL,
		reputation REAL NOT NULL,
		member INTEGER NOT NULL,
		invited INTEGER NOT NULL,
		offers_work INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		tick INTEGER NOT NULL,
		at INTEGER NOT NULL,
		description TEXT NOT NULL,
		category TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS offline_summaries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		reconciled_at INTEGER NOT NULL,
		summary_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS save_slots (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		raw_size INTEGER NOT NULL,
		payload BLOB NOT NULL
	);

	CREATE TABLE IF NOT EXISTS world_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_tick ON events(tick);
	CREATE INDEX IF NOT EXISTS idx_slots_name ON save_slots(name, created_at);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// EngineState is everything needed to resume the clock after a restart.
type EngineState struct {
	LastUpdate time.Time
	Playtime   engine.Playtime
	Cycles     uint64
	Speed      float64
	Counters   []engine.CounterState
	Ledger     *economy.Ledger
	Factions   []*social.Faction
}

type stateRow struct {
	LastUpdate      int64   `db:"last_update"`
	Total           int64   `db:"playtime_total"`
	SinceReset      int64   `db:"playtime_since_reset"`
	SinceMajorReset int64   `db:"playtime_since_major_reset"`
	Cycles          int64   `db:"cycles"`
	Speed           float64 `db:"speed"`
	LedgerJSON      string  `db:"ledger_json"`
}

type factionRow struct {
	Name       string  `db:"name"`
	Favor      float64 `db:"favor"`
	Reputation float64 `db:"reputation"`
	Member     bool    `db:"member"`
	Invited    bool    `db:"invited"`
	OffersWork bool    `db:"offers_work"`
}

// SaveEngineState writes the engine state in one transaction (full replace).
func (db *DB) SaveEngineState(s EngineState) error {
	ledger := s.Ledger
	if ledger == nil {
		ledger = economy.NewLedger()
	}
	ledgerJSON, err := json.Marshal(ledger)
	if err != nil {
		return fmt.Errorf("marshal ledger: %w", err)
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`INSERT OR REPLACE INTO engine_state
		(id, last_update, playtime_total, playtime_since_reset, playtime_since_major_reset,
		 cycles, speed, ledger_json, saved_at)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.LastUpdate.UnixNano(),
		int64(s.Playtime.Total), int64(s.Playtime.SinceReset), int64(s.Playtime.SinceMajorReset),
		int64(s.Cycles), s.Speed, string(ledgerJSON), time.Now().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("save engine state: %w", err)
	}

	if _, err := tx.Exec("DELETE FROM counters"); err != nil {
		return err
	}
	for _, c := range s.Counters {
		if _, err := tx.Exec(
			"INSERT INTO counters (name, remaining, armed) VALUES (?, ?, ?)",
			c.Name, c.Remaining, c.Armed,
		); err != nil {
			return fmt.Errorf("save counter %s: %w", c.Name, err)
		}
	}

	if _, err := tx.Exec("DELETE FROM factions"); err != nil {
		return err
	}
	stmt, err := tx.Preparex(`INSERT INTO factions
		(name, position, favor, reputation, member, invited, offers_work)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i, f := range s.Factions {
		if _, err := stmt.Exec(f.Name, i, f.Favor, f.Reputation, f.Member, f.Invited, f.OffersWork); err != nil {
			return fmt.Errorf("save faction %s: %w", f.Name, err)
		}
	}

	return tx.Commit()
}

// HasEngineState reports whether an engine state has been saved.
func (db *DB) HasEngineState() (bool, error) {
	var n int
	if err := db.conn.Get(&n, "SELECT COUNT(*) FROM engine_state"); err != nil {
		return false, err
	}
	return n > 0, nil
}

// LoadEngineState reads the saved engine state. It returns ErrNoState when
// nothing has been saved yet.
func (db *DB) LoadEngineState() (EngineState, error) {
	var row stateRow
	err := db.conn.Get(&row, `SELECT last_update, playtime_total, playtime_since_reset,
		playtime_since_major_reset, cycles, speed, ledger_json FROM engine_state WHERE id = 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return EngineState{}, ErrNoState
	}
	if err != nil {
		return EngineState{}, fmt.Errorf("load engine state: %w", err)
	}

	s := EngineState{
		LastUpdate: time.Unix(0, row.LastUpdate).UTC(),
		Playtime: engine.Playtime{
			Total:           time.Duration(row.Total),
			SinceReset:      time.Duration(row.SinceReset),
			SinceMajorReset: time.Duration(row.SinceMajorReset),
		},
		Cycles: uint64(row.Cycles),
		Speed:  row.Speed,
		Ledger: economy.NewLedger(),
	}
	if err := json.Unmarshal([]byte(row.LedgerJSON), s.Ledger); err != nil {
		return EngineState{}, fmt.Errorf("unmarshal ledger: %w", err)
	}

	if err := db.conn.Select(&s.Counters, "SELECT name, remaining, armed FROM counters ORDER BY name"); err != nil {
		return EngineState{}, fmt.Errorf("load counters: %w", err)
	}

	var factions []factionRow
	if err := db.conn.Select(&factions, `SELECT name, favor, reputation, member, invited, offers_work
		FROM factions ORDER BY position`); err != nil {
		return EngineState{}, fmt.Errorf("load factions: %w", err)
	}
	for _, f := range factions {
		s.Factions = append(s.Factions, &social.Faction{
			Name:       f.Name,
			Favor:      f.Favor,
			Reputation: f.Reputation,
			Member:     f.Member,
			Invited:    f.Invited,
			OffersWork: f.OffersWork,
		})
	}

	slog.Debug("engine state loaded", "cycles", s.Cycles, "counters", len(s.Counters), "factions", len(s.Factions))
	return s, nil
}

type eventRow struct {
	Tick        int64  `db:"tick"`
	At          int64  `db:"at"`
	Description string `db:"description"`
	Category    string `db:"category"`
}

// SaveEvents appends events to the database.
func (db *DB) SaveEvents(events []engine.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, e := range events {
		_, err := tx.Exec(
			"INSERT INTO events (tick, at, description, category) VALUES (?, ?, ?, ?)",
			int64(e.Tick), e.At.UnixNano(), e.Description, e.Category,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// RecentEvents returns the most recent N events, oldest first.
func (db *DB) RecentEvents(limit int) ([]engine.Event, error) {
	var rows []eventRow
	err := db.conn.Select(&rows,
		"SELECT tick, at, description, category FROM events ORDER BY id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, err
	}
	events := make([]engine.Event, len(rows))
	for i, r := range rows {
		events[len(rows)-1-i] = engine.Event{
			Tick:        uint64(r.Tick),
			At:          time.Unix(0, r.At).UTC(),
			Description: r.Description,
			Category:    r.Category,
		}
	}
	return events, nil
}

// SaveOfflineSummary records the result of an offline reconciliation.
func (db *DB) SaveOfflineSummary(s engine.OfflineSummary) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	_, err = db.conn.Exec(
		"INSERT INTO offline_summaries (reconciled_at, summary_json) VALUES (?, ?)",
		s.ReconciledAt.UnixNano(), string(data),
	)
	return err
}

// LastOfflineSummary returns the most recent offline summary, if any.
func (db *DB) LastOfflineSummary() (engine.OfflineSummary, bool, error) {
	var data string
	err := db.conn.Get(&data, "SELECT summary_json FROM offline_summaries ORDER BY id DESC LIMIT 1")
	if errors.Is(err, sql.ErrNoRows) {
		return engine.OfflineSummary{}, false, nil
	}
	if err != nil {
		return engine.OfflineSummary{}, false, err
	}
	var s engine.OfflineSummary
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		return engine.OfflineSummary{}, false, fmt.Errorf("unmarshal summary: %w", err)
	}
	return s, true, nil
}

// SaveMeta stores a key-value pair in metadata.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO world_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM world_meta WHERE key = ?", key)
	return value, err
}
