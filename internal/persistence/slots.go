package persistence

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
)

// ErrNoSlot is returned when a save slot does not exist.
var ErrNoSlot = errors.New("save slot not found")

// Slot describes a stored save slot without its payload.
type Slot struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	RawSize   int64     `json:"raw_size"`
}

type slotRow struct {
	ID        string `db:"id"`
	Name      string `db:"name"`
	CreatedAt int64  `db:"created_at"`
	RawSize   int64  `db:"raw_size"`
}

func (r slotRow) slot() Slot {
	return Slot{ID: r.ID, Name: r.Name, CreatedAt: time.Unix(0, r.CreatedAt).UTC(), RawSize: r.RawSize}
}

// WriteSlot stores v as zstd-compressed JSON under a new slot id.
func (db *DB) WriteSlot(name string, v any) (Slot, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return Slot{}, fmt.Errorf("marshal slot %s: %w", name, err)
	}

	var buf bytes.Buffer
	enc, err := zstd.NewWriter(&buf, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return Slot{}, err
	}
	if _, err := enc.Write(raw); err != nil {
		enc.Close()
		return Slot{}, err
	}
	if err := enc.Close(); err != nil {
		return Slot{}, err
	}

	s := Slot{
		ID:        uuid.New().String(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
		RawSize:   int64(len(raw)),
	}
	_, err = db.conn.Exec(
		"INSERT INTO save_slots (id, name, created_at, raw_size, payload) VALUES (?, ?, ?, ?, ?)",
		s.ID, s.Name, s.CreatedAt.UnixNano(), s.RawSize, buf.Bytes(),
	)
	if err != nil {
		return Slot{}, fmt.Errorf("write slot %s: %w", name, err)
	}
	return s, nil
}

// ReadSlot decodes the slot with the given id into v.
func (db *DB) ReadSlot(id string, v any) error {
	var payload []byte
	err := db.conn.Get(&payload, "SELECT payload FROM save_slots WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNoSlot
	}
	if err != nil {
		return err
	}

	dec, err := zstd.NewReader(bytes.NewReader(payload))
	if err != nil {
		return err
	}
	defer dec.Close()

	raw, err := io.ReadAll(dec)
	if err != nil {
		return fmt.Errorf("decompress slot %s: %w", id, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("unmarshal slot %s: %w", id, err)
	}
	return nil
}

// LatestSlot returns the most recent slot with the given name.
func (db *DB) LatestSlot(name string) (Slot, error) {
	var row slotRow
	err := db.conn.Get(&row,
		"SELECT id, name, created_at, raw_size FROM save_slots WHERE name = ? ORDER BY created_at DESC, rowid DESC LIMIT 1",
		name,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Slot{}, ErrNoSlot
	}
	if err != nil {
		return Slot{}, err
	}
	return row.slot(), nil
}

// ListSlots returns slot metadata, newest first.
func (db *DB) ListSlots() ([]Slot, error) {
	var rows []slotRow
	if err := db.conn.Select(&rows, "SELECT id, name, created_at, raw_size FROM save_slots ORDER BY created_at DESC, rowid DESC"); err != nil {
		return nil, err
	}
	out := make([]Slot, len(rows))
	for i, r := range rows {
		out[i] = r.slot()
	}
	return out, nil
}

// PruneSlots keeps the newest keep slots with the given name and deletes the rest.
func (db *DB) PruneSlots(name string, keep int) (int64, error) {
	res, err := db.conn.Exec(`DELETE FROM save_slots WHERE name = ? AND id NOT IN (
		SELECT id FROM save_slots WHERE name = ? ORDER BY created_at DESC, rowid DESC LIMIT ?)`,
		name, name, keep,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
