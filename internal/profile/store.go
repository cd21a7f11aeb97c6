package profile

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// SQLiteStore persists snapshots in the profiles table.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a snapshot store backed by db. The profiles table
// must already exist; migrations create it at startup.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Save stores snap under (device, slot), replacing any snapshot previously
// held in that slot.
func (s *SQLiteStore) Save(ctx context.Context, device string, slot int, snap Snapshot) error {
	if slot < 0 || slot >= SlotCount {
		return fmt.Errorf("%w: %d", ErrInvalidSlot, slot)
	}

	b, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshalling snapshot: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO profiles (device, slot, snapshot, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (device, slot) DO UPDATE SET
		     snapshot = excluded.snapshot,
		     updated_at = excluded.updated_at`,
		device, slot, string(b), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("saving profile %d for %s: %w", slot, device, err)
	}
	return nil
}

// Load returns the snapshot stored under (device, slot), or ErrNotFound when
// the slot has never been saved.
func (s *SQLiteStore) Load(ctx context.Context, device string, slot int) (Snapshot, error) {
	if slot < 0 || slot >= SlotCount {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSlot, slot)
	}

	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT snapshot FROM profiles WHERE device = ? AND slot = ?`,
		device, slot,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading profile %d for %s: %w", slot, device, err)
	}

	var snap Snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return nil, fmt.Errorf("decoding profile %d for %s: %w", slot, device, err)
	}
	return snap, nil
}

// Delete removes the snapshot stored under (device, slot). Deleting a slot
// that was never saved returns ErrNotFound.
func (s *SQLiteStore) Delete(ctx context.Context, device string, slot int) error {
	if slot < 0 || slot >= SlotCount {
		return fmt.Errorf("%w: %d", ErrInvalidSlot, slot)
	}

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM profiles WHERE device = ? AND slot = ?`,
		device, slot,
	)
	if err != nil {
		return fmt.Errorf("deleting profile %d for %s: %w", slot, device, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting profile %d for %s: %w", slot, device, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
