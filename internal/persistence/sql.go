// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/ffutop/savestate/save"
)

// DefaultSQLDriver is registered by the pgx stdlib adapter.
const DefaultSQLDriver = "pgx"

// SQLBackend stores slots in a PostgreSQL table `save_slots`, created on open.
type SQLBackend struct {
	db *sql.DB
}

// OpenSQLBackend connects to the database and ensures the schema exists.
func OpenSQLBackend(ctx context.Context, driver, dsn string) (*SQLBackend, error) {
	if driver == "" {
		driver = DefaultSQLDriver
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	s := &SQLBackend{db: db}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}
	return s, nil
}

func (s *SQLBackend) initSchema(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS save_slots (
		profile_id INTEGER NOT NULL,
		slot_id INTEGER NOT NULL,
		data BYTEA NOT NULL,
		screenshot BYTEA,
		updated_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (profile_id, slot_id)
	);
	`
	_, err := s.db.ExecContext(ctx, query)
	return err
}

func (s *SQLBackend) Enumerate(ctx context.Context, profileID int) ([]SlotMetadata, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT slot_id, updated_at, octet_length(data), screenshot IS NOT NULL
		 FROM save_slots WHERE profile_id = $1 ORDER BY slot_id`, profileID)
	if err != nil {
		return nil, fmt.Errorf("failed to query slots: %w", err)
	}
	defer rows.Close()

	var out []SlotMetadata
	for rows.Next() {
		md := SlotMetadata{Key: save.SlotKey{ProfileID: profileID}}
		if err := rows.Scan(&md.Key.SlotID, &md.UpdatedAt, &md.Size, &md.HasScreenshot); err != nil {
			return nil, fmt.Errorf("failed to scan slot: %w", err)
		}
		out = append(out, md)
	}
	return out, rows.Err()
}

func (s *SQLBackend) Read(ctx context.Context, key save.SlotKey) ([]byte, bool, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM save_slots WHERE profile_id = $1 AND slot_id = $2`,
		key.ProfileID, key.SlotID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read slot %s: %w", key, err)
	}
	return data, true, nil
}

func (s *SQLBackend) Write(ctx context.Context, key save.SlotKey, data []byte, screenshot []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO save_slots (profile_id, slot_id, data, screenshot, updated_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (profile_id, slot_id) DO UPDATE
		 SET data = excluded.data, screenshot = excluded.screenshot, updated_at = excluded.updated_at`,
		key.ProfileID, key.SlotID, data, screenshot, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to persist slot %s: %w", key, err)
	}
	return nil
}

func (s *SQLBackend) Delete(ctx context.Context, key save.SlotKey) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM save_slots WHERE profile_id = $1 AND slot_id = $2`,
		key.ProfileID, key.SlotID)
	if err != nil {
		return fmt.Errorf("failed to delete slot %s: %w", key, err)
	}
	return nil
}

func (s *SQLBackend) ReadScreenshot(ctx context.Context, key save.SlotKey) ([]byte, bool, error) {
	var shot []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT screenshot FROM save_slots WHERE profile_id = $1 AND slot_id = $2`,
		key.ProfileID, key.SlotID).Scan(&shot)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read screenshot %s: %w", key, err)
	}
	return shot, shot != nil, nil
}

func (s *SQLBackend) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
