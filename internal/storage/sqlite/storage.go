package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mcoot/drawguess/internal/model"
	"github.com/mcoot/drawguess/internal/storage"
)

// Storage is a SQLite-backed implementation of the storage interface
type Storage struct {
	db *sql.DB
}

// New opens (creating if needed) the database at path and ensures the schema exists
func New(path string) (*Storage, error) {
	if path == "" {
		return nil, errors.New("database path is empty")
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(`PRAGMA busy_timeout = 5000;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("configure sqlite: %w", err)
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Storage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS rooms (
			id TEXT PRIMARY KEY,
			data BLOB NOT NULL,
			updated_at TIMESTAMP NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS draw_timers (
			room_id TEXT PRIMARY KEY,
			expires_at_ms INTEGER NOT NULL
		);`,
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}

	return nil
}

// Ensure Storage implements the interface
var _ storage.Store = (*Storage)(nil)

// Close releases database resources
func (s *Storage) Close() error {
	return s.db.Close()
}

// Room operations

func (s *Storage) SaveRoom(ctx context.Context, id model.RoomID, data []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO rooms (id, data, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		string(id), data, time.Now().UTC(),
	)
	return err
}

func (s *Storage) DeleteRoom(ctx context.Context, id model.RoomID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM rooms WHERE id = ?`, string(id)); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM draw_timers WHERE room_id = ?`, string(id)); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Storage) ScanRooms(ctx context.Context) (map[model.RoomID][]byte, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, data FROM rooms`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[model.RoomID][]byte)
	for rows.Next() {
		var id string
		var data []byte
		if err := rows.Scan(&id, &data); err != nil {
			return nil, err
		}
		result[model.RoomID(id)] = data
	}
	return result, rows.Err()
}

// Timer operations

func (s *Storage) SaveTimer(ctx context.Context, id model.RoomID, expiry time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO draw_timers (room_id, expires_at_ms) VALUES (?, ?)
		 ON CONFLICT(room_id) DO UPDATE SET expires_at_ms = excluded.expires_at_ms`,
		string(id), expiry.UnixMilli(),
	)
	return err
}

func (s *Storage) DeleteTimer(ctx context.Context, id model.RoomID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM draw_timers WHERE room_id = ?`, string(id))
	return err
}

func (s *Storage) ScanTimers(ctx context.Context) (map[model.RoomID]time.Time, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT room_id, expires_at_ms FROM draw_timers`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[model.RoomID]time.Time)
	for rows.Next() {
		var id string
		var ms int64
		if err := rows.Scan(&id, &ms); err != nil {
			return nil, err
		}
		result[model.RoomID(id)] = time.UnixMilli(ms)
	}
	return result, rows.Err()
}
