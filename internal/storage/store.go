package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// RoomRow represents a room in the database.
type RoomRow struct {
	ID        string
	GameType  string
	Secret    string
	Phase     string // "preparing", "playing", "paused"
	CreatedAt time.Time
}

// Store handles SQLite persistence.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the database and runs migrations.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// WAL mode for better concurrent reads
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS rooms (
			id         TEXT PRIMARY KEY,
			game_type  TEXT NOT NULL,
			secret     TEXT NOT NULL DEFAULT '',
			phase      TEXT NOT NULL DEFAULT 'preparing',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE TABLE IF NOT EXISTS room_state (
			room_id    TEXT PRIMARY KEY REFERENCES rooms(id),
			state_json TEXT NOT NULL,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE TABLE IF NOT EXISTS waiting_list (
			player_id TEXT PRIMARY KEY,
			joined_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	return err
}

// CreateRoom inserts a new room.
func (s *Store) CreateRoom(id, gameType, secret string) error {
	_, err := s.db.Exec(
		"INSERT INTO rooms (id, game_type, secret, phase) VALUES (?, ?, ?, 'preparing')",
		id, gameType, secret,
	)
	return err
}

// GetRoom retrieves a room by id.
func (s *Store) GetRoom(id string) (*RoomRow, error) {
	row := s.db.QueryRow("SELECT id, game_type, secret, phase, created_at FROM rooms WHERE id = ?", id)
	var rr RoomRow
	if err := row.Scan(&rr.ID, &rr.GameType, &rr.Secret, &rr.Phase, &rr.CreatedAt); err != nil {
		return nil, err
	}
	return &rr, nil
}

// ListRooms returns all rooms, newest first.
func (s *Store) ListRooms() ([]RoomRow, error) {
	rows, err := s.db.Query("SELECT id, game_type, secret, phase, created_at FROM rooms ORDER BY created_at DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []RoomRow
	for rows.Next() {
		var rr RoomRow
		if err := rows.Scan(&rr.ID, &rr.GameType, &rr.Secret, &rr.Phase, &rr.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, rr)
	}
	return result, rows.Err()
}

// SaveState upserts the serialized room state and updates the phase.
func (s *Store) SaveState(roomID, phase string, state []byte) error {
	if _, err := s.db.Exec("UPDATE rooms SET phase = ? WHERE id = ?", phase, roomID); err != nil {
		return err
	}
	_, err := s.db.Exec(`
		INSERT INTO room_state (room_id, state_json, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(room_id) DO UPDATE SET state_json = excluded.state_json, updated_at = excluded.updated_at
	`, roomID, string(state))
	return err
}

// GetState retrieves the serialized room state.
func (s *Store) GetState(roomID string) ([]byte, error) {
	var stateJSON string
	err := s.db.QueryRow("SELECT state_json FROM room_state WHERE room_id = ?", roomID).Scan(&stateJSON)
	return []byte(stateJSON), err
}

// DeleteRoom removes a room and its state.
func (s *Store) DeleteRoom(id string) error {
	_, err := s.db.Exec("DELETE FROM room_state WHERE room_id = ?", id)
	if err != nil {
		return err
	}
	_, err = s.db.Exec("DELETE FROM rooms WHERE id = ?", id)
	return err
}

// SaveWaiting replaces the persisted matchmaking waiting list.
func (s *Store) SaveWaiting(playerIDs []string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.Exec("DELETE FROM waiting_list"); err != nil {
		return err
	}
	for _, id := range playerIDs {
		if _, err := tx.Exec("INSERT INTO waiting_list (player_id) VALUES (?)", id); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// LoadWaiting returns the persisted waiting list in join order.
func (s *Store) LoadWaiting() ([]string, error) {
	rows, err := s.db.Query("SELECT player_id FROM waiting_list ORDER BY joined_at")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
