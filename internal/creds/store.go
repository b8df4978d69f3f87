// Package creds persists the client-side session: the bearer token, the
// signed-in user, and small preferences. Nothing else is stored locally;
// chat state is always re-fetched from the backend.
package creds

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/StayHubLab/stayhub-go/api"
)

// Store is the durable client-side session store.
type Store struct {
	db *sql.DB
}

// Open opens or creates the store under dir.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", filepath.Join(dir, "stayhub.db")+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate session store: %w", err)
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS session (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS preferences (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *Store) get(table, key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM `+table+` WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

func (s *Store) set(table, key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO `+table+` (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

// SaveSession stores the bearer token and the signed-in user.
func (s *Store) SaveSession(token string, user api.User) error {
	if err := s.set("session", "token", token); err != nil {
		return err
	}
	data, err := json.Marshal(user)
	if err != nil {
		return err
	}
	return s.set("session", "user", string(data))
}

// LoadSession returns the stored token and user. An empty token with a
// nil error means no session is stored.
func (s *Store) LoadSession() (string, api.User, error) {
	var user api.User

	token, err := s.get("session", "token")
	if err != nil || token == "" {
		return "", user, err
	}

	raw, err := s.get("session", "user")
	if err != nil {
		return "", user, err
	}
	if raw != "" {
		if err := json.Unmarshal([]byte(raw), &user); err != nil {
			return "", user, err
		}
	}
	return token, user, nil
}

// ClearSession removes the stored token and user.
func (s *Store) ClearSession() error {
	_, err := s.db.Exec(`DELETE FROM session`)
	return err
}

// GetPreference retrieves a preference value; missing keys return "".
func (s *Store) GetPreference(key string) (string, error) {
	return s.get("preferences", key)
}

// SetPreference sets a preference value.
func (s *Store) SetPreference(key, value string) error {
	return s.set("preferences", key, value)
}

// DeviceID returns a stable identifier for this installation, creating
// one on first use.
func (s *Store) DeviceID() (string, error) {
	id, err := s.GetPreference("device_id")
	if err != nil {
		return "", err
	}
	if id != "" {
		return id, nil
	}

	id = uuid.New().String()
	if err := s.SetPreference("device_id", id); err != nil {
		return "", err
	}
	return id, nil
}
