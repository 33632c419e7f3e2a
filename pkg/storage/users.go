// Package storage provides the relational persistence for stgmsg: a
// users database holding registered identities and a mailbox database
// holding encrypted message envelopes.
//
// Each logical operation opens the database, runs its statements and
// closes again. The server handles one request at a time, so scoped
// acquisition keeps things simple; adding client concurrency would need
// a shared handle with per-operation locking instead.
package storage

import (
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrUserExists = errors.New("username already exists")
)

// Identity is a registered user: the stored password hash plus the path
// of the cover picture that carries it. Identities are never mutated.
type Identity struct {
	Username     string
	PasswordHash []byte // 32-byte SHA-256, stored base64
	PicturePath  string // relative to the data directory
}

// UserStore persists identities in a sqlite database.
type UserStore struct {
	path string
}

// NewUserStore opens (creating if needed) the users database and brings
// its schema up to date.
func NewUserStore(path string) (*UserStore, error) {
	s := &UserStore{path: path}

	db, err := s.open()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	schema := `
	CREATE TABLE IF NOT EXISTS users (
		username TEXT PRIMARY KEY,
		password_hash TEXT NOT NULL,
		picture_path TEXT NOT NULL
	);
	`
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to create users schema: %v", err)
	}

	if err := migrateLegacyKeyColumn(db); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *UserStore) open() (*sql.DB, error) {
	db, err := sql.Open("sqlite3", s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open users database: %v", err)
	}
	return db, nil
}

// migrateLegacyKeyColumn copies rows forward from the historical schema
// where the password hash lived in a column named "key".
func migrateLegacyKeyColumn(db *sql.DB) error {
	rows, err := db.Query(`PRAGMA table_info(users)`)
	if err != nil {
		return fmt.Errorf("failed to inspect users schema: %v", err)
	}
	defer rows.Close()

	hasKey := false
	for rows.Next() {
		var cid int
		var name, ctype string
		var notNull, pk int
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &dflt, &pk); err != nil {
			return err
		}
		if name == "key" {
			hasKey = true
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if !hasKey {
		return nil
	}

	migration := `
	CREATE TABLE users_migrated (
		username TEXT PRIMARY KEY,
		password_hash TEXT NOT NULL,
		picture_path TEXT NOT NULL
	);
	INSERT INTO users_migrated (username, password_hash, picture_path)
		SELECT username, key, picture_path FROM users;
	DROP TABLE users;
	ALTER TABLE users_migrated RENAME TO users;
	`
	if _, err := db.Exec(migration); err != nil {
		return fmt.Errorf("failed to migrate legacy key column: %v", err)
	}

	return nil
}

// CreateUser inserts a new identity. Returns ErrUserExists when the
// username is already taken.
func (s *UserStore) CreateUser(id *Identity) error {
	db, err := s.open()
	if err != nil {
		return err
	}
	defer db.Close()

	_, err = db.Exec(
		`INSERT INTO users (username, password_hash, picture_path) VALUES (?, ?, ?)`,
		id.Username,
		base64.StdEncoding.EncodeToString(id.PasswordHash),
		id.PicturePath,
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
			return ErrUserExists
		}
		return fmt.Errorf("failed to create user: %v", err)
	}

	return nil
}

// GetUser looks up an identity by username.
func (s *UserStore) GetUser(username string) (*Identity, error) {
	db, err := s.open()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	var encodedHash string
	id := &Identity{Username: username}

	row := db.QueryRow(
		`SELECT password_hash, picture_path FROM users WHERE username = ?`,
		username,
	)
	if err := row.Scan(&encodedHash, &id.PicturePath); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load user: %v", err)
	}

	id.PasswordHash, err = base64.StdEncoding.DecodeString(encodedHash)
	if err != nil {
		return nil, fmt.Errorf("failed to decode stored hash: %v", err)
	}

	return id, nil
}

// Exists reports whether a username is already registered.
func (s *UserStore) Exists(username string) (bool, error) {
	db, err := s.open()
	if err != nil {
		return false, err
	}
	defer db.Close()

	var count int
	row := db.QueryRow(`SELECT COUNT(*) FROM users WHERE username = ?`, username)
	if err := row.Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check user: %v", err)
	}

	return count > 0, nil
}

// ListUsernames returns every registered username, ordered.
func (s *UserStore) ListUsernames() ([]string, error) {
	db, err := s.open()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.Query(`SELECT username FROM users ORDER BY username`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %v", err)
	}
	defer rows.Close()

	var usernames []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		usernames = append(usernames, name)
	}

	return usernames, rows.Err()
}

// Count returns the number of registered identities.
func (s *UserStore) Count() (int, error) {
	db, err := s.open()
	if err != nil {
		return 0, err
	}
	defer db.Close()

	var count int
	row := db.QueryRow(`SELECT COUNT(*) FROM users`)
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count users: %v", err)
	}

	return count, nil
}
