package storage

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// MailEnvelope is one stored message: an IV-prefixed DES-CBC blob
// encrypted under the recipient's derived key. Envelopes are immutable
// once written; fetch reads them without deleting.
type MailEnvelope struct {
	ID        int64
	To        string
	From      string // not foreign-key enforced: "server" is a valid synthetic sender
	Body      []byte // iv || ciphertext
	CreatedAt string // ISO-8601 UTC
}

// MailboxStore persists envelopes in a sqlite database.
type MailboxStore struct {
	path string
}

// NewMailboxStore opens (creating if needed) the mailbox database.
func NewMailboxStore(path string) (*MailboxStore, error) {
	s := &MailboxStore{path: path}

	db, err := s.open()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	schema := `
	CREATE TABLE IF NOT EXISTS mailbox (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		to_username TEXT NOT NULL,
		from_username TEXT NOT NULL,
		body BLOB NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_mailbox_to ON mailbox(to_username);
	`
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to create mailbox schema: %v", err)
	}

	return s, nil
}

func (s *MailboxStore) open() (*sql.DB, error) {
	db, err := sql.Open("sqlite3", s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open mailbox database: %v", err)
	}
	return db, nil
}

// SaveEnvelope appends an envelope and fills in its surrogate ID.
func (s *MailboxStore) SaveEnvelope(env *MailEnvelope) error {
	db, err := s.open()
	if err != nil {
		return err
	}
	defer db.Close()

	result, err := db.Exec(
		`INSERT INTO mailbox (to_username, from_username, body, created_at) VALUES (?, ?, ?, ?)`,
		env.To, env.From, env.Body, env.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save envelope: %v", err)
	}

	env.ID, err = result.LastInsertId()
	if err != nil {
		return err
	}

	return nil
}

// FetchEnvelopes returns every envelope addressed to a user, oldest
// first (ascending insertion order). Ciphertext is returned untouched;
// decryption is the recipient's business.
func (s *MailboxStore) FetchEnvelopes(username string) ([]MailEnvelope, error) {
	db, err := s.open()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.Query(
		`SELECT id, to_username, from_username, body, created_at
		 FROM mailbox WHERE to_username = ? ORDER BY id ASC`,
		username,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch envelopes: %v", err)
	}
	defer rows.Close()

	var envelopes []MailEnvelope
	for rows.Next() {
		var env MailEnvelope
		if err := rows.Scan(&env.ID, &env.To, &env.From, &env.Body, &env.CreatedAt); err != nil {
			return nil, err
		}
		envelopes = append(envelopes, env)
	}

	return envelopes, rows.Err()
}

// Count returns the total number of stored envelopes.
func (s *MailboxStore) Count() (int, error) {
	db, err := s.open()
	if err != nil {
		return 0, err
	}
	defer db.Close()

	var count int
	row := db.QueryRow(`SELECT COUNT(*) FROM mailbox`)
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count envelopes: %v", err)
	}

	return count, nil
}
