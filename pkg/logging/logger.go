// Package logging provides the tag+message logger used across stgmsg.
// Every entry goes to the console and, when a database path is set, to
// a sqlite `logs` table for later inspection.
package logging

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Logger writes tagged log lines to the console and optionally to a
// sqlite database. The zero value logs to the console only.
type Logger struct {
	dbPath string
	debug  bool
}

// New creates a logger backed by the given sqlite database. An empty
// path disables database persistence.
func New(dbPath string, debug bool) (*Logger, error) {
	l := &Logger{dbPath: dbPath, debug: debug}

	if dbPath != "" {
		db, err := sql.Open("sqlite3", dbPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open log database: %v", err)
		}
		defer db.Close()

		schema := `
		CREATE TABLE IF NOT EXISTS logs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp TEXT NOT NULL,
			tag TEXT NOT NULL,
			message TEXT NOT NULL
		);
		`
		if _, err := db.Exec(schema); err != nil {
			return nil, fmt.Errorf("failed to create log schema: %v", err)
		}
	}

	return l, nil
}

// Log records a tagged message.
func (l *Logger) Log(tag, message string) {
	log.Printf("[%s] %s", tag, message)

	if l.dbPath == "" {
		return
	}

	db, err := sql.Open("sqlite3", l.dbPath)
	if err != nil {
		return
	}
	defer db.Close()

	timestamp := time.Now().UTC().Format("2006-01-02 15:04:05")
	// A failed log insert must never take anything else down.
	_, _ = db.Exec(
		`INSERT INTO logs (timestamp, tag, message) VALUES (?, ?, ?)`,
		timestamp, tag, message,
	)
}

// Logf records a tagged, formatted message.
func (l *Logger) Logf(tag, format string, args ...any) {
	l.Log(tag, fmt.Sprintf(format, args...))
}

// Info records a message under the INFO tag.
func (l *Logger) Info(message string) {
	l.Log("INFO", message)
}

// Error records a message under the ERROR tag.
func (l *Logger) Error(message string) {
	l.Log("ERROR", message)
}

// Debug records a message under the DEBUG tag when debug mode is on.
func (l *Logger) Debug(message string) {
	if l.debug {
		l.Log("DEBUG", message)
	}
}
