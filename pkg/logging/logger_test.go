package logging

import (
	"database/sql"
	"path/filepath"
	"testing"
)

func TestLoggerPersistsEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs.db")

	logger, err := New(path, false)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	logger.Log("SERVER", "server starting")
	logger.Info("hello")
	logger.Error("something failed")
	logger.Debug("not recorded, debug off")

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("sql.Open() error = %v", err)
	}
	defer db.Close()

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM logs`).Scan(&count); err != nil {
		t.Fatalf("count query error = %v", err)
	}
	if count != 3 {
		t.Errorf("log rows = %d, want 3", count)
	}

	var tag, message string
	row := db.QueryRow(`SELECT tag, message FROM logs ORDER BY id LIMIT 1`)
	if err := row.Scan(&tag, &message); err != nil {
		t.Fatalf("row scan error = %v", err)
	}
	if tag != "SERVER" || message != "server starting" {
		t.Errorf("first row = (%q, %q), want (SERVER, server starting)", tag, message)
	}
}

func TestLoggerDebugGate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs.db")

	logger, err := New(path, true)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	logger.Debug("recorded, debug on")

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("sql.Open() error = %v", err)
	}
	defer db.Close()

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM logs WHERE tag = 'DEBUG'`).Scan(&count); err != nil {
		t.Fatalf("count query error = %v", err)
	}
	if count != 1 {
		t.Errorf("debug rows = %d, want 1", count)
	}
}

func TestLoggerConsoleOnly(t *testing.T) {
	logger, err := New("", false)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	// Must not panic without a database.
	logger.Log("TEST", "console only")
}
