package storage

import (
	"bytes"
	"database/sql"
	"encoding/base64"
	"path/filepath"
	"testing"
)

func testHash(seed byte) []byte {
	hash := make([]byte, 32)
	for i := range hash {
		hash[i] = seed + byte(i)
	}
	return hash
}

func TestUserStoreCreateAndGet(t *testing.T) {
	store, err := NewUserStore(filepath.Join(t.TempDir(), "users.db"))
	if err != nil {
		t.Fatalf("NewUserStore() error = %v", err)
	}

	id := &Identity{
		Username:     "alice",
		PasswordHash: testHash(1),
		PicturePath:  "images/alice.png",
	}
	if err := store.CreateUser(id); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}

	got, err := store.GetUser("alice")
	if err != nil {
		t.Fatalf("GetUser() error = %v", err)
	}
	if !bytes.Equal(got.PasswordHash, id.PasswordHash) {
		t.Errorf("GetUser() hash = %x, want %x", got.PasswordHash, id.PasswordHash)
	}
	if got.PicturePath != id.PicturePath {
		t.Errorf("GetUser() picture = %q, want %q", got.PicturePath, id.PicturePath)
	}
}

func TestUserStoreDuplicate(t *testing.T) {
	store, err := NewUserStore(filepath.Join(t.TempDir(), "users.db"))
	if err != nil {
		t.Fatalf("NewUserStore() error = %v", err)
	}

	id := &Identity{Username: "alice", PasswordHash: testHash(1), PicturePath: "a.png"}
	if err := store.CreateUser(id); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	if err := store.CreateUser(id); err != ErrUserExists {
		t.Errorf("CreateUser(duplicate) error = %v, want %v", err, ErrUserExists)
	}
}

func TestUserStoreUnknownUser(t *testing.T) {
	store, err := NewUserStore(filepath.Join(t.TempDir(), "users.db"))
	if err != nil {
		t.Fatalf("NewUserStore() error = %v", err)
	}

	if _, err := store.GetUser("nobody"); err != ErrNotFound {
		t.Errorf("GetUser(unknown) error = %v, want %v", err, ErrNotFound)
	}

	exists, err := store.Exists("nobody")
	if err != nil {
		t.Fatalf("Exists() error = %v", err)
	}
	if exists {
		t.Error("Exists(unknown) = true, want false")
	}
}

func TestUserStoreList(t *testing.T) {
	store, err := NewUserStore(filepath.Join(t.TempDir(), "users.db"))
	if err != nil {
		t.Fatalf("NewUserStore() error = %v", err)
	}

	names, err := store.ListUsernames()
	if err != nil {
		t.Fatalf("ListUsernames() error = %v", err)
	}
	if len(names) != 0 {
		t.Errorf("ListUsernames() on empty store = %v, want empty", names)
	}

	for _, name := range []string{"carol", "alice", "bob"} {
		id := &Identity{Username: name, PasswordHash: testHash(2), PicturePath: name + ".png"}
		if err := store.CreateUser(id); err != nil {
			t.Fatalf("CreateUser(%s) error = %v", name, err)
		}
	}

	names, err = store.ListUsernames()
	if err != nil {
		t.Fatalf("ListUsernames() error = %v", err)
	}
	want := []string{"alice", "bob", "carol"}
	if len(names) != len(want) {
		t.Fatalf("ListUsernames() = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("ListUsernames()[%d] = %q, want %q", i, names[i], want[i])
		}
	}

	count, err := store.Count()
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 3 {
		t.Errorf("Count() = %d, want 3", count)
	}
}

// Databases written before the column rename used "key" for the stored
// hash. Opening such a database must carry the values forward.
func TestUserStoreLegacyKeyMigration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.db")

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("sql.Open() error = %v", err)
	}
	legacy := `
	CREATE TABLE users (
		username TEXT PRIMARY KEY,
		key TEXT NOT NULL,
		picture_path TEXT NOT NULL
	);
	`
	if _, err := db.Exec(legacy); err != nil {
		t.Fatalf("legacy schema error = %v", err)
	}
	hash := testHash(9)
	_, err = db.Exec(
		`INSERT INTO users (username, key, picture_path) VALUES (?, ?, ?)`,
		"olduser", base64.StdEncoding.EncodeToString(hash), "images/olduser.png",
	)
	if err != nil {
		t.Fatalf("legacy insert error = %v", err)
	}
	db.Close()

	store, err := NewUserStore(path)
	if err != nil {
		t.Fatalf("NewUserStore() on legacy db error = %v", err)
	}

	got, err := store.GetUser("olduser")
	if err != nil {
		t.Fatalf("GetUser() after migration error = %v", err)
	}
	if !bytes.Equal(got.PasswordHash, hash) {
		t.Errorf("migrated hash = %x, want %x", got.PasswordHash, hash)
	}

	// Re-opening an already migrated database must be a no-op.
	if _, err := NewUserStore(path); err != nil {
		t.Fatalf("NewUserStore() second open error = %v", err)
	}
}
