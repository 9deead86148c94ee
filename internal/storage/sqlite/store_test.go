package sqlite

import (
	"database/sql"
	"path/filepath"
	"strings"
	"testing"

	"github.com/julianstephens/habitual/internal/storage"
	"github.com/julianstephens/habitual/internal/storage/storagetest"
)

func setupTestSQLiteStore(t *testing.T) (*Store, func()) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	store := NewStore(dbPath)
	if err := store.Init(); err != nil {
		t.Fatalf("failed to init store: %v", err)
	}

	cleanup := func() {
		store.Close()
	}

	return store, cleanup
}

func TestProviderContract(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Provider {
		store, cleanup := setupTestSQLiteStore(t)
		t.Cleanup(cleanup)
		return store
	})
}

func TestLoadUninitialized(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "missing.db"))
	err := store.Load()
	if err == nil || !strings.Contains(err.Error(), "not initialized") {
		t.Errorf("expected not initialized error, got %v", err)
	}
}

func TestLoadEmptyFile(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "empty.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if _, err := db.Exec("CREATE TABLE unrelated (id INTEGER)"); err != nil {
		t.Fatalf("failed to create table: %v", err)
	}
	db.Close()

	store := NewStore(dbPath)
	defer store.Close()
	if err := store.Load(); err == nil || !strings.Contains(err.Error(), "not initialized") {
		t.Errorf("expected not initialized error, got %v", err)
	}
}

func TestReloadKeepsData(t *testing.T) {
	store, cleanup := setupTestSQLiteStore(t)
	path := store.GetConfigPath()
	if err := store.SetSetting("timezone", "UTC"); err != nil {
		t.Fatalf("failed to set setting: %v", err)
	}
	cleanup()

	reopened := NewStore(path)
	defer reopened.Close()
	if err := reopened.Load(); err != nil {
		t.Fatalf("failed to load store: %v", err)
	}
	value, ok, err := reopened.GetSetting("timezone")
	if err != nil || !ok || value != "UTC" {
		t.Errorf("expected persisted setting, got %q ok=%v err=%v", value, ok, err)
	}
}

func TestTableExists(t *testing.T) {
	store, cleanup := setupTestSQLiteStore(t)
	defer cleanup()

	for _, name := range []string{"habits", "HABITS", "habit_completions", "notification_requests"} {
		exists, err := store.tableExists(name)
		if err != nil {
			t.Fatalf("tableExists(%q) returned unexpected error: %v", name, err)
		}
		if !exists {
			t.Errorf("tableExists(%q) = false, want true", name)
		}
	}

	exists, err := store.tableExists("nonexistent_table")
	if err != nil {
		t.Fatalf("tableExists() returned unexpected error: %v", err)
	}
	if exists {
		t.Error("tableExists() = true, want false for missing table")
	}
}
