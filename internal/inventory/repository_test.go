package inventory

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func openTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "khome.db"))
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	schema := []string{
		`CREATE TABLE actors (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			config TEXT NOT NULL
		)`,
		`CREATE TABLE modules (
			nid TEXT NOT NULL,
			mal TEXT NOT NULL,
			name TEXT NOT NULL,
			PRIMARY KEY (nid, mal)
		)`,
		`CREATE TABLE sens_data (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			sensor TEXT NOT NULL,
			value TEXT NOT NULL,
			timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("creating schema: %v", err)
		}
	}
	return NewSQLiteRepository(db)
}

func TestSQLiteRepositorySaveActor(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	// Insert: empty id means unsaved.
	id, err := repo.SaveActor(ctx, "", `{"type":"resend"}`)
	if err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if id != "1" {
		t.Errorf("first insert id = %q, want 1", id)
	}

	// A negative transient id also inserts.
	id2, err := repo.SaveActor(ctx, "-1", `{"type":"average"}`)
	if err != nil {
		t.Fatalf("transient insert failed: %v", err)
	}
	if id2 != "2" {
		t.Errorf("second insert id = %q, want 2", id2)
	}

	// Update keeps the id.
	if got, err := repo.SaveActor(ctx, id, `{"type":"resend","active":false}`); err != nil || got != id {
		t.Errorf("update returned (%q, %v), want id %q", got, err, id)
	}

	records, err := repo.LoadActors(ctx)
	if err != nil {
		t.Fatalf("LoadActors failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("loaded %d actors, want 2", len(records))
	}
	if records[0].ID != "1" || records[1].ID != "2" {
		t.Errorf("load order = %s, %s; want id order", records[0].ID, records[1].ID)
	}
	if records[0].Config != `{"type":"resend","active":false}` {
		t.Errorf("updated config = %s", records[0].Config)
	}
}

func TestSQLiteRepositoryDeleteActor(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	id, _ := repo.SaveActor(ctx, "", `{"type":"resend"}`)
	if err := repo.DeleteActor(ctx, id); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	records, _ := repo.LoadActors(ctx)
	if len(records) != 0 {
		t.Errorf("actor survived deletion")
	}
}

func TestSQLiteRepositoryModuleNames(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	if _, err := repo.GetModuleName(ctx, "a1b2c3", "relay0"); !errors.Is(err, ErrModuleNotFound) {
		t.Errorf("missing module: got %v, want ErrModuleNotFound", err)
	}

	if err := repo.SaveModuleName(ctx, "a1b2c3", "relay0", "porch light"); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if name, err := repo.GetModuleName(ctx, "a1b2c3", "relay0"); err != nil || name != "porch light" {
		t.Errorf("GetModuleName = (%q, %v)", name, err)
	}

	// Upsert replaces the stored name.
	if err := repo.SaveModuleName(ctx, "a1b2c3", "relay0", "garage door"); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	if name, _ := repo.GetModuleName(ctx, "a1b2c3", "relay0"); name != "garage door" {
		t.Errorf("upserted name = %q", name)
	}

	if err := repo.DeleteModule(ctx, "a1b2c3", "relay0"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := repo.GetModuleName(ctx, "a1b2c3", "relay0"); !errors.Is(err, ErrModuleNotFound) {
		t.Error("module name survived deletion")
	}
}

func TestSQLiteRepositoryLogSensorData(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	if err := repo.LogSensorData(ctx, "a1b2c3/dht22", "21.5"); err != nil {
		t.Fatalf("log failed: %v", err)
	}

	var sensor, value string
	err := repo.db.QueryRow(`SELECT sensor, value FROM sens_data`).Scan(&sensor, &value)
	if err != nil {
		t.Fatalf("reading back: %v", err)
	}
	if sensor != "a1b2c3/dht22" || value != "21.5" {
		t.Errorf("stored (%q, %q)", sensor, value)
	}
}
