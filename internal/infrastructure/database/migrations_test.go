package database

import (
	"context"
	"io/fs"
	"testing"
	"testing/fstest"
)

var testMigrations = fstest.MapFS{
	"sql/20261001_090000_create_things.up.sql": {Data: []byte(
		"CREATE TABLE things (id TEXT PRIMARY KEY) STRICT;")},
	"sql/20261001_090000_create_things.down.sql": {Data: []byte(
		"DROP TABLE things;")},
	"sql/20261002_090000_add_widgets.up.sql": {Data: []byte(
		"CREATE TABLE widgets (id TEXT PRIMARY KEY) STRICT;")},
	"sql/20261002_090000_add_widgets.down.sql": {Data: []byte(
		"DROP TABLE widgets;")},
	"sql/README.md":                            {Data: []byte("ignored")},
	"sql/20261003_090000_orphan.down.sql":      {Data: []byte("SELECT 1;")},
}

// useMigrations swaps the package migration source for the test.
func useMigrations(t *testing.T, fsys fs.FS, dir string) {
	t.Helper()
	origFS, origDir := MigrationsFS, MigrationsDir
	MigrationsFS, MigrationsDir = fsys, dir
	t.Cleanup(func() {
		MigrationsFS, MigrationsDir = origFS, origDir
	})
}

func tableExists(t *testing.T, db *DB, name string) bool {
	t.Helper()
	var count int
	err := db.QueryRowContext(context.Background(),
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", name).Scan(&count)
	if err != nil {
		t.Fatalf("querying sqlite_master: %v", err)
	}
	return count == 1
}

func TestMigrate(t *testing.T) {
	useMigrations(t, testMigrations, "sql")
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if !tableExists(t, db, "things") || !tableExists(t, db, "widgets") {
		t.Fatal("migrated tables missing")
	}

	applied, pending, err := db.MigrationStatus(ctx)
	if err != nil {
		t.Fatalf("MigrationStatus() error = %v", err)
	}
	if len(applied) != 2 || len(pending) != 0 {
		t.Errorf("applied=%d pending=%d, want 2 and 0", len(applied), len(pending))
	}
	if applied[0].Version != "20261001_090000" || applied[0].AppliedAt.IsZero() {
		t.Errorf("first record = %+v", applied[0])
	}

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}
}

func TestMigrateDown(t *testing.T) {
	useMigrations(t, testMigrations, "sql")
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if err := db.MigrateDown(ctx); err != nil {
		t.Fatalf("MigrateDown() error = %v", err)
	}

	if tableExists(t, db, "widgets") {
		t.Error("latest migration not rolled back")
	}
	if !tableExists(t, db, "things") {
		t.Error("earlier migration rolled back")
	}

	_, pending, _ := db.MigrationStatus(ctx)
	if len(pending) != 1 || pending[0].Name != "add_widgets" {
		t.Errorf("pending = %+v", pending)
	}
}

func TestMigrateFailureKeepsEarlier(t *testing.T) {
	broken := fstest.MapFS{
		"20261001_090000_ok.up.sql":     {Data: []byte("CREATE TABLE ok_table (id INTEGER);")},
		"20261002_090000_broken.up.sql": {Data: []byte("CREATE TABLE nonsense (;")},
	}
	useMigrations(t, broken, ".")
	db := openTestDB(t)

	if err := db.Migrate(context.Background()); err == nil {
		t.Fatal("Migrate() = nil, want error")
	}
	if !tableExists(t, db, "ok_table") {
		t.Error("migration before the failure was rolled back")
	}
}

func TestMigrateNoMigrations(t *testing.T) {
	useMigrations(t, nil, ".")
	db := openTestDB(t)

	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate() with no migrations error = %v", err)
	}
	if err := db.MigrateDown(context.Background()); err != nil {
		t.Fatalf("MigrateDown() with nothing applied error = %v", err)
	}
}

func TestParseMigrationFilename(t *testing.T) {
	tests := []struct {
		filename    string
		wantVersion string
		wantName    string
		wantUp      bool
		wantOK      bool
	}{
		{"20261019_120000_gather_settings.up.sql", "20261019_120000", "gather_settings", true, true},
		{"20261019_120000_gather_settings.down.sql", "20261019_120000", "gather_settings", false, true},
		{"20261019_120000.up.sql", "20261019_120000", "20261019_120000", true, true},
		{"20261019_120000_x.sql", "", "", false, false},
		{"20261019.up.sql", "", "", false, false},
		{"README.md", "", "", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			version, name, up, ok := parseMigrationFilename(tt.filename)
			if version != tt.wantVersion || name != tt.wantName || up != tt.wantUp || ok != tt.wantOK {
				t.Errorf("parseMigrationFilename(%q) = %q, %q, %v, %v", tt.filename, version, name, up, ok)
			}
		})
	}
}
