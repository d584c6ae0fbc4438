// Package database opens the bridge's SQLite database and applies its
// schema migrations.
//
// The database holds the Gather space settings and the sealed API token.
// It runs in WAL mode with a single writer connection and the file is
// created with owner-only permissions.
//
// Usage:
//
//	db, err := database.Open(database.Config{Path: cfg.Database.Path, WALMode: true})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
//
// Migrations are .up.sql/.down.sql pairs named YYYYMMDD_HHMMSS_description,
// registered through MigrationsFS by the migrations package.
package database
