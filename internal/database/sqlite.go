// Package database initializes the embedded SQLite store used for job
// history and retention bookkeeping.
package database

import (
	"database/sql"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const dbFileName = "jobs.db"

// Init opens (creating if needed) the SQLite database under dataDir
func Init(dataDir string) (*sql.DB, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, err
	}

	dbFile := filepath.Join(dataDir, dbFileName)
	db, err := sql.Open("sqlite", dbFile)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	// WAL and a busy timeout keep concurrent job workers from tripping over
	// SQLITE_BUSY
	if _, err := db.Exec(`
		PRAGMA busy_timeout = 5000;
		PRAGMA journal_mode = WAL;
		PRAGMA foreign_keys = ON;
	`); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}
