// Package sqlite persists price bars, the symbol directory, and API keys
// in a single SQLite database.
package sqlite

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	"chartengine/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

// Config configures the SQLite store.
type Config struct {
	DBPath string // path to SQLite database file, e.g. "data/bars.db"
}

// Store is a single-writer SQLite store with transaction batching.
type Store struct {
	db *sql.DB
}

// DB returns the underlying sql.DB for health checks and the auth layer.
func (s *Store) DB() *sql.DB { return s.db }

// Open creates a Store, initializes the database with WAL mode and schema.
func Open(cfg Config) (*Store, error) {
	db, err := sql.Open("sqlite3", cfg.DBPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	// Single-writer discipline
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	log.Printf("[sqlite] opened database at %s", cfg.DBPath)
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS bars (
			symbol TEXT NOT NULL,
			ts     REAL NOT NULL,
			open   REAL NOT NULL,
			high   REAL NOT NULL,
			low    REAL NOT NULL,
			close  REAL NOT NULL,
			volume REAL NOT NULL,
			PRIMARY KEY (symbol, ts)
		);

		CREATE TABLE IF NOT EXISTS symbols (
			symbol TEXT PRIMARY KEY,
			name   TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS api_keys (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			key_hash     TEXT    NOT NULL UNIQUE,
			label        TEXT    NOT NULL DEFAULT '',
			is_active    INTEGER NOT NULL DEFAULT 1,
			created_at   INTEGER NOT NULL,
			last_used_at INTEGER,
			expires_at   INTEGER
		);
	`)
	return err
}

// UpsertBars inserts or replaces a batch of bars for one symbol in a single
// transaction. Returns the commit duration for metrics.
func (s *Store) UpsertBars(symbol string, bars []model.PriceBar) (time.Duration, error) {
	start := time.Now()

	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO bars (symbol, ts, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return 0, err
	}
	defer stmt.Close()

	for _, b := range bars {
		if _, err := stmt.Exec(symbol, b.TS, b.Open, b.High, b.Low, b.Close, b.Volume); err != nil {
			tx.Rollback()
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return time.Since(start), nil
}

// UpsertSymbol inserts or updates one symbol directory entry.
func (s *Store) UpsertSymbol(entry model.SymbolEntry) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO symbols (symbol, name) VALUES (?, ?)`,
		entry.Symbol, entry.Name,
	)
	return err
}
