// Package sqlite provides the persistent store for fiscal documents and
// the entities extracted from them.
package sqlite

import (
	"database/sql"
	"fmt"
	"io/fs"
	"sort"
	"strconv"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/rezonia/fiscal-processor/internal/storage/sqlite/migrations"
)

// Store wraps the SQLite database and exposes the entity repositories.
type Store struct {
	db *sql.DB

	emitters  *EmitterStore
	receivers *ReceiverStore
	products  *ProductStore
	documents *DocumentStore
	items     *ItemStore
	syncState *SyncStateStore
}

// New opens (or creates) the database at dbPath and applies any pending
// schema migrations.
func New(dbPath string) (*Store, error) {
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	s := &Store{db: db}
	s.emitters = &EmitterStore{db: db}
	s.receivers = &ReceiverStore{db: db}
	s.products = &ProductStore{db: db}
	s.documents = &DocumentStore{db: db}
	s.items = &ItemStore{db: db}
	s.syncState = &SyncStateStore{db: db}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the raw handle for callers that need ad-hoc queries.
func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Emitters() *EmitterStore    { return s.emitters }
func (s *Store) Receivers() *ReceiverStore  { return s.receivers }
func (s *Store) Products() *ProductStore    { return s.products }
func (s *Store) Documents() *DocumentStore  { return s.documents }
func (s *Store) Items() *ItemStore          { return s.items }
func (s *Store) SyncState() *SyncStateStore { return s.syncState }

func migrate(db *sql.DB) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_migrations: %w", err)
	}

	var current int
	if err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&current); err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}

	entries, err := fs.ReadDir(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("reading migrations: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".up.sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		version, err := migrationVersion(name)
		if err != nil {
			return err
		}
		if version <= current {
			continue
		}

		contents, err := fs.ReadFile(migrations.FS, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("beginning migration %s: %w", name, err)
		}
		if _, err := tx.Exec(string(contents)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %s: %w", name, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %s: %w", name, err)
		}
	}
	return nil
}

func migrationVersion(name string) (int, error) {
	prefix, _, ok := strings.Cut(name, "_")
	if !ok {
		return 0, fmt.Errorf("malformed migration name: %s", name)
	}
	version, err := strconv.Atoi(prefix)
	if err != nil {
		return 0, fmt.Errorf("malformed migration version in %s: %w", name, err)
	}
	return version, nil
}
