package catalog

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

type SQLiteCatalog struct {
	db               *sql.DB
	connectionString string
}

func NewSQLiteCatalog(connectionString string) (Service, error) {
	db, err := sql.Open("sqlite", connectionString)
	if err != nil {
		return nil, err
	}
	// every connection to ":memory:" would otherwise get its own empty database
	db.SetMaxOpenConns(1)

	return &SQLiteCatalog{
		db:               db,
		connectionString: connectionString,
	}, nil
}

func (s *SQLiteCatalog) CreateDatabase() (*sql.DB, error) {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS entries (
		id TEXT PRIMARY KEY,
		path TEXT NOT NULL,
		payload TEXT NOT NULL,
		recorded_at INTEGER NOT NULL
	)`)
	if err != nil {
		return nil, err
	}
	_, err = s.db.Exec(`CREATE INDEX IF NOT EXISTS entries_path ON entries (path)`)
	if err != nil {
		return nil, err
	}

	return s.db, nil
}

func (s *SQLiteCatalog) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLiteCatalog) DoesDatabaseExist() bool {
	// SQLite creates the database file on connect, so a successful ping is enough
	err := s.db.Ping()
	return err == nil
}

func (s *SQLiteCatalog) Record(path string, payload string) (string, error) {
	id, err := generateID()
	if err != nil {
		return "", err
	}

	_, err = s.db.Exec("INSERT INTO entries (id, path, payload, recorded_at) VALUES (?, ?, ?, ?)",
		id, path, payload, time.Now().UnixNano())
	if err != nil {
		return "", fmt.Errorf("failed to record entry for %s: %w", path, err)
	}

	return id, nil
}

func (s *SQLiteCatalog) All() ([]*Entry, error) {
	return s.query("SELECT id, path, payload, recorded_at FROM entries ORDER BY recorded_at, rowid")
}

func (s *SQLiteCatalog) FindByPath(path string) ([]*Entry, error) {
	return s.query("SELECT id, path, payload, recorded_at FROM entries WHERE path = ? ORDER BY recorded_at, rowid", path)
}

func (s *SQLiteCatalog) Delete(id string) error {
	res, err := s.db.Exec("DELETE FROM entries WHERE id = ?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("entry %s: %w", id, sql.ErrNoRows)
	}
	return nil
}

func (s *SQLiteCatalog) query(query string, args ...any) ([]*Entry, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close() // Explicitly ignore error as we're already returning an error from the function
	}()

	var entries []*Entry
	for rows.Next() {
		var (
			entry      Entry
			recordedAt int64
		)
		if err := rows.Scan(&entry.ID, &entry.Path, &entry.Payload, &recordedAt); err != nil {
			return nil, err
		}
		entry.RecordedAt = time.Unix(0, recordedAt)
		entries = append(entries, &entry)
	}
	return entries, rows.Err()
}

// IsNotFound reports whether err means the requested entry does not exist
func IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
