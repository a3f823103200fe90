package catalog

import "database/sql"

// Service stores the payloads extracted by read runs
type Service interface {
	CreateDatabase() (*sql.DB, error)
	DoesDatabaseExist() bool
	Close() error

	// Record stores one extracted payload and returns the new entry id
	Record(path string, payload string) (string, error)
	All() ([]*Entry, error)
	FindByPath(path string) ([]*Entry, error)
	Delete(id string) error
}
