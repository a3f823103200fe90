package catalog

import (
	"fmt"
	"log/slog"
)

// New opens the catalog of the given type and makes sure its schema exists
func New(databaseType, connectionString string) (catalog Service, err error) {
	switch databaseType {
	case "sqlite":
		catalog, err = NewSQLiteCatalog(connectionString)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported catalog driver: %s", databaseType)
	}

	// idempotent, and required for in-memory SQLite
	slog.Debug("Catalog: initializing schema", "type", databaseType)
	if _, err = catalog.CreateDatabase(); err != nil {
		_ = catalog.Close()
		return nil, fmt.Errorf("failed to create catalog: %w", err)
	}

	return catalog, nil
}
