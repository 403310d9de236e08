package database

import (
	"fmt"

	"github.com/npezzotti/roomcast/internal/config"
)

// Open connects to the store selected by driver.
func Open(driver, dsn string) (Repository, error) {
	switch driver {
	case config.DriverPostgres:
		return NewPgRepository(dsn)
	case config.DriverSqlite:
		return NewSqliteRepository(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}
