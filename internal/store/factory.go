package store

import "fmt"

// New builds a Store for the configured driver: "sqlite" or "json".
func New(driver, path string) (Store, error) {
	switch driver {
	case "", "sqlite":
		return NewSQLiteStore(path)
	case "json":
		return NewJSONStore(path)
	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}
}
