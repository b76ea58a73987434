// Package storage provides the persistence backends for drawings.
package storage

import (
	"context"
	"fmt"
	"slices"

	"github.com/raykavin/chartdraw/pkg/core"
)

// Backend is a drawing storage that can also enumerate its sources
type Backend interface {
	core.DrawingStorage

	// Sources returns every source id that has at least one drawing, sorted
	Sources(ctx context.Context) ([]string, error)

	// Close releases the underlying database
	Close() error
}

// Supported drivers for Open
const (
	DriverBunt     = "buntdb"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Open creates the backend named by driver. path is used by the embedded
// drivers (":memory:" keeps everything in memory), dsn by postgres.
func Open(driver, path, dsn string) (Backend, error) {
	switch driver {
	case DriverBunt, "":
		if path == "" {
			return FromMemory()
		}
		return FromFile(path)
	case DriverSQLite:
		return FromSQLite(path)
	case DriverPostgres:
		return FromPostgres(dsn)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}
}

func sortedSources(ids []string) []string {
	slices.Sort(ids)
	return slices.Compact(ids)
}
