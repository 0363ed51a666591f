// Package store persists per-day schedule records. The engine itself never
// touches storage; the service layer reads records here and writes back the
// updated ones.
package store

import (
	"github.com/lullaby-stack/care-engine/internal/models"
)

// Store is the persistence contract for day records, keyed by date
// (YYYY-MM-DD). SaveDays persists a batch as one atomic write.
type Store interface {
	GetDay(date string) (models.DayRecord, bool, error)
	SaveDay(rec models.DayRecord) error
	SaveDays(recs []models.DayRecord) error
	Range(from, to string) (map[string]models.DayRecord, error)
	Close() error
}
