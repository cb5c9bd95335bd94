// Package store keeps the last-known value of every driver a node has
// published, so QUERY can re-report state after a failed cycle or a restart.
package store

import (
	"errors"
	"slices"
	"time"

	"github.com/bpaauwe/WeatherServicePrototype/internal/domain"
)

// ErrNotFound is returned when nothing has been saved for an address.
var ErrNotFound = errors.New("no driver values for address")

// Record is the stored state of one driver.
type Record struct {
	Driver    string       `json:"driver"`
	Value     domain.Value `json:"value"`
	UOM       int          `json:"uom"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// DriverValue converts the record back into a reported, forced value.
func (r Record) DriverValue() domain.DriverValue {
	return domain.DriverValue{
		Driver: r.Driver,
		Value:  r.Value,
		UOM:    r.UOM,
		Report: true,
		Force:  true,
	}
}

var schemaRank = func() map[string]int {
	rank := make(map[string]int)
	for i, d := range domain.Schema() {
		rank[d.Driver] = i
	}
	return rank
}()

// sortRecords orders records as the driver schema does; unknown drivers sort last by id.
func sortRecords(records []Record) {
	slices.SortFunc(records, func(a, b Record) int {
		ra, oka := schemaRank[a.Driver]
		rb, okb := schemaRank[b.Driver]
		switch {
		case oka && okb:
			return ra - rb
		case oka:
			return -1
		case okb:
			return 1
		default:
			if a.Driver < b.Driver {
				return -1
			}
			if a.Driver > b.Driver {
				return 1
			}
			return 0
		}
	})
}
