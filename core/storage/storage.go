// Package storage declares the repository boundary consumed by the core.
// Implementations live outside the core; infra/storage ships an in-memory
// store used by the service and by tests.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/dserban/dern/core/model"
)

// ErrNotFound is returned when a record with the requested ID is absent.
var ErrNotFound = errors.New("record not found")

// IncidentRepository persists incidents. Incidents are versioned by receipt
// time: Save appends a version and reads always return the most recent one,
// so a status update never targets a stale duplicate.
type IncidentRepository interface {
	// Get returns the latest version of the incident.
	Get(ctx context.Context, id string) (model.Incident, error)
	// Save appends a new version of the incident, stamped with now.
	Save(ctx context.Context, inc model.Incident) error
	// ListByStatus returns the latest version of every incident, filtered
	// by status when status is non-empty.
	ListByStatus(ctx context.Context, status model.IncidentStatus) ([]model.Incident, error)
	// History returns every stored version received inside [from, to),
	// for risk aggregation.
	History(ctx context.Context, from, to time.Time) ([]model.Incident, error)
}

// UnitRepository persists response units, last write wins per record.
type UnitRepository interface {
	Get(ctx context.Context, id string) (model.Unit, error)
	Save(ctx context.Context, u model.Unit) error
	// List returns units filtered by status when status is non-empty.
	List(ctx context.Context, status model.UnitStatus) ([]model.Unit, error)
	Delete(ctx context.Context, id string) error
}

// ClosureRepository persists closure records, one per incident.
type ClosureRepository interface {
	// Create stores the closure unless one already exists for the same
	// incident. It reports whether the record was created.
	Create(ctx context.Context, c model.Closure) (bool, error)
	GetByIncident(ctx context.Context, incidentID string) (model.Closure, error)
	List(ctx context.Context) ([]model.Closure, error)
}
