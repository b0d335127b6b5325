// Package storage provides in-memory repository implementations backing a
// single-process deployment. All stores are safe for concurrent use.
package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dserban/dern/core/model"
	corestorage "github.com/dserban/dern/core/storage"
)

// MemoryIncidentStore keeps every incident version ordered by receipt time.
type MemoryIncidentStore struct {
	mu       sync.RWMutex
	versions map[string][]model.Incident
	now      func() time.Time
}

// NewMemoryIncidentStore creates an empty incident store.
func NewMemoryIncidentStore() *MemoryIncidentStore {
	return &MemoryIncidentStore{versions: map[string][]model.Incident{}, now: time.Now}
}

// SetClock overrides the receipt-time source, for tests.
func (s *MemoryIncidentStore) SetClock(now func() time.Time) { s.now = now }

// Get returns the latest version of the incident.
func (s *MemoryIncidentStore) Get(_ context.Context, id string) (model.Incident, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	vs := s.versions[id]
	if len(vs) == 0 {
		return model.Incident{}, corestorage.ErrNotFound
	}
	return vs[len(vs)-1], nil
}

// Save appends a new version stamped with the current receipt time. The
// stamp is preserved when the caller already set one, so replayed history
// keeps its original ordering.
func (s *MemoryIncidentStore) Save(_ context.Context, inc model.Incident) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if inc.ReceivedAt.IsZero() {
		inc.ReceivedAt = s.now()
	}
	s.versions[inc.ID] = append(s.versions[inc.ID], inc)
	return nil
}

// ListByStatus returns the latest version of every incident, optionally
// filtered by status, ordered by ID for deterministic output.
func (s *MemoryIncidentStore) ListByStatus(_ context.Context, status model.IncidentStatus) ([]model.Incident, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := make([]model.Incident, 0, len(s.versions))
	for _, vs := range s.versions {
		latest := vs[len(vs)-1]
		if status != "" && latest.Status != status {
			continue
		}
		res = append(res, latest)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

// History returns all stored versions received inside [from, to).
func (s *MemoryIncidentStore) History(_ context.Context, from, to time.Time) ([]model.Incident, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var res []model.Incident
	for _, vs := range s.versions {
		for _, v := range vs {
			if v.ReceivedAt.Before(from) || !v.ReceivedAt.Before(to) {
				continue
			}
			res = append(res, v)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ReceivedAt.Before(res[j].ReceivedAt) })
	return res, nil
}

// MemoryUnitStore keeps the current state of each unit, last write wins.
type MemoryUnitStore struct {
	mu   sync.RWMutex
	data map[string]model.Unit
}

// NewMemoryUnitStore creates an empty unit store.
func NewMemoryUnitStore() *MemoryUnitStore {
	return &MemoryUnitStore{data: map[string]model.Unit{}}
}

func (s *MemoryUnitStore) Get(_ context.Context, id string) (model.Unit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.data[id]
	if !ok {
		return model.Unit{}, corestorage.ErrNotFound
	}
	return u, nil
}

func (s *MemoryUnitStore) Save(_ context.Context, u model.Unit) error {
	s.mu.Lock()
	s.data[u.ID] = u
	s.mu.Unlock()
	return nil
}

func (s *MemoryUnitStore) List(_ context.Context, status model.UnitStatus) ([]model.Unit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := make([]model.Unit, 0, len(s.data))
	for _, u := range s.data {
		if status != "" && u.Status != status {
			continue
		}
		res = append(res, u)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

func (s *MemoryUnitStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[id]; !ok {
		return corestorage.ErrNotFound
	}
	delete(s.data, id)
	return nil
}

// MemoryClosureStore keeps closure records keyed by incident ID.
type MemoryClosureStore struct {
	mu   sync.Mutex
	data map[string]model.Closure
}

// NewMemoryClosureStore creates an empty closure store.
func NewMemoryClosureStore() *MemoryClosureStore {
	return &MemoryClosureStore{data: map[string]model.Closure{}}
}

// Create stores the closure unless one already exists for the incident.
func (s *MemoryClosureStore) Create(_ context.Context, c model.Closure) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[c.IncidentID]; ok {
		return false, nil
	}
	s.data[c.IncidentID] = c
	return true, nil
}

func (s *MemoryClosureStore) GetByIncident(_ context.Context, incidentID string) (model.Closure, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.data[incidentID]
	if !ok {
		return model.Closure{}, corestorage.ErrNotFound
	}
	return c, nil
}

func (s *MemoryClosureStore) List(_ context.Context) ([]model.Closure, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res := make([]model.Closure, 0, len(s.data))
	for _, c := range s.data {
		res = append(res, c)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].IncidentID < res[j].IncidentID })
	return res, nil
}
