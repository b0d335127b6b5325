package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dserban/dern/core/model"
	corestorage "github.com/dserban/dern/core/storage"
)

func TestIncidentStoreVersioning(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryIncidentStore()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	s.SetClock(func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	})

	if _, err := s.Get(ctx, "inc-1"); !errors.Is(err, corestorage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := s.Save(ctx, model.Incident{ID: "inc-1", Status: model.StatusNew}); err != nil {
		t.Fatal(err)
	}
	if err := s.Save(ctx, model.Incident{ID: "inc-1", Status: model.StatusAssigned, AssignedUnit: "u1"}); err != nil {
		t.Fatal(err)
	}

	got, err := s.Get(ctx, "inc-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != model.StatusAssigned || got.AssignedUnit != "u1" {
		t.Fatalf("Get did not return latest version: %+v", got)
	}

	hist, err := s.History(ctx, time.Time{}, base.Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if len(hist) != 2 {
		t.Fatalf("expected 2 versions in history, got %d", len(hist))
	}
	if hist[0].Status != model.StatusNew || hist[1].Status != model.StatusAssigned {
		t.Fatalf("history out of order: %+v", hist)
	}
}

func TestIncidentStorePreservesCallerStamp(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryIncidentStore()
	stamp := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	if err := s.Save(ctx, model.Incident{ID: "inc-1", ReceivedAt: stamp}); err != nil {
		t.Fatal(err)
	}
	got, err := s.Get(ctx, "inc-1")
	if err != nil {
		t.Fatal(err)
	}
	if !got.ReceivedAt.Equal(stamp) {
		t.Fatalf("receipt time overwritten: %v", got.ReceivedAt)
	}
}

func TestIncidentStoreListByStatus(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryIncidentStore()
	for _, inc := range []model.Incident{
		{ID: "b", Status: model.StatusNew},
		{ID: "a", Status: model.StatusNew},
		{ID: "c", Status: model.StatusResolved},
	} {
		if err := s.Save(ctx, inc); err != nil {
			t.Fatal(err)
		}
	}
	// Resolve "a"; the filter must see only the latest version.
	if err := s.Save(ctx, model.Incident{ID: "a", Status: model.StatusResolved}); err != nil {
		t.Fatal(err)
	}

	news, err := s.ListByStatus(ctx, model.StatusNew)
	if err != nil {
		t.Fatal(err)
	}
	if len(news) != 1 || news[0].ID != "b" {
		t.Fatalf("unexpected new incidents: %+v", news)
	}

	all, err := s.ListByStatus(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 || all[0].ID != "a" || all[1].ID != "b" || all[2].ID != "c" {
		t.Fatalf("unfiltered list not sorted by ID: %+v", all)
	}
}

func TestUnitStoreCRUD(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryUnitStore()
	if err := s.Save(ctx, model.Unit{ID: "u2", Status: model.UnitIdle}); err != nil {
		t.Fatal(err)
	}
	if err := s.Save(ctx, model.Unit{ID: "u1", Status: model.UnitEnroute}); err != nil {
		t.Fatal(err)
	}

	u, err := s.Get(ctx, "u1")
	if err != nil || u.Status != model.UnitEnroute {
		t.Fatalf("Get(u1) = %+v, %v", u, err)
	}

	idle, err := s.List(ctx, model.UnitIdle)
	if err != nil || len(idle) != 1 || idle[0].ID != "u2" {
		t.Fatalf("List(idle) = %+v, %v", idle, err)
	}

	if err := s.Delete(ctx, "u1"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Get(ctx, "u1"); !errors.Is(err, corestorage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := s.Delete(ctx, "u1"); !errors.Is(err, corestorage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on repeated delete, got %v", err)
	}
}

func TestClosureStoreIdempotentCreate(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryClosureStore()
	first := model.Closure{ID: "c1", IncidentID: "inc-1", Summary: "first"}
	created, err := s.Create(ctx, first)
	if err != nil || !created {
		t.Fatalf("Create = %v, %v", created, err)
	}
	created, err = s.Create(ctx, model.Closure{ID: "c2", IncidentID: "inc-1", Summary: "second"})
	if err != nil || created {
		t.Fatalf("duplicate Create = %v, %v", created, err)
	}
	got, err := s.GetByIncident(ctx, "inc-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != "c1" {
		t.Fatalf("first closure overwritten: %+v", got)
	}
	list, err := s.List(ctx)
	if err != nil || len(list) != 1 {
		t.Fatalf("List = %+v, %v", list, err)
	}
}
