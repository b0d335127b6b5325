package dispatch

import (
	"errors"
	"testing"

	"github.com/dserban/dern/core/model"
)

func TestNearestSelectorPicksClosest(t *testing.T) {
	inc := model.Incident{ID: "inc-1", Lat: 46.7667, Lon: 23.6}
	// Units at roughly 5, 2 and 8 km north of the incident.
	candidates := []model.Unit{
		{ID: "far", Lat: inc.Lat + 0.045, Lon: inc.Lon},
		{ID: "near", Lat: inc.Lat + 0.018, Lon: inc.Lon},
		{ID: "farther", Lat: inc.Lat + 0.072, Lon: inc.Lon},
	}
	unit, dist, err := NearestSelector{}.Select(inc, candidates)
	if err != nil {
		t.Fatal(err)
	}
	if unit.ID != "near" {
		t.Fatalf("selected %s, want near", unit.ID)
	}
	if dist < 1.5 || dist > 2.5 {
		t.Fatalf("distance %.2f km, want ~2", dist)
	}
}

func TestNearestSelectorTieFirstWins(t *testing.T) {
	inc := model.Incident{ID: "inc-1", Lat: 46, Lon: 23}
	candidates := []model.Unit{
		{ID: "a", Lat: 46.01, Lon: 23},
		{ID: "b", Lat: 46.01, Lon: 23},
	}
	unit, _, err := NearestSelector{}.Select(inc, candidates)
	if err != nil {
		t.Fatal(err)
	}
	if unit.ID != "a" {
		t.Fatalf("tie not broken by order: got %s", unit.ID)
	}
}

func TestNearestSelectorEmptyPool(t *testing.T) {
	_, _, err := NearestSelector{}.Select(model.Incident{ID: "inc-1"}, nil)
	if !errors.Is(err, ErrNoCandidate) {
		t.Fatalf("expected ErrNoCandidate, got %v", err)
	}
}
