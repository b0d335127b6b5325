package events

import "github.com/dserban/dern/core/model"

// Kind identifies the resource a live event refers to, so stream consumers
// can discriminate payloads without reflection.
type Kind string

const (
	KindIncident Kind = "incident"
	KindUnit     Kind = "unit"
	KindClosure  Kind = "closure"
)

// Event is the envelope published on the bus after every state change.
type Event struct {
	Kind    Kind `json:"kind"`
	Payload any  `json:"payload"`
}

// IncidentUpdated wraps an incident snapshot in an event envelope.
func IncidentUpdated(inc model.Incident) Event {
	return Event{Kind: KindIncident, Payload: inc}
}

// UnitUpdated wraps a unit snapshot in an event envelope.
func UnitUpdated(u model.Unit) Event {
	return Event{Kind: KindUnit, Payload: u}
}

// ClosureCreated wraps a closure record in an event envelope.
func ClosureCreated(c model.Closure) Event {
	return Event{Kind: KindClosure, Payload: c}
}
