package model

import "time"

// ClosureLogEntry is a timestamped note appended to a closure record.
type ClosureLogEntry struct {
	At   time.Time `json:"at"`
	Note string    `json:"note"`
}

// Closure summarizes how an incident was resolved. Exactly one closure
// exists per resolved incident; creation is guarded by an existence check.
type Closure struct {
	ID         string            `json:"id"`
	IncidentID string            `json:"incident_id"`
	Summary    string            `json:"summary"`
	Log        []ClosureLogEntry `json:"log,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}
