package model

import (
	"fmt"
	"time"
)

// IncidentStatus is a step in the incident lifecycle.
type IncidentStatus string

const (
	StatusNew      IncidentStatus = "new"
	StatusAssigned IncidentStatus = "assigned"
	StatusAccepted IncidentStatus = "accepted"
	StatusDeclined IncidentStatus = "declined"
	StatusResolved IncidentStatus = "resolved"
	StatusClosed   IncidentStatus = "closed"
)

// Valid reports whether s is part of the lifecycle vocabulary.
func (s IncidentStatus) Valid() bool {
	switch s {
	case StatusNew, StatusAssigned, StatusAccepted, StatusDeclined, StatusResolved, StatusClosed:
		return true
	}
	return false
}

// Incident is a reported emergency event. IDs are assigned by the reporting
// side (sensor gateway, dispatcher UI), not by this service. The persistence
// layer keeps one version per receipt time, so two Incident values may share
// an ID; ReceivedAt disambiguates.
type Incident struct {
	ID           string         `json:"id"`
	Type         string         `json:"type"`
	Lat          float64        `json:"lat"`
	Lon          float64        `json:"lon"`
	Severity     int            `json:"severity"`
	Status       IncidentStatus `json:"status"`
	AssignedUnit string         `json:"assigned_unit,omitempty"`

	// Optional report details surfaced to operators. None of these fields
	// participate in assignment or movement decisions.
	Notes          string `json:"notes,omitempty"`
	Address        string `json:"address,omitempty"`
	Contact        string `json:"contact,omitempty"`
	PatientName    string `json:"patient_name,omitempty"`
	PatientAge     int    `json:"patient_age,omitempty"`
	PatientContact string `json:"patient_contact,omitempty"`
	SensorID       string `json:"sensor_id,omitempty"`
	SensorType     string `json:"sensor_type,omitempty"`

	ReceivedAt time.Time `json:"received_at"`
	UpdatedAt  time.Time `json:"updated_at,omitempty"`
}

// Validate checks the minimal fields required to dispatch against the report.
func (i Incident) Validate() error {
	if i.ID == "" {
		return fmt.Errorf("incident id must not be empty")
	}
	if i.Lat < -90 || i.Lat > 90 || i.Lon < -180 || i.Lon > 180 {
		return fmt.Errorf("incident %s: coordinates out of range", i.ID)
	}
	if i.Severity < 0 {
		return fmt.Errorf("incident %s: severity must not be negative", i.ID)
	}
	return nil
}
