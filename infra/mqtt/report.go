package mqtt

import "github.com/dserban/dern/core/model"

// incidentReport is the wire format published by gateways on the incident
// topic. Only the identity, location and severity fields are mandatory;
// anything missing is filled by enrichment.
type incidentReport struct {
	ID             string  `json:"id"`
	Type           string  `json:"type"`
	Lat            float64 `json:"lat"`
	Lon            float64 `json:"lon"`
	Severity       int     `json:"severity"`
	Notes          string  `json:"notes,omitempty"`
	Address        string  `json:"address,omitempty"`
	Contact        string  `json:"contact,omitempty"`
	PatientName    string  `json:"patient_name,omitempty"`
	PatientAge     int     `json:"patient_age,omitempty"`
	PatientContact string  `json:"patient_contact,omitempty"`
	SensorID       string  `json:"sensor_id,omitempty"`
	SensorType     string  `json:"sensor_type,omitempty"`
}

func (r incidentReport) toModel() model.Incident {
	return model.Incident{
		ID:             r.ID,
		Type:           r.Type,
		Lat:            r.Lat,
		Lon:            r.Lon,
		Severity:       r.Severity,
		Status:         model.StatusNew,
		Notes:          r.Notes,
		Address:        r.Address,
		Contact:        r.Contact,
		PatientName:    r.PatientName,
		PatientAge:     r.PatientAge,
		PatientContact: r.PatientContact,
		SensorID:       r.SensorID,
		SensorType:     r.SensorType,
	}
}
