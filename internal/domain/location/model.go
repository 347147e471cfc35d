package location

import (
	"time"

	"github.com/hisp/dhis2-fhir/internal/platform/fhir"
)

const (
	ModeInstance = "instance"

	// TypeCodeOffice is the v3 RoleCode for an office/facility.
	TypeCodeOffice = "OF"
)

// Location is the FHIR Location view of a DHIS2 organisation unit.
type Location struct {
	FHIRID         string
	LastUpdated    *time.Time
	Status         string
	Name           *string
	Alias          []string
	Description    *string
	Mode           string
	TypeCode       string
	Identifiers    []fhir.Identifier
	PartOfLocation *string
}

func (l *Location) ResourceType() string { return "Location" }
func (l *Location) ResourceID() string   { return l.FHIRID }

func (l *Location) ToFHIR() map[string]interface{} {
	result := map[string]interface{}{
		"resourceType": "Location",
		"id":           l.FHIRID,
		"status":       l.Status,
		"mode":         l.Mode,
	}
	if l.LastUpdated != nil {
		result["meta"] = fhir.Meta{LastUpdated: l.LastUpdated}
	}
	if l.Name != nil {
		result["name"] = *l.Name
	}
	if len(l.Alias) > 0 {
		result["alias"] = l.Alias
	}
	if l.Description != nil {
		result["description"] = *l.Description
	}
	if l.TypeCode != "" {
		result["type"] = []fhir.CodeableConcept{
			{Coding: []fhir.Coding{{Code: l.TypeCode}}},
		}
	}
	if len(l.Identifiers) > 0 {
		result["identifier"] = l.Identifiers
	}
	if l.PartOfLocation != nil {
		result["partOf"] = fhir.Reference{
			Reference: fhir.FormatReference("Location", *l.PartOfLocation),
		}
	}
	return result
}
