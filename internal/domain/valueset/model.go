package valueset

import (
	"time"

	"github.com/hisp/dhis2-fhir/internal/platform/fhir"
)

const (
	IdentifierSystemID   = "http://dhis2.org/optionSet/idVS"
	IdentifierSystemCode = "http://dhis2.org/optionSet/codeVS"
)

// ValueSet is the FHIR ValueSet view of a DHIS2 option set. It includes the
// whole CodeSystem generated from the same option set.
type ValueSet struct {
	FHIRID               string
	LastUpdated          *time.Time
	URL                  string
	Name                 string
	Title                *string
	TitleElement         *fhir.Element
	Description          *string
	Version              *string
	Status               string
	Experimental         bool
	Immutable            bool
	Identifiers          []fhir.Identifier
	ComposeIncludeSystem string
}

func (vs *ValueSet) ResourceType() string { return "ValueSet" }
func (vs *ValueSet) ResourceID() string   { return vs.FHIRID }

func (vs *ValueSet) ToFHIR() map[string]interface{} {
	result := map[string]interface{}{
		"resourceType": "ValueSet",
		"id":           vs.FHIRID,
		"url":          vs.URL,
		"name":         vs.Name,
		"status":       vs.Status,
		"experimental": vs.Experimental,
	}
	if vs.LastUpdated != nil {
		result["meta"] = fhir.Meta{LastUpdated: vs.LastUpdated}
	}
	if vs.Title != nil {
		result["title"] = *vs.Title
	}
	if vs.TitleElement != nil {
		result["_title"] = vs.TitleElement
	}
	if vs.Description != nil {
		result["description"] = *vs.Description
	}
	if vs.Version != nil {
		result["version"] = *vs.Version
	}
	if vs.Immutable {
		result["immutable"] = vs.Immutable
	}
	if len(vs.Identifiers) > 0 {
		result["identifier"] = vs.Identifiers
	}
	if vs.ComposeIncludeSystem != "" {
		result["compose"] = map[string]interface{}{
			"include": []map[string]interface{}{
				{"system": vs.ComposeIncludeSystem},
			},
		}
	}
	return result
}
