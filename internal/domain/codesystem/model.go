package codesystem

import (
	"time"

	"github.com/hisp/dhis2-fhir/internal/platform/fhir"
)

const (
	ContentComplete = "complete"

	IdentifierSystemID   = "http://dhis2.org/optionSet/id"
	IdentifierSystemCode = "http://dhis2.org/optionSet/code"
)

// CodeSystem is the FHIR CodeSystem view of a DHIS2 option set.
type CodeSystem struct {
	FHIRID        string
	LastUpdated   *time.Time
	URL           string
	ValueSetURL   string
	Name          string
	Title         *string
	TitleElement  *fhir.Element
	Version       *string
	Status        string
	Content       string
	Publisher     string
	Experimental  bool
	CaseSensitive bool
	Identifiers   []fhir.Identifier
	Concepts      []Concept
}

// Concept is one option of the set.
type Concept struct {
	Code         string
	Display      *string
	Definition   *string
	Designations []Designation
}

// Designation is a localized display of a concept.
type Designation struct {
	Language string `json:"language"`
	Value    string `json:"value"`
}

func (cs *CodeSystem) ResourceType() string { return "CodeSystem" }
func (cs *CodeSystem) ResourceID() string   { return cs.FHIRID }

func (cs *CodeSystem) ToFHIR() map[string]interface{} {
	result := map[string]interface{}{
		"resourceType":  "CodeSystem",
		"id":            cs.FHIRID,
		"url":           cs.URL,
		"name":          cs.Name,
		"status":        cs.Status,
		"content":       cs.Content,
		"experimental":  cs.Experimental,
		"caseSensitive": cs.CaseSensitive,
	}
	if cs.LastUpdated != nil {
		result["meta"] = fhir.Meta{LastUpdated: cs.LastUpdated}
	}
	if cs.ValueSetURL != "" {
		result["valueSet"] = cs.ValueSetURL
	}
	if cs.Publisher != "" {
		result["publisher"] = cs.Publisher
	}
	if cs.Title != nil {
		result["title"] = *cs.Title
	}
	if cs.TitleElement != nil {
		result["_title"] = cs.TitleElement
	}
	if cs.Version != nil {
		result["version"] = *cs.Version
	}
	if len(cs.Identifiers) > 0 {
		result["identifier"] = cs.Identifiers
	}
	if len(cs.Concepts) > 0 {
		concepts := make([]map[string]interface{}, len(cs.Concepts))
		for i, c := range cs.Concepts {
			concept := map[string]interface{}{"code": c.Code}
			if c.Display != nil {
				concept["display"] = *c.Display
			}
			if c.Definition != nil {
				concept["definition"] = *c.Definition
			}
			if len(c.Designations) > 0 {
				concept["designation"] = c.Designations
			}
			concepts[i] = concept
		}
		result["concept"] = concepts
		result["count"] = len(cs.Concepts)
	}
	return result
}
