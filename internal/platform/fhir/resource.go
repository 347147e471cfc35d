package fhir

import (
	"time"
)

// Resource is a converted FHIR resource that can be placed in a Bundle.
// ToFHIR renders the resource as its JSON object; absent fields are absent keys.
type Resource interface {
	ResourceType() string
	ResourceID() string
	ToFHIR() map[string]interface{}
}

type Meta struct {
	VersionID   string     `json:"versionId,omitempty"`
	LastUpdated *time.Time `json:"lastUpdated,omitempty"`
	Profile     []string   `json:"profile,omitempty"`
}

// IsZero reports whether no meta field is set.
func (m Meta) IsZero() bool {
	return m.VersionID == "" && m.LastUpdated == nil && len(m.Profile) == 0
}

type Coding struct {
	System  string `json:"system,omitempty"`
	Code    string `json:"code,omitempty"`
	Display string `json:"display,omitempty"`
}

type CodeableConcept struct {
	Coding []Coding `json:"coding,omitempty"`
	Text   string   `json:"text,omitempty"`
}

type Reference struct {
	Reference string `json:"reference,omitempty"`
	Type      string `json:"type,omitempty"`
	Display   string `json:"display,omitempty"`
}

type Identifier struct {
	Use    string           `json:"use,omitempty"`
	Type   *CodeableConcept `json:"type,omitempty"`
	System string           `json:"system,omitempty"`
	Value  string           `json:"value,omitempty"`
}

type HumanName struct {
	Use    string   `json:"use,omitempty"`
	Family string   `json:"family,omitempty"`
	Given  []string `json:"given,omitempty"`
}

type Address struct {
	Use  string `json:"use,omitempty"`
	Type string `json:"type,omitempty"`
	Text string `json:"text,omitempty"`
}

type ContactPoint struct {
	System string `json:"system,omitempty"`
	Value  string `json:"value,omitempty"`
	Use    string `json:"use,omitempty"`
}

// Extension is a FHIR extension. Nested extensions carry complex values such
// as the translation extension's lang/content pair.
type Extension struct {
	URL          string      `json:"url"`
	Extension    []Extension `json:"extension,omitempty"`
	ValueString  string      `json:"valueString,omitempty"`
	ValueCode    string      `json:"valueCode,omitempty"`
	ValueBoolean *bool       `json:"valueBoolean,omitempty"`
}

// Element carries extensions on a primitive value, rendered as "_field".
type Element struct {
	Extension []Extension `json:"extension,omitempty"`
}

const TranslationExtensionURL = "http://hl7.org/fhir/StructureDefinition/translation"

// TranslationExtension builds the standard translation extension for one
// language/content pair.
func TranslationExtension(lang, content string) Extension {
	return Extension{
		URL: TranslationExtensionURL,
		Extension: []Extension{
			{URL: "lang", ValueCode: lang},
			{URL: "content", ValueString: content},
		},
	}
}

// BoolExtension builds a boolean-valued extension.
func BoolExtension(url string, v bool) Extension {
	return Extension{URL: url, ValueBoolean: &v}
}

// Publication and resource status codes used by the converted resources.
const (
	StatusActive = "active"
)
