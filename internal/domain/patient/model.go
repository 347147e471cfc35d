package patient

import (
	"time"

	"github.com/hisp/dhis2-fhir/internal/platform/fhir"
)

const (
	GenderMale    = "male"
	GenderFemale  = "female"
	GenderOther   = "other"
	GenderUnknown = "unknown"
)

const (
	BirthDateEstimatedURL = "http://example.com/fhir/example/StructureDefinition/DateOfBirthIsEstimated"

	IdentifierTypeSystem   = "http://dhis2.org/identifiertypes"
	IdentifierTypeNational = "nationalidentifier"
)

// Patient is the FHIR Patient view of a DHIS2 tracked entity.
type Patient struct {
	FHIRID               string
	LastUpdated          *time.Time
	Profile              []string
	Identifiers          []fhir.Identifier
	ManagingOrganization *string
	Gender               string
	Name                 *fhir.HumanName
	BirthDate            *time.Time
	BirthDateElement     *fhir.Element
	Address              []fhir.Address
	Telecom              []fhir.ContactPoint
}

func (p *Patient) ResourceType() string { return "Patient" }
func (p *Patient) ResourceID() string   { return p.FHIRID }

func (p *Patient) ToFHIR() map[string]interface{} {
	result := map[string]interface{}{
		"resourceType": "Patient",
		"id":           p.FHIRID,
		"gender":       p.Gender,
	}
	if meta := (fhir.Meta{LastUpdated: p.LastUpdated, Profile: p.Profile}); !meta.IsZero() {
		result["meta"] = meta
	}
	if len(p.Identifiers) > 0 {
		result["identifier"] = p.Identifiers
	}
	if p.ManagingOrganization != nil {
		result["managingOrganization"] = fhir.Reference{Reference: *p.ManagingOrganization}
	}
	if p.Name != nil {
		result["name"] = []fhir.HumanName{*p.Name}
	}
	if p.BirthDate != nil {
		result["birthDate"] = p.BirthDate.Format("2006-01-02")
	}
	if p.BirthDateElement != nil {
		result["_birthDate"] = p.BirthDateElement
	}
	if len(p.Address) > 0 {
		result["address"] = p.Address
	}
	if len(p.Telecom) > 0 {
		result["telecom"] = p.Telecom
	}
	return result
}
