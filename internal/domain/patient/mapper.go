package patient

import (
	"strconv"
	"strings"

	"github.com/hisp/dhis2-fhir/internal/mapping"
	"github.com/hisp/dhis2-fhir/internal/platform/dhis2"
	"github.com/hisp/dhis2-fhir/internal/platform/fhir"
)

// Gender maps a DHIS2 gender option code to an administrative gender.
func Gender(code string) string {
	switch strings.ToUpper(strings.TrimSpace(code)) {
	case "FEMALE":
		return GenderFemale
	case "MALE":
		return GenderMale
	case "TG", "OTHER":
		return GenderOther
	default:
		return GenderUnknown
	}
}

// FromTrackedEntity converts a tracked entity into a Patient. Demographics are
// looked up by field code in the flattened attribute and data value map; a
// field whose code is not configured or not present is left out.
func FromTrackedEntity(te dhis2.TrackedEntity, ctx mapping.ConversionContext) (fhir.Resource, error) {
	id, ok := te.ID()
	if !ok {
		return nil, &mapping.MissingFieldError{Entity: "TrackedEntity", Field: "trackedEntityInstance"}
	}

	data := te.Flatten()
	fields := ctx.PatientFields
	lookup := func(code string) (string, bool) {
		if code == "" {
			return "", false
		}
		v, ok := data[code]
		return v, ok
	}

	p := &Patient{
		FHIRID: id,
		Identifiers: []fhir.Identifier{
			{System: ctx.Namespace(dhis2.CollectionTrackedEntities), Value: id},
		},
		Gender: GenderUnknown,
	}

	if ctx.PatientProfile != "" {
		p.Profile = []string{ctx.PatientProfile}
	}
	if s, ok := mapping.Present(te.LastUpdated); ok {
		if t, err := dhis2.ParseTimestamp(s); err == nil {
			p.LastUpdated = &t
		}
	}
	if ou, ok := mapping.NonEmpty(te.OrgUnit); ok {
		ref := "Organization?identifier=" + ou
		p.ManagingOrganization = &ref
	}

	if v, ok := lookup(fields.Gender); ok {
		p.Gender = Gender(v)
	}

	given, hasGiven := lookup(fields.GivenName)
	family, hasFamily := lookup(fields.FamilyName)
	if hasGiven || hasFamily {
		name := &fhir.HumanName{Family: family}
		if hasGiven {
			name.Given = []string{given}
		}
		p.Name = name
	}

	if v, ok := lookup(fields.BirthDate); ok {
		if d, err := dhis2.ParseDate(v); err == nil {
			p.BirthDate = &d
		}
	}
	if v, ok := lookup(fields.BirthDateEstimated); ok {
		if estimated, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			p.BirthDateElement = &fhir.Element{
				Extension: []fhir.Extension{fhir.BoolExtension(BirthDateEstimatedURL, estimated)},
			}
		}
	}

	if v, ok := lookup(fields.NationalID); ok && v != "" {
		p.Identifiers = append(p.Identifiers, fhir.Identifier{
			Type: &fhir.CodeableConcept{
				Coding: []fhir.Coding{{System: IdentifierTypeSystem, Code: IdentifierTypeNational}},
			},
			System: ctx.NationalIDSystem,
			Value:  v,
		})
	}
	if v, ok := lookup(fields.Address); ok && v != "" {
		p.Address = []fhir.Address{{Use: "home", Type: "physical", Text: v}}
	}
	if v, ok := lookup(fields.Phone); ok && v != "" {
		p.Telecom = []fhir.ContactPoint{{System: "phone", Value: v}}
	}

	return p, nil
}
