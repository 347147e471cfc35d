package location

import (
	"github.com/hisp/dhis2-fhir/internal/mapping"
	"github.com/hisp/dhis2-fhir/internal/platform/dhis2"
	"github.com/hisp/dhis2-fhir/internal/platform/fhir"
)

// IdentifierSystem returns the identifier namespace for organisation unit
// ids ("id") or codes ("code").
func IdentifierSystem(ctx mapping.ConversionContext, kind string) string {
	return ctx.ServerURL() + "/api/" + dhis2.CollectionOrganisationUnits + "/" + kind
}

// FromOrganisationUnit converts a DHIS2 organisation unit into a Location.
// partOf points at the parent organisation unit.
func FromOrganisationUnit(ou dhis2.OrganisationUnit, ctx mapping.ConversionContext) (fhir.Resource, error) {
	id, ok := mapping.NonEmpty(ou.ID)
	if !ok {
		return nil, &mapping.MissingFieldError{Entity: "OrganisationUnit", Field: "id"}
	}

	loc := &Location{
		FHIRID:   id,
		Status:   fhir.StatusActive,
		Mode:     ModeInstance,
		TypeCode: TypeCodeOffice,
		Identifiers: []fhir.Identifier{
			{System: IdentifierSystem(ctx, "id"), Value: id},
		},
	}

	if s, ok := mapping.Present(ou.LastUpdated); ok {
		if t, err := dhis2.ParseTimestamp(s); err == nil {
			loc.LastUpdated = &t
		}
	}
	if name, ok := mapping.Present(ou.Name); ok {
		loc.Name = &name
	}
	if short, ok := mapping.NonEmpty(ou.ShortName); ok && (loc.Name == nil || short != *loc.Name) {
		loc.Alias = []string{short}
	}
	if code, ok := mapping.NonEmpty(ou.Code); ok {
		loc.Identifiers = append(loc.Identifiers, fhir.Identifier{System: IdentifierSystem(ctx, "code"), Value: code})
	}
	if desc, ok := mapping.Present(ou.Description); ok {
		loc.Description = &desc
	}
	if ou.Parent != nil {
		if parentID, ok := mapping.NonEmpty(ou.Parent.ID); ok {
			loc.PartOfLocation = &parentID
		}
	}

	return loc, nil
}
