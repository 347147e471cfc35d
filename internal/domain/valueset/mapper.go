package valueset

import (
	"strconv"

	"github.com/hisp/dhis2-fhir/internal/domain/codesystem"
	"github.com/hisp/dhis2-fhir/internal/mapping"
	"github.com/hisp/dhis2-fhir/internal/platform/dhis2"
	"github.com/hisp/dhis2-fhir/internal/platform/fhir"
)

// FromOptionSet converts a DHIS2 option set into a ValueSet composed of the
// option set's CodeSystem.
func FromOptionSet(set dhis2.OptionSet, ctx mapping.ConversionContext) (fhir.Resource, error) {
	id, ok := mapping.NonEmpty(set.ID)
	if !ok {
		return nil, &mapping.MissingFieldError{Entity: "OptionSet", Field: "id"}
	}

	vs := &ValueSet{
		FHIRID:       id,
		URL:          ctx.Namespace(dhis2.CollectionOptionSets) + "/" + id + "/ValueSet",
		Name:         "OptionSet_" + id,
		Status:       fhir.StatusActive,
		Experimental: false,
		Immutable:    true,
		Identifiers: []fhir.Identifier{
			{System: IdentifierSystemID, Value: id},
		},
		ComposeIncludeSystem: codesystem.URL(ctx, id),
		TitleElement:         mapping.TitleTranslations(set.Translations, ctx.DefaultLocale),
	}

	if s, ok := mapping.Present(set.LastUpdated); ok {
		if t, err := dhis2.ParseTimestamp(s); err == nil {
			vs.LastUpdated = &t
		}
	}
	if name, ok := mapping.Present(set.Name); ok {
		vs.Title = &name
	}
	if desc, ok := mapping.Present(set.Description); ok {
		vs.Description = &desc
	}
	if set.Version != nil {
		v := strconv.Itoa(*set.Version)
		vs.Version = &v
	}
	if code, ok := mapping.NonEmpty(set.Code); ok {
		vs.Identifiers = append(vs.Identifiers, fhir.Identifier{System: IdentifierSystemCode, Value: code})
	}

	return vs, nil
}
