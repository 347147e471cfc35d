package codesystem

import (
	"strconv"

	"github.com/hisp/dhis2-fhir/internal/mapping"
	"github.com/hisp/dhis2-fhir/internal/platform/dhis2"
	"github.com/hisp/dhis2-fhir/internal/platform/fhir"
)

// URL is the canonical CodeSystem URL of an option set.
func URL(ctx mapping.ConversionContext, optionSetID string) string {
	return ctx.Namespace(dhis2.CollectionOptionSets) + "/" + optionSetID + "/CodeSystem"
}

// FromOptionSet converts a DHIS2 option set into a CodeSystem. It fails only
// when the option set has no id; options without a code are left out since
// a concept cannot exist without one.
func FromOptionSet(set dhis2.OptionSet, ctx mapping.ConversionContext) (fhir.Resource, error) {
	id, ok := mapping.NonEmpty(set.ID)
	if !ok {
		return nil, &mapping.MissingFieldError{Entity: "OptionSet", Field: "id"}
	}

	cs := &CodeSystem{
		FHIRID:        id,
		URL:           URL(ctx, id),
		ValueSetURL:   ctx.Namespace(dhis2.CollectionOptionSets) + "/" + id + "/ValueSet",
		Name:          "OptionSet_" + id,
		Status:        fhir.StatusActive,
		Content:       ContentComplete,
		Publisher:     ctx.BaseURL,
		Experimental:  false,
		CaseSensitive: true,
		Identifiers: []fhir.Identifier{
			{System: IdentifierSystemID, Value: id},
		},
		TitleElement: mapping.TitleTranslations(set.Translations, ctx.DefaultLocale),
	}

	if s, ok := mapping.Present(set.LastUpdated); ok {
		if t, err := dhis2.ParseTimestamp(s); err == nil {
			cs.LastUpdated = &t
		}
	}
	if name, ok := mapping.Present(set.Name); ok {
		cs.Title = &name
	}
	if set.Version != nil {
		v := strconv.Itoa(*set.Version)
		cs.Version = &v
	}
	if code, ok := mapping.NonEmpty(set.Code); ok {
		cs.Identifiers = append(cs.Identifiers, fhir.Identifier{System: IdentifierSystemCode, Value: code})
	}

	for _, opt := range set.Options {
		code, ok := mapping.NonEmpty(opt.Code)
		if !ok {
			continue
		}
		c := Concept{Code: code}
		if name, ok := mapping.Present(opt.Name); ok {
			c.Display = &name
			c.Definition = &name
		}
		for _, t := range mapping.ExpandTranslations(opt.Translations, mapping.PropertyName, ctx.DefaultLocale) {
			c.Designations = append(c.Designations, Designation{Language: t.Locale, Value: t.Value})
		}
		cs.Concepts = append(cs.Concepts, c)
	}

	return cs, nil
}
