package mapping

import (
	"github.com/hisp/dhis2-fhir/internal/platform/dhis2"
	"github.com/hisp/dhis2-fhir/internal/platform/fhir"
)

// PropertyName is the translation property of a metadata object's name.
const PropertyName = "NAME"

// LocalizedText is one translation of a single property.
type LocalizedText struct {
	Locale string
	Value  string
}

// ExpandTranslations returns the translations of property, in source order.
// The property match is exact and case-sensitive. Entries for the same
// locale are all kept. Entries without a value are dropped; entries without a
// locale fall back to defaultLocale, or are dropped when that is empty too.
func ExpandTranslations(entries []dhis2.Translation, property, defaultLocale string) []LocalizedText {
	var out []LocalizedText
	for _, t := range entries {
		if p, ok := Present(t.Property); !ok || p != property {
			continue
		}
		value, ok := Present(t.Value)
		if !ok {
			continue
		}
		locale, ok := NonEmpty(t.Locale)
		if !ok {
			if defaultLocale == "" {
				continue
			}
			locale = defaultLocale
		}
		out = append(out, LocalizedText{Locale: locale, Value: value})
	}
	return out
}

// TitleTranslations renders the NAME translations of entries as the
// extensions of a "_title" primitive element, or nil when there are none.
func TitleTranslations(entries []dhis2.Translation, defaultLocale string) *fhir.Element {
	texts := ExpandTranslations(entries, PropertyName, defaultLocale)
	if len(texts) == 0 {
		return nil
	}
	el := &fhir.Element{Extension: make([]fhir.Extension, len(texts))}
	for i, t := range texts {
		el.Extension[i] = fhir.TranslationExtension(t.Locale, t.Value)
	}
	return el
}
