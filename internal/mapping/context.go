// Package mapping holds what the per-resource field mappers share: the
// immutable conversion context, the translation expander and the
// conversion error values.
package mapping

import (
	"errors"
	"strings"
)

// ErrMissingRequiredField marks a source record that cannot be converted
// because its primary identifier is absent.
var ErrMissingRequiredField = errors.New("missing required field")

// MissingFieldError names the absent field.
type MissingFieldError struct {
	Entity string
	Field  string
}

func (e *MissingFieldError) Error() string {
	return e.Entity + ": " + ErrMissingRequiredField.Error() + " " + e.Field
}

func (e *MissingFieldError) Is(target error) bool {
	return target == ErrMissingRequiredField
}

// PatientFields maps Patient elements to the DHIS2 attribute or data element
// ids that carry them. An empty code disables that element.
type PatientFields struct {
	Gender             string
	GivenName          string
	FamilyName         string
	BirthDate          string
	BirthDateEstimated string
	NationalID         string
	Address            string
	Phone              string
}

// ConversionContext is the read-only configuration of one pipeline run.
type ConversionContext struct {
	// BaseURL is the DHIS2 API root, e.g. https://play.dhis2.org/40/api.
	BaseURL string
	// PatientProfile is added to every Patient's meta.profile when set.
	PatientProfile string
	// NationalIDSystem is the identifier system of national identifiers.
	NationalIDSystem string
	// DefaultLocale is used for translations that carry no locale.
	DefaultLocale string
	PatientFields PatientFields
}

// NewConversionContext normalises the base address.
func NewConversionContext(baseURL string) ConversionContext {
	return ConversionContext{
		BaseURL:       strings.TrimRight(baseURL, "/"),
		DefaultLocale: "en",
	}
}

// ServerURL is the DHIS2 server root without the /api suffix.
func (c ConversionContext) ServerURL() string {
	return strings.TrimSuffix(c.BaseURL, "/api")
}

// Namespace returns the canonical URL prefix for a DHIS2 collection.
func (c ConversionContext) Namespace(collection string) string {
	return c.BaseURL + "/" + collection
}

// Present returns the value behind p and whether it is set. An empty string
// counts as present; only a nil pointer is absent.
func Present(p *string) (string, bool) {
	if p == nil {
		return "", false
	}
	return *p, true
}

// NonEmpty is like Present but also treats the empty string as absent. It is
// used for identifiers, which are never meaningful when empty.
func NonEmpty(p *string) (string, bool) {
	if p == nil || *p == "" {
		return "", false
	}
	return *p, true
}
