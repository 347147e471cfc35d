package valueset

import (
	"errors"
	"testing"

	"github.com/hisp/dhis2-fhir/internal/mapping"
	"github.com/hisp/dhis2-fhir/internal/platform/dhis2"
	"github.com/hisp/dhis2-fhir/internal/platform/fhir"
)

func ptrStr(s string) *string { return &s }
func ptrInt(i int) *int       { return &i }

var testCtx = mapping.NewConversionContext("https://dhis2.example.org/api")

func TestFromOptionSet_RequiredFields(t *testing.T) {
	res, err := FromOptionSet(dhis2.OptionSet{ID: ptrStr("OS1"), Name: ptrStr("Colors")}, testCtx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	result := res.ToFHIR()

	if result["resourceType"] != "ValueSet" {
		t.Errorf("resourceType = %v, want ValueSet", result["resourceType"])
	}
	if result["id"] != "OS1" {
		t.Errorf("id = %v, want OS1", result["id"])
	}
	if result["url"] != "https://dhis2.example.org/api/optionSets/OS1/ValueSet" {
		t.Errorf("url = %v", result["url"])
	}
	if result["name"] != "OptionSet_OS1" {
		t.Errorf("name = %v", result["name"])
	}
	if result["immutable"] != true {
		t.Errorf("immutable = %v, want true", result["immutable"])
	}
	for _, key := range []string{"version", "description", "_title", "meta"} {
		if _, ok := result[key]; ok {
			t.Errorf("%s should be absent", key)
		}
	}

	compose, ok := result["compose"].(map[string]interface{})
	if !ok {
		t.Fatal("compose missing")
	}
	include := compose["include"].([]map[string]interface{})
	if include[0]["system"] != "https://dhis2.example.org/api/optionSets/OS1/CodeSystem" {
		t.Errorf("compose.include[0].system = %v", include[0]["system"])
	}

	ids := result["identifier"].([]fhir.Identifier)
	if len(ids) != 1 || ids[0].System != IdentifierSystemID {
		t.Errorf("identifier = %+v", ids)
	}
}

func TestFromOptionSet_OptionalFields(t *testing.T) {
	set := dhis2.OptionSet{
		ID:          ptrStr("OS1"),
		Code:        ptrStr("COLORS"),
		Name:        ptrStr("Colors"),
		Description: ptrStr("Primary colours"),
		Version:     ptrInt(7),
		Translations: []dhis2.Translation{
			{Locale: ptrStr("fr"), Property: ptrStr("NAME"), Value: ptrStr("Couleurs")},
			{Locale: ptrStr("fr"), Property: ptrStr("DESCRIPTION"), Value: ptrStr("Couleurs primaires")},
		},
	}
	res, err := FromOptionSet(set, testCtx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	vs := res.(*ValueSet)

	if vs.Version == nil || *vs.Version != "7" {
		t.Errorf("version = %v, want 7", vs.Version)
	}
	if vs.Description == nil || *vs.Description != "Primary colours" {
		t.Errorf("description = %v", vs.Description)
	}
	if len(vs.Identifiers) != 2 || vs.Identifiers[1].Value != "COLORS" || vs.Identifiers[1].System != IdentifierSystemCode {
		t.Errorf("identifiers = %+v", vs.Identifiers)
	}
	if vs.TitleElement == nil || len(vs.TitleElement.Extension) != 1 {
		t.Fatalf("title translations = %+v, want only the NAME entry", vs.TitleElement)
	}
}

func TestFromOptionSet_MissingID(t *testing.T) {
	_, err := FromOptionSet(dhis2.OptionSet{Name: ptrStr("Colors")}, testCtx)
	if !errors.Is(err, mapping.ErrMissingRequiredField) {
		t.Errorf("err = %v, want ErrMissingRequiredField", err)
	}
}
