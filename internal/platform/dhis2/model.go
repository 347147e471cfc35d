package dhis2

import (
	"fmt"
	"time"
)

// Source records as returned by the DHIS2 Web API. The API may omit any
// field, so every scalar is a pointer and presence is checked explicitly.

// Translation is a localized override of one property of a metadata object.
type Translation struct {
	Locale   *string `json:"locale,omitempty"`
	Property *string `json:"property,omitempty"`
	Value    *string `json:"value,omitempty"`
}

type IDRef struct {
	ID *string `json:"id,omitempty"`
}

type OrganisationUnit struct {
	ID           *string       `json:"id,omitempty"`
	Code         *string       `json:"code,omitempty"`
	Created      *string       `json:"created,omitempty"`
	LastUpdated  *string       `json:"lastUpdated,omitempty"`
	Name         *string       `json:"name,omitempty"`
	ShortName    *string       `json:"shortName,omitempty"`
	Description  *string       `json:"description,omitempty"`
	OpeningDate  *string       `json:"openingDate,omitempty"`
	Level        *int          `json:"level,omitempty"`
	Parent       *IDRef        `json:"parent,omitempty"`
	Translations []Translation `json:"translations,omitempty"`
}

type Option struct {
	ID           *string       `json:"id,omitempty"`
	Code         *string       `json:"code,omitempty"`
	Name         *string       `json:"name,omitempty"`
	Translations []Translation `json:"translations,omitempty"`
}

type OptionSet struct {
	ID           *string       `json:"id,omitempty"`
	Code         *string       `json:"code,omitempty"`
	Created      *string       `json:"created,omitempty"`
	LastUpdated  *string       `json:"lastUpdated,omitempty"`
	Name         *string       `json:"name,omitempty"`
	Description  *string       `json:"description,omitempty"`
	Version      *int          `json:"version,omitempty"`
	Options      []Option      `json:"options,omitempty"`
	Translations []Translation `json:"translations,omitempty"`
}

type Attribute struct {
	Attribute   *string `json:"attribute,omitempty"`
	Code        *string `json:"code,omitempty"`
	DisplayName *string `json:"displayName,omitempty"`
	Value       *string `json:"value,omitempty"`
}

type DataValue struct {
	DataElement *string `json:"dataElement,omitempty"`
	Value       *string `json:"value,omitempty"`
}

type Event struct {
	Event      *string     `json:"event,omitempty"`
	DataValues []DataValue `json:"dataValues,omitempty"`
}

type Enrollment struct {
	Enrollment *string `json:"enrollment,omitempty"`
	Events     []Event `json:"events,omitempty"`
}

// TrackedEntity covers both the legacy trackedEntityInstances payload and the
// newer tracker trackedEntities payload.
type TrackedEntity struct {
	TrackedEntityInstance *string      `json:"trackedEntityInstance,omitempty"`
	TrackedEntity         *string      `json:"trackedEntity,omitempty"`
	OrgUnit               *string      `json:"orgUnit,omitempty"`
	Created               *string      `json:"created,omitempty"`
	LastUpdated           *string      `json:"lastUpdated,omitempty"`
	Attributes            []Attribute  `json:"attributes,omitempty"`
	Enrollments           []Enrollment `json:"enrollments,omitempty"`
}

// ID returns the tracked entity identifier from whichever payload shape
// supplied it.
func (te TrackedEntity) ID() (string, bool) {
	if te.TrackedEntityInstance != nil && *te.TrackedEntityInstance != "" {
		return *te.TrackedEntityInstance, true
	}
	if te.TrackedEntity != nil && *te.TrackedEntity != "" {
		return *te.TrackedEntity, true
	}
	return "", false
}

// Flatten merges attribute values and every event data value into a single
// code → value mapping. Later writes win, in payload order. Entries missing
// either the code or the value are not recorded.
func (te TrackedEntity) Flatten() map[string]string {
	data := make(map[string]string)
	for _, a := range te.Attributes {
		if a.Attribute != nil && a.Value != nil {
			data[*a.Attribute] = *a.Value
		}
	}
	for _, en := range te.Enrollments {
		for _, ev := range en.Events {
			for _, dv := range ev.DataValues {
				if dv.DataElement != nil && dv.Value != nil {
					data[*dv.DataElement] = *dv.Value
				}
			}
		}
	}
	return data
}

var timestampLayouts = []string{
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	time.RFC3339Nano,
}

// ParseTimestamp parses a DHIS2 timestamp. Zone-less values are interpreted
// as UTC.
func ParseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("dhis2: unrecognised timestamp %q", s)
}

// ParseDate parses an ISO local date, optionally followed by a time part,
// and returns UTC midnight of that day.
func ParseDate(s string) (time.Time, error) {
	const layout = "2006-01-02"
	if len(s) > len(layout) && (s[len(layout)] == 'T' || s[len(layout)] == ' ') {
		s = s[:len(layout)]
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("dhis2: unrecognised date %q", s)
	}
	return t, nil
}
