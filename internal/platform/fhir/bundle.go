package fhir

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const BundleTypeSearchset = "searchset"

// Bundle is the aggregate response envelope. Entries keep the order in which
// resources were folded in.
type Bundle struct {
	ID          string
	LastUpdated time.Time
	Type        string
	Link        []BundleLink
	Entry       []BundleEntry
}

type BundleLink struct {
	Relation string `json:"relation"`
	URL      string `json:"url"`
}

type BundleEntry struct {
	FullURL  string
	Resource Resource
}

// Total is the number of entries in the bundle.
func (b *Bundle) Total() int {
	return len(b.Entry)
}

// Fold appends next to prev and returns the resulting bundle. prev is never
// modified; a nil prev starts a new searchset bundle. Every fold assigns a
// fresh bundle id and a lastUpdated that never goes backwards.
func Fold(prev *Bundle, next Resource, now time.Time) *Bundle {
	if prev == nil {
		b := &Bundle{Type: BundleTypeSearchset, Entry: []BundleEntry{newEntry(next)}}
		b.stamp(uuid.NewString, now)
		return b
	}
	entries := make([]BundleEntry, len(prev.Entry), len(prev.Entry)+1)
	copy(entries, prev.Entry)
	b := &Bundle{
		ID:          prev.ID,
		LastUpdated: prev.LastUpdated,
		Type:        prev.Type,
		Link:        append([]BundleLink(nil), prev.Link...),
		Entry:       append(entries, newEntry(next)),
	}
	b.stamp(uuid.NewString, now)
	return b
}

// NewEmptySearchBundle returns a searchset bundle with no entries, used when a
// query matched nothing and no fold ever ran.
func NewEmptySearchBundle(now time.Time) *Bundle {
	return &Bundle{
		ID:          uuid.NewString(),
		LastUpdated: now.UTC(),
		Type:        BundleTypeSearchset,
	}
}

func (b *Bundle) stamp(newID func() string, now time.Time) {
	id := newID()
	for id == b.ID {
		id = newID()
	}
	b.ID = id
	now = now.UTC()
	if now.Before(b.LastUpdated) {
		now = b.LastUpdated
	}
	b.LastUpdated = now
}

// FormatReference creates a FHIR reference string from type and ID.
func FormatReference(resourceType, id string) string {
	return fmt.Sprintf("%s/%s", resourceType, id)
}

func newEntry(r Resource) BundleEntry {
	return BundleEntry{
		FullURL:  FormatReference(r.ResourceType(), r.ResourceID()),
		Resource: r,
	}
}

// Accumulator folds resources into a bundle in place. It is owned by a single
// pipeline run; Append is its only mutator.
type Accumulator struct {
	bundle *Bundle
	now    func() time.Time
	newID  func() string
}

func NewAccumulator() *Accumulator {
	return &Accumulator{now: time.Now, newID: uuid.NewString}
}

// NewAccumulatorWithClock is NewAccumulator with an injected time source.
func NewAccumulatorWithClock(now func() time.Time) *Accumulator {
	return &Accumulator{now: now, newID: uuid.NewString}
}

// Append adds r as the last entry and re-stamps the bundle id and lastUpdated.
func (a *Accumulator) Append(r Resource) {
	if a.bundle == nil {
		a.bundle = &Bundle{Type: BundleTypeSearchset}
	}
	a.bundle.Entry = append(a.bundle.Entry, newEntry(r))
	a.bundle.stamp(a.newID, a.now())
}

// Len is the number of resources appended so far.
func (a *Accumulator) Len() int {
	if a.bundle == nil {
		return 0
	}
	return len(a.bundle.Entry)
}

// Bundle returns the accumulated bundle, or false when nothing was appended.
func (a *Accumulator) Bundle() (*Bundle, bool) {
	if a.bundle == nil {
		return nil, false
	}
	return a.bundle, true
}

type bundleJSON struct {
	ResourceType string            `json:"resourceType"`
	ID           string            `json:"id"`
	Meta         Meta              `json:"meta"`
	Type         string            `json:"type"`
	Total        int               `json:"total"`
	Link         []BundleLink      `json:"link,omitempty"`
	Entry        []bundleEntryJSON `json:"entry,omitempty"`
}

type bundleEntryJSON struct {
	FullURL  string                 `json:"fullUrl,omitempty"`
	Resource map[string]interface{} `json:"resource"`
	Search   *BundleSearch          `json:"search,omitempty"`
}

type BundleSearch struct {
	Mode string `json:"mode,omitempty"`
}

// MarshalJSON renders the bundle in FHIR JSON form.
func (b *Bundle) MarshalJSON() ([]byte, error) {
	lastUpdated := b.LastUpdated
	out := bundleJSON{
		ResourceType: "Bundle",
		ID:           b.ID,
		Meta:         Meta{LastUpdated: &lastUpdated},
		Type:         b.Type,
		Total:        len(b.Entry),
		Link:         b.Link,
	}
	if len(b.Entry) > 0 {
		out.Entry = make([]bundleEntryJSON, len(b.Entry))
		for i, e := range b.Entry {
			out.Entry[i] = bundleEntryJSON{
				FullURL:  e.FullURL,
				Resource: e.Resource.ToFHIR(),
				Search:   &BundleSearch{Mode: "match"},
			}
		}
	}
	return json.Marshal(out)
}
