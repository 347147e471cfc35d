package pipeline

import (
	"sort"

	"github.com/rs/zerolog"

	"github.com/hisp/dhis2-fhir/internal/domain/codesystem"
	"github.com/hisp/dhis2-fhir/internal/domain/location"
	"github.com/hisp/dhis2-fhir/internal/domain/patient"
	"github.com/hisp/dhis2-fhir/internal/domain/valueset"
	"github.com/hisp/dhis2-fhir/internal/mapping"
	"github.com/hisp/dhis2-fhir/internal/platform/dhis2"
)

// Factory builds the runner that serves one request.
type Factory func(f dhis2.Filter) Runner

// Registry maps FHIR resource types to their pipelines.
type Registry struct {
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

func (r *Registry) Register(resourceType string, f Factory) {
	r.factories[resourceType] = f
}

// Resolve returns the factory for resourceType.
func (r *Registry) Resolve(resourceType string) (Factory, bool) {
	f, ok := r.factories[resourceType]
	return f, ok
}

// ResourceTypes lists the registered resource types in sorted order.
func (r *Registry) ResourceTypes() []string {
	types := make([]string, 0, len(r.factories))
	for t := range r.factories {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Settings configures the default set of pipelines.
type Settings struct {
	Conversion      mapping.ConversionContext
	OrgUnitMaxLevel int
	TrackerProgram  string
	PageSize        int
	Prefetch        int
	// Policies overrides the skip policy per resource type.
	Policies map[string]Policy
	Logger   zerolog.Logger
	Recorder Recorder
}

func (s Settings) options(resourceType string) Options {
	return Options{
		Policy:   s.Policies[resourceType],
		Prefetch: s.Prefetch,
		Logger:   s.Logger,
		Recorder: s.Recorder,
	}
}

func (s Settings) filter(f dhis2.Filter) dhis2.Filter {
	if f.PageSize <= 0 {
		f.PageSize = s.PageSize
	}
	return f
}

// NewDefaultRegistry registers the CodeSystem, ValueSet, Location and
// Patient pipelines against client.
func NewDefaultRegistry(client *dhis2.Client, s Settings) *Registry {
	r := NewRegistry()

	r.Register("CodeSystem", func(f dhis2.Filter) Runner {
		src := dhis2.NewCollection[dhis2.OptionSet](client, dhis2.OptionSetsQuery(s.filter(f)))
		return New[dhis2.OptionSet]("CodeSystem", src, codesystem.FromOptionSet, s.Conversion, s.options("CodeSystem"))
	})
	r.Register("ValueSet", func(f dhis2.Filter) Runner {
		src := dhis2.NewCollection[dhis2.OptionSet](client, dhis2.OptionSetsQuery(s.filter(f)))
		return New[dhis2.OptionSet]("ValueSet", src, valueset.FromOptionSet, s.Conversion, s.options("ValueSet"))
	})
	r.Register("Location", func(f dhis2.Filter) Runner {
		src := dhis2.NewCollection[dhis2.OrganisationUnit](client, dhis2.OrganisationUnitsQuery(s.OrgUnitMaxLevel, s.filter(f)))
		return New[dhis2.OrganisationUnit]("Location", src, location.FromOrganisationUnit, s.Conversion, s.options("Location"))
	})
	r.Register("Patient", func(f dhis2.Filter) Runner {
		src := dhis2.NewCollection[dhis2.TrackedEntity](client, dhis2.TrackedEntitiesQuery(s.TrackerProgram, s.filter(f)))
		return New[dhis2.TrackedEntity]("Patient", src, patient.FromTrackedEntity, s.Conversion, s.options("Patient"))
	})

	return r
}
