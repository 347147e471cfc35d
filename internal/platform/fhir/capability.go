package fhir

import (
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

// SearchParam describes a search parameter for use with the CapabilityBuilder.
type SearchParam struct {
	Name          string `json:"name"`
	Type          string `json:"type"`
	Documentation string `json:"documentation,omitempty"`
}

type resourceEntry struct {
	interactions []string
	searchParams []SearchParam
}

// CapabilityBuilder accumulates the resource types served by the gateway and
// builds the CapabilityStatement returned from /metadata.
type CapabilityBuilder struct {
	mu        sync.RWMutex
	resources map[string]*resourceEntry

	ServerVersion string
	BaseURL       string
}

// NewCapabilityBuilder creates a new builder. The baseURL is the FHIR base
// the gateway is mounted at, and version is the server software version.
func NewCapabilityBuilder(baseURL, version string) *CapabilityBuilder {
	return &CapabilityBuilder{
		resources:     make(map[string]*resourceEntry),
		ServerVersion: version,
		BaseURL:       baseURL,
	}
}

// AddResource registers a FHIR resource type. Registering the same type again
// replaces its search parameters.
func (b *CapabilityBuilder) AddResource(resourceType string, interactions []string, searchParams []SearchParam) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.resources[resourceType] = &resourceEntry{
		interactions: append([]string(nil), interactions...),
		searchParams: append([]SearchParam(nil), searchParams...),
	}
}

// GetResourceTypes returns the registered resource types in sorted order.
func (b *CapabilityBuilder) GetResourceTypes() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	types := make([]string, 0, len(b.resources))
	for rt := range b.resources {
		types = append(types, rt)
	}
	sort.Strings(types)
	return types
}

// SearchOnlyInteractions is the interaction list of a read-through gateway.
func SearchOnlyInteractions() []string {
	return []string{"search-type"}
}

// Build returns the CapabilityStatement as a FHIR JSON object.
func (b *CapabilityBuilder) Build() map[string]interface{} {
	types := b.GetResourceTypes()

	b.mu.RLock()
	defer b.mu.RUnlock()

	resources := make([]map[string]interface{}, 0, len(types))
	for _, rt := range types {
		entry := b.resources[rt]
		ia := make([]map[string]string, len(entry.interactions))
		for i, code := range entry.interactions {
			ia[i] = map[string]string{"code": code}
		}
		res := map[string]interface{}{
			"type":        rt,
			"interaction": ia,
		}
		if len(entry.searchParams) > 0 {
			res["searchParam"] = entry.searchParams
		}
		resources = append(resources, res)
	}

	return map[string]interface{}{
		"resourceType": "CapabilityStatement",
		"status":       StatusActive,
		"date":         time.Now().UTC().Format("2006-01-02"),
		"kind":         "instance",
		"fhirVersion":  "4.0.1",
		"format":       []string{"application/fhir+json", "json"},
		"software": map[string]string{
			"name":    "DHIS2 FHIR Gateway",
			"version": b.ServerVersion,
		},
		"implementation": map[string]string{
			"description": "Read-only FHIR R4 view of a DHIS2 instance",
			"url":         b.BaseURL,
		},
		"rest": []map[string]interface{}{
			{
				"mode":     "server",
				"resource": resources,
			},
		},
	}
}

// CapabilityHandler serves the CapabilityStatement.
type CapabilityHandler struct {
	builder *CapabilityBuilder
}

func NewCapabilityHandler(builder *CapabilityBuilder) *CapabilityHandler {
	return &CapabilityHandler{builder: builder}
}

func (h *CapabilityHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/metadata", h.GetMetadata)
}

// GetMetadata returns the full CapabilityStatement.
func (h *CapabilityHandler) GetMetadata(c echo.Context) error {
	return c.JSON(http.StatusOK, h.builder.Build())
}
