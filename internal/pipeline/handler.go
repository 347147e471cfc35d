package pipeline

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/hisp/dhis2-fhir/internal/platform/dhis2"
	"github.com/hisp/dhis2-fhir/internal/platform/fhir"
	"github.com/hisp/dhis2-fhir/pkg/pagination"
)

const contentTypeFHIRJSON = "application/fhir+json; charset=UTF-8"

// Handler serves FHIR searches by running the matching pipeline.
type Handler struct {
	registry *Registry
	logger   zerolog.Logger
}

func NewHandler(registry *Registry, logger zerolog.Logger) *Handler {
	return &Handler{registry: registry, logger: logger}
}

func (h *Handler) RegisterRoutes(fhirGroup *echo.Group) {
	fhirGroup.GET("/:resourceType", h.Search)
}

// Search handles GET /fhir/baseR4/{resourceType}. Supported parameters are
// _count, _maxpages, name and organization.
func (h *Handler) Search(c echo.Context) error {
	c.Response().Header().Set(echo.HeaderContentType, contentTypeFHIRJSON)

	resourceType := c.Param("resourceType")
	factory, ok := h.registry.Resolve(resourceType)
	if !ok {
		return c.JSON(http.StatusNotFound, fhir.NotSupportedOutcome(resourceType))
	}

	filter, err := filterFromQuery(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, fhir.NewOperationOutcome(fhir.IssueSeverityError, fhir.IssueTypeInvalid, err.Error()))
	}

	bundle, err := factory(filter).Run(c.Request().Context())
	if err != nil {
		return h.writeError(c, resourceType, err)
	}

	bundle.Link = []fhir.BundleLink{{Relation: "self", URL: c.Request().URL.String()}}
	return c.JSON(http.StatusOK, bundle)
}

func (h *Handler) writeError(c echo.Context, resourceType string, err error) error {
	rid, _ := c.Get("request_id").(string)
	h.logger.Error().Err(err).Str("request_id", rid).Str("resource_type", resourceType).Msg("pipeline failed")

	var fetchErr *dhis2.FetchError
	var recordErr *RecordError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return c.JSON(http.StatusGatewayTimeout, fhir.TimeoutOutcome())
	case errors.As(err, &fetchErr):
		return c.JSON(http.StatusBadGateway, fhir.UpstreamOutcome(fetchErr.Error()))
	case errors.As(err, &recordErr):
		return c.JSON(http.StatusBadGateway, fhir.NewOperationOutcome(fhir.IssueSeverityError, fhir.IssueTypeProcessing, recordErr.Error()))
	case errors.Is(err, context.Canceled):
		// client went away; nothing useful to write
		return nil
	default:
		return c.JSON(http.StatusInternalServerError, fhir.InternalErrorOutcome(err.Error()))
	}
}

func filterFromQuery(c echo.Context) (dhis2.Filter, error) {
	page, err := pagination.FromContext(c)
	if err != nil {
		return dhis2.Filter{}, err
	}
	return dhis2.Filter{
		Name:     c.QueryParam("name"),
		OrgUnit:  strings.TrimPrefix(c.QueryParam("organization"), "Organization/"),
		PageSize: page.Count,
		MaxPages: page.MaxPages,
	}, nil
}
