package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hisp/dhis2-fhir/internal/config"
	"github.com/hisp/dhis2-fhir/internal/platform/dhis2"
)

const orgUnitsPayload = `{
  "pager": {"page": 1, "pageCount": 1, "total": 2, "pageSize": 50},
  "organisationUnits": [
    {"id": "ImspTQPwCqd", "name": "Sierra Leone", "level": 1},
    {"id": "O6uvpzGd5pu", "name": "Bo", "level": 2, "parent": {"id": "ImspTQPwCqd"}}
  ]
}`

func testConfig(dhis2URL string) *config.Config {
	return &config.Config{
		Port:                  "8080",
		Env:                   "test",
		LogLevel:              "debug",
		BaseURL:               "http://localhost:8080/fhir/baseR4",
		CORSOrigins:           []string{"*"},
		RateLimitRPS:          100,
		RateLimitBurst:        100,
		RequestTimeout:        5 * time.Second,
		DHIS2BaseURL:          dhis2URL,
		DHIS2PageSize:         50,
		DHIS2Timeout:          5 * time.Second,
		OrgUnitMaxLevel:       2,
		PipelinePrefetch:      2,
		RecordPolicy:          "skip",
		PatientGenderField:    "cejWyOfXge6",
		PatientGivenNameField: "w75KJ2mc4zz",
	}
}

func newFakeDHIS2(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/organisationUnits" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, orgUnitsPayload)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestServer_LocationSearch(t *testing.T) {
	srv := newFakeDHIS2(t)
	e := newServer(testConfig(srv.URL+"/api"), zerolog.Nop())

	rec := get(t, e, "/fhir/baseR4/Location")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, float64(2), body["total"])

	entries := body["entry"].([]interface{})
	bo := entries[1].(map[string]interface{})["resource"].(map[string]interface{})
	assert.Equal(t, "O6uvpzGd5pu", bo["id"])
	assert.Equal(t, "Location/ImspTQPwCqd", bo["partOf"].(map[string]interface{})["reference"])
}

func TestServer_UpstreamErrorIsBadGateway(t *testing.T) {
	srv := newFakeDHIS2(t)
	e := newServer(testConfig(srv.URL+"/api"), zerolog.Nop())

	// optionSets is not served by the fake and returns 404
	rec := get(t, e, "/fhir/baseR4/CodeSystem")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "OperationOutcome")
}

func TestServer_HealthMetadataAndMetrics(t *testing.T) {
	srv := newFakeDHIS2(t)
	e := newServer(testConfig(srv.URL+"/api"), zerolog.Nop())

	rec := get(t, e, "/health")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)

	rec = get(t, e, "/fhir/baseR4/metadata")
	require.Equal(t, http.StatusOK, rec.Code)
	var cs map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cs))
	assert.Equal(t, "CapabilityStatement", cs["resourceType"])
	resources := cs["rest"].([]interface{})[0].(map[string]interface{})["resource"].([]interface{})
	assert.Len(t, resources, 4)

	_ = get(t, e, "/fhir/baseR4/Location")
	rec = get(t, e, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "dhis2_fhir_pipeline_runs_total")
	assert.Contains(t, rec.Body.String(), "dhis2_fhir_dhis2_fetches_total")
}

func TestRunExport_WritesBundle(t *testing.T) {
	srv := newFakeDHIS2(t)
	registry := newRegistry(testConfig(srv.URL+"/api"), zerolog.Nop(), nil)

	var out bytes.Buffer
	err := runExport(context.Background(), registry, "Location", dhis2.Filter{}, &out)
	require.NoError(t, err)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(out.Bytes(), &body))
	assert.Equal(t, "Bundle", body["resourceType"])
	assert.Equal(t, float64(2), body["total"])
}

func TestRunExport_UnknownResourceType(t *testing.T) {
	registry := newRegistry(testConfig("http://127.0.0.1:1/api"), zerolog.Nop(), nil)

	err := runExport(context.Background(), registry, "Observation", dhis2.Filter{}, io.Discard)
	assert.ErrorContains(t, err, "Observation")
}

func TestNewLogger_Level(t *testing.T) {
	cfg := testConfig("http://localhost/api")
	cfg.LogLevel = "warn"
	assert.Equal(t, zerolog.WarnLevel, newLogger(cfg, io.Discard).GetLevel())

	cfg.LogLevel = "nonsense"
	assert.Equal(t, zerolog.InfoLevel, newLogger(cfg, io.Discard).GetLevel())
}

func TestConversionContext(t *testing.T) {
	cfg := testConfig("https://play.dhis2.org/40/api")
	cfg.DefaultLocale = "fr"
	ctx := conversionContext(cfg)

	assert.Equal(t, "https://play.dhis2.org/40", ctx.ServerURL())
	assert.Equal(t, "fr", ctx.DefaultLocale)
	assert.Equal(t, "cejWyOfXge6", ctx.PatientFields.Gender)
	assert.Empty(t, ctx.PatientFields.Phone)
}
