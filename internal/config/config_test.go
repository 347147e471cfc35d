package config

import (
	"testing"
	"time"
)

func TestLoad_RequiresDHIS2BaseURL(t *testing.T) {
	t.Setenv("DHIS2_BASE_URL", "")
	_, err := Load()
	if err == nil {
		t.Fatal("expected error when DHIS2_BASE_URL is missing")
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DHIS2_BASE_URL", "https://play.dhis2.org/40/api/")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.DHIS2BaseURL != "https://play.dhis2.org/40/api" {
		t.Errorf("expected trailing slash to be trimmed, got %s", cfg.DHIS2BaseURL)
	}
	if cfg.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Port)
	}
	if cfg.DHIS2PageSize != 50 {
		t.Errorf("expected default page size 50, got %d", cfg.DHIS2PageSize)
	}
	if cfg.OrgUnitMaxLevel != 2 {
		t.Errorf("expected default org unit level 2, got %d", cfg.OrgUnitMaxLevel)
	}
	if cfg.RequestTimeout != 60*time.Second {
		t.Errorf("expected default request timeout 60s, got %s", cfg.RequestTimeout)
	}
	if cfg.PatientGenderField != "cejWyOfXge6" {
		t.Errorf("expected default gender field, got %s", cfg.PatientGenderField)
	}
	if cfg.BaseURL != "http://localhost:8080/fhir/baseR4" {
		t.Errorf("unexpected FHIR base URL %s", cfg.BaseURL)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DHIS2_BASE_URL", "http://dhis2.local/api")
	t.Setenv("DHIS2_PAGE_SIZE", "200")
	t.Setenv("DHIS2_TIMEOUT", "5s")
	t.Setenv("RECORD_POLICY", "abort")
	t.Setenv("PATIENT_NATIONAL_ID_FIELD", "AuPLng5hLbE")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DHIS2PageSize != 200 {
		t.Errorf("expected page size 200, got %d", cfg.DHIS2PageSize)
	}
	if cfg.DHIS2Timeout != 5*time.Second {
		t.Errorf("expected timeout 5s, got %s", cfg.DHIS2Timeout)
	}
	if cfg.RecordPolicy != "abort" {
		t.Errorf("expected abort policy, got %s", cfg.RecordPolicy)
	}
	if cfg.PatientNationalIDField != "AuPLng5hLbE" {
		t.Errorf("expected national id field, got %s", cfg.PatientNationalIDField)
	}
}

func validConfig() *Config {
	return &Config{
		Env:              "development",
		DHIS2BaseURL:     "https://play.dhis2.org/40/api",
		DHIS2PageSize:    50,
		DHIS2Timeout:     30 * time.Second,
		PipelinePrefetch: 2,
		RecordPolicy:     "skip",
		RateLimitRPS:     20,
		RateLimitBurst:   40,
		RequestTimeout:   time.Minute,
		TrackerProgram:   "Xh88p1nyefp",
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"relative base url", func(c *Config) { c.DHIS2BaseURL = "/api" }},
		{"non-http base url", func(c *Config) { c.DHIS2BaseURL = "ftp://dhis2/api" }},
		{"zero page size", func(c *Config) { c.DHIS2PageSize = 0 }},
		{"zero prefetch", func(c *Config) { c.PipelinePrefetch = 0 }},
		{"unknown policy", func(c *Config) { c.RecordPolicy = "retry" }},
		{"zero inbound rate", func(c *Config) { c.RateLimitRPS = 0 }},
		{"upstream rate without burst", func(c *Config) { c.DHIS2RateLimitRPS = 5; c.DHIS2RateLimitBurst = 0 }},
		{"production without program", func(c *Config) { c.Env = "production"; c.TrackerProgram = "" }},
		{"tls without cert", func(c *Config) { c.TLSEnabled = true; c.TLSKeyFile = "key.pem" }},
		{"tls without key", func(c *Config) { c.TLSEnabled = true; c.TLSCertFile = "cert.pem" }},
	}

	if err := validConfig().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)
			if err := c.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestConfig_IsDev(t *testing.T) {
	c := &Config{Env: "development"}
	if !c.IsDev() {
		t.Error("expected IsDev() to return true for development")
	}

	c.Env = "production"
	if c.IsDev() || !c.IsProduction() {
		t.Error("expected production mode")
	}
}
