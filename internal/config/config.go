package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string   `mapstructure:"PORT"`
	Env         string   `mapstructure:"ENV"`
	LogLevel    string   `mapstructure:"LOG_LEVEL"`
	BaseURL     string   `mapstructure:"FHIR_BASE_URL"`
	CORSOrigins []string `mapstructure:"CORS_ORIGINS"`

	RateLimitRPS   float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int           `mapstructure:"RATE_LIMIT_BURST"`
	RequestTimeout time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	TLSEnabled     bool          `mapstructure:"TLS_ENABLED"`
	TLSCertFile    string        `mapstructure:"TLS_CERT_FILE"`
	TLSKeyFile     string        `mapstructure:"TLS_KEY_FILE"`

	DHIS2BaseURL        string        `mapstructure:"DHIS2_BASE_URL"`
	DHIS2PageSize       int           `mapstructure:"DHIS2_PAGE_SIZE"`
	DHIS2Timeout        time.Duration `mapstructure:"DHIS2_TIMEOUT"`
	DHIS2RateLimitRPS   float64       `mapstructure:"DHIS2_RATE_LIMIT_RPS"`
	DHIS2RateLimitBurst int           `mapstructure:"DHIS2_RATE_LIMIT_BURST"`
	TrackerProgram      string        `mapstructure:"DHIS2_TRACKER_PROGRAM"`
	OrgUnitMaxLevel     int           `mapstructure:"ORG_UNIT_MAX_LEVEL"`

	PipelinePrefetch int    `mapstructure:"PIPELINE_PREFETCH_PAGES"`
	RecordPolicy     string `mapstructure:"RECORD_POLICY"`

	PatientProfile   string `mapstructure:"FHIR_PATIENT_PROFILE"`
	NationalIDSystem string `mapstructure:"NATIONAL_ID_SYSTEM"`
	DefaultLocale    string `mapstructure:"DEFAULT_LOCALE"`

	PatientGenderField             string `mapstructure:"PATIENT_GENDER_FIELD"`
	PatientGivenNameField          string `mapstructure:"PATIENT_GIVEN_NAME_FIELD"`
	PatientFamilyNameField         string `mapstructure:"PATIENT_FAMILY_NAME_FIELD"`
	PatientBirthDateField          string `mapstructure:"PATIENT_BIRTH_DATE_FIELD"`
	PatientBirthDateEstimatedField string `mapstructure:"PATIENT_BIRTH_DATE_ESTIMATED_FIELD"`
	PatientNationalIDField         string `mapstructure:"PATIENT_NATIONAL_ID_FIELD"`
	PatientAddressField            string `mapstructure:"PATIENT_ADDRESS_FIELD"`
	PatientPhoneField              string `mapstructure:"PATIENT_PHONE_FIELD"`
}

var keys = []string{
	"PORT", "ENV", "LOG_LEVEL", "FHIR_BASE_URL", "CORS_ORIGINS",
	"RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "REQUEST_TIMEOUT",
	"TLS_ENABLED", "TLS_CERT_FILE", "TLS_KEY_FILE",
	"DHIS2_BASE_URL", "DHIS2_PAGE_SIZE", "DHIS2_TIMEOUT",
	"DHIS2_RATE_LIMIT_RPS", "DHIS2_RATE_LIMIT_BURST",
	"DHIS2_TRACKER_PROGRAM", "ORG_UNIT_MAX_LEVEL",
	"PIPELINE_PREFETCH_PAGES", "RECORD_POLICY",
	"FHIR_PATIENT_PROFILE", "NATIONAL_ID_SYSTEM", "DEFAULT_LOCALE",
	"PATIENT_GENDER_FIELD", "PATIENT_GIVEN_NAME_FIELD", "PATIENT_FAMILY_NAME_FIELD",
	"PATIENT_BIRTH_DATE_FIELD", "PATIENT_BIRTH_DATE_ESTIMATED_FIELD",
	"PATIENT_NATIONAL_ID_FIELD", "PATIENT_ADDRESS_FIELD", "PATIENT_PHONE_FIELD",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CORS_ORIGINS", "*")
	v.SetDefault("RATE_LIMIT_RPS", 20)
	v.SetDefault("RATE_LIMIT_BURST", 40)
	v.SetDefault("REQUEST_TIMEOUT", "60s")

	v.SetDefault("DHIS2_PAGE_SIZE", 50)
	v.SetDefault("DHIS2_TIMEOUT", "30s")
	v.SetDefault("DHIS2_RATE_LIMIT_RPS", 0)
	v.SetDefault("DHIS2_RATE_LIMIT_BURST", 1)
	v.SetDefault("DHIS2_TRACKER_PROGRAM", "Xh88p1nyefp")
	v.SetDefault("ORG_UNIT_MAX_LEVEL", 2)

	v.SetDefault("PIPELINE_PREFETCH_PAGES", 2)
	v.SetDefault("RECORD_POLICY", "skip")

	v.SetDefault("FHIR_PATIENT_PROFILE", "http://example.com/fhir/example/StructureDefinition/DHIS2BasePatient")
	v.SetDefault("NATIONAL_ID_SYSTEM", "http://whatever.country/nationalidnamespace")
	v.SetDefault("DEFAULT_LOCALE", "en")

	// Sierra Leone demo database field codes.
	v.SetDefault("PATIENT_GENDER_FIELD", "cejWyOfXge6")
	v.SetDefault("PATIENT_GIVEN_NAME_FIELD", "w75KJ2mc4zz")
	v.SetDefault("PATIENT_FAMILY_NAME_FIELD", "zDhUuAYrxNC")

	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		if origins := v.GetString("CORS_ORIGINS"); origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DHIS2BaseURL == "" {
		return nil, fmt.Errorf("DHIS2_BASE_URL is required")
	}
	cfg.DHIS2BaseURL = strings.TrimRight(cfg.DHIS2BaseURL, "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:" + cfg.Port + "/fhir/baseR4"
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks that the configuration is usable before anything is started.
func (c *Config) Validate() error {
	u, err := url.Parse(c.DHIS2BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("DHIS2_BASE_URL must be an absolute http(s) URL, got %q", c.DHIS2BaseURL)
	}
	if c.DHIS2PageSize <= 0 {
		return fmt.Errorf("DHIS2_PAGE_SIZE must be positive, got %d", c.DHIS2PageSize)
	}
	if c.PipelinePrefetch <= 0 {
		return fmt.Errorf("PIPELINE_PREFETCH_PAGES must be positive, got %d", c.PipelinePrefetch)
	}
	if c.RecordPolicy != "skip" && c.RecordPolicy != "abort" {
		return fmt.Errorf("RECORD_POLICY must be \"skip\" or \"abort\", got %q", c.RecordPolicy)
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}
	if c.DHIS2RateLimitRPS < 0 {
		return fmt.Errorf("DHIS2_RATE_LIMIT_RPS must not be negative")
	}
	if c.DHIS2RateLimitRPS > 0 && c.DHIS2RateLimitBurst <= 0 {
		return fmt.Errorf("DHIS2_RATE_LIMIT_BURST must be positive when DHIS2_RATE_LIMIT_RPS is set")
	}
	if c.RequestTimeout <= 0 || c.DHIS2Timeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT and DHIS2_TIMEOUT must be positive")
	}
	if c.IsProduction() && c.TrackerProgram == "" {
		return fmt.Errorf("DHIS2_TRACKER_PROGRAM is required in production")
	}

	// TLS validation: when TLS is enabled, cert and key files must be specified.
	if c.TLSEnabled {
		if c.TLSCertFile == "" {
			return fmt.Errorf("TLS_CERT_FILE is required when TLS_ENABLED is true")
		}
		if c.TLSKeyFile == "" {
			return fmt.Errorf("TLS_KEY_FILE is required when TLS_ENABLED is true")
		}
	}

	return nil
}
