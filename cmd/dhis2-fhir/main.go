package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/hisp/dhis2-fhir/internal/config"
	"github.com/hisp/dhis2-fhir/internal/mapping"
	"github.com/hisp/dhis2-fhir/internal/pipeline"
	"github.com/hisp/dhis2-fhir/internal/platform/dhis2"
	"github.com/hisp/dhis2-fhir/internal/platform/fhir"
	"github.com/hisp/dhis2-fhir/internal/platform/metrics"
	"github.com/hisp/dhis2-fhir/internal/platform/middleware"
)

const version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "dhis2-fhir",
		Short: "FHIR R4 gateway in front of a DHIS2 instance",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(exportCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the FHIR gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func exportCmd() *cobra.Command {
	var filter dhis2.Filter
	cmd := &cobra.Command{
		Use:       "export <ResourceType>",
		Short:     "Run one pipeline and write the bundle to stdout",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"CodeSystem", "ValueSet", "Location", "Patient"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := newLogger(cfg, cmd.ErrOrStderr())
			registry := newRegistry(cfg, logger, nil)
			return runExport(cmd.Context(), registry, args[0], filter, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&filter.Name, "name", "", "only records whose name contains this text")
	cmd.Flags().StringVar(&filter.OrgUnit, "organization", "", "org unit for Patient exports")
	cmd.Flags().IntVar(&filter.PageSize, "count", 0, "DHIS2 page size")
	cmd.Flags().IntVar(&filter.MaxPages, "max-pages", 0, "stop after this many pages")
	return cmd
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config, out io.Writer) zerolog.Logger {
	logger := zerolog.New(out).With().Timestamp().Logger()
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: out}).With().Timestamp().Logger()
	}
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	return logger.Level(level)
}

func conversionContext(cfg *config.Config) mapping.ConversionContext {
	ctx := mapping.NewConversionContext(cfg.DHIS2BaseURL)
	ctx.PatientProfile = cfg.PatientProfile
	ctx.NationalIDSystem = cfg.NationalIDSystem
	if cfg.DefaultLocale != "" {
		ctx.DefaultLocale = cfg.DefaultLocale
	}
	ctx.PatientFields = mapping.PatientFields{
		Gender:             cfg.PatientGenderField,
		GivenName:          cfg.PatientGivenNameField,
		FamilyName:         cfg.PatientFamilyNameField,
		BirthDate:          cfg.PatientBirthDateField,
		BirthDateEstimated: cfg.PatientBirthDateEstimatedField,
		NationalID:         cfg.PatientNationalIDField,
		Address:            cfg.PatientAddressField,
		Phone:              cfg.PatientPhoneField,
	}
	return ctx
}

// newRegistry wires the DHIS2 client and the four pipelines. m may be nil.
func newRegistry(cfg *config.Config, logger zerolog.Logger, m *metrics.Metrics) *pipeline.Registry {
	opts := []dhis2.ClientOption{
		dhis2.WithHTTPClient(&http.Client{Timeout: cfg.DHIS2Timeout}),
		dhis2.WithLogger(logger),
	}
	if cfg.DHIS2RateLimitRPS > 0 {
		opts = append(opts, dhis2.WithRateLimit(cfg.DHIS2RateLimitRPS, cfg.DHIS2RateLimitBurst))
	}

	policy, _ := pipeline.ParsePolicy(cfg.RecordPolicy)
	settings := pipeline.Settings{
		Conversion:      conversionContext(cfg),
		OrgUnitMaxLevel: cfg.OrgUnitMaxLevel,
		TrackerProgram:  cfg.TrackerProgram,
		PageSize:        cfg.DHIS2PageSize,
		Prefetch:        cfg.PipelinePrefetch,
		Policies: map[string]pipeline.Policy{
			"CodeSystem": policy,
			"ValueSet":   policy,
			"Location":   policy,
			"Patient":    policy,
		},
		Logger: logger,
	}
	if m != nil {
		opts = append(opts, dhis2.WithObserver(m))
		settings.Recorder = m
	}

	return pipeline.NewDefaultRegistry(dhis2.NewClient(cfg.DHIS2BaseURL, opts...), settings)
}

func runExport(ctx context.Context, registry *pipeline.Registry, resourceType string, filter dhis2.Filter, out io.Writer) error {
	factory, ok := registry.Resolve(resourceType)
	if !ok {
		return fmt.Errorf("unsupported resource type %q", resourceType)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	bundle, err := factory(filter).Run(ctx)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(bundle)
}

func searchParams(resourceType string) []fhir.SearchParam {
	params := []fhir.SearchParam{
		{Name: "_count", Type: "number", Documentation: "DHIS2 page size"},
		{Name: "_maxpages", Type: "number", Documentation: "Maximum number of DHIS2 pages to read"},
	}
	if resourceType == "Patient" {
		return append(params, fhir.SearchParam{Name: "organization", Type: "reference", Documentation: "DHIS2 org unit id; descendants are included"})
	}
	return append(params, fhir.SearchParam{Name: "name", Type: "string", Documentation: "Case-insensitive name match"})
}

func newServer(cfg *config.Config, logger zerolog.Logger) *echo.Echo {
	m := metrics.New()
	registry := newRegistry(cfg, logger, m)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(m.Middleware())
	e.Use(middleware.SecurityHeaders(cfg.TLSEnabled))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodHead, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderAccept, echo.HeaderContentType, middleware.RequestIDHeader},
	}))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})
	e.GET("/metrics", echo.WrapHandler(m.Handler()))

	fhirGroup := e.Group("/fhir/baseR4")
	fhirGroup.Use(middleware.RateLimit(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}))
	fhirGroup.Use(middleware.RequestTimeout(cfg.RequestTimeout))

	capBuilder := fhir.NewCapabilityBuilder(cfg.BaseURL, version)
	for _, rt := range registry.ResourceTypes() {
		capBuilder.AddResource(rt, fhir.SearchOnlyInteractions(), searchParams(rt))
	}
	fhir.NewCapabilityHandler(capBuilder).RegisterRoutes(fhirGroup)
	pipeline.NewHandler(registry, logger).RegisterRoutes(fhirGroup)

	return e
}

func runServer() error {
	bootLogger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := loadConfig()
	if err != nil {
		bootLogger.Fatal().Err(err).Msg("failed to load config")
	}
	logger := newLogger(cfg, os.Stdout)
	logger.Info().Str("dhis2", cfg.DHIS2BaseURL).Str("env", cfg.Env).Msg("configuration loaded")

	e := newServer(cfg, logger)

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		var err error
		if cfg.TLSEnabled {
			err = e.StartTLS(addr, cfg.TLSCertFile, cfg.TLSKeyFile)
		} else {
			err = e.Start(addr)
		}
		if err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
