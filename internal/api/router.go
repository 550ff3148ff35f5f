package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/99minutos/geofence-system/docs"
	"github.com/99minutos/geofence-system/internal/api/handler"
	"github.com/99minutos/geofence-system/internal/api/middleware"
	"github.com/99minutos/geofence-system/internal/core/domain"
	"github.com/99minutos/geofence-system/internal/core/ports"
)

// Dependencies are the services and probes the router serves.
type Dependencies struct {
	Evaluation ports.EvaluationService
	Regions    ports.RegionService
	Checks     map[string]handler.Check
	JWTSecret  string
	Log        zerolog.Logger

	// Registerer and Gatherer default to the Prometheus globals.
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Dependencies) *echo.Echo {
	if deps.Registerer == nil {
		deps.Registerer = prometheus.DefaultRegisterer
	}
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(deps.Log))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "http",
		Registerer: deps.Registerer,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics"
		},
	}))

	// --- Handlers ---
	positionHandler := handler.NewPositionHandler(deps.Evaluation)
	regionHandler := handler.NewRegionHandler(deps.Regions)
	stateHandler := handler.NewStateHandler(deps.Evaluation)
	healthHandler := handler.NewHealthHandler()
	healthDepsHandler := handler.NewHealthDependenciesHandler(deps.Checks)
	authMiddleware := middleware.Auth(deps.JWTSecret)

	// --- Health probes, metrics and docs (no auth required) ---
	e.GET("/health", healthHandler.Liveness)            // liveness: is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness: are dependencies up?
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: deps.Gatherer}))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	// --- Public feed and evaluation ---
	v1 := e.Group("/v1")
	v1.GET("/regions", regionHandler.List)
	v1.POST("/positions", positionHandler.Report)

	// --- Authenticated reads ---
	v1.GET("/entities/:namespace/:entityId/state", stateHandler.Get,
		authMiddleware, middleware.RBAC(domain.RoleAdmin, domain.RoleClient), middleware.NamespaceParam("namespace"))

	// --- Admin ---
	admin := v1.Group("/admin", authMiddleware, middleware.RBAC(domain.RoleAdmin, domain.RoleClient))
	admin.PUT("/regions/:id", regionHandler.Upsert)
	admin.DELETE("/regions/:id", regionHandler.Delete)
	admin.POST("/cache/invalidate", regionHandler.Invalidate)

	return e
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(_ echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Status >= 500 {
				ev = log.Error().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}
