package api

import (
	"net"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/pharmacy/backoffice/internal/api/handler"
	"github.com/pharmacy/backoffice/internal/api/middleware"
	"github.com/pharmacy/backoffice/internal/core/ports"
)

// Dependencies is everything the HTTP layer needs from the outside.
type Dependencies struct {
	Log      zerolog.Logger
	Auth     ports.AuthService
	Accounts ports.AccountService
	Tokens   ports.TokenParser
	Audit    ports.AuditPublisher

	// Identity enables the per-request account refresh in the auth
	// middleware when non-nil.
	Identity middleware.IdentityLoader
	// Limiter throttles the public auth routes when non-nil.
	Limiter middleware.Limiter
	// Readiness lists the dependencies checked by /health/ready.
	Readiness map[string]handler.Pinger

	CORSOrigins []string
	// TrustedProxies are the networks whose X-Forwarded-For is believed.
	// Empty means the peer address is the client address.
	TrustedProxies []*net.IPNet
	// Registry receives the HTTP metrics. Nil means the default registry.
	Registry *prometheus.Registry
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Dependencies) (*echo.Echo, error) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)
	e.IPExtractor = ipExtractor(d.TrustedProxies)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(d.Log))
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: corsOrigins(d.CORSOrigins),
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		MaxAge:       3600,
	}))
	e.Use(middleware.RequestMeta())

	promMW, metricsHandler := httpMetrics(d.Registry)
	e.Use(promMW)

	// --- Dispatch table ---
	guard := Guard{
		Auth:  middleware.Auth(d.Tokens, middleware.AuthOptions{Identity: d.Identity, Audit: d.Audit}),
		Audit: d.Audit,
	}
	if d.Limiter != nil {
		guard.Throttle = middleware.RateLimit(d.Limiter, d.Log)
	}
	routes := Routes(handler.NewAuthHandler(d.Auth), handler.NewAccountHandler(d.Accounts))
	if err := RegisterRoutes(e, routes, guard); err != nil {
		return nil, err
	}

	// --- Health probes and tooling (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	healthDepsHandler := handler.NewHealthDependenciesHandler(d.Readiness)

	e.GET("/health", healthHandler.Liveness)            // liveness  – is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness – are dependencies up?
	e.GET("/metrics", metricsHandler)
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e, nil
}

// ipExtractor decides what c.RealIP returns, which keys the login limiter
// and stamps audit entries.
func ipExtractor(proxies []*net.IPNet) echo.IPExtractor {
	if len(proxies) == 0 {
		return echo.ExtractIPDirect()
	}
	opts := []echo.TrustOption{
		echo.TrustLoopback(false),
		echo.TrustLinkLocal(false),
		echo.TrustPrivateNet(false),
	}
	for _, n := range proxies {
		opts = append(opts, echo.TrustIPRange(n))
	}
	return echo.ExtractIPFromXFFHeader(opts...)
}

func corsOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

func httpMetrics(reg *prometheus.Registry) (echo.MiddlewareFunc, echo.HandlerFunc) {
	if reg == nil {
		return echoprometheus.NewMiddleware(namespace), echoprometheus.NewHandler()
	}
	mw := echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  namespace,
		Registerer: reg,
	})
	h := echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{
		Gatherer: prometheus.Gatherers{reg, prometheus.DefaultGatherer},
	})
	return mw, h
}

const namespace = "backoffice"

// requestLogger emits one zerolog line per request.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Error != nil {
				ev = log.Warn().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("remote_ip", v.RemoteIP).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}
