package router // package router builds the Echo instance and registers the HTTP routes

import (
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/iliyamo/signature-echo/internal/config"
	"github.com/iliyamo/signature-echo/internal/handler" // import the handlers that implement the endpoints
)

// Deps carries everything the routes need.  Middleware left nil is not
// applied; a nil Quotes handler leaves the quote API unregistered.
type Deps struct {
	Health *handler.HealthHandler
	Verify *handler.VerifyHandler
	Quotes *handler.QuoteHandler

	RateLimit echo.MiddlewareFunc // applied to /test and the quote API
	Cache     echo.MiddlewareFunc // applied to GET /quotes
	Guard     echo.MiddlewareFunc // signed-request guard for POST /quote
}

// New constructs the Echo instance for the service: logger level, request
// IDs, request logging, panic recovery and the body size limit, followed by
// the routes.
func New(cfg config.Config, d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Logger.SetLevel(parseLevel(cfg.LogLevel))

	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogRemoteIP:  true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			c.Logger().Infof("request id=%s ip=%s %s %s status=%d latency=%s",
				v.RequestID, v.RemoteIP, v.Method, v.URI, v.Status, v.Latency)
			return nil
		},
	}))
	e.Use(echomw.Recover())
	e.Use(echomw.BodyLimit(cfg.BodyLimit))

	RegisterRoutes(e, d)
	return e
}

// RegisterRoutes registers the service routes on e.
func RegisterRoutes(e *echo.Echo, d Deps) {
	// Liveness: fixed body, never touches dependencies.
	e.GET("/ping", handler.Ping)
	if d.Health != nil {
		e.GET("/healthz", d.Health.Health)
	}

	e.POST("/test", d.Verify.Test, use(d.RateLimit)...)

	if d.Quotes == nil {
		return
	}
	e.GET("/quotes", d.Quotes.GetQuotes, use(d.RateLimit, d.Cache)...)
	e.POST("/quote", d.Quotes.GetQuote, use(d.RateLimit, d.Guard)...)
}

// use drops nil middleware.
func use(mws ...echo.MiddlewareFunc) []echo.MiddlewareFunc {
	out := make([]echo.MiddlewareFunc, 0, len(mws))
	for _, mw := range mws {
		if mw != nil {
			out = append(out, mw)
		}
	}
	return out
}

func parseLevel(s string) log.Lvl {
	switch strings.ToLower(s) {
	case "debug":
		return log.DEBUG
	case "warn":
		return log.WARN
	case "error":
		return log.ERROR
	case "off":
		return log.OFF
	default:
		return log.INFO
	}
}
