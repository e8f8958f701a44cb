// Package httpapi exposes the design service over JSON HTTP.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gardencore/internal/adapters/designs"
	"gardencore/internal/core"
	"gardencore/internal/environment"
	"gardencore/internal/planner"
	"gardencore/pkg/domain"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Server wires the HTTP routes to the service layer.
type Server struct {
	svc      *core.Service
	exports  designs.ExportScheduler
	env      *environment.Service
	gatherer prometheus.Gatherer
	logger   core.Logger
	echo     *echo.Echo
}

// Option configures a Server.
type Option func(*Server)

// WithExporter enables the asynchronous export routes.
func WithExporter(exports designs.ExportScheduler) Option {
	return func(s *Server) { s.exports = exports }
}

// WithEnvironment enables the environment estimate route.
func WithEnvironment(env *environment.Service) Option {
	return func(s *Server) { s.env = env }
}

// WithGatherer sets the registry served on /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		if g != nil {
			s.gatherer = g
		}
	}
}

// WithLogger sets the request logger.
func WithLogger(l core.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// New builds a Server around svc.
func New(svc *core.Service, opts ...Option) *Server {
	s := &Server{
		svc:      svc,
		gatherer: prometheus.DefaultGatherer,
		logger:   nopLogger{},
	}
	for _, opt := range opts {
		opt(s)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.handleError
	e.Use(middleware.Recover())
	e.Use(s.logRequests)

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))

	api := e.Group("/api")
	api.GET("/plants", s.listPlants)
	api.POST("/plants", s.createPlant)
	api.DELETE("/plants/:id", s.deletePlant)

	api.GET("/sites", s.listSites)
	api.POST("/sites", s.createSite)
	api.GET("/sites/:id", s.getSite)
	api.DELETE("/sites/:id", s.deleteSite)

	api.GET("/designs", s.listDesigns)
	api.POST("/designs", s.generateDesign)
	api.GET("/designs/:id", s.getDesign)
	api.DELETE("/designs/:id", s.deleteDesign)
	api.GET("/designs/:id/plot.png", s.plotDesign)
	api.GET("/designs/:id/download/:format", s.downloadDesign)
	api.POST("/designs/:id/exports", s.enqueueExport)
	api.GET("/exports/:id", s.getExport)

	api.GET("/environment", s.lookupEnvironment)

	s.echo = e
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.echo }

// Start listens on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	s.echo.Server.ReadHeaderTimeout = 10 * time.Second
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) logRequests(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		if err != nil {
			c.Error(err)
		}
		s.logger.Debug("http request",
			"method", c.Request().Method,
			"path", c.Path(),
			"status", c.Response().Status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return nil
	}
}

type errorBody struct {
	Error      string             `json:"error"`
	Message    string             `json:"message"`
	Violations []domain.Violation `json:"violations,omitempty"`
}

// statusFor maps service errors onto HTTP status codes and stable error codes.
func statusFor(err error) (int, errorBody) {
	var (
		notFound  core.ErrNotFound
		violation domain.RuleViolationError
		httpErr   *echo.HTTPError
		invalid   validator.ValidationErrors
	)
	switch {
	case errors.As(err, &httpErr):
		msg, ok := httpErr.Message.(string)
		if !ok {
			msg = http.StatusText(httpErr.Code)
		}
		return httpErr.Code, errorBody{Error: codeFor(httpErr.Code), Message: msg}
	case errors.As(err, &notFound):
		return http.StatusNotFound, errorBody{Error: "not_found", Message: err.Error()}
	case errors.Is(err, domain.ErrSiteInUse):
		return http.StatusConflict, errorBody{Error: "conflict", Message: err.Error()}
	case errors.Is(err, planner.ErrNoDesign):
		return http.StatusUnprocessableEntity, errorBody{Error: "no_design", Message: err.Error()}
	case errors.Is(err, planner.ErrInvalidOptions):
		return http.StatusBadRequest, errorBody{Error: "invalid_options", Message: err.Error()}
	case errors.As(err, &violation):
		return http.StatusUnprocessableEntity, errorBody{Error: "rule_violation", Message: err.Error(), Violations: violation.Result.Violations}
	case errors.As(err, &invalid):
		return http.StatusBadRequest, errorBody{Error: "invalid_request", Message: err.Error()}
	case errors.Is(err, environment.ErrInvalidLocation):
		return http.StatusBadRequest, errorBody{Error: "invalid_location", Message: err.Error()}
	case errors.Is(err, designs.ErrQueueFull):
		return http.StatusServiceUnavailable, errorBody{Error: "queue_full", Message: err.Error()}
	default:
		return http.StatusInternalServerError, errorBody{Error: "internal", Message: err.Error()}
	}
}

func codeFor(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "invalid_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusMethodNotAllowed:
		return "method_not_allowed"
	case http.StatusConflict:
		return "conflict"
	case http.StatusServiceUnavailable:
		return "unavailable"
	default:
		return "error"
	}
}

func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	status, body := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", c.Path(), "error", err)
	}
	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(status)
		return
	}
	_ = c.JSON(status, body)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
