// Package web serves the dashboard API: a JSON surface over the task
// service, described by an OpenAPI document.
package web

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/edgard/remindbot/internal/config"
	apperr "github.com/edgard/remindbot/internal/errors"
	"github.com/edgard/remindbot/internal/logger"
	"github.com/edgard/remindbot/internal/reminder"
)

// DefaultBasePath prefixes every API route.
const DefaultBasePath = "/api"

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Config for the HTTP API handler.
type Config struct {
	Service  *reminder.Service
	Health   Pinger
	Logger   *slog.Logger
	BasePath string
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"INVALID_INPUT"`
	Message string         `json:"message" example:"number of reminders must be between 1 and 10"`
	Details map[string]any `json:"details,omitempty"`
}

// apiError is the error envelope every failing call answers with.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

var installErrorsOnce sync.Once

// installErrors routes huma's own errors (bad JSON, schema violations)
// through the envelope. huma keeps these hooks in package variables.
func installErrors() {
	installErrorsOnce.Do(func() {
		huma.DefaultArrayNullable = false
		huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
			return newAPIError(schemaStatus(status), "", msg, errorDetails(errs))
		}
		huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
			return newAPIError(schemaStatus(status), "", msg, errorDetails(errs))
		}
	})
}

// New returns an HTTP handler exposing the dashboard API.
func New(cfg Config) http.Handler {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = DefaultBasePath
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "web")

	installErrors()

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(logger.HTTPMiddleware(log))

	hcfg := huma.DefaultConfig("Reminder Bot API", "1.0.0")
	hcfg.OpenAPIPath = "/openapi"
	hcfg.DocsPath = ""
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerHealth(group, cfg.Health)
	registerTasks(group, cfg.Service)
	registerPreview(group, cfg.Service)

	return router
}

// NewHTTPServer wraps handler in a server configured from cfg.
func NewHTTPServer(cfg config.HTTPConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       2 * time.Minute,
	}
}

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{
		status: status,
		Body: apiErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

// handleError maps coded application errors to statuses. Only input and
// lookup errors expose their message; everything else is an internal error.
func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	code := apperr.Code(err)
	switch code {
	case apperr.CodeInvalidInput:
		return newAPIError(http.StatusBadRequest, code, apperr.UserMessage(err), nil)
	case apperr.CodeNotFound:
		return newAPIError(http.StatusNotFound, code, apperr.UserMessage(err), nil)
	default:
		return newAPIError(http.StatusInternalServerError, code, "internal error", nil)
	}
}

// schemaStatus turns huma's 422 validation failures into 400s.
func schemaStatus(status int) int {
	if status == http.StatusUnprocessableEntity {
		return http.StatusBadRequest
	}
	return status
}

func errorDetails(errs []error) map[string]any {
	if len(errs) == 0 {
		return nil
	}
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		if e != nil {
			msgs = append(msgs, e.Error())
		}
	}
	return map[string]any{"errors": msgs}
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return apperr.CodeInvalidInput
	case http.StatusNotFound:
		return apperr.CodeNotFound
	default:
		return apperr.CodeUnknown
	}
}
