package transport

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sebamomann/anmeldesystem-backend-sub000/internal/config"
	"github.com/sebamomann/anmeldesystem-backend-sub000/internal/service"
)

// Dependencies holds all injected dependencies for the HTTP transport layer.
type Dependencies struct {
	Config       *config.Config
	Appointments *service.AppointmentService
	Enrollments  *service.EnrollmentService

	// Authenticate verifies Authorization headers when present. Nil means
	// every request proceeds unauthenticated.
	Authenticate func(http.Handler) http.Handler

	// Metrics wraps handlers with request metric recording. Optional.
	Metrics func(http.Handler) http.Handler

	MetricsHandler http.Handler
	HealthHandler  http.HandlerFunc
	ReadyHandler   http.HandlerFunc
}

// NewRouter creates a chi.Router with the full middleware pipeline and all
// route registrations. Health, readiness, and metrics endpoints bypass the
// authentication middleware.
func NewRouter(deps Dependencies) chi.Router {
	r := chi.NewRouter()

	r.Use(Recovery)
	r.Use(CORS(deps.Config.Server.CORS))
	r.Use(RequestID)
	r.Use(SecurityHeaders)

	// Public routes.
	r.Get("/health", orDefault(deps.HealthHandler, handleHealth))
	r.Get("/ready", orDefault(deps.ReadyHandler, handleHealth))
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, deps.Config.Observability.Metrics.Path, deps.MetricsHandler)
	}

	auth := deps.Authenticate
	if auth == nil {
		auth = func(next http.Handler) http.Handler { return next }
	}
	metrics := deps.Metrics
	if metrics == nil {
		metrics = func(next http.Handler) http.Handler { return next }
	}

	r.Group(func(r chi.Router) {
		r.Use(auth)
		r.Use(BuildIdentity)
		r.Use(HandlerTimeout(deps.Config.Server.HandlerTimeout))
		r.Use(RequestLogging)
		r.Use(metrics)

		r.Post("/appointments", handleCreateAppointment(deps.Appointments))
		r.Get("/appointments", handleRelevantAppointments(deps.Appointments))
		r.Get("/appointments/{link}", handleGetAppointment(deps.Appointments))
		r.Put("/appointments/{link}", handleUpdateAppointment(deps.Appointments))

		r.Post("/appointments/{link}/administrators", handleAddAdministrator(deps.Appointments))
		r.Delete("/appointments/{link}/administrators/{username}", handleRemoveAdministrator(deps.Appointments))

		r.Post("/appointments/{link}/pin", handlePinAppointment(deps.Appointments, true))
		r.Delete("/appointments/{link}/pin", handlePinAppointment(deps.Appointments, false))

		r.Post("/appointments/{link}/enrollments", handleCreateEnrollment(deps.Enrollments))
		r.Put("/appointments/{link}/enrollments/{enrollmentId}", handleUpdateEnrollment(deps.Enrollments))
		r.Delete("/appointments/{link}/enrollments/{enrollmentId}", handleDeleteEnrollment(deps.Enrollments))
	})

	return r
}

func orDefault(h, fallback http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return fallback
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
