package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/glowdesk/glowdesk/internal/admin"
	"github.com/glowdesk/glowdesk/internal/appointments"
	"github.com/glowdesk/glowdesk/internal/auth"
	"github.com/glowdesk/glowdesk/internal/observability"
	"github.com/glowdesk/glowdesk/internal/salons"
	"github.com/glowdesk/glowdesk/internal/shared"
	"github.com/glowdesk/glowdesk/internal/users"
	"github.com/glowdesk/glowdesk/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager

	AuthHandler         *auth.Handler
	SalonsHandler       *salons.Handler
	AppointmentsHandler *appointments.Handler
	UsersHandler        *users.Handler
	AdminHandler        *admin.Handler
	JobHandler          *jobs.Handler
	Metrics             *observability.Metrics
}

// NewRouter constructs the chi.Router with application defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/auth", params.AuthHandler.MountRoutes)
	if params.SalonsHandler != nil {
		r.Route("/salons", params.SalonsHandler.MountRoutes)
	}
	if params.AppointmentsHandler != nil {
		r.Route("/appointments", params.AppointmentsHandler.MountRoutes)
	}
	if params.UsersHandler != nil {
		r.Route("/users", params.UsersHandler.MountRoutes)
	}
	if params.AdminHandler != nil {
		r.Route("/admin", params.AdminHandler.MountRoutes)
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
