package handler

import (
	"log/slog"
	"net/http"

	"github.com/Shivanand-hulikatti/activity-signup/internal/identity"
	"github.com/Shivanand-hulikatti/activity-signup/internal/model"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// NewRouter builds the API route table. Reads are public; writes need a
// session token of the matching role.
func NewRouter(h *ActivityHandler, tokens *identity.Tokens, log *slog.Logger) http.Handler {
	r := chi.NewRouter()

	// Global middleware stack
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(Logger(log))
	r.Use(CORS)
	r.Use(Authenticate(tokens))

	r.Get("/health", HealthCheck)

	r.Route("/session", func(r chi.Router) {
		r.Post("/", h.Login)
		r.With(RequireActor).Get("/", h.CurrentSession)
		r.With(RequireActor).Delete("/", h.Logout)
	})

	r.Route("/activities", func(r chi.Router) {
		r.Get("/", h.ListActivities)
		r.Get("/{id}", h.GetActivity)

		r.Group(func(r chi.Router) {
			r.Use(RequireRole(model.RoleOrganization))
			r.Post("/", h.CreateActivity)
			r.Put("/{id}", h.UpdateActivity)
			r.Delete("/{id}", h.DeleteActivity)
			r.Get("/{id}/registrations", h.ListRegistrations)
			r.Get("/{id}/roster.xlsx", h.ExportRoster)
		})

		r.With(RequireRole(model.RoleParticipant)).Post("/{id}/registrations", h.Register)
	})

	return r
}
