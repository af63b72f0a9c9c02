package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Shivanand-hulikatti/activity-signup/internal/identity"
	"github.com/Shivanand-hulikatti/activity-signup/internal/model"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

type ctxKey int

const actorKey ctxKey = iota

// ActorFrom returns the actor attached by Authenticate, if any.
func ActorFrom(ctx context.Context) (model.Actor, bool) {
	actor, ok := ctx.Value(actorKey).(model.Actor)
	return actor, ok
}

// Authenticate resolves a bearer token into the request's actor. Requests
// without a token pass through anonymous; a bad token is rejected.
func Authenticate(tokens *identity.Tokens) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok {
				writeError(w, http.StatusUnauthorized, "authorization header must be a bearer token")
				return
			}
			actor, err := tokens.Parse(strings.TrimSpace(token))
			if err != nil {
				writeError(w, http.StatusUnauthorized, "session expired or invalid, please log in again")
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), actorKey, actor)))
		})
	}
}

var roleDenied = map[model.Role]string{
	model.RoleOrganization: "only an organization may do this",
	model.RoleParticipant:  "only a participant may do this",
}

// RequireActor rejects anonymous requests with 401.
func RequireActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := ActorFrom(r.Context()); !ok {
			writeError(w, http.StatusUnauthorized, "log in first")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole rejects requests whose actor is missing (401) or has another role (403).
func RequireRole(role model.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return RequireActor(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, _ := ActorFrom(r.Context())
			if actor.Role != role {
				writeError(w, http.StatusForbidden, roleDenied[role])
				return
			}
			next.ServeHTTP(w, r)
		}))
	}
}

// Logger writes one structured access log line per request.
func Logger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			attrs := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"latency", time.Since(start),
				"request_id", chimiddleware.GetReqID(r.Context()),
				"client_ip", r.RemoteAddr,
			}
			switch {
			case ww.Status() >= http.StatusInternalServerError:
				log.Error("request", attrs...)
			case ww.Status() >= http.StatusBadRequest:
				log.Warn("request", attrs...)
			default:
				log.Info("request", attrs...)
			}
		})
	}
}

// CORS allows any origin; the API carries no cookies.
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
