// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Shivanand-hulikatti/activity-signup/internal/export"
	"github.com/Shivanand-hulikatti/activity-signup/internal/identity"
	"github.com/Shivanand-hulikatti/activity-signup/internal/model"
	"github.com/Shivanand-hulikatti/activity-signup/internal/service"
	"github.com/Shivanand-hulikatti/activity-signup/internal/store"
	"github.com/go-chi/chi/v5"
)

// ActivityHandler holds all HTTP handlers for the activity sign-up API.
type ActivityHandler struct {
	svc      *service.ActivityService
	resolver *identity.Resolver
	tokens   *identity.Tokens
	log      *slog.Logger
}

// NewActivityHandler constructs an ActivityHandler.
func NewActivityHandler(svc *service.ActivityService, resolver *identity.Resolver, tokens *identity.Tokens, log *slog.Logger) *ActivityHandler {
	return &ActivityHandler{svc: svc, resolver: resolver, tokens: tokens, log: log}
}

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// writeStoreError maps store outcomes to status codes. Capacity and
// duplicate rejections are ordinary feedback, not faults.
func (h *ActivityHandler) writeStoreError(w http.ResponseWriter, err error) {
	var verr *store.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, model.ErrorResponse{
			Error:  "some fields are invalid",
			Fields: verr.Fields,
		})
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "this activity no longer exists")
	case errors.Is(err, store.ErrAuthorization):
		writeError(w, http.StatusForbidden, "you can only manage your own organization's activities")
	case errors.Is(err, store.ErrDuplicate):
		writeError(w, http.StatusConflict, "you are already registered for this activity")
	case errors.Is(err, store.ErrCapacity):
		writeError(w, http.StatusConflict, "this activity is full")
	default:
		h.log.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func views(list []model.Activity) []model.ActivityView {
	out := make([]model.ActivityView, 0, len(list))
	for _, a := range list {
		out = append(out, model.NewActivityView(a))
	}
	return out
}

// ─── Session ──────────────────────────────────────────────────────────────────

// Login handles POST /session
// Resolves a credential to an actor and returns a session token.
func (h *ActivityHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	actor, err := h.resolver.Login(req.Credential)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	token, err := h.tokens.Issue(actor)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	if err := h.svc.RememberSession(r.Context(), actor); err != nil {
		h.writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, model.LoginResponse{Actor: actor, Token: token})
}

// CurrentSession handles GET /session
func (h *ActivityHandler) CurrentSession(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())
	writeJSON(w, http.StatusOK, model.SessionResponse{
		Actor:      actor,
		Remembered: h.svc.IsRemembered(actor),
	})
}

// Logout handles DELETE /session
// Only the remembered actor's own logout clears it.
func (h *ActivityHandler) Logout(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())
	if err := h.svc.ForgetSession(r.Context(), actor); err != nil {
		h.writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ─── Activities ───────────────────────────────────────────────────────────────

// ListActivities handles GET /activities?owner=&participant=
// Returns every activity, optionally narrowed to one organization's
// activities or to the ones a participant has joined. A participant may
// only ask about their own registrations.
func (h *ActivityHandler) ListActivities(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.ListFilter{
		OwnerCode:   q.Get("owner"),
		Participant: strings.TrimSpace(q.Get("participant")),
	}
	if filter.Participant != "" {
		actor, ok := ActorFrom(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "log in first")
			return
		}
		if !actor.IsParticipant() || !strings.EqualFold(actor.Identifier, filter.Participant) {
			writeError(w, http.StatusForbidden, "you can only list your own registrations")
			return
		}
	}
	writeJSON(w, http.StatusOK, views(h.svc.ListActivities(r.Context(), filter)))
}

// GetActivity handles GET /activities/{id}
func (h *ActivityHandler) GetActivity(w http.ResponseWriter, r *http.Request) {
	a, err := h.svc.GetActivity(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, model.NewActivityView(a))
}

// CreateActivity handles POST /activities
// The calling organization becomes the owner.
func (h *ActivityHandler) CreateActivity(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())

	var req model.ActivityFields
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	a, err := h.svc.CreateActivity(r.Context(), actor.Identifier, req)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, model.NewActivityView(a))
}

// UpdateActivity handles PUT /activities/{id}
func (h *ActivityHandler) UpdateActivity(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())

	var req model.ActivityFields
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	a, err := h.svc.UpdateActivity(r.Context(), chi.URLParam(r, "id"), actor.Identifier, req)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, model.NewActivityView(a))
}

// DeleteActivity handles DELETE /activities/{id}
func (h *ActivityHandler) DeleteActivity(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())

	if err := h.svc.DeleteActivity(r.Context(), chi.URLParam(r, "id"), actor.Identifier); err != nil {
		h.writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ─── Registrations ────────────────────────────────────────────────────────────

// Register handles POST /activities/{id}/registrations
// Registers the calling participant for the chosen date and time.
func (h *ActivityHandler) Register(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())

	var req model.RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	reg, err := h.svc.Register(r.Context(), chi.URLParam(r, "id"), actor.Identifier, req)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, reg)
}

// ListRegistrations handles GET /activities/{id}/registrations
// Returns the roster of an activity to its owning organization.
func (h *ActivityHandler) ListRegistrations(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())

	_, regs, err := h.svc.Roster(r.Context(), chi.URLParam(r, "id"), actor.Identifier)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, regs)
}

// ExportRoster handles GET /activities/{id}/roster.xlsx
func (h *ActivityHandler) ExportRoster(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())

	a, regs, err := h.svc.Roster(r.Context(), chi.URLParam(r, "id"), actor.Identifier)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	f, err := export.Roster(regs)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", export.ExcelContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="roster-%s.xlsx"`, a.ID))
	if err := f.Write(w); err != nil {
		h.log.Error("write roster", "activity_id", a.ID, "error", err)
	}
}

// ─── Health check ─────────────────────────────────────────────────────────────

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
