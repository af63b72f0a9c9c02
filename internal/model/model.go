// Package model defines the core domain types for the activity sign-up system.
package model

import (
	"strings"
	"time"
)

// Date and time-of-day layouts used by every activity window field.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// Role distinguishes the two kinds of actor.
type Role string

const (
	RoleParticipant  Role = "participant"
	RoleOrganization Role = "organization"
)

// Actor is a resolved identity claim: an organization code or a participant email.
type Actor struct {
	Role       Role   `json:"role"`
	Identifier string `json:"identifier"`
}

// IsOrganization reports whether the actor may own activities.
func (a Actor) IsOrganization() bool { return a.Role == RoleOrganization }

// IsParticipant reports whether the actor may register for activities.
func (a Actor) IsParticipant() bool { return a.Role == RoleParticipant }

// State is the derived capacity state of an activity. It is never stored.
type State string

const (
	StateOpen State = "open"
	StateFull State = "full"
)

// Activity is an organization-posted opportunity with a capacity and a
// date/time validity window. Registrations are owned by the activity and
// kept in registration order.
type Activity struct {
	ID              string         `json:"id"`
	OwnerCode       string         `json:"owner_code"`
	Title           string         `json:"title"`
	Description     string         `json:"description"`
	Location        string         `json:"location"`
	DateFrom        string         `json:"date_from"`
	DateTo          string         `json:"date_to"`
	TimeFrom        string         `json:"time_from"`
	TimeTo          string         `json:"time_to"`
	MinAge          *int           `json:"min_age,omitempty"`
	MaxParticipants int            `json:"max_participants"`
	Registrations   []Registration `json:"registrations"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// Registered returns the number of registrations taken.
func (a *Activity) Registered() int {
	return len(a.Registrations)
}

// Remaining returns the number of available slots.
func (a *Activity) Remaining() int {
	if r := a.MaxParticipants - len(a.Registrations); r > 0 {
		return r
	}
	return 0
}

// IsFull returns true when no slots remain.
func (a *Activity) IsFull() bool {
	return len(a.Registrations) >= a.MaxParticipants
}

// State returns StateFull once capacity is reached, StateOpen otherwise.
func (a *Activity) State() State {
	if a.IsFull() {
		return StateFull
	}
	return StateOpen
}

// HasParticipant reports whether identifier already holds a registration.
// Identifiers compare case-insensitively.
func (a *Activity) HasParticipant(identifier string) bool {
	identifier = strings.TrimSpace(identifier)
	for _, r := range a.Registrations {
		if strings.EqualFold(r.ParticipantIdentifier, identifier) {
			return true
		}
	}
	return false
}

// Clone returns a deep copy that shares no memory with a.
func (a Activity) Clone() Activity {
	out := a
	if a.MinAge != nil {
		age := *a.MinAge
		out.MinAge = &age
	}
	out.Registrations = make([]Registration, len(a.Registrations))
	copy(out.Registrations, a.Registrations)
	return out
}

// Registration is one participant's claim on one slot within an activity's window.
type Registration struct {
	ActivityID            string    `json:"activity_id"`
	ParticipantIdentifier string    `json:"participant_identifier"`
	Date                  string    `json:"date"`
	Time                  string    `json:"time"`
	CreatedAt             time.Time `json:"created_at"`
}

// ActivityFields is the payload for creating or editing an activity.
// MaxParticipants is a pointer so a missing value is distinguishable from zero.
type ActivityFields struct {
	Title           string `json:"title" validate:"required"`
	Description     string `json:"description" validate:"required"`
	Location        string `json:"location" validate:"required,http_url"`
	DateFrom        string `json:"date_from" validate:"required,datetime=2006-01-02"`
	DateTo          string `json:"date_to" validate:"required,datetime=2006-01-02"`
	TimeFrom        string `json:"time_from" validate:"required,datetime=15:04"`
	TimeTo          string `json:"time_to" validate:"required,datetime=15:04"`
	MinAge          *int   `json:"min_age" validate:"omitempty,min=0,max=120"`
	MaxParticipants *int   `json:"max_participants" validate:"required,min=1"`
}

// RegisterRequest is the payload for registering for an activity.
type RegisterRequest struct {
	Date string `json:"date"`
	Time string `json:"time"`
}

// LoginRequest carries a login credential: an email or an organization code.
type LoginRequest struct {
	Credential string `json:"credential"`
}

// LoginResponse returns the resolved actor and its session token.
type LoginResponse struct {
	Actor Actor  `json:"actor"`
	Token string `json:"token"`
}

// ActivityView is the public face of an activity: its fields and derived
// capacity state, without the roster. Registrations are only served by the
// owner's roster endpoints.
type ActivityView struct {
	ID              string    `json:"id"`
	OwnerCode       string    `json:"owner_code"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	Location        string    `json:"location"`
	DateFrom        string    `json:"date_from"`
	DateTo          string    `json:"date_to"`
	TimeFrom        string    `json:"time_from"`
	TimeTo          string    `json:"time_to"`
	MinAge          *int      `json:"min_age,omitempty"`
	MaxParticipants int       `json:"max_participants"`
	State           State     `json:"state"`
	Registered      int       `json:"registered"`
	Remaining       int       `json:"remaining"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// NewActivityView derives the public view of a.
func NewActivityView(a Activity) ActivityView {
	return ActivityView{
		ID:              a.ID,
		OwnerCode:       a.OwnerCode,
		Title:           a.Title,
		Description:     a.Description,
		Location:        a.Location,
		DateFrom:        a.DateFrom,
		DateTo:          a.DateTo,
		TimeFrom:        a.TimeFrom,
		TimeTo:          a.TimeTo,
		MinAge:          a.MinAge,
		MaxParticipants: a.MaxParticipants,
		State:           a.State(),
		Registered:      a.Registered(),
		Remaining:       a.Remaining(),
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
	}
}

// SessionResponse describes the caller's session. Remembered is true when
// the caller is also the last actor who logged in on this server.
type SessionResponse struct {
	Actor      Actor `json:"actor"`
	Remembered bool  `json:"remembered"`
}

// FieldError describes a single rejected input field.
type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error  string       `json:"error"`
	Fields []FieldError `json:"fields,omitempty"`
}

// SnapshotVersion is the current persisted snapshot format.
const SnapshotVersion = 1

// Snapshot is the full persisted state: every activity with its nested
// registrations, plus the remembered session actor if any.
type Snapshot struct {
	Version    int        `json:"version"`
	Activities []Activity `json:"activities"`
	Session    *Actor     `json:"session,omitempty"`
}

// Clone returns a deep copy of s.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{Version: s.Version}
	out.Activities = make([]Activity, len(s.Activities))
	for i, a := range s.Activities {
		out.Activities[i] = a.Clone()
	}
	if s.Session != nil {
		actor := *s.Session
		out.Session = &actor
	}
	return out
}
