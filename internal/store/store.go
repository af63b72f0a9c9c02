// Package store holds activities with their nested registrations and
// provides the only operations allowed to mutate them. Every operation
// validates before it mutates, so a rejected call leaves the store as it was.
//
// A Store assumes a single writer. Callers that share one across
// goroutines must serialize access themselves.
package store

import (
	"slices"
	"strings"
	"time"

	"github.com/Shivanand-hulikatti/activity-signup/internal/model"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Store owns the full set of activities in insertion order.
type Store struct {
	activities []model.Activity
	validate   *validator.Validate
	now        func() time.Time
	newID      func() string
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator overrides how activity ids are assigned.
func WithIDGenerator(newID func() string) Option {
	return func(s *Store) { s.newID = newID }
}

// New constructs a Store seeded with the activities of snap.
// The snapshot is copied; later changes to it do not affect the store.
func New(snap model.Snapshot, opts ...Option) *Store {
	s := &Store{
		validate: newValidator(),
		now:      func() time.Time { return time.Now().UTC() },
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.activities = make([]model.Activity, 0, len(snap.Activities))
	for _, a := range snap.Activities {
		a = a.Clone()
		if a.Registrations == nil {
			a.Registrations = []model.Registration{}
		}
		s.activities = append(s.activities, a)
	}
	return s
}

// ListFilter narrows ListActivities. Zero fields match everything.
type ListFilter struct {
	// OwnerCode keeps only activities owned by this organization.
	OwnerCode string
	// Participant keeps only activities this participant has joined.
	Participant string
}

func (f ListFilter) match(a *model.Activity) bool {
	if owner := strings.TrimSpace(f.OwnerCode); owner != "" && !strings.EqualFold(a.OwnerCode, owner) {
		return false
	}
	if f.Participant != "" && !a.HasParticipant(f.Participant) {
		return false
	}
	return true
}

// CreateActivity validates fields and stores a new activity owned by ownerCode.
func (s *Store) CreateActivity(ownerCode string, fields model.ActivityFields) (model.Activity, error) {
	ownerCode = strings.TrimSpace(ownerCode)
	if err := s.validateFields(ownerCode, &fields); err != nil {
		return model.Activity{}, err
	}

	now := s.now()
	a := model.Activity{
		ID:            s.newID(),
		OwnerCode:     ownerCode,
		Registrations: []model.Registration{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	applyFields(&a, fields)
	s.activities = append(s.activities, a)
	return a.Clone(), nil
}

// UpdateActivity replaces the editable fields of an activity owned by ownerCode.
// The id, owner, creation time and registrations carry over unchanged.
func (s *Store) UpdateActivity(id, ownerCode string, fields model.ActivityFields) (model.Activity, error) {
	i, err := s.owned(id, ownerCode)
	if err != nil {
		return model.Activity{}, err
	}
	if err := s.validateFields(ownerCode, &fields); err != nil {
		return model.Activity{}, err
	}

	a := &s.activities[i]
	applyFields(a, fields)
	a.UpdatedAt = s.now()
	return a.Clone(), nil
}

// DeleteActivity removes an activity owned by ownerCode together with all
// of its registrations.
func (s *Store) DeleteActivity(id, ownerCode string) error {
	i, err := s.owned(id, ownerCode)
	if err != nil {
		return err
	}
	s.activities = slices.Delete(s.activities, i, i+1)
	return nil
}

// Register claims one slot of an activity for participant.
//
// Checks run in order: existence, date and time containment, duplicate,
// capacity. A participant already on the roster learns that even when the
// activity has since filled.
func (s *Store) Register(activityID, participant, date, clock string) (model.Registration, error) {
	i := s.find(activityID)
	if i < 0 {
		return model.Registration{}, ErrNotFound
	}
	a := &s.activities[i]

	in := registrationInput{Participant: participant, Date: date, Time: clock}
	if err := s.validateSlot(a, &in); err != nil {
		return model.Registration{}, err
	}
	if a.HasParticipant(in.Participant) {
		return model.Registration{}, ErrDuplicate
	}
	if a.IsFull() {
		return model.Registration{}, ErrCapacity
	}

	reg := model.Registration{
		ActivityID:            a.ID,
		ParticipantIdentifier: in.Participant,
		Date:                  in.Date,
		Time:                  in.Time,
		CreatedAt:             s.now(),
	}
	a.Registrations = append(a.Registrations, reg)
	return reg, nil
}

// Activity returns a copy of a single activity.
func (s *Store) Activity(id string) (model.Activity, error) {
	i := s.find(id)
	if i < 0 {
		return model.Activity{}, ErrNotFound
	}
	return s.activities[i].Clone(), nil
}

// Roster returns the registrations of an activity owned by ownerCode,
// in registration order.
func (s *Store) Roster(id, ownerCode string) ([]model.Registration, error) {
	i, err := s.owned(id, ownerCode)
	if err != nil {
		return nil, err
	}
	return slices.Clone(s.activities[i].Registrations), nil
}

// ListActivities returns copies of the activities matching filter in
// insertion order. The result is a snapshot, not a live view.
func (s *Store) ListActivities(filter ListFilter) []model.Activity {
	out := make([]model.Activity, 0, len(s.activities))
	for i := range s.activities {
		if filter.match(&s.activities[i]) {
			out = append(out, s.activities[i].Clone())
		}
	}
	return out
}

// Snapshot returns a deep copy of every activity, ready for persisting.
func (s *Store) Snapshot() model.Snapshot {
	snap := model.Snapshot{
		Version:    model.SnapshotVersion,
		Activities: make([]model.Activity, len(s.activities)),
	}
	for i, a := range s.activities {
		snap.Activities[i] = a.Clone()
	}
	return snap
}

// Len returns the number of stored activities.
func (s *Store) Len() int {
	return len(s.activities)
}

func (s *Store) find(id string) int {
	return slices.IndexFunc(s.activities, func(a model.Activity) bool {
		return a.ID == id
	})
}

// owned locates id and checks that ownerCode owns it.
func (s *Store) owned(id, ownerCode string) (int, error) {
	i := s.find(id)
	if i < 0 {
		return -1, ErrNotFound
	}
	if s.activities[i].OwnerCode != strings.TrimSpace(ownerCode) {
		return -1, ErrAuthorization
	}
	return i, nil
}

func applyFields(a *model.Activity, f model.ActivityFields) {
	a.Title = f.Title
	a.Description = f.Description
	a.Location = f.Location
	a.DateFrom = f.DateFrom
	a.DateTo = f.DateTo
	a.TimeFrom = f.TimeFrom
	a.TimeTo = f.TimeTo
	a.MinAge = nil
	if f.MinAge != nil {
		age := *f.MinAge
		a.MinAge = &age
	}
	a.MaxParticipants = *f.MaxParticipants
}
