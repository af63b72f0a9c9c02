// Package service wraps the activity store for concurrent callers: it
// serializes operations, persists after every successful mutation, and
// remembers the last logged-in actor.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/Shivanand-hulikatti/activity-signup/internal/model"
	"github.com/Shivanand-hulikatti/activity-signup/internal/store"
)

// errUnchanged lets a mutate callback skip the save.
var errUnchanged = errors.New("unchanged")

// SnapshotRepository is the persistence adapter.
type SnapshotRepository interface {
	Load(ctx context.Context) (model.Snapshot, error)
	Save(ctx context.Context, snap model.Snapshot) error
}

// ActivityService orchestrates store operations and persistence.
//
// The store's check-then-append sequence is only safe with one writer, so
// every call holds mu for its whole duration.
type ActivityService struct {
	mu      sync.Mutex
	store   *store.Store
	session *model.Actor
	repo    SnapshotRepository
	log     *slog.Logger
	opts    []store.Option
}

// NewActivityService loads the persisted snapshot once. An unreadable
// snapshot is logged and replaced by an empty store.
func NewActivityService(ctx context.Context, repo SnapshotRepository, log *slog.Logger, opts ...store.Option) *ActivityService {
	snap, err := repo.Load(ctx)
	if err != nil {
		log.Error("snapshot unreadable, starting with an empty store", "error", err)
		snap = model.Snapshot{Version: model.SnapshotVersion}
	}

	s := &ActivityService{
		store: store.New(snap, opts...),
		repo:  repo,
		log:   log,
		opts:  opts,
	}
	if snap.Session != nil {
		actor := *snap.Session
		s.session = &actor
	}
	log.Info("store loaded", "activities", s.store.Len())
	return s
}

// CreateActivity validates the request and stores a new activity owned by ownerCode.
func (s *ActivityService) CreateActivity(ctx context.Context, ownerCode string, fields model.ActivityFields) (model.Activity, error) {
	var created model.Activity
	err := s.mutate(ctx, "create activity", func(st *store.Store) error {
		a, err := st.CreateActivity(ownerCode, fields)
		created = a
		return err
	})
	if err != nil {
		return model.Activity{}, err
	}
	s.log.Info("activity created", "id", created.ID, "owner", ownerCode, "title", created.Title)
	return created, nil
}

// UpdateActivity edits an activity owned by ownerCode.
func (s *ActivityService) UpdateActivity(ctx context.Context, id, ownerCode string, fields model.ActivityFields) (model.Activity, error) {
	var updated model.Activity
	err := s.mutate(ctx, "update activity", func(st *store.Store) error {
		a, err := st.UpdateActivity(id, ownerCode, fields)
		updated = a
		return err
	})
	if err != nil {
		return model.Activity{}, err
	}
	s.log.Info("activity updated", "id", id, "owner", ownerCode)
	return updated, nil
}

// DeleteActivity removes an activity owned by ownerCode and its registrations.
func (s *ActivityService) DeleteActivity(ctx context.Context, id, ownerCode string) error {
	err := s.mutate(ctx, "delete activity", func(st *store.Store) error {
		return st.DeleteActivity(id, ownerCode)
	})
	if err != nil {
		return err
	}
	s.log.Info("activity deleted", "id", id, "owner", ownerCode)
	return nil
}

// Register claims a slot in an activity for participant.
func (s *ActivityService) Register(ctx context.Context, activityID, participant string, req model.RegisterRequest) (model.Registration, error) {
	var reg model.Registration
	err := s.mutate(ctx, "register", func(st *store.Store) error {
		r, err := st.Register(activityID, participant, req.Date, req.Time)
		reg = r
		return err
	})
	if err != nil {
		return model.Registration{}, err
	}
	s.log.Info("registration created", "activity_id", activityID, "participant", reg.ParticipantIdentifier)
	return reg, nil
}

// ListActivities returns a snapshot of the activities matching filter.
func (s *ActivityService) ListActivities(ctx context.Context, filter store.ListFilter) []model.Activity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.ListActivities(filter)
}

// GetActivity returns a single activity.
func (s *ActivityService) GetActivity(ctx context.Context, id string) (model.Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Activity(id)
}

// Roster returns the registrations of an activity owned by ownerCode.
func (s *ActivityService) Roster(ctx context.Context, id, ownerCode string) (model.Activity, []model.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	regs, err := s.store.Roster(id, ownerCode)
	if err != nil {
		return model.Activity{}, nil, err
	}
	a, err := s.store.Activity(id)
	if err != nil {
		return model.Activity{}, nil, err
	}
	return a, regs, nil
}

// RememberSession records actor as the last logged-in actor.
func (s *ActivityService) RememberSession(ctx context.Context, actor model.Actor) error {
	return s.mutate(ctx, "remember session", func(*store.Store) error {
		s.session = &actor
		return nil
	})
}

// ForgetSession clears the remembered actor when it is actor. Logging out
// anyone else leaves it, and nothing is saved.
func (s *ActivityService) ForgetSession(ctx context.Context, actor model.Actor) error {
	return s.mutate(ctx, "forget session", func(*store.Store) error {
		if s.session == nil || !sameActor(*s.session, actor) {
			return errUnchanged
		}
		s.session = nil
		return nil
	})
}

// IsRemembered reports whether actor is the remembered session actor.
func (s *ActivityService) IsRemembered(actor model.Actor) bool {
	remembered, ok := s.Session()
	return ok && sameActor(remembered, actor)
}

func sameActor(a, b model.Actor) bool {
	return a.Role == b.Role && strings.EqualFold(a.Identifier, b.Identifier)
}

// Session returns the remembered actor, if any.
func (s *ActivityService) Session() (model.Actor, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return model.Actor{}, false
	}
	return *s.session, true
}

// mutate runs fn under the lock and persists the result. If saving fails
// the in-memory state is restored, so the store never runs ahead of its
// persisted blob.
func (s *ActivityService) mutate(ctx context.Context, op string, fn func(*store.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := s.snapshot()
	if err := fn(s.store); err != nil {
		if errors.Is(err, errUnchanged) {
			return nil
		}
		return err
	}
	if err := s.repo.Save(ctx, s.snapshot()); err != nil {
		s.store = store.New(before, s.opts...)
		s.session = before.Session
		s.log.Error("persist failed, change rolled back", "op", op, "error", err)
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *ActivityService) snapshot() model.Snapshot {
	snap := s.store.Snapshot()
	if s.session != nil {
		actor := *s.session
		snap.Session = &actor
	}
	return snap
}
