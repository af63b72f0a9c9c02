package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/Shivanand-hulikatti/activity-signup/internal/logger"
	"github.com/Shivanand-hulikatti/activity-signup/internal/model"
	"github.com/Shivanand-hulikatti/activity-signup/internal/repository"
	"github.com/Shivanand-hulikatti/activity-signup/internal/store"
)

// --- MOCKS ---

// flakyRepo wraps a real repository and fails saves on demand.
type flakyRepo struct {
	inner   *repository.SnapshotRepository
	saveErr error
	saves   int
}

func (f *flakyRepo) Load(ctx context.Context) (model.Snapshot, error) {
	return f.inner.Load(ctx)
}

func (f *flakyRepo) Save(ctx context.Context, snap model.Snapshot) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saves++
	return f.inner.Save(ctx, snap)
}

func newRepo() *flakyRepo {
	return &flakyRepo{inner: repository.NewSnapshotRepository(repository.NewMemoryKV(), "")}
}

func intPtr(v int) *int { return &v }

func fields(capacity int) model.ActivityFields {
	return model.ActivityFields{
		Title:           "Food bank shift",
		Description:     "Sorting donations",
		Location:        "https://maps.google.com/?q=food+bank",
		DateFrom:        "2024-06-01",
		DateTo:          "2024-06-10",
		TimeFrom:        "09:00",
		TimeTo:          "11:00",
		MaxParticipants: intPtr(capacity),
	}
}

var slot = model.RegisterRequest{Date: "2024-06-05", Time: "10:00"}

// --- TESTS ---

func TestService_PersistsEveryMutation(t *testing.T) {
	ctx := context.Background()
	repo := newRepo()
	svc := NewActivityService(ctx, repo, logger.Discard())

	a, err := svc.CreateActivity(ctx, "ORG-AAA", fields(2))
	if err != nil {
		t.Fatalf("CreateActivity: %v", err)
	}
	if _, err := svc.Register(ctx, a.ID, "a@gmail.com", slot); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := svc.UpdateActivity(ctx, a.ID, "ORG-AAA", fields(5)); err != nil {
		t.Fatalf("UpdateActivity: %v", err)
	}
	if repo.saves != 3 {
		t.Fatalf("expected 3 saves, got %d", repo.saves)
	}

	// A fresh service over the same blob sees the same state.
	reloaded := NewActivityService(ctx, repo, logger.Discard())
	got, err := reloaded.GetActivity(ctx, a.ID)
	if err != nil {
		t.Fatalf("GetActivity after reload: %v", err)
	}
	if got.MaxParticipants != 5 || got.Registered() != 1 {
		t.Fatalf("reloaded state mismatch: %+v", got)
	}
}

func TestService_RejectedMutationNotSaved(t *testing.T) {
	ctx := context.Background()
	repo := newRepo()
	svc := NewActivityService(ctx, repo, logger.Discard())

	bad := fields(2)
	bad.DateFrom, bad.DateTo = "2024-06-10", "2024-06-01"
	if _, err := svc.CreateActivity(ctx, "ORG-AAA", bad); !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if repo.saves != 0 {
		t.Fatalf("rejected mutation was saved")
	}
}

func TestService_RollsBackOnSaveFailure(t *testing.T) {
	ctx := context.Background()
	repo := newRepo()
	svc := NewActivityService(ctx, repo, logger.Discard())

	a, err := svc.CreateActivity(ctx, "ORG-AAA", fields(1))
	if err != nil {
		t.Fatal(err)
	}

	boom := errors.New("disk full")
	repo.saveErr = boom

	if _, err := svc.Register(ctx, a.ID, "a@gmail.com", slot); !errors.Is(err, boom) {
		t.Fatalf("expected save error, got %v", err)
	}
	got, _ := svc.GetActivity(ctx, a.ID)
	if got.Registered() != 0 {
		t.Fatalf("registration kept despite failed save")
	}
	if err := svc.DeleteActivity(ctx, a.ID, "ORG-AAA"); !errors.Is(err, boom) {
		t.Fatalf("expected save error, got %v", err)
	}
	if _, err := svc.GetActivity(ctx, a.ID); err != nil {
		t.Fatalf("activity deleted despite failed save: %v", err)
	}

	repo.saveErr = nil
	if _, err := svc.Register(ctx, a.ID, "a@gmail.com", slot); err != nil {
		t.Fatalf("Register after recovery: %v", err)
	}
}

type corruptRepo struct{ saved int }

func (c *corruptRepo) Load(context.Context) (model.Snapshot, error) {
	return model.Snapshot{}, repository.ErrUnsupportedVersion
}

func (c *corruptRepo) Save(context.Context, model.Snapshot) error {
	c.saved++
	return nil
}

func TestService_FailsClosedOnCorruptSnapshot(t *testing.T) {
	ctx := context.Background()
	repo := &corruptRepo{}
	svc := NewActivityService(ctx, repo, logger.Discard())

	if n := len(svc.ListActivities(ctx, store.ListFilter{})); n != 0 {
		t.Fatalf("expected empty store, got %d activities", n)
	}
	if _, err := svc.CreateActivity(ctx, "ORG-AAA", fields(1)); err != nil {
		t.Fatalf("store unusable after corrupt load: %v", err)
	}
	if repo.saved != 1 {
		t.Fatalf("expected save after mutation, got %d", repo.saved)
	}
}

func TestService_ConcurrentRegistrationsRespectCapacity(t *testing.T) {
	ctx := context.Background()
	svc := NewActivityService(ctx, newRepo(), logger.Discard())
	a, err := svc.CreateActivity(ctx, "ORG-AAA", fields(10))
	if err != nil {
		t.Fatal(err)
	}

	const attempts = 50
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		full      int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.Register(ctx, a.ID, fmt.Sprintf("user%d@gmail.com", i), slot)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, store.ErrCapacity):
				full++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if succeeded != 10 || full != attempts-10 {
		t.Fatalf("expected 10 successes and %d full, got %d and %d", attempts-10, succeeded, full)
	}
	got, _ := svc.GetActivity(ctx, a.ID)
	if got.Registered() != 10 {
		t.Fatalf("expected 10 registrations, got %d", got.Registered())
	}
}

func TestService_Session(t *testing.T) {
	ctx := context.Background()
	repo := newRepo()
	svc := NewActivityService(ctx, repo, logger.Discard())

	if _, ok := svc.Session(); ok {
		t.Fatalf("expected no session")
	}
	actor := model.Actor{Role: model.RoleOrganization, Identifier: "ORG-AAA"}
	if err := svc.RememberSession(ctx, actor); err != nil {
		t.Fatal(err)
	}

	reloaded := NewActivityService(ctx, repo, logger.Discard())
	if got, ok := reloaded.Session(); !ok || got != actor {
		t.Fatalf("session not persisted: %+v %v", got, ok)
	}

	if !reloaded.IsRemembered(model.Actor{Role: model.RoleOrganization, Identifier: "org-aaa"}) {
		t.Fatalf("expected remembered actor to match regardless of case")
	}

	// Another actor logging out leaves the session and saves nothing.
	saves := repo.saves
	other := model.Actor{Role: model.RoleParticipant, Identifier: "a@gmail.com"}
	if err := reloaded.ForgetSession(ctx, other); err != nil {
		t.Fatal(err)
	}
	if _, ok := reloaded.Session(); !ok || repo.saves != saves {
		t.Fatalf("foreign logout cleared the session or saved (saves %d -> %d)", saves, repo.saves)
	}

	if err := reloaded.ForgetSession(ctx, actor); err != nil {
		t.Fatal(err)
	}
	if _, ok := NewActivityService(ctx, repo, logger.Discard()).Session(); ok {
		t.Fatalf("session not cleared")
	}
}

func TestService_Roster(t *testing.T) {
	ctx := context.Background()
	svc := NewActivityService(ctx, newRepo(), logger.Discard())
	a, _ := svc.CreateActivity(ctx, "ORG-AAA", fields(3))
	svc.Register(ctx, a.ID, "a@gmail.com", slot)
	svc.Register(ctx, a.ID, "b@gmail.com", slot)

	got, regs, err := svc.Roster(ctx, a.ID, "ORG-AAA")
	if err != nil {
		t.Fatalf("Roster: %v", err)
	}
	if got.ID != a.ID || len(regs) != 2 || regs[0].ParticipantIdentifier != "a@gmail.com" {
		t.Fatalf("unexpected roster: %+v", regs)
	}
	if _, _, err := svc.Roster(ctx, a.ID, "ORG-BBB"); !errors.Is(err, store.ErrAuthorization) {
		t.Fatalf("expected ErrAuthorization, got %v", err)
	}
}
