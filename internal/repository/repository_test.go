package repository

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/Shivanand-hulikatti/activity-signup/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"
)

func sampleSnapshot() model.Snapshot {
	age := 16
	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	return model.Snapshot{
		Version: model.SnapshotVersion,
		Activities: []model.Activity{{
			ID:              "act-1",
			OwnerCode:       "ORG-AAA",
			Title:           "Park clean-up",
			Description:     "Bring gloves",
			Location:        "https://maps.google.com/?q=park",
			DateFrom:        "2024-06-01",
			DateTo:          "2024-06-10",
			TimeFrom:        "09:00",
			TimeTo:          "11:00",
			MinAge:          &age,
			MaxParticipants: 2,
			Registrations: []model.Registration{{
				ActivityID:            "act-1",
				ParticipantIdentifier: "a@gmail.com",
				Date:                  "2024-06-05",
				Time:                  "10:00",
				CreatedAt:             created.Add(time.Hour),
			}},
			CreatedAt: created,
			UpdatedAt: created,
		}},
		Session: &model.Actor{Role: model.RoleOrganization, Identifier: "ORG-AAA"},
	}
}

func TestSnapshotRepository_SaveLoad(t *testing.T) {
	ctx := context.Background()
	repo := NewSnapshotRepository(NewMemoryKV(), "")

	want := sampleSnapshot()
	if err := repo.Save(ctx, want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := repo.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, want)
	}
}

func TestSnapshotRepository_LoadMissing(t *testing.T) {
	repo := NewSnapshotRepository(NewMemoryKV(), "")
	got, err := repo.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got.Activities) != 0 || got.Session != nil {
		t.Fatalf("expected empty snapshot, got %+v", got)
	}
}

func TestSnapshotRepository_LoadCorrupt(t *testing.T) {
	tests := []struct {
		name string
		blob string
	}{
		{"not json", "{{{"},
		{"wrong shape", `{"version":1,"activities":"nope"}`},
		{"unknown version", `{"version":7,"activities":[]}`},
		{"missing version", `{"activities":[]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kv := NewMemoryKV()
			kv.Put(context.Background(), DefaultKey, []byte(tt.blob))
			if _, err := NewSnapshotRepository(kv, "").Load(context.Background()); err == nil {
				t.Fatalf("expected error for %q", tt.blob)
			}
		})
	}
}

func TestDecodeSnapshot_UnsupportedVersion(t *testing.T) {
	_, err := DecodeSnapshot([]byte(`{"version":2}`))
	if !errors.Is(err, ErrUnsupportedVersion) {
		t.Fatalf("expected ErrUnsupportedVersion, got %v", err)
	}
}

func TestDecodeSnapshot_NilRegistrations(t *testing.T) {
	snap, err := DecodeSnapshot([]byte(`{"version":1,"activities":[{"id":"a","max_participants":1}]}`))
	if err != nil {
		t.Fatal(err)
	}
	if snap.Activities[0].Registrations == nil {
		t.Fatalf("expected empty registrations slice")
	}
}

func TestSnapshotRepository_CustomKey(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	NewSnapshotRepository(kv, "tenant-a").Save(ctx, sampleSnapshot())

	if _, err := kv.Get(ctx, DefaultKey); !errors.Is(err, ErrNotFound) {
		t.Fatalf("default key written: %v", err)
	}
	if _, err := kv.Get(ctx, "tenant-a"); err != nil {
		t.Fatalf("custom key missing: %v", err)
	}
}

// --- pgx fake ---

type fakeRow struct {
	value []byte
	err   error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*dest[0].(*[]byte) = r.value
	return nil
}

type fakePG struct {
	rows  map[string][]byte
	execs []string
}

func (f *fakePG) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.execs = append(f.execs, sql)
	if strings.HasPrefix(strings.TrimSpace(sql), "INSERT") {
		f.rows[args[0].(string)] = args[1].([]byte)
		return pgconn.NewCommandTag("INSERT 0 1"), nil
	}
	return pgconn.NewCommandTag("CREATE TABLE"), nil
}

func (f *fakePG) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	v, ok := f.rows[args[0].(string)]
	if !ok {
		return fakeRow{err: pgx.ErrNoRows}
	}
	return fakeRow{value: v}
}

func TestPostgresKV(t *testing.T) {
	ctx := context.Background()
	db := &fakePG{rows: map[string][]byte{}}
	kv := NewPostgresKV(db)

	if err := kv.EnsureSchema(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := kv.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := kv.Put(ctx, "k", []byte(`{"a":1}`)); err != nil {
		t.Fatal(err)
	}
	got, err := kv.Get(ctx, "k")
	if err != nil || string(got) != `{"a":1}` {
		t.Fatalf("Get: %q %v", got, err)
	}
	if !strings.Contains(db.execs[len(db.execs)-1], "ON CONFLICT (key)") {
		t.Fatalf("Put is not an upsert: %s", db.execs[len(db.execs)-1])
	}
}

func TestPostgresKV_WrapsErrors(t *testing.T) {
	boom := errors.New("connection reset")
	kv := NewPostgresKV(&erringPG{err: boom})
	if _, err := kv.Get(context.Background(), "k"); !errors.Is(err, boom) || errors.Is(err, ErrNotFound) {
		t.Fatalf("expected wrapped driver error, got %v", err)
	}
}

type erringPG struct{ err error }

func (e *erringPG) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, e.err
}

func (e *erringPG) QueryRow(context.Context, string, ...any) pgx.Row {
	return fakeRow{err: e.err}
}

// --- redis fake ---

type fakeRedis struct {
	values map[string]string
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	v, ok := f.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	f.values[key] = string(value.([]byte))
	return redis.NewStatusResult("OK", nil)
}

func TestRedisKV(t *testing.T) {
	ctx := context.Background()
	repo := NewSnapshotRepository(NewRedisKV(&fakeRedis{values: map[string]string{}}), "")

	empty, err := repo.Load(ctx)
	if err != nil || len(empty.Activities) != 0 {
		t.Fatalf("expected empty snapshot, got %+v %v", empty, err)
	}

	want := sampleSnapshot()
	if err := repo.Save(ctx, want); err != nil {
		t.Fatal(err)
	}
	got, err := repo.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, want)
	}
}
