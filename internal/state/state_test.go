package state

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"

	"recycle-watch/internal/tracker"
)

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cost.json")
	store := NewFileStore(path, zerolog.Nop())
	ctx := context.Background()

	for _, want := range []tracker.State{{}, {Low: true}, {Low: true, SuperLow: true}} {
		if err := store.Save(ctx, want); err != nil {
			t.Fatalf("save: %v", err)
		}
		got, err := store.Load(ctx)
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		if got != want {
			t.Fatalf("round trip mismatch: got %+v want %+v", got, want)
		}
	}
}

func TestFileStoreWritesIntegerFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cost.json")
	store := NewFileStore(path, zerolog.Nop())
	if err := store.Save(context.Background(), tracker.State{Low: true}); err != nil {
		t.Fatalf("save: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != `{"low":1,"super_low":0}` {
		t.Fatalf("unexpected document %s", data)
	}
	if _, err := os.Stat(path + ".tmp"); !errors.Is(err, os.ErrNotExist) {
		t.Fatal("temp file should be renamed away")
	}
}

func TestFileStoreMissingFileBootstraps(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "absent", "cost.json"), zerolog.Nop())
	st, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("missing file should not fail: %v", err)
	}
	if st != (tracker.State{}) {
		t.Fatalf("expected clean flags, got %+v", st)
	}
}

func TestFileStoreMalformedResets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cost.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	st, err := NewFileStore(path, zerolog.Nop()).Load(context.Background())
	if err != nil {
		t.Fatalf("malformed file should reset, got %v", err)
	}
	if st != (tracker.State{}) {
		t.Fatalf("expected clean flags, got %+v", st)
	}
}

func TestFileStoreUnreadable(t *testing.T) {
	dir := t.TempDir()
	// a directory where the file should be cannot be read as a file
	path := filepath.Join(dir, "cost.json")
	if err := os.Mkdir(path, 0o755); err != nil {
		t.Fatal(err)
	}
	_, err := NewFileStore(path, zerolog.Nop()).Load(context.Background())
	if !errors.Is(err, ErrStateIO) {
		t.Fatalf("expected ErrStateIO, got %v", err)
	}
}

type fakeRedis struct {
	data   map[string]string
	getErr error
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	if f.getErr != nil {
		return redis.NewStringResult("", f.getErr)
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	f.data[key] = value.(string)
	return redis.NewStatusResult("OK", nil)
}

func TestRedisStoreRoundTrip(t *testing.T) {
	fake := &fakeRedis{data: map[string]string{}}
	store := newRedisStore(fake, "", zerolog.Nop())
	ctx := context.Background()

	st, err := store.Load(ctx)
	if err != nil || st != (tracker.State{}) {
		t.Fatalf("absent key should bootstrap, got %+v %v", st, err)
	}

	want := tracker.State{Low: true, SuperLow: true}
	if err := store.Save(ctx, want); err != nil {
		t.Fatalf("save: %v", err)
	}
	if fake.data["recyclewatch:state"] != `{"low":1,"super_low":1}` {
		t.Fatalf("unexpected stored value %q", fake.data["recyclewatch:state"])
	}
	got, err := store.Load(ctx)
	if err != nil || got != want {
		t.Fatalf("round trip mismatch: %+v %v", got, err)
	}
}

func TestRedisStoreGetError(t *testing.T) {
	fake := &fakeRedis{data: map[string]string{}, getErr: errors.New("connection refused")}
	_, err := newRedisStore(fake, "k", zerolog.Nop()).Load(context.Background())
	if !errors.Is(err, ErrStateIO) {
		t.Fatalf("expected ErrStateIO, got %v", err)
	}
}
