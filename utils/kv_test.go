package utils

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type fakeRedis struct {
	values map[string]string
	ttls   map[string]time.Duration
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeRedis) GetFromCache(ctx context.Context, key string) (string, error) {
	val, ok := f.values[key]
	if !ok {
		return "", redis.Nil
	}
	return val, nil
}

func (f *fakeRedis) SetToCache(ctx context.Context, key, value string, expiration time.Duration) error {
	f.values[key] = value
	f.ttls[key] = expiration
	return nil
}

func (f *fakeRedis) DeleteFromCache(ctx context.Context, key string) error {
	delete(f.values, key)
	return nil
}

func (f *fakeRedis) Close() error { return nil }

func TestKVStoreMissReadsAsEmpty(t *testing.T) {
	store := KVStore{Client: newFakeRedis()}

	got, err := store.Get(context.Background(), "absent")
	if err != nil {
		t.Fatalf("Get on miss: %v", err)
	}
	if got != "" {
		t.Errorf("Get on miss = %q, want empty", got)
	}
}

func TestKVStoreSetDoesNotExpire(t *testing.T) {
	fake := newFakeRedis()
	store := KVStore{Client: fake}
	ctx := context.Background()

	if err := store.Set(ctx, "k", "v"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := store.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != "v" {
		t.Errorf("Get = %q, want %q", got, "v")
	}
	if ttl := fake.ttls["k"]; ttl != 0 {
		t.Errorf("expiration = %v, want 0 (no expiry)", ttl)
	}
}
