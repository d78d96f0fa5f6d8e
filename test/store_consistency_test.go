//go:build integration
// +build integration

package test

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"
)

func TestUserIndexTracksPutAndRemove(t *testing.T) {
	store, _, _ := newStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := store.Put(ctx, fmt.Sprintf("tok-%d", i), "u-1", time.Hour); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}
	if err := store.Remove(ctx, "tok-1"); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	ids, err := store.ActiveTokenIDs(ctx, "u-1")
	if err != nil {
		t.Fatalf("ActiveTokenIDs: %v", err)
	}
	sort.Strings(ids)
	if len(ids) != 2 || ids[0] != "tok-0" || ids[1] != "tok-2" {
		t.Fatalf("unexpected index %v", ids)
	}
}

func TestUserIndexOutlivesLongestSession(t *testing.T) {
	store, mr, _ := newStore(t)
	ctx := context.Background()

	if err := store.Put(ctx, "long", "u-1", time.Hour); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := store.Put(ctx, "short", "u-1", time.Minute); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if ttl := mr.TTL("cs:u:u-1"); ttl < time.Hour-time.Second {
		t.Fatalf("index ttl %v shorter than longest session", ttl)
	}
}

func TestConcurrentPutThenRemoveUser(t *testing.T) {
	store, mr, _ := newStore(t)
	ctx := context.Background()

	const n = 50
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- store.Put(ctx, fmt.Sprintf("tok-%d", i), "u-1", time.Hour)
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("Put: %v", err)
		}
	}

	removed, err := store.RemoveUser(ctx, "u-1")
	if err != nil {
		t.Fatalf("RemoveUser: %v", err)
	}
	if removed != n {
		t.Fatalf("expected %d removed, got %d", n, removed)
	}
	if keys := mr.Keys(); len(keys) != 0 {
		t.Fatalf("expected empty keyspace, got %v", keys)
	}
}

func TestExpiredRecordIsNotFound(t *testing.T) {
	store, mr, _ := newStore(t)
	ctx := context.Background()

	if err := store.Put(ctx, "tok", "u-1", time.Minute); err != nil {
		t.Fatalf("Put: %v", err)
	}
	mr.FastForward(2 * time.Minute)

	_, found, err := store.Get(ctx, "tok")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if found {
		t.Fatal("expired record still found")
	}
}
