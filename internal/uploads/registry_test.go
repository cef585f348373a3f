package uploads

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"
)

func TestMemoryRegistryTokenIsStable(t *testing.T) {
	reg := NewMemoryRegistry(time.Hour)
	ctx := context.Background()

	first, err := reg.Token(ctx, 1)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	second, err := reg.Token(ctx, 1)
	if err != nil {
		t.Fatalf("token again: %v", err)
	}
	if first == "" || first != second {
		t.Fatalf("expected stable token, got %q and %q", first, second)
	}
	other, _ := reg.Token(ctx, 2)
	if other == first {
		t.Fatal("expected blogs to get distinct tokens")
	}

	peeked, ok, err := reg.Peek(ctx, 1)
	if err != nil || !ok || peeked != first {
		t.Fatalf("peek: %q ok=%v err=%v", peeked, ok, err)
	}
	if _, ok, _ := reg.Peek(ctx, 3); ok {
		t.Fatal("expected peek not to create a token")
	}
}

func TestMemoryRegistryConcurrentFirstUse(t *testing.T) {
	reg := NewMemoryRegistry(time.Hour)
	ctx := context.Background()

	const workers = 16
	tokens := make([]string, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			token, err := reg.Token(ctx, 42)
			if err != nil {
				t.Errorf("token: %v", err)
				return
			}
			tokens[i] = token
		}(i)
	}
	wg.Wait()

	for i := 1; i < workers; i++ {
		if tokens[i] != tokens[0] {
			t.Fatalf("expected one token for concurrent callers, got %q and %q", tokens[0], tokens[i])
		}
	}
}

func TestMemoryRegistryEvictsIdleSessions(t *testing.T) {
	reg := NewMemoryRegistry(time.Minute)
	now := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	reg.now = func() time.Time { return now }
	ctx := context.Background()

	idle, _ := reg.Token(ctx, 1)
	now = now.Add(50 * time.Second)
	if _, err := reg.Token(ctx, 2); err != nil {
		t.Fatalf("token: %v", err)
	}
	now = now.Add(30 * time.Second)

	if _, ok, _ := reg.Peek(ctx, 1); ok {
		t.Fatal("expected idle token to be invisible")
	}
	evicted, err := reg.Evict(ctx)
	if err != nil {
		t.Fatalf("evict: %v", err)
	}
	if evicted != 1 || reg.Len() != 1 {
		t.Fatalf("expected 1 eviction leaving 1 session, got evicted=%d len=%d", evicted, reg.Len())
	}

	fresh, _ := reg.Token(ctx, 1)
	if fresh == idle {
		t.Fatal("expected a new token after expiry")
	}

	if err := reg.Forget(ctx, 2); err != nil {
		t.Fatalf("forget: %v", err)
	}
	if _, ok, _ := reg.Peek(ctx, 2); ok {
		t.Fatal("expected forgotten token to be gone")
	}
}

func TestRedisRegistry(t *testing.T) {
	addr := os.Getenv("WEBLOGD_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("WEBLOGD_TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	reg, err := NewRedisRegistry(ctx, RedisOptions{Addr: addr, TTL: time.Minute})
	if err != nil {
		t.Fatalf("new redis registry: %v", err)
	}
	t.Cleanup(func() { reg.Close() })

	const blogID = 987654321
	_ = reg.Forget(ctx, blogID)
	t.Cleanup(func() { _ = reg.Forget(ctx, blogID) })

	first, err := reg.Token(ctx, blogID)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	second, err := reg.Token(ctx, blogID)
	if err != nil {
		t.Fatalf("token again: %v", err)
	}
	if first != second {
		t.Fatalf("expected stable token, got %q and %q", first, second)
	}
	peeked, ok, err := reg.Peek(ctx, blogID)
	if err != nil || !ok || peeked != first {
		t.Fatalf("peek: %q ok=%v err=%v", peeked, ok, err)
	}
}
