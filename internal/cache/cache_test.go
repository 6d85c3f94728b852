package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestSetGetRespectsTTL(t *testing.T) {
	c := New(time.Minute)
	c.Set("k", "v", 80*time.Millisecond)

	got, ok := c.Get("k")
	if !ok || got != "v" {
		t.Fatalf("Get before ttl = (%v, %v), want (v, true)", got, ok)
	}

	time.Sleep(150 * time.Millisecond)
	if got, ok := c.Get("k"); ok {
		t.Fatalf("Get after ttl = %v, want absent", got)
	}
}

func TestSetOverwritesAndResetsInsertion(t *testing.T) {
	c := New(time.Minute)
	c.Set("k", 1, 100*time.Millisecond)
	time.Sleep(60 * time.Millisecond)
	c.Set("k", 2, 100*time.Millisecond)
	time.Sleep(60 * time.Millisecond)

	got, ok := c.Get("k")
	if !ok || got != 2 {
		t.Fatalf("Get = (%v, %v), want (2, true)", got, ok)
	}
}

func TestGetOrPopulateHitSkipsLoader(t *testing.T) {
	c := New(time.Minute)
	c.Set("k", "cached", time.Minute)

	got, err := c.GetOrPopulate(context.Background(), "k", time.Minute, func(ctx context.Context) (any, error) {
		t.Fatal("loader called on fresh entry")
		return nil, nil
	})
	if err != nil || got != "cached" {
		t.Fatalf("GetOrPopulate = (%v, %v), want (cached, nil)", got, err)
	}
}

func TestGetOrPopulateSingleFlight(t *testing.T) {
	c := New(time.Minute)
	const n = 50

	var calls atomic.Int32
	release := make(chan struct{})
	loader := func(ctx context.Context) (any, error) {
		calls.Add(1)
		<-release
		return "loaded", nil
	}

	var wg sync.WaitGroup
	results := make([]any, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = c.GetOrPopulate(context.Background(), "cold", time.Minute, loader)
		}(i)
	}

	waitFor(t, func() bool { return calls.Load() == 1 })
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := calls.Load(); got != 1 {
		t.Fatalf("loader calls = %d, want 1", got)
	}
	for i := 0; i < n; i++ {
		if errs[i] != nil || results[i] != "loaded" {
			t.Fatalf("caller %d = (%v, %v), want (loaded, nil)", i, results[i], errs[i])
		}
	}
	if got, ok := c.Get("cold"); !ok || got != "loaded" {
		t.Fatalf("value not cached after load: (%v, %v)", got, ok)
	}
}

func TestGetOrPopulateFailureIsSharedAndNotCached(t *testing.T) {
	c := New(time.Minute)
	const n = 20
	boom := errors.New("upstream down")

	var calls atomic.Int32
	release := make(chan struct{})
	loader := func(ctx context.Context) (any, error) {
		calls.Add(1)
		<-release
		return nil, boom
	}

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = c.GetOrPopulate(context.Background(), "bad", time.Minute, loader)
		}(i)
	}

	waitFor(t, func() bool { return calls.Load() == 1 })
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := calls.Load(); got != 1 {
		t.Fatalf("loader calls = %d, want 1", got)
	}
	for i, err := range errs {
		var le *LoadError
		if !errors.As(err, &le) {
			t.Fatalf("caller %d err = %v, want *LoadError", i, err)
		}
		if !errors.Is(err, boom) {
			t.Fatalf("caller %d err = %v, want wrapping %v", i, err, boom)
		}
		if le.Key != "bad" {
			t.Fatalf("LoadError.Key = %q, want %q", le.Key, "bad")
		}
	}
	if _, ok := c.Get("bad"); ok {
		t.Fatalf("failed load must not populate the cache")
	}

	// 失败后 inflight 已移除，下一次调用会重新加载
	_, _ = c.GetOrPopulate(context.Background(), "bad", time.Minute, func(ctx context.Context) (any, error) {
		calls.Add(1)
		return "ok", nil
	})
	if got := calls.Load(); got != 2 {
		t.Fatalf("loader calls after failure = %d, want 2", got)
	}
}

func TestGetOrPopulateWaiterCancelDoesNotAbortLoad(t *testing.T) {
	c := New(time.Minute)
	release := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		v, err := c.GetOrPopulate(context.Background(), "k", time.Minute, func(ctx context.Context) (any, error) {
			<-release
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			return "v", nil
		})
		if err != nil || v != "v" {
			t.Errorf("first caller = (%v, %v), want (v, nil)", v, err)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	time.Sleep(10 * time.Millisecond)
	_, err := c.GetOrPopulate(ctx, "k", time.Minute, func(ctx context.Context) (any, error) {
		return "other", nil
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("waiter err = %v, want deadline exceeded", err)
	}

	close(release)
	<-done
	if got, ok := c.Get("k"); !ok || got != "v" {
		t.Fatalf("Get = (%v, %v), want (v, true)", got, ok)
	}
}

func TestRefreshOverwritesOnSuccessAndKeepsOnFailure(t *testing.T) {
	c := New(time.Minute)
	c.Set("k", "old", time.Minute)

	v, err := c.Refresh(context.Background(), "k", time.Minute, func(ctx context.Context) (any, error) {
		return "new", nil
	})
	if err != nil || v != "new" {
		t.Fatalf("Refresh = (%v, %v), want (new, nil)", v, err)
	}
	if got, _ := c.Get("k"); got != "new" {
		t.Fatalf("Get after refresh = %v, want new", got)
	}

	_, err = c.Refresh(context.Background(), "k", time.Minute, func(ctx context.Context) (any, error) {
		return nil, errors.New("upstream down")
	})
	if !IsLoadError(err) {
		t.Fatalf("Refresh err = %v, want *LoadError", err)
	}
	if got, ok := c.Get("k"); !ok || got != "new" {
		t.Fatalf("failed refresh must keep the previous entry, got (%v, %v)", got, ok)
	}
}

func TestFetchTyped(t *testing.T) {
	c := New(time.Minute)
	got, err := Fetch(context.Background(), c, "nums", time.Minute, func(ctx context.Context) ([]int, error) {
		return []int{1, 2, 3}, nil
	})
	if err != nil || len(got) != 3 {
		t.Fatalf("Fetch = (%v, %v), want 3 items", got, err)
	}

	c.Set("wrong", "string", time.Minute)
	_, err = Fetch(context.Background(), c, "wrong", time.Minute, func(ctx context.Context) ([]int, error) {
		return nil, nil
	})
	if !IsLoadError(err) {
		t.Fatalf("type mismatch err = %v, want *LoadError", err)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(time.Millisecond)
	}
}
