package cache

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestGetSet(t *testing.T) {
	c := New(time.Minute)

	if _, ok := c.Get("missing"); ok {
		t.Error("expected miss for unknown key")
	}

	c.Set("k", 42)
	v, ok := c.Get("k")
	if !ok {
		t.Fatal("expected hit")
	}
	if v.(int) != 42 {
		t.Errorf("value: got %v, want 42", v)
	}
}

func TestExpiry(t *testing.T) {
	c := New(time.Minute)
	c.SetWithTTL("k", "v", 10*time.Millisecond)

	if _, ok := c.Get("k"); !ok {
		t.Fatal("expected hit before expiry")
	}

	time.Sleep(20 * time.Millisecond)
	if _, ok := c.Get("k"); ok {
		t.Error("expected miss after expiry")
	}
}

func TestInvalidateAndFlush(t *testing.T) {
	c := New(time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)

	c.Invalidate("a")
	if _, ok := c.Get("a"); ok {
		t.Error("invalidated key should miss")
	}
	if _, ok := c.Get("b"); !ok {
		t.Error("other key should survive Invalidate")
	}

	c.Flush()
	if _, ok := c.Get("b"); ok {
		t.Error("flushed key should miss")
	}
}

func TestCleanup(t *testing.T) {
	c := New(time.Minute)
	c.SetWithTTL("stale", 1, -time.Second)
	c.Set("fresh", 2)

	c.Cleanup()

	c.mu.RLock()
	_, staleThere := c.entries["stale"]
	_, freshThere := c.entries["fresh"]
	c.mu.RUnlock()

	if staleThere {
		t.Error("expired entry should be reaped")
	}
	if !freshThere {
		t.Error("fresh entry should survive cleanup")
	}
}

func TestGetOrCompute_MissThenHit(t *testing.T) {
	c := New(time.Minute)
	calls := 0

	compute := func() (any, error) {
		calls++
		return "value", nil
	}

	v, err := c.GetOrCompute("k", time.Minute, compute)
	if err != nil {
		t.Fatal(err)
	}
	if v.(string) != "value" {
		t.Errorf("value: got %v", v)
	}

	// Second call must not invoke compute again.
	if _, err := c.GetOrCompute("k", time.Minute, compute); err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Errorf("compute called %d times, want 1", calls)
	}
}

func TestGetOrCompute_ErrorNotCached(t *testing.T) {
	c := New(time.Minute)
	boom := errors.New("boom")
	calls := 0

	_, err := c.GetOrCompute("k", time.Minute, func() (any, error) {
		calls++
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err: got %v, want %v", err, boom)
	}

	// The failure must not poison the key; a later compute runs again.
	v, err := c.GetOrCompute("k", time.Minute, func() (any, error) {
		calls++
		return "ok", nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if v.(string) != "ok" {
		t.Errorf("value: got %v", v)
	}
	if calls != 2 {
		t.Errorf("compute called %d times, want 2", calls)
	}
}

func TestGetOrCompute_ConcurrentMissesComputeOnce(t *testing.T) {
	c := New(time.Minute)
	var calls int32

	compute := func() (any, error) {
		atomic.AddInt32(&calls, 1)
		time.Sleep(20 * time.Millisecond)
		return "shared", nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := c.GetOrCompute("k", time.Minute, compute)
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if v.(string) != "shared" {
				t.Errorf("value: got %v", v)
			}
		}()
	}
	wg.Wait()

	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("compute called %d times, want 1", n)
	}
}
