package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type countingRecorder struct {
	mu     sync.Mutex
	events map[string]int
}

func (r *countingRecorder) RecordAuthAction(string, string)    {}
func (r *countingRecorder) RecordIssueAction(string, string)   {}
func (r *countingRecorder) RecordHTTPStatus(int)               {}
func (r *countingRecorder) RecordRequestLatency(time.Duration) {}
func (r *countingRecorder) RecordSessionsCleaned(int64)        {}
func (r *countingRecorder) RecordCacheEvent(event string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.events == nil {
		r.events = make(map[string]int)
	}
	r.events[event]++
}

func (r *countingRecorder) count(event string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[event]
}

func TestRemember_CachesUntilInvalidated(t *testing.T) {
	rec := &countingRecorder{}
	c := NewTagCache(time.Minute, rec)
	ctx := context.Background()

	var loads int
	load := func(context.Context) ([]string, error) {
		loads++
		return []string{"v", string(rune('0' + loads))}, nil
	}

	first, err := Remember(ctx, c, "issues:list", []string{"issues"}, load)
	if err != nil {
		t.Fatalf("Remember returned error: %v", err)
	}
	second, err := Remember(ctx, c, "issues:list", []string{"issues"}, load)
	if err != nil {
		t.Fatalf("Remember returned error: %v", err)
	}
	if loads != 1 {
		t.Fatalf("loads = %d, want 1", loads)
	}
	if first[1] != second[1] {
		t.Errorf("cached value changed: %v vs %v", first, second)
	}

	c.InvalidateTag("issues")

	third, err := Remember(ctx, c, "issues:list", []string{"issues"}, load)
	if err != nil {
		t.Fatalf("Remember returned error: %v", err)
	}
	if loads != 2 {
		t.Errorf("loads after invalidation = %d, want 2", loads)
	}
	if third[1] == first[1] {
		t.Error("value after invalidation should be freshly loaded")
	}

	if rec.count("hit") != 1 || rec.count("miss") != 2 || rec.count("invalidate") != 1 {
		t.Errorf("events = %v, want hit=1 miss=2 invalidate=1", rec.events)
	}
}

func TestRemember_ExpiresAfterTTL(t *testing.T) {
	c := NewTagCache(time.Minute, nil)
	now := time.Now()
	c.now = func() time.Time { return now }
	ctx := context.Background()

	var loads int
	load := func(context.Context) (int, error) {
		loads++
		return loads, nil
	}

	if _, err := Remember(ctx, c, "k", []string{"t"}, load); err != nil {
		t.Fatalf("Remember returned error: %v", err)
	}

	now = now.Add(2 * time.Minute)
	v, err := Remember(ctx, c, "k", []string{"t"}, load)
	if err != nil {
		t.Fatalf("Remember returned error: %v", err)
	}
	if v != 2 || loads != 2 {
		t.Errorf("v = %d, loads = %d, want 2, 2", v, loads)
	}
}

func TestRemember_ErrorsAreNotCached(t *testing.T) {
	c := NewTagCache(time.Minute, nil)
	ctx := context.Background()

	calls := 0
	failing := func(context.Context) (int, error) {
		calls++
		return 0, errors.New("db down")
	}

	if _, err := Remember(ctx, c, "k", []string{"t"}, failing); err == nil {
		t.Fatal("expected error")
	}
	if c.Len() != 0 {
		t.Errorf("Len = %d, want 0 after failed load", c.Len())
	}
	if _, err := Remember(ctx, c, "k", []string{"t"}, failing); err == nil {
		t.Fatal("expected error")
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestRemember_InvalidationDuringLoadIsNotStored(t *testing.T) {
	c := NewTagCache(time.Minute, nil)
	ctx := context.Background()

	stale := func(context.Context) (string, error) {
		// 読み込み中に書き込みが発生した状況
		c.InvalidateTag("issues")
		return "stale", nil
	}

	v, err := Remember(ctx, c, "issues:list", []string{"issues"}, stale)
	if err != nil {
		t.Fatalf("Remember returned error: %v", err)
	}
	if v != "stale" {
		t.Errorf("v = %q, want the loaded value", v)
	}
	if c.Len() != 0 {
		t.Errorf("Len = %d, want 0: a load that raced an invalidation must not be stored", c.Len())
	}

	fresh, err := Remember(ctx, c, "issues:list", []string{"issues"}, func(context.Context) (string, error) {
		return "fresh", nil
	})
	if err != nil {
		t.Fatalf("Remember returned error: %v", err)
	}
	if fresh != "fresh" {
		t.Errorf("v = %q, want fresh", fresh)
	}
}

func TestInvalidateTag_OnlyDropsTaggedEntries(t *testing.T) {
	c := NewTagCache(time.Minute, nil)
	ctx := context.Background()

	load := func(context.Context) (int, error) { return 1, nil }
	if _, err := Remember(ctx, c, "a", []string{"issues"}, load); err != nil {
		t.Fatal(err)
	}
	if _, err := Remember(ctx, c, "b", []string{"users"}, load); err != nil {
		t.Fatal(err)
	}

	c.InvalidateTag("issues")

	if c.Len() != 1 {
		t.Errorf("Len = %d, want 1", c.Len())
	}
}

func TestRemember_ConcurrentCallsShareOneLoad(t *testing.T) {
	c := NewTagCache(time.Minute, nil)
	ctx := context.Background()

	var loads atomic.Int32
	release := make(chan struct{})
	load := func(context.Context) (int, error) {
		loads.Add(1)
		<-release
		return 42, nil
	}

	var wg sync.WaitGroup
	results := make([]int, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := Remember(ctx, c, "k", []string{"t"}, load)
			if err != nil {
				t.Errorf("Remember returned error: %v", err)
			}
			results[i] = v
		}(i)
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := loads.Load(); n < 1 || n > 8 {
		t.Errorf("loads = %d, want between 1 and 8", n)
	}
	for i, v := range results {
		if v != 42 {
			t.Errorf("results[%d] = %d, want 42", i, v)
		}
	}
}

func TestRemember_TypeMismatch(t *testing.T) {
	c := NewTagCache(time.Minute, nil)
	ctx := context.Background()

	if _, err := Remember(ctx, c, "k", nil, func(context.Context) (int, error) { return 1, nil }); err != nil {
		t.Fatal(err)
	}
	if _, err := Remember(ctx, c, "k", nil, func(context.Context) (string, error) { return "x", nil }); err == nil {
		t.Error("expected type mismatch error")
	}
}

func TestRemember_CanceledCallerDoesNotFailOthers(t *testing.T) {
	c := NewTagCache(time.Minute, nil)

	started := make(chan struct{})
	release := make(chan struct{})
	load := func(ctx context.Context) (int, error) {
		close(started)
		<-release
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		return 42, nil
	}

	leaderCtx, cancel := context.WithCancel(context.Background())
	leaderErr := make(chan error, 1)
	go func() {
		_, err := Remember(leaderCtx, c, "k", []string{"issues"}, load)
		leaderErr <- err
	}()

	<-started
	cancel()
	if err := <-leaderErr; !errors.Is(err, context.Canceled) {
		t.Errorf("canceled caller err = %v, want context.Canceled", err)
	}

	// 読み込みは継続中。後から来た呼び出しは同じ読み込みに合流する
	followerDone := make(chan struct{})
	var got int
	var followerErr error
	go func() {
		defer close(followerDone)
		got, followerErr = Remember(context.Background(), c, "k", []string{"issues"}, func(context.Context) (int, error) {
			return 42, nil
		})
	}()

	time.Sleep(20 * time.Millisecond)
	close(release)
	<-followerDone

	if followerErr != nil {
		t.Fatalf("follower err = %v, want nil", followerErr)
	}
	if got != 42 {
		t.Errorf("follower got %d, want 42", got)
	}
}

func TestRemember_CallAfterInvalidationDoesNotJoinOldLoad(t *testing.T) {
	c := NewTagCache(time.Minute, nil)
	ctx := context.Background()

	started := make(chan struct{})
	release := make(chan struct{})
	oldDone := make(chan string, 1)
	go func() {
		v, _ := Remember(ctx, c, "issues:list", []string{"issues"}, func(context.Context) (string, error) {
			close(started)
			<-release
			return "before write", nil
		})
		oldDone <- v
	}()

	<-started
	c.InvalidateTag("issues")

	v, err := Remember(ctx, c, "issues:list", []string{"issues"}, func(context.Context) (string, error) {
		return "after write", nil
	})
	if err != nil {
		t.Fatalf("Remember returned error: %v", err)
	}
	if v != "after write" {
		t.Errorf("v = %q, want a fresh load after invalidation", v)
	}

	close(release)
	if old := <-oldDone; old != "before write" {
		t.Errorf("in-flight caller got %q, want before write", old)
	}

	// 無効化前に始まった読み込みの結果は保存されていない
	cached, err := Remember(ctx, c, "issues:list", []string{"issues"}, func(context.Context) (string, error) {
		return "reloaded", nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if cached != "after write" {
		t.Errorf("cached = %q, want after write", cached)
	}
}

func TestFlightKey(t *testing.T) {
	if got := flightKey("issues:list", []uint64{3, 0}); got != "issues:list@3@0" {
		t.Errorf("flightKey = %q", got)
	}
	if flightKey("k", []uint64{1}) == flightKey("k", []uint64{2}) {
		t.Error("different generations must give different keys")
	}
}
