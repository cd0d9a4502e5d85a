package pagination

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/Sternrassler/compass-catalog-client/pkg/query"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
)

type reply struct {
	page Page[int]
	err  error
}

type fetchCall struct {
	ctx   context.Context
	req   query.Request
	reply chan reply
}

// scriptedFetcher hands every request to the test, which answers it explicitly.
type scriptedFetcher struct {
	calls chan fetchCall

	// uncancellable ignores context cancellation, like a transport that cannot abort
	uncancellable bool
}

func newScriptedFetcher() *scriptedFetcher {
	return &scriptedFetcher{calls: make(chan fetchCall, 16)}
}

func (f *scriptedFetcher) Fetch(ctx context.Context, req query.Request) (Page[int], error) {
	call := fetchCall{ctx: ctx, req: req, reply: make(chan reply, 1)}
	f.calls <- call

	if f.uncancellable {
		r := <-call.reply
		return r.page, r.err
	}

	select {
	case r := <-call.reply:
		return r.page, r.err
	case <-ctx.Done():
		return Page[int]{}, ctx.Err()
	}
}

func (f *scriptedFetcher) next(t *testing.T) fetchCall {
	t.Helper()
	select {
	case call := <-f.calls:
		return call
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for fetch")
		return fetchCall{}
	}
}

func (f *scriptedFetcher) expectNone(t *testing.T) {
	t.Helper()
	select {
	case call := <-f.calls:
		t.Fatalf("unexpected fetch %s", call.req.Key())
	case <-time.After(50 * time.Millisecond):
	}
}

func newTestController(t *testing.T, fetcher Fetcher[int]) *Controller[int] {
	t.Helper()

	ctrl, err := NewController(fetcher, DefaultConfig(), zerolog.Nop())
	if err != nil {
		t.Fatalf("NewController failed: %v", err)
	}
	t.Cleanup(func() { ctrl.Close() })
	return ctrl
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestNewController_Validation(t *testing.T) {
	if _, err := NewController[int](nil, DefaultConfig(), zerolog.Nop()); err == nil {
		t.Error("expected error for nil fetcher")
	}

	cfg := DefaultConfig()
	cfg.DefaultSort = ""
	if _, err := NewController[int](newScriptedFetcher(), cfg, zerolog.Nop()); err == nil {
		t.Error("expected error for empty default sort")
	}
}

func TestController_LoadsAndExhausts(t *testing.T) {
	fetcher := newScriptedFetcher()
	ctrl := newTestController(t, fetcher)

	ctrl.OnInit()
	if ctrl.State() != LoadingInitial {
		t.Fatalf("State = %s, want %s", ctrl.State(), LoadingInitial)
	}

	call := fetcher.next(t)
	if call.req.Skip != 0 || call.req.Limit != 9 || call.req.Sort != "name" {
		t.Fatalf("initial request = %s", call.req.Key())
	}
	call.reply <- reply{page: Page[int]{Items: seq(0, 9), Total: 15}}
	ctrl.Wait()

	if ctrl.State() != Idle {
		t.Fatalf("State = %s, want %s", ctrl.State(), Idle)
	}

	ctrl.OnScrollMetrics(800, 1000, 200)
	call = fetcher.next(t)
	if call.req.Skip != 9 || call.req.Limit != 6 {
		t.Fatalf("load more request = %s", call.req.Key())
	}
	call.reply <- reply{page: Page[int]{Items: seq(9, 6), Total: 15}}
	ctrl.Wait()

	if ctrl.State() != Exhausted {
		t.Errorf("State = %s, want %s", ctrl.State(), Exhausted)
	}
	if !slices.Equal(ctrl.Items(), seq(0, 15)) {
		t.Errorf("Items = %v, want 0..14", ctrl.Items())
	}
	if ctrl.Total() != 15 {
		t.Errorf("Total = %d, want 15", ctrl.Total())
	}

	ctrl.OnScrollMetrics(800, 1000, 200)
	fetcher.expectNone(t)
}

func TestController_SingleFlight(t *testing.T) {
	fetcher := newScriptedFetcher()
	ctrl := newTestController(t, fetcher)

	ctrl.OnInit()
	call := fetcher.next(t)

	for i := 0; i < 10; i++ {
		ctrl.OnScrollMetrics(800, 1000, 200)
	}
	fetcher.expectNone(t)

	call.reply <- reply{page: Page[int]{Items: seq(0, 9), Total: 100}}
	ctrl.Wait()

	ctrl.OnScrollMetrics(800, 1000, 200)
	call = fetcher.next(t)
	for i := 0; i < 10; i++ {
		ctrl.OnScrollMetrics(800, 1000, 200)
	}
	fetcher.expectNone(t)

	call.reply <- reply{page: Page[int]{Items: seq(9, 6), Total: 100}}
	ctrl.Wait()
}

func TestController_StaleResponseAfterFilterChange(t *testing.T) {
	fetcher := newScriptedFetcher()
	fetcher.uncancellable = true
	ctrl := newTestController(t, fetcher)

	ctrl.OnInit()
	fetcher.next(t).reply <- reply{page: Page[int]{Items: seq(0, 9), Total: 20}}
	ctrl.Wait()

	ctrl.OnScrollMetrics(800, 1000, 200)
	stale := fetcher.next(t)

	ctrl.OnFilterChange(query.FilterSet{"category": "Databases"})
	fresh := fetcher.next(t)

	if ctrl.Generation() != 2 {
		t.Fatalf("Generation = %d, want 2", ctrl.Generation())
	}
	if len(ctrl.Items()) != 0 {
		t.Fatalf("Items = %v after filter change, want empty", ctrl.Items())
	}
	if fresh.req.Skip != 0 || fresh.req.Filters["category"] != "Databases" {
		t.Fatalf("fresh request = %s", fresh.req.Key())
	}
	if stale.ctx.Err() == nil {
		t.Error("superseded fetch context should be cancelled")
	}

	before := testutil.ToFloat64(loaderStaleResponsesTotal)
	stale.reply <- reply{page: Page[int]{Items: seq(100, 6), Total: 20}}
	waitFor(t, "stale response to be dropped", func() bool {
		return testutil.ToFloat64(loaderStaleResponsesTotal) >= before+1
	})

	if len(ctrl.Items()) != 0 {
		t.Errorf("stale response changed items: %v", ctrl.Items())
	}
	if ctrl.State() != LoadingInitial {
		t.Errorf("State = %s, want %s", ctrl.State(), LoadingInitial)
	}

	fresh.reply <- reply{page: Page[int]{Items: seq(200, 3), Total: 3}}
	ctrl.Wait()

	if !slices.Equal(ctrl.Items(), seq(200, 3)) {
		t.Errorf("Items = %v, want fresh generation items", ctrl.Items())
	}
	if ctrl.State() != Exhausted {
		t.Errorf("State = %s, want %s", ctrl.State(), Exhausted)
	}
}

func TestController_FailureAndRetry(t *testing.T) {
	fetcher := newScriptedFetcher()
	ctrl := newTestController(t, fetcher)

	ctrl.OnInit()
	fetcher.next(t).reply <- reply{page: Page[int]{Items: seq(0, 9), Total: 20}}
	ctrl.Wait()

	ctrl.OnScrollMetrics(800, 1000, 200)
	fetcher.next(t).reply <- reply{err: errors.New("server returned 503")}
	ctrl.Wait()

	if ctrl.State() != Error {
		t.Fatalf("State = %s, want %s", ctrl.State(), Error)
	}
	if ctrl.ErrorMessage() != "server returned 503" {
		t.Errorf("ErrorMessage() = %q", ctrl.ErrorMessage())
	}
	if ctrl.Err() == nil {
		t.Error("Err() = nil in Error state")
	}
	if len(ctrl.Items()) != 9 {
		t.Errorf("len(Items) = %d after failure, want 9", len(ctrl.Items()))
	}

	ctrl.OnScrollMetrics(800, 1000, 200)
	retry := fetcher.next(t)
	if retry.req.Skip != 9 || retry.req.Limit != 6 {
		t.Errorf("retry request = %s, want skip 9 limit 6", retry.req.Key())
	}
	retry.reply <- reply{page: Page[int]{Items: seq(9, 6), Total: 20}}
	ctrl.Wait()

	if ctrl.State() != Idle || len(ctrl.Items()) != 15 {
		t.Errorf("after retry: State = %s, len(Items) = %d", ctrl.State(), len(ctrl.Items()))
	}
	if ctrl.Err() != nil {
		t.Errorf("Err() = %v after successful retry", ctrl.Err())
	}
}

func TestController_OnChange(t *testing.T) {
	fetcher := newScriptedFetcher()
	ctrl := newTestController(t, fetcher)

	var (
		mu     sync.Mutex
		states []LoadState
	)
	ctrl.SetOnChange(func(s Session[int]) {
		mu.Lock()
		defer mu.Unlock()
		states = append(states, s.State)
	})

	ctrl.OnInit()
	fetcher.next(t).reply <- reply{page: Page[int]{Items: seq(0, 2), Total: 2}}
	ctrl.Wait()

	mu.Lock()
	defer mu.Unlock()
	want := []LoadState{LoadingInitial, Exhausted}
	if !slices.Equal(states, want) {
		t.Errorf("observed states %v, want %v", states, want)
	}
}

func TestController_Close(t *testing.T) {
	fetcher := newScriptedFetcher()
	ctrl, err := NewController[int](fetcher, DefaultConfig(), zerolog.Nop())
	if err != nil {
		t.Fatalf("NewController failed: %v", err)
	}

	ctrl.OnInit()
	call := fetcher.next(t)

	if err := ctrl.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if call.ctx.Err() == nil {
		t.Error("Close should cancel in-flight fetches")
	}

	ctrl.OnFilterChange(query.FilterSet{"team": "core"})
	fetcher.expectNone(t)

	if err := ctrl.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
}

func TestController_Snapshot(t *testing.T) {
	fetcher := newScriptedFetcher()
	ctrl := newTestController(t, fetcher)

	ctrl.OnInit()
	fetcher.next(t).reply <- reply{page: Page[int]{Items: seq(0, 9), Total: 20}}
	ctrl.Wait()

	snap := ctrl.Snapshot()
	snap.Items[0] = 99

	if ctrl.Items()[0] != 0 {
		t.Error("Snapshot shares item storage with the controller")
	}
	if snap.Generation != 1 || snap.Total != 20 || snap.Sort != "name" {
		t.Errorf("Snapshot = generation %d total %d sort %q", snap.Generation, snap.Total, snap.Sort)
	}
}
