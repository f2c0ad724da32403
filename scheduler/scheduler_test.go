package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/RailOpsData/adaptive-signal-open-data/feed"
	"github.com/RailOpsData/adaptive-signal-open-data/ingest"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type runnerCall struct {
	method   string
	static   int
	realtime int
	kinds    []feed.Kind
	at       time.Time
}

// scriptedRunner records calls and advances the fake clock by cycleCost
// to simulate ingestion taking wall-clock time.
type scriptedRunner struct {
	mu        sync.Mutex
	clock     *fakeClock
	cycleCost time.Duration
	calls     []runnerCall
	panics    bool
}

func (r *scriptedRunner) IngestAll(ctx context.Context, static, realtime []feed.Descriptor, kinds ...feed.Kind) ingest.Results {
	return r.record("all", static, realtime, kinds)
}

func (r *scriptedRunner) IngestRealtimeFeeds(ctx context.Context, descriptors []feed.Descriptor, kinds ...feed.Kind) ingest.Results {
	return r.record("realtime", nil, descriptors, kinds)
}

func (r *scriptedRunner) record(method string, static, realtime []feed.Descriptor, kinds []feed.Kind) ingest.Results {
	r.mu.Lock()
	r.calls = append(r.calls, runnerCall{method, len(static), len(realtime), kinds, r.clock.Now()})
	r.mu.Unlock()
	if r.panics {
		panic("runner exploded")
	}
	r.clock.Advance(r.cycleCost)
	var results ingest.Results
	for _, d := range static {
		results = append(results, ingest.Outcome{Descriptor: d, Succeeded: true})
	}
	for _, d := range realtime {
		results = append(results, ingest.Outcome{Descriptor: d, Succeeded: true})
	}
	return results
}

func (r *scriptedRunner) callLog() []runnerCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]runnerCall{}, r.calls...)
}

type recordingObserver struct {
	mu      sync.Mutex
	reports []CycleReport
}

func (o *recordingObserver) ObserveCycle(r CycleReport) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.reports = append(o.reports, r)
}

type harness struct {
	clock  *fakeClock
	runner *scriptedRunner
	sleeps []time.Duration
	sched  *Scheduler
}

// newHarness wires a scheduler to a fake clock and a sleep stub that
// advances the clock and stops the loop after the given cycle count.
func newHarness(opts Options, static, realtime []feed.Descriptor, cycleCost time.Duration, cycles int) *harness {
	h := &harness{clock: newFakeClock()}
	h.runner = &scriptedRunner{clock: h.clock, cycleCost: cycleCost}
	h.sched = New(h.runner, static, realtime, opts)
	h.sched.now = h.clock.Now
	remaining := cycles
	h.sched.sleep = func(ctx context.Context, d time.Duration) bool {
		h.sleeps = append(h.sleeps, d)
		h.clock.Advance(d)
		remaining--
		return remaining > 0
	}
	return h
}

func realtimeDescriptors() []feed.Descriptor {
	return []feed.Descriptor{
		{URL: "https://a.example.com/rt", Kind: feed.TripUpdates},
		{URL: "https://b.example.com/rt", Kind: feed.VehiclePositions},
	}
}

func TestRunMaintainsCadence(t *testing.T) {
	h := newHarness(Options{Interval: 20 * time.Second}, nil, realtimeDescriptors(), 3*time.Second, 3)

	h.sched.Run(context.Background())

	if len(h.sleeps) != 3 {
		t.Fatalf("expected 3 sleeps, got %d", len(h.sleeps))
	}
	for i, d := range h.sleeps {
		if d != 17*time.Second {
			t.Errorf("sleep %d: expected 17s to compensate for a 3s cycle, got %s", i, d)
		}
	}

	calls := h.runner.callLog()
	if len(calls) != 3 {
		t.Fatalf("expected 3 cycles, got %d", len(calls))
	}
	base := calls[0].at
	for i, call := range calls {
		want := base.Add(time.Duration(i) * 20 * time.Second)
		if !call.at.Equal(want) {
			t.Errorf("cycle %d started at %v, expected %v", i, call.at, want)
		}
	}

	t.Logf("✓ %d cycles held a 20s start-to-start cadence", len(calls))
}

func TestRunOverrunningCycleSleepsZero(t *testing.T) {
	h := newHarness(Options{Interval: 20 * time.Second}, nil, realtimeDescriptors(), 25*time.Second, 2)

	h.sched.Run(context.Background())

	for i, d := range h.sleeps {
		if d != 0 {
			t.Errorf("sleep %d: expected 0 when the cycle overruns the interval, got %s", i, d)
		}
	}
}

func TestRunQuietHoursSkipFanOutButSleep(t *testing.T) {
	obs := &recordingObserver{}
	opts := Options{
		Interval: 20 * time.Second,
		Quiet:    QuietWindow{start: 11 * 60, end: 13 * 60, loc: time.UTC, set: true},
		Observer: obs,
	}
	h := newHarness(opts, nil, realtimeDescriptors(), 3*time.Second, 2)

	h.sched.Run(context.Background())

	if calls := h.runner.callLog(); len(calls) != 0 {
		t.Errorf("expected zero ingestion calls inside the quiet window, got %d", len(calls))
	}
	if len(h.sleeps) != 2 {
		t.Fatalf("expected the loop to keep sleeping, got %d sleeps", len(h.sleeps))
	}
	for i, d := range h.sleeps {
		if d != 20*time.Second {
			t.Errorf("sleep %d: expected the full interval, got %s", i, d)
		}
	}
	if len(obs.reports) != 2 {
		t.Fatalf("expected 2 cycle reports, got %d", len(obs.reports))
	}
	for i, r := range obs.reports {
		if !r.Skipped {
			t.Errorf("report %d: expected Skipped", i)
		}
		if len(r.Outcomes) != 0 {
			t.Errorf("report %d: expected no outcomes, got %d", i, len(r.Outcomes))
		}
	}

	t.Logf("✓ Quiet window skipped %d cycles without stopping the loop", len(obs.reports))
}

func TestRunStaticOnFirstCycleOnly(t *testing.T) {
	static := []feed.Descriptor{{URL: "https://a.example.com/gtfs.zip", Kind: feed.Static}}
	h := newHarness(Options{Interval: 20 * time.Second, StaticOnFirstCycle: true}, static, realtimeDescriptors(), time.Second, 3)

	h.sched.Run(context.Background())

	calls := h.runner.callLog()
	if len(calls) != 3 {
		t.Fatalf("expected 3 cycles, got %d", len(calls))
	}
	if calls[0].method != "all" || calls[0].static != 1 {
		t.Errorf("first cycle should include the static refresh, got %s with %d static feeds", calls[0].method, calls[0].static)
	}
	for i, call := range calls[1:] {
		if call.method != "realtime" {
			t.Errorf("cycle %d: expected realtime-only, got %s", i+1, call.method)
		}
	}
}

func TestRunWithoutStaticOption(t *testing.T) {
	static := []feed.Descriptor{{URL: "https://a.example.com/gtfs.zip", Kind: feed.Static}}
	h := newHarness(Options{Interval: 20 * time.Second}, static, realtimeDescriptors(), time.Second, 2)

	h.sched.Run(context.Background())

	for i, call := range h.runner.callLog() {
		if call.method != "realtime" {
			t.Errorf("cycle %d: expected realtime-only, got %s", i, call.method)
		}
	}
}

func TestRunPassesKindFilter(t *testing.T) {
	opts := Options{Interval: 20 * time.Second, Kinds: []feed.Kind{feed.TripUpdates}}
	h := newHarness(opts, nil, realtimeDescriptors(), time.Second, 1)

	h.sched.Run(context.Background())

	calls := h.runner.callLog()
	if len(calls) != 1 {
		t.Fatalf("expected 1 cycle, got %d", len(calls))
	}
	if len(calls[0].kinds) != 1 || calls[0].kinds[0] != feed.TripUpdates {
		t.Errorf("expected the kind filter to reach the runner, got %v", calls[0].kinds)
	}
}

func TestRunFullRefreshRepeatsCombinedIngestion(t *testing.T) {
	static := []feed.Descriptor{{URL: "https://a.example.com/gtfs.zip", Kind: feed.Static}}
	opts := Options{
		Interval: 20 * time.Second,
		// The full-refresh loop ignores the quiet window even when the
		// clock sits inside it.
		Quiet: QuietWindow{start: 11 * 60, end: 13 * 60, loc: time.UTC, set: true},
		Kinds: []feed.Kind{feed.TripUpdates},
	}
	h := newHarness(opts, static, realtimeDescriptors(), time.Second, 2)

	h.sched.RunFullRefresh(context.Background())

	calls := h.runner.callLog()
	if len(calls) != 2 {
		t.Fatalf("expected 2 cycles, got %d", len(calls))
	}
	for i, call := range calls {
		if call.method != "all" {
			t.Errorf("cycle %d: expected combined ingestion, got %s", i, call.method)
		}
		if call.static != 1 || call.realtime != 2 {
			t.Errorf("cycle %d: expected all feeds, got %d static %d realtime", i, call.static, call.realtime)
		}
		if len(call.kinds) != 0 {
			t.Errorf("cycle %d: full refresh must not filter kinds, got %v", i, call.kinds)
		}
	}
}

func TestRunStopsWhenAlreadyCancelled(t *testing.T) {
	h := newHarness(Options{Interval: 20 * time.Second}, nil, realtimeDescriptors(), time.Second, 5)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	h.sched.Run(ctx)

	if calls := h.runner.callLog(); len(calls) != 0 {
		t.Errorf("expected no cycles after cancellation, got %d", len(calls))
	}
	if len(h.sleeps) != 0 {
		t.Errorf("expected no sleeps after cancellation, got %d", len(h.sleeps))
	}
}

func TestRunSurvivesPanickingCycles(t *testing.T) {
	h := newHarness(Options{Interval: 20 * time.Second}, nil, realtimeDescriptors(), time.Second, 3)
	h.runner.panics = true

	h.sched.Run(context.Background())

	if calls := h.runner.callLog(); len(calls) != 3 {
		t.Errorf("expected the loop to keep attempting cycles, got %d", len(calls))
	}
}

func TestRunNotifiesObserver(t *testing.T) {
	obs := &recordingObserver{}
	h := newHarness(Options{Interval: 20 * time.Second, Observer: obs}, nil, realtimeDescriptors(), 3*time.Second, 2)

	h.sched.Run(context.Background())

	if len(obs.reports) != 2 {
		t.Fatalf("expected 2 reports, got %d", len(obs.reports))
	}
	for i, r := range obs.reports {
		if r.Skipped {
			t.Errorf("report %d: unexpected Skipped", i)
		}
		if got := r.Outcomes.Successes(); got != 2 {
			t.Errorf("report %d: expected 2 successes, got %d", i, got)
		}
		if r.Duration() != 3*time.Second {
			t.Errorf("report %d: expected 3s duration, got %s", i, r.Duration())
		}
	}
}

func TestSleepContext(t *testing.T) {
	if !sleepContext(context.Background(), 0) {
		t.Error("zero sleep on a live context should continue the loop")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if sleepContext(ctx, 0) {
		t.Error("zero sleep on a cancelled context should stop the loop")
	}
	if sleepContext(ctx, time.Minute) {
		t.Error("cancelled context should interrupt the sleep")
	}

	start := time.Now()
	if !sleepContext(context.Background(), 10*time.Millisecond) {
		t.Error("expected the sleep to complete")
	}
	if time.Since(start) < 10*time.Millisecond {
		t.Error("sleep returned before the requested duration")
	}
}
