package scheduler

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/RailOpsData/adaptive-signal-open-data/feed"
	"github.com/RailOpsData/adaptive-signal-open-data/ingest"
)

// DefaultInterval is the cycle cadence used when none is configured.
const DefaultInterval = 20 * time.Second

// Runner is the slice of the ingestion pipeline the scheduler drives.
// *ingest.Ingestor satisfies it.
type Runner interface {
	IngestAll(ctx context.Context, static, realtime []feed.Descriptor, kinds ...feed.Kind) ingest.Results
	IngestRealtimeFeeds(ctx context.Context, descriptors []feed.Descriptor, kinds ...feed.Kind) ingest.Results
}

// CycleReport summarizes one scheduler iteration, including iterations
// suppressed by the quiet window.
type CycleReport struct {
	StartedAt  time.Time
	FinishedAt time.Time
	Skipped    bool
	Outcomes   ingest.Results
}

func (r CycleReport) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// CycleObserver receives the report of every completed iteration.
type CycleObserver interface {
	ObserveCycle(report CycleReport)
}

// Options configures a Scheduler.
type Options struct {
	// Interval between cycle starts. Zero or negative means DefaultInterval.
	Interval time.Duration
	// Kinds restricts realtime ingestion to the given feed kinds.
	// Empty means all configured realtime feeds.
	Kinds []feed.Kind
	// Quiet suppresses ingestion while the cycle start time falls inside
	// the window. The zero value never suppresses.
	Quiet QuietWindow
	// StaticOnFirstCycle runs a full static refresh before the realtime
	// fan-out of the first cycle.
	StaticOnFirstCycle bool
	// Observer, when set, is notified after every iteration.
	Observer CycleObserver
}

// Scheduler repeats ingestion cycles until its context is cancelled.
type Scheduler struct {
	runner   Runner
	static   []feed.Descriptor
	realtime []feed.Descriptor
	opts     Options

	// stubbed in tests
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) bool
}

func New(runner Runner, static, realtime []feed.Descriptor, opts Options) *Scheduler {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	return &Scheduler{
		runner:   runner,
		static:   static,
		realtime: realtime,
		opts:     opts,
		now:      time.Now,
		sleep:    sleepContext,
	}
}

// Run executes realtime ingestion cycles at the configured cadence. The
// first cycle optionally includes a static refresh, and cycles that start
// inside the quiet window are skipped without disturbing the cadence.
// Run returns once ctx is cancelled; cancellation is observed between
// iterations, so an in-flight cycle finishes first.
func (s *Scheduler) Run(ctx context.Context) {
	s.loop(ctx, false)
}

// RunFullRefresh repeats combined static plus realtime ingestion every
// cycle. It honors the cadence but not the quiet window, the kind filter,
// or the first-cycle distinction.
func (s *Scheduler) RunFullRefresh(ctx context.Context) {
	s.loop(ctx, true)
}

func (s *Scheduler) loop(ctx context.Context, fullRefresh bool) {
	log.WithFields(log.Fields{
		"interval":       s.opts.Interval.String(),
		"static_feeds":   len(s.static),
		"realtime_feeds": len(s.realtime),
		"quiet_hours":    s.opts.Quiet.String(),
	}).Info("Starting ingestion scheduler")

	first := true
	for {
		if ctx.Err() != nil {
			log.Info("Ingestion scheduler stopped")
			return
		}

		start := s.now()
		s.iterate(ctx, start, first, fullRefresh)
		first = false

		wait := s.opts.Interval - s.now().Sub(start)
		if wait < 0 {
			wait = 0
		}
		if !s.sleep(ctx, wait) {
			log.Info("Ingestion scheduler stopped")
			return
		}
	}
}

// iterate runs one guarded cycle. A panic escaping the runner or the
// observer is logged and absorbed so the loop keeps its cadence.
func (s *Scheduler) iterate(ctx context.Context, start time.Time, first, fullRefresh bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("Ingestion cycle failed: %v", r)
		}
	}()

	report := CycleReport{StartedAt: start}
	switch {
	case fullRefresh:
		report.Outcomes = s.runner.IngestAll(ctx, s.static, s.realtime)
	case s.opts.Quiet.Contains(start):
		report.Skipped = true
		log.WithField("window", s.opts.Quiet.String()).Info("Quiet hours, skipping cycle")
	case first && s.opts.StaticOnFirstCycle:
		report.Outcomes = s.runner.IngestAll(ctx, s.static, s.realtime, s.opts.Kinds...)
	default:
		report.Outcomes = s.runner.IngestRealtimeFeeds(ctx, s.realtime, s.opts.Kinds...)
	}
	report.FinishedAt = s.now()

	if !report.Skipped {
		log.WithFields(log.Fields{
			"succeeded": report.Outcomes.Successes(),
			"feeds":     len(report.Outcomes),
			"elapsed":   report.Duration().Round(time.Millisecond).String(),
		}).Info("Ingestion cycle complete")
	}
	if s.opts.Observer != nil {
		s.opts.Observer.ObserveCycle(report)
	}
}

func sleepContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
