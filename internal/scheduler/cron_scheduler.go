package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/t77yq/vigencias-bridge/internal/model"
)

// JobFunc is the caller-supplied work run when a slot matches.
type JobFunc func(ctx context.Context) error

// FiredFunc receives the tick instant of every job that completed successfully.
// Persisting it is the caller's responsibility.
type FiredFunc func(at time.Time)

// Option configures a TriggerEngine
type Option func(*TriggerEngine)

// WithInterval overrides the evaluation period.
func WithInterval(d time.Duration) Option {
	return func(e *TriggerEngine) {
		if d > 0 {
			e.interval = d
		}
	}
}

// WithClock replaces the wall clock, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(e *TriggerEngine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithRetryOnFailure controls whether a failed job may fire again within the
// same hour bucket.
func WithRetryOnFailure(retry bool) Option {
	return func(e *TriggerEngine) {
		e.retryOnFailure = retry
	}
}

// OnFired registers the completion hook.
func OnFired(fn FiredFunc) Option {
	return func(e *TriggerEngine) {
		e.onFired = fn
	}
}

// TriggerEngine evaluates a ScheduleConfig once per interval and runs the job
// when the current local minute and weekday match a configured slot that has
// not fired in the current hour.
type TriggerEngine struct {
	logger         *zap.Logger
	interval       time.Duration
	now            func() time.Time
	retryOnFailure bool
	onFired        FiredFunc

	mu     sync.Mutex
	cron   *cron.Cron
	runCtx context.Context
	cancel context.CancelFunc
	// done once no job launched by an earlier timer is running
	idle         context.Context
	config       model.ScheduleConfig
	job          JobFunc
	failedBucket string
}

// cronLogger adapts zap.Logger to cron.Logger
type cronLogger struct {
	logger *zap.Logger
}

func (l *cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, zap.Any("details", keysAndValues))
}

func (l *cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, zap.Error(err), zap.Bool("critical", true))
}

// NewTriggerEngine creates a stopped engine.
func NewTriggerEngine(logger *zap.Logger, opts ...Option) *TriggerEngine {
	e := &TriggerEngine{
		logger:         logger.Named("scheduler"),
		interval:       DefaultInterval,
		now:            time.Now,
		retryOnFailure: true,
		idle:           doneContext(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start begins periodic evaluation of config. Any previous run is stopped
// first. A disabled config leaves the engine stopped. The ctx of the first
// Start after construction or Shutdown bounds every job the engine launches
// until the next Shutdown; later calls reuse it. A job still running from the
// previous timer finishes before the new timer evaluates anything.
func (e *TriggerEngine) Start(ctx context.Context, config model.ScheduleConfig, job JobFunc) error {
	if job == nil {
		return ErrNilJob
	}
	e.Stop()

	e.mu.Lock()
	defer e.mu.Unlock()

	e.config = config.Clone()
	e.job = job
	e.failedBucket = ""

	if !config.Enabled {
		e.logger.Info("Scheduler disabled, not arming timer")
		return nil
	}

	cl := &cronLogger{logger: e.logger.Named("cron")}
	c := cron.New(
		cron.WithLocation(time.Local),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	if e.runCtx == nil || e.runCtx.Err() != nil {
		if e.cancel != nil {
			e.cancel()
		}
		e.runCtx, e.cancel = context.WithCancel(ctx)
	}
	runCtx, prev := e.runCtx, e.idle
	c.Schedule(cron.Every(e.interval), cron.FuncJob(func() {
		select {
		case <-prev.Done():
		case <-runCtx.Done():
		}
		if runCtx.Err() != nil {
			return
		}
		e.tick(runCtx)
	}))
	c.Start()
	e.cron = c

	fields := []zap.Field{
		zap.Strings("times", e.config.Times),
		zap.Strings("days", e.config.Days),
		zap.Duration("interval", e.interval),
	}
	if next, ok := NextFireTime(e.config, e.now()); ok {
		fields = append(fields, zap.Time("next_fire", next))
	}
	e.logger.Info("Scheduler started", fields...)
	return nil
}

// Stop halts periodic evaluation without canceling a job that is already
// running. The returned context is done once no job launched by the engine is
// still running. It is safe to call on a stopped engine.
func (e *TriggerEngine) Stop() context.Context {
	e.mu.Lock()
	c := e.cron
	e.cron = nil
	if c != nil {
		e.idle = afterBoth(e.idle, c.Stop())
	}
	idle := e.idle
	e.mu.Unlock()

	if c != nil {
		e.logger.Info("Scheduler stopped")
	}
	return idle
}

// Shutdown stops the timer, cancels any job still running and waits for it
// to return.
func (e *TriggerEngine) Shutdown() {
	e.mu.Lock()
	cancel := e.cancel
	e.runCtx, e.cancel = nil, nil
	e.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	<-e.Stop().Done()
}

// Reconfigure restarts the engine with config and the job from the last Start.
func (e *TriggerEngine) Reconfigure(ctx context.Context, config model.ScheduleConfig) error {
	e.mu.Lock()
	job := e.job
	e.mu.Unlock()
	return e.Start(ctx, config, job)
}

// Running reports whether a timer is armed.
func (e *TriggerEngine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cron != nil
}

// Config returns a copy of the schedule currently held by the engine.
func (e *TriggerEngine) Config() model.ScheduleConfig {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.config.Clone()
}

// NextFireTime returns the next slot of the current config.
func (e *TriggerEngine) NextFireTime() (time.Time, bool) {
	return NextFireTime(e.Config(), e.now())
}

// tick runs one evaluation. The job runs on the calling goroutine; cron gives
// every tick its own goroutine, so the timer keeps its cadence.
func (e *TriggerEngine) tick(ctx context.Context) {
	now := e.now()

	e.mu.Lock()
	cfg := e.config.Clone()
	job := e.job
	failed := e.failedBucket
	e.mu.Unlock()

	decision := Decide(cfg, now)
	if decision == DecisionFire && !e.retryOnFailure && failed == HourBucket(now) {
		decision = DecisionSuppressed
	}
	if decision != DecisionFire {
		if decision == DecisionAlreadyFired || decision == DecisionSuppressed {
			e.logger.Debug("Slot skipped",
				zap.String("time", now.Format(clockLayout)),
				zap.Stringer("decision", decision))
		}
		return
	}

	e.logger.Info("Executing scheduled job", zap.String("time", now.Format(clockLayout)))

	if err := runJob(ctx, job); err != nil {
		e.logger.Error("Scheduled execution failed",
			zap.String("time", now.Format(clockLayout)),
			zap.Error(err))
		if !e.retryOnFailure {
			e.mu.Lock()
			e.failedBucket = HourBucket(now)
			e.mu.Unlock()
		}
		return
	}

	e.markFired(now)
}

func (e *TriggerEngine) markFired(at time.Time) {
	e.mu.Lock()
	last := e.config.LastExecution
	if last == nil || at.After(*last) {
		t := at
		e.config.LastExecution = &t
	}
	e.mu.Unlock()

	e.logger.Info("Scheduled job completed", zap.Time("fired_at", at))
	if e.onFired != nil {
		e.onFired(at)
	}
}

func runJob(ctx context.Context, job JobFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrJobPanicked, r)
		}
	}()
	return job(ctx)
}

func doneContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx
}

// afterBoth returns a context that is done once a and b are.
func afterBoth(a, b context.Context) context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-a.Done()
		<-b.Done()
		cancel()
	}()
	return ctx
}
