package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/t77yq/vigencias-bridge/internal/model"
)

var testZone = time.FixedZone("CST", -6*60*60)

// Monday 19 October 2026
func at(hour, minute int) time.Time {
	return time.Date(2026, time.October, 19, hour, minute, 0, 0, testZone)
}

func weekdayConfig(times ...string) model.ScheduleConfig {
	return model.ScheduleConfig{
		Enabled: true,
		Times:   times,
		Days:    []string{"monday", "tuesday", "wednesday", "thursday", "friday"},
	}
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

func newEngine(t *testing.T, clock *fakeClock, opts ...Option) (*TriggerEngine, *[]time.Time) {
	t.Helper()
	var fired []time.Time
	opts = append([]Option{
		WithClock(clock.Now),
		OnFired(func(at time.Time) { fired = append(fired, at) }),
	}, opts...)
	e := NewTriggerEngine(zaptest.NewLogger(t), opts...)
	t.Cleanup(e.Shutdown)
	return e, &fired
}

func TestDecide(t *testing.T) {
	prevHour := at(8, 30)
	sameHour := at(9, 0).Add(-time.Second + time.Minute)
	tests := []struct {
		name   string
		config model.ScheduleConfig
		now    time.Time
		want   Decision
	}{
		{name: "disabled", config: model.ScheduleConfig{Times: []string{"09:00"}, Days: []string{"monday"}}, now: at(9, 0), want: DecisionDisabled},
		{name: "match", config: weekdayConfig("09:00"), now: at(9, 0), want: DecisionFire},
		{name: "wrong minute", config: weekdayConfig("09:00"), now: at(9, 1), want: DecisionNoMatch},
		{name: "wrong day", config: model.ScheduleConfig{Enabled: true, Times: []string{"09:00"}, Days: []string{"sunday"}}, now: at(9, 0), want: DecisionNoMatch},
		{name: "malformed time", config: weekdayConfig("9:00", "25:00", "garbage"), now: at(9, 0), want: DecisionNoMatch},
		{name: "fired this hour", config: withLast(weekdayConfig("09:00"), sameHour), now: at(9, 0), want: DecisionAlreadyFired},
		{name: "fired previous hour", config: withLast(weekdayConfig("09:00"), prevHour), now: at(9, 0), want: DecisionFire},
		{name: "same hour other zone", config: withLast(weekdayConfig("09:00"), at(9, 0).UTC()), now: at(9, 0), want: DecisionAlreadyFired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Decide(tt.config, tt.now))
		})
	}
}

func withLast(c model.ScheduleConfig, last time.Time) model.ScheduleConfig {
	c.LastExecution = &last
	return c
}

func TestTriggerEngine_FiresOncePerHour(t *testing.T) {
	clock := &fakeClock{now: at(9, 0)}
	e, fired := newEngine(t, clock)

	var calls int32
	job := func(ctx context.Context) error {
		atomic.AddInt32(&calls, 1)
		return nil
	}
	require.NoError(t, e.Start(context.Background(), weekdayConfig("09:00"), job))

	e.tick(context.Background())
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	require.Len(t, *fired, 1)
	assert.Equal(t, at(9, 0), (*fired)[0])
	require.NotNil(t, e.Config().LastExecution)
	assert.Equal(t, at(9, 0), *e.Config().LastExecution)

	// same minute again
	e.tick(context.Background())
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestTriggerEngine_CrossHourRearm(t *testing.T) {
	clock := &fakeClock{now: at(10, 0)}
	e, fired := newEngine(t, clock)

	var calls int32
	job := func(ctx context.Context) error {
		atomic.AddInt32(&calls, 1)
		return nil
	}
	cfg := withLast(weekdayConfig("09:00", "10:00"), at(9, 0))
	require.NoError(t, e.Start(context.Background(), cfg, job))

	e.tick(context.Background())
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Len(t, *fired, 1)
}

func TestTriggerEngine_DisabledIsNoop(t *testing.T) {
	clock := &fakeClock{now: at(9, 0)}
	e, _ := newEngine(t, clock)

	var calls int32
	cfg := weekdayConfig("09:00")
	cfg.Enabled = false
	require.NoError(t, e.Start(context.Background(), cfg, func(ctx context.Context) error {
		atomic.AddInt32(&calls, 1)
		return nil
	}))

	assert.False(t, e.Running())
	e.tick(context.Background())
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestTriggerEngine_FailureLeavesSlotEligible(t *testing.T) {
	clock := &fakeClock{now: at(9, 0)}
	e, fired := newEngine(t, clock)

	var calls int32
	require.NoError(t, e.Start(context.Background(), weekdayConfig("09:00"), func(ctx context.Context) error {
		atomic.AddInt32(&calls, 1)
		return errors.New("copy failed")
	}))

	e.tick(context.Background())
	e.tick(context.Background())
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.Empty(t, *fired)
	assert.Nil(t, e.Config().LastExecution)
}

func TestTriggerEngine_FailureSuppressedWithoutRetry(t *testing.T) {
	clock := &fakeClock{now: at(9, 0)}
	e, _ := newEngine(t, clock, WithRetryOnFailure(false))

	var calls int32
	require.NoError(t, e.Start(context.Background(), weekdayConfig("09:00", "09:30", "10:00"), func(ctx context.Context) error {
		atomic.AddInt32(&calls, 1)
		return errors.New("copy failed")
	}))

	e.tick(context.Background())
	clock.Set(at(9, 30))
	e.tick(context.Background())
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	clock.Set(at(10, 0))
	e.tick(context.Background())
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestTriggerEngine_PanicIsRecovered(t *testing.T) {
	clock := &fakeClock{now: at(9, 0)}
	e, fired := newEngine(t, clock)

	require.NoError(t, e.Start(context.Background(), weekdayConfig("09:00"), func(ctx context.Context) error {
		panic("boom")
	}))

	assert.NotPanics(t, func() { e.tick(context.Background()) })
	assert.Empty(t, *fired)
}

func TestTriggerEngine_StartStop(t *testing.T) {
	clock := &fakeClock{now: at(9, 0)}
	e, _ := newEngine(t, clock)
	job := func(ctx context.Context) error { return nil }

	assert.ErrorIs(t, e.Start(context.Background(), weekdayConfig("09:00"), nil), ErrNilJob)

	require.NoError(t, e.Start(context.Background(), weekdayConfig("09:00"), job))
	first := e.cron
	require.NoError(t, e.Start(context.Background(), weekdayConfig("09:00"), job))
	assert.True(t, e.Running())
	assert.NotSame(t, first, e.cron)
	assert.Len(t, e.cron.Entries(), 1)

	e.Stop()
	assert.False(t, e.Running())
	e.Stop()

	cfg := weekdayConfig("09:00")
	cfg.Enabled = false
	require.NoError(t, e.Start(context.Background(), weekdayConfig("09:00"), job))
	require.NoError(t, e.Reconfigure(context.Background(), cfg))
	assert.False(t, e.Running())
}

func TestTriggerEngine_TimerDrivesTicks(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping timer test")
	}

	clock := &fakeClock{now: at(9, 0)}
	e, _ := newEngine(t, clock, WithInterval(time.Second))

	var calls int32
	require.NoError(t, e.Start(context.Background(), weekdayConfig("09:00"), func(ctx context.Context) error {
		atomic.AddInt32(&calls, 1)
		return nil
	}))

	assert.Eventually(t, func() bool { return atomic.LoadInt32(&calls) == 1 }, 3*time.Second, 50*time.Millisecond)
	time.Sleep(1500 * time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestTriggerEngine_ShutdownWaitsForRunningJob(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping timer test")
	}

	clock := &fakeClock{now: at(9, 0)}
	e, _ := newEngine(t, clock, WithInterval(time.Second))

	started := make(chan struct{})
	var once sync.Once
	var finished atomic.Bool
	require.NoError(t, e.Start(context.Background(), weekdayConfig("09:00"), func(ctx context.Context) error {
		once.Do(func() { close(started) })
		<-ctx.Done()
		// outcome bookkeeping after cancellation
		time.Sleep(200 * time.Millisecond)
		finished.Store(true)
		return ctx.Err()
	}))

	select {
	case <-started:
	case <-time.After(3 * time.Second):
		t.Fatal("job did not start")
	}

	e.Shutdown()
	assert.True(t, finished.Load())
	assert.False(t, e.Running())
}

func TestTriggerEngine_StopLetsRunningJobFinish(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping timer test")
	}

	clock := &fakeClock{now: at(9, 0)}
	e, _ := newEngine(t, clock, WithInterval(time.Second))

	jobCtx := make(chan context.Context, 1)
	release := make(chan struct{})
	require.NoError(t, e.Start(context.Background(), weekdayConfig("09:00"), func(ctx context.Context) error {
		jobCtx <- ctx
		<-release
		return nil
	}))

	var ctx context.Context
	select {
	case ctx = <-jobCtx:
	case <-time.After(3 * time.Second):
		t.Fatal("job did not start")
	}

	idle := e.Stop()
	assert.NoError(t, ctx.Err())
	assert.NoError(t, idle.Err())

	close(release)
	assert.Eventually(t, func() bool { return idle.Err() != nil }, 2*time.Second, 10*time.Millisecond)
}

func TestTriggerEngine_ReconfigureReusesRunContext(t *testing.T) {
	clock := &fakeClock{now: at(8, 0)}
	e, _ := newEngine(t, clock)
	job := func(ctx context.Context) error { return nil }

	parent, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, e.Start(parent, weekdayConfig("09:00"), job))
	first := e.runCtx
	require.NotNil(t, first)

	for i := 0; i < 3; i++ {
		require.NoError(t, e.Reconfigure(parent, weekdayConfig("09:00", "10:00")))
		assert.True(t, first == e.runCtx)
	}
	assert.NoError(t, first.Err())

	e.Shutdown()
	assert.ErrorIs(t, first.Err(), context.Canceled)
	assert.Nil(t, e.runCtx)

	require.NoError(t, e.Start(parent, weekdayConfig("09:00"), job))
	assert.NoError(t, e.runCtx.Err())
}

func TestTriggerEngine_ReconfigureWaitsForRunningJob(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping timer test")
	}

	clock := &fakeClock{now: at(9, 0)}
	e, _ := newEngine(t, clock, WithInterval(time.Second))

	var calls int32
	started := make(chan struct{})
	release := make(chan struct{})
	require.NoError(t, e.Start(context.Background(), weekdayConfig("09:00"), func(ctx context.Context) error {
		if atomic.AddInt32(&calls, 1) == 1 {
			close(started)
			<-release
		}
		return nil
	}))

	select {
	case <-started:
	case <-time.After(3 * time.Second):
		t.Fatal("job did not start")
	}

	require.NoError(t, e.Reconfigure(context.Background(), weekdayConfig("09:00")))
	time.Sleep(1500 * time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	close(release)
	assert.Eventually(t, func() bool {
		last := e.Config().LastExecution
		return last != nil && last.Equal(at(9, 0))
	}, 2*time.Second, 10*time.Millisecond)
	time.Sleep(1500 * time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestNextFireTime(t *testing.T) {
	monday := model.ScheduleConfig{Enabled: true, Times: []string{"09:00"}, Days: []string{"monday"}}

	next, ok := NextFireTime(monday, at(8, 0))
	require.True(t, ok)
	assert.Equal(t, at(9, 0), next)

	next, ok = NextFireTime(monday, at(9, 0).Add(time.Second))
	require.True(t, ok)
	assert.Equal(t, at(9, 0).AddDate(0, 0, 7), next)

	disabled := monday
	disabled.Enabled = false
	_, ok = NextFireTime(disabled, at(8, 0))
	assert.False(t, ok)

	_, ok = NextFireTime(model.ScheduleConfig{Enabled: true, Times: []string{"bad"}, Days: []string{"monday"}}, at(8, 0))
	assert.False(t, ok)
}

func TestNextFireTime_InsertionOrderWins(t *testing.T) {
	cfg := model.ScheduleConfig{Enabled: true, Times: []string{"18:00", "09:00"}, Days: []string{"monday"}}

	next, ok := NextFireTime(cfg, at(8, 0))
	require.True(t, ok)
	assert.Equal(t, at(18, 0), next)
}

func TestNextFireTime_SkipsUnconfiguredDays(t *testing.T) {
	cfg := model.ScheduleConfig{Enabled: true, Times: []string{"07:15"}, Days: []string{"thursday"}}

	next, ok := NextFireTime(cfg, at(8, 0))
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, time.October, 22, 7, 15, 0, 0, testZone), next)
}

func TestFormatNextFire(t *testing.T) {
	assert.Equal(t, "lunes, 19 de octubre de 2026, 09:00", FormatNextFire(at(9, 0), true, LocaleES))
	assert.Equal(t, "Monday, October 19, 2026 at 09:00", FormatNextFire(at(9, 0), true, LocaleEN))
	assert.Equal(t, "No programado", FormatNextFire(time.Time{}, false, LocaleES))
	assert.Equal(t, "Not scheduled", FormatNextFire(time.Time{}, false, LocaleEN))

	wed := time.Date(2026, time.December, 23, 18, 5, 0, 0, testZone)
	assert.Equal(t, "miércoles, 23 de diciembre de 2026, 18:05", FormatNextFire(wed, true, LocaleES))
	assert.Equal(t, "Wednesday, December 23, 2026 at 18:05", FormatNextFire(wed, true, LocaleEN))

	clock := &fakeClock{now: at(8, 0)}
	e, _ := newEngine(t, clock)
	assert.Equal(t, "No programado", e.FormatNextExecution(LocaleES))
	require.NoError(t, e.Start(context.Background(), weekdayConfig("09:00"), func(ctx context.Context) error { return nil }))
	assert.Equal(t, "lunes, 19 de octubre de 2026, 09:00", e.FormatNextExecution(LocaleES))
}
