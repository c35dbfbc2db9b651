package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketwatch/agentcore/internal/clock"
	"github.com/marketwatch/agentcore/internal/domain"
	"github.com/marketwatch/agentcore/internal/store"
)

func newTestDB(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.Open(store.Config{Path: "file::memory:?cache=shared&_busy_timeout=5000"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

type recordingDispatcher struct {
	mu    sync.Mutex
	calls []domain.CronJob
	err   error
}

func (d *recordingDispatcher) Dispatch(_ context.Context, job domain.CronJob) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, job)
	return d.err
}

func (d *recordingDispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.calls)
}

func TestScheduler_BootstrapsDefaultJobs(t *testing.T) {
	db := newTestDB(t)
	clk := clock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	disp := &recordingDispatcher{}
	s := New(db, disp, clk, zerolog.Nop(), DefaultIntervalsMS{
		AlertScanMS:     30_000,
		PortfolioSyncMS: 3_600_000,
		DailyDigestMS:   300_000,
		StopLossScanMS:  120_000,
	})

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	jobs, err := db.ListCronJobs(context.Background())
	require.NoError(t, err)
	assert.Len(t, jobs, 4)

	names := map[string]bool{}
	for _, j := range jobs {
		names[j.Name] = true
		assert.True(t, j.Enabled)
		assert.Equal(t, domain.ScheduleEvery, j.Schedule.Kind)
	}
	assert.True(t, names["AlertScan"])
	assert.True(t, names["PortfolioSync"])
	assert.True(t, names["DailyDigest"])
	assert.True(t, names["StopLossScan"])
}

func TestScheduler_DisabledDefaultIntervalSkipsJob(t *testing.T) {
	db := newTestDB(t)
	clk := clock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	disp := &recordingDispatcher{}
	s := New(db, disp, clk, zerolog.Nop(), DefaultIntervalsMS{AlertScanMS: 30_000})

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	jobs, err := db.ListCronJobs(context.Background())
	require.NoError(t, err)
	assert.Len(t, jobs, 1)
	assert.Equal(t, "AlertScan", jobs[0].Name)
}

func TestScheduler_RunsJobOnTimerAndReschedules(t *testing.T) {
	db := newTestDB(t)
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clk := clock.NewFake(start)
	disp := &recordingDispatcher{}
	s := New(db, disp, clk, zerolog.Nop(), DefaultIntervalsMS{AlertScanMS: 30_000})

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	clk.Advance(31 * time.Second)
	assert.Eventually(t, func() bool { return disp.count() >= 1 }, time.Second, time.Millisecond)

	jobs, err := db.ListCronJobs(context.Background())
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, domain.JobStatusOK, jobs[0].State.LastStatus)
	require.NotNil(t, jobs[0].State.NextRunAtMS)
	assert.Greater(t, *jobs[0].State.NextRunAtMS, clk.Now().UnixMilli())
}

func TestScheduler_FailedDispatchRecordsError(t *testing.T) {
	db := newTestDB(t)
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clk := clock.NewFake(start)
	disp := &recordingDispatcher{err: assertErr("boom")}
	s := New(db, disp, clk, zerolog.Nop(), DefaultIntervalsMS{AlertScanMS: 30_000})

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	clk.Advance(31 * time.Second)
	assert.Eventually(t, func() bool { return disp.count() >= 1 }, time.Second, time.Millisecond)

	jobs, err := db.ListCronJobs(context.Background())
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, domain.JobStatusError, jobs[0].State.LastStatus)
	assert.Equal(t, "boom", jobs[0].State.LastError)
}

func TestScheduler_OneShotAtJobDeletedAfterRun(t *testing.T) {
	db := newTestDB(t)
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clk := clock.NewFake(start)
	disp := &recordingDispatcher{}
	s := New(db, disp, clk, zerolog.Nop(), DefaultIntervalsMS{})

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	job := domain.CronJob{
		Name:    "OneShot",
		Enabled: true,
		Schedule: domain.Schedule{
			Kind: domain.ScheduleAt,
			AtMS: start.Add(10 * time.Second).UnixMilli(),
		},
		Payload:        domain.Payload{Kind: domain.PayloadSystemEvent},
		DeleteAfterRun: true,
	}
	require.NoError(t, s.AddJob(context.Background(), job))

	clk.Advance(11 * time.Second)
	assert.Eventually(t, func() bool { return disp.count() >= 1 }, time.Second, time.Millisecond)
	assert.Eventually(t, func() bool {
		jobs, err := db.ListCronJobs(context.Background())
		return err == nil && len(jobs) == 0
	}, time.Second, time.Millisecond)
}

func TestScheduler_ConcurrentCallsDoNotDoubleRun(t *testing.T) {
	db := newTestDB(t)
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clk := clock.NewFake(start)
	disp := &recordingDispatcher{}
	s := New(db, disp, clk, zerolog.Nop(), DefaultIntervalsMS{})

	job := domain.CronJob{
		ID:      "fixed-id",
		Name:    "Fixed",
		Enabled: true,
		Schedule: domain.Schedule{
			Kind: domain.ScheduleEvery, PeriodMS: 1000, AnchorMS: start.UnixMilli(),
		},
		Payload: domain.Payload{Kind: domain.PayloadSystemEvent},
	}
	require.NoError(t, db.UpsertCronJob(context.Background(), job, start.UnixMilli()))

	s.setRunning("fixed-id", true)
	s.runJob(context.Background(), "fixed-id")
	assert.Equal(t, 0, disp.count())
	s.setRunning("fixed-id", false)
}

type assertErr string

func (e assertErr) Error() string { return string(e) }
