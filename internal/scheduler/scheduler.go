// Package scheduler owns the persistent job table and the timer/tick
// machinery that dispatches jobs to the rest of the core (spec §4.E).
// Grounded on aristath-sentinel/internal/queue/scheduler.go's
// start/stop/waitgroup shape and trader-go/internal/scheduler/scheduler.go's
// use of robfig/cron/v3 for expression parsing.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/marketwatch/agentcore/internal/clock"
	"github.com/marketwatch/agentcore/internal/coreerr"
	"github.com/marketwatch/agentcore/internal/domain"
	"github.com/marketwatch/agentcore/internal/store"
)

// Dispatcher runs one job's payload. The concrete switch over
// PayloadKind lives outside this package (in the wiring layer) so
// Scheduler never imports the engines it drives.
type Dispatcher interface {
	Dispatch(ctx context.Context, job domain.CronJob) error
}

// DefaultIntervalsMS configures the bootstrap defaults for the four
// built-in jobs (spec §4.E step 2). Zero disables that job.
type DefaultIntervalsMS struct {
	AlertScanMS     int64
	PortfolioSyncMS int64
	DailyDigestMS   int64
	StopLossScanMS  int64
}

const tickInterval = 60 * time.Second

// Scheduler owns the job table and its timers.
type Scheduler struct {
	db         *store.DB
	dispatcher Dispatcher
	clock      clock.Clock
	log        zerolog.Logger
	defaults   DefaultIntervalsMS

	mu      sync.Mutex
	running map[string]bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
	started bool
}

func New(db *store.DB, dispatcher Dispatcher, clk clock.Clock, log zerolog.Logger, defaults DefaultIntervalsMS) *Scheduler {
	return &Scheduler{
		db:         db,
		dispatcher: dispatcher,
		clock:      clk,
		log:        log.With().Str("component", "scheduler").Logger(),
		defaults:   defaults,
		running:    make(map[string]bool),
	}
}

// Start loads jobs, bootstraps defaults, schedules each enabled job's
// next-run timer, and begins the 60s catch-up tick loop (spec §4.E).
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = true
	s.stopCh = make(chan struct{})
	s.mu.Unlock()

	if err := s.bootstrapDefaults(ctx); err != nil {
		return fmt.Errorf("bootstrap default jobs: %w", err)
	}

	jobs, err := s.db.ListCronJobs(ctx)
	if err != nil {
		return fmt.Errorf("load jobs: %w", err)
	}

	now := s.clock.Now()
	for _, j := range jobs {
		j := j
		if !j.Enabled {
			continue
		}
		s.recoverFromCrash(&j, now)
		s.scheduleNext(ctx, j, now)
	}

	s.wg.Add(1)
	go s.tickLoop(ctx)
	return nil
}

// Stop signals the tick loop and in-flight timers to exit and waits for
// them to drain.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	close(s.stopCh)
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Scheduler) bootstrapDefaults(ctx context.Context) error {
	defs := []struct {
		name       string
		payload    domain.PayloadKind
		intervalMS int64
	}{
		{"AlertScan", domain.PayloadAlertScan, s.defaults.AlertScanMS},
		{"PortfolioSync", domain.PayloadPortfolioSync, s.defaults.PortfolioSyncMS},
		{"DailyDigest", domain.PayloadDailyDigest, s.defaults.DailyDigestMS},
		{"StopLossScan", domain.PayloadStopLossScan, s.defaults.StopLossScanMS},
	}

	for _, d := range defs {
		if d.intervalMS <= 0 {
			continue
		}
		existing, err := s.findByName(ctx, d.name)
		if err == nil {
			_ = existing
			continue
		}
		now := s.clock.Now().UnixMilli()
		job := domain.CronJob{
			ID:      uuid.NewString(),
			Name:    d.name,
			Enabled: true,
			Schedule: domain.Schedule{
				Kind:     domain.ScheduleEvery,
				PeriodMS: d.intervalMS,
				AnchorMS: now,
			},
			Payload: domain.Payload{Kind: d.payload},
		}
		if err := s.db.UpsertCronJob(ctx, job, now); err != nil {
			return err
		}
	}
	return nil
}

func (s *Scheduler) findByName(ctx context.Context, name string) (domain.CronJob, error) {
	jobs, err := s.db.ListCronJobs(ctx)
	if err != nil {
		return domain.CronJob{}, err
	}
	for _, j := range jobs {
		if j.Name == name {
			return j, nil
		}
	}
	return domain.CronJob{}, coreerr.ErrStoreNotFound
}

// recoverFromCrash clears a stale RunningAtMS and recomputes NextRunAtMS
// from LastRunAtMS if present, else from now (spec §4.E crash recovery).
func (s *Scheduler) recoverFromCrash(j *domain.CronJob, now time.Time) {
	if j.State.RunningAtMS == nil {
		return
	}
	j.State.RunningAtMS = nil
	base := now
	if j.State.LastRunAtMS != nil {
		base = time.UnixMilli(*j.State.LastRunAtMS)
	}
	next := NextRun(j.Schedule, base)
	j.State.NextRunAtMS = &next
}

func (s *Scheduler) scheduleNext(ctx context.Context, j domain.CronJob, now time.Time) {
	next := NextRun(j.Schedule, now)
	if next < 0 {
		return
	}
	delay := time.UnixMilli(next).Sub(now)
	if delay < 0 {
		delay = 0
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		select {
		case <-s.clock.After(delay):
			s.runJob(ctx, j.ID)
		case <-s.stopCh:
		}
	}()
}

// tickLoop catches up any job whose NextRunAtMS has already passed and
// which isn't currently running (spec §4.E step 4).
func (s *Scheduler) tickLoop(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case <-s.stopCh:
			return
		case <-s.clock.After(tickInterval):
			s.catchUp(ctx)
		}
	}
}

func (s *Scheduler) catchUp(ctx context.Context) {
	jobs, err := s.db.ListCronJobs(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("tick: list jobs failed")
		return
	}
	now := s.clock.Now().UnixMilli()
	for _, j := range jobs {
		if !j.Enabled || j.State.NextRunAtMS == nil {
			continue
		}
		if *j.State.NextRunAtMS > now {
			continue
		}
		if s.isRunning(j.ID) {
			continue
		}
		s.runJob(ctx, j.ID)
	}
}

func (s *Scheduler) isRunning(jobID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running[jobID]
}

func (s *Scheduler) setRunning(jobID string, v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v {
		s.running[jobID] = true
	} else {
		delete(s.running, jobID)
	}
}

// runJob enforces the at-most-one-concurrent-run-per-id guard, invokes
// the Dispatcher, and persists every state transition (spec §4.E
// Execution/Concurrency).
func (s *Scheduler) runJob(ctx context.Context, jobID string) {
	if s.isRunning(jobID) {
		return
	}
	s.setRunning(jobID, true)
	defer s.setRunning(jobID, false)

	job, err := s.db.GetCronJob(ctx, jobID)
	if err != nil {
		s.log.Warn().Err(err).Str("job_id", jobID).Msg("runJob: job disappeared")
		return
	}

	now := s.clock.Now()
	nowMS := now.UnixMilli()
	job.State.RunningAtMS = &nowMS
	_ = s.db.UpsertCronJob(ctx, job, nowMS)

	start := now
	runErr := s.dispatcher.Dispatch(ctx, job)
	durMS := s.clock.Now().Sub(start).Milliseconds()

	job.State.RunningAtMS = nil
	job.State.LastRunAtMS = &nowMS
	job.State.LastDurationMS = durMS
	run := domain.JobRun{JobID: job.ID, StartedAt: nowMS, DurationMS: durMS}

	if runErr != nil {
		job.State.LastStatus = domain.JobStatusError
		job.State.LastError = runErr.Error()
		run.Status = domain.JobStatusError
		run.Error = runErr.Error()
		s.log.Warn().Err(runErr).Str("job_id", job.ID).Str("job_name", job.Name).Msg("job run failed")
	} else {
		job.State.LastStatus = domain.JobStatusOK
		job.State.LastError = ""
		run.Status = domain.JobStatusOK
	}
	_ = s.db.AppendJobRun(ctx, run)

	if job.Schedule.Kind == domain.ScheduleAt && job.DeleteAfterRun {
		_ = s.db.DeleteCronJob(ctx, job.ID)
		return
	}

	next := NextRun(job.Schedule, s.clock.Now())
	if next < 0 {
		job.State.NextRunAtMS = nil
		_ = s.db.UpsertCronJob(ctx, job, nowMS)
		return
	}
	job.State.NextRunAtMS = &next
	if err := s.db.UpsertCronJob(ctx, job, nowMS); err != nil {
		s.log.Warn().Err(err).Str("job_id", job.ID).Msg("persist reschedule failed")
		return
	}
	s.scheduleNext(ctx, job, s.clock.Now())
}

// AddJob upserts a job definition and, if the scheduler is already
// running and the job is enabled, arms its timer immediately.
func (s *Scheduler) AddJob(ctx context.Context, job domain.CronJob) error {
	now := s.clock.Now()
	nowMS := now.UnixMilli()
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	next := NextRun(job.Schedule, now)
	if next >= 0 {
		job.State.NextRunAtMS = &next
	}
	if err := s.db.UpsertCronJob(ctx, job, nowMS); err != nil {
		return err
	}

	s.mu.Lock()
	running := s.started
	s.mu.Unlock()
	if running && job.Enabled && next >= 0 {
		s.scheduleNext(ctx, job, now)
	}
	return nil
}
