package reminder

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const DefaultSchedule = "*/15 * * * *"

// Runner triggers sweeps on a cron schedule inside the process. Overlapping
// ticks are skipped.
type Runner struct {
	scheduler *Scheduler
	cron      *cron.Cron
	timeout   time.Duration
	now       func() time.Time
	log       *zap.Logger

	mu      sync.Mutex
	running bool
}

func NewRunner(scheduler *Scheduler, schedule string, timeout time.Duration, log *zap.Logger) (*Runner, error) {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}

	cl := cronLogger{log: log.Sugar()}
	r := &Runner{
		scheduler: scheduler,
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		timeout: timeout,
		now:     time.Now,
		log:     log,
	}

	if _, err := r.cron.AddFunc(schedule, r.tick); err != nil {
		return nil, fmt.Errorf("invalid reminder schedule %q: %w", schedule, err)
	}
	return r, nil
}

func (r *Runner) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return
	}
	r.cron.Start()
	r.running = true
	r.log.Info("Reminder schedule started", zap.Int("entries", len(r.cron.Entries())))
}

// Stop halts the schedule and waits for a running sweep to finish or ctx to
// expire.
func (r *Runner) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	r.running = false
	r.mu.Unlock()

	done := r.cron.Stop()
	select {
	case <-done.Done():
		r.log.Info("Reminder schedule stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Runner) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	if _, err := r.scheduler.Sweep(ctx, r.now()); err != nil {
		r.log.Error("Scheduled reminder sweep failed", zap.Error(err))
	}
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	log *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Errorw(msg, append(keysAndValues, "error", err)...)
}
