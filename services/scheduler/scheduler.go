// Package scheduler runs background jobs on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"

	"github.com/sadhanaschool/backend/core"
)

// Job is a unit of background work. The context is cancelled when the scheduler stops.
type Job func(ctx context.Context) error

type Scheduler struct {
	cron   *cron.Cron
	logger core.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu    sync.Mutex
	names map[cron.EntryID]string
}

func New(logger core.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithChain(cron.Recover(cronLogger{logger}), cron.SkipIfStillRunning(cronLogger{logger})),
		),
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
		names:  make(map[cron.EntryID]string),
	}
}

// Add schedules job under name. An empty spec leaves the job disabled.
func (s *Scheduler) Add(name, spec string, job Job) error {
	if spec == "" {
		s.logger.Info(fmt.Sprintf("scheduler: %s disabled", name))
		return nil
	}
	id, err := s.cron.AddFunc(spec, s.wrap(name, job))
	if err != nil {
		return errors.Wrapf(err, "scheduling %s", name)
	}
	s.mu.Lock()
	s.names[id] = name
	s.mu.Unlock()
	return nil
}

func (s *Scheduler) wrap(name string, job Job) func() {
	return func() {
		start := core.NowFunc()
		if err := job(s.ctx); err != nil {
			s.logger.Error(fmt.Sprintf("scheduler: %s failed: %v", name, err), err)
			return
		}
		s.logger.Info(fmt.Sprintf("scheduler: %s done in %s", name, core.NowFunc().Sub(start)))
	}
}

// Jobs returns the names of the scheduled jobs.
func (s *Scheduler) Jobs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.names))
	for _, e := range s.cron.Entries() {
		names = append(names, s.names[e.ID])
	}
	return names
}

// Done is closed once the scheduler stops.
func (s *Scheduler) Done() <-chan struct{} {
	return s.ctx.Done()
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops scheduling and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.cancel()
		return nil
	case <-ctx.Done():
		s.cancel()
		return errors.Wrap(ctx.Err(), "waiting for running jobs")
	}
}

// cronLogger reports cron's own messages through core.Logger.
type cronLogger struct {
	logger core.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append([]interface{}{err}, keysAndValues...)...)
}
