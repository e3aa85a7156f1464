// Package scheduler runs periodic maintenance jobs on asynq. Cron entries are
// registered with an asynq scheduler and delivered to an in-process server
// that invokes the registered callback.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hibiken/asynq"
	"github.com/immxrtalbeast/tempvoice/lib/logger/sl"
)

const (
	taskPrefix = "tempvoice:job:"
	queue      = "maintenance"
)

var ErrJobExists = errors.New("job already scheduled")

// Job is a scheduled callback.
type Job func(ctx context.Context) error

type entry struct {
	name    string
	fn      Job
	entryID string
	running atomic.Bool
	stopped atomic.Bool
}

type Scheduler struct {
	scheduler *asynq.Scheduler
	server    *asynq.Server
	mux       *asynq.ServeMux
	log       *slog.Logger

	mu   sync.Mutex
	jobs map[string]*entry
	wg   sync.WaitGroup
}

func New(redisOpt asynq.RedisConnOpt, log *slog.Logger) *Scheduler {
	if log == nil {
		log = slog.Default()
	}
	log = log.With(slog.String("component", "scheduler"))

	return &Scheduler{
		scheduler: asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{
			Location: time.UTC,
			PostEnqueueFunc: func(info *asynq.TaskInfo, err error) {
				if err != nil {
					log.Warn("failed to enqueue job", sl.Err(err))
				}
			},
		}),
		server: asynq.NewServer(redisOpt, asynq.Config{
			Concurrency: 4,
			Queues:      map[string]int{queue: 1},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				log.Error("job failed", slog.String("task_type", task.Type()), sl.Err(err))
			}),
		}),
		mux:  asynq.NewServeMux(),
		log:  log,
		jobs: make(map[string]*entry),
	}
}

// Schedule registers fn under a cron spec. With immediate set fn also runs
// once right away. The returned stop function suppresses future runs; a run in
// progress is not interrupted.
func (s *Scheduler) Schedule(name, spec string, fn Job, immediate bool) (func(), error) {
	const op = "scheduler.schedule"

	s.mu.Lock()
	if _, ok := s.jobs[name]; ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("%s: %w: %s", op, ErrJobExists, name)
	}
	e := &entry{name: name, fn: fn}
	s.jobs[name] = e
	s.mu.Unlock()

	taskType := taskPrefix + name
	s.mux.HandleFunc(taskType, func(ctx context.Context, _ *asynq.Task) error {
		s.run(ctx, e)
		return nil
	})

	entryID, err := s.scheduler.Register(spec, asynq.NewTask(taskType, nil),
		asynq.Queue(queue),
		asynq.MaxRetry(0),
	)
	if err != nil {
		s.mu.Lock()
		delete(s.jobs, name)
		s.mu.Unlock()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	e.entryID = entryID

	s.log.Info("job registered",
		slog.String("job", name),
		slog.String("spec", spec),
		slog.String("entry_id", entryID),
	)

	if immediate {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.run(context.Background(), e)
		}()
	}

	return func() { s.stop(e) }, nil
}

// After runs fn once after delay unless ctx is done first.
func (s *Scheduler) After(ctx context.Context, name string, delay time.Duration, fn Job) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
		s.run(ctx, &entry{name: name, fn: fn})
	}()
}

// Run executes a registered job now, honouring the overlap guard. It reports
// whether the job actually ran.
func (s *Scheduler) Run(ctx context.Context, name string) (bool, error) {
	s.mu.Lock()
	e, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return false, fmt.Errorf("scheduler.run: unknown job %q", name)
	}
	return s.run(ctx, e), nil
}

func (s *Scheduler) run(ctx context.Context, e *entry) bool {
	log := s.log.With(slog.String("job", e.name))

	if e.stopped.Load() {
		return false
	}
	if !e.running.CompareAndSwap(false, true) {
		log.Warn("previous run still in progress, skipping tick")
		return false
	}
	defer e.running.Store(false)

	start := time.Now()
	if err := e.fn(ctx); err != nil {
		log.Error("job failed", slog.Duration("took", time.Since(start)), sl.Err(err))
		return true
	}
	log.Debug("job finished", slog.Duration("took", time.Since(start)))
	return true
}

func (s *Scheduler) stop(e *entry) {
	if e.stopped.Swap(true) {
		return
	}
	if e.entryID != "" {
		if err := s.scheduler.Unregister(e.entryID); err != nil {
			s.log.Debug("failed to unregister job", slog.String("job", e.name), sl.Err(err))
		}
	}
	s.log.Info("job stopped", slog.String("job", e.name))
}

// Start begins delivering cron ticks.
func (s *Scheduler) Start() error {
	if err := s.server.Start(s.mux); err != nil {
		return fmt.Errorf("scheduler.start: server: %w", err)
	}
	if err := s.scheduler.Start(); err != nil {
		s.server.Shutdown()
		return fmt.Errorf("scheduler.start: scheduler: %w", err)
	}
	return nil
}

// Shutdown stops every job and waits for in-flight one-off runs.
func (s *Scheduler) Shutdown() {
	s.mu.Lock()
	jobs := make([]*entry, 0, len(s.jobs))
	for _, e := range s.jobs {
		jobs = append(jobs, e)
	}
	s.mu.Unlock()

	for _, e := range jobs {
		s.stop(e)
	}
	s.scheduler.Shutdown()
	s.server.Shutdown()
	s.wg.Wait()
}
