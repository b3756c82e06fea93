// Package scheduler runs the recurring branch jobs: message dispatch,
// queue sweeps and housekeeping.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/ticketero-io/ticketero/internal/models"
)

// HandlerFunc executes one scheduled job run.
type HandlerFunc func(ctx context.Context, job *models.ScheduledJob) error

// Service owns the cron engine and the registered job handlers.
type Service struct {
	logger   *log.Logger
	cron     *cron.Cron
	parser   cron.Parser
	location *time.Location
	jobs     []*models.ScheduledJob
	cache    statusCache
	now      func() time.Time

	tickets    ticketSweeper
	assignment queueDispatcher
	notifier   messageDispatcher

	mu       sync.RWMutex
	handlers map[string]HandlerFunc
	entries  map[string]cron.EntryID
	started  bool
}

// NewService builds the scheduler. Jobs default to the built-in set; the
// cron engine defaults to one with second-level resolution so the queue
// sweep can run twice a minute.
func NewService(opts ...Option) *Service {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	s := &Service{
		logger:     o.Logger,
		cron:       o.Cron,
		parser:     o.Parser,
		location:   o.Location,
		jobs:       o.Jobs,
		cache:      o.Cache,
		now:        o.Now,
		tickets:    o.Tickets,
		assignment: o.Assignment,
		notifier:   o.Notifier,
		handlers:   make(map[string]HandlerFunc),
		entries:    make(map[string]cron.EntryID),
	}
	if s.cron == nil {
		s.cron = cron.New(cron.WithLocation(s.location), cron.WithParser(s.parser))
	}
	if s.jobs == nil {
		s.jobs = defaultJobs()
	}
	s.registerBuiltinHandlers()
	return s
}

// RegisterHandler binds a handler name to its implementation. Later
// registrations replace earlier ones.
func (s *Service) RegisterHandler(name string, handler HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[name] = handler
}

// Start schedules every job and starts the cron engine. Jobs with an
// unknown handler or unparseable schedule are skipped with a log line so
// one bad definition cannot take the whole scheduler down.
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}

	for _, job := range s.jobs {
		job := job
		handler, ok := s.handlers[job.Handler]
		if !ok {
			s.logger.Printf("scheduler: job %s references unknown handler %s, skipping", job.Slug, job.Handler)
			continue
		}

		runner := cron.FuncJob(func() { s.runJob(job, handler) })
		entryID, err := s.cron.AddJob(job.Schedule, cron.NewChain(
			cron.SkipIfStillRunning(cron.DiscardLogger),
		).Then(runner))
		if err != nil {
			s.logger.Printf("scheduler: job %s has invalid schedule %q: %v", job.Slug, job.Schedule, err)
			continue
		}
		s.entries[job.Slug] = entryID
	}

	s.cron.Start()
	s.started = true
	s.logger.Printf("scheduler: started with %d job(s)", len(s.entries))
	return nil
}

// Stop halts the cron engine and waits for in-flight jobs to finish.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return nil
	}
	s.started = false

	done := s.cron.Stop().Done()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler stop: %w", ctx.Err())
	}
}

// RunJob executes one job by slug outside its schedule.
func (s *Service) RunJob(ctx context.Context, slug string) error {
	s.mu.RLock()
	var job *models.ScheduledJob
	for _, candidate := range s.jobs {
		if candidate.Slug == slug {
			job = candidate
			break
		}
	}
	var handler HandlerFunc
	if job != nil {
		handler = s.handlers[job.Handler]
	}
	s.mu.RUnlock()

	if job == nil {
		return fmt.Errorf("scheduler: unknown job %q", slug)
	}
	if handler == nil {
		return fmt.Errorf("scheduler: job %q has no handler", slug)
	}
	return s.execute(ctx, job, handler)
}

func (s *Service) runJob(job *models.ScheduledJob, handler HandlerFunc) {
	if err := s.execute(context.Background(), job, handler); err != nil {
		s.logger.Printf("scheduler: job %s failed: %v", job.Slug, err)
	}
}

func (s *Service) execute(ctx context.Context, job *models.ScheduledJob, handler HandlerFunc) error {
	if job.TimeoutSeconds > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(job.TimeoutSeconds)*time.Second)
		defer cancel()
	}

	err := handler(ctx, job)
	s.recordRun(ctx, job, err)
	return err
}

// recordRun leaves a last-run marker in the cache so operators can see job
// liveness without log access.
func (s *Service) recordRun(ctx context.Context, job *models.ScheduledJob, runErr error) {
	if s.cache == nil {
		return
	}
	status := "ok"
	if runErr != nil {
		status = "error"
	}
	value := fmt.Sprintf("%s %s", s.now().UTC().Format(time.RFC3339), status)
	if err := s.cache.Set(ctx, "scheduler:lastrun:"+job.Slug, value, 24*time.Hour); err != nil {
		s.logger.Printf("scheduler: last-run marker for %s not written: %v", job.Slug, err)
	}
}
