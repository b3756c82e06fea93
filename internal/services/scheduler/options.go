package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/ticketero-io/ticketero/internal/models"
)

// Narrow views of the service layer, so tests can stub each job's
// collaborators independently.
type messageDispatcher interface {
	DispatchDue(ctx context.Context, limit int) (sent, failed int, err error)
	PurgeDelivered(ctx context.Context, cutoff time.Time) (int64, error)
}

type ticketSweeper interface {
	RefreshQueueSnapshots(ctx context.Context) error
}

type queueDispatcher interface {
	DispatchAll(ctx context.Context) (int, error)
}

type statusCache interface {
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
}

type options struct {
	Logger     *log.Logger
	Cron       *cron.Cron
	Parser     cron.Parser
	Jobs       []*models.ScheduledJob
	Location   *time.Location
	Cache      statusCache
	Now        func() time.Time
	Tickets    ticketSweeper
	Assignment queueDispatcher
	Notifier   messageDispatcher
}

// Option applies configuration to the scheduler service.
type Option func(*options)

func defaultOptions() options {
	return options{
		Logger:   log.Default(),
		Location: time.UTC,
		Parser: cron.NewParser(
			cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
		),
		Now: time.Now,
	}
}

// WithLogger injects a custom logger implementation.
func WithLogger(l *log.Logger) Option {
	return func(o *options) {
		o.Logger = l
	}
}

// WithCron supplies a preconfigured cron scheduler instance.
func WithCron(c *cron.Cron) Option {
	return func(o *options) {
		o.Cron = c
	}
}

// WithCronParser allows replacing the cron expression parser.
func WithCronParser(p cron.Parser) Option {
	return func(o *options) {
		o.Parser = p
	}
}

// WithJobs registers explicit job definitions instead of defaults.
func WithJobs(jobs []*models.ScheduledJob) Option {
	return func(o *options) {
		o.Jobs = jobs
	}
}

// WithLocation sets the scheduler timezone location.
func WithLocation(loc *time.Location) Option {
	return func(o *options) {
		o.Location = loc
	}
}

// WithCache injects the Redis/Valkey cache client used for the last-run
// markers.
func WithCache(c statusCache) Option {
	return func(o *options) {
		o.Cache = c
	}
}

// WithNow overrides the clock, for tests.
func WithNow(now func() time.Time) Option {
	return func(o *options) {
		o.Now = now
	}
}

// WithTicketSweeper injects the service behind the queue sweep job.
func WithTicketSweeper(t ticketSweeper) Option {
	return func(o *options) {
		o.Tickets = t
	}
}

// WithQueueDispatcher injects the service that offers tickets to idle
// advisors.
func WithQueueDispatcher(d queueDispatcher) Option {
	return func(o *options) {
		o.Assignment = d
	}
}

// WithMessageDispatcher injects the service behind the message dispatch
// and housekeeping jobs.
func WithMessageDispatcher(m messageDispatcher) Option {
	return func(o *options) {
		o.Notifier = m
	}
}
