package scheduler

import (
	"context"
	"strconv"
	"strings"

	"github.com/ticketero-io/ticketero/internal/models"
)

func (s *Service) registerBuiltinHandlers() {
	s.RegisterHandler("message.dispatch", s.handleMessageDispatch)
	s.RegisterHandler("queue.sweep", s.handleQueueSweep)
	s.RegisterHandler("scheduler.housekeeping", s.handleHousekeeping)
}

// handleMessageDispatch sends every due notification.
func (s *Service) handleMessageDispatch(ctx context.Context, job *models.ScheduledJob) error {
	if s.notifier == nil {
		s.logger.Printf("scheduler: notification service unavailable, skipping dispatch")
		return nil
	}

	limit := intFromConfig(job.Config, "batch_limit", 50)
	done := globalSweepMetrics().recordDispatchRun()
	defer done()

	sent, failed, err := s.notifier.DispatchDue(ctx, limit)
	if err != nil {
		return err
	}
	globalSweepMetrics().recordDispatchResults(sent, failed)
	if sent > 0 || failed > 0 {
		s.logger.Printf("scheduler: dispatch sent %d message(s), %d attempt(s) failed", sent, failed)
	}
	return nil
}

// handleQueueSweep refreshes queue standings, fires pre-notices and offers
// tickets to advisors that went idle while their queue was empty.
func (s *Service) handleQueueSweep(ctx context.Context, job *models.ScheduledJob) error {
	done := globalSweepMetrics().recordSweepRun()
	defer done()

	if s.tickets != nil {
		if err := s.tickets.RefreshQueueSnapshots(ctx); err != nil {
			return err
		}
	}
	if s.assignment != nil {
		assigned, err := s.assignment.DispatchAll(ctx)
		if err != nil {
			return err
		}
		if assigned > 0 {
			s.logger.Printf("scheduler: sweep assigned %d ticket(s)", assigned)
		}
	}
	return nil
}

// handleHousekeeping purges delivered and dead messages past the retention
// window.
func (s *Service) handleHousekeeping(ctx context.Context, job *models.ScheduledJob) error {
	if s.notifier == nil {
		s.logger.Printf("scheduler: notification service unavailable, skipping housekeeping")
		return nil
	}

	retentionDays := intFromConfig(job.Config, "retention_days", 7)
	cutoff := s.now().AddDate(0, 0, -retentionDays)

	removed, err := s.notifier.PurgeDelivered(ctx, cutoff)
	if err != nil {
		return err
	}
	if removed > 0 {
		s.logger.Printf("scheduler: housekeeping removed %d message(s) older than %d day(s)", removed, retentionDays)
	}
	return nil
}

func defaultJobs() []*models.ScheduledJob {
	return DefaultJobs(0, 0)
}

// DefaultJobs returns the built-in job set. Non-positive batchLimit or
// retentionDays fall back to the standard values.
func DefaultJobs(batchLimit, retentionDays int) []*models.ScheduledJob {
	if batchLimit <= 0 {
		batchLimit = 50
	}
	if retentionDays <= 0 {
		retentionDays = 7
	}
	return []*models.ScheduledJob{
		{
			Name:           "Message Dispatch",
			Slug:           "message-dispatch",
			Handler:        "message.dispatch",
			Schedule:       "@every 60s",
			TimeoutSeconds: 55,
			Config: map[string]any{
				"batch_limit": batchLimit,
			},
		},
		{
			Name:           "Queue Sweep",
			Slug:           "queue-sweep",
			Handler:        "queue.sweep",
			Schedule:       "@every 30s",
			TimeoutSeconds: 25,
		},
		{
			Name:           "Scheduler Housekeeping",
			Slug:           "scheduler-housekeeping",
			Handler:        "scheduler.housekeeping",
			Schedule:       "0 0 2 * * *",
			TimeoutSeconds: 600,
			Config: map[string]any{
				"retention_days": retentionDays,
			},
		},
	}
}

func intFromConfig(cfg map[string]any, key string, def int) int {
	if cfg == nil {
		return def
	}
	val, ok := cfg[key]
	if !ok {
		return def
	}
	switch v := val.(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err == nil {
			return n
		}
	}
	return def
}
