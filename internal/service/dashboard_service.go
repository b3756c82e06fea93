package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/ticketero-io/ticketero/internal/models"
	"github.com/ticketero-io/ticketero/internal/queue"
	"github.com/ticketero-io/ticketero/internal/repository"
)

// Alert thresholds for the branch supervisor view.
const (
	criticalWaitingThreshold = 15
	dashboardCacheKey        = "dashboard:summary"
	dashboardCacheTTL        = 10 * time.Second
)

// SummaryCache is the subset of the cache client the dashboard needs.
type SummaryCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
}

// QueueStats is the live state of one queue.
type QueueStats struct {
	QueueType            models.QueueType `json:"queue_type"`
	DisplayName          string           `json:"display_name"`
	Waiting              int              `json:"waiting"`
	InProgress           int              `json:"in_progress"`
	AvailableAdvisors    int              `json:"available_advisors"`
	AverageTimeMinutes   int              `json:"average_time_minutes"`
	EstimatedWaitMinutes int              `json:"estimated_wait_minutes"`
}

// Alert flags a queue needing supervisor attention.
type Alert struct {
	Severity  string           `json:"severity"`
	QueueType models.QueueType `json:"queue_type"`
	Message   string           `json:"message"`
}

// DashboardSummary is the full supervisor snapshot.
type DashboardSummary struct {
	GeneratedAt     time.Time    `json:"generated_at"`
	Queues          []QueueStats `json:"queues"`
	TotalWaiting    int          `json:"total_waiting"`
	TotalInProgress int          `json:"total_in_progress"`
	PendingMessages int          `json:"pending_messages"`
	FailedMessages  int          `json:"failed_messages"`
	Alerts          []Alert      `json:"alerts"`
}

// DashboardService aggregates queue, advisor and delivery state for the
// supervisor view. Summaries are cached briefly because the dashboard
// polls faster than the numbers meaningfully change.
type DashboardService struct {
	tickets  repository.TicketRepository
	advisors repository.AdvisorRepository
	messages repository.MessageRepository
	cache    SummaryCache
	logger   *log.Logger
	now      func() time.Time
}

// NewDashboardService creates a new dashboard service. cache may be nil,
// in which case every call recomputes.
func NewDashboardService(
	tickets repository.TicketRepository,
	advisors repository.AdvisorRepository,
	messages repository.MessageRepository,
	cache SummaryCache,
	logger *log.Logger,
) *DashboardService {
	if logger == nil {
		logger = log.Default()
	}
	return &DashboardService{
		tickets:  tickets,
		advisors: advisors,
		messages: messages,
		cache:    cache,
		logger:   logger,
		now:      time.Now,
	}
}

// Summary returns the current snapshot, from cache when fresh.
func (s *DashboardService) Summary(ctx context.Context) (*DashboardSummary, error) {
	if s.cache != nil {
		if raw, err := s.cache.Get(ctx, dashboardCacheKey); err == nil {
			var cached DashboardSummary
			if err := json.Unmarshal([]byte(raw), &cached); err == nil {
				return &cached, nil
			}
			s.logger.Printf("dashboard: discarding unparseable cached summary")
		}
	}

	summary, err := s.build(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if raw, err := json.Marshal(summary); err == nil {
			if err := s.cache.Set(ctx, dashboardCacheKey, string(raw), dashboardCacheTTL); err != nil {
				s.logger.Printf("dashboard: summary not cached: %v", err)
			}
		}
	}
	return summary, nil
}

func (s *DashboardService) build(ctx context.Context) (*DashboardSummary, error) {
	summary := &DashboardSummary{
		GeneratedAt: s.now(),
		Alerts:      []Alert{},
	}

	for _, info := range models.AllQueueTypes() {
		waiting, err := s.tickets.CountByStatusAndQueueType(ctx, models.TicketStatusWaiting, info.Name)
		if err != nil {
			return nil, fmt.Errorf("count waiting for %s: %w", info.Name, err)
		}
		inProgress, err := s.tickets.CountByStatusAndQueueType(ctx, models.TicketStatusInProgress, info.Name)
		if err != nil {
			return nil, fmt.Errorf("count in-progress for %s: %w", info.Name, err)
		}
		available, err := s.advisors.CountByStatusAndQueueType(ctx, models.AdvisorStatusAvailable, info.Name)
		if err != nil {
			return nil, fmt.Errorf("count advisors for %s: %w", info.Name, err)
		}

		stats := QueueStats{
			QueueType:          info.Name,
			DisplayName:        info.DisplayName,
			Waiting:            waiting,
			InProgress:         inProgress,
			AvailableAdvisors:  available,
			AverageTimeMinutes: info.AverageTimeMinutes,
			EstimatedWaitMinutes: queue.EstimatedWaitMinutes(
				queue.Position(waiting), info.AverageTimeMinutes, available),
		}
		summary.Queues = append(summary.Queues, stats)
		summary.TotalWaiting += waiting
		summary.TotalInProgress += inProgress

		if waiting > criticalWaitingThreshold {
			summary.Alerts = append(summary.Alerts, Alert{
				Severity:  "critical",
				QueueType: info.Name,
				Message:   fmt.Sprintf("%s has %d customers waiting", info.DisplayName, waiting),
			})
		} else if waiting > 0 && available == 0 {
			summary.Alerts = append(summary.Alerts, Alert{
				Severity:  "warning",
				QueueType: info.Name,
				Message:   fmt.Sprintf("%s has waiting customers and no available advisor", info.DisplayName),
			})
		}
	}

	pending, err := s.messages.CountByStatus(ctx, models.MessageStatusPending)
	if err != nil {
		return nil, fmt.Errorf("count pending messages: %w", err)
	}
	failed, err := s.messages.CountByStatus(ctx, models.MessageStatusFailed)
	if err != nil {
		return nil, fmt.Errorf("count failed messages: %w", err)
	}
	summary.PendingMessages = pending
	summary.FailedMessages = failed

	return summary, nil
}
