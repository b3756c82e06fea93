package service

import (
	"context"
	"log"
	"time"

	"github.com/ticketero-io/ticketero/internal/models"
	"github.com/ticketero-io/ticketero/internal/repository"
)

// AuditService records state changes for operator visibility. Recording is
// best effort: a failed audit write is logged and swallowed so it never
// blocks the operation that produced it.
type AuditService struct {
	repo   repository.AuditRepository
	logger *log.Logger
	now    func() time.Time
}

// NewAuditService creates a new audit service.
func NewAuditService(repo repository.AuditRepository, logger *log.Logger) *AuditService {
	if logger == nil {
		logger = log.Default()
	}
	return &AuditService{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

// Record persists one audit event.
func (s *AuditService) Record(ctx context.Context, event models.AuditEvent) {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = s.now()
	}
	if event.Actor == "" {
		event.Actor = "system"
	}
	if err := s.repo.Insert(ctx, &event); err != nil {
		s.logger.Printf("audit: failed to record %s for %s %d: %v",
			event.EventType, event.EntityType, event.EntityID, err)
	}
}

// TicketEvent records a ticket lifecycle event.
func (s *AuditService) TicketEvent(ctx context.Context, eventType string, ticket *models.Ticket, description string) {
	s.Record(ctx, models.AuditEvent{
		EventType:   eventType,
		EntityType:  models.EntityTicket,
		EntityID:    ticket.ID,
		NewValue:    string(ticket.Status),
		Description: description,
	})
}

// AdvisorStatusChange records an advisor availability transition.
func (s *AuditService) AdvisorStatusChange(ctx context.Context, advisorID int64, from, to models.AdvisorStatus) {
	s.Record(ctx, models.AuditEvent{
		EventType:  models.EventAdvisorStatusChanged,
		EntityType: models.EntityAdvisor,
		EntityID:   advisorID,
		OldValue:   string(from),
		NewValue:   string(to),
	})
}

// MessageEvent records a delivery outcome for a scheduled message.
func (s *AuditService) MessageEvent(ctx context.Context, eventType string, message *models.Message, description string) {
	s.Record(ctx, models.AuditEvent{
		EventType:   eventType,
		EntityType:  models.EntityMessage,
		EntityID:    message.ID,
		NewValue:    string(message.Status),
		Description: description,
	})
}

// RecentEvents returns the newest audit entries for the dashboard feed.
func (s *AuditService) RecentEvents(ctx context.Context, limit int) ([]*models.AuditEvent, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.repo.ListRecent(ctx, limit)
}
