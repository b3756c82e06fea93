package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ticketero-io/ticketero/internal/models"
	"github.com/ticketero-io/ticketero/internal/notifications"
	"github.com/ticketero-io/ticketero/internal/repository"
)

// NotificationService schedules customer messages and dispatches the due
// ones. Scheduling writes a PENDING row; delivery happens later from the
// dispatch sweep, so a provider outage never blocks ticket operations.
type NotificationService struct {
	messages repository.MessageRepository
	tickets  repository.TicketRepository
	sender   notifications.Sender
	audit    *AuditService
	logger   *log.Logger
	now      func() time.Time
}

// NewNotificationService creates a new notification service.
func NewNotificationService(
	messages repository.MessageRepository,
	tickets repository.TicketRepository,
	sender notifications.Sender,
	audit *AuditService,
	logger *log.Logger,
) *NotificationService {
	if logger == nil {
		logger = log.Default()
	}
	return &NotificationService{
		messages: messages,
		tickets:  tickets,
		sender:   sender,
		audit:    audit,
		logger:   logger,
		now:      time.Now,
	}
}

// ScheduleConfirmation queues the ticket-created confirmation. Tickets
// without a contact phone are skipped silently.
func (s *NotificationService) ScheduleConfirmation(ctx context.Context, ticket *models.Ticket, position, waitMinutes int) error {
	if !ticket.HasContact() {
		return nil
	}
	content := notifications.RenderTemplate(models.TemplateTicketCreated, notifications.TemplateContext{
		TicketNumber:         ticket.TicketNumber,
		QueueDisplayName:     ticket.QueueType.DisplayName(),
		QueuePosition:        position,
		EstimatedWaitMinutes: waitMinutes,
	})
	return s.schedule(ctx, ticket.ID, models.TemplateTicketCreated, content)
}

// SchedulePreNotice queues the near-front warning at most once per ticket.
func (s *NotificationService) SchedulePreNotice(ctx context.Context, ticket *models.Ticket, position int) error {
	if !ticket.HasContact() {
		return nil
	}
	already, err := s.messages.Exists(ctx, ticket.ID, models.TemplatePreNotice)
	if err != nil {
		return fmt.Errorf("check pre-notice for ticket %d: %w", ticket.ID, err)
	}
	if already {
		return nil
	}
	content := notifications.RenderTemplate(models.TemplatePreNotice, notifications.TemplateContext{
		TicketNumber:  ticket.TicketNumber,
		QueuePosition: position,
	})
	return s.schedule(ctx, ticket.ID, models.TemplatePreNotice, content)
}

// ScheduleTurnActive queues the your-turn call with the advisor's desk.
func (s *NotificationService) ScheduleTurnActive(ctx context.Context, ticket *models.Ticket, advisor *models.Advisor) error {
	if !ticket.HasContact() {
		return nil
	}
	content := notifications.RenderTemplate(models.TemplateTurnActive, notifications.TemplateContext{
		TicketNumber: ticket.TicketNumber,
		AdvisorName:  advisor.Name,
		ModuleNumber: advisor.ModuleNumber,
	})
	return s.schedule(ctx, ticket.ID, models.TemplateTurnActive, content)
}

func (s *NotificationService) schedule(ctx context.Context, ticketID int64, template models.MessageTemplate, content string) error {
	message := &models.Message{
		TicketID:    ticketID,
		Template:    template,
		Content:     content,
		Status:      models.MessageStatusPending,
		ScheduledAt: s.now(),
		CreatedAt:   s.now(),
	}
	if err := s.messages.Create(ctx, message); err != nil {
		return fmt.Errorf("schedule %s for ticket %d: %w", template, ticketID, err)
	}
	return nil
}

// DispatchDue sends every PENDING message whose scheduled time has passed.
// A failed send reschedules the message with backoff until the attempt
// ceiling, after which it is FAILED permanently. Returns how many messages
// were sent and how many attempts failed this run.
func (s *NotificationService) DispatchDue(ctx context.Context, limit int) (sent, failed int, err error) {
	due, err := s.messages.FindDue(ctx, s.now(), limit)
	if err != nil {
		return 0, 0, fmt.Errorf("find due messages: %w", err)
	}

	for _, message := range due {
		if err := ctx.Err(); err != nil {
			return sent, failed, err
		}
		if s.dispatchOne(ctx, message) {
			sent++
		} else {
			failed++
		}
	}
	return sent, failed, nil
}

func (s *NotificationService) dispatchOne(ctx context.Context, message *models.Message) bool {
	ticket, err := s.tickets.GetByID(ctx, message.TicketID)
	if err != nil {
		s.logger.Printf("dispatch: message %d references missing ticket %d: %v", message.ID, message.TicketID, err)
		s.failAttempt(ctx, message, fmt.Sprintf("ticket lookup failed: %v", err))
		return false
	}

	providerID, sendErr := s.sender.Send(ctx, ticket.CustomerPhone, message.Content)
	if sendErr != nil {
		s.logger.Printf("dispatch: message %d attempt %d failed: %v", message.ID, message.Attempts+1, sendErr)
		s.failAttempt(ctx, message, sendErr.Error())
		return false
	}

	sentAt := s.now()
	if err := s.messages.MarkSent(ctx, message.ID, sentAt, providerID); err != nil {
		s.logger.Printf("dispatch: message %d sent but not recorded: %v", message.ID, err)
		return false
	}
	message.Status = models.MessageStatusSent
	if s.audit != nil {
		s.audit.MessageEvent(ctx, models.EventMessageDelivered, message,
			fmt.Sprintf("%s delivered to ticket %s", message.Template, ticket.TicketNumber))
	}
	return true
}

// failAttempt bumps the attempt counter and either reschedules with backoff
// or marks the message FAILED once the ceiling is hit.
func (s *NotificationService) failAttempt(ctx context.Context, message *models.Message, reason string) {
	attempts := message.Attempts + 1

	status := models.MessageStatusPending
	nextAttempt := s.now().Add(models.RetryBackoff(attempts))
	if attempts >= models.MaxDeliveryAttempts {
		status = models.MessageStatusFailed
		nextAttempt = message.ScheduledAt
	}

	if err := s.messages.RecordFailure(ctx, message.ID, attempts, status, nextAttempt); err != nil {
		s.logger.Printf("dispatch: message %d failure not recorded: %v", message.ID, err)
		return
	}
	message.Attempts = attempts
	message.Status = status

	if status == models.MessageStatusFailed && s.audit != nil {
		s.audit.MessageEvent(ctx, models.EventMessageFailed, message,
			fmt.Sprintf("%s gave up after %d attempts: %s", message.Template, attempts, reason))
	}
}

// PurgeDelivered deletes SENT and FAILED messages older than the cutoff,
// returning how many rows went away. Used by housekeeping.
func (s *NotificationService) PurgeDelivered(ctx context.Context, cutoff time.Time) (int64, error) {
	return s.messages.DeleteTerminalOlderThan(ctx, cutoff)
}
