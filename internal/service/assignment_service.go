package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/ticketero-io/ticketero/internal/models"
	"github.com/ticketero-io/ticketero/internal/repository"
)

// ErrAdvisorNotAvailable is returned when an assignment is requested for an
// advisor that is busy or offline.
var ErrAdvisorNotAvailable = errors.New("advisor is not available")

// AssignmentService matches waiting tickets to advisors. Both sides of the
// match are taken with conditional updates, so concurrent assigners can
// never hand the same ticket to two advisors or two tickets to one.
type AssignmentService struct {
	tickets       repository.TicketRepository
	advisors      repository.AdvisorRepository
	notifications *NotificationService
	audit         *AuditService
	logger        *log.Logger
	now           func() time.Time
}

// NewAssignmentService creates a new assignment service.
func NewAssignmentService(
	tickets repository.TicketRepository,
	advisors repository.AdvisorRepository,
	notifications *NotificationService,
	audit *AuditService,
	logger *log.Logger,
) *AssignmentService {
	if logger == nil {
		logger = log.Default()
	}
	return &AssignmentService{
		tickets:       tickets,
		advisors:      advisors,
		notifications: notifications,
		audit:         audit,
		logger:        logger,
		now:           time.Now,
	}
}

// AssignNext gives the advisor the oldest waiting ticket from their queue.
// Returns nil with no error when the queue is empty or the advisor was
// reserved by a concurrent assigner; the advisor stays AVAILABLE in both
// cases.
func (s *AssignmentService) AssignNext(ctx context.Context, advisorID int64) (*models.Ticket, error) {
	advisor, err := s.advisors.GetByID(ctx, advisorID)
	if err != nil {
		return nil, err
	}
	if advisor.Status == models.AdvisorStatusOffline {
		return nil, fmt.Errorf("%w: advisor %d is offline", ErrAdvisorNotAvailable, advisorID)
	}

	// Reserve the advisor first. If this fails another assigner got there,
	// or the advisor already holds a ticket.
	reserved, err := s.advisors.SetStatusIf(ctx, advisorID,
		models.AdvisorStatusAvailable, models.AdvisorStatusBusy, s.now())
	if err != nil {
		return nil, fmt.Errorf("reserve advisor %d: %w", advisorID, err)
	}
	if !reserved {
		return nil, nil
	}

	ticket, err := s.claimOldest(ctx, advisor)
	if err != nil || ticket == nil {
		// Nothing claimed: give the reservation back.
		if _, releaseErr := s.advisors.SetStatusIf(ctx, advisorID,
			models.AdvisorStatusBusy, models.AdvisorStatusAvailable, s.now()); releaseErr != nil {
			s.logger.Printf("assign: advisor %d not released: %v", advisorID, releaseErr)
		}
		return nil, err
	}

	if s.notifications != nil {
		if err := s.notifications.ScheduleTurnActive(ctx, ticket, advisor); err != nil {
			s.logger.Printf("assign: ticket %s turn notice not scheduled: %v", ticket.TicketNumber, err)
		}
	}
	if s.audit != nil {
		s.audit.TicketEvent(ctx, models.EventTicketAssigned, ticket,
			fmt.Sprintf("ticket %s assigned to %s (module %d)", ticket.TicketNumber, advisor.Name, advisor.ModuleNumber))
	}
	return ticket, nil
}

// claimOldest walks the queue front until a claim lands or the queue runs
// dry. A lost claim means another assigner took that ticket, so the next
// ticket is tried.
func (s *AssignmentService) claimOldest(ctx context.Context, advisor *models.Advisor) (*models.Ticket, error) {
	for _, queueType := range advisor.ServesQueueTypes() {
		for {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			ticket, err := s.tickets.NextWaiting(ctx, queueType)
			if errors.Is(err, repository.ErrTicketNotFound) {
				break
			}
			if err != nil {
				return nil, fmt.Errorf("next waiting ticket for %s: %w", queueType, err)
			}

			claimed, err := s.tickets.Claim(ctx, ticket.ID, advisor.ID, s.now())
			if err != nil {
				return nil, fmt.Errorf("claim ticket %s: %w", ticket.TicketNumber, err)
			}
			if !claimed {
				continue
			}

			now := s.now()
			ticket.Status = models.TicketStatusInProgress
			ticket.AdvisorID = &advisor.ID
			ticket.AssignedAt = &now
			ticket.QueuePosition = nil
			ticket.EstimatedWaitMinutes = nil
			return ticket, nil
		}
	}
	return nil, nil
}

// Complete closes the advisor's current ticket and immediately pulls the
// next one from the queue.
func (s *AssignmentService) Complete(ctx context.Context, ticketID int64) (*models.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	ok, err := s.tickets.TransitionStatus(ctx, ticketID,
		models.TicketStatusInProgress, models.TicketStatusCompleted, s.now())
	if err != nil {
		return nil, fmt.Errorf("close ticket %s: %w", ticket.TicketNumber, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: ticket %s is %s", ErrTicketNotActive, ticket.TicketNumber, ticket.Status)
	}
	ticket.Status = models.TicketStatusCompleted
	completedAt := s.now()
	ticket.CompletedAt = &completedAt

	if s.audit != nil {
		s.audit.TicketEvent(ctx, models.EventTicketCompleted, ticket,
			fmt.Sprintf("ticket %s completed", ticket.TicketNumber))
	}

	if ticket.AdvisorID != nil {
		s.freeAdvisor(ctx, *ticket.AdvisorID)
	}
	return ticket, nil
}

// NoShow marks a waiting ticket whose customer never appeared. Only WAITING
// tickets can be no-showed; a ticket already at an advisor must be
// completed instead.
func (s *AssignmentService) NoShow(ctx context.Context, ticketID int64) (*models.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	ok, err := s.tickets.TransitionStatus(ctx, ticketID,
		models.TicketStatusWaiting, models.TicketStatusNoShow, s.now())
	if err != nil {
		return nil, fmt.Errorf("close ticket %s: %w", ticket.TicketNumber, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: ticket %s is %s", ErrTicketNotActive, ticket.TicketNumber, ticket.Status)
	}
	ticket.Status = models.TicketStatusNoShow
	ticket.QueuePosition = nil
	ticket.EstimatedWaitMinutes = nil

	if s.audit != nil {
		s.audit.TicketEvent(ctx, models.EventTicketNoShow, ticket,
			fmt.Sprintf("ticket %s marked no-show", ticket.TicketNumber))
	}
	return ticket, nil
}

// freeAdvisor returns the advisor to the pool and tries to hand them the
// next waiting ticket right away, without waiting for the sweep.
func (s *AssignmentService) freeAdvisor(ctx context.Context, advisorID int64) {
	released, err := s.advisors.SetStatusIf(ctx, advisorID,
		models.AdvisorStatusBusy, models.AdvisorStatusAvailable, s.now())
	if err != nil {
		s.logger.Printf("assign: advisor %d not released: %v", advisorID, err)
		return
	}
	if !released {
		// The advisor went offline mid-service; do not pull another ticket.
		return
	}

	if _, err := s.AssignNext(ctx, advisorID); err != nil {
		s.logger.Printf("assign: advisor %d follow-up assignment failed: %v", advisorID, err)
	}
}

// DispatchAll offers a ticket to every available advisor. The queue sweep
// runs this to pick up advisors that became available while their queue was
// empty.
func (s *AssignmentService) DispatchAll(ctx context.Context) (int, error) {
	advisors, err := s.advisors.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list advisors: %w", err)
	}

	assigned := 0
	for _, advisor := range advisors {
		if advisor.Status != models.AdvisorStatusAvailable {
			continue
		}
		ticket, err := s.AssignNext(ctx, advisor.ID)
		if err != nil {
			s.logger.Printf("dispatch: advisor %d assignment failed: %v", advisor.ID, err)
			continue
		}
		if ticket != nil {
			assigned++
		}
	}
	return assigned, nil
}
