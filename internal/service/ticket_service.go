package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ticketero-io/ticketero/internal/models"
	"github.com/ticketero-io/ticketero/internal/queue"
	"github.com/ticketero-io/ticketero/internal/repository"
)

// Validation errors returned by ticket intake.
var (
	ErrInvalidQueueType   = errors.New("unknown queue type")
	ErrMissingCustomerRut = errors.New("customer rut is required")
	ErrTicketNotActive    = errors.New("ticket is not in an active state")
)

// NumberGenerator produces the next public ticket number for a queue type.
type NumberGenerator interface {
	Next(ctx context.Context, queueType models.QueueType) (string, error)
}

// CreateTicketParams is the intake payload for a new ticket.
type CreateTicketParams struct {
	CustomerRut   string
	CustomerPhone string
	QueueType     models.QueueType
}

// TicketDetails pairs a ticket with its live queue standing. Position and
// wait are zero for tickets no longer waiting.
type TicketDetails struct {
	Ticket               *models.Ticket
	Position             int
	EstimatedWaitMinutes int
}

// TicketService owns ticket intake and the customer-facing queries.
type TicketService struct {
	tickets       repository.TicketRepository
	advisors      repository.AdvisorRepository
	numbers       NumberGenerator
	notifications *NotificationService
	audit         *AuditService
	logger        *log.Logger
	now           func() time.Time
	newUUID       func() string

	// createMu serializes number generation with the insert so two
	// concurrent intakes cannot read the same last number.
	createMu sync.Mutex
}

// NewTicketService creates a new ticket service.
func NewTicketService(
	tickets repository.TicketRepository,
	advisors repository.AdvisorRepository,
	numbers NumberGenerator,
	notifications *NotificationService,
	audit *AuditService,
	logger *log.Logger,
) *TicketService {
	if logger == nil {
		logger = log.Default()
	}
	return &TicketService{
		tickets:       tickets,
		advisors:      advisors,
		numbers:       numbers,
		notifications: notifications,
		audit:         audit,
		logger:        logger,
		now:           time.Now,
		newUUID:       uuid.NewString,
	}
}

// CreateTicket registers a new WAITING ticket, computes its initial queue
// standing and schedules the confirmation message.
func (s *TicketService) CreateTicket(ctx context.Context, params CreateTicketParams) (*TicketDetails, error) {
	if params.CustomerRut == "" {
		return nil, ErrMissingCustomerRut
	}
	if !params.QueueType.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidQueueType, params.QueueType)
	}

	s.createMu.Lock()
	number, err := s.numbers.Next(ctx, params.QueueType)
	if err != nil {
		s.createMu.Unlock()
		return nil, fmt.Errorf("generate ticket number: %w", err)
	}

	ticket := &models.Ticket{
		UUID:          s.newUUID(),
		TicketNumber:  number,
		CustomerRut:   params.CustomerRut,
		CustomerPhone: params.CustomerPhone,
		QueueType:     params.QueueType,
		Status:        models.TicketStatusWaiting,
		CreatedAt:     s.now(),
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		s.createMu.Unlock()
		return nil, fmt.Errorf("create ticket: %w", err)
	}
	s.createMu.Unlock()

	position, waitMinutes, err := s.queueStanding(ctx, ticket)
	if err != nil {
		// The ticket exists; standing is a cache that the sweep will
		// repair, so intake still succeeds.
		s.logger.Printf("ticket %s created but standing not computed: %v", ticket.TicketNumber, err)
		position, waitMinutes = 0, 0
	} else {
		if err := s.tickets.UpdateQueueSnapshot(ctx, ticket.ID, position, waitMinutes); err != nil {
			s.logger.Printf("ticket %s snapshot not persisted: %v", ticket.TicketNumber, err)
		}
		ticket.QueuePosition = &position
		ticket.EstimatedWaitMinutes = &waitMinutes
	}

	if s.notifications != nil {
		if err := s.notifications.ScheduleConfirmation(ctx, ticket, position, waitMinutes); err != nil {
			s.logger.Printf("ticket %s confirmation not scheduled: %v", ticket.TicketNumber, err)
		}
	}
	if s.audit != nil {
		s.audit.TicketEvent(ctx, models.EventTicketCreated, ticket,
			fmt.Sprintf("ticket %s created in %s", ticket.TicketNumber, ticket.QueueType))
	}

	return &TicketDetails{Ticket: ticket, Position: position, EstimatedWaitMinutes: waitMinutes}, nil
}

// GetByUUID returns a ticket with its current standing recomputed from the
// live queue when it is still waiting.
func (s *TicketService) GetByUUID(ctx context.Context, ticketUUID string) (*TicketDetails, error) {
	ticket, err := s.tickets.GetByUUID(ctx, ticketUUID)
	if err != nil {
		return nil, err
	}
	return s.withStanding(ctx, ticket)
}

// GetByNumber resolves the newest ticket for a public number with its
// current standing.
func (s *TicketService) GetByNumber(ctx context.Context, number string) (*TicketDetails, error) {
	ticket, err := s.tickets.GetByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	return s.withStanding(ctx, ticket)
}

func (s *TicketService) withStanding(ctx context.Context, ticket *models.Ticket) (*TicketDetails, error) {
	details := &TicketDetails{Ticket: ticket}
	if ticket.Status != models.TicketStatusWaiting {
		return details, nil
	}

	position, waitMinutes, err := s.queueStanding(ctx, ticket)
	if err != nil {
		// Fall back to the persisted snapshot rather than failing the read.
		s.logger.Printf("ticket %s standing not computed: %v", ticket.TicketNumber, err)
		if ticket.QueuePosition != nil {
			details.Position = *ticket.QueuePosition
		}
		if ticket.EstimatedWaitMinutes != nil {
			details.EstimatedWaitMinutes = *ticket.EstimatedWaitMinutes
		}
		return details, nil
	}
	details.Position = position
	details.EstimatedWaitMinutes = waitMinutes
	return details, nil
}

// queueStanding computes the live position and wait estimate for a waiting
// ticket.
func (s *TicketService) queueStanding(ctx context.Context, ticket *models.Ticket) (int, int, error) {
	ahead, err := s.tickets.CountAhead(ctx, ticket)
	if err != nil {
		return 0, 0, fmt.Errorf("count tickets ahead: %w", err)
	}
	available, err := s.advisors.CountByStatusAndQueueType(ctx, models.AdvisorStatusAvailable, ticket.QueueType)
	if err != nil {
		return 0, 0, fmt.Errorf("count available advisors: %w", err)
	}

	position := queue.Position(ahead)
	waitMinutes := queue.EstimatedWaitMinutes(position, ticket.QueueType.Info().AverageTimeMinutes, available)
	return position, waitMinutes, nil
}

// Cancel abandons a waiting ticket at the customer's request.
func (s *TicketService) Cancel(ctx context.Context, ticketUUID string) (*models.Ticket, error) {
	ticket, err := s.tickets.GetByUUID(ctx, ticketUUID)
	if err != nil {
		return nil, err
	}

	ok, err := s.tickets.TransitionStatus(ctx, ticket.ID,
		models.TicketStatusWaiting, models.TicketStatusCancelled, s.now())
	if err != nil {
		return nil, fmt.Errorf("cancel ticket %s: %w", ticket.TicketNumber, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: ticket %s is %s", ErrTicketNotActive, ticket.TicketNumber, ticket.Status)
	}

	ticket.Status = models.TicketStatusCancelled
	ticket.QueuePosition = nil
	ticket.EstimatedWaitMinutes = nil
	if s.audit != nil {
		s.audit.TicketEvent(ctx, models.EventTicketCancelled, ticket,
			fmt.Sprintf("ticket %s cancelled by customer", ticket.TicketNumber))
	}
	return ticket, nil
}

// RefreshQueueSnapshots recomputes position and wait for every waiting
// ticket and fires pre-notices for those near the front. Run periodically
// by the queue sweep.
func (s *TicketService) RefreshQueueSnapshots(ctx context.Context) error {
	waiting, err := s.tickets.FindByStatus(ctx, models.TicketStatusWaiting)
	if err != nil {
		return fmt.Errorf("list waiting tickets: %w", err)
	}
	if len(waiting) == 0 {
		return nil
	}

	availableByQueue := make(map[models.QueueType]int)
	positionByQueue := make(map[models.QueueType]int)

	for _, ticket := range waiting {
		if err := ctx.Err(); err != nil {
			return err
		}

		available, seen := availableByQueue[ticket.QueueType]
		if !seen {
			available, err = s.advisors.CountByStatusAndQueueType(ctx, models.AdvisorStatusAvailable, ticket.QueueType)
			if err != nil {
				return fmt.Errorf("count available advisors for %s: %w", ticket.QueueType, err)
			}
			availableByQueue[ticket.QueueType] = available
		}

		positionByQueue[ticket.QueueType]++
		position := positionByQueue[ticket.QueueType]
		waitMinutes := queue.EstimatedWaitMinutes(position, ticket.QueueType.Info().AverageTimeMinutes, available)

		if err := s.tickets.UpdateQueueSnapshot(ctx, ticket.ID, position, waitMinutes); err != nil {
			s.logger.Printf("sweep: ticket %s snapshot not persisted: %v", ticket.TicketNumber, err)
			continue
		}

		if queue.NearFront(position) && s.notifications != nil {
			if err := s.notifications.SchedulePreNotice(ctx, ticket, position); err != nil {
				s.logger.Printf("sweep: ticket %s pre-notice not scheduled: %v", ticket.TicketNumber, err)
			}
		}
	}
	return nil
}
