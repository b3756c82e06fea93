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

// ErrInvalidAdvisorStatus is returned for status values outside the enum.
var ErrInvalidAdvisorStatus = errors.New("invalid advisor status")

// AdvisorService manages the advisor roster and availability changes.
type AdvisorService struct {
	advisors   repository.AdvisorRepository
	assignment *AssignmentService
	audit      *AuditService
	logger     *log.Logger
	now        func() time.Time
}

// NewAdvisorService creates a new advisor service.
func NewAdvisorService(
	advisors repository.AdvisorRepository,
	assignment *AssignmentService,
	audit *AuditService,
	logger *log.Logger,
) *AdvisorService {
	if logger == nil {
		logger = log.Default()
	}
	return &AdvisorService{
		advisors:   advisors,
		assignment: assignment,
		audit:      audit,
		logger:     logger,
		now:        time.Now,
	}
}

// Register adds a new advisor to the roster, starting OFFLINE.
func (s *AdvisorService) Register(ctx context.Context, name string, moduleNumber int, queueType models.QueueType) (*models.Advisor, error) {
	if name == "" {
		return nil, errors.New("advisor name is required")
	}
	if !queueType.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidQueueType, queueType)
	}

	advisor := &models.Advisor{
		Name:         name,
		ModuleNumber: moduleNumber,
		QueueType:    queueType,
		Status:       models.AdvisorStatusOffline,
		CreatedAt:    s.now(),
	}
	if err := s.advisors.Create(ctx, advisor); err != nil {
		return nil, fmt.Errorf("register advisor: %w", err)
	}
	return advisor, nil
}

// List returns the full roster ordered by module number.
func (s *AdvisorService) List(ctx context.Context) ([]*models.Advisor, error) {
	return s.advisors.List(ctx)
}

// Get returns one advisor.
func (s *AdvisorService) Get(ctx context.Context, id int64) (*models.Advisor, error) {
	return s.advisors.GetByID(ctx, id)
}

// SetStatus changes an advisor's availability. Going AVAILABLE immediately
// offers them the next waiting ticket, which may flip them straight to
// BUSY.
func (s *AdvisorService) SetStatus(ctx context.Context, id int64, status models.AdvisorStatus) (*models.Advisor, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAdvisorStatus, status)
	}

	advisor, err := s.advisors.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	previous := advisor.Status
	if previous == status {
		return advisor, nil
	}

	if err := s.advisors.SetStatus(ctx, id, status, s.now()); err != nil {
		return nil, fmt.Errorf("set advisor %d status: %w", id, err)
	}
	advisor.Status = status

	if s.audit != nil {
		s.audit.AdvisorStatusChange(ctx, id, previous, status)
	}

	if status == models.AdvisorStatusAvailable && s.assignment != nil {
		ticket, err := s.assignment.AssignNext(ctx, id)
		if err != nil {
			s.logger.Printf("advisor %d available but assignment failed: %v", id, err)
		} else if ticket != nil {
			advisor.Status = models.AdvisorStatusBusy
		}
	}
	return advisor, nil
}
