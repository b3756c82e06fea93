package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ticketero-io/ticketero/internal/models"
	"github.com/ticketero-io/ticketero/internal/repository"
)

// In-memory repositories mirroring the SQL guards, shared by the service
// tests.

type memTicketRepo struct {
	mu      sync.Mutex
	tickets []*models.Ticket
	nextID  int64

	// stolenBy simulates a concurrent assigner: the next N Claim calls
	// lose the race and the ticket goes to this advisor instead.
	stealNext int
	stolenBy  int64
}

func newMemTicketRepo() *memTicketRepo {
	return &memTicketRepo{nextID: 1}
}

func (r *memTicketRepo) Create(_ context.Context, ticket *models.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket.ID = r.nextID
	r.nextID++
	r.tickets = append(r.tickets, ticket)
	return nil
}

func (r *memTicketRepo) find(match func(*models.Ticket) bool) (*models.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tickets {
		if match(t) {
			return t, nil
		}
	}
	return nil, repository.ErrTicketNotFound
}

func (r *memTicketRepo) GetByID(_ context.Context, id int64) (*models.Ticket, error) {
	return r.find(func(t *models.Ticket) bool { return t.ID == id })
}

func (r *memTicketRepo) GetByUUID(_ context.Context, uuid string) (*models.Ticket, error) {
	return r.find(func(t *models.Ticket) bool { return t.UUID == uuid })
}

func (r *memTicketRepo) GetByNumber(_ context.Context, number string) (*models.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var newest *models.Ticket
	for _, t := range r.tickets {
		if t.TicketNumber != number {
			continue
		}
		if newest == nil || t.CreatedAt.After(newest.CreatedAt) || (t.CreatedAt.Equal(newest.CreatedAt) && t.ID > newest.ID) {
			newest = t
		}
	}
	if newest == nil {
		return nil, repository.ErrTicketNotFound
	}
	return newest, nil
}

func (r *memTicketRepo) ordered() []*models.Ticket {
	out := append([]*models.Ticket(nil), r.tickets...)
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (r *memTicketRepo) NextWaiting(_ context.Context, queueType models.QueueType) (*models.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.ordered() {
		if t.Status == models.TicketStatusWaiting && t.QueueType == queueType {
			return t, nil
		}
	}
	return nil, repository.ErrTicketNotFound
}

func (r *memTicketRepo) FindByStatus(_ context.Context, status models.TicketStatus) ([]*models.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Ticket
	for _, t := range r.ordered() {
		if t.Status == status {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *memTicketRepo) CountAhead(_ context.Context, ticket *models.Ticket) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, t := range r.tickets {
		if t.Status != models.TicketStatusWaiting || t.QueueType != ticket.QueueType {
			continue
		}
		if t.CreatedAt.Before(ticket.CreatedAt) || (t.CreatedAt.Equal(ticket.CreatedAt) && t.ID < ticket.ID) {
			count++
		}
	}
	return count, nil
}

func (r *memTicketRepo) CountByStatusAndQueueType(_ context.Context, status models.TicketStatus, queueType models.QueueType) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, t := range r.tickets {
		if t.Status == status && t.QueueType == queueType {
			count++
		}
	}
	return count, nil
}

func (r *memTicketRepo) LastTicketNumberOfDay(_ context.Context, queueType models.QueueType, day time.Time) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.Add(24 * time.Hour)
	var newest *models.Ticket
	for _, t := range r.tickets {
		if t.QueueType != queueType || t.CreatedAt.Before(start) || !t.CreatedAt.Before(end) {
			continue
		}
		if newest == nil || t.CreatedAt.After(newest.CreatedAt) || (t.CreatedAt.Equal(newest.CreatedAt) && t.ID > newest.ID) {
			newest = t
		}
	}
	if newest == nil {
		return "", nil
	}
	return newest.TicketNumber, nil
}

func (r *memTicketRepo) Claim(_ context.Context, ticketID, advisorID int64, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tickets {
		if t.ID != ticketID || t.Status != models.TicketStatusWaiting {
			continue
		}
		winner := advisorID
		if r.stealNext > 0 {
			r.stealNext--
			winner = r.stolenBy
		}
		assignedAt := now
		t.Status = models.TicketStatusInProgress
		t.AdvisorID = &winner
		t.AssignedAt = &assignedAt
		t.QueuePosition = nil
		t.EstimatedWaitMinutes = nil
		return winner == advisorID, nil
	}
	return false, nil
}

func (r *memTicketRepo) TransitionStatus(_ context.Context, ticketID int64, from, to models.TicketStatus, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tickets {
		if t.ID != ticketID || t.Status != from {
			continue
		}
		t.Status = to
		if to == models.TicketStatusCompleted {
			completedAt := now
			t.CompletedAt = &completedAt
		} else {
			t.QueuePosition = nil
			t.EstimatedWaitMinutes = nil
		}
		return true, nil
	}
	return false, nil
}

func (r *memTicketRepo) UpdateQueueSnapshot(_ context.Context, ticketID int64, position, waitMinutes int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tickets {
		if t.ID == ticketID && t.Status == models.TicketStatusWaiting {
			p, w := position, waitMinutes
			t.QueuePosition = &p
			t.EstimatedWaitMinutes = &w
		}
	}
	return nil
}

func (r *memTicketRepo) ListCreatedSince(_ context.Context, since time.Time) ([]*models.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Ticket
	for _, t := range r.ordered() {
		if !t.CreatedAt.Before(since) {
			out = append(out, t)
		}
	}
	return out, nil
}

type memAdvisorRepo struct {
	mu       sync.Mutex
	advisors []*models.Advisor
	nextID   int64
}

func newMemAdvisorRepo() *memAdvisorRepo {
	return &memAdvisorRepo{nextID: 1}
}

func (r *memAdvisorRepo) Create(_ context.Context, advisor *models.Advisor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	advisor.ID = r.nextID
	r.nextID++
	r.advisors = append(r.advisors, advisor)
	return nil
}

func (r *memAdvisorRepo) GetByID(_ context.Context, id int64) (*models.Advisor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.advisors {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, repository.ErrAdvisorNotFound
}

func (r *memAdvisorRepo) List(_ context.Context) ([]*models.Advisor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := append([]*models.Advisor(nil), r.advisors...)
	sort.Slice(out, func(i, j int) bool { return out[i].ModuleNumber < out[j].ModuleNumber })
	return out, nil
}

func (r *memAdvisorRepo) CountByStatusAndQueueType(_ context.Context, status models.AdvisorStatus, queueType models.QueueType) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, a := range r.advisors {
		if a.Status == status && a.QueueType == queueType {
			count++
		}
	}
	return count, nil
}

func (r *memAdvisorRepo) SetStatus(_ context.Context, id int64, status models.AdvisorStatus, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.advisors {
		if a.ID == id {
			updatedAt := now
			a.Status = status
			a.UpdatedAt = &updatedAt
			return nil
		}
	}
	return repository.ErrAdvisorNotFound
}

func (r *memAdvisorRepo) SetStatusIf(_ context.Context, id int64, from, to models.AdvisorStatus, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.advisors {
		if a.ID == id && a.Status == from {
			updatedAt := now
			a.Status = to
			a.UpdatedAt = &updatedAt
			return true, nil
		}
	}
	return false, nil
}

type memMessageRepo struct {
	mu       sync.Mutex
	messages []*models.Message
	nextID   int64
}

func newMemMessageRepo() *memMessageRepo {
	return &memMessageRepo{nextID: 1}
}

func (r *memMessageRepo) Create(_ context.Context, message *models.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	message.ID = r.nextID
	r.nextID++
	r.messages = append(r.messages, message)
	return nil
}

func (r *memMessageRepo) FindDue(_ context.Context, now time.Time, limit int) ([]*models.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var due []*models.Message
	for _, m := range r.messages {
		if m.Status == models.MessageStatusPending && !m.ScheduledAt.After(now) {
			due = append(due, m)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		if !due[i].ScheduledAt.Equal(due[j].ScheduledAt) {
			return due[i].ScheduledAt.Before(due[j].ScheduledAt)
		}
		return due[i].ID < due[j].ID
	})
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

func (r *memMessageRepo) MarkSent(_ context.Context, id int64, sentAt time.Time, providerMessageID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.messages {
		if m.ID == id {
			at := sentAt
			m.Status = models.MessageStatusSent
			m.SentAt = &at
			m.ProviderMessageID = providerMessageID
			return nil
		}
	}
	return repository.ErrMessageNotFound
}

func (r *memMessageRepo) RecordFailure(_ context.Context, id int64, attempts int, status models.MessageStatus, scheduledAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.messages {
		if m.ID == id {
			m.Attempts = attempts
			m.Status = status
			m.ScheduledAt = scheduledAt
			return nil
		}
	}
	return repository.ErrMessageNotFound
}

func (r *memMessageRepo) Exists(_ context.Context, ticketID int64, template models.MessageTemplate) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.messages {
		if m.TicketID == ticketID && m.Template == template {
			return true, nil
		}
	}
	return false, nil
}

func (r *memMessageRepo) ListByTicket(_ context.Context, ticketID int64) ([]*models.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Message
	for _, m := range r.messages {
		if m.TicketID == ticketID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *memMessageRepo) CountByStatus(_ context.Context, status models.MessageStatus) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, m := range r.messages {
		if m.Status == status {
			count++
		}
	}
	return count, nil
}

func (r *memMessageRepo) DeleteTerminalOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var kept []*models.Message
	var removed int64
	for _, m := range r.messages {
		terminal := m.Status == models.MessageStatusSent || m.Status == models.MessageStatusFailed
		if terminal && m.CreatedAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, m)
	}
	r.messages = kept
	return removed, nil
}

type memAuditRepo struct {
	mu     sync.Mutex
	events []*models.AuditEvent
}

func (r *memAuditRepo) Insert(_ context.Context, event *models.AuditEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	event.ID = int64(len(r.events) + 1)
	r.events = append(r.events, event)
	return nil
}

func (r *memAuditRepo) ListRecent(_ context.Context, limit int) ([]*models.AuditEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := append([]*models.AuditEvent(nil), r.events...)
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// stubSender records sends and can be scripted to fail.
type stubSender struct {
	mu       sync.Mutex
	sent     []string
	failures int
}

func (s *stubSender) Send(_ context.Context, destination, text string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failures > 0 {
		s.failures--
		return "", context.DeadlineExceeded
	}
	s.sent = append(s.sent, destination+": "+text)
	return "provider-msg-1", nil
}

// fixedNumbers hands out scripted ticket numbers.
type fixedNumbers struct {
	mu      sync.Mutex
	numbers []string
}

func (f *fixedNumbers) Next(_ context.Context, _ models.QueueType) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.numbers) == 0 {
		return "C01", nil
	}
	next := f.numbers[0]
	f.numbers = f.numbers[1:]
	return next, nil
}

var (
	_ repository.TicketRepository  = (*memTicketRepo)(nil)
	_ repository.AdvisorRepository = (*memAdvisorRepo)(nil)
	_ repository.MessageRepository = (*memMessageRepo)(nil)
	_ repository.AuditRepository   = (*memAuditRepo)(nil)
)
