package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/ticketero-io/ticketero/internal/models"
	"github.com/ticketero-io/ticketero/internal/repository"
	"github.com/ticketero-io/ticketero/internal/service"
)

type fakeTicketRepo struct {
	tickets []*models.Ticket
	nextID  int64
}

func (r *fakeTicketRepo) Create(_ context.Context, t *models.Ticket) error {
	r.nextID++
	t.ID = r.nextID
	r.tickets = append(r.tickets, t)
	return nil
}

func (r *fakeTicketRepo) find(match func(*models.Ticket) bool) (*models.Ticket, error) {
	for _, t := range r.tickets {
		if match(t) {
			return t, nil
		}
	}
	return nil, repository.ErrTicketNotFound
}

func (r *fakeTicketRepo) GetByID(_ context.Context, id int64) (*models.Ticket, error) {
	return r.find(func(t *models.Ticket) bool { return t.ID == id })
}

func (r *fakeTicketRepo) GetByUUID(_ context.Context, uuid string) (*models.Ticket, error) {
	return r.find(func(t *models.Ticket) bool { return t.UUID == uuid })
}

func (r *fakeTicketRepo) GetByNumber(_ context.Context, number string) (*models.Ticket, error) {
	return r.find(func(t *models.Ticket) bool { return t.TicketNumber == number })
}

func (r *fakeTicketRepo) ordered() []*models.Ticket {
	out := append([]*models.Ticket(nil), r.tickets...)
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (r *fakeTicketRepo) NextWaiting(_ context.Context, queueType models.QueueType) (*models.Ticket, error) {
	for _, t := range r.ordered() {
		if t.Status == models.TicketStatusWaiting && t.QueueType == queueType {
			return t, nil
		}
	}
	return nil, repository.ErrTicketNotFound
}

func (r *fakeTicketRepo) FindByStatus(_ context.Context, status models.TicketStatus) ([]*models.Ticket, error) {
	var out []*models.Ticket
	for _, t := range r.ordered() {
		if t.Status == status {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *fakeTicketRepo) CountAhead(_ context.Context, ticket *models.Ticket) (int, error) {
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

func (r *fakeTicketRepo) CountByStatusAndQueueType(_ context.Context, status models.TicketStatus, queueType models.QueueType) (int, error) {
	count := 0
	for _, t := range r.tickets {
		if t.Status == status && t.QueueType == queueType {
			count++
		}
	}
	return count, nil
}

func (r *fakeTicketRepo) LastTicketNumberOfDay(_ context.Context, queueType models.QueueType, _ time.Time) (string, error) {
	var last string
	for _, t := range r.ordered() {
		if t.QueueType == queueType {
			last = t.TicketNumber
		}
	}
	return last, nil
}

func (r *fakeTicketRepo) Claim(_ context.Context, ticketID, advisorID int64, now time.Time) (bool, error) {
	for _, t := range r.tickets {
		if t.ID == ticketID && t.Status == models.TicketStatusWaiting {
			assignedAt := now
			t.Status = models.TicketStatusInProgress
			t.AdvisorID = &advisorID
			t.AssignedAt = &assignedAt
			t.QueuePosition = nil
			t.EstimatedWaitMinutes = nil
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeTicketRepo) TransitionStatus(_ context.Context, ticketID int64, from, to models.TicketStatus, now time.Time) (bool, error) {
	for _, t := range r.tickets {
		if t.ID == ticketID && t.Status == from {
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
	}
	return false, nil
}

func (r *fakeTicketRepo) UpdateQueueSnapshot(_ context.Context, ticketID int64, position, waitMinutes int) error {
	for _, t := range r.tickets {
		if t.ID == ticketID && t.Status == models.TicketStatusWaiting {
			p, w := position, waitMinutes
			t.QueuePosition = &p
			t.EstimatedWaitMinutes = &w
		}
	}
	return nil
}

func (r *fakeTicketRepo) ListCreatedSince(_ context.Context, since time.Time) ([]*models.Ticket, error) {
	var out []*models.Ticket
	for _, t := range r.ordered() {
		if !t.CreatedAt.Before(since) {
			out = append(out, t)
		}
	}
	return out, nil
}

type fakeAdvisorRepo struct {
	advisors []*models.Advisor
	nextID   int64
}

func (r *fakeAdvisorRepo) Create(_ context.Context, a *models.Advisor) error {
	r.nextID++
	a.ID = r.nextID
	r.advisors = append(r.advisors, a)
	return nil
}

func (r *fakeAdvisorRepo) GetByID(_ context.Context, id int64) (*models.Advisor, error) {
	for _, a := range r.advisors {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, repository.ErrAdvisorNotFound
}

func (r *fakeAdvisorRepo) List(_ context.Context) ([]*models.Advisor, error) {
	out := append([]*models.Advisor(nil), r.advisors...)
	sort.Slice(out, func(i, j int) bool { return out[i].ModuleNumber < out[j].ModuleNumber })
	return out, nil
}

func (r *fakeAdvisorRepo) CountByStatusAndQueueType(_ context.Context, status models.AdvisorStatus, queueType models.QueueType) (int, error) {
	count := 0
	for _, a := range r.advisors {
		if a.Status == status && a.QueueType == queueType {
			count++
		}
	}
	return count, nil
}

func (r *fakeAdvisorRepo) SetStatus(_ context.Context, id int64, status models.AdvisorStatus, now time.Time) error {
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

func (r *fakeAdvisorRepo) SetStatusIf(_ context.Context, id int64, from, to models.AdvisorStatus, now time.Time) (bool, error) {
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

type fakeMessageRepo struct {
	messages []*models.Message
	nextID   int64
}

func (r *fakeMessageRepo) Create(_ context.Context, m *models.Message) error {
	r.nextID++
	m.ID = r.nextID
	r.messages = append(r.messages, m)
	return nil
}

func (r *fakeMessageRepo) FindDue(_ context.Context, now time.Time, limit int) ([]*models.Message, error) {
	var due []*models.Message
	for _, m := range r.messages {
		if m.Status == models.MessageStatusPending && !m.ScheduledAt.After(now) {
			due = append(due, m)
		}
	}
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

func (r *fakeMessageRepo) MarkSent(_ context.Context, id int64, sentAt time.Time, providerMessageID string) error {
	for _, m := range r.messages {
		if m.ID == id {
			at := sentAt
			m.Status = models.MessageStatusSent
			m.SentAt = &at
			m.ProviderMessageID = providerMessageID
		}
	}
	return nil
}

func (r *fakeMessageRepo) RecordFailure(_ context.Context, id int64, attempts int, status models.MessageStatus, scheduledAt time.Time) error {
	for _, m := range r.messages {
		if m.ID == id {
			m.Attempts = attempts
			m.Status = status
			m.ScheduledAt = scheduledAt
		}
	}
	return nil
}

func (r *fakeMessageRepo) Exists(_ context.Context, ticketID int64, template models.MessageTemplate) (bool, error) {
	for _, m := range r.messages {
		if m.TicketID == ticketID && m.Template == template {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeMessageRepo) ListByTicket(_ context.Context, ticketID int64) ([]*models.Message, error) {
	var out []*models.Message
	for _, m := range r.messages {
		if m.TicketID == ticketID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *fakeMessageRepo) CountByStatus(_ context.Context, status models.MessageStatus) (int, error) {
	count := 0
	for _, m := range r.messages {
		if m.Status == status {
			count++
		}
	}
	return count, nil
}

func (r *fakeMessageRepo) DeleteTerminalOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

type fakeAuditRepo struct {
	events []*models.AuditEvent
}

func (r *fakeAuditRepo) Insert(_ context.Context, e *models.AuditEvent) error {
	e.ID = int64(len(r.events) + 1)
	r.events = append(r.events, e)
	return nil
}

func (r *fakeAuditRepo) ListRecent(_ context.Context, limit int) ([]*models.AuditEvent, error) {
	out := append([]*models.AuditEvent(nil), r.events...)
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type seqNumbers struct {
	n int
}

func (s *seqNumbers) Next(_ context.Context, queueType models.QueueType) (string, error) {
	s.n++
	prefix := queueType.Info().NumberPrefix
	return prefix + string(rune('0'+s.n/10)) + string(rune('0'+s.n%10)), nil
}

type apiFixture struct {
	engine   *gin.Engine
	tickets  *fakeTicketRepo
	advisors *fakeAdvisorRepo
	messages *fakeMessageRepo
	audit    *fakeAuditRepo
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	f := &apiFixture{
		tickets:  &fakeTicketRepo{},
		advisors: &fakeAdvisorRepo{},
		messages: &fakeMessageRepo{},
		audit:    &fakeAuditRepo{},
	}
	logger := log.New(io.Discard, "", 0)

	auditSvc := service.NewAuditService(f.audit, logger)
	notifySvc := service.NewNotificationService(f.messages, f.tickets, nil, auditSvc, logger)
	ticketSvc := service.NewTicketService(f.tickets, f.advisors, &seqNumbers{}, notifySvc, auditSvc, logger)
	assignmentSvc := service.NewAssignmentService(f.tickets, f.advisors, notifySvc, auditSvc, logger)
	advisorSvc := service.NewAdvisorService(f.advisors, assignmentSvc, auditSvc, logger)
	dashboardSvc := service.NewDashboardService(f.tickets, f.advisors, f.messages, nil, logger)

	router := NewAPIRouter(ticketSvc, advisorSvc, assignmentSvc, dashboardSvc, auditSvc, logger)
	f.engine = gin.New()
	router.RegisterRoutes(f.engine)
	return f
}

func (f *apiFixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.engine.ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var envelope struct {
		Success bool           `json:"success"`
		Data    map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.True(t, envelope.Success)
	return envelope.Data
}

func decodeErrorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope.Error.Code
}
