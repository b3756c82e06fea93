package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/ticketero-io/ticketero/internal/models"
)

type stubNotifier struct {
	mu         sync.Mutex
	limit      int
	sent       int
	failed     int
	purged     int64
	cutoff     time.Time
	dispatches int
}

func (s *stubNotifier) DispatchDue(_ context.Context, limit int) (int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.limit = limit
	s.dispatches++
	return s.sent, s.failed, nil
}

func (s *stubNotifier) PurgeDelivered(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cutoff = cutoff
	return s.purged, nil
}

type stubSweeper struct {
	refreshed int
}

func (s *stubSweeper) RefreshQueueSnapshots(context.Context) error {
	s.refreshed++
	return nil
}

type stubDispatcher struct {
	assigned int
	calls    int
}

func (s *stubDispatcher) DispatchAll(context.Context) (int, error) {
	s.calls++
	return s.assigned, nil
}

type stubStatusCache struct {
	mu     sync.Mutex
	values map[string]string
}

func (s *stubStatusCache) Set(_ context.Context, key, value string, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.values == nil {
		s.values = map[string]string{}
	}
	s.values[key] = value
	return nil
}

func newTestService(t *testing.T, opts ...Option) *Service {
	t.Helper()
	cronEngine := cron.New(cron.WithLocation(time.UTC))
	t.Cleanup(func() { cronEngine.Stop() })
	return NewService(append([]Option{WithCron(cronEngine)}, opts...)...)
}

func TestHandleMessageDispatchPassesBatchLimit(t *testing.T) {
	notifier := &stubNotifier{sent: 2}
	svc := newTestService(t, WithMessageDispatcher(notifier))

	job := &models.ScheduledJob{Config: map[string]any{"batch_limit": 25}}
	if err := svc.handleMessageDispatch(context.Background(), job); err != nil {
		t.Fatalf("handleMessageDispatch returned error: %v", err)
	}
	if notifier.limit != 25 {
		t.Fatalf("expected batch limit 25, got %d", notifier.limit)
	}
}

func TestHandleMessageDispatchDefaultsLimit(t *testing.T) {
	notifier := &stubNotifier{}
	svc := newTestService(t, WithMessageDispatcher(notifier))

	if err := svc.handleMessageDispatch(context.Background(), &models.ScheduledJob{}); err != nil {
		t.Fatalf("handleMessageDispatch returned error: %v", err)
	}
	if notifier.limit != 50 {
		t.Fatalf("expected default batch limit 50, got %d", notifier.limit)
	}
}

func TestHandleQueueSweepRefreshesAndDispatches(t *testing.T) {
	sweeper := &stubSweeper{}
	dispatcher := &stubDispatcher{assigned: 1}
	svc := newTestService(t, WithTicketSweeper(sweeper), WithQueueDispatcher(dispatcher))

	if err := svc.handleQueueSweep(context.Background(), &models.ScheduledJob{}); err != nil {
		t.Fatalf("handleQueueSweep returned error: %v", err)
	}
	if sweeper.refreshed != 1 {
		t.Fatalf("expected 1 refresh, got %d", sweeper.refreshed)
	}
	if dispatcher.calls != 1 {
		t.Fatalf("expected 1 dispatch pass, got %d", dispatcher.calls)
	}
}

func TestHandleHousekeepingUsesRetentionWindow(t *testing.T) {
	notifier := &stubNotifier{purged: 3}
	fixed := time.Date(2025, 6, 10, 2, 0, 0, 0, time.UTC)
	svc := newTestService(t,
		WithMessageDispatcher(notifier),
		WithNow(func() time.Time { return fixed }),
	)

	job := &models.ScheduledJob{Config: map[string]any{"retention_days": 7}}
	if err := svc.handleHousekeeping(context.Background(), job); err != nil {
		t.Fatalf("handleHousekeeping returned error: %v", err)
	}

	want := fixed.AddDate(0, 0, -7)
	if !notifier.cutoff.Equal(want) {
		t.Fatalf("expected cutoff %v, got %v", want, notifier.cutoff)
	}
}

func TestRunJobRecordsLastRunMarker(t *testing.T) {
	notifier := &stubNotifier{}
	statusCache := &stubStatusCache{}
	svc := newTestService(t,
		WithMessageDispatcher(notifier),
		WithCache(statusCache),
	)

	if err := svc.RunJob(context.Background(), "message-dispatch"); err != nil {
		t.Fatalf("RunJob returned error: %v", err)
	}

	statusCache.mu.Lock()
	defer statusCache.mu.Unlock()
	if _, ok := statusCache.values["scheduler:lastrun:message-dispatch"]; !ok {
		t.Fatalf("expected last-run marker, got %+v", statusCache.values)
	}
}

func TestRunJobRejectsUnknownSlug(t *testing.T) {
	svc := newTestService(t)
	if err := svc.RunJob(context.Background(), "no-such-job"); err == nil {
		t.Fatal("expected error for unknown job slug")
	}
}

func TestDefaultJobsCoverAllBuiltinHandlers(t *testing.T) {
	svc := newTestService(t)
	for _, job := range defaultJobs() {
		svc.mu.RLock()
		_, ok := svc.handlers[job.Handler]
		svc.mu.RUnlock()
		if !ok {
			t.Fatalf("default job %s references unregistered handler %s", job.Slug, job.Handler)
		}
	}
}
