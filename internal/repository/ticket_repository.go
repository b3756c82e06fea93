package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ticketero-io/ticketero/internal/database"
	"github.com/ticketero-io/ticketero/internal/models"
)

// TicketRepository defines the persistence operations the queue engine
// needs for tickets. The conditional transition methods return false when
// the guarded row was not in the expected state, which drives the
// assignment engine's retry loop.
type TicketRepository interface {
	Create(ctx context.Context, ticket *models.Ticket) error
	GetByID(ctx context.Context, id int64) (*models.Ticket, error)
	GetByUUID(ctx context.Context, uuid string) (*models.Ticket, error)
	GetByNumber(ctx context.Context, number string) (*models.Ticket, error)
	NextWaiting(ctx context.Context, queueType models.QueueType) (*models.Ticket, error)
	FindByStatus(ctx context.Context, status models.TicketStatus) ([]*models.Ticket, error)
	CountAhead(ctx context.Context, ticket *models.Ticket) (int, error)
	CountByStatusAndQueueType(ctx context.Context, status models.TicketStatus, queueType models.QueueType) (int, error)
	LastTicketNumberOfDay(ctx context.Context, queueType models.QueueType, day time.Time) (string, error)
	Claim(ctx context.Context, ticketID, advisorID int64, now time.Time) (bool, error)
	TransitionStatus(ctx context.Context, ticketID int64, from, to models.TicketStatus, now time.Time) (bool, error)
	UpdateQueueSnapshot(ctx context.Context, ticketID int64, position, waitMinutes int) error
	ListCreatedSince(ctx context.Context, since time.Time) ([]*models.Ticket, error)
}

// TicketSQLRepository implements TicketRepository over database/sql.
type TicketSQLRepository struct {
	db *sql.DB
}

// NewTicketRepository creates a new ticket repository.
func NewTicketRepository(db *sql.DB) *TicketSQLRepository {
	return &TicketSQLRepository{db: db}
}

const ticketColumns = `id, uuid, ticket_number, customer_rut, customer_phone, queue_type, status,
		queue_position, estimated_wait_minutes, advisor_id, created_at, assigned_at, completed_at`

// Create inserts the ticket and backfills its generated id.
func (r *TicketSQLRepository) Create(ctx context.Context, ticket *models.Ticket) error {
	query, useLastInsert := database.ConvertReturning(database.ConvertPlaceholders(`
		INSERT INTO tickets (uuid, ticket_number, customer_rut, customer_phone, queue_type, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id`))

	args := []interface{}{
		ticket.UUID, ticket.TicketNumber, ticket.CustomerRut, nullString(ticket.CustomerPhone),
		string(ticket.QueueType), string(ticket.Status), ticket.CreatedAt,
	}

	if useLastInsert {
		result, err := r.db.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("insert ticket: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("ticket insert id: %w", err)
		}
		ticket.ID = id
		return nil
	}

	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&ticket.ID); err != nil {
		return fmt.Errorf("insert ticket: %w", err)
	}
	return nil
}

// GetByID fetches one ticket by primary key.
func (r *TicketSQLRepository) GetByID(ctx context.Context, id int64) (*models.Ticket, error) {
	return r.getOne(ctx, `WHERE id = ?`, id)
}

// GetByUUID fetches one ticket by its public reference code.
func (r *TicketSQLRepository) GetByUUID(ctx context.Context, uuid string) (*models.Ticket, error) {
	return r.getOne(ctx, `WHERE uuid = ?`, uuid)
}

// GetByNumber fetches the most recent ticket carrying the given public
// number. Numbers repeat across days (and within a day after a sequence
// wrap), so the newest match wins.
func (r *TicketSQLRepository) GetByNumber(ctx context.Context, number string) (*models.Ticket, error) {
	return r.getOne(ctx, `WHERE ticket_number = ? ORDER BY created_at DESC, id DESC LIMIT 1`, number)
}

func (r *TicketSQLRepository) getOne(ctx context.Context, where string, arg interface{}) (*models.Ticket, error) {
	query := database.ConvertPlaceholders(`SELECT ` + ticketColumns + ` FROM tickets ` + where)
	ticket, err := scanTicket(r.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTicketNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query ticket: %w", err)
	}
	return ticket, nil
}

// NextWaiting returns the oldest WAITING ticket for the queue type, ties
// broken by id for determinism. Returns ErrTicketNotFound when the queue
// is empty.
func (r *TicketSQLRepository) NextWaiting(ctx context.Context, queueType models.QueueType) (*models.Ticket, error) {
	query := database.ConvertPlaceholders(`
		SELECT ` + ticketColumns + `
		FROM tickets
		WHERE status = ? AND queue_type = ?
		ORDER BY created_at ASC, id ASC
		LIMIT 1`)

	ticket, err := scanTicket(r.db.QueryRowContext(ctx, query, string(models.TicketStatusWaiting), string(queueType)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTicketNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query next waiting ticket: %w", err)
	}
	return ticket, nil
}

// FindByStatus returns all tickets in the given status, oldest first.
func (r *TicketSQLRepository) FindByStatus(ctx context.Context, status models.TicketStatus) ([]*models.Ticket, error) {
	query := database.ConvertPlaceholders(`
		SELECT ` + ticketColumns + `
		FROM tickets
		WHERE status = ?
		ORDER BY created_at ASC, id ASC`)

	rows, err := r.db.QueryContext(ctx, query, string(status))
	if err != nil {
		return nil, fmt.Errorf("query tickets by status: %w", err)
	}
	defer rows.Close()

	return collectTickets(rows)
}

// CountAhead counts active-waiting tickets of the same queue type created
// strictly before the given ticket, ties broken by id.
func (r *TicketSQLRepository) CountAhead(ctx context.Context, ticket *models.Ticket) (int, error) {
	query := database.ConvertPlaceholders(`
		SELECT COUNT(*)
		FROM tickets
		WHERE status = ? AND queue_type = ?
		AND (created_at < ? OR (created_at = ? AND id < ?))`)

	var count int
	err := r.db.QueryRowContext(ctx, query,
		string(models.TicketStatusWaiting), string(ticket.QueueType),
		ticket.CreatedAt, ticket.CreatedAt, ticket.ID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count tickets ahead: %w", err)
	}
	return count, nil
}

// CountByStatusAndQueueType counts tickets in one status for one queue type.
func (r *TicketSQLRepository) CountByStatusAndQueueType(ctx context.Context, status models.TicketStatus, queueType models.QueueType) (int, error) {
	query := database.ConvertPlaceholders(`
		SELECT COUNT(*) FROM tickets WHERE status = ? AND queue_type = ?`)

	var count int
	if err := r.db.QueryRowContext(ctx, query, string(status), string(queueType)).Scan(&count); err != nil {
		return 0, fmt.Errorf("count tickets: %w", err)
	}
	return count, nil
}

// LastTicketNumberOfDay returns the number of the most recently created
// ticket for the queue type on the given calendar day, or "" when none
// exists yet.
func (r *TicketSQLRepository) LastTicketNumberOfDay(ctx context.Context, queueType models.QueueType, day time.Time) (string, error) {
	startOfDay := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	endOfDay := startOfDay.Add(24 * time.Hour)

	query := database.ConvertPlaceholders(`
		SELECT ticket_number
		FROM tickets
		WHERE queue_type = ? AND created_at >= ? AND created_at < ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1`)

	var number string
	err := r.db.QueryRowContext(ctx, query, string(queueType), startOfDay, endOfDay).Scan(&number)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("query last ticket number: %w", err)
	}
	return number, nil
}

// Claim atomically moves a WAITING ticket to IN_PROGRESS and binds it to
// the advisor. The position snapshot is cleared because it is meaningless
// once the ticket leaves the queue. Returns false if the ticket was no
// longer WAITING (lost race).
func (r *TicketSQLRepository) Claim(ctx context.Context, ticketID, advisorID int64, now time.Time) (bool, error) {
	query := database.ConvertPlaceholders(`
		UPDATE tickets
		SET status = ?, advisor_id = ?, assigned_at = ?, queue_position = NULL, estimated_wait_minutes = NULL
		WHERE id = ? AND status = ?`)

	result, err := r.db.ExecContext(ctx, query,
		string(models.TicketStatusInProgress), advisorID, now,
		ticketID, string(models.TicketStatusWaiting))
	if err != nil {
		return false, fmt.Errorf("claim ticket %d: %w", ticketID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim ticket %d rows: %w", ticketID, err)
	}
	return affected == 1, nil
}

// TransitionStatus moves a ticket from one status to another with a guard
// on the current status. completed_at is stamped on COMPLETED; the
// position snapshot is cleared on every terminal transition. Returns false
// when the guard did not match.
func (r *TicketSQLRepository) TransitionStatus(ctx context.Context, ticketID int64, from, to models.TicketStatus, now time.Time) (bool, error) {
	var (
		query string
		args  []interface{}
	)
	if to == models.TicketStatusCompleted {
		query = database.ConvertPlaceholders(`
			UPDATE tickets
			SET status = ?, completed_at = ?
			WHERE id = ? AND status = ?`)
		args = []interface{}{string(to), now, ticketID, string(from)}
	} else {
		query = database.ConvertPlaceholders(`
			UPDATE tickets
			SET status = ?, queue_position = NULL, estimated_wait_minutes = NULL
			WHERE id = ? AND status = ?`)
		args = []interface{}{string(to), ticketID, string(from)}
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("transition ticket %d to %s: %w", ticketID, to, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("transition ticket %d rows: %w", ticketID, err)
	}
	return affected == 1, nil
}

// UpdateQueueSnapshot caches the latest computed position and wait time.
// The write is guarded on WAITING so a sweep never resurrects a snapshot
// on a ticket that was claimed concurrently.
func (r *TicketSQLRepository) UpdateQueueSnapshot(ctx context.Context, ticketID int64, position, waitMinutes int) error {
	query := database.ConvertPlaceholders(`
		UPDATE tickets
		SET queue_position = ?, estimated_wait_minutes = ?
		WHERE id = ? AND status = ?`)

	if _, err := r.db.ExecContext(ctx, query, position, waitMinutes, ticketID, string(models.TicketStatusWaiting)); err != nil {
		return fmt.Errorf("update queue snapshot for ticket %d: %w", ticketID, err)
	}
	return nil
}

// ListCreatedSince returns tickets created at or after the given instant,
// oldest first. Used by the dashboard's daily summary.
func (r *TicketSQLRepository) ListCreatedSince(ctx context.Context, since time.Time) ([]*models.Ticket, error) {
	query := database.ConvertPlaceholders(`
		SELECT ` + ticketColumns + `
		FROM tickets
		WHERE created_at >= ?
		ORDER BY created_at ASC, id ASC`)

	rows, err := r.db.QueryContext(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("query tickets created since: %w", err)
	}
	defer rows.Close()

	return collectTickets(rows)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTicket(row rowScanner) (*models.Ticket, error) {
	var (
		t             models.Ticket
		phone         sql.NullString
		queuePosition sql.NullInt64
		waitMinutes   sql.NullInt64
		advisorID     sql.NullInt64
		assignedAt    sql.NullTime
		completedAt   sql.NullTime
		queueType     string
		status        string
	)

	err := row.Scan(&t.ID, &t.UUID, &t.TicketNumber, &t.CustomerRut, &phone, &queueType, &status,
		&queuePosition, &waitMinutes, &advisorID, &t.CreatedAt, &assignedAt, &completedAt)
	if err != nil {
		return nil, err
	}

	t.CustomerPhone = phone.String
	t.QueueType = models.QueueType(queueType)
	t.Status = models.TicketStatus(status)
	if queuePosition.Valid {
		v := int(queuePosition.Int64)
		t.QueuePosition = &v
	}
	if waitMinutes.Valid {
		v := int(waitMinutes.Int64)
		t.EstimatedWaitMinutes = &v
	}
	if advisorID.Valid {
		t.AdvisorID = &advisorID.Int64
	}
	if assignedAt.Valid {
		t.AssignedAt = &assignedAt.Time
	}
	if completedAt.Valid {
		t.CompletedAt = &completedAt.Time
	}
	return &t, nil
}

func collectTickets(rows *sql.Rows) ([]*models.Ticket, error) {
	var tickets []*models.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ticket row: %w", err)
		}
		tickets = append(tickets, ticket)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ticket row iteration: %w", err)
	}
	return tickets, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
