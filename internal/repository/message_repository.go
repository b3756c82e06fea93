package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ticketero-io/ticketero/internal/database"
	"github.com/ticketero-io/ticketero/internal/models"
)

// MessageRepository defines persistence for outbound messages. These rows
// are owned exclusively by the notification scheduler once created.
type MessageRepository interface {
	Create(ctx context.Context, message *models.Message) error
	FindDue(ctx context.Context, now time.Time, limit int) ([]*models.Message, error)
	MarkSent(ctx context.Context, id int64, sentAt time.Time, providerMessageID string) error
	RecordFailure(ctx context.Context, id int64, attempts int, status models.MessageStatus, scheduledAt time.Time) error
	Exists(ctx context.Context, ticketID int64, template models.MessageTemplate) (bool, error)
	ListByTicket(ctx context.Context, ticketID int64) ([]*models.Message, error)
	CountByStatus(ctx context.Context, status models.MessageStatus) (int, error)
	DeleteTerminalOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// MessageSQLRepository implements MessageRepository over database/sql.
type MessageSQLRepository struct {
	db *sql.DB
}

// NewMessageRepository creates a new message repository.
func NewMessageRepository(db *sql.DB) *MessageSQLRepository {
	return &MessageSQLRepository{db: db}
}

const messageColumns = `id, ticket_id, template, content, status, scheduled_at, sent_at,
		provider_message_id, attempts, created_at`

// Create inserts the message and backfills its generated id.
func (r *MessageSQLRepository) Create(ctx context.Context, message *models.Message) error {
	query, useLastInsert := database.ConvertReturning(database.ConvertPlaceholders(`
		INSERT INTO messages (ticket_id, template, content, status, scheduled_at, attempts, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id`))

	args := []interface{}{
		message.TicketID, string(message.Template), message.Content, string(message.Status),
		message.ScheduledAt, message.Attempts, message.CreatedAt,
	}

	if useLastInsert {
		result, err := r.db.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("insert message: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("message insert id: %w", err)
		}
		message.ID = id
		return nil
	}

	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&message.ID); err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// FindDue returns PENDING messages whose scheduled time has passed, oldest
// schedule first.
func (r *MessageSQLRepository) FindDue(ctx context.Context, now time.Time, limit int) ([]*models.Message, error) {
	query := database.ConvertPlaceholders(`
		SELECT ` + messageColumns + `
		FROM messages
		WHERE status = ? AND scheduled_at <= ?
		ORDER BY scheduled_at ASC, id ASC
		LIMIT ?`)

	rows, err := r.db.QueryContext(ctx, query, string(models.MessageStatusPending), now, limit)
	if err != nil {
		return nil, fmt.Errorf("query due messages: %w", err)
	}
	defer rows.Close()

	var messages []*models.Message
	for rows.Next() {
		message, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan message row: %w", err)
		}
		messages = append(messages, message)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("message row iteration: %w", err)
	}
	return messages, nil
}

// MarkSent records a successful delivery.
func (r *MessageSQLRepository) MarkSent(ctx context.Context, id int64, sentAt time.Time, providerMessageID string) error {
	query := database.ConvertPlaceholders(`
		UPDATE messages SET status = ?, sent_at = ?, provider_message_id = ? WHERE id = ?`)

	if _, err := r.db.ExecContext(ctx, query, string(models.MessageStatusSent), sentAt, nullString(providerMessageID), id); err != nil {
		return fmt.Errorf("mark message %d sent: %w", id, err)
	}
	return nil
}

// RecordFailure persists a failed attempt: the bumped attempt counter plus
// either a PENDING reschedule or the terminal FAILED status.
func (r *MessageSQLRepository) RecordFailure(ctx context.Context, id int64, attempts int, status models.MessageStatus, scheduledAt time.Time) error {
	query := database.ConvertPlaceholders(`
		UPDATE messages SET attempts = ?, status = ?, scheduled_at = ? WHERE id = ?`)

	if _, err := r.db.ExecContext(ctx, query, attempts, string(status), scheduledAt, id); err != nil {
		return fmt.Errorf("record message %d failure: %w", id, err)
	}
	return nil
}

// Exists reports whether any message with the template was already created
// for the ticket, regardless of delivery state. Keeps the pre-notice
// at-most-once.
func (r *MessageSQLRepository) Exists(ctx context.Context, ticketID int64, template models.MessageTemplate) (bool, error) {
	query := database.ConvertPlaceholders(`
		SELECT COUNT(*) FROM messages WHERE ticket_id = ? AND template = ?`)

	var count int
	if err := r.db.QueryRowContext(ctx, query, ticketID, string(template)).Scan(&count); err != nil {
		return false, fmt.Errorf("count messages for ticket %d: %w", ticketID, err)
	}
	return count > 0, nil
}

// ListByTicket returns the ticket's messages in creation order.
func (r *MessageSQLRepository) ListByTicket(ctx context.Context, ticketID int64) ([]*models.Message, error) {
	query := database.ConvertPlaceholders(`
		SELECT ` + messageColumns + `
		FROM messages
		WHERE ticket_id = ?
		ORDER BY created_at ASC, id ASC`)

	rows, err := r.db.QueryContext(ctx, query, ticketID)
	if err != nil {
		return nil, fmt.Errorf("query ticket messages: %w", err)
	}
	defer rows.Close()

	var messages []*models.Message
	for rows.Next() {
		message, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan message row: %w", err)
		}
		messages = append(messages, message)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("message row iteration: %w", err)
	}
	return messages, nil
}

// CountByStatus counts messages in one delivery status.
func (r *MessageSQLRepository) CountByStatus(ctx context.Context, status models.MessageStatus) (int, error) {
	query := database.ConvertPlaceholders(`SELECT COUNT(*) FROM messages WHERE status = ?`)

	var count int
	if err := r.db.QueryRowContext(ctx, query, string(status)).Scan(&count); err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}
	return count, nil
}

// DeleteTerminalOlderThan purges SENT and FAILED messages created before
// the cutoff. Used by the daily housekeeping job.
func (r *MessageSQLRepository) DeleteTerminalOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	query := database.ConvertPlaceholders(`
		DELETE FROM messages WHERE status IN (?, ?) AND created_at < ?`)

	result, err := r.db.ExecContext(ctx, query, string(models.MessageStatusSent), string(models.MessageStatusFailed), cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete old messages: %w", err)
	}
	return result.RowsAffected()
}

func scanMessage(row rowScanner) (*models.Message, error) {
	var (
		m          models.Message
		template   string
		status     string
		sentAt     sql.NullTime
		providerID sql.NullString
	)

	err := row.Scan(&m.ID, &m.TicketID, &template, &m.Content, &status, &m.ScheduledAt,
		&sentAt, &providerID, &m.Attempts, &m.CreatedAt)
	if err != nil {
		return nil, err
	}

	m.Template = models.MessageTemplate(template)
	m.Status = models.MessageStatus(status)
	if sentAt.Valid {
		m.SentAt = &sentAt.Time
	}
	m.ProviderMessageID = providerID.String
	return &m, nil
}
