package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ticketero-io/ticketero/internal/database"
	"github.com/ticketero-io/ticketero/internal/models"
)

// AuditRepository persists audit events. Insert-only.
type AuditRepository interface {
	Insert(ctx context.Context, event *models.AuditEvent) error
	ListRecent(ctx context.Context, limit int) ([]*models.AuditEvent, error)
}

// AuditSQLRepository implements AuditRepository over database/sql.
type AuditSQLRepository struct {
	db *sql.DB
}

// NewAuditRepository creates a new audit repository.
func NewAuditRepository(db *sql.DB) *AuditSQLRepository {
	return &AuditSQLRepository{db: db}
}

// Insert stores one audit event.
func (r *AuditSQLRepository) Insert(ctx context.Context, event *models.AuditEvent) error {
	query := database.ConvertPlaceholders(`
		INSERT INTO audit_events (event_type, entity_type, entity_id, actor, old_value, new_value, description, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)

	_, err := r.db.ExecContext(ctx, query,
		event.EventType, event.EntityType, event.EntityID, event.Actor,
		nullString(event.OldValue), nullString(event.NewValue), nullString(event.Description),
		event.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// ListRecent returns the newest audit events first.
func (r *AuditSQLRepository) ListRecent(ctx context.Context, limit int) ([]*models.AuditEvent, error) {
	query := database.ConvertPlaceholders(`
		SELECT id, event_type, entity_type, entity_id, actor, old_value, new_value, description, created_at
		FROM audit_events
		ORDER BY created_at DESC, id DESC
		LIMIT ?`)

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	var events []*models.AuditEvent
	for rows.Next() {
		var (
			e           models.AuditEvent
			oldValue    sql.NullString
			newValue    sql.NullString
			description sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.EventType, &e.EntityType, &e.EntityID, &e.Actor,
			&oldValue, &newValue, &description, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit row: %w", err)
		}
		e.OldValue = oldValue.String
		e.NewValue = newValue.String
		e.Description = description.String
		events = append(events, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("audit row iteration: %w", err)
	}
	return events, nil
}
