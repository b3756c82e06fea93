package database

import (
	"database/sql"
	"fmt"
)

// postgres and mysql differ only in the id column syntax, so the schema is
// templated on it.
var schemaTables = []struct {
	name string
	ddl  string
}{
	{"tickets", `
		CREATE TABLE IF NOT EXISTS tickets (
			id %s,
			uuid VARCHAR(36) NOT NULL UNIQUE,
			ticket_number VARCHAR(20) NOT NULL,
			customer_rut VARCHAR(12) NOT NULL,
			customer_phone VARCHAR(15),
			queue_type VARCHAR(20) NOT NULL,
			status VARCHAR(20) NOT NULL,
			queue_position INT,
			estimated_wait_minutes INT,
			advisor_id BIGINT,
			created_at TIMESTAMP NOT NULL,
			assigned_at TIMESTAMP,
			completed_at TIMESTAMP
		)`},
	{"advisors", `
		CREATE TABLE IF NOT EXISTS advisors (
			id %s,
			name VARCHAR(100) NOT NULL,
			module_number INT NOT NULL,
			queue_type VARCHAR(20) NOT NULL,
			status VARCHAR(20) NOT NULL,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP
		)`},
	{"messages", `
		CREATE TABLE IF NOT EXISTS messages (
			id %s,
			ticket_id BIGINT NOT NULL,
			template VARCHAR(50) NOT NULL,
			content TEXT NOT NULL,
			status VARCHAR(20) NOT NULL,
			scheduled_at TIMESTAMP NOT NULL,
			sent_at TIMESTAMP,
			provider_message_id VARCHAR(50),
			attempts INT NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL
		)`},
	{"audit_events", `
		CREATE TABLE IF NOT EXISTS audit_events (
			id %s,
			event_type VARCHAR(50) NOT NULL,
			entity_type VARCHAR(20) NOT NULL,
			entity_id BIGINT NOT NULL,
			actor VARCHAR(50) NOT NULL,
			old_value TEXT,
			new_value TEXT,
			description TEXT,
			created_at TIMESTAMP NOT NULL
		)`},
}

var schemaIndexes = []string{
	`CREATE INDEX IF NOT EXISTS idx_tickets_queue_status ON tickets (queue_type, status, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_tickets_number ON tickets (ticket_number)`,
	`CREATE INDEX IF NOT EXISTS idx_advisors_queue_status ON advisors (queue_type, status)`,
	`CREATE INDEX IF NOT EXISTS idx_messages_status_due ON messages (status, scheduled_at)`,
	`CREATE INDEX IF NOT EXISTS idx_messages_ticket ON messages (ticket_id, template)`,
}

// MigrateUp creates the schema if it does not exist yet. Idempotent.
func MigrateUp(db *sql.DB) error {
	idColumn := "BIGSERIAL PRIMARY KEY"
	if IsMySQL() {
		idColumn = "BIGINT AUTO_INCREMENT PRIMARY KEY"
	}

	for _, table := range schemaTables {
		if _, err := db.Exec(fmt.Sprintf(table.ddl, idColumn)); err != nil {
			return fmt.Errorf("create table %s: %w", table.name, err)
		}
	}

	// MySQL before 8.0.13 lacks IF NOT EXISTS for indexes; ignore duplicates.
	for _, idx := range schemaIndexes {
		if _, err := db.Exec(idx); err != nil && IsPostgreSQL() {
			return fmt.Errorf("create index: %w", err)
		}
	}

	return nil
}
