package models

import "time"

// AuditEvent is a fire-and-forget record of a state change, kept for
// operator visibility.
type AuditEvent struct {
	ID          int64
	EventType   string
	EntityType  string
	EntityID    int64
	Actor       string
	OldValue    string
	NewValue    string
	Description string
	CreatedAt   time.Time
}

// Audit event types.
const (
	EventTicketCreated        = "TICKET_CREATED"
	EventTicketAssigned       = "TICKET_ASSIGNED"
	EventTicketCompleted      = "TICKET_COMPLETED"
	EventTicketCancelled      = "TICKET_CANCELLED"
	EventTicketNoShow         = "TICKET_NO_SHOW"
	EventAdvisorStatusChanged = "ADVISOR_STATUS_CHANGED"
	EventMessageDelivered     = "MESSAGE_DELIVERED"
	EventMessageFailed        = "MESSAGE_FAILED"
)

// Audit entity types.
const (
	EntityTicket  = "TICKET"
	EntityAdvisor = "ADVISOR"
	EntityMessage = "MESSAGE"
)
