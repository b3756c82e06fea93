package models

import "time"

// MessageTemplate identifies which outbound notification a message carries.
type MessageTemplate string

const (
	TemplateTicketCreated MessageTemplate = "TICKET_CREATED"
	TemplatePreNotice     MessageTemplate = "PRE_NOTICE"
	TemplateTurnActive    MessageTemplate = "TURN_ACTIVE"
)

// MessageStatus is the delivery state of an outbound message.
type MessageStatus string

const (
	MessageStatusPending MessageStatus = "PENDING"
	MessageStatusSent    MessageStatus = "SENT"
	MessageStatusFailed  MessageStatus = "FAILED"
)

// MaxDeliveryAttempts is the retry ceiling: once Attempts reaches it the
// message is FAILED permanently and never rescheduled.
const MaxDeliveryAttempts = 3

// Message is one scheduled customer notification. Owned exclusively by the
// notification scheduler once created.
type Message struct {
	ID                int64
	TicketID          int64
	Template          MessageTemplate
	Content           string
	Status            MessageStatus
	ScheduledAt       time.Time
	SentAt            *time.Time
	ProviderMessageID string
	Attempts          int
	CreatedAt         time.Time
}

// RetryBackoff returns how long to wait before the next delivery attempt,
// given the attempt count after incrementing: 30s, 60s, 120s.
func RetryBackoff(attempt int) time.Duration {
	switch attempt {
	case 1:
		return 30 * time.Second
	case 2:
		return 60 * time.Second
	case 3:
		return 120 * time.Second
	}
	return 5 * time.Minute
}
