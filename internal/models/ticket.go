package models

import "time"

// TicketStatus is the lifecycle state of a ticket.
type TicketStatus string

const (
	TicketStatusWaiting    TicketStatus = "WAITING"
	TicketStatusInProgress TicketStatus = "IN_PROGRESS"
	TicketStatusCompleted  TicketStatus = "COMPLETED"
	TicketStatusCancelled  TicketStatus = "CANCELLED"
	TicketStatusNoShow     TicketStatus = "NO_SHOW"
)

// Terminal reports whether the status allows no further transitions.
func (s TicketStatus) Terminal() bool {
	switch s {
	case TicketStatusCompleted, TicketStatusCancelled, TicketStatusNoShow:
		return true
	}
	return false
}

// ActiveWaiting reports whether a ticket in this status occupies a queue
// slot ahead of later arrivals.
func (s TicketStatus) ActiveWaiting() bool {
	return s == TicketStatusWaiting
}

// CanTransitionTo reports whether the state machine permits moving from s
// to next. Waiting tickets may be assigned, cancelled or marked no-show;
// in-progress tickets may only complete.
func (s TicketStatus) CanTransitionTo(next TicketStatus) bool {
	switch s {
	case TicketStatusWaiting:
		return next == TicketStatusInProgress || next == TicketStatusCancelled || next == TicketStatusNoShow
	case TicketStatusInProgress:
		return next == TicketStatusCompleted
	}
	return false
}

// Ticket is a customer's place in one queue. QueuePosition and
// EstimatedWaitMinutes are read-model snapshots refreshed by the queue
// sweep; they are only meaningful while the ticket is WAITING.
type Ticket struct {
	ID                   int64
	UUID                 string
	TicketNumber         string
	CustomerRut          string
	CustomerPhone        string
	QueueType            QueueType
	Status               TicketStatus
	QueuePosition        *int
	EstimatedWaitMinutes *int
	AdvisorID            *int64
	CreatedAt            time.Time
	AssignedAt           *time.Time
	CompletedAt          *time.Time
}

// HasContact reports whether the customer left a phone number for
// notifications.
func (t *Ticket) HasContact() bool {
	return t.CustomerPhone != ""
}
