package models

import "time"

// AdvisorStatus is the availability state of a service advisor.
type AdvisorStatus string

const (
	AdvisorStatusAvailable AdvisorStatus = "AVAILABLE"
	AdvisorStatusBusy      AdvisorStatus = "BUSY"
	AdvisorStatusOffline   AdvisorStatus = "OFFLINE"
)

// Valid reports whether s is a known advisor status.
func (s AdvisorStatus) Valid() bool {
	switch s {
	case AdvisorStatusAvailable, AdvisorStatusBusy, AdvisorStatusOffline:
		return true
	}
	return false
}

// Advisor is a service agent working one module desk for a single queue
// type. The assignment engine enforces at most one IN_PROGRESS ticket per
// advisor; the struct itself carries no such guarantee.
type Advisor struct {
	ID           int64
	Name         string
	ModuleNumber int
	QueueType    QueueType
	Status       AdvisorStatus
	CreatedAt    time.Time
	UpdatedAt    *time.Time
}

// ServesQueueTypes returns the queue types this advisor can take tickets
// from, in descending priority-rank order. Today this is a single-element
// list; the ordering matters only if multi-queue advisors are introduced.
func (a *Advisor) ServesQueueTypes() []QueueType {
	return []QueueType{a.QueueType}
}
