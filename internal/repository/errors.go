// Package repository provides SQL persistence for tickets, advisors,
// messages and audit events.
package repository

import "errors"

var (
	ErrTicketNotFound  = errors.New("ticket not found")
	ErrAdvisorNotFound = errors.New("advisor not found")
	ErrMessageNotFound = errors.New("message not found")
)
