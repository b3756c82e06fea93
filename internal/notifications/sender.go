// Package notifications renders and delivers outbound customer messages.
package notifications

import "context"

// Sender delivers one message to a destination and returns the provider's
// message id. The sender makes no idempotency guarantee; the scheduler's
// retry ceiling is the only bound on duplicate sends.
type Sender interface {
	Send(ctx context.Context, destination, text string) (string, error)
}
