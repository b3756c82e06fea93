// Package ticket_number issues the public ticket numbers printed on
// customer tickets: a queue-type prefix plus a two-digit sequence that
// resets every calendar day.
package ticket_number

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/ticketero-io/ticketero/internal/models"
)

// Common errors
var (
	ErrUnknownQueueType = errors.New("unknown queue type")
)

// LastNumberLookup supplies the most recent number issued today for a
// queue type, "" when none. The persistence layer must serialize the
// read-last-then-insert sequence per queue type per day; without that,
// duplicate numbers (never duplicate ticket identities) can occur.
type LastNumberLookup interface {
	LastTicketNumberOfDay(ctx context.Context, queueType models.QueueType, day time.Time) (string, error)
}

// Generator produces sequential per-queue-type, per-day ticket numbers.
// Format: prefix + zero-padded two-digit sequence (C01..C99). After 99 the
// sequence wraps to 01; duplicates within a day after the wrap are an
// accepted limitation.
type Generator struct {
	lookup LastNumberLookup
	logger *log.Logger
	now    func() time.Time
}

// NewGenerator creates a generator. logger and now may be nil and default
// to log.Default and time.Now.
func NewGenerator(lookup LastNumberLookup, logger *log.Logger, now func() time.Time) *Generator {
	if logger == nil {
		logger = log.Default()
	}
	if now == nil {
		now = time.Now
	}
	return &Generator{lookup: lookup, logger: logger, now: now}
}

// Next returns the next ticket number for the queue type.
func (g *Generator) Next(ctx context.Context, queueType models.QueueType) (string, error) {
	if !queueType.Valid() {
		return "", fmt.Errorf("%w: %s", ErrUnknownQueueType, queueType)
	}
	info := queueType.Info()

	last, err := g.lookup.LastTicketNumberOfDay(ctx, queueType, g.now())
	if err != nil {
		return "", fmt.Errorf("last number lookup for %s: %w", queueType, err)
	}

	sequence := 1
	if last != "" {
		sequence = g.nextSequence(queueType, info.NumberPrefix, last)
	}

	return fmt.Sprintf("%s%02d", info.NumberPrefix, sequence), nil
}

func (g *Generator) nextSequence(queueType models.QueueType, prefix, last string) int {
	if len(last) <= len(prefix) {
		g.logger.Printf("ticket_number: malformed last number %q for %s, restarting at 01", last, queueType)
		return 1
	}

	parsed, err := strconv.Atoi(last[len(prefix):])
	if err != nil {
		g.logger.Printf("ticket_number: cannot parse last number %q for %s: %v, restarting at 01", last, queueType, err)
		return 1
	}

	next := parsed + 1
	if next > 99 {
		g.logger.Printf("ticket_number: sequence for %s reached 99, wrapping to 01", queueType)
		return 1
	}
	return next
}
