// Package queue computes queue positions and estimated wait times. All
// functions are pure over counts supplied by the caller; persisted
// position/wait columns are only caches of the last computation here.
package queue

// Position converts a count of active-waiting tickets ahead into a 1-based
// queue position.
func Position(ticketsAhead int) int {
	return ticketsAhead + 1
}

// EstimatedWaitMinutes estimates the wait for a given position. With no
// advisors available every ticket ahead serializes, so the wait is
// position * average. Otherwise advisors work the queue in parallel and the
// wait is the number of whole advisor-rounds times the average.
func EstimatedWaitMinutes(position, averageMinutes, availableAdvisors int) int {
	if position < 1 {
		position = 1
	}
	if availableAdvisors <= 0 {
		return averageMinutes * position
	}
	rounds := (position + availableAdvisors - 1) / availableAdvisors
	return rounds * averageMinutes
}

// NearFrontThreshold is the position at or below which the customer gets a
// pre-notice message.
const NearFrontThreshold = 3

// NearFront reports whether a position qualifies for the pre-notice.
func NearFront(position int) bool {
	return position <= NearFrontThreshold
}
