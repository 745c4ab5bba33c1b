package services

import (
	"time"

	"livetrivia/models"
)

// ReconcileTolerance is how far a server-reported countdown may exceed the
// local one before the report is ignored as jitter.
const ReconcileTolerance = 1.0 // seconds

// TimerCoordinator derives remaining time for a timed question from the
// single authoritative start instant stamped on the game row. It holds no
// state of its own; every reader computes from the same instant.
type TimerCoordinator struct {
	clock func() time.Time
}

func NewTimerCoordinator() *TimerCoordinator {
	return &TimerCoordinator{clock: time.Now}
}

// Remaining returns the whole seconds left on the question's countdown and
// whether a countdown is running at all. The second result is false for
// untimed questions and for questions with no authoritative start instant.
func (t *TimerCoordinator) Remaining(question *models.Question, startedAt *time.Time) (int, bool) {
	if question == nil || !question.Timed() || startedAt == nil {
		return 0, false
	}
	elapsed := int(t.clock().Sub(*startedAt) / time.Second)
	left := *question.TimerSeconds - elapsed
	if left < 0 {
		left = 0
	}
	return left, true
}

// ReconcileCountdown merges a server-reported remaining time into a locally
// running countdown. The visible countdown only ever moves down: a lower
// server value is adopted immediately, a higher one is ignored unless the
// gap is within ReconcileTolerance (then the server, being authoritative,
// wins over accumulated local drift).
func ReconcileCountdown(local, server float64) float64 {
	if server <= local {
		return server
	}
	if server-local <= ReconcileTolerance {
		return server
	}
	return local
}
