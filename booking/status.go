package booking

import (
	"trailhead/apperr"
	"trailhead/models"
)

// validTransitions lists every status a booking may move to from its current one.
// Terminal statuses have no entry.
var validTransitions = map[models.BookingStatus][]models.BookingStatus{
	models.StatusPending:   {models.StatusConfirmed, models.StatusCancelled},
	models.StatusConfirmed: {models.StatusCompleted},
}

var knownStatuses = map[models.BookingStatus]bool{
	models.StatusPending:   true,
	models.StatusConfirmed: true,
	models.StatusCancelled: true,
	models.StatusCompleted: true,
}

// ParseStatus validates a client-supplied status string.
func ParseStatus(s string) (models.BookingStatus, error) {
	status := models.BookingStatus(s)
	if !knownStatuses[status] {
		return "", apperr.Validation("invalid booking status %q", s)
	}
	return status, nil
}

func CanTransition(from, to models.BookingStatus) bool {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is possible from s.
func IsTerminal(s models.BookingStatus) bool {
	return len(validTransitions[s]) == 0
}

// Transition returns requested when the move from current is legal. Same-state writes
// are rejected like any other illegal move.
func Transition(current, requested models.BookingStatus) (models.BookingStatus, error) {
	if !knownStatuses[requested] {
		return "", apperr.Validation("invalid booking status %q", requested)
	}
	if !CanTransition(current, requested) {
		return "", apperr.Conflict("cannot change booking status from %s to %s", current, requested)
	}
	return requested, nil
}
