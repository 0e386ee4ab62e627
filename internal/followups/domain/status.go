// Package domain provides core business rules for the follow-ups bounded context.
package domain

// allowedTransitions maps a status to the set of statuses it may move to.
// A missed follow-up can still be retroactively completed or cancelled,
// but never rescheduled in place: rescheduling creates a new follow-up.
var allowedTransitions = map[string]map[string]bool{
	"SCHEDULED": {
		"CONFIRMED": true,
		"COMPLETED": true,
		"CANCELLED": true,
		"MISSED":    true,
	},
	"CONFIRMED": {
		"COMPLETED": true,
		"CANCELLED": true,
		"MISSED":    true,
	},
	"MISSED": {
		"COMPLETED": true,
		"CANCELLED": true,
	},
	"COMPLETED": {},
	"CANCELLED": {},
}

// CanTransition reports whether moving from current to next is allowed.
// A no-op transition (current == next) is never allowed.
func CanTransition(current, next string) bool {
	targets, ok := allowedTransitions[current]
	if !ok {
		return false
	}
	return targets[next]
}

// IsTerminal returns true when no further transitions are possible.
func IsTerminal(status string) bool {
	targets, ok := allowedTransitions[status]
	return ok && len(targets) == 0
}

// IsActive returns true for statuses that occupy calendar time and
// participate in conflict detection.
func IsActive(status string) bool {
	return status == "SCHEDULED" || status == "CONFIRMED"
}
