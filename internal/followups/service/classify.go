package service

import "followup_backend/internal/followups/transport"

// categoryPriorities maps each known category to its default priority.
// Unknown or free-form categories fall back to MEDIUM.
var categoryPriorities = map[string]transport.Priority{
	transport.CategoryComplaint:   transport.PriorityUrgent,
	transport.CategoryPayment:     transport.PriorityHigh,
	transport.CategoryRenewal:     transport.PriorityHigh,
	transport.CategoryMaintenance: transport.PriorityMedium,
	transport.CategoryGeneral:     transport.PriorityLow,
}

// DeterminePriority picks a priority when the caller supplied none.
// Long-neglected clients are bumped one level so they do not sit at
// the bottom of the triage queue forever.
func DeterminePriority(category string, daysSinceLastContact int) transport.Priority {
	priority, ok := categoryPriorities[category]
	if !ok {
		priority = transport.PriorityMedium
	}
	if daysSinceLastContact > 90 {
		priority = bumpPriority(priority)
	}
	return priority
}

func bumpPriority(p transport.Priority) transport.Priority {
	switch p {
	case transport.PriorityLow:
		return transport.PriorityMedium
	case transport.PriorityMedium:
		return transport.PriorityHigh
	case transport.PriorityHigh:
		return transport.PriorityUrgent
	default:
		return p
	}
}

// SuggestCategory derives a category when the caller supplied none.
// A linked service suggests maintenance work; otherwise the follow-up
// is filed as general.
func SuggestCategory(hasService bool) string {
	if hasService {
		return transport.CategoryMaintenance
	}
	return transport.CategoryGeneral
}
