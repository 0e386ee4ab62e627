package transport

import (
	"time"

	"github.com/google/uuid"
)

// Conflict severities.
const (
	SeverityHigh   = "HIGH"
	SeverityMedium = "MEDIUM"
)

// ConflictInfo describes one reason a requested time was rejected.
type ConflictInfo struct {
	FollowUpID *uuid.UUID `json:"followUpId,omitempty"`
	Title      string     `json:"title,omitempty"`
	StartTime  *time.Time `json:"startTime,omitempty"`
	EndTime    *time.Time `json:"endTime,omitempty"`
	Severity   string     `json:"severity"`
	Reason     string     `json:"reason"`
}

// SlotInfo is a bookable alternative, ranked by closeness to the
// requested time.
type SlotInfo struct {
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
	Score     float64   `json:"score"`
}

// ConflictDetails is attached to a conflict error so the HTTP layer can
// render the full 409 body instead of the generic error envelope.
type ConflictDetails struct {
	Conflicts    []ConflictInfo `json:"conflicts"`
	Alternatives []SlotInfo     `json:"alternatives"`
}

type conflictResponseBody struct {
	Error        string         `json:"error"`
	Conflicts    []ConflictInfo `json:"conflicts"`
	Alternatives []SlotInfo     `json:"alternatives"`
}

// ResponseBody satisfies httpkit.BodyProvider.
func (d ConflictDetails) ResponseBody(message string) interface{} {
	conflicts := d.Conflicts
	if conflicts == nil {
		conflicts = []ConflictInfo{}
	}
	alternatives := d.Alternatives
	if alternatives == nil {
		alternatives = []SlotInfo{}
	}
	return conflictResponseBody{Error: message, Conflicts: conflicts, Alternatives: alternatives}
}
