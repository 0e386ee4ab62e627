package service

import (
	"context"
	"math"
	"sort"
	"time"

	"followup_backend/internal/followups/repository"
	"followup_backend/internal/followups/transport"

	"github.com/google/uuid"
)

const maxAlternatives = 3

// OverlapConflicts reports every existing follow-up whose occupied
// window overlaps [start, end). Windows are half-open, so back-to-back
// bookings do not conflict.
func OverlapConflicts(existing []repository.FollowUp, start, end time.Time) []transport.ConflictInfo {
	var conflicts []transport.ConflictInfo
	for i := range existing {
		f := &existing[i]
		if start.Before(f.EndsAt()) && end.After(f.ScheduledAt) {
			id := f.ID
			startTime := f.ScheduledAt
			endTime := f.EndsAt()
			conflicts = append(conflicts, transport.ConflictInfo{
				FollowUpID: &id,
				Title:      f.Title,
				StartTime:  &startTime,
				EndTime:    &endTime,
				Severity:   transport.SeverityMedium,
				Reason:     "overlaps an existing follow-up for this client",
			})
		}
	}
	return conflicts
}

// HoursConflict describes a start time outside business hours.
func HoursConflict(start time.Time) transport.ConflictInfo {
	startTime := start
	return transport.ConflictInfo{
		StartTime: &startTime,
		Severity:  transport.SeverityHigh,
		Reason:    "requested time is outside business hours",
	}
}

// generateAlternatives probes for up to maxAlternatives bookable slots
// near the desired time: the remainder of the same business day first,
// then following days. Slots are ranked by distance to the desired
// start, closest first.
func (s *Service) generateAlternatives(ctx context.Context, store repository.Store, orgID, clientID uuid.UUID, desired time.Time, duration time.Duration, excludeID uuid.UUID) []transport.SlotInfo {
	var slots []transport.SlotInfo

	if open, close, ok := s.hours.DayWindow(desired); ok {
		slots = append(slots, s.probeWindow(ctx, store, orgID, clientID, open, close, desired, duration, excludeID)...)
	}

	day := desired
	for len(slots) < maxAlternatives {
		next := day.AddDate(0, 0, 1)
		day = time.Date(next.Year(), next.Month(), next.Day(), 0, 0, 0, 0, next.Location())
		if day.Sub(desired) > searchHorizonDays*24*time.Hour {
			break
		}
		open, close, ok := s.hours.DayWindow(day)
		if !ok {
			continue
		}
		slots = append(slots, s.probeWindow(ctx, store, orgID, clientID, open, close, desired, duration, excludeID)...)
	}

	sort.SliceStable(slots, func(i, j int) bool { return slots[i].Score > slots[j].Score })
	if len(slots) > maxAlternatives {
		slots = slots[:maxAlternatives]
	}
	return slots
}

// probeWindow walks one business window on the slot grid and keeps the
// starts that fit the duration and collide with nothing.
func (s *Service) probeWindow(ctx context.Context, store repository.Store, orgID, clientID uuid.UUID, open, close, desired time.Time, duration time.Duration, excludeID uuid.UUID) []transport.SlotInfo {
	existing, err := store.ListActiveInRange(ctx, orgID, clientID, open, close, excludeID)
	if err != nil {
		// Alternatives are best effort; a probe failure just means fewer
		// suggestions in the 409 body.
		s.log.Warn("alternative slot probe failed", "error", err)
		return nil
	}

	var slots []transport.SlotInfo
	for candidate := roundUpToStep(open); !candidate.Add(duration).After(close); candidate = candidate.Add(slotStepMinutes * time.Minute) {
		if candidate.Equal(desired) {
			continue
		}
		if !candidate.After(s.now()) {
			continue
		}
		if len(OverlapConflicts(existing, candidate, candidate.Add(duration))) > 0 {
			continue
		}
		slots = append(slots, transport.SlotInfo{
			StartTime: candidate,
			EndTime:   candidate.Add(duration),
			Score:     closenessScore(candidate, desired),
		})
	}
	return slots
}

// closenessScore maps distance from the desired start to (0, 1], with
// 1 meaning immediately adjacent.
func closenessScore(candidate, desired time.Time) float64 {
	minutes := math.Abs(candidate.Sub(desired).Minutes())
	return 1 / (1 + minutes/60)
}
