package schedule

import (
	"time"

	"github.com/google/uuid"

	"github.com/odontosys/agenda-api/internal/model"
)

// Overlaps reports whether two half-open intervals intersect. An appointment
// ending exactly when another starts does not conflict.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// HasConflict reports whether the candidate interval intersects any blocking
// appointment. The appointment identified by excludeID is ignored so that
// re-saving an unmoved appointment never conflicts with itself. Malformed and
// cancelled records are skipped.
func HasConflict(candidateStart, candidateEnd time.Time, existing []*model.Appointment, excludeID uuid.UUID) bool {
	for _, apt := range existing {
		if apt.ID == excludeID {
			continue
		}
		if !apt.Valid() || !apt.Blocking() {
			continue
		}
		if Overlaps(candidateStart, candidateEnd, apt.StartTime, apt.EndTime()) {
			return true
		}
	}
	return false
}

// AvailableStarts walks the grid in order and returns every slot start where
// an appointment of the given duration fits inside the working window without
// touching an existing one. The result is chronological and may be empty.
func AvailableStarts(g *Grid, durationMinutes int, existing []*model.Appointment, excludeID uuid.UUID) []time.Time {
	dur := time.Duration(durationMinutes) * time.Minute
	windowEnd := g.WindowEnd()

	var starts []time.Time
	for _, slot := range g.Slots() {
		end := slot.Start.Add(dur)
		if end.After(windowEnd) {
			continue
		}
		if HasConflict(slot.Start, end, existing, excludeID) {
			continue
		}
		starts = append(starts, slot.Start)
	}
	return starts
}
