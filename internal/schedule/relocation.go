package schedule

import (
	"time"

	"github.com/google/uuid"

	"github.com/odontosys/agenda-api/internal/model"
)

type RejectReason string

const (
	RejectPastTime     RejectReason = "past_time"
	RejectSlotOccupied RejectReason = "slot_occupied"
)

// ViewPolicy captures how one calendar view resolves and validates a
// relocation. The two views diverge on granularity, on whether a drop onto an
// occupied slot stacks or rejects, and on how much of the target position is
// honored; all of that lives here instead of being branched per view inside
// the engine.
type ViewPolicy struct {
	Name               string
	GranularityMinutes int

	// AllowStacking skips the occupancy check entirely, so a drop onto a busy
	// slot extends the stack instead of being rejected.
	AllowStacking bool

	// PreserveDate keeps the appointment's own calendar date and applies only
	// the target time of day. When false the target date is taken as-is.
	PreserveDate bool

	// SnapToHour zeroes the target minute offset; the week grid has no
	// sub-hour precision.
	SnapToHour bool
}

// DayViewPolicy: 15-minute grid, moves change time-of-day only, drops onto
// occupied slots stack.
func DayViewPolicy() ViewPolicy {
	return ViewPolicy{
		Name:               "day",
		GranularityMinutes: 15,
		AllowStacking:      true,
		PreserveDate:       true,
	}
}

// WeekViewPolicy: hour grid, moves change date and hour with minutes snapped
// to zero, occupied slots reject.
func WeekViewPolicy() ViewPolicy {
	return ViewPolicy{
		Name:               "week",
		GranularityMinutes: 60,
		SnapToHour:         true,
	}
}

// MoveTarget is the drop position of a proposed relocation.
type MoveTarget struct {
	Date         time.Time
	Hour         int
	MinuteOffset int
}

// Decision is the outcome of validating a proposed move. Rejections are
// normal outcomes, not errors; the caller declines the move and restores the
// prior state.
type Decision struct {
	Accepted bool         `json:"accepted"`
	Reason   RejectReason `json:"reason,omitempty"`
	NewStart time.Time    `json:"new_start,omitempty"`
}

func accepted(start time.Time) Decision {
	return Decision{Accepted: true, NewStart: start}
}

func rejected(reason RejectReason) Decision {
	return Decision{Reason: reason}
}

// DragSession is the caller-owned state of one drag interaction. The engine
// keeps no ambient drag state; callers thread the session through each
// proposal.
type DragSession struct {
	AppointmentID uuid.UUID
	StartedAt     time.Time
	HoverTarget   *MoveTarget
}

// Propose evaluates the session's hovered target under the given policy. With
// no hover target there is nothing to decide and the zero Decision (not
// accepted, no reason) comes back.
func (d *DragSession) Propose(p ViewPolicy, a *model.Appointment, existing []*model.Appointment, now time.Time) Decision {
	if d.HoverTarget == nil {
		return Decision{}
	}
	return p.ValidateMove(a, *d.HoverTarget, existing, now)
}

// ResolveTarget computes the start time a move to target would produce under
// this policy.
func (p ViewPolicy) ResolveTarget(a *model.Appointment, target MoveTarget) time.Time {
	date := target.Date
	if p.PreserveDate {
		date = a.StartTime
	}
	minute := target.MinuteOffset
	if p.SnapToHour {
		minute = 0
	}
	return time.Date(date.Year(), date.Month(), date.Day(), target.Hour, minute, 0, 0, date.Location())
}

// ValidateMove gates a proposed relocation. Rules run in order and the first
// failure wins:
//
//  1. Past-time: rejected when the resolved start falls earlier today. The
//     guard only compares clock times when the target day equals now's
//     calendar day; a move to another day never trips it.
//  2. Occupancy: rejected when the resolved interval overlaps another
//     appointment, unless the policy stacks. The moved appointment itself is
//     excluded so a drop back onto its own slot is a no-op accept.
//
// Pure decision function: committing the accepted start, and rolling back
// optimistic state on rejection, stay with the caller.
func (p ViewPolicy) ValidateMove(a *model.Appointment, target MoveTarget, existing []*model.Appointment, now time.Time) Decision {
	newStart := p.ResolveTarget(a, target)

	if sameDay(newStart, now) && newStart.Before(now) {
		return rejected(RejectPastTime)
	}

	if !p.AllowStacking {
		newEnd := newStart.Add(time.Duration(a.DurationMinutes) * time.Minute)
		if HasConflict(newStart, newEnd, existing, a.ID) {
			return rejected(RejectSlotOccupied)
		}
	}

	return accepted(newStart)
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
