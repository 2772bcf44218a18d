package schedule

import (
	"github.com/odontosys/agenda-api/internal/model"
)

// DefaultRevealOffsets is the per-card offset table for an expanded stack.
// The stride shrinks as the stack grows; the values come from the card layout
// and are a lookup table, not a formula.
var DefaultRevealOffsets = []int{0, 20, 40, 64, 80, 96}

// CollapsedStride is the per-card stagger while a stack is collapsed.
const CollapsedStride = 4

// StackRevealOffsets returns the offsets for an expanded stack of count
// cards. Indexes past the table clamp to its last entry.
func StackRevealOffsets(count int) []int {
	offsets := make([]int, 0, count)
	for i := 0; i < count; i++ {
		if i < len(DefaultRevealOffsets) {
			offsets = append(offsets, DefaultRevealOffsets[i])
			continue
		}
		offsets = append(offsets, DefaultRevealOffsets[len(DefaultRevealOffsets)-1])
	}
	return offsets
}

// CollapsedOffsets returns the offsets for a collapsed stack of count cards.
func CollapsedOffsets(count int) []int {
	offsets := make([]int, count)
	for i := range offsets {
		offsets[i] = i * CollapsedStride
	}
	return offsets
}

// AnchorSlot returns the slot an appointment renders in under the anchor-slot
// policy: placement by start-time truncation only, with the duration shown on
// the card rather than spanning further cells.
func AnchorSlot(a *model.Appointment, g *Grid) (Slot, bool) {
	if !a.Valid() {
		return Slot{}, false
	}
	return g.Classify(a.StartTime)
}

// Occupancy maps each occupied slot to its appointment stack. Buckets keep
// arrival order: the first appointment is the primary card, the rest sit
// offset behind it and are revealed on interaction. The input sequence is the
// server's return order and is never re-sorted, so stacking stays stable.
type Occupancy struct {
	byKey map[SlotKey][]*model.Appointment
	keys  []SlotKey
}

// GroupBySlot anchors each appointment to the slot containing its start time
// and buckets them in input order. Out-of-grid, malformed and cancelled
// records are skipped.
func GroupBySlot(appointments []*model.Appointment, g *Grid) *Occupancy {
	occ := &Occupancy{byKey: make(map[SlotKey][]*model.Appointment)}
	for _, apt := range appointments {
		if !apt.Blocking() {
			continue
		}
		slot, ok := AnchorSlot(apt, g)
		if !ok {
			continue
		}
		key := slot.Key()
		if _, seen := occ.byKey[key]; !seen {
			occ.keys = append(occ.keys, key)
		}
		occ.byKey[key] = append(occ.byKey[key], apt)
	}
	return occ
}

// At returns the stack anchored at key, first-arrived first.
func (o *Occupancy) At(key SlotKey) []*model.Appointment {
	return o.byKey[key]
}

// Keys returns the occupied slot keys in first-arrival order.
func (o *Occupancy) Keys() []SlotKey {
	return o.keys
}

// Total counts the placed appointments across all stacks.
func (o *Occupancy) Total() int {
	n := 0
	for _, stack := range o.byKey {
		n += len(stack)
	}
	return n
}
