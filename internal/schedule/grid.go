package schedule

import (
	"fmt"
	"time"
)

// Slot is one addressable bucket of a day's working-hours grid. Slots are
// recomputed for every view pass; their only identity is the
// (date, hour, minuteOffset) key.
type Slot struct {
	Hour         int       `json:"hour"`
	MinuteOffset int       `json:"minute_offset"`
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`
}

// SlotKey identifies a slot within its day.
type SlotKey struct {
	Hour         int `json:"hour"`
	MinuteOffset int `json:"minute_offset"`
}

func (s Slot) Key() SlotKey {
	return SlotKey{Hour: s.Hour, MinuteOffset: s.MinuteOffset}
}

// Grid is the fixed slot universe for one day's working hours.
type Grid struct {
	Date               time.Time
	StartHour          int
	EndHour            int
	GranularityMinutes int

	slots []Slot
}

// NewGrid builds the ordered slot sequence for the given day. The working
// window must satisfy 0 <= startHour < endHour <= 24 and the granularity must
// divide an hour evenly.
func NewGrid(date time.Time, startHour, endHour, granularityMinutes int) (*Grid, error) {
	if startHour < 0 || endHour > 24 || startHour >= endHour {
		return nil, fmt.Errorf("invalid working hours %d-%d", startHour, endHour)
	}
	if granularityMinutes <= 0 || 60%granularityMinutes != 0 {
		return nil, fmt.Errorf("granularity %dm does not divide an hour evenly", granularityMinutes)
	}

	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	g := &Grid{
		Date:               day,
		StartHour:          startHour,
		EndHour:            endHour,
		GranularityMinutes: granularityMinutes,
	}

	step := time.Duration(granularityMinutes) * time.Minute
	for hour := startHour; hour < endHour; hour++ {
		for min := 0; min < 60; min += granularityMinutes {
			start := day.Add(time.Duration(hour)*time.Hour + time.Duration(min)*time.Minute)
			g.slots = append(g.slots, Slot{
				Hour:         hour,
				MinuteOffset: min,
				Start:        start,
				End:          start.Add(step),
			})
		}
	}
	return g, nil
}

// Slots returns the grid's slots in chronological order.
func (g *Grid) Slots() []Slot {
	return g.slots
}

// WindowEnd is the exclusive end of the working window.
func (g *Grid) WindowEnd() time.Time {
	return g.Date.Add(time.Duration(g.EndHour) * time.Hour)
}

// Classify maps an instant onto its slot by truncation: an instant at minute
// 14 on a 15-minute grid lands in the :00 slot, never the nearest one. ok is
// false when the instant falls on another day or outside working hours;
// callers skip those records instead of treating them as errors.
func (g *Grid) Classify(t time.Time) (Slot, bool) {
	y, m, d := t.Date()
	gy, gm, gd := g.Date.Date()
	if y != gy || m != gm || d != gd {
		return Slot{}, false
	}
	hour := t.Hour()
	if hour < g.StartHour || hour >= g.EndHour {
		return Slot{}, false
	}
	offset := (t.Minute() / g.GranularityMinutes) * g.GranularityMinutes
	idx := (hour-g.StartHour)*(60/g.GranularityMinutes) + offset/g.GranularityMinutes
	return g.slots[idx], true
}
