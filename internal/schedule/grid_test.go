package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testDay = time.Date(2025, 1, 15, 0, 0, 0, 0, time.Local)

func TestNewGridDayView(t *testing.T) {
	g, err := NewGrid(testDay, 7, 21, 15)
	require.NoError(t, err)

	slots := g.Slots()
	assert.Len(t, slots, 56)
	assert.Equal(t, 7, slots[0].Hour)
	assert.Equal(t, 0, slots[0].MinuteOffset)
	assert.Equal(t, 20, slots[len(slots)-1].Hour)
	assert.Equal(t, 45, slots[len(slots)-1].MinuteOffset)
	assert.Equal(t, testDay.Add(21*time.Hour), g.WindowEnd())
}

func TestNewGridWeekView(t *testing.T) {
	g, err := NewGrid(testDay, 7, 21, 60)
	require.NoError(t, err)
	assert.Len(t, g.Slots(), 14)
}

func TestNewGridInvalid(t *testing.T) {
	tests := []struct {
		name                     string
		startHour, endHour, gran int
	}{
		{"start after end", 21, 7, 15},
		{"end past midnight", 7, 25, 15},
		{"negative start", -1, 21, 15},
		{"granularity not dividing hour", 7, 21, 25},
		{"zero granularity", 7, 21, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewGrid(testDay, tt.startHour, tt.endHour, tt.gran)
			assert.Error(t, err)
		})
	}
}

func TestClassifyTruncates(t *testing.T) {
	g, err := NewGrid(testDay, 7, 21, 15)
	require.NoError(t, err)

	// minute 14 belongs to the :00 slot, not the nearest one
	slot, ok := g.Classify(testDay.Add(9*time.Hour + 14*time.Minute))
	require.True(t, ok)
	assert.Equal(t, 9, slot.Hour)
	assert.Equal(t, 0, slot.MinuteOffset)

	slot, ok = g.Classify(testDay.Add(9*time.Hour + 15*time.Minute))
	require.True(t, ok)
	assert.Equal(t, 15, slot.MinuteOffset)
}

func TestClassifyOutOfGrid(t *testing.T) {
	g, err := NewGrid(testDay, 7, 21, 15)
	require.NoError(t, err)

	for _, instant := range []time.Time{
		testDay.Add(6*time.Hour + 59*time.Minute),
		testDay.Add(21 * time.Hour),
		testDay.Add(23 * time.Hour),
		testDay.AddDate(0, 0, 1).Add(9 * time.Hour),
	} {
		_, ok := g.Classify(instant)
		assert.False(t, ok, "expected %v to be out of grid", instant)
	}
}

func TestClassifyExhaustive(t *testing.T) {
	g, err := NewGrid(testDay, 7, 21, 15)
	require.NoError(t, err)

	// every minute of the working window maps to exactly one slot
	counts := make(map[SlotKey]int)
	for min := 7 * 60; min < 21*60; min++ {
		slot, ok := g.Classify(testDay.Add(time.Duration(min) * time.Minute))
		require.True(t, ok)
		counts[slot.Key()]++
	}
	assert.Len(t, counts, 56)
	for key, n := range counts {
		assert.Equal(t, 15, n, "slot %+v", key)
	}

	// each slot classifies its own start back to itself
	for _, slot := range g.Slots() {
		got, ok := g.Classify(slot.Start)
		require.True(t, ok)
		assert.Equal(t, slot.Key(), got.Key())
	}
}
