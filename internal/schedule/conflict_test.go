package schedule

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odontosys/agenda-api/internal/model"
)

func apt(start time.Time, durationMinutes int) *model.Appointment {
	a := &model.Appointment{
		StartTime:       start,
		DurationMinutes: durationMinutes,
		Status:          model.AppointmentStatusConfirmed,
	}
	a.ID = uuid.New()
	return a
}

func TestOverlapsSymmetry(t *testing.T) {
	base := testDay.Add(10 * time.Hour)
	pairs := []struct {
		name                   string
		aStart, aEnd           time.Time
		bStart, bEnd           time.Time
		want                   bool
	}{
		{"nested", base, base.Add(time.Hour), base.Add(15 * time.Minute), base.Add(30 * time.Minute), true},
		{"partial", base, base.Add(30 * time.Minute), base.Add(15 * time.Minute), base.Add(45 * time.Minute), true},
		{"disjoint", base, base.Add(30 * time.Minute), base.Add(time.Hour), base.Add(90 * time.Minute), false},
		{"touching", base, base.Add(30 * time.Minute), base.Add(30 * time.Minute), base.Add(time.Hour), false},
	}
	for _, tt := range pairs {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Overlaps(tt.aStart, tt.aEnd, tt.bStart, tt.bEnd))
			assert.Equal(t, tt.want, Overlaps(tt.bStart, tt.bEnd, tt.aStart, tt.aEnd), "overlap must be symmetric")
		})
	}
}

func TestHasConflictHalfOpenBoundary(t *testing.T) {
	// one appointment ends exactly when the candidate starts
	existing := []*model.Appointment{apt(testDay.Add(9*time.Hour), 30)}
	start := testDay.Add(9*time.Hour + 30*time.Minute)

	assert.False(t, HasConflict(start, start.Add(30*time.Minute), existing, uuid.Nil))
	assert.True(t, HasConflict(start.Add(-time.Minute), start.Add(29*time.Minute), existing, uuid.Nil))
}

func TestHasConflictExcludesSelf(t *testing.T) {
	self := apt(testDay.Add(10*time.Hour), 30)
	other := apt(testDay.Add(11*time.Hour), 30)
	existing := []*model.Appointment{self, other}

	// re-saving the same interval must not conflict with itself
	assert.False(t, HasConflict(self.StartTime, self.EndTime(), existing, self.ID))
	assert.True(t, HasConflict(self.StartTime, self.EndTime(), existing, uuid.Nil))
}

func TestHasConflictSkipsCancelledAndMalformed(t *testing.T) {
	cancelled := apt(testDay.Add(10*time.Hour), 30)
	cancelled.Status = model.AppointmentStatusCancelled
	malformed := &model.Appointment{DurationMinutes: 30} // zero start time

	existing := []*model.Appointment{cancelled, malformed}
	start := testDay.Add(10 * time.Hour)
	assert.False(t, HasConflict(start, start.Add(30*time.Minute), existing, uuid.Nil))
}

func TestAvailableStarts(t *testing.T) {
	g, err := NewGrid(testDay, 9, 11, 30)
	require.NoError(t, err)

	existing := []*model.Appointment{apt(testDay.Add(9*time.Hour+30*time.Minute), 30)}
	starts := AvailableStarts(g, 30, existing, uuid.Nil)

	assert.Equal(t, []time.Time{
		testDay.Add(9 * time.Hour),
		testDay.Add(10 * time.Hour),
		testDay.Add(10*time.Hour + 30*time.Minute),
	}, starts)
}

func TestAvailableStartsRespectsWindowEnd(t *testing.T) {
	g, err := NewGrid(testDay, 9, 11, 30)
	require.NoError(t, err)

	// a 90-minute appointment cannot start later than 09:30
	starts := AvailableStarts(g, 90, nil, uuid.Nil)
	assert.Equal(t, []time.Time{
		testDay.Add(9 * time.Hour),
		testDay.Add(9*time.Hour + 30*time.Minute),
	}, starts)
}

func TestAvailableStartsFullDay(t *testing.T) {
	g, err := NewGrid(testDay, 9, 10, 30)
	require.NoError(t, err)

	existing := []*model.Appointment{apt(testDay.Add(9*time.Hour), 60)}
	assert.Empty(t, AvailableStarts(g, 30, existing, uuid.Nil))
}
