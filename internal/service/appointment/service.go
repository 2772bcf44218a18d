package appointment

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"

	"github.com/odontosys/agenda-api/internal/config"
	"github.com/odontosys/agenda-api/internal/model"
	"github.com/odontosys/agenda-api/internal/repository"
	"github.com/odontosys/agenda-api/internal/schedule"
	"github.com/odontosys/agenda-api/pkg/messaging"
	"github.com/odontosys/agenda-api/pkg/metrics"
)

const (
	occupancyCacheTTL     = 30 * time.Second
	occupancyCacheCleanup = time.Minute

	// ChannelRescheduled carries committed move events for downstream
	// consumers (reminders, front desk dashboard).
	ChannelRescheduled = "appointment.rescheduled"
)

var (
	// ErrNotFound aliases the repository sentinel for handler convenience.
	ErrNotFound = repository.ErrNotFound
	// ErrMoveInFlight means a commit for the same appointment has not
	// returned yet. Moves of different appointments proceed independently.
	ErrMoveInFlight = errors.New("a move for this appointment is already in flight")
	ErrUnknownView  = errors.New("unknown view")
)

type Service struct {
	repo    repository.AppointmentRepository
	broker  messaging.Broker
	metrics *metrics.Metrics
	logger  zerolog.Logger

	cfg        config.SchedulingConfig
	priority   schedule.PriorityConfig
	dayPolicy  schedule.ViewPolicy
	weekPolicy schedule.ViewPolicy

	occupancy *gocache.Cache

	mu       sync.Mutex
	inFlight map[uuid.UUID]struct{}

	now func() time.Time
}

func NewService(
	repo repository.AppointmentRepository,
	broker messaging.Broker,
	m *metrics.Metrics,
	logger zerolog.Logger,
	cfg config.SchedulingConfig,
) *Service {
	dayPolicy := schedule.DayViewPolicy()
	dayPolicy.GranularityMinutes = cfg.DayGranularityMinutes
	dayPolicy.AllowStacking = cfg.DayViewStacking

	weekPolicy := schedule.WeekViewPolicy()
	weekPolicy.GranularityMinutes = cfg.WeekGranularityMinutes
	weekPolicy.AllowStacking = cfg.WeekViewStacking

	return &Service{
		repo:    repo,
		broker:  broker,
		metrics: m,
		logger:  logger,
		cfg:     cfg,
		priority: schedule.PriorityConfig{
			EmergencyTypes:  cfg.EmergencyTypes,
			UrgencyKeywords: cfg.UrgencyKeywords,
		},
		dayPolicy:  dayPolicy,
		weekPolicy: weekPolicy,
		occupancy:  gocache.New(occupancyCacheTTL, occupancyCacheCleanup),
		inFlight:   make(map[uuid.UUID]struct{}),
		now:        time.Now,
	}
}

// StackEntry is one card of a slot's stack, annotated for rendering.
type StackEntry struct {
	Appointment     *model.Appointment `json:"appointment"`
	Priority        model.Priority     `json:"priority"`
	RevealOffset    int                `json:"reveal_offset"`
	CollapsedOffset int                `json:"collapsed_offset"`
}

// SlotView is one grid slot with its (possibly empty) stack.
type SlotView struct {
	Slot  schedule.Slot `json:"slot"`
	Stack []StackEntry  `json:"stack,omitempty"`
}

type DayView struct {
	Date  time.Time  `json:"date"`
	Slots []SlotView `json:"slots"`
}

type WeekView struct {
	Start time.Time `json:"start"`
	Days  []DayView `json:"days"`
}

// RescheduledEvent is published on ChannelRescheduled after a committed move.
type RescheduledEvent struct {
	AppointmentID uuid.UUID `json:"appointment_id"`
	OldStart      time.Time `json:"old_start"`
	NewStart      time.Time `json:"new_start"`
	View          string    `json:"view"`
}

func (s *Service) CreateAppointment(ctx context.Context, req *model.CreateAppointmentRequest) (*model.Appointment, error) {
	apt := &model.Appointment{
		PatientID:       req.PatientID,
		PatientName:     req.PatientName,
		StartTime:       req.StartTime,
		DurationMinutes: req.DurationMinutes,
		Type:            model.AppointmentType(req.Type),
		Status:          model.AppointmentStatusPending,
		Priority:        model.Priority(req.Priority),
		Notes:           req.Notes,
	}
	if apt.DurationMinutes <= 0 {
		apt.DurationMinutes = model.DefaultDurationMinutes
	}

	if err := s.repo.Create(ctx, apt); err != nil {
		return nil, fmt.Errorf("failed to create appointment: %w", err)
	}

	s.invalidateDay(apt.StartTime)
	return apt, nil
}

func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	apt, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return apt, nil
}

func (s *Service) ListAppointments(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	appointments, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return appointments, nil
}

func (s *Service) CancelAppointment(ctx context.Context, id uuid.UUID, reason string) error {
	apt, err := s.repo.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get appointment: %w", err)
	}

	if apt.Status == model.AppointmentStatusCancelled {
		return fmt.Errorf("appointment is already cancelled")
	}
	if apt.Status == model.AppointmentStatusCompleted {
		return fmt.Errorf("cannot cancel a completed appointment")
	}

	if err := s.repo.UpdateStatus(ctx, id, model.AppointmentStatusCancelled, &reason); err != nil {
		return fmt.Errorf("failed to cancel appointment: %w", err)
	}

	s.invalidateDay(apt.StartTime)
	return nil
}

// BuildDayView assembles the 15-minute day calendar: every working-hours slot
// with its stack in server-return order, priorities resolved, reveal offsets
// attached. Results are cached briefly per day.
func (s *Service) BuildDayView(ctx context.Context, date time.Time) (*DayView, error) {
	key := dayKey(date)
	if cached, ok := s.occupancy.Get(key); ok {
		s.countCache("hit")
		return cached.(*DayView), nil
	}
	s.countCache("miss")

	grid, err := schedule.NewGrid(date, s.cfg.StartHour, s.cfg.EndHour, s.cfg.DayGranularityMinutes)
	if err != nil {
		return nil, err
	}

	appointments, err := s.loadDay(ctx, grid.Date)
	if err != nil {
		return nil, err
	}

	view := s.buildView(grid, appointments)
	s.occupancy.Set(key, view, gocache.DefaultExpiration)
	s.countView("day")
	return view, nil
}

// BuildWeekView assembles seven hour-granularity day views starting at
// weekStart. Not cached: the week window shifts with its query parameter and
// the day cache already absorbs the hot path.
func (s *Service) BuildWeekView(ctx context.Context, weekStart time.Time) (*WeekView, error) {
	week := &WeekView{Start: weekStart}
	for i := 0; i < 7; i++ {
		day := weekStart.AddDate(0, 0, i)
		grid, err := schedule.NewGrid(day, s.cfg.StartHour, s.cfg.EndHour, s.cfg.WeekGranularityMinutes)
		if err != nil {
			return nil, err
		}
		appointments, err := s.loadDay(ctx, grid.Date)
		if err != nil {
			return nil, err
		}
		week.Days = append(week.Days, *s.buildView(grid, appointments))
	}
	s.countView("week")
	return week, nil
}

// Availability returns the chronological start times where an appointment of
// the given duration fits on the requested view's grid.
func (s *Service) Availability(ctx context.Context, date time.Time, durationMinutes int, view string) ([]time.Time, error) {
	policy, err := s.policyFor(view)
	if err != nil {
		return nil, err
	}
	if durationMinutes <= 0 {
		durationMinutes = model.DefaultDurationMinutes
	}

	grid, err := schedule.NewGrid(date, s.cfg.StartHour, s.cfg.EndHour, policy.GranularityMinutes)
	if err != nil {
		return nil, err
	}
	appointments, err := s.loadDay(ctx, grid.Date)
	if err != nil {
		return nil, err
	}
	return schedule.AvailableStarts(grid, durationMinutes, appointments, uuid.Nil), nil
}

// Reschedule validates a proposed move and, when accepted, commits it.
// Rejections come back as a Decision, not an error. The commit is guarded so
// at most one write per appointment is outstanding; a concurrent second
// proposal gets ErrMoveInFlight. Commit failure is surfaced once with no
// retry, and the cached views are only touched after a successful commit, so
// a failed move never leaves a half-applied slot assignment visible.
func (s *Service) Reschedule(ctx context.Context, id uuid.UUID, target schedule.MoveTarget, view string) (schedule.Decision, error) {
	start := s.now()
	policy, err := s.policyFor(view)
	if err != nil {
		return schedule.Decision{}, err
	}

	if !s.acquireMove(id) {
		return schedule.Decision{}, ErrMoveInFlight
	}
	defer s.releaseMove(id)

	apt, err := s.repo.Get(ctx, id)
	if err != nil {
		return schedule.Decision{}, fmt.Errorf("failed to get appointment: %w", err)
	}

	session := schedule.DragSession{
		AppointmentID: id,
		StartedAt:     start,
		HoverTarget:   &target,
	}

	newStart := policy.ResolveTarget(apt, target)
	existing, err := s.loadDay(ctx, midnight(newStart))
	if err != nil {
		return schedule.Decision{}, err
	}

	decision := session.Propose(policy, apt, existing, s.now())
	if !decision.Accepted {
		s.countRejection(string(decision.Reason))
		s.logger.Info().
			Str("appointment_id", id.String()).
			Str("view", view).
			Str("reason", string(decision.Reason)).
			Msg("move rejected")
		return decision, nil
	}

	if err := s.repo.UpdateStartTime(ctx, id, decision.NewStart); err != nil {
		return schedule.Decision{}, fmt.Errorf("failed to commit move: %w", err)
	}

	s.invalidateDay(apt.StartTime)
	s.invalidateDay(decision.NewStart)
	s.publishRescheduled(ctx, RescheduledEvent{
		AppointmentID: id,
		OldStart:      apt.StartTime,
		NewStart:      decision.NewStart,
		View:          view,
	})
	s.countAccepted(time.Since(start))

	return decision, nil
}

func (s *Service) policyFor(view string) (schedule.ViewPolicy, error) {
	switch view {
	case s.dayPolicy.Name:
		return s.dayPolicy, nil
	case s.weekPolicy.Name:
		return s.weekPolicy, nil
	}
	return schedule.ViewPolicy{}, fmt.Errorf("%w: %q", ErrUnknownView, view)
}

// loadDay fetches one calendar day's appointments in server order, dropping
// malformed records. One bad row must never blank the calendar.
func (s *Service) loadDay(ctx context.Context, day time.Time) ([]*model.Appointment, error) {
	records, err := s.repo.ListRange(ctx, day, day.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("failed to load appointments: %w", err)
	}

	valid := records[:0]
	for _, apt := range records {
		if !apt.Valid() {
			s.logger.Warn().
				Str("appointment_id", apt.ID.String()).
				Time("start_time", apt.StartTime).
				Int("duration_minutes", apt.DurationMinutes).
				Msg("skipping malformed appointment record")
			s.countMalformed()
			continue
		}
		valid = append(valid, apt)
	}
	return valid, nil
}

func (s *Service) buildView(grid *schedule.Grid, appointments []*model.Appointment) *DayView {
	occ := schedule.GroupBySlot(appointments, grid)

	view := &DayView{Date: grid.Date}
	for _, slot := range grid.Slots() {
		sv := SlotView{Slot: slot}
		stack := occ.At(slot.Key())
		if len(stack) > 0 {
			reveal := schedule.StackRevealOffsets(len(stack))
			collapsed := schedule.CollapsedOffsets(len(stack))
			for i, apt := range stack {
				sv.Stack = append(sv.Stack, StackEntry{
					Appointment:     apt,
					Priority:        s.priority.Resolve(apt),
					RevealOffset:    reveal[i],
					CollapsedOffset: collapsed[i],
				})
			}
		}
		view.Slots = append(view.Slots, sv)
	}
	return view
}

func (s *Service) acquireMove(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[id]; busy {
		return false
	}
	s.inFlight[id] = struct{}{}
	return true
}

func (s *Service) releaseMove(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, id)
}

func (s *Service) invalidateDay(t time.Time) {
	s.occupancy.Delete(dayKey(t))
}

func (s *Service) publishRescheduled(ctx context.Context, evt RescheduledEvent) {
	if s.broker == nil {
		return
	}
	if err := s.broker.Publish(ctx, ChannelRescheduled, evt); err != nil {
		s.logger.Error().Err(err).
			Str("appointment_id", evt.AppointmentID.String()).
			Msg("failed to publish reschedule event")
		s.countPublish("error")
		return
	}
	s.countPublish("ok")
}

func dayKey(t time.Time) string {
	return "day:" + t.Format("2006-01-02")
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func (s *Service) countCache(result string) {
	if s.metrics != nil {
		s.metrics.OccupancyCacheHits.WithLabelValues(result).Inc()
	}
}

func (s *Service) countView(view string) {
	if s.metrics != nil {
		s.metrics.ViewBuilds.WithLabelValues(view).Inc()
	}
}

func (s *Service) countMalformed() {
	if s.metrics != nil {
		s.metrics.MalformedRecords.Inc()
	}
}

func (s *Service) countRejection(reason string) {
	if s.metrics != nil {
		s.metrics.ReschedulesRejected.WithLabelValues(reason).Inc()
	}
}

func (s *Service) countAccepted(elapsed time.Duration) {
	if s.metrics != nil {
		s.metrics.ReschedulesAccepted.Inc()
		s.metrics.RescheduleLatency.Observe(elapsed.Seconds())
	}
}

func (s *Service) countPublish(status string) {
	if s.metrics != nil {
		s.metrics.EventsPublished.WithLabelValues(ChannelRescheduled, status).Inc()
	}
}
