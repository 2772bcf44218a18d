package appointment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odontosys/agenda-api/internal/config"
	"github.com/odontosys/agenda-api/internal/model"
	"github.com/odontosys/agenda-api/internal/repository"
	appointmentService "github.com/odontosys/agenda-api/internal/service/appointment"
)

type stubRepo struct {
	appointments map[uuid.UUID]*model.Appointment
	order        []uuid.UUID
}

func newStubRepo() *stubRepo {
	return &stubRepo{appointments: make(map[uuid.UUID]*model.Appointment)}
}

func (r *stubRepo) add(apt *model.Appointment) *model.Appointment {
	if apt.ID == uuid.Nil {
		apt.ID = uuid.New()
	}
	r.appointments[apt.ID] = apt
	r.order = append(r.order, apt.ID)
	return apt
}

func (r *stubRepo) Create(_ context.Context, apt *model.Appointment) error {
	apt.ID = uuid.New()
	r.add(apt)
	return nil
}

func (r *stubRepo) Get(_ context.Context, id uuid.UUID) (*model.Appointment, error) {
	apt, ok := r.appointments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return apt, nil
}

func (r *stubRepo) List(_ context.Context, _ *model.AppointmentFilters) ([]*model.Appointment, error) {
	var out []*model.Appointment
	for _, id := range r.order {
		out = append(out, r.appointments[id])
	}
	return out, nil
}

func (r *stubRepo) ListRange(_ context.Context, from, to time.Time) ([]*model.Appointment, error) {
	var out []*model.Appointment
	for _, id := range r.order {
		apt := r.appointments[id]
		if !apt.StartTime.Before(from) && apt.StartTime.Before(to) {
			out = append(out, apt)
		}
	}
	return out, nil
}

func (r *stubRepo) UpdateStartTime(_ context.Context, id uuid.UUID, newStart time.Time) error {
	apt, ok := r.appointments[id]
	if !ok {
		return repository.ErrNotFound
	}
	apt.StartTime = newStart
	return nil
}

func (r *stubRepo) UpdateStatus(_ context.Context, id uuid.UUID, status model.AppointmentStatus, reason *string) error {
	apt, ok := r.appointments[id]
	if !ok {
		return repository.ErrNotFound
	}
	apt.Status = status
	apt.CancelReason = reason
	return nil
}

func setupRouter(repo *stubRepo) *gin.Engine {
	gin.SetMode(gin.TestMode)

	cfg := config.SchedulingConfig{
		StartHour:              7,
		EndHour:                21,
		DayGranularityMinutes:  15,
		WeekGranularityMinutes: 60,
		UrgencyKeywords:        []string{"urgente", "dolor"},
		EmergencyTypes:         []string{"emergency", "emergencia", "urgencia"},
		DayViewStacking:        true,
	}
	svc := appointmentService.NewService(repo, nil, nil, zerolog.Nop(), cfg)
	h := NewHandler(svc)

	engine := gin.New()
	api := engine.Group("/api/v1")
	h.RegisterRoutes(api)
	return engine
}

func doRequest(engine *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		payload, _ := json.Marshal(body)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func futureDay() time.Time {
	d := time.Now().AddDate(0, 0, 7)
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.Local)
}

func TestGetDayView(t *testing.T) {
	repo := newStubRepo()
	day := futureDay()
	repo.add(&model.Appointment{
		Base:            model.Base{ID: uuid.New()},
		PatientID:       uuid.New(),
		PatientName:     "Carla Núñez",
		StartTime:       day.Add(9 * time.Hour),
		DurationMinutes: 30,
		Type:            model.AppointmentTypeCleaning,
		Status:          model.AppointmentStatusConfirmed,
	})
	engine := setupRouter(repo)

	w := doRequest(engine, http.MethodGet, "/api/v1/schedule/day?date="+day.Format("2006-01-02"), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Status string `json:"status"`
		Data   struct {
			Slots []struct {
				Stack []json.RawMessage `json:"stack"`
			} `json:"slots"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "success", resp.Status)
	assert.Len(t, resp.Data.Slots, 56)

	w = doRequest(engine, http.MethodGet, "/api/v1/schedule/day?date=not-a-date", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRescheduleAccepted(t *testing.T) {
	repo := newStubRepo()
	day := futureDay()
	apt := repo.add(&model.Appointment{
		Base:            model.Base{ID: uuid.New()},
		PatientID:       uuid.New(),
		StartTime:       day.Add(10 * time.Hour),
		DurationMinutes: 30,
		Type:            model.AppointmentTypeConsultation,
		Status:          model.AppointmentStatusConfirmed,
	})
	engine := setupRouter(repo)

	w := doRequest(engine, http.MethodPost, fmt.Sprintf("/api/v1/appointments/%s/reschedule", apt.ID), model.RescheduleRequest{
		TargetDate:   day.Format("2006-01-02"),
		TargetHour:   16,
		TargetMinute: 30,
		View:         "day",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, repo.appointments[apt.ID].StartTime.Equal(day.Add(16*time.Hour+30*time.Minute)))
}

func TestRescheduleRejectedPastTime(t *testing.T) {
	repo := newStubRepo()
	today := time.Now()
	midnight := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.Local)
	apt := repo.add(&model.Appointment{
		Base:            model.Base{ID: uuid.New()},
		PatientID:       uuid.New(),
		StartTime:       midnight.Add(23 * time.Hour),
		DurationMinutes: 30,
		Type:            model.AppointmentTypeConsultation,
		Status:          model.AppointmentStatusConfirmed,
	})
	engine := setupRouter(repo)

	// moving to 00:00 today is always in the past
	w := doRequest(engine, http.MethodPost, fmt.Sprintf("/api/v1/appointments/%s/reschedule", apt.ID), model.RescheduleRequest{
		TargetDate: midnight.Format("2006-01-02"),
		TargetHour: 0,
		View:       "week",
	})
	require.Equal(t, http.StatusConflict, w.Code)

	var resp struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "rejected", resp.Status)
	assert.Equal(t, "past_time", resp.Message)
}

func TestRescheduleValidation(t *testing.T) {
	repo := newStubRepo()
	engine := setupRouter(repo)
	id := uuid.New()

	// off-grid minute offset
	w := doRequest(engine, http.MethodPost, fmt.Sprintf("/api/v1/appointments/%s/reschedule", id), model.RescheduleRequest{
		TargetDate:   futureDay().Format("2006-01-02"),
		TargetHour:   10,
		TargetMinute: 7,
		View:         "day",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// unknown view
	w = doRequest(engine, http.MethodPost, fmt.Sprintf("/api/v1/appointments/%s/reschedule", id), model.RescheduleRequest{
		TargetDate: futureDay().Format("2006-01-02"),
		TargetHour: 10,
		View:       "month",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// unknown appointment
	w = doRequest(engine, http.MethodPost, fmt.Sprintf("/api/v1/appointments/%s/reschedule", id), model.RescheduleRequest{
		TargetDate: futureDay().Format("2006-01-02"),
		TargetHour: 10,
		View:       "week",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateAppointment(t *testing.T) {
	repo := newStubRepo()
	engine := setupRouter(repo)

	w := doRequest(engine, http.MethodPost, "/api/v1/appointments", model.CreateAppointmentRequest{
		PatientID:   uuid.New(),
		PatientName: "Pedro Salas",
		StartTime:   futureDay().Add(11 * time.Hour),
		Type:        "treatment",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		Data model.Appointment `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, model.DefaultDurationMinutes, resp.Data.DurationMinutes)

	// invalid type is rejected by binding
	w = doRequest(engine, http.MethodPost, "/api/v1/appointments", model.CreateAppointmentRequest{
		PatientID:   uuid.New(),
		PatientName: "Pedro Salas",
		StartTime:   futureDay().Add(11 * time.Hour),
		Type:        "surgery",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetAvailability(t *testing.T) {
	repo := newStubRepo()
	day := futureDay()
	repo.add(&model.Appointment{
		Base:            model.Base{ID: uuid.New()},
		PatientID:       uuid.New(),
		StartTime:       day.Add(7 * time.Hour),
		DurationMinutes: 30,
		Type:            model.AppointmentTypeConsultation,
		Status:          model.AppointmentStatusConfirmed,
	})
	engine := setupRouter(repo)

	w := doRequest(engine, http.MethodGet, "/api/v1/appointments/availability?date="+day.Format("2006-01-02")+"&duration=30&view=day", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data []time.Time `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Data)
	assert.True(t, resp.Data[0].Equal(day.Add(7*time.Hour+30*time.Minute)))
}
