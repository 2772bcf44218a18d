package model

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	AppointmentStatusPending   AppointmentStatus = "pending"
	AppointmentStatusConfirmed AppointmentStatus = "confirmed"
	AppointmentStatusCompleted AppointmentStatus = "completed"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
)

type AppointmentType string

const (
	AppointmentTypeConsultation AppointmentType = "consultation"
	AppointmentTypeCleaning     AppointmentType = "cleaning"
	AppointmentTypeTreatment    AppointmentType = "treatment"
	AppointmentTypeEmergency    AppointmentType = "emergency"
)

type Priority string

const (
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// DefaultDurationMinutes is applied when a request omits the duration.
const DefaultDurationMinutes = 30

// Appointment times are kept in the clinic's local civil time; they are only
// normalized to UTC at the persistence boundary.
type Appointment struct {
	Base
	PatientID       uuid.UUID         `db:"patient_id" json:"patient_id"`
	PatientName     string            `db:"patient_name" json:"patient_name"`
	StartTime       time.Time         `db:"start_time" json:"start_time"`
	DurationMinutes int               `db:"duration_minutes" json:"duration_minutes"`
	Type            AppointmentType   `db:"type" json:"type"`
	Status          AppointmentStatus `db:"status" json:"status"`
	Priority        Priority          `db:"priority" json:"priority,omitempty"`
	Notes           string            `db:"notes" json:"notes,omitempty"`
	CancelReason    *string           `db:"cancel_reason" json:"cancel_reason,omitempty"`
}

// EndTime returns the exclusive end of the appointment interval
// [StartTime, StartTime+Duration).
func (a *Appointment) EndTime() time.Time {
	return a.StartTime.Add(time.Duration(a.DurationMinutes) * time.Minute)
}

// Valid reports whether the record is usable for scheduling. Records that
// fail this check are skipped by the views rather than failing the request.
func (a *Appointment) Valid() bool {
	return !a.StartTime.IsZero() && a.DurationMinutes > 0
}

// Blocking reports whether the appointment occupies its slot. Cancelled
// appointments leave their interval free.
func (a *Appointment) Blocking() bool {
	return a.Status != AppointmentStatusCancelled
}

func (p Priority) Valid() bool {
	switch p {
	case PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

type CreateAppointmentRequest struct {
	PatientID       uuid.UUID `json:"patient_id" binding:"required"`
	PatientName     string    `json:"patient_name" binding:"required,max=200"`
	StartTime       time.Time `json:"start_time" binding:"required"`
	DurationMinutes int       `json:"duration_minutes" binding:"omitempty,gt=0"`
	Type            string    `json:"type" binding:"required,oneof=consultation cleaning treatment emergency"`
	Priority        string    `json:"priority" binding:"omitempty,oneof=normal high urgent"`
	Notes           string    `json:"notes" binding:"max=1000"`
}

type RescheduleRequest struct {
	TargetDate   string `json:"target_date" binding:"required,datetime=2006-01-02"`
	TargetHour   int    `json:"target_hour" binding:"min=0,max=23"`
	TargetMinute int    `json:"target_minute" binding:"min=0,max=59,slotminute"`
	View         string `json:"view" binding:"required,oneof=day week"`
}

type AppointmentFilters struct {
	PatientID uuid.UUID
	Status    AppointmentStatus
	StartDate time.Time
	EndDate   time.Time
}
