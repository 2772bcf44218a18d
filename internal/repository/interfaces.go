package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/odontosys/agenda-api/internal/model"
)

var ErrNotFound = errors.New("appointment not found")

// AppointmentRepository is the data-access collaborator the scheduling engine
// reads from and commits to. ListRange must return records in the order they
// were created; the calendar views rely on that order for stable stacking.
type AppointmentRepository interface {
	Create(ctx context.Context, apt *model.Appointment) error
	Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
	List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error)
	ListRange(ctx context.Context, from, to time.Time) ([]*model.Appointment, error)
	UpdateStartTime(ctx context.Context, id uuid.UUID, newStart time.Time) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.AppointmentStatus, cancelReason *string) error
}
