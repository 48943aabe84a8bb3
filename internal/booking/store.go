package booking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrDoctorNotFound  = errors.New("doctor not found")
	ErrPatientNotFound = errors.New("patient not found")
	ErrBookingNotFound = errors.New("Booking does not exist")
)

// Store contains all record-store interactions needed by the validator and
// the service. Every booking read applies an explicit is_cancelled = FALSE
// predicate; cancelled rows are only reachable through CancelBooking's
// guarded update, which rejects them.
type Store interface {
	DoctorExists(ctx context.Context, id int64) (bool, error)
	PatientExists(ctx context.Context, id int64) (bool, error)

	// PatientSurgeryType joins patient to clinic. A missing patient or
	// clinic yields the zero classification, not an error.
	PatientSurgeryType(ctx context.Context, patientID int64) (SurgeryType, error)

	// For overlap checks
	ActiveBookingsByDoctor(ctx context.Context, doctorID int64) ([]Booking, error)

	ActiveBookingByID(ctx context.Context, id uuid.UUID) (*Booking, error)
	NextBookingForPatient(ctx context.Context, patientID int64, after time.Time) (*Booking, error)

	// Creation and cancellation
	CreateBooking(ctx context.Context, b *Booking) error
	CancelBooking(ctx context.Context, id uuid.UUID) error

	// Event logging
	InsertEvent(ctx context.Context, ev BookingEvent) error
}
