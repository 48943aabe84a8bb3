package booking

import (
	"time"

	"github.com/google/uuid"
)

// SurgeryType is the classification code a clinic carries. A booking copies
// the code from the patient's clinic at creation time; reassigning the
// patient to another clinic later does not rewrite stored bookings.
type SurgeryType int

type Clinic struct {
	ID          int64
	Name        string
	SurgeryType SurgeryType
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Doctor struct {
	ID        int64
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Patient struct {
	ID        int64
	Name      string
	ClinicID  int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Booking is a scheduled appointment between one doctor and one patient over
// the half-open interval [StartTime, EndTime). Cancelled bookings stay in the
// store but are excluded from reads and overlap checks.
type Booking struct {
	ID          uuid.UUID
	DoctorID    int64
	PatientID   int64
	StartTime   time.Time
	EndTime     time.Time
	SurgeryType SurgeryType
	IsCancelled bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type BookingEvent struct {
	ID        int64
	EventType string
	BookingID *uuid.UUID
	Payload   []byte
	CreatedAt time.Time
}

// NextBooking is the projection returned by GetNextBooking.
type NextBooking struct {
	ID        uuid.UUID
	DoctorID  int64
	StartTime time.Time
	EndTime   time.Time
}
