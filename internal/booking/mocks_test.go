package booking

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	redisclient "github.com/careloop/patient-booking/internal/redis"
)

// Compile-time check to ensure mockStore implements Store
var _ Store = (*mockStore)(nil)

// mockStore is a function-field mock; unset fields return an error so a test
// only has to stub the calls it expects. calls counts every store touch.
type mockStore struct {
	DoctorExistsFunc          func(ctx context.Context, id int64) (bool, error)
	PatientExistsFunc         func(ctx context.Context, id int64) (bool, error)
	PatientSurgeryTypeFunc    func(ctx context.Context, patientID int64) (SurgeryType, error)
	ActiveBookingsByDoctorFn  func(ctx context.Context, doctorID int64) ([]Booking, error)
	ActiveBookingByIDFunc     func(ctx context.Context, id uuid.UUID) (*Booking, error)
	NextBookingForPatientFunc func(ctx context.Context, patientID int64, after time.Time) (*Booking, error)
	CreateBookingFunc         func(ctx context.Context, b *Booking) error
	CancelBookingFunc         func(ctx context.Context, id uuid.UUID) error
	InsertEventFunc           func(ctx context.Context, ev BookingEvent) error

	calls atomic.Int32
}

var errMockNotStubbed = errors.New("mock call not stubbed")

func (m *mockStore) DoctorExists(ctx context.Context, id int64) (bool, error) {
	m.calls.Add(1)
	if m.DoctorExistsFunc != nil {
		return m.DoctorExistsFunc(ctx, id)
	}
	return false, errMockNotStubbed
}

func (m *mockStore) PatientExists(ctx context.Context, id int64) (bool, error) {
	m.calls.Add(1)
	if m.PatientExistsFunc != nil {
		return m.PatientExistsFunc(ctx, id)
	}
	return false, errMockNotStubbed
}

func (m *mockStore) PatientSurgeryType(ctx context.Context, patientID int64) (SurgeryType, error) {
	m.calls.Add(1)
	if m.PatientSurgeryTypeFunc != nil {
		return m.PatientSurgeryTypeFunc(ctx, patientID)
	}
	return 0, errMockNotStubbed
}

func (m *mockStore) ActiveBookingsByDoctor(ctx context.Context, doctorID int64) ([]Booking, error) {
	m.calls.Add(1)
	if m.ActiveBookingsByDoctorFn != nil {
		return m.ActiveBookingsByDoctorFn(ctx, doctorID)
	}
	return nil, errMockNotStubbed
}

func (m *mockStore) ActiveBookingByID(ctx context.Context, id uuid.UUID) (*Booking, error) {
	m.calls.Add(1)
	if m.ActiveBookingByIDFunc != nil {
		return m.ActiveBookingByIDFunc(ctx, id)
	}
	return nil, errMockNotStubbed
}

func (m *mockStore) NextBookingForPatient(ctx context.Context, patientID int64, after time.Time) (*Booking, error) {
	m.calls.Add(1)
	if m.NextBookingForPatientFunc != nil {
		return m.NextBookingForPatientFunc(ctx, patientID, after)
	}
	return nil, errMockNotStubbed
}

func (m *mockStore) CreateBooking(ctx context.Context, b *Booking) error {
	m.calls.Add(1)
	if m.CreateBookingFunc != nil {
		return m.CreateBookingFunc(ctx, b)
	}
	return errMockNotStubbed
}

func (m *mockStore) CancelBooking(ctx context.Context, id uuid.UUID) error {
	m.calls.Add(1)
	if m.CancelBookingFunc != nil {
		return m.CancelBookingFunc(ctx, id)
	}
	return errMockNotStubbed
}

func (m *mockStore) InsertEvent(ctx context.Context, ev BookingEvent) error {
	m.calls.Add(1)
	if m.InsertEventFunc != nil {
		return m.InsertEventFunc(ctx, ev)
	}
	return nil
}

// passLocker runs the critical section directly, standing in for Redis.
type passLocker struct{}

func (passLocker) WithDoctorLock(ctx context.Context, _ int64, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// heldLocker simulates a lock already held by another request.
type heldLocker struct{}

func (heldLocker) WithDoctorLock(context.Context, int64, func(ctx context.Context) error) error {
	return redisclient.ErrLockNotAcquired
}
