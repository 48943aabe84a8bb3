package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(store Store) *Service {
	return NewService(store, newTestValidator(store), passLocker{}, zap.NewNop())
}

func TestAddBooking_PersistsSnapshot(t *testing.T) {
	store := seededStore(t)
	svc := newTestService(store)

	start := testNow.Add(10 * time.Hour)
	end := testNow.Add(15 * time.Hour)

	err := svc.AddBooking(context.Background(), AddBookingRequest{
		DoctorID:  1,
		PatientID: 2,
		StartTime: start,
		EndTime:   end,
	})
	require.NoError(t, err)

	bookings, err := store.ActiveBookingsByDoctor(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, bookings, 1)

	b := bookings[0]
	assert.NotEqual(t, uuid.Nil, b.ID)
	assert.Equal(t, int64(1), b.DoctorID)
	assert.Equal(t, int64(2), b.PatientID)
	assert.True(t, b.StartTime.Equal(start))
	assert.True(t, b.EndTime.Equal(end))
	assert.Equal(t, SurgeryType(3), b.SurgeryType, "surgery type copied from the patient's clinic")
	assert.False(t, b.IsCancelled)

	events := store.Events()
	require.Len(t, events, 1)
	assert.Equal(t, EventBookingCreated, events[0].EventType)
	require.NotNil(t, events[0].BookingID)
	assert.Equal(t, b.ID, *events[0].BookingID)
}

func TestAddBooking_SurgeryTypeSnapshotIsNotLive(t *testing.T) {
	store := seededStore(t)
	svc := newTestService(store)

	require.NoError(t, svc.AddBooking(context.Background(), AddBookingRequest{
		DoctorID:  1,
		PatientID: 2,
		StartTime: testNow.Add(time.Hour),
		EndTime:   testNow.Add(2 * time.Hour),
	}))

	// Reassign the patient's clinic after the fact
	store.PutClinic(Clinic{ID: 11, Name: "Elsewhere Clinic", SurgeryType: 7})
	store.PutPatient(Patient{ID: 2, Name: "Bob", ClinicID: 11})

	bookings, err := store.ActiveBookingsByDoctor(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, bookings, 1)
	assert.Equal(t, SurgeryType(3), bookings[0].SurgeryType)
}

func TestAddBooking_ValidationFailureSurfacesFirstErrorOnly(t *testing.T) {
	store := seededStore(t)
	svc := newTestService(store)

	// Past start and inverted interval: the validator accumulates two field
	// errors, the service surfaces only the first.
	err := svc.AddBooking(context.Background(), AddBookingRequest{
		DoctorID:  1,
		PatientID: 2,
		StartTime: testNow.Add(-2 * time.Hour),
		EndTime:   testNow.Add(-3 * time.Hour),
	})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Appointment should start in the future", verr.Message)

	bookings, storeErr := store.ActiveBookingsByDoctor(context.Background(), 1)
	require.NoError(t, storeErr)
	assert.Empty(t, bookings, "rejected booking must not be persisted")
}

func TestAddBooking_DoctorBusy(t *testing.T) {
	store := seededStore(t)
	svc := newTestService(store)

	require.NoError(t, svc.AddBooking(context.Background(), AddBookingRequest{
		DoctorID:  1,
		PatientID: 2,
		StartTime: testNow.Add(10 * time.Hour),
		EndTime:   testNow.Add(15 * time.Hour),
	}))

	err := svc.AddBooking(context.Background(), AddBookingRequest{
		DoctorID:  1,
		PatientID: 2,
		StartTime: testNow.Add(12 * time.Hour),
		EndTime:   testNow.Add(13 * time.Hour),
	})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "The doctor is busy", verr.Message)
}

func TestAddBooking_AdjacentIntervalAllowed(t *testing.T) {
	store := seededStore(t)
	svc := newTestService(store)

	require.NoError(t, svc.AddBooking(context.Background(), AddBookingRequest{
		DoctorID:  1,
		PatientID: 2,
		StartTime: testNow.Add(10 * time.Hour),
		EndTime:   testNow.Add(15 * time.Hour),
	}))

	err := svc.AddBooking(context.Background(), AddBookingRequest{
		DoctorID:  1,
		PatientID: 2,
		StartTime: testNow.Add(15 * time.Hour),
		EndTime:   testNow.Add(20 * time.Hour),
	})
	assert.NoError(t, err)
}

func TestAddBooking_LockContention(t *testing.T) {
	store := seededStore(t)
	svc := NewService(store, newTestValidator(store), heldLocker{}, zap.NewNop())

	err := svc.AddBooking(context.Background(), AddBookingRequest{
		DoctorID:  1,
		PatientID: 2,
		StartTime: testNow.Add(time.Hour),
		EndTime:   testNow.Add(2 * time.Hour),
	})

	assert.ErrorIs(t, err, ErrScheduleContended)
}

func TestAddBooking_StoreFailurePropagates(t *testing.T) {
	boom := errors.New("connection reset")
	store := &mockStore{
		DoctorExistsFunc:         func(context.Context, int64) (bool, error) { return true, nil },
		PatientExistsFunc:        func(context.Context, int64) (bool, error) { return true, nil },
		ActiveBookingsByDoctorFn: func(context.Context, int64) ([]Booking, error) { return nil, nil },
		PatientSurgeryTypeFunc:   func(context.Context, int64) (SurgeryType, error) { return 0, nil },
		CreateBookingFunc:        func(context.Context, *Booking) error { return boom },
	}
	svc := newTestService(store)

	err := svc.AddBooking(context.Background(), AddBookingRequest{
		DoctorID:  1,
		PatientID: 2,
		StartTime: testNow.Add(time.Hour),
		EndTime:   testNow.Add(2 * time.Hour),
	})

	assert.ErrorIs(t, err, boom)
}

func TestCancelBooking_SetsIsCancelled(t *testing.T) {
	store := seededStore(t)
	svc := newTestService(store)

	id := uuid.New()
	require.NoError(t, store.CreateBooking(context.Background(), &Booking{
		ID:        id,
		DoctorID:  1,
		PatientID: 2,
		StartTime: testNow.Add(time.Hour),
		EndTime:   testNow.Add(2 * time.Hour),
	}))

	require.NoError(t, svc.CancelBooking(context.Background(), id))

	_, err := store.ActiveBookingByID(context.Background(), id)
	assert.ErrorIs(t, err, ErrBookingNotFound)

	events := store.Events()
	require.Len(t, events, 1)
	assert.Equal(t, EventBookingCancelled, events[0].EventType)
}

func TestCancelBooking_AlreadyCancelled(t *testing.T) {
	store := seededStore(t)
	svc := newTestService(store)

	id := uuid.New()
	require.NoError(t, store.CreateBooking(context.Background(), &Booking{
		ID:        id,
		DoctorID:  1,
		PatientID: 2,
		StartTime: testNow.Add(time.Hour),
		EndTime:   testNow.Add(2 * time.Hour),
	}))

	require.NoError(t, svc.CancelBooking(context.Background(), id))

	err := svc.CancelBooking(context.Background(), id)
	require.ErrorIs(t, err, ErrBookingNotFound)
	assert.Equal(t, "Booking does not exist", err.Error())
}

func TestCancelBooking_DoesNotExist(t *testing.T) {
	svc := newTestService(seededStore(t))

	err := svc.CancelBooking(context.Background(), uuid.New())
	require.ErrorIs(t, err, ErrBookingNotFound)
	assert.Equal(t, "Booking does not exist", err.Error())
}

func TestGetNextBooking_ReturnsEarliestUpcoming(t *testing.T) {
	store := seededStore(t)
	svc := newTestService(store)

	later := uuid.New()
	sooner := uuid.New()
	for _, b := range []*Booking{
		{ID: later, DoctorID: 1, PatientID: 2, StartTime: time.Now().Add(48 * time.Hour), EndTime: time.Now().Add(49 * time.Hour)},
		{ID: sooner, DoctorID: 1, PatientID: 2, StartTime: time.Now().Add(24 * time.Hour), EndTime: time.Now().Add(25 * time.Hour)},
	} {
		require.NoError(t, store.CreateBooking(context.Background(), b))
	}

	next, err := svc.GetNextBooking(context.Background(), 2)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, sooner, next.ID)
	assert.Equal(t, int64(1), next.DoctorID)
}

func TestGetNextBooking_SkipsCancelled(t *testing.T) {
	store := seededStore(t)
	svc := newTestService(store)

	first := uuid.New()
	second := uuid.New()
	for _, b := range []*Booking{
		{ID: first, DoctorID: 1, PatientID: 2, StartTime: time.Now().Add(24 * time.Hour), EndTime: time.Now().Add(25 * time.Hour)},
		{ID: second, DoctorID: 1, PatientID: 2, StartTime: time.Now().Add(48 * time.Hour), EndTime: time.Now().Add(49 * time.Hour)},
	} {
		require.NoError(t, store.CreateBooking(context.Background(), b))
	}
	require.NoError(t, store.CancelBooking(context.Background(), first))

	next, err := svc.GetNextBooking(context.Background(), 2)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, second, next.ID)
}

func TestGetNextBooking_NoneUpcoming(t *testing.T) {
	svc := newTestService(seededStore(t))

	next, err := svc.GetNextBooking(context.Background(), 2)
	require.NoError(t, err)
	assert.Nil(t, next)
}

// Full walkthrough: add, conflicting add, adjacent add, cancel, double cancel.
func TestBookingLifecycleScenario(t *testing.T) {
	store := seededStore(t)
	svc := newTestService(store)
	ctx := context.Background()

	require.NoError(t, svc.AddBooking(ctx, AddBookingRequest{
		DoctorID: 1, PatientID: 2,
		StartTime: testNow.Add(10 * time.Hour),
		EndTime:   testNow.Add(15 * time.Hour),
	}))

	bookings, err := store.ActiveBookingsByDoctor(ctx, 1)
	require.NoError(t, err)
	require.Len(t, bookings, 1)
	first := bookings[0]
	assert.Equal(t, SurgeryType(3), first.SurgeryType)
	assert.False(t, first.IsCancelled)

	err = svc.AddBooking(ctx, AddBookingRequest{
		DoctorID: 1, PatientID: 2,
		StartTime: testNow.Add(12 * time.Hour),
		EndTime:   testNow.Add(13 * time.Hour),
	})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "The doctor is busy", verr.Message)

	require.NoError(t, svc.AddBooking(ctx, AddBookingRequest{
		DoctorID: 1, PatientID: 2,
		StartTime: testNow.Add(15 * time.Hour),
		EndTime:   testNow.Add(20 * time.Hour),
	}))

	require.NoError(t, svc.CancelBooking(ctx, first.ID))

	err = svc.CancelBooking(ctx, first.ID)
	require.ErrorIs(t, err, ErrBookingNotFound)
	assert.Equal(t, "Booking does not exist", err.Error())
}
