package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	redisclient "github.com/careloop/patient-booking/internal/redis"
)

const (
	EventBookingCreated   = "BOOKING_CREATED"
	EventBookingCancelled = "BOOKING_CANCELLED"
)

// ErrScheduleContended is returned when another request holds the doctor's
// schedule lock; the caller should retry.
var ErrScheduleContended = errors.New("doctor schedule is being updated, please retry")

type Service struct {
	store     Store
	validator *Validator
	locker    redisclient.Locker
	log       *zap.Logger
}

func NewService(store Store, validator *Validator, locker redisclient.Locker, log *zap.Logger) *Service {
	return &Service{
		store:     store,
		validator: validator,
		locker:    locker,
		log:       log,
	}
}

// AddBooking validates and persists a proposed booking. Validation and
// insert run inside a per-doctor lock so concurrent requests for the same
// doctor cannot both pass the overlap check.
func (s *Service) AddBooking(ctx context.Context, req AddBookingRequest) error {
	err := s.locker.WithDoctorLock(ctx, req.DoctorID, func(lockCtx context.Context) error {
		result, err := s.validator.ValidateRequest(lockCtx, req)
		if err != nil {
			return fmt.Errorf("validate booking: %w", err)
		}
		if !result.PassedValidation {
			return &ValidationError{Message: result.Errors[0]}
		}

		// Existence already passed, so a missing clinic falls back to the
		// zero classification rather than failing.
		surgeryType, err := s.store.PatientSurgeryType(lockCtx, req.PatientID)
		if err != nil {
			return fmt.Errorf("load patient surgery type: %w", err)
		}

		b := &Booking{
			ID:          uuid.New(),
			DoctorID:    req.DoctorID,
			PatientID:   req.PatientID,
			StartTime:   req.StartTime,
			EndTime:     req.EndTime,
			SurgeryType: surgeryType,
			IsCancelled: false,
		}

		if err := s.store.CreateBooking(lockCtx, b); err != nil {
			return fmt.Errorf("create booking: %w", err)
		}

		s.logEvent(lockCtx, b.ID, EventBookingCreated, map[string]any{
			"doctor_id":  req.DoctorID,
			"patient_id": req.PatientID,
			"start_time": req.StartTime,
			"end_time":   req.EndTime,
		})

		return nil
	})

	if errors.Is(err, redisclient.ErrLockNotAcquired) {
		return ErrScheduleContended
	}

	return err
}

// CancelBooking marks a booking cancelled. The lookup only sees non-cancelled
// bookings, so a missing id and an already-cancelled booking both fail the
// same way. Cancelling twice is an error, not a no-op.
func (s *Service) CancelBooking(ctx context.Context, id uuid.UUID) error {
	if _, err := s.store.ActiveBookingByID(ctx, id); err != nil {
		if errors.Is(err, ErrBookingNotFound) {
			return ErrBookingNotFound
		}
		return fmt.Errorf("load booking: %w", err)
	}

	if err := s.store.CancelBooking(ctx, id); err != nil {
		if errors.Is(err, ErrBookingNotFound) {
			return ErrBookingNotFound
		}
		return fmt.Errorf("cancel booking: %w", err)
	}

	s.logEvent(ctx, id, EventBookingCancelled, map[string]any{})

	return nil
}

// GetNextBooking returns the patient's earliest upcoming non-cancelled
// booking, or nil when there is none.
func (s *Service) GetNextBooking(ctx context.Context, patientID int64) (*NextBooking, error) {
	b, err := s.store.NextBookingForPatient(ctx, patientID, time.Now())
	if err != nil {
		if errors.Is(err, ErrBookingNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load next booking: %w", err)
	}

	return &NextBooking{
		ID:        b.ID,
		DoctorID:  b.DoctorID,
		StartTime: b.StartTime,
		EndTime:   b.EndTime,
	}, nil
}

func (s *Service) logEvent(ctx context.Context, bookingID uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.log.Warn("marshal event payload", zap.String("event_type", eventType), zap.Error(err))
		data = nil
	}

	id := bookingID

	ev := BookingEvent{
		EventType: eventType,
		BookingID: &id,
		Payload:   data,
		CreatedAt: time.Now(),
	}

	if err := s.store.InsertEvent(ctx, ev); err != nil {
		s.log.Warn("insert booking event",
			zap.String("event_type", eventType),
			zap.String("booking_id", bookingID.String()),
			zap.Error(err))
	}
}
