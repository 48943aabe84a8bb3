package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgStore struct {
	pool *pgxpool.Pool
}

func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

// Helpers

func scanBooking(row pgx.Row) (*Booking, error) {
	var b Booking

	err := row.Scan(
		&b.ID,
		&b.DoctorID,
		&b.PatientID,
		&b.StartTime,
		&b.EndTime,
		&b.SurgeryType,
		&b.IsCancelled,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}

	return &b, nil
}

// Interface methods

func (s *PgStore) DoctorExists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM doctors WHERE id = $1)
	`, id).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (s *PgStore) PatientExists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM patients WHERE id = $1)
	`, id).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (s *PgStore) PatientSurgeryType(ctx context.Context, patientID int64) (SurgeryType, error) {
	var st SurgeryType
	err := s.pool.QueryRow(ctx, `
		SELECT c.surgery_type
		FROM patients p
		JOIN clinics c ON c.id = p.clinic_id
		WHERE p.id = $1
	`, patientID).Scan(&st)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	return st, nil
}

func (s *PgStore) ActiveBookingsByDoctor(ctx context.Context, doctorID int64) ([]Booking, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, doctor_id, patient_id, start_time, end_time, surgery_type, is_cancelled, created_at, updated_at
		FROM bookings
		WHERE doctor_id = $1
		  AND is_cancelled = FALSE
	`, doctorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *b)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (s *PgStore) ActiveBookingByID(ctx context.Context, id uuid.UUID) (*Booking, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, doctor_id, patient_id, start_time, end_time, surgery_type, is_cancelled, created_at, updated_at
		FROM bookings
		WHERE id = $1
		  AND is_cancelled = FALSE
	`, id)
	return scanBooking(row)
}

func (s *PgStore) NextBookingForPatient(ctx context.Context, patientID int64, after time.Time) (*Booking, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, doctor_id, patient_id, start_time, end_time, surgery_type, is_cancelled, created_at, updated_at
		FROM bookings
		WHERE patient_id = $1
		  AND is_cancelled = FALSE
		  AND start_time > $2
		ORDER BY start_time
		LIMIT 1
	`, patientID, after)
	return scanBooking(row)
}

func (s *PgStore) CreateBooking(ctx context.Context, b *Booking) error {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO bookings (id, doctor_id, patient_id, start_time, end_time, surgery_type, is_cancelled, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, FALSE, now(), now())
		RETURNING id, doctor_id, patient_id, start_time, end_time, surgery_type, is_cancelled, created_at, updated_at
	`, b.ID, b.DoctorID, b.PatientID, b.StartTime, b.EndTime, b.SurgeryType)

	created, err := scanBooking(row)
	if err != nil {
		return err
	}

	*b = *created
	return nil
}

// CancelBooking flips is_cancelled with a guard on the current state, so a
// booking cancelled by a concurrent request reports not-found rather than
// silently succeeding twice.
func (s *PgStore) CancelBooking(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE bookings
		SET is_cancelled = TRUE,
		    updated_at = now()
		WHERE id = $1
		  AND is_cancelled = FALSE
	`, id)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return ErrBookingNotFound
	}

	return nil
}

func (s *PgStore) InsertEvent(ctx context.Context, ev BookingEvent) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO booking_events (event_type, booking_id, payload, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`, ev.EventType, ev.BookingID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert booking event: %w", err)
	}

	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
