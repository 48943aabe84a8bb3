package booking

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Compile-time contract assertion.
var _ Store = (*MemStore)(nil)

// MemStore is an in-memory Store used by tests and by cmd/simulate's dry-run
// mode. Reads apply the same non-cancelled predicate as the Postgres queries.
type MemStore struct {
	mu       sync.RWMutex
	clinics  map[int64]Clinic
	doctors  map[int64]Doctor
	patients map[int64]Patient
	bookings map[uuid.UUID]*Booking
	events   []BookingEvent
	order    []uuid.UUID // insertion order, keeps next-booking ties stable
}

func NewMemStore() *MemStore {
	return &MemStore{
		clinics:  make(map[int64]Clinic),
		doctors:  make(map[int64]Doctor),
		patients: make(map[int64]Patient),
		bookings: make(map[uuid.UUID]*Booking),
	}
}

// Seed helpers used by tests and the simulator.

func (s *MemStore) PutClinic(c Clinic) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clinics[c.ID] = c
}

func (s *MemStore) PutDoctor(d Doctor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doctors[d.ID] = d
}

func (s *MemStore) PutPatient(p Patient) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.patients[p.ID] = p
}

func (s *MemStore) Events() []BookingEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]BookingEvent, len(s.events))
	copy(out, s.events)
	return out
}

// Store implementation

func (s *MemStore) DoctorExists(_ context.Context, id int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.doctors[id]
	return ok, nil
}

func (s *MemStore) PatientExists(_ context.Context, id int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.patients[id]
	return ok, nil
}

func (s *MemStore) PatientSurgeryType(_ context.Context, patientID int64) (SurgeryType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.patients[patientID]
	if !ok {
		return 0, nil
	}
	c, ok := s.clinics[p.ClinicID]
	if !ok {
		return 0, nil
	}
	return c.SurgeryType, nil
}

func (s *MemStore) ActiveBookingsByDoctor(_ context.Context, doctorID int64) ([]Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []Booking
	for _, id := range s.order {
		b := s.bookings[id]
		if b.DoctorID == doctorID && !b.IsCancelled {
			result = append(result, *b)
		}
	}
	return result, nil
}

func (s *MemStore) ActiveBookingByID(_ context.Context, id uuid.UUID) (*Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.bookings[id]
	if !ok || b.IsCancelled {
		return nil, ErrBookingNotFound
	}
	out := *b
	return &out, nil
}

func (s *MemStore) NextBookingForPatient(_ context.Context, patientID int64, after time.Time) (*Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var next *Booking
	for _, id := range s.order {
		b := s.bookings[id]
		if b.PatientID != patientID || b.IsCancelled || !b.StartTime.After(after) {
			continue
		}
		if next == nil || b.StartTime.Before(next.StartTime) {
			next = b
		}
	}

	if next == nil {
		return nil, ErrBookingNotFound
	}
	out := *next
	return &out, nil
}

func (s *MemStore) CreateBooking(_ context.Context, b *Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	b.CreatedAt = now
	b.UpdatedAt = now

	stored := *b
	s.bookings[b.ID] = &stored
	s.order = append(s.order, b.ID)
	return nil
}

func (s *MemStore) CancelBooking(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bookings[id]
	if !ok || b.IsCancelled {
		return ErrBookingNotFound
	}

	b.IsCancelled = true
	b.UpdatedAt = time.Now()
	return nil
}

func (s *MemStore) InsertEvent(_ context.Context, ev BookingEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ev.ID = int64(len(s.events) + 1)
	s.events = append(s.events, ev)
	return nil
}
