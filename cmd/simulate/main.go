// Command simulate fires concurrent competing AddBooking calls at a small set
// of doctors to demonstrate that the per-doctor lock keeps schedules free of
// overlaps. It runs fully in memory by default, or against a live API when
// SIM_API_URL is set.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"go.uber.org/zap"

	"github.com/careloop/patient-booking/internal/booking"
)

type SimConfig struct {
	APIBaseURL string
	Workers    int
	Requests   int
	Doctors    int
	Patients   int
}

type tally struct {
	created   atomic.Int64
	rejected  atomic.Int64
	contended atomic.Int64
	failed    atomic.Int64
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg := SimConfig{
		APIBaseURL: os.Getenv("SIM_API_URL"),
		Workers:    intEnv("SIM_WORKERS", 16),
		Requests:   intEnv("SIM_REQUESTS", 500),
		Doctors:    intEnv("SIM_DOCTORS", 3),
		Patients:   intEnv("SIM_PATIENTS", 50),
	}

	gofakeit.Seed(time.Now().UnixNano())

	var t tally
	start := time.Now()

	if cfg.APIBaseURL != "" {
		log.Printf("simulating against %s workers=%d requests=%d", cfg.APIBaseURL, cfg.Workers, cfg.Requests)
		runAgainstAPI(cfg, &t)
	} else {
		log.Printf("simulating in memory workers=%d requests=%d doctors=%d", cfg.Workers, cfg.Requests, cfg.Doctors)
		runInMemory(cfg, &t)
	}

	elapsed := time.Since(start)
	log.Printf("done in %s: created=%d rejected=%d contended=%d failed=%d",
		elapsed, t.created.Load(), t.rejected.Load(), t.contended.Load(), t.failed.Load())
}

// runInMemory wires the real service against the in-memory store, with a
// process-local locker standing in for Redis.
func runInMemory(cfg SimConfig, t *tally) {
	store := booking.NewMemStore()
	for i := 1; i <= cfg.Doctors; i++ {
		store.PutDoctor(booking.Doctor{ID: int64(i), Name: "Dr. " + gofakeit.Name()})
	}
	store.PutClinic(booking.Clinic{ID: 1, Name: gofakeit.Company() + " Clinic", SurgeryType: 1})
	for i := 1; i <= cfg.Patients; i++ {
		store.PutPatient(booking.Patient{ID: int64(i), Name: gofakeit.Name(), ClinicID: 1})
	}

	svc := booking.NewService(store, booking.NewValidator(store), newLocalLocker(), zap.NewNop())

	base := time.Now().Add(24 * time.Hour).Truncate(time.Hour)

	var wg sync.WaitGroup
	work := make(chan int)

	for w := 0; w < cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range work {
				req := randomRequest(cfg, base)
				err := svc.AddBooking(context.Background(), req)
				record(t, err)
			}
		}()
	}

	for i := 0; i < cfg.Requests; i++ {
		work <- i
	}
	close(work)
	wg.Wait()

	verifyNoOverlaps(store, cfg.Doctors)
}

func runAgainstAPI(cfg SimConfig, t *tally) {
	client := &http.Client{Timeout: 10 * time.Second}
	base := time.Now().Add(24 * time.Hour).Truncate(time.Hour)

	var wg sync.WaitGroup
	work := make(chan int)

	for w := 0; w < cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range work {
				req := randomRequest(cfg, base)
				postBooking(client, cfg.APIBaseURL, req, t)
			}
		}()
	}

	for i := 0; i < cfg.Requests; i++ {
		work <- i
	}
	close(work)
	wg.Wait()
}

func randomRequest(cfg SimConfig, base time.Time) booking.AddBookingRequest {
	// Short windows on a shared day so collisions are common
	slot := rand.Intn(24)
	start := base.Add(time.Duration(slot) * time.Hour)
	return booking.AddBookingRequest{
		DoctorID:  int64(rand.Intn(cfg.Doctors) + 1),
		PatientID: int64(rand.Intn(cfg.Patients) + 1),
		StartTime: start,
		EndTime:   start.Add(time.Hour),
	}
}

func postBooking(client *http.Client, baseURL string, req booking.AddBookingRequest, t *tally) {
	body, err := json.Marshal(map[string]any{
		"doctor_id":  req.DoctorID,
		"patient_id": req.PatientID,
		"start_time": req.StartTime,
		"end_time":   req.EndTime,
	})
	if err != nil {
		t.failed.Add(1)
		return
	}

	resp, err := client.Post(baseURL+"/bookings", "application/json", bytes.NewReader(body))
	if err != nil {
		t.failed.Add(1)
		return
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	switch resp.StatusCode {
	case http.StatusCreated:
		t.created.Add(1)
	case http.StatusBadRequest:
		t.rejected.Add(1)
	case http.StatusConflict:
		t.contended.Add(1)
	default:
		t.failed.Add(1)
	}
}

func record(t *tally, err error) {
	var verr *booking.ValidationError
	switch {
	case err == nil:
		t.created.Add(1)
	case errors.As(err, &verr):
		t.rejected.Add(1)
	default:
		t.failed.Add(1)
	}
}

// verifyNoOverlaps re-reads every doctor's schedule and fails loudly if the
// no-overlap invariant was violated.
func verifyNoOverlaps(store *booking.MemStore, doctors int) {
	for d := 1; d <= doctors; d++ {
		bookings, err := store.ActiveBookingsByDoctor(context.Background(), int64(d))
		if err != nil {
			log.Fatalf("read doctor %d bookings: %v", d, err)
		}
		for i := range bookings {
			for j := i + 1; j < len(bookings); j++ {
				a, b := bookings[i], bookings[j]
				if a.StartTime.Before(b.EndTime) && b.StartTime.Before(a.EndTime) {
					log.Fatalf("OVERLAP for doctor %d: [%s,%s) vs [%s,%s)",
						d, a.StartTime, a.EndTime, b.StartTime, b.EndTime)
				}
			}
		}
		log.Printf("doctor %d: %d bookings, no overlaps", d, len(bookings))
	}
}

// localLocker serializes per doctor within this process, standing in for the
// Redis locker when simulating without infrastructure.
type localLocker struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func newLocalLocker() *localLocker {
	return &localLocker{locks: make(map[int64]*sync.Mutex)}
}

func (l *localLocker) WithDoctorLock(ctx context.Context, doctorID int64, fn func(ctx context.Context) error) error {
	l.mu.Lock()
	m, ok := l.locks[doctorID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[doctorID] = m
	}
	l.mu.Unlock()

	m.Lock()
	defer m.Unlock()

	return fn(ctx)
}

func intEnv(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		fmt.Fprintf(os.Stderr, "invalid %s=%q, using %d\n", key, v, def)
	}
	return def
}
