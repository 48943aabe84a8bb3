package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/careloop/patient-booking/internal/booking"
	"github.com/careloop/patient-booking/pkg/metrics"
)

func addBookingHandler(svc *booking.Service, col *metrics.Collector) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AddBookingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		err := svc.AddBooking(r.Context(), booking.AddBookingRequest{
			DoctorID:  req.DoctorID,
			PatientID: req.PatientID,
			StartTime: req.StartTime,
			EndTime:   req.EndTime,
		})
		if err != nil {
			handleAddError(w, col, err)
			return
		}

		col.BookingsTotal.WithLabelValues("created").Inc()
		writeJSON(w, http.StatusCreated, AddBookingResponse{Status: "created"})
	}
}

func cancelBookingHandler(svc *booking.Service, col *metrics.Collector) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		idStr := chi.URLParam(r, "id")
		id, err := uuid.Parse(idStr)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_booking_id", "id must be a valid UUID")
			return
		}

		if err := svc.CancelBooking(r.Context(), id); err != nil {
			if errors.Is(err, booking.ErrBookingNotFound) {
				col.CancellationsTotal.WithLabelValues("not_found").Inc()
				writeError(w, http.StatusBadRequest, "booking_not_found", err.Error())
				return
			}
			col.CancellationsTotal.WithLabelValues("error").Inc()
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		col.CancellationsTotal.WithLabelValues("cancelled").Inc()
		writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
	}
}

func nextBookingHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		idStr := chi.URLParam(r, "patientId")
		patientID, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "patientId must be an integer")
			return
		}

		next, err := svc.GetNextBooking(r.Context(), patientID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}
		if next == nil {
			writeError(w, http.StatusNotFound, "no_upcoming_booking", "patient has no upcoming booking")
			return
		}

		writeJSON(w, http.StatusOK, NextBookingResponse{
			ID:        next.ID,
			DoctorID:  next.DoctorID,
			StartTime: next.StartTime,
			EndTime:   next.EndTime,
		})
	}
}

func handleAddError(w http.ResponseWriter, col *metrics.Collector, err error) {
	var verr *booking.ValidationError
	switch {
	case errors.As(err, &verr):
		col.BookingsTotal.WithLabelValues("rejected").Inc()
		writeError(w, http.StatusBadRequest, "validation_failed", verr.Message)
	case errors.Is(err, booking.ErrScheduleContended):
		col.BookingsTotal.WithLabelValues("contended").Inc()
		col.LockContention.Inc()
		writeError(w, http.StatusConflict, "schedule_contended", "doctor schedule is being updated, please retry shortly")
	default:
		col.BookingsTotal.WithLabelValues("error").Inc()
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}
