package api

import (
	"time"

	"github.com/google/uuid"
)

type AddBookingRequest struct {
	DoctorID  int64     `json:"doctor_id"`
	PatientID int64     `json:"patient_id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

type AddBookingResponse struct {
	Status string `json:"status"`
}

type NextBookingResponse struct {
	ID        uuid.UUID `json:"id"`
	DoctorID  int64     `json:"doctor_id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
