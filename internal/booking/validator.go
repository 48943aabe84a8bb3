package booking

import (
	"context"
	"fmt"
	"time"
)

// AddBookingRequest is the proposed booking to validate. No prior existence
// of any referenced record is assumed.
type AddBookingRequest struct {
	DoctorID  int64
	PatientID int64
	StartTime time.Time
	EndTime   time.Time
}

// ValidationResult reports pass/fail plus human-readable violation reasons.
// Rule groups run in priority order and each failing group returns
// immediately, so Errors never mixes messages from different groups.
type ValidationResult struct {
	PassedValidation bool
	Errors           []string
}

// Validator decides whether a proposed booking is well-formed and
// non-overlapping. It only reads from the store.
type Validator struct {
	store Store
	now   func() time.Time
}

func NewValidator(store Store) *Validator {
	return &Validator{
		store: store,
		now:   time.Now,
	}
}

// ValidateRequest runs the rule groups in order: field validity, doctor
// existence, patient existence, doctor availability. The error return is for
// store failures only; rule violations land in the result.
func (v *Validator) ValidateRequest(ctx context.Context, req AddBookingRequest) (ValidationResult, error) {
	if res, failed := v.invalidFields(req); failed {
		return res, nil
	}

	if res, failed, err := v.doctorNotFound(ctx, req); err != nil {
		return ValidationResult{}, err
	} else if failed {
		return res, nil
	}

	if res, failed, err := v.patientNotFound(ctx, req); err != nil {
		return ValidationResult{}, err
	} else if failed {
		return res, nil
	}

	if res, failed, err := v.doctorIsBusy(ctx, req); err != nil {
		return ValidationResult{}, err
	} else if failed {
		return res, nil
	}

	return ValidationResult{PassedValidation: true}, nil
}

// invalidFields checks both field rules and reports every one that fires,
// unlike the later groups which each carry a single message.
func (v *Validator) invalidFields(req AddBookingRequest) (ValidationResult, bool) {
	var errs []string

	if !req.StartTime.After(v.now()) {
		errs = append(errs, "Appointment should start in the future")
	}

	if !req.StartTime.Before(req.EndTime) {
		errs = append(errs, "Start time should be prior to end time")
	}

	if len(errs) > 0 {
		return ValidationResult{Errors: errs}, true
	}

	return ValidationResult{}, false
}

func (v *Validator) doctorNotFound(ctx context.Context, req AddBookingRequest) (ValidationResult, bool, error) {
	ok, err := v.store.DoctorExists(ctx, req.DoctorID)
	if err != nil {
		return ValidationResult{}, false, fmt.Errorf("check doctor exists: %w", err)
	}
	if !ok {
		return ValidationResult{Errors: []string{"The doctor not found"}}, true, nil
	}
	return ValidationResult{}, false, nil
}

func (v *Validator) patientNotFound(ctx context.Context, req AddBookingRequest) (ValidationResult, bool, error) {
	ok, err := v.store.PatientExists(ctx, req.PatientID)
	if err != nil {
		return ValidationResult{}, false, fmt.Errorf("check patient exists: %w", err)
	}
	if !ok {
		return ValidationResult{Errors: []string{"The patient not found"}}, true, nil
	}
	return ValidationResult{}, false, nil
}

func (v *Validator) doctorIsBusy(ctx context.Context, req AddBookingRequest) (ValidationResult, bool, error) {
	existing, err := v.store.ActiveBookingsByDoctor(ctx, req.DoctorID)
	if err != nil {
		return ValidationResult{}, false, fmt.Errorf("load doctor bookings: %w", err)
	}

	for _, b := range existing {
		if overlaps(req.StartTime, req.EndTime, b.StartTime, b.EndTime) {
			return ValidationResult{Errors: []string{"The doctor is busy"}}, true, nil
		}
	}

	return ValidationResult{}, false, nil
}

// overlaps reports whether [s,e) shares any instant with [os,oe). Touching
// boundaries do not count, so adjacent bookings are permitted.
func overlaps(s, e, os, oe time.Time) bool {
	return (s.After(os) && s.Before(oe)) ||
		(e.After(os) && e.Before(oe)) ||
		(!s.After(os) && !e.Before(oe))
}
