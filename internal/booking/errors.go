package booking

// ValidationError is returned by AddBooking when the validator rejects the
// request. Only the first violation message is surfaced, even when the
// field-validity group produced two; the validator already short-circuits to
// a single group, and callers get one actionable reason.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
