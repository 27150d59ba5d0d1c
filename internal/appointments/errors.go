package appointments

import "errors"

var (
	// ErrInvalidAppointment is returned when an appointment payload fails validation
	ErrInvalidAppointment = errors.New("appointments: invalid appointment")

	// ErrInvalidDoctor is returned when a doctor payload fails validation
	ErrInvalidDoctor = errors.New("appointments: invalid doctor")

	// ErrInvalidTransition is returned when a status change breaks the lifecycle
	ErrInvalidTransition = errors.New("appointments: invalid status transition")

	// ErrNotFound is returned when no appointment has the requested id
	ErrNotFound = errors.New("appointments: not found")
)
