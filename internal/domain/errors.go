package domain

import "errors"

// Enrollment precondition failures. They are reported to the caller and
// leave storage untouched.
var (
	// ErrInvalidConsumer is returned when the enrolling user is not a registered consumer.
	ErrInvalidConsumer = errors.New("consumer does not exist")
	// ErrActivityNotFound is returned when an activity cannot be located.
	ErrActivityNotFound = errors.New("activity not found")
	// ErrActivityClosed is returned when the activity is not accepting enrollments.
	ErrActivityClosed = errors.New("activity is closed for enrollment")
	// ErrDuplicateEnrollment is returned when the consumer already holds a seat in the activity.
	ErrDuplicateEnrollment = errors.New("consumer already enrolled in activity")
	// ErrCapacityExceeded is returned when every seat of the activity is taken.
	ErrCapacityExceeded = errors.New("activity has no seats left")
)

// Lookup and authorization failures.
var (
	// ErrEnrollmentNotFound is returned when an enrollment cannot be located.
	ErrEnrollmentNotFound = errors.New("enrollment not found")
	// ErrForbidden is returned when the requester does not own the target resource.
	ErrForbidden = errors.New("requester does not own this resource")
	// ErrUserNotFound is returned when a user cannot be located.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidProvider is returned when the publishing user is not a registered provider.
	ErrInvalidProvider = errors.New("provider does not exist")
)

// Catalog and account failures.
var (
	ErrDuplicateTitle     = errors.New("an activity with this title already exists")
	ErrInvalidSchedule    = errors.New("start time must be before end time")
	ErrInvalidInput       = errors.New("invalid input")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// ErrStorageFailure wraps unexpected I/O or transaction errors. Nothing is
// committed when it is returned, so callers may retry.
var ErrStorageFailure = errors.New("storage failure")

// IsPrecondition reports whether err is an expected business outcome rather
// than an infrastructure failure.
func IsPrecondition(err error) bool {
	for _, target := range []error{
		ErrInvalidConsumer, ErrActivityNotFound, ErrActivityClosed, ErrDuplicateEnrollment,
		ErrCapacityExceeded, ErrEnrollmentNotFound, ErrForbidden, ErrUserNotFound,
		ErrInvalidProvider, ErrDuplicateTitle, ErrInvalidSchedule, ErrInvalidInput,
		ErrEmailTaken, ErrInvalidCredentials,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
