package domain

import "time"

// Enrollment is a consumer's claim on one seat of one activity.
type Enrollment struct {
	ID         int64
	ConsumerID int64
	ActivityID int64
	EnrolledAt time.Time
}

// EnrollmentView is the consumer-facing projection of an enrollment.
type EnrollmentView struct {
	EnrollmentID  int64
	EnrolledAt    time.Time
	ActivityID    int64
	ActivityTitle string
	ActivityDate  *time.Time
	ActivityPrice *float64
}
