// Package events defines the payloads published by the booking service.
package events

import "time"

// Event types carried in the outbox and in the event_type Kafka header.
const (
	TypeEnrollmentCreated   = "enrollment.created"
	TypeEnrollmentCancelled = "enrollment.cancelled"
	TypeActivityDeleted     = "activity.deleted"
)

// Topics the booking service publishes to.
const (
	TopicEnrollments = "enrollment_events"
	TopicActivities  = "activity_events"
)

// EnrollmentCreated is emitted when a consumer takes a seat in an activity.
type EnrollmentCreated struct {
	EnrollmentID int64     `json:"enrollment_id"`
	ConsumerID   int64     `json:"consumer_id"`
	ActivityID   int64     `json:"activity_id"`
	EnrolledAt   time.Time `json:"enrolled_at"`
}

// EnrollmentCancelled is emitted when a consumer releases their seat.
type EnrollmentCancelled struct {
	EnrollmentID int64     `json:"enrollment_id"`
	ConsumerID   int64     `json:"consumer_id"`
	ActivityID   int64     `json:"activity_id"`
	CancelledAt  time.Time `json:"cancelled_at"`
}

// ActivityDeleted is emitted when a provider removes an activity. Dropped
// counts the enrollments removed with it.
type ActivityDeleted struct {
	ActivityID int64     `json:"activity_id"`
	ProviderID int64     `json:"provider_id"`
	Dropped    int       `json:"dropped_enrollments"`
	DeletedAt  time.Time `json:"deleted_at"`
}

// Route describes where an event type is published. Subjects follow the
// topic-record naming strategy so one topic can carry several schemas.
type Route struct {
	Topic         string
	SchemaSubject string
}

// Routes maps every known event type to its topic and schema subject.
var Routes = map[string]Route{
	TypeEnrollmentCreated:   {Topic: TopicEnrollments, SchemaSubject: TopicEnrollments + "-EnrollmentCreated"},
	TypeEnrollmentCancelled: {Topic: TopicEnrollments, SchemaSubject: TopicEnrollments + "-EnrollmentCancelled"},
	TypeActivityDeleted:     {Topic: TopicActivities, SchemaSubject: TopicActivities + "-ActivityDeleted"},
}
