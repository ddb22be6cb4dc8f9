package outbox

import "example.com/booking/internal/events"

const enrollmentCreatedSchema = `{
  "type": "object",
  "title": "EnrollmentCreated",
  "properties": {
    "enrollment_id": {"type": "integer"},
    "consumer_id": {"type": "integer"},
    "activity_id": {"type": "integer"},
    "enrolled_at": {"type": "string", "format": "date-time"}
  },
  "required": ["enrollment_id", "consumer_id", "activity_id", "enrolled_at"],
  "additionalProperties": false
}`

const enrollmentCancelledSchema = `{
  "type": "object",
  "title": "EnrollmentCancelled",
  "properties": {
    "enrollment_id": {"type": "integer"},
    "consumer_id": {"type": "integer"},
    "activity_id": {"type": "integer"},
    "cancelled_at": {"type": "string", "format": "date-time"}
  },
  "required": ["enrollment_id", "consumer_id", "activity_id", "cancelled_at"],
  "additionalProperties": false
}`

const activityDeletedSchema = `{
  "type": "object",
  "title": "ActivityDeleted",
  "properties": {
    "activity_id": {"type": "integer"},
    "provider_id": {"type": "integer"},
    "dropped_enrollments": {"type": "integer", "minimum": 0},
    "deleted_at": {"type": "string", "format": "date-time"}
  },
  "required": ["activity_id", "provider_id", "dropped_enrollments", "deleted_at"],
  "additionalProperties": false
}`

// schemaCatalog maps each event type to the JSON schema registered for it.
var schemaCatalog = map[string]string{
	events.TypeEnrollmentCreated:   enrollmentCreatedSchema,
	events.TypeEnrollmentCancelled: enrollmentCancelledSchema,
	events.TypeActivityDeleted:     activityDeletedSchema,
}
