package publish

import "example.com/signup/internal/events"

const rosterEventSchema = `{
  "type": "object",
  "title": "RosterEvent",
  "properties": {
    "event_id": {"type": "string"},
    "event_type": {"type": "string", "enum": ["roster.participant_signed_up", "roster.participant_unregistered"]},
    "activity": {"type": "string"},
    "email": {"type": "string"},
    "roster_size": {"type": "integer", "minimum": 0},
    "occurred_at": {"type": "string", "format": "date-time"},
    "actor": {"type": "string"}
  },
  "required": ["event_id", "event_type", "activity", "email", "roster_size", "occurred_at"],
  "additionalProperties": false
}`

// schemaCatalog maps event type to the JSON schema registered for it.
var schemaCatalog = map[string]string{
	events.TypeParticipantSignedUp:     rosterEventSchema,
	events.TypeParticipantUnregistered: rosterEventSchema,
}

// subjectFor follows the topic-name strategy for value schemas.
func subjectFor(topic string) string {
	return topic + "-value"
}
