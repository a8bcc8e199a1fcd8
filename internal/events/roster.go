// Package events defines the roster change payloads published to Kafka.
package events

import (
	"time"

	"github.com/google/uuid"
)

// Event types carried in the event_type header.
const (
	TypeParticipantSignedUp     = "roster.participant_signed_up"
	TypeParticipantUnregistered = "roster.participant_unregistered"
)

// RosterEvent is emitted after a roster mutation has been applied.
type RosterEvent struct {
	EventID    string    `json:"event_id"`
	EventType  string    `json:"event_type"`
	Activity   string    `json:"activity"`
	Email      string    `json:"email"`
	RosterSize int       `json:"roster_size"`
	OccurredAt time.Time `json:"occurred_at"`
	// Actor is the token subject that made the change, empty when auth is disabled.
	Actor string `json:"actor,omitempty"`
}

// NewParticipantSignedUp builds the event for a successful signup.
func NewParticipantSignedUp(activity, email string, rosterSize int, at time.Time) RosterEvent {
	return newEvent(TypeParticipantSignedUp, activity, email, rosterSize, at)
}

// NewParticipantUnregistered builds the event for a successful unregister.
func NewParticipantUnregistered(activity, email string, rosterSize int, at time.Time) RosterEvent {
	return newEvent(TypeParticipantUnregistered, activity, email, rosterSize, at)
}

func newEvent(eventType, activity, email string, rosterSize int, at time.Time) RosterEvent {
	return RosterEvent{
		EventID:    uuid.NewString(),
		EventType:  eventType,
		Activity:   activity,
		Email:      email,
		RosterSize: rosterSize,
		OccurredAt: at.UTC(),
	}
}
