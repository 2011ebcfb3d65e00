package enums

import "fmt"

// EventType maps to the contact_event_type enum in Postgres.
type EventType string

const (
	EventTypeLeadCaptured EventType = "lead_captured"
	EventTypeBooked       EventType = "booked"
	EventTypeClicked      EventType = "clicked"
	EventTypeEmailSent    EventType = "email_sent"
)

var validEventTypes = []EventType{
	EventTypeLeadCaptured,
	EventTypeBooked,
	EventTypeClicked,
	EventTypeEmailSent,
}

// IsValid checks whether the given type matches the canonical enum.
func (e EventType) IsValid() bool {
	for _, candidate := range validEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseEventType converts raw strings into EventType.
func ParseEventType(value string) (EventType, error) {
	for _, candidate := range validEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
