package sim

import "github.com/google/uuid"

// EventType classifies simulation events for reporting.
type EventType string

const (
	EventDetection   EventType = "detection"
	EventTrackDrop   EventType = "track_drop"
	EventStateChange EventType = "state_change"
	EventEmission    EventType = "emission"
	EventAssignment  EventType = "assignment"
	EventLaunch      EventType = "launch"
	EventKill        EventType = "kill"
	EventDisengage   EventType = "disengage"
	EventDeactivate  EventType = "deactivate"
)

// Event is one reportable simulation occurrence. Subject is the acting
// entity, Object the entity acted on (uuid.Nil when not applicable).
type Event struct {
	Time        float64
	Type        EventType
	Subject     uuid.UUID
	SubjectName string
	Object      uuid.UUID
	ObjectName  string
	Message     string
	Details     map[string]interface{}
}

// EventSink receives events as they occur. Sinks are pure observers: no core
// behavior may depend on a sink being installed or on what it does.
type EventSink interface {
	Emit(ev Event)
}

// NopSink drops all events.
type NopSink struct{}

func (NopSink) Emit(Event) {}

// MultiSink fans events out to several sinks in order.
type MultiSink []EventSink

func (m MultiSink) Emit(ev Event) {
	for _, s := range m {
		s.Emit(ev)
	}
}
