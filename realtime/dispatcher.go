package realtime

import (
	"service-booking/logger"
)

// Notifier is the boundary the booking core emits domain events through.
// Implementations must never block or fail the calling mutation.
type Notifier interface {
	Notify(subjectID, event string, payload interface{})
}

// Event is one fan-out unit addressed to a single subject.
type Event struct {
	SubjectID string
	Name      string
	Payload   interface{}
}

// Dispatcher decouples state mutations from socket delivery with a buffered
// channel: the core enqueues and returns; a worker goroutine drains to the
// hub. When the buffer is full the event is dropped and logged.
type Dispatcher struct {
	hub     *Hub
	channel chan Event
}

func NewDispatcher(hub *Hub) *Dispatcher {
	return &Dispatcher{
		hub:     hub,
		channel: make(chan Event, 256),
	}
}

// Notify enqueues an event; fire-and-forget.
func (d *Dispatcher) Notify(subjectID, event string, payload interface{}) {
	select {
	case d.channel <- Event{SubjectID: subjectID, Name: event, Payload: payload}:
	default:
		logger.Warning("Realtime event buffer full, dropping " + event + " for " + subjectID)
	}
}

// ProcessEvents drains the queue onto connected sockets. Run as a goroutine.
func (d *Dispatcher) ProcessEvents() {
	for ev := range d.channel {
		d.hub.SendToSubject(ev.SubjectID, ev.Name, ev.Payload)
	}
}
