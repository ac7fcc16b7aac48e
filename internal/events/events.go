// Package events provides the typed event bus that carries worker output
// back to the UI thread. All delivery is channel-queued; subscribers never
// share mutable state with publishers.
package events

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/cloudtree/cloudtree/internal/constants"
)

// EventType defines the types of events that can be emitted.
type EventType string

const (
	EventProgress   EventType = "progress"    // parsed rclone progress line
	EventDiagnostic EventType = "diagnostic"  // stderr line from a running job
	EventJobState   EventType = "job_state"   // worker state transition
	EventActivate   EventType = "activate"    // second instance requested focus
)

// Event is the base interface for all events.
type Event interface {
	Type() EventType
	Timestamp() time.Time
}

// BaseEvent provides common event fields.
type BaseEvent struct {
	EventType EventType
	Time      time.Time
}

func (e BaseEvent) Type() EventType      { return e.EventType }
func (e BaseEvent) Timestamp() time.Time { return e.Time }

// ProgressEvent carries one parsed transfer-progress update.
type ProgressEvent struct {
	BaseEvent
	JobID      string
	BytesDone  int64
	BytesTotal int64   // 0 when rclone did not report a total
	Percent    float64 // negative when absent from the progress line
	Rate       float64 // bytes/sec, 0 when absent
	ETA        time.Duration
	HasETA     bool
	RawLine    string
}

// DiagnosticEvent forwards one stderr line from a running job.
type DiagnosticEvent struct {
	BaseEvent
	JobID string
	Line  string
}

// JobStateEvent reports a worker state transition.
type JobStateEvent struct {
	BaseEvent
	JobID    string
	OldState string
	NewState string
	ExitCode int
	Err      error
}

// ActivateEvent is published when a second launch asks the running
// instance to come to the foreground.
type ActivateEvent struct {
	BaseEvent
}

// EventBus manages event subscriptions and publishing.
type EventBus struct {
	subscribers   map[EventType][]chan Event
	all           []chan Event
	mu            sync.RWMutex
	bufferSize    int
	closed        bool
	droppedEvents atomic.Int64
}

// NewEventBus creates a new event bus with the given per-subscriber
// channel buffer size; non-positive values use the default.
func NewEventBus(bufferSize int) *EventBus {
	if bufferSize <= 0 {
		bufferSize = constants.EventBusDefaultBuffer
	}
	if bufferSize > constants.EventBusMaxBuffer {
		bufferSize = constants.EventBusMaxBuffer
	}
	return &EventBus{
		subscribers: make(map[EventType][]chan Event),
		all:         make([]chan Event, 0),
		bufferSize:  bufferSize,
	}
}

// Subscribe creates a subscription to a specific event type.
func (eb *EventBus) Subscribe(eventType EventType) <-chan Event {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		ch := make(chan Event)
		close(ch)
		return ch
	}

	ch := make(chan Event, eb.bufferSize)
	eb.subscribers[eventType] = append(eb.subscribers[eventType], ch)
	return ch
}

// SubscribeAll creates a subscription to all events.
func (eb *EventBus) SubscribeAll() <-chan Event {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		ch := make(chan Event)
		close(ch)
		return ch
	}

	ch := make(chan Event, eb.bufferSize)
	eb.all = append(eb.all, ch)
	return ch
}

// Publish sends an event to all subscribers. Delivery is non-blocking:
// a subscriber with a full buffer misses the event and the drop counter
// is incremented instead of stalling the producing goroutine.
func (eb *EventBus) Publish(event Event) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	if eb.closed {
		return
	}

	for _, ch := range eb.subscribers[event.Type()] {
		select {
		case ch <- event:
		default:
			eb.droppedEvents.Add(1)
		}
	}

	for _, ch := range eb.all {
		select {
		case ch <- event:
		default:
			eb.droppedEvents.Add(1)
		}
	}
}

// Close shuts down the event bus and closes all subscriber channels.
func (eb *EventBus) Close() {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		return
	}
	eb.closed = true

	for _, channels := range eb.subscribers {
		for _, ch := range channels {
			close(ch)
		}
	}
	for _, ch := range eb.all {
		close(ch)
	}
}

// Unsubscribe removes a subscription channel from a specific event type.
func (eb *EventBus) Unsubscribe(eventType EventType, ch <-chan Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		return
	}

	subscribers := eb.subscribers[eventType]
	for i, subCh := range subscribers {
		if subCh == ch {
			subscribers[i] = subscribers[len(subscribers)-1]
			eb.subscribers[eventType] = subscribers[:len(subscribers)-1]
			break
		}
	}
}

// DroppedEventCount returns the total number of events dropped due to
// full subscriber buffers.
func (eb *EventBus) DroppedEventCount() int64 {
	return eb.droppedEvents.Load()
}

// PublishJobState is a convenience method for publishing a state transition.
func (eb *EventBus) PublishJobState(jobID, oldState, newState string, exitCode int, err error) {
	eb.Publish(&JobStateEvent{
		BaseEvent: BaseEvent{EventType: EventJobState, Time: time.Now()},
		JobID:     jobID,
		OldState:  oldState,
		NewState:  newState,
		ExitCode:  exitCode,
		Err:       err,
	})
}

// PublishDiagnostic is a convenience method for publishing a stderr line.
func (eb *EventBus) PublishDiagnostic(jobID, line string) {
	eb.Publish(&DiagnosticEvent{
		BaseEvent: BaseEvent{EventType: EventDiagnostic, Time: time.Now()},
		JobID:     jobID,
		Line:      line,
	})
}
