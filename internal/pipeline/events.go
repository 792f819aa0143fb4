package pipeline

import (
	"sync/atomic"

	"github.com/lukman83/campaign-scout/internal/models"
)

type EventType string

const (
	EventInit     EventType = "init"
	EventProgress EventType = "progress"
	EventHidden   EventType = "hidden"
	EventPublic   EventType = "public"
	EventDone     EventType = "done"
	EventError    EventType = "error"
)

// Event is one message of a scan's stream. A stream is Init, then Progress
// and Hidden/Public events in completion order, terminated by exactly one
// Done or Error.
type Event struct {
	Type    EventType              `json:"event"`
	RunID   string                 `json:"run_id,omitempty"`
	Total   int                    `json:"total,omitempty"`
	Done    int                    `json:"done,omitempty"`
	Line    string                 `json:"line,omitempty"`
	Record  *models.CampaignRecord `json:"record,omitempty"`
	Result  *Result                `json:"result,omitempty"`
	Message string                 `json:"message,omitempty"`
}

// Percent is the completion percentage of a progress event.
func (e Event) Percent() float64 {
	if e.Total == 0 {
		return 100
	}
	return float64(e.Done) * 100 / float64(e.Total)
}

// Terminal reports whether e ends the stream.
func (e Event) Terminal() bool {
	return e.Type == EventDone || e.Type == EventError
}

// Sink consumes scan events. Emit is called from a single goroutine and must
// not block the scan indefinitely.
type Sink interface {
	Emit(Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Event)

func (f SinkFunc) Emit(e Event) { f(e) }

// Discard drops every event.
var Discard Sink = SinkFunc(func(Event) {})

// ChannelSink delivers events over a buffered channel. Progress events are
// dropped when the buffer is full. Every other event waits for room until
// done is closed, after which it is dropped too.
type ChannelSink struct {
	ch      chan Event
	done    <-chan struct{}
	dropped atomic.Int64
}

func NewChannelSink(buffer int, done <-chan struct{}) *ChannelSink {
	if buffer < 1 {
		buffer = 1
	}
	return &ChannelSink{ch: make(chan Event, buffer), done: done}
}

func (s *ChannelSink) Events() <-chan Event { return s.ch }

func (s *ChannelSink) Emit(e Event) {
	if e.Type == EventProgress {
		select {
		case s.ch <- e:
		default:
			s.dropped.Add(1)
		}
		return
	}
	select {
	case s.ch <- e:
	case <-s.done:
		s.dropped.Add(1)
	}
}

// Close ends the channel. Call it once the scan has returned.
func (s *ChannelSink) Close() { close(s.ch) }

// Dropped counts events that were never delivered.
func (s *ChannelSink) Dropped() int64 { return s.dropped.Load() }
