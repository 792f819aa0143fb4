package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChannelSink_DropsProgressWhenFull(t *testing.T) {
	done := make(chan struct{})
	sink := NewChannelSink(2, done)

	sink.Emit(Event{Type: EventInit})
	sink.Emit(Event{Type: EventProgress, Done: 1})
	sink.Emit(Event{Type: EventProgress, Done: 2})
	assert.Equal(t, int64(1), sink.Dropped())

	close(done)
	sink.Emit(Event{Type: EventHidden, Line: "x"})
	assert.Equal(t, int64(2), sink.Dropped())
	sink.Close()

	var got []EventType
	for e := range sink.Events() {
		got = append(got, e.Type)
	}
	assert.Equal(t, []EventType{EventInit, EventProgress}, got)
}

func TestChannelSink_DeliversInOrder(t *testing.T) {
	sink := NewChannelSink(8, nil)
	go func() {
		defer sink.Close()
		sink.Emit(Event{Type: EventInit, Total: 2})
		sink.Emit(Event{Type: EventHidden, Line: "a"})
		sink.Emit(Event{Type: EventProgress, Done: 1, Total: 2})
		sink.Emit(Event{Type: EventDone})
	}()

	var got []EventType
	for e := range sink.Events() {
		got = append(got, e.Type)
	}
	assert.Equal(t, []EventType{EventInit, EventHidden, EventProgress, EventDone}, got)
}

func TestEvent_PercentAndTerminal(t *testing.T) {
	assert.Equal(t, 25.0, Event{Done: 1, Total: 4}.Percent())
	assert.Equal(t, 100.0, Event{}.Percent())
	assert.True(t, Event{Type: EventDone}.Terminal())
	assert.True(t, Event{Type: EventError}.Terminal())
	assert.False(t, Event{Type: EventProgress}.Terminal())
}
