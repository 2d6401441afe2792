package events

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestNewBus(t *testing.T) {
	bus := NewBus()
	if bus == nil {
		t.Fatal("expected non-nil bus")
	}
	if bus.SubscriberCount() != 0 {
		t.Errorf("expected 0 subscribers, got %d", bus.SubscriberCount())
	}
}

func TestBusSubscribeUnsubscribe(t *testing.T) {
	bus := NewBus()

	ch1 := bus.Subscribe()
	ch2 := bus.Subscribe()
	if bus.SubscriberCount() != 2 {
		t.Errorf("expected 2 subscribers, got %d", bus.SubscriberCount())
	}

	bus.Unsubscribe(ch1)
	if bus.SubscriberCount() != 1 {
		t.Errorf("expected 1 subscriber, got %d", bus.SubscriberCount())
	}

	if _, ok := <-ch1; ok {
		t.Error("expected unsubscribed channel to be closed")
	}
	_ = ch2
}

func TestBusPublish(t *testing.T) {
	bus := NewBus()
	ch := bus.Subscribe()

	bus.Publish(NewLineJustifiedEvent("run-1", 3, 40))

	select {
	case received := <-ch:
		if received.Type != EventLineJustified {
			t.Errorf("expected type %s, got %s", EventLineJustified, received.Type)
		}
		if received.RunID != "run-1" {
			t.Errorf("expected run-1, got %s", received.RunID)
		}
		if received.Data.Line == nil || *received.Data.Line != 3 || received.Data.Length != 40 {
			t.Errorf("unexpected data: %+v", received.Data)
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("timeout waiting for event")
	}
}

func TestBusPublishMultipleSubscribers(t *testing.T) {
	bus := NewBus()

	ch1 := bus.Subscribe()
	ch2 := bus.Subscribe()

	bus.Publish(NewRunStartedEvent("run-1", 20, 3, 4))

	for i, ch := range []<-chan Event{ch1, ch2} {
		select {
		case received := <-ch:
			if received.Type != EventRunStarted {
				t.Errorf("subscriber %d: expected type %s, got %s", i, EventRunStarted, received.Type)
			}
		case <-time.After(100 * time.Millisecond):
			t.Errorf("subscriber %d: timeout waiting for event", i)
		}
	}
}

func TestBusPublishNonBlocking(t *testing.T) {
	bus := NewBusWithBuffer(1)
	ch := bus.Subscribe()

	// Fill the buffer
	bus.Publish(NewLineJustifiedEvent("run-1", 0, 10))
	bus.Publish(NewLineJustifiedEvent("run-1", 1, 10))
	bus.Publish(NewLineJustifiedEvent("run-1", 2, 10))

	if bus.Dropped() != 2 {
		t.Errorf("expected 2 dropped deliveries, got %d", bus.Dropped())
	}

	select {
	case ev := <-ch:
		if ev.Data.Line == nil || *ev.Data.Line != 0 {
			t.Errorf("expected first event to be kept, got line %v", ev.Data.Line)
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("timeout waiting for first event")
	}
}

func TestBusClose(t *testing.T) {
	bus := NewBus()

	ch := bus.Subscribe()
	bus.Close()

	if bus.SubscriberCount() != 0 {
		t.Errorf("expected 0 subscribers after close, got %d", bus.SubscriberCount())
	}

	// Channel should be closed
	if _, ok := <-ch; ok {
		t.Error("expected channel to be closed")
	}
}

func TestEventCreation(t *testing.T) {
	t.Run("RunStartedEvent", func(t *testing.T) {
		event := NewRunStartedEvent("run-1", 40, 12, 6)
		if event.Type != EventRunStarted {
			t.Errorf("expected %s, got %s", EventRunStarted, event.Type)
		}
		if event.Data.Width != 40 || event.Data.Lines != 12 || event.Data.Workers != 6 {
			t.Errorf("unexpected data: %+v", event.Data)
		}
	})

	t.Run("RunCompletedEvent", func(t *testing.T) {
		event := NewRunCompletedEvent("run-1", 12, 150*time.Millisecond)
		if event.Type != EventRunCompleted {
			t.Errorf("expected %s, got %s", EventRunCompleted, event.Type)
		}
		if event.Data.Duration != "150ms" {
			t.Errorf("expected 150ms, got %s", event.Data.Duration)
		}
	})

	t.Run("RunFailedEvent", func(t *testing.T) {
		event := NewRunFailedEvent("run-1", errors.New("worker failure"), time.Millisecond)
		if event.Type != EventRunFailed {
			t.Errorf("expected %s, got %s", EventRunFailed, event.Type)
		}
		if event.Data.Error != "worker failure" {
			t.Errorf("expected error message, got %q", event.Data.Error)
		}

		noErr := NewRunFailedEvent("run-1", nil, 0)
		if noErr.Data.Error != "" {
			t.Errorf("expected empty error, got %q", noErr.Data.Error)
		}
	})
}

func TestLineIndexEncoding(t *testing.T) {
	tests := []struct {
		name     string
		event    Event
		wantLine string
		hasLine  bool
	}{
		{"first line", NewLineJustifiedEvent("run-1", 0, 10), `"line":0`, true},
		{"later line", NewLineJustifiedEvent("run-1", 7, 10), `"line":7`, true},
		{"run event", NewRunStartedEvent("run-1", 40, 3, 2), `"line"`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.event)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			if got := strings.Contains(string(data), tt.wantLine); got != tt.hasLine {
				t.Errorf("contains %s = %v, want %v: %s", tt.wantLine, got, tt.hasLine, data)
			}
		})
	}
}
