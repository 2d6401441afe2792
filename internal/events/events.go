// Package events provides run lifecycle notifications for the justification engine.
package events

import "time"

// EventType represents the type of event
type EventType string

const (
	// EventRunStarted is emitted once the input is split and lines are queued
	EventRunStarted EventType = "run_started"
	// EventLineJustified is emitted when a worker stores a justified line
	EventLineJustified EventType = "line_justified"
	// EventRunCompleted is emitted when all lines are joined
	EventRunCompleted EventType = "run_completed"
	// EventRunFailed is emitted when a run ends with an error or is cancelled
	EventRunFailed EventType = "run_failed"
)

// Event represents a run event
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	RunID     string    `json:"run_id"`
	Data      EventData `json:"data,omitempty"`
}

// EventData contains event-specific data
type EventData struct {
	Width    int    `json:"width,omitempty"`
	Lines    int    `json:"lines,omitempty"`
	Workers  int    `json:"workers,omitempty"`
	Line     *int   `json:"line,omitempty"` // 行番号（line_justified のみ、0 も出力する）
	Length   int    `json:"length,omitempty"`
	Duration string `json:"duration,omitempty"`
	Error    string `json:"error,omitempty"`
}

// NewRunStartedEvent creates a run started event
func NewRunStartedEvent(runID string, width, lines, workers int) Event {
	return Event{
		Type:      EventRunStarted,
		Timestamp: time.Now(),
		RunID:     runID,
		Data: EventData{
			Width:   width,
			Lines:   lines,
			Workers: workers,
		},
	}
}

// NewLineJustifiedEvent creates a line justified event
func NewLineJustifiedEvent(runID string, index, length int) Event {
	return Event{
		Type:      EventLineJustified,
		Timestamp: time.Now(),
		RunID:     runID,
		Data: EventData{
			Line:   &index,
			Length: length,
		},
	}
}

// NewRunCompletedEvent creates a run completed event
func NewRunCompletedEvent(runID string, lines int, elapsed time.Duration) Event {
	return Event{
		Type:      EventRunCompleted,
		Timestamp: time.Now(),
		RunID:     runID,
		Data: EventData{
			Lines:    lines,
			Duration: elapsed.String(),
		},
	}
}

// NewRunFailedEvent creates a run failed event
func NewRunFailedEvent(runID string, err error, elapsed time.Duration) Event {
	errMsg := ""
	if err != nil {
		errMsg = err.Error()
	}
	return Event{
		Type:      EventRunFailed,
		Timestamp: time.Now(),
		RunID:     runID,
		Data: EventData{
			Duration: elapsed.String(),
			Error:    errMsg,
		},
	}
}
