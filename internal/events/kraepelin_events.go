package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/SAP-F-2025/psychotest-service/internal/kraepelin"
)

// EventType represents the kinds of events emitted during a Kraepelin test
type EventType string

const (
	EventSessionStarted  EventType = "kraepelin.session_started"
	EventSessionFinished EventType = "kraepelin.session_finished"
	EventResultRecorded  EventType = "kraepelin.result_recorded"
)

const (
	eventSource  = "psychotest-service"
	eventVersion = "1.0"
)

// Event is the envelope shared by all published events
type Event struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Source    string                 `json:"source"`
	Version   string                 `json:"version"`
	Key       string                 `json:"key"`
	Data      interface{}            `json:"data"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

type SessionStartedEvent struct {
	SessionID     string               `json:"session_id"`
	UserID        uint                 `json:"user_id"`
	AssignmentID  *uint                `json:"assignment_id,omitempty"`
	Rows          int                  `json:"rows"`
	Columns       int                  `json:"columns"`
	Difficulty    kraepelin.Difficulty `json:"difficulty"`
	TimePerColumn int                  `json:"time_per_column"` // seconds
	StartedAt     time.Time            `json:"started_at"`
}

type SessionFinishedEvent struct {
	SessionID   string    `json:"session_id"`
	UserID      uint      `json:"user_id"`
	FinishedAt  time.Time `json:"finished_at"`
	TimeElapsed int       `json:"time_elapsed"` // seconds
}

// ResultRecordedEvent carries the outbound result payload
type ResultRecordedEvent struct {
	ResultID          uint              `json:"resultId"`
	SessionID         string            `json:"sessionId"`
	UserID            uint              `json:"userId"`
	AssignmentID      *uint             `json:"assignmentId,omitempty"`
	CorrectAnswers    int               `json:"correctAnswers"`
	WrongAnswers      int               `json:"wrongAnswers"`
	Unanswered        int               `json:"unanswered"`
	RowPerformance    []int             `json:"rowPerformance"`
	ColumnPerformance []int             `json:"columnPerformance"`
	Metrics           kraepelin.Metrics `json:"metrics"`
	RecordedAt        time.Time         `json:"recordedAt"`
}

func newEvent(eventType EventType, key string, data interface{}) *Event {
	return &Event{
		ID:        GenerateEventID(),
		Type:      eventType,
		Timestamp: time.Now(),
		Source:    eventSource,
		Version:   eventVersion,
		Key:       key,
		Data:      data,
	}
}

func NewSessionStartedEvent(data SessionStartedEvent) *Event {
	return newEvent(EventSessionStarted, data.SessionID, data)
}

func NewSessionFinishedEvent(data SessionFinishedEvent) *Event {
	return newEvent(EventSessionFinished, data.SessionID, data)
}

func NewResultRecordedEvent(data ResultRecordedEvent) *Event {
	return newEvent(EventResultRecorded, data.SessionID, data)
}

// GenerateEventID returns a random unique event identifier
func GenerateEventID() string {
	return uuid.NewString()
}
