package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/SAP-F-2025/answer-engine/internal/models"
	"github.com/google/uuid"
)

// EventType represents the kinds of events flowing through the bus
type EventType string

const (
	// Answer key events
	EventAnswerKeyChanged EventType = "answer_key.changed"

	// Attempt events
	EventAttemptSubmitted EventType = "attempt.submitted"
)

const (
	EventSource  = "answer-engine"
	EventVersion = "1.0"

	MetadataTestID    = "test_id"
	MetadataEventType = "event_type"
)

// Event is the envelope for every event published by the engine
type Event struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Source    string                 `json:"source"`
	Version   string                 `json:"version"`
	Data      interface{}            `json:"data"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// NewEvent wraps data in an envelope with a fresh ID and timestamp
func NewEvent(eventType EventType, data interface{}) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Source:    EventSource,
		Version:   EventVersion,
		Data:      data,
	}
}

// Answer key event payloads

type AnswerKeyChangedEvent struct {
	TestID         string                     `json:"test_id"`
	ChangeType     models.AnswerKeyChangeType `json:"change_type"`
	QuestionNumber *int                       `json:"question_number,omitempty"`
}

// Attempt event payloads

type AttemptSubmittedEvent struct {
	SessionID     string    `json:"session_id"`
	TestID        string    `json:"test_id"`
	AttemptID     string    `json:"attempt_id"`
	Score         float64   `json:"score"`
	Passed        bool      `json:"passed"`
	Trigger       string    `json:"trigger"`
	AnsweredCount int       `json:"answered_count"`
	QuestionCount int       `json:"question_count"`
	SubmittedAt   time.Time `json:"submitted_at"`
}

// DecodeAnswerKeyChanged parses a message payload produced by PublishAnswerKeyChanged
func DecodeAnswerKeyChanged(payload []byte) (*AnswerKeyChangedEvent, error) {
	var envelope struct {
		Type EventType       `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode event envelope: %w", err)
	}
	if envelope.Type != EventAnswerKeyChanged {
		return nil, fmt.Errorf("unexpected event type %q", envelope.Type)
	}

	var event AnswerKeyChangedEvent
	if err := json.Unmarshal(envelope.Data, &event); err != nil {
		return nil, fmt.Errorf("failed to decode answer key event: %w", err)
	}
	return &event, nil
}
