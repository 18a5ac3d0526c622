package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
)

// EventPublisher defines the interface for publishing engine events
type EventPublisher interface {
	PublishAnswerKeyChanged(ctx context.Context, event *AnswerKeyChangedEvent) error
	PublishAttemptSubmitted(ctx context.Context, event *AttemptSubmittedEvent) error
	Close() error
}

// Topics names the topics each event type is routed to
type Topics struct {
	AnswerKey  string
	Submission string
}

// WatermillEventPublisher implements EventPublisher on top of any Watermill publisher
type WatermillEventPublisher struct {
	publisher message.Publisher
	logger    *slog.Logger
	topics    Topics
}

// PublisherConfig holds configuration for the Kafka event publisher
type PublisherConfig struct {
	KafkaBrokers []string
	Topics       Topics
	Logger       *slog.Logger
}

// NewKafkaEventPublisher creates a new Kafka-based event publisher using Watermill
func NewKafkaEventPublisher(config PublisherConfig) (*WatermillEventPublisher, error) {
	logger := watermill.NewSlogLogger(config.Logger)

	publisherConfig := kafka.PublisherConfig{
		Brokers:   config.KafkaBrokers,
		Marshaler: kafka.DefaultMarshaler{},
	}

	publisher, err := kafka.NewPublisher(publisherConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka publisher: %w", err)
	}

	return NewWatermillEventPublisher(publisher, config.Topics, config.Logger), nil
}

// NewWatermillEventPublisher wraps an existing Watermill publisher, e.g. an in-memory GoChannel
func NewWatermillEventPublisher(publisher message.Publisher, topics Topics, logger *slog.Logger) *WatermillEventPublisher {
	return &WatermillEventPublisher{
		publisher: publisher,
		logger:    logger,
		topics:    topics,
	}
}

// PublishAnswerKeyChanged announces that a test's answer key rows changed
func (p *WatermillEventPublisher) PublishAnswerKeyChanged(ctx context.Context, data *AnswerKeyChangedEvent) error {
	event := NewEvent(EventAnswerKeyChanged, data)
	return p.publish(ctx, p.topics.AnswerKey, event, data.TestID)
}

// PublishAttemptSubmitted announces a graded submission
func (p *WatermillEventPublisher) PublishAttemptSubmitted(ctx context.Context, data *AttemptSubmittedEvent) error {
	event := NewEvent(EventAttemptSubmitted, data)
	return p.publish(ctx, p.topics.Submission, event, data.TestID)
}

func (p *WatermillEventPublisher) publish(ctx context.Context, topic string, event *Event, testID string) error {
	eventBytes, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(event.ID, eventBytes)
	msg.SetContext(ctx)

	msg.Metadata.Set(MetadataEventType, string(event.Type))
	msg.Metadata.Set(MetadataTestID, testID)
	msg.Metadata.Set("source", event.Source)
	msg.Metadata.Set("version", event.Version)
	msg.Metadata.Set("timestamp", event.Timestamp.Format("2006-01-02T15:04:05Z07:00"))

	if err := p.publisher.Publish(topic, msg); err != nil {
		p.logger.Error("Failed to publish event",
			"event_id", event.ID,
			"event_type", event.Type,
			"error", err)
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.logger.Info("Published event",
		"event_id", event.ID,
		"event_type", event.Type,
		"test_id", testID,
		"topic", topic)

	return nil
}

// Close closes the publisher and releases resources
func (p *WatermillEventPublisher) Close() error {
	return p.publisher.Close()
}

// MockEventPublisher is a mock implementation for testing
type MockEventPublisher struct {
	mu     sync.Mutex
	Events []Event
	Logger *slog.Logger
}

// NewMockEventPublisher creates a new mock event publisher
func NewMockEventPublisher(logger *slog.Logger) *MockEventPublisher {
	return &MockEventPublisher{
		Events: make([]Event, 0),
		Logger: logger,
	}
}

func (m *MockEventPublisher) PublishAnswerKeyChanged(ctx context.Context, data *AnswerKeyChangedEvent) error {
	return m.record(NewEvent(EventAnswerKeyChanged, *data))
}

func (m *MockEventPublisher) PublishAttemptSubmitted(ctx context.Context, data *AttemptSubmittedEvent) error {
	return m.record(NewEvent(EventAttemptSubmitted, *data))
}

func (m *MockEventPublisher) record(event *Event) error {
	m.mu.Lock()
	m.Events = append(m.Events, *event)
	m.mu.Unlock()

	m.Logger.Info("Mock: Published event",
		"event_id", event.ID,
		"event_type", event.Type)
	return nil
}

// Close is a no-op for the mock publisher
func (m *MockEventPublisher) Close() error {
	return nil
}

// GetPublishedEvents returns a copy of all published events (for testing)
func (m *MockEventPublisher) GetPublishedEvents() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Event(nil), m.Events...)
}

// ClearEvents clears all published events (for testing)
func (m *MockEventPublisher) ClearEvents() {
	m.mu.Lock()
	m.Events = make([]Event, 0)
	m.mu.Unlock()
}
