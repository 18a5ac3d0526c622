package config

import (
	"log/slog"
	"strings"

	"github.com/SAP-F-2025/answer-engine/internal/events"
	"github.com/ThreeDotsLabs/watermill/message"
)

// EventConfig holds configuration for the event bus
type EventConfig struct {
	Enabled         bool   `env:"EVENTS_ENABLED" envDefault:"true"`
	Publisher       string `env:"EVENTS_PUBLISHER" envDefault:"kafka"` // kafka, memory or mock
	KafkaBrokers    string `env:"KAFKA_BROKERS" envDefault:"localhost:9092"`
	AnswerKeyTopic  string `env:"ANSWER_KEY_TOPIC" envDefault:"answer_key_changes"`
	SubmissionTopic string `env:"SUBMISSION_TOPIC" envDefault:"attempt_submissions"`
	ConsumerGroup   string `env:"CONSUMER_GROUP" envDefault:""`
}

// EventBus bundles the publisher and subscriber the engine runs on
type EventBus struct {
	Publisher  events.EventPublisher
	Subscriber message.Subscriber
}

// Close releases both sides of the bus
func (b *EventBus) Close() error {
	pubErr := b.Publisher.Close()
	subErr := b.Subscriber.Close()
	if pubErr != nil {
		return pubErr
	}
	return subErr
}

// GetKafkaBrokers returns Kafka brokers as a slice
func (c *EventConfig) GetKafkaBrokers() []string {
	return strings.Split(c.KafkaBrokers, ",")
}

// Topics returns the configured topic names
func (c *EventConfig) Topics() events.Topics {
	return events.Topics{
		AnswerKey:  c.AnswerKeyTopic,
		Submission: c.SubmissionTopic,
	}
}

// CreateEventBus creates the publisher/subscriber pair based on configuration
func (c *EventConfig) CreateEventBus(logger *slog.Logger) (*EventBus, error) {
	if !c.Enabled {
		logger.Info("Event bus disabled, using mock publisher and idle subscriber")
		return c.mockBus(logger), nil
	}

	switch c.Publisher {
	case "kafka":
		logger.Info("Creating Kafka event bus",
			"brokers", c.KafkaBrokers,
			"answer_key_topic", c.AnswerKeyTopic,
			"submission_topic", c.SubmissionTopic)

		publisher, err := events.NewKafkaEventPublisher(events.PublisherConfig{
			KafkaBrokers: c.GetKafkaBrokers(),
			Topics:       c.Topics(),
			Logger:       logger,
		})
		if err != nil {
			return nil, err
		}

		subscriber, err := events.NewKafkaSubscriber(events.SubscriberConfig{
			KafkaBrokers:  c.GetKafkaBrokers(),
			ConsumerGroup: c.ConsumerGroup,
			Logger:        logger,
		})
		if err != nil {
			publisher.Close()
			return nil, err
		}

		return &EventBus{Publisher: publisher, Subscriber: subscriber}, nil
	case "memory":
		logger.Info("Using in-memory event bus")
		pubSub := events.NewMemoryPubSub(logger)
		return &EventBus{
			Publisher:  events.NewWatermillEventPublisher(pubSub, c.Topics(), logger),
			Subscriber: pubSub,
		}, nil
	case "mock":
		logger.Info("Using mock event publisher")
		return c.mockBus(logger), nil
	default:
		logger.Warn("Unknown event publisher type, falling back to mock", "publisher", c.Publisher)
		return c.mockBus(logger), nil
	}
}

func (c *EventConfig) mockBus(logger *slog.Logger) *EventBus {
	return &EventBus{
		Publisher:  events.NewMockEventPublisher(logger),
		Subscriber: events.NewMemoryPubSub(logger),
	}
}
