package events

import (
	"fmt"
	"log/slog"

	"github.com/Shopify/sarama"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// SubscriberConfig holds configuration for the Kafka subscriber
type SubscriberConfig struct {
	KafkaBrokers []string
	// ConsumerGroup is left empty so every engine instance sees every change.
	ConsumerGroup string
	Logger        *slog.Logger
}

// NewKafkaSubscriber creates a Watermill subscriber reading from Kafka.
// Only changes published after startup matter, so consumption starts at the newest offset.
func NewKafkaSubscriber(config SubscriberConfig) (message.Subscriber, error) {
	saramaConfig := kafka.DefaultSaramaSubscriberConfig()
	saramaConfig.Consumer.Offsets.Initial = sarama.OffsetNewest

	subscriber, err := kafka.NewSubscriber(kafka.SubscriberConfig{
		Brokers:               config.KafkaBrokers,
		Unmarshaler:           kafka.DefaultMarshaler{},
		OverwriteSaramaConfig: saramaConfig,
		ConsumerGroup:         config.ConsumerGroup,
	}, watermill.NewSlogLogger(config.Logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka subscriber: %w", err)
	}

	return subscriber, nil
}

// NewMemoryPubSub creates an in-process pub/sub usable as both publisher and subscriber
func NewMemoryPubSub(logger *slog.Logger) *gochannel.GoChannel {
	return gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: 64,
	}, watermill.NewSlogLogger(logger))
}
