package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
)

// ResultHandler receives every result_recorded event from the topic
type ResultHandler func(ctx context.Context, event ResultRecordedEvent) error

// SubscriberConfig holds configuration for a result consumer
type SubscriberConfig struct {
	KafkaBrokers  []string
	TopicName     string
	ConsumerGroup string
	Logger        *slog.Logger
}

// NewKafkaSubscriber creates a Watermill Kafka subscriber in the given consumer group
func NewKafkaSubscriber(config SubscriberConfig) (message.Subscriber, error) {
	subscriber, err := kafka.NewSubscriber(kafka.SubscriberConfig{
		Brokers:               config.KafkaBrokers,
		Unmarshaler:           kafka.DefaultMarshaler{},
		OverwriteSaramaConfig: kafka.DefaultSaramaSubscriberConfig(),
		ConsumerGroup:         config.ConsumerGroup,
	}, watermill.NewSlogLogger(config.Logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka subscriber: %w", err)
	}
	return subscriber, nil
}

// DecodeResultRecorded parses an event envelope. ok is false for other event
// types, which share the topic.
func DecodeResultRecorded(payload []byte) (event ResultRecordedEvent, ok bool, err error) {
	var envelope struct {
		Type EventType       `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return event, false, fmt.Errorf("failed to unmarshal event: %w", err)
	}
	if envelope.Type != EventResultRecorded {
		return event, false, nil
	}
	if err := json.Unmarshal(envelope.Data, &event); err != nil {
		return event, false, fmt.Errorf("failed to unmarshal %s payload: %w", envelope.Type, err)
	}
	return event, true, nil
}

// ConsumeResults feeds result events from topic to handle until ctx is done.
// Malformed messages are acked and dropped; handler failures are nacked for redelivery.
func ConsumeResults(ctx context.Context, subscriber message.Subscriber, topic string, logger *slog.Logger, handle ResultHandler) error {
	messages, err := subscriber.Subscribe(ctx, topic)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", topic, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, open := <-messages:
			if !open {
				return ctx.Err()
			}
			event, ok, err := DecodeResultRecorded(msg.Payload)
			if err != nil {
				logger.Warn("Dropping malformed event", "message_id", msg.UUID, "error", err)
				msg.Ack()
				continue
			}
			if !ok {
				msg.Ack()
				continue
			}
			if err := handle(msg.Context(), event); err != nil {
				logger.Error("Failed to handle result event",
					"message_id", msg.UUID,
					"result_id", event.ResultID,
					"error", err)
				msg.Nack()
				continue
			}
			msg.Ack()
		}
	}
}
