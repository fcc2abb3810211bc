package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
)

// Event binds a topic to the JSON payload type carried on it.
type Event[T any] struct {
	topic string
}

// NewEvent declares a typed event on topic.
func NewEvent[T any](topic string) Event[T] {
	return Event[T]{topic: topic}
}

// Topic returns the bus topic of the event.
func (e Event[T]) Topic() string {
	return e.topic
}

// Publish encodes payload and publishes it on the event topic.
func (e Event[T]) Publish(ctx context.Context, pub Publisher, payload T) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s: %w", e.topic, err)
	}
	return pub.Publish(ctx, Message{Topic: e.topic, Payload: data})
}

// Subscribe decodes every message on the event topic and passes it to fn.
func (e Event[T]) Subscribe(ctx context.Context, sub Subscriber, fn func(ctx context.Context, payload T) error) error {
	return sub.Subscribe(ctx, e.topic, func(ctx context.Context, msg Message) error {
		var payload T
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return fmt.Errorf("decode %s: %w", e.topic, err)
		}
		return fn(ctx, payload)
	})
}
