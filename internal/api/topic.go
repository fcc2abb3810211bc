// Package api implements the client-facing methods of the router.
package api

import (
	"encoding/json"
	"log/slog"

	"github.com/nfrund/unicorn/internal/protocol"
	"github.com/nfrund/unicorn/internal/router"
)

// Method names handled by TopicHandler.
const (
	MethodTopicCreate      = "topic.create"
	MethodTopicSubscribe   = "topic.subscribe"
	MethodTopicPublish     = "topic.publish"
	MethodTopicUnsubscribe = "topic.unsubscribe"
	MethodTopicBroadcast   = "topic.broadcast"
)

// Submitter accepts router commands without waiting for them to be applied.
type Submitter interface {
	Submit(cmd router.Command) error
}

// Payload fields are pointers so that `required` rejects a missing key but
// accepts an empty string.

// TopicCreate is the payload of topic.create.
type TopicCreate struct {
	TopicID *string `json:"topic_id" validate:"required"`
}

// TopicSubscribe is the payload of topic.subscribe and topic.unsubscribe.
type TopicSubscribe struct {
	TopicID      *string `json:"topic_id" validate:"required"`
	SubscriberID *string `json:"subscriber_id" validate:"required"`
}

// TopicPublish is the payload of topic.publish.
type TopicPublish struct {
	TopicID     *string `json:"topic_id" validate:"required"`
	PublisherID *string `json:"publisher_id" validate:"required"`
	Message     *string `json:"message" validate:"required"`
}

// TopicBroadcast is the payload of topic.broadcast.
type TopicBroadcast struct {
	TopicID *string `json:"topic_id" validate:"required"`
	Message *string `json:"message" validate:"required"`
}

// TopicHandler turns topic requests into router commands.
type TopicHandler struct {
	router Submitter
	logger *slog.Logger
}

// NewTopicHandler creates a TopicHandler that submits to r.
func NewTopicHandler(r Submitter, logger *slog.Logger) *TopicHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TopicHandler{
		router: r,
		logger: logger.With("component", "api.topic"),
	}
}

// Register adds every topic method to mux.
func (h *TopicHandler) Register(mux *protocol.Mux) error {
	methods := map[string]protocol.HandlerFunc{
		MethodTopicCreate:      h.Create,
		MethodTopicSubscribe:   h.Subscribe,
		MethodTopicPublish:     h.Publish,
		MethodTopicUnsubscribe: h.Unsubscribe,
		MethodTopicBroadcast:   h.Broadcast,
	}
	for name, fn := range methods {
		if err := mux.Register(name, fn); err != nil {
			return err
		}
	}
	return nil
}

// Create handles topic.create.
func (h *TopicHandler) Create(_ router.Sender, payload json.RawMessage) error {
	req, err := protocol.Decode[TopicCreate](payload)
	if err != nil {
		return err
	}
	return h.router.Submit(router.CreateTopic{TopicID: *req.TopicID})
}

// Subscribe handles topic.subscribe, binding the subscriber to the calling connection.
func (h *TopicHandler) Subscribe(conn router.Sender, payload json.RawMessage) error {
	req, err := protocol.Decode[TopicSubscribe](payload)
	if err != nil {
		return err
	}
	return h.router.Submit(router.Subscribe{
		TopicID:      *req.TopicID,
		SubscriberID: *req.SubscriberID,
		Conn:         conn,
	})
}

// Publish handles topic.publish. The publisher is excluded from delivery.
func (h *TopicHandler) Publish(_ router.Sender, payload json.RawMessage) error {
	req, err := protocol.Decode[TopicPublish](payload)
	if err != nil {
		return err
	}
	return h.router.Submit(router.Send{
		TopicID:  *req.TopicID,
		SenderID: *req.PublisherID,
		Message:  []byte(*req.Message),
	})
}

// Unsubscribe handles topic.unsubscribe.
func (h *TopicHandler) Unsubscribe(_ router.Sender, payload json.RawMessage) error {
	req, err := protocol.Decode[TopicSubscribe](payload)
	if err != nil {
		return err
	}
	return h.router.Submit(router.Unsubscribe{
		TopicID:      *req.TopicID,
		SubscriberID: *req.SubscriberID,
	})
}

// Broadcast handles topic.broadcast.
func (h *TopicHandler) Broadcast(_ router.Sender, payload json.RawMessage) error {
	req, err := protocol.Decode[TopicBroadcast](payload)
	if err != nil {
		return err
	}
	h.logger.Debug("Broadcast requested", "topic_id", *req.TopicID)
	return h.router.Submit(router.Broadcast{
		TopicID: *req.TopicID,
		Message: []byte(*req.Message),
	})
}
