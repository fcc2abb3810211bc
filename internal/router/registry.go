package router

import (
	"errors"
	"fmt"
	"log/slog"
)

// ErrUnknownCommand is returned by Apply for command types it does not handle.
var ErrUnknownCommand = errors.New("unknown router command")

// Registry maps topic ids to topics. It has no internal locking: exactly one
// goroutine may own it, normally the one running Router.Run.
type Registry struct {
	topics map[string]*Topic
	logger *slog.Logger
}

// NewRegistry returns an empty registry. A nil logger falls back to slog.Default.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		topics: make(map[string]*Topic),
		logger: logger,
	}
}

// CreateTopic adds an empty topic unless one already exists.
func (r *Registry) CreateTopic(topicID string) {
	if _, ok := r.topics[topicID]; ok {
		r.logger.Debug("Topic already exists", "topic_id", topicID)
		return
	}
	r.topics[topicID] = NewTopic(topicID)
	r.logger.Debug("Topic created", "topic_id", topicID, "total_topics", len(r.topics))
}

// Subscribe binds subscriberID to conn in topicID, creating the topic on first use.
func (r *Registry) Subscribe(topicID, subscriberID string, conn Sender) {
	topic, ok := r.topics[topicID]
	if !ok {
		topic = NewTopic(topicID)
		r.topics[topicID] = topic
	}
	topic.AddSubscriber(subscriberID, conn)
	r.logger.Debug("Subscriber added", "topic_id", topic.ID(), "subscriber_id", subscriberID, "subscribers", topic.Len())
}

// Unsubscribe removes subscriberID from topicID.
func (r *Registry) Unsubscribe(topicID, subscriberID string) {
	topic, ok := r.topics[topicID]
	if !ok {
		return
	}
	topic.RemoveSubscriber(subscriberID)
	r.logger.Debug("Subscriber removed", "topic_id", topicID, "subscriber_id", subscriberID, "subscribers", topic.Len())
}

// Send fans msg out to every subscriber of topicID except senderID.
func (r *Registry) Send(topicID, senderID string, msg []byte) {
	topic, ok := r.topics[topicID]
	if !ok {
		return
	}
	delivered := topic.Send(senderID, msg)
	r.logger.Debug("Message sent", "topic_id", topicID, "sender_id", senderID, "delivered", delivered)
}

// Broadcast fans msg out to every subscriber of topicID.
func (r *Registry) Broadcast(topicID string, msg []byte) {
	topic, ok := r.topics[topicID]
	if !ok {
		return
	}
	delivered := topic.Broadcast(msg)
	r.logger.Debug("Message broadcast", "topic_id", topicID, "delivered", delivered)
}

// Apply dispatches cmd to the matching operation.
func (r *Registry) Apply(cmd Command) error {
	switch c := cmd.(type) {
	case CreateTopic:
		r.CreateTopic(c.TopicID)
	case Subscribe:
		r.Subscribe(c.TopicID, c.SubscriberID, c.Conn)
	case Unsubscribe:
		r.Unsubscribe(c.TopicID, c.SubscriberID)
	case Send:
		r.Send(c.TopicID, c.SenderID, c.Message)
	case Broadcast:
		r.Broadcast(c.TopicID, c.Message)
	default:
		return fmt.Errorf("%w: %T", ErrUnknownCommand, cmd)
	}
	return nil
}

// Topic returns the topic registered under id.
func (r *Registry) Topic(id string) (*Topic, bool) {
	topic, ok := r.topics[id]
	return topic, ok
}

// TopicCount returns the number of topics. It never decreases.
func (r *Registry) TopicCount() int {
	return len(r.topics)
}
