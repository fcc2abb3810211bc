package router

// Command is a mutation or delivery request applied by the Registry's owning
// goroutine. Commands are plain values and carry everything needed to apply them.
type Command interface {
	// Kind returns a short name used in logs.
	Kind() string
}

// CreateTopic ensures a topic exists. An existing topic keeps its subscribers.
type CreateTopic struct {
	TopicID string
}

// Subscribe binds SubscriberID to Conn within TopicID, creating the topic if needed.
type Subscribe struct {
	TopicID      string
	SubscriberID string
	Conn         Sender
}

// Unsubscribe removes SubscriberID from TopicID.
type Unsubscribe struct {
	TopicID      string
	SubscriberID string
}

// Send delivers Message to every subscriber of TopicID except SenderID.
type Send struct {
	TopicID  string
	SenderID string
	Message  []byte
}

// Broadcast delivers Message to every subscriber of TopicID.
type Broadcast struct {
	TopicID string
	Message []byte
}

func (CreateTopic) Kind() string { return "create_topic" }
func (Subscribe) Kind() string   { return "subscribe" }
func (Unsubscribe) Kind() string { return "unsubscribe" }
func (Send) Kind() string        { return "send" }
func (Broadcast) Kind() string   { return "broadcast" }
