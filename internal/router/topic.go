package router

// Sender is a handle to one live connection. Implementations must be safe for
// concurrent use and must not block.
type Sender interface {
	Send(msg []byte) error
}

// Topic holds the subscribers of a single topic id. It is not safe for
// concurrent use; the Registry's owning goroutine is its only caller.
type Topic struct {
	id          string
	subscribers map[string]Sender
}

// NewTopic returns an empty topic.
func NewTopic(id string) *Topic {
	return &Topic{
		id:          id,
		subscribers: make(map[string]Sender),
	}
}

// ID returns the topic id.
func (t *Topic) ID() string {
	return t.id
}

// AddSubscriber binds id to conn, replacing any earlier binding for id.
func (t *Topic) AddSubscriber(id string, conn Sender) {
	t.subscribers[id] = conn
}

// RemoveSubscriber drops id. Unknown ids are ignored.
func (t *Topic) RemoveSubscriber(id string) {
	delete(t.subscribers, id)
}

// Len returns the number of subscribers.
func (t *Topic) Len() int {
	return len(t.subscribers)
}

// Send delivers msg to every subscriber except senderID and returns how many
// deliveries succeeded. A failed delivery does not stop the fan-out.
func (t *Topic) Send(senderID string, msg []byte) int {
	delivered := 0
	for id, conn := range t.subscribers {
		if id == senderID {
			continue
		}
		if err := conn.Send(msg); err == nil {
			delivered++
		}
	}
	return delivered
}

// Broadcast delivers msg to every subscriber and returns how many deliveries
// succeeded.
func (t *Topic) Broadcast(msg []byte) int {
	delivered := 0
	for _, conn := range t.subscribers {
		if err := conn.Send(msg); err == nil {
			delivered++
		}
	}
	return delivered
}
