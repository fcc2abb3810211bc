package websocket

import (
	"sync"
	"sync/atomic"
)

// ClientManager tracks live clients by connection id.
type ClientManager struct {
	nextID  atomic.Uint64
	clients map[uint64]*Client
	mu      sync.RWMutex
}

// NewClientManager creates a new ClientManager.
func NewClientManager() *ClientManager {
	return &ClientManager{
		clients: make(map[uint64]*Client),
	}
}

// NextID returns a new connection id. Ids start at 1 and are never reused
// within the process.
func (m *ClientManager) NextID() uint64 {
	return m.nextID.Add(1)
}

// Add registers a client.
func (m *ClientManager) Add(client *Client) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clients[client.ID] = client
}

// Remove unregisters a client and closes its outbound buffer. It reports
// whether the client was registered.
func (m *ClientManager) Remove(id uint64) bool {
	m.mu.Lock()
	client, ok := m.clients[id]
	delete(m.clients, id)
	m.mu.Unlock()

	if ok {
		client.Close()
	}
	return ok
}

// Count returns the number of live clients.
func (m *ClientManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}

// GetAll returns all currently connected clients.
func (m *ClientManager) GetAll() []*Client {
	m.mu.RLock()
	defer m.mu.RUnlock()

	allClients := make([]*Client, 0, len(m.clients))
	for _, client := range m.clients {
		allClients = append(allClients, client)
	}
	return allClients
}
