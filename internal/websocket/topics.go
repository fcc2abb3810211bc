package websocket

import "github.com/nfrund/unicorn/internal/pubsub"

// ClientEvent describes a connection lifecycle change.
type ClientEvent struct {
	ConnectionID uint64 `json:"connection_id"`
	RemoteAddr   string `json:"remote_addr,omitempty"`
	Reason       string `json:"reason,omitempty"`
}

var (
	// TopicClientReady is published when a client connects and its pumps are running.
	TopicClientReady = pubsub.NewEvent[ClientEvent]("ws.client.ready")

	// TopicClientDisconnected is published when a client's connection ends.
	TopicClientDisconnected = pubsub.NewEvent[ClientEvent]("ws.client.disconnected")
)

// Disconnect reasons carried in ClientEvent.Reason.
const (
	ReasonClientClosed  = "client_closed"
	ReasonReadError     = "read_error"
	ReasonServerClosing = "server_closing"
)
