package websocket_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nfrund/unicorn/internal/protocol"
	"github.com/nfrund/unicorn/internal/pubsub"
	"github.com/nfrund/unicorn/internal/router"
	ws "github.com/nfrund/unicorn/internal/websocket"
)

// mockPubSub records published messages.
type mockPubSub struct {
	mu       sync.RWMutex
	messages map[string][]pubsub.Message
	order    []string
}

func newMockPubSub() *mockPubSub {
	return &mockPubSub{messages: make(map[string][]pubsub.Message)}
}

func (m *mockPubSub) Publish(ctx context.Context, msg pubsub.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages[msg.Topic] = append(m.messages[msg.Topic], msg)
	m.order = append(m.order, msg.Topic)
	return nil
}

func (m *mockPubSub) topicsInOrder() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.order...)
}

func (m *mockPubSub) Close() error { return nil }

func (m *mockPubSub) getMessages(topic string) []pubsub.Message {
	m.mu.RLock()
	defer m.mu.RUnlock()
	msgs := make([]pubsub.Message, len(m.messages[topic]))
	copy(msgs, m.messages[topic])
	return msgs
}

// echoDispatcher reflects frames back through the handle and rejects "bad".
type echoDispatcher struct{}

func (echoDispatcher) Handle(conn router.Sender, raw []byte) *protocol.Response {
	if string(raw) == "bad" {
		return protocol.NewErrorResponse("bad", protocol.InvalidPayload)
	}
	_ = conn.Send(raw)
	return nil
}

type testFixture struct {
	listener *ws.Listener
	manager  *ws.ClientManager
	ps       *mockPubSub
	server   *httptest.Server
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	ps := newMockPubSub()
	manager := ws.NewClientManager()
	listener := ws.NewListener(echoDispatcher{}, manager, ps, ws.Options{ReadLimit: 1024}, nil)

	e := echo.New()
	e.GET("/ws", listener.Handler())
	server := httptest.NewServer(e)
	t.Cleanup(func() {
		listener.Shutdown()
		server.Close()
	})

	return &testFixture{listener: listener, manager: manager, ps: ps, server: server}
}

func connectTestClient(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, resp, err := websocket.Dial(context.Background(), wsURL, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)
	t.Cleanup(func() {
		conn.Close(websocket.StatusNormalClosure, "test complete")
	})
	return conn
}

func readText(t *testing.T, conn *websocket.Conn) string {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	typ, data, err := conn.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, websocket.MessageText, typ)
	return string(data)
}

func TestListener_Connect(t *testing.T) {
	fixture := setupTestFixture(t)

	connectTestClient(t, fixture.server)
	connectTestClient(t, fixture.server)

	require.Eventually(t, func() bool { return fixture.manager.Count() == 2 }, time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool {
		return len(fixture.ps.getMessages(ws.TopicClientReady.Topic())) == 2
	}, time.Second, 10*time.Millisecond)

	ids := map[uint64]bool{}
	for _, c := range fixture.manager.GetAll() {
		ids[c.ID] = true
	}
	assert.Equal(t, map[uint64]bool{1: true, 2: true}, ids)
}

func TestListener_RoundTrip(t *testing.T) {
	fixture := setupTestFixture(t)
	conn := connectTestClient(t, fixture.server)
	ctx := context.Background()

	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte("hello")))
	assert.Equal(t, "hello", readText(t, conn))

	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte("bad")))
	assert.JSONEq(t, `{"event":"bad","payload":null,"error":"InvalidPayload"}`, readText(t, conn))

	// The connection survives an error response.
	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte("again")))
	assert.Equal(t, "again", readText(t, conn))
}

func TestListener_Disconnect(t *testing.T) {
	fixture := setupTestFixture(t)
	conn := connectTestClient(t, fixture.server)

	require.Eventually(t, func() bool { return fixture.manager.Count() == 1 }, time.Second, 10*time.Millisecond)
	handle := fixture.manager.GetAll()[0]

	_ = conn.Close(websocket.StatusNormalClosure, "bye")

	require.Eventually(t, func() bool { return fixture.manager.Count() == 0 }, time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool {
		return len(fixture.ps.getMessages(ws.TopicClientDisconnected.Topic())) == 1
	}, time.Second, 10*time.Millisecond)

	msg := fixture.ps.getMessages(ws.TopicClientDisconnected.Topic())[0]
	assert.JSONEq(t, `{"connection_id":1,"remote_addr":"127.0.0.1","reason":"client_closed"}`, string(msg.Payload))
	assert.ErrorIs(t, handle.Send([]byte("late")), ws.ErrClientClosed, "stale handles fail silently")
}

func TestListener_ReadLimit(t *testing.T) {
	fixture := setupTestFixture(t)
	conn := connectTestClient(t, fixture.server)

	big := strings.Repeat("x", 4096)
	_ = conn.Write(context.Background(), websocket.MessageText, []byte(big))

	require.Eventually(t, func() bool { return fixture.manager.Count() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestListener_Shutdown(t *testing.T) {
	fixture := setupTestFixture(t)
	conn := connectTestClient(t, fixture.server)
	require.Eventually(t, func() bool { return fixture.manager.Count() == 1 }, time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	readErr := make(chan error, 1)
	go func() {
		_, _, err := conn.Read(ctx)
		readErr <- err
	}()

	fixture.listener.Shutdown()

	assert.Equal(t, websocket.StatusGoingAway, websocket.CloseStatus(<-readErr))

	require.Eventually(t, func() bool { return fixture.manager.Count() == 0 }, 2*time.Second, 10*time.Millisecond)

	wsURL := "ws" + strings.TrimPrefix(fixture.server.URL, "http") + "/ws"
	_, resp, err := websocket.Dial(context.Background(), wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestListener_ReadyPublishedBeforeDisconnect(t *testing.T) {
	fixture := setupTestFixture(t)

	wsURL := "ws" + strings.TrimPrefix(fixture.server.URL, "http") + "/ws"
	conn, _, err := websocket.Dial(context.Background(), wsURL, nil)
	require.NoError(t, err)
	require.NoError(t, conn.Close(websocket.StatusNormalClosure, "bye"))

	require.Eventually(t, func() bool {
		return len(fixture.ps.topicsInOrder()) == 2
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{
		ws.TopicClientReady.Topic(),
		ws.TopicClientDisconnected.Topic(),
	}, fixture.ps.topicsInOrder())
}
