package api_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nfrund/unicorn/internal/api"
	"github.com/nfrund/unicorn/internal/protocol"
	"github.com/nfrund/unicorn/internal/router"
)

type fakeSubmitter struct {
	cmds []router.Command
	err  error
}

func (f *fakeSubmitter) Submit(cmd router.Command) error {
	if f.err != nil {
		return f.err
	}
	f.cmds = append(f.cmds, cmd)
	return nil
}

type conn struct{ name string }

func (*conn) Send([]byte) error { return nil }

func newMux(t *testing.T, sub api.Submitter) *protocol.Mux {
	t.Helper()
	mux := protocol.NewMux(nil)
	require.NoError(t, api.NewTopicHandler(sub, nil).Register(mux))
	return mux
}

func TestTopicHandlerRegister(t *testing.T) {
	mux := newMux(t, &fakeSubmitter{})
	assert.Equal(t, []string{
		"topic.broadcast",
		"topic.create",
		"topic.publish",
		"topic.subscribe",
		"topic.unsubscribe",
	}, mux.Methods())

	err := api.NewTopicHandler(&fakeSubmitter{}, nil).Register(mux)
	assert.ErrorIs(t, err, protocol.ErrMethodExists)
}

func TestTopicHandlerCommands(t *testing.T) {
	caller := &conn{name: "caller"}

	tests := []struct {
		name    string
		request string
		want    router.Command
	}{
		{
			name:    "create",
			request: `{"method":"topic.create","payload":{"topic_id":"room1"}}`,
			want:    router.CreateTopic{TopicID: "room1"},
		},
		{
			name:    "subscribe binds the caller",
			request: `{"method":"topic.subscribe","payload":{"topic_id":"room1","subscriber_id":"u1"}}`,
			want:    router.Subscribe{TopicID: "room1", SubscriberID: "u1", Conn: caller},
		},
		{
			name:    "publish becomes send",
			request: `{"method":"topic.publish","payload":{"topic_id":"room1","publisher_id":"u1","message":"hello"}}`,
			want:    router.Send{TopicID: "room1", SenderID: "u1", Message: []byte("hello")},
		},
		{
			name:    "unsubscribe",
			request: `{"method":"topic.unsubscribe","payload":{"topic_id":"room1","subscriber_id":"u1"}}`,
			want:    router.Unsubscribe{TopicID: "room1", SubscriberID: "u1"},
		},
		{
			name:    "broadcast",
			request: `{"method":"topic.broadcast","payload":{"topic_id":"room1","message":"all"}}`,
			want:    router.Broadcast{TopicID: "room1", Message: []byte("all")},
		},
		{
			name:    "publish with empty message",
			request: `{"method":"topic.publish","payload":{"topic_id":"room1","publisher_id":"A","message":""}}`,
			want:    router.Send{TopicID: "room1", SenderID: "A", Message: []byte("")},
		},
		{
			name:    "subscribe with empty subscriber id",
			request: `{"method":"topic.subscribe","payload":{"topic_id":"room1","subscriber_id":""}}`,
			want:    router.Subscribe{TopicID: "room1", SubscriberID: "", Conn: caller},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			sub := &fakeSubmitter{}
			mux := newMux(t, sub)

			resp := mux.Handle(caller, []byte(tc.request))

			assert.Nil(t, resp, "successful requests produce no response")
			require.Len(t, sub.cmds, 1)
			assert.Equal(t, tc.want, sub.cmds[0])
		})
	}
}

func TestTopicHandlerInvalidPayload(t *testing.T) {
	tests := []struct {
		name    string
		request string
		event   string
	}{
		{"create without topic", `{"method":"topic.create","payload":{}}`, "topic.create"},
		{"create without payload", `{"method":"topic.create"}`, "topic.create"},
		{"subscribe without subscriber", `{"method":"topic.subscribe","payload":{"topic_id":"room1"}}`, "topic.subscribe"},
		{"publish without message", `{"method":"topic.publish","payload":{"topic_id":"room1","publisher_id":"u1"}}`, "topic.publish"},
		{"publish with old sender field", `{"method":"topic.publish","payload":{"topic_id":"room1","sender_id":"u1","message":"m"}}`, "topic.publish"},
		{"unsubscribe with numeric id", `{"method":"topic.unsubscribe","payload":{"topic_id":"room1","subscriber_id":7}}`, "topic.unsubscribe"},
		{"publish with null message", `{"method":"topic.publish","payload":{"topic_id":"room1","publisher_id":"u1","message":null}}`, "topic.publish"},
		{"broadcast without topic", `{"method":"topic.broadcast","payload":{"message":"m"}}`, "topic.broadcast"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			sub := &fakeSubmitter{}
			mux := newMux(t, sub)

			resp := mux.Handle(&conn{}, []byte(tc.request))

			require.NotNil(t, resp)
			assert.Equal(t, tc.event, resp.Event)
			require.NotNil(t, resp.Error)
			assert.Equal(t, string(protocol.InvalidPayload), *resp.Error)
			assert.Empty(t, sub.cmds, "no command may be produced")
		})
	}
}

func TestTopicHandlerDirect(t *testing.T) {
	sub := &fakeSubmitter{err: router.ErrRouterClosed}
	h := api.NewTopicHandler(sub, nil)

	err := h.Create(nil, json.RawMessage(`{"topic_id":"room1"}`))
	assert.ErrorIs(t, err, router.ErrRouterClosed)
}
