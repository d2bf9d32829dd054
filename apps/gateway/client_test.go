package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mahaj/dost-chat/pkg/auth"
	"github.com/mahaj/dost-chat/pkg/model"
)

func rawEvent(t *testing.T, typ model.EventType, payload any) []byte {
	t.Helper()
	raw, err := model.NewEvent(typ, payload)
	require.NoError(t, err)
	return raw
}

func TestEventBeforeHandshakeClosesConnection(t *testing.T) {
	h, st := newTestHub()
	bob := seedUser(t, st, "bob")

	c := &Client{hub: h, send: make(chan []byte, 32)}

	keep := c.handleEvent(context.Background(), rawEvent(t, model.EventJoinChat, model.JoinChatPayload{OtherUserID: bob.ID}))
	require.False(t, keep)

	p := decodeError(t, recvEvent(t, c))
	require.Equal(t, model.CodeAuth, p.Code)

	// No session was created for the rejected connection.
	require.Empty(t, h.Online())
}

func TestHandshakeRejectsBadToken(t *testing.T) {
	h, _ := newTestHub()

	for name, payload := range map[string]model.HandshakePayload{
		"missing token": {},
		"garbage token": {Token: "not-a-jwt"},
	} {
		c := &Client{hub: h, send: make(chan []byte, 32)}

		keep := c.handleEvent(context.Background(), rawEvent(t, model.EventHandshake, payload))
		require.False(t, keep, name)

		p := decodeError(t, recvEvent(t, c))
		require.Equal(t, model.CodeAuth, p.Code, name)
		require.Empty(t, h.Online(), name)
	}
}

func TestHandshakeRejectsUnknownUser(t *testing.T) {
	h, _ := newTestHub()

	token, err := auth.GenerateToken("ghost")
	require.NoError(t, err)

	c := &Client{hub: h, send: make(chan []byte, 32)}
	keep := c.handleEvent(context.Background(), rawEvent(t, model.EventHandshake, model.HandshakePayload{Token: token}))
	require.False(t, keep)

	p := decodeError(t, recvEvent(t, c))
	require.Equal(t, model.CodeAuth, p.Code)
	require.Empty(t, h.Online())
}

func TestHandshakeRegistersAndUnlocksEvents(t *testing.T) {
	h, st := newTestHub()
	alice := seedUser(t, st, "alice")
	bob := seedUser(t, st, "bob")

	token, err := auth.GenerateToken(alice.ID)
	require.NoError(t, err)

	c := &Client{hub: h, send: make(chan []byte, 32)}
	keep := c.handleEvent(context.Background(), rawEvent(t, model.EventHandshake, model.HandshakePayload{Token: token}))
	require.True(t, keep)
	require.NotNil(t, c.user)
	require.Equal(t, alice.ID, c.user.ID)
	require.Equal(t, []string{alice.ID}, h.Online())

	evt := recvEvent(t, c)
	require.Equal(t, model.EventOnlineUsers, evt.Type)

	// Events are accepted now.
	keep = c.handleEvent(context.Background(), rawEvent(t, model.EventSendMessage, model.SendMessagePayload{
		ReceiverID: bob.ID,
		Content:    "hello",
	}))
	require.True(t, keep)

	wire := decodeWire(t, recvEvent(t, c))
	require.Equal(t, "hello", wire.Content)
}

func TestUnknownEventIgnored(t *testing.T) {
	h, st := newTestHub()
	alice := seedUser(t, st, "alice")

	c := connect(h, alice)
	drain(c)

	keep := c.handleEvent(context.Background(), []byte(`{"type":"typing","data":{"to":"someone"}}`))
	require.True(t, keep)
	requireNoEvent(t, c)
}

func TestMalformedEventKeepsConnection(t *testing.T) {
	h, st := newTestHub()
	alice := seedUser(t, st, "alice")

	c := connect(h, alice)
	drain(c)

	keep := c.handleEvent(context.Background(), []byte(`{"type":`))
	require.True(t, keep)

	p := decodeError(t, recvEvent(t, c))
	require.Equal(t, model.CodeValidation, p.Code)
}

func TestJoinChatRequiresOtherUser(t *testing.T) {
	h, st := newTestHub()
	alice := seedUser(t, st, "alice")

	c := connect(h, alice)
	drain(c)

	keep := c.handleEvent(context.Background(), rawEvent(t, model.EventJoinChat, model.JoinChatPayload{}))
	require.True(t, keep)

	p := decodeError(t, recvEvent(t, c))
	require.Equal(t, model.CodeValidation, p.Code)
}

func TestEndToEndSendScenario(t *testing.T) {
	h, st := newTestHub()
	u1 := seedUser(t, st, "u1")
	u2 := seedUser(t, st, "u2")

	t1, err := auth.GenerateToken(u1.ID)
	require.NoError(t, err)
	t2, err := auth.GenerateToken(u2.ID)
	require.NoError(t, err)

	c1 := &Client{hub: h, send: make(chan []byte, 32)}
	c2 := &Client{hub: h, send: make(chan []byte, 32)}

	require.True(t, c1.handleEvent(context.Background(), rawEvent(t, model.EventHandshake, model.HandshakePayload{Token: t1})))
	require.True(t, c2.handleEvent(context.Background(), rawEvent(t, model.EventHandshake, model.HandshakePayload{Token: t2})))
	require.True(t, c1.handleEvent(context.Background(), rawEvent(t, model.EventJoinChat, model.JoinChatPayload{OtherUserID: u2.ID})))
	require.True(t, c2.handleEvent(context.Background(), rawEvent(t, model.EventJoinChat, model.JoinChatPayload{OtherUserID: u1.ID})))
	drain(c1)
	drain(c2)

	require.True(t, c1.handleEvent(context.Background(), rawEvent(t, model.EventSendMessage, model.SendMessagePayload{
		ReceiverID: u2.ID,
		Content:    "hi",
	})))

	msgs, err := st.MessagesBetween(context.Background(), u1.ID, u2.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.Equal(t, "hi", msgs[0].Content)
	require.Equal(t, u1.ID, msgs[0].SenderID)
	require.Equal(t, u2.ID, msgs[0].ReceiverID)

	w1 := decodeWire(t, recvEvent(t, c1))
	w2 := decodeWire(t, recvEvent(t, c2))
	require.Equal(t, msgs[0].ID, w1.ID)
	require.Equal(t, msgs[0].ID, w2.ID)
	require.Equal(t, "hi", w1.Content)
	require.Equal(t, "hi", w2.Content)
}

func TestRepeatedHandshakeIsNoOp(t *testing.T) {
	h, st := newTestHub()
	alice := seedUser(t, st, "alice")

	token, err := auth.GenerateToken(alice.ID)
	require.NoError(t, err)

	c := &Client{hub: h, send: make(chan []byte, 32)}
	require.True(t, c.handleEvent(context.Background(), rawEvent(t, model.EventHandshake, model.HandshakePayload{Token: token})))
	drain(c)

	require.True(t, c.handleEvent(context.Background(), rawEvent(t, model.EventHandshake, model.HandshakePayload{Token: token})))
	requireNoEvent(t, c)
	require.Equal(t, []string{alice.ID}, h.Online())

	var sessions int
	h.mu.RLock()
	sessions = len(h.sessions[alice.ID])
	h.mu.RUnlock()
	require.Equal(t, 1, sessions)
}

func TestSnapshotPayloadShape(t *testing.T) {
	// online_users carries a bare array of user ids.
	h, st := newTestHub()
	alice := seedUser(t, st, "alice")

	c := connect(h, alice)
	evt := recvEvent(t, c)
	require.Equal(t, model.EventOnlineUsers, evt.Type)
	require.JSONEq(t, `["`+alice.ID+`"]`, string(evt.Data))
}
