package main

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/mahaj/dost-chat/pkg/model"
	"github.com/mahaj/dost-chat/pkg/room"
	"github.com/mahaj/dost-chat/pkg/store"
)

func newTestHub() (*Hub, *store.Memory) {
	st := store.NewMemory()
	return NewHub(st, nil, nil, zerolog.Nop()), st
}

func seedUser(t *testing.T, st store.Store, name string) model.User {
	t.Helper()
	u, err := st.CreateUser(context.Background(), store.NewUser{
		Username:     name,
		Email:        name + "@example.com",
		PasswordHash: "irrelevant",
	})
	require.NoError(t, err)
	return u
}

// connect registers an already-authenticated client, the state a
// connection reaches after a successful handshake.
func connect(h *Hub, u model.User) *Client {
	c := &Client{hub: h, send: make(chan []byte, 32), user: &u}
	h.Register(c)
	return c
}

func recvEvent(t *testing.T, c *Client) model.Event {
	t.Helper()
	select {
	case raw, ok := <-c.send:
		require.True(t, ok, "send channel closed")
		var evt model.Event
		require.NoError(t, json.Unmarshal(raw, &evt))
		return evt
	default:
		t.Fatal("no event queued")
		return model.Event{}
	}
}

func requireNoEvent(t *testing.T, c *Client) {
	t.Helper()
	select {
	case raw := <-c.send:
		t.Fatalf("unexpected event: %s", raw)
	default:
	}
}

func drain(c *Client) {
	for {
		select {
		case <-c.send:
		default:
			return
		}
	}
}

func TestRegisterSendsSnapshotAndAnnouncesPresence(t *testing.T) {
	h, st := newTestHub()
	alice := seedUser(t, st, "alice")
	bob := seedUser(t, st, "bob")

	ca := connect(h, alice)

	evt := recvEvent(t, ca)
	require.Equal(t, model.EventOnlineUsers, evt.Type)
	var online []string
	require.NoError(t, json.Unmarshal(evt.Data, &online))
	require.Equal(t, []string{alice.ID}, online)

	cb := connect(h, bob)

	// alice sees bob come online.
	evt = recvEvent(t, ca)
	require.Equal(t, model.EventUserOnline, evt.Type)
	var p model.PresencePayload
	require.NoError(t, json.Unmarshal(evt.Data, &p))
	require.Equal(t, bob.ID, p.UserID)

	// bob's snapshot has both, without waiting for announcements.
	evt = recvEvent(t, cb)
	require.Equal(t, model.EventOnlineUsers, evt.Type)
	require.NoError(t, json.Unmarshal(evt.Data, &online))
	require.ElementsMatch(t, []string{alice.ID, bob.ID}, online)
}

func TestUnregisterAnnouncesOfflineAndIsIdempotent(t *testing.T) {
	h, st := newTestHub()
	alice := seedUser(t, st, "alice")
	bob := seedUser(t, st, "bob")

	ca := connect(h, alice)
	cb := connect(h, bob)
	drain(ca)
	drain(cb)

	h.Unregister(cb)
	require.Equal(t, []string{alice.ID}, h.Online())

	evt := recvEvent(t, ca)
	require.Equal(t, model.EventUserOffline, evt.Type)
	var p model.PresencePayload
	require.NoError(t, json.Unmarshal(evt.Data, &p))
	require.Equal(t, bob.ID, p.UserID)

	// A duplicate disconnect signal must not corrupt state or
	// announce a second time.
	h.Unregister(cb)
	require.Equal(t, []string{alice.ID}, h.Online())
	requireNoEvent(t, ca)
}

func TestMultiSessionPresence(t *testing.T) {
	h, st := newTestHub()
	alice := seedUser(t, st, "alice")
	bob := seedUser(t, st, "bob")

	ca := connect(h, alice)
	drain(ca)

	// Two sessions for bob; only the first announces user_online.
	cb1 := connect(h, bob)
	cb2 := connect(h, bob)
	evt := recvEvent(t, ca)
	require.Equal(t, model.EventUserOnline, evt.Type)
	requireNoEvent(t, ca)

	// Closing one device does not take bob offline.
	h.Unregister(cb1)
	require.ElementsMatch(t, []string{alice.ID, bob.ID}, h.Online())
	requireNoEvent(t, ca)

	// Closing the last one does.
	h.Unregister(cb2)
	require.Equal(t, []string{alice.ID}, h.Online())
	evt = recvEvent(t, ca)
	require.Equal(t, model.EventUserOffline, evt.Type)
}

func TestJoinIsIdempotent(t *testing.T) {
	h, st := newTestHub()
	alice := seedUser(t, st, "alice")
	bob := seedUser(t, st, "bob")

	ca := connect(h, alice)
	key := room.Key(alice.ID, bob.ID)

	h.Join(ca, key)
	h.Join(ca, key)

	h.mu.RLock()
	require.Len(t, h.rooms[key], 1)
	h.mu.RUnlock()
}

// recordingMirror stands in for the Redis online set.
type recordingMirror struct {
	mu     sync.Mutex
	online map[string]bool
}

func newRecordingMirror() *recordingMirror {
	return &recordingMirror{online: make(map[string]bool)}
}

func (m *recordingMirror) SetOnline(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.online[userID] = true
	return nil
}

func (m *recordingMirror) SetOffline(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.online[userID] = false
	return nil
}

func (m *recordingMirror) isOnline(userID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online[userID]
}

func TestPresenceMirrorFollowsTransitions(t *testing.T) {
	st := store.NewMemory()
	mirror := newRecordingMirror()
	h := NewHub(st, mirror, nil, zerolog.Nop())
	alice := seedUser(t, st, "alice")

	ca := connect(h, alice)
	require.True(t, mirror.isOnline(alice.ID))

	// A second session changes nothing; dropping it keeps alice online.
	ca2 := connect(h, alice)
	h.Unregister(ca2)
	require.True(t, mirror.isOnline(alice.ID))

	h.Unregister(ca)
	require.False(t, mirror.isOnline(alice.ID))

	connect(h, alice)
	require.True(t, mirror.isOnline(alice.ID))
}

func TestPresenceMirrorConvergesUnderChurn(t *testing.T) {
	st := store.NewMemory()
	mirror := newRecordingMirror()
	h := NewHub(st, mirror, nil, zerolog.Nop())
	alice := seedUser(t, st, "alice")

	// Many connect/disconnect cycles for the same identity racing on
	// separate goroutines. The mirror re-reads the session count at
	// write time, so the last write must reflect the final state.
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := connect(h, alice)
			h.Unregister(c)
		}()
	}
	wg.Wait()

	require.Empty(t, h.Online())
	require.False(t, mirror.isOnline(alice.ID))
}

func TestUnregisterDropsRoomMembership(t *testing.T) {
	h, st := newTestHub()
	alice := seedUser(t, st, "alice")
	bob := seedUser(t, st, "bob")

	ca := connect(h, alice)
	key := room.Key(alice.ID, bob.ID)
	h.Join(ca, key)
	h.Unregister(ca)

	h.mu.RLock()
	require.NotContains(t, h.rooms, key)
	h.mu.RUnlock()
}
