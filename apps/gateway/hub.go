package main

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mahaj/dost-chat/pkg/broker"
	"github.com/mahaj/dost-chat/pkg/model"
	"github.com/mahaj/dost-chat/pkg/store"
)

// presenceMirror is the external online-set mirror the REST API reads.
// Satisfied by *presence.Store.
type presenceMirror interface {
	SetOnline(ctx context.Context, userID string) error
	SetOffline(ctx context.Context, userID string) error
}

// Hub owns every piece of shared realtime state: the sessions of each
// online user and the per-room membership tables. All mutations go
// through the hub mutex; store and Redis calls happen outside it.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]map[*Client]bool // user id -> live connections
	rooms    map[string]map[*Client]bool // room key -> joined connections

	id    string // this instance, used to skip its own kafka echoes
	store store.Store
	peers *broker.Publisher // optional
	log   zerolog.Logger

	// presMu serializes mirror writes so presence transitions racing
	// on different goroutines cannot reach Redis out of order.
	presMu   sync.Mutex
	presence presenceMirror // optional
}

func NewHub(st store.Store, pres presenceMirror, peers *broker.Publisher, log zerolog.Logger) *Hub {
	return &Hub{
		sessions: make(map[string]map[*Client]bool),
		rooms:    make(map[string]map[*Client]bool),
		id:       uuid.NewString(),
		store:    st,
		presence: pres,
		peers:    peers,
		log:      log,
	}
}

func (h *Hub) InstanceID() string { return h.id }

// Register records an authenticated connection. The identity's first
// session announces user_online to everyone else; the new connection
// always gets the online_users snapshot, computed under the same lock
// as the registration so a concurrent disconnect cannot interleave.
func (h *Hub) Register(c *Client) {
	userID := c.user.ID

	h.mu.Lock()
	first := len(h.sessions[userID]) == 0
	if h.sessions[userID] == nil {
		h.sessions[userID] = make(map[*Client]bool)
	}
	h.sessions[userID][c] = true
	online := h.onlineLocked()
	h.mu.Unlock()

	if first {
		h.mirrorPresence(userID)
		h.broadcastExcept(c, model.EventUserOnline, model.PresencePayload{UserID: userID})
	}
	c.sendEvent(model.EventOnlineUsers, online)

	h.log.Info().Str("user_id", userID).Msg("client registered")
}

// Unregister is idempotent: duplicate disconnect signals find nothing
// left to remove. The identity's last session announces user_offline.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if !c.closed {
		close(c.send)
		c.closed = true
	}
	for key, members := range h.rooms {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, key)
		}
	}
	var userID string
	last := false
	if c.user != nil {
		if conns, ok := h.sessions[c.user.ID]; ok && conns[c] {
			delete(conns, c)
			if len(conns) == 0 {
				delete(h.sessions, c.user.ID)
				userID = c.user.ID
				last = true
			}
		}
	}
	h.mu.Unlock()

	if !last {
		return
	}

	h.mirrorPresence(userID)
	h.broadcastExcept(nil, model.EventUserOffline, model.PresencePayload{UserID: userID})

	h.log.Info().Str("user_id", userID).Msg("client unregistered")
}

// mirrorPresence brings the external mirror in line with the user's
// current session count. The state is re-read under presMu, so however
// concurrent transitions interleave, the last write to reach the
// mirror carries the state after all of them.
func (h *Hub) mirrorPresence(userID string) {
	if h.presence == nil {
		return
	}
	h.presMu.Lock()
	defer h.presMu.Unlock()

	h.mu.RLock()
	online := len(h.sessions[userID]) > 0
	h.mu.RUnlock()

	var err error
	if online {
		err = h.presence.SetOnline(context.Background(), userID)
	} else {
		err = h.presence.SetOffline(context.Background(), userID)
	}
	if err != nil {
		h.log.Warn().Err(err).Str("user_id", userID).Bool("online", online).Msg("failed to mirror presence")
	}
}

// Join adds a connection to a room. Idempotent.
func (h *Hub) Join(c *Client, key string) {
	h.mu.Lock()
	if h.rooms[key] == nil {
		h.rooms[key] = make(map[*Client]bool)
	}
	h.rooms[key][c] = true
	h.mu.Unlock()
}

// DeliverPeer hands an envelope from another gateway instance to the
// local members of its room. Own echoes are skipped.
func (h *Hub) DeliverPeer(env broker.Envelope) {
	if env.Origin == h.id {
		return
	}
	h.deliverRoom(env.RoomKey, env.Payload)
}

// Online returns the ids of users with at least one live session.
func (h *Hub) Online() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.onlineLocked()
}

func (h *Hub) onlineLocked() []string {
	online := make([]string, 0, len(h.sessions))
	for id := range h.sessions {
		online = append(online, id)
	}
	sort.Strings(online)
	return online
}

func (h *Hub) deliverRoom(key string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.rooms[key] {
		c.enqueue(payload)
	}
}

// broadcastExcept sends an event to every connection except skip.
func (h *Hub) broadcastExcept(skip *Client, t model.EventType, payload any) {
	raw, err := model.NewEvent(t, payload)
	if err != nil {
		h.log.Error().Err(err).Str("event", string(t)).Msg("failed to encode event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, conns := range h.sessions {
		for c := range conns {
			if c == skip {
				continue
			}
			c.enqueue(raw)
		}
	}
}
