package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mahaj/dost-chat/pkg/model"
	"github.com/mahaj/dost-chat/pkg/room"
	"github.com/mahaj/dost-chat/pkg/snowflake"
)

// Memory is an in-memory Store for tests and single-node development.
type Memory struct {
	mu       sync.Mutex
	users    map[string]model.User
	byEmail  map[string]string
	messages map[string][]model.Message // room key -> ascending by id
	ids      *snowflake.Node
}

func NewMemory() *Memory {
	ids, _ := snowflake.NewNode(0)
	return &Memory{
		users:    make(map[string]model.User),
		byEmail:  make(map[string]string),
		messages: make(map[string][]model.Message),
		ids:      ids,
	}
}

func (m *Memory) CreateUser(_ context.Context, nu NewUser) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byEmail[nu.Email]; ok {
		return model.User{}, ErrEmailTaken
	}
	u := model.User{
		ID:           uuid.NewString(),
		Username:     nu.Username,
		Email:        nu.Email,
		AvatarURL:    nu.AvatarURL,
		PasswordHash: nu.PasswordHash,
		CreatedAt:    time.Now().UTC(),
	}
	m.users[u.ID] = u
	m.byEmail[u.Email] = u.ID
	return u, nil
}

func (m *Memory) UserByID(_ context.Context, id string) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return model.User{}, ErrNotFound
	}
	return u, nil
}

func (m *Memory) UserByEmail(_ context.Context, email string) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.byEmail[email]
	if !ok {
		return model.User{}, ErrNotFound
	}
	return m.users[id], nil
}

func (m *Memory) ListUsers(_ context.Context) ([]model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	users := make([]model.User, 0, len(m.users))
	for _, u := range m.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (m *Memory) CreateMessage(_ context.Context, senderID, receiverID, content, mediaURL string) (model.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	msg := model.Message{
		ID:         m.ids.Generate(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    content,
		MediaURL:   mediaURL,
		CreatedAt:  time.Now().UTC(),
	}
	key := room.Key(senderID, receiverID)
	m.messages[key] = append(m.messages[key], msg)
	return msg, nil
}

func (m *Memory) MessagesBetween(_ context.Context, a, b string) ([]model.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	src := m.messages[room.Key(a, b)]
	out := make([]model.Message, len(src))
	copy(out, src)
	return out, nil
}
