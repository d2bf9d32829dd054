package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gocql/gocql"
	"github.com/google/uuid"

	"github.com/mahaj/dost-chat/pkg/model"
	"github.com/mahaj/dost-chat/pkg/room"
	"github.com/mahaj/dost-chat/pkg/snowflake"
)

// Scylla implements Store on a ScyllaDB/Cassandra cluster. Message ids
// come from a per-instance snowflake node; messages cluster on id
// ascending inside their room partition, so history reads come back in
// creation order without sorting.
type Scylla struct {
	session *gocql.Session
	ids     *snowflake.Node
}

func NewScylla(hosts []string, keyspace string, node int64) (*Scylla, error) {
	cluster := gocql.NewCluster(hosts...)
	cluster.Keyspace = keyspace
	cluster.Consistency = gocql.Quorum
	cluster.Timeout = 5 * time.Second
	cluster.ConnectTimeout = 5 * time.Second
	cluster.RetryPolicy = &gocql.ExponentialBackoffRetryPolicy{
		NumRetries: 3,
		Min:        100 * time.Millisecond,
		Max:        1 * time.Second,
	}

	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("connect scylla: %w", err)
	}

	ids, err := snowflake.NewNode(node)
	if err != nil {
		session.Close()
		return nil, err
	}

	return &Scylla{session: session, ids: ids}, nil
}

func (s *Scylla) Close() {
	s.session.Close()
}

func (s *Scylla) CreateUser(ctx context.Context, nu NewUser) (model.User, error) {
	// users_by_email doubles as the uniqueness guard: the LWT insert
	// loses if the email row already exists.
	id := uuid.NewString()
	applied, err := s.session.Query(
		`INSERT INTO users_by_email (email, user_id) VALUES (?, ?) IF NOT EXISTS`,
		nu.Email, id,
	).WithContext(ctx).MapScanCAS(map[string]interface{}{})
	if err != nil {
		return model.User{}, fmt.Errorf("reserve email: %w", err)
	}
	if !applied {
		return model.User{}, ErrEmailTaken
	}

	u := model.User{
		ID:           id,
		Username:     nu.Username,
		Email:        nu.Email,
		AvatarURL:    nu.AvatarURL,
		PasswordHash: nu.PasswordHash,
		CreatedAt:    time.Now().UTC(),
	}
	err = s.session.Query(
		`INSERT INTO users (id, username, email, avatar_url, password_hash, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		u.ID, u.Username, u.Email, u.AvatarURL, u.PasswordHash, u.CreatedAt,
	).WithContext(ctx).Exec()
	if err != nil {
		// Give the email reservation back, otherwise every retry for
		// this address dead-ends in ErrEmailTaken with no user row.
		if cerr := s.session.Query(
			`DELETE FROM users_by_email WHERE email = ?`, nu.Email,
		).WithContext(ctx).Exec(); cerr != nil {
			return model.User{}, fmt.Errorf("insert user: %w (email reservation not released: %v)", err, cerr)
		}
		return model.User{}, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

func (s *Scylla) UserByID(ctx context.Context, id string) (model.User, error) {
	var u model.User
	err := s.session.Query(
		`SELECT id, username, email, avatar_url, password_hash, created_at FROM users WHERE id = ?`,
		id,
	).WithContext(ctx).Scan(&u.ID, &u.Username, &u.Email, &u.AvatarURL, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, gocql.ErrNotFound) {
		return model.User{}, ErrNotFound
	}
	if err != nil {
		return model.User{}, fmt.Errorf("select user: %w", err)
	}
	return u, nil
}

func (s *Scylla) UserByEmail(ctx context.Context, email string) (model.User, error) {
	var id string
	err := s.session.Query(
		`SELECT user_id FROM users_by_email WHERE email = ?`,
		email,
	).WithContext(ctx).Scan(&id)
	if errors.Is(err, gocql.ErrNotFound) {
		return model.User{}, ErrNotFound
	}
	if err != nil {
		return model.User{}, fmt.Errorf("select user by email: %w", err)
	}
	return s.UserByID(ctx, id)
}

func (s *Scylla) ListUsers(ctx context.Context) ([]model.User, error) {
	iter := s.session.Query(
		`SELECT id, username, email, avatar_url, created_at FROM users`,
	).WithContext(ctx).Iter()

	var users []model.User
	var u model.User
	for iter.Scan(&u.ID, &u.Username, &u.Email, &u.AvatarURL, &u.CreatedAt) {
		users = append(users, u)
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (s *Scylla) CreateMessage(ctx context.Context, senderID, receiverID, content, mediaURL string) (model.Message, error) {
	m := model.Message{
		ID:         s.ids.Generate(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    content,
		MediaURL:   mediaURL,
		CreatedAt:  time.Now().UTC(),
	}
	err := s.session.Query(
		`INSERT INTO messages (room_key, id, sender_id, receiver_id, content, media_url, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		room.Key(senderID, receiverID), m.ID, m.SenderID, m.ReceiverID, m.Content, m.MediaURL, m.CreatedAt,
	).WithContext(ctx).Exec()
	if err != nil {
		return model.Message{}, fmt.Errorf("insert message: %w", err)
	}
	return m, nil
}

func (s *Scylla) MessagesBetween(ctx context.Context, a, b string) ([]model.Message, error) {
	iter := s.session.Query(
		`SELECT id, sender_id, receiver_id, content, media_url, created_at FROM messages WHERE room_key = ?`,
		room.Key(a, b),
	).WithContext(ctx).Iter()

	var messages []model.Message
	var m model.Message
	for iter.Scan(&m.ID, &m.SenderID, &m.ReceiverID, &m.Content, &m.MediaURL, &m.CreatedAt) {
		messages = append(messages, m)
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("select messages: %w", err)
	}
	return messages, nil
}
