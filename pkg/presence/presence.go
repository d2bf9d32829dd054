// Package presence mirrors the live online set into Redis so the REST
// API can answer presence queries without talking to a gateway.
package presence

import (
	"context"

	"github.com/redis/go-redis/v9"
)

const onlineKey = "chat:online"

type Store struct {
	rdb *redis.Client
}

func New(addr string) *Store {
	return &Store{rdb: redis.NewClient(&redis.Options{Addr: addr})}
}

func (s *Store) SetOnline(ctx context.Context, userID string) error {
	return s.rdb.SAdd(ctx, onlineKey, userID).Err()
}

func (s *Store) SetOffline(ctx context.Context, userID string) error {
	return s.rdb.SRem(ctx, onlineKey, userID).Err()
}

func (s *Store) OnlineUsers(ctx context.Context) ([]string, error) {
	return s.rdb.SMembers(ctx, onlineKey).Result()
}

func (s *Store) Close() error {
	return s.rdb.Close()
}
