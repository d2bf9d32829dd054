// Package store is the persistence surface consumed by the gateway and
// API services: users and messages, nothing else.
package store

import (
	"context"
	"errors"

	"github.com/mahaj/dost-chat/pkg/model"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("store: not found")

// ErrEmailTaken is returned by CreateUser for an already-registered email.
var ErrEmailTaken = errors.New("store: email already registered")

// NewUser is the input to CreateUser. The id and creation time are
// assigned by the store.
type NewUser struct {
	Username     string
	Email        string
	PasswordHash string
	AvatarURL    string
}

type Store interface {
	CreateUser(ctx context.Context, nu NewUser) (model.User, error)
	UserByID(ctx context.Context, id string) (model.User, error)
	UserByEmail(ctx context.Context, email string) (model.User, error)
	ListUsers(ctx context.Context) ([]model.User, error)

	CreateMessage(ctx context.Context, senderID, receiverID, content, mediaURL string) (model.Message, error)
	// MessagesBetween returns every message exchanged between a and b,
	// ascending by creation time.
	MessagesBetween(ctx context.Context, a, b string) ([]model.Message, error)
}
