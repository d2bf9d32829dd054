package main

import (
	"context"
	"errors"

	"github.com/mahaj/dost-chat/pkg/broker"
	"github.com/mahaj/dost-chat/pkg/model"
	"github.com/mahaj/dost-chat/pkg/room"
	"github.com/mahaj/dost-chat/pkg/store"
)

// SendMessage runs the send pipeline for one client-issued message:
// validate, persist, enrich, deliver. Exactly one attempt; every
// failure is reported to the sender only and nothing is broadcast.
func (h *Hub) SendMessage(ctx context.Context, c *Client, p model.SendMessagePayload) {
	if p.ReceiverID == "" || p.Content == "" {
		c.sendError(model.CodeValidation, "receiverId and content are required")
		return
	}

	receiver, err := h.store.UserByID(ctx, p.ReceiverID)
	if errors.Is(err, store.ErrNotFound) {
		c.sendError(model.CodeNotFound, "receiver not found")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("receiver_id", p.ReceiverID).Msg("receiver lookup failed")
		c.sendError(model.CodeSendFailed, "failed to send message")
		return
	}

	sender, err := h.store.UserByID(ctx, c.user.ID)
	if err != nil {
		h.log.Error().Err(err).Str("sender_id", c.user.ID).Msg("sender lookup failed")
		c.sendError(model.CodeSendFailed, "failed to send message")
		return
	}

	msg, err := h.store.CreateMessage(ctx, sender.ID, receiver.ID, p.Content, p.MediaURL)
	if err != nil {
		h.log.Error().Err(err).Msg("message persist failed")
		c.sendError(model.CodeSendFailed, "failed to send message")
		return
	}

	wire := model.WireMessage{
		ID:        msg.ID,
		Content:   msg.Content,
		MediaURL:  msg.MediaURL,
		Sender:    sender.Summary(),
		Receiver:  receiver.Summary(),
		CreatedAt: msg.CreatedAt,
	}
	payload, err := model.NewEvent(model.EventNewMessage, wire)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to encode message")
		c.sendError(model.CodeSendFailed, "failed to send message")
		return
	}

	key := room.Key(sender.ID, receiver.ID)

	// The sender is always in the room by delivery time; the receiver
	// must have joined on its own to get the live broadcast.
	h.Join(c, key)
	h.deliverRoom(key, payload)

	if h.peers != nil {
		env := broker.Envelope{Origin: h.id, RoomKey: key, Payload: payload}
		if err := h.peers.Publish(ctx, env); err != nil {
			// Local members already have the message; only peer
			// gateways miss this one.
			h.log.Warn().Err(err).Int64("message_id", msg.ID).Msg("peer publish failed")
		}
	}

	h.log.Info().
		Int64("message_id", msg.ID).
		Str("sender_id", sender.ID).
		Str("receiver_id", receiver.ID).
		Msg("message delivered")
}
