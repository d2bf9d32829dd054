// Package broker fans delivered messages out across gateway instances.
// Each gateway publishes the enriched wire payload it already delivered
// locally; every other instance delivers it to its own local room
// members. Origin ids let an instance skip its own echoes.
package broker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
)

// Envelope wraps a wire event together with its target room and the
// gateway instance that produced it.
type Envelope struct {
	Origin  string          `json:"origin"`
	RoomKey string          `json:"room_key"`
	Payload json.RawMessage `json:"payload"`
}

type Publisher struct {
	w *kafka.Writer
}

func NewPublisher(brokers []string, topic string) *Publisher {
	return &Publisher{
		w: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.LeastBytes{},
		},
	}
}

func (p *Publisher) Publish(ctx context.Context, env Envelope) error {
	value, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return p.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(env.RoomKey),
		Value: value,
		Time:  time.Now(),
	})
}

func (p *Publisher) Close() error {
	return p.w.Close()
}

type Consumer struct {
	r *kafka.Reader
}

// NewConsumer creates a fan-out reader. The group id must be unique per
// gateway instance so every instance sees every envelope.
func NewConsumer(brokers []string, topic, groupID string) *Consumer {
	return &Consumer{
		r: kafka.NewReader(kafka.ReaderConfig{
			Brokers:     brokers,
			Topic:       topic,
			GroupID:     groupID,
			StartOffset: kafka.LastOffset,
			MinBytes:    10e3,
			MaxBytes:    10e6,
		}),
	}
}

// Run reads envelopes until ctx is cancelled or the reader fails.
// Malformed records are skipped.
func (c *Consumer) Run(ctx context.Context, handle func(Envelope)) error {
	for {
		m, err := c.r.ReadMessage(ctx)
		if err != nil {
			return err
		}
		var env Envelope
		if err := json.Unmarshal(m.Value, &env); err != nil {
			continue
		}
		handle(env)
	}
}

func (c *Consumer) Close() error {
	return c.r.Close()
}
