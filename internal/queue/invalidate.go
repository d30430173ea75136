package queue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/lattice-hq/orgtree/backend/pkg/cache"
	"github.com/lattice-hq/orgtree/backend/pkg/logger"

	"github.com/rabbitmq/amqp091-go"
)

// InvalidationMessage carries the invalidation footprint of one mutation.
type InvalidationMessage struct {
	Keys     []string `json:"keys,omitempty"`
	Prefixes []string `json:"prefixes,omitempty"`
}

// Publisher implements the coordinator's InvalidationPublisher on an amqp
// channel.
type Publisher struct {
	ch *amqp091.Channel
}

func NewPublisher(ch *amqp091.Channel) *Publisher {
	return &Publisher{ch: ch}
}

func (p *Publisher) PublishInvalidation(ctx context.Context, keys []string, prefixes []string) error {
	body, err := json.Marshal(InvalidationMessage{
		Keys:     keys,
		Prefixes: prefixes,
	})
	if err != nil {
		return err
	}

	return p.ch.PublishWithContext(
		ctx,
		InvalidationExchange,
		"", // fanout ignores the routing key
		false,
		false,
		amqp091.Publishing{
			ContentType: "application/json",
			Body:        body,
			Timestamp:   time.Now(),
		},
	)
}

// ConsumeInvalidations binds an exclusive queue to the invalidation exchange
// and applies incoming footprints to the local cache until ctx is done. The
// writing replica hears its own broadcasts; re-deleting already-deleted keys
// is harmless.
func ConsumeInvalidations(ctx context.Context, conn *amqp091.Connection, client cache.Client) error {
	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	if err := Setup(ch); err != nil {
		return err
	}

	q, err := ch.QueueDeclare(
		"",    // broker-named
		false, // durable
		true,  // autoDelete
		true,  // exclusive
		false,
		nil,
	)
	if err != nil {
		return err
	}

	if err := ch.QueueBind(q.Name, "", InvalidationExchange, false, nil); err != nil {
		return err
	}

	deliveries, err := ch.Consume(q.Name, "", true, true, false, false, nil)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case delivery, ok := <-deliveries:
			if !ok {
				return amqp091.ErrClosed
			}
			apply(ctx, client, delivery.Body)
		}
	}
}

func apply(ctx context.Context, client cache.Client, body []byte) {
	var msg InvalidationMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		logger.Warn("[Queue] Discarding malformed invalidation message", "err", err)
		return
	}

	if len(msg.Keys) > 0 {
		if err := client.Delete(ctx, msg.Keys...); err != nil {
			logger.Warn("[Queue] Failed to apply invalidation keys", "err", err)
		}
	}
	for _, prefix := range msg.Prefixes {
		if err := client.DeleteMatching(ctx, prefix); err != nil {
			logger.Warn("[Queue] Failed to apply invalidation prefix", "prefix", prefix, "err", err)
		}
	}
}
