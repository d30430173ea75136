// Package queue fans cache invalidations out over RabbitMQ. Every replica
// holds its own in-process cache, so each one consumes the broadcast and
// drops the same keys the writing replica dropped locally.
package queue

import (
	"fmt"

	"github.com/lattice-hq/orgtree/backend/internal/util"
	"github.com/lattice-hq/orgtree/backend/pkg/logger"

	"github.com/rabbitmq/amqp091-go"
)

// InvalidationExchange is a fanout exchange; consumers bind anonymous
// exclusive queues to it.
const InvalidationExchange = "cache_invalidation"

func Init() *amqp091.Connection {
	user := util.GetEnv("RABBITMQ_USER")
	pass := util.GetEnv("RABBITMQ_PASSWORD")
	host := util.GetEnv("RABBITMQ_HOST")
	port := util.GetEnv("RABBITMQ_PORT")

	connURL := fmt.Sprintf(
		"amqp://%s:%s@%s:%s/",
		user,
		pass,
		host,
		port,
	)

	conn, err := amqp091.Dial(connURL)
	if err != nil {
		logger.Fatal("Failed to connect to RabbitMQ", "err", err)
	}

	return conn
}

// Setup declares the invalidation exchange on the given channel.
func Setup(ch *amqp091.Channel) error {
	return ch.ExchangeDeclare(
		InvalidationExchange,
		"fanout",
		false, // durable: invalidations are only useful live
		true,  // autoDelete
		false,
		false,
		nil,
	)
}
