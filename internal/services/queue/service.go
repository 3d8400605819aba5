// Package queue carries remote document optimization over RabbitMQ.
package queue

import (
	"fmt"
	"sync"

	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

// QueueService owns the connection and the channel used for publishing.
type QueueService struct {
	conn      *amqp.Connection
	channel   *amqp.Channel
	publishMu sync.Mutex
	logger    *zap.Logger
	queueName string
}

func NewQueueService(rabbitmqURL, queueName string, logger *zap.Logger) (*QueueService, error) {
	conn, err := amqp.Dial(rabbitmqURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := declareJobQueue(channel, queueName); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	return &QueueService{
		conn:      conn,
		channel:   channel,
		logger:    logger,
		queueName: queueName,
	}, nil
}

type queueDeclarer interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
}

// declareJobQueue declares the request queue. Jobs only matter while a caller
// waits for the reply, so the queue does not survive a broker restart.
func declareJobQueue(ch queueDeclarer, name string) error {
	_, err := ch.QueueDeclare(
		name,  // name
		false, // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	return err
}

func (q *QueueService) publish(exchange, key string, msg amqp.Publishing) error {
	q.publishMu.Lock()
	defer q.publishMu.Unlock()
	return q.channel.Publish(
		exchange, // exchange
		key,      // routing key
		false,    // mandatory
		false,    // immediate
		msg,
	)
}

// Close closes the queue connection
func (q *QueueService) Close() error {
	if q.channel != nil {
		q.channel.Close()
	}
	if q.conn != nil {
		q.conn.Close()
	}
	return nil
}
