package queue

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phambaophuc/media-compress/internal/models"
	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

// RemoteOptimizer sends documents to worker processes and waits for the
// optimized bytes on a private reply queue.
type RemoteOptimizer struct {
	q          *QueueService
	replyQueue string
	timeout    time.Duration

	mu      sync.Mutex
	pending map[string]chan amqp.Delivery
}

func NewRemoteOptimizer(q *QueueService, timeout time.Duration) (*RemoteOptimizer, error) {
	reply, err := q.channel.QueueDeclare(
		"",    // server-named
		false, // durable
		true,  // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return nil, fmt.Errorf("failed to declare reply queue: %w", err)
	}

	replies, err := q.channel.Consume(
		reply.Name, // queue
		"",         // consumer
		true,       // auto-ack
		true,       // exclusive
		false,      // no-local
		false,      // no-wait
		nil,        // args
	)
	if err != nil {
		return nil, fmt.Errorf("failed to consume reply queue: %w", err)
	}

	r := &RemoteOptimizer{
		q:          q,
		replyQueue: reply.Name,
		timeout:    timeout,
		pending:    make(map[string]chan amqp.Delivery),
	}
	go r.dispatch(replies)

	return r, nil
}

func (r *RemoteOptimizer) dispatch(replies <-chan amqp.Delivery) {
	for msg := range replies {
		r.mu.Lock()
		ch, ok := r.pending[msg.CorrelationId]
		delete(r.pending, msg.CorrelationId)
		r.mu.Unlock()

		if !ok {
			r.q.logger.Warn("Dropping reply for unknown or expired request",
				zap.String("correlation_id", msg.CorrelationId))
			continue
		}
		ch <- msg
	}

	// Channel closed: fail everyone still waiting.
	r.mu.Lock()
	for id, ch := range r.pending {
		close(ch)
		delete(r.pending, id)
	}
	r.mu.Unlock()
}

// Optimize publishes data and waits for the worker's reply. A reply that does
// not arrive within the RPC timeout is an EncodeFailed error; cancellation of
// ctx itself is returned as is.
func (r *RemoteOptimizer) Optimize(ctx context.Context, data []byte) ([]byte, error) {
	rpcCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	id := uuid.New().String()
	ch := make(chan amqp.Delivery, 1)

	r.mu.Lock()
	r.pending[id] = ch
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		delete(r.pending, id)
		r.mu.Unlock()
	}()

	err := r.q.publish("", r.q.queueName, amqp.Publishing{
		ContentType:   contentTypePDF,
		CorrelationId: id,
		ReplyTo:       r.replyQueue,
		Body:          data,
		Expiration:    strconv.FormatInt(r.timeout.Milliseconds(), 10),
		Timestamp:     time.Now(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to publish job: %w", err)
	}

	r.q.logger.Debug("Job published to queue",
		zap.String("correlation_id", id),
		zap.Int("size", len(data)))

	select {
	case <-rpcCtx.Done():
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, models.NewError(models.KindEncodeFailed, "remote optimizer did not respond in time", rpcCtx.Err())
	case msg, ok := <-ch:
		if !ok {
			return nil, errors.New("reply channel closed")
		}
		return decodeReply(msg)
	}
}

func decodeReply(msg amqp.Delivery) ([]byte, error) {
	status, _ := msg.Headers[headerStatus].(string)
	if status == statusOK {
		return msg.Body, nil
	}

	reason, _ := msg.Headers[headerError].(string)
	if reason == "" {
		reason = "remote optimization failed"
	}
	return nil, models.NewError(models.KindEncodeFailed, reason, nil)
}
