package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/phambaophuc/media-compress/internal/models"
	"github.com/phambaophuc/media-compress/internal/services/processor"
	"github.com/streadway/amqp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Worker consumes document jobs and replies with the optimized bytes.
type Worker struct {
	q         *QueueService
	optimizer processor.DocumentOptimizer
	limiter   *rate.Limiter
	timeout   time.Duration
}

func NewWorker(q *QueueService, optimizer processor.DocumentOptimizer, perSecond float64, timeout time.Duration) *Worker {
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	return &Worker{
		q:         q,
		optimizer: optimizer,
		limiter:   rate.NewLimiter(limit, 1),
		timeout:   timeout,
	}
}

func (w *Worker) Start(ctx context.Context, workerID, prefetch int) error {
	if err := w.q.channel.Qos(prefetch, 0, false); err != nil {
		return fmt.Errorf("failed to set qos: %w", err)
	}

	msgs, err := w.q.channel.Consume(
		w.q.queueName,                      // queue
		fmt.Sprintf("worker-%d", workerID), // consumer
		false,                              // auto-ack
		false,                              // exclusive
		false,                              // no-local
		false,                              // no-wait
		nil,                                // args
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	w.q.logger.Info("Worker started", zap.Int("worker_id", workerID))

	for {
		select {
		case <-ctx.Done():
			w.q.logger.Info("Worker stopping", zap.Int("worker_id", workerID))
			return nil
		case msg, ok := <-msgs:
			if !ok {
				w.q.logger.Warn("Message channel closed", zap.Int("worker_id", workerID))
				return fmt.Errorf("message channel closed")
			}
			if err := w.limiter.Wait(ctx); err != nil {
				msg.Nack(false, true)
				return nil
			}
			w.processMessage(ctx, msg, workerID)
		}
	}
}

func (w *Worker) processMessage(ctx context.Context, msg amqp.Delivery, workerID int) {
	logger := w.q.logger.With(
		zap.String("correlation_id", msg.CorrelationId),
		zap.Int("worker_id", workerID),
	)

	if msg.ReplyTo == "" {
		logger.Error("Job has no reply queue, dropping")
		msg.Nack(false, false) // Don't requeue malformed messages
		return
	}

	reply := w.handle(ctx, msg.Body)
	reply.CorrelationId = msg.CorrelationId

	if err := w.q.publish("", msg.ReplyTo, reply); err != nil {
		logger.Error("Failed to publish reply", zap.Error(err))
		msg.Nack(false, true)
		return
	}

	if err := msg.Ack(false); err != nil {
		logger.Error("Failed to ack message", zap.Error(err))
	}
	logger.Info("Job completed",
		zap.String("status", reply.Headers[headerStatus].(string)),
		zap.Int("input_size", len(msg.Body)),
		zap.Int("output_size", len(reply.Body)),
	)
}

// handle runs the optimizer and builds the reply; it never fails.
func (w *Worker) handle(ctx context.Context, body []byte) amqp.Publishing {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	out, err := w.optimizer.Optimize(ctx, body)
	if err != nil {
		w.q.logger.Warn("Job processing failed", zap.Error(err))
		reason := "remote optimization failed"
		if models.KindOf(err) != models.KindInternal {
			reason = models.PublicMessage(err)
		}
		return amqp.Publishing{
			Headers:   amqp.Table{headerStatus: statusError, headerError: reason},
			Timestamp: time.Now(),
		}
	}

	return amqp.Publishing{
		ContentType: contentTypePDF,
		Headers:     amqp.Table{headerStatus: statusOK},
		Body:        out,
		Timestamp:   time.Now(),
	}
}
