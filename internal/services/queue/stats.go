package queue

import "fmt"

// QueueStats is a snapshot of the job queue as seen by the broker.
type QueueStats struct {
	Name      string `json:"name"`
	Messages  int    `json:"messages"`
	Consumers int    `json:"consumers"`
}

func (q *QueueService) Stats() (QueueStats, error) {
	q.publishMu.Lock()
	info, err := q.channel.QueueInspect(q.queueName)
	q.publishMu.Unlock()
	if err != nil {
		return QueueStats{}, fmt.Errorf("failed to inspect queue: %w", err)
	}

	return QueueStats{
		Name:      info.Name,
		Messages:  info.Messages,
		Consumers: info.Consumers,
	}, nil
}

// HealthCheck reports whether large documents can be optimized remotely
// right now: the connection must be open and some worker must be consuming.
func (q *QueueService) HealthCheck() string {
	if q.conn == nil || q.conn.IsClosed() {
		return "unhealthy: connection closed"
	}

	if q.channel == nil {
		return "unhealthy: channel not available"
	}

	stats, err := q.Stats()
	return stats.health(err)
}

func (s QueueStats) health(err error) string {
	switch {
	case err != nil:
		return "unhealthy: " + err.Error()
	case s.Consumers == 0:
		return fmt.Sprintf("unhealthy: no workers consuming %s (%d waiting)", s.Name, s.Messages)
	}
	return "healthy"
}
