package outbox

import (
	"time"
)

// OutboxMessage represents a status event awaiting publication to the
// RabbitMQ change feed. Rows are written in the same transaction as the
// status update they describe; the outbox worker publishes and deletes them.
type OutboxMessage struct {
	ID           int64
	QueueName    string
	ExchangeName string
	RoutingKey   string
	Payload      []byte
	ContentType  string
	RetryCount   int
	MaxRetries   int
	LastError    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	NextRetryAt  time.Time
}
