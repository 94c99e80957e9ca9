package contracts

import (
	"context"

	"github.com/rabbitmq/amqp091-go"
)

// JobMessage is the payload stored on every job queue. FailedCount rides
// along so redeliveries know how many attempts preceded them.
type JobMessage struct {
	ID          string `json:"id"`
	JobType     string `json:"job_type"`
	Body        []byte `json:"body"`
	FailedCount int    `json:"failed_count"`
}

// LabQueueService wraps the durable job queues plus the shared DLQ.
// Delivery is at-least-once; handlers must be idempotent.
type LabQueueService interface {
	Enqueue(ctx context.Context, queue string, message JobMessage) error
	Reenqueue(ctx context.Context, queue string, message JobMessage) error
	EnqueueToDeadQueue(ctx context.Context, message JobMessage) error
	Consume(ctx context.Context, queue string, prefetch int) (<-chan amqp091.Delivery, error)
	FetchDeadJobs(ctx context.Context, max int) ([]JobMessage, error)
}
