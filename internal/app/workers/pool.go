package workers

import (
	"context"
	"sync"
	"time"

	"labpulse-service/internal/app/contracts"
	"labpulse-service/internal/pkg/constvars"
	"labpulse-service/internal/pkg/utils"

	"github.com/goccy/go-json"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Handler processes one decoded job. A returned error counts as a failed
// attempt and feeds the retry budget.
type Handler func(ctx context.Context, message contracts.JobMessage) error

// DeadLetterFunc runs after a job exhausted its retry budget and was moved
// to the DLQ.
type DeadLetterFunc func(ctx context.Context, message contracts.JobMessage)

// Pool consumes one queue with a fixed number of goroutines. Deliveries are
// acked only after handling: a failed job goes back to the tail of its
// queue with doubling backoff while under the attempt cap, and to the DLQ
// past it.
type Pool struct {
	Name         string
	Queue        string
	Concurrency  int
	MaxAttempts  int
	QueueService contracts.LabQueueService
	Handle       Handler
	OnDeadLetter DeadLetterFunc
	Log          *zap.Logger

	wg sync.WaitGroup
}

// Start opens the consume stream and launches the workers. It returns once
// the workers are running; the stream closes when ctx is cancelled.
func (p *Pool) Start(ctx context.Context) error {
	deliveries, err := p.QueueService.Consume(ctx, p.Queue, p.Concurrency)
	if err != nil {
		return err
	}

	for i := 0; i < p.Concurrency; i++ {
		p.wg.Add(1)
		go p.worker(ctx, deliveries)
	}

	p.Log.Info("workerPool.Start running",
		zap.String("pool", p.Name),
		zap.String(constvars.LoggingQueueNameKey, p.Queue),
		zap.Int("concurrency", p.Concurrency),
	)
	return nil
}

// Wait blocks until every worker has drained and exited.
func (p *Pool) Wait() {
	p.wg.Wait()
}

func (p *Pool) worker(ctx context.Context, deliveries <-chan amqp.Delivery) {
	defer p.wg.Done()
	for delivery := range deliveries {
		p.handleDelivery(ctx, delivery)
	}
}

func (p *Pool) handleDelivery(ctx context.Context, delivery amqp.Delivery) {
	requestID := utils.GenerateRequestID()
	jobCtx := context.WithValue(ctx, constvars.CONTEXT_REQUEST_ID_KEY, requestID)

	var message contracts.JobMessage
	if err := json.Unmarshal(delivery.Body, &message); err != nil {
		p.Log.Error("workerPool.handleDelivery undecodable payload",
			zap.String(constvars.LoggingRequestIDKey, requestID),
			zap.String("pool", p.Name),
			zap.Error(err),
		)
		// Retrying cannot fix a payload that never decodes; park it for
		// the operator instead.
		dead := contracts.JobMessage{
			ID:      utils.GenerateEntityID("job"),
			JobType: p.Queue,
			Body:    delivery.Body,
		}
		if dlqErr := p.QueueService.EnqueueToDeadQueue(jobCtx, dead); dlqErr != nil {
			p.Log.Error("workerPool.handleDelivery error dead-lettering payload",
				zap.String(constvars.LoggingRequestIDKey, requestID),
				zap.Error(dlqErr),
			)
			_ = delivery.Nack(false, true)
			return
		}
		_ = delivery.Ack(false)
		return
	}

	err := p.Handle(jobCtx, message)
	if err == nil {
		_ = delivery.Ack(false)
		return
	}

	message.FailedCount++
	p.Log.Warn("workerPool.handleDelivery job failed",
		zap.String(constvars.LoggingRequestIDKey, requestID),
		zap.String("pool", p.Name),
		zap.String(constvars.LoggingJobIDKey, message.ID),
		zap.Int(constvars.LoggingAttemptKey, message.FailedCount),
		zap.Error(err),
	)

	if message.FailedCount < p.MaxAttempts {
		p.sleepBackoff(ctx, message.FailedCount)
		if reErr := p.QueueService.Reenqueue(jobCtx, p.Queue, message); reErr != nil {
			p.Log.Error("workerPool.handleDelivery error reenqueueing job",
				zap.String(constvars.LoggingRequestIDKey, requestID),
				zap.String(constvars.LoggingJobIDKey, message.ID),
				zap.Error(reErr),
			)
			_ = delivery.Nack(false, true)
			return
		}
		_ = delivery.Ack(false)
		return
	}

	if dlqErr := p.QueueService.EnqueueToDeadQueue(jobCtx, message); dlqErr != nil {
		p.Log.Error("workerPool.handleDelivery error dead-lettering job",
			zap.String(constvars.LoggingRequestIDKey, requestID),
			zap.String(constvars.LoggingJobIDKey, message.ID),
			zap.Error(dlqErr),
		)
		_ = delivery.Nack(false, true)
		return
	}
	_ = delivery.Ack(false)

	if p.OnDeadLetter != nil {
		p.OnDeadLetter(jobCtx, message)
	}
}

// sleepBackoff waits RetryBackoffBaseSeconds doubled per prior attempt,
// returning early on shutdown.
func (p *Pool) sleepBackoff(ctx context.Context, attempt int) {
	delay := time.Duration(constvars.RetryBackoffBaseSeconds) * time.Second
	for i := 1; i < attempt; i++ {
		delay *= 2
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
