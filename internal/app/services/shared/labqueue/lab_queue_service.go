package labqueue

import (
	"context"
	"fmt"
	"labpulse-service/internal/app/contracts"
	"labpulse-service/internal/pkg/constvars"
	"labpulse-service/internal/pkg/exceptions"
	"sync"

	"github.com/goccy/go-json"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Service manages the durable job queues of the lab pipeline plus the
// shared DLQ. Publishing uses confirms; consumption runs on a dedicated
// channel per worker pool so each pool gets its own prefetch window.
type Service struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	log      *zap.Logger
	confirms chan amqp.Confirmation
	mu       sync.Mutex
}

var declaredQueues = []string{
	constvars.QueueProcessLabResults,
	constvars.QueueAlertCriticalValue,
	constvars.QueueAnalyzeLabResults,
	constvars.QueueDeadJobs,
	constvars.QueueClinicianNotifications,
	constvars.QueuePatientNotifications,
}

// NewService opens the publish channel, declares every durable queue and
// enables publisher confirms.
func NewService(conn *amqp.Connection, log *zap.Logger) (contracts.LabQueueService, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, err
	}

	for _, queue := range declaredQueues {
		_, err = ch.QueueDeclare(
			queue, // name
			true,  // durable
			false, // autoDelete
			false, // exclusive
			false, // noWait
			nil,   // args
		)
		if err != nil {
			return nil, err
		}
	}

	if err := ch.Confirm(false); err != nil {
		return nil, err
	}

	svc := &Service{
		conn:     conn,
		ch:       ch,
		log:      log,
		confirms: ch.NotifyPublish(make(chan amqp.Confirmation, 1)),
	}

	return svc, nil
}

// Enqueue publishes a job to a queue with persistence and waits for the
// broker confirm.
func (s *Service) Enqueue(ctx context.Context, queue string, message contracts.JobMessage) error {
	requestID, _ := ctx.Value(constvars.CONTEXT_REQUEST_ID_KEY).(string)
	s.log.Info("labQueue.Enqueue called",
		zap.String(constvars.LoggingRequestIDKey, requestID),
		zap.String(constvars.LoggingQueueNameKey, queue),
		zap.String(constvars.LoggingJobIDKey, message.ID),
	)

	return s.publish(ctx, queue, message)
}

// Reenqueue publishes a failed job back to the tail of its queue with the
// incremented FailedCount it carries.
func (s *Service) Reenqueue(ctx context.Context, queue string, message contracts.JobMessage) error {
	requestID, _ := ctx.Value(constvars.CONTEXT_REQUEST_ID_KEY).(string)
	s.log.Info("labQueue.Reenqueue called",
		zap.String(constvars.LoggingRequestIDKey, requestID),
		zap.String(constvars.LoggingQueueNameKey, queue),
		zap.String(constvars.LoggingJobIDKey, message.ID),
		zap.Int(constvars.LoggingAttemptKey, message.FailedCount),
	)

	return s.publish(ctx, queue, message)
}

// EnqueueToDeadQueue moves a job that exhausted its retry budget to the
// operator-facing DLQ.
func (s *Service) EnqueueToDeadQueue(ctx context.Context, message contracts.JobMessage) error {
	requestID, _ := ctx.Value(constvars.CONTEXT_REQUEST_ID_KEY).(string)
	s.log.Warn("labQueue.EnqueueToDeadQueue called",
		zap.String(constvars.LoggingRequestIDKey, requestID),
		zap.String(constvars.LoggingJobIDKey, message.ID),
		zap.String(constvars.LoggingJobTypeKey, message.JobType),
		zap.Int(constvars.LoggingAttemptKey, message.FailedCount),
	)

	return s.publish(ctx, constvars.QueueDeadJobs, message)
}

// Consume opens a dedicated channel with the pool's prefetch and returns
// the delivery stream. Deliveries are not auto-acked; the worker pool acks
// after handling.
func (s *Service) Consume(ctx context.Context, queue string, prefetch int) (<-chan amqp.Delivery, error) {
	ch, err := s.conn.Channel()
	if err != nil {
		return nil, exceptions.ErrRabbitMQConsume(err, queue)
	}

	if prefetch <= 0 {
		prefetch = 1
	}
	if err := ch.Qos(prefetch, 0, false); err != nil {
		return nil, exceptions.ErrRabbitMQConsume(err, queue)
	}

	deliveries, err := ch.Consume(
		queue, // queue
		"",    // consumer
		false, // autoAck
		false, // exclusive
		false, // noLocal
		false, // noWait
		nil,   // args
	)
	if err != nil {
		return nil, exceptions.ErrRabbitMQConsume(err, queue)
	}

	go func() {
		<-ctx.Done()
		_ = ch.Close()
	}()

	return deliveries, nil
}

// queueGetter is the slice of amqp.Channel the dead job listing needs.
type queueGetter interface {
	Get(queue string, autoAck bool) (amqp.Delivery, bool, error)
}

// FetchDeadJobs retrieves up to max DLQ entries using basic.get, requeueing
// them so the listing is non-destructive.
func (s *Service) FetchDeadJobs(ctx context.Context, max int) ([]contracts.JobMessage, error) {
	requestID, _ := ctx.Value(constvars.CONTEXT_REQUEST_ID_KEY).(string)
	s.log.Info("labQueue.FetchDeadJobs called",
		zap.String(constvars.LoggingRequestIDKey, requestID),
	)

	return collectDeadJobs(s.ch, max)
}

// collectDeadJobs pulls every entry first and requeues only after the last
// basic.get. Nacking earlier would put the entry back at the head of the
// queue, where the next get would list it again.
func collectDeadJobs(getter queueGetter, max int) ([]contracts.JobMessage, error) {
	if max <= 0 {
		max = 1
	}
	deliveries := make([]amqp.Delivery, 0, max)
	items := make([]contracts.JobMessage, 0, max)

	defer func() {
		for i := range deliveries {
			_ = deliveries[i].Nack(false, true)
		}
	}()

	for i := 0; i < max; i++ {
		d, ok, err := getter.Get(constvars.QueueDeadJobs, false)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		deliveries = append(deliveries, d)

		var payload contracts.JobMessage
		if err := json.Unmarshal(d.Body, &payload); err != nil {
			continue
		}
		items = append(items, payload)
	}

	return items, nil
}

func (s *Service) publish(ctx context.Context, queue string, message contracts.JobMessage) error {
	body, err := json.Marshal(message)
	if err != nil {
		return exceptions.ErrCannotMarshalJSON(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	msg := amqp.Publishing{
		ContentType:  constvars.MIMEApplicationJSON,
		Body:         body,
		DeliveryMode: amqp.Persistent,
	}

	if err := s.ch.PublishWithContext(ctx, "", queue, false, false, msg); err != nil {
		return exceptions.ErrRabbitMQPublishMessage(err, queue)
	}

	select {
	case confirmed := <-s.confirms:
		if !confirmed.Ack {
			return exceptions.ErrRabbitMQPublishMessage(fmt.Errorf("message not confirmed"), queue)
		}
	case <-ctx.Done():
		return exceptions.ErrRabbitMQPublishMessage(ctx.Err(), queue)
	}
	return nil
}
