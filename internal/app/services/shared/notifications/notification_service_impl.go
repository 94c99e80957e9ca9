package notifications

import (
	"context"
	"labpulse-service/internal/app/contracts"
	"labpulse-service/internal/pkg/constvars"
	"labpulse-service/internal/pkg/dto/requests"
	"labpulse-service/internal/pkg/exceptions"
	"sync"

	"github.com/goccy/go-json"
	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

type notificationService struct {
	Channel *amqp091.Channel
	Log     *zap.Logger
}

var (
	notificationServiceInstance contracts.NotificationService
	onceNotificationService     sync.Once
	notificationServiceError    error
)

// NewNotificationService publishes delivery requests onto the messaging
// queues consumed by the external paging/messaging workers.
func NewNotificationService(rabbitMQConnection *amqp091.Connection, logger *zap.Logger) (contracts.NotificationService, error) {
	onceNotificationService.Do(func() {
		channel, err := rabbitMQConnection.Channel()
		if err != nil {
			notificationServiceError = err
			return
		}
		instance := &notificationService{
			Channel: channel,
			Log:     logger,
		}
		notificationServiceInstance = instance
	})
	return notificationServiceInstance, notificationServiceError
}

func (s *notificationService) NotifyClinician(ctx context.Context, notification *requests.ClinicianNotification) error {
	requestID, _ := ctx.Value(constvars.CONTEXT_REQUEST_ID_KEY).(string)

	s.Log.Info("notificationService.NotifyClinician called",
		zap.String(constvars.LoggingRequestIDKey, requestID),
		zap.String(constvars.LoggingAlertIDKey, notification.AlertID),
	)

	return s.publish(ctx, constvars.QueueClinicianNotifications, notification)
}

func (s *notificationService) NotifyPatient(ctx context.Context, notification *requests.PatientNotification) error {
	requestID, _ := ctx.Value(constvars.CONTEXT_REQUEST_ID_KEY).(string)

	s.Log.Info("notificationService.NotifyPatient called",
		zap.String(constvars.LoggingRequestIDKey, requestID),
		zap.String(constvars.LoggingPatientIDKey, notification.PatientID),
	)

	return s.publish(ctx, constvars.QueuePatientNotifications, notification)
}

func (s *notificationService) publish(ctx context.Context, queue string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return exceptions.ErrCannotMarshalJSON(err)
	}

	message := amqp091.Publishing{
		ContentType:  constvars.MIMEApplicationJSON,
		Body:         body,
		DeliveryMode: amqp091.Persistent,
	}

	err = s.Channel.PublishWithContext(ctx, "", queue, false, false, message)
	if err != nil {
		return exceptions.ErrRabbitMQPublishMessage(err, queue)
	}

	return nil
}
