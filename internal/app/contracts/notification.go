package contracts

import (
	"context"
	"labpulse-service/internal/pkg/dto/requests"
)

// NotificationService publishes delivery requests to the downstream
// messaging workers. Best-effort: failures are logged by callers, never
// fatal to alert creation.
type NotificationService interface {
	NotifyClinician(ctx context.Context, notification *requests.ClinicianNotification) error
	NotifyPatient(ctx context.Context, notification *requests.PatientNotification) error
}
