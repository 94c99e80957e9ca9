package contracts

import (
	"context"
	"labpulse-service/internal/pkg/dto/requests"
	"labpulse-service/internal/pkg/lab_dto"
)

type AlertRepository interface {
	CreateAlert(ctx context.Context, alert *lab_dto.CriticalValueAlert) error
	FindAlertByID(ctx context.Context, alertID string) (*lab_dto.CriticalValueAlert, error)
	FindAlertByLabValueID(ctx context.Context, labValueID string) (*lab_dto.CriticalValueAlert, error)
	UpdateAlert(ctx context.Context, alert *lab_dto.CriticalValueAlert) error
}

// AlertUsecase is the critical value alerting worker plus the clinician
// lifecycle operations.
type AlertUsecase interface {
	ProcessCriticalValues(ctx context.Context, job *requests.AlertCriticalValuesJob) error
	AcknowledgeAlert(ctx context.Context, alertID string, action *requests.AlertAction) (*lab_dto.CriticalValueAlert, error)
	ResolveAlert(ctx context.Context, alertID string, action *requests.AlertAction) (*lab_dto.CriticalValueAlert, error)
}
