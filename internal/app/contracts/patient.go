package contracts

import (
	"context"
	"labpulse-service/internal/pkg/lab_dto"
)

// PatientDirectoryClient is the external patient/physician directory.
// Relationship lookups back realtime subscription checks and are
// re-verified on every subscribe attempt.
type PatientDirectoryClient interface {
	ResolvePatientByExternalID(ctx context.Context, externalID string) (*lab_dto.Patient, error)
	GetPatientPhysicians(ctx context.Context, patientID string) ([]lab_dto.Physician, error)
	GetClinicianPatients(ctx context.Context, clinicianID string) ([]string, error)
	VerifyPatientAccess(ctx context.Context, userID, patientID, role string) (bool, error)
}

// DashboardClient notifies the out-of-scope dashboard renderer that fresh
// data exists for a patient.
type DashboardClient interface {
	UpdateMedicalDashboard(ctx context.Context, patientID, labReportID string) error
}
