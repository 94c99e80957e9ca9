package storage

import (
	"bytes"
	"context"
	"fmt"
	"labpulse-service/internal/app/contracts"
	"labpulse-service/internal/pkg/constvars"
	"labpulse-service/internal/pkg/exceptions"
	"sync"

	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

type diagnosticsArchive struct {
	Client     *minio.Client
	BucketName string
	Log        *zap.Logger
}

var (
	diagnosticsArchiveInstance contracts.DiagnosticsArchive
	onceDiagnosticsArchive     sync.Once
)

// NewDiagnosticsArchive stores raw model output and failed-session payloads
// in object storage so operators can investigate without replaying jobs.
func NewDiagnosticsArchive(client *minio.Client, bucketName string, logger *zap.Logger) contracts.DiagnosticsArchive {
	onceDiagnosticsArchive.Do(func() {
		diagnosticsArchiveInstance = &diagnosticsArchive{
			Client:     client,
			BucketName: bucketName,
			Log:        logger,
		}
	})
	return diagnosticsArchiveInstance
}

func (s *diagnosticsArchive) ArchivePhaseOutput(ctx context.Context, sessionID, phase string, raw []byte) error {
	objectName := fmt.Sprintf("sessions/%s/%s.txt", sessionID, phase)
	return s.putObject(ctx, objectName, raw, constvars.MIMETextPlain)
}

func (s *diagnosticsArchive) ArchiveFailedSession(ctx context.Context, sessionID string, payload []byte) error {
	objectName := fmt.Sprintf("failed/%s.json", sessionID)
	return s.putObject(ctx, objectName, payload, constvars.MIMEApplicationJSON)
}

func (s *diagnosticsArchive) putObject(ctx context.Context, objectName string, data []byte, contentType string) error {
	requestID, _ := ctx.Value(constvars.CONTEXT_REQUEST_ID_KEY).(string)
	s.Log.Info("diagnosticsArchive.putObject called",
		zap.String(constvars.LoggingRequestIDKey, requestID),
		zap.String(constvars.LoggingObjectNameKey, objectName),
	)

	_, err := s.Client.PutObject(
		ctx,
		s.BucketName,
		objectName,
		bytes.NewReader(data),
		int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType},
	)
	if err != nil {
		return exceptions.ErrMinioCreateObject(err, s.BucketName)
	}
	return nil
}
