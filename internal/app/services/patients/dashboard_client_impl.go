package patients

import (
	"bytes"
	"context"
	"fmt"
	"labpulse-service/internal/app/contracts"
	"labpulse-service/internal/pkg/constvars"
	"labpulse-service/internal/pkg/exceptions"
	"net/http"
	"sync"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

var (
	dashboardClientInstance contracts.DashboardClient
	onceDashboardClient     sync.Once
)

type dashboardClient struct {
	BaseUrl string
	Log     *zap.Logger
}

func NewDashboardClient(baseUrl string, logger *zap.Logger) contracts.DashboardClient {
	onceDashboardClient.Do(func() {
		client := &dashboardClient{
			BaseUrl: baseUrl,
			Log:     logger,
		}
		dashboardClientInstance = client
	})
	return dashboardClientInstance
}

func (c *dashboardClient) UpdateMedicalDashboard(ctx context.Context, patientID, labReportID string) error {
	requestID, _ := ctx.Value(constvars.CONTEXT_REQUEST_ID_KEY).(string)
	c.Log.Info("dashboardClient.UpdateMedicalDashboard called",
		zap.String(constvars.LoggingRequestIDKey, requestID),
		zap.String(constvars.LoggingPatientIDKey, patientID),
		zap.String(constvars.LoggingReportIDKey, labReportID),
	)

	payload := map[string]string{
		"patientId":   patientID,
		"labReportId": labReportID,
	}
	requestJSON, err := json.Marshal(payload)
	if err != nil {
		return exceptions.ErrCannotMarshalJSON(err)
	}

	endpoint := fmt.Sprintf("%s/dashboard/refresh", c.BaseUrl)
	req, err := http.NewRequestWithContext(ctx, constvars.MethodPost, endpoint, bytes.NewBuffer(requestJSON))
	if err != nil {
		c.Log.Error("dashboardClient.UpdateMedicalDashboard error creating HTTP request",
			zap.String(constvars.LoggingRequestIDKey, requestID),
			zap.Error(err),
		)
		return exceptions.ErrCreateHTTPRequest(err)
	}
	req.Header.Set(constvars.HeaderContentType, constvars.MIMEApplicationJSON)

	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		c.Log.Error("dashboardClient.UpdateMedicalDashboard error sending HTTP request",
			zap.String(constvars.LoggingRequestIDKey, requestID),
			zap.Error(err),
		)
		return exceptions.ErrSendHTTPRequest(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != constvars.StatusOK && resp.StatusCode != constvars.StatusAccepted {
		dashboardError := fmt.Errorf("dashboard responded with status %d", resp.StatusCode)
		c.Log.Error("dashboardClient.UpdateMedicalDashboard dashboard error",
			zap.String(constvars.LoggingRequestIDKey, requestID),
			zap.Int(constvars.LoggingStatusCodeKey, resp.StatusCode),
			zap.Error(dashboardError),
		)
		return exceptions.ErrDirectoryLookup(dashboardError)
	}

	return nil
}
