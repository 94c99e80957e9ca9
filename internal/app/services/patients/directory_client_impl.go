package patients

import (
	"context"
	"fmt"
	"labpulse-service/internal/app/contracts"
	"labpulse-service/internal/pkg/constvars"
	"labpulse-service/internal/pkg/exceptions"
	"labpulse-service/internal/pkg/lab_dto"
	"net/http"
	"net/url"
	"sync"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

var (
	directoryClientInstance contracts.PatientDirectoryClient
	onceDirectoryClient     sync.Once
)

type directoryClient struct {
	BaseUrl string
	Log     *zap.Logger
}

// NewDirectoryClient talks to the external patient/physician directory.
func NewDirectoryClient(baseUrl string, logger *zap.Logger) contracts.PatientDirectoryClient {
	onceDirectoryClient.Do(func() {
		client := &directoryClient{
			BaseUrl: baseUrl,
			Log:     logger,
		}
		directoryClientInstance = client
	})
	return directoryClientInstance
}

func (c *directoryClient) ResolvePatientByExternalID(ctx context.Context, externalID string) (*lab_dto.Patient, error) {
	requestID, _ := ctx.Value(constvars.CONTEXT_REQUEST_ID_KEY).(string)
	c.Log.Info("directoryClient.ResolvePatientByExternalID called",
		zap.String(constvars.LoggingRequestIDKey, requestID),
	)

	endpoint := fmt.Sprintf("%s/patients?externalId=%s", c.BaseUrl, url.QueryEscape(externalID))
	patient := new(lab_dto.Patient)
	if err := c.getJSON(ctx, endpoint, "patient", patient); err != nil {
		return nil, err
	}
	if patient.ID == "" {
		return nil, exceptions.ErrPatientResolve(fmt.Errorf("no patient for external id %s", externalID))
	}

	c.Log.Info("directoryClient.ResolvePatientByExternalID succeeded",
		zap.String(constvars.LoggingRequestIDKey, requestID),
		zap.String(constvars.LoggingPatientIDKey, patient.ID),
	)
	return patient, nil
}

func (c *directoryClient) GetPatientPhysicians(ctx context.Context, patientID string) ([]lab_dto.Physician, error) {
	requestID, _ := ctx.Value(constvars.CONTEXT_REQUEST_ID_KEY).(string)
	c.Log.Info("directoryClient.GetPatientPhysicians called",
		zap.String(constvars.LoggingRequestIDKey, requestID),
		zap.String(constvars.LoggingPatientIDKey, patientID),
	)

	endpoint := fmt.Sprintf("%s/patients/%s/physicians", c.BaseUrl, url.PathEscape(patientID))
	var physicians []lab_dto.Physician
	if err := c.getJSON(ctx, endpoint, "physicians", &physicians); err != nil {
		return nil, err
	}
	return physicians, nil
}

func (c *directoryClient) GetClinicianPatients(ctx context.Context, clinicianID string) ([]string, error) {
	requestID, _ := ctx.Value(constvars.CONTEXT_REQUEST_ID_KEY).(string)
	c.Log.Info("directoryClient.GetClinicianPatients called",
		zap.String(constvars.LoggingRequestIDKey, requestID),
	)

	endpoint := fmt.Sprintf("%s/clinicians/%s/patients", c.BaseUrl, url.PathEscape(clinicianID))
	var patientIDs []string
	if err := c.getJSON(ctx, endpoint, "clinician patients", &patientIDs); err != nil {
		return nil, err
	}
	return patientIDs, nil
}

func (c *directoryClient) VerifyPatientAccess(ctx context.Context, userID, patientID, role string) (bool, error) {
	requestID, _ := ctx.Value(constvars.CONTEXT_REQUEST_ID_KEY).(string)
	c.Log.Info("directoryClient.VerifyPatientAccess called",
		zap.String(constvars.LoggingRequestIDKey, requestID),
		zap.String(constvars.LoggingPatientIDKey, patientID),
	)

	endpoint := fmt.Sprintf("%s/access?userId=%s&patientId=%s&role=%s",
		c.BaseUrl,
		url.QueryEscape(userID),
		url.QueryEscape(patientID),
		url.QueryEscape(role),
	)
	var result struct {
		Allowed bool `json:"allowed"`
	}
	if err := c.getJSON(ctx, endpoint, "access check", &result); err != nil {
		return false, err
	}
	return result.Allowed, nil
}

func (c *directoryClient) getJSON(ctx context.Context, endpoint, resource string, out interface{}) error {
	requestID, _ := ctx.Value(constvars.CONTEXT_REQUEST_ID_KEY).(string)

	req, err := http.NewRequestWithContext(ctx, constvars.MethodGet, endpoint, nil)
	if err != nil {
		c.Log.Error("directoryClient.getJSON error creating HTTP request",
			zap.String(constvars.LoggingRequestIDKey, requestID),
			zap.Error(err),
		)
		return exceptions.ErrCreateHTTPRequest(err)
	}
	req.Header.Set(constvars.HeaderContentType, constvars.MIMEApplicationJSON)

	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		c.Log.Error("directoryClient.getJSON error sending HTTP request",
			zap.String(constvars.LoggingRequestIDKey, requestID),
			zap.Error(err),
		)
		return exceptions.ErrSendHTTPRequest(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != constvars.StatusOK {
		directoryError := fmt.Errorf("directory responded with status %d", resp.StatusCode)
		c.Log.Error("directoryClient.getJSON directory error",
			zap.String(constvars.LoggingRequestIDKey, requestID),
			zap.Int(constvars.LoggingStatusCodeKey, resp.StatusCode),
			zap.Error(directoryError),
		)
		return exceptions.ErrDirectoryLookup(directoryError)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		c.Log.Error("directoryClient.getJSON error decoding response",
			zap.String(constvars.LoggingRequestIDKey, requestID),
			zap.Error(err),
		)
		return exceptions.ErrDecodeResponse(err, resource)
	}
	return nil
}
