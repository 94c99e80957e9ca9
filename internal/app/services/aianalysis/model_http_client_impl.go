package aianalysis

import (
	"bytes"
	"context"
	"fmt"
	"labpulse-service/internal/app/config"
	"labpulse-service/internal/app/contracts"
	"labpulse-service/internal/pkg/constvars"
	"labpulse-service/internal/pkg/dto/requests"
	"labpulse-service/internal/pkg/exceptions"
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var (
	modelClientInstance contracts.ModelClient
	onceModelClient     sync.Once
)

// modelHTTPClient routes each phase to its reasoning engine endpoint. A
// shared rate limiter keeps the combined call rate under the providers'
// quota regardless of how many analysis workers are running.
type modelHTTPClient struct {
	Models     config.Models
	HTTPClient *http.Client
	Limiter    *rate.Limiter
	Log        *zap.Logger
}

type modelWireResponse struct {
	Output string  `json:"output"`
	Cost   float64 `json:"cost"`
}

func NewModelHTTPClient(models config.Models, logger *zap.Logger) contracts.ModelClient {
	onceModelClient.Do(func() {
		modelClientInstance = &modelHTTPClient{
			Models: models,
			HTTPClient: &http.Client{
				Timeout: time.Duration(models.RequestTimeoutInSeconds) * time.Second,
			},
			Limiter: rate.NewLimiter(rate.Limit(models.RequestsPerSecond), models.RequestBurst),
			Log:     logger,
		}
	})
	return modelClientInstance
}

func (c *modelHTTPClient) Invoke(ctx context.Context, request *requests.ModelInvocation) (*contracts.ModelResult, error) {
	requestID, _ := ctx.Value(constvars.CONTEXT_REQUEST_ID_KEY).(string)
	c.Log.Info("modelHTTPClient.Invoke called",
		zap.String(constvars.LoggingRequestIDKey, requestID),
		zap.String(constvars.LoggingModelKey, request.Model),
		zap.String(constvars.LoggingPhaseKey, request.Phase),
	)

	if err := c.Limiter.Wait(ctx); err != nil {
		return nil, exceptions.ErrPhaseInvocation(err, request.Phase)
	}

	endpoint, err := c.endpointForPhase(request.Phase)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(request)
	if err != nil {
		return nil, exceptions.ErrCannotMarshalJSON(err)
	}

	req, err := http.NewRequestWithContext(ctx, constvars.MethodPost, endpoint, bytes.NewBuffer(body))
	if err != nil {
		return nil, exceptions.ErrCreateHTTPRequest(err)
	}
	req.Header.Set(constvars.HeaderContentType, constvars.MIMEApplicationJSON)

	started := time.Now()
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, exceptions.ErrPhaseInvocation(err, request.Phase)
	}
	defer resp.Body.Close()

	if resp.StatusCode != constvars.StatusOK {
		return nil, exceptions.ErrPhaseInvocation(
			fmt.Errorf("model endpoint responded with status %d", resp.StatusCode), request.Phase)
	}

	var wire modelWireResponse
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, exceptions.ErrDecodeResponse(err, request.Phase)
	}

	return &contracts.ModelResult{
		RawText:          wire.Output,
		Cost:             wire.Cost,
		ProcessingTimeMs: time.Since(started).Milliseconds(),
	}, nil
}

// endpointForPhase mirrors the model assignments of the pipeline: the
// primary engine also handles revision, the review engine also handles
// graphics synthesis, the evidence-grounded engine handles gap research.
func (c *modelHTTPClient) endpointForPhase(phase string) (string, error) {
	switch phase {
	case constvars.PhasePrimaryAnalysis, constvars.PhaseRevision:
		return c.Models.PrimaryEndpoint, nil
	case constvars.PhaseCriticalReview, constvars.PhaseGraphicsSynthesis:
		return c.Models.ReviewEndpoint, nil
	case constvars.PhaseGapResearch:
		return c.Models.ResearchEndpoint, nil
	default:
		return "", exceptions.ErrPhaseInvocation(fmt.Errorf("unknown phase"), phase)
	}
}
