package routers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"labpulse-service/internal/app/config"
	"labpulse-service/internal/app/delivery/http/middlewares"
	"labpulse-service/internal/app/services/aianalysis"
	"labpulse-service/internal/app/services/alerts"
	"labpulse-service/internal/app/services/batches"
	"labpulse-service/internal/app/services/operator"
	"labpulse-service/internal/app/services/shared/realtime"
	"labpulse-service/internal/pkg/constvars"
	"labpulse-service/internal/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func newTestRouter(t *testing.T) *chi.Mux {
	t.Helper()

	internalConfig := &config.InternalConfig{
		App: config.App{
			Version:            "v1",
			Timezone:           "UTC",
			EndpointPrefix:     "api",
			MaxRequests:        100,
			IngestAPIKeyHashes: map[string]string{},
		},
		JWT: config.JWT{Secret: "test-secret"},
	}

	log := zap.NewNop()
	mw := middlewares.NewMiddlewares(log, internalConfig)

	router := chi.NewRouter()
	SetupRoutes(
		router,
		internalConfig,
		mw,
		logrus.New(),
		batches.NewBatchController(log, nil),
		alerts.NewAlertController(log, nil),
		aianalysis.NewAnalysisController(log, nil),
		operator.NewOperatorController(log, nil),
		realtime.NewHub(nil, nil, log),
	)
	return router
}

func TestSetupRoutes(t *testing.T) {
	router := newTestRouter(t)

	t.Run("batch submission without an ingest key is unauthorized", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/batches", nil)
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("batch progress without a token is unauthorized", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/batches/batch_1", nil)
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("alert lifecycle is clinician only", func(t *testing.T) {
		token, err := utils.GenerateJWT("pat_1", constvars.RolePatient, "test-secret", time.Hour)
		assert.NoError(t, err)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/alerts/alert_1/ack", nil)
		req.Header.Set(constvars.HeaderAuthorization, "Bearer "+token)
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("dead jobs listing is clinician only", func(t *testing.T) {
		token, err := utils.GenerateJWT("pat_1", constvars.RolePatient, "test-secret", time.Hour)
		assert.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/operator/dead-jobs", nil)
		req.Header.Set(constvars.HeaderAuthorization, "Bearer "+token)
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("unknown route is not found", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/does-not-exist", nil)
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
