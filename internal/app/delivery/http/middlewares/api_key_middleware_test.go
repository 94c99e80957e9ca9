package middlewares

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"labpulse-service/internal/app/config"
	"labpulse-service/internal/pkg/constvars"
	"labpulse-service/internal/pkg/utils"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func newTestMiddlewares(t *testing.T) *Middlewares {
	t.Helper()
	hash, err := utils.HashAPIKey("ingest-secret")
	assert.NoError(t, err)

	return NewMiddlewares(zap.NewNop(), &config.InternalConfig{
		App: config.App{
			IngestAPIKeyHashes: map[string]string{"lab-east": hash},
		},
		JWT: config.JWT{Secret: "test-secret"},
	})
}

func okHandler(hit *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*hit = true
		w.WriteHeader(http.StatusOK)
	})
}

func TestVerifyLabSystemKey(t *testing.T) {
	t.Run("valid key for the named lab system passes", func(t *testing.T) {
		m := newTestMiddlewares(t)
		hit := false

		req := httptest.NewRequest(http.MethodPost, "/batches", nil)
		req.Header.Set(constvars.HeaderXAPIKey, "ingest-secret")
		req.Header.Set(constvars.HeaderXLabSystem, "lab-east")
		rec := httptest.NewRecorder()

		m.VerifyLabSystemKey(okHandler(&hit)).ServeHTTP(rec, req)

		assert.True(t, hit)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("wrong key is rejected", func(t *testing.T) {
		m := newTestMiddlewares(t)
		hit := false

		req := httptest.NewRequest(http.MethodPost, "/batches", nil)
		req.Header.Set(constvars.HeaderXAPIKey, "wrong")
		req.Header.Set(constvars.HeaderXLabSystem, "lab-east")
		rec := httptest.NewRecorder()

		m.VerifyLabSystemKey(okHandler(&hit)).ServeHTTP(rec, req)

		assert.False(t, hit)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("unknown lab system is rejected", func(t *testing.T) {
		m := newTestMiddlewares(t)
		hit := false

		req := httptest.NewRequest(http.MethodPost, "/batches", nil)
		req.Header.Set(constvars.HeaderXAPIKey, "ingest-secret")
		req.Header.Set(constvars.HeaderXLabSystem, "lab-west")
		rec := httptest.NewRecorder()

		m.VerifyLabSystemKey(okHandler(&hit)).ServeHTTP(rec, req)

		assert.False(t, hit)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("missing headers are rejected", func(t *testing.T) {
		m := newTestMiddlewares(t)
		hit := false

		req := httptest.NewRequest(http.MethodPost, "/batches", nil)
		rec := httptest.NewRecorder()

		m.VerifyLabSystemKey(okHandler(&hit)).ServeHTTP(rec, req)

		assert.False(t, hit)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestAuthenticate(t *testing.T) {
	t.Run("valid bearer token injects identity", func(t *testing.T) {
		m := newTestMiddlewares(t)
		token, err := utils.GenerateJWT("clin_1", constvars.RoleClinician, "test-secret", time.Hour)
		assert.NoError(t, err)

		var userID, role string
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, _ = r.Context().Value(constvars.CONTEXT_USER_ID_KEY).(string)
			role, _ = r.Context().Value(constvars.CONTEXT_USER_ROLE_KEY).(string)
			w.WriteHeader(http.StatusOK)
		})

		req := httptest.NewRequest(http.MethodGet, "/batches/batch_1", nil)
		req.Header.Set(constvars.HeaderAuthorization, "Bearer "+token)
		rec := httptest.NewRecorder()

		m.Authenticate(handler).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "clin_1", userID)
		assert.Equal(t, constvars.RoleClinician, role)
	})

	t.Run("token via query parameter works for websocket upgrades", func(t *testing.T) {
		m := newTestMiddlewares(t)
		token, err := utils.GenerateJWT("pat_1", constvars.RolePatient, "test-secret", time.Hour)
		assert.NoError(t, err)
		hit := false

		req := httptest.NewRequest(http.MethodGet, "/ws?token="+token, nil)
		rec := httptest.NewRecorder()

		m.Authenticate(okHandler(&hit)).ServeHTTP(rec, req)

		assert.True(t, hit)
	})

	t.Run("missing token is unauthorized", func(t *testing.T) {
		m := newTestMiddlewares(t)
		hit := false

		req := httptest.NewRequest(http.MethodGet, "/batches/batch_1", nil)
		rec := httptest.NewRecorder()

		m.Authenticate(okHandler(&hit)).ServeHTTP(rec, req)

		assert.False(t, hit)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("token signed with another secret is rejected", func(t *testing.T) {
		m := newTestMiddlewares(t)
		token, err := utils.GenerateJWT("clin_1", constvars.RoleClinician, "other-secret", time.Hour)
		assert.NoError(t, err)
		hit := false

		req := httptest.NewRequest(http.MethodGet, "/batches/batch_1", nil)
		req.Header.Set(constvars.HeaderAuthorization, "Bearer "+token)
		rec := httptest.NewRecorder()

		m.Authenticate(okHandler(&hit)).ServeHTTP(rec, req)

		assert.False(t, hit)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRequireClinician(t *testing.T) {
	t.Run("patient role is forbidden", func(t *testing.T) {
		m := newTestMiddlewares(t)
		token, err := utils.GenerateJWT("pat_1", constvars.RolePatient, "test-secret", time.Hour)
		assert.NoError(t, err)
		hit := false

		req := httptest.NewRequest(http.MethodPost, "/alerts/alert_1/ack", nil)
		req.Header.Set(constvars.HeaderAuthorization, "Bearer "+token)
		rec := httptest.NewRecorder()

		m.Authenticate(m.RequireClinician(okHandler(&hit))).ServeHTTP(rec, req)

		assert.False(t, hit)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("clinician role passes", func(t *testing.T) {
		m := newTestMiddlewares(t)
		token, err := utils.GenerateJWT("clin_1", constvars.RoleClinician, "test-secret", time.Hour)
		assert.NoError(t, err)
		hit := false

		req := httptest.NewRequest(http.MethodPost, "/alerts/alert_1/ack", nil)
		req.Header.Set(constvars.HeaderAuthorization, "Bearer "+token)
		rec := httptest.NewRecorder()

		m.Authenticate(m.RequireClinician(okHandler(&hit))).ServeHTTP(rec, req)

		assert.True(t, hit)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
