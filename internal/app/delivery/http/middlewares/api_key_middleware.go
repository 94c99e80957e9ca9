package middlewares

import (
	"context"
	"net/http"

	"labpulse-service/internal/pkg/constvars"
	"labpulse-service/internal/pkg/exceptions"
	"labpulse-service/internal/pkg/utils"

	"go.uber.org/zap"
)

// VerifyLabSystemKey authenticates ingest calls from laboratory systems.
// Each lab system has its own API key; the configured hashes are keyed by
// the X-Lab-System label.
func (m *Middlewares) VerifyLabSystemKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiKey := r.Header.Get(constvars.HeaderXAPIKey)
		labSystem := r.Header.Get(constvars.HeaderXLabSystem)

		if apiKey == "" || labSystem == "" {
			utils.BuildErrorResponse(m.Log, w, exceptions.ErrInvalidAPIKey(nil))
			return
		}

		hash, ok := m.InternalConfig.App.IngestAPIKeyHashes[labSystem]
		if !ok || !utils.CheckAPIKeyHash(apiKey, hash) {
			m.Log.Warn("lab system key rejected",
				zap.String(constvars.LoggingLabSystemKey, labSystem),
				zap.String(constvars.LoggingRemoteAddrKey, r.RemoteAddr),
			)
			utils.BuildErrorResponse(m.Log, w, exceptions.ErrInvalidAPIKey(nil))
			return
		}

		ctx := context.WithValue(r.Context(), constvars.CONTEXT_LAB_SYSTEM_KEY, labSystem)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
