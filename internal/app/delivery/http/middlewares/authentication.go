package middlewares

import (
	"context"
	"net/http"
	"strings"

	"labpulse-service/internal/pkg/constvars"
	"labpulse-service/internal/pkg/exceptions"
	"labpulse-service/internal/pkg/utils"
)

const bearerPrefix = "Bearer "

// Authenticate verifies the subscriber JWT and injects the caller's
// identity and role into the request context. Websocket upgrades may carry
// the token as a query parameter because browsers cannot set headers there.
func (m *Middlewares) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			utils.BuildErrorResponse(m.Log, w, exceptions.ErrTokenMissing(nil))
			return
		}

		userID, role, err := utils.ParseJWT(token, m.InternalConfig.JWT.Secret)
		if err != nil {
			utils.BuildErrorResponse(m.Log, w, err)
			return
		}

		ctx := context.WithValue(r.Context(), constvars.CONTEXT_USER_ID_KEY, userID)
		ctx = context.WithValue(ctx, constvars.CONTEXT_USER_ROLE_KEY, role)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireClinician allows only clinician callers through; it must run after
// Authenticate.
func (m *Middlewares) RequireClinician(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role, _ := r.Context().Value(constvars.CONTEXT_USER_ROLE_KEY).(string)
		if role != constvars.RoleClinician {
			utils.BuildErrorResponse(m.Log, w, exceptions.ErrTopicAccessDenied(nil))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get(constvars.HeaderAuthorization)
	if strings.HasPrefix(header, bearerPrefix) {
		return strings.TrimPrefix(header, bearerPrefix)
	}
	return r.URL.Query().Get("token")
}
