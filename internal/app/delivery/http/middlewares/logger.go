package middlewares

import (
	"bufio"
	"net"
	"net/http"
	"time"

	"labpulse-service/internal/app/config"

	"github.com/sirupsen/logrus"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

// Hijack passes through so websocket upgrades keep working behind the
// access logger.
func (rec *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := rec.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, http.ErrNotSupported
	}
	return hijacker.Hijack()
}

// RequestLogger writes one access-log line per request.
func (m *Middlewares) RequestLogger(appConfig config.App, log *logrus.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			duration := time.Since(start)

			tz, err := time.LoadLocation(appConfig.Timezone)
			if err != nil {
				log.Printf("Invalid time zone: %v", err)
				tz = time.UTC
			}

			log.WithFields(logrus.Fields{
				"time":        time.Now().In(tz).Format(time.RFC850),
				"remote_addr": r.RemoteAddr,
				"method":      r.Method,
				"uri":         r.RequestURI,
				"status":      rec.status,
				"duration":    duration.String(),
			}).Info("request completed")
		})
	}
}
