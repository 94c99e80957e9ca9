package routers

import (
	"labpulse-service/internal/app/delivery/http/middlewares"
	"labpulse-service/internal/app/services/shared/realtime"

	"github.com/go-chi/chi/v5"
)

func attachRealtimeRoutes(router chi.Router, middlewares *middlewares.Middlewares, hub *realtime.Hub) {
	router.With(middlewares.Authenticate).Get("/", hub.ServeWS)
}
