package routers

import (
	"labpulse-service/internal/app/delivery/http/middlewares"
	"labpulse-service/internal/app/services/alerts"

	"github.com/go-chi/chi/v5"
)

func attachAlertRoutes(router chi.Router, middlewares *middlewares.Middlewares, alertController *alerts.AlertController) {
	router.With(middlewares.Authenticate, middlewares.RequireClinician).Post("/{alert_id}/ack", alertController.AcknowledgeAlert)
	router.With(middlewares.Authenticate, middlewares.RequireClinician).Post("/{alert_id}/resolve", alertController.ResolveAlert)
}
