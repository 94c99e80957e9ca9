package routers

import (
	"labpulse-service/internal/app/delivery/http/middlewares"
	"labpulse-service/internal/app/services/operator"

	"github.com/go-chi/chi/v5"
)

func attachOperatorRoutes(router chi.Router, middlewares *middlewares.Middlewares, operatorController *operator.OperatorController) {
	router.With(middlewares.Authenticate, middlewares.RequireClinician).Get("/dead-jobs", operatorController.GetDeadJobs)
}
