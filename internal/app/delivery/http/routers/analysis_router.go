package routers

import (
	"labpulse-service/internal/app/delivery/http/middlewares"
	"labpulse-service/internal/app/services/aianalysis"

	"github.com/go-chi/chi/v5"
)

func attachAnalysisRoutes(router chi.Router, middlewares *middlewares.Middlewares, analysisController *aianalysis.AnalysisController) {
	router.With(middlewares.Authenticate).Get("/{report_id}/analysis", analysisController.GetAnalysisByReport)
	router.With(middlewares.Authenticate, middlewares.RequireClinician).Post("/{report_id}/analysis", analysisController.TriggerAIAnalysis)
}
