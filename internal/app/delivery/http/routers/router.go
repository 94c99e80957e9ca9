package routers

import (
	"fmt"
	"time"

	"labpulse-service/internal/app/config"
	"labpulse-service/internal/app/delivery/http/middlewares"
	"labpulse-service/internal/app/services/aianalysis"
	"labpulse-service/internal/app/services/alerts"
	"labpulse-service/internal/app/services/batches"
	"labpulse-service/internal/app/services/operator"
	"labpulse-service/internal/app/services/shared/realtime"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/sirupsen/logrus"
)

func SetupRoutes(
	router *chi.Mux,
	internalConfig *config.InternalConfig,
	middlewares *middlewares.Middlewares,
	accessLog *logrus.Logger,
	batchController *batches.BatchController,
	alertController *alerts.AlertController,
	analysisController *aianalysis.AnalysisController,
	operatorController *operator.OperatorController,
	hub *realtime.Hub,
) {

	corsOptions := cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key", "X-Lab-System", "X-Request-ID"},
		ExposedHeaders:   []string{"Link", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	router.Use(cors.Handler(corsOptions))

	rateLimiter := httprate.LimitByIP(internalConfig.App.MaxRequests, time.Second)
	router.Use(rateLimiter)

	router.Use(middlewares.RequestID)
	router.Use(middlewares.RequestLogger(internalConfig.App, accessLog))

	endpointPrefix := fmt.Sprintf("/%s", internalConfig.App.EndpointPrefix)
	versionPrefix := fmt.Sprintf("/%s", internalConfig.App.Version)

	router.Route(endpointPrefix, func(r chi.Router) {
		r.Route(versionPrefix, func(r chi.Router) {
			r.Route("/batches", func(r chi.Router) {
				attachBatchRoutes(r, middlewares, batchController)
			})

			r.Route("/alerts", func(r chi.Router) {
				attachAlertRoutes(r, middlewares, alertController)
			})

			r.Route("/reports", func(r chi.Router) {
				attachAnalysisRoutes(r, middlewares, analysisController)
			})

			r.Route("/ws", func(r chi.Router) {
				attachRealtimeRoutes(r, middlewares, hub)
			})

			r.Route("/operator", func(r chi.Router) {
				attachOperatorRoutes(r, middlewares, operatorController)
			})
		})
	})
}
