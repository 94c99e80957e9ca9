package routers

import (
	"labpulse-service/internal/app/delivery/http/middlewares"
	"labpulse-service/internal/app/services/batches"

	"github.com/go-chi/chi/v5"
)

func attachBatchRoutes(router chi.Router, middlewares *middlewares.Middlewares, batchController *batches.BatchController) {
	router.With(middlewares.VerifyLabSystemKey).Post("/", batchController.SubmitBatch)
	router.With(middlewares.Authenticate).Get("/{batch_id}", batchController.GetBatchProgress)
}
