package batches

import (
	"context"
	"labpulse-service/internal/app/contracts"
	"labpulse-service/internal/pkg/constvars"
	"labpulse-service/internal/pkg/dto/requests"
	"labpulse-service/internal/pkg/exceptions"
	"labpulse-service/internal/pkg/utils"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

type BatchController struct {
	Log          *zap.Logger
	BatchUsecase contracts.BatchUsecase
}

func NewBatchController(logger *zap.Logger, batchUsecase contracts.BatchUsecase) *BatchController {
	return &BatchController{
		Log:          logger,
		BatchUsecase: batchUsecase,
	}
}

func (ctrl *BatchController) SubmitBatch(w http.ResponseWriter, r *http.Request) {
	request := new(requests.SubmitLabBatch)
	err := json.NewDecoder(r.Body).Decode(&request)
	if err != nil {
		utils.BuildErrorResponse(ctrl.Log, w, exceptions.ErrCannotParseJSON(err))
		return
	}

	err = utils.ValidateStruct(request)
	if err != nil {
		utils.BuildErrorResponse(ctrl.Log, w, exceptions.ErrInputValidation(err))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	result, err := ctrl.BatchUsecase.SubmitBatch(ctx, request)
	if err != nil {
		if err == context.DeadlineExceeded {
			utils.BuildErrorResponse(ctrl.Log, w, exceptions.ErrServerDeadlineExceeded(err))
			return
		}
		utils.BuildErrorResponse(ctrl.Log, w, err)
		return
	}

	utils.BuildSuccessResponse(w, constvars.StatusAccepted, constvars.SuccessBatchAccepted, result)
}

func (ctrl *BatchController) GetBatchProgress(w http.ResponseWriter, r *http.Request) {
	batchID := chi.URLParam(r, "batch_id")

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	result, err := ctrl.BatchUsecase.GetBatchProgress(ctx, batchID)
	if err != nil {
		if err == context.DeadlineExceeded {
			utils.BuildErrorResponse(ctrl.Log, w, exceptions.ErrServerDeadlineExceeded(err))
			return
		}
		utils.BuildErrorResponse(ctrl.Log, w, err)
		return
	}

	utils.BuildSuccessResponse(w, constvars.StatusOK, constvars.SuccessBatchFetched, result)
}
