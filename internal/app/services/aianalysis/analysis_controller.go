package aianalysis

import (
	"context"
	"labpulse-service/internal/app/contracts"
	"labpulse-service/internal/pkg/constvars"
	"labpulse-service/internal/pkg/exceptions"
	"labpulse-service/internal/pkg/utils"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type AnalysisController struct {
	Log             *zap.Logger
	AnalysisUsecase contracts.AnalysisUsecase
}

func NewAnalysisController(logger *zap.Logger, analysisUsecase contracts.AnalysisUsecase) *AnalysisController {
	return &AnalysisController{
		Log:             logger,
		AnalysisUsecase: analysisUsecase,
	}
}

func (ctrl *AnalysisController) TriggerAIAnalysis(w http.ResponseWriter, r *http.Request) {
	reportID := chi.URLParam(r, "report_id")

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	result, err := ctrl.AnalysisUsecase.TriggerAIAnalysis(ctx, reportID)
	if err != nil {
		if err == context.DeadlineExceeded {
			utils.BuildErrorResponse(ctrl.Log, w, exceptions.ErrServerDeadlineExceeded(err))
			return
		}
		utils.BuildErrorResponse(ctrl.Log, w, err)
		return
	}

	utils.BuildSuccessResponse(w, constvars.StatusAccepted, constvars.SuccessAnalysisStarted, result)
}

func (ctrl *AnalysisController) GetAnalysisByReport(w http.ResponseWriter, r *http.Request) {
	reportID := chi.URLParam(r, "report_id")

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	result, err := ctrl.AnalysisUsecase.GetAnalysisByReport(ctx, reportID)
	if err != nil {
		if err == context.DeadlineExceeded {
			utils.BuildErrorResponse(ctrl.Log, w, exceptions.ErrServerDeadlineExceeded(err))
			return
		}
		utils.BuildErrorResponse(ctrl.Log, w, err)
		return
	}

	utils.BuildSuccessResponse(w, constvars.StatusOK, constvars.SuccessAnalysisFetched, result)
}
