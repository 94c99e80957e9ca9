package operator

import (
	"context"
	"net/http"
	"time"

	"labpulse-service/internal/app/contracts"
	"labpulse-service/internal/pkg/constvars"
	"labpulse-service/internal/pkg/dto/responses"
	"labpulse-service/internal/pkg/exceptions"
	"labpulse-service/internal/pkg/utils"

	"go.uber.org/zap"
)

// deadJobListMax caps one DLQ listing; the queue itself is unbounded.
const deadJobListMax = 50

// OperatorController exposes the DLQ so operators can inspect jobs that
// exhausted their retry budget.
type OperatorController struct {
	Log             *zap.Logger
	LabQueueService contracts.LabQueueService
}

func NewOperatorController(logger *zap.Logger, labQueueService contracts.LabQueueService) *OperatorController {
	return &OperatorController{
		Log:             logger,
		LabQueueService: labQueueService,
	}
}

func (ctrl *OperatorController) GetDeadJobs(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	jobs, err := ctrl.LabQueueService.FetchDeadJobs(ctx, deadJobListMax)
	if err != nil {
		if err == context.DeadlineExceeded {
			utils.BuildErrorResponse(ctrl.Log, w, exceptions.ErrServerDeadlineExceeded(err))
			return
		}
		utils.BuildErrorResponse(ctrl.Log, w, err)
		return
	}

	result := make([]responses.DeadJob, 0, len(jobs))
	for _, job := range jobs {
		result = append(result, responses.DeadJob{
			ID:          job.ID,
			JobType:     job.JobType,
			FailedCount: job.FailedCount,
			Body:        string(job.Body),
		})
	}

	utils.BuildSuccessResponse(w, constvars.StatusOK, constvars.SuccessDeadJobsFetched, result)
}
